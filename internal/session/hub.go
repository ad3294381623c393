package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"repairhub/internal/domain"
	"repairhub/internal/repository"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type AccountLoader interface {
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
}

// Message is what a connected client receives whenever its view changes.
type Message struct {
	Type  string   `json:"type"`
	State Snapshot `json:"state"`
}

type client struct {
	conn        *websocket.Conn
	state       *State
	unsubscribe func()
	writeMu     sync.Mutex
}

func (c *client) write(msg Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(msg)
}

// Hub keeps one State per connected account and pushes it over the
// account's websocket whenever it changes.
type Hub struct {
	accounts AccountLoader
	ttl      time.Duration
	log      *zap.Logger

	clients map[int64]*client
	mutex   sync.RWMutex
}

func NewHub(accounts AccountLoader, ttl time.Duration, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		accounts: accounts,
		ttl:      ttl,
		log:      log,
		clients:  make(map[int64]*client),
	}
}

// Register attaches conn to accountID, replacing any previous connection,
// and pushes the initial view built from sess.
func (h *Hub) Register(accountID int64, conn *websocket.Conn, sess *Session) *State {
	c := &client{conn: conn, state: NewState()}
	c.unsubscribe = c.state.Subscribe(func(s Snapshot) {
		if err := c.write(Message{Type: "session", State: s}); err != nil {
			h.log.Debug("session push failed", zap.Int64("account_id", accountID), zap.Error(err))
			h.remove(accountID, c)
		}
	})

	h.mutex.Lock()
	old := h.clients[accountID]
	h.clients[accountID] = c
	h.mutex.Unlock()

	if old != nil {
		old.close()
	}

	c.state.SetSession(sess, StatusAuthenticated)
	return c.state
}

func (h *Hub) Unregister(accountID int64) {
	h.mutex.Lock()
	c, ok := h.clients[accountID]
	delete(h.clients, accountID)
	h.mutex.Unlock()

	if ok {
		c.close()
	}
}

// Release unregisters the connection that owns st. A newer connection for
// the same account stays registered.
func (h *Hub) Release(accountID int64, st *State) {
	h.mutex.RLock()
	c, ok := h.clients[accountID]
	h.mutex.RUnlock()
	if ok && c.state == st {
		h.remove(accountID, c)
	}
}

// remove unregisters c only if it is still the account's current client.
func (h *Hub) remove(accountID int64, c *client) {
	h.mutex.Lock()
	if cur, ok := h.clients[accountID]; ok && cur == c {
		delete(h.clients, accountID)
	}
	h.mutex.Unlock()
	c.close()
}

func (c *client) close() {
	c.unsubscribe()
	c.state.Close()
	_ = c.conn.Close()
}

// AccountChanged reloads the account and pushes its new view. Deleted,
// deactivated and blocked accounts are pushed a cleared session.
func (h *Hub) AccountChanged(ctx context.Context, accountID int64) error {
	h.mutex.RLock()
	c, ok := h.clients[accountID]
	h.mutex.RUnlock()
	if !ok {
		return nil
	}

	a, err := h.accounts.GetByID(ctx, accountID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if a == nil || !a.IsActive || a.Blocked {
		c.state.ClearSession()
		return nil
	}
	c.state.SetSession(FromAccount(a, time.Now().Add(h.ttl)), StatusAuthenticated)
	return nil
}

func (h *Hub) IsOnline(accountID int64) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	_, ok := h.clients[accountID]
	return ok
}

func (h *Hub) OnlineCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (h *Hub) Close() {
	h.mutex.Lock()
	clients := h.clients
	h.clients = make(map[int64]*client)
	h.mutex.Unlock()

	for _, c := range clients {
		c.close()
	}
}
