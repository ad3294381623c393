package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"repairhub/internal/domain"
	"repairhub/internal/rbac"
	"repairhub/internal/repository"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryAccounts struct {
	mu       sync.Mutex
	accounts map[int64]*domain.Account
}

func (m *memoryAccounts) GetByID(_ context.Context, id int64) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memoryAccounts) set(a *domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.ID] = a
}

func (m *memoryAccounts) drop(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.accounts, id)
}

func dialHub(t *testing.T, hub *Hub, a *domain.Account) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(a.ID, conn, FromAccount(a, time.Now().Add(time.Hour)))
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var raw struct {
		Type  string `json:"type"`
		State struct {
			Level  string `json:"level"`
			Status Status `json:"status"`
		} `json:"state"`
	}
	require.NoError(t, conn.ReadJSON(&raw))
	return Message{Type: raw.Type, State: Snapshot{Level: rbac.ParseLevel(raw.State.Level), Status: raw.State.Status}}
}

func TestHub_PushesOnRegisterAndChange(t *testing.T) {
	tech := &domain.Account{
		ID: 5, Email: "tech@example.com", IsStaff: true, IsActive: true,
		Profile: &domain.StaffProfile{Role: domain.StaffTechnician},
	}
	accounts := &memoryAccounts{accounts: map[int64]*domain.Account{}}
	accounts.set(tech)
	hub := NewHub(accounts, time.Hour, nil)
	t.Cleanup(hub.Close)

	conn := dialHub(t, hub, tech)
	first := readMessage(t, conn)
	assert.Equal(t, "session", first.Type)
	assert.Equal(t, rbac.Staff, first.State.Level)
	assert.True(t, hub.IsOnline(tech.ID))

	promoted := *tech
	promoted.Profile = &domain.StaffProfile{Role: domain.StaffAdministrator}
	accounts.set(&promoted)
	require.NoError(t, hub.AccountChanged(context.Background(), tech.ID))
	assert.Equal(t, rbac.Admin, readMessage(t, conn).State.Level)

	accounts.drop(tech.ID)
	require.NoError(t, hub.AccountChanged(context.Background(), tech.ID))
	cleared := readMessage(t, conn)
	assert.Equal(t, rbac.Guest, cleared.State.Level)
	assert.Equal(t, StatusUnauthenticated, cleared.State.Status)
}

func TestHub_AccountChangedWithoutClient(t *testing.T) {
	hub := NewHub(&memoryAccounts{accounts: map[int64]*domain.Account{}}, time.Hour, nil)
	assert.NoError(t, hub.AccountChanged(context.Background(), 42))
	assert.Zero(t, hub.OnlineCount())
}

func TestHub_Unregister(t *testing.T) {
	a := &domain.Account{ID: 8, IsActive: true, Profile: &domain.CustomerProfile{Role: domain.CustomerIndividual}}
	accounts := &memoryAccounts{accounts: map[int64]*domain.Account{8: a}}
	hub := NewHub(accounts, time.Hour, nil)

	conn := dialHub(t, hub, a)
	assert.Equal(t, rbac.Customer, readMessage(t, conn).State.Level)

	hub.Unregister(a.ID)
	assert.False(t, hub.IsOnline(a.ID))
	hub.Unregister(a.ID)
}

func TestHub_ReleaseKeepsNewerConnection(t *testing.T) {
	a := &domain.Account{ID: 9, IsActive: true, Profile: &domain.CustomerProfile{Role: domain.CustomerIndividual}}
	hub := NewHub(&memoryAccounts{accounts: map[int64]*domain.Account{9: a}}, time.Hour, nil)
	t.Cleanup(hub.Close)

	states := make(chan *State, 2)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		states <- hub.Register(a.ID, conn, FromAccount(a, time.Now().Add(time.Hour)))
	}))
	t.Cleanup(srv.Close)

	dial := func() *websocket.Conn {
		conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = conn.Close() })
		readMessage(t, conn)
		return conn
	}

	dial()
	older := <-states
	dial()
	newer := <-states

	hub.Release(a.ID, older)
	assert.True(t, hub.IsOnline(a.ID))

	hub.Release(a.ID, newer)
	assert.False(t, hub.IsOnline(a.ID))
}
