// Package session mirrors a signed-in user's session into an observable,
// per-client view of their level, permissions and resource access. It is
// advisory: every privileged operation is re-checked by the guard package.
package session

import (
	"sync"
	"time"

	"repairhub/internal/domain"
	"repairhub/internal/rbac"
)

// Session is the object handed to clients. Only the flag and role fields are
// projected into AuthUser; identity fields are carried as is.
type Session struct {
	User    *User     `json:"user"`
	Expires time.Time `json:"expires"`
}

type User struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	Image        *string `json:"image,omitempty"`
	IsStaff      *bool   `json:"isStaff,omitempty"`
	IsSuperuser  *bool   `json:"isSuperuser,omitempty"`
	IsActive     *bool   `json:"isActive,omitempty"`
	StaffRole    *string `json:"staffRole,omitempty"`
	CustomerRole *string `json:"customerRole,omitempty"`
}

// FromAccount builds the session for a freshly loaded account.
func FromAccount(a *domain.Account, expires time.Time) *Session {
	isStaff, isSuperuser, isActive := a.IsStaff, a.IsSuperuser, a.IsActive
	u := &User{
		ID:          a.ID,
		Name:        a.Name,
		Email:       a.Email,
		Image:       a.Image,
		IsStaff:     &isStaff,
		IsSuperuser: &isSuperuser,
		IsActive:    &isActive,
	}
	if r := a.StaffRole(); r != nil {
		s := string(*r)
		u.StaffRole = &s
	}
	if r := a.CustomerRole(); r != nil {
		s := string(*r)
		u.CustomerRole = &s
	}
	return &Session{User: u, Expires: expires.UTC()}
}

type Status string

const (
	StatusLoading         Status = "loading"
	StatusAuthenticated   Status = "authenticated"
	StatusUnauthenticated Status = "unauthenticated"
)

// AuthUser is the projection of the custom session fields. Missing booleans
// are false and missing or unknown roles are nil.
type AuthUser struct {
	IsStaff      bool                 `json:"isStaff"`
	IsSuperuser  bool                 `json:"isSuperuser"`
	IsActive     bool                 `json:"isActive"`
	StaffRole    *domain.StaffRole    `json:"staffRole,omitempty"`
	CustomerRole *domain.CustomerRole `json:"customerRole,omitempty"`
}

func project(u *User) *AuthUser {
	a := &AuthUser{
		IsStaff:     u.IsStaff != nil && *u.IsStaff,
		IsSuperuser: u.IsSuperuser != nil && *u.IsSuperuser,
		IsActive:    u.IsActive != nil && *u.IsActive,
	}
	if u.StaffRole != nil {
		if r := domain.StaffRole(*u.StaffRole); r.Valid() {
			a.StaffRole = &r
		}
	}
	if u.CustomerRole != nil {
		if r := domain.CustomerRole(*u.CustomerRole); r.Valid() {
			a.CustomerRole = &r
		}
	}
	return a
}

type Snapshot struct {
	User        *AuthUser              `json:"user"`
	Level       rbac.Level             `json:"level"`
	Permissions []string               `json:"permissions"`
	Access      map[rbac.Resource]bool `json:"access"`
	Status      Status                 `json:"status"`
	Initialized bool                   `json:"initialized"`
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.Permissions = append([]string(nil), s.Permissions...)
	out.Access = make(map[rbac.Resource]bool, len(s.Access))
	for k, v := range s.Access {
		out.Access[k] = v
	}
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	return out
}

func guestSnapshot(status Status, initialized bool) Snapshot {
	cfg := rbac.ConfigFor(rbac.Guest)
	return Snapshot{
		Level:       cfg.Level,
		Permissions: cfg.Permissions,
		Access:      cfg.Access,
		Status:      status,
		Initialized: initialized,
	}
}

// State is one client's session view. Create it with NewState when the
// client connects and Close it when the client goes away. It never performs
// I/O; callers feed it sessions.
type State struct {
	// deliver is held across a whole publish so subscribers see changes in
	// the order they were stored. Subscribers must not publish back into s.
	deliver sync.Mutex

	mu     sync.RWMutex
	snap   Snapshot
	subs   map[int]func(Snapshot)
	nextID int
	closed bool
}

func NewState() *State {
	return &State{
		snap: guestSnapshot(StatusLoading, false),
		subs: make(map[int]func(Snapshot)),
	}
}

// SetSession recomputes the view from sess. A nil session or a session
// without a user behaves like ClearSession.
func (s *State) SetSession(sess *Session, status Status) {
	if sess == nil || sess.User == nil {
		s.ClearSession()
		return
	}
	if status == "" {
		status = StatusAuthenticated
	}

	user := project(sess.User)
	cfg := rbac.ConfigFor(rbac.ResolveFlags(user.IsStaff, user.IsSuperuser, user.StaffRole))
	s.publish(Snapshot{
		User:        user,
		Level:       cfg.Level,
		Permissions: cfg.Permissions,
		Access:      cfg.Access,
		Status:      status,
		Initialized: true,
	})
}

func (s *State) ClearSession() {
	s.publish(guestSnapshot(StatusUnauthenticated, true))
}

func (s *State) publish(next Snapshot) {
	s.deliver.Lock()
	defer s.deliver.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.snap = next
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next.clone())
	}
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.clone()
}

// Subscribe registers fn for every later change. The returned func removes it.
func (s *State) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *State) HasRole(min rbac.Level) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Level.AtLeast(min)
}

func (s *State) HasPermission(perm string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return rbac.HasPermission(s.snap.Level, perm)
}

func (s *State) CanAccess(r rbac.Resource) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Access[r]
}

// Close drops every subscriber. Later calls on s are no-ops.
func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.subs = nil
}
