package session

import (
	"sync"
	"testing"
	"time"

	"repairhub/internal/domain"
	"repairhub/internal/rbac"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(v bool) *bool    { return &v }
func strPtr(v string) *string { return &v }

func TestNewState_StartsAsLoadingGuest(t *testing.T) {
	s := NewState()
	snap := s.Snapshot()

	assert.Equal(t, StatusLoading, snap.Status)
	assert.False(t, snap.Initialized)
	assert.Equal(t, rbac.Guest, snap.Level)
	assert.Nil(t, snap.User)
	assert.False(t, s.CanAccess(rbac.ResourceDashboard))
}

func TestSetSession_ProjectsCustomFields(t *testing.T) {
	s := NewState()
	s.SetSession(&Session{User: &User{
		ID:          1,
		Email:       "admin@example.com",
		IsStaff:     boolPtr(true),
		IsSuperuser: boolPtr(true),
		IsActive:    boolPtr(true),
		StaffRole:   strPtr("ADMINISTRATOR"),
	}}, StatusAuthenticated)

	snap := s.Snapshot()
	require.NotNil(t, snap.User)
	assert.True(t, snap.Initialized)
	assert.Equal(t, StatusAuthenticated, snap.Status)
	assert.Equal(t, rbac.Superuser, snap.Level)
	assert.True(t, s.HasRole(rbac.Admin))
	assert.True(t, s.HasPermission("anything:at:all"))
	assert.True(t, s.CanAccess(rbac.ResourceReporting))
}

func TestSetSession_MalformedFailsClosed(t *testing.T) {
	s := NewState()
	s.SetSession(&Session{User: &User{ID: 2, StaffRole: strPtr("OVERLORD")}}, "")

	snap := s.Snapshot()
	require.NotNil(t, snap.User)
	assert.False(t, snap.User.IsStaff)
	assert.False(t, snap.User.IsActive)
	assert.Nil(t, snap.User.StaffRole)
	assert.Equal(t, rbac.Customer, snap.Level)
	assert.Equal(t, StatusAuthenticated, snap.Status)
	assert.False(t, s.HasRole(rbac.Staff))
}

func TestSetSession_NilUserClears(t *testing.T) {
	s := NewState()
	s.SetSession(&Session{}, StatusAuthenticated)

	snap := s.Snapshot()
	assert.Equal(t, StatusUnauthenticated, snap.Status)
	assert.True(t, snap.Initialized)
	assert.Equal(t, rbac.Guest, snap.Level)
}

func TestClearSession(t *testing.T) {
	s := NewState()
	s.SetSession(FromAccount(&domain.Account{
		ID: 3, IsStaff: true, IsActive: true,
		Profile: &domain.StaffProfile{Role: domain.StaffTechnician},
	}, time.Now()), StatusAuthenticated)
	require.Equal(t, rbac.Staff, s.Snapshot().Level)

	s.ClearSession()
	snap := s.Snapshot()
	assert.Equal(t, rbac.Guest, snap.Level)
	assert.Nil(t, snap.User)
	assert.Equal(t, []string{rbac.PermCatalogRead}, snap.Permissions)
}

func TestSnapshot_IsACopy(t *testing.T) {
	s := NewState()
	snap := s.Snapshot()
	snap.Access[rbac.ResourceAdminPanel] = true
	snap.Permissions = append(snap.Permissions[:0], rbac.Wildcard)

	assert.False(t, s.CanAccess(rbac.ResourceAdminPanel))
	assert.False(t, s.HasPermission(rbac.PermUsersHardDelete))
}

func TestSubscribe_NotifiesUntilUnsubscribed(t *testing.T) {
	s := NewState()
	var got []rbac.Level
	unsubscribe := s.Subscribe(func(snap Snapshot) { got = append(got, snap.Level) })

	s.SetSession(&Session{User: &User{IsStaff: boolPtr(true)}}, StatusAuthenticated)
	s.ClearSession()
	unsubscribe()
	s.SetSession(&Session{User: &User{}}, StatusAuthenticated)

	assert.Equal(t, []rbac.Level{rbac.Staff, rbac.Guest}, got)
}

func TestClose_StopsEverything(t *testing.T) {
	s := NewState()
	calls := 0
	s.Subscribe(func(Snapshot) { calls++ })
	s.Close()

	s.SetSession(&Session{User: &User{IsStaff: boolPtr(true)}}, StatusAuthenticated)
	assert.Zero(t, calls)
	assert.Equal(t, StatusLoading, s.Snapshot().Status)

	unsubscribe := s.Subscribe(func(Snapshot) { calls++ })
	unsubscribe()
}

func TestState_ConcurrentUse(t *testing.T) {
	s := NewState()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.SetSession(&Session{User: &User{IsStaff: boolPtr(true)}}, StatusAuthenticated)
		}()
		go func() {
			defer wg.Done()
			_ = s.HasRole(rbac.Staff)
			_ = s.Snapshot()
		}()
	}
	wg.Wait()
	assert.Equal(t, rbac.Staff, s.Snapshot().Level)
}

func TestState_SubscribersSeeTheStoredOrder(t *testing.T) {
	s := NewState()
	var (
		mu   sync.Mutex
		last Snapshot
	)
	s.Subscribe(func(snap Snapshot) {
		mu.Lock()
		last = snap
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(staff bool) {
			defer wg.Done()
			s.SetSession(&Session{User: &User{IsStaff: boolPtr(staff)}}, StatusAuthenticated)
		}(i%2 == 0)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, s.Snapshot().Level, last.Level)
}

func TestFromAccount(t *testing.T) {
	img := "https://img.example.com/a.png"
	sess := FromAccount(&domain.Account{
		ID: 9, Name: "Dana", Email: "dana@example.com", Image: &img, IsActive: true,
		Profile: &domain.CustomerProfile{Role: domain.CustomerCompany},
	}, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))

	require.NotNil(t, sess.User)
	assert.Equal(t, int64(9), sess.User.ID)
	assert.Equal(t, "COMPANY", *sess.User.CustomerRole)
	assert.Nil(t, sess.User.StaffRole)
	assert.False(t, *sess.User.IsStaff)
	assert.True(t, *sess.User.IsActive)
}
