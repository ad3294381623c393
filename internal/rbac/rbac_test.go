package rbac

import (
	"testing"

	"repairhub/internal/domain"

	"github.com/stretchr/testify/assert"
)

func role(r domain.StaffRole) *domain.StaffRole { return &r }

func TestResolveFlags(t *testing.T) {
	tests := []struct {
		name        string
		isStaff     bool
		isSuperuser bool
		staffRole   *domain.StaffRole
		want        Level
	}{
		{"admin with superuser flag", true, true, role(domain.StaffAdministrator), Superuser},
		{"administrator role only", true, false, role(domain.StaffAdministrator), Admin},
		{"technician", true, false, role(domain.StaffTechnician), Staff},
		{"receptionist with stray superuser flag", true, true, role(domain.StaffReceptionist), Staff},
		{"staff without profile", true, false, nil, Staff},
		{"customer", false, false, nil, Customer},
		{"superuser flag without admin role", false, true, nil, Customer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveFlags(tt.isStaff, tt.isSuperuser, tt.staffRole)
			assert.Equal(t, tt.want, got)
			// deterministic
			assert.Equal(t, got, ResolveFlags(tt.isStaff, tt.isSuperuser, tt.staffRole))
		})
	}
}

func TestResolve_Account(t *testing.T) {
	assert.Equal(t, Guest, Resolve(nil))

	admin := &domain.Account{IsStaff: true, IsSuperuser: true, Profile: &domain.StaffProfile{Role: domain.StaffAdministrator}}
	assert.Equal(t, Superuser, Resolve(admin))

	tech := &domain.Account{IsStaff: true, Profile: &domain.StaffProfile{Role: domain.StaffTechnician}}
	assert.Equal(t, Staff, Resolve(tech))

	cust := &domain.Account{Profile: &domain.CustomerProfile{Role: domain.CustomerIndividual}}
	assert.Equal(t, Customer, Resolve(cust))
}

func TestResolve_TotalOverAllFlagCombinations(t *testing.T) {
	roles := []*domain.StaffRole{nil, role(domain.StaffAdministrator), role(domain.StaffTechnician), role(domain.StaffReceptionist)}
	for _, isStaff := range []bool{false, true} {
		for _, isSuper := range []bool{false, true} {
			for _, r := range roles {
				l := ResolveFlags(isStaff, isSuper, r)
				assert.True(t, l >= Customer && l <= Superuser)
			}
		}
	}
}

func TestAtLeast_Ordinal(t *testing.T) {
	levels := []Level{Guest, Customer, Staff, Admin, Superuser}
	for i, a := range levels {
		for j, b := range levels {
			assert.Equal(t, i >= j, a.AtLeast(b), "%s >= %s", a, b)
		}
	}
}

func TestPermissions_Monotonic(t *testing.T) {
	levels := []Level{Guest, Customer, Staff, Admin, Superuser}
	all := AllPermissions()
	for i := range levels {
		for j := 0; j < i; j++ {
			lower, higher := levels[j], levels[i]
			for _, p := range all {
				if HasPermission(lower, p) {
					assert.True(t, HasPermission(higher, p), "%s has %q but %s does not", lower, p, higher)
				}
			}
			for _, r := range Resources {
				if CanAccess(lower, r) {
					assert.True(t, CanAccess(higher, r), "%s can access %s but %s cannot", lower, r, higher)
				}
			}
		}
	}
}

func TestHasPermission_Wildcard(t *testing.T) {
	assert.True(t, HasPermission(Superuser, "anything:at_all"))
	assert.False(t, HasPermission(Admin, "anything:at_all"))
	assert.True(t, HasPermission(Admin, PermServicesManage))
	assert.False(t, HasPermission(Staff, PermServicesManage))
	assert.False(t, HasPermission(Level(42), PermCatalogRead))
}

func TestConfigFor(t *testing.T) {
	guest := ConfigFor(Guest)
	for _, r := range Resources {
		assert.False(t, guest.Access[r])
	}

	staff := ConfigFor(Staff)
	assert.True(t, staff.Access[ResourceDashboard])
	assert.False(t, staff.Access[ResourceAdminPanel])

	// copies must not leak into the table
	staff.Access[ResourceAdminPanel] = true
	staff.Permissions[0] = "mutated"
	assert.False(t, CanAccess(Staff, ResourceAdminPanel))
	assert.False(t, ConfigFor(Staff).Access[ResourceAdminPanel])
	assert.NotEqual(t, "mutated", ConfigFor(Staff).Permissions[0])

	unknown := ConfigFor(Level(99))
	assert.Equal(t, Guest, unknown.Level)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, Admin, ParseLevel("admin"))
	assert.Equal(t, Guest, ParseLevel("root"))
	assert.Equal(t, "superuser", Superuser.String())
}
