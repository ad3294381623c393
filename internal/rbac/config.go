package rbac

type Resource string

const (
	ResourceDashboard         Resource = "dashboard"
	ResourceAdminPanel        Resource = "adminPanel"
	ResourceStaffTools        Resource = "staffTools"
	ResourceCustomerOrders    Resource = "customerOrders"
	ResourceUserManagement    Resource = "userManagement"
	ResourceServiceManagement Resource = "serviceManagement"
	ResourceReporting         Resource = "reporting"
)

var Resources = []Resource{
	ResourceDashboard,
	ResourceAdminPanel,
	ResourceStaffTools,
	ResourceCustomerOrders,
	ResourceUserManagement,
	ResourceServiceManagement,
	ResourceReporting,
}

const Wildcard = "*"

const (
	PermProfileReadOwn    = "profile:read:own"
	PermProfileUpdateOwn  = "profile:update:own"
	PermCatalogRead       = "catalog:read"
	PermOrdersReadOwn     = "orders:read:own"
	PermDevicesReadOwn    = "devices:read:own"
	PermUsersRead         = "users:read"
	PermUsersCreate       = "users:create"
	PermUsersUpdate       = "users:update"
	PermUsersDeactivate   = "users:deactivate"
	PermInventoryRead     = "inventory:read"
	PermInventoryWrite    = "inventory:write"
	PermUsersHardDelete   = "users:hard_delete"
	PermUsersManageStaff  = "users:manage_staff"
	PermCategoriesManage  = "categories:manage"
	PermServicesManage    = "services:manage"
	PermReportsRead       = "reports:read"
	PermAdminPanelAccess  = "admin_panel:access"
	PermDashboardAccess   = "dashboard:access"
	PermStaffToolsAccess  = "staff_tools:access"
	PermCustomerPortalUse = "customer_portal:use"
)

// Config is what a level may do. Callers get copies.
type Config struct {
	Level       Level
	Permissions []string
	Access      map[Resource]bool
}

type entry struct {
	perms  []string
	access []Resource
}

var (
	guestPerms    = []string{PermCatalogRead}
	customerPerms = append(clone(guestPerms),
		PermProfileReadOwn, PermProfileUpdateOwn, PermOrdersReadOwn, PermDevicesReadOwn, PermCustomerPortalUse)
	staffPerms = append(clone(customerPerms),
		PermDashboardAccess, PermStaffToolsAccess,
		PermUsersRead, PermUsersCreate, PermUsersUpdate, PermUsersDeactivate,
		PermInventoryRead, PermInventoryWrite)
	adminPerms = append(clone(staffPerms),
		PermAdminPanelAccess, PermUsersHardDelete, PermUsersManageStaff,
		PermCategoriesManage, PermServicesManage, PermReportsRead)
)

var table = map[Level]entry{
	Guest:    {perms: guestPerms},
	Customer: {perms: customerPerms, access: []Resource{ResourceCustomerOrders}},
	Staff: {perms: staffPerms, access: []Resource{
		ResourceDashboard, ResourceStaffTools, ResourceCustomerOrders, ResourceUserManagement,
	}},
	Admin:     {perms: adminPerms, access: Resources},
	Superuser: {perms: []string{Wildcard}, access: Resources},
}

func clone(s []string) []string {
	return append([]string(nil), s...)
}

// ConfigFor returns the guest configuration for unknown levels.
func ConfigFor(l Level) Config {
	e, ok := table[l]
	if !ok {
		l, e = Guest, table[Guest]
	}
	access := make(map[Resource]bool, len(Resources))
	for _, r := range Resources {
		access[r] = false
	}
	for _, r := range e.access {
		access[r] = true
	}
	return Config{Level: l, Permissions: clone(e.perms), Access: access}
}

func HasPermission(l Level, perm string) bool {
	e, ok := table[l]
	if !ok {
		return false
	}
	for _, p := range e.perms {
		if p == Wildcard {
			return true
		}
	}
	for _, p := range e.perms {
		if p == perm {
			return true
		}
	}
	return false
}

func CanAccess(l Level, r Resource) bool {
	e, ok := table[l]
	if !ok {
		return false
	}
	for _, a := range e.access {
		if a == r {
			return true
		}
	}
	return false
}

// AllPermissions lists every concrete permission string, for tests and
// for expanding the wildcard in client payloads.
func AllPermissions() []string {
	return clone(adminPerms)
}
