package guard

import (
	"repairhub/internal/domain"
	"repairhub/internal/pkg/apperr"
	"repairhub/internal/rbac"
)

type request struct {
	requester *domain.Account
	level     rbac.Level
	target    *Target
}

type rule struct {
	// ownProfile rules skip the inactive/blocked downgrade. Only viewing
	// your own profile does; every write goes through EffectiveLevel.
	ownProfile bool
	check      func(request) error
}

// rules is the only place privileged operations are mapped to requirements.
var rules = map[Operation]rule{
	ViewOwnProfile:   {ownProfile: true, check: always},
	UpdateOwnProfile: {check: atLeast(rbac.Customer, "this account has been deactivated")},

	ListUsers:        {check: atLeast(rbac.Staff, "staff access required")},
	ViewUser:         {check: manageAccount},
	CreateUser:       {check: manageAccount},
	UpdateUser:       {check: manageAccount},
	SoftDeleteUser:   {check: manageAccount},
	RestoreUser:      {check: manageAccount},
	ToggleUserStatus: {check: manageAccount},
	HardDeleteUser:   {check: hardDelete},
	ViewUserStats:    {check: atLeast(rbac.Admin, "administrator access required")},

	ManageCatalog:    {check: atLeast(rbac.Admin, "administrator access required to manage the catalog")},
	ViewServiceStats: {check: atLeast(rbac.Admin, "administrator access required")},

	ViewInventory:      {check: atLeast(rbac.Staff, "staff access required")},
	ManageInventory:    {check: atLeast(rbac.Staff, "staff access required")},
	ViewInventoryStats: {check: atLeast(rbac.Admin, "administrator access required")},
	ViewOwnDevices:     {check: atLeast(rbac.Customer, "you must be signed in to do this")},
}

func always(request) error { return nil }

func atLeast(min rbac.Level, reason string) func(request) error {
	return func(r request) error {
		if !r.level.AtLeast(min) {
			return apperr.Authorization("%s", reason)
		}
		return nil
	}
}

// manageAccount: staff may act on customers, only administrators on staff
// or on anything that changes privileges. Nobody deactivates themselves.
func manageAccount(r request) error {
	if !r.level.AtLeast(rbac.Staff) {
		return apperr.Authorization("staff access required")
	}
	t := r.target
	if t == nil {
		return nil
	}
	if t.Deactivates && t.AccountID != 0 && t.AccountID == r.requester.ID {
		return apperr.Authorization("you cannot deactivate your own account")
	}
	if (t.IsStaff || t.ChangesPrivileges) && !r.level.AtLeast(rbac.Admin) {
		return apperr.Authorization("administrator access required to manage staff accounts")
	}
	return nil
}

func hardDelete(r request) error {
	if !r.level.AtLeast(rbac.Admin) {
		return apperr.Authorization("administrator access required to permanently delete users")
	}
	if r.target != nil && r.target.AccountID == r.requester.ID {
		return apperr.Authorization("you cannot delete your own account")
	}
	return nil
}
