// Package rbac resolves an account's permission level and maps levels to
// permissions and resource access.
package rbac

import "repairhub/internal/domain"

// Level is ordinal: a higher level satisfies every check a lower one does.
type Level int

const (
	Guest Level = iota
	Customer
	Staff
	Admin
	Superuser
)

var levelNames = map[Level]string{
	Guest:     "guest",
	Customer:  "customer",
	Staff:     "staff",
	Admin:     "admin",
	Superuser: "superuser",
}

func (l Level) String() string {
	if s, ok := levelNames[l]; ok {
		return s
	}
	return "guest"
}

func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l Level) AtLeast(min Level) bool {
	return l >= min
}

// ParseLevel returns Guest for unknown names.
func ParseLevel(s string) Level {
	for l, name := range levelNames {
		if name == s {
			return l
		}
	}
	return Guest
}

// ResolveFlags is the single definition of who is what. First match wins.
func ResolveFlags(isStaff, isSuperuser bool, staffRole *domain.StaffRole) Level {
	isAdminRole := staffRole != nil && *staffRole == domain.StaffAdministrator
	switch {
	case isSuperuser && isAdminRole:
		return Superuser
	case isStaff && isAdminRole:
		return Admin
	case isStaff:
		return Staff
	default:
		return Customer
	}
}

// Resolve returns Guest for a nil account.
func Resolve(a *domain.Account) Level {
	if a == nil {
		return Guest
	}
	return ResolveFlags(a.IsStaff, a.IsSuperuser, a.StaffRole())
}
