package domain

import "time"

type ContactMethod string

const (
	ContactEmail ContactMethod = "EMAIL"
	ContactPhone ContactMethod = "PHONE"
)

type StaffRole string

const (
	StaffAdministrator StaffRole = "ADMINISTRATOR"
	StaffTechnician    StaffRole = "TECHNICIAN"
	StaffReceptionist  StaffRole = "RECEPTIONIST"
)

func (r StaffRole) Valid() bool {
	switch r {
	case StaffAdministrator, StaffTechnician, StaffReceptionist:
		return true
	}
	return false
}

type CustomerRole string

const (
	CustomerIndividual CustomerRole = "INDIVIDUAL"
	CustomerCompany    CustomerRole = "COMPANY"
)

func (r CustomerRole) Valid() bool {
	return r == CustomerIndividual || r == CustomerCompany
}

type ProfileKind string

const (
	ProfileStaff    ProfileKind = "staff"
	ProfileCustomer ProfileKind = "customer"
)

// Profile is the role-specific half of an Account. Only *StaffProfile and
// *CustomerProfile implement it.
type Profile interface {
	Kind() ProfileKind
	isProfile()
}

type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type StaffProfile struct {
	ID              int64                `json:"id"`
	Role            StaffRole            `json:"role"`
	Specializations []string             `json:"specializations"`
	Availability    map[string]TimeRange `json:"availability"`
}

func (*StaffProfile) Kind() ProfileKind { return ProfileStaff }
func (*StaffProfile) isProfile()        {}

type CustomerProfile struct {
	ID          int64        `json:"id"`
	Role        CustomerRole `json:"role"`
	CompanyName *string      `json:"company_name,omitempty"`
	Address     *string      `json:"address,omitempty"`
	Notes       *string      `json:"notes,omitempty"`
}

func (*CustomerProfile) Kind() ProfileKind { return ProfileCustomer }
func (*CustomerProfile) isProfile()        {}

type Account struct {
	ID               int64         `json:"id"`
	Email            string        `json:"email"`
	Name             string        `json:"name"`
	Phone            *string       `json:"phone,omitempty"`
	Image            *string       `json:"image,omitempty"`
	PreferredContact ContactMethod `json:"preferred_contact"`
	IsStaff          bool          `json:"is_staff"`
	IsSuperuser      bool          `json:"is_superuser"`
	IsActive         bool          `json:"is_active"`
	Blocked          bool          `json:"blocked"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`

	Profile Profile `json:"-"`
}

// StaffProfile returns the staff variant of the profile, or nil.
func (a *Account) StaffProfile() *StaffProfile {
	if a == nil {
		return nil
	}
	sp, _ := a.Profile.(*StaffProfile)
	return sp
}

// CustomerProfile returns the customer variant of the profile, or nil.
func (a *Account) CustomerProfile() *CustomerProfile {
	if a == nil {
		return nil
	}
	cp, _ := a.Profile.(*CustomerProfile)
	return cp
}

// StaffRole is nil for customers and for staff accounts without a loaded profile.
func (a *Account) StaffRole() *StaffRole {
	if sp := a.StaffProfile(); sp != nil {
		r := sp.Role
		return &r
	}
	return nil
}

func (a *Account) CustomerRole() *CustomerRole {
	if cp := a.CustomerProfile(); cp != nil {
		r := cp.Role
		return &r
	}
	return nil
}

// SuperuserFor derives the is_superuser flag from a staff role.
func SuperuserFor(role StaffRole) bool {
	return role == StaffAdministrator
}
