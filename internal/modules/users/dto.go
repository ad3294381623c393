package users

import (
	"time"

	"repairhub/internal/domain"
	"repairhub/internal/pkg/datatable"
	"repairhub/internal/rbac"
)

type UserFilter struct {
	Search       string
	IsStaff      *bool
	IsActive     *bool
	Blocked      *bool
	StaffRole    *domain.StaffRole
	CustomerRole *domain.CustomerRole
}

type StaffProfileInput struct {
	Role            domain.StaffRole            `json:"role" validate:"required,oneof=ADMINISTRATOR TECHNICIAN RECEPTIONIST"`
	Specializations []string                    `json:"specializations" validate:"omitempty,max=20,dive,min=1,max=100"`
	Availability    map[string]domain.TimeRange `json:"availability"`
}

type CustomerProfileInput struct {
	Role        domain.CustomerRole `json:"role" validate:"required,oneof=INDIVIDUAL COMPANY"`
	CompanyName *string             `json:"company_name" validate:"omitempty,max=255"`
	Address     *string             `json:"address" validate:"omitempty,max=500"`
	Notes       *string             `json:"notes" validate:"omitempty,max=2000"`
}

type CreateUserRequest struct {
	Email            string                `json:"email" validate:"required,email,max=255"`
	Name             string                `json:"name" validate:"required,min=2,max=255"`
	Phone            *string               `json:"phone" validate:"omitempty,max=32"`
	Image            *string               `json:"image" validate:"omitempty,url"`
	PreferredContact domain.ContactMethod  `json:"preferred_contact" validate:"omitempty,oneof=EMAIL PHONE"`
	IsStaff          bool                  `json:"is_staff"`
	StaffProfile     *StaffProfileInput    `json:"staff_profile"`
	CustomerProfile  *CustomerProfileInput `json:"customer_profile"`
}

// UpdateUserRequest is a partial update: nil fields are left unchanged.
// Switching IsStaff requires the role of the new kind.
type UpdateUserRequest struct {
	Email            *string               `json:"email" validate:"omitempty,email,max=255"`
	Name             *string               `json:"name" validate:"omitempty,min=2,max=255"`
	Phone            *string               `json:"phone" validate:"omitempty,max=32"`
	Image            *string               `json:"image" validate:"omitempty,url"`
	PreferredContact *domain.ContactMethod `json:"preferred_contact" validate:"omitempty,oneof=EMAIL PHONE"`
	IsStaff          *bool                 `json:"is_staff"`

	StaffRole       *domain.StaffRole           `json:"staff_role" validate:"omitempty,oneof=ADMINISTRATOR TECHNICIAN RECEPTIONIST"`
	Specializations *[]string                   `json:"specializations" validate:"omitempty,max=20,dive,min=1,max=100"`
	Availability    map[string]domain.TimeRange `json:"availability"`

	CustomerRole *domain.CustomerRole `json:"customer_role" validate:"omitempty,oneof=INDIVIDUAL COMPANY"`
	CompanyName  *string              `json:"company_name" validate:"omitempty,max=255"`
	Address      *string              `json:"address" validate:"omitempty,max=500"`
	Notes        *string              `json:"notes" validate:"omitempty,max=2000"`
}

// UpdateMyProfileRequest holds the fields an account may change on itself.
// Flags and roles are not among them.
type UpdateMyProfileRequest struct {
	Name             *string               `json:"name" validate:"omitempty,min=2,max=255"`
	Phone            *string               `json:"phone" validate:"omitempty,max=32"`
	Image            *string               `json:"image" validate:"omitempty,url"`
	PreferredContact *domain.ContactMethod `json:"preferred_contact" validate:"omitempty,oneof=EMAIL PHONE"`

	Specializations *[]string                   `json:"specializations" validate:"omitempty,max=20,dive,min=1,max=100"`
	Availability    map[string]domain.TimeRange `json:"availability"`

	CompanyName *string `json:"company_name" validate:"omitempty,max=255"`
	Address     *string `json:"address" validate:"omitempty,max=500"`
	Notes       *string `json:"notes" validate:"omitempty,max=2000"`
}

type UserResponse struct {
	ID               int64                   `json:"id"`
	Email            string                  `json:"email"`
	Name             string                  `json:"name"`
	Phone            *string                 `json:"phone,omitempty"`
	Image            *string                 `json:"image,omitempty"`
	PreferredContact domain.ContactMethod    `json:"preferred_contact"`
	IsStaff          bool                    `json:"is_staff"`
	IsSuperuser      bool                    `json:"is_superuser"`
	IsActive         bool                    `json:"is_active"`
	Blocked          bool                    `json:"blocked"`
	Level            string                  `json:"level"`
	StaffProfile     *domain.StaffProfile    `json:"staff_profile,omitempty"`
	CustomerProfile  *domain.CustomerProfile `json:"customer_profile,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
}

func toUserResponse(a *domain.Account) *UserResponse {
	return &UserResponse{
		ID:               a.ID,
		Email:            a.Email,
		Name:             a.Name,
		Phone:            a.Phone,
		Image:            a.Image,
		PreferredContact: a.PreferredContact,
		IsStaff:          a.IsStaff,
		IsSuperuser:      a.IsSuperuser,
		IsActive:         a.IsActive,
		Blocked:          a.Blocked,
		Level:            rbac.Resolve(a).String(),
		StaffProfile:     a.StaffProfile(),
		CustomerProfile:  a.CustomerProfile(),
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

type UserList struct {
	Users []datatable.Row[*UserResponse] `json:"users"`
	Total int64                          `json:"total"`
	Page  int                            `json:"page"`
	Limit int                            `json:"limit"`
}

type UserStats struct {
	TotalUsers    int64 `json:"total_users"`
	ActiveUsers   int64 `json:"active_users"`
	BlockedUsers  int64 `json:"blocked_users"`
	StaffUsers    int64 `json:"staff_users"`
	CustomerUsers int64 `json:"customer_users"`
}
