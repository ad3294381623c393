package repository

import (
	"context"
	"strings"
	"time"

	"repairhub/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) DB() *gorm.DB {
	return r.db
}

type accountModel struct {
	ID               int64     `gorm:"column:id;primaryKey"`
	Email            string    `gorm:"column:email;size:255;not null;uniqueIndex"`
	Name             string    `gorm:"column:name;size:255;not null"`
	Phone            *string   `gorm:"column:phone;size:32"`
	Image            *string   `gorm:"column:image"`
	PreferredContact string    `gorm:"column:preferred_contact;size:16;not null"`
	IsStaff          bool      `gorm:"column:is_staff;not null;index"`
	IsSuperuser      bool      `gorm:"column:is_superuser;not null"`
	IsActive         bool      `gorm:"column:is_active;not null;index"`
	Blocked          bool      `gorm:"column:blocked;not null"`
	CreatedAt        time.Time `gorm:"column:created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`

	Staff    *staffProfileModel    `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE"`
	Customer *customerProfileModel `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE"`
}

func (accountModel) TableName() string { return "accounts" }

type staffProfileModel struct {
	ID              int64                       `gorm:"column:id;primaryKey"`
	AccountID       int64                       `gorm:"column:account_id;not null;uniqueIndex"`
	Role            string                      `gorm:"column:role;size:32;not null"`
	Specializations []string                    `gorm:"column:specializations;serializer:json"`
	Availability    map[string]domain.TimeRange `gorm:"column:availability;serializer:json"`
	CreatedAt       time.Time                   `gorm:"column:created_at"`
	UpdatedAt       time.Time                   `gorm:"column:updated_at"`
}

func (staffProfileModel) TableName() string { return "staff_profiles" }

type customerProfileModel struct {
	ID          int64     `gorm:"column:id;primaryKey"`
	AccountID   int64     `gorm:"column:account_id;not null;uniqueIndex"`
	Role        string    `gorm:"column:role;size:32;not null"`
	CompanyName *string   `gorm:"column:company_name;size:255"`
	Address     *string   `gorm:"column:address"`
	Notes       *string   `gorm:"column:notes;type:text"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (customerProfileModel) TableName() string { return "customer_profiles" }

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toDomainAccount(m accountModel) *domain.Account {
	a := &domain.Account{
		ID:               m.ID,
		Email:            m.Email,
		Name:             m.Name,
		Phone:            m.Phone,
		Image:            m.Image,
		PreferredContact: domain.ContactMethod(m.PreferredContact),
		IsStaff:          m.IsStaff,
		IsSuperuser:      m.IsSuperuser,
		IsActive:         m.IsActive,
		Blocked:          m.Blocked,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
	switch {
	case m.Staff != nil:
		a.Profile = &domain.StaffProfile{
			ID:              m.Staff.ID,
			Role:            domain.StaffRole(m.Staff.Role),
			Specializations: m.Staff.Specializations,
			Availability:    m.Staff.Availability,
		}
	case m.Customer != nil:
		a.Profile = &domain.CustomerProfile{
			ID:          m.Customer.ID,
			Role:        domain.CustomerRole(m.Customer.Role),
			CompanyName: m.Customer.CompanyName,
			Address:     m.Customer.Address,
			Notes:       m.Customer.Notes,
		}
	}
	return a
}

func toAccountModel(a *domain.Account) accountModel {
	contact := a.PreferredContact
	if contact == "" {
		contact = domain.ContactEmail
	}
	return accountModel{
		ID:               a.ID,
		Email:            normalizeEmail(a.Email),
		Name:             strings.TrimSpace(a.Name),
		Phone:            a.Phone,
		Image:            a.Image,
		PreferredContact: string(contact),
		IsStaff:          a.IsStaff,
		IsSuperuser:      a.IsSuperuser,
		IsActive:         a.IsActive,
		Blocked:          a.Blocked,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

func (r *AccountRepository) withProfiles(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Staff").Preload("Customer")
}

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	var m accountModel
	if err := r.withProfiles(ctx).First(&m, id).Error; err != nil {
		return nil, translate(err)
	}
	return toDomainAccount(m), nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var m accountModel
	err := r.withProfiles(ctx).
		Where("email = ?", normalizeEmail(email)).
		First(&m).Error
	if err != nil {
		return nil, translate(err)
	}
	return toDomainAccount(m), nil
}

// Create inserts the account and its profile in one transaction. On success
// a carries the generated ids and timestamps.
func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	m := toAccountModel(a)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&m).Error; err != nil {
			return err
		}
		return writeProfile(tx, m.ID, a.Profile)
	})
	if err != nil {
		return translate(err)
	}
	a.ID = m.ID
	a.Email = m.Email
	a.Name = m.Name
	a.PreferredContact = domain.ContactMethod(m.PreferredContact)
	a.CreatedAt = m.CreatedAt
	a.UpdatedAt = m.UpdatedAt
	return nil
}

// Update writes every account column and replaces the profile with a.Profile,
// removing the other variant when the kind changed.
func (r *AccountRepository) Update(ctx context.Context, a *domain.Account) error {
	m := toAccountModel(a)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&accountModel{}).Where("id = ?", a.ID).Updates(map[string]any{
			"email":             m.Email,
			"name":              m.Name,
			"phone":             m.Phone,
			"image":             m.Image,
			"preferred_contact": m.PreferredContact,
			"is_staff":          m.IsStaff,
			"is_superuser":      m.IsSuperuser,
			"is_active":         m.IsActive,
			"blocked":           m.Blocked,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return writeProfile(tx, a.ID, a.Profile)
	})
	return translate(err)
}

// writeProfile stores p as the only profile of the account.
func writeProfile(tx *gorm.DB, accountID int64, p domain.Profile) error {
	switch v := p.(type) {
	case *domain.StaffProfile:
		if err := tx.Where("account_id = ?", accountID).Delete(&customerProfileModel{}).Error; err != nil {
			return err
		}
		var sm staffProfileModel
		if err := tx.Where("account_id = ?", accountID).Limit(1).Find(&sm).Error; err != nil {
			return err
		}
		sm.AccountID = accountID
		sm.Role = string(v.Role)
		sm.Specializations = v.Specializations
		sm.Availability = v.Availability
		if err := tx.Save(&sm).Error; err != nil {
			return err
		}
		v.ID = sm.ID
	case *domain.CustomerProfile:
		if err := tx.Where("account_id = ?", accountID).Delete(&staffProfileModel{}).Error; err != nil {
			return err
		}
		var cm customerProfileModel
		if err := tx.Where("account_id = ?", accountID).Limit(1).Find(&cm).Error; err != nil {
			return err
		}
		cm.AccountID = accountID
		cm.Role = string(v.Role)
		cm.CompanyName = v.CompanyName
		cm.Address = v.Address
		cm.Notes = v.Notes
		if err := tx.Save(&cm).Error; err != nil {
			return err
		}
		v.ID = cm.ID
	}
	return nil
}

func (r *AccountRepository) SetStatus(ctx context.Context, id int64, isActive, blocked bool) error {
	res := r.db.WithContext(ctx).Model(&accountModel{}).Where("id = ?", id).Updates(map[string]any{
		"is_active": isActive,
		"blocked":   blocked,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type AccountFilter struct {
	Search       string
	IsStaff      *bool
	IsActive     *bool
	Blocked      *bool
	StaffRole    *domain.StaffRole
	CustomerRole *domain.CustomerRole
	Limit        int
	Offset       int
}

func (r *AccountRepository) filtered(ctx context.Context, f AccountFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&accountModel{})
	if s := strings.ToLower(strings.TrimSpace(f.Search)); s != "" {
		like := "%" + s + "%"
		q = q.Where("(LOWER(accounts.email) LIKE ? OR LOWER(accounts.name) LIKE ? OR LOWER(accounts.phone) LIKE ?)", like, like, like)
	}
	if f.IsStaff != nil {
		q = q.Where("accounts.is_staff = ?", *f.IsStaff)
	}
	if f.IsActive != nil {
		q = q.Where("accounts.is_active = ?", *f.IsActive)
	}
	if f.Blocked != nil {
		q = q.Where("accounts.blocked = ?", *f.Blocked)
	}
	if f.StaffRole != nil {
		q = q.Where("EXISTS (SELECT 1 FROM staff_profiles sp WHERE sp.account_id = accounts.id AND sp.role = ?)", string(*f.StaffRole))
	}
	if f.CustomerRole != nil {
		q = q.Where("EXISTS (SELECT 1 FROM customer_profiles cp WHERE cp.account_id = accounts.id AND cp.role = ?)", string(*f.CustomerRole))
	}
	return q
}

// List returns one page of accounts, newest first, and the total matching f.
func (r *AccountRepository) List(ctx context.Context, f AccountFilter) ([]domain.Account, int64, error) {
	var total int64
	if err := r.filtered(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []accountModel
	err := r.filtered(ctx, f).
		Preload("Staff").
		Preload("Customer").
		Order("accounts.created_at DESC").
		Order("accounts.id DESC").
		Limit(f.Limit).
		Offset(f.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	out := make([]domain.Account, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainAccount(m))
	}
	return out, total, nil
}

func (r *AccountRepository) Count(ctx context.Context, f AccountFilter) (int64, error) {
	var n int64
	err := r.filtered(ctx, f).Count(&n).Error
	return n, err
}

// HardDelete removes the account and everything it owns in one transaction:
// its profile and its devices with their parts, movements and repair history.
// Rows that merely reference the account (repairs it performed, movements it
// recorded) are kept with the reference cleared.
func (r *AccountRepository) HardDelete(ctx context.Context, id int64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var deviceIDs, partIDs []int64
		if err := tx.Model(&deviceModel{}).Where("customer_id = ?", id).Pluck("id", &deviceIDs).Error; err != nil {
			return err
		}
		if len(deviceIDs) > 0 {
			if err := tx.Model(&partModel{}).Where("device_id IN ?", deviceIDs).Pluck("id", &partIDs).Error; err != nil {
				return err
			}
		}
		if len(partIDs) > 0 {
			if err := tx.Where("part_id IN ?", partIDs).Delete(&movementModel{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", partIDs).Delete(&partModel{}).Error; err != nil {
				return err
			}
		}
		if len(deviceIDs) > 0 {
			if err := tx.Where("device_id IN ?", deviceIDs).Delete(&repairModel{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", deviceIDs).Delete(&deviceModel{}).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&repairModel{}).Where("technician_id = ?", id).
			Update("technician_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&movementModel{}).Where("performed_by_id = ?", id).
			Update("performed_by_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("account_id = ?", id).Delete(&staffProfileModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("account_id = ?", id).Delete(&customerProfileModel{}).Error; err != nil {
			return err
		}

		res := tx.Delete(&accountModel{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return translate(err)
}
