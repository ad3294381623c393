package repository

import (
	"context"
	"strings"
	"time"

	"repairhub/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) DB() *gorm.DB {
	return r.db
}

type categoryModel struct {
	ID          int64     `gorm:"column:id;primaryKey"`
	Name        string    `gorm:"column:name;size:100;not null;uniqueIndex"`
	Description string    `gorm:"column:description;type:text"`
	IsActive    bool      `gorm:"column:is_active;not null"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (categoryModel) TableName() string { return "service_categories" }

// serviceModel carries the composite unique index that keeps
// (name, category, device) unique among active and inactive rows alike.
type serviceModel struct {
	ID            int64           `gorm:"column:id;primaryKey"`
	CategoryID    int64           `gorm:"column:category_id;not null;uniqueIndex:idx_services_name_category_device,priority:2"`
	Name          string          `gorm:"column:name;size:200;not null;uniqueIndex:idx_services_name_category_device,priority:1"`
	Device        string          `gorm:"column:device;size:16;not null;uniqueIndex:idx_services_name_category_device,priority:3"`
	Description   string          `gorm:"column:description;type:text"`
	Price         decimal.Decimal `gorm:"column:price;type:decimal(10,2);not null"`
	Notes         string          `gorm:"column:notes;type:text"`
	EstimatedTime string          `gorm:"column:estimated_time;size:64"`
	IsActive      bool            `gorm:"column:is_active;not null;index"`
	CreatedAt     time.Time       `gorm:"column:created_at"`
	UpdatedAt     time.Time       `gorm:"column:updated_at"`

	Category *categoryModel `gorm:"foreignKey:CategoryID"`
}

func (serviceModel) TableName() string { return "services" }

func toDomainCategory(m categoryModel) *domain.ServiceCategory {
	return &domain.ServiceCategory{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toDomainService(m serviceModel) *domain.Service {
	s := &domain.Service{
		ID:            m.ID,
		CategoryID:    m.CategoryID,
		Name:          m.Name,
		Description:   m.Description,
		Device:        domain.DeviceType(m.Device),
		Price:         m.Price,
		Notes:         m.Notes,
		EstimatedTime: m.EstimatedTime,
		IsActive:      m.IsActive,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	if m.Category != nil {
		s.Category = toDomainCategory(*m.Category)
	}
	return s
}

type CategoryFilter struct {
	Search   string
	IsActive *bool
}

func (r *CatalogRepository) ListCategories(ctx context.Context, f CategoryFilter) ([]domain.ServiceCategory, error) {
	q := r.db.WithContext(ctx).Model(&categoryModel{})
	if s := strings.ToLower(strings.TrimSpace(f.Search)); s != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+s+"%")
	}
	if f.IsActive != nil {
		q = q.Where("is_active = ?", *f.IsActive)
	}

	var rows []categoryModel
	if err := q.Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.ServiceCategory, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainCategory(m))
	}
	return out, nil
}

func (r *CatalogRepository) GetCategory(ctx context.Context, id int64) (*domain.ServiceCategory, error) {
	var m categoryModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, translate(err)
	}
	return toDomainCategory(m), nil
}

func (r *CatalogRepository) CreateCategory(ctx context.Context, c *domain.ServiceCategory) error {
	m := categoryModel{
		Name:        strings.TrimSpace(c.Name),
		Description: c.Description,
		IsActive:    c.IsActive,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return translate(err)
	}
	*c = *toDomainCategory(m)
	return nil
}

// UpdateCategory writes name, description and is_active in one transaction.
// With deactivate set it first counts the category's active services and,
// when there are any, writes nothing and returns that count.
func (r *CatalogRepository) UpdateCategory(ctx context.Context, c *domain.ServiceCategory, deactivate bool) (int64, error) {
	var active int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m categoryModel
		if err := tx.First(&m, c.ID).Error; err != nil {
			return err
		}
		if deactivate {
			if err := tx.Model(&serviceModel{}).
				Where("category_id = ? AND is_active = ?", c.ID, true).
				Count(&active).Error; err != nil {
				return err
			}
			if active > 0 {
				return nil
			}
		}
		return tx.Model(&categoryModel{}).Where("id = ?", c.ID).Updates(map[string]any{
			"name":        strings.TrimSpace(c.Name),
			"description": c.Description,
			"is_active":   c.IsActive && !deactivate,
		}).Error
	})
	if err != nil {
		return 0, translate(err)
	}
	return active, nil
}

// DeactivateCategory flips is_active off unless the category still owns
// active services, in which case nothing is written and their count is
// returned.
func (r *CatalogRepository) DeactivateCategory(ctx context.Context, id int64) (int64, error) {
	var active int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m categoryModel
		if err := tx.First(&m, id).Error; err != nil {
			return err
		}
		if err := tx.Model(&serviceModel{}).
			Where("category_id = ? AND is_active = ?", id, true).
			Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return nil
		}
		return tx.Model(&categoryModel{}).Where("id = ?", id).Update("is_active", false).Error
	})
	if err != nil {
		return 0, translate(err)
	}
	return active, nil
}

func (r *CatalogRepository) CountCategories(ctx context.Context, isActive *bool) (int64, error) {
	q := r.db.WithContext(ctx).Model(&categoryModel{})
	if isActive != nil {
		q = q.Where("is_active = ?", *isActive)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

type ServiceFilter struct {
	Search     string
	CategoryID *int64
	Device     *domain.DeviceType
	IsActive   *bool
	Limit      int
	Offset     int
}

func (r *CatalogRepository) filteredServices(ctx context.Context, f ServiceFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&serviceModel{})
	if s := strings.ToLower(strings.TrimSpace(f.Search)); s != "" {
		like := "%" + s + "%"
		q = q.Where("(LOWER(services.name) LIKE ? OR LOWER(services.description) LIKE ?)", like, like)
	}
	if f.CategoryID != nil {
		q = q.Where("services.category_id = ?", *f.CategoryID)
	}
	if f.Device != nil {
		q = q.Where("services.device = ?", string(*f.Device))
	}
	if f.IsActive != nil {
		q = q.Where("services.is_active = ?", *f.IsActive)
	}
	return q
}

// ListServices returns one page of services with their category and the
// total matching f. A zero Limit returns every row.
func (r *CatalogRepository) ListServices(ctx context.Context, f ServiceFilter) ([]domain.Service, int64, error) {
	var total int64
	if err := r.filteredServices(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := r.filteredServices(ctx, f).
		Preload("Category").
		Order("services.name ASC").
		Order("services.id ASC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}

	var rows []serviceModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]domain.Service, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainService(m))
	}
	return out, total, nil
}

func (r *CatalogRepository) GetService(ctx context.Context, id int64) (*domain.Service, error) {
	var m serviceModel
	if err := r.db.WithContext(ctx).Preload("Category").First(&m, id).Error; err != nil {
		return nil, translate(err)
	}
	return toDomainService(m), nil
}

func (r *CatalogRepository) CreateService(ctx context.Context, s *domain.Service) error {
	m := serviceModel{
		CategoryID:    s.CategoryID,
		Name:          strings.TrimSpace(s.Name),
		Device:        string(s.Device),
		Description:   s.Description,
		Price:         s.Price,
		Notes:         s.Notes,
		EstimatedTime: s.EstimatedTime,
		IsActive:      s.IsActive,
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&m).Error; err != nil {
		return translate(err)
	}
	s.ID = m.ID
	s.Name = m.Name
	s.CreatedAt = m.CreatedAt
	s.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *CatalogRepository) UpdateService(ctx context.Context, s *domain.Service) error {
	res := r.db.WithContext(ctx).Model(&serviceModel{}).Where("id = ?", s.ID).Updates(map[string]any{
		"category_id":    s.CategoryID,
		"name":           strings.TrimSpace(s.Name),
		"device":         string(s.Device),
		"description":    s.Description,
		"price":          s.Price,
		"notes":          s.Notes,
		"estimated_time": s.EstimatedTime,
		"is_active":      s.IsActive,
	})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CatalogRepository) SetServiceActive(ctx context.Context, id int64, active bool) error {
	res := r.db.WithContext(ctx).Model(&serviceModel{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CatalogRepository) CountServices(ctx context.Context, f ServiceFilter) (int64, error) {
	var n int64
	err := r.filteredServices(ctx, f).Count(&n).Error
	return n, err
}

// CountServicesByDevice counts active services per device type. Device types
// without services are absent from the map.
func (r *CatalogRepository) CountServicesByDevice(ctx context.Context) (map[domain.DeviceType]int64, error) {
	var rows []struct {
		Device string
		N      int64
	}
	err := r.db.WithContext(ctx).Model(&serviceModel{}).
		Select("device, COUNT(*) AS n").
		Where("is_active = ?", true).
		Group("device").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[domain.DeviceType]int64, len(rows))
	for _, row := range rows {
		out[domain.DeviceType(row.Device)] = row.N
	}
	return out, nil
}
