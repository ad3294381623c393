package catalog

import (
	"time"

	"repairhub/internal/domain"
)

type CategoryResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toCategoryResponse(c *domain.ServiceCategory) CategoryResponse {
	return CategoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		IsActive:    c.IsActive,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// ServiceResponse carries the price as a float; decimals stay inside the
// domain.
type ServiceResponse struct {
	ID            int64             `json:"id"`
	CategoryID    int64             `json:"category_id"`
	CategoryName  string            `json:"category_name,omitempty"`
	Name          string            `json:"name"`
	Description   string            `json:"description,omitempty"`
	Device        domain.DeviceType `json:"device"`
	Price         float64           `json:"price"`
	Notes         string            `json:"notes,omitempty"`
	EstimatedTime string            `json:"estimated_time,omitempty"`
	IsActive      bool              `json:"is_active"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func toServiceResponse(s *domain.Service) ServiceResponse {
	out := ServiceResponse{
		ID:            s.ID,
		CategoryID:    s.CategoryID,
		Name:          s.Name,
		Description:   s.Description,
		Device:        s.Device,
		Price:         s.Price.InexactFloat64(),
		Notes:         s.Notes,
		EstimatedTime: s.EstimatedTime,
		IsActive:      s.IsActive,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
	if s.Category != nil {
		out.CategoryName = s.Category.Name
	}
	return out
}

type CreateCategoryRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"max=1000"`
	IsActive    *bool  `json:"is_active"`
}

type UpdateCategoryRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	IsActive    *bool   `json:"is_active"`
}

type CreateServiceRequest struct {
	CategoryID    int64             `json:"category_id" validate:"required,gt=0"`
	Name          string            `json:"name" validate:"required,min=2,max=150"`
	Description   string            `json:"description" validate:"max=2000"`
	Device        domain.DeviceType `json:"device" validate:"required,oneof=LAPTOP DESKTOP PRINTER"`
	Price         float64           `json:"price" validate:"gte=0"`
	Notes         string            `json:"notes" validate:"max=2000"`
	EstimatedTime string            `json:"estimated_time" validate:"max=100"`
	IsActive      *bool             `json:"is_active"`
}

type UpdateServiceRequest struct {
	CategoryID    *int64             `json:"category_id" validate:"omitempty,gt=0"`
	Name          *string            `json:"name" validate:"omitempty,min=2,max=150"`
	Description   *string            `json:"description" validate:"omitempty,max=2000"`
	Device        *domain.DeviceType `json:"device" validate:"omitempty,oneof=LAPTOP DESKTOP PRINTER"`
	Price         *float64           `json:"price" validate:"omitempty,gte=0"`
	Notes         *string            `json:"notes" validate:"omitempty,max=2000"`
	EstimatedTime *string            `json:"estimated_time" validate:"omitempty,max=100"`
	IsActive      *bool              `json:"is_active"`
}

type CategoryFilter struct {
	Search   string
	IsActive *bool
}

type ServiceFilter struct {
	Search     string
	CategoryID *int64
	Device     *domain.DeviceType
	IsActive   *bool
}

type ServiceList struct {
	Services []ServiceResponse `json:"services"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}

type ServiceStats struct {
	TotalServices    int64                       `json:"total_services"`
	ActiveServices   int64                       `json:"active_services"`
	InactiveServices int64                       `json:"inactive_services"`
	TotalCategories  int64                       `json:"total_categories"`
	ActiveCategories int64                       `json:"active_categories"`
	ByDevice         map[domain.DeviceType]int64 `json:"by_device"`
}

// PublicServiceQuery drives the public listing. Category and Device take a
// value or "all".
type PublicServiceQuery struct {
	Search   string `form:"search"`
	Category string `form:"category"`
	Device   string `form:"device"`
	SortBy   string `form:"sort_by"`
	SortDesc bool   `form:"sort_desc"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}
