package catalog

import (
	"context"

	"repairhub/internal/domain"
	"repairhub/internal/guard"
	"repairhub/internal/repository"

	"gorm.io/gorm"
)

type CatalogRepository interface {
	ListCategories(ctx context.Context, f repository.CategoryFilter) ([]domain.ServiceCategory, error)
	GetCategory(ctx context.Context, id int64) (*domain.ServiceCategory, error)
	CreateCategory(ctx context.Context, c *domain.ServiceCategory) error
	UpdateCategory(ctx context.Context, c *domain.ServiceCategory, deactivate bool) (int64, error)
	DeactivateCategory(ctx context.Context, id int64) (int64, error)
	CountCategories(ctx context.Context, isActive *bool) (int64, error)

	ListServices(ctx context.Context, f repository.ServiceFilter) ([]domain.Service, int64, error)
	GetService(ctx context.Context, id int64) (*domain.Service, error)
	CreateService(ctx context.Context, s *domain.Service) error
	UpdateService(ctx context.Context, s *domain.Service) error
	SetServiceActive(ctx context.Context, id int64, active bool) error
	CountServices(ctx context.Context, f repository.ServiceFilter) (int64, error)
	CountServicesByDevice(ctx context.Context) (map[domain.DeviceType]int64, error)

	DB() *gorm.DB
}

type Authorizer interface {
	Authorize(ctx context.Context, requesterID int64, op guard.Operation, target *guard.Target) (*domain.Account, error)
}
