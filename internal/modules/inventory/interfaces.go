package inventory

import (
	"context"

	"repairhub/internal/domain"
	"repairhub/internal/guard"
	"repairhub/internal/repository"

	"gorm.io/gorm"
)

type InventoryRepository interface {
	ListDevices(ctx context.Context, f repository.DeviceFilter) ([]domain.Device, int64, error)
	GetDevice(ctx context.Context, id int64) (*domain.Device, error)
	CreateDevice(ctx context.Context, d *domain.Device) error
	UpdateDevice(ctx context.Context, d *domain.Device) error
	CreatePart(ctx context.Context, p *domain.DevicePart) error
	GetPart(ctx context.Context, id int64) (*domain.DevicePart, error)
	RecordMovement(ctx context.Context, mv *domain.PartMovement) (*domain.DevicePart, error)
	ListMovements(ctx context.Context, partID int64) ([]domain.PartMovement, error)
	CreateRepair(ctx context.Context, h *domain.RepairHistory) error
	CountDevices(ctx context.Context) (int64, error)
	CountParts(ctx context.Context) (int64, error)
	CountLowStock(ctx context.Context, threshold int) (int64, error)
	SumStock(ctx context.Context) (int64, error)
	CountRepairs(ctx context.Context) (int64, error)
	DB() *gorm.DB
}

type AccountLoader interface {
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
}

type ServiceLoader interface {
	GetService(ctx context.Context, id int64) (*domain.Service, error)
}

type Authorizer interface {
	Authorize(ctx context.Context, requesterID int64, op guard.Operation, target *guard.Target) (*domain.Account, error)
}
