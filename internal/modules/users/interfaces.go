package users

import (
	"context"

	"repairhub/internal/domain"
	"repairhub/internal/guard"
	"repairhub/internal/repository"

	"gorm.io/gorm"
)

type AccountRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
	Create(ctx context.Context, a *domain.Account) error
	Update(ctx context.Context, a *domain.Account) error
	SetStatus(ctx context.Context, id int64, isActive, blocked bool) error
	List(ctx context.Context, f repository.AccountFilter) ([]domain.Account, int64, error)
	Count(ctx context.Context, f repository.AccountFilter) (int64, error)
	HardDelete(ctx context.Context, id int64) error
	DB() *gorm.DB
}

type Authorizer interface {
	Authorize(ctx context.Context, requesterID int64, op guard.Operation, target *guard.Target) (*domain.Account, error)
	Allow(requester *domain.Account, op guard.Operation, target *guard.Target) error
}

// SessionNotifier is told about every account whose session view may have
// changed. It is optional.
type SessionNotifier interface {
	AccountChanged(ctx context.Context, accountID int64) error
}
