package auth

import (
	"context"
	"time"

	"repairhub/internal/domain"
	"repairhub/internal/pkg/jwt"
	"repairhub/internal/session"

	"github.com/gorilla/websocket"
)

type AccountRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	Create(ctx context.Context, a *domain.Account) error
}

type MagicLinkStore interface {
	Create(ctx context.Context, email, tokenHash string, expiresAt time.Time) error
	Consume(ctx context.Context, tokenHash string, now time.Time) (string, error)
}

type TokenIssuer interface {
	GenerateToken(accountID int64) (string, time.Time, error)
	ValidateToken(tokenStr string) (*jwt.Claims, error)
}

// IdentityProvider is the external sign-in flow. *GoogleProvider implements it.
type IdentityProvider interface {
	AuthCodeURL(state, nonce string) string
	Exchange(ctx context.Context, code, nonce string) (*Identity, error)
}

// Mailer delivers sign-in links.
type Mailer interface {
	SendMagicLink(ctx context.Context, email, link string, expiresAt time.Time) error
}

type SessionHub interface {
	Register(accountID int64, conn *websocket.Conn, sess *session.Session) *session.State
	Release(accountID int64, st *session.State)
	Unregister(accountID int64)
}
