package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"
	"time"

	"repairhub/internal/domain"
	"repairhub/internal/pkg/apperr"
	"repairhub/internal/pkg/validator"
	"repairhub/internal/repository"
	"repairhub/internal/session"

	"go.uber.org/zap"
)

const verifyPath = "/api/v1/auth/email/verify"

type Config struct {
	MagicLinkTTL    time.Duration
	MagicLinkPepper string
	PublicBaseURL   string
}

type Service struct {
	accounts AccountRepository
	links    MagicLinkStore
	tokens   TokenIssuer
	mailer   Mailer
	google   IdentityProvider
	cfg      Config
	now      func() time.Time
	log      *zap.Logger
}

// NewService wires the sign-in flows. google may be nil when Google sign-in
// is not configured.
func NewService(accounts AccountRepository, links MagicLinkStore, tokens TokenIssuer, mailer Mailer, google IdentityProvider, cfg Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		accounts: accounts,
		links:    links,
		tokens:   tokens,
		mailer:   mailer,
		google:   google,
		cfg:      cfg,
		now:      time.Now,
		log:      log,
	}
}

// SignIn is the outcome of a completed sign-in.
type SignIn struct {
	Token   string
	Session *session.Session
	Created bool
}

func hashToken(raw, pepper string) string {
	sum := sha256.Sum256([]byte(raw + pepper))
	return hex.EncodeToString(sum[:])
}

func newRawToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// RequestMagicLink mails a single-use sign-in link. Addresses of blocked or
// deactivated accounts get no link, but the caller cannot tell.
func (s *Service) RequestMagicLink(ctx context.Context, req MagicLinkRequest) error {
	if err := validator.Validate(req); err != nil {
		return err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	a, err := s.accounts.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if !a.IsActive || a.Blocked {
			s.log.Info("magic link refused for disabled account", zap.Int64("account_id", a.ID))
			return nil
		}
	case errors.Is(err, repository.ErrNotFound):
	default:
		return apperr.Internal("load account", err)
	}

	raw, err := newRawToken()
	if err != nil {
		return apperr.Internal("generate token", err)
	}
	expiresAt := s.now().Add(s.cfg.MagicLinkTTL)
	if err := s.links.Create(ctx, email, hashToken(raw, s.cfg.MagicLinkPepper), expiresAt); err != nil {
		return apperr.Internal("store magic link", err)
	}

	link := s.cfg.PublicBaseURL + verifyPath + "?token=" + url.QueryEscape(raw)
	if err := s.mailer.SendMagicLink(ctx, email, link, expiresAt); err != nil {
		return apperr.Internal("send magic link", err)
	}
	return nil
}

// VerifyMagicLink consumes the token and signs its owner in.
func (s *Service) VerifyMagicLink(ctx context.Context, raw string) (*SignIn, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, apperr.Authorization("this sign-in link is invalid or has expired")
	}

	email, err := s.links.Consume(ctx, hashToken(raw, s.cfg.MagicLinkPepper), s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Authorization("this sign-in link is invalid or has expired")
	}
	if err != nil {
		return nil, apperr.Internal("consume magic link", err)
	}
	return s.signIn(ctx, email, "", "")
}

func (s *Service) GoogleEnabled() bool {
	return s.google != nil
}

func (s *Service) GoogleLoginURL(state, nonce string) (string, error) {
	if s.google == nil {
		return "", apperr.NotFound("google sign-in")
	}
	return s.google.AuthCodeURL(state, nonce), nil
}

// CompleteGoogleLogin exchanges the callback code and signs the verified
// Google account in.
func (s *Service) CompleteGoogleLogin(ctx context.Context, code, nonce string) (*SignIn, error) {
	if s.google == nil {
		return nil, apperr.NotFound("google sign-in")
	}
	if code == "" {
		return nil, apperr.Validation("missing authorization code", nil)
	}

	id, err := s.google.Exchange(ctx, code, nonce)
	if err != nil {
		s.log.Warn("google exchange failed", zap.Error(err))
		return nil, apperr.Authorization("google sign-in failed")
	}
	if id.Email == "" || !id.EmailVerified {
		return nil, apperr.Authorization("google account has no verified email")
	}
	return s.signIn(ctx, id.Email, id.Name, id.Picture)
}

// signIn loads or creates the account behind email and issues a session
// token. First sign-ins become individual customers.
func (s *Service) signIn(ctx context.Context, email, name, picture string) (*SignIn, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	created := false
	a, err := s.accounts.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		a, err = s.createCustomer(ctx, email, name, picture)
		created = err == nil
	}
	if err != nil {
		return nil, apperr.Internal("load account", err)
	}

	if !a.IsActive || a.Blocked {
		return nil, apperr.Authorization("this account has been deactivated")
	}

	token, expires, err := s.tokens.GenerateToken(a.ID)
	if err != nil {
		return nil, apperr.Internal("issue session", err)
	}

	s.log.Info("signed in", zap.Int64("account_id", a.ID), zap.Bool("created", created))
	return &SignIn{Token: token, Session: session.FromAccount(a, expires), Created: created}, nil
}

func (s *Service) createCustomer(ctx context.Context, email, name, picture string) (*domain.Account, error) {
	if name == "" {
		name = email
		if at := strings.IndexByte(email, '@'); at > 0 {
			name = email[:at]
		}
	}
	a := &domain.Account{
		Email:            email,
		Name:             name,
		PreferredContact: domain.ContactEmail,
		IsActive:         true,
		Profile:          &domain.CustomerProfile{Role: domain.CustomerIndividual},
	}
	if picture != "" {
		a.Image = &picture
	}

	err := s.accounts.Create(ctx, a)
	if errors.Is(err, repository.ErrDuplicate) {
		// a concurrent first sign-in won the insert
		return s.accounts.GetByEmail(ctx, email)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// CurrentSession resolves a session token into a freshly loaded session.
// It returns nil, without error, for bad tokens and for accounts that can no
// longer sign in.
func (s *Service) CurrentSession(ctx context.Context, token string) (*session.Session, error) {
	if token == "" {
		return nil, nil
	}
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, nil
	}

	a, err := s.accounts.GetByID(ctx, claims.AccountID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal("load account", err)
	}
	if !a.IsActive || a.Blocked {
		return nil, nil
	}

	expires := s.now()
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	return session.FromAccount(a, expires), nil
}
