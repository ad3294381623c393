package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type magicLinkModel struct {
	ID        int64      `gorm:"column:id;primaryKey"`
	Email     string     `gorm:"column:email;size:255;not null;index"`
	TokenHash string     `gorm:"column:token_hash;size:64;not null;uniqueIndex"`
	ExpiresAt time.Time  `gorm:"column:expires_at;not null;index"`
	UsedAt    *time.Time `gorm:"column:used_at"`
	CreatedAt time.Time  `gorm:"column:created_at"`
}

func (magicLinkModel) TableName() string { return "magic_link_tokens" }

// MagicLinkRepository stores hashed sign-in tokens. The raw token never
// reaches the database.
type MagicLinkRepository struct {
	db *gorm.DB
}

func NewMagicLinkRepository(db *gorm.DB) *MagicLinkRepository {
	return &MagicLinkRepository{db: db}
}

func (r *MagicLinkRepository) Create(ctx context.Context, email, tokenHash string, expiresAt time.Time) error {
	m := magicLinkModel{
		Email:     normalizeEmail(email),
		TokenHash: tokenHash,
		ExpiresAt: expiresAt.UTC(),
	}
	return translate(r.db.WithContext(ctx).Create(&m).Error)
}

// Consume marks the token used and returns the email it was issued for.
// Unknown, expired and already used tokens all yield ErrNotFound.
func (r *MagicLinkRepository) Consume(ctx context.Context, tokenHash string, now time.Time) (string, error) {
	var email string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&magicLinkModel{}).
			Where("token_hash = ? AND used_at IS NULL AND expires_at > ?", tokenHash, now.UTC()).
			Update("used_at", now.UTC())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		var m magicLinkModel
		if err := tx.Where("token_hash = ?", tokenHash).First(&m).Error; err != nil {
			return err
		}
		email = m.Email
		return nil
	})
	if err != nil {
		return "", translate(err)
	}
	return email, nil
}

// DeleteStale removes tokens that expired before cutoff and every used token.
func (r *MagicLinkRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ? OR used_at IS NOT NULL", cutoff.UTC()).
		Delete(&magicLinkModel{})
	return res.RowsAffected, res.Error
}
