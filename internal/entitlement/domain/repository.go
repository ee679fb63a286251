package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, entitlement *Entitlement) error
	Find(ctx context.Context, db *gorm.DB, userID int64, category string) (*Entitlement, error)
	MaxExpiry(ctx context.Context, db *gorm.DB, userID int64) (int64, error)
	Revoke(ctx context.Context, db *gorm.DB, userID int64, category string, revokedAt int64) (int64, error)
	RevokeAll(ctx context.Context, db *gorm.DB, userID int64, revokedAt int64) (int64, error)
	ListActive(ctx context.Context, db *gorm.DB, now int64, limit, offset int) ([]Entitlement, int64, error)
	ListExpired(ctx context.Context, db *gorm.DB, now int64, limit, offset int) ([]Entitlement, int64, error)
}
