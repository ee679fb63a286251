package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, token *AccessToken) error
	Find(ctx context.Context, db *gorm.DB, token string) (*AccessToken, error)
	Delete(ctx context.Context, db *gorm.DB, token string) error
	DeleteExpired(ctx context.Context, db *gorm.DB, now int64) (int64, error)
}
