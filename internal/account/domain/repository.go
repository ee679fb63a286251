package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, user *User) error
	Find(ctx context.Context, db *gorm.DB, userID int64) (*User, error)
	List(ctx context.Context, db *gorm.DB, limit, offset int) ([]User, int64, error)
}
