package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// MarkProcessed claims the payment id. It returns true when this
	// call was the first writer, false when another delivery already
	// holds the id.
	MarkProcessed(ctx context.Context, db *gorm.DB, paymentID string, processedAt int64) (bool, error)
	InsertPurchase(ctx context.Context, db *gorm.DB, purchase *Purchase) error
	ListPurchases(ctx context.Context, db *gorm.DB, limit, offset int) ([]Purchase, int64, error)
}
