package repository

import (
	"context"

	settlementdomain "github.com/peakshop/tollgate/internal/settlement/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() settlementdomain.Repository {
	return &repo{}
}

// MarkProcessed is the idempotency gate. The insert and the conflict
// check are one statement; RowsAffected decides the race.
func (r *repo) MarkProcessed(ctx context.Context, db *gorm.DB, paymentID string, processedAt int64) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO processed_payments (payment_id, processed_at)
		 VALUES (?, ?)
		 ON CONFLICT (payment_id) DO NOTHING`,
		paymentID,
		processedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) InsertPurchase(ctx context.Context, db *gorm.DB, purchase *settlementdomain.Purchase) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO purchases (id, user_id, package_code, quantity, price_usd, purchased_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		purchase.ID,
		purchase.UserID,
		purchase.PackageCode,
		purchase.Quantity,
		purchase.PriceUSD,
		purchase.PurchasedAt,
	).Error
}

func (r *repo) ListPurchases(ctx context.Context, db *gorm.DB, limit, offset int) ([]settlementdomain.Purchase, int64, error) {
	var total int64
	if err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM purchases`,
	).Scan(&total).Error; err != nil {
		return nil, 0, err
	}

	rows := []settlementdomain.Purchase{}
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, package_code, quantity, price_usd, purchased_at
		 FROM purchases
		 ORDER BY purchased_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		limit,
		offset,
	).Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
