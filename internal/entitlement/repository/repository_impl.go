package repository

import (
	"context"

	entitlementdomain "github.com/peakshop/tollgate/internal/entitlement/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() entitlementdomain.Repository {
	return &repo{}
}

// Upsert replaces the mutable fields in one atomic statement so a grant
// and a concurrent settlement cannot interleave into a torn row.
func (r *repo) Upsert(ctx context.Context, db *gorm.DB, entitlement *entitlementdomain.Entitlement) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO entitlements (
			id, user_id, category, expires_at, plan_days, starts_at, revoked_at
		) VALUES (?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT (user_id, category) DO UPDATE SET
			expires_at = excluded.expires_at,
			plan_days = excluded.plan_days,
			starts_at = excluded.starts_at,
			revoked_at = 0`,
		entitlement.ID,
		entitlement.UserID,
		entitlement.Category,
		entitlement.ExpiresAt,
		entitlement.PlanDays,
		entitlement.StartsAt,
	).Error
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, userID int64, category string) (*entitlementdomain.Entitlement, error) {
	var entitlement entitlementdomain.Entitlement
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, category, expires_at, plan_days, starts_at, revoked_at
		 FROM entitlements WHERE user_id = ? AND category = ?`,
		userID,
		category,
	).Scan(&entitlement).Error
	if err != nil {
		return nil, err
	}
	if entitlement.ID == 0 {
		return nil, nil
	}
	return &entitlement, nil
}

func (r *repo) MaxExpiry(ctx context.Context, db *gorm.DB, userID int64) (int64, error) {
	var maxExpiry int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(MAX(expires_at), 0) FROM entitlements WHERE user_id = ?`,
		userID,
	).Scan(&maxExpiry).Error
	if err != nil {
		return 0, err
	}
	return maxExpiry, nil
}

// Revoke zeroes the expiry and stamps revoked_at; the row is kept for
// the expired-entitlements projection.
func (r *repo) Revoke(ctx context.Context, db *gorm.DB, userID int64, category string, revokedAt int64) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE entitlements SET expires_at = 0, revoked_at = ?
		 WHERE user_id = ? AND category = ?`,
		revokedAt,
		userID,
		category,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repo) RevokeAll(ctx context.Context, db *gorm.DB, userID int64, revokedAt int64) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE entitlements SET expires_at = 0, revoked_at = ?
		 WHERE user_id = ?`,
		revokedAt,
		userID,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB, now int64, limit, offset int) ([]entitlementdomain.Entitlement, int64, error) {
	var total int64
	if err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM entitlements WHERE expires_at > ?`,
		now,
	).Scan(&total).Error; err != nil {
		return nil, 0, err
	}

	rows := []entitlementdomain.Entitlement{}
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, category, expires_at, plan_days, starts_at, revoked_at
		 FROM entitlements
		 WHERE expires_at > ?
		 ORDER BY expires_at ASC
		 LIMIT ? OFFSET ?`,
		now,
		limit,
		offset,
	).Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repo) ListExpired(ctx context.Context, db *gorm.DB, now int64, limit, offset int) ([]entitlementdomain.Entitlement, int64, error) {
	var total int64
	if err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM entitlements WHERE expires_at <= ?`,
		now,
	).Scan(&total).Error; err != nil {
		return nil, 0, err
	}

	rows := []entitlementdomain.Entitlement{}
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, category, expires_at, plan_days, starts_at, revoked_at
		 FROM entitlements
		 WHERE expires_at <= ?
		 ORDER BY revoked_at DESC, expires_at DESC
		 LIMIT ? OFFSET ?`,
		now,
		limit,
		offset,
	).Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
