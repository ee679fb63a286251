package repository

import (
	"context"

	accesstokendomain "github.com/peakshop/tollgate/internal/accesstoken/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() accesstokendomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, token *accesstokendomain.AccessToken) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO access_tokens (token, user_id, expires_at) VALUES (?, ?, ?)`,
		token.Token,
		token.UserID,
		token.ExpiresAt,
	).Error
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, token string) (*accesstokendomain.AccessToken, error) {
	var row accesstokendomain.AccessToken
	err := db.WithContext(ctx).Raw(
		`SELECT token, user_id, expires_at FROM access_tokens WHERE token = ?`,
		token,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.Token == "" {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, token string) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM access_tokens WHERE token = ?`,
		token,
	).Error
}

func (r *repo) DeleteExpired(ctx context.Context, db *gorm.DB, now int64) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`DELETE FROM access_tokens WHERE expires_at < ?`,
		now,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
