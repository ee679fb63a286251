package repository

import (
	"context"

	"github.com/peakshop/tollgate/internal/account/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// Upsert keeps started_at from the first insert; every later sighting
// only refreshes the profile fields and last_seen.
func (r *repo) Upsert(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO users (user_id, username, first_name, last_name, started_at, last_seen)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
		   username = excluded.username,
		   first_name = excluded.first_name,
		   last_name = excluded.last_name,
		   last_seen = excluded.last_seen`,
		user.UserID,
		user.Username,
		user.FirstName,
		user.LastName,
		user.StartedAt,
		user.LastSeen,
	).Error
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, userID int64) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).Raw(
		`SELECT user_id, username, first_name, last_name, started_at, last_seen
		 FROM users WHERE user_id = ?`,
		userID,
	).Scan(&user).Error
	if err != nil {
		return nil, err
	}
	if user.UserID == 0 {
		return nil, nil
	}
	return &user, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, limit, offset int) ([]domain.User, int64, error) {
	var total int64
	if err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM users`,
	).Scan(&total).Error; err != nil {
		return nil, 0, err
	}

	rows := []domain.User{}
	err := db.WithContext(ctx).Raw(
		`SELECT user_id, username, first_name, last_name, started_at, last_seen
		 FROM users
		 ORDER BY last_seen DESC
		 LIMIT ? OFFSET ?`,
		limit,
		offset,
	).Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
