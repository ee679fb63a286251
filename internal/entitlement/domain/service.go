package domain

import (
	"context"

	"github.com/peakshop/tollgate/pkg/db/pagination"
)

type Service interface {
	// Grant writes or refreshes the (user, category) entitlement for the
	// given number of days, applying the configured expiry policy.
	Grant(ctx context.Context, userID int64, category string, days int) (*Entitlement, error)
	Get(ctx context.Context, userID int64, category string) (*Entitlement, error)
	// MaxExpiry returns the user's latest expiry across categories, 0 when none.
	MaxExpiry(ctx context.Context, userID int64) (int64, error)
	Revoke(ctx context.Context, userID int64, category string) error
	RevokeAll(ctx context.Context, userID int64) (int64, error)
	ListActive(ctx context.Context, page pagination.Pagination) ([]Entitlement, int64, error)
	ListExpired(ctx context.Context, page pagination.Pagination) ([]Entitlement, int64, error)
}
