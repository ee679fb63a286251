package domain

import (
	"context"

	"github.com/peakshop/tollgate/pkg/db/pagination"
)

type Service interface {
	// Touch records a profile sighting: insert on first contact,
	// refresh profile fields and last_seen after that.
	Touch(ctx context.Context, userID int64, username, firstName, lastName string) error
	Get(ctx context.Context, userID int64) (*User, error)
	List(ctx context.Context, page pagination.Pagination) ([]User, int64, error)
}
