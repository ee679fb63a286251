package domain

import "context"

type Service interface {
	// Issue mints a new random token for the user with the given TTL in
	// seconds. ttlSeconds must be positive.
	Issue(ctx context.Context, userID int64, ttlSeconds int) (*AccessToken, error)
	// Verify resolves a presented token to its binding. Expired tokens
	// are deleted on sight and reported as ErrTokenExpired; unknown
	// tokens as ErrTokenInvalid.
	Verify(ctx context.Context, token string) (*AccessToken, error)
	// SweepExpired removes all tokens past their expiry and returns the
	// number deleted.
	SweepExpired(ctx context.Context) (int64, error)
}
