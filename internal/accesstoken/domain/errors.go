package domain

import "errors"

var (
	ErrInvalidUser  = errors.New("invalid_user")
	ErrInvalidTTL   = errors.New("invalid_ttl")
	ErrTokenInvalid = errors.New("token_invalid")
	ErrTokenExpired = errors.New("token_expired")
)
