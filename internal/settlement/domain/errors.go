package domain

import "errors"

var (
	ErrAuthenticationFailed = errors.New("authentication_failed")
	ErrInvalidPayload       = errors.New("invalid_payload")
	ErrBadOrderRef          = errors.New("bad_order_ref")
)
