package domain

import "errors"

var (
	ErrInvalidUser     = errors.New("invalid_user")
	ErrInvalidCategory = errors.New("invalid_category")
	ErrInvalidPlan     = errors.New("invalid_plan")
	ErrNotFound        = errors.New("entitlement_not_found")
)
