package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// OrderKind distinguishes the two order families the shop sells.
type OrderKind string

const (
	OrderKindSubscription OrderKind = "subscription"
	OrderKindPackage      OrderKind = "package"
)

// OrderRef is a decoded order reference from a provider payload.
// Canonical forms:
//
//	sub:<user_id>:<category>:<plan_days>
//	pl:<user_id>:<package_code>
//
// The legacy 3-field form sub:<user_id>:<plan_days> predates category
// scoping and is only accepted behind a migration flag.
type OrderRef struct {
	Kind        OrderKind
	UserID      int64
	Category    string
	PlanDays    int
	PackageCode string
}

// String renders the canonical wire form.
func (r OrderRef) String() string {
	switch r.Kind {
	case OrderKindSubscription:
		return fmt.Sprintf("sub:%d:%s:%d", r.UserID, r.Category, r.PlanDays)
	case OrderKindPackage:
		return fmt.Sprintf("pl:%d:%s", r.UserID, r.PackageCode)
	default:
		return ""
	}
}

// ParseOrderRef decodes an order reference. Any malformed input returns
// ErrBadOrderRef; the settlement pipeline maps that to a success-class
// acknowledgement so the provider stops retrying garbage.
func ParseOrderRef(raw string, allowLegacy bool) (*OrderRef, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrBadOrderRef
	}

	parts := strings.Split(raw, ":")
	switch parts[0] {
	case "sub":
		switch len(parts) {
		case 4:
			userID, err := parsePositiveInt64(parts[1])
			if err != nil {
				return nil, ErrBadOrderRef
			}
			category := strings.TrimSpace(parts[2])
			if category == "" {
				return nil, ErrBadOrderRef
			}
			days, err := parsePositiveInt(parts[3])
			if err != nil {
				return nil, ErrBadOrderRef
			}
			return &OrderRef{
				Kind:     OrderKindSubscription,
				UserID:   userID,
				Category: category,
				PlanDays: days,
			}, nil
		case 3:
			if !allowLegacy {
				return nil, ErrBadOrderRef
			}
			userID, err := parsePositiveInt64(parts[1])
			if err != nil {
				return nil, ErrBadOrderRef
			}
			days, err := parsePositiveInt(parts[2])
			if err != nil {
				return nil, ErrBadOrderRef
			}
			return &OrderRef{
				Kind:     OrderKindSubscription,
				UserID:   userID,
				PlanDays: days,
			}, nil
		default:
			return nil, ErrBadOrderRef
		}
	case "pl":
		if len(parts) != 3 {
			return nil, ErrBadOrderRef
		}
		userID, err := parsePositiveInt64(parts[1])
		if err != nil {
			return nil, ErrBadOrderRef
		}
		code := strings.TrimSpace(parts[2])
		if code == "" {
			return nil, ErrBadOrderRef
		}
		return &OrderRef{
			Kind:        OrderKindPackage,
			UserID:      userID,
			PackageCode: code,
		}, nil
	default:
		return nil, ErrBadOrderRef
	}
}

func parsePositiveInt64(raw string) (int64, error) {
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || value <= 0 {
		return 0, ErrBadOrderRef
	}
	return value, nil
}

func parsePositiveInt(raw string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return 0, ErrBadOrderRef
	}
	return value, nil
}
