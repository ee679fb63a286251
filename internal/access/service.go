// Package access decides whether a presented token may read a category.
package access

import (
	"context"
	"errors"
	"strings"

	accesstokendomain "github.com/peakshop/tollgate/internal/accesstoken/domain"
	"github.com/peakshop/tollgate/internal/clock"
	entitlementdomain "github.com/peakshop/tollgate/internal/entitlement/domain"
	obsmetrics "github.com/peakshop/tollgate/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ErrDenied is the single denial surfaced to callers. A denied caller
// must not be able to tell a bad token from a lapsed entitlement.
var ErrDenied = errors.New("access_denied")

// Grant is the result of a successful access check.
type Grant struct {
	UserID    int64
	ExpiresAt int64
}

type Service interface {
	Check(ctx context.Context, token, category string) (*Grant, error)
}

type Params struct {
	fx.In

	Log            *zap.Logger
	Clock          clock.Clock
	TokenSvc       accesstokendomain.Service
	EntitlementSvc entitlementdomain.Service
	ObsMetrics     *obsmetrics.Metrics `optional:"true"`
}

type service struct {
	log            *zap.Logger
	clock          clock.Clock
	tokenSvc       accesstokendomain.Service
	entitlementSvc entitlementdomain.Service
	obsMetrics     *obsmetrics.Metrics
}

func NewService(p Params) Service {
	return &service{
		log:            p.Log.Named("access.service"),
		clock:          p.Clock,
		tokenSvc:       p.TokenSvc,
		entitlementSvc: p.EntitlementSvc,
		obsMetrics:     p.ObsMetrics,
	}
}

func (s *service) Check(ctx context.Context, token, category string) (*Grant, error) {
	category = strings.TrimSpace(category)

	binding, err := s.tokenSvc.Verify(ctx, token)
	if err != nil {
		if errors.Is(err, accesstokendomain.ErrTokenInvalid) || errors.Is(err, accesstokendomain.ErrTokenExpired) {
			return nil, s.deny(ctx, category, "token")
		}
		return nil, err
	}

	entitlement, err := s.entitlementSvc.Get(ctx, binding.UserID, category)
	if err != nil {
		if errors.Is(err, entitlementdomain.ErrInvalidCategory) {
			return nil, s.deny(ctx, category, "category")
		}
		return nil, err
	}
	if entitlement == nil || !entitlement.Active(s.clock.Now().Unix()) {
		return nil, s.deny(ctx, category, "entitlement")
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordAccessDecision(ctx, category, "granted")
	}
	return &Grant{
		UserID:    binding.UserID,
		ExpiresAt: entitlement.ExpiresAt,
	}, nil
}

// deny records the real cause at debug level and collapses it into the
// uniform denial.
func (s *service) deny(ctx context.Context, category, cause string) error {
	if s.obsMetrics != nil {
		s.obsMetrics.RecordAccessDecision(ctx, category, "denied")
	}
	s.log.Debug("access denied",
		zap.String("category", category),
		zap.String("cause", cause),
	)
	return ErrDenied
}

var Module = fx.Module("access.service",
	fx.Provide(NewService),
)
