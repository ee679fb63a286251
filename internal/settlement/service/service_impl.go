package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/peakshop/tollgate/internal/clock"
	"github.com/peakshop/tollgate/internal/config"
	entitlementdomain "github.com/peakshop/tollgate/internal/entitlement/domain"
	obsmetrics "github.com/peakshop/tollgate/internal/observability/metrics"
	"github.com/peakshop/tollgate/internal/providers/notify"
	settlementdomain "github.com/peakshop/tollgate/internal/settlement/domain"
	"github.com/peakshop/tollgate/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Clock          clock.Clock
	Config         config.Config
	Catalog        *config.CatalogHolder
	Verifier       settlementdomain.Verifier
	Repo           settlementdomain.Repository
	EntitlementSvc entitlementdomain.Service
	Notifier       notify.Provider
	ObsMetrics     *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	genID          *snowflake.Node
	clock          clock.Clock
	allowLegacy    bool
	notifyTimeout  time.Duration
	catalog        *config.CatalogHolder
	verifier       settlementdomain.Verifier
	repo           settlementdomain.Repository
	entitlementSvc entitlementdomain.Service
	notifier       notify.Provider
	obsMetrics     *obsmetrics.Metrics
}

func NewService(p Params) settlementdomain.Service {
	notifyTimeout := time.Duration(p.Config.NotifyTimeoutMS) * time.Millisecond
	if notifyTimeout <= 0 {
		notifyTimeout = 5 * time.Second
	}
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("settlement.service"),
		genID:          p.GenID,
		clock:          p.Clock,
		allowLegacy:    p.Config.AllowLegacyOrderRefs,
		notifyTimeout:  notifyTimeout,
		catalog:        p.Catalog,
		verifier:       p.Verifier,
		repo:           p.Repo,
		entitlementSvc: p.EntitlementSvc,
		notifier:       p.Notifier,
		obsMetrics:     p.ObsMetrics,
	}
}

// HandleWebhook runs the pipeline in its fixed order: authenticate,
// filter, claim, decode, apply, notify. The authenticity check comes
// before everything, the idempotency claim before any mutation.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, headers http.Header) (settlementdomain.Outcome, error) {
	if err := s.verifier.Verify(payload, headers); err != nil {
		s.log.Warn("webhook signature rejected", zap.String("provider", s.verifier.Provider()))
		return "", settlementdomain.ErrAuthenticationFailed
	}

	event, err := s.verifier.Parse(payload)
	if err != nil {
		// Authenticated but undecodable; acknowledge so the provider
		// stops retrying.
		s.log.Warn("webhook payload undecodable", zap.String("provider", s.verifier.Provider()))
		return s.outcome(ctx, settlementdomain.OutcomeBadOrderRef), nil
	}

	if event.Status != settlementdomain.StatusFinished {
		s.log.Debug("webhook status ignored",
			zap.String("provider", s.verifier.Provider()),
			zap.String("status", event.Status),
		)
		return s.outcome(ctx, settlementdomain.OutcomeIgnored), nil
	}

	firstWriter, err := s.repo.MarkProcessed(ctx, s.db, event.PaymentID, s.clock.Now().Unix())
	if err != nil {
		return "", fmt.Errorf("claim payment %s: %w", event.PaymentID, err)
	}
	if !firstWriter {
		s.log.Info("duplicate settlement ignored",
			zap.String("provider", s.verifier.Provider()),
			zap.String("payment_id", event.PaymentID),
		)
		return s.outcome(ctx, settlementdomain.OutcomeDuplicate), nil
	}

	ref, err := settlementdomain.ParseOrderRef(event.OrderID, s.allowLegacy)
	if err != nil {
		// The payment id stays claimed: a reference that is garbage now
		// will be garbage on every retry.
		s.log.Warn("unparseable order reference",
			zap.String("provider", s.verifier.Provider()),
			zap.String("payment_id", event.PaymentID),
			zap.String("order_id", event.OrderID),
		)
		return s.outcome(ctx, settlementdomain.OutcomeBadOrderRef), nil
	}

	switch ref.Kind {
	case settlementdomain.OrderKindSubscription:
		if err := s.applySubscription(ctx, ref); err != nil {
			if isOrderValidationErr(err) {
				return s.outcome(ctx, settlementdomain.OutcomeBadOrderRef), nil
			}
			return "", err
		}
	case settlementdomain.OrderKindPackage:
		if err := s.applyPackage(ctx, ref); err != nil {
			if isOrderValidationErr(err) {
				return s.outcome(ctx, settlementdomain.OutcomeBadOrderRef), nil
			}
			return "", err
		}
	default:
		return s.outcome(ctx, settlementdomain.OutcomeBadOrderRef), nil
	}

	s.notifySettled(ref)

	s.log.Info("payment settled",
		zap.String("provider", s.verifier.Provider()),
		zap.String("payment_id", event.PaymentID),
		zap.String("order_id", ref.String()),
	)
	return s.outcome(ctx, settlementdomain.OutcomeOK), nil
}

func (s *Service) applySubscription(ctx context.Context, ref *settlementdomain.OrderRef) error {
	category := ref.Category
	if category == "" {
		// Legacy 3-field references carry no category; they land in the
		// first catalog category, matching the pre-migration behavior.
		cats := s.catalog.Current().Categories
		if len(cats) == 0 {
			return settlementdomain.ErrBadOrderRef
		}
		category = cats[0].Key
	}

	if !s.catalog.Current().HasPlan(category, ref.PlanDays) {
		return settlementdomain.ErrBadOrderRef
	}

	_, err := s.entitlementSvc.Grant(ctx, ref.UserID, category, ref.PlanDays)
	return err
}

func (s *Service) applyPackage(ctx context.Context, ref *settlementdomain.OrderRef) error {
	pkg, ok := s.catalog.Current().Package(ref.PackageCode)
	if !ok {
		return settlementdomain.ErrBadOrderRef
	}

	return s.repo.InsertPurchase(ctx, s.db, &settlementdomain.Purchase{
		ID:          s.genID.Generate(),
		UserID:      ref.UserID,
		PackageCode: pkg.Code,
		Quantity:    pkg.Quantity,
		PriceUSD:    pkg.PriceUSD,
		PurchasedAt: s.clock.Now().Unix(),
	})
}

// notifySettled is fire-and-forget with its own deadline; a dead
// notifier never rolls back a settlement.
func (s *Service) notifySettled(ref *settlementdomain.OrderRef) {
	var message string
	switch ref.Kind {
	case settlementdomain.OrderKindSubscription:
		message = fmt.Sprintf("Payment confirmed. Your %s access is active for %d days.", ref.Category, ref.PlanDays)
	case settlementdomain.OrderKindPackage:
		message = fmt.Sprintf("Payment confirmed. Your %s package is ready.", ref.PackageCode)
	default:
		return
	}

	userID := ref.UserID
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()
		if err := s.notifier.SendMessage(ctx, userID, message); err != nil {
			s.log.Warn("settlement notification failed",
				zap.Int64("user_id", userID),
				zap.Error(err),
			)
		}
	}()
}

func (s *Service) ListPurchases(ctx context.Context, page pagination.Pagination) ([]settlementdomain.Purchase, int64, error) {
	return s.repo.ListPurchases(ctx, s.db, page.Limit(), page.Offset())
}

func (s *Service) outcome(ctx context.Context, outcome settlementdomain.Outcome) settlementdomain.Outcome {
	if s.obsMetrics != nil {
		s.obsMetrics.RecordSettlement(ctx, s.verifier.Provider(), string(outcome))
	}
	return outcome
}

func isOrderValidationErr(err error) bool {
	return errors.Is(err, settlementdomain.ErrBadOrderRef) ||
		errors.Is(err, entitlementdomain.ErrInvalidUser) ||
		errors.Is(err, entitlementdomain.ErrInvalidCategory) ||
		errors.Is(err, entitlementdomain.ErrInvalidPlan)
}
