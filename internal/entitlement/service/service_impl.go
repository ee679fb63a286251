package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/peakshop/tollgate/internal/clock"
	"github.com/peakshop/tollgate/internal/config"
	entitlementdomain "github.com/peakshop/tollgate/internal/entitlement/domain"
	"github.com/peakshop/tollgate/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const secondsPerDay = 86400

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Config  config.Config
	Catalog *config.CatalogHolder
	Repo    entitlementdomain.Repository
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	policy  string
	catalog *config.CatalogHolder
	repo    entitlementdomain.Repository
}

func NewService(p Params) entitlementdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("entitlement.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		policy:  p.Config.ExpiryPolicy,
		catalog: p.Catalog,
		repo:    p.Repo,
	}
}

func (s *Service) Grant(ctx context.Context, userID int64, category string, days int) (*entitlementdomain.Entitlement, error) {
	if userID <= 0 {
		return nil, entitlementdomain.ErrInvalidUser
	}
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, entitlementdomain.ErrInvalidCategory
	}
	if _, ok := s.catalog.Current().Category(category); !ok {
		return nil, entitlementdomain.ErrInvalidCategory
	}
	if days <= 0 {
		return nil, entitlementdomain.ErrInvalidPlan
	}

	now := s.clock.Now().Unix()
	expiresAt := now + int64(days)*secondsPerDay

	if s.policy == config.ExpiryPolicyExtend {
		existing, err := s.repo.Find(ctx, s.db, userID, category)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ExpiresAt > now {
			expiresAt = existing.ExpiresAt + int64(days)*secondsPerDay
		}
	}

	entitlement := &entitlementdomain.Entitlement{
		ID:        s.genID.Generate(),
		UserID:    userID,
		Category:  category,
		ExpiresAt: expiresAt,
		PlanDays:  days,
		StartsAt:  now,
	}
	if err := s.repo.Upsert(ctx, s.db, entitlement); err != nil {
		return nil, err
	}

	// The upsert may have kept the original row id; read back the
	// authoritative state.
	stored, err := s.repo.Find(ctx, s.db, userID, category)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		stored = entitlement
	}

	s.log.Info("entitlement granted",
		zap.Int64("user_id", userID),
		zap.String("category", category),
		zap.Int("days", days),
		zap.Int64("expires_at", stored.ExpiresAt),
	)
	return stored, nil
}

func (s *Service) Get(ctx context.Context, userID int64, category string) (*entitlementdomain.Entitlement, error) {
	if userID <= 0 {
		return nil, entitlementdomain.ErrInvalidUser
	}
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, entitlementdomain.ErrInvalidCategory
	}
	return s.repo.Find(ctx, s.db, userID, category)
}

func (s *Service) MaxExpiry(ctx context.Context, userID int64) (int64, error) {
	if userID <= 0 {
		return 0, entitlementdomain.ErrInvalidUser
	}
	return s.repo.MaxExpiry(ctx, s.db, userID)
}

func (s *Service) Revoke(ctx context.Context, userID int64, category string) error {
	if userID <= 0 {
		return entitlementdomain.ErrInvalidUser
	}
	category = strings.TrimSpace(category)
	if category == "" {
		return entitlementdomain.ErrInvalidCategory
	}

	rows, err := s.repo.Revoke(ctx, s.db, userID, category, s.clock.Now().Unix())
	if err != nil {
		return err
	}
	if rows == 0 {
		return entitlementdomain.ErrNotFound
	}

	s.log.Info("entitlement revoked",
		zap.Int64("user_id", userID),
		zap.String("category", category),
	)
	return nil
}

func (s *Service) RevokeAll(ctx context.Context, userID int64) (int64, error) {
	if userID <= 0 {
		return 0, entitlementdomain.ErrInvalidUser
	}

	rows, err := s.repo.RevokeAll(ctx, s.db, userID, s.clock.Now().Unix())
	if err != nil {
		return 0, err
	}

	s.log.Info("entitlements revoked",
		zap.Int64("user_id", userID),
		zap.Int64("count", rows),
	)
	return rows, nil
}

func (s *Service) ListActive(ctx context.Context, page pagination.Pagination) ([]entitlementdomain.Entitlement, int64, error) {
	return s.repo.ListActive(ctx, s.db, s.clock.Now().Unix(), page.Limit(), page.Offset())
}

func (s *Service) ListExpired(ctx context.Context, page pagination.Pagination) ([]entitlementdomain.Entitlement, int64, error) {
	return s.repo.ListExpired(ctx, s.db, s.clock.Now().Unix(), page.Limit(), page.Offset())
}
