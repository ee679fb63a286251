package service

import (
	"context"
	"strings"

	"github.com/peakshop/tollgate/internal/account/domain"
	"github.com/peakshop/tollgate/internal/clock"
	"github.com/peakshop/tollgate/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("account.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Touch(ctx context.Context, userID int64, username, firstName, lastName string) error {
	if userID <= 0 {
		return domain.ErrInvalidUser
	}

	now := s.clock.Now().Unix()
	return s.repo.Upsert(ctx, s.db, &domain.User{
		UserID:    userID,
		Username:  strings.TrimPrefix(username, "@"),
		FirstName: firstName,
		LastName:  lastName,
		StartedAt: now,
		LastSeen:  now,
	})
}

func (s *Service) Get(ctx context.Context, userID int64) (*domain.User, error) {
	if userID <= 0 {
		return nil, domain.ErrInvalidUser
	}
	return s.repo.Find(ctx, s.db, userID)
}

func (s *Service) List(ctx context.Context, page pagination.Pagination) ([]domain.User, int64, error) {
	return s.repo.List(ctx, s.db, page.Limit(), page.Offset())
}
