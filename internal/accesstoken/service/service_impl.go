package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	accesstokendomain "github.com/peakshop/tollgate/internal/accesstoken/domain"
	"github.com/peakshop/tollgate/internal/clock"
	obsmetrics "github.com/peakshop/tollgate/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const tokenBytes = 32

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Repo       accesstokendomain.Repository
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	repo       accesstokendomain.Repository
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) accesstokendomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("accesstoken.service"),
		clock:      p.Clock,
		repo:       p.Repo,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Issue(ctx context.Context, userID int64, ttlSeconds int) (*accesstokendomain.AccessToken, error) {
	if userID <= 0 {
		return nil, accesstokendomain.ErrInvalidUser
	}
	if ttlSeconds <= 0 {
		return nil, accesstokendomain.ErrInvalidTTL
	}

	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	token := &accesstokendomain.AccessToken{
		Token:     base64.RawURLEncoding.EncodeToString(raw),
		UserID:    userID,
		ExpiresAt: s.clock.Now().Unix() + int64(ttlSeconds),
	}
	if err := s.repo.Insert(ctx, s.db, token); err != nil {
		return nil, err
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordTokenIssued(ctx)
	}
	s.log.Debug("access token issued",
		zap.Int64("user_id", userID),
		zap.Int("ttl_seconds", ttlSeconds),
	)
	return token, nil
}

func (s *Service) Verify(ctx context.Context, token string) (*accesstokendomain.AccessToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, accesstokendomain.ErrTokenInvalid
	}

	row, err := s.repo.Find(ctx, s.db, token)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, accesstokendomain.ErrTokenInvalid
	}
	if row.ExpiresAt < s.clock.Now().Unix() {
		// Lazy cleanup; the sweeper catches whatever verify never sees.
		if err := s.repo.Delete(ctx, s.db, token); err != nil {
			return nil, err
		}
		return nil, accesstokendomain.ErrTokenExpired
	}
	return row, nil
}

func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	deleted, err := s.repo.DeleteExpired(ctx, s.db, s.clock.Now().Unix())
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		if s.obsMetrics != nil {
			s.obsMetrics.RecordTokensSwept(ctx, deleted)
		}
		s.log.Debug("expired tokens swept", zap.Int64("count", deleted))
	}
	return deleted, nil
}
