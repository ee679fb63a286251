package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/peakshop/tollgate/internal/config"
	obsmetrics "github.com/peakshop/tollgate/internal/observability/metrics"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	keyAccessCheckClient = "access:check:client:%s"
	keyTokenSweepLock    = "tokens:sweep:lock"
)

// AccessLimiter throttles the access-check endpoint per client. A nil
// limiter (no Redis configured) allows everything, so callers never
// branch on configuration.
type AccessLimiter struct {
	enabled bool

	log    *zap.Logger
	bucket *TokenBucket
	locker *Locker

	rate       float64
	burst      int
	obsMetrics *obsmetrics.Metrics
}

type Params struct {
	fx.In

	Config     config.Config
	Log        *zap.Logger
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

func NewAccessLimiter(p Params) *AccessLimiter {
	addr := strings.TrimSpace(p.Config.RedisAddr)
	if addr == "" {
		p.Log.Info("redis not configured, access rate limiting disabled")
		return nil
	}

	rate := p.Config.AccessCheckRate
	if rate <= 0 {
		rate = 20
	}
	burst := p.Config.AccessCheckBurst
	if burst <= 0 {
		burst = 40
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(p.Config.RedisPassword),
		DB:       p.Config.RedisDB,
	})

	return &AccessLimiter{
		enabled:    true,
		log:        p.Log.Named("ratelimit"),
		bucket:     NewTokenBucket(client),
		locker:     NewLocker(client),
		rate:       rate,
		burst:      burst,
		obsMetrics: p.ObsMetrics,
	}
}

func (l *AccessLimiter) Enabled() bool {
	return l != nil && l.enabled
}

// AllowClient fails open: a Redis outage degrades to no limiting
// rather than refusing every access check.
func (l *AccessLimiter) AllowClient(ctx context.Context, clientID string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}

	key := fmt.Sprintf(keyAccessCheckClient, strings.TrimSpace(clientID))
	res, err := l.bucket.Allow(ctx, key, l.rate, l.burst)
	if err != nil {
		l.log.Warn("rate limit check failed, allowing request", zap.Error(err))
		return &Result{Allowed: true}, nil
	}

	if l.obsMetrics != nil {
		if res.Allowed {
			l.obsMetrics.RecordRateLimitAllowed(ctx, "access_check")
		} else {
			l.obsMetrics.RecordRateLimitDenied(ctx, "access_check", "bucket_empty")
		}
	}
	return res, nil
}

// TryLockSweep claims the cross-replica token sweep. When Redis is not
// configured every replica sweeps on its own; the delete is idempotent
// so overlap is waste, not corruption.
func (l *AccessLimiter) TryLockSweep(ctx context.Context, ttl time.Duration) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	return l.locker.TryLock(ctx, keyTokenSweepLock, ttl)
}

func (l *AccessLimiter) ReleaseSweep(ctx context.Context, token string) error {
	if !l.Enabled() {
		return nil
	}
	return l.locker.Release(ctx, keyTokenSweepLock, token)
}
