package sweeper

import (
	"context"
	"time"

	accesstokendomain "github.com/peakshop/tollgate/internal/accesstoken/domain"
	"github.com/peakshop/tollgate/internal/config"
	"github.com/peakshop/tollgate/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Sweeper periodically removes expired access tokens.
type Sweeper struct {
	svc      accesstokendomain.Service
	log      *zap.Logger
	limiter  *ratelimit.AccessLimiter
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

type Params struct {
	fx.In

	Svc     accesstokendomain.Service
	Log     *zap.Logger
	Config  config.Config
	Limiter *ratelimit.AccessLimiter `optional:"true"`
}

func New(lc fx.Lifecycle, p Params) *Sweeper {
	interval := time.Duration(p.Config.TokenSweepInterval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	s := &Sweeper{
		svc:      p.Svc,
		log:      p.Log.Named("accesstoken.sweeper"),
		limiter:  p.Limiter,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			_ = ctx
			go s.run()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(s.stop)
			select {
			case <-s.done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})

	return s
}

func (s *Sweeper) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			s.sweep(ctx)
			cancel()
		}
	}
}

// sweep takes the cross-replica lock when Redis is available so only
// one replica pays the delete. Without Redis each replica sweeps; the
// delete is idempotent either way.
func (s *Sweeper) sweep(ctx context.Context) {
	lockToken, acquired, err := s.limiter.TryLockSweep(ctx, s.interval)
	if err != nil {
		s.log.Warn("sweep lock unavailable, sweeping anyway", zap.Error(err))
	} else if !acquired {
		return
	} else if lockToken != "" {
		defer func() {
			if err := s.limiter.ReleaseSweep(ctx, lockToken); err != nil {
				s.log.Warn("sweep lock release failed", zap.Error(err))
			}
		}()
	}

	if _, err := s.svc.SweepExpired(ctx); err != nil {
		s.log.Warn("token sweep failed", zap.Error(err))
	}
}
