package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/peakshop/tollgate/internal/access"
	"github.com/peakshop/tollgate/internal/accesstoken"
	accesstokendomain "github.com/peakshop/tollgate/internal/accesstoken/domain"
	"github.com/peakshop/tollgate/internal/account"
	accountdomain "github.com/peakshop/tollgate/internal/account/domain"
	"github.com/peakshop/tollgate/internal/authorization"
	"github.com/peakshop/tollgate/internal/config"
	"github.com/peakshop/tollgate/internal/entitlement"
	entitlementdomain "github.com/peakshop/tollgate/internal/entitlement/domain"
	"github.com/peakshop/tollgate/internal/observability"
	obsmiddleware "github.com/peakshop/tollgate/internal/observability/logger"
	obsmetrics "github.com/peakshop/tollgate/internal/observability/metrics"
	obstracing "github.com/peakshop/tollgate/internal/observability/tracing"
	"github.com/peakshop/tollgate/internal/providers"
	"github.com/peakshop/tollgate/internal/ratelimit"
	"github.com/peakshop/tollgate/internal/settlement"
	settlementdomain "github.com/peakshop/tollgate/internal/settlement/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	entitlement.Module,
	accesstoken.Module,
	access.Module,
	account.Module,
	providers.Module,
	ratelimit.Module,
	settlement.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug: obsCfg.Debug(),
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			_ = ctx
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	authzSvc       authorization.Service
	entitlementSvc entitlementdomain.Service
	tokenSvc       accesstokendomain.Service
	accessSvc      access.Service
	accountSvc     accountdomain.Service
	settlementSvc  settlementdomain.Service
	accessLimiter  *ratelimit.AccessLimiter
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	AuthzSvc       authorization.Service
	EntitlementSvc entitlementdomain.Service
	TokenSvc       accesstokendomain.Service
	AccessSvc      access.Service
	AccountSvc     accountdomain.Service
	SettlementSvc  settlementdomain.Service
	AccessLimiter  *ratelimit.AccessLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		authzSvc:       p.AuthzSvc,
		entitlementSvc: p.EntitlementSvc,
		tokenSvc:       p.TokenSvc,
		accessSvc:      p.AccessSvc,
		accountSvc:     p.AccountSvc,
		settlementSvc:  p.SettlementSvc,
		accessLimiter:  p.AccessLimiter,
	}

	svc.registerAPIRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Entitlements (operator) --------
	api.POST("/entitlements/grant", s.OperatorRequired(), s.authorizeAction(authorization.ObjectEntitlement, authorization.ActionEntitlementGrant), s.GrantEntitlement)
	api.POST("/entitlements/revoke", s.OperatorRequired(), s.authorizeAction(authorization.ObjectEntitlement, authorization.ActionEntitlementRevoke), s.RevokeEntitlement)
	api.GET("/entitlements/max-expiry", s.OperatorRequired(), s.authorizeAction(authorization.ObjectEntitlement, authorization.ActionEntitlementView), s.MaxEntitlementExpiry)

	// -------- Access tokens (operator) --------
	api.POST("/tokens", s.OperatorRequired(), s.authorizeAction(authorization.ObjectToken, authorization.ActionTokenIssue), s.IssueToken)

	// -------- User directory (operator) --------
	api.POST("/users/touch", s.OperatorRequired(), s.TouchUser)

	// -------- Public access check --------
	api.GET("/access", s.AccessRateLimit(), s.CheckAccess)

	// -------- Payment webhooks --------
	api.POST("/payments/webhooks/:provider", s.HandlePaymentWebhook)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")

	admin.Use(s.OperatorRequired())

	admin.GET("/entitlements/active", s.authorizeAction(authorization.ObjectEntitlement, authorization.ActionEntitlementView), s.ListActiveEntitlements)
	admin.GET("/entitlements/expired", s.authorizeAction(authorization.ObjectEntitlement, authorization.ActionEntitlementView), s.ListExpiredEntitlements)
	admin.GET("/purchases", s.authorizeAction(authorization.ObjectPurchase, authorization.ActionPurchaseView), s.ListPurchases)
	admin.GET("/users", s.authorizeAction(authorization.ObjectDirectory, authorization.ActionDirectoryView), s.ListUsers)
}
