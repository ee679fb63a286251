package authorization

import (
	"context"
	_ "embed"
	"strconv"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/peakshop/tollgate/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectEntitlement = "entitlement"
	ObjectToken       = "token"
	ObjectPurchase    = "purchase"
	ObjectDirectory   = "directory"
)

const (
	ActionEntitlementGrant  = "entitlement.grant"
	ActionEntitlementRevoke = "entitlement.revoke"
	ActionEntitlementView   = "entitlement.view"

	ActionTokenIssue = "token.issue"

	ActionPurchaseView  = "purchase.view"
	ActionDirectoryView = "directory.view"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer builds the synced enforcer over the shared database.
// Policies are seeded idempotently; the configured operator is grouped
// into role:operator so a fresh deployment works without manual policy
// bootstrapping.
func NewEnforcer(db *gorm.DB, cfg config.Config) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if cfg.OperatorID > 0 {
		subject := "operator:" + strconv.FormatInt(cfg.OperatorID, 10)
		if _, err := enforcer.AddGroupingPolicy(subject, "role:operator"); err != nil {
			return nil, err
		}
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, err := resolveActor(actor)
	if err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("authorization denied",
			zap.String("subject", subject),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func resolveActor(actor string) (string, error) {
	if actor == "system" {
		return actor, nil
	}
	if raw, ok := strings.CutPrefix(actor, "operator:"); ok {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return "", ErrInvalidActor
		}
		return actor, nil
	}
	return "", ErrInvalidActor
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Viewers get the read-only admin surface.
		{"role:viewer", ObjectEntitlement, ActionEntitlementView},
		{"role:viewer", ObjectPurchase, ActionPurchaseView},
		{"role:viewer", ObjectDirectory, ActionDirectoryView},

		// Operators run the whole service.
		{"role:operator", ObjectEntitlement, ActionEntitlementGrant},
		{"role:operator", ObjectEntitlement, ActionEntitlementRevoke},
		{"role:operator", ObjectEntitlement, ActionEntitlementView},
		{"role:operator", ObjectToken, ActionTokenIssue},
		{"role:operator", ObjectPurchase, ActionPurchaseView},
		{"role:operator", ObjectDirectory, ActionDirectoryView},

		// Automated settlement runs as system.
		{"role:system", ObjectEntitlement, ActionEntitlementGrant},
		{"role:system", ObjectPurchase, ActionPurchaseView},
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}

	if _, err := enforcer.AddGroupingPolicy("system", "role:system"); err != nil {
		return err
	}
	return nil
}
