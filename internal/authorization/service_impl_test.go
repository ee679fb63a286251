package authorization

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/peakshop/tollgate/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestAuthorizer(t *testing.T) Service {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	enforcer, err := NewEnforcer(db, config.Config{OperatorID: 7})
	require.NoError(t, err)

	return NewService(Params{
		Log:      zap.NewNop(),
		Enforcer: enforcer,
	})
}

func TestOperatorCanRunTheService(t *testing.T) {
	svc := newTestAuthorizer(t)
	ctx := context.Background()

	for _, tc := range []struct{ object, action string }{
		{ObjectEntitlement, ActionEntitlementGrant},
		{ObjectEntitlement, ActionEntitlementRevoke},
		{ObjectEntitlement, ActionEntitlementView},
		{ObjectToken, ActionTokenIssue},
		{ObjectPurchase, ActionPurchaseView},
		{ObjectDirectory, ActionDirectoryView},
	} {
		assert.NoError(t, svc.Authorize(ctx, "operator:7", tc.object, tc.action), "%s %s", tc.object, tc.action)
	}
}

func TestUnknownOperatorIsForbidden(t *testing.T) {
	svc := newTestAuthorizer(t)

	err := svc.Authorize(context.Background(), "operator:999", ObjectEntitlement, ActionEntitlementGrant)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSystemScope(t *testing.T) {
	svc := newTestAuthorizer(t)
	ctx := context.Background()

	assert.NoError(t, svc.Authorize(ctx, "system", ObjectEntitlement, ActionEntitlementGrant))
	assert.ErrorIs(t, svc.Authorize(ctx, "system", ObjectToken, ActionTokenIssue), ErrForbidden)
}

func TestAuthorizeRejectsMalformedInput(t *testing.T) {
	svc := newTestAuthorizer(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, "", ObjectToken, ActionTokenIssue), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "operator:abc", ObjectToken, ActionTokenIssue), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "operator:0", ObjectToken, ActionTokenIssue), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "intruder", ObjectToken, ActionTokenIssue), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "operator:7", "", ActionTokenIssue), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, "operator:7", ObjectToken, ""), ErrInvalidAction)
}
