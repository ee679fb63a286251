package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/peakshop/tollgate/internal/clock"
	"github.com/peakshop/tollgate/internal/config"
	entitlementdomain "github.com/peakshop/tollgate/internal/entitlement/domain"
	"github.com/peakshop/tollgate/internal/entitlement/repository"
	"github.com/peakshop/tollgate/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`CREATE TABLE entitlements (
		id INTEGER PRIMARY KEY,
		user_id INTEGER NOT NULL,
		category TEXT NOT NULL,
		expires_at INTEGER NOT NULL DEFAULT 0,
		plan_days INTEGER NOT NULL DEFAULT 0,
		starts_at INTEGER NOT NULL DEFAULT 0,
		revoked_at INTEGER NOT NULL DEFAULT 0,
		UNIQUE (user_id, category)
	)`).Error)

	return db
}

func newTestService(t *testing.T, db *gorm.DB, fake *clock.FakeClock, policy string) entitlementdomain.Service {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(Params{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   node,
		Clock:   fake,
		Config:  config.Config{ExpiryPolicy: policy},
		Catalog: config.NewStaticCatalogHolder(config.DefaultCatalog()),
		Repo:    repository.Provide(),
	})
}

func TestGrantGetRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	fake := clock.NewFakeClock(time.Unix(1_700_000_000, 0))
	svc := newTestService(t, db, fake, config.ExpiryPolicyReplace)

	granted, err := svc.Grant(context.Background(), 42, "mail_combo", 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1_700_000_000+30*86400), granted.ExpiresAt)
	assert.Equal(t, 30, granted.PlanDays)
	assert.Equal(t, int64(1_700_000_000), granted.StartsAt)

	got, err := svc.Get(context.Background(), 42, "mail_combo")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, granted.ExpiresAt, got.ExpiresAt)
	assert.True(t, got.Active(fake.Now().Unix()))
}

func TestGrantRejectsUnknownCategory(t *testing.T) {
	db := setupTestDB(t)
	fake := clock.NewFakeClock(time.Unix(1_700_000_000, 0))
	svc := newTestService(t, db, fake, config.ExpiryPolicyReplace)

	_, err := svc.Grant(context.Background(), 42, "no_such_category", 30)
	assert.ErrorIs(t, err, entitlementdomain.ErrInvalidCategory)

	_, err = svc.Grant(context.Background(), 42, "mail_combo", 0)
	assert.ErrorIs(t, err, entitlementdomain.ErrInvalidPlan)
}

func TestGrantReplacePolicyResetsExpiry(t *testing.T) {
	db := setupTestDB(t)
	fake := clock.NewFakeClock(time.Unix(1_700_000_000, 0))
	svc := newTestService(t, db, fake, config.ExpiryPolicyReplace)

	_, err := svc.Grant(context.Background(), 42, "mail_combo", 90)
	require.NoError(t, err)

	fake.Advance(24 * time.Hour)
	renewed, err := svc.Grant(context.Background(), 42, "mail_combo", 10)
	require.NoError(t, err)

	// Replace ignores the remaining 89 days.
	assert.Equal(t, fake.Now().Unix()+10*86400, renewed.ExpiresAt)
	assert.Equal(t, 10, renewed.PlanDays)
}

func TestGrantExtendPolicyAddsRemainingTime(t *testing.T) {
	db := setupTestDB(t)
	fake := clock.NewFakeClock(time.Unix(1_700_000_000, 0))
	svc := newTestService(t, db, fake, config.ExpiryPolicyExtend)

	first, err := svc.Grant(context.Background(), 42, "mail_combo", 30)
	require.NoError(t, err)

	renewed, err := svc.Grant(context.Background(), 42, "mail_combo", 10)
	require.NoError(t, err)
	assert.Equal(t, first.ExpiresAt+10*86400, renewed.ExpiresAt)

	// Once lapsed, extend behaves like a fresh grant.
	fake.Advance(41 * 24 * time.Hour)
	fresh, err := svc.Grant(context.Background(), 42, "mail_combo", 10)
	require.NoError(t, err)
	assert.Equal(t, fake.Now().Unix()+10*86400, fresh.ExpiresAt)
}

func TestMaxExpiryAcrossCategories(t *testing.T) {
	db := setupTestDB(t)
	fake := clock.NewFakeClock(time.Unix(1_700_000_000, 0))
	svc := newTestService(t, db, fake, config.ExpiryPolicyReplace)

	maxExpiry, err := svc.MaxExpiry(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(0), maxExpiry)

	_, err = svc.Grant(context.Background(), 42, "mail_combo", 10)
	require.NoError(t, err)
	_, err = svc.Grant(context.Background(), 42, "url_cloud", 90)
	require.NoError(t, err)

	maxExpiry, err = svc.MaxExpiry(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, fake.Now().Unix()+90*86400, maxExpiry)
}

func TestRevokeKeepsRow(t *testing.T) {
	db := setupTestDB(t)
	fake := clock.NewFakeClock(time.Unix(1_700_000_000, 0))
	svc := newTestService(t, db, fake, config.ExpiryPolicyReplace)

	_, err := svc.Grant(context.Background(), 42, "mail_combo", 30)
	require.NoError(t, err)

	fake.Advance(time.Hour)
	require.NoError(t, svc.Revoke(context.Background(), 42, "mail_combo"))

	got, err := svc.Get(context.Background(), 42, "mail_combo")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(0), got.ExpiresAt)
	assert.Equal(t, fake.Now().Unix(), got.RevokedAt)
	assert.False(t, got.Active(fake.Now().Unix()))

	// Revoking something that was never granted reports not found.
	err = svc.Revoke(context.Background(), 42, "url_cloud")
	assert.ErrorIs(t, err, entitlementdomain.ErrNotFound)
}

func TestRegrantAfterRevokeReactivates(t *testing.T) {
	db := setupTestDB(t)
	fake := clock.NewFakeClock(time.Unix(1_700_000_000, 0))
	svc := newTestService(t, db, fake, config.ExpiryPolicyReplace)

	_, err := svc.Grant(context.Background(), 42, "mail_combo", 30)
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(context.Background(), 42, "mail_combo"))

	regranted, err := svc.Grant(context.Background(), 42, "mail_combo", 10)
	require.NoError(t, err)
	assert.Equal(t, fake.Now().Unix()+10*86400, regranted.ExpiresAt)
	assert.Equal(t, int64(0), regranted.RevokedAt)

	var count int64
	require.NoError(t, db.Raw(`SELECT COUNT(*) FROM entitlements WHERE user_id = 42`).Scan(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRevokeAll(t *testing.T) {
	db := setupTestDB(t)
	fake := clock.NewFakeClock(time.Unix(1_700_000_000, 0))
	svc := newTestService(t, db, fake, config.ExpiryPolicyReplace)

	_, err := svc.Grant(context.Background(), 42, "mail_combo", 30)
	require.NoError(t, err)
	_, err = svc.Grant(context.Background(), 42, "url_cloud", 30)
	require.NoError(t, err)

	rows, err := svc.RevokeAll(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rows)

	maxExpiry, err := svc.MaxExpiry(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(0), maxExpiry)
}

func TestListActiveExpiredPartition(t *testing.T) {
	db := setupTestDB(t)
	fake := clock.NewFakeClock(time.Unix(1_700_000_000, 0))
	svc := newTestService(t, db, fake, config.ExpiryPolicyReplace)

	_, err := svc.Grant(context.Background(), 1, "mail_combo", 10)
	require.NoError(t, err)
	_, err = svc.Grant(context.Background(), 2, "mail_combo", 90)
	require.NoError(t, err)
	_, err = svc.Grant(context.Background(), 3, "mail_combo", 30)
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(context.Background(), 3, "mail_combo"))

	active, total, err := svc.ListActive(context.Background(), pagination.Pagination{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, active, 2)
	// Soonest expiry first.
	assert.Equal(t, int64(1), active[0].UserID)
	assert.Equal(t, int64(2), active[1].UserID)

	expired, total, err := svc.ListExpired(context.Background(), pagination.Pagination{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, expired, 1)
	assert.Equal(t, int64(3), expired[0].UserID)
}

func TestListActivePaginationTotals(t *testing.T) {
	db := setupTestDB(t)
	fake := clock.NewFakeClock(time.Unix(1_700_000_000, 0))
	svc := newTestService(t, db, fake, config.ExpiryPolicyReplace)

	for i := int64(1); i <= 5; i++ {
		_, err := svc.Grant(context.Background(), i, "mail_combo", int(i)*10)
		require.NoError(t, err)
	}

	rows, total, err := svc.ListActive(context.Background(), pagination.Pagination{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(3), rows[0].UserID)
	assert.Equal(t, int64(4), rows[1].UserID)

	// Page beyond the data is empty but keeps the full count.
	rows, total, err = svc.ListActive(context.Background(), pagination.Pagination{Page: 9, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, rows, 0)
}
