package migration

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	accesstokendomain "github.com/peakshop/tollgate/internal/accesstoken/domain"
	accesstokenrepository "github.com/peakshop/tollgate/internal/accesstoken/repository"
	accountdomain "github.com/peakshop/tollgate/internal/account/domain"
	accountrepository "github.com/peakshop/tollgate/internal/account/repository"
	entitlementdomain "github.com/peakshop/tollgate/internal/entitlement/domain"
	entitlementrepository "github.com/peakshop/tollgate/internal/entitlement/repository"
	settlementdomain "github.com/peakshop/tollgate/internal/settlement/domain"
	settlementrepository "github.com/peakshop/tollgate/internal/settlement/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// setupMigratedDB builds the schema from the embedded migration SQL
// itself, so a column drifting between the migration and the model
// layer fails here instead of in production.
func setupMigratedDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	raw, err := embeddedMigrations.ReadFile("sql/000001_init.up.sql")
	require.NoError(t, err)

	for _, stmt := range strings.Split(string(raw), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		require.NoError(t, db.Exec(stmt).Error, "statement: %s", stmt)
	}
	return db
}

func TestMigratedSchemaMatchesUserRepository(t *testing.T) {
	db := setupMigratedDB(t)
	repo := accountrepository.Provide()
	ctx := context.Background()

	now := int64(1_700_000_000)
	require.NoError(t, repo.Upsert(ctx, db, &accountdomain.User{
		UserID:    42,
		Username:  "alice",
		FirstName: "Alice",
		StartedAt: now,
		LastSeen:  now,
	}))

	require.NoError(t, repo.Upsert(ctx, db, &accountdomain.User{
		UserID:    42,
		Username:  "alice2",
		FirstName: "Alice",
		StartedAt: now + 3600,
		LastSeen:  now + 3600,
	}))

	got, err := repo.Find(ctx, db, 42)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice2", got.Username)
	assert.Equal(t, now, got.StartedAt)
	assert.Equal(t, now+3600, got.LastSeen)

	rows, total, err := repo.List(ctx, db, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, rows, 1)
}

func TestMigratedSchemaMatchesEntitlementRepository(t *testing.T) {
	db := setupMigratedDB(t)
	repo := entitlementrepository.Provide()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	ctx := context.Background()

	now := int64(1_700_000_000)
	require.NoError(t, repo.Upsert(ctx, db, &entitlementdomain.Entitlement{
		ID:        node.Generate(),
		UserID:    42,
		Category:  "mail_combo",
		ExpiresAt: now + 30*86400,
		PlanDays:  30,
		StartsAt:  now,
	}))

	maxExpiry, err := repo.MaxExpiry(ctx, db, 42)
	require.NoError(t, err)
	assert.Equal(t, now+30*86400, maxExpiry)

	rows, total, err := repo.ListActive(ctx, db, now, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, rows, 1)
}

func TestMigratedSchemaMatchesTokenRepository(t *testing.T) {
	db := setupMigratedDB(t)
	repo := accesstokenrepository.Provide()
	ctx := context.Background()

	now := int64(1_700_000_000)
	require.NoError(t, repo.Insert(ctx, db, &accesstokendomain.AccessToken{
		Token:     "tok-abc",
		UserID:    42,
		ExpiresAt: now + 600,
	}))

	got, err := repo.Find(ctx, db, "tok-abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(42), got.UserID)

	deleted, err := repo.DeleteExpired(ctx, db, now+601)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestMigratedSchemaMatchesSettlementRepository(t *testing.T) {
	db := setupMigratedDB(t)
	repo := settlementrepository.Provide()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	ctx := context.Background()

	now := int64(1_700_000_000)
	claimed, err := repo.MarkProcessed(ctx, db, "pay-1", now)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = repo.MarkProcessed(ctx, db, "pay-1", now)
	require.NoError(t, err)
	assert.False(t, claimed)

	require.NoError(t, repo.InsertPurchase(ctx, db, &settlementdomain.Purchase{
		ID:          node.Generate(),
		UserID:      42,
		PackageCode: "10k",
		Quantity:    10000,
		PriceUSD:    50,
		PurchasedAt: now,
	}))

	rows, total, err := repo.ListPurchases(ctx, db, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, rows, 1)
}
