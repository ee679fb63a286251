package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	accesstokendomain "github.com/peakshop/tollgate/internal/accesstoken/domain"
	"github.com/peakshop/tollgate/internal/accesstoken/repository"
	"github.com/peakshop/tollgate/internal/clock"
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

	require.NoError(t, db.Exec(`CREATE TABLE access_tokens (
		token TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	)`).Error)

	return db
}

func newTestService(t *testing.T, db *gorm.DB, fake *clock.FakeClock) accesstokendomain.Service {
	t.Helper()

	return NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: fake,
		Repo:  repository.Provide(),
	})
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	fake := clock.NewFakeClock(time.Unix(1_700_000_000, 0))
	svc := newTestService(t, db, fake)

	issued, err := svc.Issue(context.Background(), 42, 600)
	require.NoError(t, err)
	assert.Equal(t, int64(1_700_000_600), issued.ExpiresAt)
	// 32 random bytes in unpadded base64url.
	assert.Len(t, issued.Token, 43)

	verified, err := svc.Verify(context.Background(), issued.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), verified.UserID)
	assert.Equal(t, issued.ExpiresAt, verified.ExpiresAt)

	// Verify does not consume the token.
	_, err = svc.Verify(context.Background(), issued.Token)
	require.NoError(t, err)
}

func TestIssueRejectsBadInput(t *testing.T) {
	db := setupTestDB(t)
	fake := clock.NewFakeClock(time.Unix(1_700_000_000, 0))
	svc := newTestService(t, db, fake)

	_, err := svc.Issue(context.Background(), 0, 600)
	assert.ErrorIs(t, err, accesstokendomain.ErrInvalidUser)

	_, err = svc.Issue(context.Background(), 42, 0)
	assert.ErrorIs(t, err, accesstokendomain.ErrInvalidTTL)

	_, err = svc.Issue(context.Background(), 42, -5)
	assert.ErrorIs(t, err, accesstokendomain.ErrInvalidTTL)
}

func TestTokensAreUnique(t *testing.T) {
	db := setupTestDB(t)
	fake := clock.NewFakeClock(time.Unix(1_700_000_000, 0))
	svc := newTestService(t, db, fake)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		issued, err := svc.Issue(context.Background(), 42, 600)
		require.NoError(t, err)
		require.False(t, seen[issued.Token])
		seen[issued.Token] = true
	}
}

func TestVerifyUnknownToken(t *testing.T) {
	db := setupTestDB(t)
	fake := clock.NewFakeClock(time.Unix(1_700_000_000, 0))
	svc := newTestService(t, db, fake)

	_, err := svc.Verify(context.Background(), "nope")
	assert.ErrorIs(t, err, accesstokendomain.ErrTokenInvalid)

	_, err = svc.Verify(context.Background(), "")
	assert.ErrorIs(t, err, accesstokendomain.ErrTokenInvalid)
}

func TestVerifyExpiredTokenDeletesRow(t *testing.T) {
	db := setupTestDB(t)
	fake := clock.NewFakeClock(time.Unix(1_700_000_000, 0))
	svc := newTestService(t, db, fake)

	issued, err := svc.Issue(context.Background(), 42, 600)
	require.NoError(t, err)

	fake.Advance(601 * time.Second)
	_, err = svc.Verify(context.Background(), issued.Token)
	assert.ErrorIs(t, err, accesstokendomain.ErrTokenExpired)

	var count int64
	require.NoError(t, db.Raw(`SELECT COUNT(*) FROM access_tokens`).Scan(&count).Error)
	assert.Equal(t, int64(0), count)

	// A second presentation now reads as unknown.
	_, err = svc.Verify(context.Background(), issued.Token)
	assert.ErrorIs(t, err, accesstokendomain.ErrTokenInvalid)
}

func TestSweepExpired(t *testing.T) {
	db := setupTestDB(t)
	fake := clock.NewFakeClock(time.Unix(1_700_000_000, 0))
	svc := newTestService(t, db, fake)

	_, err := svc.Issue(context.Background(), 1, 60)
	require.NoError(t, err)
	_, err = svc.Issue(context.Background(), 2, 600)
	require.NoError(t, err)
	live, err := svc.Issue(context.Background(), 3, 3600)
	require.NoError(t, err)

	fake.Advance(601 * time.Second)
	deleted, err := svc.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, err = svc.Verify(context.Background(), live.Token)
	require.NoError(t, err)

	// Sweep is idempotent.
	deleted, err = svc.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)
}
