package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/peakshop/tollgate/internal/clock"
	"github.com/peakshop/tollgate/internal/config"
	entitlementdomain "github.com/peakshop/tollgate/internal/entitlement/domain"
	entitlementrepo "github.com/peakshop/tollgate/internal/entitlement/repository"
	entitlementservice "github.com/peakshop/tollgate/internal/entitlement/service"
	settlementdomain "github.com/peakshop/tollgate/internal/settlement/domain"
	"github.com/peakshop/tollgate/internal/settlement/provider/nowpayments"
	"github.com/peakshop/tollgate/internal/settlement/repository"
	"github.com/peakshop/tollgate/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testSecret = "ipn-test-secret"

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) SendMessage(ctx context.Context, userID int64, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, fmt.Sprintf("%d:%s", userID, message))
	return nil
}

type fixture struct {
	db          *gorm.DB
	fake        *clock.FakeClock
	verifier    *nowpayments.Verifier
	notifier    *recordingNotifier
	svc         settlementdomain.Service
	entitlement entitlementdomain.Service
}

func setup(t *testing.T, allowLegacy bool) *fixture {
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
	require.NoError(t, db.Exec(`CREATE TABLE processed_payments (
		payment_id TEXT PRIMARY KEY,
		processed_at INTEGER NOT NULL
	)`).Error)
	require.NoError(t, db.Exec(`CREATE TABLE purchases (
		id INTEGER PRIMARY KEY,
		user_id INTEGER NOT NULL,
		package_code TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		price_usd INTEGER NOT NULL,
		purchased_at INTEGER NOT NULL
	)`).Error)

	fake := clock.NewFakeClock(time.Unix(1_700_000_000, 0))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	catalog := config.NewStaticCatalogHolder(config.DefaultCatalog())

	entitlementSvc := entitlementservice.NewService(entitlementservice.Params{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   node,
		Clock:   fake,
		Config:  config.Config{ExpiryPolicy: config.ExpiryPolicyReplace},
		Catalog: catalog,
		Repo:    entitlementrepo.Provide(),
	})

	verifier := nowpayments.NewVerifier(testSecret)
	notifier := &recordingNotifier{}

	svc := NewService(Params{
		DB:             db,
		Log:            zap.NewNop(),
		GenID:          node,
		Clock:          fake,
		Config:         config.Config{AllowLegacyOrderRefs: allowLegacy, NotifyTimeoutMS: 1000},
		Catalog:        catalog,
		Verifier:       verifier,
		Repo:           repository.Provide(),
		EntitlementSvc: entitlementSvc,
		Notifier:       notifier,
	})

	return &fixture{
		db:          db,
		fake:        fake,
		verifier:    verifier,
		notifier:    notifier,
		svc:         svc,
		entitlement: entitlementSvc,
	}
}

func (f *fixture) deliver(t *testing.T, payload string) (settlementdomain.Outcome, error) {
	t.Helper()
	headers := http.Header{}
	headers.Set(nowpayments.SignatureHeader, f.verifier.Sign([]byte(payload)))
	return f.svc.HandleWebhook(context.Background(), []byte(payload), headers)
}

func (f *fixture) processedCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Raw(`SELECT COUNT(*) FROM processed_payments`).Scan(&count).Error)
	return count
}

func TestFinishedSubscriptionSettles(t *testing.T) {
	f := setup(t, false)

	outcome, err := f.deliver(t, `{"payment_status":"finished","payment_id":1001,"order_id":"sub:42:mail_combo:30"}`)
	require.NoError(t, err)
	assert.Equal(t, settlementdomain.OutcomeOK, outcome)

	got, err := f.entitlement.Get(context.Background(), 42, "mail_combo")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, f.fake.Now().Unix()+30*86400, got.ExpiresAt)
	assert.Equal(t, int64(1), f.processedCount(t))
}

func TestReplayIsDuplicateIgnored(t *testing.T) {
	f := setup(t, false)
	payload := `{"payment_status":"finished","payment_id":1001,"order_id":"sub:42:mail_combo:30"}`

	outcome, err := f.deliver(t, payload)
	require.NoError(t, err)
	assert.Equal(t, settlementdomain.OutcomeOK, outcome)

	first, err := f.entitlement.Get(context.Background(), 42, "mail_combo")
	require.NoError(t, err)

	// N redeliveries: exactly one mutation, N-1 duplicates.
	for i := 0; i < 4; i++ {
		f.fake.Advance(time.Minute)
		outcome, err = f.deliver(t, payload)
		require.NoError(t, err)
		assert.Equal(t, settlementdomain.OutcomeDuplicate, outcome)
	}

	after, err := f.entitlement.Get(context.Background(), 42, "mail_combo")
	require.NoError(t, err)
	assert.Equal(t, first.ExpiresAt, after.ExpiresAt)
	assert.Equal(t, int64(1), f.processedCount(t))
}

func TestConcurrentDeliveriesSettleOnce(t *testing.T) {
	f := setup(t, false)
	payload := `{"payment_status":"finished","payment_id":1001,"order_id":"sub:42:mail_combo:30"}`

	// Serialize at the pool so sqlite never reports busy; the claim on
	// processed_payments still decides which delivery wins.
	sqlDB, err := f.db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	const deliveries = 8
	outcomes := make(chan settlementdomain.Outcome, deliveries)
	errs := make(chan error, deliveries)
	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := f.deliver(t, payload)
			outcomes <- outcome
			errs <- err
		}()
	}
	wg.Wait()
	close(outcomes)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	counts := map[settlementdomain.Outcome]int{}
	for outcome := range outcomes {
		counts[outcome]++
	}
	assert.Equal(t, 1, counts[settlementdomain.OutcomeOK])
	assert.Equal(t, deliveries-1, counts[settlementdomain.OutcomeDuplicate])
	assert.Equal(t, int64(1), f.processedCount(t))

	got, err := f.entitlement.Get(context.Background(), 42, "mail_combo")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, f.fake.Now().Unix()+30*86400, got.ExpiresAt)
}

func TestNonTerminalStatusesIgnored(t *testing.T) {
	f := setup(t, false)

	for i, status := range []string{
		"waiting", "confirming", "confirmed", "sending",
		"partially_paid", "expired", "failed", "refunded",
	} {
		payload := fmt.Sprintf(`{"payment_status":%q,"payment_id":%d,"order_id":"sub:42:mail_combo:30"}`, status, 2000+i)
		outcome, err := f.deliver(t, payload)
		require.NoError(t, err)
		assert.Equal(t, settlementdomain.OutcomeIgnored, outcome, "status %s", status)
	}

	// Nothing was claimed or granted.
	assert.Equal(t, int64(0), f.processedCount(t))
	got, err := f.entitlement.Get(context.Background(), 42, "mail_combo")
	require.NoError(t, err)
	assert.Nil(t, got)

	// The same payment id can still settle once it finishes.
	outcome, err := f.deliver(t, `{"payment_status":"finished","payment_id":2000,"order_id":"sub:42:mail_combo:30"}`)
	require.NoError(t, err)
	assert.Equal(t, settlementdomain.OutcomeOK, outcome)
}

func TestTamperedPayloadRejectedBeforeAnyWrite(t *testing.T) {
	f := setup(t, false)

	payload := []byte(`{"payment_status":"finished","payment_id":3001,"order_id":"sub:42:mail_combo:30"}`)
	headers := http.Header{}
	headers.Set(nowpayments.SignatureHeader, f.verifier.Sign(payload))

	tampered := []byte(`{"payment_status":"finished","payment_id":3001,"order_id":"sub:42:mail_combo:900"}`)
	_, err := f.svc.HandleWebhook(context.Background(), tampered, headers)
	assert.ErrorIs(t, err, settlementdomain.ErrAuthenticationFailed)

	assert.Equal(t, int64(0), f.processedCount(t))
	got, err := f.entitlement.Get(context.Background(), 42, "mail_combo")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestBadOrderReferences(t *testing.T) {
	f := setup(t, false)

	cases := []string{
		`{"payment_status":"finished","payment_id":4001,"order_id":"garbage"}`,
		`{"payment_status":"finished","payment_id":4002,"order_id":"sub:42:30"}`,
		`{"payment_status":"finished","payment_id":4003,"order_id":"sub:42:not_a_category:30"}`,
		`{"payment_status":"finished","payment_id":4004,"order_id":"sub:42:mail_combo:7"}`,
		`{"payment_status":"finished","payment_id":4005,"order_id":"pl:42:999k"}`,
	}
	for _, payload := range cases {
		outcome, err := f.deliver(t, payload)
		require.NoError(t, err)
		assert.Equal(t, settlementdomain.OutcomeBadOrderRef, outcome, "payload %s", payload)
	}

	got, err := f.entitlement.Get(context.Background(), 42, "mail_combo")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLegacyOrderRefBehindFlag(t *testing.T) {
	f := setup(t, true)

	outcome, err := f.deliver(t, `{"payment_status":"finished","payment_id":5001,"order_id":"sub:42:30"}`)
	require.NoError(t, err)
	assert.Equal(t, settlementdomain.OutcomeOK, outcome)

	// Legacy refs land in the first catalog category.
	got, err := f.entitlement.Get(context.Background(), 42, "mail_combo")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 30, got.PlanDays)
}

func TestPackageSettlementWritesLedger(t *testing.T) {
	f := setup(t, false)

	outcome, err := f.deliver(t, `{"payment_status":"finished","payment_id":6001,"order_id":"pl:42:10k"}`)
	require.NoError(t, err)
	assert.Equal(t, settlementdomain.OutcomeOK, outcome)

	rows, total, err := f.svc.ListPurchases(context.Background(), pagination.Pagination{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(42), rows[0].UserID)
	assert.Equal(t, "10k", rows[0].PackageCode)
	assert.Equal(t, int64(10000), rows[0].Quantity)
	assert.Equal(t, int64(50), rows[0].PriceUSD)

	// Replay stays in the ledger exactly once.
	outcome, err = f.deliver(t, `{"payment_status":"finished","payment_id":6001,"order_id":"pl:42:10k"}`)
	require.NoError(t, err)
	assert.Equal(t, settlementdomain.OutcomeDuplicate, outcome)

	_, total, err = f.svc.ListPurchases(context.Background(), pagination.Pagination{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestSettlementNotifies(t *testing.T) {
	f := setup(t, false)

	_, err := f.deliver(t, `{"payment_status":"finished","payment_id":7001,"order_id":"sub:42:mail_combo:30"}`)
	require.NoError(t, err)

	// Notification is async with its own deadline.
	require.Eventually(t, func() bool {
		f.notifier.mu.Lock()
		defer f.notifier.mu.Unlock()
		return len(f.notifier.messages) == 1
	}, time.Second, 10*time.Millisecond)
}
