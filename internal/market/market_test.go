package market_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-s-yu/classbank/internal/ledger"
	"github.com/jason-s-yu/classbank/internal/market"
	"github.com/jason-s-yu/classbank/internal/memstore"
	"github.com/jason-s-yu/classbank/internal/models"
	"github.com/jason-s-yu/classbank/internal/score"
	"github.com/jason-s-yu/classbank/internal/stats"
)

type fixture struct {
	ms  *memstore.MemStore
	st  *stats.Memory
	eng *ledger.Engine
	svc *market.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	ms := memstore.New()
	st := stats.NewMemory()
	eng := ledger.NewEngine(ms, logger)
	eng.AddHook(ledger.TransactionLogHook(logger, ms))
	eng.AddHook(ledger.StatsHook(logger, st, stats.NewIgnoreSet()))
	svc := market.NewService(eng, ms, st, logger)
	return &fixture{ms: ms, st: st, eng: eng, svc: svc}
}

func (f *fixture) account(t *testing.T, name string) uuid.UUID {
	t.Helper()
	a := models.Account{Username: name}
	require.NoError(t, f.ms.CreateAccount(context.Background(), &a))
	raw := score.Raw(float64(a.EarnedLifetime), float64(a.SpentLifetime))
	require.NoError(t, f.st.ApplyDelta(context.Background(), 0, raw, true))
	return a.ID
}

func (f *fixture) item(t *testing.T, name string, cost int64, kind models.ItemKind, threshold int64) uuid.UUID {
	t.Helper()
	it := models.Item{Name: name, Cost: cost, Kind: kind, Threshold: threshold}
	require.NoError(t, f.svc.CreateItem(context.Background(), &it))
	return it.ID
}

func TestPurchase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.account(t, "alice")
	mug := f.item(t, "mug", 5, models.ItemUtility, 0)

	res, err := f.svc.Purchase(ctx, alice, mug)
	require.NoError(t, err)
	assert.False(t, res.AlreadyOwned)
	assert.Equal(t, int64(5), res.Spent)

	a, _ := f.ms.GetAccount(ctx, alice)
	assert.Equal(t, int64(15), a.Credits)
	assert.Equal(t, int64(5), a.SpentLifetime)

	bank, _ := f.ms.BankBalance(ctx)
	assert.Equal(t, int64(5), bank)

	owned, _ := f.ms.Owns(ctx, alice, mug)
	assert.True(t, owned)
}

func TestPurchaseIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.account(t, "alice")
	mug := f.item(t, "mug", 5, models.ItemUtility, 0)

	_, err := f.svc.Purchase(ctx, alice, mug)
	require.NoError(t, err)

	res, err := f.svc.Purchase(ctx, alice, mug)
	require.NoError(t, err)
	assert.True(t, res.AlreadyOwned)
	assert.Equal(t, int64(0), res.Spent)

	// One deduction, one record: the second call charged nothing.
	a, _ := f.ms.GetAccount(ctx, alice)
	assert.Equal(t, int64(15), a.Credits)
	assert.Len(t, f.ms.Records(), 1)
}

func TestPurchaseInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.account(t, "alice")
	yacht := f.item(t, "yacht", 500, models.ItemUtility, 0)

	_, err := f.svc.Purchase(ctx, alice, yacht)
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	// The failed transaction must not leave a granted item behind.
	owned, _ := f.ms.Owns(ctx, alice, yacht)
	assert.False(t, owned)
	a, _ := f.ms.GetAccount(ctx, alice)
	assert.Equal(t, int64(20), a.Credits)
	assert.Equal(t, int64(0), a.SpentLifetime)
}

func TestPurchaseUnknownItem(t *testing.T) {
	f := newFixture(t)
	alice := f.account(t, "alice")

	_, err := f.svc.Purchase(context.Background(), alice, uuid.New())
	assert.ErrorIs(t, err, market.ErrItemNotFound)
}

func TestPurchaseRestrictedAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.account(t, "alice")
	mug := f.item(t, "mug", 5, models.ItemUtility, 0)

	require.NoError(t, f.ms.SetRestriction(ctx, alice, true, nil))
	_, err := f.svc.Purchase(ctx, alice, mug)
	assert.ErrorIs(t, err, ledger.ErrAccountRestricted)

	// An expired timeout no longer restricts.
	past := time.Now().Add(-time.Hour)
	require.NoError(t, f.ms.SetRestriction(ctx, alice, false, &past))
	_, err = f.svc.Purchase(ctx, alice, mug)
	assert.NoError(t, err)
}

func TestRankBadgesUnlockSequentially(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.account(t, "alice")
	bronze := f.item(t, "bronze badge", 2, models.ItemRank, 10)
	silver := f.item(t, "silver badge", 3, models.ItemRank, 50)
	gold := f.item(t, "gold badge", 4, models.ItemRank, 100)

	_, err := f.svc.Purchase(ctx, alice, silver)
	assert.ErrorIs(t, err, ledger.ErrPrerequisiteNotMet)

	_, err = f.svc.Purchase(ctx, alice, bronze)
	require.NoError(t, err)

	_, err = f.svc.Purchase(ctx, alice, gold)
	assert.ErrorIs(t, err, ledger.ErrPrerequisiteNotMet)

	_, err = f.svc.Purchase(ctx, alice, silver)
	require.NoError(t, err)
	_, err = f.svc.Purchase(ctx, alice, gold)
	require.NoError(t, err)
}

// staleOwnsStore always reports the item as unowned, standing in for a
// pre-transaction ownership read that races a concurrent purchase.
type staleOwnsStore struct {
	market.Store
}

func (s *staleOwnsStore) Owns(ctx context.Context, account, item uuid.UUID) (bool, error) {
	return false, nil
}

func TestPurchaseDuplicateGrantRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	svc := market.NewService(f.eng, &staleOwnsStore{Store: f.ms}, f.st, logger)

	alice := f.account(t, "alice")
	mug := f.item(t, "mug", 5, models.ItemUtility, 0)

	res, err := svc.Purchase(ctx, alice, mug)
	require.NoError(t, err)
	assert.False(t, res.AlreadyOwned)

	// The stale read lets this purchase past the fast path; the grant
	// inside the payment transaction must catch it and roll the charge
	// back.
	res, err = svc.Purchase(ctx, alice, mug)
	require.NoError(t, err)
	assert.True(t, res.AlreadyOwned)
	assert.Equal(t, int64(0), res.Spent)

	a, _ := f.ms.GetAccount(ctx, alice)
	assert.Equal(t, int64(15), a.Credits)
	assert.Equal(t, int64(5), a.SpentLifetime)
	assert.Len(t, f.ms.Records(), 1)
}

func TestConcurrentPurchasesChargeOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	svc := market.NewService(f.eng, &staleOwnsStore{Store: f.ms}, f.st, logger)

	alice := f.account(t, "alice")
	mug := f.item(t, "mug", 5, models.ItemUtility, 0)

	const n = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	charged := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Purchase(ctx, alice, mug)
			if !assert.NoError(t, err) {
				return
			}
			if !res.AlreadyOwned {
				mu.Lock()
				charged++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, charged, "exactly one concurrent purchase may charge")
	a, _ := f.ms.GetAccount(ctx, alice)
	assert.Equal(t, int64(15), a.Credits)
	assert.Len(t, f.ms.Records(), 1)
}

func TestRankItemsEqualThresholdOrderIsStable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.account(t, "alice")
	// Created out of name order on purpose; the chain must still be
	// alphabetical within the shared threshold.
	beta := f.item(t, "beta badge", 2, models.ItemRank, 10)
	alpha := f.item(t, "alpha badge", 2, models.ItemRank, 10)

	_, err := f.svc.Purchase(ctx, alice, beta)
	assert.ErrorIs(t, err, ledger.ErrPrerequisiteNotMet)

	_, err = f.svc.Purchase(ctx, alice, alpha)
	require.NoError(t, err)
	_, err = f.svc.Purchase(ctx, alice, beta)
	require.NoError(t, err)
}

func TestPurchaseRefreshesCourseCredits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.account(t, "alice")
	f.account(t, "bob")
	mug := f.item(t, "mug", 8, models.ItemUtility, 0)

	_, err := f.svc.Purchase(ctx, alice, mug)
	require.NoError(t, err)

	snap, err := f.st.Read(ctx)
	require.NoError(t, err)
	want := score.CourseCredits(20, 8, snap.Mean(), snap.StdDev())

	a, _ := f.ms.GetAccount(ctx, alice)
	assert.InDelta(t, want, a.CourseCredits, 1e-9)
}
