package trader

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/danmarzab/vega-maker/internal/domain"
	"github.com/danmarzab/vega-maker/internal/metrics"
	"github.com/danmarzab/vega-maker/internal/store"
)

type fakeAPI struct {
	markets   []domain.Market
	assets    []domain.Asset
	accounts  []domain.Account
	orders    []domain.Order
	positions []domain.Position

	marketsErr error
	assetsErr  error
}

func (f *fakeAPI) Markets(context.Context) ([]domain.Market, error) {
	return f.markets, f.marketsErr
}
func (f *fakeAPI) Assets(context.Context) ([]domain.Asset, error) {
	return f.assets, f.assetsErr
}
func (f *fakeAPI) Accounts(context.Context, string) ([]domain.Account, error) {
	return f.accounts, nil
}
func (f *fakeAPI) OpenOrders(context.Context, string) ([]domain.Order, error) {
	return f.orders, nil
}
func (f *fakeAPI) Positions(context.Context, string) ([]domain.Position, error) {
	return f.positions, nil
}

type fakeFeed struct {
	name       string
	closed     atomic.Bool
	reconnects atomic.Int32
	fail       bool
}

func (f *fakeFeed) Name() string   { return f.name }
func (f *fakeFeed) IsClosed() bool { return f.closed.Load() }
func (f *fakeFeed) Reconnect(context.Context) error {
	f.reconnects.Add(1)
	if f.fail {
		return errors.New("dial failed")
	}
	f.closed.Store(false)
	return nil
}

type countingQuoter struct {
	calls atomic.Int32
	panic bool
}

func (q *countingQuoter) Quote(context.Context) error {
	q.calls.Add(1)
	if q.panic {
		panic("boom")
	}
	return nil
}

func newTestTrader(api VenueAPI, feeds []FeedClient, q Quoter, st *store.Store) *Trader {
	cfg := Config{
		MarketID:          "M",
		PartyID:           "P",
		SnapshotInterval:  time.Hour,
		KeepaliveInterval: time.Hour,
		QuoteInterval:     time.Hour,
	}
	return New(cfg, api, feeds, q, st, metrics.New(), zap.NewNop())
}

func TestRefreshSnapshotKeepsOnlyTargetMarket(t *testing.T) {
	api := &fakeAPI{
		markets: []domain.Market{{ID: "M"}, {ID: "other"}},
		assets:  []domain.Asset{{ID: "A"}},
		accounts: []domain.Account{
			{Owner: "P", Asset: "A", Type: "ACCOUNT_TYPE_GENERAL", Balance: "1"},
		},
		orders:    []domain.Order{{ID: "o1", Status: domain.OrderStatusActive}},
		positions: []domain.Position{{MarketID: "M", OpenVolume: "5"}},
	}
	st := store.New()
	tr := newTestTrader(api, nil, &countingQuoter{}, st)

	tr.refreshSnapshot(context.Background())

	_, ok := st.Market("M")
	assert.True(t, ok)
	_, ok = st.Market("other")
	assert.False(t, ok)
	assert.Len(t, st.Assets(), 1)
	assert.Len(t, st.Accounts(), 1)
	assert.Len(t, st.Orders(), 1)
	assert.Len(t, st.Positions(), 1)
}

func TestRefreshSnapshotSurvivesPartialFailure(t *testing.T) {
	api := &fakeAPI{
		marketsErr: errors.New("unreachable"),
		assetsErr:  errors.New("unreachable"),
		positions:  []domain.Position{{MarketID: "M", OpenVolume: "5"}},
	}
	st := store.New()
	tr := newTestTrader(api, nil, &countingQuoter{}, st)

	tr.refreshSnapshot(context.Background())

	// Failing pulls must not stop the surviving ones from landing.
	assert.Empty(t, st.Markets())
	assert.Len(t, st.Positions(), 1)
}

func TestSuperviseFeedsReconnectsIndependently(t *testing.T) {
	down := &fakeFeed{name: "down"}
	down.closed.Store(true)
	up := &fakeFeed{name: "up"}
	broken := &fakeFeed{name: "broken", fail: true}
	broken.closed.Store(true)

	tr := newTestTrader(&fakeAPI{}, []FeedClient{down, broken, up}, &countingQuoter{}, store.New())
	tr.superviseFeeds(context.Background())

	assert.EqualValues(t, 1, down.reconnects.Load())
	assert.False(t, down.IsClosed())
	assert.EqualValues(t, 0, up.reconnects.Load())
	// A feed that fails to reconnect stays closed for the next tick and does
	// not block the healthy ones.
	assert.EqualValues(t, 1, broken.reconnects.Load())
	assert.True(t, broken.IsClosed())

	tr.superviseFeeds(context.Background())
	assert.EqualValues(t, 1, down.reconnects.Load())
	assert.EqualValues(t, 2, broken.reconnects.Load())
}

func TestProtectRecoversPanic(t *testing.T) {
	q := &countingQuoter{panic: true}
	tr := newTestTrader(&fakeAPI{}, nil, q, store.New())

	require.NotPanics(t, func() {
		tr.protect("quote", func() { tr.quoteOnce(context.Background()) })
	})
	assert.EqualValues(t, 1, q.calls.Load())
}

func TestRunLoopTicksAndStops(t *testing.T) {
	tr := newTestTrader(&fakeAPI{}, nil, &countingQuoter{}, store.New())

	var ticks atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tr.runLoop(ctx, "test", 0, 5*time.Millisecond, func(context.Context) { ticks.Add(1) })
		close(done)
	}()

	require.Eventually(t, func() bool { return ticks.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop on cancel")
	}
}
