// Package trader owns the bot's runtime: the periodic snapshot refresh, the
// feed-connection supervisor and the quote scheduler.
package trader

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/danmarzab/vega-maker/internal/domain"
	"github.com/danmarzab/vega-maker/internal/metrics"
	"github.com/danmarzab/vega-maker/internal/store"
)

// VenueAPI is the snapshot surface of the venue REST client.
type VenueAPI interface {
	Markets(ctx context.Context) ([]domain.Market, error)
	Assets(ctx context.Context) ([]domain.Asset, error)
	Accounts(ctx context.Context, partyID string) ([]domain.Account, error)
	OpenOrders(ctx context.Context, partyID string) ([]domain.Order, error)
	Positions(ctx context.Context, partyID string) ([]domain.Position, error)
}

// FeedClient is a supervised streaming connection. Liveness is polled; a
// closed client is reconnected on the supervisor's next tick.
type FeedClient interface {
	Name() string
	IsClosed() bool
	Reconnect(ctx context.Context) error
}

// Quoter runs one quoting cycle.
type Quoter interface {
	Quote(ctx context.Context) error
}

// Config carries the scheduling intervals and the identity of the single
// quoted market.
type Config struct {
	MarketID          string
	PartyID           string
	SnapshotInterval  time.Duration
	KeepaliveInterval time.Duration
	QuoteInterval     time.Duration
}

// startupDelay gives the feeds and the first snapshot a head start before the
// supervisor and the quoter begin ticking.
const startupDelay = 3 * time.Second

type Trader struct {
	cfg     Config
	api     VenueAPI
	feeds   []FeedClient
	quoter  Quoter
	store   *store.Store
	metrics *metrics.Metrics
	log     *zap.Logger
}

func New(cfg Config, api VenueAPI, feeds []FeedClient, q Quoter, st *store.Store, m *metrics.Metrics, log *zap.Logger) *Trader {
	return &Trader{
		cfg:     cfg,
		api:     api,
		feeds:   feeds,
		quoter:  q,
		store:   st,
		metrics: m,
		log:     log.Named("trader"),
	}
}

// Run loads the initial snapshot, then drives the three periodic loops until
// the context is cancelled.
func (t *Trader) Run(ctx context.Context) {
	t.refreshSnapshot(ctx)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		t.runLoop(ctx, "snapshot", 0, t.cfg.SnapshotInterval, t.refreshSnapshot)
	}()
	go func() {
		defer wg.Done()
		t.runLoop(ctx, "supervisor", startupDelay, t.cfg.KeepaliveInterval, t.superviseFeeds)
	}()
	go func() {
		defer wg.Done()
		t.runLoop(ctx, "quote", startupDelay, t.cfg.QuoteInterval, t.quoteOnce)
	}()
	wg.Wait()
}

// runLoop ticks fn on a fixed period, recovering panics so one bad cycle
// never unschedules the task.
func (t *Trader) runLoop(ctx context.Context, name string, delay, interval time.Duration, fn func(context.Context)) {
	if delay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			t.log.Info("loop stopped", zap.String("loop", name))
			return
		case <-ticker.C:
			t.protect(name, func() { fn(ctx) })
		}
	}
}

func (t *Trader) protect(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			t.log.Error("recovered panic", zap.String("loop", name), zap.Any("panic", r))
		}
	}()
	fn()
}

// refreshSnapshot re-pulls every entity kind from the REST API. Pulls are
// independent; a failing one is logged and the rest still land. The upserts
// are idempotent so overlap with feed updates is harmless.
func (t *Trader) refreshSnapshot(ctx context.Context) {
	assets, err := t.api.Assets(ctx)
	if err != nil {
		t.metrics.SnapshotErrors.Inc()
		t.log.Warn("asset pull failed", zap.Error(err))
	}
	for _, a := range assets {
		t.store.SaveAsset(a)
	}

	accounts, err := t.api.Accounts(ctx, t.cfg.PartyID)
	if err != nil {
		t.metrics.SnapshotErrors.Inc()
		t.log.Warn("account pull failed", zap.Error(err))
	}
	for _, a := range accounts {
		t.store.SaveAccount(a)
	}

	markets, err := t.api.Markets(ctx)
	if err != nil {
		t.metrics.SnapshotErrors.Inc()
		t.log.Warn("market pull failed", zap.Error(err))
	}
	saved := 0
	for _, m := range markets {
		// Only the quoted market is tracked; the venue lists every market.
		if m.ID != t.cfg.MarketID {
			continue
		}
		t.store.SaveMarket(m)
		saved++
	}

	orders, err := t.api.OpenOrders(ctx, t.cfg.PartyID)
	if err != nil {
		t.metrics.SnapshotErrors.Inc()
		t.log.Warn("order pull failed", zap.Error(err))
	}
	for _, o := range orders {
		t.store.SaveOrder(o)
	}

	positions, err := t.api.Positions(ctx, t.cfg.PartyID)
	if err != nil {
		t.metrics.SnapshotErrors.Inc()
		t.log.Warn("position pull failed", zap.Error(err))
	}
	for _, p := range positions {
		t.store.SavePosition(p)
	}

	t.log.Info("snapshot refreshed",
		zap.Int("assets", len(assets)),
		zap.Int("accounts", len(accounts)),
		zap.Int("markets", saved),
		zap.Int("orders", len(orders)),
		zap.Int("positions", len(positions)),
	)
}

// superviseFeeds reconnects any closed feed. Feeds are checked independently
// so one being down never delays the other.
func (t *Trader) superviseFeeds(ctx context.Context) {
	for _, feed := range t.feeds {
		if !feed.IsClosed() {
			continue
		}
		t.log.Info("reconnecting feed", zap.String("feed", feed.Name()))
		t.metrics.FeedReconnects.WithLabelValues(feed.Name()).Inc()
		if err := feed.Reconnect(ctx); err != nil {
			t.log.Warn("reconnect failed", zap.String("feed", feed.Name()), zap.Error(err))
		}
	}
}

func (t *Trader) quoteOnce(ctx context.Context) {
	if err := t.quoter.Quote(ctx); err != nil {
		t.log.Warn("quote cycle failed", zap.Error(err))
	}
}
