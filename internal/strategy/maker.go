// Package strategy implements the quoting engine: a periodic decision loop
// that requotes both sides of a single target market around an external
// reference price, skewing size away from existing inventory.
package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/danmarzab/vega-maker/internal/domain"
	"github.com/danmarzab/vega-maker/internal/metrics"
	"github.com/danmarzab/vega-maker/internal/notifier"
	"github.com/danmarzab/vega-maker/internal/num"
	"github.com/danmarzab/vega-maker/internal/store"
	"github.com/danmarzab/vega-maker/internal/vega"
)

const (
	priceLevels = 5
	// Price step per level, 0.2% away from the reference on each side.
	levelStep = 0.002
	// Fraction of the settlement balance committed per side before skew.
	balanceFraction = 0.5
)

// Submitter sends a signed batch instruction and confirms its transaction.
// *vega.Client satisfies it; tests substitute a fake.
type Submitter interface {
	SendBatch(ctx context.Context, batch domain.BatchMarketInstruction) (string, error)
	ConfirmTransaction(ctx context.Context, txHash string) (vega.TxResult, error)
}

// MakerConfig pins the one market and reference symbol the engine quotes.
type MakerConfig struct {
	MarketID      string
	PartyID       string
	BinanceMarket string
}

// Maker quotes a ladder of limit orders on both sides of the target market.
// Each call to Quote is one self-contained cycle; failures end the cycle and
// never escape to the scheduler.
type Maker struct {
	cfg       MakerConfig
	store     *store.Store
	refStore  *store.ReferenceStore
	submitter Submitter
	notifier  notifier.Notifier
	metrics   *metrics.Metrics
	log       *zap.Logger
}

func NewMaker(cfg MakerConfig, st *store.Store, refs *store.ReferenceStore, sub Submitter, n notifier.Notifier, m *metrics.Metrics, log *zap.Logger) *Maker {
	return &Maker{
		cfg:       cfg,
		store:     st,
		refStore:  refs,
		submitter: sub,
		notifier:  n,
		metrics:   m,
		log:       log.Named("maker"),
	}
}

// Quote runs one quoting cycle. A nil return means either a submitted batch
// or a deliberate skip; errors are reported for logging only and never abort
// the scheduler.
func (mk *Maker) Quote(ctx context.Context) error {
	mk.metrics.QuoteCycles.Inc()

	market, ok := mk.store.Market(mk.cfg.MarketID)
	if !ok {
		mk.log.Debug("target market not loaded yet", zap.String("market_id", mk.cfg.MarketID))
		return nil
	}
	ref, ok := mk.refStore.BySymbol(mk.cfg.BinanceMarket)
	if !ok {
		ref = domain.ReferencePrice{Symbol: mk.cfg.BinanceMarket}
	}
	if ref.BidPrice <= 0 || ref.AskPrice <= 0 {
		mk.log.Debug("no usable reference price", zap.String("symbol", mk.cfg.BinanceMarket))
		return nil
	}

	openVolume, entryPrice, err := mk.positionFigures(market)
	if err != nil {
		return fmt.Errorf("reading position: %w", err)
	}
	balance, err := mk.settlementBalance(market)
	if err != nil {
		return fmt.Errorf("computing balance: %w", err)
	}

	// Inventory notional skews each side's target so quoting leans away from
	// the direction that would grow the exposure.
	exposure := openVolume.Mul(entryPrice)
	half := balance.Mul(decimal.NewFromFloat(balanceFraction))
	bidVolume := maxZero(half.Sub(exposure))
	offerVolume := maxZero(half.Add(exposure))

	cancellations := mk.cancelLiveOrders()
	submissions := mk.buildLadder(market, domain.OrderSideBuy, decimal.NewFromFloat(ref.BidPrice), bidVolume)
	submissions = append(submissions, mk.buildLadder(market, domain.OrderSideSell, decimal.NewFromFloat(ref.AskPrice), offerVolume)...)

	mk.log.Info("quoting",
		zap.String("market_id", market.ID),
		zap.String("open_volume", openVolume.String()),
		zap.String("entry_price", entryPrice.String()),
		zap.String("exposure", exposure.String()),
		zap.String("bid_volume", bidVolume.String()),
		zap.String("offer_volume", offerVolume.String()),
		zap.Int("cancellations", len(cancellations)),
		zap.Int("submissions", len(submissions)),
	)
	if len(cancellations) == 0 && len(submissions) == 0 {
		return nil
	}

	batch := domain.BatchMarketInstruction{
		Cancellations: cancellations,
		Amendments:    []domain.OrderAmendment{},
		Submissions:   submissions,
	}
	started := time.Now()
	txHash, err := mk.submitter.SendBatch(ctx, batch)
	mk.metrics.SubmitLatency.Observe(time.Since(started).Seconds())
	if err != nil {
		mk.metrics.BatchesFailed.Inc()
		if nerr := mk.notifier.SendWithRetry(fmt.Sprintf("batch submission failed: %v", err)); nerr != nil {
			mk.log.Warn("notifier failed", zap.Error(nerr))
		}
		return fmt.Errorf("submitting batch: %w", err)
	}
	mk.metrics.BatchesOK.Inc()
	mk.log.Info("batch submitted", zap.String("tx_hash", txHash))

	mk.confirm(ctx, txHash)
	return nil
}

// positionFigures converts the party's open volume and average entry price
// into decimals. An absent position means flat.
func (mk *Maker) positionFigures(market domain.Market) (openVolume, entryPrice decimal.Decimal, err error) {
	pos, ok := mk.store.Position(market.ID)
	if !ok {
		return decimal.Zero, decimal.Zero, nil
	}
	openVolume, err = num.ToDecimal(int32(market.PositionDecimalPlaces), pos.OpenVolume)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("open volume %q: %w", pos.OpenVolume, err)
	}
	entryPrice, err = num.ToDecimal(int32(market.DecimalPlaces), pos.AverageEntryPrice)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("entry price %q: %w", pos.AverageEntryPrice, err)
	}
	return openVolume, entryPrice, nil
}

// settlementBalance sums the party's accounts denominated in the market's
// settlement asset.
func (mk *Maker) settlementBalance(market domain.Market) (decimal.Decimal, error) {
	assetID := market.SettlementAssetID()
	asset, ok := mk.store.Asset(assetID)
	if !ok {
		return decimal.Zero, fmt.Errorf("settlement asset %q not loaded", assetID)
	}
	total := decimal.Zero
	for _, acc := range mk.store.Accounts() {
		if acc.Owner != mk.cfg.PartyID || acc.Asset != assetID {
			continue
		}
		bal, err := num.ToDecimal(asset.Decimals(), acc.Balance)
		if err != nil {
			return decimal.Zero, fmt.Errorf("balance %q: %w", acc.Balance, err)
		}
		total = total.Add(bal)
	}
	return total, nil
}

// cancelLiveOrders cancels every live order regardless of market. With a
// single quoted market this clears exactly the bot's own ladder.
func (mk *Maker) cancelLiveOrders() []domain.OrderCancellation {
	cancellations := []domain.OrderCancellation{}
	for _, o := range mk.store.Orders() {
		if !o.Live() {
			continue
		}
		cancellations = append(cancellations, domain.OrderCancellation{
			OrderID:  o.ID,
			MarketID: o.MarketID,
		})
	}
	return cancellations
}

// buildLadder emits the per-side price levels. A zero target volume emits
// nothing for that side.
func (mk *Maker) buildLadder(market domain.Market, side string, ref, targetVolume decimal.Decimal) []domain.OrderSubmission {
	if !targetVolume.IsPositive() {
		return nil
	}
	size := targetVolume.Div(ref.Mul(decimal.NewFromInt(priceLevels)))
	sizeRaw := num.ToIntegerString(int32(market.PositionDecimalPlaces), size)

	subs := make([]domain.OrderSubmission, 0, priceLevels)
	for i := 1; i <= priceLevels; i++ {
		offset := decimal.NewFromFloat(levelStep).Mul(decimal.NewFromInt(int64(i)))
		var price decimal.Decimal
		if side == domain.OrderSideBuy {
			price = ref.Mul(decimal.NewFromInt(1).Sub(offset))
		} else {
			price = ref.Mul(decimal.NewFromInt(1).Add(offset))
		}
		subs = append(subs, domain.OrderSubmission{
			MarketID:    market.ID,
			Size:        sizeRaw,
			Price:       num.ToIntegerString(int32(market.DecimalPlaces), price),
			TimeInForce: domain.TimeInForceGTC,
			Type:        domain.OrderTypeLimit,
			Side:        side,
		})
	}
	return subs
}

// confirm polls the transaction result for the submitted batch. A nonzero
// code is a definitive on-chain rejection and is only logged; resubmitting
// is not safe.
func (mk *Maker) confirm(ctx context.Context, txHash string) {
	result, err := mk.submitter.ConfirmTransaction(ctx, txHash)
	switch {
	case err != nil:
		mk.metrics.TxResults.WithLabelValues("not_found").Inc()
		mk.log.Warn("transaction result unavailable", zap.String("tx_hash", txHash), zap.Error(err))
	case result.Code != 0:
		mk.metrics.TxResults.WithLabelValues("rejected").Inc()
		mk.log.Error("transaction rejected",
			zap.String("tx_hash", txHash),
			zap.Int("code", result.Code),
			zap.String("info", result.Info),
		)
	default:
		mk.metrics.TxResults.WithLabelValues("ok").Inc()
	}
}

func maxZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
