package strategy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/danmarzab/vega-maker/internal/domain"
	"github.com/danmarzab/vega-maker/internal/metrics"
	"github.com/danmarzab/vega-maker/internal/notifier"
	"github.com/danmarzab/vega-maker/internal/store"
	"github.com/danmarzab/vega-maker/internal/vega"
)

type fakeSubmitter struct {
	batches   []domain.BatchMarketInstruction
	confirmed []string
	sendErr   error
	txResult  vega.TxResult
}

func (f *fakeSubmitter) SendBatch(_ context.Context, batch domain.BatchMarketInstruction) (string, error) {
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.batches = append(f.batches, batch)
	return "tx-1", nil
}

func (f *fakeSubmitter) ConfirmTransaction(_ context.Context, txHash string) (vega.TxResult, error) {
	f.confirmed = append(f.confirmed, txHash)
	return f.txResult, nil
}

type recordingNotifier struct {
	messages []string
}

func (n *recordingNotifier) Send(msg string) error          { n.messages = append(n.messages, msg); return nil }
func (n *recordingNotifier) SendWithRetry(msg string) error { return n.Send(msg) }

func quotedMarket() domain.Market {
	return domain.Market{
		ID:                    "M",
		State:                 "STATE_ACTIVE",
		TradingMode:           "TRADING_MODE_CONTINUOUS",
		DecimalPlaces:         2,
		PositionDecimalPlaces: 2,
		TradableInstrument: &domain.TradableInstrument{
			Instrument: domain.Instrument{
				Code:   "BTCUSD",
				Future: &domain.Future{SettlementAsset: "A"},
			},
		},
	}
}

func newTestMaker(st *store.Store, refs *store.ReferenceStore, sub Submitter, n notifier.Notifier) *Maker {
	cfg := MakerConfig{MarketID: "M", PartyID: "P", BinanceMarket: "BTCUSDT"}
	return NewMaker(cfg, st, refs, sub, n, metrics.New(), zap.NewNop())
}

func seedScenario(st *store.Store, refs *store.ReferenceStore) {
	st.SaveMarket(quotedMarket())
	st.SaveAsset(domain.Asset{ID: "A", Details: &domain.AssetDetails{Decimals: 2}})
	st.SaveAccount(domain.Account{Owner: "P", Asset: "A", Type: "ACCOUNT_TYPE_GENERAL", Balance: "100000"})
	refs.Save(domain.ReferencePrice{Symbol: "BTCUSDT", BidPrice: 100, AskPrice: 101})
}

func TestQuoteSkipsWithoutMarket(t *testing.T) {
	st, refs := store.New(), store.NewReferenceStore()
	refs.Save(domain.ReferencePrice{Symbol: "BTCUSDT", BidPrice: 100, AskPrice: 101})
	sub := &fakeSubmitter{}

	mk := newTestMaker(st, refs, sub, notifier.NewNoop())
	require.NoError(t, mk.Quote(context.Background()))
	assert.Empty(t, sub.batches)
}

func TestQuoteSkipsWithoutReferencePrice(t *testing.T) {
	st, refs := store.New(), store.NewReferenceStore()
	seedScenario(st, refs)
	sub := &fakeSubmitter{}
	mk := newTestMaker(st, refs, sub, notifier.NewNoop())

	for _, ref := range []domain.ReferencePrice{
		{Symbol: "BTCUSDT"},
		{Symbol: "BTCUSDT", BidPrice: 0, AskPrice: 101},
		{Symbol: "BTCUSDT", BidPrice: 100, AskPrice: 0},
	} {
		refs.Save(ref)
		require.NoError(t, mk.Quote(context.Background()))
	}
	assert.Empty(t, sub.batches)
}

func TestQuoteZeroBalanceEmitsNothing(t *testing.T) {
	st, refs := store.New(), store.NewReferenceStore()
	seedScenario(st, refs)
	st.SaveAccount(domain.Account{Owner: "P", Asset: "A", Type: "ACCOUNT_TYPE_GENERAL", Balance: "0"})
	sub := &fakeSubmitter{}

	mk := newTestMaker(st, refs, sub, notifier.NewNoop())
	require.NoError(t, mk.Quote(context.Background()))
	// Both target volumes clamp to zero and there is nothing to cancel, so
	// no batch goes out at all.
	assert.Empty(t, sub.batches)
}

func TestQuoteSkewSuppressesOneSide(t *testing.T) {
	st, refs := store.New(), store.NewReferenceStore()
	seedScenario(st, refs)
	// Long 10.00 at entry 100.00: notional 1000 exceeds half the balance, so
	// the bid side clamps to zero and only offers go out.
	st.SavePosition(domain.Position{MarketID: "M", OpenVolume: "1000", AverageEntryPrice: "10000"})
	sub := &fakeSubmitter{}

	mk := newTestMaker(st, refs, sub, notifier.NewNoop())
	require.NoError(t, mk.Quote(context.Background()))
	require.Len(t, sub.batches, 1)
	for _, s := range sub.batches[0].Submissions {
		assert.Equal(t, domain.OrderSideSell, s.Side)
	}
	assert.Len(t, sub.batches[0].Submissions, 5)
}

func TestQuoteFullScenario(t *testing.T) {
	st, refs := store.New(), store.NewReferenceStore()
	seedScenario(st, refs)
	sub := &fakeSubmitter{}

	mk := newTestMaker(st, refs, sub, notifier.NewNoop())
	require.NoError(t, mk.Quote(context.Background()))
	require.Len(t, sub.batches, 1)
	batch := sub.batches[0]

	assert.Empty(t, batch.Cancellations)
	require.Len(t, batch.Submissions, 10)

	buys := batch.Submissions[:5]
	sells := batch.Submissions[5:]
	wantBuyPrices := []string{"9980", "9960", "9940", "9920", "9900"}
	wantSellPrices := []string{"10120", "10140", "10161", "10181", "10201"}
	for i, s := range buys {
		assert.Equal(t, domain.OrderSideBuy, s.Side)
		assert.Equal(t, domain.OrderTypeLimit, s.Type)
		assert.Equal(t, domain.TimeInForceGTC, s.TimeInForce)
		assert.Equal(t, "M", s.MarketID)
		assert.Equal(t, wantBuyPrices[i], s.Price)
		assert.Equal(t, "100", s.Size)
	}
	for i, s := range sells {
		assert.Equal(t, domain.OrderSideSell, s.Side)
		assert.Equal(t, wantSellPrices[i], s.Price)
		assert.Equal(t, "99", s.Size)
	}

	assert.Equal(t, []string{"tx-1"}, sub.confirmed)
}

func TestQuoteCancelsEveryLiveOrder(t *testing.T) {
	st, refs := store.New(), store.NewReferenceStore()
	seedScenario(st, refs)
	st.SaveOrder(domain.Order{ID: "o1", MarketID: "M", Status: domain.OrderStatusActive})
	st.SaveOrder(domain.Order{ID: "o2", MarketID: "other", Status: domain.OrderStatusActive})
	sub := &fakeSubmitter{}

	mk := newTestMaker(st, refs, sub, notifier.NewNoop())
	require.NoError(t, mk.Quote(context.Background()))
	require.Len(t, sub.batches, 1)

	ids := []string{}
	for _, c := range sub.batches[0].Cancellations {
		ids = append(ids, c.OrderID)
	}
	// Every live order goes, not just the quoted market's.
	assert.ElementsMatch(t, []string{"o1", "o2"}, ids)
}

func TestQuoteSubmissionFailureNotifies(t *testing.T) {
	st, refs := store.New(), store.NewReferenceStore()
	seedScenario(st, refs)
	sub := &fakeSubmitter{sendErr: errors.New("wallet down")}
	notif := &recordingNotifier{}

	mk := newTestMaker(st, refs, sub, notif)
	err := mk.Quote(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wallet down")
	require.Len(t, notif.messages, 1)
	assert.Contains(t, notif.messages[0], "wallet down")
	assert.Empty(t, sub.confirmed)
}

func TestQuoteErrsWhenSettlementAssetMissing(t *testing.T) {
	st, refs := store.New(), store.NewReferenceStore()
	seedScenario(st, refs)
	st.Clear()
	st.SaveMarket(quotedMarket())
	refs.Save(domain.ReferencePrice{Symbol: "BTCUSDT", BidPrice: 100, AskPrice: 101})
	sub := &fakeSubmitter{}

	mk := newTestMaker(st, refs, sub, notifier.NewNoop())
	err := mk.Quote(context.Background())
	require.Error(t, err)
	assert.Empty(t, sub.batches)
}
