package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/danmarzab/vega-maker/internal/domain"
	"github.com/danmarzab/vega-maker/internal/metrics"
	"github.com/danmarzab/vega-maker/internal/store"
)

func TestStateEndpoint(t *testing.T) {
	st := store.New()
	st.SaveMarket(domain.Market{ID: "M", State: "STATE_ACTIVE"})
	st.SaveOrder(domain.Order{ID: "o1", MarketID: "M", Status: domain.OrderStatusActive})
	refs := store.NewReferenceStore()
	refs.Save(domain.ReferencePrice{Symbol: "BTCUSDT", BidPrice: 100, AskPrice: 101})

	s := NewServer(0, st, refs, metrics.New(), zap.NewNop())
	srv := httptest.NewServer(s.srv.Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var state appState
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	require.Len(t, state.Markets, 1)
	assert.Equal(t, "M", state.Markets[0].ID)
	assert.Len(t, state.Orders, 1)
	require.Len(t, state.ReferencePrices, 1)
	assert.Equal(t, "BTCUSDT", state.ReferencePrices[0].Symbol)
	assert.NotNil(t, state.Assets)
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	m.QuoteCycles.Inc()

	s := NewServer(0, store.New(), store.NewReferenceStore(), m, zap.NewNop())
	srv := httptest.NewServer(s.srv.Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
