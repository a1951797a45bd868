package vega

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/danmarzab/vega-maker/internal/domain"
	"github.com/danmarzab/vega-maker/internal/metrics"
	"github.com/danmarzab/vega-maker/internal/store"
)

// Subscription ids double as dispatch keys for inbound frames.
const (
	topicMarketsData = "marketsData"
	topicOrders      = "orders"
	topicPositions   = "positions"
	topicAccounts    = "accounts"
)

const accountsSubscription = `
	subscription {
		accounts(partyId: "PARTY_ID") {
			balance
			type
			assetId
			marketId
			partyId
		}
	}
`

const ordersSubscription = `
	subscription {
		orders(partyId: "PARTY_ID") {
			id
			price
			side
			type
			size
			remaining
			status
			marketId
		}
	}
`

const positionsSubscription = `
	subscription {
		positions(partyId: "PARTY_ID") {
			openVolume
			realisedPNL
			unrealisedPNL
			averageEntryPrice
			marketId
		}
	}
`

const marketsDataSubscription = `
	subscription {
		marketsData(marketIds: "MARKET_ID") {
			marketId
			marketState
			marketTradingMode
			bestBidPrice
			bestOfferPrice
			bestBidVolume
			bestOfferVolume
			markPrice
			openInterest
		}
	}
`

// FeedClient holds the multiplexed GraphQL subscription connection to the
// venue. It never reconnects on its own; the supervisor checks IsClosed and
// calls Reconnect.
type FeedClient struct {
	url      string
	marketID string
	partyID  string
	store    *store.Store
	log      *zap.Logger
	metrics  *metrics.Metrics

	mu     sync.Mutex
	conn   *websocket.Conn
	closed atomic.Bool
}

func NewFeedClient(url, marketID, partyID string, st *store.Store, m *metrics.Metrics, log *zap.Logger) *FeedClient {
	c := &FeedClient{
		url:      url,
		marketID: marketID,
		partyID:  partyID,
		store:    st,
		log:      log.Named("vega-feed"),
		metrics:  m,
	}
	c.closed.Store(true)
	return c
}

func (c *FeedClient) Name() string { return "vega" }

// IsClosed reports whether the connection is down and needs a reconnect.
func (c *FeedClient) IsClosed() bool { return c.closed.Load() }

// Connect dials the venue, performs the connection-init handshake, opens
// every subscription and starts the read loop.
func (c *FeedClient) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		Subprotocols:     []string{"graphql-ws"},
	}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dialing venue feed: %w", err)
	}
	if err := conn.WriteJSON(map[string]string{"type": "connection_init"}); err != nil {
		conn.Close()
		return fmt.Errorf("sending connection init: %w", err)
	}
	subs := []struct {
		id    string
		query string
	}{
		{topicMarketsData, marketsDataSubscription},
		{topicOrders, ordersSubscription},
		{topicPositions, positionsSubscription},
		{topicAccounts, accountsSubscription},
	}
	for _, sub := range subs {
		if err := c.subscribe(conn, sub.id, sub.query); err != nil {
			conn.Close()
			return fmt.Errorf("subscribing %s: %w", sub.id, err)
		}
	}

	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = conn
	c.mu.Unlock()
	c.closed.Store(false)
	c.log.Info("connected", zap.String("url", c.url))

	go c.readLoop(conn)
	return nil
}

// Reconnect tears down any existing connection and dials again.
func (c *FeedClient) Reconnect(ctx context.Context) error {
	c.Close()
	return c.Connect(ctx)
}

func (c *FeedClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.closed.Store(true)
}

func (c *FeedClient) subscribe(conn *websocket.Conn, id, query string) error {
	query = strings.ReplaceAll(query, "MARKET_ID", c.marketID)
	query = strings.ReplaceAll(query, "PARTY_ID", c.partyID)
	frame := map[string]any{
		"id":      id,
		"type":    "start",
		"payload": map[string]string{"query": query},
	}
	return conn.WriteJSON(frame)
}

// readLoop exits on the first read error, marking the client closed. The
// supervisor notices on its next tick and reconnects.
func (c *FeedClient) readLoop(conn *websocket.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			c.log.Warn("read loop terminated", zap.Error(err))
			c.markClosed(conn)
			return
		}
		c.handleMessage(msg)
	}
}

// markClosed flags the client down only if conn is still the current
// connection; a stale read loop outliving a reconnect must not mark the
// fresh connection closed.
func (c *FeedClient) markClosed(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == conn {
		c.closed.Store(true)
	}
}

func (c *FeedClient) handleMessage(msg []byte) {
	var frame struct {
		ID      string `json:"id"`
		Payload *struct {
			Data json.RawMessage `json:"data"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(msg, &frame); err != nil {
		c.log.Warn("dropping undecodable frame", zap.Error(err))
		return
	}
	if frame.ID == "" || frame.Payload == nil || len(frame.Payload.Data) == 0 {
		// Protocol frames (connection_ack, ka) carry no data.
		return
	}
	switch frame.ID {
	case topicMarketsData:
		c.handleMarketsData(frame.Payload.Data)
	case topicOrders:
		for _, o := range decodeFragments[domain.Order](c, frame.Payload.Data, topicOrders) {
			c.store.SaveOrder(o)
			c.metrics.StoreUpserts.WithLabelValues("order").Inc()
		}
	case topicPositions:
		for _, p := range decodeFragments[domain.Position](c, frame.Payload.Data, topicPositions) {
			c.store.SavePosition(p)
			c.metrics.StoreUpserts.WithLabelValues("position").Inc()
		}
	case topicAccounts:
		for _, a := range decodeFragments[domain.Account](c, frame.Payload.Data, topicAccounts) {
			c.store.SaveAccount(a)
			c.metrics.StoreUpserts.WithLabelValues("account").Inc()
		}
	default:
		c.log.Warn("unsupported subscription id", zap.String("id", frame.ID))
	}
}

// decodeFragments unpacks the payload array under key, skipping fragments
// that fail to decode.
func decodeFragments[T any](c *FeedClient, data json.RawMessage, key string) []T {
	var envelope map[string][]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.log.Warn("dropping undecodable payload", zap.String("topic", key), zap.Error(err))
		return nil
	}
	items := make([]T, 0, len(envelope[key]))
	for _, raw := range envelope[key] {
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			c.log.Warn("skipping undecodable fragment", zap.String("topic", key), zap.Error(err))
			continue
		}
		items = append(items, item)
	}
	return items
}

// handleMarketsData merges market-data fragments onto markets already loaded
// by the snapshot loader. A fragment for an unknown market is dropped; the
// feed never creates partial markets.
func (c *FeedClient) handleMarketsData(data json.RawMessage) {
	type fragment struct {
		MarketID          string `json:"marketId"`
		MarketState       string `json:"marketState"`
		MarketTradingMode string `json:"marketTradingMode"`
		domain.MarketData
	}
	for _, frag := range decodeFragments[fragment](c, data, topicMarketsData) {
		if !c.store.MergeMarketData(frag.MarketID, frag.MarketData, frag.MarketState, frag.MarketTradingMode) {
			c.log.Warn("market data for unknown market", zap.String("market_id", frag.MarketID))
			continue
		}
		c.metrics.StoreUpserts.WithLabelValues("market_data").Inc()
	}
}
