// Package binance streams the external reference price used to centre the
// quoted ladder.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/danmarzab/vega-maker/internal/domain"
	"github.com/danmarzab/vega-maker/internal/store"
)

// FeedClient subscribes to the 24h ticker stream of a single symbol and
// publishes best bid and ask into the reference store. Reconnection is driven
// externally through IsClosed and Reconnect.
type FeedClient struct {
	url    string
	symbol string
	store  *store.ReferenceStore
	log    *zap.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	closed atomic.Bool
}

func NewFeedClient(url, symbol string, st *store.ReferenceStore, log *zap.Logger) *FeedClient {
	c := &FeedClient{
		url:    url,
		symbol: symbol,
		store:  st,
		log:    log.Named("binance-feed"),
	}
	c.closed.Store(true)
	return c
}

func (c *FeedClient) Name() string { return "binance" }

// IsClosed reports whether the connection is down and needs a reconnect.
func (c *FeedClient) IsClosed() bool { return c.closed.Load() }

// Connect dials the stream endpoint, subscribes to the symbol's ticker and
// starts the read loop.
func (c *FeedClient) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dialing reference feed: %w", err)
	}
	sub := map[string]any{
		"method": "SUBSCRIBE",
		"params": []string{strings.ToLower(c.symbol) + "@ticker"},
		"id":     1,
	}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return fmt.Errorf("subscribing ticker: %w", err)
	}

	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = conn
	c.mu.Unlock()
	c.closed.Store(false)
	c.log.Info("connected", zap.String("url", c.url), zap.String("symbol", c.symbol))

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

// tickerEvent is the subset of Binance's 24hrTicker payload the bot uses.
type tickerEvent struct {
	Event    string `json:"e"`
	Symbol   string `json:"s"`
	BidPrice string `json:"b"`
	AskPrice string `json:"a"`
}

func (c *FeedClient) handleMessage(msg []byte) {
	var ev tickerEvent
	if err := json.Unmarshal(msg, &ev); err != nil {
		c.log.Warn("dropping undecodable frame", zap.Error(err))
		return
	}
	if ev.Event != "24hrTicker" {
		// Subscription acks and other stream events.
		return
	}
	bid, err := strconv.ParseFloat(ev.BidPrice, 64)
	if err != nil {
		c.log.Warn("skipping ticker with bad bid", zap.String("bid", ev.BidPrice), zap.Error(err))
		return
	}
	ask, err := strconv.ParseFloat(ev.AskPrice, 64)
	if err != nil {
		c.log.Warn("skipping ticker with bad ask", zap.String("ask", ev.AskPrice), zap.Error(err))
		return
	}
	c.store.Save(domain.ReferencePrice{
		Symbol:   ev.Symbol,
		BidPrice: bid,
		AskPrice: ask,
	})
}
