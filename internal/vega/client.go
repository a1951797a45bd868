// Package vega talks to the trading venue: the data-node REST API for
// paginated snapshots, the wallet service for authentication and command
// submission, and the GraphQL WebSocket feed for streaming updates.
package vega

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/danmarzab/vega-maker/internal/domain"
)

const (
	defaultMaxPages   = 5
	txConfirmAttempts = 10
)

// ErrTxNotFound is returned when the confirmation poll exhausts its attempts
// without the venue reporting a result for the transaction.
var ErrTxNotFound = errors.New("transaction not found")

// ClientConfig carries the endpoints and identity the client needs.
type ClientConfig struct {
	NodeURL        string
	TendermintURL  string
	WalletURL      string
	WalletUsername string
	WalletPassword string
	PartyID        string

	// MaxPages bounds cursor pagination; zero means the default of 5.
	MaxPages int
}

// Client is the venue REST client. Safe for concurrent use.
type Client struct {
	cfg     ClientConfig
	httpc   *http.Client
	log     *zap.Logger
	txDelay time.Duration
}

func NewClient(cfg ClientConfig, log *zap.Logger) *Client {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = defaultMaxPages
	}
	return &Client{
		cfg:     cfg,
		httpc:   &http.Client{Timeout: 10 * time.Second},
		log:     log.Named("vega-api"),
		txDelay: 250 * time.Millisecond,
	}
}

// Markets lists every market on the venue.
func (c *Client) Markets(ctx context.Context) ([]domain.Market, error) {
	return fetchList[domain.Market](ctx, c, "markets", "markets")
}

// Assets lists every asset on the venue.
func (c *Client) Assets(ctx context.Context) ([]domain.Asset, error) {
	return fetchList[domain.Asset](ctx, c, "assets", "assets")
}

// Accounts lists the party's accounts.
func (c *Client) Accounts(ctx context.Context, partyID string) ([]domain.Account, error) {
	path := fmt.Sprintf("accounts?filter.partyIds=%s", partyID)
	return fetchList[domain.Account](ctx, c, path, "accounts")
}

// OpenOrders lists the party's live orders.
func (c *Client) OpenOrders(ctx context.Context, partyID string) ([]domain.Order, error) {
	path := fmt.Sprintf("orders?partyId=%s&liveOnly=true", partyID)
	return fetchList[domain.Order](ctx, c, path, "orders")
}

// Orders lists all of the party's orders, live or not.
func (c *Client) Orders(ctx context.Context, partyID string) ([]domain.Order, error) {
	path := fmt.Sprintf("orders?partyId=%s", partyID)
	return fetchList[domain.Order](ctx, c, path, "orders")
}

// Positions lists the party's positions.
func (c *Client) Positions(ctx context.Context, partyID string) ([]domain.Position, error) {
	path := fmt.Sprintf("positions?partyId=%s", partyID)
	return fetchList[domain.Position](ctx, c, path, "positions")
}

type pageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

type edge struct {
	Node json.RawMessage `json:"node"`
}

type connection struct {
	Edges    []edge   `json:"edges"`
	PageInfo pageInfo `json:"pageInfo"`
}

// fetchList follows the venue's cursor pagination, accumulating nodes until
// the venue reports no further page or the page bound is reached. Items that
// fail to decode are skipped, not fatal.
func fetchList[T any](ctx context.Context, c *Client, path, key string) ([]T, error) {
	var results []T
	cursor := ""
	for page := 0; page < c.cfg.MaxPages; page++ {
		conn, err := c.fetchPage(ctx, path, key, cursor)
		if err != nil {
			// Keep whatever earlier pages produced; the caller decides
			// whether partial data is still worth upserting.
			return results, err
		}
		for _, e := range conn.Edges {
			var item T
			if err := json.Unmarshal(e.Node, &item); err != nil {
				c.log.Warn("skipping undecodable item",
					zap.String("path", path), zap.Error(err))
				continue
			}
			results = append(results, item)
		}
		if !conn.PageInfo.HasNextPage {
			return results, nil
		}
		cursor = conn.PageInfo.EndCursor
	}
	c.log.Warn("pagination bound reached",
		zap.String("path", path), zap.Int("max_pages", c.cfg.MaxPages))
	return results, nil
}

func (c *Client) fetchPage(ctx context.Context, path, key, cursor string) (connection, error) {
	url := fmt.Sprintf("%s/%s", c.cfg.NodeURL, path)
	if cursor != "" {
		sep := "?"
		if strings.Contains(url, "?") {
			sep = "&"
		}
		url = fmt.Sprintf("%s%spagination.after=%s", url, sep, cursor)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return connection{}, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return connection{}, fmt.Errorf("fetching %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return connection{}, fmt.Errorf("fetching %s: status %d", path, resp.StatusCode)
	}
	var envelope map[string]connection
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return connection{}, fmt.Errorf("decoding %s response: %w", path, err)
	}
	return envelope[key], nil
}

// Token exchanges the wallet credentials for a bearer token.
func (c *Client) Token(ctx context.Context) (string, error) {
	body := map[string]string{
		"wallet":     c.cfg.WalletUsername,
		"passphrase": c.cfg.WalletPassword,
	}
	var out struct {
		Token string `json:"token"`
	}
	url := fmt.Sprintf("%s/api/v1/auth/token", c.cfg.WalletURL)
	if err := c.postJSON(ctx, url, "", body, &out); err != nil {
		return "", fmt.Errorf("requesting wallet token: %w", err)
	}
	return out.Token, nil
}

// SendBatch submits one atomic batch instruction through the wallet and
// returns the transaction hash the venue assigned to it.
func (c *Client) SendBatch(ctx context.Context, batch domain.BatchMarketInstruction) (string, error) {
	token, err := c.Token(ctx)
	if err != nil {
		return "", err
	}
	payload := map[string]any{
		"batchMarketInstructions": batch,
		"pubKey":                  c.cfg.PartyID,
		"propagate":               true,
	}
	var out struct {
		TxHash string `json:"txHash"`
	}
	url := fmt.Sprintf("%s/api/v1/command/sync", c.cfg.WalletURL)
	if err := c.postJSON(ctx, url, token, payload, &out); err != nil {
		return "", fmt.Errorf("submitting batch: %w", err)
	}
	return out.TxHash, nil
}

// TxResult is the venue's final word on a submitted transaction. A nonzero
// code means the batch was rejected on-chain; Info carries the detail.
type TxResult struct {
	Code int
	Info string
}

// ConfirmTransaction polls the transaction-lookup endpoint for the outcome
// of a submitted batch. Finality is asynchronous, so a "not yet known"
// answer is retried a bounded number of times before giving up with
// ErrTxNotFound.
func (c *Client) ConfirmTransaction(ctx context.Context, txHash string) (TxResult, error) {
	for attempt := 0; attempt < txConfirmAttempts; attempt++ {
		res, pending, err := c.lookupTransaction(ctx, txHash)
		if err != nil {
			return TxResult{}, err
		}
		if !pending {
			return res, nil
		}
		select {
		case <-ctx.Done():
			return TxResult{}, ctx.Err()
		case <-time.After(c.txDelay):
		}
	}
	return TxResult{}, ErrTxNotFound
}

func (c *Client) lookupTransaction(ctx context.Context, txHash string) (TxResult, bool, error) {
	url := fmt.Sprintf("%s/tx?hash=0x%s", c.cfg.TendermintURL, txHash)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return TxResult{}, false, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return TxResult{}, false, fmt.Errorf("looking up transaction: %w", err)
	}
	defer resp.Body.Close()
	var body struct {
		Result *struct {
			TxResult struct {
				Code int    `json:"code"`
				Info string `json:"info"`
			} `json:"tx_result"`
		} `json:"result"`
		Error json.RawMessage `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return TxResult{}, false, fmt.Errorf("decoding transaction lookup: %w", err)
	}
	if body.Result != nil {
		return TxResult{Code: body.Result.TxResult.Code, Info: body.Result.TxResult.Info}, false, nil
	}
	// An "error" placeholder means the transaction is not yet indexed.
	return TxResult{}, len(body.Error) > 0, nil
}

func (c *Client) postJSON(ctx context.Context, url, token string, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
