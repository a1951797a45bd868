// Package store is the authoritative in-memory cache of venue and reference
// state. The feed clients and the snapshot loader propose idempotent upserts
// keyed by stable identifiers; readers receive insertion-ordered copies.
// Last write wins per key, which makes duplicate and out-of-order delivery
// across the feeds harmless.
package store

import (
	"sync"

	"github.com/danmarzab/vega-maker/internal/domain"
)

// Store holds every venue entity the bot tracks. All methods are safe for
// concurrent use; each upsert is atomic at single-entity granularity.
type Store struct {
	mu        sync.RWMutex
	markets   *table[domain.Market]
	assets    *table[domain.Asset]
	accounts  *table[domain.Account]
	orders    *table[domain.Order]
	positions *table[domain.Position]
}

func New() *Store {
	return &Store{
		markets:   newTable[domain.Market](),
		assets:    newTable[domain.Asset](),
		accounts:  newTable[domain.Account](),
		orders:    newTable[domain.Order](),
		positions: newTable[domain.Position](),
	}
}

func (s *Store) SaveMarket(m domain.Market) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markets.upsert(m.ID, m)
}

// MergeMarketData merges a market-data fragment onto the already-loaded
// market, preserving its id, decimal places and settlement asset. It returns
// false when the market is unknown; partial markets are never created.
func (s *Store) MergeMarketData(marketID string, data domain.MarketData, state, tradingMode string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.markets.get(marketID)
	if !ok {
		return false
	}
	m.Data = &data
	m.State = state
	m.TradingMode = tradingMode
	s.markets.upsert(m.ID, m)
	return true
}

func (s *Store) SaveAsset(a domain.Asset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets.upsert(a.ID, a)
}

func (s *Store) SaveAccount(a domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts.upsert(a.Key(), a)
}

// SaveOrder upserts a live order. An order in any terminal status is removed
// instead, so the order table always holds exactly the live orders.
func (s *Store) SaveOrder(o domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !o.Live() {
		s.orders.delete(o.ID)
		return
	}
	s.orders.upsert(o.ID, o)
}

func (s *Store) SavePosition(p domain.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions.upsert(p.MarketID, p)
}

func (s *Store) Market(id string) (domain.Market, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.markets.get(id)
}

func (s *Store) Asset(id string) (domain.Asset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.assets.get(id)
}

func (s *Store) Order(id string) (domain.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orders.get(id)
}

// Position returns the party's position in the given market.
func (s *Store) Position(marketID string) (domain.Position, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.positions.get(marketID)
}

func (s *Store) Markets() []domain.Market {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.markets.list()
}

func (s *Store) Assets() []domain.Asset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.assets.list()
}

func (s *Store) Accounts() []domain.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accounts.list()
}

// Orders returns the currently-live orders.
func (s *Store) Orders() []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orders.list()
}

func (s *Store) Positions() []domain.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.positions.list()
}

// Clear empties every table.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markets.clear()
	s.assets.clear()
	s.accounts.clear()
	s.orders.clear()
	s.positions.clear()
}
