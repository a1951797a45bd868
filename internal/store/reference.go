package store

import (
	"sync"

	"github.com/danmarzab/vega-maker/internal/domain"
)

// ReferenceStore caches the external venue's best bid/ask per symbol. Each
// update fully replaces the previous price.
type ReferenceStore struct {
	mu     sync.RWMutex
	prices *table[domain.ReferencePrice]
}

func NewReferenceStore() *ReferenceStore {
	return &ReferenceStore{prices: newTable[domain.ReferencePrice]()}
}

func (s *ReferenceStore) Save(p domain.ReferencePrice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices.upsert(p.Symbol, p)
}

func (s *ReferenceStore) BySymbol(symbol string) (domain.ReferencePrice, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prices.get(symbol)
}

func (s *ReferenceStore) All() []domain.ReferencePrice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prices.list()
}
