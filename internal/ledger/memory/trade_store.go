// Package memory provides in-memory ledger implementations, used when no
// database is configured and as the reference semantics for the SQL
// backends.
package memory

import (
	"context"
	"sort"
	"sync"

	"solana-soldier/internal/domain"
	"solana-soldier/internal/ledger"
)

// TradeStore is an in-memory implementation of ledger.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TradeResult // keyed by trade_id
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		data: make(map[string]*domain.TradeResult),
	}
}

var _ ledger.TradeStore = (*TradeStore)(nil)

// Record adds a trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeStore) Record(_ context.Context, t *domain.TradeResult) error {
	if t == nil || t.TradeID == "" {
		return ledger.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.TradeID]; exists {
		return ledger.ErrDuplicateKey
	}

	cp := *t
	if t.PnLUSD != nil {
		v := *t.PnLUSD
		cp.PnLUSD = &v
	}
	s.data[t.TradeID] = &cp
	return nil
}

// GetByID retrieves a trade. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(_ context.Context, tradeID string) (*domain.TradeResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[tradeID]
	if !exists {
		return nil, ledger.ErrNotFound
	}

	cp := *t
	if t.PnLUSD != nil {
		v := *t.PnLUSD
		cp.PnLUSD = &v
	}
	return &cp, nil
}

// ListByOwner retrieves an owner's trades, newest first.
func (s *TradeStore) ListByOwner(_ context.Context, ownerID string, limit int) ([]*domain.TradeResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradeResult
	for _, t := range s.data {
		if t.OwnerID == ownerID {
			cp := *t
			result = append(result, &cp)
		}
	}
	return sortAndClip(result, limit), nil
}

// ListRecent retrieves the most recent trades across all owners.
func (s *TradeStore) ListRecent(_ context.Context, limit int) ([]*domain.TradeResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.TradeResult, 0, len(s.data))
	for _, t := range s.data {
		cp := *t
		result = append(result, &cp)
	}
	return sortAndClip(result, limit), nil
}

func sortAndClip(trades []*domain.TradeResult, limit int) []*domain.TradeResult {
	sort.Slice(trades, func(i, j int) bool {
		if !trades[i].ExecutedAt.Equal(trades[j].ExecutedAt) {
			return trades[i].ExecutedAt.After(trades[j].ExecutedAt)
		}
		return trades[i].TradeID < trades[j].TradeID
	})
	if limit > 0 && limit < len(trades) {
		trades = trades[:limit]
	}
	return trades
}
