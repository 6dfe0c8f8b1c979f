package trader

import (
	"errors"
	"sync"

	"solana-soldier/internal/domain"
)

var ErrPositionExists = errors.New("position already open")

// PositionBook tracks open positions keyed by (owner_id, token_address).
// One user holds at most one position per token.
type PositionBook struct {
	mu   sync.RWMutex
	open map[domain.PositionKey]*domain.Position
}

// NewPositionBook creates an empty PositionBook.
func NewPositionBook() *PositionBook {
	return &PositionBook{open: make(map[domain.PositionKey]*domain.Position)}
}

// Open registers a position. Returns ErrPositionExists on a key clash.
func (b *PositionBook) Open(pos *domain.Position) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := pos.Key()
	if _, exists := b.open[key]; exists {
		return ErrPositionExists
	}
	cp := *pos
	b.open[key] = &cp
	return nil
}

// Get returns a position by key.
func (b *PositionBook) Get(key domain.PositionKey) (domain.Position, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	pos, ok := b.open[key]
	if !ok {
		return domain.Position{}, false
	}
	return *pos, true
}

// Close removes a position and returns it. The second return is false
// when the position was already gone.
func (b *PositionBook) Close(key domain.PositionKey) (domain.Position, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pos, ok := b.open[key]
	if !ok {
		return domain.Position{}, false
	}
	delete(b.open, key)
	return *pos, true
}

// List returns a snapshot of all open positions.
func (b *PositionBook) List() []domain.Position {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]domain.Position, 0, len(b.open))
	for _, pos := range b.open {
		out = append(out, *pos)
	}
	return out
}

// Count returns the number of open positions.
func (b *PositionBook) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.open)
}
