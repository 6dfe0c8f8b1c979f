// Package ledger defines the persistence interfaces for trade records
// and position P&L snapshots.
package ledger

import (
	"context"
	"errors"

	"solana-soldier/internal/domain"
)

// Common storage errors.
var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicateKey = errors.New("duplicate key violation")
	ErrInvalidInput = errors.New("invalid input")
)

// TradeStore is the append-only record of every swap attempt, successful
// or not. TradeID is the primary key.
type TradeStore interface {
	// Record adds a trade. Returns ErrDuplicateKey if trade_id exists.
	Record(ctx context.Context, t *domain.TradeResult) error

	// GetByID retrieves a trade. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tradeID string) (*domain.TradeResult, error)

	// ListByOwner retrieves an owner's trades, newest first. limit <= 0
	// returns all.
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]*domain.TradeResult, error)

	// ListRecent retrieves the most recent trades across all owners.
	ListRecent(ctx context.Context, limit int) ([]*domain.TradeResult, error)
}

// SnapshotStore persists P&L observations from the exit monitor.
// Snapshots are analytical data: high write volume, no uniqueness.
type SnapshotStore interface {
	// InsertBulk appends snapshot points.
	InsertBulk(ctx context.Context, snaps []*domain.PnLSnapshot) error

	// GetByPosition retrieves snapshots for one position, ordered by
	// observation time ASC.
	GetByPosition(ctx context.Context, ownerID, tokenAddress string) ([]*domain.PnLSnapshot, error)
}
