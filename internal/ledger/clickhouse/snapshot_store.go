package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"solana-soldier/internal/domain"
	"solana-soldier/internal/ledger"
)

// SnapshotStore implements ledger.SnapshotStore using ClickHouse.
type SnapshotStore struct {
	conn *Conn
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(conn *Conn) *SnapshotStore {
	return &SnapshotStore{conn: conn}
}

var _ ledger.SnapshotStore = (*SnapshotStore)(nil)

// InsertBulk appends snapshot points.
func (s *SnapshotStore) InsertBulk(ctx context.Context, snaps []*domain.PnLSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO pnl_snapshots (
			owner_id, token_address, observed_at_ms,
			price_usd, tokens_held, value_usd, pnl_usd
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range snaps {
		err = batch.Append(
			p.OwnerID, p.TokenAddress, uint64(p.ObservedAtMs),
			p.PriceUSD, p.TokensHeld, p.ValueUSD, p.PnLUSD,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByPosition retrieves snapshots for one position, ordered by
// observation time ASC.
func (s *SnapshotStore) GetByPosition(ctx context.Context, ownerID, tokenAddress string) ([]*domain.PnLSnapshot, error) {
	query := `
		SELECT owner_id, token_address, observed_at_ms,
		       price_usd, tokens_held, value_usd, pnl_usd
		FROM pnl_snapshots
		WHERE owner_id = ? AND token_address = ?
		ORDER BY observed_at_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, ownerID, tokenAddress)
	if err != nil {
		return nil, fmt.Errorf("query snapshots by position: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

func scanSnapshots(rows driver.Rows) ([]*domain.PnLSnapshot, error) {
	var snaps []*domain.PnLSnapshot

	for rows.Next() {
		var p domain.PnLSnapshot
		var observedAt uint64

		err := rows.Scan(
			&p.OwnerID, &p.TokenAddress, &observedAt,
			&p.PriceUSD, &p.TokensHeld, &p.ValueUSD, &p.PnLUSD,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}

		p.ObservedAtMs = int64(observedAt)
		snaps = append(snaps, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return snaps, nil
}
