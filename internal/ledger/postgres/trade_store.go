package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-soldier/internal/domain"
	"solana-soldier/internal/ledger"
)

// TradeStore implements ledger.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

var _ ledger.TradeStore = (*TradeStore)(nil)

const tradeColumns = `
	trade_id, owner_id, token_address, token_symbol, action,
	amount_sol, tokens_received, price_usd,
	signature, success, ambiguous,
	exit_reason, pnl_usd, error, executed_at
`

// Record adds a trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeStore) Record(ctx context.Context, t *domain.TradeResult) error {
	if t == nil || t.TradeID == "" {
		return ledger.ErrInvalidInput
	}

	query := `
		INSERT INTO trades (` + tradeColumns + `) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11,
			$12, $13, $14, $15
		)
	`

	_, err := s.pool.Exec(ctx, query,
		t.TradeID, t.OwnerID, t.TokenAddress, t.TokenSymbol, t.Action,
		t.AmountSOL, t.TokensReceived, t.PriceUSD,
		t.Signature, t.Success, t.Ambiguous,
		t.ExitReason, t.PnLUSD, t.Error, t.ExecutedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ledger.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// GetByID retrieves a trade. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(ctx context.Context, tradeID string) (*domain.TradeResult, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE trade_id = $1`

	row := s.pool.QueryRow(ctx, query, tradeID)
	t, err := scanTrade(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, ledger.ErrNotFound
		}
		return nil, fmt.Errorf("get trade by id: %w", err)
	}
	return t, nil
}

// ListByOwner retrieves an owner's trades, newest first.
func (s *TradeStore) ListByOwner(ctx context.Context, ownerID string, limit int) ([]*domain.TradeResult, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE owner_id = $1
		ORDER BY executed_at DESC, trade_id ASC
	`
	args := []interface{}{ownerID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list trades by owner: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// ListRecent retrieves the most recent trades across all owners.
func (s *TradeStore) ListRecent(ctx context.Context, limit int) ([]*domain.TradeResult, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		ORDER BY executed_at DESC, trade_id ASC
	`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recent trades: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// scanTrade scans a single row into a TradeResult.
func scanTrade(row pgx.Row) (*domain.TradeResult, error) {
	var t domain.TradeResult

	err := row.Scan(
		&t.TradeID, &t.OwnerID, &t.TokenAddress, &t.TokenSymbol, &t.Action,
		&t.AmountSOL, &t.TokensReceived, &t.PriceUSD,
		&t.Signature, &t.Success, &t.Ambiguous,
		&t.ExitReason, &t.PnLUSD, &t.Error, &t.ExecutedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// scanTrades scans multiple rows into a slice of TradeResult.
func scanTrades(rows pgx.Rows) ([]*domain.TradeResult, error) {
	var trades []*domain.TradeResult

	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}
	return trades, nil
}
