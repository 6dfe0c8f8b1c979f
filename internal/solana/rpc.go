package solana

import (
	"context"
	"time"
)

// RPCClient defines Solana RPC HTTP interface.
type RPCClient interface {
	// GetBalance retrieves the lamport balance of an account.
	GetBalance(ctx context.Context, pubkey string) (uint64, error)

	// GetTransaction retrieves a confirmed transaction by signature.
	// Returns nil when the transaction is unknown to the node.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetSignaturesForAddress retrieves recent signatures for an address,
	// newest first, with pagination.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)

	// GetLatestBlockhash retrieves a recent blockhash for transaction assembly.
	GetLatestBlockhash(ctx context.Context) (string, error)

	// GetAccountInfo retrieves account info by public key.
	// Returns nil if the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetTokenBalanceByOwner returns the aggregate UI balance and raw
	// base units the owner holds of mint.
	GetTokenBalanceByOwner(ctx context.Context, owner, mint string) (float64, uint64, error)

	// SendTransaction submits a base64-encoded signed transaction and
	// returns its signature.
	SendTransaction(ctx context.Context, signedTxBase64 string) (string, error)

	// ConfirmTransaction polls signature status until the transaction is
	// confirmed or the timeout elapses. A timeout is not an error: it
	// returns (false, nil) and leaves the outcome ambiguous.
	ConfirmTransaction(ctx context.Context, signature string, timeout time.Duration) (bool, error)
}

// Transaction represents a Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err               interface{}
	LogMessages       []string
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
}

// TokenBalance is a token account balance snapshot from transaction meta.
type TokenBalance struct {
	AccountIndex int
	Mint         string
	Owner        string
	UIAmount     *float64 // nil for closed/empty accounts
	Decimals     int
}

// TransactionMessage contains parsed transaction message.
type TransactionMessage struct {
	AccountKeys []string
}
