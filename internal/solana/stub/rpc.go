// Package stub provides in-memory fakes of the solana clients for tests.
package stub

import (
	"context"
	"sync"
	"time"

	"solana-soldier/internal/solana"
)

// RPCClient implements solana.RPCClient for testing. All fields are
// guarded by the embedded mutex so tests can mutate state while the
// code under test polls concurrently.
type RPCClient struct {
	mu sync.Mutex

	Balances      map[string]uint64 // pubkey -> lamports
	Transactions  map[string]*solana.Transaction
	Signatures    map[string][]solana.SignatureInfo
	Accounts      map[string]*solana.AccountInfo
	TokenBalances map[[2]string]TokenBalance // (owner, mint) -> balance
	Blockhash     string

	// SendResult is returned by SendTransaction; SendErr overrides it.
	SendResult string
	SendErr    error

	// ConfirmResult is returned by ConfirmTransaction; ConfirmErr overrides it.
	ConfirmResult bool
	ConfirmErr    error

	// Err, when set, is returned by every read method. Used to exercise
	// fail-closed paths.
	Err error

	SentTransactions []string
}

var _ solana.RPCClient = (*RPCClient)(nil)

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Balances:      make(map[string]uint64),
		Transactions:  make(map[string]*solana.Transaction),
		Signatures:    make(map[string][]solana.SignatureInfo),
		Accounts:      make(map[string]*solana.AccountInfo),
		TokenBalances: make(map[[2]string]TokenBalance),
		Blockhash:     "stubblockhash",
		SendResult:    "stubsig",
		ConfirmResult: true,
	}
}

func (c *RPCClient) GetBalance(_ context.Context, pubkey string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return 0, c.Err
	}
	return c.Balances[pubkey], nil
}

func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Transactions[signature], nil
}

func (c *RPCClient) GetSignaturesForAddress(_ context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	sigs := c.Signatures[address]

	// Honor the until cursor the way the node does: return entries
	// newer than it.
	if opts != nil && opts.Until != "" {
		for i, s := range sigs {
			if s.Signature == opts.Until {
				sigs = sigs[:i]
				break
			}
		}
	}

	// Apply limit if specified
	if opts != nil && opts.Limit > 0 && opts.Limit < len(sigs) {
		sigs = sigs[:opts.Limit]
	}

	out := make([]solana.SignatureInfo, len(sigs))
	copy(out, sigs)
	return out, nil
}

func (c *RPCClient) GetLatestBlockhash(_ context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return "", c.Err
	}
	return c.Blockhash, nil
}

func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Accounts[pubkey], nil
}

func (c *RPCClient) GetTokenBalanceByOwner(_ context.Context, owner, mint string) (float64, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return 0, 0, c.Err
	}
	b := c.TokenBalances[[2]string{owner, mint}]
	return b.UI, b.Raw, nil
}

func (c *RPCClient) SendTransaction(_ context.Context, signedTxBase64 string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SendErr != nil {
		return "", c.SendErr
	}
	c.SentTransactions = append(c.SentTransactions, signedTxBase64)
	return c.SendResult, nil
}

func (c *RPCClient) ConfirmTransaction(_ context.Context, signature string, timeout time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ConfirmErr != nil {
		return false, c.ConfirmErr
	}
	return c.ConfirmResult, nil
}

// SetBalance sets the lamport balance for a pubkey.
func (c *RPCClient) SetBalance(pubkey string, lamports uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Balances[pubkey] = lamports
}

// AddTransaction adds a transaction to the stub store.
func (c *RPCClient) AddTransaction(tx *solana.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Transactions[tx.Signature] = tx
}

// SetErr sets or clears the error returned by every read method.
func (c *RPCClient) SetErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Err = err
}

// SetSignatures replaces the signature list for an address.
func (c *RPCClient) SetSignatures(address string, sigs []solana.SignatureInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Signatures[address] = sigs
}

// TokenBalance is a stubbed token holding.
type TokenBalance struct {
	UI  float64
	Raw uint64
}

// SetTokenBalance sets the owner's holding of mint.
func (c *RPCClient) SetTokenBalance(owner, mint string, ui float64, raw uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.TokenBalances[[2]string{owner, mint}] = TokenBalance{UI: ui, Raw: raw}
}
