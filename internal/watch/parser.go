// Package watch streams whale wallet activity from the chain.
package watch

import (
	"math"
	"sync"
	"time"

	"solana-soldier/internal/domain"
	"solana-soldier/internal/solana"
)

// DefaultDustEpsilon filters balance noise (rent adjustments, dust
// transfers) out of the signal stream.
const DefaultDustEpsilon = 1e-6

// Parser turns confirmed transactions into whale activities by diffing
// pre/post token balances of watched owners.
//
// Dedup is monotonic per owner: a signature is processed at most once per
// owner, and transactions older than the last processed slot are dropped.
type Parser struct {
	mu       sync.Mutex
	epsilon  float64
	lastSig  map[string]string
	lastSlot map[string]int64
}

// NewParser creates a Parser. epsilon <= 0 uses DefaultDustEpsilon.
func NewParser(epsilon float64) *Parser {
	if epsilon <= 0 {
		epsilon = DefaultDustEpsilon
	}
	return &Parser{
		epsilon:  epsilon,
		lastSig:  make(map[string]string),
		lastSlot: make(map[string]int64),
	}
}

// Parse extracts at most one activity per watched owner from tx. A
// transaction touching several watched owners yields one activity each.
// Failed transactions and already-seen signatures produce nothing.
func (p *Parser) Parse(tx *solana.Transaction, watched map[string]bool) []domain.WhaleActivity {
	if tx == nil || tx.Meta == nil || tx.Meta.Err != nil {
		return nil
	}

	// Sum balances per (owner, mint). Token accounts can split a mint
	// across several entries.
	pre := make(map[[2]string]float64)
	post := make(map[[2]string]float64)
	decimals := make(map[[2]string]int)
	for _, b := range tx.Meta.PreTokenBalances {
		if watched[b.Owner] && b.UIAmount != nil {
			key := [2]string{b.Owner, b.Mint}
			pre[key] += *b.UIAmount
			decimals[key] = b.Decimals
		}
	}
	for _, b := range tx.Meta.PostTokenBalances {
		if watched[b.Owner] && b.UIAmount != nil {
			key := [2]string{b.Owner, b.Mint}
			post[key] += *b.UIAmount
			decimals[key] = b.Decimals
		}
	}

	// Per-owner largest move wins, but a swap's WSOL/USDC leg must not
	// mask the token leg: base-asset moves only count when nothing else
	// crossed epsilon.
	type move struct {
		mint     string
		delta    float64
		decimals int
	}
	best := make(map[string]move)
	baseBest := make(map[string]move)

	consider := func(key [2]string) {
		owner, mint := key[0], key[1]
		delta := post[key] - pre[key]
		if math.Abs(delta) <= p.epsilon {
			return
		}
		target := best
		if domain.IsBaseAsset(mint) {
			target = baseBest
		}
		if cur, ok := target[owner]; !ok || math.Abs(delta) > math.Abs(cur.delta) {
			target[owner] = move{mint: mint, delta: delta, decimals: decimals[key]}
		}
	}
	for key := range pre {
		consider(key)
	}
	for key := range post {
		if _, ok := pre[key]; !ok {
			consider(key)
		}
	}
	for owner, mv := range baseBest {
		if _, ok := best[owner]; !ok {
			best[owner] = mv
		}
	}

	if len(best) == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now().UnixMilli()
	var activities []domain.WhaleActivity
	for owner, mv := range best {
		if p.lastSig[owner] == tx.Signature {
			continue
		}
		if tx.Slot < p.lastSlot[owner] {
			// Stale replay from the polling path.
			continue
		}
		p.lastSig[owner] = tx.Signature
		p.lastSlot[owner] = tx.Slot

		action := domain.ActionBuy
		if mv.delta < 0 {
			action = domain.ActionSell
		}

		activities = append(activities, domain.WhaleActivity{
			WhaleAddress:  owner,
			TokenAddress:  mv.mint,
			TokenDecimals: mv.decimals,
			Action:        action,
			AmountTokens:  math.Abs(mv.delta),
			Signature:     tx.Signature,
			Slot:          tx.Slot,
			ObservedAt:    now,
			Confidence:    baseConfidence(math.Abs(mv.delta)),
		})
	}
	return activities
}

// baseConfidence assigns an initial signal confidence by trade size.
// Downstream risk data adjusts it further.
func baseConfidence(amount float64) float64 {
	switch {
	case amount >= 100_000:
		return 0.85
	case amount >= 1_000:
		return 0.70
	default:
		return 0.55
	}
}
