// Package trader copies whale buys for subscribed users and manages the
// resulting positions until exit.
package trader

import (
	"errors"
	"sync"
	"time"

	"solana-soldier/internal/signer"
)

// Per-subscriber defaults.
const (
	DefaultGasReserveSOL = 0.005
	DefaultMinProfitUSD  = 2.0
	DefaultMaxHold       = 120 * time.Second
)

var ErrInvalidSubscriber = errors.New("invalid subscriber")

// Subscriber is one user copy-trading the watched whales.
type Subscriber struct {
	OwnerID string
	Signer  signer.Signer

	TradeAmountSOL float64 // size per copied buy
	MaxPositionSOL float64 // hard cap on a single entry
	GasReserveSOL  float64 // SOL kept back for fees
	MinProfitUSD   float64 // profit target
	MaxHold        time.Duration
	StopLossPct    float64 // 0 disables the stop
	Enabled        bool
}

func (s *Subscriber) applyDefaults() {
	if s.GasReserveSOL == 0 {
		s.GasReserveSOL = DefaultGasReserveSOL
	}
	if s.MinProfitUSD == 0 {
		s.MinProfitUSD = DefaultMinProfitUSD
	}
	if s.MaxHold == 0 {
		s.MaxHold = DefaultMaxHold
	}
	if s.MaxPositionSOL == 0 {
		s.MaxPositionSOL = s.TradeAmountSOL
	}
}

// Registry holds the subscribed users.
type Registry struct {
	mu   sync.RWMutex
	subs map[string]*Subscriber
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{subs: make(map[string]*Subscriber)}
}

// Add registers a subscriber, replacing any previous entry for the same
// owner. Defaults are applied to zero-valued policy fields.
func (r *Registry) Add(sub *Subscriber) error {
	if sub == nil || sub.OwnerID == "" || sub.Signer == nil || sub.TradeAmountSOL <= 0 {
		return ErrInvalidSubscriber
	}
	cp := *sub
	cp.applyDefaults()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[cp.OwnerID] = &cp
	return nil
}

// Get returns the subscriber for an owner.
func (r *Registry) Get(ownerID string) (*Subscriber, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub, ok := r.subs[ownerID]
	if !ok {
		return nil, false
	}
	cp := *sub
	return &cp, true
}

// Active returns all enabled subscribers.
func (r *Registry) Active() []*Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var active []*Subscriber
	for _, sub := range r.subs {
		if sub.Enabled {
			cp := *sub
			active = append(active, &cp)
		}
	}
	return active
}

// SetEnabled toggles a subscriber's trading flag.
func (r *Registry) SetEnabled(ownerID string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[ownerID]
	if !ok {
		return ErrInvalidSubscriber
	}
	sub.Enabled = enabled
	return nil
}
