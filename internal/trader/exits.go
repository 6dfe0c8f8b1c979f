package trader

import (
	"context"
	"time"

	"solana-soldier/internal/domain"
	"solana-soldier/internal/jupiter"
	"solana-soldier/internal/observability"
)

// watchPosition polls the position until an exit condition fires, then
// sells. Exits are attempted exactly once: success or failure, the
// position leaves the book and the outcome is recorded.
func (t *Trader) watchPosition(pos domain.Position) {
	defer t.monitors.Done()

	ticker := time.NewTicker(t.opts.ExitPollInterval)
	defer ticker.Stop()

	deadline := pos.OpenedAt.Add(pos.MaxHold)

	for {
		select {
		case <-t.exitCtx.Done():
			// CancelAll owns whatever is still open.
			return
		case <-ticker.C:
		}

		reason := t.checkExit(&pos, deadline)
		if reason == "" {
			continue
		}

		t.exitPosition(t.exitCtx, pos, reason)
		return
	}
}

// checkExit samples the price and evaluates the exit policy. An empty
// reason means hold.
func (t *Trader) checkExit(pos *domain.Position, deadline time.Time) string {
	price, err := t.opts.Prices.GetPriceUSD(t.exitCtx, pos.TokenAddress)
	if err != nil {
		t.logf("price poll failed for %s: %v", pos.TokenAddress, err)
		// Price feed down: the timeout still binds.
		if time.Now().After(deadline) {
			return domain.ExitReasonTimeout
		}
		return ""
	}

	value := price * pos.TokensReceived
	pnl := value - pos.EntryValueUSD
	t.snapshot(pos, price, value, pnl)

	switch {
	case pnl >= pos.MinProfitUSD:
		return domain.ExitReasonProfitTarget
	case pos.StopLossPct > 0 && price <= pos.EntryPriceUSD*(1-pos.StopLossPct/100):
		return domain.ExitReasonStopLoss
	case time.Now().After(deadline):
		return domain.ExitReasonTimeout
	}
	return ""
}

// snapshot records one P&L observation. Best effort.
func (t *Trader) snapshot(pos *domain.Position, price, value, pnl float64) {
	if t.opts.Snapshots == nil {
		return
	}
	err := t.opts.Snapshots.InsertBulk(t.exitCtx, []*domain.PnLSnapshot{{
		OwnerID:      pos.OwnerID,
		TokenAddress: pos.TokenAddress,
		ObservedAtMs: time.Now().UnixMilli(),
		PriceUSD:     price,
		TokensHeld:   pos.TokensReceived,
		ValueUSD:     value,
		PnLUSD:       pnl,
	}})
	if err != nil {
		t.logf("snapshot insert failed for %s/%s: %v", pos.OwnerID, pos.TokenAddress, err)
	}
}

// exitPosition sells the full token balance. The position is removed
// regardless of outcome; a failed exit is recorded and reported, never
// retried.
func (t *Trader) exitPosition(ctx context.Context, pos domain.Position, reason string) {
	defer func() {
		t.book.Close(pos.Key())
		observability.SetOpenPositions(t.book.Count())
	}()

	sub, ok := t.opts.Registry.Get(pos.OwnerID)
	if !ok {
		t.logf("no subscriber for open position %s/%s, dropping", pos.OwnerID, pos.TokenAddress)
		return
	}

	// Sell whatever the wallet actually holds, not what the entry quote
	// promised. Falls back to the entry amount if the lookup fails.
	ui, raw, err := t.opts.RPC.GetTokenBalanceByOwner(ctx, sub.Signer.PublicKey(), pos.TokenAddress)
	tokensUI := pos.TokensReceived
	if err != nil || raw == 0 {
		if err != nil {
			t.logf("token balance lookup failed for %s: %v", pos.TokenAddress, err)
		}
		raw = uint64(pos.TokensReceived * domain.TokenScale(pos.TokenDecimals))
	} else if ui > 0 {
		tokensUI = ui
	}

	result := t.opts.Executor.ExecuteSwap(ctx, jupiter.SwapRequest{
		OwnerID:       pos.OwnerID,
		Action:        domain.ActionSell,
		InputMint:     pos.TokenAddress,
		OutputMint:    domain.WSOLMint,
		Amount:        raw,
		TokenAddress:  pos.TokenAddress,
		TokenSymbol:   pos.TokenSymbol,
		TokenDecimals: pos.TokenDecimals,
		Signer:        sub.Signer,
	})
	result.ExitReason = reason

	if result.Success {
		exitValue := result.PriceUSD * tokensUI
		pnl := exitValue - pos.EntryValueUSD
		result.PnLUSD = &pnl
		observability.RecordPnL(pnl)
		t.logf("closed %s/%s: %s, P&L $%.2f", pos.OwnerID, pos.TokenAddress, reason, pnl)
	} else {
		t.logf("exit %s failed for %s/%s: %s", reason, pos.OwnerID, pos.TokenAddress, result.Error)
	}

	t.record(ctx, pos.OwnerID, &result)
}

// CancelAll stops the exit monitors and force-exits every remaining
// position with one final swap each. Called on shutdown.
func (t *Trader) CancelAll(ctx context.Context) {
	t.exitCancel()
	t.monitors.Wait()

	for _, pos := range t.book.List() {
		t.exitPosition(ctx, pos, domain.ExitReasonShutdown)
	}
}
