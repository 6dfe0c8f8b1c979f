package idhash

import (
	"testing"
)

func TestComputeTradeID(t *testing.T) {
	tests := []struct {
		name         string
		ownerID      string
		tokenAddress string
		action       string
		executedAtMs int64
		wantLen      int // hash length should be 64
	}{
		{
			name:         "buy trade",
			ownerID:      "user-42",
			tokenAddress: "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU",
			action:       "BUY",
			executedAtMs: 1704067234567,
			wantLen:      64,
		},
		{
			name:         "sell trade",
			ownerID:      "user-42",
			tokenAddress: "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU",
			action:       "SELL",
			executedAtMs: 1704067300000,
			wantLen:      64,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTradeID(tt.ownerID, tt.tokenAddress, tt.action, tt.executedAtMs)

			if len(got) != tt.wantLen {
				t.Errorf("ComputeTradeID() length = %d, want %d", len(got), tt.wantLen)
			}

			// Verify determinism: same inputs should produce same output
			got2 := ComputeTradeID(tt.ownerID, tt.tokenAddress, tt.action, tt.executedAtMs)
			if got != got2 {
				t.Errorf("ComputeTradeID() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestComputeTradeID_DifferentInputs(t *testing.T) {
	base := ComputeTradeID("owner", "token", "BUY", 1000)

	diffOwner := ComputeTradeID("other_owner", "token", "BUY", 1000)
	if base == diffOwner {
		t.Error("Different owner should produce different hash")
	}

	diffToken := ComputeTradeID("owner", "other_token", "BUY", 1000)
	if base == diffToken {
		t.Error("Different token should produce different hash")
	}

	diffAction := ComputeTradeID("owner", "token", "SELL", 1000)
	if base == diffAction {
		t.Error("Different action should produce different hash")
	}

	diffTime := ComputeTradeID("owner", "token", "BUY", 2000)
	if base == diffTime {
		t.Error("Different time should produce different hash")
	}
}
