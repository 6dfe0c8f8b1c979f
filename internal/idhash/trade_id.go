package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(owner_id|token_address|action|executed_at_ms)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(
	ownerID string,
	tokenAddress string,
	action string,
	executedAtMs int64,
) string {
	data := fmt.Sprintf("%s|%s|%s|%d",
		ownerID,
		tokenAddress,
		action,
		executedAtMs,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
