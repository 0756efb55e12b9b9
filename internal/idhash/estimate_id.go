package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"nft-floor-lab/internal/domain"
)

// ComputeEstimateID computes a deterministic estimate_id using SHA256.
// Formula: SHA256(run_id|chain_id|contract_address)
// Returns hex-encoded hash (64 characters).
func ComputeEstimateID(runID string, key domain.CollectionKey) string {
	data := fmt.Sprintf("%s|%d|%s",
		runID,
		key.ChainID,
		key.ContractAddress,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
