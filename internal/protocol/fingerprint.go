package protocol

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Fingerprint computes an opaque, bit-exact-comparable identifier for a
// configuration. encoding/json marshals struct fields in declaration order
// and map keys in sorted order, so two Configs with identical contents
// always marshal to identical bytes regardless of how the caller built
// them in memory; only the servers' declared order (which is load-bearing,
// per ServerNames) affects the result.
func Fingerprint(cfg Config) (string, error) {
	normalized := cfg.WithDefaults()
	b, err := json.Marshal(normalized)
	if err != nil {
		return "", fmt.Errorf("fingerprint: marshal config: %w", err)
	}
	sum := sha256.Sum256(b)
	return "sha256:" + hex.EncodeToString(sum[:]), nil
}
