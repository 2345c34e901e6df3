package rankcache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// keyVersion is bumped whenever the cached payload shape changes, so stale
// entries from older releases are never decoded.
const keyVersion = "v1"

// RequestKey derives a deterministic cache key from the complete request.
// The request struct is serialized with fixed field order (encoding/json
// emits struct fields in declaration order), so identical requests always
// map to the same key and any differing field yields a different one.
func RequestKey(prefix string, req interface{}) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshaling cache key payload: %w", err)
	}
	sum := sha256.Sum256(payload)
	return fmt.Sprintf("%s:%s:%s", prefix, keyVersion, hex.EncodeToString(sum[:])[:16]), nil
}
