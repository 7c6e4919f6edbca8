package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key generates a cache key from claim text. Case, surrounding whitespace
// and internal whitespace runs do not affect the key, so trivial rewordings
// of the same claim share a verdict.
func Key(claimText string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(claimText)), " ")
	hash := sha256.Sum256([]byte(normalized))
	return "truthcheck:v1:" + hex.EncodeToString(hash[:])
}
