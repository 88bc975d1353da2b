package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// Short returns the first n hex characters, or the whole hash if shorter.
func (h Hash) Short(n int) string {
	if len(h) <= n {
		return string(h)
	}
	return string(h[:n])
}

// ComputeVarsHash hashes a named-value mapping independently of map iteration order.
func ComputeVarsHash(vars map[string]float64) Hash {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var data strings.Builder
	for _, key := range keys {
		data.WriteString(key)
		data.WriteString("=")
		// %b keeps the exact bit pattern so that nearby points never collide
		data.WriteString(fmt.Sprintf("%b;", vars[key]))
	}
	return NewHash([]byte(data.String()))
}

// ComputeListHash hashes an ordered list of names.
func ComputeListHash(names []string) Hash {
	return NewHash([]byte(strings.Join(names, "\x1f")))
}
