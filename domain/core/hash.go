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

// Short returns the first 12 hex characters, for log lines.
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// ConfigHash fingerprints the fit configuration a dataset was generated from.
type ConfigHash Hash

func NewConfigHash(data []byte) ConfigHash { return ConfigHash(NewHash(data)) }

func (h ConfigHash) String() string { return Hash(h).String() }

// ComputeParameterHash fingerprints a named parameter assignment independent of map order.
func ComputeParameterHash(params map[string]float64) Hash {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var data strings.Builder
	for _, key := range keys {
		data.WriteString(key)
		data.WriteString(fmt.Sprintf("=%g;", params[key]))
	}
	return NewHash([]byte(data.String()))
}
