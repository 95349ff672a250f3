package content

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/mrtinhnguyen/govsense-tthc/pkg/types"
)

// Hash returns the hex SHA-256 digest of the UTF-8 canonical text.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Identity is the canonical text and its hash, computed together so the
// two can never be derived from different field snapshots.
type Identity struct {
	Text string
	Hash string
}

// Of computes the identity of f.
func Of(f types.Fields) Identity {
	text := Canonicalize(f)
	return Identity{Text: text, Hash: Hash(text)}
}
