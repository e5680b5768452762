package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"strings"
)

const prefix = "sha256:"

// Digester accumulates a SHA256 over everything written to it.
type Digester struct {
	h hash.Hash
}

// New returns an empty Digester.
func New() *Digester {
	return &Digester{h: sha256.New()}
}

func (d *Digester) Write(p []byte) (int, error) {
	return d.h.Write(p)
}

// String returns the digest in the format "sha256:<hex_hash>".
func (d *Digester) String() string {
	return prefix + hex.EncodeToString(d.h.Sum(nil))
}

// Equal reports whether two digests name the same hash. The "sha256:" prefix
// is optional on either side and hex case is ignored.
func Equal(a, b string) bool {
	a = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(a), prefix))
	b = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(b), prefix))
	return a != "" && a == b
}
