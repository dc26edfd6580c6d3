// Package sha256 computes content digests for stored match records.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// Prefix tags digests with their algorithm.
const Prefix = "sha256:"

// Hasher implements content digests using SHA-256.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Digest returns the prefixed hex digest of data.
func (Hasher) Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return Prefix + hex.EncodeToString(sum[:])
}

// DigestReader streams r through SHA-256.
func (Hasher) DigestReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return Prefix + hex.EncodeToString(h.Sum(nil)), nil
}
