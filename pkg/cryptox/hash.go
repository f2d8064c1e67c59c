package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashCode returns the unsalted SHA-256 digest of a short code in lowercase
// hex. It is used for backup codes and email OTPs so they can be looked up
// without storing the plaintext.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// EqualDigest compares two digests in constant time.
func EqualDigest(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// IndexDigest returns the position of want in digests, or -1. Every entry is
// compared so the timing does not depend on where the match is.
func IndexDigest(digests []string, want string) int {
	idx := -1
	for i, d := range digests {
		if EqualDigest(d, want) && idx == -1 {
			idx = i
		}
	}
	return idx
}
