package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// ipHashIterations matches the iteration count clients use for user IDs.
const ipHashIterations = 5000

// SHA256Hex returns the hex-encoded SHA256 hash of the input string.
func SHA256Hex(input string) string {
	h := sha256.Sum256([]byte(input))
	return hex.EncodeToString(h[:])
}

// IteratedSHA256 applies SHA256 iteratively n times to produce a derived hash.
func IteratedSHA256(input string, iterations int) string {
	data := []byte(input)
	for i := 0; i < iterations; i++ {
		h := sha256.Sum256(data)
		data = h[:]
	}
	return hex.EncodeToString(data)
}

// HashIP hashes an IP address with a salt so votes can be correlated for
// abuse review without storing the raw address.
func HashIP(ip, salt string) string {
	return IteratedSHA256(salt+ip, ipHashIterations)
}
