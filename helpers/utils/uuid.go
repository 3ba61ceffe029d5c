package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"strings"
)

// GenerateUUID returns a random 128-bit identifier in the canonical
// hex-grouped layout. Used for scan and batch job IDs.
func GenerateUUID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// a zeroed ID is still well formed.
		return "00000000-0000-0000-0000-000000000000"
	}
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:])
}

// Fingerprint hashes the given parts into a stable cache key. Parts are
// joined with a NUL byte so ("a", "bc") and ("ab", "c") cannot collide.
func Fingerprint(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return fmt.Sprintf("sha256:%x", sum)
}
