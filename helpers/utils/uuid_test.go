package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateUUIDFormat(t *testing.T) {
	id := GenerateUUID()
	parts := strings.Split(id, "-")
	assert.Len(t, parts, 5)
	assert.Len(t, id, 36)
}

func TestGenerateUUIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateUUID()
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint("1", "some text")
	b := Fingerprint("1", "some text")
	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "sha256:"))
}

func TestFingerprintSeparatesParts(t *testing.T) {
	assert.NotEqual(t, Fingerprint("a", "bc"), Fingerprint("ab", "c"))
	assert.NotEqual(t, Fingerprint("1", "text"), Fingerprint("2", "text"))
}
