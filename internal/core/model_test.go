package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercases", "User@Example.COM", "user@example.com"},
		{"trims whitespace", "  user@example.com \n", "user@example.com"},
		{"composes combining marks", "café@example.com", "café@example.com"},
		{"identity", "user@example.com", "user@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeAddress(tt.input))
		})
	}
}

func TestParseClassification(t *testing.T) {
	for _, valid := range []string{"deliverable", "undeliverable", "risky", "unknown"} {
		c, ok := ParseClassification(valid)
		assert.True(t, ok)
		assert.Equal(t, Classification(valid), c)
	}

	for _, invalid := range []string{"", "spam", "DELIVERABLE"} {
		_, ok := ParseClassification(invalid)
		assert.False(t, ok, "expected %q to be rejected", invalid)
	}
}

func TestParseDecision(t *testing.T) {
	for _, valid := range []string{"allow", "block"} {
		d, ok := ParseDecision(valid)
		assert.True(t, ok)
		assert.Equal(t, Decision(valid), d)
	}

	for _, invalid := range []string{"", "reject", "Allow"} {
		_, ok := ParseDecision(invalid)
		assert.False(t, ok, "expected %q to be rejected", invalid)
	}
}

func TestTTLTableFor(t *testing.T) {
	ttl := DefaultTTLTable()

	assert.Equal(t, 30*time.Minute, ttl.For(ClassDeliverable))
	assert.Equal(t, time.Hour, ttl.For(ClassUndeliverable))
	assert.Equal(t, 15*time.Minute, ttl.For(ClassRisky))
	assert.Equal(t, 5*time.Minute, ttl.For(ClassUnknown))

	// Anything unrecognized falls back to the shortest lifetime
	assert.Equal(t, 5*time.Minute, ttl.For(Classification("weird")))
}
