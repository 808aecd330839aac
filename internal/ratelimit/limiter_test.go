package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBurstThenDenied(t *testing.T) {
	l := NewLimiter(1, 2)

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"), "burst exhausted, refill is ~1/hour")
}

func TestClientsAreIndependent(t *testing.T) {
	l := NewLimiter(1, 1)

	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"), "a second client has its own bucket")
}

func TestTokensDrain(t *testing.T) {
	l := NewLimiter(1, 3)

	before := l.Tokens("10.0.0.1")
	l.Allow("10.0.0.1")
	after := l.Tokens("10.0.0.1")

	assert.Greater(t, before, after)
}
