package rate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestNoLimiter(t *testing.T) {
	l := &NoLimiter{}
	for i := 0; i < 1000; i++ {
		allowed, err := l.Allow("")
		assert.NoError(t, err)
		assert.True(t, allowed)
	}
}

func TestLocalRateLimiter(t *testing.T) {
	l := NewLocalRateLimiter(rate.Limit(2))

	for i := 0; i < 2; i++ {
		allowed, err := l.Allow("vault1")
		assert.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := l.Allow("vault1")
	assert.NoError(t, err)
	assert.False(t, allowed)

	// Buckets are partitioned by key
	for i := 0; i < 2; i++ {
		allowed, err := l.Allow("vault2")
		assert.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err = l.Allow("vault2")
	assert.NoError(t, err)
	assert.False(t, allowed)
}
