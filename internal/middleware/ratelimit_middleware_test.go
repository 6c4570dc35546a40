package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvalidAuthRateLimiter(t *testing.T) {
	rl := NewInvalidAuthRateLimiter()

	for i := 0; i < 5; i++ {
		assert.True(t, rl.Allow("10.0.0.1"), "attempt %d should pass", i+1)
	}
	assert.False(t, rl.Allow("10.0.0.1"), "sixth attempt within the window must be blocked")

	// A different IP has its own window.
	assert.True(t, rl.Allow("10.0.0.2"))
}
