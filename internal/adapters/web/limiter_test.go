package web

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"inventory-ledger/internal/cache"
)

func TestLoginLimiter(t *testing.T) {
	ctx := context.Background()
	l := &loginLimiter{store: cache.NewMemory(), threshold: 3, window: time.Minute}

	assert.False(t, l.blocked(ctx, "10.0.0.1"))

	l.recordFailure(ctx, "10.0.0.1")
	l.recordFailure(ctx, "10.0.0.1")
	assert.False(t, l.blocked(ctx, "10.0.0.1"), "below threshold")

	l.recordFailure(ctx, "10.0.0.1")
	assert.True(t, l.blocked(ctx, "10.0.0.1"), "at threshold")

	// Counters are per source address.
	assert.False(t, l.blocked(ctx, "10.0.0.2"))

	l.reset(ctx, "10.0.0.1")
	assert.False(t, l.blocked(ctx, "10.0.0.1"), "reset clears the lockout")
}
