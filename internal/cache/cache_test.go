package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Get(ctx, "absent")
	assert.True(t, errors.Is(err, ErrMiss))

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, m.Delete(ctx, "k", "also-absent"))
	_, err = m.Get(ctx, "k")
	assert.True(t, errors.Is(err, ErrMiss))
}

func TestMemory_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	current := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return current }

	require.NoError(t, m.Set(ctx, "k", []byte("v"), 30*time.Second))

	_, err := m.Get(ctx, "k")
	require.NoError(t, err)

	current = current.Add(29 * time.Second)
	_, err = m.Get(ctx, "k")
	require.NoError(t, err, "still within TTL")

	current = current.Add(2 * time.Second)
	_, err = m.Get(ctx, "k")
	assert.True(t, errors.Is(err, ErrMiss), "expired entries miss")
}

func TestDashboardKeys_Stable(t *testing.T) {
	keys := DashboardKeys()
	require.NotEmpty(t, keys)
	seen := map[string]bool{}
	for _, k := range keys {
		assert.False(t, seen[k], "duplicate key %s", k)
		seen[k] = true
	}
	assert.True(t, seen["dashboard_overview"])
	assert.True(t, seen["dashboard_activities_10"])
}
