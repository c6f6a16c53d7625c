package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowConsumesBurst(t *testing.T) {
	t.Parallel()

	l := New(3)
	assert.True(t, l.Allow())
	assert.True(t, l.Allow())
	assert.True(t, l.Allow())
	assert.False(t, l.Allow(), "burst of 3 should be exhausted")
}

func TestSubUnitRateStillAllowsOneRequest(t *testing.T) {
	t.Parallel()

	l := New(0.33)
	assert.True(t, l.Allow(), "rates below 1/s still permit a single immediate request")
	assert.False(t, l.Allow())
}

func TestWaitHonorsContext(t *testing.T) {
	t.Parallel()

	l := New(0.1)
	require.NoError(t, l.Wait(context.Background()), "first token is free")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	assert.Error(t, err, "second token at 0.1/s cannot arrive within 20ms")
}

func TestTokensRefillOverTime(t *testing.T) {
	t.Parallel()

	l := New(50)
	for i := 0; i < 50; i++ {
		l.Allow()
	}
	require.False(t, l.Allow())

	time.Sleep(50 * time.Millisecond)
	assert.True(t, l.Allow(), "tokens should refill at the configured rate")
}
