package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestPacerSleepsFixedDelay(t *testing.T) {
	clock := NewFakeClock(epoch)
	pacer := NewPacer(clock, 300*time.Millisecond)

	for i := 0; i < 3; i++ {
		require.NoError(t, pacer.Wait(context.Background()))
	}

	assert.Equal(t, []time.Duration{
		300 * time.Millisecond, 300 * time.Millisecond, 300 * time.Millisecond,
	}, clock.Sleeps())
	assert.Equal(t, epoch.Add(900*time.Millisecond), clock.Now())

	waits, slept := pacer.Stats()
	assert.Equal(t, 3, waits)
	assert.Equal(t, 900*time.Millisecond, slept)
}

func TestPacerCancelled(t *testing.T) {
	clock := NewFakeClock(epoch)
	pacer := NewPacer(clock, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := pacer.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, clock.SleepCount())

	waits, slept := pacer.Stats()
	assert.Equal(t, 1, waits)
	assert.Zero(t, slept)
}

func TestRealClockSleep(t *testing.T) {
	start := time.Now()
	require.NoError(t, RealClock{}.Sleep(context.Background(), 20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, RealClock{}.Sleep(ctx, time.Hour), context.Canceled)
	assert.ErrorIs(t, RealClock{}.Sleep(ctx, 0), context.Canceled)
	assert.NoError(t, RealClock{}.Sleep(context.Background(), 0))
}

func TestFakeClockAdvance(t *testing.T) {
	clock := NewFakeClock(epoch)
	clock.Advance(time.Minute)
	assert.Equal(t, epoch.Add(time.Minute), clock.Now())
	assert.Zero(t, clock.SleepCount())
}

func TestNilClockDefaultsToRealClock(t *testing.T) {
	pacer := NewPacer(nil, 0)
	assert.Equal(t, RealClock{}, pacer.clock)
	assert.NoError(t, pacer.Wait(context.Background()))
}
