package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is satisfied by anything that can hold a caller back between requests
type Limiter interface {
	// Wait blocks until the next request may proceed
	Wait(ctx context.Context) error
}

// Pacer imposes a fixed delay on every Wait. It does not account for how long
// the preceding request took.
type Pacer struct {
	clock Clock
	delay time.Duration

	mu    sync.Mutex
	waits int
	slept time.Duration
}

// NewPacer creates a pacer. A nil clock means the wall clock.
func NewPacer(clock Clock, delay time.Duration) *Pacer {
	if clock == nil {
		clock = RealClock{}
	}
	return &Pacer{clock: clock, delay: delay}
}

// Wait sleeps for the configured delay. Cancellation ends the sleep early and
// is returned to the caller.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	p.waits++
	p.mu.Unlock()

	if err := p.clock.Sleep(ctx, p.delay); err != nil {
		return err
	}

	p.mu.Lock()
	p.slept += p.delay
	p.mu.Unlock()
	return nil
}

// Delay returns the configured delay
func (p *Pacer) Delay() time.Duration {
	return p.delay
}

// Stats returns the number of Wait calls and the total time actually slept
func (p *Pacer) Stats() (waits int, slept time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waits, p.slept
}
