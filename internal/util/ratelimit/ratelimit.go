// Package ratelimit coalesces bursts of triggers into runs of an action spaced
// at least one period apart.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

type RateLimiter struct {
	period time.Duration
	action func(ctx context.Context)
	wake   chan struct{}
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// New starts the background loop. The action runs at most once per period;
// triggers received while it runs or while the period elapses collapse into a
// single later run.
func New(period time.Duration, action func(ctx context.Context)) *RateLimiter {
	ctx, cancel := context.WithCancel(context.Background())
	r := &RateLimiter{
		period: period,
		action: action,
		wake:   make(chan struct{}, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go r.loop(ctx)
	return r
}

// Execute requests a run of the action. It never blocks.
func (r *RateLimiter) Execute() {
	select {
	case r.wake <- struct{}{}:
	default:
		// a run is already pending
	}
}

// Close stops the loop and waits for an in-flight action to return.
func (r *RateLimiter) Close() {
	r.once.Do(func() {
		r.cancel()
		<-r.done
	})
}

func (r *RateLimiter) loop(ctx context.Context) {
	defer close(r.done)
	timer := time.NewTimer(r.period)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.wake:
		}
		r.action(ctx)
		timer.Reset(r.period)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
