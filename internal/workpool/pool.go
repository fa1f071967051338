// Package workpool runs CPU-bound cryptographic work on bounded lanes so a
// burst on one lane cannot starve the other.
package workpool

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/dtroode/pgpmail-server/internal/metrics"
)

// Lane names a bounded group of workers.
type Lane string

const (
	// LaneKeygen runs key pair generation.
	LaneKeygen Lane = "keygen"
	// LaneCrypto runs encryption, decryption and passphrase checks.
	LaneCrypto Lane = "crypto"
)

// Pool bounds concurrent work per lane.
type Pool struct {
	lanes   map[Lane]*semaphore.Weighted
	metrics *metrics.Metrics
}

// New creates a Pool. Non-positive sizes are treated as one worker.
func New(keygenWorkers, cryptoWorkers int, m *metrics.Metrics) *Pool {
	return &Pool{
		lanes: map[Lane]*semaphore.Weighted{
			LaneKeygen: semaphore.NewWeighted(int64(max(keygenWorkers, 1))),
			LaneCrypto: semaphore.NewWeighted(int64(max(cryptoWorkers, 1))),
		},
		metrics: m,
	}
}

// Run executes fn on lane once a slot is free. If ctx ends while waiting,
// fn never runs. If ctx ends while fn runs, Run returns ctx.Err() at once
// but fn still runs to completion and only then frees its slot.
func (p *Pool) Run(ctx context.Context, lane Lane, fn func()) error {
	sem, ok := p.lanes[lane]
	if !ok {
		return fmt.Errorf("unknown worker lane %q", lane)
	}

	waitStart := time.Now()
	if err := sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("failed to acquire %s worker: %w", lane, err)
	}
	p.metrics.LaneAcquired(string(lane), time.Since(waitStart))

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer sem.Release(1)
		defer p.metrics.LaneReleased(string(lane))
		fn()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
