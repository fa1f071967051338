package workpool

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/pgpmail-server/internal/metrics"
)

func TestPool_Run(t *testing.T) {
	p := New(1, 1, nil)
	ran := false

	err := p.Run(context.Background(), LaneCrypto, func() { ran = true })

	require.NoError(t, err)
	assert.True(t, ran)
}

func TestPool_Run_UnknownLane(t *testing.T) {
	p := New(1, 1, nil)

	err := p.Run(context.Background(), Lane("gpu"), func() { t.Fatal("must not run") })

	assert.ErrorContains(t, err, "unknown worker lane")
}

func TestPool_Run_BoundedLane(t *testing.T) {
	p := New(1, 1, nil)
	release := make(chan struct{})
	started := make(chan struct{})

	go func() {
		_ = p.Run(context.Background(), LaneCrypto, func() {
			close(started)
			<-release
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := p.Run(ctx, LaneCrypto, func() { t.Error("must not run while lane is full") })
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
}

func TestPool_Run_LanesAreIndependent(t *testing.T) {
	p := New(1, 1, nil)
	release := make(chan struct{})
	started := make(chan struct{})
	defer close(release)

	go func() {
		_ = p.Run(context.Background(), LaneKeygen, func() {
			close(started)
			<-release
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ran := false
	err := p.Run(ctx, LaneCrypto, func() { ran = true })

	require.NoError(t, err)
	assert.True(t, ran)
}

func TestPool_Run_AbandonedWorkFinishes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	p := New(1, 1, m)

	release := make(chan struct{})
	started := make(chan struct{})
	finished := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- p.Run(ctx, LaneCrypto, func() {
			close(started)
			<-release
			close(finished)
		})
	}()
	<-started
	cancel()

	assert.ErrorIs(t, <-errCh, context.Canceled)

	// the slot is still held until the computation ends
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LaneInFlight.WithLabelValues(string(LaneCrypto))))

	close(release)
	<-finished

	ran := false
	require.NoError(t, p.Run(context.Background(), LaneCrypto, func() { ran = true }))
	assert.True(t, ran)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.LaneInFlight.WithLabelValues(string(LaneCrypto))))
}

func TestNew_NonPositiveSizes(t *testing.T) {
	p := New(0, -3, nil)

	require.NoError(t, p.Run(context.Background(), LaneKeygen, func() {}))
	require.NoError(t, p.Run(context.Background(), LaneCrypto, func() {}))
}
