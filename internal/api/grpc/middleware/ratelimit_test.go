package middleware

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/dtroode/pgpmail-server/internal/metrics"
	"github.com/dtroode/pgpmail-server/internal/testutil"
)

func TestNewKeyedLimiter_InvalidArgs(t *testing.T) {
	assert.Nil(t, NewKeyedLimiter(0, 1, 0))
	assert.Nil(t, NewKeyedLimiter(1, 0, 0))

	var l *KeyedLimiter
	assert.True(t, l.Allow("10.0.0.1", time.Now()))
}

func TestKeyedLimiter_Allow(t *testing.T) {
	l := NewKeyedLimiter(1, 2, time.Minute)
	now := time.Unix(1_700_000_000, 0)

	assert.True(t, l.Allow("a", now))
	assert.True(t, l.Allow("a", now))
	assert.False(t, l.Allow("a", now), "burst exhausted")
	assert.True(t, l.Allow("b", now), "keys are independent")
	assert.True(t, l.Allow("a", now.Add(time.Second)), "token refilled")
	assert.True(t, l.Allow("", now), "unkeyed callers are not limited")
}

func TestKeyedLimiter_EvictsIdle(t *testing.T) {
	l := NewKeyedLimiter(100, 100, time.Minute)
	start := time.Unix(1_700_000_000, 0)

	l.Allow("idle", start)
	later := start.Add(2 * time.Minute)
	for i := range evictEvery - 1 {
		l.Allow(fmt.Sprintf("k%d", i%4), later)
	}

	assert.Equal(t, 4, l.size())
}

func peerContext(addr string) context.Context {
	tcp, _ := net.ResolveTCPAddr("tcp", addr)
	return peer.NewContext(context.Background(), &peer.Peer{Addr: tcp})
}

func TestRateLimit_HandleGRPC(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	rl := NewRateLimit(NewKeyedLimiter(1, 1, time.Minute), m, testutil.MakeNoopLogger())
	fixed := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return fixed }

	info := &grpc.UnaryServerInfo{FullMethod: "/pgpmail.Accounts/Login"}
	calls := 0
	handler := func(ctx context.Context, req any) (any, error) {
		calls++
		return "ok", nil
	}

	resp, err := rl.HandleGRPC(peerContext("10.0.0.1:5000"), nil, info, handler)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)

	_, err = rl.HandleGRPC(peerContext("10.0.0.1:5001"), nil, info, handler)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err), "same host on another port shares the bucket")

	_, err = rl.HandleGRPC(peerContext("10.0.0.2:5000"), nil, info, handler)
	assert.NoError(t, err)

	assert.Equal(t, 2, calls)
	assert.Equal(t, float64(1), promtest.ToFloat64(m.RateLimited.WithLabelValues("/pgpmail.Accounts/Login")))
}
