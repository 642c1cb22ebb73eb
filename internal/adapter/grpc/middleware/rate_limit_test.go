package middleware

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// setupTestRedis creates a miniredis instance for testing
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client, mr
}

// fakeClock returns a controllable time source
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(t *testing.T, client *redis.Client, config RateLimiterConfig) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	rl := NewRateLimiter(client, config, zaptest.NewLogger(t))
	rl.now = clock.Now
	return rl, clock
}

// mockHandler is a simple handler that returns a fixed value
func mockHandler(ctx context.Context, req any) (any, error) {
	return "success", nil
}

func peerContext(t *testing.T, addr string) context.Context {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	require.NoError(t, err)
	return peer.NewContext(context.Background(), &peer.Peer{Addr: tcpAddr})
}

var addUserInfo = &grpc.UnaryServerInfo{FullMethod: "/account.AccountService/AddNewUser"}

func TestRateLimiter_WithinLimit(t *testing.T) {
	client, _ := setupTestRedis(t)
	rl, _ := newTestLimiter(t, client, RateLimiterConfig{RequestsPerSecond: 10, BurstCapacity: 10, Enabled: true})
	interceptor := rl.UnaryInterceptor()
	ctx := peerContext(t, "127.0.0.1:12345")

	for i := 0; i < 5; i++ {
		resp, err := interceptor(ctx, nil, addUserInfo, mockHandler)
		require.NoError(t, err)
		assert.Equal(t, "success", resp)
	}
}

func TestRateLimiter_ExceedLimit(t *testing.T) {
	client, _ := setupTestRedis(t)
	rl, _ := newTestLimiter(t, client, RateLimiterConfig{RequestsPerSecond: 5, BurstCapacity: 5, Enabled: true})
	interceptor := rl.UnaryInterceptor()
	ctx := peerContext(t, "127.0.0.1:12345")

	for i := 0; i < 5; i++ {
		_, err := interceptor(ctx, nil, addUserInfo, mockHandler)
		require.NoError(t, err)
	}

	resp, err := interceptor(ctx, nil, addUserInfo, mockHandler)
	require.Error(t, err)
	assert.Nil(t, resp)

	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.ResourceExhausted, st.Code())
	assert.Contains(t, st.Message(), "rate limit exceeded")
}

func TestRateLimiter_Refill(t *testing.T) {
	client, mr := setupTestRedis(t)
	rl, clock := newTestLimiter(t, client, RateLimiterConfig{RequestsPerSecond: 2, BurstCapacity: 4, Enabled: true})
	ctx := context.Background()
	key := "ratelimit:tb:test"

	for i := 0; i < 4; i++ {
		allowed, err := rl.Allow(ctx, key)
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, err := rl.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, allowed)

	clock.Advance(time.Second)

	for i := 0; i < 2; i++ {
		allowed, err := rl.Allow(ctx, key)
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, err = rl.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, allowed)

	ttl := mr.TTL(key)
	assert.Greater(t, ttl.Seconds(), 0.0)
	assert.LessOrEqual(t, ttl.Seconds(), 60.0)
}

func TestRateLimiter_Disabled(t *testing.T) {
	client, _ := setupTestRedis(t)
	rl, _ := newTestLimiter(t, client, RateLimiterConfig{RequestsPerSecond: 1, BurstCapacity: 1, Enabled: false})
	interceptor := rl.UnaryInterceptor()
	ctx := peerContext(t, "127.0.0.1:12345")

	for i := 0; i < 10; i++ {
		resp, err := interceptor(ctx, nil, addUserInfo, mockHandler)
		require.NoError(t, err)
		assert.Equal(t, "success", resp)
	}
}

func TestRateLimiter_DifferentIPs(t *testing.T) {
	client, _ := setupTestRedis(t)
	rl, _ := newTestLimiter(t, client, RateLimiterConfig{RequestsPerSecond: 1, BurstCapacity: 2, Enabled: true})
	interceptor := rl.UnaryInterceptor()

	ctx1 := peerContext(t, "192.168.1.1:12345")
	for i := 0; i < 2; i++ {
		_, err := interceptor(ctx1, nil, addUserInfo, mockHandler)
		require.NoError(t, err)
	}
	_, err := interceptor(ctx1, nil, addUserInfo, mockHandler)
	require.Error(t, err)

	ctx2 := peerContext(t, "192.168.1.2:12345")
	resp, err := interceptor(ctx2, nil, addUserInfo, mockHandler)
	require.NoError(t, err)
	assert.Equal(t, "success", resp)
}

func withForwarded(ctx context.Context, kv ...string) context.Context {
	return metadata.NewIncomingContext(ctx, metadata.Pairs(kv...))
}

const addUserKeyPrefix = "ratelimit:tb:/account.AccountService/AddNewUser:"

func TestRateLimiter_ForwardedHeadersIgnoredFromUntrustedPeer(t *testing.T) {
	client, mr := setupTestRedis(t)
	rl, _ := newTestLimiter(t, client, RateLimiterConfig{RequestsPerSecond: 1, BurstCapacity: 1, Enabled: true})
	interceptor := rl.UnaryInterceptor()

	// a client rotating spoofed headers still drains its own bucket
	ctx := withForwarded(peerContext(t, "198.51.100.7:40000"), "x-forwarded-for", "203.0.113.1", "x-real-ip", "203.0.113.2")
	_, err := interceptor(ctx, nil, addUserInfo, mockHandler)
	require.NoError(t, err)

	ctx = withForwarded(peerContext(t, "198.51.100.7:40000"), "x-forwarded-for", "203.0.113.99")
	_, err = interceptor(ctx, nil, addUserInfo, mockHandler)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))

	assert.True(t, mr.Exists(addUserKeyPrefix+"198.51.100.7"))
	assert.False(t, mr.Exists(addUserKeyPrefix+"203.0.113.1"))
	assert.False(t, mr.Exists(addUserKeyPrefix+"203.0.113.99"))
}

func TestRateLimiter_ForwardedHeadersFromTrustedProxy(t *testing.T) {
	client, mr := setupTestRedis(t)
	rl, _ := newTestLimiter(t, client, RateLimiterConfig{
		RequestsPerSecond: 5,
		BurstCapacity:     10,
		Enabled:           true,
		TrustedProxies:    []string{"10.0.0.0/8", "192.0.2.10"},
	})
	interceptor := rl.UnaryInterceptor()

	tests := []struct {
		name string
		ctx  context.Context
		key  string
	}{
		{
			name: "first untrusted hop from the right",
			ctx:  withForwarded(peerContext(t, "10.1.2.3:5000"), "x-forwarded-for", "203.0.113.1, 203.0.113.5, 10.0.0.9"),
			key:  "203.0.113.5",
		},
		{
			name: "single address proxy",
			ctx:  withForwarded(peerContext(t, "192.0.2.10:5000"), "x-forwarded-for", " 203.0.113.7 "),
			key:  "203.0.113.7",
		},
		{
			name: "x-real-ip fallback",
			ctx:  withForwarded(peerContext(t, "10.1.2.3:5000"), "x-real-ip", "203.0.113.8"),
			key:  "203.0.113.8",
		},
		{
			name: "no forwarding metadata",
			ctx:  peerContext(t, "10.1.2.3:5000"),
			key:  "10.1.2.3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := interceptor(tt.ctx, nil, addUserInfo, mockHandler)
			require.NoError(t, err)
			assert.True(t, mr.Exists(addUserKeyPrefix+tt.key))
		})
	}
}

func TestRateLimiter_PeerPortIgnored(t *testing.T) {
	client, mr := setupTestRedis(t)
	rl, _ := newTestLimiter(t, client, RateLimiterConfig{RequestsPerSecond: 1, BurstCapacity: 2, Enabled: true})
	interceptor := rl.UnaryInterceptor()

	// new connections get new source ports but share one bucket
	for _, addr := range []string{"192.168.1.1:1000", "192.168.1.1:1001"} {
		_, err := interceptor(peerContext(t, addr), nil, addUserInfo, mockHandler)
		require.NoError(t, err)
	}
	_, err := interceptor(peerContext(t, "192.168.1.1:1002"), nil, addUserInfo, mockHandler)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))

	_, err = interceptor(peerContext(t, "[2001:db8::1]:1003"), nil, addUserInfo, mockHandler)
	require.NoError(t, err)

	assert.True(t, mr.Exists(addUserKeyPrefix+"192.168.1.1"))
	assert.True(t, mr.Exists(addUserKeyPrefix+"2001:db8::1"))
}

func TestRateLimiter_InvalidTrustedProxySkipped(t *testing.T) {
	client, _ := setupTestRedis(t)
	rl, _ := newTestLimiter(t, client, RateLimiterConfig{
		Enabled:        true,
		TrustedProxies: []string{"not-an-ip", "10.0.0.1", "::ffff:10.0.0.2"},
	})

	assert.Len(t, rl.trusted, 2)
	assert.True(t, rl.isTrusted("10.0.0.1"))
	assert.True(t, rl.isTrusted("10.0.0.2"))
	assert.False(t, rl.isTrusted("10.0.0.3"))
	assert.Equal(t, []string{"not-an-ip", "10.0.0.1", "::ffff:10.0.0.2"}, rl.TrustedProxies())

	var nilLimiter *RateLimiter
	assert.Nil(t, nilLimiter.TrustedProxies())
}

func TestRateLimiter_DifferentMethods(t *testing.T) {
	client, _ := setupTestRedis(t)
	rl, _ := newTestLimiter(t, client, RateLimiterConfig{RequestsPerSecond: 1, BurstCapacity: 2, Enabled: true})
	interceptor := rl.UnaryInterceptor()
	ctx := peerContext(t, "127.0.0.1:12345")

	for i := 0; i < 2; i++ {
		_, err := interceptor(ctx, nil, addUserInfo, mockHandler)
		require.NoError(t, err)
	}

	loadInfo := &grpc.UnaryServerInfo{FullMethod: "/account.AccountService/LoadUserByUsername"}
	resp, err := interceptor(ctx, nil, loadInfo, mockHandler)
	require.NoError(t, err)
	assert.Equal(t, "success", resp)
}

func TestRateLimiter_FailOpen(t *testing.T) {
	client, mr := setupTestRedis(t)
	rl, _ := newTestLimiter(t, client, RateLimiterConfig{RequestsPerSecond: 1, BurstCapacity: 1, Enabled: true})
	interceptor := rl.UnaryInterceptor()
	ctx := peerContext(t, "127.0.0.1:12345")

	mr.Close()

	for i := 0; i < 3; i++ {
		resp, err := interceptor(ctx, nil, addUserInfo, mockHandler)
		require.NoError(t, err)
		assert.Equal(t, "success", resp)
	}
}
