package middleware

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// RateLimiterConfig holds configuration for the rate limiter.
// Forwarding headers are honoured only when the direct peer matches one of
// TrustedProxies (IP addresses or CIDR prefixes).
type RateLimiterConfig struct {
	RequestsPerSecond float64
	BurstCapacity     int
	Enabled           bool
	TrustedProxies    []string
}

// tokenBucketScript refills and consumes a token bucket stored as a hash
// {last_refill, tokens}. Returns 1 when the request is allowed.
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local rate = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])
	local requested = tonumber(ARGV[4])

	local bucket = redis.call('HMGET', key, 'last_refill', 'tokens')
	local last_refill = tonumber(bucket[1]) or now
	local tokens = tonumber(bucket[2]) or capacity

	local elapsed = math.max(0, now - last_refill)
	tokens = math.min(capacity, tokens + elapsed * rate)

	local allowed = 0
	if tokens >= requested then
		tokens = tokens - requested
		allowed = 1
	end

	redis.call('HSET', key, 'last_refill', now, 'tokens', tokens)
	redis.call('EXPIRE', key, 60)
	return allowed
`)

// RateLimiter implements token bucket rate limiting using Redis.
// It backs both the gRPC interceptor and the Gin middleware.
type RateLimiter struct {
	client  *redis.Client
	config  RateLimiterConfig
	trusted []netip.Prefix
	log     *zap.Logger
	now     func() time.Time
}

// NewRateLimiter creates a new rate limiter. Unparsable trusted proxy
// entries are logged and skipped.
func NewRateLimiter(client *redis.Client, config RateLimiterConfig, log *zap.Logger) *RateLimiter {
	trusted := make([]netip.Prefix, 0, len(config.TrustedProxies))
	for _, entry := range config.TrustedProxies {
		prefix, err := parseProxy(entry)
		if err != nil {
			log.Warn("ignoring invalid trusted proxy", zap.String("proxy", entry), zap.Error(err))
			continue
		}
		trusted = append(trusted, prefix)
	}

	return &RateLimiter{
		client:  client,
		config:  config,
		trusted: trusted,
		log:     log,
		now:     time.Now,
	}
}

// parseProxy parses an IP address or CIDR prefix. A plain address becomes a
// single-host prefix.
func parseProxy(entry string) (netip.Prefix, error) {
	entry = strings.TrimSpace(entry)
	if strings.Contains(entry, "/") {
		prefix, err := netip.ParsePrefix(entry)
		if err != nil {
			return netip.Prefix{}, err
		}
		return prefix.Masked(), nil
	}
	addr, err := netip.ParseAddr(entry)
	if err != nil {
		return netip.Prefix{}, err
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// Config returns the limiter configuration.
func (rl *RateLimiter) Config() RateLimiterConfig {
	return rl.config
}

// TrustedProxies returns the configured proxy entries. It is nil-safe so the
// HTTP router can apply the same list when rate limiting is off.
func (rl *RateLimiter) TrustedProxies() []string {
	if rl == nil {
		return nil
	}
	return rl.config.TrustedProxies
}

// Enabled reports whether requests are being limited.
func (rl *RateLimiter) Enabled() bool {
	return rl != nil && rl.config.Enabled && rl.client != nil
}

// Allow consumes one token from the bucket identified by key.
// Errors from Redis are returned together with allowed=true so callers fail open.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if !rl.Enabled() {
		return true, nil
	}

	now := float64(rl.now().UnixNano()) / float64(time.Second)
	allowed, err := tokenBucketScript.Run(ctx, rl.client, []string{key},
		rl.config.RequestsPerSecond,
		rl.config.BurstCapacity,
		now,
		1,
	).Int64()
	if err != nil {
		return true, err
	}
	return allowed == 1, nil
}

// UnaryInterceptor returns a gRPC unary interceptor for rate limiting.
func (rl *RateLimiter) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if !rl.Enabled() {
			return handler(ctx, req)
		}

		clientIP := rl.getClientIP(ctx)
		key := fmt.Sprintf("ratelimit:tb:%s:%s", info.FullMethod, clientIP)

		allowed, err := rl.Allow(ctx, key)
		if err != nil {
			rl.log.Warn("rate limiter redis error, allowing request",
				zap.String("client_ip", clientIP),
				zap.String("method", info.FullMethod),
				zap.Error(err),
			)
			return handler(ctx, req)
		}

		if !allowed {
			rl.log.Warn("rate limit exceeded",
				zap.String("client_ip", clientIP),
				zap.String("method", info.FullMethod),
				zap.Float64("limit", rl.config.RequestsPerSecond),
			)
			return nil, status.Errorf(codes.ResourceExhausted,
				"rate limit exceeded: %.2f requests/second (burst capacity: %d)",
				rl.config.RequestsPerSecond, rl.config.BurstCapacity)
		}

		return handler(ctx, req)
	}
}

// getClientIP returns the address used as the rate limit identity. The peer
// host is used without its port. Forwarding metadata is read only when the
// peer is a trusted proxy; the X-Forwarded-For chain is walked from the right
// and the first untrusted hop wins.
func (rl *RateLimiter) getClientIP(ctx context.Context) string {
	peerIP := "unknown"
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		peerIP = hostOnly(p.Addr.String())
	}
	if !rl.isTrusted(peerIP) {
		return peerIP
	}

	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return peerIP
	}

	if xff := md.Get("x-forwarded-for"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if !rl.isTrusted(hop) || i == 0 {
				return hop
			}
		}
	}
	if xri := md.Get("x-real-ip"); len(xri) > 0 {
		if ip := strings.TrimSpace(xri[0]); ip != "" {
			return ip
		}
	}
	return peerIP
}

func (rl *RateLimiter) isTrusted(ip string) bool {
	if len(rl.trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range rl.trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func hostOnly(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
