package auth

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// loginLimiter keeps one token bucket per client address. Only failed
// attempts take a token. Idle buckets expire from the LRU.
type loginLimiter struct {
	limiters *expirable.LRU[string, *rate.Limiter]
	rate     rate.Limit
	burst    int
}

func newLoginLimiter(perMinute, burst, size int, ttl time.Duration) *loginLimiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	if burst <= 0 {
		burst = 1
	}
	if size <= 0 {
		size = 1024
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &loginLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](size, nil, ttl),
		rate:     rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
	}
}

// Blocked reports whether key has used up its failed attempts.
func (l *loginLimiter) Blocked(key string) bool {
	limiter, ok := l.limiters.Get(key)
	if !ok {
		return false
	}
	return limiter.Tokens() < 1
}

// Fail charges one failed attempt to key.
func (l *loginLimiter) Fail(key string) {
	limiter, ok := l.limiters.Get(key)
	if !ok {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters.Add(key, limiter)
	}
	limiter.Allow()
}

// trustedProxies holds the networks whose forwarding headers are believed.
type trustedProxies []netip.Prefix

func parseTrustedProxies(entries []string) trustedProxies {
	var proxies trustedProxies
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if prefix, err := netip.ParsePrefix(entry); err == nil {
			proxies = append(proxies, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			log.Warnf("ignoring invalid trusted proxy %q", entry)
			continue
		}
		proxies = append(proxies, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
	}
	return proxies
}

func (p trustedProxies) contains(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range p {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// clientIP returns the socket address unless the peer is a trusted proxy.
// Behind trusted proxies it takes the right-most X-Forwarded-For entry that
// is not itself a proxy, then X-Real-IP.
func (p trustedProxies) clientIP(r *http.Request) string {
	remote, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		remote = r.RemoteAddr
	}
	if !p.contains(remote) {
		return remote
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop != "" && !p.contains(hop) {
				return hop
			}
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return remote
}
