package auth

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/oremband/oremband/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func setupGate(t *testing.T, burst int) *Gate {
	hash, err := HashPassword("band-director")
	require.NoError(t, err)
	return NewGate(config.Admin{
		User:              "admin",
		PasswordHash:      hash,
		LoginsPerMinute:   1,
		LoginBurst:        burst,
		LimiterCacheSize:  16,
		LimiterExpiration: time.Minute,
	})
}

func request(ip, user, pass string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/admin/events", nil)
	req.RemoteAddr = ip + ":52100"
	if user != "" {
		req.SetBasicAuth(user, pass)
	}
	return req
}

func TestGate_Require(t *testing.T) {
	t.Run("should pass valid credentials", func(t *testing.T) {
		gate := setupGate(t, 5)
		rr := httptest.NewRecorder()

		gate.Require(okHandler).ServeHTTP(rr, request("10.0.0.1", "admin", "band-director"))

		assert.Equal(t, http.StatusNoContent, rr.Code)
	})

	t.Run("should challenge missing or wrong credentials", func(t *testing.T) {
		gate := setupGate(t, 5)

		for _, req := range []*http.Request{
			request("10.0.0.2", "", ""),
			request("10.0.0.2", "admin", "guess"),
			request("10.0.0.2", "director", "band-director"),
		} {
			rr := httptest.NewRecorder()
			gate.Require(okHandler).ServeHTTP(rr, req)

			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.Contains(t, rr.Header().Get("WWW-Authenticate"), "Basic")
		}
	})

	t.Run("should rate limit repeated attempts per address", func(t *testing.T) {
		// given
		gate := setupGate(t, 2)
		handler := gate.Require(okHandler)
		for i := 0; i < 2; i++ {
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, request("10.0.0.3", "admin", "guess"))
			require.Equal(t, http.StatusUnauthorized, rr.Code)
		}

		// when
		blocked := httptest.NewRecorder()
		handler.ServeHTTP(blocked, request("10.0.0.3", "admin", "band-director"))
		other := httptest.NewRecorder()
		handler.ServeHTTP(other, request("10.0.0.4", "admin", "band-director"))

		// then
		assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
		assert.Equal(t, http.StatusNoContent, other.Code)
	})

	t.Run("should rate limit spoofed forwarded addresses by socket address", func(t *testing.T) {
		// given
		gate := setupGate(t, 1)
		handler := gate.Require(okHandler)

		// when
		codes := make([]int, 0, 20)
		for i := 0; i < 20; i++ {
			req := request("198.51.100.9", "admin", "guess")
			req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
			req.Header.Set("X-Real-IP", fmt.Sprintf("192.0.2.%d", i))
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			codes = append(codes, rr.Code)
		}

		// then
		assert.Equal(t, http.StatusUnauthorized, codes[0])
		for _, code := range codes[1:] {
			assert.Equal(t, http.StatusTooManyRequests, code)
		}
	})

	t.Run("should not charge successful requests", func(t *testing.T) {
		gate := setupGate(t, 1)
		handler := gate.Require(okHandler)

		for i := 0; i < 5; i++ {
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, request("10.0.0.7", "admin", "band-director"))
			assert.Equal(t, http.StatusNoContent, rr.Code)
		}
	})

	t.Run("should answer unavailable without a configured hash", func(t *testing.T) {
		gate := NewGate(config.Admin{User: "admin"})
		rr := httptest.NewRecorder()

		gate.Require(okHandler).ServeHTTP(rr, request("10.0.0.6", "admin", "anything"))

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.False(t, gate.Enabled())
	})
}

func TestTrustedProxies_ClientIP(t *testing.T) {
	proxies := parseTrustedProxies([]string{"10.0.0.0/8", "192.168.1.1", "not-an-ip"})

	t.Run("should ignore headers from untrusted peers", func(t *testing.T) {
		req := request("198.51.100.9", "", "")
		req.Header.Set("X-Forwarded-For", "203.0.113.7")
		req.Header.Set("X-Real-IP", "203.0.113.8")

		assert.Equal(t, "198.51.100.9", proxies.clientIP(req))
	})

	t.Run("should take the right-most untrusted hop behind a trusted proxy", func(t *testing.T) {
		req := request("10.1.2.3", "", "")
		req.Header.Set("X-Forwarded-For", "1.2.3.4, 203.0.113.7, 192.168.1.1")

		assert.Equal(t, "203.0.113.7", proxies.clientIP(req))
	})

	t.Run("should fall back to real ip header and then to the socket address", func(t *testing.T) {
		withRealIP := request("192.168.1.1", "", "")
		withRealIP.Header.Set("X-Real-IP", "203.0.113.8")
		bare := request("192.168.1.1", "", "")

		assert.Equal(t, "203.0.113.8", proxies.clientIP(withRealIP))
		assert.Equal(t, "192.168.1.1", proxies.clientIP(bare))
	})

	t.Run("should skip invalid entries", func(t *testing.T) {
		assert.Len(t, proxies, 2)
	})
}
