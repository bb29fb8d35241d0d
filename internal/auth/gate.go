package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/oremband/oremband/internal/config"
	"github.com/oremband/oremband/internal/rest"
	log "github.com/sirupsen/logrus"
)

const realm = `Basic realm="Band Calendar Admin"`

// Gate protects admin routes with HTTP Basic auth against an Argon2id hash.
type Gate struct {
	user    string
	hash    string
	limiter *loginLimiter
	proxies trustedProxies
}

func NewGate(cfg config.Admin) *Gate {
	if cfg.PasswordHash == "" {
		log.Warn("no admin password hash configured, admin routes are disabled (run hash-password)")
	} else {
		log.Infof("admin basic auth enabled for user %s", cfg.User)
	}
	return &Gate{
		user:    cfg.User,
		hash:    cfg.PasswordHash,
		limiter: newLoginLimiter(cfg.LoginsPerMinute, cfg.LoginBurst, cfg.LimiterCacheSize, cfg.LimiterExpiration),
		proxies: parseTrustedProxies(cfg.TrustedProxies),
	}
}

func (g *Gate) Enabled() bool {
	return g.hash != ""
}

// Require is a mux middleware. Without a configured hash it answers 503.
// Failed attempts are charged per client address; a client over its budget
// gets 429 before credentials are checked.
func (g *Gate) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.Enabled() {
			rest.WriteError(w, http.StatusServiceUnavailable, "Admin disabled", "no admin password is configured")
			return
		}

		ip := g.proxies.clientIP(r)
		if g.limiter.Blocked(ip) {
			log.Warnf("admin login rate limit exceeded for %s", ip)
			w.Header().Set("Retry-After", "60")
			rest.WriteError(w, http.StatusTooManyRequests, "Too many login attempts", "try again later")
			return
		}

		user, pass, ok := r.BasicAuth()
		userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(g.user)) == 1
		passMatch := false
		if ok && userMatch {
			var err error
			passMatch, err = VerifyPassword(pass, g.hash)
			if err != nil {
				log.Errorf("failed to verify admin password: %v", err)
			}
		}

		if !ok || !userMatch || !passMatch {
			g.limiter.Fail(ip)
			log.Warnf("failed admin auth attempt from %s (user: %q)", ip, user)
			w.Header().Set("WWW-Authenticate", realm)
			rest.WriteError(w, http.StatusUnauthorized, "Unauthorized", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}
