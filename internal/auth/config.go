// Package auth provides password sign-in, server-side sessions, bearer
// tokens bound to those sessions, and the role policy.
package auth

import "time"

// DefaultSessionTTL is used when Config.SessionTTL is zero.
const DefaultSessionTTL = 30 * 24 * time.Hour

// Config holds authentication configuration.
type Config struct {
	JWTSecret     []byte
	SessionTTL    time.Duration
	SecureCookies bool
}

func (c Config) sessionTTL() time.Duration {
	if c.SessionTTL <= 0 {
		return DefaultSessionTTL
	}
	return c.SessionTTL
}
