package api

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrCallerUnauthorized means the inbound request failed channel
// authentication: the caller presented no credential or a wrong one.
var ErrCallerUnauthorized = errors.New("caller unauthorized")

// BearerAuth guards the admin endpoints with a constant-time token check.
func BearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(auth, prefix) || subtle.ConstantTimeCompare([]byte(auth[len(prefix):]), []byte(token)) != 1 {
				httpError(w, http.StatusUnauthorized, "authentication_error", "invalid or missing bearer token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ChannelAuthenticator validates the inbound channel request before the turn
// is handled. Failures happen outside the turn handler's recovery scope and
// are classified by the transport boundary instead.
type ChannelAuthenticator interface {
	Authenticate(r *http.Request) error
}

// SharedSecretAuthenticator checks the channel's bearer secret.
type SharedSecretAuthenticator struct {
	Secret string
}

func (a SharedSecretAuthenticator) Authenticate(r *http.Request) error {
	if a.Secret == "" {
		// Open mode for local development; the channel is trusted.
		return nil
	}
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return fmt.Errorf("missing channel credential: %w", ErrCallerUnauthorized)
	}
	if subtle.ConstantTimeCompare([]byte(auth[len(prefix):]), []byte(a.Secret)) != 1 {
		return fmt.Errorf("channel credential mismatch: %w", ErrCallerUnauthorized)
	}
	return nil
}
