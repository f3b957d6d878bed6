package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/MrEthical07/authcache"
)

// AccessVerifier is the part of [authcache.Engine] the guard needs.
type AccessVerifier interface {
	VerifyAccess(ctx context.Context, token string) (*authcache.Identity, error)
}

type identityContextKey struct{}

// IdentityFromContext returns the identity Guard stored for this request.
func IdentityFromContext(ctx context.Context) (*authcache.Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(*authcache.Identity)
	return id, ok
}

// Guard rejects requests without a valid bearer access token. Whether the
// session is also checked in the store follows the engine's
// Session.StrictAccess setting.
func Guard(verifier AccessVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return RequestMeta(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			id, err := verifier.VerifyAccess(r.Context(), token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		}))
	}
}

// RequestMeta copies the caller address and User-Agent into the request
// context so audit events emitted by engine calls can carry them.
func RequestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := authcache.WithClientIP(r.Context(), clientIP(r))
		ctx = authcache.WithUserAgent(ctx, r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
