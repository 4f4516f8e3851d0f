package middleware

import (
	"context"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const sessionIDContextKey contextKey = "session_id"

// SessionCookieName is the cookie holding the browser's session token.
const SessionCookieName = "flashbox_session"

// SessionOptions configures the session cookie.
type SessionOptions struct {
	Secure bool
	MaxAge time.Duration
}

// Sessions returns middleware that gives every request a session id.
// The cookie carries a random token and the id is its blake2b digest.
// A missing or malformed cookie gets a fresh token.
// POST: SessionIDFromContext(r.Context()) succeeds in next
func Sessions(opts SessionOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if cookie, err := r.Cookie(SessionCookieName); err == nil {
				if _, err := uuid.Parse(cookie.Value); err == nil {
					token = cookie.Value
				}
			}
			if token == "" {
				token = uuid.New().String()
			}
			SetSessionCookie(w, token, opts)

			ctx := ContextWithSessionID(r.Context(), SessionID(token))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionID derives the storage id for a cookie token.
func SessionID(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// SessionIDFromContext extracts the session id from the request context.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDContextKey).(string)
	return id, ok && id != ""
}

// ContextWithSessionID returns a context carrying id.
// Intended for use in tests.
func ContextWithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDContextKey, id)
}

// SetSessionCookie sets the session cookie on the response.
func SetSessionCookie(w http.ResponseWriter, token string, opts SessionOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   int(opts.MaxAge / time.Second),
	})
}

// ClearSessionCookie removes the session cookie.
func ClearSessionCookie(w http.ResponseWriter, opts SessionOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   -1,
	})
}
