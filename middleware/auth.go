package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"

	"cwcinspect/auth"
	"cwcinspect/models"
	"cwcinspect/service"
)

type contextKey string

const SessionContextKey contextKey = "session"

// SessionRestorer resolves the officer named by a token against the
// current roster.
type SessionRestorer interface {
	Restore(id, name string) (service.Session, error)
}

// AuthMiddleware validates the access token from the Authorization header or
// the session cookie and injects the officer's session into the context.
func AuthMiddleware(jwtManager *auth.JWTManager, sessions SessionRestorer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := requestToken(r)
			if err != nil {
				writeError(w, "Authentication required", http.StatusUnauthorized)
				return
			}

			claims, err := jwtManager.ValidateToken(token)
			if err != nil {
				writeError(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			// Prefer the live roster entry; a reload may have dropped the
			// officer, in which case the token's snapshot stands in.
			sess, err := sessions.Restore(claims.OfficerID, claims.Name)
			if err != nil {
				sess = service.Session{Officer: claims.Officer()}
			}

			ctx := context.WithValue(r.Context(), SessionContextKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func requestToken(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		return auth.ExtractToken(header)
	}
	cookie, err := r.Cookie(auth.SessionCookieName)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}

// GetSessionFromContext retrieves the session from the request context
func GetSessionFromContext(ctx context.Context) (service.Session, bool) {
	sess, ok := ctx.Value(SessionContextKey).(service.Session)
	return sess, ok
}

// WithSession returns a copy of ctx carrying sess.
func WithSession(ctx context.Context, sess service.Session) context.Context {
	return context.WithValue(ctx, SessionContextKey, sess)
}

// RequireLevel admits only officers at one of the given levels.
func RequireLevel(allowed ...models.Level) func(http.Handler) http.Handler {
	return levelGate(func(l models.Level) bool { return slices.Contains(allowed, l) })
}

// ExcludeLevel rejects officers at any of the given levels.
func ExcludeLevel(denied ...models.Level) func(http.Handler) http.Handler {
	return levelGate(func(l models.Level) bool { return !slices.Contains(denied, l) })
}

func levelGate(permit func(models.Level) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := GetSessionFromContext(r.Context())
			if !ok {
				writeError(w, "Session not found in context", http.StatusUnauthorized)
				return
			}
			if !permit(sess.Officer.Level) {
				writeError(w, "Insufficient permissions", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
