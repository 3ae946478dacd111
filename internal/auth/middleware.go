package auth

import (
	"net/http"
	"strings"

	"github.com/voice2post/voice2post/internal/logging"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
	unauthorizedMessage = "Unauthorized"
	invalidTokenMessage = "Invalid or expired session"
)

// TokenFromRequest returns the session token from the session cookie or,
// failing that, from a bearer Authorization header.
func TokenFromRequest(r *http.Request, cookieName string) (string, error) {
	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	if authHeader := r.Header.Get(authorizationHeader); strings.HasPrefix(authHeader, bearerPrefix) {
		if token := strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix)); token != "" {
			return token, nil
		}
	}
	return "", ErrNoToken
}

type Middleware struct {
	verifier   TokenVerifier
	cookieName string
}

func NewMiddleware(verifier TokenVerifier, cookieName string) *Middleware {
	return &Middleware{
		verifier:   verifier,
		cookieName: cookieName,
	}
}

// Session resolves the caller's identity without writing a response.
func (m *Middleware) Session(r *http.Request) (*User, error) {
	token, err := TokenFromRequest(r, m.cookieName)
	if err != nil {
		return nil, err
	}
	return m.verifier.VerifyToken(token)
}

func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := TokenFromRequest(r, m.cookieName)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, CodeUnauthorized, unauthorizedMessage)
			return
		}

		user, err := m.verifier.VerifyToken(token)
		if err != nil {
			logging.EnrichError(r.Context(), err, "auth")
			writeJSONError(w, http.StatusUnauthorized, CodeUnauthorized, invalidTokenMessage)
			return
		}

		logging.EnrichUser(r.Context(), user.ID, user.Email)
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}
