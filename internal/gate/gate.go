// Package gate redirects page requests based on whether the caller has a
// session. It never guards /api routes; those use auth.Middleware.
package gate

import (
	"net/http"
	"strings"

	"github.com/voice2post/voice2post/internal/auth"
	"github.com/voice2post/voice2post/internal/logging"
)

type RouteClass int

const (
	RouteUnclassified RouteClass = iota
	RouteSkipped
	RouteRoot
	RoutePublic
	RouteAuthFlow
	RouteProtected
)

const (
	LoginPath   = "/login"
	LandingPath = "/record"
	PlanPath    = "/plan"
)

var (
	skippedPrefixes = []string{"/api", "/_next", "/static", "/metrics", "/healthz"}
	publicRoutes    = []string{"/login", "/plan", "/pricing", "/about"}
	authFlowRoutes  = []string{"/auth"}
	protectedRoutes = []string{"/record", "/generate", "/history", "/upgrade"}
)

// SessionFunc reports the caller's session. Any error is treated as no
// session.
type SessionFunc func(r *http.Request) (*auth.User, error)

type Gate struct {
	session SessionFunc
}

func New(session SessionFunc) *Gate {
	return &Gate{session: session}
}

func Classify(path string) RouteClass {
	switch {
	case hasAnyPrefix(path, skippedPrefixes) || strings.Contains(path, "."):
		return RouteSkipped
	case path == "/" || path == "":
		return RouteRoot
	case matchesAny(path, publicRoutes):
		return RoutePublic
	case matchesAny(path, authFlowRoutes):
		return RouteAuthFlow
	case matchesAny(path, protectedRoutes):
		return RouteProtected
	default:
		return RouteUnclassified
	}
}

func (g *Gate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch Classify(r.URL.Path) {
		case RouteRoot:
			if g.hasSession(r) {
				http.Redirect(w, r, LandingPath, http.StatusFound)
			} else {
				http.Redirect(w, r, PlanPath, http.StatusFound)
			}
			return
		case RouteProtected:
			if !g.hasSession(r) {
				http.Redirect(w, r, LoginPath, http.StatusFound)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Gate) hasSession(r *http.Request) bool {
	if g.session == nil {
		return false
	}
	user, err := g.session(r)
	if err != nil {
		if err != auth.ErrNoToken {
			logging.Logger(r.Context()).Debug().Err(err).Str("path", r.URL.Path).Msg("session lookup failed")
		}
		return false
	}
	return user != nil
}

// matchesAny matches whole path segments, so /record and /record/123
// match "/record" but /recordings does not.
func matchesAny(path string, routes []string) bool {
	for _, route := range routes {
		if path == route || strings.HasPrefix(path, route+"/") {
			return true
		}
	}
	return false
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
