package gate

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/voice2post/voice2post/internal/auth"
)

func TestClassify(t *testing.T) {
	cases := map[string]RouteClass{
		"/":                 RouteRoot,
		"/login":            RoutePublic,
		"/pricing":          RoutePublic,
		"/auth/callback":    RouteAuthFlow,
		"/record":           RouteProtected,
		"/history/abc":      RouteProtected,
		"/upgrade":          RouteProtected,
		"/api/usage":        RouteSkipped,
		"/_next/static/x":   RouteSkipped,
		"/metrics":          RouteSkipped,
		"/favicon.ico":      RouteSkipped,
		"/record/clip.webm": RouteSkipped,
		"/recordings":       RouteUnclassified,
		"/contact":          RouteUnclassified,
	}
	for path, want := range cases {
		if got := Classify(path); got != want {
			t.Errorf("Classify(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestHandler(t *testing.T) {
	withSession := func(*http.Request) (*auth.User, error) { return &auth.User{ID: "u1"}, nil }
	noSession := func(*http.Request) (*auth.User, error) { return nil, auth.ErrNoToken }
	brokenSession := func(*http.Request) (*auth.User, error) { return nil, errors.New("jwks unavailable") }

	tests := []struct {
		name         string
		session      SessionFunc
		path         string
		wantStatus   int
		wantLocation string
	}{
		{"protected without session", noSession, "/record", http.StatusFound, LoginPath},
		{"protected with session", withSession, "/generate", http.StatusOK, ""},
		{"protected with failing lookup", brokenSession, "/history", http.StatusFound, LoginPath},
		{"root with session", withSession, "/", http.StatusFound, LandingPath},
		{"root without session", noSession, "/", http.StatusFound, PlanPath},
		{"public without session", noSession, "/login", http.StatusOK, ""},
		{"auth flow without session", noSession, "/auth/callback", http.StatusOK, ""},
		{"api untouched", noSession, "/api/usage", http.StatusOK, ""},
		{"static asset untouched", noSession, "/logo.png", http.StatusOK, ""},
		{"unknown passes", noSession, "/contact", http.StatusOK, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := New(tc.session).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if loc := rec.Header().Get("Location"); loc != tc.wantLocation {
				t.Fatalf("Location = %q, want %q", loc, tc.wantLocation)
			}
		})
	}
}
