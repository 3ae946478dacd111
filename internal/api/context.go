package api

import (
	"context"
	"net/http"
	"time"

	"github.com/voice2post/voice2post/internal/auth"
	"github.com/voice2post/voice2post/internal/models"
	"github.com/voice2post/voice2post/internal/profile"
	"github.com/voice2post/voice2post/internal/respond"
)

const bookkeepingTimeout = 5 * time.Second

// caller returns the authenticated user and their profile. It writes a 401
// and returns false when either is missing.
func caller(w http.ResponseWriter, r *http.Request) (*auth.User, *models.Profile, bool) {
	user, ok := auth.GetUserFromRequest(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Unauthorized")
		return nil, nil, false
	}
	p, ok := profile.GetProfileFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Unauthorized")
		return nil, nil, false
	}
	return user, p, true
}

// bookkeepingContext outlives a client disconnect so usage writes that
// follow a delivered result still land.
func bookkeepingContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(r.Context()), bookkeepingTimeout)
}
