package profile

import (
	"context"
	"net/http"

	"github.com/voice2post/voice2post/internal/auth"
	"github.com/voice2post/voice2post/internal/logging"
	"github.com/voice2post/voice2post/internal/models"
	"github.com/voice2post/voice2post/internal/respond"
)

type profileContextKey string

const dbProfileContextKey profileContextKey = "db_profile"

func WithProfile(ctx context.Context, p *models.Profile) context.Context {
	return context.WithValue(ctx, dbProfileContextKey, p)
}

func GetProfileFromContext(ctx context.Context) (*models.Profile, bool) {
	p, ok := ctx.Value(dbProfileContextKey).(*models.Profile)
	return p, ok && p != nil
}

// Middleware loads (or creates) the profile of the authenticated caller.
// It must run after auth.Middleware.RequireAuth.
func Middleware(repo Repository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := auth.GetUserFromRequest(r)
			if !ok {
				respond.Error(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			p, err := repo.GetOrCreate(r.Context(), user.ID, user.FullName)
			if err != nil {
				logging.EnrichError(r.Context(), err, "profile")
				logging.Logger(r.Context()).Error().Err(err).Str("user_id", user.ID).Msg("failed to get or create profile")
				respond.Error(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			logging.EnrichPlan(r.Context(), string(p.Plan))
			next.ServeHTTP(w, r.WithContext(WithProfile(r.Context(), p)))
		})
	}
}
