package api

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/voice2post/voice2post/internal/auth"
	"github.com/voice2post/voice2post/internal/gate"
	"github.com/voice2post/voice2post/internal/profile"
	"github.com/voice2post/voice2post/internal/respond"
)

// Router holds everything SetupRoutes wires together. Nil handlers leave
// their routes unregistered.
type Router struct {
	Transcribe *TranscribeHandler
	Generate   *GenerateHandler
	Usage      *UsageHandler
	Records    *RecordsHandler
	Billing    *BillingHandler
	Storage    *StorageHandler

	Auth      *auth.Middleware
	Profiles  profile.Repository
	RateLimit mux.MiddlewareFunc

	CORSOrigin string
	WebDir     string
	Health     func(ctx context.Context) error
}

func SetupRoutes(cfg Router) *mux.Router {
	r := mux.NewRouter()

	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)
	r.Use(MetricsMiddleware)
	r.Use(CORSMiddleware(cfg.CORSOrigin))

	r.HandleFunc("/healthz", healthHandler(cfg.Health)).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Stripe calls these without a session; the signature is the credential.
	if cfg.Billing != nil {
		r.HandleFunc("/api/stripe-webhook", cfg.Billing.Webhook).Methods("POST")
		r.HandleFunc("/api/stripe/webhook", cfg.Billing.Webhook).Methods("POST")
	}

	api := r.PathPrefix("/api").Subrouter()
	if cfg.RateLimit != nil {
		api.Use(cfg.RateLimit)
	}
	api.Use(cfg.Auth.RequireAuth)
	api.Use(profile.Middleware(cfg.Profiles))

	if cfg.Transcribe != nil {
		api.HandleFunc("/transcribe", cfg.Transcribe.Transcribe).Methods("POST", "OPTIONS")
	}
	if cfg.Generate != nil {
		api.HandleFunc("/generate-post", cfg.Generate.GeneratePost).Methods("POST", "OPTIONS")
	}
	if cfg.Usage != nil {
		api.HandleFunc("/usage", cfg.Usage.GetUsage).Methods("GET", "OPTIONS")
		api.HandleFunc("/usage", cfg.Usage.IncrementUsage).Methods("POST")
	}
	if cfg.Records != nil {
		api.HandleFunc("/records", cfg.Records.ListRecords).Methods("GET", "OPTIONS")
		api.HandleFunc("/records/{id}", cfg.Records.DeleteRecord).Methods("DELETE", "OPTIONS")
	}
	if cfg.Billing != nil {
		api.HandleFunc("/stripe/checkout", cfg.Billing.CreateCheckout).Methods("POST", "OPTIONS")
		api.HandleFunc("/stripe/portal", cfg.Billing.CreatePortal).Methods("POST", "OPTIONS")
	}
	if cfg.Storage != nil {
		api.HandleFunc("/storage-info", cfg.Storage.Info).Methods("GET", "OPTIONS")
	}

	var pages http.Handler = http.NotFoundHandler()
	if cfg.WebDir != "" {
		pages = spaHandler(cfg.WebDir)
	}
	r.PathPrefix("/").Handler(gate.New(cfg.Auth.Session).Handler(pages))

	return r
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				respond.ErrorDetails(w, http.StatusServiceUnavailable, respond.ErrCodeServiceUnavailable, "Unhealthy", err)
				return
			}
		}
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// spaHandler serves the built frontend from dir and falls back to
// index.html for client-side routes.
func spaHandler(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+r.URL.Path)))
		if _, err := os.Stat(name); errors.Is(err, fs.ErrNotExist) {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}
		files.ServeHTTP(w, r)
	})
}
