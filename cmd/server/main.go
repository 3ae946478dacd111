package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/voice2post/voice2post/internal/api"
	"github.com/voice2post/voice2post/internal/auth"
	"github.com/voice2post/voice2post/internal/billing"
	"github.com/voice2post/voice2post/internal/config"
	"github.com/voice2post/voice2post/internal/db"
	"github.com/voice2post/voice2post/internal/ingest"
	"github.com/voice2post/voice2post/internal/logger"
	"github.com/voice2post/voice2post/internal/profile"
	"github.com/voice2post/voice2post/internal/ratelimit"
	"github.com/voice2post/voice2post/internal/records"
	"github.com/voice2post/voice2post/internal/services"
	"github.com/voice2post/voice2post/internal/storage"
	"github.com/voice2post/voice2post/internal/usage"
)

func main() {
	cfg := config.Load()
	logger.Configure(cfg.LogLevel, cfg.LogStyle)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()

	bunDB := db.NewBunPostgresClient(cfg.DatabaseURL)
	defer bunDB.Close()
	if err := db.Ping(ctx, bunDB); err != nil {
		log.Fatal().Err(err).Msg("failed to reach database")
	}

	store, err := storage.NewClient(ctx, cfg.StorageBucket, cfg.StoragePublicURLPrefix)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create storage client")
	}
	defer store.Close()

	aiClient, err := services.NewGeminiAIClient(ctx, cfg.GeminiAPIKey,
		services.WithModel(cfg.GeminiModel),
		services.WithTokenTracker(services.NewMetricsTokenTracker()),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Gemini client")
	}

	bill := billing.NewBilling(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.StripePlusPriceID, cfg.AppURL)
	if cfg.StripePlusPriceID == "" {
		priceID, err := bill.EnsurePlusPrice(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to provision Plus price")
		}
		log.Info().Str("price_id", priceID).Msg("using provisioned Plus price")
	}

	verifier, err := newVerifier(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create token verifier")
	}
	defer verifier.Close()

	profiles := profile.NewProfileRepository(bunDB)
	ledger := newLedger(cfg, bunDB)
	logs := usage.NewLogRepository(bunDB)
	recs := records.NewRecordRepository(bunDB)

	resolver := ingest.NewResolver(store, ingest.WithMaxBytes(cfg.MaxAudioBytes))
	transcriber := services.NewTranscriber(aiClient, services.WithDemoFallback(cfg.DemoFallbackEnabled))
	generator := services.NewPostGenerator(aiClient)

	var rateLimit mux.MiddlewareFunc
	if cfg.RedisURL != "" {
		rdb, err := ratelimit.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create redis client")
		}
		defer rdb.Close()
		rateLimit = ratelimit.Middleware(ratelimit.NewRedisCounter(rdb), cfg.RateLimitPerMinute)
	} else {
		log.Warn().Msg("REDIS_URL not set, API rate limiting disabled")
	}

	router := api.SetupRoutes(api.Router{
		Transcribe: api.NewTranscribeHandler(ledger, logs, resolver, transcriber, cfg.MaxAudioBytes),
		Generate:   api.NewGenerateHandler(ledger, logs, recs, generator),
		Usage:      api.NewUsageHandler(ledger),
		Records:    api.NewRecordsHandler(recs),
		Billing:    api.NewBillingHandler(bill, billing.NewEventProcessor(profiles)),
		Storage:    api.NewStorageHandler(store),
		Auth:       auth.NewMiddleware(verifier, cfg.SessionCookieName),
		Profiles:   profiles,
		RateLimit:  rateLimit,
		CORSOrigin: cfg.CORSOrigin,
		WebDir:     cfg.WebDir,
		Health: func(ctx context.Context) error {
			return db.Ping(ctx, bunDB)
		},
	})

	// Transcription and generation wait on the model, so writes get far
	// more room than reads.
	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
		}
	}()

	log.Info().Str("addr", cfg.ServerAddr).Str("ledger", cfg.UsageLedger).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server failed to start")
	}

	log.Info().Msg("server stopped")
}

func newVerifier(cfg *config.Config) (*auth.JWTVerifier, error) {
	if cfg.SupabaseJWKSURL != "" {
		return auth.NewJWKSVerifier(cfg.SupabaseJWKSURL)
	}
	return auth.NewHMACVerifier(cfg.SupabaseJWTSecret), nil
}

func newLedger(cfg *config.Config, bunDB *bun.DB) usage.Ledger {
	if cfg.UsageLedger == config.LedgerTx {
		return usage.NewTxLedger(bunDB)
	}
	return usage.NewRPCLedger(bunDB)
}
