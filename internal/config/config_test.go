package config

import (
	"strings"
	"testing"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/voice2post")
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_123")
	t.Setenv("SUPABASE_JWT_SECRET", "jwt-secret")
}

func TestValidate(t *testing.T) {
	t.Run("complete", func(t *testing.T) {
		setRequired(t)
		if err := Load().Validate(); err != nil {
			t.Fatalf("Validate() = %v, want nil", err)
		}
	})

	t.Run("missing secrets are named", func(t *testing.T) {
		setRequired(t)
		t.Setenv("GEMINI_API_KEY", "")
		t.Setenv("STRIPE_WEBHOOK_SECRET", "")
		err := Load().Validate()
		if err == nil {
			t.Fatal("Validate() = nil, want error")
		}
		for _, name := range []string{"GEMINI_API_KEY", "STRIPE_WEBHOOK_SECRET"} {
			if !strings.Contains(err.Error(), name) {
				t.Errorf("error %q does not name %s", err, name)
			}
		}
	})

	t.Run("jwks url satisfies auth", func(t *testing.T) {
		setRequired(t)
		t.Setenv("SUPABASE_JWT_SECRET", "")
		t.Setenv("SUPABASE_JWKS_URL", "https://example.supabase.co/auth/v1/.well-known/jwks.json")
		if err := Load().Validate(); err != nil {
			t.Fatalf("Validate() = %v, want nil", err)
		}
	})

	t.Run("unknown ledger", func(t *testing.T) {
		setRequired(t)
		t.Setenv("USAGE_LEDGER", "memory")
		if err := Load().Validate(); err == nil {
			t.Fatal("Validate() = nil, want error for unknown ledger")
		}
	})
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DEMO_FALLBACK_ENABLED", "")
	t.Setenv("APP_URL", "https://voice2post.app/")
	cfg := Load()

	if !cfg.DemoFallbackEnabled {
		t.Error("DemoFallbackEnabled default = false, want true")
	}
	if cfg.AppURL != "https://voice2post.app" {
		t.Errorf("AppURL = %q, want trailing slash trimmed", cfg.AppURL)
	}
	if cfg.UsageLedger != LedgerRPC {
		t.Errorf("UsageLedger = %q, want %q", cfg.UsageLedger, LedgerRPC)
	}

	t.Setenv("DEMO_FALLBACK_ENABLED", "false")
	if Load().DemoFallbackEnabled {
		t.Error("DemoFallbackEnabled = true with DEMO_FALLBACK_ENABLED=false")
	}
}
