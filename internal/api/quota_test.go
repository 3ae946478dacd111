package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/voice2post/voice2post/internal/models"
	"github.com/voice2post/voice2post/internal/usage"
)

// policyLedger applies the real quota policy to the in-memory profiles.
type policyLedger struct {
	profiles *fakeProfiles
}

func (l *policyLedger) CanPerform(_ context.Context, userID string) (bool, error) {
	l.profiles.mu.Lock()
	defer l.profiles.mu.Unlock()
	p, ok := l.profiles.byID[userID]
	if !ok {
		return false, nil
	}
	return usage.Allowed(p, time.Now()), nil
}

func (l *policyLedger) Record(_ context.Context, userID string) error {
	l.profiles.mu.Lock()
	defer l.profiles.mu.Unlock()
	if p, ok := l.profiles.byID[userID]; ok {
		usage.Increment(p, time.Now())
	}
	return nil
}

func (l *policyLedger) Status(context.Context, string) (*usage.Status, error) {
	return nil, nil
}

func newPolicyEnv(t *testing.T, p *models.Profile) *testEnv {
	t.Helper()
	env := newTestEnv(t, p)
	ledger := &policyLedger{profiles: env.profiles}
	env.router = newRouterWithLedger(env, ledger)
	return env
}

func TestFreeQuotaCoversTranscription(t *testing.T) {
	env := newPolicyEnv(t, freeProfile("U1"))
	env.ai.transcript = "hello"

	for i := 1; i <= usage.FreeDailyLimit; i++ {
		rec := env.serve(uploadRequest(t, "U1", "clip.wav", audioBytes(200)))
		if rec.Code != http.StatusOK {
			t.Fatalf("transcription %d: status = %d, want 200", i, rec.Code)
		}
	}
	if got := env.profiles.get("U1").UsageCount; got != usage.FreeDailyLimit {
		t.Fatalf("usage count = %d, want %d", got, usage.FreeDailyLimit)
	}

	rec := env.serve(uploadRequest(t, "U1", "clip.wav", audioBytes(200)))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("4th transcription: status = %d, want 429", rec.Code)
	}
	if env.ai.transCalls != usage.FreeDailyLimit {
		t.Errorf("model called %d times, want %d", env.ai.transCalls, usage.FreeDailyLimit)
	}
}

func TestFreeQuotaSharedAcrossActions(t *testing.T) {
	env := newPolicyEnv(t, freeProfile("U1"))
	env.ai.transcript = "hello"
	env.ai.reply = `{"summary":"S","post":"P"}`

	steps := []*http.Request{
		uploadRequest(t, "U1", "clip.wav", audioBytes(200)),
		jsonRequest(t, http.MethodPost, "/api/generate-post", "U1", `{"transcript":"hello"}`),
		uploadRequest(t, "U1", "clip.wav", audioBytes(200)),
	}
	for i, req := range steps {
		if rec := env.serve(req); rec.Code != http.StatusOK {
			t.Fatalf("action %d: status = %d, want 200", i+1, rec.Code)
		}
	}

	rec := env.serve(jsonRequest(t, http.MethodPost, "/api/generate-post", "U1", `{"transcript":"hello"}`))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("4th action: status = %d, want 429", rec.Code)
	}
	if env.ai.genCalls != 1 {
		t.Errorf("generation ran %d times, want 1", env.ai.genCalls)
	}
}

func TestPlusQuotaUnlimited(t *testing.T) {
	env := newPolicyEnv(t, plusProfile("U1", "cus_1"))
	env.ai.transcript = "hello"

	for i := 1; i <= usage.FreeDailyLimit+2; i++ {
		if rec := env.serve(uploadRequest(t, "U1", "clip.wav", audioBytes(200))); rec.Code != http.StatusOK {
			t.Fatalf("transcription %d: status = %d, want 200", i, rec.Code)
		}
	}
}
