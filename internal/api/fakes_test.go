package api

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/voice2post/voice2post/internal/auth"
	"github.com/voice2post/voice2post/internal/billing"
	"github.com/voice2post/voice2post/internal/ingest"
	"github.com/voice2post/voice2post/internal/models"
	"github.com/voice2post/voice2post/internal/profile"
	"github.com/voice2post/voice2post/internal/records"
	"github.com/voice2post/voice2post/internal/services"
	"github.com/voice2post/voice2post/internal/usage"
)

const (
	testJWTSecret     = "api-test-secret"
	testWebhookSecret = "whsec_api_test"
	testCookie        = "sb-access-token"
)

type fakeProfiles struct {
	mu   sync.Mutex
	byID map[string]*models.Profile
}

func newFakeProfiles(profiles ...*models.Profile) *fakeProfiles {
	f := &fakeProfiles{byID: map[string]*models.Profile{}}
	for _, p := range profiles {
		f.byID[p.ID] = p
	}
	return f
}

func (f *fakeProfiles) get(id string) *models.Profile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id]
}

func (f *fakeProfiles) GetByID(_ context.Context, userID string) (*models.Profile, error) {
	if p := f.get(userID); p != nil {
		return p, nil
	}
	return nil, profile.ErrNotFound
}

func (f *fakeProfiles) GetByStripeCustomerID(_ context.Context, customerID string) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.byID {
		if p.StripeCustomerID != nil && *p.StripeCustomerID == customerID {
			return p, nil
		}
	}
	return nil, profile.ErrNotFound
}

func (f *fakeProfiles) GetOrCreate(_ context.Context, userID, fullName string) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.byID[userID]; ok {
		return p, nil
	}
	p := &models.Profile{ID: userID, Plan: models.PlanFree, UsageResetDate: time.Now()}
	if fullName != "" {
		p.FullName = &fullName
	}
	f.byID[userID] = p
	return p, nil
}

func (f *fakeProfiles) ActivatePlus(_ context.Context, userID, customerID, subscriptionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[userID]
	if !ok {
		return profile.ErrNotFound
	}
	p.Plan = models.PlanPlus
	p.StripeCustomerID = &customerID
	p.StripeSubscriptionID = &subscriptionID
	return nil
}

func (f *fakeProfiles) SetPlan(_ context.Context, userID string, plan models.Plan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[userID]
	if !ok {
		return profile.ErrNotFound
	}
	p.Plan = plan
	return nil
}

func (f *fakeProfiles) ClearSubscription(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[userID]
	if !ok {
		return profile.ErrNotFound
	}
	p.Plan = models.PlanFree
	p.StripeSubscriptionID = nil
	return nil
}

type fakeLedger struct {
	allow   bool
	err     error
	checks  int
	records int
}

func (f *fakeLedger) CanPerform(context.Context, string) (bool, error) {
	f.checks++
	return f.allow, f.err
}

func (f *fakeLedger) Record(context.Context, string) error {
	f.records++
	return nil
}

func (f *fakeLedger) Status(context.Context, string) (*usage.Status, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &usage.Status{
		CanUse:         f.allow,
		Plan:           models.PlanFree,
		UsageCount:     f.records,
		UsageResetDate: "2026-10-14",
		MaxUsage:       usage.FreeDailyLimit,
	}, nil
}

type fakeLogs struct {
	entries []*models.UsageLog
}

func (f *fakeLogs) Append(_ context.Context, entry *models.UsageLog) error {
	f.entries = append(f.entries, entry)
	return nil
}

type fakeResolver struct {
	audio *ingest.Audio
	err   error
	calls int
}

func (f *fakeResolver) Resolve(context.Context, string) (*ingest.Audio, error) {
	f.calls++
	return f.audio, f.err
}

type fakeAI struct {
	transcript string
	transErr   error
	reply      string
	genErr     error
	transCalls int
	genCalls   int
}

func (f *fakeAI) GenerateContent(context.Context, string) (string, error) {
	f.genCalls++
	return f.reply, f.genErr
}

func (f *fakeAI) TranscribeAudio(context.Context, string, []byte, string) (string, error) {
	f.transCalls++
	return f.transcript, f.transErr
}

type fakeRecords struct {
	saved []*models.Record
}

func (f *fakeRecords) Save(_ context.Context, userID string, rec *models.Record) error {
	rec.UserID = userID
	for i, existing := range f.saved {
		if existing.ID == rec.ID && existing.UserID == userID {
			f.saved[i] = rec
			return nil
		}
	}
	rec.ID = uuid.New()
	f.saved = append(f.saved, rec)
	return nil
}

func (f *fakeRecords) ListByUser(_ context.Context, userID string, _ int) ([]*models.Record, error) {
	var out []*models.Record
	for _, rec := range f.saved {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeRecords) Delete(_ context.Context, userID string, id uuid.UUID) error {
	for i, rec := range f.saved {
		if rec.ID == id && rec.UserID == userID {
			f.saved = append(f.saved[:i], f.saved[i+1:]...)
			return nil
		}
	}
	return records.ErrNotFound
}

type testEnv struct {
	router   *mux.Router
	profiles *fakeProfiles
	ledger   *fakeLedger
	logs     *fakeLogs
	resolver *fakeResolver
	ai       *fakeAI
	records  *fakeRecords
}

func newTestEnv(t *testing.T, profiles ...*models.Profile) *testEnv {
	t.Helper()
	env := &testEnv{
		profiles: newFakeProfiles(profiles...),
		ledger:   &fakeLedger{allow: true},
		logs:     &fakeLogs{},
		resolver: &fakeResolver{},
		ai:       &fakeAI{},
		records:  &fakeRecords{},
	}

	env.router = newRouterWithLedger(env, env.ledger)
	return env
}

func newRouterWithLedger(env *testEnv, ledger usage.Ledger) *mux.Router {
	transcriber := services.NewTranscriber(env.ai, services.WithPicker(func(int) int { return 1 }))
	generator := services.NewPostGenerator(env.ai)
	bill := billing.NewBilling("sk_test_123", testWebhookSecret, "price_plus", "http://localhost:3000")

	return SetupRoutes(Router{
		Transcribe: NewTranscribeHandler(ledger, env.logs, env.resolver, transcriber, 1<<20),
		Generate:   NewGenerateHandler(ledger, env.logs, env.records, generator),
		Usage:      NewUsageHandler(ledger),
		Records:    NewRecordsHandler(env.records),
		Billing:    NewBillingHandler(bill, billing.NewEventProcessor(env.profiles)),
		Auth:       auth.NewMiddleware(auth.NewHMACVerifier(testJWTSecret), testCookie),
		Profiles:   env.profiles,
		CORSOrigin: "http://localhost:3000",
	})
}

func (e *testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   userID,
		"email": userID + "@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + token
}

func uploadRequest(t *testing.T, userID, fileName string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("audio", fileName)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/transcribe", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if userID != "" {
		req.Header.Set("Authorization", bearer(t, userID))
	}
	return req
}

func freeProfile(id string) *models.Profile {
	return &models.Profile{ID: id, Plan: models.PlanFree, UsageResetDate: time.Now()}
}

func plusProfile(id, customerID string) *models.Profile {
	sub := "sub_" + id
	return &models.Profile{
		ID:                   id,
		Plan:                 models.PlanPlus,
		UsageResetDate:       time.Now(),
		StripeCustomerID:     &customerID,
		StripeSubscriptionID: &sub,
	}
}
