package logging

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey string

const (
	contextKeyWideEvent contextKey = "wide_event"
	contextKeyTraceID   contextKey = "trace_id"
)

// WideEvent is the single structured log line written for a request.
// Handlers and services enrich it as the request moves through them.
type WideEvent struct {
	TraceID   string
	EventType string
	Timestamp time.Time

	HTTPMethod     string
	HTTPPath       string
	HTTPStatusCode int
	HTTPDuration   time.Duration

	UserID    string
	UserEmail string
	Plan      string

	Action         string
	AudioBytes     int64
	MediaType      string
	FetchStrategy  string
	Fallback       bool
	RecordID       string
	WebhookKind    string
	WebhookEventID string

	Error          string
	ErrorStage     string
	PanicRecovered bool

	Metadata map[string]interface{}
}

// NewWideEvent creates a new WideEvent with a trace ID and timestamp
func NewWideEvent(eventType string) *WideEvent {
	return &WideEvent{
		TraceID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
		Metadata:  make(map[string]interface{}),
	}
}

// WithContext attaches a WideEvent to a context
func WithContext(ctx context.Context, event *WideEvent) context.Context {
	ctx = context.WithValue(ctx, contextKeyWideEvent, event)
	ctx = context.WithValue(ctx, contextKeyTraceID, event.TraceID)
	return ctx
}

// FromContext retrieves the WideEvent from a context
func FromContext(ctx context.Context) *WideEvent {
	if event, ok := ctx.Value(contextKeyWideEvent).(*WideEvent); ok {
		return event
	}
	return nil
}

// GetTraceID retrieves just the trace ID from context
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(contextKeyTraceID).(string); ok {
		return traceID
	}
	return ""
}

// Logger returns the global logger tagged with the request trace id.
func Logger(ctx context.Context) *zerolog.Logger {
	l := log.With().Str("trace_id", GetTraceID(ctx)).Logger()
	return &l
}

func EnrichHTTP(ctx context.Context, method, path string) {
	if event := FromContext(ctx); event != nil {
		event.HTTPMethod = method
		event.HTTPPath = path
	}
}

func EnrichHTTPStatus(ctx context.Context, statusCode int) {
	if event := FromContext(ctx); event != nil {
		event.HTTPStatusCode = statusCode
	}
}

func EnrichHTTPDuration(ctx context.Context, duration time.Duration) {
	if event := FromContext(ctx); event != nil {
		event.HTTPDuration = duration
	}
}

func EnrichUser(ctx context.Context, userID, email string) {
	if event := FromContext(ctx); event != nil {
		event.UserID = userID
		event.UserEmail = email
	}
}

func EnrichPlan(ctx context.Context, plan string) {
	if event := FromContext(ctx); event != nil {
		event.Plan = plan
	}
}

func EnrichAction(ctx context.Context, action string) {
	if event := FromContext(ctx); event != nil {
		event.Action = action
	}
}

func EnrichAudio(ctx context.Context, size int64, mediaType, strategy string) {
	if event := FromContext(ctx); event != nil {
		event.AudioBytes = size
		event.MediaType = mediaType
		event.FetchStrategy = strategy
	}
}

func EnrichFallback(ctx context.Context) {
	if event := FromContext(ctx); event != nil {
		event.Fallback = true
	}
}

func EnrichRecord(ctx context.Context, recordID string) {
	if event := FromContext(ctx); event != nil {
		event.RecordID = recordID
	}
}

func EnrichWebhook(ctx context.Context, kind, eventID string) {
	if event := FromContext(ctx); event != nil {
		event.WebhookKind = kind
		event.WebhookEventID = eventID
	}
}

func EnrichError(ctx context.Context, err error, stage string) {
	if event := FromContext(ctx); event != nil {
		if err != nil {
			event.Error = err.Error()
			event.ErrorStage = stage
		}
	}
}

func EnrichPanic(ctx context.Context) {
	if event := FromContext(ctx); event != nil {
		event.PanicRecovered = true
	}
}

func EnrichMetadata(ctx context.Context, key string, value interface{}) {
	if event := FromContext(ctx); event != nil {
		event.Metadata[key] = value
	}
}

// Emit outputs the WideEvent as a structured log
func Emit(ctx context.Context) {
	event := FromContext(ctx)
	if event == nil {
		return
	}

	var e *zerolog.Event
	switch {
	case event.PanicRecovered || event.HTTPStatusCode >= 500:
		e = log.Error()
	case event.Error != "":
		e = log.Warn()
	default:
		e = log.Info()
	}

	e = e.Str("trace_id", event.TraceID).
		Str("event_type", event.EventType).
		Time("started_at", event.Timestamp)

	if event.HTTPMethod != "" {
		e = e.Str("http_method", event.HTTPMethod).Str("http_path", event.HTTPPath)
	}
	if event.HTTPStatusCode != 0 {
		e = e.Int("http_status_code", event.HTTPStatusCode)
	}
	if event.HTTPDuration != 0 {
		e = e.Int64("http_duration_ms", event.HTTPDuration.Milliseconds())
	}

	if event.UserID != "" {
		e = e.Str("user_id", event.UserID)
	}
	if event.UserEmail != "" {
		e = e.Str("user_email", event.UserEmail)
	}
	if event.Plan != "" {
		e = e.Str("plan", event.Plan)
	}

	if event.Action != "" {
		e = e.Str("action", event.Action)
	}
	if event.AudioBytes != 0 {
		e = e.Int64("audio_bytes", event.AudioBytes).Str("media_type", event.MediaType)
	}
	if event.FetchStrategy != "" {
		e = e.Str("fetch_strategy", event.FetchStrategy)
	}
	if event.Fallback {
		e = e.Bool("fallback", true)
	}
	if event.RecordID != "" {
		e = e.Str("record_id", event.RecordID)
	}
	if event.WebhookKind != "" {
		e = e.Str("webhook_kind", event.WebhookKind).Str("webhook_event_id", event.WebhookEventID)
	}

	if event.Error != "" {
		e = e.Str("error", event.Error).Str("error_stage", event.ErrorStage)
	}
	if event.PanicRecovered {
		e = e.Bool("panic_recovered", true)
	}
	if len(event.Metadata) > 0 {
		e = e.Interface("metadata", event.Metadata)
	}

	e.Msg("wide_event")
}
