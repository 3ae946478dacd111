package services

import (
	"context"
	"sync"

	"github.com/voice2post/voice2post/internal/logging"
	"github.com/voice2post/voice2post/internal/metrics"
)

type ITokenTracker interface {
	AddTokens(ctx context.Context, model string, tknIn, tknOut int)
}

// MetricsTokenTracker exports token counts and records them on the
// request's wide event.
type MetricsTokenTracker struct {
	mu     sync.Mutex
	tknIn  int
	tknOut int
}

func NewMetricsTokenTracker() *MetricsTokenTracker {
	return &MetricsTokenTracker{}
}

func (t *MetricsTokenTracker) AddTokens(ctx context.Context, model string, tknIn, tknOut int) {
	t.mu.Lock()
	t.tknIn += tknIn
	t.tknOut += tknOut
	t.mu.Unlock()

	metrics.AITokens.WithLabelValues(model, "in").Add(float64(tknIn))
	metrics.AITokens.WithLabelValues(model, "out").Add(float64(tknOut))
	logging.EnrichMetadata(ctx, "ai_tokens_in", tknIn)
	logging.EnrichMetadata(ctx, "ai_tokens_out", tknOut)
}

// Totals returns the tokens counted since the tracker was created.
func (t *MetricsTokenTracker) Totals() (tknIn, tknOut int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tknIn, t.tknOut
}
