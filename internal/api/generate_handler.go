package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/voice2post/voice2post/internal/logging"
	"github.com/voice2post/voice2post/internal/models"
	"github.com/voice2post/voice2post/internal/records"
	"github.com/voice2post/voice2post/internal/respond"
	"github.com/voice2post/voice2post/internal/services"
	"github.com/voice2post/voice2post/internal/usage"
)

const maxGenerateBody = 1 << 20

type PostGenerator interface {
	Generate(ctx context.Context, transcript string, style models.Style) (services.GeneratedPost, error)
}

type GenerateHandler struct {
	ledger    usage.Ledger
	logs      usage.LogStore
	records   records.Repository
	generator PostGenerator
}

func NewGenerateHandler(ledger usage.Ledger, logs usage.LogStore, recs records.Repository, generator PostGenerator) *GenerateHandler {
	return &GenerateHandler{
		ledger:    ledger,
		logs:      logs,
		records:   recs,
		generator: generator,
	}
}

type GenerateRequest struct {
	Transcript string `json:"transcript"`
	Style      string `json:"style"`
	RecordID   string `json:"recordId,omitempty"`
}

type GenerateResponse struct {
	Summary        string `json:"summary"`
	Post           string `json:"post"`
	Style          string `json:"style"`
	Success        bool   `json:"success"`
	ProcessingTime string `json:"processingTime"`
	RecordID       string `json:"recordId,omitempty"`
	Fallback       bool   `json:"fallback"`
}

func (h *GenerateHandler) GeneratePost(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	logging.EnrichAction(ctx, string(models.ActionGeneratePost))

	user, prof, ok := caller(w, r)
	if !ok {
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxGenerateBody)).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	transcript := strings.TrimSpace(req.Transcript)
	if transcript == "" {
		respond.Error(w, http.StatusBadRequest, "No transcript provided")
		return
	}
	style, err := models.ParseStyle(req.Style)
	if err != nil {
		respond.ErrorDetails(w, http.StatusBadRequest, respond.ErrCodeBadRequest, "Invalid style", err)
		return
	}

	if !checkQuota(w, r, h.ledger, user.ID) {
		return
	}

	post, err := h.generator.Generate(ctx, transcript, style)
	if err != nil {
		logging.EnrichError(ctx, err, "generate")
		respond.ErrorDetails(w, http.StatusInternalServerError, respond.ErrCodeGeneration, "Failed to generate post", err)
		return
	}
	if post.IsFallback() {
		logging.EnrichFallback(ctx)
	}

	elapsed := models.FormatProcessingTime(time.Since(start))
	recordUsage(r, h.ledger, user.ID)
	appendUsageLog(r, h.logs, &models.UsageLog{
		UserID:         user.ID,
		Action:         models.ActionGeneratePost,
		ProcessingTime: elapsed,
	})

	resp := GenerateResponse{
		Summary:        post.Summary(),
		Post:           post.Post(),
		Style:          string(style),
		Success:        true,
		ProcessingTime: elapsed,
		Fallback:       post.IsFallback(),
	}

	// History is a Plus feature; free users get the post without a stored record.
	if prof.IsPlus() && h.records != nil {
		rec := &models.Record{
			ID:             parseRecordID(req.RecordID),
			Transcript:     transcript,
			Summary:        post.Summary(),
			GeneratedPost:  post.Post(),
			Style:          style,
			ProcessingTime: elapsed,
		}
		saveCtx, cancel := bookkeepingContext(r)
		err := h.records.Save(saveCtx, user.ID, rec)
		cancel()
		if err != nil {
			logging.Logger(ctx).Warn().Err(err).Msg("failed to save record")
		} else {
			resp.RecordID = rec.ID.String()
			logging.EnrichRecord(ctx, resp.RecordID)
		}
	}

	respond.JSON(w, http.StatusOK, resp)
}

// parseRecordID returns uuid.Nil for an absent or malformed id, which makes
// the repository insert a fresh record.
func parseRecordID(raw string) uuid.UUID {
	if raw == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}
