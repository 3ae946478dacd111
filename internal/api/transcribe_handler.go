package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/voice2post/voice2post/internal/ingest"
	"github.com/voice2post/voice2post/internal/logging"
	"github.com/voice2post/voice2post/internal/models"
	"github.com/voice2post/voice2post/internal/respond"
	"github.com/voice2post/voice2post/internal/services"
	"github.com/voice2post/voice2post/internal/usage"
)

const (
	multipartMemory   = 32 << 20
	multipartOverhead = 1 << 20

	quotaExceededMessage = "Daily usage limit reached. Upgrade to Plus for unlimited usage."
	quotaCheckMessage    = "Failed to check usage limit"
)

type AudioResolver interface {
	Resolve(ctx context.Context, rawURL string) (*ingest.Audio, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio *ingest.Audio) (*services.Transcript, error)
}

type TranscribeHandler struct {
	ledger      usage.Ledger
	logs        usage.LogStore
	resolver    AudioResolver
	transcriber Transcriber
	maxBytes    int64
}

func NewTranscribeHandler(ledger usage.Ledger, logs usage.LogStore, resolver AudioResolver, transcriber Transcriber, maxBytes int64) *TranscribeHandler {
	return &TranscribeHandler{
		ledger:      ledger,
		logs:        logs,
		resolver:    resolver,
		transcriber: transcriber,
		maxBytes:    maxBytes,
	}
}

type transcribeURLRequest struct {
	AudioURL string `json:"audioUrl"`
}

type TranscribeResponse struct {
	Transcript     string `json:"transcript"`
	Success        bool   `json:"success"`
	ProcessingTime string `json:"processingTime"`
	Fallback       bool   `json:"fallback"`
}

func (h *TranscribeHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	logging.EnrichAction(ctx, string(models.ActionTranscribe))

	user, _, ok := caller(w, r)
	if !ok {
		return
	}
	if !checkQuota(w, r, h.ledger, user.ID) {
		return
	}

	audio, status, err := h.readAudio(w, r)
	if err != nil {
		logging.EnrichError(ctx, err, "ingest")
		writeIngestError(w, status, err)
		return
	}

	if err := ingest.Validate(audio, h.maxBytes); err != nil {
		logging.EnrichError(ctx, err, "validate")
		writeIngestError(w, http.StatusBadRequest, err)
		return
	}
	logging.EnrichAudio(ctx, audio.Size(), audio.MediaType, audio.Source)

	transcript, err := h.transcriber.Transcribe(ctx, audio)
	if err != nil {
		logging.EnrichError(ctx, err, "transcribe")
		respond.ErrorDetails(w, http.StatusInternalServerError, respond.ErrCodeTranscription, "Failed to transcribe audio", err)
		return
	}
	if transcript.Fallback {
		logging.EnrichFallback(ctx)
	}

	elapsed := time.Since(start)
	size := audio.Size()
	recordUsage(r, h.ledger, user.ID)
	appendUsageLog(r, h.logs, &models.UsageLog{
		UserID:         user.ID,
		Action:         models.ActionTranscribe,
		FileSize:       &size,
		ProcessingTime: models.FormatProcessingTime(elapsed),
	})

	respond.JSON(w, http.StatusOK, TranscribeResponse{
		Transcript:     transcript.Text,
		Success:        true,
		ProcessingTime: models.FormatProcessingTime(elapsed),
		Fallback:       transcript.Fallback,
	})
}

// readAudio accepts either a multipart upload in the "audio" field or a
// JSON body naming a stored object by URL.
func (h *TranscribeHandler) readAudio(w http.ResponseWriter, r *http.Request) (*ingest.Audio, int, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "application/json" {
		var req transcribeURLRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, multipartOverhead)).Decode(&req); err != nil {
			return nil, http.StatusBadRequest, fmt.Errorf("%w: invalid request body", ingest.ErrMissingAudio)
		}
		if req.AudioURL == "" {
			return nil, http.StatusBadRequest, fmt.Errorf("%w: no audio URL provided", ingest.ErrMissingAudio)
		}
		audio, err := h.resolver.Resolve(r.Context(), req.AudioURL)
		if err != nil {
			return nil, statusForFetch(err), err
		}
		return audio, http.StatusOK, nil
	}

	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("%w: %v", ingest.ErrAudioTooLarge, err)
		}
		return nil, http.StatusBadRequest, fmt.Errorf("%w: %v", ingest.ErrMissingAudio, err)
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("%w: no audio file provided", ingest.ErrMissingAudio)
	}
	defer file.Close()

	audio, err := ingest.FromUpload(file, header, h.maxBytes)
	if err != nil {
		if errors.Is(err, ingest.ErrAudioTooLarge) {
			return nil, http.StatusRequestEntityTooLarge, err
		}
		return nil, http.StatusBadRequest, err
	}
	return audio, http.StatusOK, nil
}

func statusForFetch(err error) int {
	switch {
	case errors.Is(err, ingest.ErrAudioTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ingest.ErrFetchTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadRequest
	}
}

func writeIngestError(w http.ResponseWriter, status int, err error) {
	if errors.Is(err, ingest.ErrAudioTooLarge) {
		status = http.StatusRequestEntityTooLarge
	}

	switch {
	case errors.Is(err, ingest.ErrAudioTooLarge):
		respond.ErrorDetails(w, status, respond.ErrCodePayloadTooLarge, "Audio file is too large", err)
	case errors.Is(err, ingest.ErrFetchTimeout):
		respond.ErrorDetails(w, status, respond.ErrCodeUpstreamTimeout, "Timed out downloading audio", err)
	case errors.Is(err, ingest.ErrFetchFailed):
		respond.ErrorDetails(w, status, respond.ErrCodeBadRequest, "Failed to download audio", err)
	case errors.Is(err, ingest.ErrUnsupportedType):
		respond.ErrorDetails(w, status, respond.ErrCodeBadRequest, "Unsupported file type. Please use WAV, MP3, M4A, WebM, or OGG format.", err)
	case errors.Is(err, ingest.ErrInvalidAudio):
		respond.ErrorDetails(w, status, respond.ErrCodeBadRequest, "Invalid audio file. Please upload a valid audio file (WAV, MP3, M4A, etc.)", err)
	case errors.Is(err, ingest.ErrMissingAudio):
		respond.ErrorDetails(w, status, respond.ErrCodeBadRequest, "No audio provided", err)
	default:
		respond.ErrorDetails(w, status, respond.CodeFromStatus(status), "Failed to read audio", err)
	}
}

// checkQuota writes the rejection itself and reports whether the caller may
// proceed. A ledger failure denies the request.
func checkQuota(w http.ResponseWriter, r *http.Request, ledger usage.Ledger, userID string) bool {
	allowed, err := ledger.CanPerform(r.Context(), userID)
	if err != nil {
		logging.EnrichError(r.Context(), err, "quota")
		respond.ErrorDetails(w, http.StatusInternalServerError, respond.ErrCodeQuotaCheckFailed, quotaCheckMessage, err)
		return false
	}
	if !allowed {
		respond.QuotaExceeded(w, quotaExceededMessage)
		return false
	}
	return true
}

// recordUsage counts one delivered result. The result already exists, so a
// ledger failure is logged rather than surfaced.
func recordUsage(r *http.Request, ledger usage.Ledger, userID string) {
	ctx, cancel := bookkeepingContext(r)
	defer cancel()
	if err := ledger.Record(ctx, userID); err != nil {
		logging.EnrichError(r.Context(), err, "usage_record")
		logging.Logger(r.Context()).Error().Err(err).Str("user_id", userID).Msg("failed to record usage")
	}
}

func appendUsageLog(r *http.Request, logs usage.LogStore, entry *models.UsageLog) {
	if logs == nil {
		return
	}
	ctx, cancel := bookkeepingContext(r)
	defer cancel()
	if err := logs.Append(ctx, entry); err != nil {
		logging.Logger(r.Context()).Warn().Err(err).Str("action", string(entry.Action)).Msg("failed to append usage log")
	}
}
