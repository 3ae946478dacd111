package respond

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

const (
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodePayloadTooLarge    = "PAYLOAD_TOO_LARGE"
	ErrCodeRateLimit          = "RATE_LIMIT_EXCEEDED"
	ErrCodeQuotaExceeded      = "QUOTA_EXCEEDED"
	ErrCodeQuotaCheckFailed   = "QUOTA_CHECK_FAILED"
	ErrCodeUpstreamTimeout    = "UPSTREAM_TIMEOUT"
	ErrCodeTranscription      = "TRANSCRIPTION_FAILED"
	ErrCodeGeneration         = "GENERATION_FAILED"
	ErrCodeInvalidSignature   = "INVALID_SIGNATURE"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// UpgradePath is sent with quota errors so the client can offer an upgrade.
const UpgradePath = "/upgrade"

type ErrorResponse struct {
	Error      string `json:"error"`
	Code       string `json:"code"`
	Details    string `json:"details,omitempty"`
	UpgradeURL string `json:"upgradeUrl,omitempty"`
}

func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Int("status", statusCode).Msg("failed to encode response")
	}
}

func CodeFromStatus(statusCode int) string {
	switch {
	case statusCode == http.StatusGatewayTimeout:
		return ErrCodeUpstreamTimeout
	case statusCode >= 500:
		return ErrCodeInternalError
	case statusCode == http.StatusUnauthorized:
		return ErrCodeUnauthorized
	case statusCode == http.StatusNotFound:
		return ErrCodeNotFound
	case statusCode == http.StatusRequestEntityTooLarge:
		return ErrCodePayloadTooLarge
	case statusCode == http.StatusTooManyRequests:
		return ErrCodeRateLimit
	default:
		return ErrCodeBadRequest
	}
}

// Error writes the standard error body with the code derived from status.
func Error(w http.ResponseWriter, statusCode int, message string) {
	JSON(w, statusCode, ErrorResponse{Error: message, Code: CodeFromStatus(statusCode)})
}

func ErrorCode(w http.ResponseWriter, statusCode int, code, message string) {
	JSON(w, statusCode, ErrorResponse{Error: message, Code: code})
}

// ErrorDetails carries the upstream error text for diagnostics.
func ErrorDetails(w http.ResponseWriter, statusCode int, code, message string, err error) {
	resp := ErrorResponse{Error: message, Code: code}
	if err != nil {
		resp.Details = err.Error()
	}
	JSON(w, statusCode, resp)
}

func QuotaExceeded(w http.ResponseWriter, message string) {
	JSON(w, http.StatusTooManyRequests, ErrorResponse{
		Error:      message,
		Code:       ErrCodeQuotaExceeded,
		UpgradeURL: UpgradePath,
	})
}
