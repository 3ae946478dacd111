package api

import (
	"net/http"

	"github.com/voice2post/voice2post/internal/logging"
	"github.com/voice2post/voice2post/internal/models"
	"github.com/voice2post/voice2post/internal/respond"
	"github.com/voice2post/voice2post/internal/usage"
)

type UsageHandler struct {
	ledger usage.Ledger
}

func NewUsageHandler(ledger usage.Ledger) *UsageHandler {
	return &UsageHandler{ledger: ledger}
}

type UsageProfile struct {
	Plan           models.Plan `json:"plan"`
	UsageCount     int         `json:"usageCount"`
	UsageResetDate string      `json:"usageResetDate"`
	MaxUsage       int         `json:"maxUsage"`
}

type UsageResponse struct {
	CanUse  bool         `json:"canUse"`
	Profile UsageProfile `json:"profile"`
}

func (h *UsageHandler) GetUsage(w http.ResponseWriter, r *http.Request) {
	user, _, ok := caller(w, r)
	if !ok {
		return
	}

	status, err := h.ledger.Status(r.Context(), user.ID)
	if err != nil {
		logging.EnrichError(r.Context(), err, "usage_status")
		respond.ErrorDetails(w, http.StatusInternalServerError, respond.ErrCodeQuotaCheckFailed, quotaCheckMessage, err)
		return
	}

	respond.JSON(w, http.StatusOK, UsageResponse{
		CanUse: status.CanUse,
		Profile: UsageProfile{
			Plan:           status.Plan,
			UsageCount:     status.UsageCount,
			UsageResetDate: status.UsageResetDate,
			MaxUsage:       status.MaxUsage,
		},
	})
}

// IncrementUsage counts one use explicitly, for clients that meter work
// done outside the generate route.
func (h *UsageHandler) IncrementUsage(w http.ResponseWriter, r *http.Request) {
	user, _, ok := caller(w, r)
	if !ok {
		return
	}

	if err := h.ledger.Record(r.Context(), user.ID); err != nil {
		logging.EnrichError(r.Context(), err, "usage_record")
		respond.ErrorDetails(w, http.StatusInternalServerError, respond.ErrCodeInternalError, "Failed to update usage count", err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]bool{"success": true})
}
