package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/voice2post/voice2post/internal/models"
	"github.com/voice2post/voice2post/internal/records"
	"github.com/voice2post/voice2post/internal/respond"
)

const (
	defaultRecordsLimit = 50
	maxRecordsLimit     = 200
)

type RecordsHandler struct {
	repo records.Repository
}

func NewRecordsHandler(repo records.Repository) *RecordsHandler {
	return &RecordsHandler{repo: repo}
}

type RecordsResponse struct {
	Records []*models.Record `json:"records"`
}

func (h *RecordsHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	user, _, ok := caller(w, r)
	if !ok {
		return
	}

	limit := defaultRecordsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respond.Error(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = min(n, maxRecordsLimit)
	}

	recs, err := h.repo.ListByUser(r.Context(), user.ID, limit)
	if err != nil {
		respond.ErrorDetails(w, http.StatusInternalServerError, respond.ErrCodeInternalError, "Failed to list records", err)
		return
	}
	if recs == nil {
		recs = []*models.Record{}
	}
	respond.JSON(w, http.StatusOK, RecordsResponse{Records: recs})
}

func (h *RecordsHandler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	user, _, ok := caller(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid record ID")
		return
	}

	if err := h.repo.Delete(r.Context(), user.ID, id); err != nil {
		if errors.Is(err, records.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "Record not found")
			return
		}
		respond.ErrorDetails(w, http.StatusInternalServerError, respond.ErrCodeInternalError, "Failed to delete record", err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]bool{"success": true})
}
