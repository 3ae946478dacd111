package api

import (
	"context"
	"net/http"

	"github.com/voice2post/voice2post/internal/respond"
	"github.com/voice2post/voice2post/internal/storage"
)

type BucketInspector interface {
	Info(ctx context.Context) (*storage.BucketInfo, error)
}

type StorageHandler struct {
	bucket BucketInspector
}

func NewStorageHandler(bucket BucketInspector) *StorageHandler {
	return &StorageHandler{bucket: bucket}
}

type StorageInfoResponse struct {
	Success bool                `json:"success"`
	Bucket  *storage.BucketInfo `json:"bucket"`
}

func (h *StorageHandler) Info(w http.ResponseWriter, r *http.Request) {
	info, err := h.bucket.Info(r.Context())
	if err != nil {
		respond.ErrorDetails(w, http.StatusInternalServerError, respond.ErrCodeServiceUnavailable, "Failed to read storage bucket", err)
		return
	}
	respond.JSON(w, http.StatusOK, StorageInfoResponse{Success: true, Bucket: info})
}
