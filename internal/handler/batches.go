package handler

import (
	"errors"
	"net/http"

	"marketsync-api/internal/model"
	"marketsync-api/internal/repository"
	"marketsync-api/pkg/apierror"
	"marketsync-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// BatchHandler handles batch status HTTP requests.
type BatchHandler struct {
	store repository.FeedRepository
}

// NewBatchHandler creates a new batch handler.
func NewBatchHandler(store repository.FeedRepository) *BatchHandler {
	return &BatchHandler{store: store}
}

// Get handles GET /api/v1/batches/{batch_id}. Master batches include
// their chunk rollup; single and chunk batches include their items.
func (h *BatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batch_id")
	if batchID == "" {
		response.Error(w, apierror.BadRequest("batch_id is required"))
		return
	}

	batch, err := h.store.GetBatch(r.Context(), batchID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Error(w, apierror.NotFound("batch not found"))
			return
		}
		response.Error(w, err)
		return
	}

	result := map[string]interface{}{"batch": batch}

	if batch.BatchType == model.BatchTypeMaster {
		chunks, err := h.store.ListChildBatches(r.Context(), batch.ID)
		if err != nil {
			response.Error(w, err)
			return
		}
		result["chunks"] = chunks
	} else {
		items, err := h.store.ListBatchItems(r.Context(), batch.ID)
		if err != nil {
			response.Error(w, err)
			return
		}
		result["items"] = items
	}

	response.OK(w, result)
}

// Items handles GET /api/v1/batches/{batch_id}/items
func (h *BatchHandler) Items(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batch_id")
	if batchID == "" {
		response.Error(w, apierror.BadRequest("batch_id is required"))
		return
	}

	items, err := h.store.ListBatchItems(r.Context(), batchID)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, map[string]interface{}{
		"batch_id": batchID,
		"items":    items,
		"count":    len(items),
	})
}
