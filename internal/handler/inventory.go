package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"marketsync-api/internal/repository"
	"marketsync-api/internal/service"
	"marketsync-api/pkg/apierror"
	"marketsync-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// InventoryHandler handles inventory sync HTTP requests.
type InventoryHandler struct {
	inventoryService *service.InventoryService
	store            repository.InventorySyncRepository
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(inventoryService *service.InventoryService, store repository.InventorySyncRepository) *InventoryHandler {
	return &InventoryHandler{
		inventoryService: inventoryService,
		store:            store,
	}
}

// Get handles GET /api/v1/inventory/{sku}
func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	sku := chi.URLParam(r, "sku")
	if sku == "" {
		response.Error(w, apierror.BadRequest("sku is required"))
		return
	}

	row, err := h.store.GetSyncStatusBySKU(r.Context(), sku)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Error(w, apierror.NotFound("no sync status for sku"))
			return
		}
		response.Error(w, err)
		return
	}

	response.OK(w, row)
}

// syncRequest is the optional body of POST /api/v1/inventory/{sku}/sync.
type syncRequest struct {
	Market string `json:"market"`
}

// Sync handles POST /api/v1/inventory/{sku}/sync - immediate push of the
// catalog quantity for one SKU.
func (h *InventoryHandler) Sync(w http.ResponseWriter, r *http.Request) {
	sku := chi.URLParam(r, "sku")
	if sku == "" {
		response.Error(w, apierror.BadRequest("sku is required"))
		return
	}

	var req syncRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
		r.Body.Close()
	}

	if err := h.inventoryService.SyncSKU(r.Context(), sku, req.Market); err != nil {
		response.Error(w, upstreamError(err))
		return
	}

	response.OK(w, map[string]interface{}{
		"status": "synced",
		"sku":    sku,
	})
}

// Retry handles POST /api/v1/inventory/{sku}/retry - manual retry that
// ignores the cooldown and the retry cap.
func (h *InventoryHandler) Retry(w http.ResponseWriter, r *http.Request) {
	sku := chi.URLParam(r, "sku")
	if sku == "" {
		response.Error(w, apierror.BadRequest("sku is required"))
		return
	}

	if err := h.inventoryService.ForceRetry(r.Context(), sku); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Error(w, apierror.NotFound("no sync status for sku"))
			return
		}
		response.Error(w, upstreamError(err))
		return
	}

	response.OK(w, map[string]interface{}{
		"status": "retried",
		"sku":    sku,
	})
}

// RetrySweep handles POST /api/v1/inventory/retry - kicks the hourly
// retry sweep outside its schedule. The sweep itself still honors the
// cooldown and cap.
func (h *InventoryHandler) RetrySweep(w http.ResponseWriter, r *http.Request) {
	h.inventoryService.RetrySweep(r.Context())
	response.OK(w, map[string]interface{}{"status": "sweep completed"})
}
