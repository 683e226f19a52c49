package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"marketsync-api/internal/queue"
	"marketsync-api/internal/repository"
	"marketsync-api/internal/service"
	"marketsync-api/pkg/apierror"
	"marketsync-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// AdminHandler handles operational stats and UPC pool management.
type AdminHandler struct {
	store   repository.Store
	queue   queue.SyncQueue
	upcPool *service.UPCPoolService
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(store repository.Store, syncQueue queue.SyncQueue, upcPool *service.UPCPoolService) *AdminHandler {
	return &AdminHandler{
		store:   store,
		queue:   syncQueue,
		upcPool: upcPool,
	}
}

// Stats handles GET /api/v1/admin/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	feeds, err := h.store.CountFeedsByStatus(ctx)
	if err != nil {
		response.Error(w, err)
		return
	}

	syncs, err := h.store.CountSyncByStatus(ctx)
	if err != nil {
		response.Error(w, err)
		return
	}

	unused, err := h.store.CountUnusedIdentifiers(ctx)
	if err != nil {
		response.Error(w, err)
		return
	}

	var queueDepth int64
	if h.queue != nil {
		queueDepth, _ = h.queue.Len(ctx)
	}

	response.OK(w, map[string]interface{}{
		"feeds":            feeds,
		"inventory_sync":   syncs,
		"unused_upc_codes": unused,
		"pending_queue":    queueDepth,
	})
}

// upcLoadRequest is the body of POST /api/v1/admin/upc/load.
type upcLoadRequest struct {
	Codes []string `json:"codes"`
}

// LoadUPCs handles POST /api/v1/admin/upc/load
func (h *AdminHandler) LoadUPCs(w http.ResponseWriter, r *http.Request) {
	var req upcLoadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON body"))
		return
	}
	defer r.Body.Close()

	if len(req.Codes) == 0 {
		response.Error(w, apierror.BadRequest("codes is required"))
		return
	}

	inserted, err := h.upcPool.Load(r.Context(), req.Codes)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, map[string]interface{}{
		"loaded":  inserted,
		"skipped": int64(len(req.Codes)) - inserted,
	})
}

// AllocateUPC handles POST /api/v1/admin/upc/allocate/{product_id}
func (h *AdminHandler) AllocateUPC(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil {
		response.Error(w, apierror.BadRequest("product_id must be numeric"))
		return
	}

	code, err := h.upcPool.Allocate(r.Context(), productID)
	if err != nil {
		if errors.Is(err, repository.ErrPoolExhausted) {
			response.Error(w, apierror.Conflict("identifier pool exhausted"))
			return
		}
		response.Error(w, err)
		return
	}

	response.OK(w, map[string]interface{}{
		"product_id": productID,
		"upc":        code,
	})
}

// SyncUPCPool handles POST /api/v1/admin/upc/sync - reconciles pool
// bindings against the catalog's UPC references.
func (h *AdminHandler) SyncUPCPool(w http.ResponseWriter, r *http.Request) {
	report, err := h.upcPool.SyncStatus(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, report)
}
