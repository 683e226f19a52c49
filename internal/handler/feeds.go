package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"marketsync-api/internal/model"
	"marketsync-api/internal/repository"
	"marketsync-api/internal/service"
	"marketsync-api/pkg/apierror"
	"marketsync-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// FeedHandler handles feed submission and status HTTP requests.
type FeedHandler struct {
	feedService *service.FeedService
	poller      *service.StatusPoller
	store       repository.FeedRepository
}

// NewFeedHandler creates a new feed handler.
func NewFeedHandler(feedService *service.FeedService, poller *service.StatusPoller, store repository.FeedRepository) *FeedHandler {
	return &FeedHandler{
		feedService: feedService,
		poller:      poller,
		store:       store,
	}
}

// submitFeedRequest is the body of POST /api/v1/feeds.
type submitFeedRequest struct {
	Market   string `json:"market"`
	FeedType string `json:"feed_type"`
	Products []struct {
		ProductID int64           `json:"product_id"`
		SKU       string          `json:"sku"`
		UPC       string          `json:"upc,omitempty"`
		Payload   json.RawMessage `json:"payload"`
	} `json:"products"`
}

// Submit handles POST /api/v1/feeds
func (h *FeedHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitFeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON body"))
		return
	}
	defer r.Body.Close()

	if req.FeedType == "" {
		response.Error(w, apierror.BadRequest("feed_type is required"))
		return
	}
	if len(req.Products) == 0 {
		response.Error(w, apierror.BadRequest("products is required"))
		return
	}

	products := make([]model.BatchProduct, len(req.Products))
	for i, p := range req.Products {
		if p.SKU == "" {
			response.Error(w, apierror.BadRequest("every product needs a sku"))
			return
		}
		products[i] = model.BatchProduct{
			ProductID: p.ProductID,
			SKU:       p.SKU,
			UPC:       p.UPC,
			Payload:   p.Payload,
		}
	}

	batch, err := h.feedService.SubmitFeed(r.Context(), req.Market, req.FeedType, products)
	if err != nil {
		response.Error(w, upstreamError(err))
		return
	}

	response.Created(w, batch)
}

// List handles GET /api/v1/feeds - open feeds awaiting a terminal status.
func (h *FeedHandler) List(w http.ResponseWriter, r *http.Request) {
	feeds, err := h.store.ListOpenFeeds(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, map[string]interface{}{
		"feeds": feeds,
		"count": len(feeds),
	})
}

// Get handles GET /api/v1/feeds/{feed_id}
func (h *FeedHandler) Get(w http.ResponseWriter, r *http.Request) {
	feedID := chi.URLParam(r, "feed_id")
	if feedID == "" {
		response.Error(w, apierror.BadRequest("feed_id is required"))
		return
	}

	feed, err := h.store.GetFeed(r.Context(), feedID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Error(w, apierror.NotFound("feed not found"))
			return
		}
		response.Error(w, err)
		return
	}

	response.OK(w, feed)
}

// Poll handles POST /api/v1/feeds/{feed_id}/poll - on-demand status poll
// outside the recurring sweep.
func (h *FeedHandler) Poll(w http.ResponseWriter, r *http.Request) {
	feedID := chi.URLParam(r, "feed_id")
	if feedID == "" {
		response.Error(w, apierror.BadRequest("feed_id is required"))
		return
	}

	feed, err := h.store.GetFeed(r.Context(), feedID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Error(w, apierror.NotFound("feed not found"))
			return
		}
		response.Error(w, err)
		return
	}

	result, err := h.poller.PollFeed(r.Context(), feed.Market, feed.FeedID)
	if err != nil {
		response.Error(w, upstreamError(err))
		return
	}

	response.OK(w, result)
}

// upstreamError maps a marketplace failure onto a 502 unless it is
// already a structured API error.
func upstreamError(err error) error {
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return apierror.UpstreamError(err.Error())
}
