package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"marketsync-api/internal/marketplace"
	"marketsync-api/internal/model"
	"marketsync-api/internal/repository"
	"marketsync-api/pkg/uid"
)

// PayloadBuilder is the external data-mapper collaborator: given product
// identities it returns a fully-formed, JSON-serializable feed document.
// The engine never inspects the document beyond serializing it; the only
// contract is that items carry the SKU used as the reconciliation key.
type PayloadBuilder interface {
	BuildFeed(ctx context.Context, feedType string, products []model.BatchProduct) (interface{}, error)
}

// PassthroughBuilder is a PayloadBuilder for callers that submit
// pre-mapped payload items (the ops API path).
type PassthroughBuilder struct{}

// BuildFeed wraps the caller-supplied payload items into a feed document.
func (PassthroughBuilder) BuildFeed(ctx context.Context, feedType string, products []model.BatchProduct) (interface{}, error) {
	items := make([]interface{}, len(products))
	for i, p := range products {
		items[i] = p.Payload
	}
	return map[string]interface{}{"Items": items}, nil
}

// FeedServiceConfig holds submission settings.
type FeedServiceConfig struct {
	// ChunkSize caps items per chunk feed; larger submissions are split
	// under a master batch.
	ChunkSize int

	// InventoryDelay is how long after a successful submission the first
	// inventory sync fires. The marketplace needs processing time before
	// inventory calls against a brand-new SKU succeed.
	InventoryDelay time.Duration
}

// FeedService submits product payloads as marketplace feeds and records
// the Feed/Batch bookkeeping for the poller and aggregator.
type FeedService struct {
	api       marketplace.API
	store     repository.FeedRepository
	builder   PayloadBuilder
	scheduler Scheduler
	inventory *InventoryService
	cfg       FeedServiceConfig
}

// NewFeedService creates a new feed submission service.
func NewFeedService(
	api marketplace.API,
	store repository.FeedRepository,
	builder PayloadBuilder,
	scheduler Scheduler,
	inventory *InventoryService,
	cfg FeedServiceConfig,
) *FeedService {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 500
	}
	if cfg.InventoryDelay <= 0 {
		cfg.InventoryDelay = 5 * time.Minute
	}
	return &FeedService{
		api:       api,
		store:     store,
		builder:   builder,
		scheduler: scheduler,
		inventory: inventory,
		cfg:       cfg,
	}
}

// SubmitFeed submits products as one or more feeds. Submissions above
// the chunk cap are split into chunk batches under a master batch.
func (s *FeedService) SubmitFeed(ctx context.Context, market, feedType string, products []model.BatchProduct) (*model.Batch, error) {
	if len(products) == 0 {
		return nil, fmt.Errorf("no products to submit")
	}

	if len(products) <= s.cfg.ChunkSize {
		return s.submitOne(ctx, market, feedType, products, "", model.BatchTypeSingle)
	}
	return s.submitChunked(ctx, market, feedType, products)
}

// submitOne builds, uploads, and records a single feed. No Feed or Batch
// record exists unless the marketplace acknowledged with a feed id.
func (s *FeedService) submitOne(ctx context.Context, market, feedType string, products []model.BatchProduct, parentID string, batchType model.BatchType) (*model.Batch, error) {
	payload, err := s.builder.BuildFeed(ctx, feedType, products)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed payload: %w", err)
	}

	document, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode feed payload: %w", err)
	}

	ack, err := s.api.SubmitFeed(ctx, market, feedType, document)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	feed := &model.Feed{
		FeedID:      ack.FeedID,
		ProductID:   products[0].ProductID,
		SKU:         products[0].SKU,
		UPC:         products[0].UPC,
		Market:      market,
		FeedType:    feedType,
		Status:      model.FeedStatusSubmitted,
		SubmittedAt: now,
	}
	if err := s.store.CreateFeed(ctx, feed); err != nil {
		return nil, err
	}

	batch := &model.Batch{
		ID:            uid.New(),
		ParentBatchID: parentID,
		BatchType:     batchType,
		FeedID:        ack.FeedID,
		Market:        market,
		ProductCount:  len(products),
		Status:        model.BatchStatusSubmitted,
		CreatedAt:     now,
	}
	if err := s.store.CreateBatch(ctx, batch); err != nil {
		return nil, err
	}

	items := make([]model.BatchItem, len(products))
	for i, p := range products {
		items[i] = model.BatchItem{
			BatchID:   batch.ID,
			ProductID: p.ProductID,
			SKU:       p.SKU,
			Status:    model.ItemStatusPending,
		}
	}
	if err := s.store.CreateBatchItems(ctx, items); err != nil {
		return nil, err
	}

	s.scheduleInitialInventorySync(market, products)

	log.Printf("[FeedService] Submitted feed %s (type=%s, market=%s, items=%d, batch=%s)",
		ack.FeedID, feedType, market, len(products), batch.ID)
	return batch, nil
}

// submitChunked splits products across chunk feeds under a master batch.
// A chunk whose submission fails is recorded as an ERROR chunk with no
// feed so the master's counts stay consistent and the failure is visible.
func (s *FeedService) submitChunked(ctx context.Context, market, feedType string, products []model.BatchProduct) (*model.Batch, error) {
	now := time.Now().UTC()
	master := &model.Batch{
		ID:           uid.New(),
		BatchType:    model.BatchTypeMaster,
		Market:       market,
		ProductCount: len(products),
		Status:       model.BatchStatusSubmitted,
		CreatedAt:    now,
	}
	if err := s.store.CreateBatch(ctx, master); err != nil {
		return nil, err
	}

	var submitted, failed int
	for start := 0; start < len(products); start += s.cfg.ChunkSize {
		end := start + s.cfg.ChunkSize
		if end > len(products) {
			end = len(products)
		}
		chunk := products[start:end]

		if _, err := s.submitOne(ctx, market, feedType, chunk, master.ID, model.BatchTypeChunk); err != nil {
			failed += len(chunk)
			log.Printf("[FeedService] Chunk %d-%d of master %s failed: %v", start, end, master.ID, err)
			s.recordFailedChunk(ctx, master.ID, market, chunk, err)
			continue
		}
		submitted += len(chunk)
	}

	if submitted == 0 {
		return nil, fmt.Errorf("all %d chunks of master batch %s failed to submit", failed/s.cfg.ChunkSize+1, master.ID)
	}

	log.Printf("[FeedService] Master batch %s: %d items submitted, %d failed at submission", master.ID, submitted, failed)
	return master, nil
}

// recordFailedChunk persists a feed-less ERROR chunk so the master batch
// rollup accounts for items that never reached the marketplace.
func (s *FeedService) recordFailedChunk(ctx context.Context, masterID, market string, chunk []model.BatchProduct, cause error) {
	now := time.Now().UTC()
	batch := &model.Batch{
		ID:            uid.New(),
		ParentBatchID: masterID,
		BatchType:     model.BatchTypeChunk,
		Market:        market,
		ProductCount:  len(chunk),
		FailedCount:   len(chunk),
		Status:        model.BatchStatusError,
		CreatedAt:     now,
		CompletedAt:   &now,
	}
	if err := s.store.CreateBatch(ctx, batch); err != nil {
		log.Printf("[FeedService] Failed to record failed chunk: %v", err)
		return
	}

	items := make([]model.BatchItem, len(chunk))
	for i, p := range chunk {
		items[i] = model.BatchItem{
			BatchID:      batch.ID,
			ProductID:    p.ProductID,
			SKU:          p.SKU,
			Status:       model.ItemStatusError,
			ErrorMessage: cause.Error(),
		}
	}
	if err := s.store.CreateBatchItems(ctx, items); err != nil {
		log.Printf("[FeedService] Failed to record failed chunk items: %v", err)
	}
}

// scheduleInitialInventorySync fires the first inventory push for the
// submitted SKUs after the marketplace has had time to ingest them.
func (s *FeedService) scheduleInitialInventorySync(market string, products []model.BatchProduct) {
	if s.scheduler == nil || s.inventory == nil {
		return
	}

	snapshot := make([]model.BatchProduct, len(products))
	copy(snapshot, products)

	s.scheduler.ScheduleOnce("delayed-inventory-sync", s.cfg.InventoryDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		for _, p := range snapshot {
			if err := s.inventory.SyncProduct(ctx, p.ProductID, p.SKU, market); err != nil {
				log.Printf("[FeedService] Delayed inventory sync failed for sku=%s: %v", p.SKU, err)
			}
		}
	})
}
