package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"marketsync-api/internal/marketplace"
	"marketsync-api/internal/model"
	"marketsync-api/internal/queue"
	"marketsync-api/internal/repository"
)

// InventoryServiceConfig holds retry and bulk-sync settings.
type InventoryServiceConfig struct {
	// MaxRetries caps automatic retries per (product, sku). Manual retries
	// are not counted against it.
	MaxRetries int

	// Cooldown is the minimum age of a failure before the retry sweep
	// picks it up again.
	Cooldown time.Duration

	// BulkSize caps updates per bulk inventory feed.
	BulkSize int
}

// InventoryService pushes catalog quantities to the marketplace and
// keeps the per-SKU sync status current. Quantities are always read
// fresh from the catalog at push time, never from the queue.
type InventoryService struct {
	api     marketplace.API
	store   repository.InventorySyncRepository
	catalog repository.CatalogRepository
	queue   queue.SyncQueue
	cfg     InventoryServiceConfig

	now func() time.Time
}

// NewInventoryService creates a new inventory sync service.
func NewInventoryService(
	api marketplace.API,
	store repository.InventorySyncRepository,
	catalog repository.CatalogRepository,
	syncQueue queue.SyncQueue,
	cfg InventoryServiceConfig,
) *InventoryService {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = time.Hour
	}
	if cfg.BulkSize <= 0 || cfg.BulkSize > 50 {
		cfg.BulkSize = 50
	}
	return &InventoryService{
		api:     api,
		store:   store,
		catalog: catalog,
		queue:   syncQueue,
		cfg:     cfg,
		now:     time.Now,
	}
}

// SyncProduct pushes the catalog quantity for one product to the
// marketplace and records the outcome.
func (s *InventoryService) SyncProduct(ctx context.Context, productID int64, sku, market string) error {
	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		// Record the failure so a row the retry sweep flipped to RETRYING
		// lands back in FAILED instead of being stranded out of reach.
		err = fmt.Errorf("failed to load product %d from catalog: %w", productID, err)
		s.markFailure(ctx, productID, sku, market, 0, err)
		return err
	}

	raw, err := s.api.UpdateInventory(ctx, market, sku, product.Quantity)
	if err != nil {
		s.markFailure(ctx, productID, sku, market, product.Quantity, err)
		return err
	}

	s.markSuccess(ctx, productID, sku, market, product.Quantity, raw)
	return nil
}

// SyncSKU pushes inventory for a SKU, resolving the product through the
// catalog.
func (s *InventoryService) SyncSKU(ctx context.Context, sku, market string) error {
	product, err := s.catalog.GetProductBySKU(ctx, sku)
	if err != nil {
		return fmt.Errorf("failed to resolve sku %s in catalog: %w", sku, err)
	}
	return s.SyncProduct(ctx, product.ID, sku, market)
}

// DrainQueue empties the pending-sync queue accumulated by the batch
// aggregator, pushing inventory in bulk feeds of at most BulkSize.
func (s *InventoryService) DrainQueue(ctx context.Context) {
	if s.queue == nil {
		return
	}

	var drained int
	for {
		items, err := s.queue.Dequeue(ctx, s.cfg.BulkSize)
		if err != nil {
			log.Printf("[InventoryService] Failed to dequeue pending syncs: %v", err)
			return
		}
		if len(items) == 0 {
			break
		}

		s.SyncBulk(ctx, items)
		drained += len(items)
	}

	if drained > 0 {
		log.Printf("[InventoryService] Drained %d pending syncs", drained)
	}
}

// SyncBulk pushes inventory for a set of pending syncs grouped by
// market, one bulk feed per market per BulkSize window. If a bulk call
// fails outright, every item in it is marked FAILED with the same error
// so the retry sweep can re-drive them individually.
func (s *InventoryService) SyncBulk(ctx context.Context, items []model.PendingSync) {
	byMarket := make(map[string][]model.PendingSync)
	for _, item := range items {
		byMarket[item.Market] = append(byMarket[item.Market], item)
	}

	for market, group := range byMarket {
		for start := 0; start < len(group); start += s.cfg.BulkSize {
			end := start + s.cfg.BulkSize
			if end > len(group) {
				end = len(group)
			}
			s.syncBulkChunk(ctx, market, group[start:end])
		}
	}
}

// syncBulkChunk submits one bulk inventory feed for up to BulkSize SKUs.
func (s *InventoryService) syncBulkChunk(ctx context.Context, market string, chunk []model.PendingSync) {
	updates := make([]marketplace.InventoryUpdate, 0, len(chunk))
	quantities := make(map[string]int, len(chunk))

	for _, item := range chunk {
		product, err := s.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			log.Printf("[InventoryService] Skipping sku=%s: catalog lookup failed: %v", item.SKU, err)
			s.markFailure(ctx, item.ProductID, item.SKU, market, 0, err)
			continue
		}
		quantities[item.SKU] = product.Quantity
		updates = append(updates, marketplace.InventoryUpdate{
			SKU:      item.SKU,
			Quantity: marketplace.InventoryQuantity{Unit: "EACH", Amount: product.Quantity},
		})
	}
	if len(updates) == 0 {
		return
	}

	document, err := json.Marshal(marketplace.NewInventoryFeed(updates))
	if err != nil {
		log.Printf("[InventoryService] Failed to encode bulk inventory feed: %v", err)
		return
	}

	ack, err := s.api.SubmitFeed(ctx, market, "inventory", document)
	if err != nil {
		log.Printf("[InventoryService] Bulk inventory feed failed for %d SKUs (market=%s): %v",
			len(updates), market, err)
		for _, item := range chunk {
			if _, ok := quantities[item.SKU]; !ok {
				continue
			}
			s.markFailure(ctx, item.ProductID, item.SKU, market, quantities[item.SKU], err)
		}
		return
	}

	now := s.now().UTC()
	for _, item := range chunk {
		qty, ok := quantities[item.SKU]
		if !ok {
			continue
		}
		s.upsert(ctx, &model.InventorySyncStatus{
			ProductID:    item.ProductID,
			SKU:          item.SKU,
			Market:       market,
			Status:       model.SyncStatusSuccess,
			Quantity:     qty,
			RetryCount:   0,
			LastSyncTime: now,
		})
	}
	log.Printf("[InventoryService] Bulk inventory feed %s accepted for %d SKUs (market=%s)",
		ack.FeedID, len(updates), market)
}

// RetrySweep re-drives FAILED syncs that are under the retry cap and
// older than the cooldown.
func (s *InventoryService) RetrySweep(ctx context.Context) {
	cutoff := s.now().UTC().Add(-s.cfg.Cooldown)

	failed, err := s.store.ListRetryable(ctx, s.cfg.MaxRetries, cutoff)
	if err != nil {
		log.Printf("[InventoryService] Failed to list retryable syncs: %v", err)
		return
	}
	if len(failed) == 0 {
		return
	}

	var recovered int
	for _, row := range failed {
		if err := s.store.MarkRetrying(ctx, row.ProductID, row.SKU); err != nil {
			log.Printf("[InventoryService] Failed to mark sku=%s retrying: %v", row.SKU, err)
			continue
		}
		if err := s.SyncProduct(ctx, row.ProductID, row.SKU, row.Market); err != nil {
			log.Printf("[InventoryService] Retry failed for sku=%s (attempt %d): %v",
				row.SKU, row.RetryCount+1, err)
			continue
		}
		recovered++
	}

	log.Printf("[InventoryService] Retry sweep: %d/%d recovered", recovered, len(failed))
}

// ForceRetry re-drives one SKU immediately, ignoring the cooldown and
// the retry cap. Used by the ops API.
func (s *InventoryService) ForceRetry(ctx context.Context, sku string) error {
	row, err := s.store.GetSyncStatusBySKU(ctx, sku)
	if err != nil {
		return err
	}
	if err := s.store.MarkRetrying(ctx, row.ProductID, row.SKU); err != nil {
		return err
	}
	return s.SyncProduct(ctx, row.ProductID, row.SKU, row.Market)
}

// markSuccess records a successful push and resets the retry counter.
func (s *InventoryService) markSuccess(ctx context.Context, productID int64, sku, market string, quantity int, raw []byte) {
	s.upsert(ctx, &model.InventorySyncStatus{
		ProductID:    productID,
		SKU:          sku,
		Market:       market,
		Status:       model.SyncStatusSuccess,
		Quantity:     quantity,
		RetryCount:   0,
		LastSyncTime: s.now().UTC(),
		ResponseData: raw,
	})
}

// markFailure records a failed push, carrying the retry counter forward
// from the existing row plus one.
func (s *InventoryService) markFailure(ctx context.Context, productID int64, sku, market string, quantity int, cause error) {
	retries := 1
	if existing, err := s.store.GetSyncStatus(ctx, productID, sku); err == nil {
		retries = existing.RetryCount + 1
	}

	s.upsert(ctx, &model.InventorySyncStatus{
		ProductID:    productID,
		SKU:          sku,
		Market:       market,
		Status:       model.SyncStatusFailed,
		Quantity:     quantity,
		RetryCount:   retries,
		LastSyncTime: s.now().UTC(),
		ResponseData: []byte(cause.Error()),
	})
}

func (s *InventoryService) upsert(ctx context.Context, row *model.InventorySyncStatus) {
	if err := s.store.UpsertSyncStatus(ctx, row); err != nil {
		log.Printf("[InventoryService] Failed to upsert sync status for sku=%s: %v", row.SKU, err)
	}
}
