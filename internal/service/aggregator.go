package service

import (
	"context"
	"log"
	"time"

	"marketsync-api/internal/marketplace"
	"marketsync-api/internal/model"
	"marketsync-api/internal/queue"
	"marketsync-api/internal/repository"
)

// BatchAggregator rolls item-level feed results up into batch status and
// chunk statuses up into master status. It is the only writer of Batch
// and BatchItem records.
type BatchAggregator struct {
	store repository.FeedRepository
	queue queue.SyncQueue
}

// NewBatchAggregator creates a new batch aggregator.
func NewBatchAggregator(store repository.FeedRepository, syncQueue queue.SyncQueue) *BatchAggregator {
	return &BatchAggregator{store: store, queue: syncQueue}
}

// Reconcile applies one sweep's poll results to all open batches, then
// derives master statuses from their chunks. Items that newly reached
// SUCCESS with an assigned wpid are enqueued for inventory sync in one
// batched call at the end of the pass, not per item.
func (a *BatchAggregator) Reconcile(ctx context.Context, results map[string]*marketplace.FeedStatusResponse) {
	batches, err := a.store.ListOpenBatches(ctx)
	if err != nil {
		log.Printf("[BatchAggregator] Failed to list open batches: %v", err)
		return
	}
	if len(batches) == 0 {
		return
	}

	var pending []model.PendingSync
	var masters []*model.Batch

	for _, batch := range batches {
		if batch.BatchType == model.BatchTypeMaster {
			masters = append(masters, batch)
			continue
		}

		result, ok := results[batch.FeedID]
		if !ok {
			continue
		}
		pending = append(pending, a.reconcileBatch(ctx, batch, result)...)
	}

	// Masters roll up after their chunks settled this pass.
	for _, master := range masters {
		a.reconcileMaster(ctx, master)
	}

	if len(pending) > 0 {
		if err := a.queue.Enqueue(ctx, pending...); err != nil {
			log.Printf("[BatchAggregator] Failed to enqueue %d pending syncs: %v", len(pending), err)
		} else {
			log.Printf("[BatchAggregator] Enqueued %d items for inventory sync", len(pending))
		}
	}
}

// reconcileBatch classifies a single or chunk batch from its feed result
// and reconciles its items. Returns the items that newly became ready
// for inventory sync.
func (a *BatchAggregator) reconcileBatch(ctx context.Context, batch *model.Batch, result *marketplace.FeedStatusResponse) []model.PendingSync {
	prior := a.priorItemStatuses(ctx, batch.ID)
	ready := a.reconcileItems(ctx, batch, result, prior)

	status := classifyBatch(result)
	progress := result.ItemsSucceeded + result.ItemsFailed

	var completedAt *time.Time
	if status.IsTerminal() {
		now := time.Now().UTC()
		completedAt = &now
	}

	err := a.store.UpdateBatchResult(ctx, batch.ID,
		result.ItemsSucceeded, result.ItemsFailed, progress, status, completedAt)
	if err != nil {
		log.Printf("[BatchAggregator] Failed to update batch %s: %v", batch.ID, err)
		return ready
	}

	if status.IsTerminal() {
		log.Printf("[BatchAggregator] Batch %s -> %s (succeeded=%d, failed=%d)",
			batch.ID, status, result.ItemsSucceeded, result.ItemsFailed)
	}
	return ready
}

// classifyBatch maps a feed result onto batch status. A feed that errored
// but ingested at least one item counts as COMPLETED: one bad SKU in a
// chunk must not block the rest, and the failures stay visible at the
// item level.
func classifyBatch(result *marketplace.FeedStatusResponse) model.BatchStatus {
	switch result.FeedStatus {
	case marketplace.FeedStatusProcessed:
		return model.BatchStatusCompleted
	case marketplace.FeedStatusError:
		if result.ItemsSucceeded > 0 {
			return model.BatchStatusCompleted
		}
		return model.BatchStatusError
	default:
		return model.BatchStatusProcessing
	}
}

// priorItemStatuses loads the current item records so the aggregator
// only emits a ready-for-sync event on the transition into SUCCESS, not
// on every subsequent sweep, and so enqueued syncs carry the product id.
func (a *BatchAggregator) priorItemStatuses(ctx context.Context, batchID string) map[string]model.BatchItem {
	items, err := a.store.ListBatchItems(ctx, batchID)
	if err != nil {
		log.Printf("[BatchAggregator] Failed to list items for batch %s: %v", batchID, err)
		return nil
	}

	prior := make(map[string]model.BatchItem, len(items))
	for _, item := range items {
		prior[item.SKU] = *item
	}
	return prior
}

// reconcileItems writes each marketplace item outcome onto its BatchItem.
func (a *BatchAggregator) reconcileItems(ctx context.Context, batch *model.Batch, result *marketplace.FeedStatusResponse, prior map[string]model.BatchItem) []model.PendingSync {
	var ready []model.PendingSync

	for _, item := range result.ItemDetails.ItemIngestionStatus {
		priorItem, known := prior[item.SKU]
		if !known {
			log.Printf("[BatchAggregator] Ignoring sku=%s reported for batch %s: not part of the batch", item.SKU, batch.ID)
			continue
		}

		status, errMsg := classifyItem(&item)

		if err := a.store.UpdateBatchItem(ctx, batch.ID, item.SKU, status, errMsg); err != nil {
			log.Printf("[BatchAggregator] Failed to update item %s/%s: %v", batch.ID, item.SKU, err)
			continue
		}

		if status == model.ItemStatusSuccess && item.WPID != "" && priorItem.Status != model.ItemStatusSuccess {
			ready = append(ready, model.PendingSync{
				ProductID: priorItem.ProductID,
				SKU:       item.SKU,
				WPID:      item.WPID,
				Market:    batch.Market,
			})
		}
	}
	return ready
}

// classifyItem maps the marketplace's per-SKU ingestion status onto the
// local item state. Unrecognized statuses are treated as still in
// progress rather than silently succeeding or failing.
func classifyItem(item *marketplace.ItemIngestion) (model.ItemStatus, string) {
	switch item.IngestionStatus {
	case marketplace.IngestSuccess:
		return model.ItemStatusSuccess, ""
	case marketplace.IngestDataError, marketplace.IngestSystemError, marketplace.IngestTimeoutError:
		return model.ItemStatusError, item.FirstError()
	case marketplace.IngestInProgress:
		return model.ItemStatusInProgress, ""
	default:
		return model.ItemStatusInProgress, ""
	}
}

// reconcileMaster derives a master batch's status from its chunks:
// terminal iff every chunk is terminal, ERROR iff every chunk errored,
// counts summed across chunks.
func (a *BatchAggregator) reconcileMaster(ctx context.Context, master *model.Batch) {
	chunks, err := a.store.ListChildBatches(ctx, master.ID)
	if err != nil {
		log.Printf("[BatchAggregator] Failed to list chunks of master %s: %v", master.ID, err)
		return
	}
	if len(chunks) == 0 {
		return
	}

	var success, failed, progress int
	allTerminal := true
	allError := true

	for _, chunk := range chunks {
		success += chunk.SuccessCount
		failed += chunk.FailedCount
		progress += chunk.ProgressCurrent

		if !chunk.Status.IsTerminal() {
			allTerminal = false
		}
		if chunk.Status != model.BatchStatusError {
			allError = false
		}
	}

	status := model.BatchStatusProcessing
	var completedAt *time.Time
	if allTerminal {
		if allError {
			status = model.BatchStatusError
		} else {
			status = model.BatchStatusCompleted
		}
		now := time.Now().UTC()
		completedAt = &now
	}

	err = a.store.UpdateBatchResult(ctx, master.ID, success, failed, progress, status, completedAt)
	if err != nil {
		log.Printf("[BatchAggregator] Failed to update master %s: %v", master.ID, err)
		return
	}

	if status.IsTerminal() {
		log.Printf("[BatchAggregator] Master %s -> %s across %d chunks (succeeded=%d, failed=%d)",
			master.ID, status, len(chunks), success, failed)
	}
}
