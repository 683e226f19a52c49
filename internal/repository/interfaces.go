package repository

import (
	"context"
	"errors"
	"time"

	"marketsync-api/internal/model"
)

// ErrPoolExhausted is returned when no unused identifier remains in the
// pool. Identifiers are never fabricated.
var ErrPoolExhausted = errors.New("identifier pool exhausted")

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// FeedRepository defines feed and batch data access methods.
type FeedRepository interface {
	// CreateFeed records a new feed submission.
	CreateFeed(ctx context.Context, feed *model.Feed) error

	// GetFeed retrieves a feed by marketplace feed id.
	GetFeed(ctx context.Context, feedID string) (*model.Feed, error)

	// ListOpenFeeds returns feeds in SUBMITTED or PROCESSING state.
	ListOpenFeeds(ctx context.Context) ([]*model.Feed, error)

	// UpdateFeedStatus advances a feed's status. wpid and raw are only
	// written when non-empty; processed_at is set on terminal transitions.
	UpdateFeedStatus(ctx context.Context, feedID string, status model.FeedStatus, wpid string, raw []byte) error

	// CreateBatch records a new batch.
	CreateBatch(ctx context.Context, batch *model.Batch) error

	// GetBatch retrieves a batch by id.
	GetBatch(ctx context.Context, id string) (*model.Batch, error)

	// ListOpenBatches returns batches not yet in a terminal state.
	ListOpenBatches(ctx context.Context) ([]*model.Batch, error)

	// ListChildBatches returns the chunks of a master batch.
	ListChildBatches(ctx context.Context, parentID string) ([]*model.Batch, error)

	// UpdateBatchResult writes rolled-up counts and status for a batch.
	UpdateBatchResult(ctx context.Context, id string, successCount, failedCount, progressCurrent int, status model.BatchStatus, completedAt *time.Time) error

	// CreateBatchItems records the products of a batch, all PENDING.
	CreateBatchItems(ctx context.Context, items []model.BatchItem) error

	// ListBatchItems returns all items of a batch.
	ListBatchItems(ctx context.Context, batchID string) ([]*model.BatchItem, error)

	// UpdateBatchItem writes one item's reconciled status.
	UpdateBatchItem(ctx context.Context, batchID, sku string, status model.ItemStatus, errorMessage string) error

	// CountFeedsByStatus returns feed counts keyed by status, for stats.
	CountFeedsByStatus(ctx context.Context) (map[string]int64, error)
}

// InventorySyncRepository defines inventory sync status data access.
// Writes are last-writer-wins on the unique (product_id, sku) key.
type InventorySyncRepository interface {
	// UpsertSyncStatus inserts or replaces a sync status row.
	UpsertSyncStatus(ctx context.Context, s *model.InventorySyncStatus) error

	// GetSyncStatus retrieves a row by its compound key.
	GetSyncStatus(ctx context.Context, productID int64, sku string) (*model.InventorySyncStatus, error)

	// GetSyncStatusBySKU retrieves the row for a SKU.
	GetSyncStatusBySKU(ctx context.Context, sku string) (*model.InventorySyncStatus, error)

	// ListRetryable returns FAILED rows under the retry cap whose last
	// sync is older than the cutoff.
	ListRetryable(ctx context.Context, maxRetries int, cutoff time.Time) ([]*model.InventorySyncStatus, error)

	// MarkRetrying flips a row to RETRYING before it is re-driven.
	MarkRetrying(ctx context.Context, productID int64, sku string) error

	// CountSyncByStatus returns row counts keyed by status, for stats.
	CountSyncByStatus(ctx context.Context) (map[string]int64, error)
}

// IdentifierPoolRepository defines UPC pool data access.
type IdentifierPoolRepository interface {
	// AllocateIdentifier assigns the first unused code to the product.
	// Idempotent: a product with an existing binding gets the same code
	// back without consuming a second entry.
	AllocateIdentifier(ctx context.Context, productID int64) (string, error)

	// BindIdentifier forces a code to be marked used and bound to the
	// product (drift repair).
	BindIdentifier(ctx context.Context, code string, productID int64) error

	// ReleaseIdentifier explicitly returns a code to the pool.
	ReleaseIdentifier(ctx context.Context, code string) error

	// GetIdentifierEntry retrieves a pool entry by code.
	GetIdentifierEntry(ctx context.Context, code string) (*model.IdentifierPoolEntry, error)

	// LoadIdentifiers bulk-loads codes into the pool, skipping duplicates.
	LoadIdentifiers(ctx context.Context, codes []string) (int64, error)

	// CountUnusedIdentifiers returns how many codes remain allocatable.
	CountUnusedIdentifiers(ctx context.Context) (int64, error)
}

// Store is the engine's persistent store.
type Store interface {
	FeedRepository
	InventorySyncRepository
	IdentifierPoolRepository

	// Close closes the store connection.
	Close() error
}

// CatalogRepository defines read access to the merchant product catalog.
// The catalog is owned by the storefront; this engine only reads it.
type CatalogRepository interface {
	// GetProduct retrieves a product by id.
	GetProduct(ctx context.Context, id int64) (*model.Product, error)

	// GetProductBySKU retrieves a product by SKU.
	GetProductBySKU(ctx context.Context, sku string) (*model.Product, error)

	// ListProductUPCRefs returns product_id -> UPC for every product that
	// carries a UPC reference, for pool reconciliation.
	ListProductUPCRefs(ctx context.Context) (map[int64]string, error)
}
