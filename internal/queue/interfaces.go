package queue

import (
	"context"
	"errors"

	"marketsync-api/internal/model"
)

// ErrQueueClosed is returned when operating on a closed queue.
var ErrQueueClosed = errors.New("sync queue closed")

// SyncQueue buffers "ready for inventory sync" events between the batch
// aggregator (producer, batched per reconciliation pass) and the
// inventory service (consumer, bulk drain).
type SyncQueue interface {
	// Enqueue appends pending syncs to the queue.
	Enqueue(ctx context.Context, items ...model.PendingSync) error

	// Dequeue removes and returns up to max items, oldest first.
	Dequeue(ctx context.Context, max int) ([]model.PendingSync, error)

	// Len returns the number of queued items.
	Len(ctx context.Context) (int64, error)

	// Close releases queue resources.
	Close() error
}
