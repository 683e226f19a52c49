package queue

import (
	"context"
	"sync"

	"marketsync-api/internal/model"
)

// MemorySyncQueue is an in-process implementation of SyncQueue.
// Use this for development/testing or single-instance deployments.
type MemorySyncQueue struct {
	mu     sync.Mutex
	items  []model.PendingSync
	closed bool
}

// NewMemorySyncQueue creates a new in-memory sync queue.
func NewMemorySyncQueue() *MemorySyncQueue {
	return &MemorySyncQueue{}
}

// Enqueue appends pending syncs to the queue.
func (q *MemorySyncQueue) Enqueue(ctx context.Context, items ...model.PendingSync) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	q.items = append(q.items, items...)
	return nil
}

// Dequeue removes and returns up to max items, oldest first.
func (q *MemorySyncQueue) Dequeue(ctx context.Context, max int) ([]model.PendingSync, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, ErrQueueClosed
	}
	if max <= 0 || len(q.items) == 0 {
		return nil, nil
	}
	if max > len(q.items) {
		max = len(q.items)
	}

	out := make([]model.PendingSync, max)
	copy(out, q.items[:max])
	q.items = q.items[max:]
	return out, nil
}

// Len returns the number of queued items.
func (q *MemorySyncQueue) Len(ctx context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return int64(len(q.items)), nil
}

// Close marks the queue closed.
func (q *MemorySyncQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.items = nil
	return nil
}

// Ensure MemorySyncQueue implements SyncQueue
var _ SyncQueue = (*MemorySyncQueue)(nil)
