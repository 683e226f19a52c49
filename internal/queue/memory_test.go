package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"marketsync-api/internal/model"
)

func TestMemoryQueueFIFO(t *testing.T) {
	q := NewMemorySyncQueue()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := q.Enqueue(ctx, model.PendingSync{ProductID: int64(i), SKU: fmt.Sprintf("SKU-%d", i), Market: "US"})
		if err != nil {
			t.Fatal(err)
		}
	}

	if n, _ := q.Len(ctx); n != 5 {
		t.Errorf("len = %d, want 5", n)
	}

	first, err := q.Dequeue(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 3 {
		t.Fatalf("dequeued %d, want 3", len(first))
	}
	for i, item := range first {
		if item.ProductID != int64(i) {
			t.Errorf("item %d product = %d, want %d (FIFO)", i, item.ProductID, i)
		}
	}

	rest, _ := q.Dequeue(ctx, 10)
	if len(rest) != 2 {
		t.Errorf("dequeued %d, want the remaining 2", len(rest))
	}

	empty, _ := q.Dequeue(ctx, 10)
	if empty != nil {
		t.Errorf("empty queue should dequeue nil, got %v", empty)
	}
}

func TestMemoryQueueBatchEnqueue(t *testing.T) {
	q := NewMemorySyncQueue()
	ctx := context.Background()

	err := q.Enqueue(ctx,
		model.PendingSync{SKU: "A", Market: "US"},
		model.PendingSync{SKU: "B", Market: "US"},
	)
	if err != nil {
		t.Fatal(err)
	}

	if n, _ := q.Len(ctx); n != 2 {
		t.Errorf("len = %d, want 2", n)
	}
}

func TestMemoryQueueClosed(t *testing.T) {
	q := NewMemorySyncQueue()
	ctx := context.Background()

	_ = q.Enqueue(ctx, model.PendingSync{SKU: "A"})
	if err := q.Close(); err != nil {
		t.Fatal(err)
	}

	if err := q.Enqueue(ctx, model.PendingSync{SKU: "B"}); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("enqueue after close = %v, want ErrQueueClosed", err)
	}
	if _, err := q.Dequeue(ctx, 1); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("dequeue after close = %v, want ErrQueueClosed", err)
	}
}
