package model

import "time"

// BatchType distinguishes standalone submissions from split ones.
type BatchType string

const (
	BatchTypeSingle BatchType = "single"
	BatchTypeChunk  BatchType = "chunk"
	BatchTypeMaster BatchType = "master"
)

// BatchStatus is the rolled-up state of a group submission.
type BatchStatus string

const (
	BatchStatusSubmitted  BatchStatus = "SUBMITTED"
	BatchStatusProcessing BatchStatus = "PROCESSING"
	BatchStatusCompleted  BatchStatus = "COMPLETED"
	BatchStatusError      BatchStatus = "ERROR"
)

// IsTerminal reports whether the batch has reached a final state.
func (s BatchStatus) IsTerminal() bool {
	return s == BatchStatusCompleted || s == BatchStatusError
}

// Batch is a group submission. A master batch has no feed of its own;
// its counts are the sums of its chunks' counts.
type Batch struct {
	ID              string      `json:"id"`
	ParentBatchID   string      `json:"parent_batch_id,omitempty"`
	BatchType       BatchType   `json:"batch_type"`
	FeedID          string      `json:"feed_id,omitempty"`
	Market          string      `json:"market"`
	ProductCount    int         `json:"product_count"`
	SuccessCount    int         `json:"success_count"`
	FailedCount     int         `json:"failed_count"`
	ProgressCurrent int         `json:"progress_current"`
	Status          BatchStatus `json:"status"`
	CreatedAt       time.Time   `json:"created_at"`
	CompletedAt     *time.Time  `json:"completed_at,omitempty"`
}

// ItemStatus is the per-product outcome inside a batch.
type ItemStatus string

const (
	ItemStatusPending    ItemStatus = "PENDING"
	ItemStatusSuccess    ItemStatus = "SUCCESS"
	ItemStatusError      ItemStatus = "ERROR"
	ItemStatusInProgress ItemStatus = "INPROGRESS"
)

// BatchItem is one product within a batch, keyed by (batch_id, sku).
type BatchItem struct {
	BatchID      string     `json:"batch_id"`
	ProductID    int64      `json:"product_id"`
	SKU          string     `json:"sku"`
	Status       ItemStatus `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"`
}
