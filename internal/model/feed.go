package model

import "time"

// FeedStatus is the lifecycle state of a marketplace feed submission.
type FeedStatus string

const (
	FeedStatusSubmitted  FeedStatus = "SUBMITTED"
	FeedStatusProcessing FeedStatus = "PROCESSING"
	FeedStatusProcessed  FeedStatus = "PROCESSED"
	FeedStatusError      FeedStatus = "ERROR"
)

// IsTerminal reports whether the feed has finished processing.
func (s FeedStatus) IsTerminal() bool {
	return s == FeedStatusProcessed || s == FeedStatusError
}

// Feed represents one submission unit uploaded to the marketplace.
// Feeds are never deleted; they double as the submission audit trail.
type Feed struct {
	ID             int64      `json:"id"`
	FeedID         string     `json:"feed_id"`
	ProductID      int64      `json:"product_id"`
	SKU            string     `json:"sku"`
	UPC            string     `json:"upc,omitempty"`
	Market         string     `json:"market"`
	FeedType       string     `json:"feed_type"`
	Status         FeedStatus `json:"status"`
	WPID           string     `json:"wpid,omitempty"`
	SubmittedAt    time.Time  `json:"submitted_at"`
	ProcessedAt    *time.Time `json:"processed_at,omitempty"`
	RawAPIResponse []byte     `json:"raw_api_response,omitempty"`
}
