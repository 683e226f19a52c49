package service

import (
	"context"
	"encoding/json"
	"log"

	"marketsync-api/internal/marketplace"
	"marketsync-api/internal/model"
	"marketsync-api/internal/repository"
)

// StatusPoller drives the feed state machine
// SUBMITTED -> PROCESSING -> {PROCESSED, ERROR} by polling the
// marketplace's feed-status endpoint for every open feed.
type StatusPoller struct {
	api   marketplace.API
	store repository.FeedRepository
}

// NewStatusPoller creates a new feed status poller.
func NewStatusPoller(api marketplace.API, store repository.FeedRepository) *StatusPoller {
	return &StatusPoller{api: api, store: store}
}

// Sweep polls every open feed once and returns the raw results keyed by
// feed id for the batch aggregator. A feed whose poll fails entirely is
// skipped this sweep; other feeds are unaffected.
func (p *StatusPoller) Sweep(ctx context.Context) map[string]*marketplace.FeedStatusResponse {
	feeds, err := p.store.ListOpenFeeds(ctx)
	if err != nil {
		log.Printf("[StatusPoller] Failed to list open feeds: %v", err)
		return nil
	}
	if len(feeds) == 0 {
		return nil
	}

	results := make(map[string]*marketplace.FeedStatusResponse, len(feeds))
	for _, feed := range feeds {
		result, err := p.PollFeed(ctx, feed.Market, feed.FeedID)
		if err != nil {
			log.Printf("[StatusPoller] Poll failed for feed %s: %v", feed.FeedID, err)
			continue
		}
		results[feed.FeedID] = result
	}

	log.Printf("[StatusPoller] Sweep polled %d/%d open feeds", len(results), len(feeds))
	return results
}

// PollFeed fetches a feed's full status, paginating through item-level
// detail 50 items at a time. A failed page stops pagination for this
// sweep and the partial results stand; the next sweep re-polls from the
// start, so a transient page failure self-heals.
func (p *StatusPoller) PollFeed(ctx context.Context, market, feedID string) (*marketplace.FeedStatusResponse, error) {
	result, err := p.api.FeedStatus(ctx, market, feedID, 0)
	if err != nil {
		return nil, err
	}

	total := result.ItemsReceived
	for len(result.ItemDetails.ItemIngestionStatus) < total {
		offset := len(result.ItemDetails.ItemIngestionStatus)

		page, err := p.api.FeedStatus(ctx, market, feedID, offset)
		if err != nil {
			log.Printf("[StatusPoller] Page at offset %d failed for feed %s, using %d/%d items: %v",
				offset, feedID, offset, total, err)
			break
		}
		if len(page.ItemDetails.ItemIngestionStatus) == 0 {
			// Fewer items than reported; don't spin on an empty page.
			break
		}

		result.ItemDetails.ItemIngestionStatus = append(
			result.ItemDetails.ItemIngestionStatus, page.ItemDetails.ItemIngestionStatus...)
	}

	p.recordResult(ctx, feedID, result)
	return result, nil
}

// recordResult maps the marketplace status onto the Feed record and
// attaches the first assigned wpid found.
func (p *StatusPoller) recordResult(ctx context.Context, feedID string, result *marketplace.FeedStatusResponse) {
	var wpid string
	for _, item := range result.ItemDetails.ItemIngestionStatus {
		if item.WPID != "" {
			wpid = item.WPID
			break
		}
	}

	raw, err := json.Marshal(result)
	if err != nil {
		raw = nil
	}

	status := mapFeedStatus(result.FeedStatus)
	if err := p.store.UpdateFeedStatus(ctx, feedID, status, wpid, raw); err != nil {
		log.Printf("[StatusPoller] Failed to update feed %s: %v", feedID, err)
	}
}

// mapFeedStatus translates the marketplace's feed status vocabulary into
// the local state machine. Anything unrecognized stays PROCESSING and is
// re-checked next sweep.
func mapFeedStatus(apiStatus string) model.FeedStatus {
	switch apiStatus {
	case marketplace.FeedStatusProcessed:
		return model.FeedStatusProcessed
	case marketplace.FeedStatusError:
		return model.FeedStatusError
	case marketplace.FeedStatusReceived, marketplace.FeedStatusInProgress:
		return model.FeedStatusProcessing
	default:
		return model.FeedStatusProcessing
	}
}
