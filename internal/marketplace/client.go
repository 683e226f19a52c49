package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// feedStatusPageSize is the marketplace's hard cap on item-level detail
// per feed-status page.
const feedStatusPageSize = 50

// API is the typed surface of the marketplace consumed by the sync
// services. Implemented by Client; mocked in tests.
type API interface {
	// SubmitFeed uploads a feed document and returns the acknowledgment.
	SubmitFeed(ctx context.Context, market, feedType string, document []byte) (*FeedAck, error)

	// FeedStatus fetches one page of a feed's processing status.
	FeedStatus(ctx context.Context, market, feedID string, offset int) (*FeedStatusResponse, error)

	// UpdateInventory pushes the quantity for a single SKU.
	UpdateInventory(ctx context.Context, market, sku string, quantity int) ([]byte, error)
}

// Client implements API on top of the Dispatcher.
type Client struct {
	dispatcher *Dispatcher
	creds      *CredentialProvider
}

// NewClient creates a marketplace API client.
func NewClient(dispatcher *Dispatcher, creds *CredentialProvider) *Client {
	return &Client{dispatcher: dispatcher, creds: creds}
}

func (c *Client) baseURL(market string) (string, error) {
	cfg, err := c.creds.MarketConfig(market)
	if err != nil {
		return "", err
	}
	return cfg.BaseURL, nil
}

// SubmitFeed uploads a feed document via POST /v3/feeds?feedType={type}.
func (c *Client) SubmitFeed(ctx context.Context, market, feedType string, document []byte) (*FeedAck, error) {
	base, err := c.baseURL(market)
	if err != nil {
		return nil, err
	}

	resp, err := c.dispatcher.Do(ctx, &Request{
		Method:   http.MethodPost,
		URL:      fmt.Sprintf("%s/v3/feeds?feedType=%s", base, url.QueryEscape(feedType)),
		Market:   market,
		File:     document,
		FileName: feedType + ".json",
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, parseAPIError(resp)
	}

	var ack FeedAck
	if err := json.Unmarshal(resp.Body, &ack); err != nil {
		return nil, fmt.Errorf("unparseable feed acknowledgment: %w", err)
	}
	if ack.FeedID == "" {
		return nil, &APIError{
			StatusCode:  resp.StatusCode,
			Description: "feed acknowledgment missing feedId",
			Raw:         resp.Body,
		}
	}

	return &ack, nil
}

// FeedStatus fetches one page of item-level results for a feed.
func (c *Client) FeedStatus(ctx context.Context, market, feedID string, offset int) (*FeedStatusResponse, error) {
	base, err := c.baseURL(market)
	if err != nil {
		return nil, err
	}

	resp, err := c.dispatcher.Do(ctx, &Request{
		Method: http.MethodGet,
		URL: fmt.Sprintf("%s/v3/feeds/%s?includeDetails=true&limit=%d&offset=%d",
			base, url.PathEscape(feedID), feedStatusPageSize, offset),
		Market: market,
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, parseAPIError(resp)
	}

	var status FeedStatusResponse
	if err := json.Unmarshal(resp.Body, &status); err != nil {
		return nil, fmt.Errorf("unparseable feed status: %w", err)
	}
	if status.FeedID == "" {
		status.FeedID = feedID
	}

	return &status, nil
}

// UpdateInventory pushes the quantity for one SKU via PUT /v3/inventory.
// Returns the raw response body for the sync-status audit column.
func (c *Client) UpdateInventory(ctx context.Context, market, sku string, quantity int) ([]byte, error) {
	base, err := c.baseURL(market)
	if err != nil {
		return nil, err
	}

	body := InventoryUpdate{
		SKU:      sku,
		Quantity: InventoryQuantity{Unit: "EACH", Amount: quantity},
	}

	resp, err := c.dispatcher.Do(ctx, &Request{
		Method:   http.MethodPut,
		URL:      fmt.Sprintf("%s/v3/inventory?sku=%s", base, url.QueryEscape(sku)),
		Market:   market,
		JSONBody: body,
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, parseAPIError(resp)
	}

	return resp.Body, nil
}

// parseAPIError extracts the application-level error envelope from a
// non-2xx response. The marketplace uses two envelope shapes depending
// on the endpoint generation.
func parseAPIError(resp *Response) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Raw:        resp.Body,
	}

	var envelope apiErrorResponse
	if err := json.Unmarshal(resp.Body, &envelope); err == nil {
		switch {
		case len(envelope.Errors.Error) > 0:
			apiErr.Code = envelope.Errors.Error[0].Code
			apiErr.Description = envelope.Errors.Error[0].Description
		case len(envelope.Error) > 0:
			apiErr.Code = envelope.Error[0].Code
			apiErr.Description = envelope.Error[0].Description
		}
	}

	if apiErr.Description == "" {
		apiErr.Description = truncate(resp.Body, 200)
	}
	if apiErr.SKUNotReady() {
		apiErr.Description = "SKU not yet recognized by the marketplace (item feed may still be processing): " + apiErr.Description
	}

	return apiErr
}

var _ API = (*Client)(nil)
