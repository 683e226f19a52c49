package marketplace

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"marketsync-api/internal/config"
)

func testClient(transport *fakeTransport) *Client {
	creds := NewCredentialProvider(map[string]config.MarketConfig{
		"US": {
			Market:   "US",
			BaseURL:  "https://marketplace.test",
			AuthMode: config.AuthModeToken,
			ClientID: "client-id",
		},
	})
	creds.tokens["US"] = cachedToken{token: "tok", expiresAt: time.Now().Add(time.Hour)}

	d := NewDispatcher(creds, "svc", "US")
	d.client = &http.Client{Transport: transport}
	d.sleep = func(time.Duration) {}
	return NewClient(d, creds)
}

func TestSubmitFeedParsesAck(t *testing.T) {
	transport := &fakeTransport{outcomes: []func(*http.Request) (*http.Response, error){
		okResponse(200, `{"feedId":"FEED-123"}`),
	}}
	c := testClient(transport)

	ack, err := c.SubmitFeed(context.Background(), "US", "item", []byte(`{"Items":[]}`))
	if err != nil {
		t.Fatal(err)
	}
	if ack.FeedID != "FEED-123" {
		t.Errorf("feed id = %q, want FEED-123", ack.FeedID)
	}

	req := transport.requests[0]
	if req.Method != http.MethodPost {
		t.Errorf("method = %s, want POST", req.Method)
	}
	if !strings.Contains(req.URL.String(), "/v3/feeds?feedType=item") {
		t.Errorf("url = %s", req.URL)
	}
	if !strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/form-data") {
		t.Errorf("feed upload should be multipart, got %q", req.Header.Get("Content-Type"))
	}
}

func TestSubmitFeedRejectsAckWithoutFeedID(t *testing.T) {
	transport := &fakeTransport{outcomes: []func(*http.Request) (*http.Response, error){
		okResponse(200, `{}`),
	}}
	c := testClient(transport)

	if _, err := c.SubmitFeed(context.Background(), "US", "item", []byte(`{}`)); err == nil {
		t.Error("expected error for ack without feedId")
	}
}

func TestFeedStatusRequestsPage(t *testing.T) {
	transport := &fakeTransport{outcomes: []func(*http.Request) (*http.Response, error){
		okResponse(200, `{"feedId":"F1","feedStatus":"INPROGRESS","itemsReceived":120}`),
	}}
	c := testClient(transport)

	status, err := c.FeedStatus(context.Background(), "US", "F1", 50)
	if err != nil {
		t.Fatal(err)
	}
	if status.ItemsReceived != 120 {
		t.Errorf("items received = %d, want 120", status.ItemsReceived)
	}

	url := transport.requests[0].URL.String()
	for _, part := range []string{"includeDetails=true", "limit=50", "offset=50"} {
		if !strings.Contains(url, part) {
			t.Errorf("url %s missing %s", url, part)
		}
	}
}

func TestUpdateInventorySendsEachUnit(t *testing.T) {
	transport := &fakeTransport{outcomes: []func(*http.Request) (*http.Response, error){
		okResponse(200, `{"sku":"SKU-1","quantity":{"unit":"EACH","amount":7}}`),
	}}
	c := testClient(transport)

	raw, err := c.UpdateInventory(context.Background(), "US", "SKU-1", 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) == 0 {
		t.Error("expected raw response body")
	}

	req := transport.requests[0]
	if req.Method != http.MethodPut {
		t.Errorf("method = %s, want PUT", req.Method)
	}
	if !strings.Contains(req.URL.String(), "/v3/inventory?sku=SKU-1") {
		t.Errorf("url = %s", req.URL)
	}
}

func TestParseAPIErrorEnvelopes(t *testing.T) {
	nested := &Response{
		StatusCode: 400,
		Body:       []byte(`{"errors":{"error":[{"code":"INVALID_FEED","description":"bad document"}]}}`),
	}
	if err := parseAPIError(nested); err.Code != "INVALID_FEED" || err.Description != "bad document" {
		t.Errorf("nested envelope: code=%q desc=%q", err.Code, err.Description)
	}

	flat := &Response{
		StatusCode: 400,
		Body:       []byte(`{"error":[{"code":"CONTENT_NOT_FOUND","description":"missing"}]}`),
	}
	if err := parseAPIError(flat); err.Code != "CONTENT_NOT_FOUND" {
		t.Errorf("flat envelope: code=%q", err.Code)
	}
}

func TestParseAPIErrorAnnotatesUnknownSKU(t *testing.T) {
	resp := &Response{
		StatusCode: 404,
		Body:       []byte(`{"error":[{"code":"CONTENT_NOT_FOUND","description":"sku not found"}]}`),
	}

	err := parseAPIError(resp)
	if !err.SKUNotReady() {
		t.Error("404 should report SKUNotReady")
	}
	if !strings.Contains(err.Description, "not yet recognized") {
		t.Errorf("404 description should explain the feed lag: %q", err.Description)
	}
}
