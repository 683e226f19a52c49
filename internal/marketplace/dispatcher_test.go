package marketplace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"marketsync-api/internal/config"
)

// fakeTransport scripts the outcome of each HTTP attempt.
type fakeTransport struct {
	attempts int
	outcomes []func(req *http.Request) (*http.Response, error)
	requests []*http.Request
}

func (t *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.requests = append(t.requests, req)
	i := t.attempts
	t.attempts++
	if i >= len(t.outcomes) {
		i = len(t.outcomes) - 1
	}
	return t.outcomes[i](req)
}

func okResponse(status int, body string) func(*http.Request) (*http.Response, error) {
	return func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Body:       io.NopCloser(strings.NewReader(body)),
			Header:     make(http.Header),
		}, nil
	}
}

func failWith(msg string) func(*http.Request) (*http.Response, error) {
	return func(*http.Request) (*http.Response, error) {
		return nil, errors.New(msg)
	}
}

func testCredentials() *CredentialProvider {
	creds := NewCredentialProvider(map[string]config.MarketConfig{
		"US": {
			Market:   "US",
			AuthMode: config.AuthModeToken,
			ClientID: "client-id",
		},
	})
	// Pre-seed the token cache so no token endpoint is needed.
	creds.tokens["US"] = cachedToken{token: "test-token", expiresAt: time.Now().Add(time.Hour)}
	return creds
}

func testDispatcher(transport *fakeTransport) (*Dispatcher, *[]time.Duration) {
	d := NewDispatcher(testCredentials(), "test-svc", "US")
	d.client = &http.Client{Transport: transport}

	var sleeps []time.Duration
	d.sleep = func(dur time.Duration) { sleeps = append(sleeps, dur) }
	d.correlationID = func() string { return "corr-1" }
	return d, &sleeps
}

func TestDispatcherRetriesTransientTimeouts(t *testing.T) {
	transport := &fakeTransport{outcomes: []func(*http.Request) (*http.Response, error){
		failWith("504 gateway timeout"),
		failWith("request timeout"),
		okResponse(200, `{"ok":true}`),
	}}
	d, sleeps := testDispatcher(transport)

	resp, err := d.Do(context.Background(), &Request{Method: http.MethodGet, URL: "http://x/v3/items/1"})
	if err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if transport.attempts != 3 {
		t.Errorf("attempts = %d, want 3", transport.attempts)
	}

	// Linear backoff: 5s after the first failure, 10s after the second.
	want := []time.Duration{5 * time.Second, 10 * time.Second}
	if len(*sleeps) != len(want) {
		t.Fatalf("sleeps = %v, want %v", *sleeps, want)
	}
	for i, w := range want {
		if (*sleeps)[i] != w {
			t.Errorf("sleep[%d] = %v, want %v", i, (*sleeps)[i], w)
		}
	}
}

func TestDispatcherDoesNotRetryNonTimeoutErrors(t *testing.T) {
	transport := &fakeTransport{outcomes: []func(*http.Request) (*http.Response, error){
		failWith("connection refused"),
	}}
	d, sleeps := testDispatcher(transport)

	_, err := d.Do(context.Background(), &Request{Method: http.MethodGet, URL: "http://x/v3/items/1"})
	if err == nil {
		t.Fatal("expected error")
	}

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %T", err)
	}
	if transportErr.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", transportErr.Attempts)
	}
	if transport.attempts != 1 {
		t.Errorf("transport attempts = %d, want 1", transport.attempts)
	}
	if len(*sleeps) != 0 {
		t.Errorf("expected no backoff, got %v", *sleeps)
	}
}

func TestDispatcherExhaustsRetries(t *testing.T) {
	transport := &fakeTransport{outcomes: []func(*http.Request) (*http.Response, error){
		failWith("504 gateway timeout"),
	}}
	d, _ := testDispatcher(transport)

	_, err := d.Do(context.Background(), &Request{Method: http.MethodGet, URL: "http://x/v3/items/1"})
	if err == nil {
		t.Fatal("expected error")
	}

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %T", err)
	}
	if transportErr.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", transportErr.Attempts)
	}
	if !strings.Contains(err.Error(), "3 attempt") {
		t.Errorf("error should report the attempt count: %v", err)
	}
	if transport.attempts != 3 {
		t.Errorf("transport attempts = %d, want 3", transport.attempts)
	}
}

func TestDispatcherReturnsErrorStatusWithoutRetry(t *testing.T) {
	transport := &fakeTransport{outcomes: []func(*http.Request) (*http.Response, error){
		okResponse(400, `{"errors":{"error":[{"code":"INVALID","description":"bad feed"}]}}`),
	}}
	d, _ := testDispatcher(transport)

	resp, err := d.Do(context.Background(), &Request{Method: http.MethodGet, URL: "http://x/v3/items/1"})
	if err != nil {
		t.Fatalf("received responses are not errors: %v", err)
	}
	if resp.StatusCode != 400 {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if resp.OK() {
		t.Error("400 should not be OK")
	}
	if transport.attempts != 1 {
		t.Errorf("transport attempts = %d, want 1", transport.attempts)
	}
}

func TestDispatcherAuthErrorsAreNotRetried(t *testing.T) {
	transport := &fakeTransport{outcomes: []func(*http.Request) (*http.Response, error){
		okResponse(200, "{}"),
	}}
	d, _ := testDispatcher(transport)

	_, err := d.Do(context.Background(), &Request{Method: http.MethodGet, URL: "http://x/v3/items/1", Market: "XX"})
	if err == nil {
		t.Fatal("expected error for unconfigured market")
	}

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %T: %v", err, err)
	}
	if transport.attempts != 0 {
		t.Errorf("no request should have been sent, got %d", transport.attempts)
	}
}

func TestDispatcherHeaders(t *testing.T) {
	transport := &fakeTransport{outcomes: []func(*http.Request) (*http.Response, error){
		okResponse(200, "{}"),
	}}
	d, _ := testDispatcher(transport)

	_, err := d.Do(context.Background(), &Request{Method: http.MethodGet, URL: "http://x/v3/items/1"})
	if err != nil {
		t.Fatal(err)
	}

	req := transport.requests[0]
	checks := map[string]string{
		"WM_SVC.NAME":              "test-svc",
		"WM_QOS.CORRELATION_ID":    "corr-1",
		"WM_SEC.ACCESS_TOKEN":      "test-token",
		"WM_CONSUMER.CHANNEL.TYPE": "client-id",
		"Accept":                   "application/json",
	}
	for k, want := range checks {
		if got := req.Header.Get(k); got != want {
			t.Errorf("header %s = %q, want %q", k, got, want)
		}
	}
	if req.Header.Get("WM_MARKET") != "" {
		t.Error("default market should not send WM_MARKET")
	}
}

func TestDispatcherSendsMarketHeaderForNonDefaultMarket(t *testing.T) {
	transport := &fakeTransport{outcomes: []func(*http.Request) (*http.Response, error){
		okResponse(200, "{}"),
	}}
	d, _ := testDispatcher(transport)
	d.creds.markets["CA"] = config.MarketConfig{Market: "CA", AuthMode: config.AuthModeToken, ClientID: "ca-client"}
	d.creds.tokens["CA"] = cachedToken{token: "ca-token", expiresAt: time.Now().Add(time.Hour)}

	_, err := d.Do(context.Background(), &Request{Method: http.MethodGet, URL: "http://x/v3/items/1", Market: "CA"})
	if err != nil {
		t.Fatal(err)
	}

	if got := transport.requests[0].Header.Get("WM_MARKET"); got != "CA" {
		t.Errorf("WM_MARKET = %q, want CA", got)
	}
}

func TestTimeoutTiers(t *testing.T) {
	tests := []struct {
		method string
		url    string
		want   time.Duration
	}{
		{http.MethodPost, "http://x/v3/feeds?feedType=item", 300 * time.Second},
		{http.MethodGet, "http://x/v3/feeds/F1?offset=0", 300 * time.Second},
		{http.MethodPost, "http://x/v3/items", 180 * time.Second},
		{http.MethodGet, "http://x/v3/items/1", 60 * time.Second},
		{http.MethodPut, "http://x/v3/inventory?sku=A", 60 * time.Second},
	}

	for _, tt := range tests {
		if got := timeoutFor(tt.method, tt.url); got != tt.want {
			t.Errorf("timeoutFor(%s, %s) = %v, want %v", tt.method, tt.url, got, tt.want)
		}
	}
}

func TestEncodeBodyMultipart(t *testing.T) {
	d := NewDispatcher(testCredentials(), "svc", "US")

	body, contentType, err := d.encodeBody(&Request{File: []byte(`{"Items":[]}`), FileName: "item.json"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		t.Errorf("content type = %q, want multipart", contentType)
	}
	if !strings.Contains(string(body), `filename="item.json"`) {
		t.Error("multipart body should carry the file name")
	}
	if !strings.Contains(string(body), `{"Items":[]}`) {
		t.Error("multipart body should carry the document")
	}
}

func TestIsTransientTimeout(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{fmt.Errorf("Get \"http://x\": 504 Gateway Timeout"), true},
		{fmt.Errorf("context deadline exceeded (Client.Timeout exceeded)"), true},
		{fmt.Errorf("dial tcp: connection refused"), false},
		{fmt.Errorf("EOF"), false},
	}

	for _, tt := range tests {
		if got := isTransientTimeout(tt.err); got != tt.want {
			t.Errorf("isTransientTimeout(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
