package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"marketsync-api/pkg/uid"
)

// Timeout tiers by endpoint shape. Feed processing endpoints are slow;
// item-creation POSTs sit in between.
const (
	defaultTimeout = 60 * time.Second
	feedTimeout    = 300 * time.Second
	itemTimeout    = 180 * time.Second
)

// maxAttempts bounds transport-level retry: 3 tries total.
const maxAttempts = 3

// retryBaseDelay scales the linear backoff: 5s after the first failure,
// 10s after the second.
const retryBaseDelay = 5 * time.Second

// Request describes one outbound marketplace call.
type Request struct {
	Method string
	URL    string
	Market string

	// Headers are caller-supplied extras, merged over the generated set.
	Headers map[string]string

	// JSONBody is encoded as the request body when File is nil.
	JSONBody interface{}

	// File, when set, is sent as a multipart envelope with a single file
	// part (feed uploads).
	File     []byte
	FileName string
}

// Response is a successfully received HTTP response, whatever its status.
// Interpreting 4xx/5xx payloads is the caller's job.
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

// OK reports whether the status code is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode <= 299
}

// Dispatcher builds and sends marketplace HTTP calls: mode-specific auth
// headers, tiered timeouts, bounded retry on transient timeouts.
type Dispatcher struct {
	creds         *CredentialProvider
	client        *http.Client
	serviceName   string
	defaultMarket string

	// sleep is replaceable in tests.
	sleep func(time.Duration)
	// correlationID is replaceable in tests.
	correlationID func() string
}

// NewDispatcher creates a dispatcher. serviceName is sent as WM_SVC.NAME
// on every call; defaultMarket suppresses the market header.
func NewDispatcher(creds *CredentialProvider, serviceName, defaultMarket string) *Dispatcher {
	return &Dispatcher{
		creds:         creds,
		client:        &http.Client{},
		serviceName:   serviceName,
		defaultMarket: defaultMarket,
		sleep:         time.Sleep,
		correlationID: uid.New,
	}
}

// timeoutFor assigns the timeout tier for an endpoint.
func timeoutFor(method, rawURL string) time.Duration {
	switch {
	case strings.Contains(rawURL, "/feeds"):
		return feedTimeout
	case method == http.MethodPost && strings.Contains(rawURL, "/items"):
		return itemTimeout
	default:
		return defaultTimeout
	}
}

// isTransientTimeout reports whether a network error looks like a gateway
// or connection timeout. Only these are worth a retry; everything else is
// surfaced on the first attempt.
func isTransientTimeout(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "504") ||
		strings.Contains(msg, "gateway timeout") ||
		strings.Contains(msg, "timeout")
}

// Do sends the request. Network errors matching a transient-timeout
// signature are retried up to maxAttempts with linear backoff; any
// received HTTP response is returned as-is without retry.
func (d *Dispatcher) Do(ctx context.Context, req *Request) (*Response, error) {
	body, contentType, err := d.encodeBody(req)
	if err != nil {
		return nil, err
	}

	timeout := timeoutFor(req.Method, req.URL)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := d.send(ctx, req, body, contentType, timeout)
		if err == nil {
			return resp, nil
		}

		// Auth and signing failures are not transport errors; they are
		// surfaced immediately and never retried.
		var authErr *AuthError
		var sigErr *SignatureError
		if errors.As(err, &authErr) || errors.As(err, &sigErr) {
			return nil, err
		}

		lastErr = err
		if !isTransientTimeout(err) {
			return nil, &TransportError{Attempts: attempt, Err: err}
		}
		if attempt < maxAttempts {
			wait := retryBaseDelay * time.Duration(attempt)
			log.Printf("[Dispatcher] %s %s attempt %d/%d failed (%v), retrying in %v",
				req.Method, req.URL, attempt, maxAttempts, err, wait)
			d.sleep(wait)
		}
	}

	return nil, &TransportError{Attempts: maxAttempts, Err: lastErr}
}

// send performs a single attempt.
func (d *Dispatcher) send(ctx context.Context, req *Request, body []byte, contentType string, timeout time.Duration) (*Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(callCtx, req.Method, req.URL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	market := req.Market
	if market == "" {
		market = d.defaultMarket
	}

	authHeaders, err := d.creds.AuthHeaders(ctx, market, req.Method, req.URL)
	if err != nil {
		return nil, err
	}
	for k, v := range authHeaders {
		httpReq.Header.Set(k, v)
	}

	httpReq.Header.Set("WM_SVC.NAME", d.serviceName)
	httpReq.Header.Set("WM_QOS.CORRELATION_ID", d.correlationID())
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if market != d.defaultMarket {
		httpReq.Header.Set("WM_MARKET", market)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := d.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       respBody,
		Header:     httpResp.Header,
	}, nil
}

// encodeBody renders the request body once; retries reuse the bytes.
func (d *Dispatcher) encodeBody(req *Request) ([]byte, string, error) {
	if req.File != nil {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)

		name := req.FileName
		if name == "" {
			name = "feed.json"
		}
		part, err := w.CreateFormFile("file", name)
		if err != nil {
			return nil, "", fmt.Errorf("failed to build multipart body: %w", err)
		}
		if _, err := part.Write(req.File); err != nil {
			return nil, "", fmt.Errorf("failed to write multipart body: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, "", fmt.Errorf("failed to finalize multipart body: %w", err)
		}
		return buf.Bytes(), w.FormDataContentType(), nil
	}

	if req.JSONBody != nil {
		data, err := json.Marshal(req.JSONBody)
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode request body: %w", err)
		}
		return data, "application/json", nil
	}

	return nil, "", nil
}
