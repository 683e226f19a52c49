package marketplace

import (
	"errors"
	"fmt"
)

// ErrMarketNotConfigured is returned when a request names a market the
// provider has no configuration for.
var ErrMarketNotConfigured = errors.New("market not configured")

// AuthError means credential acquisition failed. Nothing is cached and
// the dispatcher does not retry it.
type AuthError struct {
	Market string
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth failed for market %s: %s: %v", e.Market, e.Reason, e.Err)
	}
	return fmt.Sprintf("auth failed for market %s: %s", e.Market, e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// SignatureError means request signing failed. No signature is substituted.
type SignatureError struct {
	Market string
	Reason string
	Err    error
}

func (e *SignatureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("signature failed for market %s: %s: %v", e.Market, e.Reason, e.Err)
	}
	return fmt.Sprintf("signature failed for market %s: %s", e.Market, e.Reason)
}

func (e *SignatureError) Unwrap() error { return e.Err }

// TransportError is a network-layer failure, surfaced after the retry
// budget is spent. Attempts reports how many tries were made.
type TransportError struct {
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError is a well-formed HTTP response carrying an application-level
// error payload. Never retried automatically.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
	Raw         []byte
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("marketplace API error %d (%s): %s", e.StatusCode, e.Code, e.Description)
	}
	return fmt.Sprintf("marketplace API error %d: %s", e.StatusCode, e.Description)
}

// SKUNotReady reports whether the error indicates the marketplace does
// not yet recognize the SKU. A brand-new SKU is invisible to inventory
// calls until its item feed finishes processing.
func (e *APIError) SKUNotReady() bool {
	return e.StatusCode == 404
}
