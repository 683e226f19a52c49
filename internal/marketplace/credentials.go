package marketplace

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"marketsync-api/internal/config"
)

// tokenSafetyMargin is subtracted from the reported token lifetime so a
// token is refreshed before the marketplace actually rejects it.
const tokenSafetyMargin = 300 * time.Second

type cachedToken struct {
	token     string
	expiresAt time.Time
}

// CredentialProvider resolves authentication material per market. Token
// mode caches bearer tokens in a process-local map; signature mode signs
// each request on demand. The cache is never persisted.
type CredentialProvider struct {
	markets    map[string]config.MarketConfig
	httpClient *http.Client
	now        func() time.Time

	mu     sync.Mutex
	tokens map[string]cachedToken
}

// NewCredentialProvider creates a provider for the given markets.
func NewCredentialProvider(markets map[string]config.MarketConfig) *CredentialProvider {
	return &CredentialProvider{
		markets:    markets,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		now:        time.Now,
		tokens:     make(map[string]cachedToken),
	}
}

// MarketConfig returns the configuration for a market.
func (p *CredentialProvider) MarketConfig(market string) (config.MarketConfig, error) {
	cfg, ok := p.markets[market]
	if !ok {
		return config.MarketConfig{}, fmt.Errorf("%w: %s", ErrMarketNotConfigured, market)
	}
	return cfg, nil
}

// Token returns a valid bearer token for a token-mode market, issuing a
// new one if the cached token is missing, expired, or force is set.
func (p *CredentialProvider) Token(ctx context.Context, market string, force bool) (string, error) {
	cfg, err := p.MarketConfig(market)
	if err != nil {
		return "", &AuthError{Market: market, Reason: "unknown market", Err: err}
	}
	if cfg.AuthMode != config.AuthModeToken {
		return "", &AuthError{Market: market, Reason: "market is not in token mode"}
	}

	if !force {
		p.mu.Lock()
		cached, ok := p.tokens[market]
		p.mu.Unlock()
		if ok && p.now().Before(cached.expiresAt) {
			return cached.token, nil
		}
	}

	token, ttl, err := p.issueToken(ctx, cfg)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	p.tokens[market] = cachedToken{
		token:     token,
		expiresAt: p.now().Add(ttl - tokenSafetyMargin),
	}
	p.mu.Unlock()

	log.Printf("[CredentialProvider] Issued token for market=%s, ttl=%v", market, ttl)
	return token, nil
}

// issueToken performs the client_credentials grant. The endpoint answers
// JSON normally, XML on the legacy path; the shape is detected from the
// payload itself since legacy gateways mislabel the content type.
func (p *CredentialProvider) issueToken(ctx context.Context, cfg config.MarketConfig) (string, time.Duration, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, &AuthError{Market: cfg.Market, Reason: "failed to build token request", Err: err}
	}
	req.SetBasicAuth(cfg.ClientID, cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", 0, &AuthError{Market: cfg.Market, Reason: "token request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, &AuthError{Market: cfg.Market, Reason: "failed to read token response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", 0, &AuthError{
			Market: cfg.Market,
			Reason: fmt.Sprintf("token endpoint returned %d: %s", resp.StatusCode, truncate(body, 200)),
		}
	}

	token, expiresIn, err := parseTokenResponse(body)
	if err != nil {
		return "", 0, &AuthError{Market: cfg.Market, Reason: "unparseable token response", Err: err}
	}
	if token == "" {
		return "", 0, &AuthError{Market: cfg.Market, Reason: "token response missing access token"}
	}

	return token, time.Duration(expiresIn) * time.Second, nil
}

// parseTokenResponse handles both the JSON and legacy XML token shapes.
func parseTokenResponse(body []byte) (string, int, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "<") {
		var xr tokenResponseXML
		if err := xml.Unmarshal(body, &xr); err != nil {
			return "", 0, err
		}
		return xr.AccessToken, xr.ExpiresIn, nil
	}

	var jr tokenResponse
	if err := json.Unmarshal(body, &jr); err != nil {
		return "", 0, err
	}
	return jr.AccessToken, jr.ExpiresIn, nil
}

// AuthHeaders builds the mode-specific authentication headers for one
// outbound request, plus the channel-type value for the market.
func (p *CredentialProvider) AuthHeaders(ctx context.Context, market, method, rawURL string) (map[string]string, error) {
	cfg, err := p.MarketConfig(market)
	if err != nil {
		return nil, &AuthError{Market: market, Reason: "unknown market", Err: err}
	}

	headers := map[string]string{
		"WM_CONSUMER.CHANNEL.TYPE": cfg.ResolveChannelType(),
	}

	switch cfg.AuthMode {
	case config.AuthModeToken:
		token, err := p.Token(ctx, market, false)
		if err != nil {
			return nil, err
		}
		headers["WM_SEC.ACCESS_TOKEN"] = token
		headers["Authorization"] = "Basic " + basicAuth(cfg.ClientID, cfg.ClientSecret)

	case config.AuthModeSignature:
		ts := p.now().UnixMilli()
		sig, err := signRequest(cfg.PrivateKey, cfg.ConsumerID, rawURL, method, ts)
		if err != nil {
			return nil, &SignatureError{Market: market, Reason: "failed to sign request", Err: err}
		}
		headers["WM_CONSUMER.ID"] = cfg.ConsumerID
		headers["WM_SEC.TIMESTAMP"] = strconv.FormatInt(ts, 10)
		headers["WM_SEC.AUTH_SIGNATURE"] = sig

	default:
		return nil, &AuthError{Market: market, Reason: fmt.Sprintf("unknown auth mode %q", cfg.AuthMode)}
	}

	return headers, nil
}

// Invalidate drops a cached token, forcing reissue on next use.
func (p *CredentialProvider) Invalidate(market string) {
	p.mu.Lock()
	delete(p.tokens, market)
	p.mu.Unlock()
}

func basicAuth(user, pass string) string {
	return base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
