package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestResolveChannelType(t *testing.T) {
	tests := []struct {
		name string
		cfg  MarketConfig
		want string
	}{
		{
			name: "token mode uses client id",
			cfg:  MarketConfig{Market: "US", AuthMode: AuthModeToken, ClientID: "cid", ChannelType: "chan"},
			want: "cid",
		},
		{
			name: "signature mode uses configured channel type",
			cfg:  MarketConfig{Market: "US", AuthMode: AuthModeSignature, ChannelType: "chan"},
			want: "chan",
		},
		{
			name: "legacy fallback",
			cfg:  MarketConfig{Market: "US", AuthMode: AuthModeSignature, LegacyChannelType: "legacy"},
			want: "legacy",
		},
		{
			name: "partner fallback",
			cfg:  MarketConfig{Market: "US", AuthMode: AuthModeSignature, PartnerChannelType: "partner"},
			want: "partner",
		},
		{
			name: "market code as last resort",
			cfg:  MarketConfig{Market: "MX", AuthMode: AuthModeSignature},
			want: "MX",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.ResolveChannelType(); got != tt.want {
				t.Errorf("ResolveChannelType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadMarketsMergesFileOverDefaults(t *testing.T) {
	extra := []MarketConfig{
		{Market: "CA", AuthMode: AuthModeSignature, ConsumerID: "ca-consumer"},
		{Market: "MX", BaseURL: "https://mx.marketplace.test", AuthMode: AuthModeToken},
	}
	data, _ := json.Marshal(extra)

	path := filepath.Join(t.TempDir(), "markets.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := &MarketplaceConfig{
		DefaultMarket: "US",
		BaseURL:       "https://marketplace.test",
		TokenURL:      "https://marketplace.test/v3/token",
		AuthMode:      "token",
		ClientID:      "cid",
		MarketsFile:   path,
	}

	markets, err := cfg.LoadMarkets()
	if err != nil {
		t.Fatal(err)
	}

	if len(markets) != 3 {
		t.Fatalf("markets = %d, want 3", len(markets))
	}
	if markets["US"].ClientID != "cid" {
		t.Error("default market should come from flat env fields")
	}
	// Markets without their own URLs inherit the defaults.
	if markets["CA"].BaseURL != "https://marketplace.test" {
		t.Errorf("CA base url = %q, want inherited default", markets["CA"].BaseURL)
	}
	if markets["MX"].BaseURL != "https://mx.marketplace.test" {
		t.Errorf("MX base url = %q, want its own", markets["MX"].BaseURL)
	}
}

func TestLoadMarketsRejectsMissingMarketCode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "markets.json")
	if err := os.WriteFile(path, []byte(`[{"base_url":"https://x"}]`), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := &MarketplaceConfig{DefaultMarket: "US", MarketsFile: path}
	if _, err := cfg.LoadMarkets(); err == nil {
		t.Error("expected error for entry without market code")
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Sync.MaxRetries != 3 {
		t.Errorf("max retries default = %d, want 3", cfg.Sync.MaxRetries)
	}
	if cfg.Sync.BulkInventorySize != 50 {
		t.Errorf("bulk size default = %d, want 50", cfg.Sync.BulkInventorySize)
	}
	if cfg.EngineDB.Type != "sqlite" {
		t.Errorf("engine db default = %q, want sqlite", cfg.EngineDB.Type)
	}
}
