package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server      ServerConfig
	App         AppConfig
	Marketplace MarketplaceConfig
	EngineDB    EngineDBConfig
	CatalogDB   CatalogDBConfig
	Cache       CacheConfig
	Sync        SyncConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"marketsync-api"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
}

// AuthMode selects how requests to the marketplace are authenticated.
// The two modes are mutually exclusive per market.
type AuthMode string

const (
	// AuthModeToken exchanges client id/secret for a bearer token.
	AuthModeToken AuthMode = "token"
	// AuthModeSignature signs each request with an RSA private key (legacy).
	AuthModeSignature AuthMode = "signature"
)

// MarketConfig holds the credentials and identity for one marketplace market.
type MarketConfig struct {
	// Market is the marketplace market code, e.g. "US", "CA", "MX".
	Market string `json:"market"`

	BaseURL  string   `json:"base_url"`
	TokenURL string   `json:"token_url"`
	AuthMode AuthMode `json:"auth_mode"`

	// Token mode credentials.
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`

	// Signature mode credentials.
	ConsumerID string `json:"consumer_id"`
	PrivateKey string `json:"private_key"`

	// Channel type value, with two legacy fallbacks kept for configs
	// migrated from older deployments.
	ChannelType        string `json:"channel_type"`
	LegacyChannelType  string `json:"legacy_channel_type"`
	PartnerChannelType string `json:"partner_channel_type"`
}

// ResolveChannelType derives the channel-type header value for this market.
// Token mode uses the client id; signature mode walks the configured value
// and its legacy fallbacks, finally falling back to the market code.
func (m *MarketConfig) ResolveChannelType() string {
	if m.AuthMode == AuthModeToken {
		return m.ClientID
	}
	for _, v := range []string{m.ChannelType, m.LegacyChannelType, m.PartnerChannelType} {
		if v != "" {
			return v
		}
	}
	return m.Market
}

// MarketplaceConfig holds marketplace API settings. The default market is
// configured through flat env vars; additional markets come from an
// optional JSON file.
type MarketplaceConfig struct {
	ServiceName   string `envconfig:"MARKETPLACE_SERVICE_NAME" default:"marketsync-api"`
	DefaultMarket string `envconfig:"MARKETPLACE_DEFAULT_MARKET" default:"US"`

	BaseURL  string `envconfig:"MARKETPLACE_BASE_URL" default:"https://marketplace.walmartapis.com"`
	TokenURL string `envconfig:"MARKETPLACE_TOKEN_URL" default:"https://marketplace.walmartapis.com/v3/token"`

	AuthMode           string `envconfig:"MARKETPLACE_AUTH_MODE" default:"token"`
	ClientID           string `envconfig:"MARKETPLACE_CLIENT_ID" default:""`
	ClientSecret       string `envconfig:"MARKETPLACE_CLIENT_SECRET" default:""`
	ConsumerID         string `envconfig:"MARKETPLACE_CONSUMER_ID" default:""`
	PrivateKey         string `envconfig:"MARKETPLACE_PRIVATE_KEY" default:""`
	ChannelType        string `envconfig:"MARKETPLACE_CHANNEL_TYPE" default:""`
	LegacyChannelType  string `envconfig:"MARKETPLACE_CHANNEL_TYPE_LEGACY" default:""`
	PartnerChannelType string `envconfig:"MARKETPLACE_PARTNER_CHANNEL_TYPE" default:""`

	// MarketsFile optionally points at a JSON array of MarketConfig for
	// additional (non-default) markets.
	MarketsFile string `envconfig:"MARKETPLACE_MARKETS_FILE" default:""`
}

// DefaultMarketConfig builds the MarketConfig for the default market from
// the flat env fields.
func (c *MarketplaceConfig) DefaultMarketConfig() MarketConfig {
	return MarketConfig{
		Market:             c.DefaultMarket,
		BaseURL:            c.BaseURL,
		TokenURL:           c.TokenURL,
		AuthMode:           AuthMode(c.AuthMode),
		ClientID:           c.ClientID,
		ClientSecret:       c.ClientSecret,
		ConsumerID:         c.ConsumerID,
		PrivateKey:         c.PrivateKey,
		ChannelType:        c.ChannelType,
		LegacyChannelType:  c.LegacyChannelType,
		PartnerChannelType: c.PartnerChannelType,
	}
}

// LoadMarkets returns all configured markets keyed by market code.
func (c *MarketplaceConfig) LoadMarkets() (map[string]MarketConfig, error) {
	markets := map[string]MarketConfig{
		c.DefaultMarket: c.DefaultMarketConfig(),
	}

	if c.MarketsFile == "" {
		return markets, nil
	}

	data, err := os.ReadFile(c.MarketsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read markets file: %w", err)
	}

	var extra []MarketConfig
	if err := json.Unmarshal(data, &extra); err != nil {
		return nil, fmt.Errorf("failed to parse markets file: %w", err)
	}

	for _, m := range extra {
		if m.Market == "" {
			return nil, fmt.Errorf("markets file entry missing market code")
		}
		if m.BaseURL == "" {
			m.BaseURL = c.BaseURL
		}
		if m.TokenURL == "" {
			m.TokenURL = c.TokenURL
		}
		markets[m.Market] = m
	}

	return markets, nil
}

// EngineDBConfig holds settings for the engine's own persistent store.
type EngineDBConfig struct {
	Type string `envconfig:"ENGINE_DB_TYPE" default:"sqlite"` // sqlite or postgres
	Path string `envconfig:"ENGINE_DB_PATH" default:"./data/marketsync.db"`
	// PostgreSQL settings
	Host     string `envconfig:"ENGINE_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"ENGINE_DB_PORT" default:"5432"`
	Name     string `envconfig:"ENGINE_DB_NAME" default:"marketsync"`
	User     string `envconfig:"ENGINE_DB_USER" default:"postgres"`
	Password string `envconfig:"ENGINE_DB_PASS" default:""`
	SSLMode  string `envconfig:"ENGINE_DB_SSLMODE" default:"disable"`
}

// PostgresDSN returns the PostgreSQL connection string.
func (e *EngineDBConfig) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		e.User, e.Password, e.Host, e.Port, e.Name, e.SSLMode)
}

// CatalogDBConfig holds MySQL connection settings for the merchant
// product catalog (read side).
type CatalogDBConfig struct {
	Host     string `envconfig:"CATALOG_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"CATALOG_DB_PORT" default:"3306"`
	Name     string `envconfig:"CATALOG_DB_NAME" default:"storefront"`
	User     string `envconfig:"CATALOG_DB_USER" default:"root"`
	Password string `envconfig:"CATALOG_DB_PASS" default:""`
}

// DSN returns the MySQL data source name.
func (d *CatalogDBConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// CacheConfig holds Redis settings for the pending-sync queue.
type CacheConfig struct {
	Type          string `envconfig:"CACHE_TYPE" default:"memory"` // memory or redis
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// SyncConfig holds feed and inventory sync engine settings.
type SyncConfig struct {
	PollInterval      time.Duration `envconfig:"SYNC_POLL_INTERVAL" default:"5m"`
	RetryInterval     time.Duration `envconfig:"SYNC_RETRY_INTERVAL" default:"1h"`
	RetryCooldown     time.Duration `envconfig:"SYNC_RETRY_COOLDOWN" default:"1h"`
	MaxRetries        int           `envconfig:"SYNC_MAX_RETRIES" default:"3"`
	InventoryDelay    time.Duration `envconfig:"SYNC_INVENTORY_DELAY" default:"5m"`
	ChunkSize         int           `envconfig:"SYNC_CHUNK_SIZE" default:"500"`
	BulkInventorySize int           `envconfig:"SYNC_BULK_INVENTORY_SIZE" default:"50"`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
