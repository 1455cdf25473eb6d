// Package config holds the validated configuration for a Kraken websockets
// session: which channels to subscribe to, and the ambient settings (logging,
// optional Redis mirror, optional Vault token store, optional Postgres audit
// sink) that the rest of the module wires up around the streaming core.
package config

import (
	"encoding/json"
	"errors"
	"os"
	"strings"
)

// ErrMissingAuthToken is returned by Builder.Build when a private
// subscription (open orders or own trades) is requested without a token.
var ErrMissingAuthToken = errors.New("config: auth token required for private subscription")

const (
	minBookDepth     = 10
	maxBookDepth     = 1000
	defaultBookDepth = 10
)

// validOHLCIntervals are the only interval lengths (in minutes) Kraken's
// ohlc channel accepts.
var validOHLCIntervals = map[int]bool{
	1: true, 5: true, 15: true, 30: true, 60: true,
	240: true, 1440: true, 10080: true, 21600: true,
}

// Config is the validated, immutable description of one streaming session.
type Config struct {
	BookPairs    []string `json:"book_pairs"`
	BookDepth    int      `json:"book_depth"`
	TradePairs   []string `json:"trade_pairs"`
	OHLCPairs    []string `json:"ohlc_pairs"`
	OHLCInterval int      `json:"ohlc_interval"`

	AuthToken           string `json:"-"`
	SubscribeOpenOrders bool   `json:"subscribe_open_orders"`
	SubscribeOwnTrades  bool   `json:"subscribe_own_trades"`

	Logging  LoggingConfig  `json:"logging"`
	Redis    RedisConfig    `json:"redis"`
	Vault    VaultConfig    `json:"vault"`
	Postgres PostgresConfig `json:"postgres"`
}

// LoggingConfig configures the zerolog sink used across the module.
type LoggingConfig struct {
	Level      string `json:"level"`       // debug, info, warn, error
	Output     string `json:"output"`      // stdout, stderr, or a file path
	JSONFormat bool   `json:"json_format"` // false renders zerolog's console writer
}

// RedisConfig configures the optional internal/mirror publisher.
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Channel  string `json:"channel"`
}

// VaultConfig configures the optional internal/tokenstore Vault backend.
type VaultConfig struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Token      string `json:"token"`
	MountPath  string `json:"mount_path"`
	SecretPath string `json:"secret_path"`
}

// PostgresConfig configures the optional internal/audit sink.
type PostgresConfig struct {
	Enabled bool   `json:"enabled"`
	DSN     string `json:"dsn"`
}

// Builder constructs a Config fluently and validates it on Build.
type Builder struct {
	cfg Config
}

// NewBuilder returns a Builder seeded with defaults (book depth 10, no
// subscriptions).
func NewBuilder() *Builder {
	return &Builder{cfg: Config{BookDepth: defaultBookDepth}}
}

// WithBookPairs subscribes to the book channel for each pair.
func (b *Builder) WithBookPairs(pairs ...string) *Builder {
	b.cfg.BookPairs = append(b.cfg.BookPairs, pairs...)
	return b
}

// WithBookDepth sets the book depth, clamped to [10, 1000] at Build time.
func (b *Builder) WithBookDepth(depth int) *Builder {
	b.cfg.BookDepth = depth
	return b
}

// WithTradePairs subscribes to the public trade channel for each pair.
func (b *Builder) WithTradePairs(pairs ...string) *Builder {
	b.cfg.TradePairs = append(b.cfg.TradePairs, pairs...)
	return b
}

// WithOHLCPairs subscribes to the ohlc channel for each pair at the given
// interval (minutes).
func (b *Builder) WithOHLCPairs(interval int, pairs ...string) *Builder {
	b.cfg.OHLCPairs = append(b.cfg.OHLCPairs, pairs...)
	b.cfg.OHLCInterval = interval
	return b
}

// WithAuthToken sets the websockets authentication token obtained out of
// band from the REST collaborator (internal/krakenrest).
func (b *Builder) WithAuthToken(token string) *Builder {
	b.cfg.AuthToken = token
	return b
}

// WithOpenOrders subscribes to the private openOrders channel.
func (b *Builder) WithOpenOrders() *Builder {
	b.cfg.SubscribeOpenOrders = true
	return b
}

// WithOwnTrades subscribes to the private ownTrades channel.
func (b *Builder) WithOwnTrades() *Builder {
	b.cfg.SubscribeOwnTrades = true
	return b
}

// WithLogging overrides the default logging configuration.
func (b *Builder) WithLogging(cfg LoggingConfig) *Builder {
	b.cfg.Logging = cfg
	return b
}

// WithRedis enables the optional Redis mirror publisher.
func (b *Builder) WithRedis(cfg RedisConfig) *Builder {
	b.cfg.Redis = cfg
	return b
}

// WithVault enables the optional Vault-backed token store.
func (b *Builder) WithVault(cfg VaultConfig) *Builder {
	b.cfg.Vault = cfg
	return b
}

// WithPostgres enables the optional Postgres audit sink.
func (b *Builder) WithPostgres(cfg PostgresConfig) *Builder {
	b.cfg.Postgres = cfg
	return b
}

// Build validates the accumulated options and returns the finished Config.
func (b *Builder) Build() (Config, error) {
	cfg := b.cfg

	if cfg.BookDepth < minBookDepth {
		cfg.BookDepth = minBookDepth
	} else if cfg.BookDepth > maxBookDepth {
		cfg.BookDepth = maxBookDepth
	}

	if cfg.OHLCInterval != 0 && !validOHLCIntervals[cfg.OHLCInterval] {
		return Config{}, errors.New("config: invalid ohlc interval")
	}

	needsAuth := cfg.SubscribeOpenOrders || cfg.SubscribeOwnTrades
	if needsAuth && cfg.AuthToken == "" {
		return Config{}, ErrMissingAuthToken
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	return cfg, nil
}

// Load reads base settings from krakenws.json if present, then applies
// environment variable overrides, mirroring the teacher's Load() pattern:
// a missing file is not an error, env vars always take precedence.
func Load() (Config, error) {
	cfg := Config{BookDepth: defaultBookDepth}

	if data, err := os.ReadFile("krakenws.json"); err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.Logging.Level = getEnvOrDefault("KRAKENWS_LOG_LEVEL", orDefault(cfg.Logging.Level, "info"))
	cfg.Logging.Output = getEnvOrDefault("KRAKENWS_LOG_OUTPUT", orDefault(cfg.Logging.Output, "stdout"))
	cfg.Logging.JSONFormat = getEnvBoolOrDefault("KRAKENWS_LOG_JSON", cfg.Logging.JSONFormat)

	cfg.AuthToken = getEnvOrDefault("KRAKENWS_AUTH_TOKEN", cfg.AuthToken)

	cfg.Redis.Enabled = getEnvBoolOrDefault("KRAKENWS_REDIS_ENABLED", cfg.Redis.Enabled)
	cfg.Redis.Address = getEnvOrDefault("KRAKENWS_REDIS_ADDR", orDefault(cfg.Redis.Address, "localhost:6379"))
	cfg.Redis.Channel = getEnvOrDefault("KRAKENWS_REDIS_CHANNEL", orDefault(cfg.Redis.Channel, "krakenws:snapshots"))

	cfg.Vault.Enabled = getEnvBoolOrDefault("KRAKENWS_VAULT_ENABLED", cfg.Vault.Enabled)
	cfg.Vault.Address = getEnvOrDefault("VAULT_ADDR", orDefault(cfg.Vault.Address, "http://127.0.0.1:8200"))
	cfg.Vault.Token = getEnvOrDefault("VAULT_TOKEN", cfg.Vault.Token)
	cfg.Vault.MountPath = getEnvOrDefault("KRAKENWS_VAULT_MOUNT", orDefault(cfg.Vault.MountPath, "secret"))
	cfg.Vault.SecretPath = getEnvOrDefault("KRAKENWS_VAULT_PATH", orDefault(cfg.Vault.SecretPath, "krakenws/token"))

	cfg.Postgres.Enabled = getEnvBoolOrDefault("KRAKENWS_PG_ENABLED", cfg.Postgres.Enabled)
	cfg.Postgres.DSN = getEnvOrDefault("KRAKENWS_PG_DSN", cfg.Postgres.DSN)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBoolOrDefault(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return def
}
