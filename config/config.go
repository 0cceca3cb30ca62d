package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all wallet-core configuration.
type Config struct {
	Wallet     WalletConfig     `mapstructure:"wallet"`
	Settlement SettlementConfig `mapstructure:"settlement"`
	Credo      CredoConfig      `mapstructure:"credo"`
	Restore    RestoreConfig    `mapstructure:"restore"`
	Queue      QueueConfig      `mapstructure:"queue"`
	Transport  TransportConfig  `mapstructure:"transport"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Keyring    KeyringConfig    `mapstructure:"keyring"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Log        LogConfig        `mapstructure:"log"`
}

type WalletConfig struct {
	Mints         []string `mapstructure:"mints"`          // Trusted mint URLs
	PreferredMint string   `mapstructure:"preferred_mint"` // Drained first when it has balance
	Unit          string   `mapstructure:"unit"`           // Ecash unit, normally "sat"
}

type SettlementConfig struct {
	NetworkTimeout      time.Duration `mapstructure:"network_timeout"`       // Per mint call
	ConflictSkip        uint32        `mapstructure:"conflict_skip"`         // Counter skip on signature conflict
	MaxConflictAttempts int           `mapstructure:"max_conflict_attempts"` // Bounded retry on signature conflicts
}

type CredoConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ExposureCap uint64        `mapstructure:"exposure_cap"` // Max total outstanding issued, in unit
	PromiseTTL  time.Duration `mapstructure:"promise_ttl"`
}

type RestoreConfig struct {
	Window    uint32 `mapstructure:"window"`     // Recent-index window per keyset
	BatchSize int    `mapstructure:"batch_size"` // Restore batch per client call
	Lookahead int    `mapstructure:"lookahead"`  // Empty batches tolerated before stopping
	ChunkSize int    `mapstructure:"chunk_size"` // Max proofs per persisted token record
}

type QueueConfig struct {
	FlushBackoff time.Duration `mapstructure:"flush_backoff"` // Delay between periodic flushes
}

type TransportConfig struct {
	Relays         []string          `mapstructure:"relays"`
	PublishTimeout time.Duration     `mapstructure:"publish_timeout"`
	MaxAttempts    int               `mapstructure:"max_attempts"`
	ProbeTimeout   time.Duration     `mapstructure:"probe_timeout"` // Per-relay connectivity dial
	Contacts       map[string]string `mapstructure:"contacts"`      // contact id -> x-only pubkey hex
}

// EngineConfig points at the local protocol engine sidecar that performs the
// ecash cryptography and gift-wrap sealing.
type EngineConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// KeyringConfig locates the encrypted wallet identity key.
type KeyringConfig struct {
	File       string `mapstructure:"file"`
	Passphrase string `mapstructure:"passphrase"` // Normally NUTPAY_KEYRING_PASSPHRASE
}

// DatabaseConfig configures the optional PostgreSQL record store.
// An empty host disables it; the wallet then runs on the in-memory store.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// Enabled reports whether a database host is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// RedisConfig configures the optional counter/cursor KV. An empty host
// disables it in favor of the in-memory counter store.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// MetricsConfig configures the Prometheus scrape endpoint. An empty address
// disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: NUTPAY_.
// Nested keys use underscore: NUTPAY_WALLET_UNIT, NUTPAY_CREDO_EXPOSURE_CAP, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("wallet.mints", []string{})
	v.SetDefault("wallet.preferred_mint", "")
	v.SetDefault("wallet.unit", "sat")
	v.SetDefault("settlement.network_timeout", "10s")
	v.SetDefault("settlement.conflict_skip", 64)
	v.SetDefault("settlement.max_conflict_attempts", 5)
	v.SetDefault("credo.enabled", true)
	v.SetDefault("credo.exposure_cap", 10000)
	v.SetDefault("credo.promise_ttl", "720h")
	v.SetDefault("restore.window", 100)
	v.SetDefault("restore.batch_size", 100)
	v.SetDefault("restore.lookahead", 3)
	v.SetDefault("restore.chunk_size", 200)
	v.SetDefault("queue.flush_backoff", "30s")
	v.SetDefault("transport.relays", []string{})
	v.SetDefault("transport.publish_timeout", "15s")
	v.SetDefault("transport.max_attempts", 3)
	v.SetDefault("transport.probe_timeout", "3s")
	v.SetDefault("transport.contacts", map[string]string{})
	v.SetDefault("engine.url", "http://127.0.0.1:7333")
	v.SetDefault("engine.timeout", "10s")
	v.SetDefault("keyring.file", "wallet.key")
	v.SetDefault("keyring.passphrase", "")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "nutpay")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("metrics.addr", "127.0.0.1:9464")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: NUTPAY_SETTLEMENT_NETWORK_TIMEOUT -> settlement.network_timeout
	v.SetEnvPrefix("NUTPAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
