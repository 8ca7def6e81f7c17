package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the wallet core configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Ethereum   EthereumConfig   `yaml:"ethereum"`
	CoFHE      CoFHEConfig      `yaml:"cofhe"`
	Account    AccountConfig    `yaml:"account"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Portfolio  PortfolioConfig  `yaml:"portfolio"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Shutdown   ShutdownConfig   `yaml:"shutdown"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host           string        `yaml:"host" default:"0.0.0.0"`
	Port           int           `yaml:"port" default:"8090" validate:"gt=0,lte=65535"`
	RequestTimeout time.Duration `yaml:"request_timeout" default:"5m"`
}

// EthereumConfig contains chain access settings
type EthereumConfig struct {
	RPCURL              string        `yaml:"rpc_url" validate:"required,url"`
	ChainID             int64         `yaml:"chain_id" validate:"required,gt=0"`
	GasLimit            uint64        `yaml:"gas_limit" default:"500000"`
	MaxGasPrice         string        `yaml:"max_gas_price" validate:"omitempty,numeric"`
	ReceiptPollInterval time.Duration `yaml:"receipt_poll_interval" default:"2s"`
	ReceiptTimeout      time.Duration `yaml:"receipt_timeout" default:"3m"`
}

// CoFHEConfig contains settings for the threshold network that seals and
// verifies encrypted values
type CoFHEConfig struct {
	URL            string        `yaml:"url" validate:"required,url"`
	Environment    string        `yaml:"environment" default:"TESTNET" validate:"oneof=LOCAL MOCK TESTNET MAINNET"`
	SecurityZone   uint8         `yaml:"security_zone"`
	PermitTTL      time.Duration `yaml:"permit_ttl" default:"168h"`
	RequestTimeout time.Duration `yaml:"request_timeout" default:"30s"`
}

// AccountConfig describes where account keys come from. The primary key is
// active at startup; Wallets lists further accounts the user can switch to.
// When MasterKeyEnv is set every key variable holds an AES-256-GCM
// ciphertext of the key rather than the hex key itself.
type AccountConfig struct {
	Name          string         `yaml:"name" default:"Primary"`
	PrivateKeyEnv string         `yaml:"private_key_env" default:"WALLET_PRIVATE_KEY"`
	MasterKeyEnv  string         `yaml:"master_key_env"`
	Wallets       []WalletConfig `yaml:"wallets" validate:"dive"`
}

// WalletConfig names one additional account key
type WalletConfig struct {
	Name          string `yaml:"name" validate:"required"`
	PrivateKeyEnv string `yaml:"private_key_env" validate:"required"`
}

// DatabaseConfig contains Postgres settings for the custom token store.
// The store falls back to memory when Host is empty.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port" default:"5432"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database" default:"wallet"`
	SSLMode  string `yaml:"ssl_mode" default:"disable" validate:"oneof=disable require verify-ca verify-full"`
}

// Enabled reports whether a Postgres store is configured
func (c DatabaseConfig) Enabled() bool {
	return c.Host != ""
}

// RedisConfig contains settings for the portfolio cache.
// The cache falls back to memory when Addr is empty.
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	Namespace string        `yaml:"namespace" default:"portfolio"`
	TTL       time.Duration `yaml:"ttl" default:"30m"`
}

// PortfolioConfig contains settings for portfolio valuation and its scheduled refresh.
// Prices maps token addresses to USD prices; unlisted tokens use FallbackPrice.
// NativePrice values the account's ETH balance.
type PortfolioConfig struct {
	RefreshInterval time.Duration     `yaml:"refresh_interval" default:"10m"`
	RefreshTimeout  time.Duration     `yaml:"refresh_timeout" default:"2m"`
	StaleAfter      time.Duration     `yaml:"stale_after" default:"10m"`
	FallbackPrice   string            `yaml:"fallback_price" default:"1" validate:"numeric"`
	NativePrice     string            `yaml:"native_price" default:"3000" validate:"numeric"`
	Prices          map[string]string `yaml:"prices" validate:"dive,keys,eth_addr,endkeys,numeric"`
}

// MonitoringConfig contains monitoring and metrics settings
type MonitoringConfig struct {
	Enabled     bool `yaml:"enabled" default:"true"`
	MetricsPort int  `yaml:"metrics_port" default:"9090"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format     string `yaml:"format" default:"json" validate:"oneof=json console"`
	OutputPath string `yaml:"output_path" default:"stdout"`
}

// ShutdownConfig contains graceful shutdown settings
type ShutdownConfig struct {
	Timeout time.Duration `yaml:"timeout" default:"30s"`
}

// Load loads configuration from a YAML file, applies defaults and validates it
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, applies defaults and validates it
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// GetConnectionString returns the Postgres DSN for the token store
func (c DatabaseConfig) GetConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}
