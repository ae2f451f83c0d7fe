// Package config loads nemwatch settings from NEMWATCH_* environment
// variables. Command-line flags take their defaults from here.
package config

import (
	"time"

	"github.com/gabapcia/nemwatch/internal/network"
	"github.com/gabapcia/nemwatch/internal/pkg/validator"

	"github.com/kelseyhightower/envconfig"
)

// Prefix of every environment variable read by Load.
const Prefix = "NEMWATCH"

// Config is the complete application configuration.
type Config struct {
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	ServiceName string `envconfig:"SERVICE_NAME" default:"nemwatch" validate:"required"`
	Telemetry   bool   `envconfig:"TELEMETRY" default:"false"`

	// Embedded so that their variables share the NEMWATCH_ prefix.
	Redis
	Monitor
	Node
}

// Redis configures the storage behind watchlists and published notifications.
// An empty Addr disables both.
type Redis struct {
	Addr         string        `envconfig:"REDIS_ADDR"`
	Username     string        `envconfig:"REDIS_USERNAME"`
	Password     string        `envconfig:"REDIS_PASSWORD"`
	DB           int           `envconfig:"REDIS_DB" default:"0" validate:"gte=0"`
	StreamMaxLen int64         `envconfig:"REDIS_STREAM_MAX_LEN" default:"10000" validate:"gte=0"`
	DedupTTL     time.Duration `envconfig:"REDIS_DEDUP_TTL" default:"24h"`
}

// Monitor holds the defaults of the monitor command.
type Monitor struct {
	Network          string        `envconfig:"NETWORK" default:"mainnet" validate:"required"`
	Host             string        `envconfig:"HOST" default:"127.0.0.1"`
	Port             string        `envconfig:"PORT"`    // network default when empty
	WSPort           string        `envconfig:"WS_PORT"` // network default when empty
	Addresses        []string      `envconfig:"ADDRESSES"`
	Channels         []string      `envconfig:"CHANNELS" default:"unconfirmed,transactions" validate:"min=1,dive,required"`
	MaxDials         int64         `envconfig:"MAX_DIALS" default:"16" validate:"gte=1"`
	RetryAttempts    uint          `envconfig:"RETRY_ATTEMPTS" default:"1" validate:"gte=1"`
	RetryDelay       time.Duration `envconfig:"RETRY_DELAY" default:"1s"`
	Probe            bool          `envconfig:"PROBE" default:"false"`
	Receipts         bool          `envconfig:"RECEIPTS" default:"false"`
	HandshakeTimeout time.Duration `envconfig:"HANDSHAKE_TIMEOUT" default:"10s"`
}

// Node configures the HTTP client used against the node's REST port.
type Node struct {
	Timeout      time.Duration `envconfig:"NODE_TIMEOUT" default:"5s"`
	RetryMax     int           `envconfig:"NODE_RETRY_MAX" default:"2" validate:"gte=0"`
	RetryWaitMin time.Duration `envconfig:"NODE_RETRY_WAIT_MIN" default:"1s"`
	RetryWaitMax time.Duration `envconfig:"NODE_RETRY_WAIT_MAX" default:"5s"`
}

// Load reads the configuration from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return Config{}, err
	}

	if err := validator.Validate(cfg); err != nil {
		return Config{}, err
	}

	if _, err := network.Lookup(cfg.Monitor.Network); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Endpoint returns the monitor host and ports, filling empty ports with the
// defaults of the configured network.
func (m Monitor) Endpoint() (host, port, wsPort string) {
	params, err := network.Lookup(m.Network)
	if err != nil {
		return m.Host, m.Port, m.WSPort
	}

	port, wsPort = m.Port, m.WSPort
	if port == "" {
		port = params.Port
	}
	if wsPort == "" {
		wsPort = params.WSPort
	}
	return m.Host, port, wsPort
}
