package config

import (
	"testing"
	"time"

	"github.com/gabapcia/nemwatch/internal/network"
	"github.com/gabapcia/nemwatch/internal/pkg/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("should apply defaults", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, "nemwatch", cfg.ServiceName)
		assert.False(t, cfg.Telemetry)
		assert.Empty(t, cfg.Redis.Addr)
		assert.Equal(t, 24*time.Hour, cfg.Redis.DedupTTL)
		assert.Equal(t, "mainnet", cfg.Monitor.Network)
		assert.Equal(t, []string{network.ChannelUnconfirmed, network.ChannelTransactions}, cfg.Monitor.Channels)
		assert.EqualValues(t, 16, cfg.Monitor.MaxDials)
		assert.EqualValues(t, 1, cfg.Monitor.RetryAttempts)
		assert.Equal(t, 10*time.Second, cfg.Monitor.HandshakeTimeout)
		assert.Equal(t, 5*time.Second, cfg.Node.Timeout)
	})

	t.Run("should read prefixed variables", func(t *testing.T) {
		t.Setenv("NEMWATCH_LOG_LEVEL", "debug")
		t.Setenv("NEMWATCH_REDIS_ADDR", "localhost:6379")
		t.Setenv("NEMWATCH_NETWORK", "testnet")
		t.Setenv("NEMWATCH_ADDRESSES", "TA,TB")
		t.Setenv("NEMWATCH_CHANNELS", "account")
		t.Setenv("NEMWATCH_RETRY_ATTEMPTS", "3")
		t.Setenv("NEMWATCH_PROBE", "true")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
		assert.Equal(t, "testnet", cfg.Monitor.Network)
		assert.Equal(t, []string{"TA", "TB"}, cfg.Monitor.Addresses)
		assert.Equal(t, []string{"account"}, cfg.Monitor.Channels)
		assert.EqualValues(t, 3, cfg.Monitor.RetryAttempts)
		assert.True(t, cfg.Monitor.Probe)
	})

	t.Run("should reject an invalid log level", func(t *testing.T) {
		t.Setenv("NEMWATCH_LOG_LEVEL", "loud")

		_, err := Load()
		assert.ErrorIs(t, err, validator.ErrValidationFailed)
	})

	t.Run("should reject an unknown network", func(t *testing.T) {
		t.Setenv("NEMWATCH_NETWORK", "moonnet")

		_, err := Load()
		assert.ErrorIs(t, err, network.ErrUnknownNetwork)
	})

	t.Run("should reject a malformed number", func(t *testing.T) {
		t.Setenv("NEMWATCH_MAX_DIALS", "many")

		_, err := Load()
		assert.Error(t, err)
	})
}

func TestMonitorEndpoint(t *testing.T) {
	t.Run("should fill ports from the network", func(t *testing.T) {
		host, port, wsPort := Monitor{Network: "mijinnet", Host: "node"}.Endpoint()

		assert.Equal(t, "node", host)
		assert.Equal(t, network.Mijinnet.Port, port)
		assert.Equal(t, network.Mijinnet.WSPort, wsPort)
	})

	t.Run("should keep explicit ports", func(t *testing.T) {
		_, port, wsPort := Monitor{Network: "testnet", Host: "node", Port: "1", WSPort: "2"}.Endpoint()

		assert.Equal(t, "1", port)
		assert.Equal(t, "2", wsPort)
	})
}
