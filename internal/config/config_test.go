package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPaymentConfigDefaults(t *testing.T) {
	t.Setenv("PAYMENT_GATEWAY_URL", "https://pay.example.test/charge")
	t.Setenv("PAYMENT_CURRENCY", "eur")
	t.Setenv("PAYMENT_TIMEOUT", "nonsense")

	cfg := LoadPaymentConfig()
	assert.Equal(t, "https://pay.example.test/charge", cfg.PayPalURL)
	assert.Equal(t, "EUR", cfg.Currency)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.True(t, cfg.StrictMethods)

	t.Setenv("PAYMENT_STRICT_METHODS", "off")
	assert.False(t, LoadPaymentConfig().StrictMethods)
}

func TestLoadRateLimitConfigNormalizes(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "1m")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 5*time.Minute, cfg.TTL)
}

func TestLoadQueueConfigFallsBackToAMQPURL(t *testing.T) {
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("AMQP_URL", "amqp://u:p@broker:5672/")
	cfg := LoadQueueConfig()
	assert.Equal(t, "amqp://u:p@broker:5672/", cfg.URL)
	assert.True(t, cfg.Enabled)
	assert.False(t, cfg.ConsumerEnabled)
	assert.Equal(t, "logs", cfg.LogDir)
	assert.Equal(t, 2*time.Second, cfg.DialTimeout)

	t.Setenv("QUEUE_DIAL_TIMEOUT", "500ms")
	assert.Equal(t, 500*time.Millisecond, LoadQueueConfig().DialTimeout)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CINE_DOTENV_PROBE=from-file\nCACHE_TTL=45s\n"), 0o600))
	t.Setenv("CINE_DOTENV_PROBE", "")
	os.Unsetenv("CINE_DOTENV_PROBE")
	t.Setenv("CACHE_TTL", "")
	os.Unsetenv("CACHE_TTL")
	t.Cleanup(func() {
		os.Unsetenv("CINE_DOTENV_PROBE")
		os.Unsetenv("CACHE_TTL")
	})

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("CINE_DOTENV_PROBE"))
	assert.Equal(t, 45*time.Second, LoadCacheConfig().TTL)

	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
}
