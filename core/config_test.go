package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "lna-storefront", cfg.Name)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/health", cfg.HTTP.HealthCheckPath)
	assert.Equal(t, 15*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 10, cfg.Backend.DefaultPageSize)
	assert.False(t, cfg.Backend.RetryEnabled)
	assert.Equal(t, "inmemory", cfg.Cart.Provider)
	assert.Equal(t, 30*24*time.Hour, cfg.Cart.TTL)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "Olá! Gostaria de fazer um pedido:", cfg.Checkout.Greeting)
	assert.Equal(t, "/admin", cfg.Auth.AdminPathPrefix)
	assert.Equal(t, "/login", cfg.Auth.LoginPath)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestNewConfigWithOptions(t *testing.T) {
	cfg, err := NewConfig(
		WithName("test-storefront"),
		WithPort(9090),
		WithBackendURL("https://api.example.com"),
		WithCache(false, 0, 0),
		WithCheckout("5583999990000"),
	)
	require.NoError(t, err)

	assert.Equal(t, "test-storefront", cfg.Name)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "https://api.example.com", cfg.Backend.BaseURL)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "5583999990000", cfg.Checkout.WhatsAppNumber)
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("STOREFRONT_NAME", "env-storefront")
	t.Setenv("STOREFRONT_PORT", "9191")
	t.Setenv("STOREFRONT_BACKEND_URL", "https://env.example.com")
	t.Setenv("STOREFRONT_CACHE_TTL", "90s")
	t.Setenv("STOREFRONT_CART_PROVIDER", "redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "env-storefront", cfg.Name)
	assert.Equal(t, 9191, cfg.Port)
	assert.Equal(t, "https://env.example.com", cfg.Backend.BaseURL)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "redis", cfg.Cart.Provider)
	assert.Equal(t, "redis://localhost:6379", cfg.Cart.RedisURL)
}

func TestOptionsOverrideEnv(t *testing.T) {
	t.Setenv("STOREFRONT_PORT", "9191")

	cfg, err := NewConfig(
		WithPort(7070),
		WithBackendURL("https://api.example.com"),
	)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Port)
}

func TestTelemetryEndpointAutoEnables(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")

	cfg, err := NewConfig(WithBackendURL("https://api.example.com"))
	require.NoError(t, err)

	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "collector:4317", cfg.Telemetry.Endpoint)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.Port = 0 },
			wantErr: ErrInvalidConfiguration,
		},
		{
			name:    "missing name",
			mutate:  func(c *Config) { c.Name = "" },
			wantErr: ErrMissingConfiguration,
		},
		{
			name:    "missing backend URL",
			mutate:  func(c *Config) { c.Backend.BaseURL = "" },
			wantErr: ErrMissingConfiguration,
		},
		{
			name: "redis cart without URL",
			mutate: func(c *Config) {
				c.Cart.Provider = "redis"
				c.Cart.RedisURL = ""
			},
			wantErr: ErrMissingConfiguration,
		},
		{
			name: "telemetry without endpoint",
			mutate: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.Endpoint = ""
			},
			wantErr: ErrMissingConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Backend.BaseURL = "https://api.example.com"
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMockBackendSkipsURLRequirement(t *testing.T) {
	cfg, err := NewConfig(WithMockBackend(true))
	require.NoError(t, err)
	assert.True(t, cfg.Development.MockBackend)
	assert.Empty(t, cfg.Backend.BaseURL)
}

func TestLoadFromYAMLFile(t *testing.T) {
	content := `
name: yaml-storefront
port: 8181
backend:
  base_url: https://yaml.example.com
  timeout: 20s
cache:
  enabled: false
checkout:
  whatsapp_number: "5583911112222"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := NewConfig(WithConfigFile(path))
	require.NoError(t, err)

	assert.Equal(t, "yaml-storefront", cfg.Name)
	assert.Equal(t, 8181, cfg.Port)
	assert.Equal(t, "https://yaml.example.com", cfg.Backend.BaseURL)
	assert.Equal(t, 20*time.Second, cfg.Backend.Timeout)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "5583911112222", cfg.Checkout.WhatsAppNumber)
}

func TestLoadFromJSONFile(t *testing.T) {
	content := `{
  "name": "json-storefront",
  "backend": {"base_url": "https://json.example.com"}
}`
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := NewConfig(WithConfigFile(path))
	require.NoError(t, err)

	assert.Equal(t, "json-storefront", cfg.Name)
	assert.Equal(t, "https://json.example.com", cfg.Backend.BaseURL)
}

func TestLoadFromFileRejectsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("name = 'x'"), 0o600))

	_, err := NewConfig(WithConfigFile(path))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestWithRedisCart(t *testing.T) {
	cfg, err := NewConfig(
		WithBackendURL("https://api.example.com"),
		WithRedisCart("redis://localhost:6379"),
	)
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.Cart.Provider)
	assert.Equal(t, "redis://localhost:6379", cfg.Cart.RedisURL)
}

func TestWithBackendRetry(t *testing.T) {
	cfg, err := NewConfig(
		WithBackendURL("https://api.example.com"),
		WithBackendRetry(5),
	)
	require.NoError(t, err)

	assert.True(t, cfg.Backend.RetryEnabled)
	assert.Equal(t, 5, cfg.Backend.RetryAttempts)
}
