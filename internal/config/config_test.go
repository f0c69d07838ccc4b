package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAdmin = "0x90F79bf6EB2c4f870365E785982E1f101E93b906"

func TestLoadAPIConfig(t *testing.T) {
	tests := []struct {
		name        string
		configFile  string
		expectError bool
		validate    func(*testing.T, *APIConfig)
	}{
		{
			name: "valid config file",
			configFile: `
debug: true
sentry_dsn: "https://sentry.example.com"
server:
  host: "127.0.0.1"
  port: 9090
  read_timeout: 20
  write_timeout: 20
  idle_timeout: 180
database:
  host: localhost
  port: 5432
  user: testuser
  password: testpass
  dbname: testdb
nats:
  url: "nats://localhost:4222"
  stream_name: "CUSTOM_EVENTS"
auth:
  jwt_public_key: "test-public-key"
  api_keys:
    - "key1"
    - "key2"
market:
  admin: "` + testAdmin + `"
  uri_scheme: "tokenhaus"
  store: "postgres"
webhook:
  clients:
    - name: "accounting"
      url: "https://hooks.example.com/market"
      secret: "hook-secret"
  max_retries: 3
  timeout: "5s"
`,
			expectError: false,
			validate: func(t *testing.T, cfg *APIConfig) {
				assert.True(t, cfg.Debug)
				assert.Equal(t, "https://sentry.example.com", cfg.SentryDSN)
				assert.Equal(t, "127.0.0.1", cfg.Server.Host)
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 20, cfg.Server.ReadTimeout)
				assert.Equal(t, 180, cfg.Server.IdleTimeout)
				assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
				assert.Equal(t, "CUSTOM_EVENTS", cfg.NATS.StreamName)
				assert.Equal(t, "test-public-key", cfg.Auth.JWTPublicKey)
				assert.Len(t, cfg.Auth.APIKeys, 2)
				assert.Equal(t, testAdmin, cfg.Market.Admin)
				assert.Equal(t, "tokenhaus", cfg.Market.URIScheme)
				assert.Equal(t, StorePostgres, cfg.Market.Store)
				require.Len(t, cfg.Webhook.Clients, 1)
				assert.Equal(t, "accounting", cfg.Webhook.Clients[0].Name)
				assert.Equal(t, "https://hooks.example.com/market", cfg.Webhook.Clients[0].URL)
				assert.Equal(t, "hook-secret", cfg.Webhook.Clients[0].Secret)
				assert.Equal(t, 3, cfg.Webhook.MaxRetries)
				assert.Equal(t, 5*time.Second, cfg.Webhook.Timeout)
			},
		},
		{
			name: "config with defaults",
			configFile: `
market:
  admin: "` + testAdmin + `"
`,
			expectError: false,
			validate: func(t *testing.T, cfg *APIConfig) {
				assert.False(t, cfg.Debug)
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 10, cfg.Server.ReadTimeout)
				assert.Equal(t, 10, cfg.Server.WriteTimeout)
				assert.Equal(t, 120, cfg.Server.IdleTimeout)
				assert.Equal(t, "MARKET_EVENTS", cfg.NATS.StreamName)
				assert.Equal(t, 10, cfg.NATS.MaxReconnects)
				assert.Equal(t, "2s", cfg.NATS.ReconnectWait.String())
				assert.Equal(t, "asset", cfg.Market.URIScheme)
				assert.Equal(t, StoreMemory, cfg.Market.Store)
				assert.Equal(t, 5, cfg.Webhook.MaxRetries)
				assert.Equal(t, 10*time.Second, cfg.Webhook.Timeout)
				assert.Equal(t, 10, cfg.Webhook.PoolSize)
			},
		},
		{
			name: "missing admin identity",
			configFile: `
server:
  port: 8080
`,
			expectError: true,
			validate:    nil,
		},
		{
			name: "unknown store backend",
			configFile: `
market:
  admin: "` + testAdmin + `"
  store: "cassandra"
`,
			expectError: true,
			validate:    nil,
		},
		{
			name: "postgres store without database host",
			configFile: `
market:
  admin: "` + testAdmin + `"
  store: "postgres"
`,
			expectError: true,
			validate:    nil,
		},
		{
			name: "invalid yaml",
			configFile: `
				server:
				  port: invalid
			`,
			expectError: true,
			validate:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			configFile := filepath.Join(tmpDir, "config.yaml")
			err := os.WriteFile(configFile, []byte(tt.configFile), 0600)
			require.NoError(t, err)

			cfg, err := LoadAPIConfig(configFile, "")

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)
				if tt.validate != nil {
					tt.validate(t, cfg)
				}
			}
		})
	}
}

func TestLoadAPIConfigFromEnvOnly(t *testing.T) {
	// No config file at all: everything comes from env vars and defaults
	t.Setenv("MARKETD_MARKET_ADMIN", testAdmin)
	t.Setenv("MARKETD_SERVER_PORT", "9999")

	tmpDir := t.TempDir()
	cfg, err := LoadAPIConfig(filepath.Join(tmpDir, "nonexistent.yaml"), tmpDir)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, testAdmin, cfg.Market.Admin)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, StoreMemory, cfg.Market.Store)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name     string
		config   DatabaseConfig
		expected string
	}{
		{
			name: "complete config",
			config: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "testuser",
				Password: "testpass",
				DBName:   "testdb",
				SSLMode:  "require",
			},
			expected: "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=require",
		},
		{
			name: "with special characters in password",
			config: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "testuser",
				Password: "p@ssw0rd!",
				DBName:   "testdb",
				SSLMode:  "disable",
			},
			expected: "host=localhost port=5432 user=testuser password=p@ssw0rd! dbname=testdb sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dsn := tt.config.DSN()
			assert.Equal(t, tt.expected, dsn)
		})
	}
}

func TestConfigWithEnvironmentVariables(t *testing.T) {
	tmpDir := t.TempDir()

	// Create temporary directory for env files
	envDir := filepath.Join(tmpDir, "env")
	err := os.MkdirAll(envDir, 0750)
	require.NoError(t, err)

	// Create .env file with environment variables
	// Note: Viper uses MARKETD_ prefix, so env vars need the prefix
	envFile := filepath.Join(envDir, ".env")
	envContent := `MARKETD_DEBUG=true
MARKETD_DATABASE_HOST=env-host
MARKETD_DATABASE_PORT=3306
MARKETD_DATABASE_USER=env-user
MARKETD_DATABASE_PASSWORD=env-pass
MARKETD_DATABASE_DBNAME=env-db
MARKETD_DATABASE_SSLMODE=require
`
	err = os.WriteFile(envFile, []byte(envContent), 0600)
	require.NoError(t, err)

	// Create config file with different values to verify env vars override
	configPath := filepath.Join(tmpDir, "config.yaml")
	configFile := `
debug: false
database:
  host: file-host
  port: 5432
  user: file-user
  password: file-pass
  dbname: file-db
  sslmode: disable
market:
  admin: "` + testAdmin + `"
`

	err = os.WriteFile(configPath, []byte(configFile), 0600)
	require.NoError(t, err)

	// Load config with envPath pointing to the temporary env directory
	cfg, err := LoadAPIConfig(configPath, envDir)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Environment variables loaded from the .env file override config file
	// values: godotenv.Overload sets real env vars and viper's AutomaticEnv
	// picks them up with the MARKETD_ prefix
	assert.True(t, cfg.Debug)
	assert.Equal(t, "env-host", cfg.Database.Host)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, "env-user", cfg.Database.User)
	assert.Equal(t, "env-pass", cfg.Database.Password)
	assert.Equal(t, "env-db", cfg.Database.DBName)
	assert.Equal(t, "require", cfg.Database.SSLMode)
}
