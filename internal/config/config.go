package config

import (
	"fmt"
	"os"
	"strconv"
)

// Regional DeyeCloud API entry points. The token is bound to the data
// center that issued it, so the region must match the account.
var regionBaseURLs = map[string]string{
	"eu1": "https://eu1-developer.deyecloud.com",
	"us1": "https://us1-developer.deyecloud.com",
}

// Config holds application configuration
type Config struct {
	// Server
	ServerPort int
	StaticDir  string

	// DeyeCloud upstream
	AppID       string
	AppSecret   string
	Email       string
	Password    string
	Region      string
	ManualToken string // bypasses login entirely when set

	// Cache
	KVPath       string // sqlite file; empty selects the in-memory store
	DataCacheTTL int    // seconds, snapshot freshness window
	TokenTTL     int    // seconds, stored token lifetime

	// Channels
	ChannelsFile string

	// InfluxDB history (optional)
	InfluxURL      string
	InfluxToken    string
	InfluxDatabase string

	// Logging
	LogLevel string
	LogDir   string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort: getEnvInt("SERVER_PORT", 8080),
		StaticDir:  getEnv("STATIC_DIR", "./static"),

		AppID:       getEnv("DEYE_APP_ID", ""),
		AppSecret:   getEnv("DEYE_APP_SECRET", ""),
		Email:       getEnv("DEYE_EMAIL", ""),
		Password:    getEnv("DEYE_PASSWORD", ""),
		Region:      getEnv("DEYE_REGION", "eu1"),
		ManualToken: getEnv("DEYE_MANUAL_TOKEN", ""),

		KVPath:       getEnv("KV_PATH", "./deye-status.db"),
		DataCacheTTL: getEnvInt("DATA_CACHE_TTL", 300),
		TokenTTL:     getEnvInt("TOKEN_CACHE_TTL", 5184000), // 60 days

		ChannelsFile: getEnv("CHANNELS_FILE", ""),

		InfluxURL:      getEnv("INFLUXDB_URL", ""),
		InfluxToken:    getEnv("INFLUXDB_TOKEN", ""),
		InfluxDatabase: getEnv("INFLUXDB_DATABASE", "battery_history"),

		LogLevel: getEnv("LOG_LEVEL", "INFO"),
		LogDir:   getEnv("LOG_DIRECTORY", "./logs"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if _, ok := regionBaseURLs[c.Region]; !ok {
		return fmt.Errorf("invalid DEYE_REGION: %s (use 'eu1' or 'us1')", c.Region)
	}

	if c.DataCacheTTL < 1 {
		return fmt.Errorf("invalid DATA_CACHE_TTL: %d (must be positive seconds)", c.DataCacheTTL)
	}

	if c.TokenTTL < 1 {
		return fmt.Errorf("invalid TOKEN_CACHE_TTL: %d (must be positive seconds)", c.TokenTTL)
	}

	return nil
}

// BaseURL returns the upstream API entry point for the configured region.
func (c *Config) BaseURL() string {
	return regionBaseURLs[c.Region]
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
