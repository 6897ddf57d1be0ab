package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Upstream    Upstream    `mapstructure:"upstream"`
	Journal     Journal     `mapstructure:"journal"`
	Logger      Logger      `mapstructure:"logger"`
	Server      Server      `mapstructure:"server"`
	Database    Database    `mapstructure:"database"`
	LegacyNotes LegacyNotes `mapstructure:"legacy_notes"`
}

// Upstream holds the configuration for the trade history / price API.
type Upstream struct {
	BaseURL        string  `mapstructure:"base_url"`
	ApiKey         string  `mapstructure:"api_key"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Journal holds the configuration for loading and caching wallet trades.
type Journal struct {
	Wallets         []string `mapstructure:"wallets"`
	PageSize        int      `mapstructure:"page_size"`
	CacheTTLMinutes int      `mapstructure:"cache_ttl_minutes"`
	SyncInterval    int      `mapstructure:"sync_interval"`
	StatusPort      int      `mapstructure:"status_port"` // 0 disables the sync status server
}

// Server holds the configuration for the web server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// LegacyNotes selects where per-token notes from older versions live.
// Backend is either "sqlite" (the main database) or "redis".
type LegacyNotes struct {
	Backend       string `mapstructure:"backend"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
// A .env file next to the config file is loaded into the environment first, if present.
func LoadConfig(path string) (config Config, err error) {
	if err = godotenv.Load(filepath.Join(path, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yml")

	// Allow environment variables to override config file
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	err = v.ReadInConfig()
	if err != nil {
		return
	}

	err = v.Unmarshal(&config)
	return
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("upstream.timeout_seconds", 15)
	v.SetDefault("upstream.rate_limit", 5) // requests per second
	v.SetDefault("upstream.rate_limit_burst", 2)
	v.SetDefault("journal.page_size", 50)
	v.SetDefault("journal.cache_ttl_minutes", 5)
	v.SetDefault("journal.sync_interval", 300) // seconds
	v.SetDefault("journal.status_port", 8081)
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.dsn", "journal.db")
	v.SetDefault("legacy_notes.backend", "sqlite")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
}
