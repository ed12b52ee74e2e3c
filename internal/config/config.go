// internal/config/config.go
package config

import (
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Plan     PlanConfig
	Cache    CacheConfig
	Archive  ArchiveConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host          string
	Port          string
	User          string
	Password      string
	DBName        string
	SSLMode       string
	MigrationsDir string
}

// AuthConfig carries the shared secrets the ERP connector and the
// frontend present as bearer tokens.
type AuthConfig struct {
	IngestToken string
	ReadToken   string
	ClientID    string
}

type PlanConfig struct {
	// IncludeReturns controls whether negative "return" sale rows count
	// against demand. Unresolved business policy, so configurable.
	IncludeReturns  bool
	DefaultCoverage int
	DefaultLookback int
}

type CacheConfig struct {
	Enabled        bool
	RedisURL       string
	RedisHost      string
	RedisPort      string
	RedisPassword  string
	RedisDB        int
	PlanTTLSeconds int
}

// ArchiveConfig points at an S3-compatible bucket for generated exports.
type ArchiveConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		// Set default values
		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("SERVER_READ_TIMEOUT", 15)
		viper.SetDefault("SERVER_WRITE_TIMEOUT", 30)
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "planner")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("DB_MIGRATIONS_DIR", "migrations")
		viper.SetDefault("INGEST_TOKEN", "")
		viper.SetDefault("READ_TOKEN", "")
		viper.SetDefault("CLIENT_ID", "")
		viper.SetDefault("PLAN_INCLUDE_RETURNS", true)
		viper.SetDefault("PLAN_DEFAULT_COVERAGE_DAYS", 30)
		viper.SetDefault("PLAN_DEFAULT_LOOKBACK_DAYS", 90)
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_PLAN_TTL_SECONDS", 60)
		viper.SetDefault("ARCHIVE_ENABLED", false)
		viper.SetDefault("ARCHIVE_ENDPOINT", "")
		viper.SetDefault("ARCHIVE_ACCESS_KEY", "")
		viper.SetDefault("ARCHIVE_SECRET_KEY", "")
		viper.SetDefault("ARCHIVE_BUCKET", "plan-exports")
		viper.SetDefault("ARCHIVE_USE_SSL", true)

		// Read from environment variables
		viper.AutomaticEnv()

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				Host:          viper.GetString("DB_HOST"),
				Port:          viper.GetString("DB_PORT"),
				User:          viper.GetString("DB_USER"),
				Password:      viper.GetString("DB_PASSWORD"),
				DBName:        viper.GetString("DB_NAME"),
				SSLMode:       viper.GetString("DB_SSLMODE"),
				MigrationsDir: viper.GetString("DB_MIGRATIONS_DIR"),
			},
			Auth: AuthConfig{
				IngestToken: viper.GetString("INGEST_TOKEN"),
				ReadToken:   viper.GetString("READ_TOKEN"),
				ClientID:    viper.GetString("CLIENT_ID"),
			},
			Plan: PlanConfig{
				IncludeReturns:  viper.GetBool("PLAN_INCLUDE_RETURNS"),
				DefaultCoverage: viper.GetInt("PLAN_DEFAULT_COVERAGE_DAYS"),
				DefaultLookback: viper.GetInt("PLAN_DEFAULT_LOOKBACK_DAYS"),
			},
			Cache: CacheConfig{
				Enabled:        viper.GetBool("CACHE_ENABLED"),
				RedisURL:       viper.GetString("REDIS_URL"),
				RedisHost:      viper.GetString("REDIS_HOST"),
				RedisPort:      viper.GetString("REDIS_PORT"),
				RedisPassword:  viper.GetString("REDIS_PASSWORD"),
				RedisDB:        viper.GetInt("REDIS_DB"),
				PlanTTLSeconds: viper.GetInt("CACHE_PLAN_TTL_SECONDS"),
			},
			Archive: ArchiveConfig{
				Enabled:   viper.GetBool("ARCHIVE_ENABLED"),
				Endpoint:  viper.GetString("ARCHIVE_ENDPOINT"),
				AccessKey: viper.GetString("ARCHIVE_ACCESS_KEY"),
				SecretKey: viper.GetString("ARCHIVE_SECRET_KEY"),
				Bucket:    viper.GetString("ARCHIVE_BUCKET"),
				UseSSL:    viper.GetBool("ARCHIVE_USE_SSL"),
			},
		}
	})

	return instance
}
