package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/andresuchdata/r2bridge/internal/domain"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	R2       R2Config
	Server   ServerConfig
	Database DatabaseConfig
	Audit    AuditConfig
	Cache    CacheConfig
	Log      LogConfig
}

// R2Config holds the default account credential and client tuning.
type R2Config struct {
	AccountID         string
	APIToken          string
	APIEndpoint       string
	AccessKeyID       string
	SecretAccessKey   string
	StorageDomain     string
	StorageEndpoint   string
	HTTPTimeout       time.Duration
	DeleteConcurrency int
}

// Credential returns the configured account credential.
func (c R2Config) Credential() domain.Credential {
	return domain.Credential{
		AccountID:       c.AccountID,
		APIToken:        c.APIToken,
		APIEndpoint:     c.APIEndpoint,
		AccessKeyID:     c.AccessKeyID,
		SecretAccessKey: c.SecretAccessKey,
	}
}

type ServerConfig struct {
	Port           string
	AdminPort      string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN prefers DB_URL and otherwise builds a key/value connection string.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type AuditConfig struct {
	Enabled bool
}

type CacheConfig struct {
	Enabled       bool
	RedisURL      string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	TTLSeconds    int
}

type LogConfig struct {
	Level string
	JSON  bool
}

var (
	once     sync.Once
	instance *Config
)

// Load reads .env and the environment once per process.
func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		v := viper.New()
		SetDefaults(v)
		v.AutomaticEnv()

		instance = FromViper(v)
	})

	return instance
}

// SetDefaults registers every known key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("R2_API_ENDPOINT", "https://api.cloudflare.com/client/v4")
	v.SetDefault("R2_STORAGE_DOMAIN", "r2.cloudflarestorage.com")
	v.SetDefault("R2_STORAGE_ENDPOINT", "")
	v.SetDefault("HTTP_TIMEOUT_SECONDS", 30)
	v.SetDefault("BATCH_DELETE_CONCURRENCY", 1)

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("ADMIN_PORT", "9090")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_READ_TIMEOUT", 30)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 60)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://127.0.0.1:3000"})

	v.SetDefault("DB_URL", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "r2bridge")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("AUDIT_ENABLED", false)

	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_TTL_SECONDS", 60)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_JSON", false)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) *Config {
	timeout := time.Duration(v.GetInt("HTTP_TIMEOUT_SECONDS")) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	concurrency := v.GetInt("BATCH_DELETE_CONCURRENCY")
	if concurrency < 1 {
		concurrency = 1
	}

	return &Config{
		R2: R2Config{
			AccountID:         v.GetString("R2_ACCOUNT_ID"),
			APIToken:          v.GetString("R2_API_TOKEN"),
			APIEndpoint:       v.GetString("R2_API_ENDPOINT"),
			AccessKeyID:       v.GetString("R2_ACCESS_KEY_ID"),
			SecretAccessKey:   v.GetString("R2_SECRET_ACCESS_KEY"),
			StorageDomain:     v.GetString("R2_STORAGE_DOMAIN"),
			StorageEndpoint:   v.GetString("R2_STORAGE_ENDPOINT"),
			HTTPTimeout:       timeout,
			DeleteConcurrency: concurrency,
		},
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			AdminPort:      v.GetString("ADMIN_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			URL:      v.GetString("DB_URL"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Audit: AuditConfig{
			Enabled: v.GetBool("AUDIT_ENABLED"),
		},
		Cache: CacheConfig{
			Enabled:       v.GetBool("CACHE_ENABLED"),
			RedisURL:      v.GetString("REDIS_URL"),
			RedisHost:     v.GetString("REDIS_HOST"),
			RedisPort:     v.GetString("REDIS_PORT"),
			RedisPassword: v.GetString("REDIS_PASSWORD"),
			RedisDB:       v.GetInt("REDIS_DB"),
			TTLSeconds:    v.GetInt("CACHE_TTL_SECONDS"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
			JSON:  v.GetBool("LOG_JSON"),
		},
	}
}
