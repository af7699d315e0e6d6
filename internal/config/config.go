// internal/config/config.go
package config

import (
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Forecast ForecastConfig
	Advisory AdvisoryConfig
	Storage  StorageConfig
	LogLevel string
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
	MaxOpenConns  int
	MaxConcurrent int64
}

type CacheConfig struct {
	Enabled           bool
	RedisURL          string
	RedisHost         string
	RedisPort         string
	RedisPassword     string
	RedisDB           int
	HistoryTTLSeconds int
}

type ForecastConfig struct {
	SmoothingAlpha      float64
	CorrelationRho      float64
	DeviationThreshold  float64
	AdvisoryEnabled     bool
	DefaultLeadTimeDays int
	DefaultServiceLevel float64
	LookupTimeout       time.Duration
	BatchConcurrency    int
}

type AdvisoryConfig struct {
	BaseURL      string
	APIKey       string
	Model        string
	Timeout      time.Duration
	MaxRetries   int
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	Prefix    string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		setDefaults()
		viper.AutomaticEnv()

		instance = build()
	})

	return instance
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_MODE", "debug")
	viper.SetDefault("SERVER_READ_TIMEOUT", 15)
	viper.SetDefault("SERVER_WRITE_TIMEOUT", 30)
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	viper.SetDefault("LOG_LEVEL", "info")

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "autopo")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_CONCURRENT_TX", 10)

	viper.SetDefault("CACHE_ENABLED", false)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_HOST", "127.0.0.1")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_HISTORY_TTL_SECONDS", 300)

	viper.SetDefault("FORECAST_SMOOTHING_ALPHA", 0.4)
	viper.SetDefault("FORECAST_CORRELATION_RHO", 0.0)
	viper.SetDefault("FORECAST_DEVIATION_THRESHOLD", 0.15)
	viper.SetDefault("FORECAST_ADVISORY_ENABLED", false)
	viper.SetDefault("FORECAST_DEFAULT_LEAD_TIME_DAYS", 7)
	viper.SetDefault("FORECAST_DEFAULT_SERVICE_LEVEL", 95.0)
	viper.SetDefault("FORECAST_LOOKUP_TIMEOUT", "3s")
	viper.SetDefault("FORECAST_BATCH_CONCURRENCY", 4)

	viper.SetDefault("ADVISORY_BASE_URL", "https://api.openai.com")
	viper.SetDefault("ADVISORY_API_KEY", "")
	viper.SetDefault("ADVISORY_MODEL", "gpt-4o-mini")
	viper.SetDefault("ADVISORY_TIMEOUT", "20s")
	viper.SetDefault("ADVISORY_MAX_RETRIES", 2)
	viper.SetDefault("ADVISORY_TOKEN_URL", "")
	viper.SetDefault("ADVISORY_CLIENT_ID", "")
	viper.SetDefault("ADVISORY_CLIENT_SECRET", "")
	viper.SetDefault("ADVISORY_SCOPES", "")

	viper.SetDefault("STORAGE_ENABLED", false)
	viper.SetDefault("STORAGE_ENDPOINT", "")
	viper.SetDefault("STORAGE_ACCESS_KEY", "")
	viper.SetDefault("STORAGE_SECRET_KEY", "")
	viper.SetDefault("STORAGE_BUCKET", "action-plans")
	viper.SetDefault("STORAGE_REGION", "us-east-1")
	viper.SetDefault("STORAGE_USE_SSL", true)
	viper.SetDefault("STORAGE_PREFIX", "approved")
}

func build() *Config {
	return &Config{
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
			MaxOpenConns:  viper.GetInt("DB_MAX_OPEN_CONNS"),
			MaxConcurrent: viper.GetInt64("DB_MAX_CONCURRENT_TX"),
		},
		Cache: CacheConfig{
			Enabled:           viper.GetBool("CACHE_ENABLED"),
			RedisURL:          viper.GetString("REDIS_URL"),
			RedisHost:         viper.GetString("REDIS_HOST"),
			RedisPort:         viper.GetString("REDIS_PORT"),
			RedisPassword:     viper.GetString("REDIS_PASSWORD"),
			RedisDB:           viper.GetInt("REDIS_DB"),
			HistoryTTLSeconds: viper.GetInt("CACHE_HISTORY_TTL_SECONDS"),
		},
		Forecast: ForecastConfig{
			SmoothingAlpha:      viper.GetFloat64("FORECAST_SMOOTHING_ALPHA"),
			CorrelationRho:      viper.GetFloat64("FORECAST_CORRELATION_RHO"),
			DeviationThreshold:  viper.GetFloat64("FORECAST_DEVIATION_THRESHOLD"),
			AdvisoryEnabled:     viper.GetBool("FORECAST_ADVISORY_ENABLED"),
			DefaultLeadTimeDays: viper.GetInt("FORECAST_DEFAULT_LEAD_TIME_DAYS"),
			DefaultServiceLevel: viper.GetFloat64("FORECAST_DEFAULT_SERVICE_LEVEL"),
			LookupTimeout:       viper.GetDuration("FORECAST_LOOKUP_TIMEOUT"),
			BatchConcurrency:    viper.GetInt("FORECAST_BATCH_CONCURRENCY"),
		},
		Advisory: AdvisoryConfig{
			BaseURL:      viper.GetString("ADVISORY_BASE_URL"),
			APIKey:       viper.GetString("ADVISORY_API_KEY"),
			Model:        viper.GetString("ADVISORY_MODEL"),
			Timeout:      viper.GetDuration("ADVISORY_TIMEOUT"),
			MaxRetries:   viper.GetInt("ADVISORY_MAX_RETRIES"),
			TokenURL:     viper.GetString("ADVISORY_TOKEN_URL"),
			ClientID:     viper.GetString("ADVISORY_CLIENT_ID"),
			ClientSecret: viper.GetString("ADVISORY_CLIENT_SECRET"),
			Scopes:       splitList(viper.GetString("ADVISORY_SCOPES")),
		},
		Storage: StorageConfig{
			Enabled:   viper.GetBool("STORAGE_ENABLED"),
			Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
			AccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: viper.GetString("STORAGE_SECRET_KEY"),
			Bucket:    viper.GetString("STORAGE_BUCKET"),
			Region:    viper.GetString("STORAGE_REGION"),
			UseSSL:    viper.GetBool("STORAGE_USE_SSL"),
			Prefix:    viper.GetString("STORAGE_PREFIX"),
		},
		LogLevel: viper.GetString("LOG_LEVEL"),
	}
}

// DSN renders the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return "host=" + c.Host + " port=" + c.Port + " user=" + c.User + " password=" + c.Password +
		" dbname=" + c.DBName + " sslmode=" + c.SSLMode
}

// URL renders the postgres:// form used by migrate and pgx.
func (c DatabaseConfig) URL() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + c.Port + "/" + c.DBName + "?sslmode=" + c.SSLMode
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
