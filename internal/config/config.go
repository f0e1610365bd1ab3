// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port           string `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`

	DBHost       string `mapstructure:"DB_HOST"`
	DBPort       string `mapstructure:"DB_PORT"`
	DBUser       string `mapstructure:"DB_USER"`
	DBPassword   string `mapstructure:"DB_PASSWORD"`
	DBName       string `mapstructure:"DB_NAME"`
	DBSSLMode    string `mapstructure:"DB_SSLMODE"`
	DBSchemaMode string `mapstructure:"DB_SCHEMA_MODE"`

	RedisURL string `mapstructure:"REDIS_URL"`

	JWTSecret   string `mapstructure:"JWT_SECRET"`
	JWTIssuer   string `mapstructure:"JWT_ISSUER"`
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`

	LocationIQAPIKey  string `mapstructure:"LOCATIONIQ_API_KEY"`
	LocationIQBaseURL string `mapstructure:"LOCATIONIQ_BASE_URL"`
	GeocodeDelayMS    int    `mapstructure:"GEOCODE_DELAY_MS"`
	GeocodeTimeoutMS  int    `mapstructure:"GEOCODE_TIMEOUT_MS"`

	ClusterCount           int `mapstructure:"CLUSTER_COUNT"`
	ClusterCacheTTLMinutes int `mapstructure:"CLUSTER_CACHE_TTL_MINUTES"`

	FeedDefaultPageSize int `mapstructure:"FEED_DEFAULT_PAGE_SIZE"`
	FeedMaxPageSize     int `mapstructure:"FEED_MAX_PAGE_SIZE"`
	FeedTopWindowHours  int `mapstructure:"FEED_TOP_WINDOW_HOURS"`

	RecommendationLimit        int     `mapstructure:"RECOMMENDATION_LIMIT"`
	RecommendationRadiusMeters float64 `mapstructure:"RECOMMENDATION_RADIUS_METERS"`

	TracingEnabled     bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter    string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint       string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSampleRatio float64 `mapstructure:"TRACING_SAMPLE_RATIO"`
}

// LoadConfig loads application configuration from file and environment variables.
// A .env file in the working directory is read first; real environment
// variables win over it.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read .env: %w", err)
	}

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base config file is optional.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("PORT", "8375")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "geofeed")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_SCHEMA_MODE", "hybrid")

	viper.SetDefault("REDIS_URL", "localhost:6379")

	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("JWT_ISSUER", "geofeed-api")
	viper.SetDefault("JWT_AUDIENCE", "geofeed-client")

	viper.SetDefault("LOCATIONIQ_API_KEY", "")
	viper.SetDefault("LOCATIONIQ_BASE_URL", "https://us1.locationiq.com")
	viper.SetDefault("GEOCODE_DELAY_MS", 1000)
	viper.SetDefault("GEOCODE_TIMEOUT_MS", 5000)

	viper.SetDefault("CLUSTER_COUNT", 10)
	viper.SetDefault("CLUSTER_CACHE_TTL_MINUTES", 30)

	viper.SetDefault("FEED_DEFAULT_PAGE_SIZE", 10)
	viper.SetDefault("FEED_MAX_PAGE_SIZE", 50)
	viper.SetDefault("FEED_TOP_WINDOW_HOURS", 7*24)

	viper.SetDefault("RECOMMENDATION_LIMIT", 20)
	viper.SetDefault("RECOMMENDATION_RADIUS_METERS", 5000.0)

	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLE_RATIO", 1.0)
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.FeedMaxPageSize <= 0 {
		return errors.New("FEED_MAX_PAGE_SIZE must be positive")
	}
	if c.FeedDefaultPageSize <= 0 || c.FeedDefaultPageSize > c.FeedMaxPageSize {
		return errors.New("FEED_DEFAULT_PAGE_SIZE must be between 1 and FEED_MAX_PAGE_SIZE")
	}
	if c.ClusterCount <= 0 {
		return errors.New("CLUSTER_COUNT must be positive")
	}
	if c.RecommendationLimit <= 0 {
		return errors.New("RECOMMENDATION_LIMIT must be positive")
	}
	if c.RecommendationRadiusMeters <= 0 {
		return errors.New("RECOMMENDATION_RADIUS_METERS must be positive")
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.LocationIQAPIKey == "" {
			log.Println("WARNING: LOCATIONIQ_API_KEY is empty in production. Cluster names will use the fallback label.")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			log.Println("WARNING: DB_SSLMODE is 'disable' in production. It is highly recommended to use SSL for database connections.")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}

// IsProduction reports whether the config targets a production environment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// GeocodeDelay is the minimum spacing between reverse-geocoding calls.
func (c *Config) GeocodeDelay() time.Duration {
	return time.Duration(c.GeocodeDelayMS) * time.Millisecond
}

// GeocodeTimeout bounds a single reverse-geocoding HTTP call.
func (c *Config) GeocodeTimeout() time.Duration {
	return time.Duration(c.GeocodeTimeoutMS) * time.Millisecond
}

// ClusterCacheTTL is how long computed clusters stay cached.
func (c *Config) ClusterCacheTTL() time.Duration {
	return time.Duration(c.ClusterCacheTTLMinutes) * time.Minute
}

// FeedTopWindow is the look-back window for the top feed.
func (c *Config) FeedTopWindow() time.Duration {
	return time.Duration(c.FeedTopWindowHours) * time.Hour
}
