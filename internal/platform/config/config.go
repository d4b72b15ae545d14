package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/SscSPs/therapy_app/internal/apperrors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Environments recognised by APP_ENV.
const (
	EnvLocal       = "local"
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Storage drivers recognised by STORAGE_DRIVER.
const (
	StoragePostgres = "postgres"
	StorageMongo    = "mongo"
	StorageMemory   = "memory"
)

// Config holds application configuration. It is loaded once at process start and
// passed explicitly; nothing else reads the environment.
type Config struct {
	Environment     string
	Port            string
	IsProduction    bool
	ShutdownTimeout time.Duration

	// Storage
	StorageDriver  string
	DatabaseURL    string
	EnableDBCheck  bool
	MigrationsPath string
	MongoURI       string
	MongoDatabase  string

	// Token codec
	AccessTokenSecret          string
	AccessTokenExpiryDuration  time.Duration
	RefreshTokenSecret         string
	RefreshTokenExpiryDuration time.Duration
	JWTIssuer                  string

	// Refresh cookie
	RefreshTokenCookieName string
	RefreshTokenCookiePath string

	// Edge
	AuthRateLimit      int64
	AuthRatePeriod     time.Duration
	CORSAllowedOrigins []string
}

// IsLocal reports whether the process runs in local development mode.
func (c *Config) IsLocal() bool {
	return c.Environment == EnvLocal
}

// SecureCookies reports whether cookies must carry the Secure attribute.
func (c *Config) SecureCookies() bool {
	return !c.IsLocal()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", EnvLocal)
	v.SetDefault("PORT", "8080")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("STORAGE_DRIVER", StoragePostgres)
	v.SetDefault("PGSQL_URL", "")
	v.SetDefault("ENABLE_DB_CHECK", true)
	v.SetDefault("MIGRATIONS_PATH", "file://migrations")
	v.SetDefault("MONGO_URI", "")
	v.SetDefault("MONGO_DATABASE", "therapy")
	v.SetDefault("ACCESS_TOKEN_SECRET", "")
	v.SetDefault("ACCESS_TOKEN_EXPIRY_DURATION", "15m")
	v.SetDefault("REFRESH_TOKEN_SECRET", "")
	v.SetDefault("REFRESH_TOKEN_EXPIRY_DURATION", "168h")
	v.SetDefault("JWT_ISSUER", "therapy-app")
	v.SetDefault("REFRESH_TOKEN_COOKIE_NAME", "refreshToken")
	v.SetDefault("REFRESH_TOKEN_COOKIE_PATH", "/auth")
	v.SetDefault("AUTH_RATE_LIMIT", 5)
	v.SetDefault("AUTH_RATE_PERIOD", "5m")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
}

// LoadConfig loads configuration from environment variables and a .env file if present.
// Missing or identical token secrets are reported as apperrors.ErrConfiguration.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	cfg.Environment = strings.ToLower(strings.TrimSpace(v.GetString("APP_ENV")))
	switch cfg.Environment {
	case EnvLocal, EnvDevelopment, EnvProduction:
	default:
		return nil, fmt.Errorf("%w: unknown APP_ENV %q", apperrors.ErrConfiguration, cfg.Environment)
	}
	cfg.IsProduction = cfg.Environment == EnvProduction

	cfg.Port = v.GetString("PORT")
	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}

	var err error
	if cfg.ShutdownTimeout, err = durationKey(v, "SHUTDOWN_TIMEOUT"); err != nil {
		return nil, err
	}

	cfg.StorageDriver = strings.ToLower(v.GetString("STORAGE_DRIVER"))
	cfg.DatabaseURL = v.GetString("PGSQL_URL")
	cfg.EnableDBCheck = v.GetBool("ENABLE_DB_CHECK")
	cfg.MigrationsPath = v.GetString("MIGRATIONS_PATH")
	cfg.MongoURI = v.GetString("MONGO_URI")
	cfg.MongoDatabase = v.GetString("MONGO_DATABASE")

	switch cfg.StorageDriver {
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("%w: PGSQL_URL is required for the postgres storage driver", apperrors.ErrConfiguration)
		}
	case StorageMongo:
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("%w: MONGO_URI is required for the mongo storage driver", apperrors.ErrConfiguration)
		}
	case StorageMemory:
		if cfg.IsProduction {
			return nil, fmt.Errorf("%w: the memory storage driver is not allowed in production", apperrors.ErrConfiguration)
		}
		log.Println("Warning: using in-memory storage. Accounts are lost on restart.")
	default:
		return nil, fmt.Errorf("%w: unknown STORAGE_DRIVER %q", apperrors.ErrConfiguration, cfg.StorageDriver)
	}

	cfg.AccessTokenSecret = v.GetString("ACCESS_TOKEN_SECRET")
	cfg.RefreshTokenSecret = v.GetString("REFRESH_TOKEN_SECRET")
	if err := ValidateSecrets(cfg.AccessTokenSecret, cfg.RefreshTokenSecret); err != nil {
		return nil, err
	}

	if cfg.AccessTokenExpiryDuration, err = durationKey(v, "ACCESS_TOKEN_EXPIRY_DURATION"); err != nil {
		return nil, err
	}
	if cfg.RefreshTokenExpiryDuration, err = durationKey(v, "REFRESH_TOKEN_EXPIRY_DURATION"); err != nil {
		return nil, err
	}

	cfg.JWTIssuer = v.GetString("JWT_ISSUER")
	if cfg.JWTIssuer == "" {
		cfg.JWTIssuer = "therapy-app"
		log.Printf("Warning: JWT_ISSUER not set. Defaulting to %s.\n", cfg.JWTIssuer)
	}

	cfg.RefreshTokenCookieName = v.GetString("REFRESH_TOKEN_COOKIE_NAME")
	if cfg.RefreshTokenCookieName == "" {
		cfg.RefreshTokenCookieName = "refreshToken"
		log.Printf("Warning: REFRESH_TOKEN_COOKIE_NAME not set. Defaulting to %s.\n", cfg.RefreshTokenCookieName)
	}
	cfg.RefreshTokenCookiePath = v.GetString("REFRESH_TOKEN_COOKIE_PATH")
	if cfg.RefreshTokenCookiePath == "" {
		cfg.RefreshTokenCookiePath = "/auth"
		log.Printf("Warning: REFRESH_TOKEN_COOKIE_PATH not set. Defaulting to %s.\n", cfg.RefreshTokenCookiePath)
	}

	cfg.AuthRateLimit = v.GetInt64("AUTH_RATE_LIMIT")
	if cfg.AuthRatePeriod, err = durationKey(v, "AUTH_RATE_PERIOD"); err != nil {
		return nil, err
	}

	for _, origin := range strings.Split(v.GetString("CORS_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	return cfg, nil
}

// ValidateSecrets enforces the startup precondition for the token codec:
// both secrets present and distinct.
func ValidateSecrets(accessSecret, refreshSecret string) error {
	if accessSecret == "" || refreshSecret == "" {
		return fmt.Errorf("%w: ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must both be set", apperrors.ErrConfiguration)
	}
	if accessSecret == refreshSecret {
		return fmt.Errorf("%w: ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ", apperrors.ErrConfiguration)
	}
	return nil
}

func durationKey(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: invalid value for %s (%q)", apperrors.ErrConfiguration, key, raw)
	}
	return d, nil
}
