package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store and avatar backends accepted by Validate.
const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"
	BackendMinio  = "minio"
)

// Config holds all service configuration loaded from environment variables.
type Config struct {
	Port          string `env:"PORT"           envDefault:"8080"`
	MongoURI      string `env:"MONGODB_URL"    envDefault:"mongodb://127.0.0.1:27017"`
	MongoDB       string `env:"MONGO_DB"       envDefault:"task-manager-api"`
	StoreBackend  string `env:"STORE_BACKEND"  envDefault:"mongo"`
	AvatarBackend string `env:"AVATAR_BACKEND" envDefault:"mongo"`

	JWTSecret  string `env:"JWT_SECRET"`
	BcryptCost int    `env:"BCRYPT_COST" envDefault:"10"`

	SendGridAPIKey string `env:"SENDGRID_API_KEY"`
	MailFrom       string `env:"ACC_EMAIL" envDefault:"no-reply@task-manager.local"`

	RedisAddr       string        `env:"REDIS_ADDR"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	RedisDB         int           `env:"REDIS_DB"          envDefault:"0"`
	RedisTimeout    time.Duration `env:"REDIS_TIMEOUT"     envDefault:"500ms"`
	LoginRateLimit  int           `env:"LOGIN_RATE_LIMIT"  envDefault:"10"`
	LoginRateWindow time.Duration `env:"LOGIN_RATE_WINDOW" envDefault:"15m"`

	MinioEndpoint  string `env:"MINIO_ENDPOINT"   envDefault:"minio:9000"`
	MinioAccessKey string `env:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `env:"MINIO_SECRET_KEY"`
	MinioBucket    string `env:"MINIO_BUCKET"     envDefault:"avatars"`
	MinioRegion    string `env:"MINIO_REGION"`
	MinioUseSSL    bool   `env:"MINIO_USE_SSL"    envDefault:"false"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports configuration that the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.StoreBackend {
	case BackendMongo, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}
	switch c.AvatarBackend {
	case BackendMongo, BackendMinio:
	default:
		errs = append(errs, fmt.Errorf("unknown AVATAR_BACKEND %q", c.AvatarBackend))
	}
	if c.RedisDB < 0 {
		errs = append(errs, errors.New("REDIS_DB must not be negative"))
	}
	if c.LoginRateLimit < 0 {
		errs = append(errs, errors.New("LOGIN_RATE_LIMIT must not be negative"))
	}
	return errors.Join(errs...)
}
