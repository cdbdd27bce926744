package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	BlobDriverLocal = "local"
	BlobDriverS3    = "s3"

	DBDriverMySQL  = "mysql"
	DBDriverSQLite = "sqlite"
)

// Config is loaded once at startup and handed to the components that need it.
type Config struct {
	AppEnv  string `env:"APP_ENV" envDefault:"prod"`
	AppHost string `env:"APP_HOST" envDefault:"0.0.0.0"`
	AppPort string `env:"PORT" envDefault:"5000"`

	// BaseURL is the public origin of this server. When empty, image URLs are
	// derived from the incoming request.
	BaseURL string `env:"BASE_URL"`

	JWTSecret      string        `env:"JWT_SECRET" envDefault:"your_jwt_secret_key"`
	TokenTTL       time.Duration `env:"JWT_TTL" envDefault:"1h"`
	LoginRedirect  string        `env:"LOGIN_REDIRECT" envDefault:"/insights_news"`
	SingleSession  bool          `env:"SINGLE_SESSION" envDefault:"true"`
	MaxUploadBytes int64         `env:"MAX_UPLOAD_BYTES" envDefault:"5242880"`

	Database Database `envPrefix:"DB_"`
	Cache    Cache    `envPrefix:"CACHE_"`
	Blob     Blob     `envPrefix:"BLOB_"`
	S3       S3       `envPrefix:"S3_"`
}

type Database struct {
	Driver   string `env:"DRIVER" envDefault:"mysql"`
	Host     string `env:"HOST" envDefault:"127.0.0.1"`
	Port     string `env:"PORT" envDefault:"3306"`
	User     string `env:"USER"`
	Password string `env:"PASSWORD"`
	Name     string `env:"NAME"`
	// Path is only used by the sqlite driver.
	Path string `env:"PATH" envDefault:"insights.db"`
}

type Cache struct {
	Enabled  bool   `env:"ENABLED" envDefault:"false"`
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     string `env:"PORT" envDefault:"6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

type Blob struct {
	Driver string `env:"DRIVER" envDefault:"local"`
	Dir    string `env:"DIR" envDefault:"uploads"`
	// PublicURL overrides the base used for image URLs, e.g. a CDN in front
	// of the S3 bucket.
	PublicURL string `env:"PUBLIC_URL"`
}

type S3 struct {
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
	Region          string `env:"REGION" envDefault:"us-east-1"`
	BucketName      string `env:"BUCKET_NAME"`
	EndpointURL     string `env:"ENDPOINT_URL"`
	Prefix          string `env:"PREFIX" envDefault:"uploads/"`
}

// Load parses the process environment into a Config and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if c.TokenTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}

	switch c.Database.Driver {
	case DBDriverMySQL, DBDriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	switch c.Blob.Driver {
	case BlobDriverLocal:
	case BlobDriverS3:
		if c.S3.BucketName == "" {
			return errors.New("S3_BUCKET_NAME is required when BLOB_DRIVER=s3")
		}
		if c.S3.AccessKeyID == "" || c.S3.SecretAccessKey == "" {
			return errors.New("S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY are required when BLOB_DRIVER=s3")
		}
	default:
		return fmt.Errorf("unsupported BLOB_DRIVER %q", c.Blob.Driver)
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.AppEnv == "dev"
}

func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%s", c.AppHost, c.AppPort)
}

// UploadsBaseURL returns the absolute prefix for image URLs, or "" when it
// has to be derived per request.
func (c *Config) UploadsBaseURL() string {
	if c.Blob.PublicURL != "" {
		return strings.TrimRight(c.Blob.PublicURL, "/")
	}
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/") + "/uploads"
	}
	return ""
}
