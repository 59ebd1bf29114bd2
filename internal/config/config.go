package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name     string `envconfig:"APP_NAME" default:"bankfeed"`
		Port     int    `envconfig:"PORT" default:"8080"`
		LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"bankfeed"`
		Migrate  bool   `envconfig:"DB_MIGRATE" default:"true"`
	}

	Server struct {
		Timeout        time.Duration `envconfig:"SERVER_TIMEOUT" default:"90s"`
		AllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:5173"`
	}

	Import struct {
		StepTimeout   time.Duration `envconfig:"IMPORT_STEP_TIMEOUT" default:"60s"`
		MaxUploadSize int64         `envconfig:"IMPORT_MAX_UPLOAD_BYTES" default:"10485760"`
		// Fuzzy duplicate detection for rows without a bank-assigned id.
		DedupeToleranceDays int     `envconfig:"DEDUPE_TOLERANCE_DAYS" default:"0"`
		DedupeSimilarity    float64 `envconfig:"DEDUPE_SIMILARITY" default:"0.8"`
	}

	Classifier struct {
		Provider  string        `envconfig:"CLASSIFIER_PROVIDER" default:"none"`
		APIKey    string        `envconfig:"CLASSIFIER_API_KEY"`
		Model     string        `envconfig:"CLASSIFIER_MODEL" default:"gemini-2.5-flash"`
		BatchSize int           `envconfig:"CLASSIFIER_BATCH_SIZE" default:"50"`
		Timeout   time.Duration `envconfig:"CLASSIFIER_TIMEOUT" default:"60s"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Classifier.Provider {
	case "none", "":
	case "gemini":
		if c.Classifier.APIKey == "" {
			return fmt.Errorf("invalid config: CLASSIFIER_API_KEY is required for provider %q", c.Classifier.Provider)
		}
	default:
		return fmt.Errorf("invalid config: unknown classifier provider %q", c.Classifier.Provider)
	}

	if c.Import.DedupeSimilarity <= 0 || c.Import.DedupeSimilarity > 1 {
		return fmt.Errorf("invalid config: DEDUPE_SIMILARITY must be in (0, 1], got %v", c.Import.DedupeSimilarity)
	}

	if c.Import.DedupeToleranceDays < 0 {
		return fmt.Errorf("invalid config: DEDUPE_TOLERANCE_DAYS must not be negative")
	}

	if c.Classifier.BatchSize <= 0 {
		return fmt.Errorf("invalid config: CLASSIFIER_BATCH_SIZE must be positive")
	}

	return nil
}
