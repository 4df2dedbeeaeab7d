package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	AppName     = "ai-camera-cloud"
	EnvFileName = "config.env"
)

// Config holds every runtime setting of the service.
type Config struct {
	Host     string `env:"HOST,default=0.0.0.0"`
	Port     int    `env:"PORT,default=8000" validate:"min=1,max=65535"`
	LogLevel string `env:"LOG_LEVEL,default=info" validate:"oneof=trace debug info warn error"`
	LogFile  string `env:"LOG_FILE"`

	// Vision backend
	GeminiAPIKey         string  `env:"GEMINI_API_KEY"`
	GeminiBaseURL        string  `env:"GEMINI_BASE_URL"`
	VisionModel          string  `env:"VISION_MODEL,default=gemini-2.5-flash" validate:"required"`
	MaxLength            int     `env:"MAX_LENGTH,default=512" validate:"min=1,max=8192"`
	Temperature          float64 `env:"TEMPERATURE,default=0.7" validate:"gt=0,lte=2"`
	InferenceConcurrency int64   `env:"INFERENCE_CONCURRENCY,default=0" validate:"min=0"`

	// Analysis cache, disabled when CacheDBPath is empty
	CacheDBPath   string        `env:"CACHE_DB_PATH"`
	CacheDuration time.Duration `env:"CACHE_DURATION,default=1h" validate:"gt=0"`

	// Stub provider behavior
	SearchHonorParams  bool `env:"SEARCH_HONOR_PARAMS,default=false"`
	PriceFilterSources bool `env:"PRICE_FILTER_SOURCES,default=false"`

	// HTTP gateway
	ExposeErrorDetails bool          `env:"EXPOSE_ERROR_DETAILS,default=true"`
	CORSAllowOrigins   string        `env:"CORS_ALLOW_ORIGINS,default=*"`
	MaxUploadBytes     int64         `env:"MAX_UPLOAD_BYTES,default=20971520" validate:"min=1024"`
	MaxImagePixels     int64         `env:"MAX_IMAGE_PIXELS,default=178956970" validate:"min=1"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s" validate:"gt=0"`
}

var validate = validator.New()

// LoadEnvFile loads environment variables from the config file in the user's
// config directory and from a local .env. Errors are ignored since the files
// may not exist. Variables already set in the environment win.
func LoadEnvFile() {
	if configBase, err := os.UserConfigDir(); err == nil {
		_ = godotenv.Load(filepath.Join(configBase, AppName, EnvFileName))
	}
	_ = godotenv.Load()
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from environment: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AllowOrigins splits CORSAllowOrigins on commas.
func (c *Config) AllowOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSAllowOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
