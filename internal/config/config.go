package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Server      ServerConfig
	Model       ModelConfig
	Image       ImageConfig
	RedisConfig RedisConfig
	CacheEnable bool `env:"CACHE_ENABLE"`
}

type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR" envDefault:"redis:6379"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	TTL      time.Duration `env:"REDIS_TTL" envDefault:"10m"`
}

type ServerConfig struct {
	Port            string        `env:"SERVER_PORT" envDefault:"8080"`
	// Must outlast every model call of one request, see ModelConfig.Budget.
	Timeout         time.Duration `env:"SERVER_TIMEOUT" envDefault:"5m"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	ThrottleLimit   int           `env:"SERVER_THROTTLE_LIMIT" envDefault:"50"`
}

// ModelConfig points at any OpenAI-compatible chat completions endpoint.
// The default is Gemini's compatibility layer.
type ModelConfig struct {
	APIKey         string        `env:"GEMINI_API_KEY"`
	BaseURL        string        `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta/openai/"`
	Model          string        `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	RequestTimeout time.Duration `env:"GEMINI_REQUEST_TIMEOUT" envDefault:"60s"`
	// SDK level retries, kept at zero so DescribeAttempts is the only retry loop.
	MaxRetries       int `env:"GEMINI_MAX_RETRIES" envDefault:"0"`
	DescribeAttempts int `env:"DESCRIBE_MAX_ATTEMPTS" envDefault:"3"`
}

// Budget is the longest a single caption request can spend waiting on the
// model: every description attempt plus the caption call.
func (m ModelConfig) Budget() time.Duration {
	return time.Duration(m.DescribeAttempts+1) * m.RequestTimeout * time.Duration(m.MaxRetries+1)
}

type ImageConfig struct {
	MaxDimension   int   `env:"IMAGE_MAX_DIMENSION" envDefault:"1024"`
	MaxUploadBytes int64 `env:"IMAGE_MAX_UPLOAD_BYTES" envDefault:"20971520"`
	JPEGQuality    int   `env:"IMAGE_JPEG_QUALITY" envDefault:"90"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Model.DescribeAttempts < 1 {
		return fmt.Errorf("DESCRIBE_MAX_ATTEMPTS must be at least 1, got %d", c.Model.DescribeAttempts)
	}
	if c.Model.MaxRetries < 0 {
		return fmt.Errorf("GEMINI_MAX_RETRIES must not be negative, got %d", c.Model.MaxRetries)
	}
	if c.Image.MaxDimension < 1 {
		return fmt.Errorf("IMAGE_MAX_DIMENSION must be positive, got %d", c.Image.MaxDimension)
	}
	if c.Image.MaxUploadBytes < 1 {
		return fmt.Errorf("IMAGE_MAX_UPLOAD_BYTES must be positive, got %d", c.Image.MaxUploadBytes)
	}
	if c.Image.JPEGQuality < 1 || c.Image.JPEGQuality > 100 {
		return fmt.Errorf("IMAGE_JPEG_QUALITY must be within [1, 100], got %d", c.Image.JPEGQuality)
	}
	if budget := c.Model.Budget(); c.Server.Timeout <= budget {
		return fmt.Errorf("SERVER_TIMEOUT must exceed the model budget of %v, got %v", budget, c.Server.Timeout)
	}
	if c.Server.ThrottleLimit < 1 {
		return fmt.Errorf("SERVER_THROTTLE_LIMIT must be positive, got %d", c.Server.ThrottleLimit)
	}
	return nil
}
