package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config carries all runtime settings. Values come from the environment,
// optionally seeded from a .env file in the working directory.
type Config struct {
	Server   ServerConfig
	Pipeline PipelineConfig
	Storage  StorageConfig
	Realtime RealtimeConfig
	Adapters AdapterConfig
}

type ServerConfig struct {
	Address      string        `env:"SERVER_ADDRESS" envDefault:":8000"`
	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"30s"`
	CORSOrigins  []string      `env:"CORS_ORIGINS" envDefault:"http://localhost:3000,http://localhost:5173"`
}

type PipelineConfig struct {
	Workers       int           `env:"PIPELINE_WORKERS" envDefault:"4"`
	QueueSize     int           `env:"PIPELINE_QUEUE_SIZE" envDefault:"64"`
	StageTimeout  time.Duration `env:"PIPELINE_STAGE_TIMEOUT" envDefault:"5m"`
	WindowSeconds float64       `env:"ANALYSIS_WINDOW_SECONDS" envDefault:"2.0"`
}

type StorageConfig struct {
	DataDir         string        `env:"DATA_DIR" envDefault:"./data"`
	UploadDir       string        `env:"UPLOAD_DIR" envDefault:"./data/uploads"`
	RetentionHours  int           `env:"RETENTION_HOURS" envDefault:"24"`
	MaxCacheSizeMB  int64         `env:"MAX_CACHE_SIZE_MB" envDefault:"500"`
	MaxUploadSizeMB int64         `env:"MAX_UPLOAD_SIZE_MB" envDefault:"100"`
	MaxVideoSeconds float64       `env:"MAX_VIDEO_DURATION_SECONDS" envDefault:"120"`
	SweepInterval   time.Duration `env:"CACHE_SWEEP_INTERVAL" envDefault:"1h"`
}

type RealtimeConfig struct {
	SessionIdleTimeout   time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"5m"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1m"`
}

type AdapterConfig struct {
	OpenAIKey      string        `env:"OPENAI_API_KEY"`
	WhisperURL     string        `env:"WHISPER_API_URL" envDefault:"https://api.openai.com/v1/audio/transcriptions"`
	HFToken        string        `env:"HF_API_TOKEN"`
	SentimentURL   string        `env:"SENTIMENT_API_URL" envDefault:"https://api-inference.huggingface.co/models/CAMeL-Lab/bert-base-arabic-camelbert-msa-sentiment"`
	TranslateURL   string        `env:"TRANSLATE_API_URL" envDefault:"https://translate.googleapis.com/translate_a/single"`
	RequestTimeout time.Duration `env:"ADAPTER_TIMEOUT" envDefault:"30s"`
}

// Load reads a .env file when present, then parses the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("PIPELINE_WORKERS must be at least 1, got %d", c.Pipeline.Workers)
	}
	if c.Pipeline.QueueSize < 1 {
		return fmt.Errorf("PIPELINE_QUEUE_SIZE must be at least 1, got %d", c.Pipeline.QueueSize)
	}
	if c.Pipeline.WindowSeconds <= 0 {
		return fmt.Errorf("ANALYSIS_WINDOW_SECONDS must be positive, got %v", c.Pipeline.WindowSeconds)
	}
	if c.Storage.RetentionHours < 1 {
		return fmt.Errorf("RETENTION_HOURS must be at least 1, got %d", c.Storage.RetentionHours)
	}
	if c.Storage.MaxUploadSizeMB < 1 {
		return fmt.Errorf("MAX_UPLOAD_SIZE_MB must be at least 1, got %d", c.Storage.MaxUploadSizeMB)
	}
	if c.Storage.MaxVideoSeconds <= 0 {
		return fmt.Errorf("MAX_VIDEO_DURATION_SECONDS must be positive, got %v", c.Storage.MaxVideoSeconds)
	}
	return nil
}

// Retention is how long uploads and their cached results are kept.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Storage.RetentionHours) * time.Hour
}

func (c *StorageConfig) MaxUploadBytes() int64 {
	return c.MaxUploadSizeMB << 20
}

func (c *StorageConfig) MaxCacheBytes() int64 {
	return c.MaxCacheSizeMB << 20
}
