package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"15s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		AllowedOrigins  []string      `yaml:"allowed_origins"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Logging struct {
		Level     string `yaml:"level" default:"info"`
		Format    string `yaml:"format" default:"console"`
		Output    string `yaml:"output" default:"stdout"`
		Collector struct {
			Enabled        bool          `yaml:"enabled"`
			Topic          string        `yaml:"topic" default:"glasslens.logs"`
			FlushInterval  time.Duration `yaml:"flush_interval" default:"30s"`
			CountThreshold int           `yaml:"count_threshold" default:"100"`
		} `yaml:"collector"`
	} `yaml:"logging"`
	Scoring struct {
		BaseURL             string        `yaml:"base_url" default:"http://localhost:8000"`
		Timeout             time.Duration `yaml:"timeout" default:"10s"`
		RetryAttempts       int           `yaml:"retry_attempts" default:"3"`
		CacheTTL            time.Duration `yaml:"cache_ttl" default:"5m"`
		HealthInterval      time.Duration `yaml:"health_interval" default:"15s"`
		HealthTimeout       time.Duration `yaml:"health_timeout" default:"5s"`
		GenerateMaxAttempts int           `yaml:"generate_max_attempts" default:"500"`
	} `yaml:"scoring"`
	Landscape struct {
		Width      float64 `yaml:"width" default:"640"`
		Height     float64 `yaml:"height" default:"400"`
		PixelRatio float64 `yaml:"pixel_ratio" default:"1"`
		Theme      string  `yaml:"theme" default:"dark"`
		Format     string  `yaml:"format" default:"png"`
		Background bool    `yaml:"background" default:"true"`
		ZoneLabels bool    `yaml:"zone_labels" default:"true"`
	} `yaml:"landscape"`
	Dashboard struct {
		HistoryLimit int     `yaml:"history_limit" default:"20"`
		RateLimit    float64 `yaml:"rate_limit" default:"5"` // analyses per second per client
		RateBurst    float64 `yaml:"rate_burst" default:"10"`
		FrameRate    float64 `yaml:"frame_rate_limit" default:"20"` // landscape frames per second per client
		FrameBurst   float64 `yaml:"frame_burst" default:"40"`
	} `yaml:"dashboard"`
	Cache struct {
		MemoryMaxSize int           `yaml:"memory_max_size" default:"1000"`
		FrameTTL      time.Duration `yaml:"frame_ttl" default:"2m"`
		Redis         struct {
			Enabled  bool   `yaml:"enabled"`
			Host     string `yaml:"host" default:"localhost"`
			Port     int    `yaml:"port" default:"6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"glasslens"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Kafka struct {
		Enabled        bool     `yaml:"enabled"`
		Brokers        []string `yaml:"brokers"`
		DecisionsTopic string   `yaml:"decisions_topic" default:"glasslens.decisions"`
		ScoresTopic    string   `yaml:"scores_topic"`
		RequiredAcks   int      `yaml:"required_acks" default:"-1"`
		Compression    string   `yaml:"compression" default:"gzip"`
		Producer       struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
			BufferSize   int           `yaml:"buffer_size" default:"1000"` // decisions held while brokers are down
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"glasslens"`
			Workers    int           `yaml:"workers" default:"1"`
			BufferSize int           `yaml:"buffer_size" default:"64"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10000000"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	return &c
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// A missing file is not an error: defaults plus environment are enough to run.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		c = Default()
	}

	ApplyEnv(c, os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides c with the supported environment variables.
func ApplyEnv(c *Config, getenv func(string) string) {
	if v := getenv("GLASSLENS_API_URL"); v != "" {
		c.Scoring.BaseURL = strings.TrimRight(v, "/")
	}
	if v := getenv("ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}
	if v := getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
		c.Kafka.Enabled = true
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		c.Cache.Redis.Host = host
		if ok {
			if p, err := strconv.Atoi(port); err == nil {
				c.Cache.Redis.Port = p
			}
		}
		c.Cache.Redis.Enabled = true
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Scoring.BaseURL == "" {
		return fmt.Errorf("scoring.base_url is required")
	}
	if c.Scoring.RetryAttempts < 1 {
		return fmt.Errorf("scoring.retry_attempts must be >= 1")
	}
	if c.Scoring.GenerateMaxAttempts < 1 || c.Scoring.GenerateMaxAttempts > 500 {
		return fmt.Errorf("scoring.generate_max_attempts must be in [1,500], got %d", c.Scoring.GenerateMaxAttempts)
	}
	if c.Landscape.Width <= 0 || c.Landscape.Height <= 0 {
		return fmt.Errorf("landscape size must be positive, got %vx%v", c.Landscape.Width, c.Landscape.Height)
	}
	if c.Landscape.PixelRatio <= 0 || c.Landscape.PixelRatio > 4 {
		return fmt.Errorf("landscape.pixel_ratio must be in (0,4], got %v", c.Landscape.PixelRatio)
	}
	if f := strings.ToLower(c.Landscape.Format); f != "png" && f != "svg" {
		return fmt.Errorf("landscape.format must be 'png' or 'svg', got '%s'", c.Landscape.Format)
	}
	if c.Dashboard.HistoryLimit < 1 {
		return fmt.Errorf("dashboard.history_limit must be >= 1")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Kafka.ScoresTopic != "" && c.Kafka.ScoresTopic == c.Kafka.DecisionsTopic {
		return fmt.Errorf("kafka.scores_topic must differ from kafka.decisions_topic")
	}
	return nil
}
