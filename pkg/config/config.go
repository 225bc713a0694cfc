package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	OKX struct {
		WebSocketURL string   `yaml:"websocket_url"`
		Symbols      []string `yaml:"symbols"`
	} `yaml:"okx"`
	Engine struct {
		BarInterval    time.Duration `yaml:"bar_interval"`
		CaptureRatio   float64       `yaml:"capture_ratio"`
		AlertRatio     float64       `yaml:"alert_ratio"`
		DerivsPoll     time.Duration `yaml:"derivs_poll_interval"`
		StatusPath     string        `yaml:"status_path"`
		StatusInterval time.Duration `yaml:"status_interval"`
		Pipeline       struct {
			MaxRPS     int `yaml:"max_rps"`
			BufferSize int `yaml:"buffer_size"`
		} `yaml:"pipeline"`
	} `yaml:"engine"`
	Storage struct {
		EventLogPath string `yaml:"event_log_path"`
		MaxSizeMB    int    `yaml:"max_size_mb"`
		MaxBackups   int    `yaml:"max_backups"`
		MaxAgeDays   int    `yaml:"max_age_days"`
		Compress     bool   `yaml:"compress"`
	} `yaml:"storage"`
	Backend struct {
		Type string `yaml:"type"` // jsonl, kafka, clickhouse
	} `yaml:"backend"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		Table            string        `yaml:"table"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Coinalyze struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"coinalyze"`
	CoinGecko struct {
		BaseURL      string        `yaml:"base_url"`
		APIKey       string        `yaml:"api_key"`
		PollInterval time.Duration `yaml:"poll_interval"`
	} `yaml:"coingecko"`
	Discord struct {
		Webhooks map[string]string `yaml:"webhooks"`
		Cooldown time.Duration     `yaml:"cooldown"`
	} `yaml:"discord"`
	API struct {
		CacheTTL time.Duration `yaml:"cache_ttl"`
		Redis    struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"api"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("OKX_WS_URL"); v != "" {
		c.OKX.WebSocketURL = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.OKX.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("COINALYZE_API_KEY"); v != "" {
		c.Coinalyze.APIKey = v
	}
	if v := os.Getenv("COINGECKO_API_KEY"); v != "" {
		c.CoinGecko.APIKey = v
	}
	if v := os.Getenv("DISCORD_WEBHOOK_GENERAL"); v != "" {
		if c.Discord.Webhooks == nil {
			c.Discord.Webhooks = make(map[string]string)
		}
		c.Discord.Webhooks["general"] = v
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.OKX.WebSocketURL == "" {
		c.OKX.WebSocketURL = "wss://ws.okx.com:8443/ws/v5/public"
	}
	if c.Engine.BarInterval <= 0 {
		c.Engine.BarInterval = time.Minute
	}
	if c.Engine.CaptureRatio <= 0 {
		c.Engine.CaptureRatio = 0.05
	}
	if c.Engine.AlertRatio <= 0 {
		c.Engine.AlertRatio = 1.5
	}
	if c.Engine.DerivsPoll <= 0 {
		c.Engine.DerivsPoll = 30 * time.Second
	}
	if c.Engine.StatusInterval <= 0 {
		c.Engine.StatusInterval = 5 * time.Second
	}
	if c.Storage.EventLogPath == "" {
		c.Storage.EventLogPath = "data/wick_events.jsonl"
	}
	if c.Backend.Type == "" {
		c.Backend.Type = "jsonl"
	}
	if c.ClickHouse.Table == "" {
		c.ClickHouse.Table = "wick_events"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.API.CacheTTL <= 0 {
		c.API.CacheTTL = 2 * time.Second
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Backend.Type {
	case "jsonl", "kafka", "clickhouse":
	default:
		return fmt.Errorf("backend.type must be 'jsonl', 'kafka' or 'clickhouse', got '%s'", c.Backend.Type)
	}
	if len(c.OKX.Symbols) == 0 {
		return fmt.Errorf("okx.symbols cannot be empty")
	}
	if c.Backend.Type == "kafka" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers required for kafka backend")
	}
	if c.Backend.Type == "clickhouse" && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host required for clickhouse backend")
	}
	if c.Engine.AlertRatio < c.Engine.CaptureRatio {
		return fmt.Errorf("engine.alert_ratio must be >= engine.capture_ratio")
	}
	return nil
}
