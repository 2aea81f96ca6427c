package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// RouteConfig is one routing table entry as configured.
type RouteConfig struct {
	Chains     []string `yaml:"chains"`
	Strategies []string `yaml:"strategies"`
	MinProfit  float64  `yaml:"min_profit"`
	Urgency    string   `yaml:"urgency"`
}

// VenueConfig holds per-venue economics and executor wiring.
type VenueConfig struct {
	ChainModifier float64 `yaml:"chain_modifier"`
}

// StrategyConfig holds per-strategy economics and executor wiring.
type StrategyConfig struct {
	ProfitRate     float64 `yaml:"profit_rate"`
	Executor       string  `yaml:"executor"`         // "sim" or "http"
	URL            string  `yaml:"url"`              // for http executor
	SimSuccessRate float64 `yaml:"sim_success_rate"` // for sim executor, default 0.9
}

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Ingest struct {
		Source     string        `yaml:"source"` // "kafka" or "websocket"
		MaxRPS     int           `yaml:"max_rps"`
		BufferSize int           `yaml:"buffer_size"`
		Feed       struct {
			URL            string        `yaml:"url"`
			APIKey         string        `yaml:"api_key"`
			Categories     []string      `yaml:"categories"`
			ReconnectDelay time.Duration `yaml:"reconnect_delay"`
			PingInterval   time.Duration `yaml:"ping_interval"`
		} `yaml:"feed"`
	} `yaml:"ingest"`
	Kafka struct {
		Brokers          []string `yaml:"brokers"`
		EventsTopic      string   `yaml:"events_topic"`
		ChainEventsTopic string   `yaml:"chain_events_topic"`
		NotifyTopic      string   `yaml:"notify_topic"`
		LogTopic         string   `yaml:"log_topic"`
		RequiredAcks     int      `yaml:"required_acks"`
		Compression      string   `yaml:"compression"`
		Producer         struct {
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
	Ledger struct {
		Store         string        `yaml:"store"` // "file" or "redis"
		FilePath      string        `yaml:"file_path"`
		FlushInterval time.Duration `yaml:"flush_interval"`
		Notify        bool          `yaml:"notify"`
		Audit         bool          `yaml:"audit"`
		Redis         struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Key      string `yaml:"key"`
		} `yaml:"redis"`
	} `yaml:"ledger"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
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
	Router struct {
		QueueSize      int           `yaml:"queue_size"`
		MaxInFlight    int           `yaml:"max_in_flight"`
		ExecTimeout    time.Duration `yaml:"exec_timeout"`
		GasCostPerUnit float64       `yaml:"gas_cost_per_unit"`
	} `yaml:"router"`
	Scorer struct {
		Weights map[string]float64 `yaml:"weights"`
	} `yaml:"scorer"`
	Routes     map[string]RouteConfig    `yaml:"routes"`
	Venues     map[string]VenueConfig    `yaml:"venues"`
	Strategies map[string]StrategyConfig `yaml:"strategies"`
	Estimator  struct {
		DefaultChainModifier float64 `yaml:"default_chain_modifier"`
		DefaultStrategyRate  float64 `yaml:"default_strategy_rate"`
	} `yaml:"estimator"`
	Feedback struct {
		TopK        int                        `yaml:"top_k"`
		RecentDepth int                        `yaml:"recent_depth"`
		TimeWeights map[string]map[int]float64 `yaml:"time_weights"`
		Seed        int64                      `yaml:"seed"`
	} `yaml:"feedback"`
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

	if v := os.Getenv("INGEST_SOURCE"); v != "" {
		c.Ingest.Source = v
	}
	if v := os.Getenv("FEED_API_KEY"); v != "" {
		c.Ingest.Feed.APIKey = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("EVENTS_TOPIC"); v != "" {
		c.Kafka.EventsTopic = v
	}
	if v := os.Getenv("LEDGER_STORE"); v != "" {
		c.Ledger.Store = v
	}
	if v := os.Getenv("LEDGER_FILE"); v != "" {
		c.Ledger.FilePath = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.Router.QueueSize == 0 {
		c.Router.QueueSize = 1024
	}
	if c.Router.MaxInFlight == 0 {
		c.Router.MaxInFlight = 8
	}
	if c.Router.ExecTimeout == 0 {
		c.Router.ExecTimeout = 5 * time.Second
	}
	if c.Estimator.DefaultChainModifier == 0 {
		c.Estimator.DefaultChainModifier = 0.5
	}
	if c.Estimator.DefaultStrategyRate == 0 {
		c.Estimator.DefaultStrategyRate = 0.01
	}
	if c.Feedback.TopK == 0 {
		c.Feedback.TopK = 3
	}
	if c.Feedback.RecentDepth == 0 {
		c.Feedback.RecentDepth = 50
	}
	if c.Ledger.FlushInterval == 0 {
		c.Ledger.FlushInterval = 30 * time.Second
	}
	if c.Ledger.FilePath == "" {
		c.Ledger.FilePath = "data/ledger.json"
	}
	if c.Ledger.Redis.Key == "" {
		c.Ledger.Redis.Key = "ledger:snapshot"
	}
}

// Validate checks startup-fatal configuration errors. An unusable routing
// table is the one class of error that must abort the process.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Ingest.Source != "" && c.Ingest.Source != "kafka" && c.Ingest.Source != "websocket" {
		return fmt.Errorf("ingest.source must be 'kafka' or 'websocket', got '%s'", c.Ingest.Source)
	}
	if c.Ingest.Source == "kafka" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty with kafka ingest")
	}
	if c.Ingest.Source == "websocket" && c.Ingest.Feed.URL == "" {
		return fmt.Errorf("ingest.feed.url is required with websocket ingest")
	}
	if c.Ledger.Store != "" && c.Ledger.Store != "file" && c.Ledger.Store != "redis" {
		return fmt.Errorf("ledger.store must be 'file' or 'redis', got '%s'", c.Ledger.Store)
	}
	for typ, r := range c.Routes {
		if len(r.Chains) == 0 {
			return fmt.Errorf("route %s: chains cannot be empty", typ)
		}
		if len(r.Strategies) == 0 {
			return fmt.Errorf("route %s: strategies cannot be empty", typ)
		}
		if r.MinProfit < 0 {
			return fmt.Errorf("route %s: min_profit must be >= 0", typ)
		}
		switch r.Urgency {
		case "", "Immediate", "Fast", "Medium":
		default:
			return fmt.Errorf("route %s: unknown urgency '%s'", typ, r.Urgency)
		}
	}
	for v, vc := range c.Venues {
		if vc.ChainModifier <= 0 || vc.ChainModifier > 1 {
			return fmt.Errorf("venue %s: chain_modifier must be in (0,1], got %v", v, vc.ChainModifier)
		}
	}
	for s, sc := range c.Strategies {
		if sc.ProfitRate < 0 {
			return fmt.Errorf("strategy %s: profit_rate must be >= 0", s)
		}
		if sc.Executor == "http" && sc.URL == "" {
			return fmt.Errorf("strategy %s: url is required for http executor", s)
		}
	}
	for typ, w := range c.Scorer.Weights {
		if w < 0 || w > 10 {
			return fmt.Errorf("scorer weight %s: must be in [0,10], got %v", typ, w)
		}
	}
	return nil
}
