package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AnalysisConfig holds the parameters of the trace analysis core.
type AnalysisConfig struct {
	// Warmup and Cooldown bound the flow measurement window, e.g. "2s".
	Warmup   string `yaml:"warmup"`
	Cooldown string `yaml:"cooldown"`
	// SteadyState is the send-time threshold for priority samples.
	SteadyState string  `yaml:"steady_state"`
	SmallMaxKB  float64 `yaml:"small_max_kb"`
	LargeMinKB  float64 `yaml:"large_min_kb"`
	// Strict fails a run on Done/Receive events without a matching Start.
	Strict bool `yaml:"strict"`
	// LogsDir is the simulator log directory inside a run directory.
	LogsDir string `yaml:"logs_dir"`
	// FlowLog is the flow completion log inside LogsDir. A ".zst" suffix is
	// also tried when the plain file is missing.
	FlowLog string `yaml:"flow_log"`

	WarmupNs      int64 `yaml:"-"`
	CooldownNs    int64 `yaml:"-"`
	SteadyStateNs int64 `yaml:"-"`
}

// ClickHouseConfig holds the connection details for ClickHouse.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// KafkaConfig holds the settings of the Kafka report sink.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	// Timeout bounds a single publish, e.g. "5s".
	Timeout string `yaml:"timeout"`
}

// WriterDef defines one report writer.
type WriterDef struct {
	Type       string           `yaml:"type"`
	Enabled    bool             `yaml:"enabled"`
	RootPath   string           `yaml:"root_path"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Kafka      KafkaConfig      `yaml:"kafka"`
}

// ManagerConfig sizes the run-directory worker pool.
type ManagerConfig struct {
	NumWorkers int `yaml:"num_workers"`
	QueueSize  int `yaml:"queue_size"`
}

// StreamConfig holds the NATS settings for run intake and report publication.
type StreamConfig struct {
	Enabled       bool   `yaml:"enabled"`
	NATSURL       string `yaml:"nats_url"`
	RunSubject    string `yaml:"run_subject"`
	ReportSubject string `yaml:"report_subject"`
}

// APIConfig holds the listen addresses of the query API.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	GRPCAddr   string `yaml:"grpc_addr"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

// AlerterRule flags a report whose metric compares true against the threshold.
type AlerterRule struct {
	Name      string  `yaml:"name"`
	Metric    string  `yaml:"metric"`
	Band      string  `yaml:"band"`
	Operator  string  `yaml:"operator"`
	Threshold float64 `yaml:"threshold"`
}

// SMTPConfig holds the mail server settings of the email notifier.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

// AlerterConfig holds the report alerting rules and their notifier.
type AlerterConfig struct {
	Enabled bool          `yaml:"enabled"`
	Rules   []AlerterRule `yaml:"rules"`
	SMTP    SMTPConfig    `yaml:"smtp"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Analysis AnalysisConfig `yaml:"analysis"`
	Writers  []WriterDef    `yaml:"writers"`
	Manager  ManagerConfig  `yaml:"manager"`
	Stream   StreamConfig   `yaml:"stream"`
	API      APIConfig      `yaml:"api"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Alerter  AlerterConfig  `yaml:"alerter"`
}

// LoadConfig reads the configuration from a YAML file and returns a Config struct.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML document, applies defaults and validates durations.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	if err := cfg.resolve(); err != nil {
		panic(fmt.Sprintf("default config is invalid: %v", err))
	}
	return cfg
}

func (c *Config) applyDefaults() {
	a := &c.Analysis
	if a.Warmup == "" {
		a.Warmup = "2s"
	}
	if a.Cooldown == "" {
		a.Cooldown = "2s"
	}
	if a.SteadyState == "" {
		a.SteadyState = "2s"
	}
	if a.SmallMaxKB == 0 {
		a.SmallMaxKB = 100
	}
	if a.LargeMinKB == 0 {
		a.LargeMinKB = 10000
	}
	if a.LogsDir == "" {
		a.LogsDir = "logs_ns3"
	}
	if a.FlowLog == "" {
		a.FlowLog = "flows.csv"
	}
	if c.Manager.NumWorkers <= 0 {
		c.Manager.NumWorkers = 4
	}
	if c.Manager.QueueSize <= 0 {
		c.Manager.QueueSize = 64
	}
	if c.Stream.NATSURL == "" {
		c.Stream.NATSURL = "nats://127.0.0.1:4222"
	}
	if c.Stream.RunSubject == "" {
		c.Stream.RunSubject = "tracespectra.runs"
	}
	if c.Stream.ReportSubject == "" {
		c.Stream.ReportSubject = "tracespectra.reports"
	}
	if c.API.ListenAddr == "" {
		c.API.ListenAddr = ":8080"
	}
	if c.API.GRPCAddr == "" {
		c.API.GRPCAddr = ":50051"
	}
	if c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = ":9100"
	}
	if c.Alerter.SMTP.Port == 0 {
		c.Alerter.SMTP.Port = 587
	}
	for i := range c.Alerter.Rules {
		if c.Alerter.Rules[i].Band == "" {
			c.Alerter.Rules[i].Band = "all"
		}
	}
	for i := range c.Writers {
		if c.Writers[i].Type == "kafka" && c.Writers[i].Kafka.Timeout == "" {
			c.Writers[i].Kafka.Timeout = "5s"
		}
	}
}

func (c *Config) resolve() error {
	a := &c.Analysis
	for _, d := range []struct {
		name  string
		value string
		out   *int64
	}{
		{"warmup", a.Warmup, &a.WarmupNs},
		{"cooldown", a.Cooldown, &a.CooldownNs},
		{"steady_state", a.SteadyState, &a.SteadyStateNs},
	} {
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("invalid analysis %s: %w", d.name, err)
		}
		if parsed < 0 {
			return fmt.Errorf("analysis %s must not be negative", d.name)
		}
		*d.out = parsed.Nanoseconds()
	}
	if a.LargeMinKB <= a.SmallMaxKB {
		return fmt.Errorf("large_min_kb (%v) must exceed small_max_kb (%v)", a.LargeMinKB, a.SmallMaxKB)
	}
	return nil
}

// ClickHouse returns the first enabled ClickHouse writer's connection settings.
func (c *Config) ClickHouse() (*ClickHouseConfig, bool) {
	for i := range c.Writers {
		if c.Writers[i].Enabled && c.Writers[i].Type == "clickhouse" {
			return &c.Writers[i].ClickHouse, true
		}
	}
	return nil, false
}
