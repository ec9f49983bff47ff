package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	content := `
analysis:
  warmup: 1s
  cooldown: 500ms
  strict: true
writers:
  - type: text
    enabled: true
    root_path: ./out
  - type: clickhouse
    enabled: true
    clickhouse:
      host: localhost
      port: 9000
      database: default
  - type: kafka
    enabled: false
    kafka:
      brokers: ["localhost:9092"]
      topic: reports
manager:
  num_workers: 2
`
	tmpDir, err := os.MkdirTemp("", "config_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Analysis.WarmupNs != 1_000_000_000 || cfg.Analysis.CooldownNs != 500_000_000 {
		t.Errorf("Unexpected window: warmup %d cooldown %d", cfg.Analysis.WarmupNs, cfg.Analysis.CooldownNs)
	}
	if cfg.Analysis.SteadyStateNs != 2_000_000_000 {
		t.Errorf("Expected default steady state 2s, got %d", cfg.Analysis.SteadyStateNs)
	}
	if !cfg.Analysis.Strict || cfg.Analysis.SmallMaxKB != 100 || cfg.Analysis.LargeMinKB != 10000 {
		t.Errorf("Unexpected analysis config: %+v", cfg.Analysis)
	}
	if cfg.Manager.NumWorkers != 2 || cfg.Manager.QueueSize != 64 {
		t.Errorf("Unexpected manager config: %+v", cfg.Manager)
	}
	if cfg.Writers[2].Kafka.Timeout != "5s" {
		t.Errorf("Expected default kafka timeout, got %q", cfg.Writers[2].Kafka.Timeout)
	}

	ch, ok := cfg.ClickHouse()
	if !ok || ch.Host != "localhost" || ch.Port != 9000 {
		t.Errorf("Expected enabled ClickHouse writer, got %+v", ch)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []string{
		"analysis:\n  warmup: soon\n",
		"analysis:\n  cooldown: -1s\n",
		"analysis:\n  small_max_kb: 500\n  large_min_kb: 100\n",
		"analysis: [",
	}
	for _, in := range tests {
		if _, err := Parse([]byte(in)); err == nil {
			t.Errorf("Expected error for %q", in)
		}
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Analysis.WarmupNs != 2_000_000_000 || cfg.Analysis.LogsDir != "logs_ns3" {
		t.Errorf("Unexpected defaults: %+v", cfg.Analysis)
	}
	if _, ok := cfg.ClickHouse(); ok {
		t.Error("Expected no ClickHouse writer by default")
	}
}

func TestParse_AlerterDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
alerter:
  enabled: true
  rules:
    - name: tail
      metric: fct_p99
      operator: ">"
      threshold: 10
    - name: small
      metric: fct_mean
      band: small
      operator: ">"
      threshold: 1
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Alerter.SMTP.Port != 587 {
		t.Errorf("Expected default SMTP port 587, got %d", cfg.Alerter.SMTP.Port)
	}
	if cfg.Alerter.Rules[0].Band != "all" || cfg.Alerter.Rules[1].Band != "small" {
		t.Errorf("Unexpected rule bands: %q, %q", cfg.Alerter.Rules[0].Band, cfg.Alerter.Rules[1].Band)
	}
}
