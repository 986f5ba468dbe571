package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// StrategyConfig declares one strategy pool and its starting weight.
// Weights are renormalized to sum to 1 at load time.
type StrategyConfig struct {
	Kind   string  `yaml:"kind"`
	Weight float64 `yaml:"weight"`
}

// Config holds all application configuration.
type Config struct {
	Capital struct {
		Total       float64 `yaml:"total"`
		SignupBonus float64 `yaml:"signup_bonus"`
	} `yaml:"capital"`
	Strategies []StrategyConfig `yaml:"strategies"`
	Agents     struct {
		PerStrategy    int     `yaml:"per_strategy"`
		Max            int     `yaml:"max"`
		SpawnThreshold float64 `yaml:"spawn_threshold"`
	} `yaml:"agents"`
	Economics struct {
		PlatformFeeRate    float64 `yaml:"platform_fee_rate"`
		ReinvestRatio      float64 `yaml:"reinvest_ratio"`
		DampingFactor      float64 `yaml:"damping_factor"`
		InvestIdleFraction float64 `yaml:"invest_idle_fraction"`
		InvestIdleFloor    float64 `yaml:"invest_idle_floor"`
	} `yaml:"economics"`
	Schedule struct {
		MonitorCron   string `yaml:"monitor_cron"`
		ReinvestCron  string `yaml:"reinvest_cron"`
		MonitorRetry  string `yaml:"monitor_retry"`
		ReinvestRetry string `yaml:"reinvest_retry"`
		IdlePoll      string `yaml:"idle_poll"`
		GracePeriod   string `yaml:"grace_period"`
		PeriodWindow  string `yaml:"period_window"`
		InboxPoll     string `yaml:"inbox_poll"`
	} `yaml:"schedule"`
	Tasks struct {
		BatchSize int `yaml:"batch_size"`
		LowWater  int `yaml:"low_water"`
	} `yaml:"tasks"`
	Oracle struct {
		BaseURL     string  `yaml:"base_url"`
		APIKey      string  `yaml:"api_key"`
		FailureRate float64 `yaml:"failure_rate"`
		Latency     string  `yaml:"latency"`
		CallTimeout string  `yaml:"call_timeout"`
	} `yaml:"oracle"`
	Files struct {
		LedgerFile     string `yaml:"ledger_file"`
		SnapshotFile   string `yaml:"snapshot_file"`
		AllocationFile string `yaml:"allocation_file"`
		InboxFile      string `yaml:"inbox_file"`
		SQLitePath     string `yaml:"sqlite_path"`
	} `yaml:"files"`
	Proxy string `yaml:"proxy"`

	// Timing carries the parsed durations from Schedule and Oracle.
	Timing Timing `yaml:"-"`
}

// Timing is the parsed view of the duration-valued settings.
type Timing struct {
	MonitorRetry  time.Duration
	ReinvestRetry time.Duration
	IdlePoll      time.Duration
	GracePeriod   time.Duration
	PeriodWindow  time.Duration
	InboxPoll     time.Duration
	OracleLatency time.Duration
	CallTimeout   time.Duration
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("SWARM_TOTAL_CAPITAL"); v != "" {
		var total float64
		if _, err := fmt.Sscanf(v, "%f", &total); err == nil {
			cfg.Capital.Total = total
		}
	}
	if v := os.Getenv("ORACLE_BASE_URL"); v != "" {
		cfg.Oracle.BaseURL = v
	}
	if v := os.Getenv("ORACLE_API_KEY"); v != "" {
		cfg.Oracle.APIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("LEDGER_FILE"); v != "" {
		cfg.Files.LedgerFile = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Files.SQLitePath = v
	}
	if v := os.Getenv("MONITOR_CRON"); v != "" {
		cfg.Schedule.MonitorCron = v
	}
	if v := os.Getenv("REINVEST_CRON"); v != "" {
		cfg.Schedule.ReinvestCron = v
	}

	applyDefaults(cfg)

	if err := parseTiming(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Capital.Total == 0 {
		cfg.Capital.Total = 10000
	}
	if cfg.Capital.SignupBonus == 0 {
		cfg.Capital.SignupBonus = 25
	}
	if len(cfg.Strategies) == 0 {
		cfg.Strategies = []StrategyConfig{
			{Kind: "freelance", Weight: 0.2},
			{Kind: "affiliate", Weight: 0.2},
			{Kind: "digital_product", Weight: 0.2},
			{Kind: "service_resale", Weight: 0.2},
			{Kind: "ai_service", Weight: 0.2},
		}
	}
	if cfg.Agents.PerStrategy == 0 {
		cfg.Agents.PerStrategy = 1
	}
	if cfg.Agents.Max == 0 {
		cfg.Agents.Max = 10
	}
	if cfg.Agents.SpawnThreshold == 0 {
		cfg.Agents.SpawnThreshold = 100
	}
	if cfg.Economics.PlatformFeeRate == 0 {
		cfg.Economics.PlatformFeeRate = 0.10
	}
	if cfg.Economics.ReinvestRatio == 0 {
		cfg.Economics.ReinvestRatio = 0.8
	}
	if cfg.Economics.DampingFactor == 0 {
		cfg.Economics.DampingFactor = 0.2
	}
	if cfg.Economics.InvestIdleFraction == 0 {
		cfg.Economics.InvestIdleFraction = 0.8
	}
	if cfg.Economics.InvestIdleFloor == 0 {
		cfg.Economics.InvestIdleFloor = 50
	}
	if cfg.Schedule.MonitorCron == "" {
		cfg.Schedule.MonitorCron = "@every 1h"
	}
	if cfg.Schedule.ReinvestCron == "" {
		cfg.Schedule.ReinvestCron = "@every 24h"
	}
	if cfg.Schedule.MonitorRetry == "" {
		cfg.Schedule.MonitorRetry = "5m"
	}
	if cfg.Schedule.ReinvestRetry == "" {
		cfg.Schedule.ReinvestRetry = "1h"
	}
	if cfg.Schedule.IdlePoll == "" {
		cfg.Schedule.IdlePoll = "1s"
	}
	if cfg.Schedule.GracePeriod == "" {
		cfg.Schedule.GracePeriod = "10s"
	}
	if cfg.Schedule.PeriodWindow == "" {
		cfg.Schedule.PeriodWindow = "24h"
	}
	if cfg.Schedule.InboxPoll == "" {
		cfg.Schedule.InboxPoll = "10s"
	}
	if cfg.Tasks.BatchSize == 0 {
		cfg.Tasks.BatchSize = 5
	}
	if cfg.Tasks.LowWater == 0 {
		cfg.Tasks.LowWater = 10
	}
	if cfg.Oracle.Latency == "" {
		cfg.Oracle.Latency = "100ms"
	}
	if cfg.Oracle.CallTimeout == "" {
		cfg.Oracle.CallTimeout = "5s"
	}
	if cfg.Files.LedgerFile == "" {
		cfg.Files.LedgerFile = "data/wallets.json"
	}
	if cfg.Files.SnapshotFile == "" {
		cfg.Files.SnapshotFile = "data/agent_performance.json"
	}
	if cfg.Files.AllocationFile == "" {
		cfg.Files.AllocationFile = "data/allocations.json"
	}
	if cfg.Files.InboxFile == "" {
		cfg.Files.InboxFile = "data/funds_inbox.json"
	}
}

func parseTiming(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"schedule.monitor_retry", cfg.Schedule.MonitorRetry, &cfg.Timing.MonitorRetry},
		{"schedule.reinvest_retry", cfg.Schedule.ReinvestRetry, &cfg.Timing.ReinvestRetry},
		{"schedule.idle_poll", cfg.Schedule.IdlePoll, &cfg.Timing.IdlePoll},
		{"schedule.grace_period", cfg.Schedule.GracePeriod, &cfg.Timing.GracePeriod},
		{"schedule.period_window", cfg.Schedule.PeriodWindow, &cfg.Timing.PeriodWindow},
		{"schedule.inbox_poll", cfg.Schedule.InboxPoll, &cfg.Timing.InboxPoll},
		{"oracle.latency", cfg.Oracle.Latency, &cfg.Timing.OracleLatency},
		{"oracle.call_timeout", cfg.Oracle.CallTimeout, &cfg.Timing.CallTimeout},
	}
	for _, f := range fields {
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parse %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}
	return nil
}

// Validate checks that the configuration can actually run a swarm.
func (c *Config) Validate() error {
	if c.Capital.Total <= 0 {
		return fmt.Errorf("capital.total must be positive")
	}
	if len(c.Strategies) == 0 {
		return fmt.Errorf("at least one strategy is required")
	}
	sum := 0.0
	for _, s := range c.Strategies {
		if s.Kind == "" {
			return fmt.Errorf("strategy kind must not be empty")
		}
		if s.Weight < 0 {
			return fmt.Errorf("strategy %s: weight must not be negative", s.Kind)
		}
		sum += s.Weight
	}
	if sum <= 0 {
		return fmt.Errorf("strategy weights must sum to a positive value")
	}
	if c.Economics.PlatformFeeRate < 0 || c.Economics.PlatformFeeRate >= 1 {
		return fmt.Errorf("economics.platform_fee_rate must be in [0, 1)")
	}
	if c.Economics.ReinvestRatio < 0 || c.Economics.ReinvestRatio > 1 {
		return fmt.Errorf("economics.reinvest_ratio must be in [0, 1]")
	}
	if c.Economics.DampingFactor <= 0 || c.Economics.DampingFactor > 1 {
		return fmt.Errorf("economics.damping_factor must be in (0, 1]")
	}
	return nil
}

// Weights returns the configured strategy weights renormalized to sum to 1.
func (c *Config) Weights() map[string]float64 {
	sum := 0.0
	for _, s := range c.Strategies {
		sum += s.Weight
	}
	out := make(map[string]float64, len(c.Strategies))
	for _, s := range c.Strategies {
		out[s.Kind] = s.Weight / sum
	}
	return out
}
