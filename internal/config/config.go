package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

type OrchestratorConfig struct {
	MaxWorkers          int     `json:"max_workers"`
	DefaultDeadlineSecs float64 `json:"default_deadline_seconds"`
	SubmitTimeoutSecs   float64 `json:"submit_timeout_seconds"`
	ResultCacheTTLSecs  int     `json:"result_cache_ttl_seconds"`
	EventBufferSize     int     `json:"event_buffer_size"`
}

type MemoryConfig struct {
	ConsolidationIntervalSecs int     `json:"consolidation_interval_seconds"`
	PromotionThreshold        float64 `json:"promotion_confidence_threshold"`
	ConfidenceFloor           float64 `json:"confidence_floor"`
	ConfidenceDecayPerDay     float64 `json:"confidence_decay_per_day"`
	RetentionShortSecs        int     `json:"retention_horizon_short_seconds"`
	RetentionMidSecs          int     `json:"retention_horizon_mid_seconds"`
	ShortBufferCapacity       int     `json:"short_buffer_capacity"`
	ShortBufferWindowSecs     int     `json:"short_buffer_window_seconds"`
}

type Config struct {
	Server struct {
		Host                 string `json:"host"`
		Port                 int    `json:"port"`
		Subpath              string `json:"subpath"`
		JWTSecret            string `json:"jwtSecret"`
		OperatorPasswordHash string `json:"operatorPasswordHash"`
	} `json:"server"`
	Postgres struct {
		DSN string `json:"dsn"`
	} `json:"postgres"`
	SQLite struct {
		Path string `json:"path"`
	} `json:"sqlite"`
	Redis struct {
		Addr     string `json:"addr"`
		Password string `json:"password"`
		DB       int    `json:"db"`
	} `json:"redis"`
	Embedding struct {
		URL string `json:"url"`
	} `json:"embedding"`
	Qdrant struct {
		URL        string `json:"url"`
		Collection string `json:"collection"`
		APIKey     string `json:"api_key"`
	} `json:"qdrant"`
	Orchestrator OrchestratorConfig `json:"orchestrator"`
	Memory       MemoryConfig       `json:"memory"`
}

var (
	once   sync.Once
	cfg    *Config
	cfgErr error
)

// LoadConfig reads config.json from disk (singleton)
func LoadConfig(path string) (*Config, error) {
	once.Do(func() {
		raw, err := os.ReadFile(path)
		if err != nil {
			cfgErr = fmt.Errorf("failed to read config file: %w", err)
			return
		}
		var c Config
		if err := json.Unmarshal(raw, &c); err != nil {
			cfgErr = fmt.Errorf("invalid config format: %w", err)
			return
		}
		// Minimal validation
		if c.Server.JWTSecret == "" {
			cfgErr = errors.New("jwtSecret must be set in config")
			return
		}
		c.applyDefaults()
		cfg = &c
	})
	return cfg, cfgErr
}

// GetConfig returns the loaded config (must call LoadConfig first)
func GetConfig() *Config {
	return cfg
}

// ResetConfigForTest resets the singleton state (for testing only)
func ResetConfigForTest() {
	once = sync.Once{}
	cfg = nil
	cfgErr = nil
}

func (c *Config) applyDefaults() {
	if c.Orchestrator.MaxWorkers <= 0 {
		c.Orchestrator.MaxWorkers = 4
	}
	if c.Orchestrator.DefaultDeadlineSecs <= 0 {
		c.Orchestrator.DefaultDeadlineSecs = 30
	}
	if c.Orchestrator.SubmitTimeoutSecs <= 0 {
		c.Orchestrator.SubmitTimeoutSecs = 5
	}
	if c.Orchestrator.ResultCacheTTLSecs <= 0 {
		c.Orchestrator.ResultCacheTTLSecs = 300
	}
	if c.Orchestrator.EventBufferSize <= 0 {
		c.Orchestrator.EventBufferSize = 100
	}
	if c.Memory.ConsolidationIntervalSecs <= 0 {
		c.Memory.ConsolidationIntervalSecs = 600
	}
	if c.Memory.PromotionThreshold <= 0 {
		c.Memory.PromotionThreshold = 0.6
	}
	if c.Memory.ConfidenceFloor <= 0 {
		c.Memory.ConfidenceFloor = 0.2
	}
	if c.Memory.ConfidenceDecayPerDay <= 0 {
		c.Memory.ConfidenceDecayPerDay = 0.05
	}
	if c.Memory.RetentionShortSecs <= 0 {
		c.Memory.RetentionShortSecs = 1800
	}
	if c.Memory.RetentionMidSecs <= 0 {
		c.Memory.RetentionMidSecs = 7 * 24 * 3600
	}
	if c.Memory.ShortBufferCapacity <= 0 {
		c.Memory.ShortBufferCapacity = 200
	}
	if c.Memory.ShortBufferWindowSecs <= 0 {
		c.Memory.ShortBufferWindowSecs = 3600
	}
}

// DefaultDeadline returns the process-wide agent deadline as a duration.
func (c *Config) DefaultDeadline() time.Duration {
	return time.Duration(c.Orchestrator.DefaultDeadlineSecs * float64(time.Second))
}

// SubmitTimeout returns how long a dispatch may wait for a free worker slot.
func (c *Config) SubmitTimeout() time.Duration {
	return time.Duration(c.Orchestrator.SubmitTimeoutSecs * float64(time.Second))
}
