// Package config loads engine settings from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nstehr/eocatr-core/agent"
	"github.com/nstehr/eocatr-core/bloom"
	"github.com/nstehr/eocatr-core/bridge"
	"github.com/nstehr/eocatr-core/ingest"
	"github.com/nstehr/eocatr-core/prune"
	"github.com/nstehr/eocatr-core/semantic"
)

type Storage struct {
	Driver string `yaml:"driver"` // sqlite, postgres or memory
	Path   string `yaml:"path"`
	URL    string `yaml:"url"`
}

// DSN is the path for sqlite and the URL otherwise.
func (s Storage) DSN() string {
	if strings.EqualFold(s.Driver, "sqlite") || s.Driver == "" {
		return s.Path
	}
	return s.URL
}

type Ingest struct {
	RedisURL string `yaml:"redis_url"`
	Stream   string `yaml:"stream"`
	Group    string `yaml:"group"`
	Consumer string `yaml:"consumer"`
}

type Server struct {
	Socket string `yaml:"socket"`
}

type Workers struct {
	DecisionWorkers int `yaml:"decision_workers"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

type Agent struct {
	HistorySize      int           `yaml:"history_size"`
	PendingSize      int           `yaml:"pending_size"`
	MaintainEvery    int           `yaml:"maintain_every"`
	MaintainInterval time.Duration `yaml:"maintain_interval"`
	// Opposites adds concept pairs to the built-in opposite table.
	Opposites map[string]string `yaml:"opposites,omitempty"`
}

// Config holds all configuration for the engine.
type Config struct {
	Blooming bloom.Config  `yaml:"blooming"`
	Pruning  prune.Config  `yaml:"pruning"`
	Search   bridge.Config `yaml:"search"`
	Storage  Storage       `yaml:"storage"`
	Ingest   Ingest        `yaml:"ingest"`
	Server   Server        `yaml:"server"`
	Workers  Workers       `yaml:"workers"`
	Logging  Logging       `yaml:"logging"`
	Agent    Agent         `yaml:"agent"`
}

func Default() *Config {
	d := agent.DefaultConfig()
	return &Config{
		Blooming: d.Bloom,
		Pruning:  d.Prune,
		Search:   d.Search,
		Storage:  Storage{Driver: "sqlite", Path: "eocatr.db"},
		Ingest: Ingest{
			RedisURL: "redis://localhost:6379/0",
			Stream:   ingest.DefaultStream,
			Group:    ingest.DefaultGroup,
			Consumer: "agent-1",
		},
		Server:  Server{Socket: "/tmp/eocatr.sock"},
		Workers: Workers{DecisionWorkers: 4},
		Logging: Logging{Level: "info", Format: "text"},
		Agent: Agent{
			HistorySize:      d.HistorySize,
			PendingSize:      d.PendingSize,
			MaintainEvery:    50,
			MaintainInterval: 5 * time.Minute,
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates. A missing file at an empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("config file %s not found", path)
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Storage.Path = getEnv("EOCATR_DB_PATH", c.Storage.Path)
	if url := os.Getenv("EOCATR_DATABASE_URL"); url != "" {
		c.Storage.URL = url
		c.Storage.Driver = "postgres"
	}
	c.Ingest.RedisURL = getEnv("EOCATR_REDIS_URL", c.Ingest.RedisURL)
	c.Logging.Level = getEnv("EOCATR_LOG_LEVEL", c.Logging.Level)
	c.Server.Socket = getEnv("EOCATR_SOCKET", c.Server.Socket)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Validate clamps numeric knobs to their valid ranges and rejects settings
// that cannot be clamped.
func (c *Config) Validate() error {
	b := &c.Blooming
	b.MinPairs = clampInt(b.MinPairs, 1, 100)
	b.MaxPairs = clampInt(b.MaxPairs, b.MinPairs, 100)
	b.MaxTriples = clampInt(b.MaxTriples, 0, 20)
	b.Layer3Gate = clamp(b.Layer3Gate, 0, 1)
	b.MirrorThreshold = clamp(b.MirrorThreshold, 0, 1)
	b.MirrorRatio = clamp(b.MirrorRatio, 0, 1)
	b.DedupSimilarity = clamp(b.DedupSimilarity, 0, 1)

	p := &c.Pruning
	p.PromotionThreshold = clamp(p.PromotionThreshold, 0, 1)
	for i := range p.LayerThresholds {
		p.LayerThresholds[i] = clamp(p.LayerThresholds[i], 0, 1)
	}
	p.RelevanceCutoff = clamp(p.RelevanceCutoff, 0, 1)
	p.SupportCutoff = clamp(p.SupportCutoff, 0, 1)
	p.RejectCutoff = clamp(p.RejectCutoff, 0, 1)
	p.ValidatedScore = clamp(p.ValidatedScore, 0, 1)
	p.PruneScore = clamp(p.PruneScore, 0, 1)
	p.AgedScore = clamp(p.AgedScore, 0, 1)
	p.MinSupport = max(p.MinSupport, 0)
	p.MinRejections = max(p.MinRejections, 0)
	if p.MaxAge < 0 {
		p.MaxAge = 0
	}

	s := &c.Search
	s.MaxDepth = clampInt(s.MaxDepth, 1, 32)
	s.MaxExpansions = clampInt(s.MaxExpansions, 1, 1_000_000)
	s.CacheSize = max(s.CacheSize, 0)

	c.Workers.DecisionWorkers = clampInt(c.Workers.DecisionWorkers, 1, 256)
	c.Agent.HistorySize = max(c.Agent.HistorySize, 1)
	c.Agent.PendingSize = max(c.Agent.PendingSize, 1)
	c.Agent.MaintainEvery = max(c.Agent.MaintainEvery, 1)
	if c.Agent.MaintainInterval <= 0 {
		c.Agent.MaintainInterval = Default().Agent.MaintainInterval
	}

	switch strings.ToLower(c.Storage.Driver) {
	case "sqlite", "":
		if c.Storage.Path == "" {
			return errors.New("storage.path is required for sqlite")
		}
	case "postgres", "postgresql":
		if c.Storage.URL == "" {
			return errors.New("storage.url is required for postgres")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}

	if _, err := c.Logging.SlogLevel(); err != nil {
		return err
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown logging.format %q", c.Logging.Format)
	}
	return nil
}

// SlogLevel parses Level; empty means info.
func (l Logging) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("logging.level: %w", err)
	}
	return lvl, nil
}

// AgentConfig builds the pipeline configuration.
func (c *Config) AgentConfig() agent.Config {
	cfg := agent.Config{
		Bloom:       c.Blooming,
		Prune:       c.Pruning,
		Search:      c.Search,
		HistorySize: c.Agent.HistorySize,
		PendingSize: c.Agent.PendingSize,
	}
	if len(c.Agent.Opposites) > 0 {
		table := semantic.DefaultOpposites()
		for a, b := range c.Agent.Opposites {
			table[a] = b
			table[b] = a
		}
		cfg.Opposites = table
	}
	return cfg
}

// clampInt restricts v to [lo, hi].
func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// clamp restricts v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
