package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"draftguard/internal/logging"
	"draftguard/internal/reconcile"
	"draftguard/internal/types"
	"draftguard/internal/validation"
)

// Config holds all draftguard configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// LLM configuration
	LLM LLMConfig `yaml:"llm"`

	// Pipeline tuning
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Semantic judge configuration
	Judge JudgeConfig `yaml:"judge"`

	// Per-rule overrides, merged onto the shipped defaults
	Rules map[string]RuleOverride `yaml:"rules"`

	// Persistence
	Store StoreConfig `yaml:"store"`

	// Logging
	Logging logging.Config `yaml:"logging"`
}

// LLMConfig configures the generation service.
type LLMConfig struct {
	Provider string `yaml:"provider"` // gemini, openai
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
}

// PipelineConfig tunes the remediation loop and matching thresholds.
type PipelineConfig struct {
	MaxAttempts               int      `yaml:"max_attempts"`
	PinOverlapThreshold       int      `yaml:"pin_overlap_threshold"`
	ExclusionOverlapThreshold int      `yaml:"exclusion_overlap_threshold"`
	JaccardThreshold          float64  `yaml:"jaccard_threshold"`
	Blocklist                 []string `yaml:"blocklist"`
}

// JudgeConfig configures the semantic QA judge.
type JudgeConfig struct {
	Enabled    bool   `yaml:"enabled"`
	PolicyPath string `yaml:"policy_path"`
	// OnUnavailable: skip (warning finding) or fatal.
	OnUnavailable string `yaml:"on_unavailable"`
}

// RuleOverride overrides one rule group's setting. Nil fields keep the
// shipped default, so enabling a rule does not silently reset its severity.
type RuleOverride struct {
	Enabled  *bool  `yaml:"enabled"`
	Severity string `yaml:"severity"`
}

// StoreConfig configures SQLite persistence.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "draftguard",
		Version: "0.3.0",

		LLM: LLMConfig{
			Provider: "gemini",
			Model:    "gemini-2.0-flash",
			Timeout:  "120s",
		},

		Pipeline: PipelineConfig{
			MaxAttempts:               3,
			PinOverlapThreshold:       reconcile.DefaultPinOverlap,
			ExclusionOverlapThreshold: reconcile.DefaultExclusionOverlap,
			JaccardThreshold:          0.5,
		},

		Judge: JudgeConfig{
			Enabled:       false,
			OnUnavailable: string(validation.JudgeErrorSkip),
		},

		Store: StoreConfig{
			DatabasePath: "data/draftguard.db",
		},

		Logging: logging.Config{
			Enabled:   false,
			Directory: "data/logs",
			Level:     "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		if c.LLM.Provider == "" {
			c.LLM.Provider = "gemini"
		}
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "openai"
	}

	if path := os.Getenv("DRAFTGUARD_DB"); path != "" {
		c.Store.DatabasePath = path
	}
}

// GetLLMTimeout returns the LLM timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// RuleConfig materializes the per-rule overrides onto the shipped defaults.
// Unknown rule ids are rejected so a typo cannot silently disable nothing.
func (c *Config) RuleConfig() (validation.RuleConfig, error) {
	defaults := validation.DefaultRuleConfig()
	if len(c.Rules) == 0 {
		return defaults, nil
	}

	overrides := make(validation.RuleConfig, len(c.Rules))
	for id, o := range c.Rules {
		base, ok := defaults[id]
		if !ok {
			return nil, fmt.Errorf("unknown rule id %q in config", id)
		}
		if o.Enabled != nil {
			base.Enabled = *o.Enabled
		}
		if o.Severity != "" {
			sev, err := parseSeverity(o.Severity)
			if err != nil {
				return nil, fmt.Errorf("rule %q: %w", id, err)
			}
			base.Severity = sev
		}
		overrides[id] = base
	}
	return defaults.Merge(overrides), nil
}

func parseSeverity(s string) (types.Severity, error) {
	switch types.Severity(s) {
	case types.SeverityFatal, types.SeverityError, types.SeverityWarning:
		return types.Severity(s), nil
	default:
		return "", fmt.Errorf("invalid severity %q", s)
	}
}
