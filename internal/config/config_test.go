package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"draftguard/internal/types"
	"draftguard/internal/validation"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Pipeline.MaxAttempts != 3 {
		t.Fatalf("max_attempts = %d, want default 3", cfg.Pipeline.MaxAttempts)
	}
	if cfg.Pipeline.JaccardThreshold != 0.5 {
		t.Fatalf("jaccard_threshold = %v, want default 0.5", cfg.Pipeline.JaccardThreshold)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
llm:
  provider: openai
  model: gpt-4o
pipeline:
  max_attempts: 5
judge:
  enabled: true
  on_unavailable: fatal
rules:
  reopened_decision:
    enabled: true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Provider != "openai" || cfg.LLM.Model != "gpt-4o" {
		t.Fatalf("llm = %+v", cfg.LLM)
	}
	if cfg.Pipeline.MaxAttempts != 5 {
		t.Fatalf("max_attempts = %d", cfg.Pipeline.MaxAttempts)
	}
	// Unset fields keep defaults.
	if cfg.Pipeline.PinOverlapThreshold != 2 {
		t.Fatalf("pin_overlap_threshold = %d, want default 2", cfg.Pipeline.PinOverlapThreshold)
	}
	if !cfg.Judge.Enabled || cfg.Judge.OnUnavailable != "fatal" {
		t.Fatalf("judge = %+v", cfg.Judge)
	}
}

func TestRuleConfigOverlay(t *testing.T) {
	enabled := true
	cfg := DefaultConfig()
	cfg.Rules = map[string]RuleOverride{
		validation.RuleReopenedDecision: {Enabled: &enabled},
		validation.RuleGrounding:        {Severity: "error"},
	}

	rc, err := cfg.RuleConfig()
	if err != nil {
		t.Fatalf("RuleConfig: %v", err)
	}

	// Enabling keeps the shipped severity.
	reopened := rc[validation.RuleReopenedDecision]
	if !reopened.Enabled || reopened.Severity != types.SeverityError {
		t.Fatalf("reopened_decision = %+v", reopened)
	}
	// Changing severity keeps the shipped enablement.
	grounding := rc[validation.RuleGrounding]
	if !grounding.Enabled || grounding.Severity != types.SeverityError {
		t.Fatalf("grounding = %+v", grounding)
	}
	// Untouched rules keep defaults.
	if rc[validation.RuleContradiction].Severity != types.SeverityFatal {
		t.Fatalf("contradiction = %+v", rc[validation.RuleContradiction])
	}
}

func TestRuleConfigRejectsUnknownRule(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rules = map[string]RuleOverride{"contradicton": {Severity: "fatal"}}
	if _, err := cfg.RuleConfig(); err == nil {
		t.Fatal("expected error for unknown rule id")
	}
}

func TestRuleConfigRejectsInvalidSeverity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rules = map[string]RuleOverride{validation.RuleGrounding: {Severity: "critical"}}
	if _, err := cfg.RuleConfig(); err == nil {
		t.Fatal("expected error for invalid severity")
	}
}

func TestGetLLMTimeout(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.GetLLMTimeout(); got != 120*time.Second {
		t.Fatalf("timeout = %v", got)
	}
	cfg.LLM.Timeout = "bogus"
	if got := cfg.GetLLMTimeout(); got != 120*time.Second {
		t.Fatalf("fallback timeout = %v", got)
	}
	cfg.LLM.Timeout = "30s"
	if got := cfg.GetLLMTimeout(); got != 30*time.Second {
		t.Fatalf("timeout = %v", got)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("DRAFTGUARD_DB", "/tmp/override.db")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Provider != "openai" || cfg.LLM.APIKey != "sk-test" {
		t.Fatalf("llm = %+v", cfg.LLM)
	}
	if cfg.Store.DatabasePath != "/tmp/override.db" {
		t.Fatalf("database_path = %s", cfg.Store.DatabasePath)
	}
}
