package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"draftguard/internal/config"
	"draftguard/internal/types"
)

func TestExecutionContextAppliesConfiguredTimeout(t *testing.T) {
	cfg = config.DefaultConfig()
	cfg.LLM.Timeout = "45s"

	ctx, cancel := executionContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("execution context carries no deadline")
	}
	remaining := time.Until(deadline)
	if remaining <= 0 || remaining > 45*time.Second {
		t.Fatalf("deadline %v from now, want within 45s", remaining)
	}
}

func TestWriteDocumentMarkdown(t *testing.T) {
	outDir = t.TempDir()
	outFormat = "md"

	doc := &types.GeneratedDocument{
		Title:               "Test Plan",
		KnownConstraints:    []types.ConstraintEntry{{Text: "Works offline"}},
		Assumptions:         []string{},
		Recommendations:     []string{},
		Unknowns:            []string{},
		EarlyDecisionPoints: []string{},
	}

	path, err := writeDocument("intake/recipe-planner.yaml", doc)
	if err != nil {
		t.Fatalf("writeDocument: %v", err)
	}
	if filepath.Base(path) != "recipe-planner.md" {
		t.Fatalf("output path = %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), "# Test Plan") {
		t.Fatalf("output content = %q", data)
	}
}

func TestWriteDocumentRejectsUnknownFormat(t *testing.T) {
	outDir = t.TempDir()
	outFormat = "pdf"

	_, err := writeDocument("x.yaml", &types.GeneratedDocument{})
	if err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	path := filepath.Join(t.TempDir(), "draftguard.yaml")

	if err := writeDefaultConfig(path, false); err != nil {
		t.Fatalf("writeDefaultConfig: %v", err)
	}

	// The written file loads back as a valid config.
	loaded, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load written config: %v", err)
	}
	if loaded.Pipeline.MaxAttempts != 3 || loaded.LLM.Provider != "gemini" {
		t.Fatalf("written config = %+v", loaded)
	}

	// Refuses to clobber without --force.
	if err := writeDefaultConfig(path, false); err == nil {
		t.Fatal("expected error overwriting existing config")
	}
	if err := writeDefaultConfig(path, true); err != nil {
		t.Fatalf("forced overwrite: %v", err)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("a very long task prompt indeed", 10); got != "a very ..." {
		t.Fatalf("truncate = %q", got)
	}
}
