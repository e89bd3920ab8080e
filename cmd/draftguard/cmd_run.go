package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"draftguard/internal/config"
	"draftguard/internal/constraint"
	"draftguard/internal/export"
	"draftguard/internal/generation"
	"draftguard/internal/orchestrator"
	"draftguard/internal/reconcile"
	"draftguard/internal/store"
	"draftguard/internal/types"
	"draftguard/internal/validation"
)

var (
	outDir    string
	outFormat string
	noStore   bool
)

// runCmd processes one or more clarification files
var runCmd = &cobra.Command{
	Use:   "run [clarification-file...]",
	Short: "Generate and validate a planning document from clarification answers",
	Long: `Reads one or more clarification YAML files, derives binding constraints
from the resolved answers, and runs the full generate-reconcile-validate
loop for each. Files are processed concurrently; attempts within one
execution stay strictly sequential.

Example:
  draftguard run intake/recipe-planner.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExecutions,
}

func init() {
	runCmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory for rendered documents")
	runCmd.Flags().StringVar(&outFormat, "format", "md", "output format: md or html")
	runCmd.Flags().BoolVar(&noStore, "no-store", false, "skip SQLite persistence")
}

// buildPipeline assembles the orchestrator and its collaborators from config.
func buildPipeline(ctx context.Context, cfg *config.Config) (*orchestrator.Orchestrator, *store.LocalStore, error) {
	client, err := generation.NewClient(ctx, generation.ProviderSettings{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build generation client: %w", err)
	}

	rules, err := cfg.RuleConfig()
	if err != nil {
		return nil, nil, err
	}

	matcher := constraint.NewTokenMatcher()
	engine := validation.NewEngine(matcher, rules)
	engine.SetJaccardThreshold(cfg.Pipeline.JaccardThreshold)

	if cfg.Judge.Enabled {
		policy, err := os.ReadFile(cfg.Judge.PolicyPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read judge policy: %w", err)
		}
		engine.SetJudge(
			validation.NewLLMJudge(client, string(policy)),
			validation.JudgeErrorPolicy(cfg.Judge.OnUnavailable),
		)
	}

	reconciler := reconcile.New(matcher)
	reconciler.SetThresholds(cfg.Pipeline.PinOverlapThreshold, cfg.Pipeline.ExclusionOverlapThreshold)

	orch := orchestrator.New(client, engine, reconciler)
	orch.SetMaxAttempts(cfg.Pipeline.MaxAttempts)

	var db *store.LocalStore
	if !noStore {
		db, err = store.NewLocalStore(cfg.Store.DatabasePath)
		if err != nil {
			return nil, nil, err
		}
		orch.SetStore(db)
	}
	return orch, db, nil
}

func runExecutions(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	orch, db, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, path := range args {
		path := path
		g.Go(func() error {
			return runOne(gctx, orch, db, path)
		})
	}
	return g.Wait()
}

// executionContext bounds one execution by the configured LLM timeout, so a
// hung provider call cannot stall the command indefinitely.
func executionContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, cfg.GetLLMTimeout())
}

func runOne(ctx context.Context, orch *orchestrator.Orchestrator, db *store.LocalStore, path string) error {
	intake, err := constraint.LoadFile(path)
	if err != nil {
		return err
	}

	ctx, cancel := executionContext(ctx)
	defer cancel()

	res, err := orch.Run(ctx, intake.Clarifications, orchestrator.TaskParams{
		Prompt:           intake.Task,
		ExtractedContext: intake.ExtractedContext,
		Blocklist:        cfg.Pipeline.Blocklist,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	if db != nil {
		if err := db.CreateExecution(res.ExecutionID, intake.Task); err != nil {
			logger.Warn("failed to record execution", zap.String("id", res.ExecutionID), zap.Error(err))
		} else {
			if err := db.SaveClarifications(res.ExecutionID, intake.Clarifications); err != nil {
				logger.Warn("failed to record clarifications", zap.String("id", res.ExecutionID), zap.Error(err))
			}
			if err := db.FinishExecution(res.ExecutionID, res.Outcome, res.Attempts); err != nil {
				logger.Warn("failed to finish execution", zap.String("id", res.ExecutionID), zap.Error(err))
			}
		}
	}

	if res.Outcome != types.OutcomeSuccess {
		printFindings(path, res)
		return fmt.Errorf("%s: validation failed after %d attempts", path, res.Attempts)
	}

	outPath, err := writeDocument(path, res.Document)
	if err != nil {
		return err
	}
	fmt.Printf("%s: success after %d attempt(s) -> %s\n", path, res.Attempts, outPath)
	return nil
}

func printFindings(path string, res *orchestrator.Result) {
	fmt.Fprintf(os.Stderr, "%s: execution %s failed\n", path, res.ExecutionID)
	for _, f := range res.Validation.Findings {
		fmt.Fprintf(os.Stderr, "  [%s] %s at %s: %s\n", f.Severity, f.RuleID, f.Location, f.Message)
	}
}

func writeDocument(srcPath string, doc *types.GeneratedDocument) (string, error) {
	base := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))

	var content, ext string
	switch outFormat {
	case "md":
		content = export.RenderMarkdown(doc)
		ext = ".md"
	case "html":
		html, err := export.RenderHTML(doc)
		if err != nil {
			return "", err
		}
		content = html
		ext = ".html"
	default:
		return "", fmt.Errorf("unknown output format %q", outFormat)
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outPath := filepath.Join(outDir, base+ext)
	if err := os.WriteFile(outPath, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write document: %w", err)
	}
	return outPath, nil
}
