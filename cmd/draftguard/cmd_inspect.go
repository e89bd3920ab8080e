package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"draftguard/internal/store"
)

var inspectLimit int

// inspectCmd reads stored executions back out of SQLite
var inspectCmd = &cobra.Command{
	Use:   "inspect [execution-id]",
	Short: "Show stored executions, attempts, and findings",
	Long: `Without arguments, lists recent executions. With an execution id, prints
each attempt's reconciliation report and validation findings, plus any
live QA feedback left by a terminal failure.`,
	Args: cobra.MaximumNArgs(1),
	RunE: inspectExecutions,
}

func init() {
	inspectCmd.Flags().IntVar(&inspectLimit, "limit", 20, "number of executions to list")
}

func inspectExecutions(cmd *cobra.Command, args []string) error {
	db, err := store.NewLocalStore(cfg.Store.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	if len(args) == 0 {
		return listExecutions(db)
	}
	return showExecution(db, args[0])
}

func listExecutions(db *store.LocalStore) error {
	rows, err := db.ListExecutions(inspectLimit)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("no executions stored")
		return nil
	}

	for _, r := range rows {
		fmt.Printf("%s  %-8s  attempts=%d  %s\n",
			r.ID, r.Outcome, r.Attempts, truncate(r.TaskPrompt, 60))
	}
	return nil
}

func showExecution(db *store.LocalStore, id string) error {
	row, err := db.GetExecution(id)
	if err != nil {
		return err
	}
	fmt.Printf("execution %s\n  task: %s\n  outcome: %s (%d attempts)\n",
		row.ID, row.TaskPrompt, row.Outcome, row.Attempts)

	attempts, err := db.ListAttempts(id)
	if err != nil {
		return err
	}
	for _, a := range attempts {
		fmt.Printf("\nattempt %d (%s)\n", a.Number, a.ID)
		fmt.Printf("  reconciliation: pinned=%d duplicates_removed=%d kept=%d recs_dropped=%d decisions_dropped=%d\n",
			a.Report.Pinned, a.Report.DuplicatesRemoved, a.Report.Kept,
			a.Report.RecommendationsDropped, a.Report.DecisionPointsDropped)
		fmt.Printf("  validation: outcome=%s", a.Validation.Outcome)
		if a.Validation.HaltedAt != "" {
			fmt.Printf(" halted_at=%s", a.Validation.HaltedAt)
		}
		fmt.Println()
		for _, f := range a.Validation.Findings {
			fmt.Printf("    [%s] %s at %s: %s\n", f.Severity, f.RuleID, f.Location, f.Message)
		}
	}

	feedback, err := db.GetFeedback(id)
	if err != nil {
		return err
	}
	if feedback != nil {
		fmt.Printf("\nlive feedback (attempt %s):\n", feedback.AttemptID)
		for _, f := range feedback.Findings {
			fmt.Printf("  [%s] %s: %s\n", f.Severity, f.RuleID, f.Message)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
