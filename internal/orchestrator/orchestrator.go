// Package orchestrator sequences one workflow execution: context building,
// generation, reconciliation, and validation, with a bounded remediation
// loop that feeds a failed attempt's blocking findings back into the next
// context build. Attempts are strictly sequential; each depends on the
// validation result of the previous one.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"draftguard/internal/constraint"
	"draftguard/internal/generation"
	"draftguard/internal/logging"
	"draftguard/internal/prompt"
	"draftguard/internal/reconcile"
	"draftguard/internal/types"
	"draftguard/internal/validation"
)

// State names one phase of an attempt. Terminal states are success and
// failed; cancellation is the surrounding caller's concern.
type State string

const (
	StateBuildingContext State = "building_context"
	StateGenerating      State = "generating"
	StateReconciling     State = "reconciling"
	StateValidating      State = "validating"
	StateSuccess         State = "success"
	StateFailed          State = "failed"
)

// DefaultMaxAttempts bounds the remediation loop.
const DefaultMaxAttempts = 3

// TaskParams is the caller-supplied task definition, passed through to the
// context builder.
type TaskParams struct {
	Prompt           string
	SchemaRef        string
	ExtractedContext string
	Blocklist        []string
}

// AttemptRecord is the audit trail of one attempt.
type AttemptRecord struct {
	ID         string                     `json:"id"`
	Number     int                        `json:"number"`
	Document   types.GeneratedDocument    `json:"document"`
	Report     types.ReconciliationReport `json:"report"`
	Validation types.ValidationResult     `json:"validation"`
}

// Result is the terminal outcome of an execution.
type Result struct {
	ExecutionID string
	Outcome     types.Outcome
	Document    *types.GeneratedDocument
	Validation  types.ValidationResult
	Attempts    int
	History     []AttemptRecord

	// Feedback is the live QA record after a terminal failure, reflecting
	// only the last attempt's blocking findings. Nil after success.
	Feedback *types.QAFeedbackRecord
}

// Store persists execution state between and after attempts. Optional; a
// nil store keeps everything in memory.
type Store interface {
	SaveAttempt(executionID string, rec AttemptRecord) error
	SetFeedback(executionID string, rec types.QAFeedbackRecord) error
	ClearFeedback(executionID string) error
}

// Orchestrator wires the pipeline stages together.
type Orchestrator struct {
	client      generation.Client
	engine      *validation.Engine
	reconciler  *reconcile.Reconciler
	store       Store
	maxAttempts int
	retry       generation.RetryPolicy
}

// New creates an orchestrator over the given collaborators.
func New(client generation.Client, engine *validation.Engine, reconciler *reconcile.Reconciler) *Orchestrator {
	return &Orchestrator{
		client:      client,
		engine:      engine,
		reconciler:  reconciler,
		maxAttempts: DefaultMaxAttempts,
		retry:       generation.DefaultRetryPolicy(),
	}
}

// SetStore attaches a persistence backend.
func (o *Orchestrator) SetStore(s Store) { o.store = s }

// SetMaxAttempts overrides the remediation bound.
func (o *Orchestrator) SetMaxAttempts(n int) {
	if n > 0 {
		o.maxAttempts = n
	}
}

// SetRetryPolicy overrides the generation-call retry policy.
func (o *Orchestrator) SetRetryPolicy(p generation.RetryPolicy) { o.retry = p }

// Run is the single caller-facing entry point: derive invariants from the
// clarification set, then attempt generation until success or attempts are
// exhausted. The returned error is reserved for non-validation failures
// (malformed input, generation transport failure); a validation failure is
// reported through Result.Outcome with its finding list attached.
func (o *Orchestrator) Run(ctx context.Context, clarifications []types.Clarification, task TaskParams) (*Result, error) {
	log := logging.Get(logging.CategoryPipeline)
	execID := uuid.NewString()
	timer := logging.StartTimer(logging.CategoryPipeline, "execution "+execID)
	defer timer.StopWithInfo()

	merged, err := constraint.Merge(clarifications)
	if err != nil {
		return nil, err
	}
	log.Info("execution %s: %d clarifications, %d invariants",
		execID, len(merged.Clarifications), len(merged.Invariants))

	result := &Result{ExecutionID: execID}
	var feedback *types.QAFeedbackRecord

	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		rec, err := o.runAttempt(ctx, execID, attempt, merged, task, feedback)
		if err != nil {
			return nil, err
		}

		result.Attempts = attempt
		result.History = append(result.History, *rec)
		result.Validation = rec.Validation

		if o.store != nil {
			if err := o.store.SaveAttempt(execID, *rec); err != nil {
				log.Error("execution %s: failed to persist attempt %d: %v", execID, attempt, err)
			}
		}

		if rec.Validation.Outcome == types.OutcomeSuccess {
			log.Info("execution %s: attempt %d succeeded", execID, attempt)
			result.Outcome = types.OutcomeSuccess
			result.Document = &rec.Document
			o.clearFeedback(execID)
			return result, nil
		}

		// Replace, never accumulate: the next attempt addresses only the
		// findings of the document it regenerates.
		feedback = &types.QAFeedbackRecord{
			AttemptID: rec.ID,
			CreatedAt: time.Now().UTC(),
			Findings:  types.BlockingFindings(rec.Validation.Findings),
		}
		if o.store != nil {
			if err := o.store.SetFeedback(execID, *feedback); err != nil {
				log.Error("execution %s: failed to persist feedback: %v", execID, err)
			}
		}
		log.Warn("execution %s: attempt %d failed with %d blocking findings",
			execID, attempt, len(feedback.Findings))
	}

	result.Outcome = types.OutcomeFailed
	result.Feedback = feedback
	if n := len(result.History); n > 0 {
		result.Document = &result.History[n-1].Document
	}
	log.Warn("execution %s: attempts exhausted, terminal failure", execID)
	return result, nil
}

// runAttempt executes one full pipeline pass.
func (o *Orchestrator) runAttempt(
	ctx context.Context,
	execID string,
	number int,
	merged constraint.MergeResult,
	task TaskParams,
	feedback *types.QAFeedbackRecord,
) (*AttemptRecord, error) {
	log := logging.Get(logging.CategoryPipeline)
	rec := &AttemptRecord{ID: uuid.NewString(), Number: number}

	log.Debug("execution %s attempt %d: %s", execID, number, StateBuildingContext)
	payload, err := prompt.Build(prompt.BuildInput{
		Invariants:       merged.Invariants,
		Feedback:         feedback,
		ExtractedContext: task.ExtractedContext,
		TaskPrompt:       task.Prompt,
		SchemaRef:        task.SchemaRef,
	})
	if err != nil {
		return nil, fmt.Errorf("context build failed: %w", err)
	}

	log.Debug("execution %s attempt %d: %s", execID, number, StateGenerating)
	raw, err := generation.CompleteWithRetry(ctx, o.client, o.retry, payload.System, payload.User)
	if err != nil {
		// Transport failure, distinct from a validation failure.
		return nil, err
	}

	doc, parseErr := generation.ParseDocument(raw)
	if parseErr != nil {
		// An unparseable document is a schema violation: a fatal finding
		// that triggers remediation like any other.
		rec.Validation = types.ValidationResult{
			Findings: []types.Finding{{
				RuleID:   validation.RuleSchema,
				Severity: types.SeverityFatal,
				Location: "document",
				Message:  parseErr.Error(),
			}},
			Outcome:  types.OutcomeFailed,
			HaltedAt: validation.RuleSchema,
		}
		return rec, nil
	}
	rec.Document = doc

	log.Debug("execution %s attempt %d: %s", execID, number, StateReconciling)
	rec.Report = o.reconciler.Reconcile(&rec.Document, merged.Invariants)

	log.Debug("execution %s attempt %d: %s", execID, number, StateValidating)
	rec.Validation = o.engine.Validate(ctx, &validation.Input{
		Doc:            &rec.Document,
		Invariants:     merged.Invariants,
		Clarifications: merged.Clarifications,
		InputContext:   task.ExtractedContext,
		Blocklist:      task.Blocklist,
	})

	return rec, nil
}

func (o *Orchestrator) clearFeedback(execID string) {
	if o.store == nil {
		return
	}
	if err := o.store.ClearFeedback(execID); err != nil {
		logging.Get(logging.CategoryPipeline).Error(
			"execution %s: failed to clear feedback: %v", execID, err)
	}
}
