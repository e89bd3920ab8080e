// Package types provides shared type definitions used across draftguard packages.
// This package exists to break import cycles between the constraint, reconcile,
// validation, and orchestrator packages. Types in this package should be
// foundational data structures with no complex dependencies.
package types

import (
	"fmt"
	"time"
)

// =============================================================================
// CLARIFICATION PHASE
// =============================================================================

// Priority ranks how strongly a clarification question binds the answer.
type Priority string

const (
	PriorityMust   Priority = "must"
	PriorityShould Priority = "should"
	PriorityCould  Priority = "could"
)

// ConstraintKind classifies what kind of constraint an answered question imposes.
type ConstraintKind string

const (
	KindRequirement ConstraintKind = "requirement"
	KindExclusion   ConstraintKind = "exclusion"
	KindPreference  ConstraintKind = "preference"
	KindNone        ConstraintKind = "none"
)

// Clarification is one answered question from the pre-generation phase.
// Immutable after creation; owned by the workflow execution.
type Clarification struct {
	ID             string         `json:"id" yaml:"id"`
	Question       string         `json:"question_text" yaml:"question"`
	Priority       Priority       `json:"priority" yaml:"priority"`
	ConstraintKind ConstraintKind `json:"constraint_kind" yaml:"constraint_kind"`
	Answer         interface{}    `json:"answer" yaml:"answer"`
	AnswerLabel    string         `json:"answer_label" yaml:"answer_label"`
	Resolved       bool           `json:"resolved" yaml:"resolved"`

	// Options lists the enumerated choices the question offered, when it was a
	// selection question. Used to detect a non-selected alternative being
	// asserted as the chosen one.
	Options []string `json:"options,omitempty" yaml:"options,omitempty"`
}

// AnnotatedClarification is a Clarification with its derived binding flag attached.
type AnnotatedClarification struct {
	Clarification
	Binding bool `json:"binding"`
}

// InvariantKind is the binding flavor of an invariant.
type InvariantKind string

const (
	InvariantRequirement InvariantKind = "requirement"
	InvariantExclusion   InvariantKind = "exclusion"
)

// Invariant is the binding form of a Clarification. Derived deterministically,
// never mutated; recomputed whenever the clarification set changes.
type Invariant struct {
	ID             string        `json:"id"`
	NormalizedText string        `json:"normalized_text"`
	Kind           InvariantKind `json:"invariant_kind"`
	Priority       Priority      `json:"priority"`

	// CanonicalTags is the lowercase token set derived from the normalized
	// text, used for overlap matching. Documented as the primary source of
	// false positives and negatives in reconciliation and validation.
	CanonicalTags []string `json:"canonical_tags"`
}

// =============================================================================
// GENERATED DOCUMENT
// =============================================================================

// SourceUserClarification marks constraint entries pinned from user decisions.
const SourceUserClarification = "user_clarification"

// ConstraintEntry is one entry in a document's known_constraints section.
type ConstraintEntry struct {
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
}

// Pinned reports whether the entry was pinned from a user clarification.
func (e ConstraintEntry) Pinned() bool {
	return e.Source == SourceUserClarification
}

// GeneratedDocument is the structured record produced by the generation
// service, one per attempt. Each attempt supersedes the previous document
// entirely; documents are never merged.
type GeneratedDocument struct {
	Title               string            `json:"title,omitempty"`
	Summary             string            `json:"summary,omitempty"`
	KnownConstraints    []ConstraintEntry `json:"known_constraints"`
	Assumptions         []string          `json:"assumptions"`
	Recommendations     []string          `json:"recommendations"`
	Unknowns            []string          `json:"unknowns"`
	EarlyDecisionPoints []string          `json:"early_decision_points"`
}

// =============================================================================
// VALIDATION
// =============================================================================

// Severity of a validation finding.
type Severity string

const (
	SeverityFatal   Severity = "fatal"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Blocking reports whether the severity fails the attempt.
func (s Severity) Blocking() bool {
	return s == SeverityFatal || s == SeverityError
}

// Finding is one validation rule violation.
type Finding struct {
	RuleID   string   `json:"rule_id"`
	Severity Severity `json:"severity"`
	Location string   `json:"location"`
	Message  string   `json:"message"`
}

func (f Finding) String() string {
	return fmt.Sprintf("[%s] %s at %s: %s", f.Severity, f.RuleID, f.Location, f.Message)
}

// Outcome aggregates findings into a pass/fail verdict.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
)

// ValidationResult is the ordered finding list for one attempt, produced
// fresh per attempt and never mutated after creation.
type ValidationResult struct {
	Findings []Finding `json:"findings"`
	Outcome  Outcome   `json:"outcome"`

	// HaltedAt records the rule group that short-circuited the pipeline,
	// empty when all groups ran.
	HaltedAt string `json:"halted_at,omitempty"`
}

// OutcomeOf computes the aggregate outcome: success unless any fatal or
// error finding is present.
func OutcomeOf(findings []Finding) Outcome {
	for _, f := range findings {
		if f.Severity.Blocking() {
			return OutcomeFailed
		}
	}
	return OutcomeSuccess
}

// BlockingFindings returns the subset of findings that fail the attempt.
func BlockingFindings(findings []Finding) []Finding {
	var out []Finding
	for _, f := range findings {
		if f.Severity.Blocking() {
			out = append(out, f)
		}
	}
	return out
}

// =============================================================================
// FEEDBACK & RECONCILIATION
// =============================================================================

// QAFeedbackRecord carries a failed attempt's blocking findings into the next
// context build. Created on failure, cleared on success; exactly one live
// record per execution at a time.
type QAFeedbackRecord struct {
	AttemptID string    `json:"attempt_id"`
	CreatedAt time.Time `json:"created_at"`
	Findings  []Finding `json:"findings"`
}

// ReconciliationReport carries the observable counts from the reconciliation
// stage, attached to the document for audit and logging.
type ReconciliationReport struct {
	Pinned                 int `json:"pinned"`
	DuplicatesRemoved      int `json:"duplicates_removed"`
	Kept                   int `json:"kept"`
	RecommendationsDropped int `json:"recommendations_dropped"`
	DecisionPointsDropped  int `json:"decision_points_dropped"`
}
