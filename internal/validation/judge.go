package validation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"draftguard/internal/generation"
	"draftguard/internal/logging"
	"draftguard/internal/types"
)

// JudgeErrorPolicy decides what an unreachable judge means. The choice is
// explicit configuration, never silent.
type JudgeErrorPolicy string

const (
	// JudgeErrorSkip records a warning finding and continues (default).
	JudgeErrorSkip JudgeErrorPolicy = "skip"
	// JudgeErrorFatal treats an unreachable judge as a fatal finding.
	JudgeErrorFatal JudgeErrorPolicy = "fatal"
)

// JudgeViolation is one violation reported by the semantic judge.
type JudgeViolation struct {
	Code         string `json:"code"`
	Severity     string `json:"severity"`
	Location     string `json:"location"`
	Explanation  string `json:"explanation"`
	SuggestedFix string `json:"suggested_fix"`
}

// CoverageEntry reports the judge's evidence for one binding decision.
type CoverageEntry struct {
	BindingID string `json:"binding_id"`
	Status    string `json:"status"`
	Evidence  string `json:"evidence"`
}

// JudgeVerdict is the judge's full structured answer.
type JudgeVerdict struct {
	Pass       bool             `json:"pass"`
	Violations []JudgeViolation `json:"violations"`
	Coverage   []CoverageEntry  `json:"coverage"`
}

// Judge reviews a reconciled document against the invariant set and an
// explicit policy text supplied by the caller. Treated as an opaque
// external collaborator.
type Judge interface {
	Review(ctx context.Context, invariants []types.Invariant, doc *types.GeneratedDocument) (JudgeVerdict, error)
}

// LLMJudge implements Judge over a generation client.
type LLMJudge struct {
	client generation.Client
	policy string
}

// NewLLMJudge creates a judge with the caller-supplied policy text. The
// policy is never invented here or by the judge model.
func NewLLMJudge(client generation.Client, policy string) *LLMJudge {
	return &LLMJudge{client: client, policy: policy}
}

const judgeSystemPrompt = `You are a strict document reviewer. Judge whether the document honors every
binding decision. Reply with JSON only:
{"pass": bool,
 "violations": [{"code","severity","location","explanation","suggested_fix"}],
 "coverage": [{"binding_id","status","evidence"}]}
Severity must be one of: fatal, error, warning.`

// Review asks the judge model for a verdict.
func (j *LLMJudge) Review(ctx context.Context, invariants []types.Invariant, doc *types.GeneratedDocument) (JudgeVerdict, error) {
	docJSON, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return JudgeVerdict{}, fmt.Errorf("failed to serialize document for judge: %w", err)
	}

	var b strings.Builder
	b.WriteString("## Policy\n")
	b.WriteString(j.policy)
	b.WriteString("\n\n## Binding decisions\n")
	for _, inv := range invariants {
		b.WriteString(fmt.Sprintf("- %s [%s]: %s\n", inv.ID, inv.Kind, inv.NormalizedText))
	}
	b.WriteString("\n## Document\n")
	b.Write(docJSON)

	raw, err := j.client.CompleteWithSystem(ctx, judgeSystemPrompt, b.String())
	if err != nil {
		return JudgeVerdict{}, fmt.Errorf("judge call failed: %w", err)
	}

	var verdict JudgeVerdict
	if err := json.Unmarshal([]byte(generation.StripCodeFences(raw)), &verdict); err != nil {
		return JudgeVerdict{}, fmt.Errorf("judge verdict does not parse: %w", err)
	}
	return verdict, nil
}

// runJudge executes the semantic QA group and maps the verdict to findings.
func (e *Engine) runJudge(ctx context.Context, in *Input) []types.Finding {
	log := logging.Get(logging.CategoryValidation)

	verdict, err := e.judge.Review(ctx, in.Invariants, in.Doc)
	if err != nil {
		log.Warn("semantic judge unavailable: %v", err)
		severity := types.SeverityWarning
		msg := fmt.Sprintf("semantic QA skipped, judge unavailable: %v", err)
		if e.onJudgeErr == JudgeErrorFatal {
			severity = types.SeverityFatal
			msg = fmt.Sprintf("semantic QA required but judge unavailable: %v", err)
		}
		return []types.Finding{{
			RuleID:   RuleSemanticQA,
			Severity: severity,
			Location: "document",
			Message:  msg,
		}}
	}

	var findings []types.Finding
	for _, v := range verdict.Violations {
		findings = append(findings, types.Finding{
			RuleID:   RuleSemanticQA,
			Severity: judgeSeverity(v.Severity),
			Location: v.Location,
			Message:  fmt.Sprintf("%s: %s (suggested fix: %s)", v.Code, v.Explanation, v.SuggestedFix),
		})
	}

	// A failing verdict with no itemized violations still needs at least one
	// finding explaining it.
	if !verdict.Pass && len(findings) == 0 {
		findings = append(findings, types.Finding{
			RuleID:   RuleSemanticQA,
			Severity: types.SeverityError,
			Location: "document",
			Message:  "judge verdict: fail (no itemized violations)",
		})
	}
	return findings
}

// judgeSeverity maps the judge's free-text severity onto ours, defaulting
// unknown values to error rather than trusting the judge.
func judgeSeverity(s string) types.Severity {
	switch types.Severity(strings.ToLower(s)) {
	case types.SeverityFatal:
		return types.SeverityFatal
	case types.SeverityWarning:
		return types.SeverityWarning
	default:
		return types.SeverityError
	}
}
