// Package validation implements the layered post-generation gate: a fixed,
// ordered sequence of rule groups over the reconciled document, each tagged
// with a severity, with fail-fast groups that halt the pipeline on an
// actual fatal finding. Mechanical checks (regex, keyword and token
// overlap, Jaccard) run first; the optional semantic judge runs last.
package validation

import (
	"context"

	"draftguard/internal/constraint"
	"draftguard/internal/logging"
	"draftguard/internal/types"
)

// DefaultJaccardThreshold is the similarity above which a constraint and an
// assumption are considered internally contradictory duplicates.
const DefaultJaccardThreshold = 0.5

// Input carries everything the rule groups inspect for one attempt.
type Input struct {
	Doc            *types.GeneratedDocument
	Invariants     []types.Invariant
	Clarifications []types.AnnotatedClarification

	// InputContext is the original extracted context the document was
	// generated from, used by the grounding check.
	InputContext string

	// Blocklist is the policy-conformance keyword list.
	Blocklist []string
}

// group is one pipeline stage. failFast groups halt the pipeline when they
// produce a fatal finding; they never halt pre-emptively.
type group struct {
	id       string
	failFast bool
	run      func(e *Engine, in *Input, setting RuleSetting) []types.Finding
}

// Engine runs the ordered rule pipeline.
type Engine struct {
	matcher          constraint.TextOverlapMatcher
	cfg              RuleConfig
	jaccardThreshold float64

	judge      Judge
	onJudgeErr JudgeErrorPolicy
	groups     []group
}

// NewEngine creates an engine with the given matcher and rule configuration.
func NewEngine(matcher constraint.TextOverlapMatcher, cfg RuleConfig) *Engine {
	if cfg == nil {
		cfg = DefaultRuleConfig()
	}
	e := &Engine{
		matcher:          matcher,
		cfg:              cfg,
		jaccardThreshold: DefaultJaccardThreshold,
		onJudgeErr:       JudgeErrorSkip,
	}
	e.groups = []group{
		{id: RuleContradiction, failFast: true, run: (*Engine).checkContradiction},
		{id: RuleReopenedDecision, run: (*Engine).checkReopenedDecision},
		{id: RuleConstraintStated, run: (*Engine).checkConstraintStated},
		{id: RuleTraceability, run: (*Engine).checkTraceability},
		{id: RulePromotionValidity, run: (*Engine).checkPromotionValidity},
		{id: RuleInternalContradiction, run: (*Engine).checkInternalContradiction},
		{id: RulePolicyConformance, run: (*Engine).checkPolicyConformance},
		{id: RuleGrounding, run: (*Engine).checkGrounding},
		{id: RuleSchema, failFast: true, run: (*Engine).checkSchema},
	}
	return e
}

// SetJaccardThreshold overrides the internal-contradiction threshold.
func (e *Engine) SetJaccardThreshold(t float64) {
	if t > 0 {
		e.jaccardThreshold = t
	}
}

// SetJudge configures the optional semantic QA judge and the policy for
// when it cannot be reached.
func (e *Engine) SetJudge(j Judge, onErr JudgeErrorPolicy) {
	e.judge = j
	if onErr != "" {
		e.onJudgeErr = onErr
	}
}

// Validate runs all enabled rule groups in order and aggregates findings.
// A fail-fast group that produces a fatal finding stops the pipeline;
// findings collected before the halt are preserved.
func (e *Engine) Validate(ctx context.Context, in *Input) types.ValidationResult {
	log := logging.Get(logging.CategoryValidation)
	timer := logging.StartTimer(logging.CategoryValidation, "Engine.Validate")
	defer timer.Stop()

	var result types.ValidationResult

	for _, g := range e.groups {
		setting, ok := e.cfg[g.id]
		if !ok || !setting.Enabled {
			log.Debug("rule group %s disabled, skipping", g.id)
			continue
		}

		findings := g.run(e, in, setting)
		result.Findings = append(result.Findings, findings...)

		if g.failFast && hasFatal(findings) {
			log.Warn("rule group %s produced a fatal finding, halting pipeline", g.id)
			result.HaltedAt = g.id
			break
		}
	}

	// Semantic QA runs last, and only when the pipeline was not halted.
	if result.HaltedAt == "" {
		if setting, ok := e.cfg[RuleSemanticQA]; ok && setting.Enabled && e.judge != nil {
			result.Findings = append(result.Findings, e.runJudge(ctx, in)...)
		}
	}

	result.Outcome = types.OutcomeOf(result.Findings)
	log.Info("validation outcome=%s findings=%d halted_at=%q",
		result.Outcome, len(result.Findings), result.HaltedAt)
	return result
}

func hasFatal(findings []types.Finding) bool {
	for _, f := range findings {
		if f.Severity == types.SeverityFatal {
			return true
		}
	}
	return false
}
