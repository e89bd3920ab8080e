package validation

import "draftguard/internal/types"

// Rule group identifiers, in pipeline order.
const (
	RuleContradiction         = "contradiction"
	RuleReopenedDecision      = "reopened_decision"
	RuleConstraintStated      = "constraint_stated"
	RuleTraceability          = "traceability"
	RulePromotionValidity     = "promotion_validity"
	RuleInternalContradiction = "internal_contradiction"
	RulePolicyConformance     = "policy_conformance"
	RuleGrounding             = "grounding"
	RuleSchema                = "schema"
	RuleSemanticQA            = "semantic_qa"
)

// RuleSetting is the per-group enablement and severity. Modeling the
// disabled reopened-decision check as configuration keeps it first-class
// and testable instead of dead code.
type RuleSetting struct {
	Enabled  bool           `json:"enabled" yaml:"enabled"`
	Severity types.Severity `json:"severity" yaml:"severity"`
}

// RuleConfig maps rule group id to its setting.
type RuleConfig map[string]RuleSetting

// DefaultRuleConfig returns the shipped configuration. The
// reopened-decision check is off by default: its tag-overlap heuristic
// cannot tell a follow-up question from a reopened decision and the
// false-positive rate is too high to ship enabled.
func DefaultRuleConfig() RuleConfig {
	return RuleConfig{
		RuleContradiction:         {Enabled: true, Severity: types.SeverityFatal},
		RuleReopenedDecision:      {Enabled: false, Severity: types.SeverityError},
		RuleConstraintStated:      {Enabled: true, Severity: types.SeverityWarning},
		RuleTraceability:          {Enabled: true, Severity: types.SeverityWarning},
		RulePromotionValidity:     {Enabled: true, Severity: types.SeverityWarning},
		RuleInternalContradiction: {Enabled: true, Severity: types.SeverityError},
		RulePolicyConformance:     {Enabled: true, Severity: types.SeverityWarning},
		RuleGrounding:             {Enabled: true, Severity: types.SeverityWarning},
		RuleSchema:                {Enabled: true, Severity: types.SeverityFatal},
		RuleSemanticQA:            {Enabled: true, Severity: types.SeverityFatal},
	}
}

// Merge overlays overrides onto the receiver, returning a new config.
func (c RuleConfig) Merge(overrides RuleConfig) RuleConfig {
	out := make(RuleConfig, len(c))
	for id, s := range c {
		out[id] = s
	}
	for id, s := range overrides {
		out[id] = s
	}
	return out
}
