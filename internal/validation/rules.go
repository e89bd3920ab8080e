package validation

import (
	"fmt"
	"regexp"
	"strings"

	"draftguard/internal/constraint"
	"draftguard/internal/types"
)

// affirmingVerbs matches language that endorses or selects a value.
var affirmingVerbs = `(?:recommend|recommends|recommended|use|uses|using|include|includes|including|adopt|adopts|adopting|add|adds|adding|choose|chose|chosen|select|selects|selected|prefer|prefers|preferred)`

// affirmsValue reports whether text asserts the given value inside one
// clause with an affirming verb, in either order.
func affirmsValue(text, value string) bool {
	v := regexp.QuoteMeta(strings.ToLower(value))
	verbFirst := regexp.MustCompile(`(?i)\b` + affirmingVerbs + `\b[^.!?\n]*\b` + v + `s?\b`)
	valueFirst := regexp.MustCompile(`(?i)\b` + v + `s?\b[^.!?\n]*\b(?:is|as)\s+the\s+(?:chosen|selected|preferred|recommended)\b`)
	return verbFirst.MatchString(text) || valueFirst.MatchString(text)
}

// docSections enumerates the free-text sections of a document with
// locations, excluding pinned constraint entries (they restate invariants
// by construction).
func docSections(doc *types.GeneratedDocument) []struct{ loc, text string } {
	var out []struct{ loc, text string }
	add := func(loc, text string) {
		out = append(out, struct{ loc, text string }{loc, text})
	}

	if doc.Summary != "" {
		add("summary", doc.Summary)
	}
	for i, e := range doc.KnownConstraints {
		if !e.Pinned() {
			add(fmt.Sprintf("known_constraints[%d]", i), e.Text)
		}
	}
	for i, s := range doc.Assumptions {
		add(fmt.Sprintf("assumptions[%d]", i), s)
	}
	for i, s := range doc.Recommendations {
		add(fmt.Sprintf("recommendations[%d]", i), s)
	}
	for i, s := range doc.EarlyDecisionPoints {
		add(fmt.Sprintf("early_decision_points[%d]", i), s)
	}
	return out
}

// checkContradiction flags excluded values co-occurring with affirming
// verbs, and non-selected alternatives asserted as the chosen one.
func (e *Engine) checkContradiction(in *Input, setting RuleSetting) []types.Finding {
	var findings []types.Finding
	sections := docSections(in.Doc)

	for _, inv := range in.Invariants {
		if inv.Kind != types.InvariantExclusion {
			continue
		}
		for _, tag := range inv.CanonicalTags {
			for _, sec := range sections {
				if affirmsValue(sec.text, tag) {
					findings = append(findings, types.Finding{
						RuleID:   RuleContradiction,
						Severity: setting.Severity,
						Location: sec.loc,
						Message: fmt.Sprintf("excluded topic %q (invariant %s) is affirmed: %q",
							tag, inv.ID, sec.text),
					})
				}
			}
		}
	}

	// Selection questions: asserting a rejected alternative contradicts the
	// recorded choice.
	byID := make(map[string]types.AnnotatedClarification, len(in.Clarifications))
	for _, c := range in.Clarifications {
		byID[c.ID] = c
	}
	for _, inv := range in.Invariants {
		c, ok := byID[inv.ID]
		if !ok || len(c.Options) == 0 {
			continue
		}
		for _, opt := range c.Options {
			if strings.EqualFold(opt, inv.NormalizedText) {
				continue
			}
			for _, sec := range sections {
				if affirmsValue(sec.text, opt) {
					findings = append(findings, types.Finding{
						RuleID:   RuleContradiction,
						Severity: setting.Severity,
						Location: sec.loc,
						Message: fmt.Sprintf("non-selected alternative %q asserted against invariant %s (%q)",
							opt, inv.ID, inv.NormalizedText),
					})
				}
			}
		}
	}

	return findings
}

// checkReopenedDecision flags open questions that overlap an already-bound
// decision's canonical tags. Disabled by default: the heuristic cannot
// distinguish a follow-up question from a reopened decision.
func (e *Engine) checkReopenedDecision(in *Input, setting RuleSetting) []types.Finding {
	var findings []types.Finding
	for _, inv := range in.Invariants {
		for i, q := range in.Doc.Unknowns {
			if e.matcher.TagOverlap(q, inv.CanonicalTags) >= 1 {
				findings = append(findings, types.Finding{
					RuleID:   RuleReopenedDecision,
					Severity: setting.Severity,
					Location: fmt.Sprintf("unknowns[%d]", i),
					Message:  fmt.Sprintf("open question overlaps bound decision %s: %q", inv.ID, q),
				})
			}
		}
	}
	return findings
}

// checkConstraintStated verifies each invariant's text appears somewhere in
// known_constraints. Pinning makes this near-certain; a miss is a warning.
func (e *Engine) checkConstraintStated(in *Input, setting RuleSetting) []types.Finding {
	var findings []types.Finding
	for _, inv := range in.Invariants {
		found := false
		for _, entry := range in.Doc.KnownConstraints {
			if entry.Text == inv.NormalizedText ||
				e.matcher.OverlapCount(entry.Text, inv.NormalizedText) >= 2 {
				found = true
				break
			}
		}
		if !found {
			findings = append(findings, types.Finding{
				RuleID:   RuleConstraintStated,
				Severity: setting.Severity,
				Location: "known_constraints",
				Message:  fmt.Sprintf("invariant %s (%q) is not stated in known constraints", inv.ID, inv.NormalizedText),
			})
		}
	}
	return findings
}

// checkTraceability verifies each invariant has its canonical pinned entry.
func (e *Engine) checkTraceability(in *Input, setting RuleSetting) []types.Finding {
	var findings []types.Finding
	for _, inv := range in.Invariants {
		found := false
		for _, entry := range in.Doc.KnownConstraints {
			if entry.Pinned() && entry.Text == inv.NormalizedText {
				found = true
				break
			}
		}
		if !found {
			findings = append(findings, types.Finding{
				RuleID:   RuleTraceability,
				Severity: setting.Severity,
				Location: "known_constraints",
				Message:  fmt.Sprintf("invariant %s is not traceable to a pinned entry", inv.ID),
			})
		}
	}
	return findings
}

// checkPromotionValidity flags constraints that look promoted from a
// should/could answer without backing from any must-priority answer.
// Documented heuristic with a high false-positive and false-negative rate.
func (e *Engine) checkPromotionValidity(in *Input, setting RuleSetting) []types.Finding {
	var mustTags []string
	type weak struct {
		id   string
		tags []string
	}
	var weaks []weak

	for _, c := range in.Clarifications {
		if !c.Resolved {
			continue
		}
		tags := constraint.AnswerTags(c.Clarification)
		switch c.Priority {
		case types.PriorityMust:
			mustTags = append(mustTags, tags...)
		case types.PriorityShould, types.PriorityCould:
			if len(tags) > 0 {
				weaks = append(weaks, weak{id: c.ID, tags: tags})
			}
		}
	}

	var findings []types.Finding
	for i, entry := range in.Doc.KnownConstraints {
		if entry.Pinned() {
			continue
		}
		if e.matcher.TagOverlap(entry.Text, mustTags) > 0 {
			continue
		}
		for _, w := range weaks {
			if e.matcher.TagOverlap(entry.Text, w.tags) > 0 {
				findings = append(findings, types.Finding{
					RuleID:   RulePromotionValidity,
					Severity: setting.Severity,
					Location: fmt.Sprintf("known_constraints[%d]", i),
					Message: fmt.Sprintf("constraint %q may promote %s-priority answer %s to binding",
						entry.Text, string(byPriority(in.Clarifications, w.id)), w.id),
				})
				break
			}
		}
	}
	return findings
}

func byPriority(cs []types.AnnotatedClarification, id string) types.Priority {
	for _, c := range cs {
		if c.ID == id {
			return c.Priority
		}
	}
	return ""
}

// checkInternalContradiction flags constraint/assumption pairs whose token
// sets are near-duplicates: a fact cannot be both guaranteed and assumed.
func (e *Engine) checkInternalContradiction(in *Input, setting RuleSetting) []types.Finding {
	var findings []types.Finding
	for i, entry := range in.Doc.KnownConstraints {
		for j, assumption := range in.Doc.Assumptions {
			sim := e.matcher.Jaccard(entry.Text, assumption)
			if sim > e.jaccardThreshold {
				findings = append(findings, types.Finding{
					RuleID:   RuleInternalContradiction,
					Severity: setting.Severity,
					Location: fmt.Sprintf("known_constraints[%d]/assumptions[%d]", i, j),
					Message: fmt.Sprintf("constraint %q and assumption %q overlap (jaccard %.2f): a guaranteed fact must not also be assumed",
						entry.Text, assumption, sim),
				})
			}
		}
	}
	return findings
}

// DefaultBlocklist is the shipped policy-conformance keyword list for open
// questions.
var DefaultBlocklist = []string{"password", "credential", "secret", "api key"}

// checkPolicyConformance applies the keyword blocklist to open questions.
func (e *Engine) checkPolicyConformance(in *Input, setting RuleSetting) []types.Finding {
	blocklist := in.Blocklist
	if blocklist == nil {
		blocklist = DefaultBlocklist
	}

	var findings []types.Finding
	for i, q := range in.Doc.Unknowns {
		lower := strings.ToLower(q)
		for _, kw := range blocklist {
			if strings.Contains(lower, kw) {
				findings = append(findings, types.Finding{
					RuleID:   RulePolicyConformance,
					Severity: setting.Severity,
					Location: fmt.Sprintf("unknowns[%d]", i),
					Message:  fmt.Sprintf("open question mentions blocked keyword %q: %q", kw, q),
				})
			}
		}
	}
	return findings
}

// guardrailMarkers identify statements that impose behavior.
var guardrailMarkers = []string{"never", "must", "always", "only", "avoid", "require", "forbidden"}

// checkGrounding flags guardrail-like statements with no keyword overlap
// with the original input context: an invented guardrail has no provenance.
func (e *Engine) checkGrounding(in *Input, setting RuleSetting) []types.Finding {
	if in.InputContext == "" {
		return nil
	}
	ctxTags := constraint.Tokenize(in.InputContext)

	var findings []types.Finding
	for _, sec := range docSections(in.Doc) {
		lower := strings.ToLower(sec.text)
		guardrail := false
		for _, marker := range guardrailMarkers {
			if strings.Contains(lower, marker) {
				guardrail = true
				break
			}
		}
		if !guardrail {
			continue
		}
		if e.matcher.TagOverlap(sec.text, ctxTags) == 0 {
			findings = append(findings, types.Finding{
				RuleID:   RuleGrounding,
				Severity: setting.Severity,
				Location: sec.loc,
				Message:  fmt.Sprintf("guardrail statement has no grounding in the input context: %q", sec.text),
			})
		}
	}
	return findings
}

// checkSchema verifies the document's structural shape. The generation
// service is never trusted to conform to the declared schema.
func (e *Engine) checkSchema(in *Input, setting RuleSetting) []types.Finding {
	var findings []types.Finding
	missing := func(section string) {
		findings = append(findings, types.Finding{
			RuleID:   RuleSchema,
			Severity: setting.Severity,
			Location: section,
			Message:  fmt.Sprintf("required section %q is missing", section),
		})
	}

	doc := in.Doc
	if doc.KnownConstraints == nil {
		missing("known_constraints")
	}
	if doc.Assumptions == nil {
		missing("assumptions")
	}
	if doc.Recommendations == nil {
		missing("recommendations")
	}
	if doc.Unknowns == nil {
		missing("unknowns")
	}
	if doc.EarlyDecisionPoints == nil {
		missing("early_decision_points")
	}

	for i, entry := range doc.KnownConstraints {
		if strings.TrimSpace(entry.Text) == "" {
			findings = append(findings, types.Finding{
				RuleID:   RuleSchema,
				Severity: setting.Severity,
				Location: fmt.Sprintf("known_constraints[%d]", i),
				Message:  "constraint entry has empty text",
			})
		}
	}
	return findings
}
