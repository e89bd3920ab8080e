// Package constraint turns answered clarification questions into binding
// invariants. Derivation is pure and total; merging preserves input order
// and is idempotent so that recomputing invariants from the same
// clarification set always yields identical output.
package constraint

import (
	"fmt"
	"sort"
	"strings"

	"draftguard/internal/types"
)

// Derivation is the binding decision for a single clarification.
type Derivation struct {
	Binding        bool
	Kind           types.InvariantKind
	NormalizedText string
}

// Derive applies the binding precedence rules to one clarification.
// First matching rule wins, evaluated top to bottom:
//  1. unresolved never binds
//  2. resolved exclusion binds as exclusion
//  3. resolved requirement binds as requirement
//  4. resolved must-priority binds as requirement
//  5. otherwise not binding
//
// Total over every enum combination; never panics.
func Derive(c types.Clarification) Derivation {
	text := NormalizedText(c)

	switch {
	case !c.Resolved:
		return Derivation{Binding: false, NormalizedText: text}
	case c.ConstraintKind == types.KindExclusion:
		return Derivation{Binding: true, Kind: types.InvariantExclusion, NormalizedText: text}
	case c.ConstraintKind == types.KindRequirement:
		return Derivation{Binding: true, Kind: types.InvariantRequirement, NormalizedText: text}
	case c.Priority == types.PriorityMust:
		return Derivation{Binding: true, Kind: types.InvariantRequirement, NormalizedText: text}
	default:
		return Derivation{Binding: false, NormalizedText: text}
	}
}

// NormalizedText returns the canonical sentence form of the decision:
// the answer label when present, otherwise a templated rendering of the
// raw answer.
func NormalizedText(c types.Clarification) string {
	if c.AnswerLabel != "" {
		return c.AnswerLabel
	}
	return renderAnswer(c.Answer)
}

// renderAnswer produces a stable human-readable rendering for arbitrary
// scalar or list answers.
func renderAnswer(answer interface{}) string {
	switch v := answer.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "Yes"
		}
		return "No"
	case []string:
		return strings.Join(v, ", ")
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, renderAnswer(item))
		}
		return strings.Join(parts, ", ")
	case map[string]interface{}:
		// Deterministic rendering for structured answers.
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s: %s", k, renderAnswer(v[k])))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprintf("%v", v)
	}
}
