package constraint

import (
	"errors"
	"fmt"

	"draftguard/internal/types"
)

// ErrMalformedInput is returned when a clarification is missing required
// fields. Surfaced immediately, never retried.
var ErrMalformedInput = errors.New("malformed clarification input")

// MergeResult holds the two ordered collections produced from one
// clarification set.
type MergeResult struct {
	Clarifications []types.AnnotatedClarification
	Invariants     []types.Invariant
}

// Merge combines the full question set with collected answers into the
// annotated clarification list and the binding invariant subset. Input
// order is preserved in both collections, and re-running on the same set
// yields byte-identical output.
func Merge(cs []types.Clarification) (MergeResult, error) {
	result := MergeResult{
		Clarifications: make([]types.AnnotatedClarification, 0, len(cs)),
	}

	for i, c := range cs {
		if c.ID == "" {
			return MergeResult{}, fmt.Errorf("%w: clarification %d has no id", ErrMalformedInput, i)
		}
		if c.Question == "" {
			return MergeResult{}, fmt.Errorf("%w: clarification %q has no question text", ErrMalformedInput, c.ID)
		}

		d := Derive(c)
		result.Clarifications = append(result.Clarifications, types.AnnotatedClarification{
			Clarification: c,
			Binding:       d.Binding,
		})

		if !d.Binding {
			continue
		}
		result.Invariants = append(result.Invariants, types.Invariant{
			ID:             c.ID,
			NormalizedText: d.NormalizedText,
			Kind:           d.Kind,
			Priority:       c.Priority,
			CanonicalTags:  Tokenize(d.NormalizedText),
		})
	}

	return result, nil
}

// AnswerTags returns the canonical tags of a clarification's answer text,
// used by the promotion-validity check to compare document constraints
// against non-binding answers.
func AnswerTags(c types.Clarification) []string {
	return Tokenize(NormalizedText(c))
}
