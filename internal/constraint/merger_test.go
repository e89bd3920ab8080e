package constraint

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"draftguard/internal/types"
)

func testSet() []types.Clarification {
	return []types.Clarification{
		{
			ID:             "DEPLOYMENT_CONTEXT",
			Question:       "Where will this run?",
			Priority:       types.PriorityMust,
			ConstraintKind: types.KindRequirement,
			Resolved:       true,
			AnswerLabel:    "Personal use (family/home)",
		},
		{
			ID:             "EXISTING_SYSTEMS",
			Question:       "Integrate with existing systems?",
			Priority:       types.PriorityMust,
			ConstraintKind: types.KindExclusion,
			Resolved:       true,
			Answer:         false,
			AnswerLabel:    "No integrations",
		},
		{
			ID:             "THEME",
			Question:       "Preferred UI theme?",
			Priority:       types.PriorityCould,
			ConstraintKind: types.KindPreference,
			Resolved:       true,
			AnswerLabel:    "Dark mode",
		},
		{
			ID:             "SCALE",
			Question:       "Expected scale?",
			Priority:       types.PriorityMust,
			ConstraintKind: types.KindRequirement,
			Resolved:       false,
		},
	}
}

func TestMergeBindingSubset(t *testing.T) {
	res, err := Merge(testSet())
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}

	if len(res.Clarifications) != 4 {
		t.Fatalf("clarifications = %d, want 4", len(res.Clarifications))
	}
	if len(res.Invariants) != 2 {
		t.Fatalf("invariants = %d, want 2: %+v", len(res.Invariants), res.Invariants)
	}

	// Order preserved from input.
	if res.Invariants[0].ID != "DEPLOYMENT_CONTEXT" || res.Invariants[1].ID != "EXISTING_SYSTEMS" {
		t.Fatalf("invariant order = %q, %q", res.Invariants[0].ID, res.Invariants[1].ID)
	}
	if res.Invariants[1].Kind != types.InvariantExclusion {
		t.Fatalf("EXISTING_SYSTEMS kind = %q", res.Invariants[1].Kind)
	}

	// Every invariant id traces back to its clarification.
	byID := make(map[string]bool)
	for _, c := range res.Clarifications {
		byID[c.ID] = true
	}
	for _, inv := range res.Invariants {
		if !byID[inv.ID] {
			t.Fatalf("invariant %q has no source clarification", inv.ID)
		}
	}

	// Binding annotations match the invariant subset.
	if !res.Clarifications[0].Binding || !res.Clarifications[1].Binding {
		t.Fatalf("binding flags wrong: %+v", res.Clarifications)
	}
	if res.Clarifications[2].Binding || res.Clarifications[3].Binding {
		t.Fatalf("non-binding clarifications flagged: %+v", res.Clarifications)
	}
}

func TestMergeIdempotent(t *testing.T) {
	set := testSet()

	first, err := Merge(set)
	if err != nil {
		t.Fatalf("first Merge error: %v", err)
	}
	second, err := Merge(set)
	if err != nil {
		t.Fatalf("second Merge error: %v", err)
	}

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("merge not idempotent (-first +second):\n%s", diff)
	}
}

func TestMergeCanonicalTags(t *testing.T) {
	res, err := Merge(testSet())
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}

	tags := res.Invariants[1].CanonicalTags
	found := false
	for _, tag := range tags {
		if tag == "integration" {
			found = true
		}
	}
	if !found {
		t.Fatalf("EXISTING_SYSTEMS tags = %v, want to contain %q", tags, "integration")
	}
}

func TestMergeMalformedInput(t *testing.T) {
	cases := []struct {
		name string
		c    types.Clarification
	}{
		{name: "missing_id", c: types.Clarification{Question: "q?"}},
		{name: "missing_question", c: types.Clarification{ID: "X"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Merge([]types.Clarification{tc.c})
			if !errors.Is(err, ErrMalformedInput) {
				t.Fatalf("err = %v, want ErrMalformedInput", err)
			}
		})
	}
}

func TestTokenize(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{in: "Personal use (family/home)", want: []string{"personal", "family", "home"}},
		{in: "No integrations", want: []string{"integration"}},
		{in: "", want: nil},
		{in: "The THE the", want: nil},
		{in: "PostgreSQL uses PostgreSQL", want: []string{"postgresql", "uses"}},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got := Tokenize(tc.in)
			if len(got) != len(tc.want) {
				t.Fatalf("Tokenize(%q) = %v, want %v", tc.in, got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("Tokenize(%q) = %v, want %v", tc.in, got, tc.want)
				}
			}
		})
	}
}

func TestTokenMatcher(t *testing.T) {
	m := NewTokenMatcher()

	if got := m.OverlapCount("Personal use only", "Personal use (family/home)"); got != 2 {
		t.Fatalf("OverlapCount = %d, want 2 (personal, use)", got)
	}
	if got := m.TagOverlap("We recommend integration with Slack", []string{"integration", "slack"}); got != 2 {
		t.Fatalf("TagOverlap = %d, want 2", got)
	}

	// Scenario from the contradiction suite: near-identical constraint and
	// assumption exceed the 0.5 Jaccard threshold.
	j := m.Jaccard("uses PostgreSQL", "the app uses PostgreSQL for storage")
	if j <= 0.5 {
		t.Fatalf("Jaccard = %f, want > 0.5", j)
	}

	if got := m.Jaccard("", ""); got != 0 {
		t.Fatalf("Jaccard empty = %f, want 0", got)
	}
}
