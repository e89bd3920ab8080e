package prompt

import (
	"strings"
	"testing"
	"time"

	"draftguard/internal/types"
)

func TestBuildSectionOrder(t *testing.T) {
	payload, err := Build(BuildInput{
		Invariants: []types.Invariant{
			{ID: "DEPLOYMENT_CONTEXT", Kind: types.InvariantRequirement, NormalizedText: "Personal use (family/home)"},
			{ID: "EXISTING_SYSTEMS", Kind: types.InvariantExclusion, NormalizedText: "No integrations"},
		},
		Feedback: &types.QAFeedbackRecord{
			AttemptID: "a1",
			CreatedAt: time.Now(),
			Findings: []types.Finding{
				{RuleID: "contradiction", Severity: types.SeverityFatal, Message: "recommends excluded integration"},
			},
		},
		ExtractedContext: "prior notes",
		TaskPrompt:       "Generate the project brief.",
		SchemaRef:        "document.v1",
	})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}

	idxConstraints := strings.Index(payload.User, headerConstraints)
	idxFeedback := strings.Index(payload.User, headerFeedback)
	idxContext := strings.Index(payload.User, headerContext)
	idxTask := strings.Index(payload.User, headerTask)

	for name, idx := range map[string]int{
		"constraints": idxConstraints, "feedback": idxFeedback,
		"context": idxContext, "task": idxTask,
	} {
		if idx < 0 {
			t.Fatalf("section %s missing:\n%s", name, payload.User)
		}
	}
	if !(idxConstraints < idxFeedback && idxFeedback < idxContext && idxContext < idxTask) {
		t.Fatalf("sections out of order: %d %d %d %d", idxConstraints, idxFeedback, idxContext, idxTask)
	}

	if !strings.Contains(payload.User, "[exclusion] EXISTING_SYSTEMS: No integrations") {
		t.Fatalf("invariant rendering missing:\n%s", payload.User)
	}
	if !strings.Contains(payload.User, "contradiction: recommends excluded integration") {
		t.Fatalf("feedback rendering missing:\n%s", payload.User)
	}
	if payload.SchemaRef != "document.v1" {
		t.Fatalf("SchemaRef = %q", payload.SchemaRef)
	}
}

func TestBuildWithoutFeedbackOrContext(t *testing.T) {
	payload, err := Build(BuildInput{
		Invariants: []types.Invariant{
			{ID: "X", Kind: types.InvariantRequirement, NormalizedText: "x"},
		},
		TaskPrompt: "task",
	})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if strings.Contains(payload.User, headerFeedback) {
		t.Fatalf("feedback section rendered with no record:\n%s", payload.User)
	}
	if strings.Contains(payload.User, headerContext) {
		t.Fatalf("context section rendered with empty blob:\n%s", payload.User)
	}
}

func TestBuildMissingNormalizedText(t *testing.T) {
	_, err := Build(BuildInput{
		Invariants: []types.Invariant{{ID: "BROKEN", Kind: types.InvariantRequirement}},
		TaskPrompt: "task",
	})
	if err == nil {
		t.Fatal("expected error for invariant without normalized text")
	}
}

func TestBuildDeterministic(t *testing.T) {
	in := BuildInput{
		Invariants: []types.Invariant{
			{ID: "A", Kind: types.InvariantRequirement, NormalizedText: "a"},
			{ID: "B", Kind: types.InvariantExclusion, NormalizedText: "b"},
		},
		ExtractedContext: "ctx",
		TaskPrompt:       "task",
	}

	first, err := Build(in)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	second, err := Build(in)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if first.User != second.User || first.System != second.System {
		t.Fatal("Build is not deterministic")
	}
}
