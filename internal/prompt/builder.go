// Package prompt renders the generation request payload. It is a pure
// rendering step: section order is fixed, no validation logic lives here,
// and the only failure mode is an invariant without normalized text.
package prompt

import (
	"fmt"
	"strings"

	"draftguard/internal/types"
)

// Section headers in the rendered payload. Order is deterministic:
// bound constraints first, prior QA feedback second, extracted context
// third, the caller's task prompt last.
const (
	headerConstraints = "## Bound constraints (do not reopen)"
	headerFeedback    = "## Must address from previous attempt"
	headerContext     = "## Extracted context"
	headerTask        = "## Task"
)

// BuildInput is everything the context builder needs for one attempt.
type BuildInput struct {
	Invariants []types.Invariant

	// Feedback is the QA record from the prior failed attempt, nil on the
	// first attempt or after a success cleared it.
	Feedback *types.QAFeedbackRecord

	// ExtractedContext is an opaque blob of assumptions and prior document
	// data, passed through untouched.
	ExtractedContext string

	// TaskPrompt and SchemaRef are supplied by the caller and passed
	// through.
	TaskPrompt string
	SchemaRef  string
}

// Payload is the rendered generation request.
type Payload struct {
	System    string
	User      string
	SchemaRef string
}

// systemPrompt frames the generation role. The schema itself travels in
// Payload.SchemaRef; the service is told to honor it but conformance is
// verified by the validation engine, never trusted.
const systemPrompt = `You are a planning-document generator. You produce a single JSON document
conforming to the provided schema. Decisions listed as bound constraints were
made by the user during clarification and are final: never reopen them,
contradict them, or promote weaker preferences above them.`

// Build renders the payload for one generation attempt.
func Build(in BuildInput) (Payload, error) {
	var b strings.Builder

	b.WriteString(headerConstraints)
	b.WriteString("\n")
	if len(in.Invariants) == 0 {
		b.WriteString("(none)\n")
	}
	for _, inv := range in.Invariants {
		if inv.NormalizedText == "" {
			return Payload{}, fmt.Errorf("invariant %q has no normalized text", inv.ID)
		}
		b.WriteString(fmt.Sprintf("- [%s] %s: %s\n", inv.Kind, inv.ID, inv.NormalizedText))
	}

	if in.Feedback != nil && len(in.Feedback.Findings) > 0 {
		b.WriteString("\n")
		b.WriteString(headerFeedback)
		b.WriteString("\n")
		for _, f := range in.Feedback.Findings {
			b.WriteString(fmt.Sprintf("- %s: %s\n", f.RuleID, f.Message))
		}
	}

	if in.ExtractedContext != "" {
		b.WriteString("\n")
		b.WriteString(headerContext)
		b.WriteString("\n")
		b.WriteString(in.ExtractedContext)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(headerTask)
	b.WriteString("\n")
	b.WriteString(in.TaskPrompt)
	b.WriteString("\n")

	return Payload{
		System:    systemPrompt,
		User:      b.String(),
		SchemaRef: in.SchemaRef,
	}, nil
}
