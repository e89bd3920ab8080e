package generation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// fakeClient fails n times before succeeding.
type fakeClient struct {
	failures int
	calls    int
	err      error
}

func (f *fakeClient) Complete(ctx context.Context, prompt string) (string, error) {
	return f.CompleteWithSystem(ctx, "", prompt)
}

func (f *fakeClient) CompleteWithSystem(ctx context.Context, system, user string) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		if f.err != nil {
			return "", f.err
		}
		return "", fmt.Errorf("transient failure %d", f.calls)
	}
	return `{"known_constraints":[]}`, nil
}

func TestCompleteWithRetryRecovers(t *testing.T) {
	c := &fakeClient{failures: 2}
	policy := RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond}

	raw, err := CompleteWithRetry(context.Background(), c, policy, "sys", "user")
	if err != nil {
		t.Fatalf("CompleteWithRetry error: %v", err)
	}
	if raw == "" || c.calls != 3 {
		t.Fatalf("raw = %q, calls = %d", raw, c.calls)
	}
}

func TestCompleteWithRetryExhausted(t *testing.T) {
	c := &fakeClient{failures: 10}
	policy := RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond}

	_, err := CompleteWithRetry(context.Background(), c, policy, "sys", "user")
	if !errors.Is(err, ErrServiceFailure) {
		t.Fatalf("err = %v, want ErrServiceFailure", err)
	}
	if c.calls != 3 {
		t.Fatalf("calls = %d, want 3", c.calls)
	}
}

func TestCompleteWithRetryCancellationNotRetried(t *testing.T) {
	c := &fakeClient{failures: 10, err: context.DeadlineExceeded}
	policy := RetryPolicy{MaxRetries: 5, BaseDelay: time.Millisecond}

	_, err := CompleteWithRetry(context.Background(), c, policy, "sys", "user")
	if !errors.Is(err, ErrServiceFailure) {
		t.Fatalf("err = %v, want ErrServiceFailure", err)
	}

	var se *ServiceError
	if !errors.As(err, &se) || !se.Canceled {
		t.Fatalf("err = %#v, want canceled ServiceError", err)
	}
	if c.calls != 1 {
		t.Fatalf("calls = %d, want 1 (no retry on cancellation)", c.calls)
	}
}

func TestParseDocumentStripsCodeFences(t *testing.T) {
	raw := "```json\n" +
		`{"known_constraints":[{"text":"Personal use (family/home)","source":"user_clarification"}],"assumptions":["a"],"recommendations":[],"unknowns":[],"early_decision_points":[]}` +
		"\n```"

	doc, err := ParseDocument(raw)
	if err != nil {
		t.Fatalf("ParseDocument error: %v", err)
	}
	if len(doc.KnownConstraints) != 1 || doc.KnownConstraints[0].Source != "user_clarification" {
		t.Fatalf("doc = %+v", doc)
	}
	if len(doc.Assumptions) != 1 {
		t.Fatalf("assumptions = %v", doc.Assumptions)
	}
}

func TestParseDocumentRejectsGarbage(t *testing.T) {
	if _, err := ParseDocument("not json at all"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestNewClientUnknownProvider(t *testing.T) {
	if _, err := NewClient(context.Background(), ProviderSettings{Provider: "cohere"}); err == nil {
		t.Fatal("expected unknown-provider error")
	}
}
