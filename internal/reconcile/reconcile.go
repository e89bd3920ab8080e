// Package reconcile mechanically aligns a freshly generated document with
// the binding invariant set: every invariant is pinned into the document's
// known constraints (deduplicating generator-invented restatements), and
// recommendations touching excluded topics are filtered out.
//
// The overlap heuristics are known to misfire in both directions: a
// legitimate restatement of an exclusion can be dropped, and a paraphrased
// recommendation can slip through. That behavior is load-bearing for
// existing tests and is reproduced as-is; swap the matcher, not the stage.
package reconcile

import (
	"draftguard/internal/constraint"
	"draftguard/internal/logging"
	"draftguard/internal/types"
)

// DefaultPinOverlap is the token-intersection size at which a generator
// constraint counts as a duplicate of an invariant.
const DefaultPinOverlap = 2

// DefaultExclusionOverlap is the tag-intersection size at which a
// recommendation is considered to touch an excluded topic.
const DefaultExclusionOverlap = 1

// Reconciler runs the two reconciliation sub-steps over one document.
type Reconciler struct {
	matcher          constraint.TextOverlapMatcher
	pinOverlap       int
	exclusionOverlap int
}

// New creates a reconciler with the given matcher and default thresholds.
func New(matcher constraint.TextOverlapMatcher) *Reconciler {
	return &Reconciler{
		matcher:          matcher,
		pinOverlap:       DefaultPinOverlap,
		exclusionOverlap: DefaultExclusionOverlap,
	}
}

// SetThresholds overrides the overlap thresholds.
func (r *Reconciler) SetThresholds(pin, exclusion int) {
	if pin > 0 {
		r.pinOverlap = pin
	}
	if exclusion > 0 {
		r.exclusionOverlap = exclusion
	}
}

// Reconcile mutates doc in place and returns the audit report. Pinning runs
// first, then exclusion filtering; both are idempotent on an already
// reconciled document.
func (r *Reconciler) Reconcile(doc *types.GeneratedDocument, invariants []types.Invariant) types.ReconciliationReport {
	log := logging.Get(logging.CategoryReconcile)

	report := r.pin(doc, invariants)
	r.filterExclusions(doc, invariants, &report)

	log.Info("reconciled document: pinned=%d duplicates_removed=%d kept=%d recommendations_dropped=%d decision_points_dropped=%d",
		report.Pinned, report.DuplicatesRemoved, report.Kept,
		report.RecommendationsDropped, report.DecisionPointsDropped)

	return report
}

// pin guarantees every invariant appears exactly once in known_constraints
// as a canonical entry, removing generator-authored duplicates it overlaps.
func (r *Reconciler) pin(doc *types.GeneratedDocument, invariants []types.Invariant) types.ReconciliationReport {
	report := types.ReconciliationReport{Pinned: len(invariants)}

	duplicate := make([]bool, len(doc.KnownConstraints))
	haveCanonical := make(map[string]bool)

	for _, inv := range invariants {
		for i, entry := range doc.KnownConstraints {
			if entry.Pinned() {
				// Canonical entry from a previous reconciliation run. Exact
				// match matters for short texts whose token overlap never
				// reaches the threshold.
				if entry.Text == inv.NormalizedText ||
					r.matcher.OverlapCount(entry.Text, inv.NormalizedText) >= r.pinOverlap {
					haveCanonical[inv.ID] = true
				}
				continue
			}
			if r.matcher.OverlapCount(entry.Text, inv.NormalizedText) >= r.pinOverlap {
				duplicate[i] = true
			}
		}
	}

	// Preserve the distinction between an empty section and a missing one.
	kept := doc.KnownConstraints[:0:0]
	for i, entry := range doc.KnownConstraints {
		if duplicate[i] {
			report.DuplicatesRemoved++
			continue
		}
		kept = append(kept, entry)
		if !entry.Pinned() {
			report.Kept++
		}
	}

	for _, inv := range invariants {
		if haveCanonical[inv.ID] {
			continue
		}
		kept = append(kept, types.ConstraintEntry{
			Text:   inv.NormalizedText,
			Source: types.SourceUserClarification,
		})
	}

	doc.KnownConstraints = kept
	return report
}

// filterExclusions removes recommendations and early decision points whose
// token set intersects an exclusion invariant's canonical tags.
func (r *Reconciler) filterExclusions(doc *types.GeneratedDocument, invariants []types.Invariant, report *types.ReconciliationReport) {
	var exclusions []types.Invariant
	for _, inv := range invariants {
		if inv.Kind == types.InvariantExclusion {
			exclusions = append(exclusions, inv)
		}
	}
	if len(exclusions) == 0 {
		return
	}

	touchesExclusion := func(text string) bool {
		for _, inv := range exclusions {
			if r.matcher.TagOverlap(text, inv.CanonicalTags) >= r.exclusionOverlap {
				return true
			}
		}
		return false
	}

	doc.Recommendations, report.RecommendationsDropped = filter(doc.Recommendations, touchesExclusion)
	doc.EarlyDecisionPoints, report.DecisionPointsDropped = filter(doc.EarlyDecisionPoints, touchesExclusion)
}

func filter(entries []string, drop func(string) bool) ([]string, int) {
	kept := entries[:0:0]
	dropped := 0
	for _, e := range entries {
		if drop(e) {
			dropped++
			continue
		}
		kept = append(kept, e)
	}
	return kept, dropped
}
