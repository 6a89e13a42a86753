// Package evaluator turns a vision analysis bundle into a bounded skate spot rating.
//
// The Evaluator is a pure function of its input and its Rubric: no I/O, no clock,
// no shared mutable state. A single Evaluator may be used from many goroutines.
// Every sub-score has a fallback constant, so Evaluate is total over all inputs,
// including empty detection lists and NaN or out-of-range provider scores.
package evaluator

import (
	"strings"

	"skatespot-service/internal/domain/spot"
)

// DefaultConfidenceThreshold is the confidence below which a rating is deferred.
const DefaultConfidenceThreshold = 0.3

const lowConfidenceReason = "Low confidence in AI analysis"

type Evaluator struct {
	rubric           Rubric
	daylightOverride bool
}

type Option func(*Evaluator)

// WithRubric replaces the built-in keyword tables. The evaluator keeps its own copy of r.
func WithRubric(r Rubric) Option {
	return func(e *Evaluator) {
		own := r.clone()
		own.normalize()
		e.rubric = own
	}
}

// WithDaylightOverride toggles raising night visibility for daylight labels.
func WithDaylightOverride(enabled bool) Option {
	return func(e *Evaluator) {
		e.daylightOverride = enabled
	}
}

func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		rubric:           DefaultRubric(),
		daylightOverride: true,
	}
	e.rubric.normalize()
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Evaluator) Rubric() Rubric {
	return e.rubric.clone()
}

// candidate is a sanitized label or object detection.
type candidate struct {
	source string
	name   string
	lower  string
	score  float64
}

func candidates(vr spot.VisionResult) []candidate {
	out := make([]candidate, 0, len(vr.Labels)+len(vr.Objects))
	for _, l := range vr.Labels {
		out = append(out, candidate{
			source: "label",
			name:   l.Description,
			lower:  strings.ToLower(l.Description),
			score:  unit(l.Score),
		})
	}
	for _, o := range vr.Objects {
		out = append(out, candidate{
			source: "object",
			name:   o.Name,
			lower:  strings.ToLower(o.Name),
			score:  unit(o.Score),
		})
	}
	return out
}

// containsAny returns the first keyword contained in text, in keyword order.
func containsAny(text string, keywords []string) (string, bool) {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, kw) {
			return kw, true
		}
	}
	return "", false
}

// anyAbove reports whether a candidate scoring strictly above threshold matches a keyword.
func anyAbove(cands []candidate, keywords []string, threshold float64) bool {
	for _, c := range cands {
		if c.score <= threshold {
			continue
		}
		if _, ok := containsAny(c.lower, keywords); ok {
			return true
		}
	}
	return false
}

// Evaluate scores a vision result. The returned rating always has every numeric field
// inside its documented range.
func (e *Evaluator) Evaluate(vr spot.VisionResult) spot.Rating {
	r := e.rubric
	cands := candidates(vr)

	openSpace := anyAbove(cands, r.OpenSpaceKeywords, r.Thresholds.Context)
	clean := anyAbove(cands, r.CleanKeywords, r.Thresholds.Surface)

	skate := e.skateability(cands, openSpace)
	smoothness := e.smoothness(cands, openSpace)
	continuity := e.surface(cands, r.Continuity, openSpace)
	debris := e.surface(cands, r.Debris, clean)
	cracks := e.surface(cands, r.Cracks, clean)
	night := e.nightVisibility(vr.ColorHistogram, cands)
	hazard := e.hazards(vr, cands)
	confidence := e.confidence(vr)

	rating := spot.Rating{
		Smoothness:        clamp(smoothness, 0, maxScore),
		Continuity:        clamp(continuity, 0, maxScore),
		DebrisRisk:        clamp(debris, 0, maxScore),
		CrackCoverage:     clamp(cracks, 0, maxScore),
		NightVisibility:   clamp(night, 0, maxScore),
		SkateabilityScore: clamp(skate.score, 0, maxScore),
		HazardFlag:        hazard.flagged(),
		Confidence:        clamp(confidence, 0, 1),
	}
	rating.Notes = e.notes(rating, skate, hazard, cands)
	return rating
}

// EvaluateOrDefer evaluates and defers when confidence is below threshold. A deferred
// outcome carries no rating and must not be persisted.
func (e *Evaluator) EvaluateOrDefer(vr spot.VisionResult, threshold float64) spot.Outcome {
	rating := e.Evaluate(vr)
	if rating.Confidence < clamp(threshold, 0, 1) {
		return spot.Outcome{Deferred: &spot.Deferred{Pending: true, Reason: lowConfidenceReason}}
	}
	return spot.Outcome{Rating: &rating}
}
