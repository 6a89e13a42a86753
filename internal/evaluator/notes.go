package evaluator

import (
	"fmt"
	"sort"
	"strings"

	"skatespot-service/internal/domain/spot"
)

const notesSeparator = "; "

func (e *Evaluator) notes(r spot.Rating, skate skateResult, hazard hazardResult, cands []candidate) string {
	fragments := []string{
		skateabilityNote(r.SkateabilityScore, skate),
		surfaceNote(r.Smoothness),
		flowNote(r.Continuity),
		hazardNote(hazard),
		debrisNote(r.DebrisRisk),
		crackNote(r.CrackCoverage),
		visibilityNote(r.NightVisibility),
		detectedNote(topDetections(cands, e.rubric.TopDetections)),
	}
	return strings.Join(fragments, notesSeparator)
}

func skateabilityNote(score float64, skate skateResult) string {
	if skate.skatepark {
		return fmt.Sprintf("Purpose-built skate facility (%.1f/5)", score)
	}
	note := fmt.Sprintf("Skateability %s (%.1f/5)", grade(score), score)
	if len(skate.features) > 0 {
		note += ": " + strings.Join(skate.features, ", ")
	} else {
		note += ": no skateable features detected"
	}
	return note
}

func grade(score float64) string {
	switch {
	case score >= 4.0:
		return "excellent"
	case score >= 3.0:
		return "good"
	case score >= 2.0:
		return "fair"
	default:
		return "poor"
	}
}

func surfaceNote(v float64) string {
	switch {
	case v >= 4.0:
		return fmt.Sprintf("High smoothness (%.1f/5)", v)
	case v <= 2.0:
		return fmt.Sprintf("Low smoothness - rough surface (%.1f/5)", v)
	default:
		return fmt.Sprintf("Moderate smoothness (%.1f/5)", v)
	}
}

func flowNote(v float64) string {
	switch {
	case v >= 4.0:
		return "Good flow/continuity"
	case v <= 2.0:
		return "Poor continuity - fragmented surface"
	default:
		return "Average flow/continuity"
	}
}

func hazardNote(h hazardResult) string {
	if !h.flagged() {
		return "No hazards detected"
	}
	var parts []string
	if len(h.warnings) > 0 {
		parts = append(parts, "warning signs ("+strings.Join(h.warnings, ", ")+")")
	}
	if len(h.objects) > 0 {
		parts = append(parts, "dangerous objects ("+strings.Join(h.objects, ", ")+")")
	}
	if h.violence {
		parts = append(parts, "violent content")
	}
	return "Hazards detected: " + strings.Join(parts, ", ")
}

func debrisNote(v float64) string {
	switch {
	case v >= 3.5:
		return "High debris risk"
	case v >= 2.0:
		return "Moderate debris risk"
	default:
		return "Low debris risk"
	}
}

func crackNote(v float64) string {
	switch {
	case v >= 3.5:
		return "Significant cracking/damage"
	case v >= 2.0:
		return "Some surface wear"
	default:
		return "Minimal cracking"
	}
}

func visibilityNote(v float64) string {
	switch {
	case v >= 3.5:
		return "Good visibility"
	case v >= 2.0:
		return "Moderate visibility"
	default:
		return "Poor visibility - likely dark at night"
	}
}

func detectedNote(top []spot.Detection) string {
	if len(top) == 0 {
		return "Detected: none"
	}
	names := make([]string, 0, len(top))
	for _, d := range top {
		names = append(names, d.Name)
	}
	return "Detected: " + strings.Join(names, ", ")
}

// TopDetections returns the labels and objects quoted at the end of the notes.
func (e *Evaluator) TopDetections(vr spot.VisionResult) []spot.Detection {
	return topDetections(candidates(vr), e.rubric.TopDetections)
}

// topDetections returns up to n labels and objects ordered by descending confidence.
// Ties are broken by lower-cased name, then exact spelling, then source, so the result
// does not depend on input order. Names are de-duplicated case-insensitively, keeping
// the first occurrence in that order.
func topDetections(cands []candidate, n int) []spot.Detection {
	if n < 0 {
		n = 0
	}
	sorted := make([]candidate, 0, len(cands))
	for _, c := range cands {
		if strings.TrimSpace(c.name) == "" {
			continue
		}
		sorted = append(sorted, c)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return lessDetection(sorted[i], sorted[j])
	})

	seen := make(map[string]struct{}, len(sorted))
	out := make([]spot.Detection, 0, n)
	for _, c := range sorted {
		if len(out) >= n {
			break
		}
		key := strings.TrimSpace(c.lower)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, spot.Detection{Source: c.source, Name: c.name, Score: c.score})
	}
	return out
}

func lessDetection(a, b candidate) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	ak, bk := strings.TrimSpace(a.lower), strings.TrimSpace(b.lower)
	if ak != bk {
		return ak < bk
	}
	if a.name != b.name {
		return a.name < b.name
	}
	return a.source < b.source
}
