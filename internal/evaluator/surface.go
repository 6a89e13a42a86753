package evaluator

import "strings"

func (e *Evaluator) surface(cands []candidate, table SurfaceTable, context bool) float64 {
	var values, weights []float64
	for _, c := range cands {
		if c.score <= e.rubric.Thresholds.Surface {
			continue
		}
		for _, entry := range table.Entries {
			if entry.Keyword == "" {
				continue
			}
			if strings.Contains(c.lower, entry.Keyword) {
				values = append(values, entry.Score)
				weights = append(weights, c.score)
				break
			}
		}
	}
	if mean, ok := weightedMean(values, weights); ok {
		return mean
	}
	if context {
		return table.ContextFallback
	}
	return table.Fallback
}

func (e *Evaluator) smoothness(cands []candidate, openSpace bool) float64 {
	return e.surface(cands, e.rubric.Smoothness, openSpace) * e.qualityModifier(cands)
}

// qualityModifier is the confidence-weighted mean of the adjective tier multipliers
// matched by qualifying detections, or 1 when none match. A detection counts toward
// the first tier it matches.
func (e *Evaluator) qualityModifier(cands []candidate) float64 {
	var values, weights []float64
	for _, c := range cands {
		if c.score <= e.rubric.Thresholds.Surface {
			continue
		}
		for _, tier := range e.rubric.QualityTiers {
			if _, ok := containsAny(c.lower, tier.Keywords); ok {
				values = append(values, tier.Multiplier)
				weights = append(weights, c.score)
				break
			}
		}
	}
	if m, ok := weightedMean(values, weights); ok {
		return m
	}
	return 1
}
