package evaluator

import "math"

type skateResult struct {
	score     float64
	skatepark bool
	features  []string
}

func (e *Evaluator) skateability(cands []candidate, openSpace bool) skateResult {
	rules := e.rubric.Skateability

	for _, c := range cands {
		if c.source != "label" || c.score <= e.rubric.Thresholds.Skatepark {
			continue
		}
		if _, ok := containsAny(c.lower, rules.SkateparkKeywords); ok {
			return skateResult{score: rules.SkateparkScore, skatepark: true}
		}
	}

	var values, weights []float64
	matched := make([]bool, len(rules.Categories))
	for _, c := range cands {
		if c.score <= e.rubric.Thresholds.Feature {
			continue
		}
		for i, cat := range rules.Categories {
			if _, ok := containsAny(c.lower, cat.Keywords); !ok {
				continue
			}
			matched[i] = true
			values = append(values, cat.Base)
			weights = append(weights, cat.Weight*c.score)
		}
	}

	var features []string
	highPriority := 0
	for i, cat := range rules.Categories {
		if !matched[i] {
			continue
		}
		features = append(features, cat.Name)
		if cat.HighPriority {
			highPriority++
		}
	}

	if len(features) == 0 {
		if openSpace {
			return skateResult{score: rules.OpenSpaceScore}
		}
		return skateResult{score: rules.DefaultScore}
	}

	// A zero total weight still counts as detected, so it lands on the floor.
	score, ok := weightedMean(values, weights)
	if !ok {
		score = rules.FeatureFloor
	}
	score = math.Max(score, rules.FeatureFloor)
	if highPriority >= 2 {
		bonus := math.Min(rules.ComboBonusMax, rules.ComboBonusStep*float64(highPriority-1))
		score += bonus
	}
	return skateResult{score: math.Min(score, maxScore), features: features}
}
