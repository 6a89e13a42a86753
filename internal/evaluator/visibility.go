package evaluator

import (
	"math"

	"skatespot-service/internal/domain/spot"
)

// nightVisibility maps the score-weighted mean brightness of the dominant colors
// from [0,255] onto [0,5]. Daylight labels lift the result to the daylight floor.
func (e *Evaluator) nightVisibility(histogram []spot.ColorSample, cands []candidate) float64 {
	rules := e.rubric.Visibility

	value := rules.Default
	if len(histogram) > 0 {
		brightness := make([]float64, 0, len(histogram))
		weights := make([]float64, 0, len(histogram))
		for _, c := range histogram {
			var sum float64
			for _, ch := range c.RGB {
				sum += clamp(float64(ch), 0, maxRGB)
			}
			brightness = append(brightness, sum/3)
			weights = append(weights, unit(c.Score))
		}
		if mean, ok := weightedMean(brightness, weights); ok {
			value = mean / maxRGB * maxScore
		}
	}

	if e.daylightOverride && anyAbove(cands, rules.DaylightKeywords, e.rubric.Thresholds.Context) {
		value = math.Max(value, rules.DaylightFloor)
	}
	return value
}
