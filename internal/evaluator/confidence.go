package evaluator

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"skatespot-service/internal/domain/spot"
)

// confidence is the plain mean of every detection score plus a small boost for
// strong detections. Texts without a score count as MissingTextScore.
func (e *Evaluator) confidence(vr spot.VisionResult) float64 {
	rules := e.rubric.Confidence

	scores := make([]float64, 0, len(vr.Labels)+len(vr.Objects)+len(vr.Texts))
	for _, l := range vr.Labels {
		scores = append(scores, unit(l.Score))
	}
	for _, o := range vr.Objects {
		scores = append(scores, unit(o.Score))
	}
	for _, t := range vr.Texts {
		if t.Score == nil {
			scores = append(scores, unit(rules.MissingTextScore))
			continue
		}
		scores = append(scores, unit(*t.Score))
	}
	if len(scores) == 0 {
		return rules.Empty
	}

	strong := 0
	for _, s := range scores {
		if s > e.rubric.Thresholds.HighConfidence {
			strong++
		}
	}
	boost := math.Min(rules.MaxBoost, rules.BoostPerStrong*float64(strong))
	return clamp(stat.Mean(scores, nil)+math.Max(boost, 0), 0, 1)
}
