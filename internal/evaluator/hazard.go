package evaluator

import (
	"strings"

	"skatespot-service/internal/domain/spot"
)

type hazardResult struct {
	warnings []string
	objects  []string
	violence bool
}

func (h hazardResult) flagged() bool {
	return len(h.warnings) > 0 || len(h.objects) > 0 || h.violence
}

// hazards collects the three independent hazard signals. Matches are reported in
// rubric list order so notes stay independent of detection order.
func (e *Evaluator) hazards(vr spot.VisionResult, cands []candidate) hazardResult {
	rules := e.rubric.Hazards
	var res hazardResult

	texts := make([]string, 0, len(vr.Texts))
	for _, t := range vr.Texts {
		texts = append(texts, strings.ToLower(t.Description))
	}
	for _, phrase := range rules.WarningPhrases {
		if phrase == "" {
			continue
		}
		for _, t := range texts {
			if strings.Contains(t, phrase) {
				res.warnings = append(res.warnings, phrase)
				break
			}
		}
	}

	for _, kw := range rules.DangerousObjects {
		if kw == "" {
			continue
		}
		for _, c := range cands {
			if c.score > e.rubric.Thresholds.Context && strings.Contains(c.lower, kw) {
				res.objects = append(res.objects, kw)
				break
			}
		}
	}

	res.violence = vr.SafeSearch.Violence.AtLeast(spot.LikelihoodLikely)
	return res
}
