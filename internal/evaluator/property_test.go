package evaluator

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skatespot-service/internal/domain/spot"
)

var vocabulary = []string{
	"stairs", "handrail", "ledge", "skatepark", "plaza", "courtyard", "concrete", "asphalt",
	"smooth", "cracked", "pothole", "litter", "broken glass", "sunny", "grass", "gap",
	"bowl", "parking lot", "", "NO SKATEBOARDING", "keep out", "tree", "sky",
}

func adversarialScore(rng *rand.Rand) float64 {
	switch rng.Intn(10) {
	case 0:
		return math.NaN()
	case 1:
		return math.Inf(1)
	case 2:
		return math.Inf(-1)
	case 3:
		return -rng.Float64() * 10
	case 4:
		return 1 + rng.Float64()*10
	case 5:
		return 0
	default:
		return rng.Float64()
	}
}

func randomVisionResult(rng *rand.Rand) spot.VisionResult {
	var vr spot.VisionResult
	for i := rng.Intn(6); i > 0; i-- {
		vr.Labels = append(vr.Labels, spot.Label{Description: vocabulary[rng.Intn(len(vocabulary))], Score: adversarialScore(rng)})
	}
	for i := rng.Intn(4); i > 0; i-- {
		vr.Objects = append(vr.Objects, spot.Object{Name: vocabulary[rng.Intn(len(vocabulary))], Score: adversarialScore(rng)})
	}
	for i := rng.Intn(3); i > 0; i-- {
		text := spot.Text{Description: vocabulary[rng.Intn(len(vocabulary))]}
		if rng.Intn(2) == 0 {
			s := adversarialScore(rng)
			text.Score = &s
		}
		vr.Texts = append(vr.Texts, text)
	}
	for i := rng.Intn(4); i > 0; i-- {
		vr.ColorHistogram = append(vr.ColorHistogram, spot.ColorSample{
			RGB:   [3]int{rng.Intn(600) - 150, rng.Intn(600) - 150, rng.Intn(600) - 150},
			Score: adversarialScore(rng),
		})
	}
	vr.SafeSearch.Violence = spot.Likelihood(rng.Intn(8) - 1)
	return vr
}

func assertBounded(t *testing.T, r spot.Rating) {
	t.Helper()
	for name, v := range map[string]float64{
		"smoothness":   r.Smoothness,
		"continuity":   r.Continuity,
		"debris":       r.DebrisRisk,
		"cracks":       r.CrackCoverage,
		"night":        r.NightVisibility,
		"skateability": r.SkateabilityScore,
	} {
		require.False(t, math.IsNaN(v), "%s is NaN", name)
		require.GreaterOrEqual(t, v, 0.0, name)
		require.LessOrEqual(t, v, 5.0, name)
	}
	require.False(t, math.IsNaN(r.Confidence))
	require.GreaterOrEqual(t, r.Confidence, 0.0)
	require.LessOrEqual(t, r.Confidence, 1.0)
}

func TestEvaluate_RandomInputsStayBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	e := New()

	for i := 0; i < 2000; i++ {
		vr := randomVisionResult(rng)
		r := e.Evaluate(vr)
		assertBounded(t, r)
		assert.Equal(t, r, e.Evaluate(vr), "evaluation must be deterministic")
	}
}

func TestEvaluate_FeatureFloorHolds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	e := New()

	for i := 0; i < 500; i++ {
		vr := randomVisionResult(rng)
		vr.Labels = append(vr.Labels, spot.Label{Description: "Ledge", Score: 0.26 + rng.Float64()*0.74})
		r := e.Evaluate(vr)
		assert.GreaterOrEqual(t, r.SkateabilityScore, 1.5)
	}
}

func FuzzEvaluate(f *testing.F) {
	f.Add("stairs", 0.5, "NO SKATEBOARDING", 10, 200, 30, 0.4)
	f.Add("", math.NaN(), "", -5, 999, 0, math.Inf(1))
	f.Add("skatepark", 0.95, "closed", 0, 0, 0, 0.0)

	e := New()
	f.Fuzz(func(t *testing.T, label string, labelScore float64, text string, r, g, b int, colorScore float64) {
		rating := e.Evaluate(spot.VisionResult{
			Labels:         []spot.Label{{Description: label, Score: labelScore}},
			Objects:        []spot.Object{{Name: label, Score: labelScore}},
			Texts:          []spot.Text{{Description: text}},
			ColorHistogram: []spot.ColorSample{{RGB: [3]int{r, g, b}, Score: colorScore}},
		})
		assertBounded(t, rating)
	})
}
