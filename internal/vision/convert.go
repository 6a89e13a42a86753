package vision

import (
	"math"

	visionapi "google.golang.org/api/vision/v1"

	"skatespot-service/internal/domain/spot"
)

// FromAnnotateResponse converts a Cloud Vision response into the evaluator's input.
// Nil entries are skipped; a nil response yields an empty result.
func FromAnnotateResponse(resp *visionapi.AnnotateImageResponse) spot.VisionResult {
	vr := spot.VisionResult{
		Labels:         []spot.Label{},
		Objects:        []spot.Object{},
		Texts:          []spot.Text{},
		ColorHistogram: []spot.ColorSample{},
	}
	if resp == nil {
		return vr
	}

	for _, l := range resp.LabelAnnotations {
		if l == nil {
			continue
		}
		vr.Labels = append(vr.Labels, spot.Label{Description: l.Description, Score: l.Score})
	}
	for _, o := range resp.LocalizedObjectAnnotations {
		if o == nil {
			continue
		}
		vr.Objects = append(vr.Objects, spot.Object{Name: o.Name, Score: o.Score})
	}
	for _, t := range resp.TextAnnotations {
		if t == nil {
			continue
		}
		text := spot.Text{Description: t.Description}
		switch {
		case t.Score > 0:
			s := t.Score
			text.Score = &s
		case t.Confidence > 0:
			s := t.Confidence
			text.Score = &s
		}
		vr.Texts = append(vr.Texts, text)
	}

	if props := resp.ImagePropertiesAnnotation; props != nil && props.DominantColors != nil {
		for _, c := range props.DominantColors.Colors {
			if c == nil || c.Color == nil {
				continue
			}
			vr.ColorHistogram = append(vr.ColorHistogram, spot.ColorSample{
				RGB:   [3]int{channel(c.Color.Red), channel(c.Color.Green), channel(c.Color.Blue)},
				Score: c.Score,
			})
		}
	}

	if ss := resp.SafeSearchAnnotation; ss != nil {
		vr.SafeSearch = spot.SafeSearch{
			Adult:    spot.ParseLikelihood(ss.Adult),
			Spoof:    spot.ParseLikelihood(ss.Spoof),
			Medical:  spot.ParseLikelihood(ss.Medical),
			Violence: spot.ParseLikelihood(ss.Violence),
			Racy:     spot.ParseLikelihood(ss.Racy),
		}
	}
	return vr
}

func channel(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(math.Round(math.Max(0, math.Min(255, v))))
}
