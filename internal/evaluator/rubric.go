package evaluator

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category is one skateable feature class with its base quality and importance.
type Category struct {
	Name         string   `yaml:"name"`
	Base         float64  `yaml:"base"`
	Weight       float64  `yaml:"weight"`
	HighPriority bool     `yaml:"high_priority"`
	Keywords     []string `yaml:"keywords"`
}

type KeywordScore struct {
	Keyword string  `yaml:"keyword"`
	Score   float64 `yaml:"score"`
}

// SurfaceTable scores one surface field. Entries are checked in order and the first
// keyword contained in a detection decides its base score. ContextFallback is used
// when nothing qualifies but the context signal (open space or clean surface) is present.
type SurfaceTable struct {
	Entries         []KeywordScore `yaml:"entries"`
	Fallback        float64        `yaml:"fallback"`
	ContextFallback float64        `yaml:"context_fallback"`
}

type AdjectiveTier struct {
	Name       string   `yaml:"name"`
	Multiplier float64  `yaml:"multiplier"`
	Keywords   []string `yaml:"keywords"`
}

type Thresholds struct {
	Feature        float64 `yaml:"feature"`
	Surface        float64 `yaml:"surface"`
	Context        float64 `yaml:"context"`
	Skatepark      float64 `yaml:"skatepark"`
	HighConfidence float64 `yaml:"high_confidence"`
}

type SkateabilityRules struct {
	Categories        []Category `yaml:"categories"`
	SkateparkKeywords []string   `yaml:"skatepark_keywords"`
	SkateparkScore    float64    `yaml:"skatepark_score"`
	FeatureFloor      float64    `yaml:"feature_floor"`
	ComboBonusStep    float64    `yaml:"combo_bonus_step"`
	ComboBonusMax     float64    `yaml:"combo_bonus_max"`
	OpenSpaceScore    float64    `yaml:"open_space_score"`
	DefaultScore      float64    `yaml:"default_score"`
}

type VisibilityRules struct {
	Default          float64  `yaml:"default"`
	DaylightKeywords []string `yaml:"daylight_keywords"`
	DaylightFloor    float64  `yaml:"daylight_floor"`
}

type HazardRules struct {
	WarningPhrases   []string `yaml:"warning_phrases"`
	DangerousObjects []string `yaml:"dangerous_objects"`
}

type ConfidenceRules struct {
	Empty            float64 `yaml:"empty"`
	MissingTextScore float64 `yaml:"missing_text_score"`
	BoostPerStrong   float64 `yaml:"boost_per_strong"`
	MaxBoost         float64 `yaml:"max_boost"`
}

// Rubric is the full set of tunable tables used by the Evaluator.
type Rubric struct {
	Thresholds        Thresholds        `yaml:"thresholds"`
	Skateability      SkateabilityRules `yaml:"skateability"`
	Smoothness        SurfaceTable      `yaml:"smoothness"`
	Continuity        SurfaceTable      `yaml:"continuity"`
	Debris            SurfaceTable      `yaml:"debris"`
	Cracks            SurfaceTable      `yaml:"cracks"`
	QualityTiers      []AdjectiveTier   `yaml:"quality_tiers"`
	OpenSpaceKeywords []string          `yaml:"open_space_keywords"`
	CleanKeywords     []string          `yaml:"clean_keywords"`
	Visibility        VisibilityRules   `yaml:"visibility"`
	Hazards           HazardRules       `yaml:"hazards"`
	Confidence        ConfidenceRules   `yaml:"confidence"`
	TopDetections     int               `yaml:"top_detections"`
}

func DefaultRubric() Rubric {
	return Rubric{
		Thresholds: Thresholds{
			Feature:        0.25,
			Surface:        0.4,
			Context:        0.6,
			Skatepark:      0.7,
			HighConfidence: 0.7,
		},
		Skateability: SkateabilityRules{
			Categories: []Category{
				{Name: "stairs", Base: 4.2, Weight: 1.3, HighPriority: true, Keywords: []string{"stair", "step"}},
				{Name: "ledges", Base: 4.0, Weight: 1.2, HighPriority: true, Keywords: []string{"ledge", "curb", "kerb", "bench", "manual pad"}},
				{Name: "drops", Base: 4.3, Weight: 1.4, HighPriority: true, Keywords: []string{"drop", "gap"}},
				{Name: "rails", Base: 4.4, Weight: 1.5, HighPriority: true, Keywords: []string{"rail", "handrail"}},
				{Name: "skate facility", Base: 4.7, Weight: 1.6, Keywords: []string{"ramp", "bowl", "half pipe", "halfpipe", "quarter pipe", "mini ramp", "transition", "bank"}},
				{Name: "urban terrain", Base: 2.8, Weight: 0.6, Keywords: []string{"plaza", "parking lot", "parking", "sidewalk", "walkway"}},
			},
			SkateparkKeywords: []string{"skatepark", "skate park", "skateboarding"},
			SkateparkScore:    4.8,
			FeatureFloor:      1.5,
			ComboBonusStep:    0.25,
			ComboBonusMax:     0.5,
			OpenSpaceScore:    3.5,
			DefaultScore:      2.5,
		},
		Smoothness: SurfaceTable{
			Entries: []KeywordScore{
				{"smooth", 4.8}, {"polished", 4.7}, {"marble", 4.5}, {"granite", 4.3},
				{"concrete", 4.0}, {"asphalt", 3.8}, {"tile", 3.6}, {"pavement", 3.5},
				{"road surface", 3.5}, {"brick", 2.5}, {"cobblestone", 1.2}, {"gravel", 0.8},
				{"dirt", 1.0}, {"sand", 0.6}, {"grass", 0.5}, {"mud", 0.3},
			},
			Fallback:        2.5,
			ContextFallback: 3.5,
		},
		Continuity: SurfaceTable{
			Entries: []KeywordScore{
				{"seamless", 4.8}, {"continuous", 4.6}, {"unbroken", 4.5}, {"open space", 4.2},
				{"plaza", 4.2}, {"courtyard", 4.0}, {"square", 4.0}, {"parking lot", 4.0},
				{"flat", 3.8}, {"pavement", 3.8}, {"asphalt", 3.8}, {"concrete", 3.6},
				{"road", 3.3}, {"sidewalk", 3.2}, {"walkway", 3.2}, {"stair", 2.4},
				{"broken", 1.5}, {"interrupted", 1.3}, {"fragmented", 1.2}, {"dirt", 1.2},
				{"disconnected", 1.0}, {"grass", 1.0}, {"gravel", 1.0}, {"mud", 0.8}, {"water", 0.8},
			},
			Fallback:        2.0,
			ContextFallback: 3.0,
		},
		Debris: SurfaceTable{
			Entries: []KeywordScore{
				{"rubble", 4.8}, {"debris", 4.5}, {"litter", 4.5}, {"trash", 4.5},
				{"glass", 4.2}, {"waste", 4.2}, {"gravel", 4.0}, {"rock", 4.0},
				{"sand", 3.8}, {"mud", 3.8}, {"pebble", 3.8}, {"bottle", 3.6},
				{"dirt", 3.5}, {"leaf", 3.2}, {"leaves", 3.2}, {"stick", 3.2},
				{"puddle", 3.2}, {"branch", 3.0}, {"water", 3.0},
			},
			Fallback:        1.5,
			ContextFallback: 1.0,
		},
		Cracks: SurfaceTable{
			Entries: []KeywordScore{
				{"pothole", 4.8}, {"crumbling", 4.6}, {"crack", 4.5}, {"fracture", 4.2},
				{"broken", 4.0}, {"damage", 3.8}, {"chipped", 3.5}, {"erosion", 3.5},
				{"weathered", 2.8}, {"worn", 2.6},
			},
			Fallback:        1.5,
			ContextFallback: 1.0,
		},
		QualityTiers: []AdjectiveTier{
			{Name: "excellent", Multiplier: 1.15, Keywords: []string{"smooth", "polished", "pristine"}},
			{Name: "good", Multiplier: 1.05, Keywords: []string{"clean", "flat", "level", "even"}},
			{Name: "poor", Multiplier: 0.8, Keywords: []string{"rough", "uneven", "bumpy", "worn", "weathered"}},
			{Name: "terrible", Multiplier: 0.6, Keywords: []string{"cracked", "broken", "pothole", "damaged", "crumbling"}},
		},
		OpenSpaceKeywords: []string{"plaza", "courtyard", "square", "open space"},
		CleanKeywords:     []string{"clean", "concrete"},
		Visibility: VisibilityRules{
			Default:          3.0,
			DaylightKeywords: []string{"daylight", "sunny", "sunlight"},
			DaylightFloor:    4.5,
		},
		Hazards: HazardRules{
			WarningPhrases: []string{
				"no skateboarding", "no skating", "private property", "danger", "warning",
				"keep out", "trespassing", "closed",
			},
			DangerousObjects: []string{
				"broken glass", "shattered glass", "rebar", "live wire", "electrical wire",
				"exposed wiring", "power line", "construction", "excavation",
			},
		},
		Confidence: ConfidenceRules{
			Empty:            0.2,
			MissingTextScore: 0.5,
			BoostPerStrong:   0.02,
			MaxBoost:         0.2,
		},
		TopDetections: 5,
	}
}

// LoadRubricFile overlays a YAML file on top of DefaultRubric. Lists present in the
// file replace the default list entirely.
func LoadRubricFile(path string) (Rubric, error) {
	r := DefaultRubric()
	data, err := os.ReadFile(path)
	if err != nil {
		return Rubric{}, fmt.Errorf("read rubric file: %w", err)
	}
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Rubric{}, fmt.Errorf("parse rubric file %s: %w", path, err)
	}
	r.normalize()
	if err := r.Validate(); err != nil {
		return Rubric{}, err
	}
	return r, nil
}

func (r Rubric) Validate() error {
	for name, v := range map[string]float64{
		"thresholds.feature":         r.Thresholds.Feature,
		"thresholds.surface":         r.Thresholds.Surface,
		"thresholds.context":         r.Thresholds.Context,
		"thresholds.skatepark":       r.Thresholds.Skatepark,
		"thresholds.high_confidence": r.Thresholds.HighConfidence,
		"confidence.empty":           r.Confidence.Empty,
		"confidence.missing_text":    r.Confidence.MissingTextScore,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("rubric %s must be within [0,1], got %v", name, v)
		}
	}
	for _, c := range r.Skateability.Categories {
		if c.Weight < 0 {
			return fmt.Errorf("rubric category %q has negative weight %v", c.Name, c.Weight)
		}
		if c.Base < 0 || c.Base > maxScore {
			return fmt.Errorf("rubric category %q base %v outside [0,5]", c.Name, c.Base)
		}
		if len(c.Keywords) == 0 {
			return fmt.Errorf("rubric category %q has no keywords", c.Name)
		}
	}
	for name, t := range map[string]SurfaceTable{
		"smoothness": r.Smoothness,
		"continuity": r.Continuity,
		"debris":     r.Debris,
		"cracks":     r.Cracks,
	} {
		for _, e := range t.Entries {
			if e.Score < 0 || e.Score > maxScore {
				return fmt.Errorf("rubric %s keyword %q score %v outside [0,5]", name, e.Keyword, e.Score)
			}
		}
	}
	for _, tier := range r.QualityTiers {
		if tier.Multiplier < 0 {
			return fmt.Errorf("rubric quality tier %q has negative multiplier", tier.Name)
		}
	}
	if r.TopDetections < 0 {
		return fmt.Errorf("rubric top_detections must not be negative")
	}
	return nil
}

// clone returns a copy that shares no slices with r.
func (r Rubric) clone() Rubric {
	out := r
	out.Skateability.Categories = make([]Category, len(r.Skateability.Categories))
	for i, c := range r.Skateability.Categories {
		c.Keywords = cloneStrings(c.Keywords)
		out.Skateability.Categories[i] = c
	}
	out.Skateability.SkateparkKeywords = cloneStrings(r.Skateability.SkateparkKeywords)
	out.Smoothness.Entries = append([]KeywordScore(nil), r.Smoothness.Entries...)
	out.Continuity.Entries = append([]KeywordScore(nil), r.Continuity.Entries...)
	out.Debris.Entries = append([]KeywordScore(nil), r.Debris.Entries...)
	out.Cracks.Entries = append([]KeywordScore(nil), r.Cracks.Entries...)
	out.QualityTiers = make([]AdjectiveTier, len(r.QualityTiers))
	for i, t := range r.QualityTiers {
		t.Keywords = cloneStrings(t.Keywords)
		out.QualityTiers[i] = t
	}
	out.OpenSpaceKeywords = cloneStrings(r.OpenSpaceKeywords)
	out.CleanKeywords = cloneStrings(r.CleanKeywords)
	out.Visibility.DaylightKeywords = cloneStrings(r.Visibility.DaylightKeywords)
	out.Hazards.WarningPhrases = cloneStrings(r.Hazards.WarningPhrases)
	out.Hazards.DangerousObjects = cloneStrings(r.Hazards.DangerousObjects)
	return out
}

func cloneStrings(in []string) []string {
	return append([]string(nil), in...)
}

// normalize lower-cases every keyword so matching can compare against lower-cased text.
func (r *Rubric) normalize() {
	for i := range r.Skateability.Categories {
		lowerAll(r.Skateability.Categories[i].Keywords)
	}
	lowerAll(r.Skateability.SkateparkKeywords)
	for _, t := range []*SurfaceTable{&r.Smoothness, &r.Continuity, &r.Debris, &r.Cracks} {
		for i := range t.Entries {
			t.Entries[i].Keyword = strings.ToLower(t.Entries[i].Keyword)
		}
	}
	for i := range r.QualityTiers {
		lowerAll(r.QualityTiers[i].Keywords)
	}
	lowerAll(r.OpenSpaceKeywords)
	lowerAll(r.CleanKeywords)
	lowerAll(r.Visibility.DaylightKeywords)
	lowerAll(r.Hazards.WarningPhrases)
	lowerAll(r.Hazards.DangerousObjects)
}

func lowerAll(words []string) {
	for i, w := range words {
		words[i] = strings.ToLower(strings.TrimSpace(w))
	}
}
