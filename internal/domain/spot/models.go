package spot

import (
	"time"

	"github.com/google/uuid"
)

type Label struct {
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

type Object struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Text is an OCR fragment. Score is nil when the provider did not report one.
type Text struct {
	Description string   `json:"description"`
	Score       *float64 `json:"score,omitempty"`
}

type ColorSample struct {
	RGB   [3]int  `json:"rgb"`
	Score float64 `json:"score"`
}

type SafeSearch struct {
	Adult    Likelihood `json:"adult"`
	Spoof    Likelihood `json:"spoof"`
	Medical  Likelihood `json:"medical"`
	Violence Likelihood `json:"violence"`
	Racy     Likelihood `json:"racy"`
}

// VisionResult is the analysis bundle returned by the vision provider for one image.
type VisionResult struct {
	Labels         []Label       `json:"labels"`
	Objects        []Object      `json:"objects"`
	Texts          []Text        `json:"texts"`
	ColorHistogram []ColorSample `json:"colorHistogram"`
	SafeSearch     SafeSearch    `json:"safeSearch"`
}

// Rating is the bounded quality rating for a spot. Quality fields are in [0,5],
// Confidence in [0,1].
type Rating struct {
	Smoothness        float64 `json:"smoothness"`
	Continuity        float64 `json:"continuity"`
	DebrisRisk        float64 `json:"debris_risk"`
	CrackCoverage     float64 `json:"crack_coverage"`
	NightVisibility   float64 `json:"night_visibility"`
	SkateabilityScore float64 `json:"skateability_score"`
	HazardFlag        bool    `json:"hazard_flag"`
	Confidence        float64 `json:"confidence"`
	Notes             string  `json:"notes"`
}

type Deferred struct {
	Pending bool   `json:"pending"`
	Reason  string `json:"reason"`
}

// Outcome holds either a usable rating or a deferral. Exactly one is set.
type Outcome struct {
	Rating   *Rating   `json:"rating,omitempty"`
	Deferred *Deferred `json:"deferred,omitempty"`
}

func (o Outcome) IsDeferred() bool {
	return o.Deferred != nil
}

type Detection struct {
	Source string  `json:"source"`
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
}

type EvaluateRequest struct {
	SpotID   string `json:"spotId"`
	MediaURL string `json:"mediaUrl,omitempty"`
	UserID   string `json:"userId,omitempty"`
}

type StoredRating struct {
	ID         uuid.UUID   `json:"id"`
	SpotID     uuid.UUID   `json:"spot_id"`
	UploadedBy *uuid.UUID  `json:"uploaded_by,omitempty"`
	MediaURL   string      `json:"media_url,omitempty"`
	Detections []Detection `json:"detections,omitempty"`
	Rating
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type EvaluateResult struct {
	SpotID   uuid.UUID     `json:"spot_id"`
	MediaURL string        `json:"media_url"`
	Rating   *StoredRating `json:"rating,omitempty"`
	Deferred *Deferred     `json:"deferred,omitempty"`
}
