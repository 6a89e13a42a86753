package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"skatespot-service/internal/domain/spot"
)

var ErrNotFound = errors.New("record not found")

type RatingRepository struct {
	db *gorm.DB
}

func NewRatingRepository(db *gorm.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

type SkateSpotRating struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey"`
	SpotID            uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:ux_skate_spot_ratings_spot_id"`
	UploadedBy        *uuid.UUID `gorm:"type:uuid"`
	MediaURL          *string
	Smoothness        float64 `gorm:"not null"`
	Continuity        float64 `gorm:"not null"`
	DebrisRisk        float64 `gorm:"not null"`
	CrackCoverage     float64 `gorm:"not null"`
	NightVisibility   float64 `gorm:"not null"`
	SkateabilityScore float64 `gorm:"not null"`
	HazardFlag        bool    `gorm:"not null"`
	Confidence        float64 `gorm:"not null"`
	Notes             string  `gorm:"not null"`
	Detections        datatypes.JSONType[[]spot.Detection]
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (SkateSpotRating) TableName() string {
	return "skate_spot_ratings"
}

type SpotMedia struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	SpotID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	MediaURL   string     `gorm:"not null"`
	MediaType  string     `gorm:"not null"`
	UploadedBy *uuid.UUID `gorm:"type:uuid"`
	CreatedAt  time.Time
}

func (SpotMedia) TableName() string {
	return "spot_media"
}

var upsertColumns = []string{
	"uploaded_by",
	"media_url",
	"smoothness",
	"continuity",
	"debris_risk",
	"crack_coverage",
	"night_visibility",
	"skateability_score",
	"hazard_flag",
	"confidence",
	"notes",
	"detections",
	"updated_at",
}

// UpsertRating stores the rating as the single current rating of its spot. A concurrent
// evaluation of the same spot may overwrite it; the last write wins. The write and the
// read-back share a transaction, so the returned row is this call's write.
func (r *RatingRepository) UpsertRating(ctx context.Context, rating *spot.StoredRating) (*spot.StoredRating, error) {
	now := time.Now().UTC()
	row := SkateSpotRating{
		ID:                uuid.New(),
		SpotID:            rating.SpotID,
		UploadedBy:        rating.UploadedBy,
		Smoothness:        rating.Smoothness,
		Continuity:        rating.Continuity,
		DebrisRisk:        rating.DebrisRisk,
		CrackCoverage:     rating.CrackCoverage,
		NightVisibility:   rating.NightVisibility,
		SkateabilityScore: rating.SkateabilityScore,
		HazardFlag:        rating.HazardFlag,
		Confidence:        rating.Confidence,
		Notes:             rating.Notes,
		Detections:        datatypes.NewJSONType(rating.Detections),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if rating.MediaURL != "" {
		row.MediaURL = &rating.MediaURL
	}

	var stored SkateSpotRating
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "spot_id"}},
			DoUpdates: clause.AssignmentColumns(upsertColumns),
		}).Create(&row).Error
		if err != nil {
			return err
		}
		// The conflicting row keeps its original id and created_at, and stays locked
		// by this transaction until commit.
		return tx.Where("spot_id = ?", rating.SpotID).First(&stored).Error
	})
	if err != nil {
		return nil, err
	}
	return stored.toDomain(), nil
}

func (r *RatingRepository) LatestRating(ctx context.Context, spotID uuid.UUID) (*spot.StoredRating, error) {
	var row SkateSpotRating
	err := r.db.WithContext(ctx).
		Where("spot_id = ?", spotID).
		Order("updated_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

// LatestImageURL returns the newest image uploaded for a spot.
func (r *RatingRepository) LatestImageURL(ctx context.Context, spotID uuid.UUID) (string, error) {
	var media SpotMedia
	err := r.db.WithContext(ctx).
		Where("spot_id = ? AND media_type = ?", spotID, "image").
		Order("created_at DESC").
		First(&media).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return media.MediaURL, nil
}

func (r *RatingRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (row SkateSpotRating) toDomain() *spot.StoredRating {
	out := &spot.StoredRating{
		ID:         row.ID,
		SpotID:     row.SpotID,
		UploadedBy: row.UploadedBy,
		Detections: row.Detections.Data(),
		Rating: spot.Rating{
			Smoothness:        row.Smoothness,
			Continuity:        row.Continuity,
			DebrisRisk:        row.DebrisRisk,
			CrackCoverage:     row.CrackCoverage,
			NightVisibility:   row.NightVisibility,
			SkateabilityScore: row.SkateabilityScore,
			HazardFlag:        row.HazardFlag,
			Confidence:        row.Confidence,
			Notes:             row.Notes,
		},
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if row.MediaURL != nil {
		out.MediaURL = *row.MediaURL
	}
	return out
}
