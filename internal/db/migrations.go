package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`CREATE TABLE IF NOT EXISTS spot_media (
		id          UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		spot_id     UUID NOT NULL,
		media_url   TEXT NOT NULL,
		media_type  TEXT NOT NULL DEFAULT 'image',
		uploaded_by UUID,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_spot_media_spot_created ON spot_media(spot_id, created_at DESC);`,
	`CREATE TABLE IF NOT EXISTS skate_spot_ratings (
		id                 UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		spot_id            UUID NOT NULL,
		uploaded_by        UUID,
		media_url          TEXT,
		smoothness         DOUBLE PRECISION NOT NULL,
		continuity         DOUBLE PRECISION NOT NULL,
		debris_risk        DOUBLE PRECISION NOT NULL,
		crack_coverage     DOUBLE PRECISION NOT NULL,
		night_visibility   DOUBLE PRECISION NOT NULL,
		skateability_score DOUBLE PRECISION NOT NULL,
		hazard_flag        BOOLEAN NOT NULL DEFAULT false,
		confidence         DOUBLE PRECISION NOT NULL,
		notes              TEXT NOT NULL DEFAULT '',
		detections         JSONB,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`ALTER TABLE skate_spot_ratings ADD COLUMN IF NOT EXISTS media_url TEXT;`,
	`ALTER TABLE skate_spot_ratings ADD COLUMN IF NOT EXISTS detections JSONB;`,
	`ALTER TABLE skate_spot_ratings ADD COLUMN IF NOT EXISTS updated_at TIMESTAMPTZ NOT NULL DEFAULT now();`,
	// Older deployments inserted one row per evaluation; keep only the newest per spot
	// before enforcing one rating per spot.
	`DELETE FROM skate_spot_ratings r
		USING skate_spot_ratings newer
		WHERE r.spot_id = newer.spot_id
		  AND (r.created_at, r.id) < (newer.created_at, newer.id);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_skate_spot_ratings_spot_id ON skate_spot_ratings(spot_id);`,
}

func RunMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
