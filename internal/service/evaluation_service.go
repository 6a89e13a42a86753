package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"skatespot-service/internal/domain/spot"
	"skatespot-service/internal/evaluator"
	"skatespot-service/internal/events"
	"skatespot-service/internal/media"
	"skatespot-service/internal/metrics"
	"skatespot-service/internal/repository"
	"skatespot-service/internal/utils"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrNoImage      = errors.New("no image found for spot")
	ErrMediaFetch   = errors.New("failed to download image")
	ErrUpstream     = errors.New("vision provider failed")
)

const eventTimeout = 5 * time.Second

type MediaFetcher interface {
	Fetch(ctx context.Context, url string) (*media.Image, error)
}

type VisionProvider interface {
	Annotate(ctx context.Context, key string, image []byte) (spot.VisionResult, error)
}

type RatingStore interface {
	UpsertRating(ctx context.Context, rating *spot.StoredRating) (*spot.StoredRating, error)
	LatestRating(ctx context.Context, spotID uuid.UUID) (*spot.StoredRating, error)
	LatestImageURL(ctx context.Context, spotID uuid.UUID) (string, error)
	Ping(ctx context.Context) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.RatingEvent) error
}

type Options struct {
	ConfidenceThreshold float64
	ManagedURLMarker    string
	Metrics             *metrics.Metrics
}

type EvaluationService struct {
	store     RatingStore
	fetcher   MediaFetcher
	vision    VisionProvider
	evaluator *evaluator.Evaluator
	events    EventPublisher
	metrics   *metrics.Metrics
	threshold float64
	marker    string
	log       zerolog.Logger
}

func NewEvaluationService(
	store RatingStore,
	fetcher MediaFetcher,
	vision VisionProvider,
	eval *evaluator.Evaluator,
	publisher EventPublisher,
	opts Options,
	log zerolog.Logger,
) *EvaluationService {
	if eval == nil {
		eval = evaluator.New()
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &EvaluationService{
		store:     store,
		fetcher:   fetcher,
		vision:    vision,
		evaluator: eval,
		events:    publisher,
		metrics:   opts.Metrics,
		threshold: opts.ConfidenceThreshold,
		marker:    opts.ManagedURLMarker,
		log:       log,
	}
}

// Evaluate rates the spot from its media. A low-confidence analysis is returned as deferred
// and nothing is stored. Otherwise the rating replaces the spot's current rating.
func (s *EvaluationService) Evaluate(ctx context.Context, req spot.EvaluateRequest) (*spot.EvaluateResult, error) {
	start := time.Now()

	spotID, ok := utils.ParseSpotID(req.SpotID)
	if !ok {
		return nil, fmt.Errorf("%w: spotId must be a valid UUID", ErrInvalidInput)
	}
	uploadedBy := utils.ParseUserID(req.UserID)

	result, err := s.evaluate(ctx, spotID, req.MediaURL, uploadedBy)
	if err != nil {
		s.observeEvaluation(metrics.OutcomeError, start)
		return nil, err
	}

	if result.Deferred != nil {
		s.observeEvaluation(metrics.OutcomePending, start)
		s.publish(ctx, events.RatingEvent{
			SpotID:     spotID,
			Status:     events.StatusPending,
			Reason:     result.Deferred.Reason,
			UploadedBy: uploadedBy,
		})
		return result, nil
	}

	s.observeEvaluation(metrics.OutcomeRated, start)
	if s.metrics != nil {
		s.metrics.ObserveRating(result.Rating.SkateabilityScore, result.Rating.Confidence)
	}
	rating := result.Rating.Rating
	s.publish(ctx, events.RatingEvent{
		SpotID:     spotID,
		Status:     events.StatusRated,
		Rating:     &rating,
		UploadedBy: uploadedBy,
	})
	return result, nil
}

// Reevaluate runs a fresh evaluation of an existing spot, optionally against a new image.
func (s *EvaluationService) Reevaluate(ctx context.Context, spotID, mediaURL, userID string) (*spot.EvaluateResult, error) {
	return s.Evaluate(ctx, spot.EvaluateRequest{
		SpotID:   spotID,
		MediaURL: mediaURL,
		UserID:   userID,
	})
}

func (s *EvaluationService) evaluate(ctx context.Context, spotID uuid.UUID, requestedURL string, uploadedBy *uuid.UUID) (*spot.EvaluateResult, error) {
	mediaURL, err := s.resolveMediaURL(ctx, spotID, requestedURL)
	if err != nil {
		return nil, err
	}

	img, err := s.fetcher.Fetch(ctx, mediaURL)
	if err != nil {
		s.observeStageError("media_fetch")
		s.log.Warn().
			Err(err).
			Str("spot_id", spotID.String()).
			Str("media_url", mediaURL).
			Bool("client_error", media.IsClientError(err)).
			Msg("failed to download spot image")
		return nil, fmt.Errorf("%w: %w", ErrMediaFetch, err)
	}

	vr, err := s.vision.Annotate(ctx, mediaURL, img.Data)
	if err != nil {
		s.observeStageError("vision")
		s.log.Error().
			Err(err).
			Str("spot_id", spotID.String()).
			Msg("vision analysis failed")
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	outcome := s.evaluator.EvaluateOrDefer(vr, s.threshold)
	if outcome.IsDeferred() {
		s.log.Info().
			Str("spot_id", spotID.String()).
			Str("reason", outcome.Deferred.Reason).
			Float64("threshold", s.threshold).
			Msg("spot evaluation deferred")
		return &spot.EvaluateResult{
			SpotID:   spotID,
			MediaURL: mediaURL,
			Deferred: outcome.Deferred,
		}, nil
	}

	stored, err := s.store.UpsertRating(ctx, &spot.StoredRating{
		SpotID:     spotID,
		UploadedBy: uploadedBy,
		MediaURL:   mediaURL,
		Detections: s.evaluator.TopDetections(vr),
		Rating:     *outcome.Rating,
	})
	if err != nil {
		s.observeStageError("store")
		s.log.Error().
			Err(err).
			Str("spot_id", spotID.String()).
			Msg("failed to store spot rating")
		return nil, fmt.Errorf("failed to store spot rating: %w", err)
	}

	s.log.Info().
		Str("spot_id", spotID.String()).
		Str("rating_id", stored.ID.String()).
		Float64("skateability_score", stored.SkateabilityScore).
		Float64("confidence", stored.Confidence).
		Bool("hazard_flag", stored.HazardFlag).
		Msg("spot rating saved")

	return &spot.EvaluateResult{
		SpotID:   spotID,
		MediaURL: mediaURL,
		Rating:   stored,
	}, nil
}

// resolveMediaURL accepts only managed-storage URLs from callers. Anything else falls back
// to the newest image uploaded for the spot.
func (s *EvaluationService) resolveMediaURL(ctx context.Context, spotID uuid.UUID, requested string) (string, error) {
	if utils.IsManagedMediaURL(requested, s.marker) {
		return requested, nil
	}
	if requested != "" {
		s.log.Warn().
			Str("spot_id", spotID.String()).
			Str("media_url", requested).
			Msg("ignoring unmanaged media url, using latest spot image")
	}

	url, err := s.store.LatestImageURL(ctx, spotID)
	if errors.Is(err, repository.ErrNotFound) {
		return "", fmt.Errorf("%w: %s", ErrNoImage, spotID)
	}
	if err != nil {
		s.observeStageError("media_lookup")
		s.log.Error().Err(err).Str("spot_id", spotID.String()).Msg("failed to look up spot image")
		return "", fmt.Errorf("failed to look up spot image: %w", err)
	}
	return url, nil
}

func (s *EvaluationService) LatestRating(ctx context.Context, rawSpotID string) (*spot.StoredRating, error) {
	spotID, ok := utils.ParseSpotID(rawSpotID)
	if !ok {
		return nil, fmt.Errorf("%w: spotId must be a valid UUID", ErrInvalidInput)
	}

	rating, err := s.store.LatestRating(ctx, spotID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: no rating for spot %s", ErrNotFound, spotID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get spot rating: %w", err)
	}
	return rating, nil
}

func (s *EvaluationService) Health(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// publish logs delivery failures and never fails the evaluation.
func (s *EvaluationService) publish(ctx context.Context, event events.RatingEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventTimeout)
	defer cancel()

	if err := s.events.Publish(ctx, event); err != nil {
		if s.metrics != nil {
			s.metrics.ObserveEventFailure()
		}
		s.log.Warn().
			Err(err).
			Str("spot_id", event.SpotID.String()).
			Str("status", event.Status).
			Msg("failed to publish rating event")
	}
}

func (s *EvaluationService) observeEvaluation(outcome string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveEvaluation(outcome, time.Since(start))
	}
}

func (s *EvaluationService) observeStageError(stage string) {
	if s.metrics != nil {
		s.metrics.ObserveStageError(stage)
	}
}
