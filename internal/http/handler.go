package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"skatespot-service/internal/domain/spot"
	"skatespot-service/internal/service"
)

type SpotService interface {
	Evaluate(ctx context.Context, req spot.EvaluateRequest) (*spot.EvaluateResult, error)
	Reevaluate(ctx context.Context, spotID, mediaURL, userID string) (*spot.EvaluateResult, error)
	LatestRating(ctx context.Context, spotID string) (*spot.StoredRating, error)
	Health(ctx context.Context) error
}

type Handler struct {
	spotService SpotService
	metrics     http.Handler
	log         zerolog.Logger
}

func NewHandler(spotService SpotService, metricsHandler http.Handler, log zerolog.Logger) *Handler {
	return &Handler{
		spotService: spotService,
		metrics:     metricsHandler,
		log:         log,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	r.GET("/healthz", h.health)
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics))
	}

	api := r.Group("/api/v1")
	api.Use(authMiddleware)
	{
		api.POST("/spots/evaluate", h.evaluateSpot)
		api.POST("/spots/:spotId/reevaluate", h.reevaluateSpot)
		api.GET("/spots/:spotId/rating", h.getLatestRating)
	}
}

type reevaluateRequest struct {
	MediaURL string `json:"mediaUrl"`
}

func (h *Handler) evaluateSpot(c *gin.Context) {
	var req spot.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid JSON body"))
		return
	}
	if strings.TrimSpace(req.SpotID) == "" {
		c.JSON(http.StatusBadRequest, errorResponse("Missing required field: spotId"))
		return
	}
	if userID, ok := authenticatedUser(c); ok {
		req.UserID = userID
	}

	result, err := h.spotService.Evaluate(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.writeResult(c, result)
}

func (h *Handler) reevaluateSpot(c *gin.Context) {
	var req reevaluateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("Invalid JSON body"))
			return
		}
	}
	userID, _ := authenticatedUser(c)

	result, err := h.spotService.Reevaluate(c.Request.Context(), c.Param("spotId"), req.MediaURL, userID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.writeResult(c, result)
}

func (h *Handler) getLatestRating(c *gin.Context) {
	rating, err := h.spotService.LatestRating(c.Request.Context(), c.Param("spotId"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(rating))
}

func (h *Handler) health(c *gin.Context) {
	if err := h.spotService.Health(c.Request.Context()); err != nil {
		h.log.Error().Err(err).Msg("health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) writeResult(c *gin.Context, result *spot.EvaluateResult) {
	if result.Deferred != nil {
		c.JSON(http.StatusOK, gin.H{
			"pending": true,
			"reason":  result.Deferred.Reason,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":            true,
		"rating":             result.Rating,
		"skateability_score": result.Rating.SkateabilityScore,
	})
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNoImage):
		c.JSON(http.StatusBadRequest, errorResponse("No image found for this spot"))
	case errors.Is(err, service.ErrMediaFetch):
		c.JSON(http.StatusBadRequest, errorResponse("Failed to download image"))
	case errors.Is(err, service.ErrUpstream):
		c.JSON(http.StatusBadGateway, errorResponse("Vision API request failed"))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}
