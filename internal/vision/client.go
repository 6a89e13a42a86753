package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"google.golang.org/api/option"
	visionapi "google.golang.org/api/vision/v1"

	"skatespot-service/internal/config"
	"skatespot-service/internal/domain/spot"
)

var (
	ErrProvider   = errors.New("vision provider error")
	ErrNoResponse = errors.New("no response from vision provider")
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxLabels  = 20
	defaultMaxObjects = 15
	defaultMaxTexts   = 5
)

type Client struct {
	svc        *visionapi.Service
	cache      *cache.Cache
	timeout    time.Duration
	maxLabels  int64
	maxObjects int64
	maxTexts   int64
}

// NewClient builds a Cloud Vision client. With an API key configured the key is used;
// otherwise application default credentials apply unless opts override transport.
func NewClient(ctx context.Context, cfg config.VisionConfig, opts ...option.ClientOption) (*Client, error) {
	var all []option.ClientOption
	if cfg.APIKey != "" {
		all = append(all, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.Endpoint != "" {
		all = append(all, option.WithEndpoint(cfg.Endpoint))
	}
	all = append(all, opts...)

	svc, err := visionapi.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create vision service: %w", err)
	}

	c := &Client{
		svc:        svc,
		timeout:    cfg.Timeout,
		maxLabels:  cfg.MaxLabels,
		maxObjects: cfg.MaxObjects,
		maxTexts:   cfg.MaxTexts,
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.maxLabels <= 0 {
		c.maxLabels = defaultMaxLabels
	}
	if c.maxObjects <= 0 {
		c.maxObjects = defaultMaxObjects
	}
	if c.maxTexts <= 0 {
		c.maxTexts = defaultMaxTexts
	}
	if cfg.CacheTTL > 0 {
		c.cache = cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	return c, nil
}

// Annotate runs label, object, text, color and safe-search detection on one image.
// Results are cached under key (typically the media URL) when caching is enabled
// and key is not empty.
func (c *Client) Annotate(ctx context.Context, key string, image []byte) (spot.VisionResult, error) {
	if c.cache != nil && key != "" {
		if cached, ok := c.cache.Get(key); ok {
			if vr, ok := cached.(spot.VisionResult); ok {
				return vr, nil
			}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.svc.Images.Annotate(c.buildRequest(image)).Context(ctx).Do()
	if err != nil {
		return spot.VisionResult{}, fmt.Errorf("%w: %w", ErrProvider, err)
	}
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return spot.VisionResult{}, ErrNoResponse
	}

	first := resp.Responses[0]
	if first.Error != nil && (first.Error.Code != 0 || first.Error.Message != "") {
		return spot.VisionResult{}, fmt.Errorf("%w: %s (code %d)", ErrProvider, first.Error.Message, first.Error.Code)
	}

	vr := FromAnnotateResponse(first)
	if c.cache != nil && key != "" {
		c.cache.Set(key, vr, cache.DefaultExpiration)
	}
	return vr, nil
}

func (c *Client) buildRequest(image []byte) *visionapi.BatchAnnotateImagesRequest {
	return &visionapi.BatchAnnotateImagesRequest{
		Requests: []*visionapi.AnnotateImageRequest{{
			Image: &visionapi.Image{Content: base64.StdEncoding.EncodeToString(image)},
			Features: []*visionapi.Feature{
				{Type: "LABEL_DETECTION", MaxResults: c.maxLabels},
				{Type: "IMAGE_PROPERTIES", MaxResults: 1},
				{Type: "SAFE_SEARCH_DETECTION", MaxResults: 1},
				{Type: "OBJECT_LOCALIZATION", MaxResults: c.maxObjects},
				{Type: "TEXT_DETECTION", MaxResults: c.maxTexts},
			},
			ImageContext: &visionapi.ImageContext{
				LanguageHints: []string{"en"},
				TextDetectionParams: &visionapi.TextDetectionParams{
					EnableTextDetectionConfidenceScore: true,
				},
			},
		}},
	}
}
