package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"skatespot-service/internal/config"
)

var (
	ErrNotImage = errors.New("url does not point to an image")
	ErrTooLarge = errors.New("image too large")
	ErrEmpty    = errors.New("empty image file")
	ErrStatus   = errors.New("unexpected status")
)

const (
	defaultTimeout   = 30 * time.Second
	defaultMaxBytes  = 20 << 20
	defaultUserAgent = "SkateSpotEvaluator/1.0"
)

type Image struct {
	Data        []byte
	ContentType string
}

type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	maxBytes  int64
	userAgent string
}

// NewFetcher returns a Fetcher. A nil client uses a fresh http.Client; the per-request
// timeout comes from cfg and is applied through the request context.
func NewFetcher(cfg config.MediaConfig, client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	f := &Fetcher{
		client:    client,
		timeout:   cfg.Timeout,
		maxBytes:  cfg.MaxBytes,
		userAgent: cfg.UserAgent,
	}
	if f.timeout <= 0 {
		f.timeout = defaultTimeout
	}
	if f.maxBytes <= 0 {
		f.maxBytes = defaultMaxBytes
	}
	if f.userAgent == "" {
		f.userAgent = defaultUserAgent
	}
	return f
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (*Image, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d %s", ErrStatus, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return nil, fmt.Errorf("%w: content type %q", ErrNotImage, contentType)
	}
	if resp.ContentLength > f.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, resp.ContentLength, f.maxBytes)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, f.maxBytes)
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}

	return &Image{Data: data, ContentType: contentType}, nil
}

// IsClientError reports whether err is caused by the image itself rather than transport.
func IsClientError(err error) bool {
	return errors.Is(err, ErrNotImage) || errors.Is(err, ErrTooLarge) ||
		errors.Is(err, ErrEmpty) || errors.Is(err, ErrStatus)
}
