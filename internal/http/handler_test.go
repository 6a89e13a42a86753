package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skatespot-service/internal/config"
	"skatespot-service/internal/domain/spot"
	"skatespot-service/internal/service"
)

const testSecret = "super-secret-jwt-token"

type stubService struct {
	result    *spot.EvaluateResult
	err       error
	rating    *spot.StoredRating
	healthErr error

	lastRequest spot.EvaluateRequest
}

func (s *stubService) Evaluate(_ context.Context, req spot.EvaluateRequest) (*spot.EvaluateResult, error) {
	s.lastRequest = req
	return s.result, s.err
}

func (s *stubService) Reevaluate(_ context.Context, spotID, mediaURL, userID string) (*spot.EvaluateResult, error) {
	s.lastRequest = spot.EvaluateRequest{SpotID: spotID, MediaURL: mediaURL, UserID: userID}
	return s.result, s.err
}

func (s *stubService) LatestRating(context.Context, string) (*spot.StoredRating, error) {
	return s.rating, s.err
}

func (s *stubService) Health(context.Context) error { return s.healthErr }

func newTestRouter(svc SpotService, auth config.AuthConfig) *gin.Engine {
	cfg := config.Config{
		Server: config.ServerConfig{Mode: gin.TestMode, AllowedOrigins: []string{"*"}},
		Auth:   auth,
	}
	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics\n"))
	})
	return NewRouter(cfg, NewHandler(svc, metricsHandler, zerolog.Nop()), zerolog.Nop())
}

func doRequest(r http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func signedToken(t *testing.T, secret, sub string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func ratedResult(spotID uuid.UUID) *spot.EvaluateResult {
	return &spot.EvaluateResult{
		SpotID: spotID,
		Rating: &spot.StoredRating{
			ID:     uuid.New(),
			SpotID: spotID,
			Rating: spot.Rating{SkateabilityScore: 4.1, Confidence: 0.9, Notes: "Skateability good"},
		},
	}
}

func TestEvaluateSpot_Success(t *testing.T) {
	spotID := uuid.New()
	svc := &stubService{result: ratedResult(spotID)}
	r := newTestRouter(svc, config.AuthConfig{})

	rec := doRequest(r, http.MethodPost, "/api/v1/spots/evaluate",
		fmt.Sprintf(`{"spotId":%q,"mediaUrl":"https://x/storage/v1/object/public/a.jpg","userId":"u1"}`, spotID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.InDelta(t, 4.1, body["skateability_score"], 1e-9)
	rating := body["rating"].(map[string]any)
	assert.Equal(t, spotID.String(), rating["spot_id"])
	assert.Equal(t, "Skateability good", rating["notes"])

	assert.Equal(t, spotID.String(), svc.lastRequest.SpotID)
	assert.Equal(t, "u1", svc.lastRequest.UserID)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestEvaluateSpot_Pending(t *testing.T) {
	svc := &stubService{result: &spot.EvaluateResult{
		SpotID:   uuid.New(),
		Deferred: &spot.Deferred{Pending: true, Reason: "Low confidence in AI analysis"},
	}}
	r := newTestRouter(svc, config.AuthConfig{})

	rec := doRequest(r, http.MethodPost, "/api/v1/spots/evaluate", fmt.Sprintf(`{"spotId":%q}`, uuid.New()), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"pending": true, "reason": "Low confidence in AI analysis"}, decode(t, rec))
}

func TestEvaluateSpot_RequestErrors(t *testing.T) {
	r := newTestRouter(&stubService{}, config.AuthConfig{})

	rec := doRequest(r, http.MethodPost, "/api/v1/spots/evaluate", `{"mediaUrl":"x"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing required field: spotId", decode(t, rec)["error"])

	rec = doRequest(r, http.MethodPost, "/api/v1/spots/evaluate", `{not json`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid JSON body", decode(t, rec)["error"])
}

func TestEvaluateSpot_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"invalid", fmt.Errorf("%w: spotId must be a valid UUID", service.ErrInvalidInput), http.StatusBadRequest, "invalid input: spotId must be a valid UUID"},
		{"no image", service.ErrNoImage, http.StatusBadRequest, "No image found for this spot"},
		{"fetch", fmt.Errorf("%w: status 404", service.ErrMediaFetch), http.StatusBadRequest, "Failed to download image"},
		{"vision", fmt.Errorf("%w: quota", service.ErrUpstream), http.StatusBadGateway, "Vision API request failed"},
		{"internal", errors.New("db down"), http.StatusInternalServerError, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&stubService{err: tt.err}, config.AuthConfig{})
			rec := doRequest(r, http.MethodPost, "/api/v1/spots/evaluate", `{"spotId":"abc"}`, nil)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, decode(t, rec)["error"])
		})
	}
}

func TestEvaluateSpot_TokenSubjectOverridesUserID(t *testing.T) {
	spotID := uuid.New()
	svc := &stubService{result: ratedResult(spotID)}
	r := newTestRouter(svc, config.AuthConfig{JWTSecret: testSecret})
	sub := uuid.NewString()

	rec := doRequest(r, http.MethodPost, "/api/v1/spots/evaluate",
		fmt.Sprintf(`{"spotId":%q,"userId":"spoofed"}`, spotID),
		map[string]string{"Authorization": "Bearer " + signedToken(t, testSecret, sub)})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, sub, svc.lastRequest.UserID)
}

func TestAuthMiddleware(t *testing.T) {
	spotID := uuid.New()

	t.Run("required without token", func(t *testing.T) {
		r := newTestRouter(&stubService{result: ratedResult(spotID)}, config.AuthConfig{JWTSecret: testSecret, Required: true})
		rec := doRequest(r, http.MethodPost, "/api/v1/spots/evaluate", fmt.Sprintf(`{"spotId":%q}`, spotID), nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		r := newTestRouter(&stubService{result: ratedResult(spotID)}, config.AuthConfig{JWTSecret: testSecret})
		rec := doRequest(r, http.MethodPost, "/api/v1/spots/evaluate", fmt.Sprintf(`{"spotId":%q}`, spotID),
			map[string]string{"Authorization": "Bearer " + signedToken(t, "other-secret", "someone")})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "invalid token", decode(t, rec)["error"])
	})

	t.Run("optional without token", func(t *testing.T) {
		svc := &stubService{result: ratedResult(spotID)}
		r := newTestRouter(svc, config.AuthConfig{JWTSecret: testSecret})
		rec := doRequest(r, http.MethodPost, "/api/v1/spots/evaluate", fmt.Sprintf(`{"spotId":%q,"userId":"u2"}`, spotID), nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "u2", svc.lastRequest.UserID)
	})
}

func TestReevaluateSpot(t *testing.T) {
	spotID := uuid.New()
	svc := &stubService{result: ratedResult(spotID)}
	r := newTestRouter(svc, config.AuthConfig{})

	rec := doRequest(r, http.MethodPost, "/api/v1/spots/"+spotID.String()+"/reevaluate", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, spotID.String(), svc.lastRequest.SpotID)
	assert.Empty(t, svc.lastRequest.MediaURL)

	rec = doRequest(r, http.MethodPost, "/api/v1/spots/"+spotID.String()+"/reevaluate", `{"mediaUrl":"https://m/a.jpg"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://m/a.jpg", svc.lastRequest.MediaURL)
}

func TestGetLatestRating(t *testing.T) {
	spotID := uuid.New()
	stored := ratedResult(spotID).Rating
	r := newTestRouter(&stubService{rating: stored}, config.AuthConfig{})

	rec := doRequest(r, http.MethodGet, "/api/v1/spots/"+spotID.String()+"/rating", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, stored.ID.String(), data["id"])

	r = newTestRouter(&stubService{err: fmt.Errorf("%w: no rating", service.ErrNotFound)}, config.AuthConfig{})
	rec = doRequest(r, http.MethodGet, "/api/v1/spots/"+spotID.String()+"/rating", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	r := newTestRouter(&stubService{}, config.AuthConfig{})
	rec := doRequest(r, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(r, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# metrics")

	r = newTestRouter(&stubService{healthErr: errors.New("db down")}, config.AuthConfig{})
	rec = doRequest(r, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(&stubService{}, config.AuthConfig{})
	rec := doRequest(r, http.MethodOptions, "/api/v1/spots/evaluate", "", map[string]string{
		"Origin":                        "https://app.example.com",
		"Access-Control-Request-Method": http.MethodPost,
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestBearerToken(t *testing.T) {
	tok, ok := bearerToken("Bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	_, ok = bearerToken("Basic abc")
	assert.False(t, ok)
	_, ok = bearerToken("Bearer ")
	assert.False(t, ok)
}
