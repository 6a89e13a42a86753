package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"skatespot-service/internal/config"
)

const (
	userIDKey       = "user_id"
	requestIDHeader = "X-Request-ID"
)

// NewRouter builds the gin engine with CORS, request logging and recovery installed.
func NewRouter(cfg config.Config, h *Handler, log zerolog.Logger) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(cors.New(corsConfig(cfg.Server.AllowedOrigins)))

	h.Register(r, AuthMiddleware(cfg.Auth, log))
	return r
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Authorization", "Content-Type", "X-Client-Info", "Apikey", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	c.AllowOrigins = origins
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	}
	return c
}

// AuthMiddleware verifies HS256 bearer tokens. The token subject is stored as the caller's
// user id. Without auth.required, requests without a token pass through anonymously.
func AuthMiddleware(cfg config.AuthConfig, log zerolog.Logger) gin.HandlerFunc {
	secret := []byte(cfg.JWTSecret)
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			if cfg.Required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("missing bearer token"))
				return
			}
			c.Next()
			return
		}
		if len(secret) == 0 {
			// nothing to verify against
			c.Next()
			return
		}

		token, err := jwt.Parse(raw, func(*jwt.Token) (interface{}, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			log.Debug().Err(err).Msg("rejected bearer token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("invalid token"))
			return
		}

		if sub, err := token.Claims.GetSubject(); err == nil && sub != "" {
			c.Set(userIDKey, sub)
		}
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func authenticatedUser(c *gin.Context) (string, bool) {
	id := c.GetString(userIDKey)
	return id, id != ""
}

func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		c.Next()

		status := c.Writer.Status()
		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}
		event.
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}
