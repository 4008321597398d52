package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/lightsaway/event-gateway/internal/config"
	"github.com/lightsaway/event-gateway/internal/metrics"
)

// corsMiddleware adds permissive CORS headers, grounded on
// event-service/internal/server/server.go's corsMiddleware.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// requestIDMiddleware stamps every request with an id, propagated back in
// the response and available to the logger.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Header("X-Request-ID", id)
		c.Set("request_id", id)
		c.Next()
	}
}

// metricsMiddleware records http_requests_total and
// http_request_duration_seconds for every request.
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		c.Next()

		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, http.StatusText(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// transportMetadataMiddleware extracts producer-agnostic transport metadata
// (client address, user agent, and JWT claims if the auth layer already
// ran) and stashes it for the event handler to attach to the event.
func transportMetadataMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		meta := map[string]string{}

		if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
			meta["client_ip"] = strings.TrimSpace(strings.Split(fwd, ",")[0])
		} else if real := c.GetHeader("X-Real-IP"); real != "" {
			meta["client_ip"] = real
		} else {
			meta["client_ip"] = c.ClientIP()
		}
		if ua := c.GetHeader("User-Agent"); ua != "" {
			meta["user_agent"] = ua
		}
		if sub, ok := c.Get("jwt_sub"); ok {
			meta["jwt_sub"] = sub.(string)
		}
		if iss, ok := c.Get("jwt_iss"); ok {
			meta["jwt_iss"] = iss.(string)
		}

		c.Set("transport_metadata", meta)
		c.Next()
	}
}

// jwtAuthMiddleware verifies a bearer token's signature against cfg's JWKS
// endpoint and surfaces its registered claims. Mounted on admin routes,
// where a missing or invalid token is rejected outright.
func jwtAuthMiddleware(cfg *config.JwtAuthConfig, keyfunc jwt.Keyfunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := parseBearerClaims(c, keyfunc)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		setJWTClaims(c, claims)
		c.Next()
	}
}

// optionalJWTMiddleware parses a bearer token if one was sent, surfacing its
// claims the same way jwtAuthMiddleware does, but never rejects the request
// when the token is missing or invalid. Mounted on /event so transport
// metadata can carry jwt_sub/jwt_iss per spec.md's event-boundary section
// without turning event ingestion into an authenticated-only surface.
func optionalJWTMiddleware(keyfunc jwt.Keyfunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := parseBearerClaims(c, keyfunc); ok {
			setJWTClaims(c, claims)
		}
		c.Next()
	}
}

func parseBearerClaims(c *gin.Context, keyfunc jwt.Keyfunc) (jwt.MapClaims, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, false
	}
	tokenString := strings.TrimPrefix(header, "Bearer ")

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, keyfunc)
	if err != nil || !token.Valid {
		return nil, false
	}
	return claims, true
}

func setJWTClaims(c *gin.Context, claims jwt.MapClaims) {
	if sub, ok := claims["sub"].(string); ok {
		c.Set("jwt_sub", sub)
	}
	if iss, ok := claims["iss"].(string); ok {
		c.Set("jwt_iss", iss)
	}
}
