// Package httpapi is the gin-based HTTP boundary: route registration,
// transport-metadata extraction, and JWT auth, grounded on
// event-service/internal/server/server.go's graceful-shutdown server
// shape, narrowed to the routes in the event gateway's HTTP surface.
package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lightsaway/event-gateway/internal/config"
	"github.com/lightsaway/event-gateway/internal/gateway"
	"github.com/lightsaway/event-gateway/internal/logger"
)

// Server wraps the gin engine and its underlying http.Server for graceful
// shutdown.
type Server struct {
	httpServer *http.Server
	jwks       *JWKSProvider
}

// NewServer builds the gin engine, mounting every route under
// cfg.Api.Prefix. Admin routes (routing-rules, topic-validations) are
// gated by JWT auth when cfg.Api.JwtAuth is set; /event never requires a
// token but still parses one if present, so jwt_sub/jwt_iss reach
// transport_metadata when the caller happens to send a bearer token.
func NewServer(cfg *config.AppConfig, gw gateway.Handler) (*Server, error) {
	if cfg.DebugMode {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logger.GinMiddleware())
	engine.Use(corsMiddleware())
	engine.Use(requestIDMiddleware())
	if cfg.Gateway.MetricsEnabled {
		engine.Use(metricsMiddleware())
	}

	handlers := NewHandlers(gw)

	prefix := cfg.Api.Prefix
	if prefix == "" {
		prefix = "/"
	}
	group := engine.Group(prefix)

	var jwks *JWKSProvider
	if cfg.Api.JwtAuth != nil {
		jwks = NewJWKSProvider(cfg.Api.JwtAuth.JwksURL, time.Duration(cfg.Api.JwtAuth.RefreshIntervalSecs)*time.Second)
		if err := jwks.Start(); err != nil {
			return nil, err
		}
	}

	group.GET("/health-check", transportMetadataMiddleware(), handlers.HealthCheck)
	if jwks != nil {
		group.POST("/event", optionalJWTMiddleware(jwks.Keyfunc), transportMetadataMiddleware(), handlers.PostEvent)
	} else {
		group.POST("/event", transportMetadataMiddleware(), handlers.PostEvent)
	}
	if cfg.Gateway.MetricsEnabled {
		group.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	admin := group.Group("")
	if jwks != nil {
		admin.Use(jwtAuthMiddleware(cfg.Api.JwtAuth, jwks.Keyfunc))
	}
	admin.Use(transportMetadataMiddleware())

	admin.GET("/routing-rules", handlers.GetRoutingRules)
	admin.POST("/routing-rules", handlers.PostRoutingRule)
	admin.PUT("/routing-rules/:id", handlers.PutRoutingRule)
	admin.DELETE("/routing-rules/:id", handlers.DeleteRoutingRule)
	admin.GET("/topic-validations", handlers.GetTopicValidations)
	admin.POST("/topic-validations", handlers.PostTopicValidation)
	admin.DELETE("/topic-validations/:id", handlers.DeleteTopicValidation)

	return &Server{
		jwks: jwks,
		httpServer: &http.Server{
			Addr:         cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port),
			Handler:      engine,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}, nil
}

func (s *Server) Start() error {
	logger.GetLogger().WithField("addr", s.httpServer.Addr).Info("starting event gateway http server")
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Stop(ctx context.Context) error {
	logger.GetLogger().Info("shutting down event gateway http server")
	if s.jwks != nil {
		s.jwks.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}
