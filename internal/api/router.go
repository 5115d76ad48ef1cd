package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/celerix-dev/celerix-ivr/internal/auth"
)

const (
	RequestIDHeader = "X-Request-ID"
	RequestIDKey    = "request_id"
)

// NewRouter wires the handler, request logging and authentication into a gin engine.
func NewRouter(h *Handler, authn *auth.Authenticator) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), AccessLog(h.logger()))

	r.GET("/healthz", Health)

	v1 := r.Group("/v1", auth.Middleware(authn))
	{
		v1.POST("/access/validate", h.Validate)
		v1.POST("/access/consume", h.Consume)
		v1.POST("/conversation/turn", h.Turn)
		v1.POST("/recordings/tag", h.TagRecordings)
		v1.POST("/results", h.RecordResult)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, Failure{StatusCode: http.StatusNotFound, Message: "route not found"})
	})
	return r
}

// RequestID propagates the caller's X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// AccessLog writes one structured line per request.
func AccessLog(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"request_id", c.GetString(RequestIDKey),
		)
	}
}
