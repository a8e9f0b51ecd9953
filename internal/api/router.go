package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the gin engine with recovery, request logging, the API
// routes and /metrics
func NewRouter(h *Handler, logger *slog.Logger) *gin.Engine {
	// prediction inputs are stored verbatim; float64 would round large integers
	binding.EnableDecoderUseNumber = true

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	h.RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
			slog.String("client_ip", c.ClientIP()))
	}
}
