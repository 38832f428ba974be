package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"SerialWatch/internal/usecase"
)

// NewRouter exposes the scan pipeline over HTTP. Authentication is an
// external concern; owner identity arrives via the X-User-ID header.
func NewRouter(service *usecase.Service, log *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(requestLogger(log))
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := NewHandler(service, log)

	v1 := router.Group("/api/v1")

	serials := v1.Group("/serials")
	serials.POST("", h.CreateSerial)
	serials.GET("", h.ListSerials)
	serials.PUT("/:id", h.UpdateSerial)
	serials.DELETE("/:id", h.DeleteSerial)
	serials.POST("/:id/scan", h.ScanSerial)
	serials.GET("/:id/logs", h.ListScanLogs)

	v1.POST("/scan", h.ScanAll)

	detections := v1.Group("/detections")
	detections.GET("", h.ListDetections)
	detections.PATCH("/:id/status", h.UpdateDetectionStatus)

	return router
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		if log != nil {
			log.Info("http request",
				"method", method,
				"path", path,
				"status", c.Writer.Status(),
				"duration", time.Since(start))
		}
	}
}
