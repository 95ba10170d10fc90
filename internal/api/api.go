package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/r2bridge/internal/api/handlers"
	"github.com/andresuchdata/r2bridge/internal/api/middleware"
	"github.com/andresuchdata/r2bridge/internal/domain"
	"github.com/andresuchdata/r2bridge/internal/metrics"
	"github.com/andresuchdata/r2bridge/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type Services struct {
	StorageService *service.StorageService
	// Credential is used for requests that do not override it via headers.
	Credential domain.Credential
	Metrics    *metrics.Metrics
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	if services != nil && services.Metrics != nil {
		router.Use(services.Metrics.Gin())
	}

	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins: defaultOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "Authorization", "Range",
			middleware.RequestIDHeader,
			handlers.HeaderAccountID, handlers.HeaderAPIToken,
			handlers.HeaderAccessKeyID, handlers.HeaderSecretAccessKey,
		},
		ExposeHeaders:    []string{"Content-Length", "ETag", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			// any origin may call, but browsers never attach credentials
			log.Warn().Msg("CORS allows every origin; credentialed requests are disabled")
			corsConfig.AllowOrigins = nil
			corsConfig.AllowAllOrigins = true
			corsConfig.AllowCredentials = false
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil && services.StorageService != nil {
		h := handlers.NewStorageHandler(services.StorageService, services.Credential)

		bucketGroup := apiGroup.Group("/buckets")
		{
			bucketGroup.GET("", h.ListBuckets)
			bucketGroup.POST("", h.CreateBucket)
			bucketGroup.GET("/:bucket", h.GetBucket)
			bucketGroup.DELETE("/:bucket", h.DeleteBucket)

			bucketGroup.GET("/:bucket/cors", h.GetCORS)
			bucketGroup.PUT("/:bucket/cors", h.SetCORS)
			bucketGroup.DELETE("/:bucket/cors", h.DeleteCORS)

			bucketGroup.GET("/:bucket/objects", h.ListObjects)
			bucketGroup.POST("/:bucket/objects", h.UploadObject)
			bucketGroup.PUT("/:bucket/objects/*key", h.PutObject)
			bucketGroup.GET("/:bucket/objects/*key", h.DownloadObject)
			bucketGroup.DELETE("/:bucket/objects/*key", h.DeleteObject)
			bucketGroup.GET("/:bucket/metadata/*key", h.HeadObject)
			bucketGroup.POST("/:bucket/delete", h.DeleteObjects)
		}

		apiGroup.POST("/copy", h.CopyObject)
		apiGroup.GET("/audit", h.RecentAudit)
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		for _, part := range strings.Split(origin, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
