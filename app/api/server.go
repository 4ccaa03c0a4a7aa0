package api

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ServerOptions struct {
	APIAccessKey string
	RateLimit    float64
	RateBurst    int
}

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, opts ServerOptions) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())
	r.Use(requestIDMiddleware())

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-API-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, opts)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, opts ServerOptions) {
	r.GET("/feeds/approved.xml", handler.GetApprovedFeed)

	r.GET("/health", handler.GetHealth)
	r.GET("/stats", handler.GetStats)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	if opts.RateLimit > 0 {
		api.Use(newRateLimiter(opts.RateLimit, max(opts.RateBurst, 1)).middleware())
	}
	if opts.APIAccessKey != "" {
		api.Use(authMiddleware(opts.APIAccessKey))
		slog.Info("API endpoints enabled with authentication")
	} else {
		slog.Warn("API endpoints enabled without authentication (API_ACCESS_KEY not set)")
	}
	{
		api.GET("/items", handler.APIListItems)
		api.POST("/items/:id/suggestion", handler.APISuggest)
		api.POST("/items/:id/approve", handler.APIApprove)
		api.POST("/items/:id/reject", handler.APIReject)

		api.GET("/feeds", handler.APIListFeeds)
		api.POST("/feeds", handler.APIAddFeed)
		api.DELETE("/feeds/:id", handler.APIRemoveFeed)
		api.POST("/feeds/:id/active", handler.APISetFeedActive)

		api.POST("/refresh", handler.APIRefresh)
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"service":     "RSS Curator",
			"version":     handler.version,
			"description": "Security news aggregator with a human curation workflow",
			"endpoints": map[string]string{
				"approved_feed": "/feeds/approved.xml",
				"health":        "/health",
				"stats":         "/stats",
				"metrics":       "/metrics",
				"items":         "/api/items",
				"feeds":         "/api/feeds",
				"refresh":       "/api/refresh (POST)",
			},
			"api_status": map[string]interface{}{
				"auth_required": opts.APIAccessKey != "",
				"header":        "X-API-Key",
			},
		})
	})

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}
