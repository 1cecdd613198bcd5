package main

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"codeberg.org/codemate/server/api/rest/health"
	resthistory "codeberg.org/codemate/server/api/rest/history"
	"codeberg.org/codemate/server/api/websocket"
	"codeberg.org/codemate/server/internal/logger"
)

// sets up all API routes and middleware
func RegisterRoutes(router *gin.Engine, server *Server) {
	router.Use(corsMiddleware())
	router.GET("/health", health.Handler)

	v1 := router.Group("/api/v1")
	v1.Use(rateLimitMiddleware())

	{
		v1.GET("/ping", health.PingHandler)

		resthistory.RegisterRoutes(v1, server.controller.History())
		websocket.RegisterRoutes(v1, server.hub)
	}
}

// editor webviews connect from their own origins; outside production
// everything is allowed
func corsMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	})
}

func rateLimitMiddleware() gin.HandlerFunc {
	rate, err := limiter.NewRateFromFormatted("120-M")
	if err != nil {
		logger.Fatal("invalid rate limit format", "error", err)
	}

	return mgin.NewMiddleware(limiter.New(memory.NewStore(), rate))
}
