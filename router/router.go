package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/storefront-labs/aegis/controller"
	"github.com/storefront-labs/aegis/middleware"
)

// SetupRouter assembles the HTTP surface of the decision service.
func SetupRouter(
	authzController *controller.AuthzController,
	redisClient *redis.Client,
	rateLimitRequests int,
	rateLimitWindow time.Duration,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	if redisClient != nil {
		router.Use(middleware.RateLimiter(redisClient, rateLimitRequests, rateLimitWindow))
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	authzController.RegisterRoutes(api)

	return router
}
