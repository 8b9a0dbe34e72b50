package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/storefront-labs/aegis/audit"
	"github.com/storefront-labs/aegis/authz"
	"github.com/storefront-labs/aegis/broadcast"
	"github.com/storefront-labs/aegis/cache"
	"github.com/storefront-labs/aegis/config"
	"github.com/storefront-labs/aegis/controller"
	"github.com/storefront-labs/aegis/db"
	"github.com/storefront-labs/aegis/engine"
	"github.com/storefront-labs/aegis/logging"
	"github.com/storefront-labs/aegis/router"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	// Initialize logger
	logging.InitLogger()
	defer logging.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Redis
	redisClient, err := db.NewRedis(ctx)
	if err != nil {
		logging.Fatal("Failed to initialize Redis", zap.Error(err))
	}
	defer redisClient.Close()

	// Decision engine over the built-in capability matrix
	evaluator := engine.NewEvaluator(engine.DefaultMatrix())

	// Bounded decision cache with optional background sweep
	decisionCache, err := cache.New(config.GetInt("cache.maxEntries"))
	if err != nil {
		logging.Fatal("Failed to create decision cache", zap.Error(err))
	}
	decisionCache.StartSweeper(ctx, config.GetDuration("cache.sweepInterval"))

	// Invalidation broadcaster over Redis pub/sub
	transport := broadcast.NewRedisTransport(redisClient, config.GetString("broadcast.channel"))
	broadcaster := broadcast.New(transport)
	if err := broadcaster.Start(ctx); err != nil {
		logging.Fatal("Failed to start invalidation broadcaster", zap.Error(err))
	}
	defer transport.Close()

	// Optional decision audit trail
	var opts []authz.Option
	if config.GetBool("audit.enabled") {
		auditRepo, err := audit.NewElasticsearchRepository(config.GetString("audit.elasticsearchURL"))
		if err != nil {
			logging.Fatal("Failed to initialize audit repository", zap.Error(err))
		}
		auditService := audit.NewService(auditRepo)
		auditService.Start(ctx)
		opts = append(opts, authz.WithAudit(auditService))
	}

	checker := authz.NewChecker(
		evaluator,
		decisionCache,
		broadcaster,
		config.GetDuration("cache.defaultTTL"),
		opts...,
	)
	defer checker.Close()

	authzController := controller.NewAuthzController(checker)

	gin.SetMode(gin.ReleaseMode)
	engineRouter := router.SetupRouter(
		authzController,
		redisClient,
		config.GetInt("ratelimit.requests"),
		config.GetDuration("ratelimit.window"),
	)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", config.GetString("server.port")),
		Handler: engineRouter,
	}

	go func() {
		logging.Info("Starting server", zap.String("port", config.GetString("server.port")))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logging.Info("Server exiting")
}
