package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/app"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/config"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/handler"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/pkg/logger"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Initialize Logger
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	// 3. Initialize Persistence and Core Services
	bootCtx, bootCancel := context.WithTimeout(context.Background(), 30*time.Second)
	a, err := app.New(bootCtx, cfg)
	bootCancel()
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	if cfg.Auth.AdminKey == "" {
		logger.Warn("⚠️ auth.admin_key is empty, admin routes will reject every request")
	}

	// 4. Background sweep of stale rate limit records and expired audit rows
	a.Sweeper.Start()

	// 5. Setup Router
	r := handler.NewRouter(cfg, a.Deps())

	// 6. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("🚀 QuickPayLink Guard started", "port", cfg.Server.Port, "backend", cfg.RateLimit.Backend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	a.Sweeper.Stop()
	a.Close()

	logger.Info("Server exiting")
}
