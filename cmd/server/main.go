package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"deye-status/internal/api"
	"deye-status/internal/config"
	"deye-status/internal/deye"
	"deye-status/internal/kvstore"
	"deye-status/internal/metrics"
	"deye-status/internal/repository"
	"deye-status/internal/service"
	"deye-status/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// Initialize logger
	logger.Init(cfg.LogLevel, cfg.LogDir)
	logger.Info("Starting Deye battery status proxy")

	// Channel topology
	channels, err := config.LoadChannels(cfg.ChannelsFile)
	if err != nil {
		log.Fatal("Failed to load channels:", err)
	}
	logger.Infof("Monitoring %d channels", len(channels))

	// KV store
	store, err := openStore(cfg)
	if err != nil {
		log.Fatal("Failed to open KV store:", err)
	}
	defer store.Close()

	// Optional InfluxDB history
	history, err := repository.NewInfluxHistory(cfg)
	if err != nil {
		log.Fatal("Failed to initialize InfluxDB history:", err)
	}
	if history != nil {
		defer history.Close()
		logger.Info("InfluxDB history enabled")
	}

	// Wire the pipeline
	httpClient := &http.Client{Timeout: 30 * time.Second}
	errlog := service.NewErrorLog(store)
	tokens := deye.NewTokenProvider(httpClient, cfg.BaseURL(), store, deye.Credentials{
		AppID:     cfg.AppID,
		AppSecret: cfg.AppSecret,
		Email:     cfg.Email,
		Password:  cfg.Password,
	}, cfg.ManualToken, time.Duration(cfg.TokenTTL)*time.Second, errlog)
	client := deye.NewClient(httpClient, cfg.BaseURL())
	cache := service.NewSnapshotCache(store, time.Duration(cfg.DataCacheTTL)*time.Second)

	var historyWriter service.HistoryWriter
	if history != nil {
		historyWriter = history
	}
	svc := service.NewBatteryService(tokens, client, cache, errlog, channels, historyWriter)

	metrics.Register()

	// Setup HTTP server
	router := setupRouter(svc, cache, errlog, store, cfg)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Server starting on port %d", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server error:", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced shutdown:", err)
	}

	logger.Info("Server stopped gracefully")
}

func openStore(cfg *config.Config) (kvstore.Store, error) {
	if cfg.KVPath == "" {
		logger.Warn("KV_PATH empty, using in-memory store (cache lost on restart)")
		return kvstore.NewMemory(), nil
	}
	return kvstore.NewSQLite(cfg.KVPath)
}

func setupRouter(svc *service.BatteryService, cache *service.SnapshotCache, errlog *service.ErrorLog, store kvstore.Store, cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(api.Logger())
	r.Use(api.CORS())

	// API routes
	h := api.NewHandler(svc, cache, errlog, store, cfg)
	api.SetupRoutes(r, h)

	// Static dashboard, with index fallback for everything else
	r.Static("/static", cfg.StaticDir)
	r.NoRoute(func(c *gin.Context) {
		c.File(filepath.Join(cfg.StaticDir, "index.html"))
	})

	return r
}
