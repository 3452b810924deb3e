package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gol43/test-moon/common/database"
	logpkg "github.com/gol43/test-moon/common/logger"
	mqttpkg "github.com/gol43/test-moon/common/mqtt"
	redispkg "github.com/gol43/test-moon/common/redis"
	"github.com/gol43/test-moon/internal/config"
	"github.com/gol43/test-moon/internal/events"
	httpapi "github.com/gol43/test-moon/internal/http"
	"github.com/gol43/test-moon/internal/repository"
	"github.com/gol43/test-moon/internal/service"
	"github.com/gol43/test-moon/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := logpkg.NewLogger(cfg.Log.Level, cfg.Log.Format, "moon-directory")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting moon-directory service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage: Postgres when reachable, otherwise the in-memory store.
	var (
		db *sql.DB
		st repository.Store
	)
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			logger.Info("DB enabled for moon-directory", zap.String("host", cfg.Database.Host), zap.String("database", cfg.Database.Database))
		} else {
			logger.Warn("DB enabled but connection failed, falling back to memory store", zap.Error(err))
		}
	}
	if db != nil {
		defer database.Close(db)
		if cfg.DBAutoMigrate {
			if err := repository.ApplySchema(ctx, db); err != nil {
				logger.Fatal("Failed to apply schema", zap.Error(err))
			}
			logger.Info("Schema applied")
		}
		st = repository.NewPostgresStore(db)
	} else {
		st = repository.NewMemoryStore()
	}

	// Building cache: Redis when enabled, otherwise a process-local map.
	cache := &service.BuildingCache{TTL: cfg.Cache.TTL, Prefix: cfg.Cache.Prefix}
	if cfg.Cache.Enabled {
		rc := redispkg.NewRedisClient(&cfg.Redis)
		if err := redispkg.Ping(ctx, rc); err != nil {
			logger.Warn("Redis unreachable, using in-process cache", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			redispkg.Close(rc)
			cache.KV = store.NewMemoryKV()
		} else {
			defer redispkg.Close(rc)
			cache.KV = store.NewRedisKV(rc)
		}
	} else {
		cache.KV = store.NewMemoryKV()
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.MQTT.Enabled {
		mqttCfg := cfg.MQTT.MQTTConfig
		mqttCfg.ClientID = fmt.Sprintf("%s-%s", mqttCfg.ClientID, uuid.New().String()[:8])
		if client, err := mqttpkg.NewClient(&mqttCfg); err == nil {
			defer client.Disconnect()
			publisher = events.NewMQTTPublisher(client, cfg.MQTT.TopicPrefix, logger)
			logger.Info("MQTT events enabled", zap.String("broker", mqttCfg.Broker), zap.String("prefix", cfg.MQTT.TopicPrefix))
		} else {
			logger.Warn("MQTT enabled but connection failed, events disabled", zap.Error(err))
		}
	}

	buildings := service.NewBuildingService(st, cache, publisher, logger)
	router := httpapi.NewRouter(httpapi.Deps{
		Activities:    service.NewActivityService(st, publisher, logger),
		Buildings:     buildings,
		Organizations: service.NewOrganizationService(st, publisher, logger),
		Seed:          service.NewSeedService(st, buildings, publisher, logger),
		Store:         st,
		Metrics:       httpapi.NewMetrics(),
		Logger:        logger,
		BasePath:      cfg.HTTP.BasePath,
		CORSOrigins:   cfg.HTTP.CORSOrigins,
	})
	srv := service.NewServer(cfg.HTTP.Addr, router, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() { errChan <- srv.Run(ctx) }()

	select {
	case sig := <-sigChan:
		logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
		if err := <-errChan; err != nil {
			logger.Error("Error stopping server", zap.Error(err))
		}
	case err := <-errChan:
		if err != nil {
			logger.Error("Server error", zap.Error(err))
		}
	}

	logger.Info("Service stopped")
}
