package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/keentechcodes/swapwatch/internal/audit"
	"github.com/keentechcodes/swapwatch/internal/config"
	"github.com/keentechcodes/swapwatch/internal/filtersync"
	"github.com/keentechcodes/swapwatch/internal/gateway"
	"github.com/keentechcodes/swapwatch/internal/ingress"
	"github.com/keentechcodes/swapwatch/internal/room"
	"github.com/keentechcodes/swapwatch/internal/roomstore"
	"github.com/keentechcodes/swapwatch/internal/telegram"
	"github.com/keentechcodes/swapwatch/internal/walletindex"
	"github.com/keentechcodes/swapwatch/pkg/logger"
	"github.com/keentechcodes/swapwatch/pkg/redis"
)

func main() {
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.InitLogger(cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	log.Info("Starting SwapWatch...")

	redisClient, err := redis.NewRedisClient(cfg.Redis)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisClient.Close()
	log.Info("Redis connected successfully")

	auditSink, err := audit.New(cfg.Database, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize audit sink")
	}
	log.Info("Audit sink initialized")

	kv := roomstore.NewRedisStore(redisClient)
	tg := telegram.NewClient(cfg.Telegram, log)
	index := walletindex.New(redisClient)

	defaultLifetime := time.Duration(cfg.Room.DefaultLifetimeHours) * time.Hour
	if defaultLifetime <= 0 {
		defaultLifetime = 24 * time.Hour
	}
	registry := room.NewRegistry(kv, auditSink, tg, index, defaultLifetime, log)

	syncer := filtersync.New(cfg.FilterSync, index, log)
	ing := ingress.New(cfg.Webhook.SigningSecret, registry, index, log)

	gw := gateway.New(cfg, registry, index, ing, log, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		syncer.Sync(ctx)
	})
	log.Info("Routes configured")

	server := &http.Server{
		Addr:           cfg.Server.Port,
		Handler:        gw.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("Server starting...")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	go registry.RunJanitor(janitorCtx, cfg.Room.JanitorInterval)

	log.Info("SwapWatch started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	stopJanitor()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	} else {
		log.Info("Server shutdown gracefully")
	}
}
