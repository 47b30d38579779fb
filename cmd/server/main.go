package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/limaJavier/coursecomb/config"
	"github.com/limaJavier/coursecomb/internal/server"
	"github.com/limaJavier/coursecomb/pkg/combinator"
	applogger "github.com/limaJavier/coursecomb/pkg/logger"
	"github.com/limaJavier/coursecomb/pkg/model"
	"github.com/limaJavier/coursecomb/pkg/share"
)

func main() {
	configPathPtr := flag.String("config", "", "Path to the configuration file; if empty, config.yaml is looked up in ./config and .")
	flag.Parse()

	//** Configuration
	cfg, err := config.Load(*configPathPtr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot load configuration: %v\n", err)
		os.Exit(1)
	}

	//** Logger
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	//** Catalog and combinator
	sections, err := model.LoadCatalog(cfg.Catalog.Path, cfg.Catalog.Format, cfg.Catalog.DelimiterRune())
	if err != nil {
		logger.Fatal("cannot load catalog", zap.String("path", cfg.Catalog.Path), zap.Error(err))
	}
	comb, err := combinator.NewCombinator(sections, cfg.Server.Pooled)
	if err != nil {
		logger.Fatal("cannot build combinator", zap.Error(err))
	}
	logger.Info("catalog loaded",
		zap.String("path", cfg.Catalog.Path),
		zap.Int("sections", len(sections)),
		zap.Int("slots", comb.Slots()),
	)

	//** Share store
	var store share.Store
	var redisStore *share.RedisStore
	switch cfg.Share.Backend {
	case "redis":
		redisStore, err = share.NewRedisStore(&cfg.Redis, &cfg.Share, logger)
		if err != nil {
			logger.Fatal("cannot connect share store", zap.Error(err))
		}
		store = redisStore
	default:
		logger.Warn("shared combinations are kept in memory and lost on restart")
		store = share.NewMemoryStore(cfg.Share.KeyLength, cfg.Share.TTL)
	}

	//** HTTP server (graceful shutdown)
	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server.New(cfg, sections, comb, store, logger).Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Server.QueryTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutting down", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}

	if redisStore != nil {
		redisStore.Close()
	}

	logger.Info("server stopped")
}
