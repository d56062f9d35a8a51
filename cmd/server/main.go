package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Clark-Hu/movie-votes/internal/auth"
	"github.com/Clark-Hu/movie-votes/internal/config"
	httpserver "github.com/Clark-Hu/movie-votes/internal/http"
	"github.com/Clark-Hu/movie-votes/internal/logging"
	"github.com/Clark-Hu/movie-votes/internal/ratelimit"
	"github.com/Clark-Hu/movie-votes/internal/repository"
	"github.com/Clark-Hu/movie-votes/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat).With("service", "movie-votes")

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	storeOpts := store.Options{
		MaxConns:               int32(cfg.DBMaxConns),
		MinConns:               int32(cfg.DBMinConns),
		MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 logger,
	}

	st, err := store.New(dbCtx, cfg.DBURL, storeOpts)
	if err != nil {
		logger.Error("connect database", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.Migrate(dbCtx); err != nil {
		logger.Error("migrate database", "error", err)
		os.Exit(1)
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = ratelimit.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			// Voting still works without the limiter.
			logger.Warn("redis unavailable, vote rate limiting disabled", "error", err)
		} else {
			defer rdb.Close()
		}
	}
	voteLimit := ratelimit.Middleware(ratelimit.Config{
		Capacity:    cfg.VoteRateCapacity,
		RefillEvery: cfg.VoteRateRefill,
		Prefix:      "rl:votes",
	}, rdb, logger)

	repo := repository.New(st)
	sessions := auth.NewSessions([]byte(cfg.SessionSecret), cfg.SessionSecure, repo.Users, logger)
	server := httpserver.New(cfg, st, repo, sessions, voteLimit, logger)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
			logger.Error("server error", "error", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("graceful shutdown error", "error", err)
	}
}
