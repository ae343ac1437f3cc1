package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/connectmarket/session-gateway/internal/api"
	"github.com/connectmarket/session-gateway/internal/core/ports"
	mongodb "github.com/connectmarket/session-gateway/internal/infrastructure/db/mongo"
	redisdb "github.com/connectmarket/session-gateway/internal/infrastructure/db/redis"
	"github.com/connectmarket/session-gateway/internal/infrastructure/identity"
	"github.com/connectmarket/session-gateway/internal/infrastructure/queue"
	"github.com/connectmarket/session-gateway/internal/infrastructure/upstream"
	"github.com/connectmarket/session-gateway/internal/pkg/config"
	"github.com/connectmarket/session-gateway/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── Redis (session-lookup cache) ─────────────────────────
	var cache upstream.SessionCache
	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, session lookups will not be cached")
	} else {
		defer rdb.Close()
		cache = redisdb.NewSessionCache(rdb, cfg.Redis.SessionTTL)
	}

	// ── MongoDB (auth audit trail) ───────────────────────────
	var audit ports.AuditSink
	var history ports.AuditHistory
	mongoClient, mongoDB, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Warn().Err(err).Msg("mongo unavailable, auth events will not be audited")
	} else {
		defer mongoClient.Disconnect(context.Background())
		auditRepo := mongodb.NewAuditRepository(mongoDB)
		dispatcher := queue.NewAuditDispatcher(0, auditRepo, log)
		dispatcher.Start(ctx)
		audit = dispatcher
		history = auditRepo
	}

	// ── Identity provider bridge ─────────────────────────────
	provider := identity.NewGSIProvider(cfg.Google.ScriptURL, nil)
	bridge := identity.NewBridge(provider, cfg.Google.ClientID, log)

	// ── Router ───────────────────────────────────────────────
	e, registry := api.NewRouter(api.Dependencies{
		UpstreamURL: cfg.UpstreamURL,
		Bridge:      bridge,
		Cache:       cache,
		Audit:       audit,
		History:     history,
		Mongo:       mongoDB,
		Redis:       rdb,
		VisitorTTL:  cfg.VisitorTTL,
		Log:         log,
	})
	registry.StartJanitor(ctx)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("session gateway listening")
		if err := e.Start(":" + cfg.Port); err != nil {
			log.Info().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()

	log.Info().Msg("shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}
