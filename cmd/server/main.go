package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"

	"github.com/oggyb/friender/internal/app"
	"github.com/oggyb/friender/internal/auth"
	"github.com/oggyb/friender/internal/cache"
	"github.com/oggyb/friender/internal/config"
	"github.com/oggyb/friender/internal/db"
	"github.com/oggyb/friender/internal/logger"
	"github.com/oggyb/friender/internal/metrics"
	"github.com/oggyb/friender/internal/server"
	"github.com/oggyb/friender/internal/service/graph"
	"github.com/oggyb/friender/internal/service/messages"
	"github.com/oggyb/friender/internal/service/users"
)

func main() {
	cfg := config.New()

	log := logger.InitFromConfig(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(ctx); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}
	defer redisCache.Close()

	tokens, err := auth.NewTokenManager(cfg)
	if err != nil {
		log.Error("failed to init token manager", "err", err)
		return
	}

	appCtx := app.New(database, redisCache, tokens, log)
	appCtx.BcryptCost = cfg.Auth.BcryptCost

	graphMgr := graph.NewManager(appCtx)
	registrars := []server.Registrar{
		users.NewRegistrar(appCtx),
		graph.NewRegistrar(graphMgr),
		messages.NewRegistrar(appCtx, graphMgr),
	}

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	if cfg.Metrics.Addr != "" {
		go func() {
			mlog := logger.ForComponent("metrics")
			mlog.Info("serving metrics", "addr", cfg.Metrics.Addr)
			if err := metrics.Serve(ctx, cfg.Metrics.Addr); err != nil {
				mlog.Error("metrics server stopped", "err", err)
			}
		}()
	}

	grpcServer := server.NewGRPCServer([]grpc.UnaryServerInterceptor{
		metrics.UnaryInterceptor(),
		auth.UnaryInterceptor(tokens, server.PublicMethods(registrars...)...),
	}, registrars...)

	log.Info("starting gRPC server", "addr", cfg.GRPC.Host+":"+cfg.GRPC.Port)
	if err := server.StartGRPCServer(ctx, cfg, grpcServer); err != nil {
		log.Error("failed to start gRPC server", "err", err)
	}
}
