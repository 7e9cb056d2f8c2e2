package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codetracker/internal/core"
	"codetracker/internal/fetcher"
	"codetracker/internal/jobs"
	grpcProtocol "codetracker/internal/protocols/grpc"
	httpProtocol "codetracker/internal/protocols/http"
	"codetracker/internal/repository"
	"codetracker/pkg/config"
	"codetracker/pkg/database"
	"codetracker/pkg/logger"
)

type stores struct {
	stats repository.StatsRepository
	users repository.UserRepository
	close func()
}

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/development.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Logging)
	logger.Infof("Starting CodeTracker server (env=%s)", cfg.Env)

	st, err := openStores(cfg)
	if err != nil {
		logger.Fatalf("Failed to open statistics store: %v", err)
	}
	defer st.close()

	fetchers := fetcher.NewSet(fetcher.Options{
		Timeout:           cfg.Fetchers.Timeout,
		RequestsPerSecond: cfg.Fetchers.RequestsPerSecond,
		UserAgent:         cfg.Fetchers.UserAgent,
		LeetCodeAlfaURL:   cfg.Fetchers.LeetCodeAlfaURL,
		LeetCodeGraphQL:   cfg.Fetchers.LeetCodeGraphQL,
		CodeforcesAPI:     cfg.Fetchers.CodeforcesAPI,
		CodeChefURL:       cfg.Fetchers.CodeChefURL,
		Placeholders:      cfg.Fetchers.Placeholders,
	})

	statsSvc := core.NewStatsService(st.stats, fetchers, core.StatsOptions{
		Parallel:    cfg.Aggregator.Parallel,
		MaxParallel: cfg.Aggregator.MaxParallel,
	})

	scheduler, err := newScheduler(cfg, core.NewRefreshHandler(st.users, statsSvc))
	if err != nil {
		logger.Fatalf("Failed to create refresh scheduler: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := scheduler.Start(ctx); err != nil {
		logger.Fatalf("Failed to start refresh scheduler: %v", err)
	}

	platformSvc := core.NewPlatformService(st.users, st.stats, statsSvc, scheduler)
	authSvc := core.NewAuthService(st.users, cfg.JWT.Secret, cfg.JWT.Issuer)

	sweeper := jobs.NewSweeper(st.stats, st.users, scheduler,
		cfg.Scheduler.StaleAfter, cfg.Scheduler.SweepInterval, cfg.Scheduler.SweepBatch)
	go sweeper.Run(ctx)

	httpServer := httpProtocol.NewServer(cfg, authSvc, statsSvc, platformSvc, st.stats)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("HTTP server panic recovered: %v", r)
			}
		}()
		if err := httpServer.Start(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)); err != nil {
			logger.Errorf("HTTP server error: %v", err)
			stop()
		}
	}()

	var grpcServer *grpcProtocol.Server
	if cfg.GRPC.Enabled {
		grpcServer = grpcProtocol.NewServer(st.stats, 15*time.Second)
		if err := grpcServer.Start(fmt.Sprintf("%s:%d", cfg.GRPC.Host, cfg.GRPC.Port)); err != nil {
			logger.Errorf("gRPC server error (non-fatal): %v", err)
			grpcServer = nil
		}
	}

	logger.Info("CodeTracker server started, press Ctrl+C to shut down")
	<-ctx.Done()
	logger.Info("Shutting down servers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("HTTP shutdown error: %v", err)
	}
	if grpcServer != nil {
		grpcServer.Stop()
	}
	if err := scheduler.Close(); err != nil {
		logger.Errorf("Scheduler shutdown error: %v", err)
	}

	logger.Info("Shutdown complete")
}

// openStores migrates the schema and builds the repositories for the configured driver
func openStores(cfg *config.Config) (*stores, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if cfg.Database.Driver == "sqlite" {
		db, err := database.NewSQLite(cfg.Database.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		logger.Infof("Using SQLite store at %s", cfg.Database.SQLitePath)
		return &stores{
			stats: repository.NewSQLiteStatsRepository(db),
			users: repository.NewSQLiteUserRepository(db),
			close: func() { db.Close() },
		}, nil
	}

	dbCfg := database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		Timeout:         cfg.Database.Timeout,
	}

	// migrations run over database/sql; the repositories use the pgx pool
	sqlDB, err := database.NewDB(dbCfg)
	if err != nil {
		return nil, err
	}
	defer sqlDB.Close()
	if err := database.Migrate(ctx, sqlDB); err != nil {
		return nil, err
	}

	pool, err := database.NewPGXPool(dbCfg)
	if err != nil {
		return nil, err
	}
	logger.Info("Connected to PostgreSQL database")
	return &stores{
		stats: repository.NewStatsRepository(pool),
		users: repository.NewUserRepository(pool),
		close: pool.Close,
	}, nil
}

func newScheduler(cfg *config.Config, refresh jobs.RefreshFunc) (jobs.Scheduler, error) {
	if cfg.Scheduler.Backend == "redis" {
		logger.Infof("Using redis refresh queue at %s", cfg.Redis.Addr)
		return jobs.NewRedisScheduler(jobs.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Queue:    cfg.Scheduler.QueueName,
			Workers:  cfg.Scheduler.Workers,
		}, refresh)
	}
	return jobs.NewLocalScheduler(refresh, cfg.Scheduler.Workers, cfg.Scheduler.QueueSize), nil
}
