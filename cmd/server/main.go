package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	httpapi "github.com/contest-hub/contest-hub/internal/api/http"
	"github.com/contest-hub/contest-hub/internal/application/availability"
	appcontest "github.com/contest-hub/contest-hub/internal/application/contest"
	"github.com/contest-hub/contest-hub/internal/application/merge"
	"github.com/contest-hub/contest-hub/internal/application/retry"
	"github.com/contest-hub/contest-hub/internal/application/scheduler"
	appsigning "github.com/contest-hub/contest-hub/internal/application/signing"
	"github.com/contest-hub/contest-hub/internal/clock"
	"github.com/contest-hub/contest-hub/internal/config"
	domainsigning "github.com/contest-hub/contest-hub/internal/domain/signing"
	"github.com/contest-hub/contest-hub/internal/infrastructure/leader"
	"github.com/contest-hub/contest-hub/internal/infrastructure/postgres"
)

func main() {
	_ = godotenv.Load()
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db error: %v", err)
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool, "internal/migrations"); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	// repositories
	contestRepo := postgres.NewContestRepository(pool)
	businessRepo := postgres.NewBusinessRepository(pool)
	hierarchyRepo := postgres.NewHierarchyRepository(pool)
	preconfiguredRepo := postgres.NewPreconfiguredDateRepository(pool)
	eventStore := postgres.NewEventStore(pool)

	clk := clock.System{}

	// signing
	generator, err := domainsigning.NewGenerator([]byte(cfg.SigningMasterKey), cfg.KeyValidity)
	if err != nil {
		log.Fatalf("signing key error: %v", err)
	}
	writer := retry.NewWriter(retry.Config{
		MaxAttempts: cfg.RetryMaxAttempts,
		MinDelay:    cfg.RetryMinDelay,
		MaxDelay:    cfg.RetryMaxDelay,
	}, logger)
	signingSvc := appsigning.NewService(appsigning.NewCache(), generator, eventStore, writer, clk, logger)
	if err := signingSvc.CatchUp(ctx); err != nil {
		log.Fatalf("signing cache catch-up error: %v", err)
	}
	signedStore := appsigning.NewSignedStore(eventStore, signingSvc, clk, logger)

	// services
	resolver := availability.NewResolver(contestRepo, preconfiguredRepo, hierarchyRepo, cfg.ProximityWindow, logger)
	merger := merge.NewOrchestrator(contestRepo, businessRepo, signedStore, signingSvc, logger)
	guard := appcontest.NewGuard(appcontest.AllowAll{}, contestRepo)
	contestSvc := appcontest.NewService(guard, contestRepo, businessRepo, resolver, merger, signingSvc,
		signedStore, clk, cfg.MinTestingPhaseLead, logger)

	// scheduler
	policy, err := scheduler.NewApprovalPolicy(cfg.ApprovalPolicy)
	if err != nil {
		log.Fatalf("approval policy error: %v", err)
	}
	var gate scheduler.LeaderGate = scheduler.AlwaysLeader{}
	if cfg.LeaderElection {
		raftGate, err := leader.NewGate(leader.Config{
			NodeID:    cfg.NodeID,
			RaftAddr:  cfg.RaftAddr,
			DataDir:   cfg.RaftDataDir,
			Bootstrap: cfg.RaftBootstrap,
		})
		if err != nil {
			log.Fatalf("leader election error: %v", err)
		}
		defer func() { _ = raftGate.Shutdown() }()
		gate = raftGate
	}
	sched := scheduler.New(contestSvc, signingSvc, policy, gate, cfg.SchedulerInterval, clk, logger)

	schedCtx, stopScheduler := context.WithCancel(ctx)
	defer stopScheduler()
	go sched.Run(schedCtx)

	// API server
	apiServer := httpapi.NewServer(contestSvc)

	httpServer := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      apiServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.ServerAddr).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	stopScheduler()
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
}
