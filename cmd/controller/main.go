// Package main is the entry point for the mesplane controller.
// The controller serves the HTTP API and runs the online worker agent
// in-process, since both share the live machine pool.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mesplane/internal/config"
	"mesplane/internal/controller"
	"mesplane/internal/controller/handlers"
	"mesplane/internal/logger"
	"mesplane/internal/machine"
	"mesplane/internal/notifier"
	"mesplane/internal/observability"
	"mesplane/internal/online"
	"mesplane/internal/plant"
	"mesplane/internal/store"
	"mesplane/internal/store/memory"
	"mesplane/internal/store/postgres"
	"mesplane/internal/worker"
	"mesplane/internal/worker/runtime"

	"go.opentelemetry.io/otel"
)

func main() {
	// Parse flags
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	configPath := flag.String("config", "", "Path to config file (default: mesplane.yaml in current directory)")
	flag.Parse()

	// Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	slogger := logger.NewWithLevel(os.Stdout, cfg.LogLevel)

	// Plant
	p, err := plant.Load(cfg.PlantFile)
	if err != nil {
		log.Fatalf("Failed to load plant: %v", err)
	}
	pool, err := p.NewPool()
	if err != nil {
		log.Fatalf("Failed to build machine pool: %v", err)
	}

	ctx := context.Background()

	// Request ledger
	var ledger store.RequestStore
	if cfg.DatabaseURL == "" {
		log.Printf("DATABASE_URL not set, using in-memory request ledger (development only, keeps the last %d finished requests)", memory.DefaultMaxFinished)
		ledger = memory.New()
	} else {
		pg, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to DB: %v", err)
		}
		defer pg.Close()

		if *migrateFlag {
			log.Println("Running database migrations...")
			version, err := postgres.Migrate(pg.DB())
			if err != nil {
				log.Fatalf("Migration failed: %v", err)
			}
			log.Printf("Migrations completed successfully (schema version %d)", version)
		}
		ledger = pg
	}

	// Tracing
	shutdownTracer, err := observability.InitTracer(ctx, "mesplane-controller", cfg.OTELEndpoint)
	if err != nil {
		log.Fatalf("Failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Printf("Failed to shutdown tracer: %v", err)
		}
	}()

	// Metrics
	metricsHandler, shutdownMetrics, err := observability.InitMetrics("mesplane-controller")
	if err != nil {
		log.Fatalf("Failed to init metrics: %v", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			log.Printf("Failed to shutdown metrics: %v", err)
		}
	}()

	meter := otel.Meter("mesplane-controller")
	instruments, err := observability.NewInstruments(meter)
	if err != nil {
		log.Fatalf("Failed to create instruments: %v", err)
	}

	// Select runtime based on configuration
	var rt runtime.Runtime
	switch cfg.Runtime {
	case config.RuntimeExec:
		rt = runtime.NewExecRuntime(cfg.StepCommand)
		log.Printf("Using exec runtime (command: %v)", cfg.StepCommand)
	default:
		rt = runtime.NewSimulatedRuntime(cfg.TimeScale, cfg.FailureRate, nil)
		log.Printf("Using simulated runtime (failure rate: %.2f)", cfg.FailureRate)
	}

	agent := worker.New(p, online.New(pool), rt, ledger,
		notifier.New(cfg.CallbackURL, cfg.CallbackTimeout),
		worker.AgentConfig{
			Concurrency: cfg.WorkerConcurrency,
			Epoch:       time.Now().UTC(),
			Logger:      slogger,
			Metrics:     instruments,
		},
	)

	// Observable gauges are read only when scraped.
	err = observability.RegisterGauges(meter, agent.InFlight, func() map[string]int64 {
		return busyUntil(pool)
	})
	if err != nil {
		log.Printf("Failed to register gauges: %v", err)
	}

	// Start Server
	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	srv := controller.New(addr, handlers.Deps{
		Agent:   agent,
		Ledger:  ledger,
		Plant:   p,
		Pool:    pool,
		Metrics: instruments,
		Logger:  slogger,
	}, controller.Options{
		APIToken:       cfg.APIToken,
		RateLimit:      cfg.RateLimit,
		RateLimitBurst: cfg.RateLimitBurst,
		TrustForwarded: cfg.TrustForwarded,
		Metrics:        metricsHandler,
	})

	go func() {
		log.Printf("MES Plane Controller starting on %s", addr)
		if err := srv.Run(ctx); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down controller...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	if err := agent.Shutdown(shutdownCtx); err != nil {
		log.Printf("Worker agent did not drain: %v", err)
	}
	log.Println("Controller exited properly")
}

func busyUntil(pool *machine.Pool) map[string]int64 {
	states := pool.Snapshot()
	out := make(map[string]int64, len(states))
	for _, s := range states {
		out[s.Name] = int64(s.BusyUntil)
	}
	return out
}
