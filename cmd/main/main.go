package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/brendondev/central-empresa/internal/config"
	"github.com/brendondev/central-empresa/internal/healthcheck"
	"github.com/brendondev/central-empresa/internal/httpapi"
	"github.com/brendondev/central-empresa/internal/notify"
	"github.com/brendondev/central-empresa/internal/observer"
	"github.com/brendondev/central-empresa/internal/session"
	"github.com/brendondev/central-empresa/internal/storage"
	"github.com/brendondev/central-empresa/internal/vault"
	"github.com/brendondev/central-empresa/internal/wagateway"
	"github.com/brendondev/central-empresa/pkg/logger"
	"github.com/brendondev/central-empresa/pkg/utils"
)

func main() {
	// Set timezone to UTC
	time.Local = time.UTC

	// Load configuration
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	metricsEnabled := cfg.Metrics.Enabled
	observer.InitMetrics(metricsEnabled)

	logger.Log.Info("Starting Central Empresa session service",
		zap.String("environment", cfg.Environment),
		zap.String("nats_url", cfg.NATS.URL),
		zap.Int("api_port", cfg.Server.Port),
	)

	// Credential vault
	credVault, err := vault.Open(cfg.Vault.Path)
	if err != nil {
		logger.Log.Fatal("Failed to open credential vault", zap.Error(err))
	}

	// Session record store
	postgresRepo, err := storage.NewPostgresRepo(cfg.Database.PostgresDSN, cfg.Database.PostgresAutoMigrate, cfg.Tags.UniquePerSession)
	if err != nil {
		logger.Log.Fatal("Failed to initialize Postgres repository", zap.Error(err))
	}

	sessionRepo := storage.NewSessionRepoAdapter(postgresRepo)
	contactRepo := storage.NewContactRepoAdapter(postgresRepo)
	messageRepo := storage.NewMessageRepoAdapter(postgresRepo)
	tagRepo := storage.NewTagRepoAdapter(postgresRepo)
	automationRepo := storage.NewAutomationRepoAdapter(postgresRepo)

	// NATS client, notification stream and publisher pool
	natsClient, err := notify.NewClient(cfg.NATS.URL)
	if err != nil {
		logger.Log.Fatal("Failed to connect to NATS", zap.Error(err))
	}

	streamCtx, streamCancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = natsClient.SetupStream(streamCtx, &nats.StreamConfig{
		Name: cfg.NATS.Stream,
		Subjects: []string{
			cfg.NATS.StatusSubject + ".>",
			cfg.NATS.MessageSubject + ".>",
		},
		MaxAge:  time.Duration(cfg.NATS.MaxAgeDays) * 24 * time.Hour,
		Storage: nats.FileStorage,
	})
	streamCancel()
	if err != nil {
		logger.Log.Fatal("Failed to set up notification stream", zap.Error(err))
	}

	publisher, err := notify.NewPublisher(cfg.Notifier, natsClient, cfg.NATS.StatusSubject, cfg.NATS.MessageSubject, logger.Log)
	if err != nil {
		logger.Log.Fatal("Failed to initialize notification publisher", zap.Error(err))
	}

	// Protocol bridge shares the NATS connection with the publisher
	bridge := wagateway.NewBridge(natsClient.NatsConn(), wagateway.BridgeConfig{
		SubjectPrefix:  cfg.Gateway.SubjectPrefix,
		RequestTimeout: cfg.Gateway.RequestTimeout,
		EventBuffer:    cfg.Session.EventBuffer,
	}, logger.Log)

	// Session lifecycle components
	registry := session.NewRegistry()
	normalizer := session.NewNormalizer(contactRepo, messageRepo, publisher, logger.Log)
	manager := session.NewManager(cfg.Session, registry, bridge, credVault, sessionRepo, normalizer, publisher, logger.Log)
	dispatcher := session.NewDispatcher(registry, bridge, sessionRepo, contactRepo, messageRepo, logger.Log)

	// Reset statuses left over from a previous run before accepting commands
	reconcileCtx, reconcileCancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = manager.ReconcileStartup(reconcileCtx)
	reconcileCancel()
	if err != nil {
		logger.Log.Fatal("Failed to reconcile persisted session statuses", zap.Error(err))
	}

	// Command API
	apiServer := httpapi.NewServer(cfg.Server.Port, manager, dispatcher, contactRepo, messageRepo, tagRepo, automationRepo, logger.Log)
	apiServer.Start()

	// Health check server with readiness probes
	healthServer := healthcheck.NewServer(cfg.Metrics.Port, logger.Log,
		func() (string, bool) { return "nats", natsClient.NatsConn().IsConnected() },
	)
	if metricsEnabled {
		healthServer.RegisterMetricsHandler(promhttp.Handler())
		logger.Log.Info("Metrics endpoint enabled", zap.String("path", "/metrics"), zap.Int("port", cfg.Metrics.Port))
	} else {
		logger.Log.Info("Metrics endpoint disabled", zap.String("environment", cfg.Environment))
	}
	healthServer.Start()

	logger.Log.Info("Service ready",
		zap.String("api", fmt.Sprintf("http://localhost:%d/sessions", cfg.Server.Port)),
		zap.String("health", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port)),
	)

	// Wait for termination signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Log.Info("Received termination signal", zap.String("signal", sig.String()))

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Log.Info("Starting graceful shutdown", zap.Duration("timeout", 30*time.Second))

	var wg sync.WaitGroup
	wg.Add(5)

	// Stop accepting commands first
	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Stopping command API server")
		start := time.Now()
		if err := apiServer.Stop(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Error stopping command API server", zap.Error(err))
		} else {
			logger.Log.Info("[shutdown] Command API server stopped",
				zap.Duration("duration", time.Since(start)))
		}
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while stopping command API server",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done()
	})

	// Stop session runners; their final status writes need the repos alive
	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Stopping session manager")
		start := time.Now()
		if err := manager.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Error stopping session manager", zap.Error(err))
		} else {
			logger.Log.Info("[shutdown] Session manager stopped",
				zap.Duration("duration", time.Since(start)))
		}
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while stopping session manager",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done()
	})

	// Drain the notification pool
	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Stopping notification publisher")
		start := time.Now()
		publisher.Stop()
		logger.Log.Info("[shutdown] Notification publisher stopped",
			zap.Duration("duration", time.Since(start)))
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while stopping notification publisher",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done()
	})

	// Shutdown health check server (includes metrics if enabled)
	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Stopping health check server")
		start := time.Now()
		if err := healthServer.Stop(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Error stopping health check server", zap.Error(err))
		} else {
			logger.Log.Info("[shutdown] Health check server stopped",
				zap.Duration("duration", time.Since(start)))
		}
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while stopping health check server",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done()
	})

	// Close storage and NATS connections
	utils.SafeGo(func() {
		defer wg.Done()

		logger.Log.Info("[shutdown] Closing PostgreSQL connection")
		pgStart := time.Now()
		if err := postgresRepo.Close(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Failed to close PostgreSQL connection", zap.Error(err))
		} else {
			logger.Log.Info("[shutdown] PostgreSQL connection closed",
				zap.Duration("duration", time.Since(pgStart)))
		}

		logger.Log.Info("[shutdown] Closing credential vault")
		vaultStart := time.Now()
		if err := credVault.Close(); err != nil {
			logger.Log.Error("[shutdown] Failed to close credential vault", zap.Error(err))
		} else {
			logger.Log.Info("[shutdown] Credential vault closed",
				zap.Duration("duration", time.Since(vaultStart)))
		}

		logger.Log.Info("[shutdown] Closing NATS connection")
		natsStart := time.Now()
		natsClient.Close()
		logger.Log.Info("[shutdown] NATS connection closed",
			zap.Duration("duration", time.Since(natsStart)))
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while closing connections",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done()
	})

	// Wait with a timeout for all components to shut down
	waitCh := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Log.Info("[shutdown] All components stopped gracefully")
	case <-shutdownCtx.Done():
		logger.Log.Warn("[shutdown] Graceful shutdown timed out, forcing exit")
	}

	logger.Log.Info("Central Empresa session service shutdown complete")
}
