package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/your-org/kinfolk/internal/api"
	"github.com/your-org/kinfolk/internal/config"
	"github.com/your-org/kinfolk/internal/observability"
	"github.com/your-org/kinfolk/internal/queue"
	"github.com/your-org/kinfolk/internal/storage"
	"github.com/your-org/kinfolk/internal/upload"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting kinfolk API service", "port", cfg.Server.Port, "storage", cfg.Storage.Driver)

	// Person store
	store, closeStore, err := openStore(cfg)
	if err != nil {
		slog.Error("open person store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// Connect to MinIO
	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}
	if err := minioStore.EnsureBucket(context.Background()); err != nil {
		slog.Warn("ensure minio bucket", "error", err)
	}

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	stager, err := upload.NewStager(cfg.Server.UploadDir, "MEDIA")
	if err != nil {
		slog.Error("prepare upload dir", "error", err)
		os.Exit(1)
	}

	router := api.NewRouter(api.RouterConfig{
		CORSOrigins:    cfg.Server.CORSOrigins,
		MaxUploadBytes: cfg.Server.MaxUploadBytes(),
		MaxFiles:       cfg.Server.MaxFiles,
		MaxAttempts:    cfg.Catalog.MaxAttempts,
		PublicBaseURL:  cfg.MinIO.PublicBaseURL,
		Store:          store,
		Objects:        minioStore,
		Events:         producer,
		Stager:         stager,
	})

	// Start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("API server stopped")
}

// openStore picks the person store named by storage.driver.
func openStore(cfg *config.Config) (storage.PersonStore, func(), error) {
	if cfg.Storage.Driver == config.StorageDriverMemory {
		slog.Warn("using in-memory person store, data is lost on restart")
		return storage.NewMemoryStore(), func() {}, nil
	}

	db, err := storage.NewMongoStore(cfg.Mongo)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Mongo.Timeout)
	defer cancel()
	if err := db.EnsureIndexes(ctx); err != nil {
		slog.Warn("ensure mongo indexes", "error", err)
	}

	return db, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Close(ctx); err != nil {
			slog.Error("close mongo", "error", err)
		}
	}, nil
}
