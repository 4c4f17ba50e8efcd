package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"speciesdesk/internal/adapters/species"
	"speciesdesk/internal/blob"
	"speciesdesk/internal/config"
	"speciesdesk/internal/core"
	"speciesdesk/internal/logging"
	"speciesdesk/internal/notify"
	"speciesdesk/pkg/domain"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(v *viper.Viper, configFile *string) *cobra.Command {
	var seedFile string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the species pages and API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v, *configFile)
			if err != nil {
				return err
			}
			logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Development: cfg.Log.Development})
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()
			if seedFile != "" {
				if err := a.seed(ctx, seedFile); err != nil {
					return err
				}
			}
			return a.run(ctx)
		},
	}
	cmd.Flags().StringVar(&seedFile, "seed", "", "JSON file of species records to insert before serving")
	return cmd
}

// app is the wired process: store, service, blob store and HTTP host.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	service   *core.Service
	blobs     blob.Store
	handler   *species.Handler
	server    *http.Server
	traceFile *os.File
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	logger = logging.OrNop(logger)
	store, err := core.OpenPersistentStore(ctx, core.StorageOptions{
		Driver:      core.StorageDriver(cfg.Storage.Driver),
		SQLitePath:  cfg.Storage.SQLitePath,
		PostgresDSN: cfg.Storage.PostgresDSN,
	})
	if err != nil {
		return nil, fmt.Errorf("open species store: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := core.NewPrometheusMetricsRecorder(reg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	opts := []core.ServiceOption{
		core.WithLogger(logger.Named("service")),
		core.WithMetricsRecorder(metrics),
	}
	var traceFile *os.File
	if cfg.TraceFile != "" {
		traceFile, err = os.OpenFile(cfg.TraceFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("open trace file: %w", err)
		}
		opts = append(opts, core.WithTracer(core.NewJSONTracer(traceFile)))
	}
	svc := core.NewService(store, opts...)
	closeAll := func() {
		_ = svc.Close()
		if traceFile != nil {
			_ = traceFile.Close()
		}
	}

	blobs, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("open blob store: %w", err)
	}

	h, err := species.NewHandler(species.Options{
		Backend:    svc,
		Blobs:      blobs,
		Hub:        notify.NewHub(notify.WithHubLogger(logger)),
		Logger:     logger,
		Gatherer:   reg,
		PublicURL:  cfg.HTTP.PublicURL,
		SessionTTL: cfg.SessionTTL,
	})
	if err != nil {
		closeAll()
		return nil, err
	}
	return &app{
		cfg:     cfg,
		logger:  logger,
		service: svc,
		blobs:   blobs,
		handler: h,
		server: &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           h.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		},
		traceFile: traceFile,
	}, nil
}

func (a *app) seed(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed %s: %w", path, err)
	}
	var records []domain.Species
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("decode seed %s: %w", path, err)
	}
	for _, r := range records {
		created, err := a.service.Insert(ctx, r)
		if err != nil {
			return fmt.Errorf("seed %s: %w", r.ScientificName, err)
		}
		a.logger.Debug("seeded species", zap.String("species_id", created.ID))
	}
	a.logger.Info("seed loaded", zap.Int("count", len(records)), zap.String("file", path))
	return nil
}

func (a *app) run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening",
			zap.String("addr", a.cfg.HTTP.Addr),
			zap.String("storage", a.cfg.Storage.Driver),
			zap.String("blob", string(a.blobs.Driver())),
		)
		errCh <- a.server.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	a.logger.Info("shutting down")
	a.handler.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (a *app) Close() {
	if err := a.service.Close(); err != nil {
		a.logger.Warn("close species store", zap.Error(err))
	}
	if a.traceFile != nil {
		if err := a.traceFile.Close(); err != nil {
			a.logger.Warn("close trace file", zap.Error(err))
		}
	}
}
