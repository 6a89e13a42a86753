package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"skatespot-service/internal/config"
	"skatespot-service/internal/db"
	"skatespot-service/internal/events"
	httphandler "skatespot-service/internal/http"
	"skatespot-service/internal/logger"
	"skatespot-service/internal/media"
	"skatespot-service/internal/metrics"
	"skatespot-service/internal/repository"
	"skatespot-service/internal/service"
	"skatespot-service/internal/vision"
)

const shutdownTimeout = 15 * time.Second

func serveCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP evaluation service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := logger.New(cfg.Log)

	gdb, err := db.Open(cfg.Database, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to open database")
		return err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	eval, err := buildEvaluator(cfg.Evaluation)
	if err != nil {
		return err
	}

	visionClient, err := vision.NewClient(ctx, cfg.Vision)
	if err != nil {
		log.Error().Err(err).Msg("failed to create vision client")
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(registry)
	if err != nil {
		return err
	}

	publisher := events.NewPublisher(cfg.Kafka, log)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close rating event publisher")
		}
	}()

	spotService := service.NewEvaluationService(
		repository.NewRatingRepository(gdb),
		media.NewFetcher(cfg.Media, nil),
		visionClient,
		eval,
		publisher,
		service.Options{
			ConfidenceThreshold: cfg.Evaluation.ConfidenceThreshold,
			ManagedURLMarker:    cfg.Media.ManagedURLMarker,
			Metrics:             m,
		},
		log,
	)

	router := httphandler.NewRouter(*cfg, httphandler.NewHandler(spotService, m.Handler(), log), log)
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("skatespot service listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server failed")
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
