package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/dgallion1/docexport/internal/api"
	"github.com/dgallion1/docexport/internal/config"
	"github.com/dgallion1/docexport/internal/convert"
	"github.com/dgallion1/docexport/internal/images"
	"github.com/dgallion1/docexport/internal/store"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to YAML config file")
	pflag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("loading configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	st, err := store.New(cfg.ArtifactDir)
	if err != nil {
		log.Error("opening artifact store", "dir", cfg.ArtifactDir, "error", err)
		os.Exit(1)
	}

	fetcher := images.NewHTTPFetcher(cfg.FetchTimeout, cfg.MaxImageBytes)
	validator := &images.HostValidator{
		Allowed: cfg.AllowedImageHosts,
		Denied:  cfg.DeniedImageHosts,
	}
	pipeline := images.NewPipeline(fetcher, validator, log)

	sup := convert.NewSupervisor(pipeline, st, log, cfg.GenerateTimeout)

	srv := api.NewServer(sup, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting docexport", "port", cfg.Port, "artifact_dir", cfg.ArtifactDir)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
