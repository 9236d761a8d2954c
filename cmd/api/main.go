//	@title			imgrelay API
//	@version		1.0
//	@description	Accepts an image upload, resizes it and stores it with a remote image provider.
//
//	@host		localhost:3000
//	@BasePath	/

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/imgrelay/service/internal/config"
	"github.com/imgrelay/service/internal/logging"
	"github.com/imgrelay/service/internal/metrics"
	appMiddleware "github.com/imgrelay/service/internal/middleware"
	"github.com/imgrelay/service/internal/resize"
	"github.com/imgrelay/service/internal/storage"
	"github.com/imgrelay/service/internal/tempdir"
	"github.com/imgrelay/service/internal/upload"

	_ "github.com/imgrelay/service/docs/swagger"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	ctx := context.Background()

	if err := cfg.Validate(); err != nil {
		fatal(ctx, log, "invalid configuration", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.MustNewMetrics(reg)

	initCtx, cancel := context.WithTimeout(ctx, cfg.StorageTimeout)
	store, err := storage.New(initCtx, cfg)
	cancel()
	if err != nil {
		fatal(ctx, log, "object storage init failed", err)
	}

	dir, err := tempdir.Open(cfg.UploadDir)
	if err != nil {
		fatal(ctx, log, "upload directory init failed", err)
	}

	// Wire dependencies: storage + resizer → pipeline → handler
	resizer := resize.NewResizer(resize.WithMaxPixels(cfg.MaxPixels))
	defaultPipeline := upload.NewPipeline(profile("default", cfg.Default), dir, resizer, store, log, m, cfg.StorageTimeout)
	compactPipeline := upload.NewPipeline(profile("compact", cfg.Compact), dir, resizer, store, log, m, cfg.StorageTimeout)
	defaultHandler := upload.NewHandler(defaultPipeline, cfg.MaxUploadBytes, log)
	compactHandler := upload.NewHandler(compactPipeline, cfg.MaxUploadBytes, log)

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(log))
	r.Use(appMiddleware.Metrics(m))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Method(http.MethodGet, "/metrics", m.Handler())

	// Swagger UI — available at http://localhost:3000/swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api", func(r chi.Router) {
		r.Post("/upload-image", defaultHandler.UploadImage)
		r.Post("/images", compactHandler.UploadImage)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.StorageTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info(ctx, "server listening",
			"addr", "http://localhost:"+cfg.Port,
			"env", cfg.AppEnv,
			"storage", store.Name(),
			"upload_dir", dir.Path(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(ctx, log, "server error", err)
		}
	}()

	<-quit
	log.Info(ctx, "shutting down gracefully")

	shutdownCtx, cancelShutdown := context.WithTimeout(ctx, 30*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		fatal(ctx, log, "forced shutdown", err)
	}

	log.Info(ctx, "server stopped")
}

func profile(name string, p config.Profile) upload.Profile {
	return upload.Profile{
		Name: name,
		Resize: resize.Options{
			Width:   p.Width,
			Height:  p.Height,
			Quality: p.Quality,
			Format:  p.Format,
		},
		Folder:      p.Folder,
		UseFilename: p.UseFilename,
	}
}

func fatal(ctx context.Context, log logging.Logger, msg string, err error) {
	log.Error(ctx, msg, "error", err)
	os.Exit(1)
}
