package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Brownie44l1/mood-api/internal/config"
	"github.com/Brownie44l1/mood-api/internal/handlers"
	"github.com/Brownie44l1/mood-api/internal/model"
	"github.com/Brownie44l1/mood-api/internal/preprocess"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	initLogger(cfg)

	log.Infof("Loading model from: %s", cfg.Model.Path)
	modelHandle := model.Load(cfg.Model)
	defer modelHandle.Close()

	if !modelHandle.Available() {
		log.Warn("Serving without a model; POST /predict will return 500")
	}

	filter, err := preprocess.ParseFilter(cfg.Image.Filter)
	if err != nil {
		log.Fatalf("resize filter: %v", err)
	}

	pre := preprocess.New(cfg.Image.Size, filter)
	pre.MaxPixels = cfg.Image.MaxPixels

	handler := handlers.NewHandler(modelHandle, pre, handlers.Options{
		Activation:     cfg.Model.Activation,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		StaticDir:      cfg.Server.StaticDir,
	})

	srv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: handler.Routes(),
	}

	go func() {
		log.Infof("Server starting on %s", srv.Addr)
		log.Info("Endpoints:")
		log.Info("  GET  /        - Landing page")
		log.Info("  GET  /healthz - Health check")
		log.Info("  GET  /readyz  - Model readiness")
		log.Info("  POST /predict - Score an uploaded image (form field \"file\")")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("server forced shutdown: %v", err)
	}

	log.Info("server stopped")
}

func initLogger(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Logger.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
