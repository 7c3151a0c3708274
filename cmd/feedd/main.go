// Command feedd runs the feed API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/glimmerapp/glimmer/api"
	"github.com/glimmerapp/glimmer/api/validator"
	"github.com/glimmerapp/glimmer/blob"
	"github.com/glimmerapp/glimmer/config"
	"github.com/glimmerapp/glimmer/metrics"
	"github.com/glimmerapp/glimmer/postgres"
	"github.com/glimmerapp/glimmer/redis"
)

func main() {
	configPath := flag.String("config", config.GetEnvString("GLIMMER_CONFIG", ""), "path to YAML config (env: GLIMMER_CONFIG)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("Server failed", "error", err.Error())
		os.Exit(1)
	}
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.Log.Level),
	}))
	slog.SetDefault(logger)

	if cfg.Postgres.DSN == "" {
		return errors.New("postgres DSN not configured (GLIMMER_POSTGRES_DSN)")
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("JWT secret not configured (GLIMMER_JWT_SECRET)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	cache, err := redis.Connect(ctx, cfg.Redis.Addr)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	blobs, err := blob.NewDisk(cfg.Blob.Dir, cfg.Blob.BaseURL)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}

	a := &api.API{
		Logger:    logger,
		DB:        db,
		Cache:     cache,
		Blob:      blobs,
		Val:       validator.New(),
		JWTSecret: []byte(cfg.Auth.JWTSecret),
		PageSize:  cfg.Server.PageSize,
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/media/", http.StripPrefix("/media/", http.FileServer(http.Dir(cfg.Blob.Dir))))
	mux.Handle("/", a)

	handler := cors.New(cors.Options{
		AllowedOrigins: cfg.Server.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler(mux)

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Listening", "addr", cfg.Server.ListenAddr)
		serverErr <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("listen: %w", err)
	case sig := <-shutdown:
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			srv.Close()
			return fmt.Errorf("shutdown: %w", err)
		}
		if err := <-serverErr; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}
	return nil
}
