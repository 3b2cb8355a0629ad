package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/siegeai/jsonstruct/config"
	"github.com/siegeai/jsonstruct/server"
	"github.com/siegeai/jsonstruct/sink"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("could not load config", "err", err)
		os.Exit(1)
	}

	addr := flag.String("addr", cfg.Addr, "address to listen on")
	store := flag.String("store", "", "directory to keep rendered artifacts in; JSONSTRUCT_S3_* selects a bucket instead")
	flag.Parse()

	if err := setupLogging(cfg.LogLevel); err != nil {
		slog.Error("could not init logging", "err", err)
		os.Exit(1)
	}

	opts := []server.Option{server.WithLogger(slog.Default())}
	switch {
	case cfg.S3Enabled():
		s3, err := sink.NewS3Store(cfg.S3)
		if err != nil {
			slog.Error("could not init s3 store", "err", err)
			os.Exit(1)
		}
		opts = append(opts, server.WithStore(s3))
	case *store != "":
		opts = append(opts, server.WithStore(sink.DirStore{Root: *store}))
	}

	s, err := server.New(cfg.CacheSize, opts...)
	if err != nil {
		slog.Error("could not init server", "err", err)
		os.Exit(1)
	}

	srv := &http.Server{Addr: *addr, Handler: s, ReadHeaderTimeout: 10 * time.Second}

	term := make(chan os.Signal, 1)
	signal.Notify(term, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("listening", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server stopped", "err", err)
			os.Exit(1)
		}
	}()

	<-term
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("could not shut down cleanly", "err", err)
	}
}

func setupLogging(level string) error {
	var logLevel slog.Level
	err := logLevel.UnmarshalText([]byte(level))
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(h))
	return err
}
