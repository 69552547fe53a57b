package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gkstorejd-max/gkstore-admin/internal/config"
	"github.com/gkstorejd-max/gkstore-admin/internal/logging"
	"github.com/gkstorejd-max/gkstore-admin/internal/mock"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "Path to config file")
	addr := flag.String("addr", "", "Override listen address")
	interval := flag.Duration("orders", -1, "Override order generation interval (0 disables)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.Mock.Addr = *addr
	}
	if *interval >= 0 {
		cfg.Mock.OrderInterval = *interval
	}

	logger, closer, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closer.Close()

	srv, err := mock.New(cfg.Mock, logger)
	if err != nil {
		log.Fatalf("Failed to create mock backend: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv.Start(ctx)
	logger.Info("admin account", "email", cfg.Mock.AdminEmail, "orders_every", cfg.Mock.OrderInterval)

	if err := mock.ListenAndServe(ctx, cfg.Mock.Addr, srv.Handler(), logger); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
