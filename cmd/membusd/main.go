package main

import (
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/membus/membus/internal/bus"
	"github.com/membus/membus/internal/config"
	"github.com/membus/membus/internal/logging"
	"github.com/membus/membus/internal/monitoring"
	"github.com/membus/membus/internal/server"
	"github.com/membus/membus/internal/transport"
)

func main() {
	port := flag.String("port", "", "Debug API port (overrides PORT)")
	flag.Parse()

	cfg := config.LoadOrDefault()
	if *port != "" {
		cfg.Server.Port = *port
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stdout"},
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	promReg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(promReg)

	engine := transport.NewEngine(logger, metrics, transport.Config{
		MaxPinnedPages: cfg.Bus.MaxPinnedPages,
	})
	registry := bus.NewRegistry(logger, metrics, engine, cfg.Bus)

	srv := server.New(logger, registry, metrics, promReg, cfg)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		addr := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
		if err := srv.Run(addr); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		logger.Info("shutting down")
		if err := srv.Close(); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	case err := <-errChan:
		logger.Fatal("server error", zap.Error(err))
	}
}
