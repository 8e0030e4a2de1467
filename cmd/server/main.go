package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"trends-go/internal/config"
	"trends-go/internal/handler"
	"trends-go/internal/service"
	"trends-go/pkg/logger"
)

type Application struct {
	configPath string
	debug      bool
}

func main() {
	app := &Application{}

	flag.StringVar(&app.configPath, "config", os.Getenv("TRENDS_CONFIG"), "Configuration file path (env: TRENDS_CONFIG)")
	flag.BoolVar(&app.debug, "debug", false, "Enable debug logging")
	flag.Parse()

	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

func (app *Application) Run() error {
	cfg, err := config.NewManager().Load(app.configPath)
	if err != nil {
		return err
	}
	if app.debug {
		cfg.Logger.Level = "debug"
	}

	log := logger.New(cfg.Logger)
	logger.SetLogger(log)

	client, err := cfg.NewClient(log)
	if err != nil {
		return err
	}

	server := fiber.New(fiber.Config{
		AppName:               "trends-go",
		DisableStartupMessage: true,
		WriteTimeout:          cfg.Server.WriteTimeout(),
	})
	handler.NewController(
		service.NewSerialTrendsService(client, log),
		handler.ControllerConfig{
			Defaults:     cfg.Fetch.Options(),
			FetchTimeout: cfg.Server.FetchTimeout,
		},
		log,
	).Register(server)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(map[string]interface{}{
			"addr":      addr,
			"backend":   cfg.Transport.Backend,
			"identity":  cfg.Fetch.StartIdentity,
			"endpoints": cfg.Endpoints.Explore,
		}).Info("Starting trends-go server")
		errCh <- server.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutdown signal received, shutting down gracefully")
	if err := server.ShutdownWithTimeout(5 * time.Second); err != nil {
		logger.WithError(err).WithField("timeout", "5s").Error("Graceful shutdown failed")
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}
