package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/aflo-dev/aflo/internal/config"
	"github.com/aflo-dev/aflo/internal/container"
	"github.com/aflo-dev/aflo/internal/export"
	httpapi "github.com/aflo-dev/aflo/internal/interfaces/http"
	"github.com/aflo-dev/aflo/pkg/utils"
)

const version = "1.0.0"

func main() {
	configPath := pflag.String("config", "configs/config.yaml", "path to the configuration file")
	envFile := pflag.String("env-file", ".env", "dotenv file loaded before the configuration")
	roleName := pflag.String("role", string(container.RoleAll), "process role: api, worker or all")
	pflag.Parse()

	if err := run(*configPath, *envFile, *roleName); err != nil {
		fmt.Fprintf(os.Stderr, "aflo: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, envFile, roleName string) error {
	role, err := container.ParseRole(roleName)
	if err != nil {
		return err
	}

	// Load configuration
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
		Service:    "aflo",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("Starting Aflo",
		zap.String("version", version),
		zap.String("role", string(role)),
		zap.String("queue_mode", cfg.Queue.Mode))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.NewContainer(cfg, role, logger)
	if err != nil {
		return err
	}
	if err := c.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("Shutdown finished with errors", zap.Error(err))
		}
	}()

	if role == container.RoleWorker {
		<-ctx.Done()
		logger.Info("Shutting down worker")
		return nil
	}

	services := c.Services()
	server := httpapi.NewServer(
		httpapi.ServerConfig{
			Host:         cfg.Server.Host,
			Port:         cfg.Server.Port,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		httpapi.Services{
			Tickets:         services.Tickets,
			Definitions:     services.Definitions,
			Catalogs:        services.Catalogs,
			Goods:           services.Goods,
			CatalogContents: services.CatalogContents,
			CatalogScopes:   services.CatalogScopes,
			Prices:          services.Prices,
			Contracts:       services.Contracts,
			Exporter:        export.NewTicketExporter(logger.Named("export")),
		},
		httpapi.AuthConfig{
			Secret:    cfg.Auth.JWTSecret,
			Issuer:    cfg.Auth.Issuer,
			AdminRole: cfg.Auth.AdminRole,
		},
		c.Metrics(),
		c.Health,
		utils.NewSugaredAdapter(logger, "http"),
	)

	// Start blocks until the signal context is cancelled
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	logger.Info("Server exited successfully")
	return nil
}
