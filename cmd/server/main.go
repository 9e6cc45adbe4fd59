package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"

	"github.com/weatherapp/backend/internal/config"
	"github.com/weatherapp/backend/internal/delivery/http"
	"github.com/weatherapp/backend/internal/domain"
	"github.com/weatherapp/backend/internal/repository"
	"github.com/weatherapp/backend/internal/repository/memory"
	"github.com/weatherapp/backend/internal/service"
	"github.com/weatherapp/backend/internal/widget"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:           "server",
		Short:         "Serve the weather widget API",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file (yaml, json or toml)")
	return cmd
}

func loadConfig(configFile string) (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		var cfgErr *domain.ConfigurationError
		if errors.As(err, &cfgErr) {
			return nil, errors.New(domain.UserMessage(err))
		}
		return nil, err
	}
	return cfg, nil
}

func run(cfg *config.Config) error {
	log.SetLevel(cfg.FiberLogLevel())

	// Storage
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	driver := cfg.StorageDriver
	store, err := repository.Open(ctx, cfg.StorageOptions())
	if err != nil {
		log.Warnw("Could not open storage, recent searches will not persist", "driver", driver, "error", err)
		store = memory.NewRepository()
		driver = repository.DriverMemory
	}
	defer store.Close()

	// Dependency Injection: Services
	weatherSvc := service.NewWeatherService(cfg.OpenWeatherAPIKey, cfg.OpenWeatherEndpoint, cfg.RequestTimeout)
	recentStore := service.NewRecentSearchStore(store, cfg.StorageNamespace)
	log.Infow("Storage ready", "driver", driver, "key", recentStore.Key())

	opts := cfg.WidgetOptions()
	if opts.Mode == widget.ModeSuggest {
		opts.Suggester = service.NewSuggestionService(cfg.GeoDBAPIKey, cfg.GeoDBEndpoint, cfg.GeoDBHost, cfg.RequestTimeout)
	}
	ctrl := widget.New(weatherSvc, recentStore, opts)
	ctrl.Start(ctx)

	// Fiber App
	app := fiber.New(fiber.Config{
		AppName:               "Weather Widget API v1.0",
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          cfg.RequestTimeout + 10*time.Second,
		ErrorHandler:          http.ErrorHandler,
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		DisableStartupMessage: cfg.IsProduction(),
		EnablePrintRoutes:     !cfg.IsProduction(),
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Routes
	handler := http.NewHandler(ctrl, weatherSvc, store, cfg.RequestTimeout+time.Second)
	http.SetupRoutes(app, handler)

	// Graceful shutdown
	listenErr := make(chan error, 1)
	go func() {
		log.Infow("Server starting", "port", cfg.Port, "env", cfg.Env, "mode", opts.Mode)
		listenErr <- app.Listen(":" + cfg.Port)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-listenErr:
		ctrl.Close()
		return fmt.Errorf("server: failed to listen: %w", err)
	case <-quit:
	}

	log.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Errorw("Server forced to shutdown", "error", err)
	}
	ctrl.Close()
	log.Info("Server exited gracefully")
	return nil
}
