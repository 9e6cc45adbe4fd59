package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/spf13/cobra"

	"github.com/weatherapp/backend/internal/config"
	"github.com/weatherapp/backend/internal/domain"
	"github.com/weatherapp/backend/internal/repository"
	"github.com/weatherapp/backend/internal/repository/memory"
	"github.com/weatherapp/backend/internal/service"
	"github.com/weatherapp/backend/internal/widget"
)

type rootOptions struct {
	configFile string
	imperial   bool
	lat        float64
	lon        float64
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "weather [city]",
		Short: "Show the current weather for a city or a position",
		Example: `  weather London
  weather "New York" --imperial
  weather --lat 48.85 --lon 2.35
  weather recent`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(cmd, opts, args)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "Path to config file")
	cmd.Flags().BoolVar(&opts.imperial, "imperial", false, "Use imperial units")
	cmd.Flags().Float64Var(&opts.lat, "lat", 0, "Latitude for a position lookup")
	cmd.Flags().Float64Var(&opts.lon, "lon", 0, "Longitude for a position lookup")
	cmd.MarkFlagsRequiredTogether("lat", "lon")

	cmd.AddCommand(newRecentCommand(opts), newSuggestCommand(opts))
	return cmd
}

func runLookup(cmd *cobra.Command, opts *rootOptions, args []string) error {
	cfg, err := loadConfig(opts.configFile, widget.ModeAutoFetch)
	if err != nil {
		return fail(err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout+5*time.Second)
	defer cancel()

	store := openStore(ctx, cfg)
	defer store.Close()

	wopts := cfg.WidgetOptions()
	if opts.imperial {
		wopts.Unit = domain.UnitImperial
	}
	byPosition := cmd.Flags().Changed("lat")
	if byPosition {
		wopts.Locator = widget.FixedLocator{Coordinates: domain.Coordinates{Lat: opts.lat, Lon: opts.lon}}
	}

	weatherSvc := service.NewWeatherService(cfg.OpenWeatherAPIKey, cfg.OpenWeatherEndpoint, cfg.RequestTimeout)
	ctrl := widget.New(weatherSvc, service.NewRecentSearchStore(store, cfg.StorageNamespace), wopts)
	defer ctrl.Close()

	var done <-chan struct{}
	if !byPosition && len(args) == 0 {
		// Most recent search, else the default city
		done = ctrl.Start(ctx)
	} else {
		if _, err := ctrl.LoadRecent(ctx); err != nil {
			log.Warnw("failed to load recent searches", "error", err)
		}
		if byPosition {
			done, err = ctrl.UseCurrentLocation()
			if err != nil {
				return fail(err)
			}
		} else {
			done = ctrl.Search(strings.Join(args, " "))
		}
	}

	select {
	case <-done:
	case <-ctx.Done():
		return fail(ctx.Err())
	}

	view := ctrl.View()
	if view.Error != "" {
		fmt.Fprintln(os.Stderr, view.Error)
		return errors.New(view.Error)
	}
	if view.Weather == nil {
		return fail(errors.New("no weather data"))
	}
	displaySnapshot(cmd.OutOrStdout(), *view.Weather)
	return nil
}

func newRecentCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recent",
		Short: "List recent searches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Only storage settings are needed here, so the result is not validated.
			cfg, err := config.Load(opts.configFile)
			if err != nil {
				return fail(err)
			}
			log.SetLevel(cfg.FiberLogLevel())

			store := openStore(cmd.Context(), cfg)
			defer store.Close()

			recent := service.NewRecentSearchStore(store, cfg.StorageNamespace)
			list, err := recent.Load(cmd.Context())
			if err != nil {
				log.Warnw("failed to load recent searches", "error", err)
			}
			displayRecent(cmd.OutOrStdout(), list)
			return nil
		},
	}
}

func newSuggestCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <prefix>",
		Short: "Suggest city names for a prefix",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts.configFile, widget.ModeSuggest)
			if err != nil {
				return fail(err)
			}

			prefix := strings.Join(args, " ")
			if len([]rune(prefix)) < service.MinPrefixLength {
				return fail(fmt.Errorf("prefix must be at least %d characters", service.MinPrefixLength))
			}

			svc := service.NewSuggestionService(cfg.GeoDBAPIKey, cfg.GeoDBEndpoint, cfg.GeoDBHost, cfg.RequestTimeout)
			labels, err := svc.Suggest(cmd.Context(), prefix)
			if err != nil {
				return fail(err)
			}
			displaySuggestions(cmd.OutOrStdout(), labels)
			return nil
		},
	}
}

// loadConfig loads and validates settings for the given input mode
func loadConfig(configFile string, mode widget.InputMode) (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	cfg.InputMode = string(mode)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.SetLevel(cfg.FiberLogLevel())
	return cfg, nil
}

func openStore(ctx context.Context, cfg *config.Config) domain.KeyValueStore {
	store, err := repository.Open(ctx, cfg.StorageOptions())
	if err != nil {
		log.Warnw("Could not open storage, recent searches will not persist", "driver", cfg.StorageDriver, "error", err)
		return memory.NewRepository()
	}
	return store
}

func fail(err error) error {
	fmt.Fprintf(os.Stderr, "Error: %s\n", errorMessage(err))
	return err
}

// errorMessage prefers the user-facing text and falls back to the error
// itself when there is no specific one
func errorMessage(err error) string {
	if msg := domain.UserMessage(err); msg != domain.MsgUnknown {
		return msg
	}
	return err.Error()
}
