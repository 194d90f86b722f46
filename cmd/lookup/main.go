package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/evyataryagoni/geoflipper/internal/app"
	"github.com/evyataryagoni/geoflipper/internal/config"
	"github.com/evyataryagoni/geoflipper/internal/logger"
	"github.com/evyataryagoni/geoflipper/internal/market"
	"github.com/evyataryagoni/geoflipper/internal/models"
	"github.com/evyataryagoni/geoflipper/internal/search"
	"github.com/evyataryagoni/geoflipper/internal/service"
)

var (
	noPopulation bool
	jsonOutput   bool
)

var rootCmd = &cobra.Command{
	Use:   "lookup <address|lat,lng>",
	Short: "Resolve a location and rate its market",
	Long:  "Runs one search against the configured geocoder and population sources and prints the location, population and market tier.",
	Args:  cobra.MinimumNArgs(1),

	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "lookup: load config")
		}

		query := strings.Join(args, " ")
		return runLookup(ctx, cmd.OutOrStdout(), cfg, query)
	},
}

func init() {
	rootCmd.Flags().BoolVar(&noPopulation, "no-population", false, "skip the population lookup")
	rootCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the result as JSON")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runLookup performs a single search and writes the result to out.
func runLookup(ctx context.Context, out io.Writer, cfg *config.Config, query string) error {
	log := logger.NewNop()

	var pop search.PopulationResolver
	if !noPopulation {
		pop = app.Population(cfg, log, nil)
	}
	factory := app.SearchFactory(app.Geocoder(cfg, log, nil), pop, log, nil)
	searches := service.NewSearchService(search.NewRegistry(factory, 0, nil), nil, log)

	resp, err := searches.Search(ctx, "lookup", query)
	if err != nil {
		return eris.Wrap(err, "lookup: search")
	}

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			return eris.Wrap(err, "lookup: encode result")
		}
	}

	if resp.Error != nil {
		return eris.Errorf("lookup: %s", resp.Error.Message)
	}
	if !jsonOutput {
		printResult(out, resp)
	}
	return nil
}

func printResult(out io.Writer, resp models.SearchResponse) {
	loc := resp.Location
	fmt.Fprintf(out, "Location:   %s\n", loc.FormattedAddress)
	fmt.Fprintf(out, "Coordinates: %.6f, %.6f\n", loc.Latitude, loc.Longitude)

	if loc.Population == nil {
		fmt.Fprintln(out, "Population: unknown")
		return
	}
	fmt.Fprintf(out, "Population: %s\n", market.FormatPopulation(loc.Population.Value))
	if resp.Market != nil {
		fmt.Fprintf(out, "Market:     %s\n", resp.Market.Label)
	}
}
