// Package app wires configuration into the provider clients and the search
// pipeline shared by the server and the lookup command.
package app

import (
	"github.com/evyataryagoni/geoflipper/internal/config"
	"github.com/evyataryagoni/geoflipper/internal/geocoder"
	"github.com/evyataryagoni/geoflipper/internal/logger"
	"github.com/evyataryagoni/geoflipper/internal/metrics"
	"github.com/evyataryagoni/geoflipper/internal/population"
	"github.com/evyataryagoni/geoflipper/internal/search"
	"github.com/evyataryagoni/geoflipper/internal/tiles"
)

// Geocoder builds the address resolver. One client is shared by every
// session so the provider rate limit holds process-wide.
func Geocoder(cfg *config.Config, log *logger.Logger, m *metrics.Metrics) *geocoder.Client {
	return geocoder.NewClient(cfg.OpenCageAPIKey,
		geocoder.WithBaseURL(cfg.OpenCageURL),
		geocoder.WithTimeout(cfg.GeocodeTimeout),
		geocoder.WithRateLimit(cfg.GeocodeRateLimit),
		geocoder.WithLogger(log),
		geocoder.WithMetrics(m),
	)
}

// Population builds the population strategy chain:
// reverse lookup, then nearby place search, then CountriesNow.
func Population(cfg *config.Config, log *logger.Logger, m *metrics.Metrics) *population.Resolver {
	nominatim := population.NewNominatimClient(cfg.NominatimURL,
		population.WithUserAgent(cfg.NominatimUserAgent),
	)

	strategies := []population.Strategy{nominatim.Reverse()}
	if cfg.PopulationPlaceSearch {
		strategies = append(strategies, nominatim.PlaceSearch())
	}
	if cfg.CountriesNowURL != "" {
		strategies = append(strategies, population.NewCityPopulation(cfg.CountriesNowURL, nil))
	}

	return population.NewResolver(strategies,
		population.WithTimeout(cfg.PopulationTimeout),
		population.WithLogger(log),
		population.WithMetrics(m),
	)
}

// SearchFactory returns a factory for per-session orchestrators sharing the given resolvers.
// A nil pop disables population lookups.
func SearchFactory(addresses search.AddressResolver, pop search.PopulationResolver, log *logger.Logger, m *metrics.Metrics) search.Factory {
	return func() *search.Orchestrator {
		opts := []search.Option{search.WithLogger(log), search.WithMetrics(m)}
		if pop != nil {
			opts = append(opts, search.WithPopulation(pop))
		}
		return search.New(addresses, opts...)
	}
}

// Tiles builds the map tile provider
func Tiles(cfg *config.Config) tiles.TileMapProvider {
	return tiles.NewGIBS(cfg.TileURLTemplate, tiles.View{
		Lat:  cfg.DefaultLat,
		Lng:  cfg.DefaultLng,
		Zoom: cfg.DefaultZoom,
	})
}
