// Package tiles describes the imagery layer the map UI renders.
package tiles

import (
	"strconv"
	"strings"

	"github.com/evyataryagoni/geoflipper/internal/models"
)

// GIBSBlackMarbleURL is NASA's VIIRS Black Marble (Earth at night) layer.
const GIBSBlackMarbleURL = "https://gibs-{s}.earthdata.nasa.gov/wmts/epsg3857/best/VIIRS_Black_Marble/default/2016-01-01/GoogleMapsCompatible_Level8/{z}/{y}/{x}.png"

const (
	gibsAttribution = "NASA Black Marble imagery courtesy of NASA GIBS"
	gibsMaxZoom     = 8
	tileSize        = 256
	resultZoom      = 8
	defaultZoom     = 2
)

// TileMapProvider supplies tile layer configuration to the map UI.
type TileMapProvider interface {
	Config() models.MapConfig
	TileURL(z, x, y int) (string, bool)
}

// View is the initial map view.
type View struct {
	Lat  float64
	Lng  float64
	Zoom int
}

// DefaultView centres the world.
func DefaultView() View {
	return View{Lat: 0, Lng: 0, Zoom: defaultZoom}
}

// GIBS serves NASA GIBS WMTS tiles.
type GIBS struct {
	template   string
	subdomains []string
	view       View
}

// NewGIBS creates a GIBS provider. An empty template uses GIBSBlackMarbleURL.
func NewGIBS(template string, view View) *GIBS {
	if template == "" {
		template = GIBSBlackMarbleURL
	}
	if view.Zoom < 0 || view.Zoom > gibsMaxZoom {
		view.Zoom = defaultZoom
	}
	return &GIBS{
		template:   template,
		subdomains: []string{"a", "b", "c"},
		view:       view,
	}
}

// Config returns the layer configuration.
func (g *GIBS) Config() models.MapConfig {
	subdomains := make([]string, len(g.subdomains))
	copy(subdomains, g.subdomains)

	return models.MapConfig{
		TileURLTemplate: g.template,
		Attribution:     gibsAttribution,
		Subdomains:      subdomains,
		TileSize:        tileSize,
		MinZoom:         0,
		MaxZoom:         gibsMaxZoom,
		DefaultLat:      g.view.Lat,
		DefaultLng:      g.view.Lng,
		DefaultZoom:     g.view.Zoom,
		ResultZoom:      resultZoom,
	}
}

// TileURL expands the template for one tile. It reports false for tile
// coordinates that do not exist at zoom z.
func (g *GIBS) TileURL(z, x, y int) (string, bool) {
	if z < 0 || z > gibsMaxZoom {
		return "", false
	}
	n := 1 << z
	if x < 0 || x >= n || y < 0 || y >= n {
		return "", false
	}

	// Spread requests over subdomains the same way tile clients do.
	s := g.subdomains[(x+y)%len(g.subdomains)]
	return strings.NewReplacer(
		"{s}", s,
		"{z}", strconv.Itoa(z),
		"{x}", strconv.Itoa(x),
		"{y}", strconv.Itoa(y),
	).Replace(g.template), true
}
