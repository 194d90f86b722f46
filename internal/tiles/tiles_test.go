package tiles

import "testing"

// TestGIBS_Config tests the layer configuration handed to the UI
func TestGIBS_Config(t *testing.T) {
	cfg := NewGIBS("", DefaultView()).Config()

	if cfg.TileURLTemplate != GIBSBlackMarbleURL {
		t.Errorf("expected default template, got %s", cfg.TileURLTemplate)
	}
	if cfg.Attribution != "NASA Black Marble imagery courtesy of NASA GIBS" {
		t.Errorf("unexpected attribution: %s", cfg.Attribution)
	}
	if cfg.MinZoom != 0 || cfg.MaxZoom != 8 {
		t.Errorf("expected zoom range 0-8, got %d-%d", cfg.MinZoom, cfg.MaxZoom)
	}
	if cfg.TileSize != 256 {
		t.Errorf("expected tile size 256, got %d", cfg.TileSize)
	}
	if cfg.DefaultZoom != 2 || cfg.ResultZoom != 8 {
		t.Errorf("expected default zoom 2 and result zoom 8, got %d and %d", cfg.DefaultZoom, cfg.ResultZoom)
	}
	if len(cfg.Subdomains) != 3 {
		t.Errorf("expected 3 subdomains, got %v", cfg.Subdomains)
	}
}

// TestGIBS_ConfigCustomView tests configured centre and zoom
func TestGIBS_ConfigCustomView(t *testing.T) {
	cfg := NewGIBS("https://tiles.example.com/{z}/{x}/{y}.png", View{Lat: 39.5, Lng: -98.35, Zoom: 4}).Config()

	if cfg.DefaultLat != 39.5 || cfg.DefaultLng != -98.35 || cfg.DefaultZoom != 4 {
		t.Errorf("unexpected view: %+v", cfg)
	}

	// Out of range zoom falls back to the default
	cfg = NewGIBS("", View{Zoom: 12}).Config()
	if cfg.DefaultZoom != 2 {
		t.Errorf("expected zoom 2, got %d", cfg.DefaultZoom)
	}
}

// TestGIBS_TileURL tests template expansion and bounds
func TestGIBS_TileURL(t *testing.T) {
	g := NewGIBS("", DefaultView())

	url, ok := g.TileURL(3, 4, 2)
	if !ok {
		t.Fatal("expected tile 3/4/2 to exist")
	}
	expected := "https://gibs-a.earthdata.nasa.gov/wmts/epsg3857/best/VIIRS_Black_Marble/default/2016-01-01/GoogleMapsCompatible_Level8/3/2/4.png"
	if url != expected {
		t.Errorf("expected %s, got %s", expected, url)
	}

	invalid := [][3]int{{9, 0, 0}, {-1, 0, 0}, {2, 4, 0}, {2, 0, -1}}
	for _, c := range invalid {
		if _, ok := g.TileURL(c[0], c[1], c[2]); ok {
			t.Errorf("expected tile %v to be rejected", c)
		}
	}
}
