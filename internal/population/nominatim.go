package population

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/golang/geo/s2"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/evyataryagoni/geoflipper/internal/models"
)

const (
	// DefaultNominatimURL is the public OpenStreetMap Nominatim instance.
	DefaultNominatimURL = "https://nominatim.openstreetmap.org"
	// DefaultUserAgent identifies this application, as Nominatim's usage policy requires.
	DefaultUserAgent = "GeoFlipper/1.0"

	placeSearchLimit = 5
)

// NominatimClient talks to a Nominatim-compatible API.
type NominatimClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NominatimOption configures a NominatimClient.
type NominatimOption func(*NominatimClient)

// WithNominatimHTTPClient sets a custom HTTP client.
func WithNominatimHTTPClient(hc *http.Client) NominatimOption {
	return func(c *NominatimClient) {
		c.httpClient = hc
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) NominatimOption {
	return func(c *NominatimClient) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithNominatimLimiter sets the outbound rate limiter.
func WithNominatimLimiter(l *rate.Limiter) NominatimOption {
	return func(c *NominatimClient) {
		c.limiter = l
	}
}

// NewNominatimClient creates a client for baseURL. The default limiter
// follows the public instance's policy of one request per second.
func NewNominatimClient(baseURL string, opts ...NominatimOption) *NominatimClient {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	c := &NominatimClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  DefaultUserAgent,
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(1, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type nominatimAddress struct {
	City        string `json:"city"`
	Town        string `json:"town"`
	Village     string `json:"village"`
	County      string `json:"county"`
	State       string `json:"state"`
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
}

func (a *nominatimAddress) locality() string {
	if a == nil {
		return ""
	}
	return (&models.AddressComponents{
		City:    a.City,
		Town:    a.Town,
		Village: a.Village,
		County:  a.County,
	}).Locality()
}

type reverseResponse struct {
	Name      string            `json:"name"`
	Address   *nominatimAddress `json:"address"`
	ExtraTags map[string]string `json:"extratags"`
	Error     string            `json:"error"`
}

type searchResult struct {
	Lat         string            `json:"lat"`
	Lon         string            `json:"lon"`
	Name        string            `json:"name"`
	DisplayName string            `json:"display_name"`
	Address     *nominatimAddress `json:"address"`
	ExtraTags   map[string]string `json:"extratags"`
}

func (c *NominatimClient) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "nominatim: rate limit wait")
	}

	params.Set("format", "jsonv2")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return eris.Wrap(err, "nominatim: build request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return eris.Wrap(err, "nominatim: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("nominatim: %s returned status %d", path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "nominatim: read body")
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "nominatim: parse response")
	}
	return nil
}

// Reverse returns the reverse strategy backed by this client.
func (c *NominatimClient) Reverse() Strategy {
	return &reverseStrategy{client: c}
}

// PlaceSearch returns the place-search strategy backed by this client.
func (c *NominatimClient) PlaceSearch() Strategy {
	return &placeSearchStrategy{client: c}
}

// reverseStrategy reads the population tag of the place at the point itself.
type reverseStrategy struct {
	client *NominatimClient
}

func (s *reverseStrategy) Name() string { return "reverse" }

func (s *reverseStrategy) Lookup(ctx context.Context, place *Place) (*models.PopulationRecord, error) {
	params := url.Values{
		"lat":            {strconv.FormatFloat(place.Lat, 'f', -1, 64)},
		"lon":            {strconv.FormatFloat(place.Lng, 'f', -1, 64)},
		"extratags":      {"1"},
		"addressdetails": {"1"},
	}

	var resp reverseResponse
	if err := s.client.get(ctx, "/reverse", params, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, eris.Errorf("nominatim: reverse: %s", resp.Error)
	}

	// Remember what we learned for the strategies that follow.
	if name := resp.Address.locality(); name != "" {
		place.Name = name
	} else if resp.Name != "" {
		place.Name = resp.Name
	}
	if resp.Address != nil {
		place.Country = resp.Address.Country
		place.CountryCode = strings.ToLower(resp.Address.CountryCode)
	}

	n, ok := ParseCount(resp.ExtraTags["population"])
	if !ok {
		return nil, nil
	}
	return &models.PopulationRecord{
		Value:   n,
		City:    place.Name,
		Country: place.Country,
	}, nil
}

// placeSearchStrategy searches for the named place and takes the population
// of the nearest candidate that publishes one.
type placeSearchStrategy struct {
	client *NominatimClient
}

func (s *placeSearchStrategy) Name() string { return "place_search" }

func (s *placeSearchStrategy) Lookup(ctx context.Context, place *Place) (*models.PopulationRecord, error) {
	if place.Name == "" {
		return nil, nil
	}

	params := url.Values{
		"q":              {place.Name},
		"extratags":      {"1"},
		"addressdetails": {"1"},
		"limit":          {strconv.Itoa(placeSearchLimit)},
	}
	if place.CountryCode != "" {
		params.Set("countrycodes", place.CountryCode)
	}

	var results []searchResult
	if err := s.client.get(ctx, "/search", params, &results); err != nil {
		return nil, err
	}

	best, ok := nearestWithPopulation(place, results)
	if !ok {
		return nil, nil
	}

	rec := &models.PopulationRecord{
		Value:   best.population,
		City:    place.Name,
		Country: place.Country,
	}
	if rec.Country == "" && best.result.Address != nil {
		rec.Country = best.result.Address.Country
	}
	return rec, nil
}

type candidate struct {
	result     searchResult
	population int64
	distance   float64
}

// nearestWithPopulation picks, among results with a usable population tag
// and parseable coordinates, the one closest to place.
func nearestWithPopulation(place *Place, results []searchResult) (candidate, bool) {
	origin := s2.LatLngFromDegrees(place.Lat, place.Lng)

	var best candidate
	found := false
	for _, r := range results {
		pop, ok := ParseCount(r.ExtraTags["population"])
		if !ok {
			continue
		}
		lat, err := strconv.ParseFloat(r.Lat, 64)
		if err != nil {
			continue
		}
		lng, err := strconv.ParseFloat(r.Lon, 64)
		if err != nil {
			continue
		}

		dist := float64(origin.Distance(s2.LatLngFromDegrees(lat, lng)))
		if !found || dist < best.distance {
			best = candidate{result: r, population: pop, distance: dist}
			found = true
		}
	}
	return best, found
}
