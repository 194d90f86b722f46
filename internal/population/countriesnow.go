package population

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/evyataryagoni/geoflipper/internal/models"
)

// DefaultCountriesNowURL is the public CountriesNow API.
const DefaultCountriesNowURL = "https://countriesnow.space/api/v0.1"

// CityPopulation looks cities up in the CountriesNow city population table.
type CityPopulation struct {
	baseURL    string
	httpClient *http.Client
}

// NewCityPopulation creates the CountriesNow strategy. A nil hc uses a default client.
func NewCityPopulation(baseURL string, hc *http.Client) *CityPopulation {
	if baseURL == "" {
		baseURL = DefaultCountriesNowURL
	}
	if hc == nil {
		hc = &http.Client{}
	}
	return &CityPopulation{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: hc,
	}
}

type cityPopulationRequest struct {
	City    string `json:"city"`
	Country string `json:"country,omitempty"`
}

type cityPopulationResponse struct {
	Error bool   `json:"error"`
	Msg   string `json:"msg"`
	Data  *struct {
		City             string            `json:"city"`
		Country          string            `json:"country"`
		PopulationCounts []populationCount `json:"populationCounts"`
	} `json:"data"`
}

type populationCount struct {
	Year  json.RawMessage `json:"year"`
	Value json.RawMessage `json:"value"`
}

func (s *CityPopulation) Name() string { return "countriesnow" }

func (s *CityPopulation) Lookup(ctx context.Context, place *Place) (*models.PopulationRecord, error) {
	if place.Name == "" || place.Country == "" {
		return nil, nil
	}

	payload, err := json.Marshal(cityPopulationRequest{City: place.Name, Country: place.Country})
	if err != nil {
		return nil, eris.Wrap(err, "countriesnow: encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/countries/population/cities", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "countriesnow: build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "countriesnow: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	// Unknown cities come back as 404 with error=true; that is "no data".
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("countriesnow: returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "countriesnow: read body")
	}

	var parsed cityPopulationResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "countriesnow: parse response")
	}
	if parsed.Error || parsed.Data == nil {
		return nil, nil
	}

	value, ok := latestCount(parsed.Data.PopulationCounts)
	if !ok {
		return nil, nil
	}

	rec := &models.PopulationRecord{
		Value:   value,
		City:    parsed.Data.City,
		Country: parsed.Data.Country,
	}
	if rec.City == "" {
		rec.City = place.Name
	}
	if rec.Country == "" {
		rec.Country = place.Country
	}
	return rec, nil
}

// latestCount returns the value of the most recent year with a usable figure.
func latestCount(counts []populationCount) (int64, bool) {
	var (
		bestYear  = -1
		bestValue int64
		found     bool
	)
	for _, c := range counts {
		value, ok := numericValue(c.Value)
		if !ok {
			continue
		}
		year, _ := numericValue(c.Year)
		if !found || int(year) > bestYear {
			bestYear = int(year)
			bestValue = value
			found = true
		}
	}
	return bestValue, found
}

// numericValue accepts a JSON number or a numeric string, which CountriesNow
// uses interchangeably.
func numericValue(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 {
		return 0, false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, ok := ParseCount(s); ok {
			return n, true
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || f < 0 {
			return 0, false
		}
		return int64(f), true
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil || f < 0 {
		return 0, false
	}
	return int64(f), true
}
