package models

// AddressComponents is the structured breakdown of a resolved address.
// Every field is optional; providers omit whatever they do not know.
type AddressComponents struct {
	Road        string `json:"road,omitempty"`
	City        string `json:"city,omitempty"`
	Town        string `json:"town,omitempty"`
	Village     string `json:"village,omitempty"`
	County      string `json:"county,omitempty"`
	State       string `json:"state,omitempty"`
	Postcode    string `json:"postcode,omitempty"`
	Country     string `json:"country,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
}

// Locality returns the most specific settlement name available
// (city, then town, then village, then county).
func (c *AddressComponents) Locality() string {
	if c == nil {
		return ""
	}
	for _, name := range []string{c.City, c.Town, c.Village, c.County} {
		if name != "" {
			return name
		}
	}
	return ""
}

// PopulationRecord is the population figure found for the area around a Location.
type PopulationRecord struct {
	Value   int64  `json:"value"`
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
}

// Location is a resolved search result.
// A Location with Components always carries a non-empty FormattedAddress.
type Location struct {
	Latitude         float64            `json:"lat"`
	Longitude        float64            `json:"lng"`
	RawInput         string             `json:"address"`
	FormattedAddress string             `json:"formatted"`
	Components       *AddressComponents `json:"components,omitempty"`
	Population       *PopulationRecord  `json:"population,omitempty"`
	Source           string             `json:"source"` // "coordinates" or the geocoder name
}

// MarketStatus is the viability tier derived from a population figure.
// It is computed when a response is rendered and never stored.
type MarketStatus struct {
	Tier            string `json:"tier"`
	Label           string `json:"label"`
	Color           string `json:"color"`
	BackgroundColor string `json:"background_color"`
}

// ErrorInfo describes a failed search in a form the UI can render.
type ErrorInfo struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Code      int    `json:"code,omitempty"`
	Retryable bool   `json:"retryable"`
}

// SearchResponse is the JSON body returned by the search endpoints.
type SearchResponse struct {
	Token    uint64        `json:"token"`
	State    string        `json:"state"`
	Location *Location     `json:"location,omitempty"`
	Market   *MarketStatus `json:"market,omitempty"`
	Error    *ErrorInfo    `json:"error,omitempty"`
}

// UserResponse is returned by the auth endpoints.
type UserResponse struct {
	Email string `json:"email"`
}

// LoginRequest is the body of POST /v1/auth/login.
type LoginRequest struct {
	Email string `json:"email"`
}

// Opportunity is a CRM opportunity returned by the opportunity search.
type Opportunity struct {
	ID              string              `json:"id"`
	Name            string              `json:"name"`
	PipelineID      string              `json:"pipelineId,omitempty"`
	PipelineStageID string              `json:"pipelineStageId,omitempty"`
	Status          string              `json:"status,omitempty"`
	Contact         *OpportunityContact `json:"contact,omitempty"`
	MonetaryValue   float64             `json:"monetaryValue,omitempty"`
	AssignedTo      string              `json:"assignedTo,omitempty"`
	CreatedAt       string              `json:"createdAt,omitempty"`
	UpdatedAt       string              `json:"updatedAt,omitempty"`
}

// OpportunityContact is the contact attached to an Opportunity.
type OpportunityContact struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// OpportunitiesResponse wraps an opportunity search result.
type OpportunitiesResponse struct {
	Opportunities []Opportunity `json:"opportunities"`
}

// MapConfig describes the tile layer the UI should render.
type MapConfig struct {
	TileURLTemplate string   `json:"tile_url_template"`
	Attribution     string   `json:"attribution"`
	Subdomains      []string `json:"subdomains"`
	TileSize        int      `json:"tile_size"`
	MinZoom         int      `json:"min_zoom"`
	MaxZoom         int      `json:"max_zoom"`
	DefaultLat      float64  `json:"default_lat"`
	DefaultLng      float64  `json:"default_lng"`
	DefaultZoom     int      `json:"default_zoom"`
	ResultZoom      int      `json:"result_zoom"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error string `json:"error"`
}
