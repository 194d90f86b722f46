package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port           string
	AllowedOrigins []string // CORS allow-list for the browser UI
	SecureCookies  bool
	TrustProxy     bool          // honour X-Real-IP / X-Forwarded-For for client IPs
	SessionIdle    time.Duration // search sessions idle this long are dropped

	// Logging
	LogLevel  string
	LogPretty bool
	LogFile   string

	// Address resolution (OpenCage)
	OpenCageAPIKey   string
	OpenCageURL      string
	GeocodeTimeout   time.Duration
	GeocodeRateLimit float64 // requests per second to the provider

	// Population lookup (Nominatim, CountriesNow)
	NominatimURL          string
	NominatimUserAgent    string
	PopulationTimeout     time.Duration
	PopulationPlaceSearch bool   // try a nearby place search when reverse lookup has no population
	CountriesNowURL       string // empty disables the CountriesNow fallback

	// Membership check
	MembershipURL     string
	MembershipTimeout time.Duration
	RequireAnnualPlan bool

	// Credential store configuration
	StoreType string // "memory", "file", "mysql" or "redis"
	StorePath string // path to the credential CSV file
	StoreTTL  time.Duration

	// MySQL configuration
	MySQLDSN string // Data Source Name

	// Redis configuration (credential store and rate limiter)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Rate limiting
	RateLimitType string  // "memory" or "redis"
	RateLimit     float64 // requests per second per client

	// CRM (GoHighLevel)
	GHLAPIURL     string
	GHLAPIKey     string
	GHLLocationID string

	// Map
	TileURLTemplate string
	DefaultLat      float64
	DefaultLng      float64
	DefaultZoom     int
}

// Load reads configuration from environment variables with sensible defaults
// A .env file in the working directory is loaded first when present
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	// In production/Docker, environment variables are set directly
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or defaults")
	}

	return FromEnv()
}

// FromEnv reads configuration from the environment only, without a .env file
func FromEnv() (*Config, error) {
	return FromViper(newViper())
}

// newViper binds environment variables and registers defaults
func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	// Server
	v.SetDefault("PORT", "3000")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")
	v.SetDefault("SECURE_COOKIES", false)
	v.SetDefault("TRUST_PROXY_HEADERS", false)
	v.SetDefault("SESSION_IDLE_TIMEOUT", "30m")

	// Logging
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)
	v.SetDefault("LOG_FILE", "")

	// Providers
	v.SetDefault("OPENCAGE_URL", "https://api.opencagedata.com/geocode/v1/json")
	v.SetDefault("GEOCODE_TIMEOUT", "10s")
	v.SetDefault("GEOCODE_RATE_LIMIT", 1.0)
	v.SetDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org")
	v.SetDefault("NOMINATIM_USER_AGENT", "GeoFlipper/1.0")
	v.SetDefault("POPULATION_TIMEOUT", "5s")
	v.SetDefault("POPULATION_PLACE_SEARCH", true)
	v.SetDefault("COUNTRIESNOW_URL", "https://countriesnow.space/api/v0.1")
	v.SetDefault("MEMBERSHIP_URL", "https://lowballoffer.ai/api/check-member")
	v.SetDefault("MEMBERSHIP_TIMEOUT", "10s")
	v.SetDefault("REQUIRE_ANNUAL_PLAN", true)

	// Credential store (default: memory)
	v.SetDefault("CREDENTIAL_STORE_TYPE", "memory")
	v.SetDefault("CREDENTIAL_STORE_PATH", "./data/credentials.csv")
	v.SetDefault("CREDENTIAL_TTL", "720h")
	v.SetDefault("MYSQL_DSN", "")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	// Rate limiting (default: memory, 10 requests per second)
	v.SetDefault("RATE_LIMITER_TYPE", "memory")
	v.SetDefault("RATE_LIMIT", 10.0)

	// CRM
	v.SetDefault("GHL_API_URL", "https://rest.gohighlevel.com/v1")
	v.SetDefault("GHL_API_KEY", "")
	v.SetDefault("GHL_LOCATION_ID", "")

	// Map
	v.SetDefault("TILE_URL_TEMPLATE", "")
	v.SetDefault("DEFAULT_LAT", 0.0)
	v.SetDefault("DEFAULT_LNG", 0.0)
	v.SetDefault("DEFAULT_ZOOM", 2)

	return v
}

// FromViper builds a Config from an already populated viper instance
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:           v.GetString("PORT"),
		AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		SecureCookies:  v.GetBool("SECURE_COOKIES"),
		TrustProxy:     v.GetBool("TRUST_PROXY_HEADERS"),
		SessionIdle:    v.GetDuration("SESSION_IDLE_TIMEOUT"),

		LogLevel:  v.GetString("LOG_LEVEL"),
		LogPretty: v.GetBool("LOG_PRETTY"),
		LogFile:   v.GetString("LOG_FILE"),

		OpenCageAPIKey:   strings.TrimSpace(v.GetString("OPENCAGE_API_KEY")),
		OpenCageURL:      v.GetString("OPENCAGE_URL"),
		GeocodeTimeout:   v.GetDuration("GEOCODE_TIMEOUT"),
		GeocodeRateLimit: v.GetFloat64("GEOCODE_RATE_LIMIT"),

		NominatimURL:          v.GetString("NOMINATIM_URL"),
		NominatimUserAgent:    v.GetString("NOMINATIM_USER_AGENT"),
		PopulationTimeout:     v.GetDuration("POPULATION_TIMEOUT"),
		PopulationPlaceSearch: v.GetBool("POPULATION_PLACE_SEARCH"),
		CountriesNowURL:       v.GetString("COUNTRIESNOW_URL"),

		MembershipURL:     v.GetString("MEMBERSHIP_URL"),
		MembershipTimeout: v.GetDuration("MEMBERSHIP_TIMEOUT"),
		RequireAnnualPlan: v.GetBool("REQUIRE_ANNUAL_PLAN"),

		StoreType: strings.ToLower(v.GetString("CREDENTIAL_STORE_TYPE")),
		StorePath: v.GetString("CREDENTIAL_STORE_PATH"),
		StoreTTL:  v.GetDuration("CREDENTIAL_TTL"),
		MySQLDSN:  v.GetString("MYSQL_DSN"),

		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),

		RateLimitType: strings.ToLower(v.GetString("RATE_LIMITER_TYPE")),
		RateLimit:     v.GetFloat64("RATE_LIMIT"),

		GHLAPIURL:     v.GetString("GHL_API_URL"),
		GHLAPIKey:     v.GetString("GHL_API_KEY"),
		GHLLocationID: v.GetString("GHL_LOCATION_ID"),

		TileURLTemplate: v.GetString("TILE_URL_TEMPLATE"),
		DefaultLat:      v.GetFloat64("DEFAULT_LAT"),
		DefaultLng:      v.GetFloat64("DEFAULT_LNG"),
		DefaultZoom:     v.GetInt("DEFAULT_ZOOM"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports settings that would make the server misbehave.
// A missing OpenCage key is allowed; searches then fail with a credentials error.
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}
	if c.RateLimit <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT must be positive, got %v", c.RateLimit))
	}
	if c.GeocodeRateLimit <= 0 {
		errs = append(errs, fmt.Errorf("GEOCODE_RATE_LIMIT must be positive, got %v", c.GeocodeRateLimit))
	}
	for name, d := range map[string]time.Duration{
		"GEOCODE_TIMEOUT":      c.GeocodeTimeout,
		"POPULATION_TIMEOUT":   c.PopulationTimeout,
		"MEMBERSHIP_TIMEOUT":   c.MembershipTimeout,
		"SESSION_IDLE_TIMEOUT": c.SessionIdle,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be a positive duration", name))
		}
	}
	if c.StoreType == "mysql" && c.MySQLDSN == "" {
		errs = append(errs, errors.New("MYSQL_DSN is required when CREDENTIAL_STORE_TYPE=mysql"))
	}
	if c.DefaultLat < -90 || c.DefaultLat > 90 || c.DefaultLng < -180 || c.DefaultLng > 180 {
		errs = append(errs, errors.New("DEFAULT_LAT/DEFAULT_LNG out of range"))
	}

	return errors.Join(errs...)
}

// splitList splits a comma separated setting, dropping empty entries
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
