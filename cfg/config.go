package cfg

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

// Enabled reports whether a Redis host was configured. Without one the in-memory cache is used.
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

func (r RedisConfig) Addr() string {
	port := r.Port
	if port == "" {
		port = "6379"
	}
	return r.Host + ":" + port
}

type FlightAPIConfig struct {
	BaseURL string
	Timeout time.Duration
}

type MultiDateConfig struct {
	Window            int
	RequestsPerSecond float64
}

type OfferConfig struct {
	DefaultCurrency    string
	DefaultBaggageKg   string
	AirlineLogoBaseURL string
}

type OtelConfig struct {
	Endpoint    string
	ServiceName string
}

type Config struct {
	AppEnv          string
	AppPort         string
	RedisConfig     RedisConfig
	FlightAPIConfig FlightAPIConfig
	MultiDateConfig MultiDateConfig
	OfferConfig     OfferConfig
	OtelConfig      OtelConfig
	SessionTTL      time.Duration
	SuggestDebounce time.Duration
	SnowflakeNodeID int64
}

// Load reads .env when there is one, then the environment. Every missing or malformed
// variable is reported in the returned error.
func Load() (*Config, error) {
	var errs []error

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.New("failed load cfg: " + err.Error())
	}

	appEnv := mustEnv("APP_ENV", &errs)
	appPort := mustEnv("APP_PORT", &errs)
	flightAPIBaseURL := mustEnv("FLIGHT_API_BASE_URL", &errs)

	flightAPITimeout := intEnv("FLIGHT_API_TIMEOUT_SECONDS", 15, &errs)
	sessionTTL := intEnv("SESSION_TTL_MINUTES", 60, &errs)
	window := intEnv("MULTIDATE_WINDOW", 6, &errs)
	debounce := intEnv("SUGGEST_DEBOUNCE_MS", 250, &errs)
	nodeID := intEnv("SNOWFLAKE_NODE_ID", 1, &errs)

	rps, err := strconv.ParseFloat(envOr("MULTIDATE_RPS", "10"), 64)
	if err != nil {
		errs = append(errs, errors.New("conversion failed env: "+"MULTIDATE_RPS"))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return &Config{
		AppEnv:  appEnv,
		AppPort: appPort,
		RedisConfig: RedisConfig{
			Host:     os.Getenv("REDIS_HOST"),
			Port:     os.Getenv("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		FlightAPIConfig: FlightAPIConfig{
			BaseURL: flightAPIBaseURL,
			Timeout: time.Duration(flightAPITimeout) * time.Second,
		},
		MultiDateConfig: MultiDateConfig{
			Window:            window,
			RequestsPerSecond: rps,
		},
		OfferConfig: OfferConfig{
			DefaultCurrency:    envOr("DEFAULT_CURRENCY", "PKR"),
			DefaultBaggageKg:   envOr("DEFAULT_BAGGAGE_KG", "30"),
			AirlineLogoBaseURL: os.Getenv("AIRLINE_LOGO_BASE_URL"),
		},
		OtelConfig: OtelConfig{
			Endpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			ServiceName: envOr("OTEL_SERVICE_NAME", "storefront"),
		},
		SessionTTL:      time.Duration(sessionTTL) * time.Minute,
		SuggestDebounce: time.Duration(debounce) * time.Millisecond,
		SnowflakeNodeID: int64(nodeID),
	}, nil
}

func mustEnv(key string, errs *[]error) string {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		*errs = append(*errs, errors.New("missing env: "+key))
	}
	return value
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func intEnv(key string, fallback int, errs *[]error) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, errors.New("conversion failed env: "+key))
		return fallback
	}
	return n
}
