package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig captures all tunable parameters for the rider API process.
// Values come from the environment (or a .env file in the working directory)
// with defaults that run locally without any backing services.
type ServerConfig struct {
	HTTPAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string

	RedisAddr     string
	RedisPassword string
	RedisGeoKey   string

	KafkaBrokers []string
	KafkaTopic   string

	StripeAPIKey    string
	PaymentCurrency string

	MapsAPIKey    string
	OSRMURL       string
	RouteCacheTTL time.Duration

	JWTSecret  string
	SessionTTL time.Duration

	PushEndpoint string
	PushKey      string

	BackendLatency    time.Duration
	FetchFailureRate  float64
	BackendSeed       int64
	DemoOTP           string
	DefaultLat        float64
	DefaultLng        float64
	InventoryRadiusKm float64
	InventoryLimit    int
	SeedInventory     bool
	RideTick          time.Duration
	RideIdleTimeout   time.Duration
	RidePauseRate     float64
	RideCruiseKmh     float64
	TimeZone          string

	LogLevel string
}

// ConsumerConfig configures the ride-events consumer.
type ConsumerConfig struct {
	KafkaBrokers  []string
	KafkaTopic    string
	KafkaGroup    string
	PGDSN         string
	RunMigrations bool
	MetricsAddr   string
	LogLevel      string
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()
	_ = v.ReadInConfig()
	return v
}

func serverDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("HTTP_READ_TIMEOUT", "5s")
	v.SetDefault("HTTP_WRITE_TIMEOUT", "10s")
	v.SetDefault("HTTP_IDLE_TIMEOUT", "120s")
	v.SetDefault("HTTP_SHUTDOWN_TIMEOUT", "15s")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("REDIS_GEO_KEY", "bikes_geo")
	v.SetDefault("KAFKA_TOPIC", "ride-events")
	v.SetDefault("PAYMENT_CURRENCY", "bdt")
	v.SetDefault("ROUTE_CACHE_TTL", "5m")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("BACKEND_LATENCY", "800ms")
	v.SetDefault("BACKEND_FETCH_FAILURE_RATE", "0.1")
	v.SetDefault("BACKEND_SEED", "0")
	v.SetDefault("DEMO_OTP", "123456")
	v.SetDefault("DEFAULT_LAT", "23.734")
	v.SetDefault("DEFAULT_LNG", "90.393")
	v.SetDefault("INVENTORY_RADIUS_KM", "5")
	v.SetDefault("INVENTORY_LIMIT", "50")
	v.SetDefault("SEED_INVENTORY", "true")
	v.SetDefault("RIDE_TICK", "1s")
	v.SetDefault("RIDE_IDLE_TIMEOUT", "30s")
	v.SetDefault("RIDE_PAUSE_RATE", "0.5")
	v.SetDefault("RIDE_CRUISE_KMH", "15")
	v.SetDefault("TZ_NAME", "Local")
	v.SetDefault("LOG_LEVEL", "info")
}

func LoadServerConfig() (ServerConfig, error) {
	v := newViper()
	serverDefaults(v)
	var errs []error
	p := parser{v: v, errs: &errs}

	cfg := ServerConfig{
		HTTPAddr:        p.str("HTTP_ADDR"),
		ReadTimeout:     p.duration("HTTP_READ_TIMEOUT"),
		WriteTimeout:    p.duration("HTTP_WRITE_TIMEOUT"),
		IdleTimeout:     p.duration("HTTP_IDLE_TIMEOUT"),
		ShutdownTimeout: p.duration("HTTP_SHUTDOWN_TIMEOUT"),
		AllowedOrigins:  splitAndTrim(v.GetString("CORS_ALLOWED_ORIGINS")),

		RedisAddr:     p.str("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisGeoKey:   p.str("REDIS_GEO_KEY"),

		KafkaBrokers: splitAndTrim(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:   p.str("KAFKA_TOPIC"),

		StripeAPIKey:    p.str("STRIPE_API_KEY"),
		PaymentCurrency: strings.ToLower(p.str("PAYMENT_CURRENCY")),

		MapsAPIKey:    p.str("MAPS_API_KEY"),
		OSRMURL:       p.str("OSRM_URL"),
		RouteCacheTTL: p.duration("ROUTE_CACHE_TTL"),

		JWTSecret:  v.GetString("JWT_SECRET"),
		SessionTTL: p.duration("SESSION_TTL"),

		PushEndpoint: p.str("PUSH_ENDPOINT"),
		PushKey:      v.GetString("PUSH_KEY"),

		BackendLatency:    p.duration("BACKEND_LATENCY"),
		FetchFailureRate:  p.float("BACKEND_FETCH_FAILURE_RATE"),
		BackendSeed:       int64(p.integer("BACKEND_SEED")),
		DemoOTP:           p.str("DEMO_OTP"),
		DefaultLat:        p.float("DEFAULT_LAT"),
		DefaultLng:        p.float("DEFAULT_LNG"),
		InventoryRadiusKm: p.float("INVENTORY_RADIUS_KM"),
		InventoryLimit:    p.integer("INVENTORY_LIMIT"),
		SeedInventory:     strings.EqualFold(p.str("SEED_INVENTORY"), "true"),
		RideTick:          p.duration("RIDE_TICK"),
		RideIdleTimeout:   p.duration("RIDE_IDLE_TIMEOUT"),
		RidePauseRate:     p.float("RIDE_PAUSE_RATE"),
		RideCruiseKmh:     p.float("RIDE_CRUISE_KMH"),
		TimeZone:          p.str("TZ_NAME"),

		LogLevel: strings.ToLower(p.str("LOG_LEVEL")),
	}

	if cfg.JWTSecret == "" {
		errs = append(errs, fmt.Errorf("JWT_SECRET is required"))
	}
	if cfg.FetchFailureRate < 0 || cfg.FetchFailureRate > 1 {
		errs = append(errs, fmt.Errorf("BACKEND_FETCH_FAILURE_RATE must be within [0,1]"))
	}
	if len(cfg.DemoOTP) != 6 || strings.Trim(cfg.DemoOTP, "0123456789") != "" {
		errs = append(errs, fmt.Errorf("DEMO_OTP must be 6 digits"))
	}
	if cfg.DefaultLat < -90 || cfg.DefaultLat > 90 || cfg.DefaultLng < -180 || cfg.DefaultLng > 180 {
		errs = append(errs, fmt.Errorf("DEFAULT_LAT/DEFAULT_LNG out of range"))
	}
	if cfg.RideTick <= 0 {
		errs = append(errs, fmt.Errorf("RIDE_TICK must be > 0"))
	}
	if cfg.RideIdleTimeout <= 0 {
		errs = append(errs, fmt.Errorf("RIDE_IDLE_TIMEOUT must be > 0"))
	}
	if cfg.RidePauseRate < 0 || cfg.RideCruiseKmh < 0 {
		errs = append(errs, fmt.Errorf("RIDE_PAUSE_RATE and RIDE_CRUISE_KMH must be >= 0"))
	}
	if cfg.BackendLatency < 0 {
		errs = append(errs, fmt.Errorf("BACKEND_LATENCY must be >= 0"))
	}
	if _, err := time.LoadLocation(cfg.TimeZone); err != nil {
		errs = append(errs, fmt.Errorf("invalid TZ_NAME: %w", err))
	}

	return cfg, errors.Join(errs...)
}

func LoadConsumerConfig() (ConsumerConfig, error) {
	v := newViper()
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_TOPIC", "ride-events")
	v.SetDefault("KAFKA_GROUP", "ride-ledger")
	v.SetDefault("METRICS_ADDR", ":2112")
	v.SetDefault("LOG_LEVEL", "info")
	var errs []error
	p := parser{v: v, errs: &errs}

	cfg := ConsumerConfig{
		KafkaBrokers:  splitAndTrim(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:    p.str("KAFKA_TOPIC"),
		KafkaGroup:    p.str("KAFKA_GROUP"),
		PGDSN:         v.GetString("PG_DSN"),
		RunMigrations: strings.EqualFold(p.str("MIGRATE"), "true"),
		MetricsAddr:   p.str("METRICS_ADDR"),
		LogLevel:      strings.ToLower(p.str("LOG_LEVEL")),
	}
	if len(cfg.KafkaBrokers) == 0 {
		errs = append(errs, fmt.Errorf("KAFKA_BROKERS must not be empty"))
	}
	if cfg.KafkaTopic == "" || cfg.KafkaGroup == "" {
		errs = append(errs, fmt.Errorf("KAFKA_TOPIC and KAFKA_GROUP are required"))
	}
	return cfg, errors.Join(errs...)
}

// parser reads strictly typed values and collects every parse failure.
type parser struct {
	v    *viper.Viper
	errs *[]error
}

func (p parser) str(key string) string {
	return strings.TrimSpace(p.v.GetString(key))
}

func (p parser) duration(key string) time.Duration {
	raw := p.str(key)
	if raw == "" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Errorf("invalid %s: %w", key, err))
	}
	return d
}

func (p parser) float(key string) float64 {
	raw := p.str(key)
	if raw == "" {
		return 0
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Errorf("invalid %s: %w", key, err))
	}
	return f
}

func (p parser) integer(key string) int {
	raw := p.str(key)
	if raw == "" {
		return 0
	}
	i, err := strconv.Atoi(raw)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Errorf("invalid %s: %w", key, err))
	}
	return i
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
