package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/ebike-ride/internal/auth"
	"github.com/example/ebike-ride/internal/backend"
	"github.com/example/ebike-ride/internal/config"
	"github.com/example/ebike-ride/internal/dispatch"
	"github.com/example/ebike-ride/internal/events"
	"github.com/example/ebike-ride/internal/geo"
	"github.com/example/ebike-ride/internal/history"
	httpapi "github.com/example/ebike-ride/internal/http"
	"github.com/example/ebike-ride/internal/inventory"
	"github.com/example/ebike-ride/internal/logging"
	"github.com/example/ebike-ride/internal/models"
	"github.com/example/ebike-ride/internal/payments"
	"github.com/example/ebike-ride/internal/prefs"
	"github.com/example/ebike-ride/internal/ride"
	"github.com/example/ebike-ride/internal/routing"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.ServerConfig, logger *slog.Logger) error {
	var (
		store     inventory.Store = inventory.NewMemoryStore(inventory.Catalog()...)
		themes    prefs.Store     = prefs.NewMemoryStore()
		publisher                 = events.Multi{events.LogSink{Logger: logger}}
		notifier  ride.Notifier   = dispatch.LogNotifier{Logger: logger}
		gateway   payments.Gateway
	)

	if cfg.RedisAddr != "" {
		rc := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rc.Close()
		if err := rc.Ping(ctx).Err(); err != nil {
			return err
		}
		rs := inventory.NewRedisStore(rc, cfg.RedisGeoKey)
		if cfg.SeedInventory {
			if err := rs.Upsert(ctx, inventory.Catalog()...); err != nil {
				return err
			}
		}
		store = rs
		themes = prefs.NewRedisStore(rc, "prefs:")
		logger.Info("redis connected", "addr", cfg.RedisAddr)
	}

	if len(cfg.KafkaBrokers) > 0 {
		ks := events.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer ks.Close()
		publisher = append(publisher, ks)
		logger.Info("publishing ride events", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}
	if cfg.PushEndpoint != "" {
		notifier = dispatch.NewPushNotifier(cfg.PushEndpoint, cfg.PushKey)
	}
	if cfg.StripeAPIKey != "" {
		gateway = payments.NewStripeGateway(cfg.StripeAPIKey)
	}

	router, geocoder, err := buildRouting(cfg)
	if err != nil {
		return err
	}

	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.SessionTTL)
	if err != nil {
		return err
	}
	stub, err := backend.NewStub(backend.Options{
		Latency:       cfg.BackendLatency,
		DemoOTP:       cfg.DemoOTP,
		Issuer:        issuer,
		Store:         store,
		RadiusKm:      cfg.InventoryRadiusKm,
		Limit:         cfg.InventoryLimit,
		FetchFailures: backend.NewFailurePolicy(cfg.FetchFailureRate, cfg.BackendSeed),
		Gateway:       gateway,
		Currency:      cfg.PaymentCurrency,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return err
	}
	tariff := ride.DefaultTariff()
	tariff.Tick = cfg.RideTick
	tariff.IdleTimeout = cfg.RideIdleTimeout
	tariff.PauseRatePerMinute = cfg.RidePauseRate
	tariff.CruiseKmh = cfg.RideCruiseKmh

	hub := dispatch.NewHub(logger)
	defer hub.Close()
	loop := ride.NewLoop(logger, 64)
	defer loop.Close()

	svc, err := ride.NewService(loop, ride.Deps{
		Backend:  stub,
		Router:   router,
		Geocoder: geocoder,
		Locator:  geo.Fixed(models.Coord{Lat: cfg.DefaultLat, Lng: cfg.DefaultLng}),
		Events:   publisher,
		Notifier: notifier,
		History:  history.NewBook(),
		Tariff:   tariff,
		Fallback: models.Coord{Lat: cfg.DefaultLat, Lng: cfg.DefaultLng},
		Location: loc,
		Logger:   logger,
	}, func(v ride.View) { hub.Broadcast(v) })
	if err != nil {
		return err
	}

	api := httpapi.NewServer(httpapi.Options{
		Service:        svc,
		Issuer:         issuer,
		Prefs:          themes,
		Hub:            hub,
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      api,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("ebike-ride listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildRouting prefers Google, then OSRM, and always falls back to straight
// lines so a route is drawn even when the provider is down.
func buildRouting(cfg config.ServerConfig) (routing.Router, routing.Geocoder, error) {
	offline := routing.StraightLine{WalkingKmh: geo.WalkingSpeedKmh, BicyclingKmh: cfg.RideCruiseKmh}
	var (
		primary  routing.Router
		geocoder routing.Geocoder = routing.CampusGazetteer()
	)
	switch {
	case cfg.MapsAPIKey != "":
		g, err := routing.NewGoogleClient(cfg.MapsAPIKey)
		if err != nil {
			return nil, nil, err
		}
		primary, geocoder = g, g
	case cfg.OSRMURL != "":
		primary = routing.NewOSRMClient(cfg.OSRMURL)
	default:
		return routing.Cached{Next: offline, Cache: routing.NewCache(cfg.RouteCacheTTL)}, geocoder, nil
	}
	return routing.Cached{
		Next:  routing.Fallback{Primary: primary, Secondary: offline},
		Cache: routing.NewCache(cfg.RouteCacheTTL),
	}, geocoder, nil
}
