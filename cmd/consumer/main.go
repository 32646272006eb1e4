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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"github.com/example/ebike-ride/internal/config"
	"github.com/example/ebike-ride/internal/events"
	"github.com/example/ebike-ride/internal/logging"
	"github.com/example/ebike-ride/internal/models"
	"github.com/example/ebike-ride/internal/observability"
	"github.com/example/ebike-ride/internal/storage"
)

var (
	msgsConsumed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_messages_consumed_total",
		Help: "Total ride event messages consumed",
	})
	msgsInvalid = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_messages_invalid_total",
		Help: "Total invalid messages received",
	})
)

func init() {
	prometheus.MustRegister(msgsConsumed, msgsInvalid)
}

type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	cfg, err := config.LoadConsumerConfig()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var ledger storage.Ledger = storage.NewMemoryStore()
	if cfg.PGDSN != "" {
		pg, err := storage.NewPostgresStore(ctx, cfg.PGDSN)
		if err != nil {
			logger.Error("postgres", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		if cfg.RunMigrations {
			if err := pg.Migrate(ctx); err != nil {
				logger.Error("migration failed", "error", err)
				os.Exit(1)
			}
			logger.Info("migration applied", "table", "ride_settlements")
		}
		ledger = pg
	} else {
		logger.Warn("PG_DSN not set, settlements are kept in memory")
	}

	go serveMetrics(cfg.MetricsAddr, ledger, logger)

	r := kafka.NewReader(kafka.ReaderConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic, GroupID: cfg.KafkaGroup, MinBytes: 1, MaxBytes: 10e6})
	defer r.Close()

	logger.Info("consumer listening", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers, "group", cfg.KafkaGroup)
	consume(ctx, r, ledger, logger)
}

func serveMetrics(addr string, ledger storage.Ledger, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if p, ok := ledger.(pinger); ok {
			if err := p.Ping(r.Context()); err != nil {
				http.Error(w, "ledger not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(200)
		w.Write([]byte("ready"))
	})
	logger.Info("metrics/health listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", "error", err)
	}
}

type reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

func consume(ctx context.Context, r reader, ledger storage.Ledger, logger *slog.Logger) {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("shutting down consumer")
				return
			}
			logger.Warn("kafka read error", "error", err, "backoff", backoff)
			sleep(ctx, backoff)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second
		msgsConsumed.Inc()

		ev, err := events.Decode(m)
		if err != nil {
			msgsInvalid.Inc()
			logger.Warn("invalid message", "offset", m.Offset, "error", err)
			continue
		}
		err = apply(ctx, ledger, ev, 3, 200*time.Millisecond)
		if errors.Is(err, errIgnored) {
			continue
		}
		observability.LedgerWrites.WithLabelValues(observability.Outcome(err)).Inc()
		if err != nil {
			logger.Error("ledger write failed", "ride_id", ev.RideID, "type", string(ev.Type), "error", err)
		}
	}
}

var errIgnored = errors.New("event type not recorded")

// apply records the events the ledger cares about: ended rides and their
// payment. Everything else is skipped with errIgnored.
func apply(ctx context.Context, ledger storage.Ledger, ev models.RideEvent, attempts int, delay time.Duration) error {
	switch ev.Type {
	case models.RideEnded:
		s := storage.FromEvent(ev)
		return withRetry(ctx, attempts, delay, func(ctx context.Context) error { return ledger.SaveRide(ctx, s) })
	case models.RideSettled:
		return withRetry(ctx, attempts, delay, func(ctx context.Context) error { return ledger.MarkPaid(ctx, ev.RideID, ev.At) })
	}
	return errIgnored
}

// withRetry runs fn up to attempts times, doubling delay between tries.
// ErrNotFound is final.
func withRetry(ctx context.Context, attempts int, delay time.Duration, fn func(context.Context) error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil || errors.Is(err, storage.ErrNotFound) {
			return err
		}
		if i == attempts-1 {
			break
		}
		if !sleep(ctx, delay) {
			return ctx.Err()
		}
		delay *= 2
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
