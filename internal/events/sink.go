package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/ebike-ride/internal/models"
)

// KafkaSink publishes ride lifecycle events keyed by ride id, so every event
// of one ride lands on the same partition.
type KafkaSink struct {
	writer  *kafka.Writer
	timeout time.Duration
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
	return &KafkaSink{writer: w, timeout: 2 * time.Second}
}

// Message encodes ev the way KafkaSink writes it.
func Message(ev models.RideEvent) (kafka.Message, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(ev.RideID),
		Value: b,
		Time:  ev.At,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(ev.Type)},
			{Key: "bike_id", Value: []byte(strconv.Itoa(ev.BikeID))},
		},
	}, nil
}

// Decode is the consumer-side inverse of Message.
func Decode(m kafka.Message) (models.RideEvent, error) {
	var ev models.RideEvent
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		return models.RideEvent{}, err
	}
	if ev.RideID == "" || ev.Type == "" {
		return models.RideEvent{}, errors.New("ride event missing id or type")
	}
	return ev, nil
}

func (k *KafkaSink) Publish(ctx context.Context, ev models.RideEvent) error {
	msg, err := Message(ev)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()
	return k.writer.WriteMessages(ctx, msg)
}

func (k *KafkaSink) Close() error {
	if k.writer == nil {
		return nil
	}
	return k.writer.Close()
}

// LogSink writes events to a structured logger. Used when no broker is configured.
type LogSink struct{ Logger *slog.Logger }

func (l LogSink) Publish(_ context.Context, ev models.RideEvent) error {
	l.Logger.Info("ride event",
		"type", string(ev.Type),
		"ride_id", ev.RideID,
		"bike_id", ev.BikeID,
		"elapsed_seconds", ev.Elapsed,
		"cost", ev.Cost,
		"distance_km", ev.DistanceKm,
	)
	return nil
}

// Sink is the publishing side of every implementation in this package.
type Sink interface {
	Publish(ctx context.Context, ev models.RideEvent) error
}

// Multi fans an event out to every sink and joins their errors.
type Multi []Sink

func (m Multi) Publish(ctx context.Context, ev models.RideEvent) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
