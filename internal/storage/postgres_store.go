package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS ride_settlements (
	ride_id         TEXT PRIMARY KEY,
	rider           TEXT NOT NULL,
	bike_id         INTEGER NOT NULL,
	bike_model      TEXT NOT NULL,
	elapsed_seconds INTEGER NOT NULL,
	cost            DOUBLE PRECISION NOT NULL,
	distance_km     DOUBLE PRECISION NOT NULL,
	ended_at        TIMESTAMPTZ NOT NULL,
	paid_at         TIMESTAMPTZ
)`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Migrate creates the settlements table when missing.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, schema)
	return err
}

func (p *PostgresStore) SaveRide(ctx context.Context, s Settlement) error {
	_, err := p.db.ExecContext(ctx, `
INSERT INTO ride_settlements(ride_id, rider, bike_id, bike_model, elapsed_seconds, cost, distance_km, ended_at)
VALUES($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (ride_id) DO UPDATE SET
	elapsed_seconds = EXCLUDED.elapsed_seconds,
	cost = EXCLUDED.cost,
	distance_km = EXCLUDED.distance_km,
	ended_at = EXCLUDED.ended_at`,
		s.RideID, s.Rider, s.BikeID, s.BikeModel, s.ElapsedSeconds, s.Cost, s.DistanceKm, s.EndedAt)
	return err
}

func (p *PostgresStore) MarkPaid(ctx context.Context, rideID string, at time.Time) error {
	res, err := p.db.ExecContext(ctx, `UPDATE ride_settlements SET paid_at=$1 WHERE ride_id=$2`, at, rideID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *PostgresStore) Close() error { return p.db.Close() }
