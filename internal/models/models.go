package models

import "time"

type Coord struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Bike struct {
	ID             int     `json:"id"`
	Location       Coord   `json:"location"`
	BatteryPercent int     `json:"battery_percent"` // 0..100
	Model          string  `json:"model"`
	RatePerMinute  float64 `json:"rate_per_minute"`
	RangeKm        float64 `json:"range_km"`
}

// RankedBike is a Bike seen from the rider's position. Never persisted.
type RankedBike struct {
	Bike
	DistanceKm      float64 `json:"distance_km"`
	WalkTimeMinutes float64 `json:"walk_time_minutes"`
}

// RideSession is the live ride. Rate and model are snapshotted from the
// selected bike when the ride starts.
type RideSession struct {
	ID             string    `json:"id"`
	BikeID         int       `json:"bike_id"`
	BikeModel      string    `json:"bike_model"`
	RatePerMinute  float64   `json:"rate_per_minute"`
	StartedAt      time.Time `json:"started_at"`
	ElapsedSeconds int       `json:"elapsed_seconds"`
	Cost           float64   `json:"cost"`
	DistanceKm     float64   `json:"distance_km"`
	Paused         bool      `json:"paused"`
}

// StartedAtEpochMs is the ride start in unix milliseconds.
func (s RideSession) StartedAtEpochMs() int64 { return s.StartedAt.UnixMilli() }

type PastRideRecord struct {
	ID             string    `json:"id"`
	Date           string    `json:"date"`
	BikeModel      string    `json:"bike_model"`
	StartedAt      time.Time `json:"started_at"`
	ElapsedSeconds int       `json:"elapsed_seconds"`
	Cost           float64   `json:"cost"`
	DistanceKm     float64   `json:"distance_km"`
}

type RideEventType string

const (
	RideStarted RideEventType = "ride.started"
	RidePaused  RideEventType = "ride.paused"
	RideResumed RideEventType = "ride.resumed"
	RideEnded   RideEventType = "ride.ended"
	RideSettled RideEventType = "ride.settled"
)

// RideEvent is what the engine publishes on lifecycle changes.
type RideEvent struct {
	Type       RideEventType `json:"type"`
	RideID     string        `json:"ride_id"`
	Rider      string        `json:"rider"`
	BikeID     int           `json:"bike_id"`
	BikeModel  string        `json:"bike_model"`
	Elapsed    int           `json:"elapsed_seconds"`
	Cost       float64       `json:"cost"`
	DistanceKm float64       `json:"distance_km"`
	At         time.Time     `json:"at"`
}

// Receipt is returned by a successful ride payment.
type Receipt struct {
	TransactionID string    `json:"transaction_id"`
	AmountMinor   int64     `json:"amount_minor"`
	Currency      string    `json:"currency"`
	PaidAt        time.Time `json:"paid_at"`
}
