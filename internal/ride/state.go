package ride

import "fmt"

// State is the rider's position in the app workflow. Exactly one ride session
// exists iff the state is InRide, InRidePaused or RideEnded.
type State int

const (
	LoggedOut State = iota
	LoggedIn
	BikeSelected
	Scanning
	InRide
	InRidePaused
	RideEnded
)

var stateNames = [...]string{
	LoggedOut:    "logged_out",
	LoggedIn:     "logged_in",
	BikeSelected: "bike_selected",
	Scanning:     "scanning",
	InRide:       "in_ride",
	InRidePaused: "in_ride_paused",
	RideEnded:    "ride_ended",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Riding reports whether the accrual tick owns the session.
func (s State) Riding() bool { return s == InRide || s == InRidePaused }

// HasSession reports whether a ride session must exist in this state.
func (s State) HasSession() bool { return s.Riding() || s == RideEnded }
