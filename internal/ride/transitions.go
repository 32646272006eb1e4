package ride

import (
	"errors"
	"fmt"
)

var ErrInvalidTransition = errors.New("invalid transition")

type Event int

const (
	LoginSucceeded Event = iota
	SelectBike
	CloseBike
	Unlock
	ScanSucceeded
	RideStartConfirmed
	RideStartFailed
	ScanCancelled
	IdleTimeout
	MovementResumed
	EndRide
	CloseSummary
	Logout
)

var eventNames = [...]string{
	LoginSucceeded:     "login_succeeded",
	SelectBike:         "select_bike",
	CloseBike:          "close_bike",
	Unlock:             "unlock",
	ScanSucceeded:      "scan_succeeded",
	RideStartConfirmed: "ride_start_confirmed",
	RideStartFailed:    "ride_start_failed",
	ScanCancelled:      "scan_cancelled",
	IdleTimeout:        "idle_timeout",
	MovementResumed:    "movement_resumed",
	EndRide:            "end_ride",
	CloseSummary:       "close_summary",
	Logout:             "logout",
}

func (e Event) String() string {
	if e < 0 || int(e) >= len(eventNames) {
		return fmt.Sprintf("event(%d)", int(e))
	}
	return eventNames[e]
}

// Effect is a side effect the engine performs after a transition, in order.
type Effect int

const (
	LocateRider Effect = iota
	RequestWalkingRoute
	RequestBikingRoute // no-op without a destination
	ClearSelection
	ClearWalkingRoute
	ClearBikingRoute // no-op while a destination is set
	CallStartRide
	CreateSession
	StartAccrual
	StopAccrual
	FreezeSession
	CallEndRide
	ArchiveSession
	ResetAll
	PublishStarted
	PublishPaused
	PublishResumed
	PublishEnded
)

// Step is the outcome of a legal transition.
type Step struct {
	From    State
	To      State
	Event   Event
	Effects []Effect
}

type edge struct {
	from State
	ev   Event
}

type target struct {
	to      State
	effects []Effect
}

var table = map[edge]target{
	{LoggedOut, LoginSucceeded}:     {LoggedIn, []Effect{LocateRider}},
	{LoggedIn, SelectBike}:          {BikeSelected, []Effect{RequestWalkingRoute, RequestBikingRoute}},
	{BikeSelected, CloseBike}:       {LoggedIn, []Effect{ClearSelection, ClearWalkingRoute, ClearBikingRoute}},
	{BikeSelected, Unlock}:          {Scanning, nil},
	{Scanning, ScanSucceeded}:       {Scanning, []Effect{CallStartRide}},
	{Scanning, RideStartConfirmed}:  {InRide, []Effect{CreateSession, StartAccrual, PublishStarted}},
	{Scanning, RideStartFailed}:     {BikeSelected, nil},
	{Scanning, ScanCancelled}:       {BikeSelected, nil},
	{InRide, IdleTimeout}:           {InRidePaused, []Effect{PublishPaused}},
	{InRidePaused, MovementResumed}: {InRide, []Effect{PublishResumed}},
	{InRide, EndRide}:               {RideEnded, []Effect{StopAccrual, FreezeSession, CallEndRide, PublishEnded}},
	{InRidePaused, EndRide}:         {RideEnded, []Effect{StopAccrual, FreezeSession, CallEndRide, PublishEnded}},
	{RideEnded, CloseSummary}:       {LoggedIn, []Effect{ArchiveSession}},
}

// Transition looks up the edge for ev in state from. Logout is legal from
// every state.
func Transition(from State, ev Event) (Step, error) {
	if ev == Logout {
		return Step{From: from, To: LoggedOut, Event: ev, Effects: []Effect{StopAccrual, ResetAll}}, nil
	}
	t, ok := table[edge{from, ev}]
	if !ok {
		return Step{}, fmt.Errorf("%w: %s in %s", ErrInvalidTransition, ev, from)
	}
	effects := make([]Effect, len(t.effects))
	copy(effects, t.effects)
	return Step{From: from, To: t.to, Event: ev, Effects: effects}, nil
}
