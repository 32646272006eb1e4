package ride

import (
	"github.com/example/ebike-ride/internal/inventory"
	"github.com/example/ebike-ride/internal/models"
	"github.com/example/ebike-ride/internal/routing"
)

type Destination struct {
	Location models.Coord `json:"location"`
	Address  string       `json:"address"`
}

type PaymentStatus string

const (
	PaymentIdle       PaymentStatus = "idle"
	PaymentProcessing PaymentStatus = "processing"
	PaymentSuccess    PaymentStatus = "success"
	PaymentError      PaymentStatus = "error"
)

type AuthView struct {
	Phone        string `json:"phone,omitempty"`
	OTPRequested bool   `json:"otp_requested"`
	Pending      bool   `json:"pending"`
	Error        string `json:"error,omitempty"`
}

type InventoryView struct {
	Loading bool                `json:"loading"`
	Error   string              `json:"error,omitempty"`
	Total   int                 `json:"total"`
	Bikes   []models.RankedBike `json:"bikes"`
}

type RoutesView struct {
	Walking *routing.Route `json:"walking,omitempty"`
	Biking  *routing.Route `json:"biking,omitempty"`
	Error   string         `json:"error,omitempty"`
}

type PaymentView struct {
	Status  PaymentStatus   `json:"status"`
	Error   string          `json:"error,omitempty"`
	Receipt *models.Receipt `json:"receipt,omitempty"`
}

// View is a detached snapshot of everything the rider can see.
type View struct {
	State            State               `json:"state"`
	Auth             AuthView            `json:"auth"`
	Location         *models.Coord       `json:"location,omitempty"`
	LocationFallback bool                `json:"location_fallback"`
	Inventory        InventoryView       `json:"inventory"`
	Selected         *models.RankedBike  `json:"selected,omitempty"`
	Routes           RoutesView          `json:"routes"`
	Destination      *Destination        `json:"destination,omitempty"`
	Searching        bool                `json:"searching"`
	DestinationError string              `json:"destination_error,omitempty"`
	StartError       string              `json:"start_error,omitempty"`
	Session          *models.RideSession `json:"session,omitempty"`
	Payment          PaymentView         `json:"payment"`
	Notifications    bool                `json:"notifications"`
}

// View snapshots the engine. Bikes are ranked from the rider's position and
// filtered by range when a destination is set.
func (e *Engine) View() View {
	v := View{
		State: e.state,
		Auth: AuthView{
			Phone:        e.phone,
			OTPRequested: e.otpRequested,
			Pending:      e.authPending,
			Error:        e.authErr,
		},
		LocationFallback: e.locationFallback,
		Inventory: InventoryView{
			Loading: e.inventoryLoading,
			Error:   e.inventoryErr,
			Total:   len(e.bikes),
			Bikes:   []models.RankedBike{},
		},
		Routes:           RoutesView{Error: e.routeErr},
		Searching:        e.searching,
		DestinationError: e.destErr,
		StartError:       e.startErr,
		Payment:          PaymentView{Status: e.payment.status, Error: e.payment.err},
		Notifications:    e.notifications,
	}
	if v.Payment.Status == "" {
		v.Payment.Status = PaymentIdle
	}
	if e.location != nil {
		loc := *e.location
		v.Location = &loc
		var dest *models.Coord
		if e.destination != nil {
			d := e.destination.Location
			dest = &d
		}
		v.Inventory.Bikes = inventory.FilterByRange(inventory.Rank(e.bikes, loc), loc, dest)
	}
	if e.selected != nil {
		b := *e.selected
		v.Selected = &b
	}
	if r, ok := e.routes[routing.Walking]; ok {
		c := *r
		v.Routes.Walking = &c
	}
	if r, ok := e.routes[routing.Bicycling]; ok {
		c := *r
		v.Routes.Biking = &c
	}
	if e.destination != nil {
		d := *e.destination
		v.Destination = &d
	}
	if e.session != nil {
		s := *e.session
		v.Session = &s
	}
	if e.payment.receipt != nil {
		r := *e.payment.receipt
		v.Payment.Receipt = &r
	}
	return v
}
