package ride

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/ebike-ride/internal/auth"
	"github.com/example/ebike-ride/internal/geo"
	"github.com/example/ebike-ride/internal/history"
	"github.com/example/ebike-ride/internal/inventory"
	"github.com/example/ebike-ride/internal/models"
	"github.com/example/ebike-ride/internal/observability"
	"github.com/example/ebike-ride/internal/routing"
)

var (
	ErrUnknownBike       = errors.New("bike not in the ranked list")
	ErrInvalidPhone      = errors.New("phone number must have at least 6 digits")
	ErrInvalidCode       = errors.New("code must be exactly 6 digits")
	ErrOTPNotRequested   = errors.New("request a code first")
	ErrBusy              = errors.New("a request is already in progress")
	ErrPaymentInProgress = errors.New("payment already in progress")
	ErrAlreadyPaid       = errors.New("ride already paid")
	ErrNoGeocoder        = errors.New("address search is not available")
	ErrEmptyQuery        = errors.New("search query is empty")
	ErrStale             = errors.New("result superseded")
)

// AutoCloseDelay is how long a paid summary stays up before closing itself.
const AutoCloseDelay = 1500 * time.Millisecond

// Backend is the fallible rider backend.
type Backend interface {
	SendOTP(ctx context.Context, phone string) error
	VerifyOTP(ctx context.Context, phone, code string) (string, error)
	FetchBikes(ctx context.Context, location models.Coord) ([]models.Bike, error)
	StartRide(ctx context.Context, bikeID int) error
	EndRide(ctx context.Context, session models.RideSession) error
	ProcessPayment(ctx context.Context, session models.RideSession) (models.Receipt, error)
}

type EventSink interface {
	Publish(ctx context.Context, ev models.RideEvent) error
}

type Notifier interface {
	Notify(ctx context.Context, rider, title, body string) error
}

// Deps wires an Engine. Scheduler and Backend are required.
type Deps struct {
	Scheduler Scheduler
	Backend   Backend
	Router    routing.Router
	Geocoder  routing.Geocoder
	Locator   geo.Locator
	Events    EventSink
	Notifier  Notifier
	History   *history.Book
	Tariff    Tariff
	Fallback  models.Coord
	NewID     func() string
	Location  *time.Location
	Logger    *slog.Logger
}

type paymentState struct {
	status  PaymentStatus
	err     string
	receipt *models.Receipt
}

// Engine is the rider's state machine. It is not safe for concurrent use:
// every method, timer callback and continuation must run on its Scheduler.
type Engine struct {
	sched    Scheduler
	backend  Backend
	router   routing.Router
	geocoder routing.Geocoder
	locator  geo.Locator
	events   EventSink
	notifier Notifier
	history  *history.Book
	tariff   Tariff
	fallback models.Coord
	newID    func() string
	loc      *time.Location
	log      *slog.Logger

	state State
	// gen changes on every logout; async results carry the gen they were
	// started under.
	gen uint64

	phone        string
	otpRequested bool
	authPending  bool
	authErr      string
	// authSeq identifies the verify call whose result is still wanted.
	authSeq uint64

	location         *models.Coord
	locationFallback bool
	bikes            []models.Bike
	inventoryLoading bool
	inventoryErr     string

	selected    *models.RankedBike
	routes      map[routing.Profile]*routing.Route
	routeSeq    map[routing.Profile]uint64
	routeErr    string
	destination *Destination
	searchSeq   uint64
	searching   bool
	destErr     string

	scanAttempt  uint64
	startPending bool
	startErr     string

	session    *models.RideSession
	lastSecond int
	tick       Cancel
	idle       Cancel

	payment   paymentState
	autoClose Cancel

	notifications bool
}

func NewEngine(d Deps) (*Engine, error) {
	if d.Scheduler == nil || d.Backend == nil {
		return nil, errors.New("ride: scheduler and backend are required")
	}
	if d.Locator == nil {
		d.Locator = geo.Unavailable{}
	}
	if d.History == nil {
		d.History = history.NewBook()
	}
	if d.Tariff == (Tariff{}) {
		d.Tariff = DefaultTariff()
	}
	if d.Fallback == (models.Coord{}) {
		d.Fallback = inventory.Center
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	if d.Location == nil {
		d.Location = time.Local
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Engine{
		sched:         d.Scheduler,
		backend:       d.Backend,
		router:        d.Router,
		geocoder:      d.Geocoder,
		locator:       d.Locator,
		events:        d.Events,
		notifier:      d.Notifier,
		history:       d.History,
		tariff:        d.Tariff,
		fallback:      d.Fallback,
		newID:         d.NewID,
		loc:           d.Location,
		log:           d.Logger,
		routes:        make(map[routing.Profile]*routing.Route),
		routeSeq:      make(map[routing.Profile]uint64),
		notifications: true,
	}, nil
}

func (e *Engine) State() State { return e.state }

// History is safe to read from any goroutine.
func (e *Engine) History() *history.Book { return e.history }

// Phone is the rider the current login belongs to.
func (e *Engine) Phone() string { return e.phone }

func (e *Engine) fire(ev Event) error {
	step, err := Transition(e.state, ev)
	if err != nil {
		return err
	}
	e.state = step.To
	e.log.Info("transition", "from", step.From.String(), "to", step.To.String(), "event", ev.String())
	observability.Transitions.WithLabelValues(step.From.String(), step.To.String()).Inc()
	for _, eff := range step.Effects {
		e.apply(eff)
	}
	return nil
}

func (e *Engine) apply(eff Effect) {
	switch eff {
	case LocateRider:
		e.locate()
	case RequestWalkingRoute:
		if e.selected != nil && e.location != nil {
			e.requestRoute(routing.Walking, *e.location, e.selected.Location)
		}
	case RequestBikingRoute:
		if e.selected != nil && e.destination != nil {
			e.requestRoute(routing.Bicycling, e.selected.Location, e.destination.Location)
		}
	case ClearSelection:
		e.selected = nil
	case ClearWalkingRoute:
		e.clearRoute(routing.Walking)
	case ClearBikingRoute:
		if e.destination == nil {
			e.clearRoute(routing.Bicycling)
		}
	case CallStartRide:
		e.callStartRide()
	case CreateSession:
		e.createSession()
	case StartAccrual:
		e.startAccrual()
	case StopAccrual:
		e.stopAccrual()
	case FreezeSession:
		e.freezeSession()
	case CallEndRide:
		e.callEndRide()
	case ArchiveSession:
		e.archiveSession()
	case ResetAll:
		e.resetAll()
	case PublishStarted:
		e.publish(models.RideStarted)
	case PublishPaused:
		e.publish(models.RidePaused)
	case PublishResumed:
		e.publish(models.RideResumed)
	case PublishEnded:
		e.publish(models.RideEnded)
	}
}

func (e *Engine) stale(call string) {
	observability.StaleResults.WithLabelValues(call).Inc()
	e.log.Debug("dropping stale result", "call", call, "state", e.state.String())
}

func (e *Engine) invalid(op string) error {
	return fmt.Errorf("%w: %s in %s", ErrInvalidTransition, op, e.state)
}

// --- login ---

func normalizePhone(raw string) (string, error) {
	p := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(raw))
	digits := strings.TrimPrefix(p, "+")
	if len(digits) < 6 || strings.IndexFunc(digits, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return "", ErrInvalidPhone
	}
	return p, nil
}

func validCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// authMessage is the login-form text for a failed verification.
func authMessage(err error) string {
	if errors.Is(err, auth.ErrInvalidOTP) {
		return "Invalid OTP. Please try again."
	}
	return err.Error()
}

// SendOTP asks the backend to text a code to phone.
func (e *Engine) SendOTP(phone string) error {
	if e.state != LoggedOut {
		return e.invalid("send_otp")
	}
	if e.authPending {
		return ErrBusy
	}
	p, err := normalizePhone(phone)
	if err != nil {
		return err
	}
	e.phone, e.authPending, e.authErr = p, true, ""
	gen := e.gen
	e.sched.Go(func(ctx context.Context) func() {
		err := e.backend.SendOTP(ctx, p)
		return func() {
			if gen != e.gen || e.state != LoggedOut {
				e.stale("send_otp")
				return
			}
			e.authPending = false
			observability.BackendCalls.WithLabelValues("send_otp", observability.Outcome(err)).Inc()
			if err != nil {
				e.log.Warn("send otp failed", "error", err)
				e.authErr = err.Error()
				return
			}
			e.otpRequested = true
		}
	})
	return nil
}

// VerifyOTP checks code with the backend. done, when non-nil, runs on the
// scheduler with the session token or the failure once the call settles.
func (e *Engine) VerifyOTP(code string, done func(token string, err error)) error {
	if done == nil {
		done = func(string, error) {}
	}
	if e.state != LoggedOut {
		return e.invalid("verify_otp")
	}
	if !e.otpRequested {
		return ErrOTPNotRequested
	}
	if e.authPending {
		return ErrBusy
	}
	if !validCode(code) {
		return ErrInvalidCode
	}
	e.authPending, e.authErr = true, ""
	e.authSeq++
	phone, gen, seq := e.phone, e.gen, e.authSeq
	e.sched.Go(func(ctx context.Context) func() {
		token, err := e.backend.VerifyOTP(ctx, phone, code)
		return func() {
			if gen != e.gen || seq != e.authSeq || e.state != LoggedOut {
				e.stale("verify_otp")
				done("", ErrStale)
				return
			}
			e.authPending = false
			observability.BackendCalls.WithLabelValues("verify_otp", observability.Outcome(err)).Inc()
			if err != nil {
				e.log.Info("otp rejected", "error", err)
				e.authErr = authMessage(err)
				done("", err)
				return
			}
			e.otpRequested = false
			if err := e.fire(LoginSucceeded); err != nil {
				done("", err)
				return
			}
			done(token, nil)
		}
	})
	return nil
}

// AbandonVerify drops a pending verification whose caller went away. The
// late result is ignored and the code can be entered again.
func (e *Engine) AbandonVerify() {
	if e.state != LoggedOut || !e.authPending {
		return
	}
	e.authSeq++
	e.authPending = false
}

// Logout discards everything the rider did. It is legal from every state.
func (e *Engine) Logout() {
	_ = e.fire(Logout)
}

func (e *Engine) resetAll() {
	e.gen++
	e.cancelAutoClose()
	if e.session != nil {
		observability.RideActive.Set(0)
	}
	e.phone, e.otpRequested, e.authPending, e.authErr = "", false, false, ""
	e.location, e.locationFallback = nil, false
	e.bikes, e.inventoryLoading, e.inventoryErr = nil, false, ""
	e.selected = nil
	e.routes = make(map[routing.Profile]*routing.Route)
	e.routeErr = ""
	e.destination, e.searching, e.destErr = nil, false, ""
	e.scanAttempt++
	e.startPending, e.startErr = false, ""
	e.session, e.lastSecond = nil, 0
	e.payment = paymentState{}
	e.history.Reset()
}

// --- location & inventory ---

func (e *Engine) locate() {
	e.inventoryLoading, e.inventoryErr = true, ""
	gen := e.gen
	e.sched.Go(func(ctx context.Context) func() {
		loc, locErr := e.locator.Locate(ctx)
		fallback := locErr != nil
		if fallback {
			loc = e.fallback
		}
		bikes, err := e.backend.FetchBikes(ctx, loc)
		return func() {
			if gen != e.gen {
				e.stale("fetch_bikes")
				return
			}
			if fallback {
				e.log.Warn("rider location unavailable, using fallback", "error", locErr, "lat", loc.Lat, "lng", loc.Lng)
			}
			e.location, e.locationFallback = &loc, fallback
			e.finishInventory(bikes, err)
		}
	})
}

func (e *Engine) finishInventory(bikes []models.Bike, err error) {
	e.inventoryLoading = false
	observability.BackendCalls.WithLabelValues("fetch_bikes", observability.Outcome(err)).Inc()
	if err != nil {
		e.log.Warn("fetch bikes failed", "error", err)
		e.inventoryErr = err.Error()
		return
	}
	e.bikes, e.inventoryErr = bikes, ""
}

// RetryInventory refetches bikes around the known rider location. It is a
// no-op while a fetch is already running.
func (e *Engine) RetryInventory() error {
	if e.state == LoggedOut {
		return e.invalid("retry_inventory")
	}
	if e.inventoryLoading {
		return nil
	}
	if e.location == nil {
		e.locate()
		return nil
	}
	loc, gen := *e.location, e.gen
	e.inventoryLoading, e.inventoryErr = true, ""
	e.sched.Go(func(ctx context.Context) func() {
		bikes, err := e.backend.FetchBikes(ctx, loc)
		return func() {
			if gen != e.gen {
				e.stale("fetch_bikes")
				return
			}
			e.finishInventory(bikes, err)
		}
	})
	return nil
}

// --- selection & routes ---

func (e *Engine) SelectBike(id int) error {
	if _, err := Transition(e.state, SelectBike); err != nil {
		return err
	}
	if e.location == nil {
		return fmt.Errorf("%w: %d", ErrUnknownBike, id)
	}
	b, ok := inventory.Find(inventory.Rank(e.bikes, *e.location), id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBike, id)
	}
	e.selected = &b
	e.startErr = ""
	return e.fire(SelectBike)
}

func (e *Engine) CloseBike() error { return e.fire(CloseBike) }

func (e *Engine) requestRoute(p routing.Profile, from, to models.Coord) {
	if e.router == nil {
		return
	}
	e.routeSeq[p]++
	seq, gen := e.routeSeq[p], e.gen
	e.sched.Go(func(ctx context.Context) func() {
		r, err := e.router.Route(ctx, from, to, p)
		return func() {
			if gen != e.gen || seq != e.routeSeq[p] {
				e.stale("route_" + string(p))
				return
			}
			if err != nil {
				e.log.Warn("route failed", "profile", string(p), "error", err)
				e.routeErr = err.Error()
				return
			}
			e.routeErr = ""
			e.routes[p] = &r
		}
	})
}

func (e *Engine) clearRoute(p routing.Profile) {
	e.routeSeq[p]++
	delete(e.routes, p)
}

// --- destination ---

func (e *Engine) SetDestination(loc models.Coord, address string) error {
	if e.state == LoggedOut {
		return e.invalid("set_destination")
	}
	e.searchSeq++
	e.searching = false
	e.setDestination(Destination{Location: loc, Address: address})
	return nil
}

func (e *Engine) setDestination(d Destination) {
	e.destination, e.destErr = &d, ""
	if e.state == BikeSelected && e.selected != nil {
		e.requestRoute(routing.Bicycling, e.selected.Location, d.Location)
	}
}

// SearchDestination geocodes query and sets the result as destination.
func (e *Engine) SearchDestination(query string) error {
	query = strings.TrimSpace(query)
	if e.state == LoggedOut {
		return e.invalid("search_destination")
	}
	if query == "" {
		return ErrEmptyQuery
	}
	if e.geocoder == nil {
		return ErrNoGeocoder
	}
	e.searchSeq++
	seq, gen := e.searchSeq, e.gen
	e.searching, e.destErr = true, ""
	e.sched.Go(func(ctx context.Context) func() {
		place, err := e.geocoder.Geocode(ctx, query)
		return func() {
			if gen != e.gen || seq != e.searchSeq {
				e.stale("geocode")
				return
			}
			e.searching = false
			if err != nil {
				e.log.Info("geocode failed", "query", query, "error", err)
				e.destErr = err.Error()
				return
			}
			e.setDestination(Destination{Location: place.Location, Address: place.Address})
		}
	})
	return nil
}

func (e *Engine) ClearDestination() error {
	if e.state == LoggedOut {
		return e.invalid("clear_destination")
	}
	e.searchSeq++
	e.destination, e.searching, e.destErr = nil, false, ""
	e.clearRoute(routing.Bicycling)
	return nil
}

func (e *Engine) SetNotifications(on bool) { e.notifications = on }

// --- unlock & ride start ---

func (e *Engine) Unlock() error {
	if err := e.fire(Unlock); err != nil {
		return err
	}
	e.startErr = ""
	return nil
}

// ScanSucceeded reports a decoded QR code; the ride starts once the backend
// confirms.
func (e *Engine) ScanSucceeded() error {
	if _, err := Transition(e.state, ScanSucceeded); err != nil {
		return err
	}
	if e.startPending {
		return ErrBusy
	}
	return e.fire(ScanSucceeded)
}

func (e *Engine) CancelScan() error {
	if err := e.fire(ScanCancelled); err != nil {
		return err
	}
	e.scanAttempt++
	e.startPending = false
	return nil
}

func (e *Engine) callStartRide() {
	if e.selected == nil {
		return
	}
	e.scanAttempt++
	attempt, gen, bikeID := e.scanAttempt, e.gen, e.selected.ID
	e.startPending, e.startErr = true, ""
	e.sched.Go(func(ctx context.Context) func() {
		err := e.backend.StartRide(ctx, bikeID)
		return func() {
			if gen != e.gen || attempt != e.scanAttempt || e.state != Scanning {
				e.stale("start_ride")
				return
			}
			e.startPending = false
			observability.BackendCalls.WithLabelValues("start_ride", observability.Outcome(err)).Inc()
			if err != nil {
				e.log.Warn("ride start failed", "bike_id", bikeID, "error", err)
				e.startErr = err.Error()
				_ = e.fire(RideStartFailed)
				return
			}
			_ = e.fire(RideStartConfirmed)
		}
	})
}

func (e *Engine) createSession() {
	e.stopAccrual()
	b := e.selected
	e.session = &models.RideSession{
		ID:            e.newID(),
		BikeID:        b.ID,
		BikeModel:     b.Model,
		RatePerMinute: b.RatePerMinute,
		StartedAt:     e.sched.Now(),
	}
	e.lastSecond = 0
	e.payment = paymentState{status: PaymentIdle}
	observability.RidesStarted.Inc()
	observability.RideActive.Set(1)
	e.log.Info("ride started", "ride_id", e.session.ID, "bike_id", b.ID, "rate_per_minute", b.RatePerMinute)
}

// --- accrual ---

func (e *Engine) startAccrual() {
	e.stopAccrual()
	s := e.session
	e.tick = e.sched.Every(e.tariff.Tick, func() { e.onTick(s) })
}

func (e *Engine) stopAccrual() {
	if e.tick != nil {
		e.tick()
		e.tick = nil
	}
	e.cancelIdle()
}

func (e *Engine) cancelIdle() {
	if e.idle != nil {
		e.idle()
		e.idle = nil
	}
}

func (e *Engine) onTick(s *models.RideSession) {
	if s != e.session || !e.state.Riding() {
		return
	}
	elapsed := e.tariff.Elapsed(s.StartedAt, e.sched.Now())
	if e.tariff.Moving(elapsed) {
		e.cancelIdle()
		if e.state == InRidePaused {
			_ = e.fire(MovementResumed)
		}
	} else {
		// A late tick may have skipped the seconds where movement stopped
		// (or briefly resumed); the debounce counts from the first idle one.
		stopped := elapsed
		for stopped-1 > e.lastSecond && !e.tariff.Moving(stopped-1) {
			stopped--
		}
		if stopped-1 > e.lastSecond {
			e.cancelIdle()
			if e.state == InRidePaused {
				_ = e.fire(MovementResumed)
			}
		}
		if e.state == InRide && e.idle == nil {
			wait := e.tariff.IdleTimeout - time.Duration(elapsed-stopped)*time.Second
			if wait <= 0 {
				e.onIdle(s)
			} else {
				e.idle = e.sched.After(wait, func() { e.onIdle(s) })
			}
		}
	}
	paused := e.state == InRidePaused
	e.lastSecond = e.tariff.Apply(s, e.lastSecond, elapsed, paused)
	if elapsed > s.ElapsedSeconds {
		s.ElapsedSeconds = elapsed
	}
	s.Paused = paused
	observability.AccrualTicks.Inc()
}

func (e *Engine) onIdle(s *models.RideSession) {
	e.idle = nil
	if s != e.session || e.state != InRide {
		return
	}
	if err := e.fire(IdleTimeout); err != nil {
		return
	}
	s.Paused = true
	observability.RidePauses.Inc()
}

// --- ride end & summary ---

// EndRide stops accrual and shows the summary. The backend is told
// afterwards; its failure is only logged.
func (e *Engine) EndRide() error { return e.fire(EndRide) }

func (e *Engine) freezeSession() {
	frozen := *e.session
	e.session = &frozen
	observability.RidesEnded.Inc()
	observability.RideActive.Set(0)
	observability.RideCost.Observe(frozen.Cost)
	e.log.Info("ride ended", "ride_id", frozen.ID, "elapsed_seconds", frozen.ElapsedSeconds, "cost", frozen.Cost, "distance_km", frozen.DistanceKm)
}

func (e *Engine) callEndRide() {
	s, gen := *e.session, e.gen
	e.sched.Go(func(ctx context.Context) func() {
		err := e.backend.EndRide(ctx, s)
		return func() {
			observability.BackendCalls.WithLabelValues("end_ride", observability.Outcome(err)).Inc()
			if gen != e.gen || e.session == nil || e.session.ID != s.ID {
				e.stale("end_ride")
				return
			}
			if err != nil {
				e.log.Error("ride end not recorded by backend", "ride_id", s.ID, "error", err)
				return
			}
			e.log.Info("ride end recorded", "ride_id", s.ID)
		}
	})
}

// Pay settles the ended ride. Allowed again after a failed attempt.
func (e *Engine) Pay() error {
	if e.state != RideEnded {
		return e.invalid("pay")
	}
	switch e.payment.status {
	case PaymentProcessing:
		return ErrPaymentInProgress
	case PaymentSuccess:
		return ErrAlreadyPaid
	}
	e.payment = paymentState{status: PaymentProcessing}
	s, gen := *e.session, e.gen
	e.sched.Go(func(ctx context.Context) func() {
		r, err := e.backend.ProcessPayment(ctx, s)
		return func() {
			if gen != e.gen || e.state != RideEnded || e.session == nil || e.session.ID != s.ID {
				e.stale("payment")
				return
			}
			observability.Payments.WithLabelValues(observability.Outcome(err)).Inc()
			if err != nil {
				e.log.Warn("payment failed", "ride_id", s.ID, "error", err)
				e.payment = paymentState{status: PaymentError, err: err.Error()}
				return
			}
			e.payment = paymentState{status: PaymentSuccess, receipt: &r}
			e.log.Info("payment settled", "ride_id", s.ID, "transaction_id", r.TransactionID)
			e.publish(models.RideSettled)
			e.cancelAutoClose()
			e.autoClose = e.sched.After(AutoCloseDelay, func() {
				e.autoClose = nil
				if e.state == RideEnded && e.session != nil && e.session.ID == s.ID {
					_ = e.fire(CloseSummary)
				}
			})
		}
	})
	return nil
}

func (e *Engine) cancelAutoClose() {
	if e.autoClose != nil {
		e.autoClose()
		e.autoClose = nil
	}
}

func (e *Engine) CloseSummary() error { return e.fire(CloseSummary) }

func (e *Engine) archiveSession() {
	e.cancelAutoClose()
	if e.session != nil {
		e.history.Prepend(history.NewRecord(*e.session, e.newID(), e.loc))
	}
	e.session, e.lastSecond = nil, 0
	e.selected = nil
	e.clearRoute(routing.Walking)
	e.clearRoute(routing.Bicycling)
	e.searchSeq++
	e.destination, e.searching, e.destErr = nil, false, ""
	e.payment = paymentState{}
}

// --- events ---

var notifications = map[models.RideEventType][2]string{
	models.RideStarted: {"Ride started", "Your %s is unlocked. Enjoy the ride!"},
	models.RidePaused:  {"Ride paused", "Your %s has been idle, billing at the pause rate."},
	models.RideSettled: {"Payment received", "Thanks for riding the %s."},
}

func (e *Engine) publish(t models.RideEventType) {
	if e.session == nil {
		return
	}
	s := e.session
	ev := models.RideEvent{
		Type:       t,
		RideID:     s.ID,
		Rider:      e.phone,
		BikeID:     s.BikeID,
		BikeModel:  s.BikeModel,
		Elapsed:    s.ElapsedSeconds,
		Cost:       s.Cost,
		DistanceKm: s.DistanceKm,
		At:         e.sched.Now(),
	}
	if e.events != nil {
		e.sched.Go(func(ctx context.Context) func() {
			if err := e.events.Publish(ctx, ev); err != nil {
				e.log.Warn("publish ride event failed", "type", string(ev.Type), "ride_id", ev.RideID, "error", err)
			}
			return nil
		})
	}
	msg, ok := notifications[t]
	if !ok || e.notifier == nil || !e.notifications {
		return
	}
	title, body := msg[0], fmt.Sprintf(msg[1], ev.BikeModel)
	e.sched.Go(func(ctx context.Context) func() {
		if err := e.notifier.Notify(ctx, ev.Rider, title, body); err != nil {
			e.log.Warn("push notification failed", "type", string(ev.Type), "error", err)
		}
		return nil
	})
}
