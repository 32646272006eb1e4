package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/ebike-ride/internal/auth"
	"github.com/example/ebike-ride/internal/backend"
	"github.com/example/ebike-ride/internal/dispatch"
	"github.com/example/ebike-ride/internal/models"
	"github.com/example/ebike-ride/internal/prefs"
	"github.com/example/ebike-ride/internal/ride"
)

type Options struct {
	Service        *ride.Service
	Issuer         *auth.Issuer
	Prefs          prefs.Store
	DefaultTheme   prefs.Theme
	Hub            *dispatch.Hub
	Logger         *slog.Logger
	AllowedOrigins []string
}

// Server is the rider API in front of one ride.Service.
type Server struct {
	svc          *ride.Service
	issuer       *auth.Issuer
	prefs        prefs.Store
	defaultTheme prefs.Theme
	hub          *dispatch.Hub
	logger       *slog.Logger
	// active holds the token id of the current login; nil when logged out.
	active  atomic.Pointer[string]
	mux     *mux.Router
	handler http.Handler
}

func NewServer(o Options) *Server {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Prefs == nil {
		o.Prefs = prefs.NewMemoryStore()
	}
	if o.DefaultTheme == "" {
		o.DefaultTheme = prefs.Light
	}
	if len(o.AllowedOrigins) == 0 {
		o.AllowedOrigins = []string{"*"}
	}
	s := &Server{
		svc:          o.Service,
		issuer:       o.Issuer,
		prefs:        o.Prefs,
		defaultTheme: o.DefaultTheme,
		hub:          o.Hub,
		logger:       o.Logger,
		mux:          mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	s.handler = cors.Handler(cors.Options{
		AllowedOrigins: o.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	})(s.mux)
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws", s.handleWS)

	api := s.mux.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/auth/otp", s.handleSendOTP).Methods("POST")
	api.HandleFunc("/auth/verify", s.handleVerify).Methods("POST")
	api.HandleFunc("/theme", s.handleTheme).Methods("GET")
	api.HandleFunc("/theme/toggle", s.handleThemeToggle).Methods("POST")

	p := api.NewRoute().Subrouter()
	p.Use(s.issuer.RequireAuth(s.accept))
	p.HandleFunc("/auth/logout", s.handleLogout).Methods("POST")
	p.HandleFunc("/state", s.view(s.svc.View)).Methods("GET")
	p.HandleFunc("/bikes", s.handleBikes).Methods("GET")
	p.HandleFunc("/bikes/retry", s.view(s.svc.RetryInventory)).Methods("POST")
	p.HandleFunc("/bikes/{id:[0-9]+}/select", s.handleSelect).Methods("POST")
	p.HandleFunc("/selection/close", s.view(s.svc.CloseBike)).Methods("POST")
	p.HandleFunc("/unlock", s.view(s.svc.Unlock)).Methods("POST")
	p.HandleFunc("/scan", s.view(s.svc.ScanSucceeded)).Methods("POST")
	p.HandleFunc("/scan/cancel", s.view(s.svc.CancelScan)).Methods("POST")
	p.HandleFunc("/ride/end", s.view(s.svc.EndRide)).Methods("POST")
	p.HandleFunc("/ride/pay", s.view(s.svc.Pay)).Methods("POST")
	p.HandleFunc("/ride/summary/close", s.view(s.svc.CloseSummary)).Methods("POST")
	p.HandleFunc("/destination", s.handleSetDestination).Methods("PUT")
	p.HandleFunc("/destination/search", s.handleSearchDestination).Methods("POST")
	p.HandleFunc("/destination", s.view(s.svc.ClearDestination)).Methods("DELETE")
	p.HandleFunc("/history", s.handleHistory).Methods("GET")
	p.HandleFunc("/stats", s.handleStats).Methods("GET")
	p.HandleFunc("/settings/notifications", s.handleNotifications).Methods("PUT")
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.handler.ServeHTTP(w, r) }

// Broadcast pushes a state snapshot to every websocket client.
func (s *Server) Broadcast(v ride.View) {
	if s.hub != nil {
		s.hub.Broadcast(v)
	}
}

func (s *Server) accept(c *auth.Claims) bool {
	id := s.active.Load()
	return id != nil && *id == c.ID
}

func (s *Server) view(op func(context.Context) (ride.View, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := op(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func (s *Server) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone string `json:"phone"`
	}
	if !decode(w, r, &req) {
		return
	}
	v, err := s.svc.SendOTP(r.Context(), req.Phone)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, v)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if !decode(w, r, &req) {
		return
	}
	token, v, err := s.svc.VerifyOTP(r.Context(), req.Code)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	claims, err := s.issuer.Validate(token)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id := claims.ID
	s.active.Store(&id)
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "state": v})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	v, err := s.svc.Logout(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.active.Store(nil)
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleBikes(w http.ResponseWriter, r *http.Request) {
	v, err := s.svc.View(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v.Inventory)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid bike id"})
		return
	}
	s.view(func(ctx context.Context) (ride.View, error) { return s.svc.SelectBike(ctx, id) })(w, r)
}

func (s *Server) handleSetDestination(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Lat     *float64 `json:"lat"`
		Lng     *float64 `json:"lng"`
		Address string   `json:"address"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Lat == nil || req.Lng == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "lat and lng are required"})
		return
	}
	loc := models.Coord{Lat: *req.Lat, Lng: *req.Lng}
	s.view(func(ctx context.Context) (ride.View, error) { return s.svc.SetDestination(ctx, loc, req.Address) })(w, r)
}

func (s *Server) handleSearchDestination(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.view(func(ctx context.Context) (ride.View, error) { return s.svc.SearchDestination(ctx, req.Query) })(w, r)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.view(func(ctx context.Context) (ride.View, error) { return s.svc.SetNotifications(ctx, req.Enabled) })(w, r)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"rides": s.svc.History()})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"stats": s.svc.Stats(), "recent": s.svc.Recent(3)})
}

func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	t, err := s.prefs.Get(r.Context(), s.defaultTheme)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{prefs.Key: string(t)})
}

func (s *Server) handleThemeToggle(w http.ResponseWriter, r *http.Request) {
	t, err := prefs.Toggle(r.Context(), s.prefs, s.defaultTheme)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{prefs.Key: string(t)})
}

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

// handleWS accepts the bearer token in the Authorization header or, for
// browsers, as the token query parameter.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("token")
	if h := r.Header.Get("Authorization"); len(h) > 7 && h[:7] == "Bearer " {
		raw = h[7:]
	}
	claims, err := s.issuer.Validate(raw)
	if err != nil || !s.accept(claims) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	if s.hub == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "live updates disabled"})
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	sess := s.hub.Add(conn)
	if v, err := s.svc.View(r.Context()); err == nil {
		s.hub.Broadcast(v)
	}
	go s.hub.Serve(sess)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, backend.ErrInvalidOTP), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, ride.ErrUnknownBike):
		return http.StatusNotFound
	case errors.Is(err, ride.ErrInvalidPhone), errors.Is(err, ride.ErrInvalidCode),
		errors.Is(err, ride.ErrEmptyQuery), errors.Is(err, prefs.ErrInvalidTheme):
		return http.StatusBadRequest
	case errors.Is(err, ride.ErrNoGeocoder):
		return http.StatusNotImplemented
	case errors.Is(err, ride.ErrLoopClosed), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	case ride.IsClientError(err):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
