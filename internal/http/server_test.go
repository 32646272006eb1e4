package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/ebike-ride/internal/auth"
	"github.com/example/ebike-ride/internal/backend"
	"github.com/example/ebike-ride/internal/geo"
	"github.com/example/ebike-ride/internal/history"
	"github.com/example/ebike-ride/internal/inventory"
	"github.com/example/ebike-ride/internal/models"
	"github.com/example/ebike-ride/internal/prefs"
	"github.com/example/ebike-ride/internal/ride"
	"github.com/example/ebike-ride/internal/routing"
)

var t0 = time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC)

type apiView struct {
	State     string `json:"state"`
	Inventory struct {
		Total int `json:"total"`
	} `json:"inventory"`
	Session *models.RideSession `json:"session"`
	Payment struct {
		Status string `json:"status"`
	} `json:"payment"`
	Destination   *ride.Destination `json:"destination"`
	Notifications bool              `json:"notifications"`
}

type testServer struct {
	srv   *Server
	sched *ride.ManualScheduler
	token string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sched := ride.NewManualScheduler(t0)
	issuer, err := auth.NewIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	stub, err := backend.NewStub(backend.Options{Issuer: issuer, Logger: logger, Now: sched.Now})
	if err != nil {
		t.Fatal(err)
	}
	svc, err := ride.NewService(sched, ride.Deps{
		Backend:  stub,
		Router:   routing.StraightLine{WalkingKmh: 5, BicyclingKmh: 15},
		Geocoder: routing.CampusGazetteer(),
		Locator:  geo.Fixed(inventory.Center),
		History:  history.NewBook(),
		Location: time.UTC,
		Logger:   logger,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	srv := NewServer(Options{
		Service: svc,
		Issuer:  issuer,
		Prefs:   prefs.NewMemoryStore(),
		Logger:  logger,
	})
	return &testServer{srv: srv, sched: sched}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if ts.token != "" {
		req.Header.Set("Authorization", "Bearer "+ts.token)
	}
	rec := httptest.NewRecorder()
	ts.srv.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) view(t *testing.T, method, path string, body any, wantStatus int) apiView {
	t.Helper()
	rec := ts.do(t, method, path, body)
	if rec.Code != wantStatus {
		t.Fatalf("%s %s: expected %d, got %d: %s", method, path, wantStatus, rec.Code, rec.Body.String())
	}
	var v apiView
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("%s %s: decode: %v", method, path, err)
	}
	return v
}

func (ts *testServer) login(t *testing.T) {
	t.Helper()
	ts.view(t, "POST", "/api/v1/auth/otp", map[string]string{"phone": "01712345678"}, http.StatusAccepted)
	rec := ts.do(t, "POST", "/api/v1/auth/verify", map[string]string{"code": backend.DefaultOTP})
	if rec.Code != http.StatusOK {
		t.Fatalf("verify: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string  `json:"token"`
		State apiView `json:"state"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Token == "" || resp.State.State != "logged_in" {
		t.Fatalf("unexpected verify response %+v", resp)
	}
	ts.token = resp.Token
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, "GET", "/healthz", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("unexpected healthz %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected a request id header")
	}
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	ts := newTestServer(t)
	if rec := ts.do(t, "GET", "/api/v1/state", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	ts.token = "garbage"
	if rec := ts.do(t, "GET", "/api/v1/state", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a bad token, got %d", rec.Code)
	}
}

func TestLoginErrors(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{"verify before otp", "/api/v1/auth/verify", map[string]string{"code": "123456"}, http.StatusConflict},
		{"short phone", "/api/v1/auth/otp", map[string]string{"phone": "12"}, http.StatusBadRequest},
		{"bad json", "/api/v1/auth/otp", "not an object", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := ts.do(t, "POST", tt.path, tt.body); rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
		})
	}

	ts.view(t, "POST", "/api/v1/auth/otp", map[string]string{"phone": "01712345678"}, http.StatusAccepted)
	if rec := ts.do(t, "POST", "/api/v1/auth/verify", map[string]string{"code": "654321"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a wrong otp, got %d", rec.Code)
	}
	if rec := ts.do(t, "POST", "/api/v1/auth/verify", map[string]string{"code": "12ab"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a malformed otp, got %d", rec.Code)
	}
}

func TestRideThroughAPI(t *testing.T) {
	ts := newTestServer(t)
	ts.login(t)

	v := ts.view(t, "GET", "/api/v1/state", nil, http.StatusOK)
	if v.Inventory.Total != 5 {
		t.Fatalf("expected 5 bikes, got %d", v.Inventory.Total)
	}
	if rec := ts.do(t, "POST", "/api/v1/unlock", nil); rec.Code != http.StatusConflict {
		t.Fatalf("unlock without a selection should conflict, got %d", rec.Code)
	}
	if rec := ts.do(t, "POST", "/api/v1/bikes/99/select", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown bike should 404, got %d", rec.Code)
	}

	ts.view(t, "POST", "/api/v1/bikes/1/select", nil, http.StatusOK)
	ts.view(t, "POST", "/api/v1/unlock", nil, http.StatusOK)
	v = ts.view(t, "POST", "/api/v1/scan", nil, http.StatusOK)
	if v.State != "in_ride" {
		t.Fatalf("expected in_ride, got %s", v.State)
	}

	ts.sched.Advance(30 * time.Second)
	v = ts.view(t, "POST", "/api/v1/ride/end", nil, http.StatusOK)
	if v.State != "ride_ended" || v.Session == nil || v.Session.ElapsedSeconds != 30 {
		t.Fatalf("unexpected summary %+v", v)
	}
	v = ts.view(t, "POST", "/api/v1/ride/pay", nil, http.StatusOK)
	if v.Payment.Status != "success" {
		t.Fatalf("expected paid, got %s", v.Payment.Status)
	}
	if rec := ts.do(t, "POST", "/api/v1/ride/pay", nil); rec.Code != http.StatusConflict {
		t.Fatalf("second payment should conflict, got %d", rec.Code)
	}
	v = ts.view(t, "POST", "/api/v1/ride/summary/close", nil, http.StatusOK)
	if v.State != "logged_in" {
		t.Fatalf("expected logged_in after closing, got %s", v.State)
	}

	rec := ts.do(t, "GET", "/api/v1/history", nil)
	var hist struct {
		Rides []models.PastRideRecord `json:"rides"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &hist); err != nil || len(hist.Rides) != 1 {
		t.Fatalf("expected one ride in history, got %s", rec.Body.String())
	}
	rec = ts.do(t, "GET", "/api/v1/stats", nil)
	var stats struct {
		Stats  history.Stats           `json:"stats"`
		Recent []models.PastRideRecord `json:"recent"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil || stats.Stats.TotalRides != 1 || len(stats.Recent) != 1 {
		t.Fatalf("unexpected stats %s", rec.Body.String())
	}
}

func TestDestinationAndSettings(t *testing.T) {
	ts := newTestServer(t)
	ts.login(t)

	if rec := ts.do(t, "PUT", "/api/v1/destination", map[string]string{"address": "nowhere"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing coordinates should 400, got %d", rec.Code)
	}
	v := ts.view(t, "POST", "/api/v1/destination/search", map[string]string{"query": "curzon"}, http.StatusOK)
	if v.Destination == nil || v.Destination.Address != "Curzon Hall, Dhaka University" {
		t.Fatalf("unexpected destination %+v", v.Destination)
	}
	if rec := ts.do(t, "POST", "/api/v1/destination/search", map[string]string{"query": "  "}); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty query should 400, got %d", rec.Code)
	}
	v = ts.view(t, "DELETE", "/api/v1/destination", nil, http.StatusOK)
	if v.Destination != nil {
		t.Fatal("destination should be cleared")
	}
	v = ts.view(t, "PUT", "/api/v1/destination", map[string]any{"lat": 23.73, "lng": 90.39, "address": "pin"}, http.StatusOK)
	if v.Destination == nil || v.Destination.Address != "pin" {
		t.Fatalf("unexpected destination %+v", v.Destination)
	}
	v = ts.view(t, "PUT", "/api/v1/settings/notifications", map[string]bool{"enabled": false}, http.StatusOK)
	if v.Notifications {
		t.Fatal("notifications should be off")
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	ts := newTestServer(t)
	ts.login(t)
	old := ts.token

	v := ts.view(t, "POST", "/api/v1/auth/logout", nil, http.StatusOK)
	if v.State != "logged_out" {
		t.Fatalf("expected logged_out, got %s", v.State)
	}
	if rec := ts.do(t, "GET", "/api/v1/state", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("token should be revoked, got %d", rec.Code)
	}

	ts.token = ""
	ts.login(t)
	if ts.token == old {
		t.Fatal("expected a fresh token")
	}
	ts.token = old
	if rec := ts.do(t, "GET", "/api/v1/state", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("previous token should stay revoked, got %d", rec.Code)
	}
}

func TestThemeToggle(t *testing.T) {
	ts := newTestServer(t)
	read := func(rec *httptest.ResponseRecorder) string {
		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}
		return body[prefs.Key]
	}
	if got := read(ts.do(t, "GET", "/api/v1/theme", nil)); got != string(prefs.Light) {
		t.Fatalf("expected light by default, got %q", got)
	}
	if got := read(ts.do(t, "POST", "/api/v1/theme/toggle", nil)); got != string(prefs.Dark) {
		t.Fatalf("expected dark after toggle, got %q", got)
	}
	if got := read(ts.do(t, "GET", "/api/v1/theme", nil)); got != string(prefs.Dark) {
		t.Fatalf("expected dark to persist, got %q", got)
	}
}

func TestWebsocketNeedsActiveToken(t *testing.T) {
	ts := newTestServer(t)
	if rec := ts.do(t, "GET", "/ws?token=nope", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestCORSHeaders(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest("GET", "/healthz", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	ts.srv.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard origin, got %q", got)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{backend.ErrInvalidOTP, http.StatusUnauthorized},
		{ride.ErrUnknownBike, http.StatusNotFound},
		{ride.ErrInvalidPhone, http.StatusBadRequest},
		{ride.ErrInvalidTransition, http.StatusConflict},
		{ride.ErrBusy, http.StatusConflict},
		{context.DeadlineExceeded, http.StatusServiceUnavailable},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestVerifyAbortedByClientCanBeRetried(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	loop := ride.NewLoop(logger, 0)
	t.Cleanup(loop.Close)
	issuer, err := auth.NewIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	stub, err := backend.NewStub(backend.Options{Issuer: issuer, Latency: 100 * time.Millisecond, Logger: logger})
	if err != nil {
		t.Fatal(err)
	}
	svc, err := ride.NewService(loop, ride.Deps{
		Backend:  stub,
		Locator:  geo.Fixed(inventory.Center),
		Location: time.UTC,
		Logger:   logger,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	ts := &testServer{srv: NewServer(Options{Service: svc, Issuer: issuer, Logger: logger})}

	ts.view(t, "POST", "/api/v1/auth/otp", map[string]string{"phone": "01712345678"}, http.StatusAccepted)
	deadline := time.Now().Add(2 * time.Second)
	for {
		v, err := svc.View(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if v.Auth.OTPRequested {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("otp was never requested")
		}
		time.Sleep(5 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest("POST", "/api/v1/auth/verify", bytes.NewBufferString(`{"code":"123456"}`)).WithContext(ctx)
	rec := httptest.NewRecorder()
	ts.srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for an aborted verify, got %d: %s", rec.Code, rec.Body.String())
	}

	// Let the abandoned backend call come back, then enter the code again.
	time.Sleep(150 * time.Millisecond)
	rec = ts.do(t, "POST", "/api/v1/auth/verify", map[string]string{"code": backend.DefaultOTP})
	if rec.Code != http.StatusOK {
		t.Fatalf("retry verify: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Fatalf("expected a token, got %s", rec.Body.String())
	}
	ts.token = resp.Token
	v := ts.view(t, "POST", "/api/v1/auth/logout", nil, http.StatusOK)
	if v.State != "logged_out" {
		t.Fatalf("expected logged_out, got %s", v.State)
	}
}
