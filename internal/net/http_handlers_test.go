package net

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"warchief/server/internal/macro"
	"warchief/server/internal/telemetry"
)

type fakeRuns struct {
	statuses []macro.RunStatus
	tick     uint64
}

func (f fakeRuns) Statuses() []macro.RunStatus { return f.statuses }
func (f fakeRuns) LastTick() uint64            { return f.tick }

func TestHealth(t *testing.T) {
	handler := NewHTTPHandler(HTTPHandlerConfig{})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))
	if resp.Code != http.StatusOK || resp.Body.String() != "ok" {
		t.Fatalf("unexpected health response %d %q", resp.Code, resp.Body.String())
	}
}

func TestDiagnosticsReportsRuns(t *testing.T) {
	var counters telemetry.Counters
	counters.Store("sim_active_runs", 1)
	handler := NewHTTPHandler(HTTPHandlerConfig{
		Runs: fakeRuns{
			statuses: []macro.RunStatus{{CharacterID: "hero", MacroID: "burst", Phase: macro.PhaseCasting, Steps: 3}},
			tick:     42,
		},
		Counters: &counters,
		TickRate: 10,
	})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/diagnostics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected json content type, got %q", ct)
	}

	var payload struct {
		Tick     uint64 `json:"tick"`
		TickRate int    `json:"tickRate"`
		Runs     []struct {
			CharacterID string `json:"characterId"`
			Phase       string `json:"phase"`
		} `json:"runs"`
		Telemetry map[string]uint64 `json:"telemetry"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Tick != 42 || payload.TickRate != 10 {
		t.Fatalf("unexpected diagnostics header %+v", payload)
	}
	if len(payload.Runs) != 1 || payload.Runs[0].CharacterID != "hero" || payload.Runs[0].Phase != "casting" {
		t.Fatalf("unexpected runs %+v", payload.Runs)
	}
	if payload.Telemetry["sim_active_runs"] != 1 {
		t.Fatalf("expected telemetry to be included, got %v", payload.Telemetry)
	}
}

func TestDiagnosticsRejectsPost(t *testing.T) {
	handler := NewHTTPHandler(HTTPHandlerConfig{})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/diagnostics", nil))
	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}
}

func TestWebsocketRouteIsOptional(t *testing.T) {
	handler := NewHTTPHandler(HTTPHandlerConfig{})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/ws?character=hero", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without a websocket handler, got %d", resp.Code)
	}
}

func TestPprofIsOptIn(t *testing.T) {
	off := NewHTTPHandler(HTTPHandlerConfig{})
	resp := httptest.NewRecorder()
	off.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected pprof to be hidden by default, got %d", resp.Code)
	}

	on := NewHTTPHandler(HTTPHandlerConfig{EnablePprof: true})
	resp = httptest.NewRecorder()
	on.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected pprof index when enabled, got %d", resp.Code)
	}
}
