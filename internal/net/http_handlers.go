package net

import (
	"encoding/json"
	"log"
	nethttp "net/http"
	"net/http/pprof"
	"time"

	"warchief/server/internal/macro"
	"warchief/server/internal/net/ws"
	"warchief/server/internal/telemetry"
)

// RunTable exposes the published run statuses.
type RunTable interface {
	Statuses() []macro.RunStatus
	LastTick() uint64
}

type HTTPHandlerConfig struct {
	Runs      RunTable
	WS        *ws.Handler
	Counters  *telemetry.Counters
	TickRate  int
	Abilities []string
	Logger    *log.Logger

	// EnablePprof mounts the runtime profiler under /debug/pprof/.
	EnablePprof bool
}

func NewHTTPHandler(cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		payload := struct {
			Status     string            `json:"status"`
			ServerTime int64             `json:"serverTime"`
			Tick       uint64            `json:"tick"`
			TickRate   int               `json:"tickRate"`
			Runs       []macro.RunStatus `json:"runs"`
			Abilities  []string          `json:"abilities,omitempty"`
			Telemetry  map[string]uint64 `json:"telemetry"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			TickRate:   cfg.TickRate,
			Runs:       []macro.RunStatus{},
			Abilities:  cfg.Abilities,
			Telemetry:  cfg.Counters.Snapshot(),
		}
		if cfg.Runs != nil {
			payload.Tick = cfg.Runs.LastTick()
			payload.Runs = cfg.Runs.Statuses()
		}

		data, err := json.Marshal(payload)
		if err != nil {
			logger.Printf("failed to encode diagnostics: %v", err)
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	if cfg.WS != nil {
		mux.HandleFunc("/ws", cfg.WS.Handle)
	}

	if cfg.EnablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
		logger.Printf("pprof endpoints enabled under /debug/pprof/")
	}

	return mux
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
