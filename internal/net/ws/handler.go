// Package ws serves the macro authoring and playback protocol over websockets.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	nethttp "net/http"
	"time"

	"github.com/gorilla/websocket"

	"warchief/server/internal/macro"
	"warchief/server/internal/sim"
	"warchief/server/internal/storage"
	"warchief/server/internal/telemetry"
)

// Loop is the part of the simulation loop a session talks to. Sessions never
// touch the engine directly.
type Loop interface {
	Enqueue(cmd sim.Command) (bool, string)
	Status(characterID string) (macro.RunStatus, bool)
	LastTick() uint64
}

type HandlerConfig struct {
	Store storage.Store
	Loop  Loop
	// Characters reports whether a character slot exists. Nil accepts any
	// well-formed id.
	Characters func(characterID string) bool
	// GCDSeconds is the global cooldown used for duration estimates.
	GCDSeconds float64
	Logger     telemetry.Logger
	Metrics    telemetry.Metrics
	// StoreTimeout bounds each storage call. Zero means five seconds.
	StoreTimeout time.Duration
}

type Handler struct {
	cfg      HandlerConfig
	logger   telemetry.Logger
	metrics  telemetry.Metrics
	upgrader websocket.Upgrader
	now      func() time.Time
}

func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}
	return &Handler{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *nethttp.Request) bool {
				return true
			},
		},
		now: time.Now,
	}
}

// Handle upgrades /ws?character=<id> and serves the session until the client
// disconnects.
func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	characterID := r.URL.Query().Get("character")
	if err := storage.CheckID(characterID); err != nil {
		nethttp.Error(w, "missing or invalid character", nethttp.StatusBadRequest)
		return
	}
	if h.cfg.Characters != nil && !h.cfg.Characters(characterID) {
		nethttp.Error(w, "unknown character", nethttp.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", characterID, err)
		return
	}
	h.metrics.Add("ws_sessions_total", 1)
	h.Serve(r.Context(), characterID, conn)
}

// Serve runs the read loop of one session. Replies are written from the same
// goroutine, so a connection never has concurrent writers.
func (h *Handler) Serve(ctx context.Context, characterID string, conn *websocket.Conn) {
	defer conn.Close()
	s := &session{handler: h, characterID: characterID, conn: conn}
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Printf("session %s closed: %v", characterID, err)
			}
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			h.logger.Printf("discarding malformed message from %s: %v", characterID, err)
			if !s.writeError(0, CodeMalformed, "message is not valid JSON", false) {
				return
			}
			continue
		}
		h.metrics.Add("ws_messages_total", 1)
		if !s.dispatch(ctx, msg) {
			return
		}
	}
}

type session struct {
	handler     *Handler
	characterID string
	conn        *websocket.Conn
}

// dispatch handles one client message and reports whether the session can
// continue.
func (s *session) dispatch(ctx context.Context, msg clientMessage) bool {
	h := s.handler
	switch msg.Type {
	case msgList:
		storeCtx, cancel := context.WithTimeout(ctx, h.cfg.StoreTimeout)
		defer cancel()
		defs, err := h.cfg.Store.List(storeCtx, s.characterID)
		if err != nil {
			return s.writeStoreError(msg.Seq, err)
		}
		summaries := make([]macroSummary, 0, len(defs))
		for _, def := range defs {
			summary := macroSummary{Record: storage.Encode(def)}
			if seconds, ok := def.EstimatedDuration(h.cfg.GCDSeconds); ok {
				summary.EstimatedSeconds = &seconds
			}
			summaries = append(summaries, summary)
		}
		return s.writeJSON(macrosMessage{Ver: ProtocolVersion, Type: msgMacros, Seq: msg.Seq, Macros: summaries})

	case msgStart:
		def, found, alive := s.load(ctx, msg)
		if !found {
			return alive
		}
		if accepted, reason := h.cfg.Loop.Enqueue(sim.StartMacro(s.characterID, def, h.now())); !accepted {
			return s.writeError(msg.Seq, reason, "start was not queued", reason == sim.CommandRejectQueueLimit || reason == sim.CommandRejectQueueFull)
		}
		return s.writeJSON(ackMessage{Ver: ProtocolVersion, Type: msgAck, Seq: msg.Seq, Command: msgStart, MacroID: def.ID})

	case msgStop:
		if accepted, reason := h.cfg.Loop.Enqueue(sim.StopMacro(s.characterID, h.now())); !accepted {
			return s.writeError(msg.Seq, reason, "stop was not queued", reason == sim.CommandRejectQueueLimit || reason == sim.CommandRejectQueueFull)
		}
		return s.writeJSON(ackMessage{Ver: ProtocolVersion, Type: msgAck, Seq: msg.Seq, Command: msgStop})

	case msgStatus:
		reply := statusMessage{Ver: ProtocolVersion, Type: msgStatus, Seq: msg.Seq, Tick: h.cfg.Loop.LastTick()}
		if run, ok := h.cfg.Loop.Status(s.characterID); ok {
			reply.Running = !run.Phase.Terminal()
			reply.Run = &run
		}
		return s.writeJSON(reply)

	case msgEstimate:
		def, found, alive := s.load(ctx, msg)
		if !found {
			return alive
		}
		reply := estimateMessage{Ver: ProtocolVersion, Type: msgEstimate, Seq: msg.Seq, MacroID: def.ID}
		if seconds, bounded := def.EstimatedDuration(h.cfg.GCDSeconds); bounded {
			reply.Seconds = &seconds
			reply.Bounded = true
		}
		return s.writeJSON(reply)

	case msgSave:
		if msg.Macro == nil {
			return s.writeError(msg.Seq, CodeMalformed, "save requires a macro", false)
		}
		def, err := storage.Decode(*msg.Macro)
		if err != nil {
			return s.writeError(msg.Seq, CodeInvalidMacro, err.Error(), false)
		}
		storeCtx, cancel := context.WithTimeout(ctx, h.cfg.StoreTimeout)
		defer cancel()
		if err := h.cfg.Store.Save(storeCtx, s.characterID, def); err != nil {
			return s.writeStoreError(msg.Seq, err)
		}
		return s.writeJSON(ackMessage{Ver: ProtocolVersion, Type: msgAck, Seq: msg.Seq, Command: msgSave, MacroID: def.ID})

	case msgDelete:
		storeCtx, cancel := context.WithTimeout(ctx, h.cfg.StoreTimeout)
		defer cancel()
		if err := h.cfg.Store.Delete(storeCtx, s.characterID, msg.MacroID); err != nil {
			return s.writeStoreError(msg.Seq, err)
		}
		return s.writeJSON(ackMessage{Ver: ProtocolVersion, Type: msgAck, Seq: msg.Seq, Command: msgDelete, MacroID: msg.MacroID})

	default:
		return s.writeError(msg.Seq, CodeUnknownType, "unknown message type "+msg.Type, false)
	}
}

// load fetches the macro named by msg. When it is not found the error reply
// has been written and alive reports whether the session survived it.
func (s *session) load(ctx context.Context, msg clientMessage) (def macro.Definition, found, alive bool) {
	storeCtx, cancel := context.WithTimeout(ctx, s.handler.cfg.StoreTimeout)
	defer cancel()
	def, err := s.handler.cfg.Store.Get(storeCtx, s.characterID, msg.MacroID)
	if err != nil {
		return macro.Definition{}, false, s.writeStoreError(msg.Seq, err)
	}
	return def, true, true
}

func (s *session) writeStoreError(seq uint64, err error) bool {
	var invalid *macro.ValidationError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return s.writeError(seq, CodeNotFound, err.Error(), false)
	case errors.As(err, &invalid), errors.Is(err, storage.ErrInvalidID), errors.Is(err, storage.ErrInvalidRecord):
		return s.writeError(seq, CodeInvalidMacro, err.Error(), false)
	default:
		s.handler.logger.Printf("storage failure for %s: %v", s.characterID, err)
		return s.writeError(seq, CodeStorageFailure, "storage unavailable", true)
	}
}

func (s *session) writeError(seq uint64, code, message string, retry bool) bool {
	return s.writeJSON(errorMessage{Ver: ProtocolVersion, Type: msgError, Seq: seq, Code: code, Message: message, Retry: retry})
}

func (s *session) writeJSON(payload any) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		s.handler.logger.Printf("failed to marshal response for %s: %v", s.characterID, err)
		return true
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return false
	}
	return true
}
