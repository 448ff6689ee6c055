package ws

import (
	"warchief/server/internal/macro"
	"warchief/server/internal/storage"
)

// ProtocolVersion is stamped on every server message.
const ProtocolVersion = 1

const (
	msgList     = "list"
	msgStart    = "start"
	msgStop     = "stop"
	msgStatus   = "status"
	msgEstimate = "estimate"
	msgSave     = "save"
	msgDelete   = "delete"

	msgMacros = "macros"
	msgAck    = "ack"
	msgError  = "error"
)

// Error codes sent in error messages.
const (
	CodeMalformed      = "malformed"
	CodeUnknownType    = "unknown_type"
	CodeNotFound       = "not_found"
	CodeInvalidMacro   = "invalid_macro"
	CodeStorageFailure = "storage_failure"
)

type clientMessage struct {
	Ver     int             `json:"ver,omitempty"`
	Type    string          `json:"type"`
	Seq     uint64          `json:"seq,omitempty"`
	MacroID string          `json:"macroId,omitempty"`
	Macro   *storage.Record `json:"macro,omitempty"`
}

type macrosMessage struct {
	Ver    int            `json:"ver"`
	Type   string         `json:"type"`
	Seq    uint64         `json:"seq,omitempty"`
	Macros []macroSummary `json:"macros"`
}

type macroSummary struct {
	storage.Record
	EstimatedSeconds *float64 `json:"estimatedSeconds,omitempty"`
}

type ackMessage struct {
	Ver     int    `json:"ver"`
	Type    string `json:"type"`
	Seq     uint64 `json:"seq,omitempty"`
	Command string `json:"command"`
	MacroID string `json:"macroId,omitempty"`
}

type statusMessage struct {
	Ver     int              `json:"ver"`
	Type    string           `json:"type"`
	Seq     uint64           `json:"seq,omitempty"`
	Running bool             `json:"running"`
	Run     *macro.RunStatus `json:"run,omitempty"`
	Tick    uint64           `json:"tick"`
}

// estimateMessage leaves Seconds empty for unbounded loops.
type estimateMessage struct {
	Ver     int      `json:"ver"`
	Type    string   `json:"type"`
	Seq     uint64   `json:"seq,omitempty"`
	MacroID string   `json:"macroId"`
	Seconds *float64 `json:"seconds,omitempty"`
	Bounded bool     `json:"bounded"`
}

type errorMessage struct {
	Ver     int    `json:"ver"`
	Type    string `json:"type"`
	Seq     uint64 `json:"seq,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Retry   bool   `json:"retry,omitempty"`
}
