package macro

import (
	"context"

	"warchief/server/logging"
)

const (
	// EventStarted is emitted when a run is created for a character slot.
	EventStarted logging.EventType = "macro.started"
	// EventReplaced is emitted when a start discards the slot's previous run.
	EventReplaced logging.EventType = "macro.replaced"
	// EventRejected is emitted when a start request cannot create a run.
	EventRejected logging.EventType = "macro.rejected"
	// EventStopped is emitted when a run is cancelled explicitly.
	EventStopped logging.EventType = "macro.stopped"
	// EventStepSkipped is emitted when a step's condition does not hold.
	EventStepSkipped logging.EventType = "macro.step_skipped"
	// EventCastIssued is emitted when the ability subsystem accepts a cast.
	EventCastIssued logging.EventType = "macro.cast_issued"
	// EventCastRetry is emitted when a cast attempt fails and will be retried.
	EventCastRetry logging.EventType = "macro.cast_retry"
	// EventCompleted is emitted when a run plays its last pass.
	EventCompleted logging.EventType = "macro.completed"
)

// RunPayload identifies the macro a run is playing.
type RunPayload struct {
	MacroID   string `json:"macroId"`
	MacroName string `json:"macroName,omitempty"`
	Steps     int    `json:"steps,omitempty"`
	Loop      bool   `json:"loop,omitempty"`
	LoopCount int    `json:"loopCount,omitempty"`
}

// RejectedPayload explains why a start request failed.
type RejectedPayload struct {
	MacroID string `json:"macroId"`
	Reason  string `json:"reason"`
}

// StepPayload locates a step inside a run.
type StepPayload struct {
	MacroID   string `json:"macroId"`
	StepIndex int    `json:"stepIndex"`
	Iteration int    `json:"iteration"`
	Condition string `json:"condition,omitempty"`
	Ability   string `json:"ability,omitempty"`
	Result    string `json:"result,omitempty"`
	Attempts  int    `json:"attempts,omitempty"`
}

// CompletedPayload summarises a finished run.
type CompletedPayload struct {
	MacroID    string  `json:"macroId"`
	Iterations int     `json:"iterations"`
	Casts      int     `json:"casts"`
	Elapsed    float64 `json:"elapsedSeconds"`
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, severity logging.Severity, tick uint64, characterID string, payload any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Tick:     tick,
		Actor:    logging.Character(characterID),
		Severity: severity,
		Category: logging.CategoryMacro,
		Payload:  payload,
	})
}

func Started(ctx context.Context, pub logging.Publisher, tick uint64, characterID string, payload RunPayload) {
	publish(ctx, pub, EventStarted, logging.SeverityInfo, tick, characterID, payload)
}

func Replaced(ctx context.Context, pub logging.Publisher, tick uint64, characterID string, payload RunPayload) {
	publish(ctx, pub, EventReplaced, logging.SeverityInfo, tick, characterID, payload)
}

func Rejected(ctx context.Context, pub logging.Publisher, tick uint64, characterID string, payload RejectedPayload) {
	publish(ctx, pub, EventRejected, logging.SeverityWarn, tick, characterID, payload)
}

func Stopped(ctx context.Context, pub logging.Publisher, tick uint64, characterID string, payload RunPayload) {
	publish(ctx, pub, EventStopped, logging.SeverityInfo, tick, characterID, payload)
}

func StepSkipped(ctx context.Context, pub logging.Publisher, tick uint64, characterID string, payload StepPayload) {
	publish(ctx, pub, EventStepSkipped, logging.SeverityDebug, tick, characterID, payload)
}

func CastIssued(ctx context.Context, pub logging.Publisher, tick uint64, characterID string, payload StepPayload) {
	publish(ctx, pub, EventCastIssued, logging.SeverityInfo, tick, characterID, payload)
}

// CastRetry is debug severity: a stalled run emits one per tick.
func CastRetry(ctx context.Context, pub logging.Publisher, tick uint64, characterID string, payload StepPayload) {
	publish(ctx, pub, EventCastRetry, logging.SeverityDebug, tick, characterID, payload)
}

func Completed(ctx context.Context, pub logging.Publisher, tick uint64, characterID string, payload CompletedPayload) {
	publish(ctx, pub, EventCompleted, logging.SeverityInfo, tick, characterID, payload)
}
