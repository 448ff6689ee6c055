package macro

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"warchief/server/logging"
	macrolog "warchief/server/logging/macro"
)

// ErrNoCharacter is returned when Start is called without a character slot.
var ErrNoCharacter = errors.New("character id is required")

// EngineConfig carries the optional collaborators of an Engine.
type EngineConfig struct {
	Publisher logging.Publisher
}

// Engine owns at most one Run per character slot and advances every active
// Run once per Tick.
//
// An Engine is not safe for concurrent use. The host loop owns it and is the
// only caller of Start, Stop and Tick; collaborators passed to Tick must not
// call back into the Engine.
//
// A Run stalled on a cast that keeps failing keeps retrying until its step
// condition stops holding, the cast succeeds, or Stop is called. There is no
// attempt bound; Status reports the attempt count so a host can decide.
type Engine struct {
	runs      map[string]*Run
	publisher logging.Publisher
	tick      uint64
}

func NewEngine(cfg EngineConfig) *Engine {
	pub := cfg.Publisher
	if pub == nil {
		pub = logging.NopPublisher()
	}
	return &Engine{
		runs:      make(map[string]*Run),
		publisher: pub,
	}
}

// Start begins playing def for characterID, discarding any run the slot
// already holds. Definitions without steps are refused and leave the slot
// untouched.
func (e *Engine) Start(characterID string, def Definition) error {
	ctx := context.Background()
	if characterID == "" {
		return ErrNoCharacter
	}
	if len(def.Steps) == 0 {
		macrolog.Rejected(ctx, e.publisher, e.tick, characterID, macrolog.RejectedPayload{MacroID: def.ID, Reason: ErrNoSteps.Error()})
		return fmt.Errorf("start macro %q for %s: %w", def.ID, characterID, ErrNoSteps)
	}
	if previous, ok := e.runs[characterID]; ok {
		delete(e.runs, characterID)
		macrolog.Replaced(ctx, e.publisher, e.tick, characterID, runPayload(previous.def))
	}
	run := newRun(characterID, def)
	e.runs[characterID] = run
	macrolog.Started(ctx, e.publisher, e.tick, characterID, runPayload(run.def))
	return nil
}

// Stop cancels the slot's run. It reports whether a run was cancelled.
func (e *Engine) Stop(characterID string) bool {
	run, ok := e.runs[characterID]
	if !ok {
		return false
	}
	run.cancel()
	delete(e.runs, characterID)
	macrolog.Stopped(context.Background(), e.publisher, e.tick, characterID, runPayload(run.def))
	return true
}

// IsRunning reports whether the slot holds a non-terminal run.
func (e *Engine) IsRunning(characterID string) bool {
	run, ok := e.runs[characterID]
	return ok && !run.phase.Terminal()
}

// Status returns the state of the slot's run.
func (e *Engine) Status(characterID string) (RunStatus, bool) {
	run, ok := e.runs[characterID]
	if !ok {
		return RunStatus{}, false
	}
	return run.status(), true
}

// Runs lists every active run ordered by character id.
func (e *Engine) Runs() []RunStatus {
	statuses := make([]RunStatus, 0, len(e.runs))
	for _, id := range e.characterIDs() {
		statuses = append(statuses, e.runs[id].status())
	}
	return statuses
}

// Len reports the number of active runs.
func (e *Engine) Len() int {
	return len(e.runs)
}

// Ticks reports how many times Tick has been called.
func (e *Engine) Ticks() uint64 {
	return e.tick
}

// Tick advances every active run by dt seconds. Each run reads a snapshot
// fetched for its own character; runs that reach a terminal phase are
// removed before Tick returns.
func (e *Engine) Tick(dt float64, snapshots SnapshotProvider, cast CastFunc) {
	e.tick++
	if len(e.runs) == 0 {
		return
	}
	ctx := context.Background()
	for _, id := range e.characterIDs() {
		run := e.runs[id]
		var snap Snapshot
		if snapshots != nil {
			snap = snapshots(id)
		}
		run.advance(dt, snap, cast, func(ev runEvent) {
			e.report(ctx, run, ev)
		})
		if run.phase.Terminal() {
			delete(e.runs, id)
		}
	}
}

func (e *Engine) characterIDs() []string {
	ids := make([]string, 0, len(e.runs))
	for id := range e.runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (e *Engine) report(ctx context.Context, run *Run, ev runEvent) {
	switch ev.kind {
	case runStepSkipped:
		macrolog.StepSkipped(ctx, e.publisher, e.tick, run.characterID, stepPayload(run, ev))
	case runCastIssued:
		macrolog.CastIssued(ctx, e.publisher, e.tick, run.characterID, stepPayload(run, ev))
	case runCastRetry:
		macrolog.CastRetry(ctx, e.publisher, e.tick, run.characterID, stepPayload(run, ev))
	case runCompleted:
		macrolog.Completed(ctx, e.publisher, e.tick, run.characterID, macrolog.CompletedPayload{
			MacroID:    run.def.ID,
			Iterations: run.iteration,
			Casts:      run.casts,
			Elapsed:    run.elapsed,
		})
	}
}

func runPayload(def Definition) macrolog.RunPayload {
	return macrolog.RunPayload{
		MacroID:   def.ID,
		MacroName: def.Name,
		Steps:     len(def.Steps),
		Loop:      def.Loop,
		LoopCount: def.LoopCount,
	}
}

func stepPayload(run *Run, ev runEvent) macrolog.StepPayload {
	payload := macrolog.StepPayload{
		MacroID:   run.def.ID,
		StepIndex: ev.stepIndex,
		Iteration: run.iteration,
		Condition: string(ev.step.Condition()),
		Ability:   ev.step.AbilityID(),
	}
	if ev.kind == runCastIssued || ev.kind == runCastRetry {
		payload.Result = ev.result.String()
		payload.Attempts = run.attempts
	}
	return payload
}
