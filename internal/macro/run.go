package macro

import "math"

// Phase is the state of a Run.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseEvaluating
	PhaseWaiting
	PhaseCasting
	PhaseCompleted
	PhaseCancelled
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseEvaluating:
		return "evaluating"
	case PhaseWaiting:
		return "waiting"
	case PhaseCasting:
		return "casting"
	case PhaseCompleted:
		return "completed"
	case PhaseCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// MarshalText renders the phase name in JSON payloads.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Terminal reports whether the phase ends the run.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseCancelled
}

// timeEpsilon absorbs float drift when summed tick deltas meet a step window.
const timeEpsilon = 1e-9

// maxTimedPassesPerTick caps how many passes that consumed time a looping run
// may finish inside one tick. Time still unspent at the cap is dropped.
const maxTimedPassesPerTick = 64

// Run is the playback state of one definition for one character slot. Runs
// are owned by an Engine and are not safe for concurrent use.
type Run struct {
	characterID string
	def         Definition

	phase     Phase
	stepIndex int
	iteration int
	// clock is the time spent in the current step's delay or wait window.
	clock float64

	passElapsed float64
	elapsed     float64
	attempts    int
	casts       int
}

func newRun(characterID string, def Definition) *Run {
	return &Run{
		characterID: characterID,
		def:         def.Clone(),
		phase:       PhaseEvaluating,
	}
}

type runEventKind uint8

const (
	runStepSkipped runEventKind = iota + 1
	runCastIssued
	runCastRetry
	runCompleted
)

type runEvent struct {
	kind      runEventKind
	stepIndex int
	step      Step
	result    CastResult
}

// advance runs the state machine for one tick until it cannot progress
// without more time, a fresh snapshot, or a new cast attempt. Time left over
// when a window closes flows into the following step. At most one cast is
// attempted per tick. Negative and non-finite deltas count as zero.
func (r *Run) advance(dt float64, snap Snapshot, cast CastFunc, notify func(runEvent)) {
	if r.phase.Terminal() {
		return
	}
	if r.phase == PhaseIdle {
		r.phase = PhaseEvaluating
	}
	if dt < 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		dt = 0
	}
	remaining := dt
	attempted := false
	timedPasses := 0

	for {
		switch r.phase {
		case PhaseEvaluating:
			if r.stepIndex >= len(r.def.Steps) {
				timed := r.passElapsed > timeEpsilon
				if !r.finishPass(notify) {
					return
				}
				if timed {
					timedPasses++
					if timedPasses >= maxTimedPassesPerTick {
						return
					}
				}
				continue
			}
			step := r.def.Steps[r.stepIndex]
			if !Evaluate(step.Condition(), snap) {
				r.emit(notify, runEvent{kind: runStepSkipped, stepIndex: r.stepIndex, step: step})
				r.nextStep()
				continue
			}
			switch step.Kind() {
			case StepWait:
				r.phase = PhaseWaiting
				r.clock = 0
			case StepAbilityCast:
				if !r.fill(step.window(), &remaining) {
					return
				}
				r.phase = PhaseCasting
			default:
				r.nextStep()
			}

		case PhaseWaiting:
			if !r.fill(r.def.Steps[r.stepIndex].window(), &remaining) {
				return
			}
			r.nextStep()

		case PhaseCasting:
			step := r.def.Steps[r.stepIndex]
			if !Evaluate(step.Condition(), snap) {
				r.phase = PhaseEvaluating
				continue
			}
			if attempted {
				return
			}
			attempted = true
			r.attempts++
			result := CastInvalid
			if cast != nil {
				result = cast(r.characterID, step.AbilityID())
			}
			if result != CastSuccess {
				r.emit(notify, runEvent{kind: runCastRetry, stepIndex: r.stepIndex, step: step, result: result})
				return
			}
			r.casts++
			r.emit(notify, runEvent{kind: runCastIssued, stepIndex: r.stepIndex, step: step, result: result})
			r.nextStep()

		default:
			return
		}
	}
}

// fill spends up to *remaining seconds closing the current step window and
// reports whether the window is now complete.
func (r *Run) fill(window float64, remaining *float64) bool {
	need := window - r.clock
	if need <= timeEpsilon {
		return true
	}
	if *remaining+timeEpsilon >= need {
		spent := math.Min(need, *remaining)
		r.spend(spent)
		*remaining -= spent
		r.clock = window
		return true
	}
	r.spend(*remaining)
	r.clock += *remaining
	*remaining = 0
	return false
}

func (r *Run) spend(seconds float64) {
	r.elapsed += seconds
	r.passElapsed += seconds
}

func (r *Run) nextStep() {
	r.stepIndex++
	r.clock = 0
	r.attempts = 0
	r.phase = PhaseEvaluating
}

// finishPass closes a pass through the step list. It reports false when the
// tick must end: the run completed, or an unbounded loop's pass took no
// simulated time and starting another one now could spin forever.
func (r *Run) finishPass(notify func(runEvent)) bool {
	r.iteration++
	if !r.def.Loop || (r.def.LoopCount > 0 && r.iteration >= r.def.LoopCount) {
		r.phase = PhaseCompleted
		r.emit(notify, runEvent{kind: runCompleted, stepIndex: r.stepIndex})
		return false
	}
	idle := !r.def.Bounded() && r.passElapsed <= timeEpsilon
	r.stepIndex = 0
	r.clock = 0
	r.attempts = 0
	r.passElapsed = 0
	return !idle
}

func (r *Run) cancel() {
	if r.phase.Terminal() {
		return
	}
	r.phase = PhaseCancelled
}

func (r *Run) emit(notify func(runEvent), ev runEvent) {
	if notify != nil {
		notify(ev)
	}
}

// RunStatus is a detached view of a run.
type RunStatus struct {
	CharacterID string  `json:"characterId"`
	MacroID     string  `json:"macroId"`
	MacroName   string  `json:"macroName"`
	Phase       Phase   `json:"phase"`
	StepIndex   int     `json:"stepIndex"`
	Steps       int     `json:"steps"`
	Iteration   int     `json:"iteration"`
	Clock       float64 `json:"clock"`
	Elapsed     float64 `json:"elapsed"`
	Attempts    int     `json:"attempts"`
	Casts       int     `json:"casts"`
}

func (r *Run) status() RunStatus {
	return RunStatus{
		CharacterID: r.characterID,
		MacroID:     r.def.ID,
		MacroName:   r.def.Name,
		Phase:       r.phase,
		StepIndex:   r.stepIndex,
		Steps:       len(r.def.Steps),
		Iteration:   r.iteration,
		Clock:       r.clock,
		Elapsed:     r.elapsed,
		Attempts:    r.attempts,
		Casts:       r.casts,
	}
}
