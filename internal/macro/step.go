package macro

import "fmt"

// StepKind tags the variant carried by a Step.
type StepKind uint8

const (
	// StepAbilityCast casts an ability once its pre-delay has elapsed.
	StepAbilityCast StepKind = iota + 1
	// StepWait holds playback for a fixed duration.
	StepWait
)

// String renders the kind using the storage spelling.
func (k StepKind) String() string {
	switch k {
	case StepAbilityCast:
		return "cast"
	case StepWait:
		return "wait"
	default:
		return fmt.Sprintf("StepKind(%d)", uint8(k))
	}
}

// ParseStepKind resolves the storage spelling of a step kind.
func ParseStepKind(raw string) (StepKind, bool) {
	switch raw {
	case "cast":
		return StepAbilityCast, true
	case "wait":
		return StepWait, true
	default:
		return 0, false
	}
}

// Step is one immutable entry of a macro. The zero value is not a valid step;
// construct steps with CastStep or WaitStep.
type Step struct {
	kind      StepKind
	abilityID string
	seconds   float64
	condition Condition
}

// CastStep builds a step that casts abilityID after delay seconds when cond holds.
func CastStep(abilityID string, delay float64, cond Condition) Step {
	return Step{kind: StepAbilityCast, abilityID: abilityID, seconds: delay, condition: normalizeCondition(cond)}
}

// WaitStep builds a step that waits duration seconds when cond holds.
func WaitStep(duration float64, cond Condition) Step {
	return Step{kind: StepWait, seconds: duration, condition: normalizeCondition(cond)}
}

func (s Step) Kind() StepKind { return s.kind }

// AbilityID is empty for wait steps.
func (s Step) AbilityID() string { return s.abilityID }

// Delay reports the pre-cast delay of an ability step and zero for waits.
func (s Step) Delay() float64 {
	if s.kind != StepAbilityCast {
		return 0
	}
	return s.seconds
}

// Duration reports the hold time of a wait step and zero for casts.
func (s Step) Duration() float64 {
	if s.kind != StepWait {
		return 0
	}
	return s.seconds
}

func (s Step) Condition() Condition { return s.condition }

// window is the time playback spends inside the step before it acts: the
// pre-delay for casts and the hold for waits. Estimation and playback both
// read it so the two stay in step.
func (s Step) window() float64 {
	if s.seconds < 0 {
		return 0
	}
	return s.seconds
}

func (s Step) String() string {
	switch s.kind {
	case StepAbilityCast:
		return fmt.Sprintf("cast(%s, delay=%g, if=%s)", s.abilityID, s.seconds, s.condition)
	case StepWait:
		return fmt.Sprintf("wait(%g, if=%s)", s.seconds, s.condition)
	default:
		return "invalid"
	}
}

func normalizeCondition(cond Condition) Condition {
	if cond == "" {
		return ConditionNone
	}
	return cond
}
