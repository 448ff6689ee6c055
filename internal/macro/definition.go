package macro

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Definition is a saved macro: an ordered list of steps plus loop settings.
// Definitions are values; the engine copies the step list when a run starts.
type Definition struct {
	ID    string
	Name  string
	Steps []Step
	Loop  bool
	// LoopCount bounds the number of passes when Loop is set. Zero leaves the
	// loop unbounded. Ignored when Loop is false.
	LoopCount int
}

// Bounded reports whether playback of d eventually completes on its own.
func (d Definition) Bounded() bool {
	return !d.Loop || d.LoopCount > 0
}

// Passes reports the number of passes a bounded definition plays.
func (d Definition) Passes() int {
	if !d.Loop {
		return 1
	}
	return d.LoopCount
}

// EstimatedDuration sums the per-step time of one pass, counting each cast as
// at least gcd seconds, and scales by the pass count. The boolean is false for
// unbounded loops, in which case the returned value is +Inf. The figure is for
// display only; playback runs on each Run's own clock.
func (d Definition) EstimatedDuration(gcd float64) (float64, bool) {
	if gcd < 0 {
		gcd = 0
	}
	var pass float64
	for _, step := range d.Steps {
		switch step.Kind() {
		case StepAbilityCast:
			pass += math.Max(step.window(), gcd)
		case StepWait:
			pass += step.window()
		}
	}
	if !d.Bounded() {
		return math.Inf(1), false
	}
	return pass * float64(d.Passes()), true
}

// Clone returns a copy of d that shares no backing storage with it.
func (d Definition) Clone() Definition {
	cloned := d
	if d.Steps != nil {
		cloned.Steps = append([]Step(nil), d.Steps...)
	}
	return cloned
}

var (
	ErrEmptyName        = errors.New("macro name is required")
	ErrNoSteps          = errors.New("macro has no steps")
	ErrUnknownAbility   = errors.New("unknown ability")
	ErrInvalidLoopCount = errors.New("loop count must be positive")
	ErrInvalidStep      = errors.New("invalid step")
	ErrUnknownCondition = errors.New("unknown condition")
)

// AbilityLookup reports whether an ability id is known to the ability
// subsystem.
type AbilityLookup interface {
	Known(abilityID string) bool
}

// AbilityLookupFunc adapts a function into an AbilityLookup.
type AbilityLookupFunc func(abilityID string) bool

func (f AbilityLookupFunc) Known(abilityID string) bool {
	if f == nil {
		return false
	}
	return f(abilityID)
}

// ValidationError collects every problem found in a definition.
type ValidationError struct {
	MacroID  string
	Problems []error
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.Error())
	}
	if e.MacroID == "" {
		return "invalid macro: " + strings.Join(parts, "; ")
	}
	return fmt.Sprintf("invalid macro %q: %s", e.MacroID, strings.Join(parts, "; "))
}

// Unwrap exposes the individual problems to errors.Is.
func (e *ValidationError) Unwrap() []error {
	return e.Problems
}

// Validate checks a definition at the authoring boundary. A nil lookup skips
// the ability check. The returned error is a *ValidationError.
func Validate(def Definition, abilities AbilityLookup) error {
	var problems []error
	if strings.TrimSpace(def.Name) == "" {
		problems = append(problems, ErrEmptyName)
	}
	if len(def.Steps) == 0 {
		problems = append(problems, ErrNoSteps)
	}
	for i, step := range def.Steps {
		switch step.Kind() {
		case StepAbilityCast:
			if step.AbilityID() == "" {
				problems = append(problems, fmt.Errorf("step %d: %w: missing ability id", i, ErrInvalidStep))
			} else if abilities != nil && !abilities.Known(step.AbilityID()) {
				problems = append(problems, fmt.Errorf("step %d: %w %q", i, ErrUnknownAbility, step.AbilityID()))
			}
		case StepWait:
		default:
			problems = append(problems, fmt.Errorf("step %d: %w: kind %s", i, ErrInvalidStep, step.Kind()))
			continue
		}
		if !step.Condition().Known() {
			problems = append(problems, fmt.Errorf("step %d: %w %q", i, ErrUnknownCondition, step.Condition()))
		}
		if step.seconds < 0 || math.IsNaN(step.seconds) || math.IsInf(step.seconds, 0) {
			problems = append(problems, fmt.Errorf("step %d: %w: time %g", i, ErrInvalidStep, step.seconds))
		}
	}
	if def.Loop && def.LoopCount < 0 {
		problems = append(problems, fmt.Errorf("%w: %d", ErrInvalidLoopCount, def.LoopCount))
	}
	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{MacroID: def.ID, Problems: problems}
}
