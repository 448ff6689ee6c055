package storage

import (
	"errors"
	"fmt"

	"warchief/server/internal/macro"
)

var ErrInvalidRecord = errors.New("invalid macro record")

// Record is the persisted form of a macro definition.
type Record struct {
	ID        string       `yaml:"id" json:"id"`
	Name      string       `yaml:"name" json:"name"`
	Loop      bool         `yaml:"loop,omitempty" json:"loop,omitempty"`
	LoopCount *int         `yaml:"loop_count,omitempty" json:"loopCount,omitempty"`
	Steps     []StepRecord `yaml:"steps" json:"steps"`
}

// StepRecord is the persisted form of a step. Delay applies to casts and
// Duration to waits.
type StepRecord struct {
	Kind      string  `yaml:"kind" json:"kind"`
	Ability   string  `yaml:"ability,omitempty" json:"ability,omitempty"`
	Delay     float64 `yaml:"delay,omitempty" json:"delay,omitempty"`
	Duration  float64 `yaml:"duration,omitempty" json:"duration,omitempty"`
	Condition string  `yaml:"condition,omitempty" json:"condition,omitempty"`
}

// Encode converts a definition into its record.
func Encode(def macro.Definition) Record {
	rec := Record{ID: def.ID, Name: def.Name, Loop: def.Loop, Steps: make([]StepRecord, 0, len(def.Steps))}
	if def.LoopCount != 0 {
		count := def.LoopCount
		rec.LoopCount = &count
	}
	for _, step := range def.Steps {
		sr := StepRecord{Kind: step.Kind().String()}
		if cond := step.Condition(); cond != macro.ConditionNone {
			sr.Condition = string(cond)
		}
		switch step.Kind() {
		case macro.StepAbilityCast:
			sr.Ability = step.AbilityID()
			sr.Delay = step.Delay()
		case macro.StepWait:
			sr.Duration = step.Duration()
		}
		rec.Steps = append(rec.Steps, sr)
	}
	return rec
}

// Decode converts a record into a definition. It rejects unknown step kinds
// and an explicit non-positive loop count; the remaining authoring rules are
// macro.Validate's job. Unknown condition tags are kept so older macros load
// and simply fail closed during playback.
func Decode(rec Record) (macro.Definition, error) {
	def := macro.Definition{ID: rec.ID, Name: rec.Name, Loop: rec.Loop, Steps: make([]macro.Step, 0, len(rec.Steps))}
	if rec.LoopCount != nil {
		if *rec.LoopCount <= 0 {
			return macro.Definition{}, fmt.Errorf("%w %q: loop_count %d: %w", ErrInvalidRecord, rec.ID, *rec.LoopCount, macro.ErrInvalidLoopCount)
		}
		def.LoopCount = *rec.LoopCount
	}
	for i, sr := range rec.Steps {
		kind, ok := macro.ParseStepKind(sr.Kind)
		if !ok {
			return macro.Definition{}, fmt.Errorf("%w %q: step %d: unknown kind %q", ErrInvalidRecord, rec.ID, i, sr.Kind)
		}
		cond := macro.Condition(sr.Condition)
		switch kind {
		case macro.StepAbilityCast:
			def.Steps = append(def.Steps, macro.CastStep(sr.Ability, sr.Delay, cond))
		case macro.StepWait:
			def.Steps = append(def.Steps, macro.WaitStep(sr.Duration, cond))
		}
	}
	return def, nil
}
