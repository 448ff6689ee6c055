package macro

// Condition names a predicate over combat state that gates a step.
type Condition string

const (
	ConditionNone          Condition = "none"
	ConditionHasMana       Condition = "hasMana"
	ConditionHasRedMana    Condition = "hasRedMana"
	ConditionHasBlueMana   Condition = "hasBlueMana"
	ConditionHasGreenMana  Condition = "hasGreenMana"
	ConditionTargetExists  Condition = "targetExists"
	ConditionNoTarget      Condition = "noTarget"
	ConditionHealthAbove50 Condition = "healthAbove50"
	ConditionHealthBelow50 Condition = "healthBelow50"
	ConditionHealthBelow30 Condition = "healthBelow30"
)

// ManaColor identifies a mana pool. ManaAny matches whichever pool is full
// enough.
type ManaColor string

const (
	ManaAny   ManaColor = ""
	ManaRed   ManaColor = "red"
	ManaBlue  ManaColor = "blue"
	ManaGreen ManaColor = "green"
)

// Snapshot is the read-only combat state a Run consults during one tick.
type Snapshot interface {
	HasMana(color ManaColor) bool
	HasTarget() bool
	// HealthFraction is current over maximum health, in [0, 1].
	HealthFraction() float64
}

var knownConditions = map[Condition]struct{}{
	ConditionNone:          {},
	ConditionHasMana:       {},
	ConditionHasRedMana:    {},
	ConditionHasBlueMana:   {},
	ConditionHasGreenMana:  {},
	ConditionTargetExists:  {},
	ConditionNoTarget:      {},
	ConditionHealthAbove50: {},
	ConditionHealthBelow50: {},
	ConditionHealthBelow30: {},
}

// Known reports whether the condition belongs to the current catalog.
func (c Condition) Known() bool {
	_, ok := knownConditions[normalizeCondition(c)]
	return ok
}

// Evaluate resolves cond against snap. It never panics: unknown tags and a
// nil snapshot fail closed, except for ConditionNone which always holds.
func Evaluate(cond Condition, snap Snapshot) bool {
	cond = normalizeCondition(cond)
	if cond == ConditionNone {
		return true
	}
	if snap == nil {
		return false
	}

	switch cond {
	case ConditionHasMana:
		return snap.HasMana(ManaAny)
	case ConditionHasRedMana:
		return snap.HasMana(ManaRed)
	case ConditionHasBlueMana:
		return snap.HasMana(ManaBlue)
	case ConditionHasGreenMana:
		return snap.HasMana(ManaGreen)
	case ConditionTargetExists:
		return snap.HasTarget()
	case ConditionNoTarget:
		return !snap.HasTarget()
	case ConditionHealthAbove50:
		return clampFraction(snap.HealthFraction()) > 0.5
	case ConditionHealthBelow50:
		return clampFraction(snap.HealthFraction()) < 0.5
	case ConditionHealthBelow30:
		return clampFraction(snap.HealthFraction()) < 0.3
	default:
		return false
	}
}

func clampFraction(v float64) float64 {
	switch {
	case v != v:
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
