package macro

import (
	"math"
	"testing"
)

type fakeSnapshot struct {
	mana   map[ManaColor]bool
	target bool
	health float64
}

func (s *fakeSnapshot) HasMana(color ManaColor) bool {
	if color == ManaAny {
		for _, ok := range s.mana {
			if ok {
				return true
			}
		}
		return false
	}
	return s.mana[color]
}

func (s *fakeSnapshot) HasTarget() bool { return s.target }

func (s *fakeSnapshot) HealthFraction() float64 { return s.health }

func TestEvaluateConditions(t *testing.T) {
	snap := &fakeSnapshot{mana: map[ManaColor]bool{ManaBlue: true}, target: true, health: 0.4}
	cases := []struct {
		cond Condition
		want bool
	}{
		{ConditionNone, true},
		{"", true},
		{ConditionHasMana, true},
		{ConditionHasBlueMana, true},
		{ConditionHasRedMana, false},
		{ConditionHasGreenMana, false},
		{ConditionTargetExists, true},
		{ConditionNoTarget, false},
		{ConditionHealthAbove50, false},
		{ConditionHealthBelow50, true},
		{ConditionHealthBelow30, false},
		{"legacyCustomCondition", false},
	}
	for _, tc := range cases {
		t.Run(string(tc.cond), func(t *testing.T) {
			if got := Evaluate(tc.cond, snap); got != tc.want {
				t.Fatalf("expected %q to evaluate %v, got %v", tc.cond, tc.want, got)
			}
		})
	}
}

func TestEvaluateHealthBoundaries(t *testing.T) {
	half := &fakeSnapshot{health: 0.5}
	if Evaluate(ConditionHealthAbove50, half) || Evaluate(ConditionHealthBelow50, half) {
		t.Fatalf("expected exactly half health to satisfy neither threshold")
	}
	if !Evaluate(ConditionHealthBelow30, &fakeSnapshot{health: math.NaN()}) {
		t.Fatalf("expected NaN health to read as zero")
	}
	if !Evaluate(ConditionHealthAbove50, &fakeSnapshot{health: 7}) {
		t.Fatalf("expected out-of-range health to clamp to full")
	}
}

func TestEvaluateNilSnapshotFailsClosed(t *testing.T) {
	if !Evaluate(ConditionNone, nil) {
		t.Fatalf("expected none to hold without a snapshot")
	}
	if Evaluate(ConditionTargetExists, nil) || Evaluate(ConditionNoTarget, nil) {
		t.Fatalf("expected target conditions to fail closed without a snapshot")
	}
}

func TestConditionKnown(t *testing.T) {
	if !ConditionHealthBelow30.Known() || !Condition("").Known() {
		t.Fatalf("expected catalog conditions to be known")
	}
	if Condition("ifCombo").Known() {
		t.Fatalf("expected removed condition to be unknown")
	}
}
