package stde

import (
	"fmt"
	"math"
)

// Transition is a directed edge between two states of the same machine.
// The endpoints are not owned; the machine keeps them consistent.
type Transition struct {
	from, to    *State
	fromAngle   float64
	toAngle     float64
	condition   string
	mealyOutput map[string]string
	selected    bool
}

// NewTransition creates an edge from one state to another. A self-loop
// (from == to) is allowed.
func NewTransition(from, to *State) (*Transition, error) {
	if from == nil || to == nil {
		return nil, &ReferentialIntegrityError{Index: -1, Reason: "nil endpoint"}
	}
	return &Transition{
		from:        from,
		to:          to,
		mealyOutput: make(map[string]string),
	}, nil
}

func (t *Transition) From() *State       { return t.from }
func (t *Transition) To() *State         { return t.to }
func (t *Transition) FromAngle() float64 { return t.fromAngle }
func (t *Transition) ToAngle() float64   { return t.toAngle }
func (t *Transition) Condition() string  { return t.condition }
func (t *Transition) Selected() bool     { return t.selected }

func (t *Transition) SetFromAngle(a float64) { t.fromAngle = a }
func (t *Transition) SetToAngle(a float64)   { t.toAngle = a }
func (t *Transition) SetCondition(c string)  { t.condition = c }
func (t *Transition) SetSelected(v bool)     { t.selected = v }

// MealyOutput returns a copy of the transition's output assignments.
func (t *Transition) MealyOutput() map[string]string {
	out := make(map[string]string, len(t.mealyOutput))
	for k, v := range t.mealyOutput {
		out[k] = v
	}
	return out
}

// SetMealyOutput assigns the value driven on signalID while taking this edge.
func (t *Transition) SetMealyOutput(signalID, value string) error {
	if err := validateID("signal id", signalID); err != nil {
		return err
	}
	t.mealyOutput[signalID] = value
	return nil
}

func (t *Transition) ClearMealyOutput(signalID string) {
	delete(t.mealyOutput, signalID)
}

// FaceEndpoints points both anchors at the other endpoint's centre. A
// self-loop gets anchors either side of the top of the state.
func (t *Transition) FaceEndpoints() {
	if t.IsSelfLoop() {
		t.fromAngle = -math.Pi/2 - 0.5
		t.toAngle = -math.Pi/2 + 0.5
		return
	}
	a, b := t.from.pos, t.to.pos
	t.fromAngle = math.Atan2(b.Y-a.Y, b.X-a.X)
	t.toAngle = math.Atan2(a.Y-b.Y, a.X-b.X)
}

// IsSelfLoop reports whether both endpoints are the same state.
func (t *Transition) IsSelfLoop() bool { return t.from == t.to }

// Touches reports whether s is one of the endpoints.
func (t *Transition) Touches(s *State) bool { return t.from == s || t.to == s }

// Draw hands both endpoints' current geometry to the rendering surface.
func (t *Transition) Draw(surface Surface) {
	surface.DrawTransition(t.View())
}

// View returns what a Surface needs to draw the transition.
func (t *Transition) View() TransitionView {
	return TransitionView{
		Selected:  t.selected,
		From:      t.from.View(),
		To:        t.to.View(),
		FromAngle: t.fromAngle,
		ToAngle:   t.toAngle,
		Label:     t.Label(),
		SelfLoop:  t.IsSelfLoop(),
	}
}

// Label is the condition followed by the Mealy outputs, "cond / y1=1, y2=0".
func (t *Transition) Label() string {
	out := FormatOutputs(t.mealyOutput)
	switch {
	case out == "":
		return t.condition
	case t.condition == "":
		return "/ " + out
	}
	return fmt.Sprintf("%s / %s", t.condition, out)
}

// Record returns the wire representation. Endpoints are emitted by index,
// so the record is only meaningful while the endpoints' indices are current.
func (t *Transition) Record() TransitionRecord {
	return TransitionRecord{
		U:      t.from.idx,
		V:      t.to.idx,
		UAngle: t.fromAngle,
		VAngle: t.toAngle,
		Cond:   t.condition,
		Y:      t.MealyOutput(),
	}
}
