// Package stde provides the state transition diagram model: signals,
// positioned states, transitions and the StateMachine aggregate that owns
// them, with the geometric queries an interactive editor needs.
package stde

import (
	"fmt"
	"math"
)

// DefaultSnapTolerance is the per-axis distance within which Snap aligns
// a position to an existing state.
const DefaultSnapTolerance = 25.0

// StateMachine owns ordered lists of signals, states and transitions.
// Indices of states always equal their position in the list.
//
// A StateMachine is not safe for concurrent use; callers serialize
// mutations.
type StateMachine struct {
	id          string
	signals     []*Signal
	states      []*State
	transitions []*Transition
}

// New creates an empty machine.
func New(id string) *StateMachine {
	return &StateMachine{
		id:          id,
		signals:     make([]*Signal, 0),
		states:      make([]*State, 0),
		transitions: make([]*Transition, 0),
	}
}

func (m *StateMachine) ID() string      { return m.id }
func (m *StateMachine) SetID(id string) { m.id = id }

// Signals returns the signals in export order.
func (m *StateMachine) Signals() []*Signal {
	return append([]*Signal(nil), m.signals...)
}

// States returns the states in index order.
func (m *StateMachine) States() []*State {
	return append([]*State(nil), m.states...)
}

// Transitions returns the transitions in insertion order.
func (m *StateMachine) Transitions() []*Transition {
	return append([]*Transition(nil), m.transitions...)
}

// Signal returns the first signal with the given id.
func (m *StateMachine) Signal(id string) (*Signal, bool) {
	for _, s := range m.signals {
		if s.id == id {
			return s, true
		}
	}
	return nil, false
}

// StateAt returns the state with index i.
func (m *StateMachine) StateAt(i int) (*State, bool) {
	if i < 0 || i >= len(m.states) {
		return nil, false
	}
	return m.states[i], true
}

// AddSignal appends a signal. Ids are not required to be unique.
func (m *StateMachine) AddSignal(sig *Signal) error {
	if sig == nil {
		return &ValidationError{Field: "signal", Reason: "nil"}
	}
	if m.signalIndex(sig) >= 0 {
		return &ValidationError{Field: "signal", Value: sig.id, Reason: "already in machine"}
	}
	m.signals = append(m.signals, sig)
	return nil
}

// RemoveSignal removes sig from the signal list.
func (m *StateMachine) RemoveSignal(sig *Signal) error {
	i := m.signalIndex(sig)
	if i < 0 {
		return signalNotFound(sig)
	}
	m.signals = append(m.signals[:i], m.signals[i+1:]...)
	return nil
}

// MoveUpSignal swaps sig with its predecessor. Moving the first signal up
// leaves the order unchanged.
func (m *StateMachine) MoveUpSignal(sig *Signal) error {
	i := m.signalIndex(sig)
	if i < 0 {
		return signalNotFound(sig)
	}
	if i > 0 {
		m.signals[i-1], m.signals[i] = m.signals[i], m.signals[i-1]
	}
	return nil
}

// MoveDownSignal swaps sig with its successor. Moving the last signal down
// leaves the order unchanged.
func (m *StateMachine) MoveDownSignal(sig *Signal) error {
	i := m.signalIndex(sig)
	if i < 0 {
		return signalNotFound(sig)
	}
	if i < len(m.signals)-1 {
		m.signals[i+1], m.signals[i] = m.signals[i], m.signals[i+1]
	}
	return nil
}

func (m *StateMachine) signalIndex(sig *Signal) int {
	for i, s := range m.signals {
		if s == sig {
			return i
		}
	}
	return -1
}

func signalNotFound(sig *Signal) error {
	if sig == nil {
		return &NotFoundError{Kind: "signal"}
	}
	return &NotFoundError{Kind: "signal", ID: sig.id}
}

// AddState appends a state and recalculates all indices.
func (m *StateMachine) AddState(s *State) error {
	if s == nil {
		return &ValidationError{Field: "state", Reason: "nil"}
	}
	if m.owns(s) {
		return &ValidationError{Field: "state", Value: s.id, Reason: "already in machine"}
	}
	m.states = append(m.states, s)
	m.recalcIndices()
	return nil
}

// DeleteSelection removes every selected state and every selected
// transition. Transitions touching a removed state are removed with it.
// Survivors keep their relative order and indices are recalculated.
func (m *StateMachine) DeleteSelection() (statesRemoved, transitionsRemoved int) {
	removed := make(map[*State]bool)
	kept := m.states[:0]
	for _, s := range m.states {
		if s.selected {
			removed[s] = true
			continue
		}
		kept = append(kept, s)
	}
	for i := len(kept); i < len(m.states); i++ {
		m.states[i] = nil
	}
	m.states = kept

	keptT := m.transitions[:0]
	for _, t := range m.transitions {
		if t.selected || removed[t.from] || removed[t.to] {
			transitionsRemoved++
			continue
		}
		keptT = append(keptT, t)
	}
	for i := len(keptT); i < len(m.transitions); i++ {
		m.transitions[i] = nil
	}
	m.transitions = keptT

	m.recalcIndices()
	return len(removed), transitionsRemoved
}

func (m *StateMachine) recalcIndices() {
	for i, s := range m.states {
		s.idx = i
	}
}

// owns relies on the index invariant for an O(1) membership test.
func (m *StateMachine) owns(s *State) bool {
	return s != nil && s.idx >= 0 && s.idx < len(m.states) && m.states[s.idx] == s
}

// AddTransition appends t. Both endpoints must be states of this machine.
func (m *StateMachine) AddTransition(t *Transition) error {
	if t == nil {
		return &ValidationError{Field: "transition", Reason: "nil"}
	}
	if !m.owns(t.from) {
		return &ReferentialIntegrityError{Index: -1, Reason: fmt.Sprintf("source state %q is not in machine", stateID(t.from))}
	}
	if !m.owns(t.to) {
		return &ReferentialIntegrityError{Index: -1, Reason: fmt.Sprintf("target state %q is not in machine", stateID(t.to))}
	}
	m.transitions = append(m.transitions, t)
	return nil
}

// RemoveTransition removes t from the transition list.
func (m *StateMachine) RemoveTransition(t *Transition) error {
	for i, x := range m.transitions {
		if x == t {
			m.transitions = append(m.transitions[:i], m.transitions[i+1:]...)
			return nil
		}
	}
	if t == nil {
		return &NotFoundError{Kind: "transition"}
	}
	return &NotFoundError{Kind: "transition", ID: stateID(t.from) + "->" + stateID(t.to)}
}

func stateID(s *State) string {
	if s == nil {
		return ""
	}
	return s.id
}

// Select runs the hit-test on every state: each state ends up selected
// exactly when it contains pos.
func (m *StateMachine) Select(pos Pos2D) {
	for _, s := range m.states {
		s.Select(pos)
	}
}

// ClearSelection deselects every state and transition.
func (m *StateMachine) ClearSelection() {
	for _, s := range m.states {
		s.selected = false
	}
	for _, t := range m.transitions {
		t.selected = false
	}
}

// SelectedStates returns the selected states in index order.
func (m *StateMachine) SelectedStates() []*State {
	var sel []*State
	for _, s := range m.states {
		if s.selected {
			sel = append(sel, s)
		}
	}
	return sel
}

// PickState returns the first state in index order whose footprint
// contains pos, or nil.
func (m *StateMachine) PickState(pos Pos2D) *State {
	for _, s := range m.states {
		if s.Pick(pos) {
			return s
		}
	}
	return nil
}

// PickTransition returns the first transition whose centre-to-centre
// segment passes within tolerance of pos, or nil. Self-loops are not
// hit-tested.
func (m *StateMachine) PickTransition(pos Pos2D, tolerance float64) *Transition {
	for _, t := range m.transitions {
		if t.IsSelfLoop() {
			continue
		}
		if segmentDist(pos, t.from.pos, t.to.pos) <= tolerance {
			return t
		}
	}
	return nil
}

func segmentDist(p, a, b Pos2D) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return p.Dist(a)
	}
	u := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / l2
	u = math.Max(0, math.Min(1, u))
	return p.Dist(Pos2D{a.X + u*dx, a.Y + u*dy})
}

// Snap aligns each axis of pos independently to the first state whose
// coordinate on that axis is within tolerance.
func (m *StateMachine) Snap(pos Pos2D, tolerance float64) Pos2D {
	snappedX, snappedY := false, false
	for _, s := range m.states {
		if !snappedX && math.Abs(s.pos.X-pos.X) <= tolerance {
			pos.X = s.pos.X
			snappedX = true
		}
		if !snappedY && math.Abs(s.pos.Y-pos.Y) <= tolerance {
			pos.Y = s.pos.Y
			snappedY = true
		}
		if snappedX && snappedY {
			break
		}
	}
	return pos
}

// Draw renders all states, then all transitions, so edges end up on top.
func (m *StateMachine) Draw(surface Surface) {
	for _, s := range m.states {
		s.Draw(surface)
	}
	for _, t := range m.transitions {
		t.Draw(surface)
	}
}

// Serialize builds the exported document. It fails if a transition refers
// to a state that is no longer part of the machine.
func (m *StateMachine) Serialize() (*Document, error) {
	doc := &Document{
		ID:          m.id,
		Signals:     make([]SignalRecord, 0, len(m.signals)),
		States:      make([]StateRecord, 0, len(m.states)),
		Transitions: make([]TransitionRecord, 0, len(m.transitions)),
	}
	for _, s := range m.signals {
		doc.Signals = append(doc.Signals, s.Record())
	}
	for _, s := range m.states {
		doc.States = append(doc.States, s.Record())
	}
	for i, t := range m.transitions {
		if !m.owns(t.from) || !m.owns(t.to) {
			return nil, &ReferentialIntegrityError{Index: i, Reason: "endpoint is not in machine"}
		}
		doc.Transitions = append(doc.Transitions, t.Record())
	}
	return doc, nil
}

// FromDocument rebuilds a machine from its exported form, validating every
// record. Transition endpoints are resolved by position in doc.States.
func FromDocument(doc *Document) (*StateMachine, error) {
	if doc == nil {
		return nil, &ValidationError{Field: "document", Reason: "nil"}
	}
	m := New(doc.ID)

	for i, r := range doc.Signals {
		typ, err := ParseSignalType(r.Type)
		if err != nil {
			return nil, fmt.Errorf("signal %d: %w", i, err)
		}
		dir, err := ParseSignalDirection(r.IO)
		if err != nil {
			return nil, fmt.Errorf("signal %d: %w", i, err)
		}
		if typ == SignalBit && r.Bits != 1 {
			return nil, fmt.Errorf("signal %d: %w", i,
				&ValidationError{Field: "bits", Value: fmt.Sprint(r.Bits), Reason: "bit signals are one bit wide"})
		}
		sig, err := NewSignal(r.ID, typ, r.Bits, dir, r.Desc)
		if err != nil {
			return nil, fmt.Errorf("signal %d: %w", i, err)
		}
		m.signals = append(m.signals, sig)
	}

	for i, r := range doc.States {
		if math.IsNaN(r.X) || math.IsNaN(r.Y) || math.IsInf(r.X, 0) || math.IsInf(r.Y, 0) {
			return nil, fmt.Errorf("state %d: %w", i, &ValidationError{Field: "position", Reason: "not finite"})
		}
		s, err := NewState(Pos2D{r.X, r.Y}, r.ID)
		if err != nil {
			return nil, fmt.Errorf("state %d: %w", i, err)
		}
		s.code = r.Code
		s.desc = r.Desc
		for k, v := range r.Q {
			if err := s.SetMooreOutput(k, v); err != nil {
				return nil, fmt.Errorf("state %d: %w", i, err)
			}
		}
		m.states = append(m.states, s)
	}
	m.recalcIndices()

	for i, r := range doc.Transitions {
		from, ok := m.StateAt(r.U)
		if !ok {
			return nil, &ReferentialIntegrityError{Index: i, Reason: fmt.Sprintf("u=%d out of range [0,%d)", r.U, len(m.states))}
		}
		to, ok := m.StateAt(r.V)
		if !ok {
			return nil, &ReferentialIntegrityError{Index: i, Reason: fmt.Sprintf("v=%d out of range [0,%d)", r.V, len(m.states))}
		}
		t, err := NewTransition(from, to)
		if err != nil {
			return nil, err
		}
		t.fromAngle = r.UAngle
		t.toAngle = r.VAngle
		t.condition = r.Cond
		for k, v := range r.Y {
			if err := t.SetMealyOutput(k, v); err != nil {
				return nil, fmt.Errorf("transition %d: %w", i, err)
			}
		}
		m.transitions = append(m.transitions, t)
	}

	return m, nil
}
