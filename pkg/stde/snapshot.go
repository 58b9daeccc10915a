package stde

import "maps"

// Snapshot is an in-memory copy of a machine's content. Restoring it puts
// the same Signal, State and Transition values back in place, so pointers
// held by callers stay valid. Footprints and selection flags, which the
// wire format does not carry, are preserved.
type Snapshot struct {
	id          string
	signals     []*Signal
	signalVals  []Signal
	states      []*State
	stateVals   []State
	transitions []*Transition
	transVals   []Transition
}

// Snapshot captures the current content of m. It never fails.
func (m *StateMachine) Snapshot() *Snapshot {
	sn := &Snapshot{
		id:          m.id,
		signals:     append([]*Signal(nil), m.signals...),
		signalVals:  make([]Signal, len(m.signals)),
		states:      append([]*State(nil), m.states...),
		stateVals:   make([]State, len(m.states)),
		transitions: append([]*Transition(nil), m.transitions...),
		transVals:   make([]Transition, len(m.transitions)),
	}
	for i, s := range m.signals {
		sn.signalVals[i] = *s
	}
	for i, s := range m.states {
		sn.stateVals[i] = *s
		sn.stateVals[i].mooreOutput = maps.Clone(s.mooreOutput)
	}
	for i, t := range m.transitions {
		sn.transVals[i] = *t
		sn.transVals[i].mealyOutput = maps.Clone(t.mealyOutput)
	}
	return sn
}

// Restore puts m back to the content captured by sn. Objects added after
// the snapshot are dropped from the machine.
func (m *StateMachine) Restore(sn *Snapshot) {
	m.id = sn.id
	m.signals = append(m.signals[:0:0], sn.signals...)
	for i, s := range sn.signals {
		*s = sn.signalVals[i]
	}
	m.states = append(m.states[:0:0], sn.states...)
	for i, s := range sn.states {
		*s = sn.stateVals[i]
		s.mooreOutput = maps.Clone(sn.stateVals[i].mooreOutput)
	}
	m.transitions = append(m.transitions[:0:0], sn.transitions...)
	for i, t := range sn.transitions {
		*t = sn.transVals[i]
		t.mealyOutput = maps.Clone(sn.transVals[i].mealyOutput)
	}
	m.recalcIndices()
}

// Changed reports whether m's content differs from sn. Selection flags
// are transient and do not count.
func (sn *Snapshot) Changed(m *StateMachine) bool {
	if m.id != sn.id ||
		len(m.signals) != len(sn.signals) ||
		len(m.states) != len(sn.states) ||
		len(m.transitions) != len(sn.transitions) {
		return true
	}
	for i, s := range m.signals {
		if s != sn.signals[i] || *s != sn.signalVals[i] {
			return true
		}
	}
	for i, s := range m.states {
		v := sn.stateVals[i]
		if s != sn.states[i] || s.pos != v.pos || s.width != v.width || s.height != v.height ||
			s.id != v.id || s.code != v.code || s.desc != v.desc ||
			!maps.Equal(s.mooreOutput, v.mooreOutput) {
			return true
		}
	}
	for i, t := range m.transitions {
		v := sn.transVals[i]
		if t != sn.transitions[i] || t.from != v.from || t.to != v.to ||
			t.fromAngle != v.fromAngle || t.toAngle != v.toAngle || t.condition != v.condition ||
			!maps.Equal(t.mealyOutput, v.mealyOutput) {
			return true
		}
	}
	return false
}
