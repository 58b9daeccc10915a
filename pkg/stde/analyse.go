package stde

import (
	"fmt"
	"sort"
)

// Warning is a non-fatal finding about a machine: the document is
// structurally valid but probably not what the author meant.
type Warning struct {
	Type    string `json:"type"` // duplicate_signal, duplicate_state, undeclared_output, input_assigned, unused_output, isolated_state
	Message string `json:"message"`
}

func (w Warning) String() string { return w.Type + ": " + w.Message }

// Analyse reports questionable but legal constructs. Warnings are ordered
// by type, then by position in the machine.
func (m *StateMachine) Analyse() []Warning {
	var warnings []Warning
	add := func(typ, format string, args ...any) {
		warnings = append(warnings, Warning{Type: typ, Message: fmt.Sprintf(format, args...)})
	}

	signals := make(map[string]*Signal)
	for i, sig := range m.signals {
		if _, dup := signals[sig.id]; dup {
			add("duplicate_signal", "signal %q at position %d repeats an earlier id", sig.id, i)
			continue
		}
		signals[sig.id] = sig
	}

	seen := make(map[string]int)
	for _, s := range m.states {
		if first, dup := seen[s.id]; dup {
			add("duplicate_state", "state %q at index %d repeats index %d", s.id, s.idx, first)
			continue
		}
		seen[s.id] = s.idx
	}

	assigned := make(map[string]bool)
	checkOutputs := func(where string, outputs map[string]string) {
		for _, k := range sortedKeys(outputs) {
			assigned[k] = true
			sig, ok := signals[k]
			switch {
			case !ok:
				add("undeclared_output", "%s assigns undeclared signal %q", where, k)
			case sig.direction == DirInput:
				add("input_assigned", "%s assigns input signal %q", where, k)
			}
		}
	}
	for _, s := range m.states {
		checkOutputs(fmt.Sprintf("state %q", s.id), s.mooreOutput)
	}
	for i, t := range m.transitions {
		checkOutputs(fmt.Sprintf("transition %d (%s -> %s)", i, t.from.id, t.to.id), t.mealyOutput)
	}
	for _, sig := range m.signals {
		if sig.direction == DirOutput && !assigned[sig.id] {
			add("unused_output", "output signal %q is never assigned", sig.id)
			assigned[sig.id] = true // once per id
		}
	}

	if len(m.states) > 1 {
		touched := make(map[*State]bool)
		for _, t := range m.transitions {
			touched[t.from] = true
			touched[t.to] = true
		}
		for _, s := range m.states {
			if !touched[s] {
				add("isolated_state", "state %q has no transitions", s.id)
			}
		}
	}

	sort.SliceStable(warnings, func(i, j int) bool { return warnings[i].Type < warnings[j].Type })
	return warnings
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
