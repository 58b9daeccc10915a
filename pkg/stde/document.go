package stde

import "strings"

// Document is the exported form of a whole diagram. Field names are the
// wire contract consumed by downstream digital-design tooling.
type Document struct {
	ID          string             `json:"id"`
	Signals     []SignalRecord     `json:"signals"`
	States      []StateRecord      `json:"states"`
	Transitions []TransitionRecord `json:"transitions"`
}

// SignalRecord is the wire form of a Signal.
type SignalRecord struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Bits int    `json:"bits"`
	IO   string `json:"io"`
	Desc string `json:"desc"`
}

// StateRecord is the wire form of a State. Q holds the Moore outputs.
type StateRecord struct {
	ID   string            `json:"id"`
	X    float64           `json:"x"`
	Y    float64           `json:"y"`
	Code string            `json:"code"`
	Desc string            `json:"desc"`
	Q    map[string]string `json:"q"`
}

// TransitionRecord is the wire form of a Transition. U and V index the
// states array of the same document. Y holds the Mealy outputs.
type TransitionRecord struct {
	U      int               `json:"u"`
	V      int               `json:"v"`
	UAngle float64           `json:"u.angle"`
	VAngle float64           `json:"v.angle"`
	Cond   string            `json:"cond"`
	Y      map[string]string `json:"y,omitempty"`
}

// Surface is the rendering collaborator. The model supplies geometry,
// labels and selection state; the surface decides how it looks.
type Surface interface {
	DrawState(v StateView)
	DrawTransition(v TransitionView)
}

// StateView is the drawable snapshot of a state.
type StateView struct {
	Selected      bool
	Pos           Pos2D
	Width, Height float64
	Label         string
	Outputs       map[string]string
}

// TransitionView is the drawable snapshot of a transition.
type TransitionView struct {
	Selected           bool
	From, To           StateView
	FromAngle, ToAngle float64
	Label              string
	SelfLoop           bool
}

// FormatOutputs renders an output map as "a=1, b=0" sorted by signal id.
func FormatOutputs(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	keys := sortedKeys(m)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + m[k]
	}
	return strings.Join(parts, ", ")
}
