package stde

import "math"

// Default footprint of a state on the canvas.
const (
	DefaultStateWidth  = 220.0
	DefaultStateHeight = 110.0
)

// Pos2D is a position on the canvas. Y grows downward.
type Pos2D struct {
	X, Y float64
}

// Dist returns the Euclidean distance between two positions.
func (p Pos2D) Dist(q Pos2D) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// State is a positioned, labeled node of a state machine.
type State struct {
	pos           Pos2D
	width, height float64
	id            string
	idx           int
	code          string
	desc          string
	mooreOutput   map[string]string
	selected      bool
}

// NewState creates a state centered at pos with the default footprint.
func NewState(pos Pos2D, id string) (*State, error) {
	if err := validateID("state id", id); err != nil {
		return nil, err
	}
	return &State{
		pos:         pos,
		width:       DefaultStateWidth,
		height:      DefaultStateHeight,
		id:          id,
		mooreOutput: make(map[string]string),
	}, nil
}

func (s *State) Pos() Pos2D       { return s.pos }
func (s *State) Width() float64   { return s.width }
func (s *State) Height() float64  { return s.height }
func (s *State) ID() string       { return s.id }
func (s *State) Idx() int         { return s.idx }
func (s *State) Code() string     { return s.code }
func (s *State) Desc() string     { return s.desc }
func (s *State) Selected() bool   { return s.selected }
func (s *State) SetPos(p Pos2D)   { s.pos = p }
func (s *State) SetCode(c string) { s.code = c }
func (s *State) SetDesc(d string) { s.desc = d }

// SetSelected sets the transient selection flag.
func (s *State) SetSelected(v bool) { s.selected = v }

func (s *State) SetID(id string) error {
	if err := validateID("state id", id); err != nil {
		return err
	}
	s.id = id
	return nil
}

// SetSize changes the footprint used for hit-testing and rendering.
func (s *State) SetSize(width, height float64) error {
	if width <= 0 || height <= 0 {
		return &ValidationError{Field: "state size", Reason: "width and height must be positive"}
	}
	s.width, s.height = width, height
	return nil
}

// MooreOutput returns a copy of the state's output assignments.
func (s *State) MooreOutput() map[string]string {
	out := make(map[string]string, len(s.mooreOutput))
	for k, v := range s.mooreOutput {
		out[k] = v
	}
	return out
}

// SetMooreOutput assigns the value driven on signalID while in this state.
func (s *State) SetMooreOutput(signalID, value string) error {
	if err := validateID("signal id", signalID); err != nil {
		return err
	}
	s.mooreOutput[signalID] = value
	return nil
}

// ClearMooreOutput removes the assignment for signalID, if any.
func (s *State) ClearMooreOutput(signalID string) {
	delete(s.mooreOutput, signalID)
}

// Pick reports whether pos lies inside the state's bounding box (edges
// inclusive). States are drawn as ellipses but hit-tested as rectangles.
func (s *State) Pick(pos Pos2D) bool {
	hw, hh := s.width/2, s.height/2
	return pos.X >= s.pos.X-hw && pos.X <= s.pos.X+hw &&
		pos.Y >= s.pos.Y-hh && pos.Y <= s.pos.Y+hh
}

// Select sets the selection flag to the result of Pick.
func (s *State) Select(pos Pos2D) {
	s.selected = s.Pick(pos)
}

// Draw hands the state's visual parameters to the rendering surface.
func (s *State) Draw(surface Surface) {
	surface.DrawState(s.View())
}

// View returns what a Surface needs to draw the state.
func (s *State) View() StateView {
	return StateView{
		Selected: s.selected,
		Pos:      s.pos,
		Width:    s.width,
		Height:   s.height,
		Label:    s.id,
		Outputs:  s.MooreOutput(),
	}
}

// Record returns the wire representation of the state.
func (s *State) Record() StateRecord {
	return StateRecord{
		ID:   s.id,
		X:    s.pos.X,
		Y:    s.pos.Y,
		Code: s.code,
		Desc: s.desc,
		Q:    s.MooreOutput(),
	}
}
