// Package editor holds one editing session over a state machine: the
// interaction mode, the pointer and snapping. Front ends
// (the terminal editor, tests) feed pointer and key events into it.
package editor

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/ha1tch/webstde/pkg/stde"
)

// Mode is the interaction mode of a session.
type Mode int

const (
	ModeSelect Mode = iota
	ModeInsertState
	ModeInsertTransition
)

func (m Mode) String() string {
	switch m {
	case ModeSelect:
		return "select"
	case ModeInsertState:
		return "insert-state"
	case ModeInsertTransition:
		return "insert-transition"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Options configures a session.
type Options struct {
	SnapEnabled   bool
	SnapTolerance float64
	StateWidth    float64
	StateHeight   float64
	// PickTolerance is how close the pointer must be to a transition to
	// select it.
	PickTolerance float64
	Logger        *slog.Logger
}

// DefaultOptions mirrors the browser editor.
func DefaultOptions() Options {
	return Options{
		SnapEnabled:   true,
		SnapTolerance: stde.DefaultSnapTolerance,
		StateWidth:    stde.DefaultStateWidth,
		StateHeight:   stde.DefaultStateHeight,
		PickTolerance: 10,
	}
}

// Session is the editing context for one machine. It is not safe for
// concurrent use.
type Session struct {
	machine *stde.StateMachine
	opts    Options
	log     *slog.Logger

	mode    Mode
	pointer stde.Pos2D
	pending *stde.State // transition source while in ModeInsertTransition

	dragging  bool
	dragMoved bool
	dragLast  stde.Pos2D

	nextState int
	modified  bool
}

// New starts a session over m. A nil machine starts an empty one.
func New(m *stde.StateMachine, opts Options) *Session {
	if m == nil {
		m = stde.New("")
	}
	d := DefaultOptions()
	if opts.SnapTolerance <= 0 {
		opts.SnapTolerance = d.SnapTolerance
	}
	if opts.StateWidth <= 0 || opts.StateHeight <= 0 {
		opts.StateWidth, opts.StateHeight = d.StateWidth, d.StateHeight
	}
	if opts.PickTolerance <= 0 {
		opts.PickTolerance = d.PickTolerance
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Session{machine: m, opts: opts, log: log}
}

func (s *Session) Machine() *stde.StateMachine { return s.machine }
func (s *Session) Mode() Mode                  { return s.mode }
func (s *Session) Pointer() stde.Pos2D         { return s.pointer }
func (s *Session) Modified() bool              { return s.modified }
func (s *Session) SnapEnabled() bool           { return s.opts.SnapEnabled }

// Pending returns the transition source picked so far, if any.
func (s *Session) Pending() *stde.State { return s.pending }

// MarkSaved clears the modified flag.
func (s *Session) MarkSaved() { s.modified = false }

// SetSnap turns grid-free alignment to existing states on or off.
func (s *Session) SetSnap(enabled bool) { s.opts.SnapEnabled = enabled }

// Replace swaps in a different machine.
func (s *Session) Replace(m *stde.StateMachine) {
	s.machine = m
	s.modified = false
	s.nextState = 0
	s.Cancel()
}

// SnapPos returns pos aligned to existing states when snapping is on.
func (s *Session) SnapPos(pos stde.Pos2D) stde.Pos2D {
	if !s.opts.SnapEnabled {
		return pos
	}
	return s.machine.Snap(pos, s.opts.SnapTolerance)
}

// BeginInsertState arms state insertion at the next click.
func (s *Session) BeginInsertState() {
	s.Cancel()
	s.mode = ModeInsertState
}

// BeginInsertTransition arms transition insertion: press on the source,
// release on the target.
func (s *Session) BeginInsertTransition() {
	s.Cancel()
	s.mode = ModeInsertTransition
}

// Cancel abandons any pending insertion or drag and returns to ModeSelect.
func (s *Session) Cancel() {
	s.mode = ModeSelect
	s.pending = nil
	s.dragging = false
	s.dragMoved = false
}

// PointerMove records the pointer and moves the selection while dragging.
func (s *Session) PointerMove(pos stde.Pos2D) {
	s.pointer = pos
	if !s.dragging {
		return
	}
	dx, dy := pos.X-s.dragLast.X, pos.Y-s.dragLast.Y
	if dx == 0 && dy == 0 {
		return
	}
	s.dragMoved = true
	for _, st := range s.machine.SelectedStates() {
		p := st.Pos()
		st.SetPos(stde.Pos2D{X: p.X + dx, Y: p.Y + dy})
	}
	s.dragLast = pos
	s.modified = true
}

// PointerDown handles a button press at pos.
func (s *Session) PointerDown(pos stde.Pos2D) {
	s.pointer = pos
	switch s.mode {
	case ModeSelect:
		s.machine.ClearSelection()
		s.machine.Select(pos)
		if s.machine.PickState(pos) != nil {
			s.dragging = true
			s.dragMoved = false
			s.dragLast = pos
			return
		}
		if t := s.machine.PickTransition(pos, s.opts.PickTolerance); t != nil {
			t.SetSelected(true)
		}
	case ModeInsertTransition:
		s.pending = s.machine.PickState(pos)
		if s.pending == nil {
			s.log.Debug("no source state under pointer", "x", pos.X, "y", pos.Y)
		}
	}
}

// PointerUp handles a button release at pos. Insertions complete here.
func (s *Session) PointerUp(pos stde.Pos2D) error {
	s.pointer = pos
	switch s.mode {
	case ModeSelect:
		if s.dragging && s.dragMoved {
			s.log.Debug("moved states", "count", len(s.machine.SelectedStates()))
		}
		s.dragging = false
		s.dragMoved = false
		return nil

	case ModeInsertState:
		st, err := stde.NewState(s.SnapPos(pos), s.newStateID())
		if err != nil {
			return err
		}
		if err := st.SetSize(s.opts.StateWidth, s.opts.StateHeight); err != nil {
			return err
		}
		if err := s.machine.AddState(st); err != nil {
			return err
		}
		s.modified = true
		s.mode = ModeSelect
		s.log.Debug("added state", "id", st.ID(), "idx", st.Idx())
		return nil

	case ModeInsertTransition:
		from := s.pending
		s.pending = nil
		if from == nil {
			return nil
		}
		to := s.machine.PickState(pos)
		if to == nil {
			s.mode = ModeSelect
			return &stde.NotFoundError{Kind: "state", ID: fmt.Sprintf("(%.0f,%.0f)", pos.X, pos.Y)}
		}
		t, err := stde.NewTransition(from, to)
		if err != nil {
			return err
		}
		t.FaceEndpoints()
		if err := s.machine.AddTransition(t); err != nil {
			return err
		}
		s.modified = true
		s.mode = ModeSelect
		s.log.Debug("added transition", "from", from.ID(), "to", to.ID())
		return nil
	}
	return nil
}

// newStateID returns the first "sN" not already used by a state.
func (s *Session) newStateID() string {
	used := make(map[string]bool)
	for _, st := range s.machine.States() {
		used[st.ID()] = true
	}
	for {
		id := "s" + strconv.Itoa(s.nextState)
		s.nextState++
		if !used[id] {
			return id
		}
	}
}

// DeleteSelection removes selected states and transitions.
func (s *Session) DeleteSelection() (states, transitions int) {
	if len(s.machine.SelectedStates()) == 0 && !s.anyTransitionSelected() {
		return 0, 0
	}
	states, transitions = s.machine.DeleteSelection()
	s.modified = true
	s.log.Debug("deleted selection", "states", states, "transitions", transitions)
	return states, transitions
}

func (s *Session) anyTransitionSelected() bool {
	for _, t := range s.machine.Transitions() {
		if t.Selected() {
			return true
		}
	}
	return false
}

// SelectedTransition returns the first selected transition, or nil.
func (s *Session) SelectedTransition() *stde.Transition {
	for _, t := range s.machine.Transitions() {
		if t.Selected() {
			return t
		}
	}
	return nil
}

// Update applies fn as one edit. If fn fails the machine is restored in
// place to its prior content. The session is marked modified only when fn
// changed something.
func (s *Session) Update(fn func(m *stde.StateMachine) error) error {
	snapshot := s.machine.Snapshot()
	if err := fn(s.machine); err != nil {
		s.machine.Restore(snapshot)
		s.pending = nil
		s.dragging = false
		return err
	}
	if snapshot.Changed(s.machine) {
		s.modified = true
	}
	return nil
}

// AddSignal parses "id type bits io [desc...]" and appends the signal.
func (s *Session) AddSignal(line string) (*stde.Signal, error) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return nil, &stde.ValidationError{Field: "signal", Value: line, Reason: "want: id type bits io [desc]"}
	}
	typ, err := stde.ParseSignalType(fields[1])
	if err != nil {
		return nil, err
	}
	bits, err := strconv.Atoi(fields[2])
	if err != nil {
		return nil, &stde.ValidationError{Field: "bits", Value: fields[2], Reason: "not an integer"}
	}
	dir, err := stde.ParseSignalDirection(fields[3])
	if err != nil {
		return nil, err
	}
	sig, err := stde.NewSignal(fields[0], typ, bits, dir, strings.Join(fields[4:], " "))
	if err != nil {
		return nil, err
	}
	if err := s.Update(func(m *stde.StateMachine) error { return m.AddSignal(sig) }); err != nil {
		return nil, err
	}
	s.log.Debug("added signal", "id", sig.ID(), "type", sig.Type(), "bits", sig.Bits())
	return sig, nil
}

// Draw renders the machine and, while inserting, a ghost of the pending
// state or transition at the pointer.
func (s *Session) Draw(surface stde.Surface) {
	s.machine.Draw(surface)
	switch s.mode {
	case ModeInsertState:
		surface.DrawState(stde.StateView{
			Selected: true,
			Pos:      s.SnapPos(s.pointer),
			Width:    s.opts.StateWidth,
			Height:   s.opts.StateHeight,
		})
	case ModeInsertTransition:
		if s.pending == nil {
			return
		}
		from := s.pending.View()
		angle := math.Atan2(s.pointer.Y-from.Pos.Y, s.pointer.X-from.Pos.X)
		surface.DrawTransition(stde.TransitionView{
			Selected:  true,
			From:      from,
			To:        stde.StateView{Pos: s.pointer, Width: 1, Height: 1},
			FromAngle: angle,
			ToAngle:   angle + math.Pi,
		})
	}
}
