package editor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha1tch/webstde/pkg/stde"
)

type recordingSurface struct {
	states      []stde.StateView
	transitions []stde.TransitionView
}

func (r *recordingSurface) DrawState(v stde.StateView)           { r.states = append(r.states, v) }
func (r *recordingSurface) DrawTransition(v stde.TransitionView) { r.transitions = append(r.transitions, v) }

func click(s *Session, x, y float64) error {
	p := stde.Pos2D{X: x, Y: y}
	s.PointerMove(p)
	s.PointerDown(p)
	return s.PointerUp(p)
}

func insertState(t *testing.T, s *Session, x, y float64) *stde.State {
	t.Helper()
	s.BeginInsertState()
	require.NoError(t, click(s, x, y))
	states := s.Machine().States()
	return states[len(states)-1]
}

// twoStates builds s0 at (100,100) and s1 at (600,100).
func twoStates(t *testing.T) *Session {
	t.Helper()
	s := New(nil, DefaultOptions())
	insertState(t, s, 100, 100)
	insertState(t, s, 600, 100)
	return s
}

func TestInsertState(t *testing.T) {
	s := New(nil, DefaultOptions())
	assert.Equal(t, ModeSelect, s.Mode())

	s.BeginInsertState()
	assert.Equal(t, ModeInsertState, s.Mode())
	require.NoError(t, click(s, 100, 100))

	states := s.Machine().States()
	require.Len(t, states, 1)
	assert.Equal(t, "s0", states[0].ID())
	assert.Equal(t, stde.Pos2D{X: 100, Y: 100}, states[0].Pos())
	assert.Equal(t, 0, states[0].Idx())
	assert.Equal(t, ModeSelect, s.Mode())
	assert.True(t, s.Modified())

	s.MarkSaved()
	assert.False(t, s.Modified())
}

func TestInsertStateSnaps(t *testing.T) {
	s := New(nil, DefaultOptions())
	insertState(t, s, 100, 100)

	st := insertState(t, s, 120, 400)
	assert.Equal(t, stde.Pos2D{X: 100, Y: 400}, st.Pos())

	s.SetSnap(false)
	assert.False(t, s.SnapEnabled())
	st = insertState(t, s, 120, 700)
	assert.Equal(t, stde.Pos2D{X: 120, Y: 700}, st.Pos())
}

func TestNewStateIDSkipsTaken(t *testing.T) {
	m := stde.New("")
	taken, err := stde.NewState(stde.Pos2D{X: 1000, Y: 1000}, "s0")
	require.NoError(t, err)
	require.NoError(t, m.AddState(taken))

	s := New(m, DefaultOptions())
	st := insertState(t, s, 0, 0)
	assert.Equal(t, "s1", st.ID())
}

func TestInsertTransition(t *testing.T) {
	s := twoStates(t)

	s.BeginInsertTransition()
	s.PointerDown(stde.Pos2D{X: 100, Y: 100})
	require.NotNil(t, s.Pending())
	require.NoError(t, s.PointerUp(stde.Pos2D{X: 600, Y: 120}))

	trans := s.Machine().Transitions()
	require.Len(t, trans, 1)
	assert.Equal(t, "s0", trans[0].From().ID())
	assert.Equal(t, "s1", trans[0].To().ID())
	assert.InDelta(t, 0, trans[0].FromAngle(), 1e-9)
	assert.Equal(t, ModeSelect, s.Mode())
	assert.Nil(t, s.Pending())
}

func TestInsertTransitionMissesTarget(t *testing.T) {
	s := twoStates(t)

	s.BeginInsertTransition()
	s.PointerDown(stde.Pos2D{X: 100, Y: 100})
	err := s.PointerUp(stde.Pos2D{X: 350, Y: 900})
	assert.ErrorIs(t, err, stde.ErrNotFound)
	assert.Empty(t, s.Machine().Transitions())
	assert.Equal(t, ModeSelect, s.Mode())

	// Pressing on empty canvas picks no source; release does nothing.
	s.BeginInsertTransition()
	require.NoError(t, click(s, 350, 900))
	assert.Empty(t, s.Machine().Transitions())
}

func TestSelectAndDelete(t *testing.T) {
	s := twoStates(t)
	s.BeginInsertTransition()
	s.PointerDown(stde.Pos2D{X: 100, Y: 100})
	require.NoError(t, s.PointerUp(stde.Pos2D{X: 600, Y: 100}))

	require.NoError(t, click(s, 100, 100))
	sel := s.Machine().SelectedStates()
	require.Len(t, sel, 1)
	assert.Equal(t, "s0", sel[0].ID())

	states, trans := s.DeleteSelection()
	assert.Equal(t, 1, states)
	assert.Equal(t, 1, trans)
	require.Len(t, s.Machine().States(), 1)
	assert.Equal(t, 0, s.Machine().States()[0].Idx())

	// Nothing selected: no-op.
	s.MarkSaved()
	require.NoError(t, click(s, 5000, 5000))
	states, trans = s.DeleteSelection()
	assert.Zero(t, states)
	assert.Zero(t, trans)
	assert.False(t, s.Modified())
}

func TestSelectTransition(t *testing.T) {
	s := twoStates(t)
	s.BeginInsertTransition()
	s.PointerDown(stde.Pos2D{X: 100, Y: 100})
	require.NoError(t, s.PointerUp(stde.Pos2D{X: 600, Y: 100}))

	require.NoError(t, click(s, 350, 104))
	tr := s.SelectedTransition()
	require.NotNil(t, tr)
	assert.Empty(t, s.Machine().SelectedStates())

	_, n := s.DeleteSelection()
	assert.Equal(t, 1, n)
	assert.Len(t, s.Machine().States(), 2)
}

func TestDrag(t *testing.T) {
	s := twoStates(t)
	s.MarkSaved()

	// Press and release without movement leaves the machine untouched.
	require.NoError(t, click(s, 100, 100))
	assert.False(t, s.Modified())

	s.PointerDown(stde.Pos2D{X: 100, Y: 100})
	s.PointerMove(stde.Pos2D{X: 130, Y: 110})
	s.PointerMove(stde.Pos2D{X: 150, Y: 120})
	require.NoError(t, s.PointerUp(stde.Pos2D{X: 150, Y: 120}))
	assert.Equal(t, stde.Pos2D{X: 150, Y: 120}, s.Machine().States()[0].Pos())
	assert.Equal(t, stde.Pos2D{X: 600, Y: 100}, s.Machine().States()[1].Pos())
	assert.True(t, s.Modified())

	// Moving after release does nothing.
	s.PointerMove(stde.Pos2D{X: 900, Y: 900})
	assert.Equal(t, stde.Pos2D{X: 150, Y: 120}, s.Machine().States()[0].Pos())
}

func TestUpdateRollsBack(t *testing.T) {
	s := twoStates(t)
	s.MarkSaved()

	err := s.Update(func(m *stde.StateMachine) error {
		m.States()[0].SetDesc("changed")
		return errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
	assert.Equal(t, "", s.Machine().States()[0].Desc())
	assert.Len(t, s.Machine().States(), 2)
	assert.False(t, s.Modified())

	require.NoError(t, s.Update(func(m *stde.StateMachine) error {
		m.States()[0].SetDesc("idle")
		return nil
	}))
	assert.Equal(t, "idle", s.Machine().States()[0].Desc())
	assert.True(t, s.Modified())
}

func TestUpdateRollbackKeepsFootprintAndSelection(t *testing.T) {
	opts := DefaultOptions()
	opts.StateWidth, opts.StateHeight = 60, 30
	s := New(nil, opts)
	st := insertState(t, s, 100, 100)
	other := insertState(t, s, 400, 100)
	tr, err := stde.NewTransition(st, other)
	require.NoError(t, err)
	require.NoError(t, s.Update(func(m *stde.StateMachine) error { return m.AddTransition(tr) }))
	tr.SetSelected(true)

	err = s.Update(func(m *stde.StateMachine) error {
		m.SetID("half-applied")
		m.States()[0].SetPos(stde.Pos2D{X: 0, Y: 0})
		return errors.New("boom")
	})
	require.Error(t, err)

	assert.Equal(t, "", s.Machine().ID())
	assert.Same(t, st, s.Machine().States()[0])
	assert.Equal(t, stde.Pos2D{X: 100, Y: 100}, st.Pos())
	assert.Equal(t, 60.0, st.Width())
	assert.Equal(t, 30.0, st.Height())
	assert.True(t, tr.Selected())
}

func TestUpdateWithoutChangeKeepsSaved(t *testing.T) {
	s := New(nil, DefaultOptions())
	sig, err := s.AddSignal("x bit 1 input")
	require.NoError(t, err)
	s.MarkSaved()

	require.NoError(t, s.Update(func(m *stde.StateMachine) error { return m.MoveUpSignal(sig) }))
	assert.False(t, s.Modified())

	err = s.Update(func(m *stde.StateMachine) error { return sig.SetBitsString("8") })
	assert.ErrorIs(t, err, stde.ErrValidation)
	assert.Equal(t, 1, sig.Bits())
	assert.False(t, s.Modified())
}

func TestAddSignal(t *testing.T) {
	s := New(nil, DefaultOptions())

	sig, err := s.AddSignal("data bit_n 8 input the data bus")
	require.NoError(t, err)
	assert.Equal(t, stde.SignalRecord{ID: "data", Type: "bit_n", Bits: 8, IO: "input", Desc: "the data bus"}, sig.Record())
	assert.Len(t, s.Machine().Signals(), 1)

	bit, err := s.AddSignal("clk bit 4 input")
	require.NoError(t, err)
	assert.Equal(t, 1, bit.Bits())

	for _, line := range []string{
		"",
		"x bit_n 8",
		"x bit_n eight input",
		"x float 8 input",
		"x bit_n 8 sideways",
		"x bit_n 0 input",
	} {
		_, err := s.AddSignal(line)
		assert.ErrorIs(t, err, stde.ErrValidation, line)
	}
	assert.Len(t, s.Machine().Signals(), 2)
}

func TestDrawGhostState(t *testing.T) {
	s := New(nil, DefaultOptions())
	insertState(t, s, 100, 100)

	s.BeginInsertState()
	s.PointerMove(stde.Pos2D{X: 110, Y: 500})
	var r recordingSurface
	s.Draw(&r)

	require.Len(t, r.states, 2)
	ghost := r.states[1]
	assert.True(t, ghost.Selected)
	assert.Equal(t, stde.Pos2D{X: 100, Y: 500}, ghost.Pos)
	assert.Equal(t, stde.DefaultStateWidth, ghost.Width)

	s.Cancel()
	r = recordingSurface{}
	s.Draw(&r)
	assert.Len(t, r.states, 1)
}

func TestDrawGhostTransition(t *testing.T) {
	s := twoStates(t)
	s.BeginInsertTransition()
	s.PointerDown(stde.Pos2D{X: 100, Y: 100})
	s.PointerMove(stde.Pos2D{X: 100, Y: 400})

	var r recordingSurface
	s.Draw(&r)
	require.Len(t, r.transitions, 1)
	assert.Equal(t, "s0", r.transitions[0].From.Label)
	assert.Equal(t, stde.Pos2D{X: 100, Y: 400}, r.transitions[0].To.Pos)
}

func TestReplace(t *testing.T) {
	s := twoStates(t)
	s.BeginInsertState()

	s.Replace(stde.New("other"))
	assert.Equal(t, ModeSelect, s.Mode())
	assert.Equal(t, "other", s.Machine().ID())
	assert.False(t, s.Modified())
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "select", ModeSelect.String())
	assert.Equal(t, "insert-state", ModeInsertState.String())
	assert.Equal(t, "insert-transition", ModeInsertTransition.String())
	assert.Equal(t, "Mode(9)", Mode(9).String())
}
