package stdefile

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha1tch/webstde/pkg/stde"
)

// diamond builds a -> b, a -> c, b -> d, c -> d, a self-loop on d and an
// isolated state e, all stacked at the origin.
func diamond(t *testing.T) *stde.StateMachine {
	t.Helper()
	m := stde.New("diamond")
	var states []*stde.State
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		s, err := stde.NewState(stde.Pos2D{}, id)
		require.NoError(t, err)
		require.NoError(t, m.AddState(s))
		states = append(states, s)
	}
	for _, e := range [][2]int{{0, 1}, {0, 2}, {1, 3}, {2, 3}, {3, 3}} {
		tr, err := stde.NewTransition(states[e[0]], states[e[1]])
		require.NoError(t, err)
		require.NoError(t, m.AddTransition(tr))
	}
	return m
}

func assertNoOverlap(t *testing.T, m *stde.StateMachine, positions []stde.Pos2D) {
	t.Helper()
	states := m.States()
	for i := range positions {
		for j := i + 1; j < len(positions); j++ {
			a, b := states[i].View(), states[j].View()
			a.Pos, b.Pos = positions[i], positions[j]
			assert.Zero(t, RectOverlap(RectOf(a), RectOf(b)), "states %d and %d overlap", i, j)
		}
	}
}

func TestLayoutLayered(t *testing.T) {
	m := diamond(t)
	pos := Layout(m, LayoutLayered, DefaultLayoutOptions())
	require.Len(t, pos, 5)

	want := []stde.Pos2D{
		{X: 300, Y: 95},  // a, centred over b and c
		{X: 150, Y: 295}, // b
		{X: 450, Y: 295}, // c
		{X: 300, Y: 495}, // d
		{X: 300, Y: 695}, // e, unreachable, own layer
	}
	for i := range want {
		assert.InDelta(t, want[i].X, pos[i].X, 1e-9, "state %d x", i)
		assert.InDelta(t, want[i].Y, pos[i].Y, 1e-9, "state %d y", i)
	}
	assertNoOverlap(t, m, pos)
}

func TestLayoutGrid(t *testing.T) {
	m := diamond(t)
	pos := Layout(m, LayoutGrid, DefaultLayoutOptions())
	require.Len(t, pos, 5)

	assert.Equal(t, stde.Pos2D{X: 150, Y: 95}, pos[0])
	assert.Equal(t, stde.Pos2D{X: 750, Y: 95}, pos[2])
	assert.Equal(t, stde.Pos2D{X: 450, Y: 295}, pos[4])
	assertNoOverlap(t, m, pos)
}

func TestLayoutCircular(t *testing.T) {
	m := diamond(t)
	pos := Layout(m, LayoutCircular, DefaultLayoutOptions())
	require.Len(t, pos, 5)

	centre := stde.Pos2D{X: 450, Y: 395}
	assert.InDelta(t, 450, pos[0].X, 1e-9)
	assert.InDelta(t, 95, pos[0].Y, 1e-9)
	for i, p := range pos {
		assert.InDelta(t, 300, p.Dist(centre), 1e-9, "state %d", i)
	}
	// Clockwise from the top: b sits right of a.
	assert.Greater(t, pos[1].X, pos[0].X)
	assertNoOverlap(t, m, pos)
}

func TestLayoutSingleAndEmpty(t *testing.T) {
	assert.Nil(t, Layout(stde.New(""), LayoutLayered, DefaultLayoutOptions()))

	m := stde.New("")
	s, err := stde.NewState(stde.Pos2D{X: 999, Y: 999}, "only")
	require.NoError(t, err)
	require.NoError(t, m.AddState(s))
	for _, alg := range []LayoutAlgorithm{LayoutGrid, LayoutCircular, LayoutLayered} {
		pos := Layout(m, alg, DefaultLayoutOptions())
		require.Len(t, pos, 1, alg.String())
		assert.InDelta(t, 150, pos[0].X, 1e-9, alg.String())
		assert.InDelta(t, 95, pos[0].Y, 1e-9, alg.String())
	}
}

func TestArrangeReaimsTransitions(t *testing.T) {
	m := diamond(t)
	Arrange(m, LayoutLayered, DefaultLayoutOptions())

	a, _ := m.StateAt(0)
	b, _ := m.StateAt(1)
	assert.InDelta(t, 300, a.Pos().X, 1e-9)
	assert.InDelta(t, 150, b.Pos().X, 1e-9)

	ab := m.Transitions()[0]
	assert.InDelta(t, math.Atan2(b.Pos().Y-a.Pos().Y, b.Pos().X-a.Pos().X), ab.FromAngle(), 1e-9)
	assert.InDelta(t, math.Atan2(a.Pos().Y-b.Pos().Y, a.Pos().X-b.Pos().X), ab.ToAngle(), 1e-9)
}

func TestParseLayoutAlgorithm(t *testing.T) {
	for _, name := range []string{"grid", "circular", "layered"} {
		alg, err := ParseLayoutAlgorithm(name)
		require.NoError(t, err)
		assert.Equal(t, name, alg.String())
	}
	_, err := ParseLayoutAlgorithm("force")
	assert.ErrorIs(t, err, stde.ErrValidation)
	assert.Equal(t, "LayoutAlgorithm(7)", LayoutAlgorithm(7).String())
}
