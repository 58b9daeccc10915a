package stdefile

import (
	"fmt"
	"math"
	"sort"

	"github.com/ha1tch/webstde/pkg/stde"
)

// LayoutAlgorithm represents a layout strategy.
type LayoutAlgorithm int

const (
	LayoutGrid LayoutAlgorithm = iota
	LayoutCircular
	LayoutLayered
)

var layoutNames = []string{"grid", "circular", "layered"}

func (a LayoutAlgorithm) String() string {
	if a >= 0 && int(a) < len(layoutNames) {
		return layoutNames[a]
	}
	return fmt.Sprintf("LayoutAlgorithm(%d)", int(a))
}

// ParseLayoutAlgorithm maps "grid", "circular" or "layered" to an algorithm.
func ParseLayoutAlgorithm(name string) (LayoutAlgorithm, error) {
	for i, n := range layoutNames {
		if n == name {
			return LayoutAlgorithm(i), nil
		}
	}
	return 0, &stde.ValidationError{Field: "layout", Value: name, Reason: "must be grid, circular or layered"}
}

// LayoutOptions controls spacing. Gaps are measured between state edges.
type LayoutOptions struct {
	HGap, VGap float64
	Origin     stde.Pos2D // top-left corner of the arranged diagram
}

// DefaultLayoutOptions returns spacing that leaves room for edge labels.
func DefaultLayoutOptions() LayoutOptions {
	return LayoutOptions{HGap: 80, VGap: 90, Origin: stde.Pos2D{X: 40, Y: 40}}
}

// Layout computes a position for every state, indexed like m.States().
func Layout(m *stde.StateMachine, alg LayoutAlgorithm, opts LayoutOptions) []stde.Pos2D {
	states := m.States()
	if len(states) == 0 {
		return nil
	}
	var cellW, cellH float64
	for _, s := range states {
		cellW = math.Max(cellW, s.Width())
		cellH = math.Max(cellH, s.Height())
	}
	cellW += opts.HGap
	cellH += opts.VGap

	switch alg {
	case LayoutCircular:
		return layoutCircular(m, cellW, opts)
	case LayoutLayered:
		return layoutLayered(m, cellW, cellH, opts)
	}
	return layoutGrid(len(states), cellW, cellH, opts)
}

// Arrange moves every state to its computed position and re-aims the
// transitions at their new endpoints.
func Arrange(m *stde.StateMachine, alg LayoutAlgorithm, opts LayoutOptions) {
	positions := Layout(m, alg, opts)
	for i, s := range m.States() {
		s.SetPos(positions[i])
	}
	for _, t := range m.Transitions() {
		t.FaceEndpoints()
	}
}

// cellCentre is the centre of grid cell (col, row).
func cellCentre(col, row, cellW, cellH float64, opts LayoutOptions) stde.Pos2D {
	return stde.Pos2D{
		X: opts.Origin.X + col*cellW + (cellW-opts.HGap)/2,
		Y: opts.Origin.Y + row*cellH + (cellH-opts.VGap)/2,
	}
}

// layoutGrid arranges states row by row in a near-square grid.
func layoutGrid(n int, cellW, cellH float64, opts LayoutOptions) []stde.Pos2D {
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	positions := make([]stde.Pos2D, n)
	for i := range positions {
		positions[i] = cellCentre(float64(i%cols), float64(i/cols), cellW, cellH, opts)
	}
	return positions
}

// layoutCircular places states on a circle, state 0 at the top, then
// clockwise in breadth-first order so neighbours stay close.
func layoutCircular(m *stde.StateMachine, cellW float64, opts LayoutOptions) []stde.Pos2D {
	var maxW, maxH float64
	for _, s := range m.States() {
		maxW = math.Max(maxW, s.Width())
		maxH = math.Max(maxH, s.Height())
	}
	order := bfsOrder(m)
	n := len(order)
	radius := 0.0
	if n > 1 {
		radius = math.Max(float64(n)*cellW/(2*math.Pi), cellW)
	}
	centre := stde.Pos2D{X: opts.Origin.X + radius + maxW/2, Y: opts.Origin.Y + radius + maxH/2}

	positions := make([]stde.Pos2D, n)
	for i, idx := range order {
		angle := -math.Pi/2 + 2*math.Pi*float64(i)/float64(n)
		positions[idx] = stde.Pos2D{
			X: centre.X + radius*math.Cos(angle),
			Y: centre.Y + radius*math.Sin(angle),
		}
	}
	return positions
}

// adjacency holds successor and predecessor lists by state index.
// Self-loops are ignored.
type adjacency struct {
	forward, backward [][]int
}

func buildAdjacency(m *stde.StateMachine) adjacency {
	n := len(m.States())
	g := adjacency{forward: make([][]int, n), backward: make([][]int, n)}
	for _, t := range m.Transitions() {
		u, v := t.From().Idx(), t.To().Idx()
		if u == v {
			continue
		}
		g.forward[u] = append(g.forward[u], v)
		g.backward[v] = append(g.backward[v], u)
	}
	return g
}

// bfsOrder visits states breadth first from state 0. States unreachable
// from it start new searches in index order.
func bfsOrder(m *stde.StateMachine) []int {
	g := buildAdjacency(m)
	n := len(g.forward)
	seen := make([]bool, n)
	order := make([]int, 0, n)
	for root := 0; root < n; root++ {
		if seen[root] {
			continue
		}
		seen[root] = true
		queue := []int{root}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			order = append(order, cur)
			for _, next := range g.forward[cur] {
				if !seen[next] {
					seen[next] = true
					queue = append(queue, next)
				}
			}
		}
	}
	return order
}

// assignLayers puts each state in the layer of its breadth-first distance
// from state 0. Unreachable states each get a layer of their own after
// the reachable ones.
func assignLayers(g adjacency) [][]int {
	n := len(g.forward)
	layer := make([]int, n)
	for i := range layer {
		layer[i] = -1
	}
	layer[0] = 0
	maxLayer := 0
	queue := []int{0}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.forward[cur] {
			if layer[next] < 0 {
				layer[next] = layer[cur] + 1
				maxLayer = max(maxLayer, layer[next])
				queue = append(queue, next)
			}
		}
	}
	for i := range layer {
		if layer[i] < 0 {
			maxLayer++
			layer[i] = maxLayer
		}
	}

	layers := make([][]int, maxLayer+1)
	for i, l := range layer {
		layers[l] = append(layers[l], i)
	}
	return layers
}

// reduceCrossings reorders each layer by the barycenter of its neighbours
// in the adjacent layer: one pass down using predecessors, one pass up
// using successors.
func reduceCrossings(layers [][]int, g adjacency) {
	pos := make(map[int]float64)
	for _, layer := range layers {
		for i, s := range layer {
			pos[s] = float64(i)
		}
	}
	sweep := func(layer []int, neighbours [][]int) {
		bary := make(map[int]float64, len(layer))
		for _, s := range layer {
			sum, count := 0.0, 0
			for _, nb := range neighbours[s] {
				sum += pos[nb]
				count++
			}
			if count > 0 {
				bary[s] = sum / float64(count)
			} else {
				bary[s] = pos[s]
			}
		}
		sort.SliceStable(layer, func(i, j int) bool {
			if bary[layer[i]] != bary[layer[j]] {
				return bary[layer[i]] < bary[layer[j]]
			}
			return layer[i] < layer[j]
		})
		for i, s := range layer {
			pos[s] = float64(i)
		}
	}
	for l := 1; l < len(layers); l++ {
		sweep(layers[l], g.backward)
	}
	for l := len(layers) - 2; l >= 0; l-- {
		sweep(layers[l], g.forward)
	}
}

// layoutLayered stacks the layers top to bottom, centring each layer on
// the widest one.
func layoutLayered(m *stde.StateMachine, cellW, cellH float64, opts LayoutOptions) []stde.Pos2D {
	g := buildAdjacency(m)
	layers := assignLayers(g)
	reduceCrossings(layers, g)

	widest := 0
	for _, layer := range layers {
		widest = max(widest, len(layer))
	}
	positions := make([]stde.Pos2D, len(g.forward))
	for row, layer := range layers {
		shift := float64(widest-len(layer)) / 2
		for col, s := range layer {
			positions[s] = cellCentre(float64(col)+shift, float64(row), cellW, cellH, opts)
		}
	}
	return positions
}
