// Geometric utilities for diagram rendering.
// Anchor points on state ellipses, transition curves, self-loops and
// label placement.

package stdefile

import (
	"math"

	"github.com/ha1tch/webstde/pkg/stde"
)

// Point represents a 2D coordinate.
type Point struct {
	X, Y float64
}

// Ellipse represents the drawn outline of a state, inscribed in its
// hit-test rectangle.
type Ellipse struct {
	CX, CY float64 // Center
	RX, RY float64 // Radii
}

// EllipseOf returns the ellipse inscribed in a state's footprint.
func EllipseOf(v stde.StateView) Ellipse {
	return Ellipse{CX: v.Pos.X, CY: v.Pos.Y, RX: v.Width / 2, RY: v.Height / 2}
}

// AnchorPoint returns the point on the ellipse boundary at the given
// angle (radians, 0 = east, increasing clockwise on screen).
func AnchorPoint(e Ellipse, angle float64) Point {
	nx, ny := math.Cos(angle), math.Sin(angle)
	// Ray from the centre in direction (nx, ny) meets (x/rx)²+(y/ry)²=1 at t.
	t := 1.0 / math.Sqrt((nx*nx)/(e.RX*e.RX)+(ny*ny)/(e.RY*e.RY))
	return Point{e.CX + nx*t, e.CY + ny*t}
}

// LoopSide indicates which side of a state the self-loop extends to.
type LoopSide int

const (
	LoopRight  LoopSide = iota // Loop extends right
	LoopLeft                   // Loop extends left
	LoopTop                    // Default: loop extends above
	LoopBottom                 // Loop extends below
)

// LoopSideFor picks the side a self-loop leaves from, given the mean of its
// two anchor angles.
func LoopSideFor(angle float64) LoopSide {
	dx, dy := math.Cos(angle), math.Sin(angle)
	if math.Abs(dx) > math.Abs(dy) {
		if dx > 0 {
			return LoopRight
		}
		return LoopLeft
	}
	if dy > 0 {
		return LoopBottom
	}
	return LoopTop
}

// SelfLoopParams configures self-loop rendering.
type SelfLoopParams struct {
	Side       LoopSide
	BaseOffset float64 // Distance from state edge to loop apex
	PortOffset float64 // Offset of ports from the axis (as fraction of the radius)
}

// DefaultSelfLoopParams returns standard parameters.
func DefaultSelfLoopParams() SelfLoopParams {
	return SelfLoopParams{
		Side:       LoopTop,
		BaseOffset: 40.0,
		PortOffset: 0.35,
	}
}

// SelfLoopControlPoints computes the 7 control points for a self-loop.
// Returns points P0-P6 forming two cubic Bézier segments:
//
//	Segment 1: P0, P1, P2, P3 (tail to apex)
//	Segment 2: P3, P4, P5, P6 (apex to head)
func SelfLoopControlPoints(state Ellipse, params SelfLoopParams, scale float64) []Point {
	cx, cy := state.CX, state.CY
	rx, ry := state.RX, state.RY
	offset := params.BaseOffset * scale

	switch params.Side {
	case LoopRight, LoopLeft:
		sign := 1.0
		if params.Side == LoopLeft {
			sign = -1.0
		}
		portY := ry * params.PortOffset
		spread := ry * 0.5
		dx := rx + offset
		return []Point{
			{cx + sign*rx, cy - portY},
			{cx + sign*(rx+offset*0.4), cy - portY - spread},
			{cx + sign*dx, cy - spread},
			{cx + sign*dx, cy},
			{cx + sign*dx, cy + spread},
			{cx + sign*(rx+offset*0.4), cy + portY + spread},
			{cx + sign*rx, cy + portY},
		}
	default:
		sign := -1.0
		if params.Side == LoopBottom {
			sign = 1.0
		}
		portX := rx * params.PortOffset
		spread := rx * 0.3
		dy := ry + offset
		return []Point{
			{cx - portX, cy + sign*ry},
			{cx - portX - spread, cy + sign*(ry+offset*0.4)},
			{cx - spread, cy + sign*dy},
			{cx, cy + sign*dy},
			{cx + spread, cy + sign*dy},
			{cx + portX + spread, cy + sign*(ry+offset*0.4)},
			{cx + portX, cy + sign*ry},
		}
	}
}

// TransitionCurve returns the cubic Bézier control points of a transition,
// running from the source anchor to the target anchor. Control points leave
// each anchor along the outward normal so edges bend away from the states.
func TransitionCurve(v stde.TransitionView) []Point {
	from, to := EllipseOf(v.From), EllipseOf(v.To)
	if v.SelfLoop {
		params := DefaultSelfLoopParams()
		params.Side = LoopSideFor((v.FromAngle + v.ToAngle) / 2)
		return SelfLoopControlPoints(from, params, 1)
	}

	p0 := AnchorPoint(from, v.FromAngle)
	p3 := AnchorPoint(to, v.ToAngle)
	reach := math.Hypot(p3.X-p0.X, p3.Y-p0.Y) * 0.3
	p1 := Point{p0.X + math.Cos(v.FromAngle)*reach, p0.Y + math.Sin(v.FromAngle)*reach}
	p2 := Point{p3.X + math.Cos(v.ToAngle)*reach, p3.Y + math.Sin(v.ToAngle)*reach}
	return []Point{p0, p1, p2, p3}
}

// Rect represents an axis-aligned rectangle.
type Rect struct {
	X, Y float64 // Center
	W, H float64 // Full width and height
}

// RectOf returns a state's footprint as a Rect.
func RectOf(v stde.StateView) Rect {
	return Rect{X: v.Pos.X, Y: v.Pos.Y, W: v.Width, H: v.Height}
}

// RectOverlap returns the overlap area between two rectangles.
// Returns 0 if they don't overlap.
func RectOverlap(a, b Rect) float64 {
	overlapX := (a.W/2 + b.W/2) - math.Abs(a.X-b.X)
	overlapY := (a.H/2 + b.H/2) - math.Abs(a.Y-b.Y)
	if overlapX <= 0 || overlapY <= 0 {
		return 0
	}
	return overlapX * overlapY
}

// Bounds is the bounding box of a diagram in canvas coordinates.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// Empty reports whether nothing has been added to the bounds.
func (b Bounds) Empty() bool { return b.MinX > b.MaxX }

func (b Bounds) Width() float64  { return b.MaxX - b.MinX }
func (b Bounds) Height() float64 { return b.MaxY - b.MinY }

// DiagramBounds returns the extent of all state footprints plus the
// control points of every transition curve.
func DiagramBounds(m *stde.StateMachine) Bounds {
	b := Bounds{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	add := func(x, y float64) {
		b.MinX = math.Min(b.MinX, x)
		b.MinY = math.Min(b.MinY, y)
		b.MaxX = math.Max(b.MaxX, x)
		b.MaxY = math.Max(b.MaxY, y)
	}
	for _, s := range m.States() {
		r := RectOf(s.View())
		add(r.X-r.W/2, r.Y-r.H/2)
		add(r.X+r.W/2, r.Y+r.H/2)
	}
	for _, t := range m.Transitions() {
		for _, p := range TransitionCurve(t.View()) {
			add(p.X, p.Y)
		}
	}
	return b
}

// LabelPlacer manages label placement with collision avoidance.
type LabelPlacer struct {
	obstacles []Rect
}

// NewLabelPlacer creates a LabelPlacer with initial obstacles (states).
func NewLabelPlacer(states []Rect) *LabelPlacer {
	obstacles := make([]Rect, len(states))
	copy(obstacles, states)
	return &LabelPlacer{obstacles: obstacles}
}

// AddObstacle reserves r so later labels avoid it.
func (lp *LabelPlacer) AddObstacle(r Rect) {
	lp.obstacles = append(lp.obstacles, r)
}

// PlaceLabelOnCurve places a label beside a point on a curve, offset
// perpendicular to the tangent, on whichever side overlaps less.
func (lp *LabelPlacer) PlaceLabelOnCurve(curvePoint, tangent Point, labelW, labelH, offset float64) Point {
	dist := math.Hypot(tangent.X, tangent.Y)
	if dist < 0.001 {
		lp.AddObstacle(Rect{curvePoint.X, curvePoint.Y, labelW, labelH})
		return curvePoint
	}
	perpX := -tangent.Y / dist
	perpY := tangent.X / dist

	best := Point{}
	bestOverlap := math.MaxFloat64
	for _, sign := range []float64{1, -1} {
		pos := Point{
			X: curvePoint.X + perpX*offset*sign,
			Y: curvePoint.Y + perpY*offset*sign,
		}
		r := Rect{pos.X, pos.Y, labelW, labelH}
		total := 0.0
		for _, obs := range lp.obstacles {
			total += RectOverlap(r, obs)
		}
		if total < bestOverlap {
			best, bestOverlap = pos, total
		}
		if total == 0 {
			break
		}
	}
	lp.AddObstacle(Rect{best.X, best.Y, labelW, labelH})
	return best
}
