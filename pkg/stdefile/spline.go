// Piecewise cubic Bézier helpers for transition curves.
// A spline is [P0, C1, C2, P1, C3, C4, P2, ...]: each segment has four
// points and consecutive segments share an endpoint.

package stdefile

import "math"

// segmentAt maps a global parameter t ∈ [0,1] to a segment start index and
// the local parameter within that segment.
func segmentAt(spline []Point, t float64) (int, float64) {
	numSegments := (len(spline) - 1) / 3
	if numSegments < 1 {
		numSegments = 1
	}
	segment := int(t * float64(numSegments))
	if segment >= numSegments {
		segment = numSegments - 1
	}
	localT := t*float64(numSegments) - float64(segment)
	return segment * 3, math.Max(0, math.Min(1, localT))
}

// EvaluateSpline computes the point on a spline at parameter t ∈ [0,1].
// Splines with fewer than four points are treated as polylines.
func EvaluateSpline(spline []Point, t float64) Point {
	switch {
	case len(spline) == 0:
		return Point{}
	case len(spline) == 1:
		return spline[0]
	case len(spline) < 4:
		idx := int(t * float64(len(spline)-1))
		if idx >= len(spline)-1 {
			return spline[len(spline)-1]
		}
		localT := t*float64(len(spline)-1) - float64(idx)
		return Point{
			X: spline[idx].X*(1-localT) + spline[idx+1].X*localT,
			Y: spline[idx].Y*(1-localT) + spline[idx+1].Y*localT,
		}
	}

	i, u := segmentAt(spline, t)
	p0, p1, p2, p3 := spline[i], spline[i+1], spline[i+2], spline[i+3]
	mt := 1 - u
	return Point{
		X: mt*mt*mt*p0.X + 3*mt*mt*u*p1.X + 3*mt*u*u*p2.X + u*u*u*p3.X,
		Y: mt*mt*mt*p0.Y + 3*mt*mt*u*p1.Y + 3*mt*u*u*p2.Y + u*u*u*p3.Y,
	}
}

// EvaluateSplineTangent computes the (unnormalised) tangent at t.
func EvaluateSplineTangent(spline []Point, t float64) Point {
	if len(spline) < 4 {
		if len(spline) >= 2 {
			last := spline[len(spline)-1]
			return Point{last.X - spline[0].X, last.Y - spline[0].Y}
		}
		return Point{1, 0}
	}

	i, u := segmentAt(spline, t)
	p0, p1, p2, p3 := spline[i], spline[i+1], spline[i+2], spline[i+3]
	mt := 1 - u
	return Point{
		X: 3*mt*mt*(p1.X-p0.X) + 6*mt*u*(p2.X-p1.X) + 3*u*u*(p3.X-p2.X),
		Y: 3*mt*mt*(p1.Y-p0.Y) + 6*mt*u*(p2.Y-p1.Y) + 3*u*u*(p3.Y-p2.Y),
	}
}

// FlattenSpline samples the spline into steps+1 points.
func FlattenSpline(spline []Point, steps int) []Point {
	if steps < 1 {
		steps = 1
	}
	pts := make([]Point, steps+1)
	for i := 0; i <= steps; i++ {
		pts[i] = EvaluateSpline(spline, float64(i)/float64(steps))
	}
	return pts
}

// SplineLength approximates the length of a spline by sampling.
func SplineLength(spline []Point) float64 {
	if len(spline) < 2 {
		return 0
	}
	length := 0.0
	pts := FlattenSpline(spline, 100)
	for i := 1; i < len(pts); i++ {
		length += math.Hypot(pts[i].X-pts[i-1].X, pts[i].Y-pts[i-1].Y)
	}
	return length
}

// SplineMidpoint returns the point at the middle of the spline (t=0.5).
func SplineMidpoint(spline []Point) Point {
	return EvaluateSpline(spline, 0.5)
}
