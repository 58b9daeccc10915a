package stdefile

import (
	"math"

	"github.com/ha1tch/webstde/pkg/stde"
)

// viewport maps canvas coordinates to output pixels: uniform scale, then
// translation so the diagram is centred in the available area.
type viewport struct {
	scale      float64
	offX, offY float64
}

// fitViewport fits b into a width×height image with padding on all sides
// and titleSpace reserved at the top. Scale never exceeds maxScale.
func fitViewport(b Bounds, width, height, padding, titleSpace, maxScale float64) viewport {
	availW := width - 2*padding
	availH := height - 2*padding - titleSpace
	if b.Empty() || availW <= 0 || availH <= 0 {
		return viewport{scale: 1, offX: padding, offY: padding + titleSpace}
	}

	// Avoid degenerate scaling for a single narrow column or row.
	bw := math.Max(b.Width(), 1)
	bh := math.Max(b.Height(), 1)

	scale := math.Min(availW/bw, availH/bh)
	if maxScale > 0 && scale > maxScale {
		scale = maxScale
	}

	return viewport{
		scale: scale,
		offX:  padding + (availW-bw*scale)/2 - b.MinX*scale,
		offY:  padding + titleSpace + (availH-bh*scale)/2 - b.MinY*scale,
	}
}

func (v viewport) point(p Point) Point {
	return Point{p.X*v.scale + v.offX, p.Y*v.scale + v.offY}
}

func (v viewport) pos(p stde.Pos2D) Point {
	return v.point(Point{p.X, p.Y})
}

func (v viewport) points(ps []Point) []Point {
	out := make([]Point, len(ps))
	for i, p := range ps {
		out[i] = v.point(p)
	}
	return out
}
