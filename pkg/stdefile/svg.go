package stdefile

import (
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/ha1tch/webstde/pkg/stde"
)

// SVGOptions controls native SVG rendering.
type SVGOptions struct {
	Width       int     // canvas width in pixels
	Height      int     // canvas height in pixels
	Title       string  // diagram title
	FontSize    int     // font size for state labels
	LabelSize   int     // font size for transition labels and outputs (0 = FontSize - 4)
	TitleSize   int     // font size for title (0 = FontSize + 4)
	Padding     int     // padding around edges
	MaxScale    float64 // upper bound on canvas-to-pixel scale (0 = 1.0)
	ShowOutputs bool    // print Moore outputs under the divider
}

// DefaultSVGOptions returns sensible defaults.
func DefaultSVGOptions() SVGOptions {
	return SVGOptions{
		Width:       1200,
		Height:      800,
		FontSize:    24,
		Padding:     40,
		MaxScale:    1.0,
		ShowOutputs: true,
	}
}

func (o *SVGOptions) fill() {
	d := DefaultSVGOptions()
	if o.Width == 0 {
		o.Width = d.Width
	}
	if o.Height == 0 {
		o.Height = d.Height
	}
	if o.FontSize == 0 {
		o.FontSize = d.FontSize
	}
	if o.LabelSize == 0 {
		o.LabelSize = o.FontSize - 4
	}
	if o.TitleSize == 0 {
		o.TitleSize = o.FontSize + 4
	}
	if o.Padding == 0 {
		o.Padding = d.Padding
	}
	if o.MaxScale == 0 {
		o.MaxScale = d.MaxScale
	}
}

// SVGSurface draws a diagram as SVG markup. It implements stde.Surface.
type SVGSurface struct {
	sb     strings.Builder
	opts   SVGOptions
	vp     viewport
	placer *LabelPlacer
	closed bool
}

// NewSVGSurface starts an SVG document sized by opts, scaled so that the
// canvas region b fits.
func NewSVGSurface(opts SVGOptions, b Bounds) *SVGSurface {
	opts.fill()
	titleSpace := 0.0
	if opts.Title != "" {
		titleSpace = float64(opts.TitleSize) + 16
	}
	s := &SVGSurface{
		opts:   opts,
		vp:     fitViewport(b, float64(opts.Width), float64(opts.Height), float64(opts.Padding), titleSpace, opts.MaxScale),
		placer: NewLabelPlacer(nil),
	}

	fmt.Fprintf(&s.sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<defs>
  <marker id="arrowhead" markerWidth="10" markerHeight="7" refX="9" refY="3.5" orient="auto">
    <polygon points="0 0, 10 3.5, 0 7" fill="#333"/>
  </marker>
  <marker id="arrowhead-sel" markerWidth="10" markerHeight="7" refX="9" refY="3.5" orient="auto">
    <polygon points="0 0, 10 3.5, 0 7" fill="#1565c0"/>
  </marker>
</defs>
<style>
  .state { fill: white; stroke: #333; stroke-width: 2; }
  .state-selected { fill: white; stroke: #1565c0; stroke-width: 4; }
  .divider { stroke: #333; stroke-width: 1.5; }
  .state-label { font-family: sans-serif; font-size: %dpx; text-anchor: middle; dominant-baseline: middle; }
  .moore-output { font-family: sans-serif; font-size: %dpx; fill: #666; text-anchor: middle; dominant-baseline: middle; }
  .transition { fill: none; stroke: #333; stroke-width: 1.5; marker-end: url(#arrowhead); }
  .transition-selected { fill: none; stroke: #1565c0; stroke-width: 3; marker-end: url(#arrowhead-sel); }
  .trans-label { font-family: sans-serif; font-size: %dpx; fill: #333; text-anchor: middle; dominant-baseline: middle; }
  .title { font-family: sans-serif; font-size: %dpx; font-weight: bold; text-anchor: middle; }
</style>
<rect width="%d" height="%d" fill="white"/>
`, opts.Width, opts.Height, opts.Width, opts.Height,
		s.fontPx(opts.FontSize), s.fontPx(opts.LabelSize), s.fontPx(opts.LabelSize), opts.TitleSize,
		opts.Width, opts.Height)

	if opts.Title != "" {
		fmt.Fprintf(&s.sb, `<text x="%d" y="%d" class="title">%s</text>
`, opts.Width/2, opts.Padding/2+opts.TitleSize, html.EscapeString(opts.Title))
	}
	return s
}

// fontPx scales a canvas font size, keeping it readable.
func (s *SVGSurface) fontPx(size int) int {
	return int(math.Max(8, math.Round(float64(size)*s.vp.scale)))
}

func textWidth(label string, fontPx int) float64 {
	return float64(len([]rune(label))*fontPx) * 0.6
}

// DrawState draws the ellipse, the horizontal divider, the label in the
// upper half and the Moore outputs in the lower half.
func (s *SVGSurface) DrawState(v stde.StateView) {
	c := s.vp.pos(v.Pos)
	rx := v.Width / 2 * s.vp.scale
	ry := v.Height / 2 * s.vp.scale
	s.placer.AddObstacle(Rect{c.X, c.Y, rx * 2, ry * 2})

	class := "state"
	if v.Selected {
		class = "state-selected"
	}
	fmt.Fprintf(&s.sb, `<ellipse cx="%.1f" cy="%.1f" rx="%.1f" ry="%.1f" class="%s"/>
`, c.X, c.Y, rx, ry, class)
	fmt.Fprintf(&s.sb, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" class="divider"/>
`, c.X-rx, c.Y, c.X+rx, c.Y)
	fmt.Fprintf(&s.sb, `<text x="%.1f" y="%.1f" class="state-label">%s</text>
`, c.X, c.Y-ry/3, html.EscapeString(v.Label))

	if s.opts.ShowOutputs {
		if out := stde.FormatOutputs(v.Outputs); out != "" {
			fmt.Fprintf(&s.sb, `<text x="%.1f" y="%.1f" class="moore-output">%s</text>
`, c.X, c.Y+ry/2, html.EscapeString(out))
		}
	}
}

// DrawTransition draws the transition curve from anchor to anchor with an
// arrowhead at the target and places its label beside the midpoint.
func (s *SVGSurface) DrawTransition(v stde.TransitionView) {
	pts := s.vp.points(TransitionCurve(v))

	var d strings.Builder
	fmt.Fprintf(&d, "M%.1f,%.1f", pts[0].X, pts[0].Y)
	for i := 1; i+2 < len(pts); i += 3 {
		fmt.Fprintf(&d, " C%.1f,%.1f %.1f,%.1f %.1f,%.1f",
			pts[i].X, pts[i].Y, pts[i+1].X, pts[i+1].Y, pts[i+2].X, pts[i+2].Y)
	}

	class := "transition"
	if v.Selected {
		class = "transition-selected"
	}
	fmt.Fprintf(&s.sb, `<path d="%s" class="%s"/>
`, d.String(), class)

	if v.Label == "" {
		return
	}
	px := s.fontPx(s.opts.LabelSize)
	w := textWidth(v.Label, px)
	h := float64(px) + 4
	pos := s.placer.PlaceLabelOnCurve(SplineMidpoint(pts), EvaluateSplineTangent(pts, 0.5), w, h, h)
	fmt.Fprintf(&s.sb, `<text x="%.1f" y="%.1f" class="trans-label">%s</text>
`, pos.X, pos.Y, html.EscapeString(v.Label))
}

// String closes the document and returns the markup.
func (s *SVGSurface) String() string {
	if !s.closed {
		s.sb.WriteString("</svg>\n")
		s.closed = true
	}
	return s.sb.String()
}

// RenderSVG renders the whole machine, fitted into the canvas.
func RenderSVG(m *stde.StateMachine, opts SVGOptions) string {
	s := NewSVGSurface(opts, DiagramBounds(m))
	m.Draw(s)
	return s.String()
}
