// Native PNG rendering for state diagrams.
// Mirrors the SVG surface using Go's image packages.

package stdefile

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/ha1tch/webstde/pkg/stde"
)

// supersample is the factor the image is rendered at before downscaling.
const supersample = 4

// PNGOptions configures PNG rendering.
type PNGOptions struct {
	Width       int
	Height      int
	Padding     int
	FontSize    int
	LabelSize   int
	MaxScale    float64
	Title       string
	ShowOutputs bool
}

// DefaultPNGOptions returns sensible defaults for PNG rendering.
func DefaultPNGOptions() PNGOptions {
	return PNGOptions{
		Width:       1200,
		Height:      800,
		Padding:     40,
		FontSize:    24,
		LabelSize:   20,
		MaxScale:    1.0,
		ShowOutputs: true,
	}
}

// Colors used in rendering
var (
	colorWhite    = color.RGBA{255, 255, 255, 255}
	colorBlack    = color.RGBA{51, 51, 51, 255}   // #333
	colorGray     = color.RGBA{102, 102, 102, 255} // #666
	colorSelected = color.RGBA{21, 101, 192, 255}  // #1565c0
)

// renderContext holds the supersampled target and drawing parameters.
type renderContext struct {
	img       *image.RGBA
	scale     float64 // supersample factor, multiplies line widths and arrow sizes
	lineWidth float64
	face      font.Face
	labelFace font.Face
}

func newRenderContext(img *image.RGBA, fontPx, labelPx float64) (*renderContext, error) {
	fnt, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	newFace := func(size float64) (font.Face, error) {
		return opentype.NewFace(fnt, &opentype.FaceOptions{
			Size:    math.Max(size, 6),
			DPI:     72,
			Hinting: font.HintingNone, // supersampled instead
		})
	}
	face, err := newFace(fontPx)
	if err != nil {
		return nil, fmt.Errorf("font face: %w", err)
	}
	labelFace, err := newFace(labelPx)
	if err != nil {
		return nil, fmt.Errorf("font face: %w", err)
	}
	return &renderContext{
		img:       img,
		scale:     supersample,
		lineWidth: supersample * 2,
		face:      face,
		labelFace: labelFace,
	}, nil
}

// PNGSurface draws a diagram into an RGBA image. It implements stde.Surface.
type PNGSurface struct {
	ctx    *renderContext
	opts   PNGOptions
	vp     viewport
	placer *LabelPlacer
}

// NewPNGSurface creates a white, supersampled image fitted to the canvas
// region b.
func NewPNGSurface(opts PNGOptions, b Bounds) (*PNGSurface, error) {
	d := DefaultPNGOptions()
	if opts.Width <= 0 {
		opts.Width = d.Width
	}
	if opts.Height <= 0 {
		opts.Height = d.Height
	}
	if opts.FontSize <= 0 {
		opts.FontSize = d.FontSize
	}
	if opts.LabelSize <= 0 {
		opts.LabelSize = opts.FontSize - 4
	}
	if opts.MaxScale == 0 {
		opts.MaxScale = d.MaxScale
	}

	w, h := opts.Width*supersample, opts.Height*supersample
	titleSpace := 0.0
	if opts.Title != "" {
		titleSpace = float64(opts.FontSize+16) * supersample
	}
	vp := fitViewport(b, float64(w), float64(h), float64(opts.Padding*supersample), titleSpace, opts.MaxScale*supersample)

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{colorWhite}, image.Point{}, draw.Src)

	ctx, err := newRenderContext(img, float64(opts.FontSize)*vp.scale, float64(opts.LabelSize)*vp.scale)
	if err != nil {
		return nil, err
	}
	s := &PNGSurface{ctx: ctx, opts: opts, vp: vp, placer: NewLabelPlacer(nil)}
	if opts.Title != "" {
		title, err := newRenderContext(img, float64(opts.FontSize+4)*supersample, 0)
		if err != nil {
			return nil, err
		}
		drawTextCentered(title.img, title.face, w/2, int(titleSpace/2)+opts.Padding*supersample/2, opts.Title, colorBlack)
	}
	return s, nil
}

// DrawState draws the ellipse, divider, label and Moore outputs.
func (s *PNGSurface) DrawState(v stde.StateView) {
	c := s.vp.pos(v.Pos)
	rx := v.Width / 2 * s.vp.scale
	ry := v.Height / 2 * s.vp.scale
	s.placer.AddObstacle(Rect{c.X, c.Y, rx * 2, ry * 2})

	stroke := colorBlack
	lw := s.ctx.lineWidth
	if v.Selected {
		stroke = colorSelected
		lw *= 2
	}
	drawEllipse(s.ctx.img, c.X, c.Y, rx, ry, lw, colorWhite, stroke)
	drawLine(s.ctx.img, c.X-rx, c.Y, c.X+rx, c.Y, lw/2, stroke)
	drawTextCentered(s.ctx.img, s.ctx.face, int(c.X), int(c.Y-ry/3), v.Label, colorBlack)

	if s.opts.ShowOutputs {
		if out := stde.FormatOutputs(v.Outputs); out != "" {
			drawTextCentered(s.ctx.img, s.ctx.labelFace, int(c.X), int(c.Y+ry/2), out, colorGray)
		}
	}
}

// DrawTransition draws the curve with an arrowhead at the target anchor.
func (s *PNGSurface) DrawTransition(v stde.TransitionView) {
	pts := s.vp.points(TransitionCurve(v))
	c := colorBlack
	lw := s.ctx.lineWidth * 0.75
	if v.Selected {
		c = colorSelected
		lw *= 2
	}

	poly := FlattenSpline(pts, 64)
	for i := 1; i < len(poly); i++ {
		drawLine(s.ctx.img, poly[i-1].X, poly[i-1].Y, poly[i].X, poly[i].Y, lw, c)
	}
	end := poly[len(poly)-1]
	drawArrowHead(s.ctx.img, end, EvaluateSplineTangent(pts, 1), 10*s.ctx.scale, 5*s.ctx.scale, c)

	if v.Label == "" {
		return
	}
	w := float64(font.MeasureString(s.ctx.labelFace, v.Label).Ceil())
	h := float64(s.ctx.labelFace.Metrics().Height.Ceil())
	pos := s.placer.PlaceLabelOnCurve(SplineMidpoint(pts), EvaluateSplineTangent(pts, 0.5), w, h, h)
	drawTextCentered(s.ctx.img, s.ctx.labelFace, int(pos.X), int(pos.Y), v.Label, c)
}

// Image downsamples the supersampled canvas to the requested size.
func (s *PNGSurface) Image() *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, s.opts.Width, s.opts.Height))
	draw.CatmullRom.Scale(out, out.Bounds(), s.ctx.img, s.ctx.img.Bounds(), draw.Over, nil)
	return out
}

// RenderPNG renders the whole machine and encodes it to w.
func RenderPNG(m *stde.StateMachine, w io.Writer, opts PNGOptions) error {
	s, err := NewPNGSurface(opts, DiagramBounds(m))
	if err != nil {
		return err
	}
	m.Draw(s)
	return png.Encode(w, s.Image())
}

// drawEllipse draws an ellipse outline over a filled interior.
func drawEllipse(img *image.RGBA, cx, cy, rx, ry, thickness float64, fill, stroke color.Color) {
	if rx < 1 || ry < 1 {
		return
	}
	for dy := -ry; dy <= ry; dy++ {
		yNorm := dy / ry
		xExtent := rx * math.Sqrt(math.Max(0, 1-yNorm*yNorm))
		for dx := -xExtent; dx <= xExtent; dx++ {
			img.Set(int(cx+dx), int(cy+dy), fill)
		}
	}

	step := 1 / math.Max(rx, ry)
	for angle := 0.0; angle < 2*math.Pi; angle += step {
		nx, ny := math.Cos(angle), math.Sin(angle)
		x, y := cx+rx*nx, cy+ry*ny
		for t := -thickness / 2; t <= thickness/2; t += 0.5 {
			img.Set(int(x+nx*t), int(y+ny*t), stroke)
		}
	}
}

// drawLine draws a thick line between two points.
func drawLine(img *image.RGBA, x1, y1, x2, y2, thickness float64, c color.Color) {
	dx, dy := x2-x1, y2-y1
	dist := math.Hypot(dx, dy)
	half := thickness / 2
	if dist < 1 {
		for ty := -half; ty <= half; ty++ {
			for tx := -half; tx <= half; tx++ {
				img.Set(int(x1+tx), int(y1+ty), c)
			}
		}
		return
	}

	perpX, perpY := -dy/dist, dx/dist
	steps := math.Max(math.Abs(dx), math.Abs(dy))
	for i := 0.0; i <= steps; i++ {
		t := i / steps
		px, py := x1+dx*t, y1+dy*t
		for off := -half; off <= half; off += 0.5 {
			img.Set(int(px+perpX*off), int(py+perpY*off), c)
		}
	}
}

// drawArrowHead fills a triangle with its tip at tip, pointing along dir.
func drawArrowHead(img *image.RGBA, tip, dir Point, length, width float64, c color.Color) {
	dist := math.Hypot(dir.X, dir.Y)
	if dist < 1e-9 {
		return
	}
	nx, ny := dir.X/dist, dir.Y/dist
	ax1 := tip.X - nx*length + ny*width
	ay1 := tip.Y - ny*length - nx*width
	ax2 := tip.X - nx*length - ny*width
	ay2 := tip.Y - ny*length + nx*width
	for t := 0.0; t <= 1.0; t += 0.02 {
		drawLine(img, tip.X, tip.Y, ax1+(ax2-ax1)*t, ay1+(ay2-ay1)*t, 2, c)
	}
}

// drawTextCentered draws text horizontally centred on x with its visual
// middle near y.
func drawTextCentered(img *image.RGBA, face font.Face, x, y int, text string, c color.Color) {
	if text == "" {
		return
	}
	width := font.MeasureString(face, text).Ceil()
	ascent := face.Metrics().Ascent.Ceil()
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x - width/2), Y: fixed.I(y + ascent*35/100)},
	}
	d.DrawString(text)
}
