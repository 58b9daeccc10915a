package stdefile

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha1tch/webstde/pkg/stde"
)

func TestGenerateDOT(t *testing.T) {
	dot := GenerateDOT(sampleMachine(t), `say "hi"`)

	assert.True(t, strings.HasPrefix(dot, "digraph STD {"))
	assert.Contains(t, dot, `label="say \"hi\"";`)
	assert.Contains(t, dot, `s0 [label="s0", pos="5,-10!"];`)
	assert.Contains(t, dot, `s1 [label="s1\ny=1"`)
	assert.Contains(t, dot, `s0 -> s1 [label="x = 3"];`)
	assert.Contains(t, dot, "s1 -> s1;")
}

func TestRenderSVG(t *testing.T) {
	m := sampleMachine(t)
	s, _ := m.StateAt(0)
	s.SetSelected(true)

	svg := RenderSVG(m, SVGOptions{Title: "Traffic <1>"})

	assert.True(t, strings.HasPrefix(svg, "<?xml"))
	assert.True(t, strings.HasSuffix(svg, "</svg>\n"))
	assert.Equal(t, 2, strings.Count(svg, "<ellipse"))
	assert.Equal(t, 1, strings.Count(svg, `class="state-selected"`))
	assert.Equal(t, 2, strings.Count(svg, "<path"))
	assert.Contains(t, svg, "Traffic &lt;1&gt;")
	assert.Contains(t, svg, ">x = 3<")
	assert.Contains(t, svg, ">y=1<")
}

func TestSVGSurfaceIdempotentClose(t *testing.T) {
	s := NewSVGSurface(SVGOptions{}, Bounds{})
	first := s.String()
	assert.Equal(t, first, s.String())
	assert.Equal(t, 1, strings.Count(first, "</svg>"))
}

func TestRenderPNG(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultPNGOptions()
	opts.Width, opts.Height = 320, 200
	opts.Title = "t"
	require.NoError(t, RenderPNG(sampleMachine(t), &buf, opts))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 320, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())
}

func TestRenderPNGEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderPNG(stde.New(""), &buf, PNGOptions{Width: 64, Height: 64}))
	_, err := png.Decode(&buf)
	assert.NoError(t, err)
}

func TestDiagramBounds(t *testing.T) {
	assert.True(t, DiagramBounds(stde.New("")).Empty())

	m := stde.New("")
	s, err := stde.NewState(stde.Pos2D{X: 100, Y: 100}, "a")
	require.NoError(t, err)
	require.NoError(t, m.AddState(s))
	b := DiagramBounds(m)
	assert.Equal(t, Bounds{MinX: -10, MinY: 45, MaxX: 210, MaxY: 155}, b)
}

func TestFitViewport(t *testing.T) {
	b := Bounds{MinX: 0, MinY: 0, MaxX: 200, MaxY: 100}
	vp := fitViewport(b, 420, 420, 10, 0, 10)
	assert.InDelta(t, 2.0, vp.scale, 1e-9)
	p := vp.point(Point{100, 50})
	assert.InDelta(t, 210, p.X, 1e-9)
	assert.InDelta(t, 210, p.Y, 1e-9)

	capped := fitViewport(b, 4200, 4200, 0, 0, 1)
	assert.Equal(t, 1.0, capped.scale)
}
