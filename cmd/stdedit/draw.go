package main

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/gdamore/tcell/v2"

	"github.com/ha1tch/webstde/pkg/editor"
	"github.com/ha1tch/webstde/pkg/stde"
	"github.com/ha1tch/webstde/pkg/stdefile"
)

var (
	styleDefault    = tcell.StyleDefault
	styleMenuSel    = tcell.StyleDefault.Background(tcell.ColorBlue).Foreground(tcell.ColorWhite)
	styleState      = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleStateSel   = tcell.StyleDefault.Background(tcell.ColorGreen).Foreground(tcell.ColorBlack)
	styleOutputs    = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleTrans      = tcell.StyleDefault.Foreground(tcell.ColorTeal)
	styleTransSel   = tcell.StyleDefault.Foreground(tcell.NewRGBColor(200, 162, 200)) // Lilac
	styleLabel      = tcell.StyleDefault.Foreground(tcell.ColorSilver)
	styleSidebar    = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleSidebarH   = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleStatus     = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorNavy)
	styleMsgInfo    = tcell.StyleDefault.Foreground(tcell.ColorSilver).Background(tcell.ColorNavy)
	styleMsgError   = tcell.StyleDefault.Foreground(tcell.ColorRed).Background(tcell.ColorNavy).Bold(true)
	styleMsgSuccess = tcell.StyleDefault.Foreground(tcell.ColorSilver).Background(tcell.ColorNavy)
	styleMsgWarning = tcell.StyleDefault.Foreground(tcell.ColorYellow).Background(tcell.ColorNavy)
	styleHelp       = tcell.StyleDefault.Foreground(tcell.ColorGray) // Help bar on default background
	styleInput      = tcell.StyleDefault.Background(tcell.ColorNavy).Foreground(tcell.ColorWhite)
	styleBorder     = tcell.StyleDefault.Foreground(tcell.ColorGray)
)

func (ed *Editor) draw() {
	ed.screen.Clear()
	w, h := ed.screen.Size()
	canvasW, canvasH := ed.canvasSize()

	ed.sess.Draw(newCellSurface(ed, canvasW, canvasH))

	// Sidebar separator
	for y := 0; y < canvasH; y++ {
		ed.screen.SetContent(canvasW, y, '│', nil, styleBorder)
	}
	ed.drawSidebar(w, h)
	ed.drawStatusBar(w, h)

	if ed.mode == ModeInput {
		ed.drawInputBox(w, h)
	}
}

// cellSurface draws the diagram with box-drawing characters. Canvas
// coordinates map to cells through the editor's viewport.
type cellSurface struct {
	ed       *Editor
	w, h     int
	occupied map[[2]int]bool
}

func newCellSurface(ed *Editor, w, h int) *cellSurface {
	return &cellSurface{ed: ed, w: w, h: h, occupied: make(map[[2]int]bool)}
}

// toCell maps a canvas position to the screen cell containing it.
func (ed *Editor) toCell(x, y float64) (int, int) {
	return int(math.Floor(x/cellW)) - ed.offsetX, int(math.Floor(y/cellH)) - ed.offsetY
}

func (c *cellSurface) set(x, y int, r rune, style tcell.Style) {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return
	}
	c.ed.screen.SetContent(x, y, r, nil, style)
}

func (c *cellSurface) text(x, y int, s string, style tcell.Style) {
	for _, r := range s {
		c.set(x, y, r, style)
		x++
	}
}

func (c *cellSurface) centred(left, right, y int, s string, style tcell.Style) {
	s = truncate(s, right-left-1)
	c.text(left+(right-left+1-len([]rune(s)))/2, y, s, style)
}

// DrawState draws a box split by a divider: the id above, the Moore
// outputs below.
func (c *cellSurface) DrawState(v stde.StateView) {
	left, top := c.ed.toCell(v.Pos.X-v.Width/2, v.Pos.Y-v.Height/2)
	right, bottom := c.ed.toCell(v.Pos.X+v.Width/2, v.Pos.Y+v.Height/2)
	if right-left < 2 || bottom-top < 2 {
		return
	}

	border, fill := styleState, styleDefault
	if v.Selected {
		border, fill = styleStateSel, styleStateSel
	}
	for y := top; y <= bottom; y++ {
		for x := left; x <= right; x++ {
			c.occupied[[2]int{x, y}] = true
			r := ' '
			switch {
			case (x == left || x == right) && (y == top || y == bottom):
				r = [2][2]rune{{'┌', '└'}, {'┐', '┘'}}[b2i(x == right)][b2i(y == bottom)]
			case y == top || y == bottom:
				r = '─'
			case x == left || x == right:
				r = '│'
			}
			style := fill
			if r != ' ' {
				style = border
			}
			c.set(x, y, r, style)
		}
	}

	mid := (top + bottom) / 2
	if bottom-top >= 4 {
		c.set(left, mid, '├', border)
		for x := left + 1; x < right; x++ {
			c.set(x, mid, '─', border)
		}
		c.set(right, mid, '┤', border)
		labelStyle, outStyle := fill, styleOutputs
		if v.Selected {
			outStyle = fill
		}
		c.centred(left, right, (top+mid)/2, v.Label, labelStyle)
		c.centred(left, right, (mid+bottom+1)/2, stde.FormatOutputs(v.Outputs), outStyle)
		return
	}
	c.centred(left, right, mid, v.Label, fill)
}

// DrawTransition traces the edge curve through the free cells and puts
// an arrowhead on the last one.
func (c *cellSurface) DrawTransition(v stde.TransitionView) {
	style := styleTrans
	if v.Selected {
		style = styleTransSel
	}

	curve := stdefile.TransitionCurve(v)
	steps := int(stdefile.SplineLength(curve)/(cellW/2)) + 8
	var cells [][2]int
	for _, p := range stdefile.FlattenSpline(curve, steps) {
		x, y := c.ed.toCell(p.X, p.Y)
		cell := [2]int{x, y}
		if n := len(cells); n > 0 && cells[n-1] == cell {
			continue
		}
		cells = append(cells, cell)
	}

	last := -1
	for i, cell := range cells {
		if c.occupied[cell] {
			continue
		}
		prev, next := cell, cell
		if i > 0 {
			prev = cells[i-1]
		}
		if i < len(cells)-1 {
			next = cells[i+1]
		}
		c.set(cell[0], cell[1], lineRune(next[0]-prev[0], next[1]-prev[1]), style)
		last = i
	}
	if last > 0 {
		tip, from := cells[last], cells[last-1]
		c.set(tip[0], tip[1], arrowRune(tip[0]-from[0], tip[1]-from[1]), style)
	}

	if v.Label != "" && len(cells) > 0 {
		mid := stdefile.SplineMidpoint(curve)
		x, y := c.ed.toCell(mid.X, mid.Y)
		labelStyle := styleLabel
		if v.Selected {
			labelStyle = style
		}
		c.text(x+1, y, v.Label, labelStyle)
	}
}

func lineRune(dx, dy int) rune {
	switch {
	case dy == 0:
		return '─'
	case dx == 0:
		return '│'
	case (dx > 0) == (dy > 0):
		return '╲'
	}
	return '╱'
}

func arrowRune(dx, dy int) rune {
	if abs(dx) >= abs(dy) {
		if dx >= 0 {
			return '▶'
		}
		return '◀'
	}
	if dy > 0 {
		return '▼'
	}
	return '▲'
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (ed *Editor) drawSidebar(w, h int) {
	x := w - ed.sidebarWidth + 2
	y := 0
	m := ed.sess.Machine()
	width := ed.sidebarWidth - 4

	title := "Machine: " + m.ID()
	if m.ID() == "" {
		title = "Machine: (unnamed)"
	}
	ed.drawString(x, y, truncate(title, width), styleSidebarH)
	y += 2

	ed.drawString(x, y, "Signals:", styleSidebarH)
	y++
	ed.signalsRow = y
	for i, s := range m.Signals() {
		if y >= h-3 {
			ed.drawString(x, y, "  ...", styleSidebar)
			return
		}
		style := styleSidebar
		if ed.mode == ModeSignals && i == ed.selectedSignal {
			style = styleMenuSel
		}
		line := fmt.Sprintf("  %s %s[%d] %s", s.ID(), s.Type(), s.Bits(), ioShort(s.Direction()))
		ed.drawString(x, y, truncate(line, width), style)
		y++
	}
	y++

	ed.drawString(x, y, "States:", styleSidebarH)
	y++
	for _, s := range m.States() {
		if y >= h-3 {
			ed.drawString(x, y, "  ...", styleSidebar)
			return
		}
		line := fmt.Sprintf("  %d %s", s.Idx(), s.ID())
		if out := stde.FormatOutputs(s.MooreOutput()); out != "" {
			line += " [" + out + "]"
		}
		style := styleSidebar
		if s.Selected() {
			style = styleMenuSel
		}
		ed.drawString(x, y, truncate(line, width), style)
		y++
	}
	y++

	ed.drawString(x, y, "Transitions:", styleSidebarH)
	y++
	for _, t := range m.Transitions() {
		if y >= h-3 {
			ed.drawString(x, y, "  ...", styleSidebar)
			return
		}
		line := fmt.Sprintf("  %s -> %s", t.From().ID(), t.To().ID())
		if label := t.Label(); label != "" {
			line += " : " + label
		}
		style := styleSidebar
		if t.Selected() {
			style = styleMenuSel
		}
		ed.drawString(x, y, truncate(line, width), style)
		y++
	}
}

func ioShort(d stde.SignalDirection) string {
	switch d {
	case stde.DirInput:
		return "in"
	case stde.DirOutput:
		return "out"
	}
	return "inout"
}

func (ed *Editor) drawStatusBar(w, h int) {
	y := h - 1

	// Background
	for x := 0; x < w; x++ {
		ed.screen.SetContent(x, y, ' ', nil, styleStatus)
	}

	fileInfo := "[New]"
	if ed.filename != "" {
		if len(ed.filename) > 30 {
			fileInfo = filepath.Base(ed.filename)
		} else {
			fileInfo = ed.filename
		}
	}
	if ed.sess.Modified() {
		fileInfo += " *"
	}
	if ed.sess.SnapEnabled() {
		fileInfo += "  snap"
	}
	ed.drawString(1, y, fileInfo, styleStatus)

	modeStr := ed.modeString()
	ed.drawString(w/2-len(modeStr)/2, y, modeStr, styleStatus)

	if ed.message != "" {
		style := styleMsgInfo
		switch ed.messageType {
		case MsgError:
			style = styleMsgError
		case MsgSuccess:
			style = styleMsgSuccess
		case MsgWarning:
			style = styleMsgWarning
		}
		if flashes(ed.messageType) && flashInverted(nowMillis()-ed.messageFlashStart) {
			style = style.Reverse(true)
		}
		msg := truncate(ed.message, w/2-2)
		ed.drawString(w-len([]rune(msg))-2, y, msg, style)
	}

	// Help bar
	y = h - 2
	for x := 0; x < w; x++ {
		ed.screen.SetContent(x, y, ' ', nil, styleDefault)
	}
	ed.drawString(1, y, ed.helpString(), styleHelp)
}

func (ed *Editor) drawInputBox(w, h int) {
	boxW := 60
	if boxW > w-2 {
		boxW = w - 2
	}
	boxH := 3
	boxX := (w - boxW) / 2
	boxY := (h - boxH) / 2

	ed.drawBox(boxX, boxY, boxW, boxH, styleInput)
	ed.drawString(boxX+2, boxY+1, ed.inputPrompt, styleInput)
	ed.drawString(boxX+2+len([]rune(ed.inputPrompt)), boxY+1, ed.inputBuffer+"_", styleInput)
}

func (ed *Editor) drawBox(x, y, w, h int, style tcell.Style) {
	// Corners
	ed.screen.SetContent(x, y, '┌', nil, styleBorder)
	ed.screen.SetContent(x+w-1, y, '┐', nil, styleBorder)
	ed.screen.SetContent(x, y+h-1, '└', nil, styleBorder)
	ed.screen.SetContent(x+w-1, y+h-1, '┘', nil, styleBorder)

	for i := x + 1; i < x+w-1; i++ {
		ed.screen.SetContent(i, y, '─', nil, styleBorder)
		ed.screen.SetContent(i, y+h-1, '─', nil, styleBorder)
	}
	for i := y + 1; i < y+h-1; i++ {
		ed.screen.SetContent(x, i, '│', nil, styleBorder)
		ed.screen.SetContent(x+w-1, i, '│', nil, styleBorder)
	}

	// Fill
	for row := y + 1; row < y+h-1; row++ {
		for col := x + 1; col < x+w-1; col++ {
			ed.screen.SetContent(col, row, ' ', nil, style)
		}
	}
}

func (ed *Editor) drawString(x, y int, s string, style tcell.Style) {
	for _, r := range s {
		ed.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

func (ed *Editor) modeString() string {
	switch ed.mode {
	case ModeInput:
		return "INPUT"
	case ModeSignals:
		return "SIGNALS"
	}
	switch ed.sess.Mode() {
	case editor.ModeInsertState:
		return "INSERT STATE"
	case editor.ModeInsertTransition:
		return "INSERT TRANSITION"
	}
	return ""
}

func (ed *Editor) helpString() string {
	switch ed.mode {
	case ModeInput:
		return "Type text  Enter:Confirm  Esc:Cancel"
	case ModeSignals:
		return "↑↓:Select  K/J:Reorder  a:Add  b:Bits  e:Desc  x:Remove  Tab:Canvas"
	}
	switch ed.sess.Mode() {
	case editor.ModeInsertState:
		return "Click:Place state  g:Snap  Esc:Cancel"
	case editor.ModeInsertTransition:
		return "Drag source to target  Esc:Cancel"
	}
	return "i:State  t:Transition  e:Edit  o:Output  d:Desc  c:Code  a:Signal  n:Name  l:Layout  v:Check  r:Render  Del:Delete  ^S:Save  q:Quit"
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if maxLen <= 0 {
		return ""
	}
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
