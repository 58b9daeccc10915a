package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/ha1tch/webstde/internal/config"
	"github.com/ha1tch/webstde/pkg/editor"
	"github.com/ha1tch/webstde/pkg/stde"
	"github.com/ha1tch/webstde/pkg/stdefile"
)

// Canvas units covered by one terminal cell. Cells are roughly twice as
// tall as they are wide.
const (
	cellW = 10.0
	cellH = 20.0
)

func timeNowMillis() int64 { return time.Now().UnixMilli() }

// nowMillis is the clock used for message flashing.
var nowMillis = timeNowMillis

// Mode is the part of the screen that receives keys.
type Mode int

const (
	ModeCanvas Mode = iota
	ModeSignals
	ModeInput
)

// Editor holds all editor state
type Editor struct {
	screen   tcell.Screen
	sess     *editor.Session
	cfg      config.Config
	cfgPath  string
	log      *slog.Logger
	filename string
	mode     Mode

	// Viewport origin in cells
	offsetX int
	offsetY int

	sidebarWidth int
	signalsRow   int // screen row of the first signal in the sidebar

	mouseDown      bool
	selectedSignal int
	quitArmed      bool

	// Input state
	inputBuffer string
	inputPrompt string
	inputAction func(string)
	inputReturn Mode

	message           string
	messageType       MessageType
	messageFlashStart int64 // Unix milliseconds when message was shown
}

// NewEditor wires a session to a screen.
func NewEditor(screen tcell.Screen, sess *editor.Session, cfg config.Config, cfgPath string, log *slog.Logger) *Editor {
	screen.EnableMouse(tcell.MouseButtonEvents | tcell.MouseDragEvents | tcell.MouseMotionEvents)
	screen.Clear()
	return &Editor{
		screen:       screen,
		sess:         sess,
		cfg:          cfg,
		cfgPath:      cfgPath,
		log:          log,
		sidebarWidth: 34,
	}
}

func (ed *Editor) run() {
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if ed.message != "" && flashes(ed.messageType) {
					if elapsed := nowMillis() - ed.messageFlashStart; elapsed < flashDuration+flashPhase {
						ed.screen.PostEvent(tcell.NewEventInterrupt(nil))
					}
				}
			}
		}
	}()

	for {
		ed.draw()
		ed.screen.Show()

		switch ev := ed.screen.PollEvent().(type) {
		case *tcell.EventResize:
			ed.screen.Sync()
		case *tcell.EventKey:
			if ed.handleKey(ev) {
				return
			}
		case *tcell.EventMouse:
			ed.handleMouse(ev)
		case nil:
			return
		}
	}
}

// toCanvas maps the centre of screen cell (x, y) to canvas coordinates.
func (ed *Editor) toCanvas(x, y int) stde.Pos2D {
	return stde.Pos2D{
		X: float64(x+ed.offsetX)*cellW + cellW/2,
		Y: float64(y+ed.offsetY)*cellH + cellH/2,
	}
}

func (ed *Editor) canvasSize() (int, int) {
	w, h := ed.screen.Size()
	return w - ed.sidebarWidth, h - 2
}

func (ed *Editor) handleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyCtrlS:
		ed.save()
		return false
	case tcell.KeyCtrlQ:
		return ed.quit()
	}

	switch ed.mode {
	case ModeInput:
		return ed.handleInputKey(ev)
	case ModeSignals:
		return ed.handleSignalsKey(ev)
	}
	return ed.handleCanvasKey(ev)
}

func (ed *Editor) quit() bool {
	if ed.sess.Modified() && !ed.quitArmed {
		ed.quitArmed = true
		ed.showMessage("Unsaved changes: quit again to discard", MsgWarning)
		return false
	}
	return true
}

func (ed *Editor) handleCanvasKey(ev *tcell.EventKey) bool {
	if ev.Key() != tcell.KeyRune || (ev.Rune() != 'q' && ev.Rune() != 'Q') {
		ed.quitArmed = false
	}

	switch ev.Key() {
	case tcell.KeyEscape:
		ed.sess.Cancel()
		ed.sess.Machine().ClearSelection()
	case tcell.KeyUp:
		ed.offsetY--
	case tcell.KeyDown:
		ed.offsetY++
	case tcell.KeyLeft:
		ed.offsetX--
	case tcell.KeyRight:
		ed.offsetX++
	case tcell.KeyDelete, tcell.KeyBackspace, tcell.KeyBackspace2:
		states, trans := ed.sess.DeleteSelection()
		if states+trans > 0 {
			ed.showMessage(fmt.Sprintf("Deleted %d state(s), %d transition(s)", states, trans), MsgSuccess)
		}
	case tcell.KeyTab:
		ed.mode = ModeSignals
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'i', 'I':
			ed.sess.BeginInsertState()
			ed.showMessage("Click to place a state", MsgInfo)
		case 't', 'T':
			ed.sess.BeginInsertTransition()
			ed.showMessage("Drag from source state to target state", MsgInfo)
		case 'g', 'G':
			ed.sess.SetSnap(!ed.sess.SnapEnabled())
			if ed.sess.SnapEnabled() {
				ed.showMessage("Snap on", MsgInfo)
			} else {
				ed.showMessage("Snap off", MsgInfo)
			}
		case 'e', 'E':
			ed.editSelected()
		case 'd', 'D':
			ed.editStateText("Description: ", (*stde.State).Desc, (*stde.State).SetDesc)
		case 'c', 'C':
			ed.editStateText("Code: ", (*stde.State).Code, (*stde.State).SetCode)
		case 'o', 'O':
			ed.editOutput()
		case 'a', 'A':
			ed.prompt("Signal (id type bits io [desc]): ", "", ModeCanvas, func(s string) {
				sig, err := ed.sess.AddSignal(s)
				if err != nil {
					ed.showMessage(err.Error(), MsgError)
					return
				}
				ed.showMessage("Added signal "+sig.ID(), MsgSuccess)
			})
		case 'n', 'N':
			ed.prompt("Machine id: ", ed.sess.Machine().ID(), ModeCanvas, func(s string) {
				ed.sess.Update(func(m *stde.StateMachine) error {
					m.SetID(strings.TrimSpace(s))
					return nil
				})
			})
		case 'l', 'L':
			ed.prompt("Layout (grid, circular, layered): ", "layered", ModeCanvas, ed.arrange)
		case 'v', 'V':
			ed.runAnalysis()
		case 'r', 'R':
			ed.render()
		case 'q', 'Q':
			return ed.quit()
		}
	}
	return false
}

func (ed *Editor) handleSignalsKey(ev *tcell.EventKey) bool {
	sigs := ed.sess.Machine().Signals()
	clampSignal := func() {
		n := len(ed.sess.Machine().Signals())
		if ed.selectedSignal >= n {
			ed.selectedSignal = n - 1
		}
		if ed.selectedSignal < 0 {
			ed.selectedSignal = 0
		}
	}
	var sel *stde.Signal
	if ed.selectedSignal >= 0 && ed.selectedSignal < len(sigs) {
		sel = sigs[ed.selectedSignal]
	}

	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyTab, tcell.KeyBacktab:
		ed.mode = ModeCanvas
	case tcell.KeyUp:
		ed.selectedSignal--
		clampSignal()
	case tcell.KeyDown:
		ed.selectedSignal++
		clampSignal()
	case tcell.KeyDelete, tcell.KeyBackspace, tcell.KeyBackspace2:
		ed.removeSignal(sel)
	case tcell.KeyRune:
		if sel == nil && ev.Rune() != 'a' {
			return false
		}
		switch ev.Rune() {
		case 'K':
			if ed.moveSignal(sel, (*stde.StateMachine).MoveUpSignal) && ed.selectedSignal > 0 {
				ed.selectedSignal--
			}
		case 'J':
			if ed.moveSignal(sel, (*stde.StateMachine).MoveDownSignal) && ed.selectedSignal < len(sigs)-1 {
				ed.selectedSignal++
			}
		case 'x':
			ed.removeSignal(sel)
			clampSignal()
		case 'b':
			ed.prompt("Bits: ", fmt.Sprint(sel.Bits()), ModeSignals, func(s string) {
				idx := ed.selectedSignal
				if err := ed.sess.Update(func(m *stde.StateMachine) error {
					return m.Signals()[idx].SetBitsString(s)
				}); err != nil {
					ed.showMessage(err.Error(), MsgError)
				}
			})
		case 'e':
			ed.prompt("Description: ", sel.Desc(), ModeSignals, func(s string) {
				idx := ed.selectedSignal
				ed.sess.Update(func(m *stde.StateMachine) error {
					m.Signals()[idx].SetDesc(s)
					return nil
				})
			})
		case 'a':
			ed.prompt("Signal (id type bits io [desc]): ", "", ModeSignals, func(s string) {
				if _, err := ed.sess.AddSignal(s); err != nil {
					ed.showMessage(err.Error(), MsgError)
				}
			})
		}
	}
	return false
}

// moveSignal applies a reorder; it reports whether the order changed.
func (ed *Editor) moveSignal(sig *stde.Signal, move func(*stde.StateMachine, *stde.Signal) error) bool {
	before := ed.sess.Machine().Signals()
	idx := indexOfSignal(before, sig)
	err := ed.sess.Update(func(m *stde.StateMachine) error {
		return move(m, m.Signals()[idx])
	})
	if err != nil {
		ed.showMessage(err.Error(), MsgError)
		return false
	}
	return ed.sess.Machine().Signals()[idx] != sig
}

func (ed *Editor) removeSignal(sig *stde.Signal) {
	if sig == nil {
		return
	}
	idx := indexOfSignal(ed.sess.Machine().Signals(), sig)
	if err := ed.sess.Update(func(m *stde.StateMachine) error {
		return m.RemoveSignal(m.Signals()[idx])
	}); err != nil {
		ed.showMessage(err.Error(), MsgError)
		return
	}
	ed.showMessage("Removed signal "+sig.ID(), MsgSuccess)
}

func indexOfSignal(sigs []*stde.Signal, sig *stde.Signal) int {
	for i, s := range sigs {
		if s == sig {
			return i
		}
	}
	return -1
}

func (ed *Editor) handleInputKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape:
		ed.mode = ed.inputReturn
	case tcell.KeyEnter:
		ed.mode = ed.inputReturn
		if ed.inputAction != nil {
			ed.inputAction(ed.inputBuffer)
		}
		ed.inputBuffer = ""
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if r := []rune(ed.inputBuffer); len(r) > 0 {
			ed.inputBuffer = string(r[:len(r)-1])
		}
	case tcell.KeyRune:
		ed.inputBuffer += string(ev.Rune())
	}
	return false
}

func (ed *Editor) prompt(label, initial string, back Mode, action func(string)) {
	ed.inputPrompt = label
	ed.inputBuffer = initial
	ed.inputAction = action
	ed.inputReturn = back
	ed.mode = ModeInput
}

// selectedState returns the single selected state, or nil.
func (ed *Editor) selectedState() *stde.State {
	sel := ed.sess.Machine().SelectedStates()
	if len(sel) != 1 {
		return nil
	}
	return sel[0]
}

// editSelected renames the selected state or edits the condition of the
// selected transition.
func (ed *Editor) editSelected() {
	if st := ed.selectedState(); st != nil {
		idx := st.Idx()
		ed.prompt("State id: ", st.ID(), ModeCanvas, func(s string) {
			if err := ed.sess.Update(func(m *stde.StateMachine) error {
				target, _ := m.StateAt(idx)
				return target.SetID(strings.TrimSpace(s))
			}); err != nil {
				ed.showMessage(err.Error(), MsgError)
			}
		})
		return
	}
	if t := ed.sess.SelectedTransition(); t != nil {
		idx := transitionIndex(ed.sess.Machine(), t)
		ed.prompt("Condition: ", t.Condition(), ModeCanvas, func(s string) {
			ed.sess.Update(func(m *stde.StateMachine) error {
				m.Transitions()[idx].SetCondition(strings.TrimSpace(s))
				return nil
			})
		})
		return
	}
	ed.showMessage("Select a state or transition first", MsgInfo)
}

func (ed *Editor) editStateText(label string, get func(*stde.State) string, set func(*stde.State, string)) {
	st := ed.selectedState()
	if st == nil {
		ed.showMessage("Select a state first", MsgInfo)
		return
	}
	idx := st.Idx()
	ed.prompt(label, get(st), ModeCanvas, func(s string) {
		ed.sess.Update(func(m *stde.StateMachine) error {
			target, _ := m.StateAt(idx)
			set(target, s)
			return nil
		})
	})
}

// editOutput sets a Moore output on the selected state or a Mealy output
// on the selected transition. An empty value clears the assignment.
func (ed *Editor) editOutput() {
	st := ed.selectedState()
	tr := ed.sess.SelectedTransition()
	if st == nil && tr == nil {
		ed.showMessage("Select a state or transition first", MsgInfo)
		return
	}
	stateIdx, transIdx := -1, -1
	if st != nil {
		stateIdx = st.Idx()
	} else {
		transIdx = transitionIndex(ed.sess.Machine(), tr)
	}

	ed.prompt("Output (signal=value): ", "", ModeCanvas, func(s string) {
		sig, val, _ := strings.Cut(s, "=")
		sig, val = strings.TrimSpace(sig), strings.TrimSpace(val)
		err := ed.sess.Update(func(m *stde.StateMachine) error {
			if stateIdx >= 0 {
				target, _ := m.StateAt(stateIdx)
				if val == "" {
					target.ClearMooreOutput(sig)
					return nil
				}
				return target.SetMooreOutput(sig, val)
			}
			target := m.Transitions()[transIdx]
			if val == "" {
				target.ClearMealyOutput(sig)
				return nil
			}
			return target.SetMealyOutput(sig, val)
		})
		if err != nil {
			ed.showMessage(err.Error(), MsgError)
		}
	})
}

func transitionIndex(m *stde.StateMachine, t *stde.Transition) int {
	for i, x := range m.Transitions() {
		if x == t {
			return i
		}
	}
	return -1
}

func (ed *Editor) handleMouse(ev *tcell.EventMouse) {
	x, y := ev.Position()
	canvasW, canvasH := ed.canvasSize()
	inCanvas := x < canvasW && y < canvasH
	pos := ed.toCanvas(x, y)
	buttons := ev.Buttons()

	switch {
	case buttons&tcell.WheelUp != 0:
		ed.offsetY--
		return
	case buttons&tcell.WheelDown != 0:
		ed.offsetY++
		return
	}

	down := buttons&tcell.Button1 != 0
	switch {
	case down && !ed.mouseDown:
		if !inCanvas {
			ed.handleSidebarClick(y)
			return
		}
		if ed.mode == ModeInput {
			return
		}
		ed.mode = ModeCanvas
		ed.mouseDown = true
		ed.sess.PointerMove(pos)
		ed.sess.PointerDown(pos)
	case down:
		ed.sess.PointerMove(pos)
	case ed.mouseDown:
		ed.mouseDown = false
		before := len(ed.sess.Machine().States()) + len(ed.sess.Machine().Transitions())
		if err := ed.sess.PointerUp(pos); err != nil {
			ed.showMessage(err.Error(), MsgError)
			return
		}
		if after := len(ed.sess.Machine().States()) + len(ed.sess.Machine().Transitions()); after > before {
			ed.showMessage("Added", MsgSuccess)
		}
	case inCanvas:
		ed.sess.PointerMove(pos)
	}
}

func (ed *Editor) handleSidebarClick(y int) {
	i := y - ed.signalsRow
	if i < 0 || i >= len(ed.sess.Machine().Signals()) {
		return
	}
	ed.selectedSignal = i
	ed.mode = ModeSignals
}

func (ed *Editor) arrange(name string) {
	alg, err := stdefile.ParseLayoutAlgorithm(strings.TrimSpace(name))
	if err != nil {
		ed.showMessage(err.Error(), MsgError)
		return
	}
	ed.sess.Update(func(m *stde.StateMachine) error {
		stdefile.Arrange(m, alg, stdefile.DefaultLayoutOptions())
		return nil
	})
	ed.offsetX, ed.offsetY = 0, 0
	ed.showMessage("Arranged: "+alg.String(), MsgSuccess)
}

func (ed *Editor) runAnalysis() {
	warnings := ed.sess.Machine().Analyse()
	if len(warnings) == 0 {
		ed.showMessage("No warnings", MsgSuccess)
		return
	}
	for _, w := range warnings {
		ed.log.Info("analysis", "type", w.Type, "message", w.Message)
	}
	msg := warnings[0].String()
	if len(warnings) > 1 {
		msg = fmt.Sprintf("%s (+%d more)", msg, len(warnings)-1)
	}
	ed.showMessage(msg, MsgWarning)
}

// outputPath returns the file the diagram is rendered to: the diagram's
// path with the configured image extension.
func (ed *Editor) outputPath() string {
	base := ed.filename
	if base == "" {
		base = "diagram.json"
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + "." + ed.cfg.Render.Format
}

func (ed *Editor) render() {
	m := ed.sess.Machine()
	if len(m.States()) == 0 {
		ed.showMessage("Canvas is empty - nothing to render", MsgError)
		return
	}
	path := ed.outputPath()
	f, err := os.Create(path)
	if err != nil {
		ed.showMessage(err.Error(), MsgError)
		return
	}
	defer f.Close()

	if ed.cfg.Render.Format == "svg" {
		opts := ed.cfg.SVGOptions()
		opts.Title = m.ID()
		_, err = f.WriteString(stdefile.RenderSVG(m, opts))
	} else {
		opts := ed.cfg.PNGOptions()
		opts.Title = m.ID()
		err = stdefile.RenderPNG(m, f, opts)
	}
	if err != nil {
		ed.log.Error("render", "file", path, "error", err)
		ed.showMessage("Render failed: "+err.Error(), MsgError)
		return
	}
	ed.showMessage("Rendered "+path, MsgSuccess)
}

func (ed *Editor) save() {
	if ed.filename == "" {
		ed.prompt("Save as: ", "", ed.mode, func(s string) {
			if s = strings.TrimSpace(s); s != "" {
				ed.saveFile(s)
			}
		})
		return
	}
	ed.saveFile(ed.filename)
}

func (ed *Editor) saveFile(path string) {
	if err := stdefile.WriteFile(path, ed.sess.Machine(), true); err != nil {
		ed.log.Error("save", "file", path, "error", err)
		ed.showMessage("Save failed: "+err.Error(), MsgError)
		return
	}
	ed.filename = path
	ed.sess.MarkSaved()
	ed.quitArmed = false
	ed.showMessage("Saved "+path, MsgSuccess)

	if abs, err := filepath.Abs(path); err == nil {
		ed.cfg.LastDir = filepath.Dir(abs)
		if err := config.Save(ed.cfgPath, ed.cfg); err != nil {
			ed.log.Warn("save config", "error", err)
		}
	}
}

func (ed *Editor) showMessage(msg string, msgType MessageType) {
	ed.message = msg
	ed.messageType = msgType
	ed.messageFlashStart = nowMillis()
	if ed.screen != nil {
		ed.screen.PostEvent(tcell.NewEventInterrupt(nil))
	}
}
