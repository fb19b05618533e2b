package app

import (
	"math"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/elloloop/paperlike/internal/drawing"
	"github.com/elloloop/paperlike/internal/editor"
	"github.com/elloloop/paperlike/internal/platform"
)

const (
	wheelStepY  = 42
	wheelStepX  = 48
	zoomStep    = 1.1
	repeatDelay = 30
	repeatEvery = 4
)

var editingKeys = []struct {
	key  ebiten.Key
	name string
}{
	{ebiten.KeyEnter, platform.KeyEnter},
	{ebiten.KeyNumpadEnter, platform.KeyEnter},
	{ebiten.KeyBackspace, platform.KeyBackspace},
	{ebiten.KeyDelete, platform.KeyDelete},
	{ebiten.KeyArrowLeft, platform.KeyLeft},
	{ebiten.KeyArrowRight, platform.KeyRight},
	{ebiten.KeyArrowUp, platform.KeyUp},
	{ebiten.KeyArrowDown, platform.KeyDown},
	{ebiten.KeyHome, platform.KeyHome},
	{ebiten.KeyEnd, platform.KeyEnd},
}

// Command shortcuts the editor handles itself.
var editorShortcuts = []struct {
	key  ebiten.Key
	name string
}{
	{ebiten.KeyZ, "z"},
	{ebiten.KeyY, "y"},
	{ebiten.KeyB, "b"},
	{ebiten.KeyI, "i"},
	{ebiten.KeyPeriod, "."},
	{ebiten.KeyComma, ","},
}

func repeating(k ebiten.Key) bool {
	d := inpututil.KeyPressDuration(k)
	return d == 1 || (d >= repeatDelay && (d-repeatDelay)%repeatEvery == 0)
}

func modifiers() platform.Modifiers {
	var m platform.Modifiers
	if ebiten.IsKeyPressed(ebiten.KeyShift) {
		m |= platform.ModShift
	}
	if ebiten.IsKeyPressed(ebiten.KeyControl) {
		m |= platform.ModCtrl
	}
	if ebiten.IsKeyPressed(ebiten.KeyAlt) {
		m |= platform.ModAlt
	}
	if ebiten.IsKeyPressed(ebiten.KeyMeta) {
		m |= platform.ModMeta
	}
	return m
}

func (a *App) handleInput() {
	mods := modifiers()
	if a.prompt != nil {
		a.handlePromptInput()
		return
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF1) {
		a.showHelp = !a.showHelp
	}
	if a.showHelp {
		if inpututil.IsKeyJustPressed(ebiten.KeyEscape) || inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
			a.showHelp = false
		}
		return
	}
	if a.handleShortcuts(mods) {
		return
	}
	a.handleWheel(mods)
	a.handlePointer(mods)
	a.collectKeys(mods)
	a.sess.State().ProcessInput()
}

// handleShortcuts runs host actions. It reports whether the frame's input
// was consumed.
func (a *App) handleShortcuts(mods platform.Modifiers) bool {
	st := a.sess.State()
	if mods.Command() {
		shift := mods.Has(platform.ModShift)
		switch {
		case inpututil.IsKeyJustPressed(ebiten.KeyS):
			a.save()
		case inpututil.IsKeyJustPressed(ebiten.KeyE) && shift:
			a.exportSealed()
		case inpututil.IsKeyJustPressed(ebiten.KeyE):
			a.exportJSON()
		case inpututil.IsKeyJustPressed(ebiten.KeyP):
			a.exportPDF()
		case inpututil.IsKeyJustPressed(ebiten.KeyO):
			a.importDocument()
		case inpututil.IsKeyJustPressed(ebiten.KeyC):
			a.copyParagraph()
		case inpututil.IsKeyJustPressed(ebiten.KeyV):
			a.paste()
		case inpututil.IsKeyJustPressed(ebiten.KeyEqual), inpututil.IsKeyJustPressed(ebiten.KeyNumpadAdd):
			a.zoomCentered(zoomStep)
		case inpututil.IsKeyJustPressed(ebiten.KeyMinus), inpututil.IsKeyJustPressed(ebiten.KeyNumpadSubtract):
			a.zoomCentered(1 / zoomStep)
		case inpututil.IsKeyJustPressed(ebiten.KeyQ):
			a.quit = true
		default:
			return false
		}
		return true
	}

	if id, _ := st.Focused(); id != "" {
		return false
	}
	c := a.sess.Canvas()
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyD):
		a.selectMode = false
		c.SetTool(drawing.ToolFreedraw)
		a.status = "Draw tool"
	case inpututil.IsKeyJustPressed(ebiten.KeyV):
		a.selectMode = true
		c.SetTool(drawing.ToolSelection)
		a.status = "Select tool"
	case inpututil.IsKeyJustPressed(ebiten.KeyDelete), inpututil.IsKeyJustPressed(ebiten.KeyBackspace):
		if c.DeleteSelected() {
			a.status = "Stroke deleted"
		}
	default:
		return false
	}
	return true
}

func (a *App) handleWheel(mods platform.Modifiers) {
	wx, wy := ebiten.Wheel()
	if wx == 0 && wy == 0 {
		return
	}
	c := a.sess.Canvas()
	if mods.Command() {
		x, y := a.canvasCursor()
		c.ZoomAt(math.Pow(zoomStep, wy), x, y)
		return
	}
	if mods.Has(platform.ModShift) {
		wx, wy = wy, 0
	}
	c.ScrollBy(wx*wheelStepX, wy*wheelStepY)
}

func (a *App) zoomCentered(factor float64) {
	cr := a.layout.Canvas
	a.sess.Canvas().ZoomAt(factor, float64(cr.W)/2, float64(cr.H)/2)
}

// canvasCursor is the cursor position relative to the canvas area.
func (a *App) canvasCursor() (float64, float64) {
	x, y := ebiten.CursorPosition()
	return float64(x - a.layout.Canvas.X), float64(y - a.layout.Canvas.Y)
}

func (a *App) handlePointer(mods platform.Modifiers) {
	c := a.sess.Canvas()
	x, y := a.canvasCursor()

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		cx, cy := ebiten.CursorPosition()
		if !a.layout.Canvas.Contains(cx, cy) {
			return
		}
		if a.selectMode && c.PointerDown(x, y) {
			a.sess.State().Blur()
			return
		}
		switch a.sess.State().PointerDown(x, y, mods) {
		case editor.PointerDraw:
			if a.selectMode {
				c.SetTool(drawing.ToolSelection)
				return
			}
			c.PointerDown(x, y)
		case editor.PointerPlaced:
			a.status = "Paragraph placed"
		}
		return
	}
	if !c.Drawing() {
		return
	}
	if ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		c.PointerMove(x, y)
	}
	if inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) {
		c.PointerUp()
	}
}

// collectKeys turns this frame's keyboard input into editor events.
func (a *App) collectKeys(mods platform.Modifiers) {
	st := a.sess.State()
	if mods.Command() {
		for _, k := range editorShortcuts {
			if inpututil.IsKeyJustPressed(k.key) {
				st.Enqueue(platform.Event{Type: platform.EventKeyDown, Key: k.name, Mods: mods})
			}
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		st.Enqueue(platform.Event{Type: platform.EventKeyDown, Key: platform.KeyEscape, Mods: mods})
	}
	if id, _ := st.Focused(); id == "" && !st.PendingEffects() {
		return
	}
	if chars := ebiten.AppendInputChars(nil); len(chars) > 0 && !mods.Command() {
		st.Enqueue(platform.Event{Type: platform.EventTextInput, Text: string(chars), Mods: mods})
	}
	for _, k := range editingKeys {
		if repeating(k.key) {
			st.Enqueue(platform.Event{Type: platform.EventKeyDown, Key: k.name, Mods: mods})
		}
	}
}

// handlePromptInput edits the open prompt. Enter submits, Escape cancels.
func (a *App) handlePromptInput() {
	p := a.prompt
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyEscape):
		a.prompt = nil
		a.status = p.title + " cancelled"
		return
	case inpututil.IsKeyJustPressed(ebiten.KeyEnter), inpututil.IsKeyJustPressed(ebiten.KeyNumpadEnter):
		a.prompt = nil
		p.submit(p.input)
		return
	case repeating(ebiten.KeyBackspace):
		if p.input != "" {
			r := []rune(p.input)
			p.input = string(r[:len(r)-1])
		}
	}
	p.input += strings.Map(func(r rune) rune {
		if r < ' ' {
			return -1
		}
		return r
	}, string(ebiten.AppendInputChars(nil)))
}
