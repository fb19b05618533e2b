// Package ink is a small freehand drawing engine. It keeps its scene as
// JSON elements, so strokes round-trip through documents untouched, and
// plugs into the editor through drawing.Engine.
package ink

import (
	"encoding/json"
	"maps"
	"math"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/elloloop/paperlike/internal/coords"
	"github.com/elloloop/paperlike/internal/drawing"
)

const (
	ElementFreedraw = "freedraw"

	MinZoom = 0.1
	MaxZoom = 10

	DefaultStrokeColor = "#1e1e1e"
	DefaultStrokeWidth = 2.0

	// hitSlop is the pick distance in canvas pixels.
	hitSlop = 4.0
)

// Element is a freedraw scene element. Points are relative to X, Y, which
// is the first point of the stroke.
type Element struct {
	ID          string       `json:"id"`
	Type        string       `json:"type"`
	X           float64      `json:"x"`
	Y           float64      `json:"y"`
	Width       float64      `json:"width"`
	Height      float64      `json:"height"`
	Points      [][2]float64 `json:"points"`
	StrokeColor string       `json:"strokeColor"`
	StrokeWidth float64      `json:"strokeWidth"`
	Version     int          `json:"version"`
}

// Abs returns point i in scene coordinates.
func (e Element) Abs(i int) coords.Point {
	return coords.Point{X: e.X + e.Points[i][0], Y: e.Y + e.Points[i][1]}
}

// ChangeFunc receives user-made scene changes. Elements and files are nil
// when only the view moved.
type ChangeFunc func(elements []json.RawMessage, appState, files map[string]json.RawMessage)

type stroke struct {
	el  Element
	raw int
}

// Canvas holds the scene and the view. Scene coordinates map to canvas
// pixels as scene*zoom + scroll.
type Canvas struct {
	logger *zap.Logger

	view     drawing.ViewState
	elements []json.RawMessage
	files    map[string]json.RawMessage
	appState map[string]json.RawMessage
	strokes  []stroke

	color    string
	width    float64
	active   *Element
	selected string
	onChange ChangeFunc
}

func NewCanvas(logger *zap.Logger) *Canvas {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Canvas{
		logger:   logger,
		view:     drawing.ViewState{Zoom: 1, ActiveTool: drawing.ToolSelection},
		elements: []json.RawMessage{},
		files:    map[string]json.RawMessage{},
		appState: map[string]json.RawMessage{},
		color:    DefaultStrokeColor,
		width:    DefaultStrokeWidth,
	}
}

func (c *Canvas) OnChange(fn ChangeFunc) { c.onChange = fn }

func (c *Canvas) SetStyle(color string, width float64) {
	if color != "" {
		c.color = color
	}
	if width > 0 {
		c.width = width
	}
}

func (c *Canvas) ViewState() drawing.ViewState { return c.view }

func (c *Canvas) Elements() []json.RawMessage {
	out := make([]json.RawMessage, len(c.elements))
	for i, e := range c.elements {
		out[i] = slices.Clone(e)
	}
	return out
}

func (c *Canvas) Files() map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(c.files))
	for k, v := range c.files {
		out[k] = slices.Clone(v)
	}
	return out
}

// UpdateScene applies a programmatic change. It does not call OnChange.
func (c *Canvas) UpdateScene(u drawing.SceneUpdate) {
	if u.Elements != nil {
		c.elements = slices.Clone(u.Elements)
		c.active = nil
		c.selected = ""
		c.decode()
	}
	if u.Files != nil {
		c.files = make(map[string]json.RawMessage, len(u.Files))
		for k, v := range u.Files {
			c.files[k] = v
		}
	}
	for k, v := range u.AppState {
		c.appState[k] = v
	}
	if u.View != nil {
		c.view = u.View.Apply(c.view)
		c.view.Zoom = clampZoom(c.view.Zoom)
	}
}

func (c *Canvas) decode() {
	c.strokes = c.strokes[:0]
	for i, raw := range c.elements {
		var el Element
		if err := json.Unmarshal(raw, &el); err != nil {
			c.logger.Debug("skipping undecodable element", zap.Int("index", i), zap.Error(err))
			continue
		}
		if el.Type != ElementFreedraw || len(el.Points) == 0 {
			continue
		}
		c.strokes = append(c.strokes, stroke{el: el, raw: i})
	}
}

// Strokes returns the freedraw elements in paint order.
func (c *Canvas) Strokes() []Element {
	out := make([]Element, 0, len(c.strokes)+1)
	for _, s := range c.strokes {
		out = append(out, s.el)
	}
	return out
}

// Active is the stroke being drawn, if any.
func (c *Canvas) Active() (Element, bool) {
	if c.active == nil {
		return Element{}, false
	}
	return *c.active, true
}

func (c *Canvas) Selected() string { return c.selected }

func (c *Canvas) Drawing() bool { return c.active != nil }

func (c *Canvas) mapper() coords.Mapper {
	return coords.NewMapper(c.view.Viewport(), 0, 0)
}

// ToScene converts canvas pixels to scene coordinates.
func (c *Canvas) ToScene(x, y float64) coords.Point {
	return c.mapper().ToDoc(coords.Point{X: x, Y: y})
}

// ToCanvas converts scene coordinates to canvas pixels.
func (c *Canvas) ToCanvas(p coords.Point) coords.Point {
	return c.mapper().ToCanvas(p)
}

// PointerDown starts a stroke with the freedraw tool or picks a stroke
// with the selection tool. It reports whether the press was used.
func (c *Canvas) PointerDown(x, y float64) bool {
	p := c.ToScene(x, y)
	switch c.view.ActiveTool {
	case drawing.ToolFreedraw:
		c.selected = ""
		c.active = &Element{
			ID:          uuid.NewString(),
			Type:        ElementFreedraw,
			X:           p.X,
			Y:           p.Y,
			Points:      [][2]float64{{0, 0}},
			StrokeColor: c.color,
			StrokeWidth: c.width,
			Version:     1,
		}
		return true
	case drawing.ToolSelection:
		c.selected = c.hit(p)
		return c.selected != ""
	}
	return false
}

// PointerMove extends the active stroke. Moves shorter than a canvas pixel
// are dropped.
func (c *Canvas) PointerMove(x, y float64) {
	if c.active == nil {
		return
	}
	p := c.ToScene(x, y)
	last := c.active.Abs(len(c.active.Points) - 1)
	if math.Hypot(p.X-last.X, p.Y-last.Y)*c.view.Zoom < 1 {
		return
	}
	c.active.Points = append(c.active.Points, [2]float64{p.X - c.active.X, p.Y - c.active.Y})
}

// PointerUp commits the active stroke to the scene.
func (c *Canvas) PointerUp() bool {
	if c.active == nil {
		return false
	}
	el := *c.active
	c.active = nil
	el.Width, el.Height = extent(el.Points)

	raw, err := json.Marshal(el)
	if err != nil {
		c.logger.Warn("encode stroke", zap.Error(err))
		return false
	}
	c.elements = append(c.elements, raw)
	c.strokes = append(c.strokes, stroke{el: el, raw: len(c.elements) - 1})
	c.notify(true)
	return true
}

// Cancel drops the active stroke.
func (c *Canvas) Cancel() {
	c.active = nil
}

func (c *Canvas) DeleteSelected() bool {
	if c.selected == "" {
		return false
	}
	i := slices.IndexFunc(c.strokes, func(s stroke) bool { return s.el.ID == c.selected })
	c.selected = ""
	if i < 0 {
		return false
	}
	c.elements = slices.Delete(slices.Clone(c.elements), c.strokes[i].raw, c.strokes[i].raw+1)
	c.decode()
	c.notify(true)
	return true
}

// ScrollBy pans the view by a canvas-pixel delta.
func (c *Canvas) ScrollBy(dx, dy float64) {
	if dx == 0 && dy == 0 {
		return
	}
	c.view.ScrollX += dx
	c.view.ScrollY += dy
	c.notify(false)
}

// ZoomAt multiplies the zoom, keeping the scene point under canvas x, y in
// place.
func (c *Canvas) ZoomAt(factor, x, y float64) {
	if !(factor > 0) {
		return
	}
	zoom := clampZoom(c.view.Zoom * factor)
	if zoom == c.view.Zoom {
		return
	}
	p := c.ToScene(x, y)
	c.view.Zoom = zoom
	c.view.ScrollX = x - p.X*zoom
	c.view.ScrollY = y - p.Y*zoom
	c.notify(false)
}

func (c *Canvas) SetTool(t drawing.Tool) {
	if !t.Valid() {
		return
	}
	if t != drawing.ToolFreedraw {
		c.active = nil
	}
	c.view.ActiveTool = t
}

func (c *Canvas) notify(scene bool) {
	for k, v := range drawing.ViewAppState(c.view) {
		c.appState[k] = v
	}
	if c.onChange == nil {
		return
	}
	if !scene {
		c.onChange(nil, maps.Clone(c.appState), nil)
		return
	}
	c.onChange(c.Elements(), maps.Clone(c.appState), c.Files())
}

// hit returns the topmost stroke within reach of scene point p.
func (c *Canvas) hit(p coords.Point) string {
	slop := hitSlop / c.view.Zoom
	for i := len(c.strokes) - 1; i >= 0; i-- {
		el := c.strokes[i].el
		reach := el.StrokeWidth/2 + slop
		if len(el.Points) == 1 {
			a := el.Abs(0)
			if math.Hypot(p.X-a.X, p.Y-a.Y) <= reach {
				return el.ID
			}
			continue
		}
		for j := 1; j < len(el.Points); j++ {
			if segmentDistance(p, el.Abs(j-1), el.Abs(j)) <= reach {
				return el.ID
			}
		}
	}
	return ""
}

func segmentDistance(p, a, b coords.Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / l2
	t = min(max(t, 0), 1)
	return math.Hypot(p.X-(a.X+t*dx), p.Y-(a.Y+t*dy))
}

func extent(points [][2]float64) (w, h float64) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, pt := range points {
		minX, maxX = min(minX, pt[0]), max(maxX, pt[0])
		minY, maxY = min(minY, pt[1]), max(maxY, pt[1])
	}
	return maxX - minX, maxY - minY
}

func clampZoom(z float64) float64 {
	if !(z > 0) || math.IsInf(z, 0) {
		return 1
	}
	return min(max(z, MinZoom), MaxZoom)
}
