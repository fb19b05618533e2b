// Package render draws flat chrome into an RGBA pixel buffer the host
// uploads once per frame.
package render

import (
	"image"
	"image/color"
)

// Rect is a pixel rectangle. Zero or negative sizes are empty.
type Rect struct {
	X, Y, W, H int
}

func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

func (r Rect) Contains(x, y int) bool {
	return x >= r.X && y >= r.Y && x < r.X+r.W && y < r.Y+r.H
}

func (r Rect) Intersect(o Rect) Rect {
	x0, y0 := max(r.X, o.X), max(r.Y, o.Y)
	x1, y1 := min(r.X+r.W, o.X+o.W), min(r.Y+r.H, o.Y+o.H)
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

func (r Rect) Image() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
}

type FrameBuffer struct {
	W      int
	H      int
	Pixels []uint8 // RGBA
	// Clip limits every fill. The zero value means the whole buffer.
	Clip Rect
}

func NewFrameBuffer(w, h int) *FrameBuffer {
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	return &FrameBuffer{W: w, H: h, Pixels: make([]uint8, w*h*4)}
}

// Resize reuses the pixel slice when it is large enough.
func (fb *FrameBuffer) Resize(w, h int) {
	w, h = max(w, 1), max(h, 1)
	if w == fb.W && h == fb.H {
		return
	}
	if n := w * h * 4; cap(fb.Pixels) >= n {
		fb.Pixels = fb.Pixels[:n]
	} else {
		fb.Pixels = make([]uint8, n)
	}
	fb.W, fb.H = w, h
	fb.Clip = Rect{}
}

func (fb *FrameBuffer) Bounds() Rect { return Rect{W: fb.W, H: fb.H} }

func (fb *FrameBuffer) clip() Rect {
	if fb.Clip.Empty() {
		return fb.Bounds()
	}
	return fb.Clip.Intersect(fb.Bounds())
}

func (fb *FrameBuffer) Clear(c color.RGBA) {
	for i := 0; i < len(fb.Pixels); i += 4 {
		fb.Pixels[i+0] = c.R
		fb.Pixels[i+1] = c.G
		fb.Pixels[i+2] = c.B
		fb.Pixels[i+3] = c.A
	}
}

func (fb *FrameBuffer) FillRect(x, y, w, h int, c color.RGBA) {
	fb.Fill(Rect{X: x, Y: y, W: w, H: h}, c)
}

func (fb *FrameBuffer) Fill(r Rect, c color.RGBA) {
	r = r.Intersect(fb.clip())
	if r.Empty() {
		return
	}
	for row := 0; row < r.H; row++ {
		off := ((r.Y+row)*fb.W + r.X) * 4
		for col := 0; col < r.W; col++ {
			idx := off + col*4
			fb.Pixels[idx+0] = c.R
			fb.Pixels[idx+1] = c.G
			fb.Pixels[idx+2] = c.B
			fb.Pixels[idx+3] = c.A
		}
	}
}

func (fb *FrameBuffer) StrokeRect(x, y, w, h, line int, c color.RGBA) {
	if line <= 0 {
		line = 1
	}
	fb.FillRect(x, y, w, line, c)
	fb.FillRect(x, y+h-line, w, line, c)
	fb.FillRect(x, y, line, h, c)
	fb.FillRect(x+w-line, y, line, h, c)
}

// DashedVLine draws a vertical line of dash-long segments separated by
// gaps of the same length.
func (fb *FrameBuffer) DashedVLine(x, y0, y1, dash int, c color.RGBA) {
	if dash <= 0 {
		dash = 4
	}
	for y := y0; y < y1; y += dash * 2 {
		fb.FillRect(x, y, 1, min(dash, y1-y), c)
	}
}

func (fb *FrameBuffer) At(x, y int) color.RGBA {
	if !fb.Bounds().Contains(x, y) {
		return color.RGBA{}
	}
	i := (y*fb.W + x) * 4
	return color.RGBA{fb.Pixels[i], fb.Pixels[i+1], fb.Pixels[i+2], fb.Pixels[i+3]}
}
