package platform

type WindowConfig struct {
	Title       string
	WidthPx     int
	HeightPx    int
	MinWidthPx  int
	MinHeightPx int
}

type EventType int

const (
	EventUnknown EventType = iota
	EventKeyDown
	EventTextInput
	EventMouseMove
	EventMouseDown
	EventMouseUp
	EventMouseWheel
)

type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModCtrl
	ModAlt
	ModMeta
)

func (m Modifiers) Has(mod Modifiers) bool { return m&mod != 0 }

// Command is the platform shortcut modifier: Ctrl, or Cmd on macOS.
func (m Modifiers) Command() bool { return m.Has(ModCtrl) || m.Has(ModMeta) }

// Key names follow the W3C KeyboardEvent.key values the host maps to.
const (
	KeyEnter     = "Enter"
	KeyBackspace = "Backspace"
	KeyDelete    = "Delete"
	KeyLeft      = "ArrowLeft"
	KeyRight     = "ArrowRight"
	KeyUp        = "ArrowUp"
	KeyDown      = "ArrowDown"
	KeyHome      = "Home"
	KeyEnd       = "End"
	KeyEscape    = "Escape"
	KeyTab       = "Tab"
	KeyF1        = "F1"
)

// Event is a host input event. Pointer coordinates are canvas pixels.
type Event struct {
	Type   EventType
	X      float64
	Y      float64
	DeltaX float64
	DeltaY float64
	Key    string
	Text   string
	Mods   Modifiers
}
