// Package app is the desktop host: an ebiten game loop that feeds input to
// the editing session and draws the paper, the text and the ink.
package app

import (
	"context"
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"

	"github.com/elloloop/paperlike/internal/layout"
	"github.com/elloloop/paperlike/internal/platform"
	"github.com/elloloop/paperlike/internal/render"
	"github.com/elloloop/paperlike/internal/session"
	"github.com/elloloop/paperlike/internal/storage"
	"github.com/elloloop/paperlike/internal/ui"
)

type App struct {
	ctx    context.Context
	sess   *session.Session
	logger *zap.Logger
	window platform.WindowConfig

	theme   ui.Theme
	scale   float32
	faces   *layout.FaceMeasurer
	layout  ui.Layout
	page    ui.Page
	fb      *render.FrameBuffer
	chrome  *ebiten.Image
	inkLay  *ebiten.Image
	dim     *ebiten.Image
	panel   *ebiten.Image
	screenW int
	screenH int

	status    string
	frameTick uint64
	drawn     bool

	selectMode bool
	showHelp   bool
	prompt     *prompt
	quit       bool
}

func New(ctx context.Context, sess *session.Session, window platform.WindowConfig, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	faces, err := layout.NewFaceMeasurer()
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	return &App{
		ctx:    ctx,
		sess:   sess,
		logger: logger.Named("app"),
		window: window,
		theme:  ui.DefaultTheme(),
		scale:  1,
		faces:  faces,
		status: openStatus(sess.Source()),
	}, nil
}

func openStatus(src storage.Source) string {
	switch src {
	case storage.SourceAutoSave:
		return "Recovered auto-save"
	case storage.SourceDocument:
		return "Opened saved document"
	default:
		return "New document"
	}
}

func (a *App) Run() error {
	ebiten.SetWindowTitle(a.window.Title)
	ebiten.SetWindowSize(a.window.WidthPx, a.window.HeightPx)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSizeLimits(a.window.MinWidthPx, a.window.MinHeightPx, -1, -1)
	if err := ebiten.RunGame(a); err != nil {
		return fmt.Errorf("run game loop: %w", err)
	}
	return nil
}

func (a *App) Update() error {
	a.frameTick++
	// Effects committed last frame run now that the frame was drawn.
	if a.drawn {
		if a.sess.Tick() {
			a.status = "Document replaced"
		}
	}
	a.layout = ui.ComputeLayout(a.screenW, a.screenH, a.theme, a.scale)

	a.handleInput()

	if a.quit {
		return ebiten.Termination
	}
	return nil
}

func (a *App) Layout(outsideWidth, outsideHeight int) (screenWidth, screenHeight int) {
	outsideWidth = max(outsideWidth, a.window.MinWidthPx, 1)
	outsideHeight = max(outsideHeight, a.window.MinHeightPx, 1)
	a.screenW = outsideWidth
	a.screenH = outsideHeight
	return outsideWidth, outsideHeight
}
