package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/sqweek/dialog"
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/config"
	"github.com/Faultbox/meshview/internal/engine/debug"
	"github.com/Faultbox/meshview/internal/engine/frameloop"
	"github.com/Faultbox/meshview/internal/engine/input"
	"github.com/Faultbox/meshview/internal/engine/region"
	"github.com/Faultbox/meshview/internal/engine/renderer"
	"github.com/Faultbox/meshview/internal/engine/ui2d"
	"github.com/Faultbox/meshview/internal/engine/window"
	"github.com/Faultbox/meshview/internal/importer"
	"github.com/Faultbox/meshview/internal/logger"
	"github.com/Faultbox/meshview/internal/viewport"
	"github.com/Faultbox/meshview/internal/watch"
)

// idleWaitMs bounds how long the loop sleeps when nothing is scheduled.
const idleWaitMs = 100

// App is the previewer window: a sidebar on the left and the 3D viewport
// filling the rest.
type App struct {
	cfg *config.Config
	log *zap.Logger

	window   *window.Window
	input    *input.Input
	ui       *ui2d.Context
	loop     *frameloop.Loop
	region   *region.Region
	renderer *renderer.Renderer
	importer *importer.Registry
	session  *viewport.Session
	watcher  *watch.Watcher
	shots    *debug.ScreenshotCapture

	running bool

	// File state
	current     string         // Path of the displayed model
	pending     *viewport.Load // Most recent load request
	pendingPath string         // Path of the pending load
	openErr     string         // Failure to open a file before import
	lastLoad    time.Duration  // Duration of the last successful load
	loadStart   time.Time

	// Screenshot state
	screenshotRequested bool
	lastScreenshotMsg   string
	screenshotMsgTime   time.Time
}

// NewApp creates the window, renderer and viewport session.
func NewApp(cfg *config.Config) (*App, error) {
	app := &App{
		cfg:   cfg,
		log:   logger.Log.Named("app"),
		input: input.New(),
		loop:  frameloop.New(),
		shots: debug.NewScreenshotCapture(filepath.Join(os.TempDir(), "meshview"), "meshview"),
	}

	var err error
	app.window, err = window.New(window.Config{
		Title:  cfg.Window.Title,
		Width:  cfg.Window.Width,
		Height: cfg.Window.Height,
		VSync:  cfg.Window.VSync,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// Renderer and UI need the GL context the window created.
	rcfg := renderer.DefaultConfig()
	rcfg.PixelRatioCap = cfg.Viewport.PixelRatioCap
	app.renderer, err = renderer.New(rcfg)
	if err != nil {
		app.window.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	w, h := app.window.GetSize()
	app.ui, err = ui2d.NewContext(w, h)
	if err != nil {
		app.renderer.Close()
		app.window.Close()
		return nil, fmt.Errorf("failed to create ui: %w", err)
	}

	app.importer = importer.NewDefault(
		importer.WithLogger(logger.Log.Named("importer")),
		importer.WithMaxBytes(cfg.Import.MaxFileBytes),
		importer.WithSearchPaths(cfg.Import.SearchPaths...),
	)

	app.region = region.New(0, 0, 1, 1)
	app.layout(w, h)

	app.session = viewport.New(app.loop, app.renderer, app.importer, viewport.Options{
		FOV:                  cfg.Viewport.FOV,
		DampingFactor:        cfg.Viewport.Damping,
		ShowGrid:             cfg.Viewport.ShowGrid,
		ShowBounds:           cfg.Viewport.ShowBounds,
		MaxConcurrentImports: cfg.Import.MaxConcurrent,
		OnStatus:             app.onStatus,
		Logger:               logger.Log.Named("viewport"),
	})
	if err := app.session.Open(app.region); err != nil {
		app.ui.Close()
		app.renderer.Close()
		app.window.Close()
		return nil, fmt.Errorf("failed to open viewport: %w", err)
	}
	app.session.Scene().Background = cfg.Viewport.BackgroundColor()

	if cfg.Watch.Enabled {
		app.setWatch(true)
	}

	app.log.Info("app initialized", logger.Session(app.session.ID()))
	return app, nil
}

// layout places the viewport region to the right of the sidebar.
// Sizes are logical window pixels.
func (app *App) layout(width, height int) {
	sidebar := min(app.cfg.Window.SidebarWidth, width)
	ratio := app.window.PixelRatio()

	app.renderer.SetPixelRatio(ratio)
	// Region spans the full height, so its bottom edge is the window's.
	app.renderer.SetOrigin(int(float32(sidebar)*ratio+0.5), 0)
	app.region.SetBounds(sidebar, 0, width-sidebar, height)
	app.ui.Resize(width, height)
}

// Run drives the frame loop until the window closes.
func (app *App) Run() {
	app.running = true
	for app.running {
		if app.input.Update() {
			app.running = false
			break
		}
		for _, ev := range app.input.Events() {
			app.handleEvent(ev)
		}

		app.pollLoad()
		app.render()
		app.window.SwapBuffers()

		if app.loop.PendingFrames() == 0 && app.loop.PendingDispatches() == 0 {
			input.WaitEvent(idleWaitMs)
		}
	}
}

func (app *App) render() {
	dw, dh := app.window.DrawableSize()
	bg := app.cfg.Viewport.BackgroundColor()

	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, int32(dw), int32(dh))
	gl.ClearColor(bg[0], bg[1], bg[2], 1)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	// Completions first, then the session frame that renders the viewport.
	app.loop.Tick(time.Now())

	if app.screenshotRequested {
		app.screenshotRequested = false
		app.captureScreenshot()
	}

	gl.Viewport(0, 0, int32(dw), int32(dh))
	app.ui.Begin()
	app.drawSidebar()
	app.ui.End()
}

func (app *App) handleEvent(ev input.Event) {
	in := app.ui.Input()

	switch ev.Type {
	case input.EventWindowResize:
		app.layout(ev.Width, ev.Height)

	case input.EventMouseMove:
		in.MouseX, in.MouseY = float32(ev.MouseX), float32(ev.MouseY)
		app.region.MouseMove(ev.DX, ev.DY)

	case input.EventMouseDown:
		in.MouseX, in.MouseY = float32(ev.MouseX), float32(ev.MouseY)
		if app.region.MouseDown(ev.MouseX, ev.MouseY, int(ev.Button)) {
			return
		}
		if ev.Button == sdl.BUTTON_LEFT {
			in.MouseLeftDown = true
		}

	case input.EventMouseUp:
		app.region.MouseUp(int(ev.Button))
		if ev.Button == sdl.BUTTON_LEFT {
			in.MouseLeftDown = false
		}

	case input.EventMouseWheel:
		if !app.region.Wheel(ev.MouseX, ev.MouseY, ev.Wheel) {
			in.ScrollY += ev.Wheel
		}

	case input.EventDropFile:
		app.Open(ev.Path)

	case input.EventKeyDown:
		app.handleKey(ev.Key)
	}
}

func (app *App) handleKey(key sdl.Scancode) {
	switch key {
	case sdl.SCANCODE_ESCAPE:
		app.running = false
	case sdl.SCANCODE_O:
		app.openFileDialog()
	case sdl.SCANCODE_R:
		app.Reload()
	case sdl.SCANCODE_G:
		app.setGrid(!app.cfg.Viewport.ShowGrid)
	case sdl.SCANCODE_B:
		app.setBounds(!app.cfg.Viewport.ShowBounds)
	case sdl.SCANCODE_F12:
		// Captured after the next viewport frame.
		app.screenshotRequested = true
	}
}

// openFileDialog shows a native file dialog to select a model.
func (app *App) openFileDialog() {
	exts := dialogExtensions()

	// The dialog blocks, so it runs off the loop and hands the path back.
	go func() {
		filename, err := dialog.File().
			Filter("3D Models", exts...).
			Filter("All Files", "*").
			Title("Open Model").
			Load()
		if err != nil {
			if !errors.Is(err, dialog.ErrCancelled) {
				app.log.Warn("file dialog failed", zap.Error(err))
			}
			return
		}
		app.loop.Dispatch(func() { app.Open(filename) })
	}()
}

// Open starts loading the model at path. The displayed model stays until
// the new one is ready.
func (app *App) Open(path string) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	if !acceptsModel(path) {
		app.openErr = fmt.Sprintf("Unsupported file type %q. Supported: %s",
			filepath.Ext(path), strings.Join(modelExtensions, " "))
		app.log.Warn("rejected model", zap.String("path", path))
		return
	}

	src, err := viewport.OpenFile(path)
	if err != nil {
		app.openErr = err.Error()
		app.log.Warn("cannot open model", zap.String("path", path), zap.Error(err))
		return
	}
	app.openErr = ""

	load, err := app.session.LoadModel(src)
	if err != nil {
		app.openErr = err.Error()
		return
	}
	app.pending = load
	app.pendingPath = path
	app.loadStart = time.Now()
	app.log.Info("loading model", zap.String("path", path), logger.Generation(load.Generation))
}

// Reload loads the displayed model again from disk.
func (app *App) Reload() {
	if app.current == "" {
		return
	}
	app.Open(app.current)
}

// pollLoad records the result of the most recent load once it settles.
func (app *App) pollLoad() {
	if app.pending == nil {
		return
	}
	select {
	case <-app.pending.Done():
	default:
		return
	}

	load, path := app.pending, app.pendingPath
	app.pending, app.pendingPath = nil, ""

	outcome, err := load.Result()
	switch outcome {
	case viewport.OutcomeLoaded:
		app.lastLoad = time.Since(app.loadStart)
		app.setCurrent(path)
		f := load.Framing()
		app.log.Info("model displayed",
			zap.String("path", path),
			zap.Duration("elapsed", app.lastLoad),
			zap.Float32("distance", f.Distance),
			zap.Bool("degenerate", f.Degenerate))
	case viewport.OutcomeFailed:
		app.log.Warn("model failed to load", zap.String("path", path), zap.Error(err))
	}
}

// setCurrent makes path the displayed file: recent list, title and watch.
func (app *App) setCurrent(path string) {
	if app.watcher != nil && app.current != "" && app.current != path {
		if err := app.watcher.Remove(app.current); err != nil {
			app.log.Debug("unwatch failed", zap.String("path", app.current), zap.Error(err))
		}
	}
	app.current = path
	if app.watcher != nil {
		if err := app.watcher.Add(path); err != nil {
			app.log.Warn("cannot watch model", zap.String("path", path), zap.Error(err))
		}
	}

	app.cfg.AddRecent(path)
	app.saveConfig()
	app.updateTitle()
}

func (app *App) onStatus(st viewport.Status) {
	if st.Error != "" {
		app.log.Debug("viewport status", zap.Bool("loading", st.Loading), zap.String("error", st.Error))
	}
	app.updateTitle()
}

func (app *App) updateTitle() {
	title := app.cfg.Window.Title
	if app.current != "" {
		title = fmt.Sprintf("%s - %s", title, filepath.Base(app.current))
	}
	if app.session != nil && app.session.Status().Loading {
		title += " (loading)"
	}
	app.window.SetTitle(title)
}

func (app *App) setGrid(on bool) {
	app.cfg.Viewport.ShowGrid = on
	app.session.Scene().Grid.Visible = on
}

func (app *App) setBounds(on bool) {
	app.cfg.Viewport.ShowBounds = on
	app.session.Scene().ShowBounds = on
}

// setWatch starts or stops reloading the model when its file changes.
func (app *App) setWatch(on bool) {
	app.cfg.Watch.Enabled = on
	if !on {
		if app.watcher != nil {
			app.watcher.Close()
			app.watcher = nil
		}
		return
	}
	if app.watcher != nil {
		return
	}

	w, err := watch.New(app.cfg.Watch.Debounce)
	if err != nil {
		app.log.Warn("file watching unavailable", zap.Error(err))
		app.cfg.Watch.Enabled = false
		return
	}
	app.watcher = w
	if app.current != "" {
		if err := w.Add(app.current); err != nil {
			app.log.Warn("cannot watch model", zap.String("path", app.current), zap.Error(err))
		}
	}

	go func() {
		for path := range w.Changes() {
			app.loop.Dispatch(func() {
				if path == app.current {
					app.log.Info("model changed on disk", zap.String("path", path))
					app.Reload()
				}
			})
		}
	}()
}

func (app *App) captureScreenshot() {
	pixels, w, h := app.renderer.ReadPixels()
	path, err := app.shots.CaptureFromPixels(pixels, w, h)
	if err != nil {
		app.lastScreenshotMsg = "Screenshot failed"
		app.log.Warn("screenshot failed", zap.Error(err))
	} else {
		app.lastScreenshotMsg = "Saved " + filepath.Base(path)
		app.log.Info("screenshot saved", zap.String("path", path))
	}
	app.screenshotMsgTime = time.Now()
}

func (app *App) saveConfig() {
	if err := app.cfg.Save(); err != nil {
		app.log.Warn("failed to save config", zap.Error(err))
	}
}

// Close tears everything down in reverse order of creation.
func (app *App) Close() {
	app.log.Info("closing app")

	if app.watcher != nil {
		app.watcher.Close()
	}
	// Closing the session also closes the renderer.
	if app.session != nil {
		if err := app.session.Close(); err != nil {
			app.log.Warn("viewport close failed", zap.Error(err))
		}
	}
	app.saveConfig()
	if app.ui != nil {
		app.ui.Close()
	}
	if app.window != nil {
		app.window.Close()
	}
}
