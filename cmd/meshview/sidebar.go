package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/Faultbox/meshview/internal/engine/scene"
	"github.com/Faultbox/meshview/internal/engine/ui2d"
)

const (
	textRowH   = 13
	buttonRowH = 24
	recentRows = 6
	spacing    = 4
)

// drawSidebar draws the file, status and display controls panel.
func (app *App) drawSidebar() {
	ui := app.ui
	_, h := app.window.GetSize()
	width := float32(app.cfg.Window.SidebarWidth)
	if width <= 0 {
		return
	}

	ui.BeginPanel("sidebar", ui2d.Rect{X: 0, Y: 0, W: width, H: float32(h)}, "meshview")
	defer ui.EndPanel()

	ui.Row(buttonRowH)
	if ui.Button("open", 80, "Open...") {
		app.openFileDialog()
	}
	if app.current != "" {
		if ui.Button("reload", 80, "Reload") {
			app.Reload()
		}
	} else {
		ui.ButtonDisabled(80, "Reload")
	}

	// File and status
	ui.Separator()
	ui.Row(0)
	switch {
	case app.current != "":
		ui.LabelWrapped(filepath.Base(app.current), ui2d.ColorText)
	default:
		ui.LabelWrapped("Drop a .fbx file here, or press O.", ui2d.ColorTextDim)
	}

	st := app.session.Status()
	ui.Row(0)
	switch {
	case st.Loading:
		ui.LabelWrapped("Loading "+filepath.Base(app.pendingPath)+"...", ui2d.ColorHighlight)
	case app.openErr != "":
		ui.LabelWrapped(app.openErr, ui2d.ColorError)
	case st.Error != "":
		ui.LabelWrapped(st.Error, ui2d.ColorError)
	case app.lastLoad > 0:
		ui.LabelWrapped(fmt.Sprintf("Loaded in %s", app.lastLoad.Round(time.Millisecond)), ui2d.ColorTextDim)
	}

	// Model
	if model := app.session.Model(); model != nil {
		ui.Separator()
		sum := scene.Summarize(model)
		app.statRow("Meshes", sum.Meshes)
		app.statRow("Joints", sum.Joints)
		app.statRow("Vertices", sum.Vertices)
		app.statRow("Triangles", sum.Triangles)
		app.statRow("Materials", sum.Materials)
		app.statRow("Textures", sum.Textures)
	}

	// Renderer
	ui.Separator()
	rs := app.renderer.Stats()
	tw, th := app.renderer.TargetSize()
	ui.Row(textRowH)
	ui.LabelColored(fmt.Sprintf("Target %dx%d", tw, th), ui2d.ColorTextDim)
	app.statRow("Draw calls", rs.DrawCalls)
	app.statRow("GPU geometries", rs.Geometries)
	app.statRow("GPU textures", rs.Textures)

	// Display
	ui.Separator()
	ui.Row(textRowH + 1)
	if grid := ui.Checkbox("grid", "Grid (G)", app.cfg.Viewport.ShowGrid); grid != app.cfg.Viewport.ShowGrid {
		app.setGrid(grid)
	}
	ui.Row(textRowH + 1)
	if bounds := ui.Checkbox("bounds", "Bounds (B)", app.cfg.Viewport.ShowBounds); bounds != app.cfg.Viewport.ShowBounds {
		app.setBounds(bounds)
	}
	ui.Row(textRowH + 1)
	if w := ui.Checkbox("watch", "Reload on change", app.cfg.Watch.Enabled); w != app.cfg.Watch.Enabled {
		app.setWatch(w)
		app.saveConfig()
	}

	// Recent files
	if len(app.cfg.History.Recent) > 0 {
		ui.Separator()
		ui.Row(textRowH)
		ui.LabelColored("Recent", ui2d.ColorTextDim)
		ui.Row(0)
		ui.BeginListBox(recentRows*18 + 8)
		for _, p := range app.cfg.History.Recent {
			if ui.Selectable(filepath.Base(p), p == app.current) {
				app.Open(p)
			}
		}
		ui.EndListBox()
	}

	if app.lastScreenshotMsg != "" && time.Since(app.screenshotMsgTime) < 2*time.Second {
		ui.Row(0)
		ui.Spacer(spacing)
		ui.LabelWrapped(app.lastScreenshotMsg, ui2d.ColorHighlight)
	}

	ui.Row(0)
	ui.Spacer(spacing)
	ui.LabelWrapped("Left drag orbit, right drag pan, wheel zoom. F12 screenshot.", ui2d.ColorTextDim)
}

func (app *App) statRow(label string, v int) {
	app.ui.Row(textRowH)
	app.ui.LabelColored(label, ui2d.ColorTextDim)
	app.ui.LabelColored(fmt.Sprint(v), ui2d.ColorText)
}
