package view

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/lawnchairsociety/dungeonmaker/internal/dungeon"
	"github.com/lawnchairsociety/dungeonmaker/internal/logger"
	"github.com/lawnchairsociety/dungeonmaker/internal/timeline"
)

// frameInterval paces redraws while the event loop is running
const frameInterval = 33 * time.Millisecond

// statusRows is the number of rows reserved below the map
const statusRows = 1

// GenerateFunc builds a dungeon for a seed
type GenerateFunc func(seed int64) (*dungeon.Grid, *dungeon.Result, error)

// Viewer reveals a dungeon's trace on a terminal screen
type Viewer struct {
	screen   tcell.Screen
	camera   *Camera
	generate GenerateFunc
	interval time.Duration

	seed     int64
	target   *dungeon.Grid
	canvas   *dungeon.Grid
	trace    dungeon.Trace
	timeline *timeline.Timeline
	applied  int
}

// NewViewer creates a viewer drawing to screen. generate may be nil, in
// which case regeneration is disabled.
func NewViewer(screen tcell.Screen, generate GenerateFunc, interval time.Duration) *Viewer {
	w, h := screen.Size()
	return &Viewer{
		screen:   screen,
		camera:   NewCamera(w, viewHeight(h)),
		generate: generate,
		interval: interval,
	}
}

func viewHeight(screenH int) int {
	if screenH <= statusRows {
		return 0
	}
	return screenH - statusRows
}

// Seed returns the seed of the dungeon being shown
func (v *Viewer) Seed() int64 { return v.seed }

// Timeline returns the playback of the current dungeon
func (v *Viewer) Timeline() *timeline.Timeline { return v.timeline }

// Canvas returns the grid as revealed so far
func (v *Viewer) Canvas() *dungeon.Grid { return v.canvas }

// Camera returns the viewport
func (v *Viewer) Camera() *Camera { return v.camera }

// Generate builds a dungeon for seed and starts revealing it
func (v *Viewer) Generate(seed int64) error {
	if v.generate == nil {
		return fmt.Errorf("no generator configured")
	}
	grid, res, err := v.generate(seed)
	if err != nil {
		return fmt.Errorf("generating seed %d: %w", seed, err)
	}
	return v.Show(seed, grid, res.Trace)
}

// Show starts revealing trace toward target. An empty trace shows target
// immediately.
func (v *Viewer) Show(seed int64, target *dungeon.Grid, trace dungeon.Trace) error {
	canvas, err := dungeon.NewGrid(target.Width, target.Height)
	if err != nil {
		return err
	}
	if len(trace) == 0 {
		canvas = target.Clone()
	}

	v.seed = seed
	v.target = target
	v.canvas = canvas
	v.trace = trace
	v.applied = 0
	v.timeline = timeline.New(trace, v.interval)
	v.timeline.Start()
	v.camera.Center(target.Width/2, target.Height/2, target.Width, target.Height)

	logger.Debug("Viewer showing dungeon", "seed", seed, "width", target.Width, "height", target.Height, "events", len(trace))
	return nil
}

// Update advances playback and copies newly revealed events onto the canvas
func (v *Viewer) Update(delta time.Duration) error {
	if v.timeline == nil {
		return nil
	}
	v.timeline.Update(delta)
	return v.sync()
}

func (v *Viewer) sync() error {
	visible := v.timeline.Visible()
	if len(visible) <= v.applied {
		return nil
	}
	if err := visible[v.applied:].ApplyTo(v.canvas, len(visible)-v.applied); err != nil {
		return err
	}
	v.applied = len(visible)
	return nil
}

// HandleKey applies one key press. It reports true when the viewer should
// quit.
func (v *Viewer) HandleKey(ev *tcell.EventKey) (bool, error) {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true, nil
	case tcell.KeyUp:
		v.pan(0, -1)
	case tcell.KeyDown:
		v.pan(0, 1)
	case tcell.KeyLeft:
		v.pan(-1, 0)
	case tcell.KeyRight:
		v.pan(1, 0)
	case tcell.KeyEnter:
		return false, v.skip()
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q', 'Q':
			return true, nil
		case ' ':
			if v.timeline != nil {
				v.timeline.Toggle()
			}
		case 'r', 'R':
			if v.generate != nil {
				return false, v.Generate(v.seed + 1)
			}
		case 's', 'S':
			return false, v.skip()
		}
	}
	return false, nil
}

func (v *Viewer) pan(dx, dy int) {
	if v.target == nil {
		return
	}
	v.camera.Pan(dx, dy, v.target.Width, v.target.Height)
}

func (v *Viewer) skip() error {
	if v.timeline == nil {
		return nil
	}
	v.timeline.Skip()
	return v.sync()
}

// Resize fits the camera to the current screen size
func (v *Viewer) Resize() {
	w, h := v.screen.Size()
	worldW, worldH := 0, 0
	if v.target != nil {
		worldW, worldH = v.target.Width, v.target.Height
	}
	v.camera.Resize(w, viewHeight(h), worldW, worldH)
}

// Draw renders the canvas and the status line
func (v *Viewer) Draw() {
	v.screen.Clear()
	if v.canvas != nil {
		v.drawMap()
	}
	v.drawStatus()
	v.screen.Show()
}

func (v *Viewer) drawMap() {
	g := v.canvas
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			sx, sy, onScreen := v.camera.WorldToScreen(x, y)
			if !onScreen {
				continue
			}
			idx := y*g.Width + x
			kind := g.Kinds[idx]
			if kind == dungeon.TileEmpty {
				continue
			}
			v.screen.SetContent(sx, sy, TileRune(g, idx), nil, tileStyle(kind))
		}
	}
}

// TileRune returns the terminal character for the cell at idx. Walls use
// box-drawing characters chosen from their neighbours.
func TileRune(g *dungeon.Grid, idx int) rune {
	kind := g.Kinds[idx]
	if kind == dungeon.TileWall {
		return dungeon.WallShapeAt(g, idx).Rune()
	}
	return kind.Glyph()
}

func tileStyle(kind dungeon.TileKind) tcell.Style {
	style := tcell.StyleDefault.Background(tcell.ColorBlack)
	switch kind {
	case dungeon.TileWall:
		return style.Foreground(tcell.ColorSilver)
	case dungeon.TileDoor:
		return style.Foreground(tcell.ColorDarkGoldenrod)
	default:
		return style.Foreground(tcell.ColorGray)
	}
}

// StatusLine describes the dungeon and playback state
func (v *Viewer) StatusLine() string {
	if v.target == nil || v.timeline == nil {
		return "no dungeon  [q] quit"
	}
	return fmt.Sprintf("seed %d  %dx%d  %s %d/%d  [space] pause  [s] skip  [r] new  [q] quit",
		v.seed, v.target.Width, v.target.Height,
		v.timeline.State(), len(v.timeline.Visible()), v.timeline.Len())
}

func (v *Viewer) drawStatus() {
	w, h := v.screen.Size()
	if h == 0 {
		return
	}
	line := runewidth.Truncate(v.StatusLine(), w, "…")
	drawText(v.screen, 0, h-1, line, tcell.StyleDefault.Foreground(tcell.ColorWhite))
}

func drawText(screen tcell.Screen, x, y int, text string, style tcell.Style) {
	col := x
	for _, ch := range text {
		screen.SetContent(col, y, ch, nil, style)
		col += runewidth.RuneWidth(ch)
	}
}

// Run polls input and redraws until the user quits or ctx is done
func (v *Viewer) Run(ctx context.Context) error {
	eventCh := make(chan tcell.Event, 32)
	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				close(eventCh)
				return
			}
			eventCh <- ev
		}
	}()

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()
	last := time.Now()
	v.Draw()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-eventCh:
			if !ok {
				return nil
			}
			switch ev := ev.(type) {
			case *tcell.EventResize:
				v.Resize()
				v.screen.Sync()
			case *tcell.EventKey:
				quit, err := v.HandleKey(ev)
				if err != nil {
					logger.Warning("Viewer key failed", "error", err)
				}
				if quit {
					return nil
				}
			}
			v.Draw()
		case now := <-ticker.C:
			if err := v.Update(now.Sub(last)); err != nil {
				return err
			}
			last = now
			v.Draw()
		}
	}
}
