package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/samber/lo"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/chazu/stagehand/pkg/commit"
	"github.com/chazu/stagehand/pkg/config"
	"github.com/chazu/stagehand/pkg/editor"
	"github.com/chazu/stagehand/pkg/geom"
	"github.com/chazu/stagehand/pkg/kernel"
	"github.com/chazu/stagehand/pkg/kernel/sdfx"
	"github.com/chazu/stagehand/pkg/persist"
	"github.com/chazu/stagehand/pkg/placement"
	"github.com/chazu/stagehand/pkg/script"
	"github.com/chazu/stagehand/pkg/tessellate"
)

// Frontend event names.
const (
	eventCommitted = "placement:committed"
	eventFailed    = "placement:failed"
)

// categoryColors colours placements by their stacking category.
var categoryColors = map[string]string{
	"floral":    "#2ECC71",
	"tableware": "#F39C12",
	"candle":    "#E67E22",
}

// colorPalette is used for placements outside every category.
var colorPalette = []string{
	"#4A90D9", "#9B59B6", "#1ABC9C", "#3498DB",
	"#E74C3C", "#7F8C8D", "#34495E", "#D35400",
}

const selectedColor = "#F1C40F"

// Seeder is implemented by persistence collaborators that can take a
// scene's placements and hand back what they store.
type Seeder interface {
	Seed(ctx context.Context, ps ...placement.Placement) ([]placement.Placement, error)
}

// App is the Wails backend. It exposes methods to the frontend via bindings.
// Bindings run on arbitrary goroutines, so every editor call holds mu.
type App struct {
	ctx     atomic.Pointer[context.Context] // set by startup; unset in tests
	mu      sync.Mutex
	cfg     config.Config
	script  *script.Engine
	kernel  kernel.Kernel
	persist persist.Store
	editor  *editor.Editor
}

// MeshData is the JSON-serializable mesh format sent to the frontend.
type MeshData struct {
	Vertices    []float32 `json:"vertices"`
	Normals     []float32 `json:"normals"`
	Indices     []uint32  `json:"indices"`
	PlacementID string    `json:"placementId"`
	Color       string    `json:"color"`
}

// EvalErrorData is a JSON-serializable error for the frontend.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// SceneResult is returned when a scene script is loaded.
type SceneResult struct {
	Placements []placement.Placement `json:"placements"`
	Meshes     []MeshData            `json:"meshes"`
	Errors     []EvalErrorData       `json:"errors"`
	Warnings   []EvalErrorData       `json:"warnings"`
}

// FailureData is a persistence failure reported to the frontend.
type FailureData struct {
	Op      string `json:"op"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

// NewApp creates an App whose commits go to ps.
func NewApp(cfg config.Config, ps persist.Store) *App {
	k := sdfx.New(cfg.Render.MeshCells)
	a := &App{
		cfg:     cfg,
		script:  script.NewEngine(),
		kernel:  k,
		persist: ps,
		editor:  editor.New(context.Background(), cfg, k, ps),
	}
	a.editor.TransformCommitted.AddListener(func(_ context.Context, c editor.Committed) {
		a.emit(eventCommitted, c)
	})
	a.editor.Failed().AddListener(func(_ context.Context, f commit.Failure) {
		a.emit(eventFailed, failureData(f))
	})
	return a
}

// startup is called by Wails on app startup. The context is saved
// so events can be emitted to the frontend.
func (a *App) startup(ctx context.Context) {
	a.ctx.Store(&ctx)
}

// shutdown is called by Wails when the window closes.
func (a *App) shutdown(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.editor.Close(); err != nil {
		slog.Error("Closing editor", "error", err)
	}
	if c, ok := a.persist.(io.Closer); ok {
		if err := c.Close(); err != nil {
			slog.Error("Closing persistence", "error", err)
		}
	}
}

// emit forwards an event to the frontend once Wails is running. It may run
// while mu is held, so it never takes it.
func (a *App) emit(name string, data any) {
	ctx := a.ctx.Load()
	if ctx == nil {
		return
	}
	runtime.EventsEmit(*ctx, name, data)
}

func (a *App) context() context.Context {
	if ctx := a.ctx.Load(); ctx != nil {
		return *ctx
	}
	return context.Background()
}

// LoadScene evaluates a scene script and makes it the current scene.
func (a *App) LoadScene(source string) SceneResult {
	result := SceneResult{
		Placements: []placement.Placement{},
		Meshes:     []MeshData{},
		Errors:     []EvalErrorData{},
		Warnings:   []EvalErrorData{},
	}

	// Step 1: Evaluate the script into a layout.
	layout, evalErrs, err := a.script.Evaluate(source)
	if err != nil {
		slog.Error("Scene evaluation failed", "error", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		return result
	}

	// Step 2: Validate. Errors stop the load; warnings are passed along.
	v := layout.Validate(a.cfg.FootprintResolver())
	for _, w := range v.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{Message: w.Error()})
	}
	if !v.OK() {
		for _, e := range v.Errors {
			result.Errors = append(result.Errors, EvalErrorData{Message: e.Error()})
		}
		return result
	}

	// Step 3: Let persistence merge the layout with what it already holds.
	if s, ok := a.persist.(Seeder); ok {
		stored, err := s.Seed(a.context(), parentsFirst(layout.Placements)...)
		if err != nil {
			result.Errors = append(result.Errors, EvalErrorData{Message: "seeding scene: " + err.Error()})
			return result
		}
		layout.Placements = stored
	}
	store, err := layout.Store()
	if err != nil {
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}

	// Step 4: Hand the scene to the editor and render it.
	a.mu.Lock()
	defer a.mu.Unlock()
	a.editor.Load(store)
	if layout.Venue != nil {
		a.editor.SetVenue(layout.Venue.Box(), layout.Venue.Margin)
	}
	meshes, err := a.meshes()
	if err != nil {
		result.Errors = append(result.Errors, EvalErrorData{Message: "tessellation failed: " + err.Error()})
		return result
	}
	result.Meshes = meshes
	result.Placements = a.placements()
	return result
}

// Meshes returns a render snapshot of the current scene.
func (a *App) Meshes() ([]MeshData, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.meshes()
}

func (a *App) meshes() ([]MeshData, error) {
	ps := a.editor.Store().All()
	meshes, err := tessellate.Tessellate(a.context(), ps, a.editor.Shaper())
	if err != nil {
		return nil, err
	}
	fr := a.cfg.FootprintResolver()
	out := make([]MeshData, 0, len(meshes))
	for i, m := range meshes {
		out = append(out, MeshData{
			Vertices:    m.Vertices,
			Normals:     m.Normals,
			Indices:     m.Indices,
			PlacementID: m.PlacementID,
			Color:       colorFor(fr, ps[i], i),
		})
	}
	selected := a.editor.Selection()
	for i := range out {
		if lo.Contains(selected, placement.ID(out[i].PlacementID)) {
			out[i].Color = selectedColor
		}
	}
	return out, nil
}

// Placements returns the current transforms and lock state.
func (a *App) Placements() []placement.Placement {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.placements()
}

func (a *App) placements() []placement.Placement {
	ps, err := a.editor.Store().Snapshot()
	if err != nil {
		slog.Error("Snapshot failed", "error", err)
		return []placement.Placement{}
	}
	return ps
}

// Selection returns the selected placement ids.
func (a *App) Selection() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return lo.Map(a.editor.Selection(), func(id placement.ID, _ int) string { return id.String() })
}

// SetCamera updates the camera used for picking.
func (a *App) SetCamera(c geom.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.editor.SetCamera(c)
}

// PointerDown reports whether a drag started.
func (a *App) PointerDown(x, y float64, shift, rotate bool) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.editor.PointerDown(geom.Vec2{X: x, Y: y}, editor.Modifiers{Multi: shift, Rotate: rotate})
}

// PointerMove reports whether anything moved, in which case the frontend
// should refresh Placements.
func (a *App) PointerMove(x, y float64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.editor.PointerMove(geom.Vec2{X: x, Y: y})
}

func (a *App) PointerUp(x, y float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.editor.PointerUp(geom.Vec2{X: x, Y: y})
}

func (a *App) PointerCancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.editor.PointerCancel()
}

// Remove deletes a placement. scope is "single", "with-children" or "group".
func (a *App) Remove(id, scope string) error {
	sc, err := persist.ParseScope(scope)
	if err != nil {
		return fmt.Errorf("remove %s: %w", id, err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.editor.Remove(placement.ID(id), sc)
	return nil
}

func (a *App) Duplicate(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.editor.Duplicate(placement.ID(id))
}

func (a *App) SetLocked(id string, locked bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.editor.SetLocked(placement.ID(id), locked)
}

// Tick applies finished persistence calls. The frontend calls it once per
// frame.
func (a *App) Tick() []FailureData {
	a.mu.Lock()
	defer a.mu.Unlock()
	return lo.Map(a.editor.Tick(), func(f commit.Failure, _ int) FailureData { return failureData(f) })
}

func failureData(f commit.Failure) FailureData {
	return FailureData{Op: string(f.Op), ID: f.ID.String(), Message: f.Err.Error()}
}

func colorFor(fr *placement.FootprintResolver, p *placement.Placement, i int) string {
	if c, ok := categoryColors[fr.Category(p.Meta.Name)]; ok {
		return c
	}
	return colorPalette[i%len(colorPalette)]
}

// parentsFirst orders ps so every parent precedes its children.
func parentsFirst(ps []placement.Placement) []placement.Placement {
	roots, children := lo.FilterReject(ps, func(p placement.Placement, _ int) bool { return !p.HasParent() })
	return append(roots, children...)
}
