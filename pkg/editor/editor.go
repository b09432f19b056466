// Package editor runs the interactive placement loop. It turns pointer input
// into selection changes and drag gestures, pushes every candidate transform
// through snap, surface attachment, collision and bounds, fans accepted
// motion out to co-selected objects and children, and commits the result.
//
// An Editor is owned by a single goroutine. Persistence calls run on the
// dispatcher's workers; their results are folded back in by Tick.
package editor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/deadsy/sdfx/sdf"
	"github.com/maniartech/signals"
	"github.com/samber/lo"

	"github.com/chazu/stagehand/pkg/collision"
	"github.com/chazu/stagehand/pkg/commit"
	"github.com/chazu/stagehand/pkg/config"
	"github.com/chazu/stagehand/pkg/constrain"
	"github.com/chazu/stagehand/pkg/geom"
	"github.com/chazu/stagehand/pkg/kernel"
	"github.com/chazu/stagehand/pkg/persist"
	"github.com/chazu/stagehand/pkg/placement"
	"github.com/chazu/stagehand/pkg/selection"
	"github.com/chazu/stagehand/pkg/session"
	"github.com/chazu/stagehand/pkg/spatial"
	"github.com/chazu/stagehand/pkg/surface"
)

// Committed is emitted once per object at the end of every gesture that
// touched it. Patch carries the canonical position and rotation, and a parent
// change only when the parent changed.
type Committed struct {
	ID    placement.ID
	Patch persist.Patch
}

// Modifiers are the pointer modifiers held when a gesture starts.
type Modifiers struct {
	Multi  bool // shift: toggle selection, or box select over empty space
	Rotate bool // turn the object instead of moving it
}

// Editor is the interactive placement engine.
type Editor struct {
	ctx context.Context

	store     *placement.Store
	footprint *placement.FootprintResolver
	shaper    spatial.Shaper
	index     *spatial.Index
	surface   *surface.Resolver
	collision *collision.Resolver
	snap      constrain.Snap
	bounds    *constrain.Bounds
	margin    float64
	degPerPx  float64

	selection *selection.Manager
	box       selection.BoxTracker
	session   *session.Manager
	pipeline  commit.Pipeline
	persist   *commit.Dispatcher
	camera    geom.Camera

	// TransformCommitted fires for every object a finished gesture touched.
	TransformCommitted signals.Signal[Committed]
}

// New builds an editor from cfg. k shapes placements for picking and ps
// receives every commit.
func New(ctx context.Context, cfg config.Config, k kernel.Kernel, ps persist.Store) *Editor {
	fr := cfg.FootprintResolver()
	shaper := spatial.Shaper{Kernel: k, Footprint: fr, DefaultHeight: cfg.Placement.DefaultHeight}

	cr := collision.New(fr)
	cr.Clearance = cfg.Placement.Clearance
	cr.MinThreshold = cfg.Placement.MinThreshold
	cr.FloorEpsilon = cfg.Placement.FloorEpsilon

	return &Editor{
		ctx:                ctx,
		store:              placement.NewStore(),
		footprint:          fr,
		shaper:             shaper,
		index:              spatial.NewIndex(shaper),
		surface:            surface.New(fr),
		collision:          cr,
		snap:               constrain.Snap{Increment: cfg.Snap.Increment},
		margin:             cfg.Venue.Margin,
		degPerPx:           cfg.Rotate.DegreesPerPixel,
		selection:          selection.New(),
		session:            session.NewManager(),
		pipeline:           commit.NewPipeline(),
		persist:            commit.NewDispatcher(ctx, ps, cfg.Persistence.Workers),
		camera:             geom.NewCamera(geom.Vec3{Y: 8, Z: 10}, geom.Vec3{}, 50, 1280, 720),
		TransformCommitted: signals.NewSync[Committed](),
	}
}

// Load replaces the scene with the placements in s. The venue is cleared
// until the next SetVenue.
func (e *Editor) Load(s *placement.Store) {
	e.session.End()
	e.box.Cancel()
	e.selection.Clear()
	e.bounds = nil
	e.store = s
	e.index.Rebuild(s.All())
	slog.Info("Scene loaded", "placements", s.Len())
}

// SetVenue sets the room extent. The interactive volume is the room shrunk by
// margin on each side; a negative margin uses the configured one.
func (e *Editor) SetVenue(room sdf.Box3, margin float64) {
	if margin < 0 {
		margin = e.margin
	}
	b := constrain.FromEnvironment(room, margin)
	e.bounds = &b
	e.index.SetGround(room)
}

// Bounds returns the interactive volume, if a venue is set.
func (e *Editor) Bounds() (constrain.Bounds, bool) {
	if e.bounds == nil {
		return constrain.Bounds{}, false
	}
	return *e.bounds, true
}

// SetCamera sets the camera used for picking and box selection.
func (e *Editor) SetCamera(c geom.Camera) {
	e.camera = c
}

func (e *Editor) Camera() geom.Camera {
	return e.camera
}

// Store returns the live placement store.
func (e *Editor) Store() *placement.Store {
	return e.store
}

// Index returns the spatial index used for picking.
func (e *Editor) Index() *spatial.Index {
	return e.index
}

// Shaper returns the shaper placements are built with.
func (e *Editor) Shaper() spatial.Shaper {
	return e.shaper
}

// Surface returns the surface resolver, for subscribing to its diagnostics.
func (e *Editor) Surface() *surface.Resolver {
	return e.surface
}

// Failed returns the signal persistence failures are reported on.
func (e *Editor) Failed() signals.Signal[commit.Failure] {
	return e.persist.Failed
}

// Selection returns the selected ids in sorted order.
func (e *Editor) Selection() []placement.ID {
	return e.selection.IDs()
}

// Select adds ids to the selection. A gesture in progress keeps its frozen
// membership.
func (e *Editor) Select(ids ...placement.ID) {
	e.selection.Add(ids...)
}

// Deselect drops ids from the selection. Members dropped mid-gesture stop
// following the dragged object.
func (e *Editor) Deselect(ids ...placement.ID) {
	e.selection.Remove(ids...)
}

// Dragging reports whether a gesture is in progress.
func (e *Editor) Dragging() bool {
	return e.session.Active()
}

// BoxSelecting reports whether a selection rectangle is being tracked, and
// returns it.
func (e *Editor) BoxSelecting() (geom.Rect, bool) {
	return e.box.Rect(), e.box.Active()
}

// Pick returns the nearest placement under a screen point.
func (e *Editor) Pick(screen geom.Vec2) (placement.ID, bool) {
	ray := e.camera.ScreenToRay(screen)
	for _, h := range e.index.CastRay(ray.Origin, ray.Direction) {
		if h.Kind == spatial.KindPlacement {
			return h.ID, true
		}
	}
	return placement.ZeroID, false
}

// Close stops the persistence workers after queued calls finish.
func (e *Editor) Close() error {
	if err := e.persist.Close(); err != nil {
		return fmt.Errorf("close editor: %w", err)
	}
	return nil
}

// neighbours returns the placements whose footprints could reach candidate,
// excluding objects moving with the gesture.
func (e *Editor) neighbours(candidate geom.Vec3, radius float64) []*placement.Placement {
	return lo.FilterMap(e.index.Nearby(candidate, radius), func(id placement.ID, _ int) (*placement.Placement, bool) {
		p := e.store.Get(id)
		return p, p != nil && !e.follows(id)
	})
}

// follows reports whether id is a co-selected member moving with the
// dragged object.
func (e *Editor) follows(id placement.ID) bool {
	return e.session.Follows(id, e.selection, e.store)
}
