package editor_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chazu/stagehand/pkg/config"
	"github.com/chazu/stagehand/pkg/editor"
	"github.com/chazu/stagehand/pkg/geom"
	"github.com/chazu/stagehand/pkg/kernel/sdfx"
	"github.com/chazu/stagehand/pkg/persist"
	"github.com/chazu/stagehand/pkg/placement"
)

// fakeStore records persistence calls and returns canned results.
type fakeStore struct {
	mu      sync.Mutex
	updates map[placement.ID][]persist.Patch
	err     error
	removed []placement.ID
	created []placement.Placement
}

func newFakeStore() *fakeStore {
	return &fakeStore{updates: make(map[placement.ID][]persist.Patch)}
}

func (f *fakeStore) UpdatePlacement(_ context.Context, id placement.ID, patch persist.Patch) (*placement.Placement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates[id] = append(f.updates[id], patch)
	if f.err != nil {
		return nil, f.err
	}
	p := &placement.Placement{ID: id}
	patch.Apply(p)
	return p, nil
}

func (f *fakeStore) RemovePlacement(_ context.Context, id placement.ID, _ persist.Scope) ([]placement.ID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.removed != nil {
		return f.removed, nil
	}
	return []placement.ID{id}, nil
}

func (f *fakeStore) DuplicatePlacement(_ context.Context, _ placement.ID) ([]placement.Placement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created, f.err
}

func (f *fakeStore) SetLocked(_ context.Context, id placement.ID, locked bool) (*placement.Placement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &placement.Placement{ID: id, Locked: locked}, nil
}

func (f *fakeStore) patches(id placement.ID) []persist.Patch {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]persist.Patch(nil), f.updates[id]...)
}

func testCamera() geom.Camera {
	return geom.NewCamera(geom.Vec3{Y: 10, Z: 10}, geom.Vec3{}, 50, 1280, 720)
}

// newEditor loads ps into a fresh editor backed by ps.
func newEditor(t *testing.T, cfg config.Config, ps persist.Store, placements ...*placement.Placement) *editor.Editor {
	t.Helper()
	e := editor.New(context.Background(), cfg, sdfx.New(16), ps)
	t.Cleanup(func() { e.Close() })
	s := placement.NewStore()
	for _, p := range placements {
		require.NoError(t, s.Add(p))
	}
	e.Load(s)
	e.SetCamera(testCamera())
	return e
}

// at returns the screen point over a world point.
func at(t *testing.T, e *editor.Editor, w geom.Vec3) geom.Vec2 {
	t.Helper()
	s, ok := e.Camera().Project(w)
	require.True(t, ok, "point %v is behind the camera", w)
	return s
}

// drag runs a full translate gesture on id, from its position to target on
// its drag plane.
func drag(t *testing.T, e *editor.Editor, id placement.ID, target geom.Vec3) {
	t.Helper()
	p := e.Store().Get(id)
	require.NotNil(t, p)
	require.True(t, e.Begin(id, at(t, e, p.Position), false), "gesture on %s refused", id)
	e.PointerMove(at(t, e, target))
	e.PointerUp(at(t, e, target))
}

func chair(id string, x, z float64) *placement.Placement {
	return &placement.Placement{
		ID:       placement.ID(id),
		Position: geom.Vec3{X: x, Z: z},
		Meta:     placement.Metadata{Name: "Chair", Radius: 0.3},
	}
}

func table(id string, x, z float64) *placement.Placement {
	return &placement.Placement{
		ID:       placement.ID(id),
		Position: geom.Vec3{X: x, Z: z},
		Meta: placement.Metadata{
			Name:       "Table",
			Dimensions: &placement.Dimensions{Width: 1, Depth: 1, Height: 0.75},
		},
	}
}
