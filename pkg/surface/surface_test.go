package surface_test

import (
	"context"
	"testing"

	"github.com/chazu/stagehand/pkg/geom"
	"github.com/chazu/stagehand/pkg/placement"
	"github.com/chazu/stagehand/pkg/spatial"
	"github.com/chazu/stagehand/pkg/surface"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeQuery returns a fixed list of hits.
type fakeQuery []spatial.Hit

func (q fakeQuery) CastRay(_, _ geom.Vec3) []spatial.Hit { return q }

func hitOn(id placement.ID, dist, top float64) spatial.Hit {
	return spatial.Hit{
		Kind:     spatial.KindPlacement,
		ID:       id,
		Distance: dist,
		Bounds:   func() sdf.Box3 { return sdf.Box3{Max: v3.Vec{Y: top}} },
	}
}

func ground(dist float64) spatial.Hit {
	return spatial.Hit{Kind: spatial.KindGround, Distance: dist, Bounds: func() sdf.Box3 { return sdf.Box3{} }}
}

var ray = geom.NewRay(geom.Vec3{Y: 5}, geom.Vec3{Y: -1})

func newStore(t *testing.T, ps ...*placement.Placement) *placement.Store {
	t.Helper()
	s := placement.NewStore()
	for _, p := range ps {
		require.NoError(t, s.Add(p))
	}
	return s
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	candle := &placement.Placement{ID: "candle", Meta: placement.Metadata{Name: "Candle", Radius: 0.1}}
	chair := &placement.Placement{ID: "chair", Meta: placement.Metadata{Name: "Chair"}}
	tbl := &placement.Placement{ID: "table", Meta: placement.Metadata{Name: "Table"}}
	vase := &placement.Placement{ID: "vase", ParentID: "table", Meta: placement.Metadata{Name: "Vase"}}
	bowl := &placement.Placement{ID: "bowl", Meta: placement.Metadata{Name: "Bowl"}}
	napkin := &placement.Placement{ID: "napkin", ParentID: "bowl", Meta: placement.Metadata{Name: "Napkin"}}
	store := newStore(t, tbl, candle, chair, vase, bowl, napkin)
	r := surface.New(placement.NewFootprintResolver())

	tests := []struct {
		name   string
		moving *placement.Placement
		hits   fakeQuery
		want   surface.Result
	}{
		{"stackable over table attaches", candle, fakeQuery{hitOn("candle", 4, 0.1), hitOn("table", 4.25, 0.75), ground(5)}, surface.Result{Elevation: 0.75, ParentID: "table"}},
		{"ground only rests on floor", candle, fakeQuery{ground(5)}, surface.Floor},
		{"empty space rests on floor", candle, fakeQuery{}, surface.Floor},
		{"stacked candidate is passed over", candle, fakeQuery{hitOn("vase", 4, 1.0), hitOn("table", 4.25, 0.75)}, surface.Result{Elevation: 0.75, ParentID: "table"}},
		{"invalid ids are passed over", candle, fakeQuery{hitOn("", 3, 2), hitOn("ghost", 3.5, 2), hitOn("table", 4.25, 0.75)}, surface.Result{Elevation: 0.75, ParentID: "table"}},
		{"parent with children stays on floor", bowl, fakeQuery{hitOn("table", 4.25, 0.75)}, surface.Floor},
		{"non-stackable never attaches", chair, fakeQuery{hitOn("table", 4.25, 0.75), ground(5)}, surface.Floor},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := r.Resolve(ctx, ray, tc.moving, tc.hits, store, nil)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolveSkipsObjectsMovingAlong(t *testing.T) {
	ctx := context.Background()
	candle := &placement.Placement{ID: "candle", Meta: placement.Metadata{Name: "Candle"}}
	near := &placement.Placement{ID: "near", Meta: placement.Metadata{Name: "Table"}}
	far := &placement.Placement{ID: "far", Meta: placement.Metadata{Name: "Table"}}
	store := newStore(t, near, far, candle)
	r := surface.New(placement.NewFootprintResolver())
	moving := func(id placement.ID) bool { return id == "near" }

	got := r.Resolve(ctx, ray, candle, fakeQuery{hitOn("near", 4, 0.75), hitOn("far", 6, 0.8)}, store, moving)
	assert.Equal(t, surface.Result{Elevation: 0.8, ParentID: "far"}, got)

	got = r.Resolve(ctx, ray, candle, fakeQuery{hitOn("near", 4, 0.75), ground(5)}, store, moving)
	assert.Equal(t, surface.Floor, got)
}

func TestResolveEmitsDiagnostics(t *testing.T) {
	ctx := context.Background()
	candle := &placement.Placement{ID: "candle", Meta: placement.Metadata{Name: "Candle"}}
	tbl := &placement.Placement{ID: "table", Meta: placement.Metadata{Name: "Table"}}
	store := newStore(t, tbl, candle)
	r := surface.New(placement.NewFootprintResolver())

	var got []surface.Diagnostic
	r.Diagnostics.AddListener(func(_ context.Context, d surface.Diagnostic) {
		got = append(got, d)
	})

	r.Resolve(ctx, ray, candle, fakeQuery{hitOn("ghost", 3, 1), hitOn("table", 4.25, 0.75)}, store, nil)

	require.Len(t, got, 2)
	assert.Equal(t, surface.OutcomeInvalid, got[0].Outcome)
	assert.Equal(t, "unknown id", got[0].Reason)
	assert.Equal(t, surface.OutcomeAttached, got[1].Outcome)
	assert.Equal(t, placement.ID("table"), got[1].CandidateID)
	assert.Equal(t, 0.75, got[1].Elevation)
}

func TestResolveAgainstIndex(t *testing.T) {
	// The resolver only sees hits; here they come from a real index with the
	// moving candle itself sitting under the pointer.
	ctx := context.Background()
	tbl := &placement.Placement{
		ID:   "table",
		Meta: placement.Metadata{Name: "Table", Dimensions: &placement.Dimensions{Width: 1.2, Depth: 0.8, Height: 0.75}},
	}
	candle := &placement.Placement{ID: "candle", Position: geom.Vec3{Y: 0.75}, Meta: placement.Metadata{Name: "Candle", Radius: 0.1}}
	store := newStore(t, tbl, candle)
	ix := spatial.NewIndex(newShaper())
	ix.Rebuild(store.All())

	got := surface.New(placement.NewFootprintResolver()).Resolve(ctx, ray, candle, ix, store, nil)
	assert.Equal(t, placement.ID("table"), got.ParentID)
	assert.InDelta(t, 0.75, got.Elevation, 1e-9)
}
