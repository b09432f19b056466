package session_test

import (
	"testing"

	"github.com/chazu/stagehand/pkg/geom"
	"github.com/chazu/stagehand/pkg/placement"
	"github.com/chazu/stagehand/pkg/selection"
	"github.com/chazu/stagehand/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-9

func vec(x, y, z float64) geom.Vec3 { return geom.Vec3{X: x, Y: y, Z: z} }

func ptr[T any](v T) *T { return &v }

func newStore(t *testing.T, ps ...*placement.Placement) *placement.Store {
	t.Helper()
	s := placement.NewStore()
	for _, p := range ps {
		require.NoError(t, s.Add(p))
	}
	return s
}

func selected(ids ...placement.ID) *selection.Manager {
	sel := selection.New()
	sel.Add(ids...)
	return sel
}

func TestBegin(t *testing.T) {
	a := &placement.Placement{ID: "a", Position: vec(1, 0, 1)}
	b := &placement.Placement{ID: "b", Position: vec(3, 0, 1)}
	locked := &placement.Placement{ID: "l", Locked: true}
	store := newStore(t, a, b, locked)

	t.Run("locked object never starts", func(t *testing.T) {
		m := session.NewManager()
		assert.Nil(t, m.Begin(locked, selected("l"), store))
		assert.False(t, m.Active())
	})
	t.Run("outside a multi-selection aborts", func(t *testing.T) {
		m := session.NewManager()
		c := &placement.Placement{ID: "c"}
		assert.Nil(t, m.Begin(c, selected("a", "b"), store))
		assert.False(t, m.Active())
	})
	t.Run("captures every member", func(t *testing.T) {
		m := session.NewManager()
		snap := m.Begin(a, selected("a", "b"), store)
		require.NotNil(t, snap)
		assert.Equal(t, map[placement.ID]geom.Vec3{"a": vec(1, 0, 1), "b": vec(3, 0, 1)}, snap)
		assert.True(t, m.IsMember("b"))
		assert.Equal(t, placement.ID("a"), m.Dragged())
		assert.Equal(t, []placement.ID{"a", "b"}, m.Affected())
	})
	t.Run("unselected object drags alone", func(t *testing.T) {
		m := session.NewManager()
		snap := m.Begin(b, selected("a"), store)
		assert.Equal(t, map[placement.ID]geom.Vec3{"b": vec(3, 0, 1)}, snap)
	})
	t.Run("snapshot is a copy", func(t *testing.T) {
		m := session.NewManager()
		snap := m.Begin(a, selected("a"), store)
		snap["a"] = vec(9, 9, 9)
		in, ok := m.Initial("a")
		require.True(t, ok)
		assert.Equal(t, vec(1, 0, 1), in.Position)
	})
}

// Every co-selected member moves by the dragged object's displacement.
func TestRigidGroupTranslation(t *testing.T) {
	a := &placement.Placement{ID: "a", Position: vec(0, 0, 0)}
	b := &placement.Placement{ID: "b", Position: vec(1, 0, 2)}
	c := &placement.Placement{ID: "c", Position: vec(-1, 0, 0.5)}
	store := newStore(t, a, b, c)
	sel := selected("a", "b", "c")
	m := session.NewManager()
	require.NotNil(t, m.Begin(a, sel, store))

	targets := m.Targets(store)
	assert.Equal(t, []placement.ID{"b", "c"}, targets)

	// Two moves; each recomputes from the captured start, not the last frame.
	for _, step := range []geom.Vec3{vec(1, 0, 0.5), vec(2, 0, 1)} {
		a.Position = step
		d := step
		changed := m.ApplyDelta(session.Delta{Translation: &d}, targets, sel, store)
		assert.Equal(t, []placement.ID{"b", "c"}, changed)
	}
	assert.True(t, geom.ApproxEqual(vec(3, 0, 3), b.Position, tol), "b = %v", b.Position)
	assert.True(t, geom.ApproxEqual(vec(1, 0, 1.5), c.Position, tol), "c = %v", c.Position)
}

func TestDeselectedMemberIsSkipped(t *testing.T) {
	a := &placement.Placement{ID: "a"}
	b := &placement.Placement{ID: "b", Position: vec(1, 0, 0)}
	store := newStore(t, a, b)
	sel := selected("a", "b")
	m := session.NewManager()
	require.NotNil(t, m.Begin(a, sel, store))
	targets := m.Targets(store)

	sel.Remove("b")
	changed := m.ApplyDelta(session.Delta{Translation: ptr(vec(5, 0, 0))}, targets, sel, store)

	assert.Empty(t, changed)
	assert.Equal(t, vec(1, 0, 0), b.Position)
}

func TestLockedMemberIsSkipped(t *testing.T) {
	a := &placement.Placement{ID: "a"}
	b := &placement.Placement{ID: "b", Position: vec(1, 0, 0), Locked: true}
	c := &placement.Placement{ID: "c", Position: vec(-1, 0, 0)}
	store := newStore(t, a, b, c)
	sel := selected("a", "b", "c")
	m := session.NewManager()
	require.NotNil(t, m.Begin(a, sel, store))

	changed := m.ApplyDelta(session.Delta{Translation: ptr(vec(0, 0, 2))}, m.Targets(store), sel, store)

	assert.Equal(t, []placement.ID{"c"}, changed)
	assert.Equal(t, vec(1, 0, 0), b.Position)
	assert.Equal(t, vec(-1, 0, 2), c.Position)
}

func TestLockedChildStillFollows(t *testing.T) {
	p := &placement.Placement{ID: "p", Position: vec(1, 0, 1)}
	c := &placement.Placement{ID: "c", Position: vec(1, 0.75, 1), ParentID: "p", Locked: true}
	store := newStore(t, p, c)
	sel := selected("p")
	m := session.NewManager()
	require.NotNil(t, m.Begin(p, sel, store))

	p.Position = vec(2, 0, 1)
	changed := m.ApplyDelta(session.Delta{Translation: ptr(vec(1, 0, 0))}, m.Targets(store), sel, store)

	assert.Equal(t, []placement.ID{"c"}, changed)
	assert.True(t, geom.ApproxEqual(vec(2, 0.75, 1), c.Position, tol), "c = %v", c.Position)
}

func TestFollowers(t *testing.T) {
	a := &placement.Placement{ID: "a"}
	b := &placement.Placement{ID: "b", Position: vec(1, 0, 0)}
	locked := &placement.Placement{ID: "l", Position: vec(2, 0, 0), Locked: true}
	d := &placement.Placement{ID: "d", Position: vec(3, 0, 0)}
	child := &placement.Placement{ID: "c", Position: vec(1, 0.75, 0), ParentID: "b"}
	out := &placement.Placement{ID: "x", Position: vec(4, 0, 0)}
	store := newStore(t, a, b, locked, d, child, out)
	sel := selected("a", "b", "l", "d", "c")
	m := session.NewManager()
	require.NotNil(t, m.Begin(a, sel, store))
	sel.Remove("d")

	assert.False(t, m.Follows("a", sel, store), "the dragged object is not a follower")
	assert.True(t, m.Follows("b", sel, store))
	assert.False(t, m.Follows("l", sel, store), "locked")
	assert.False(t, m.Follows("d", sel, store), "deselected")
	assert.False(t, m.Follows("c", sel, store), "rides on a member")
	assert.False(t, m.Follows("x", sel, store), "never captured")

	ids := make([]placement.ID, 0)
	for _, p := range m.Followers(sel, store) {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []placement.ID{"b"}, ids)

	m.End()
	assert.False(t, m.Follows("b", sel, store))
}

func TestCoSelectedRotateInPlace(t *testing.T) {
	a := &placement.Placement{ID: "a", Rotation: 10}
	b := &placement.Placement{ID: "b", Position: vec(2, 0, 0), Rotation: 300}
	store := newStore(t, a, b)
	sel := selected("a", "b")
	m := session.NewManager()
	require.NotNil(t, m.Begin(a, sel, store))

	m.ApplyDelta(session.Delta{Rotation: ptr(90.0)}, m.Targets(store), sel, store)

	assert.InDelta(t, 30, b.Rotation, tol)
	assert.Equal(t, vec(2, 0, 0), b.Position)
}

func TestChildFollowsParentTranslation(t *testing.T) {
	p := &placement.Placement{ID: "p", Position: vec(1, 0, 1)}
	c := &placement.Placement{ID: "c", Position: vec(1.2, 0.75, 0.9), ParentID: "p"}
	store := newStore(t, p, c)
	sel := selected("p")
	m := session.NewManager()
	require.NotNil(t, m.Begin(p, sel, store))

	targets := m.Targets(store)
	assert.Equal(t, []placement.ID{"c"}, targets)

	// The parent was clamped, so its actual displacement is smaller than the
	// pointer's.
	p.Position = vec(1.5, 0, 1)
	changed := m.ApplyDelta(session.Delta{Translation: ptr(vec(3, 0, 0))}, targets, sel, store)

	assert.Equal(t, []placement.ID{"c"}, changed)
	assert.True(t, geom.ApproxEqual(vec(1.7, 0.75, 0.9), c.Position, tol), "c = %v", c.Position)
	in, ok := m.Initial("c")
	require.True(t, ok)
	assert.Equal(t, placement.ID("p"), in.ParentID)
}

func TestChildOrbitsParentRotation(t *testing.T) {
	p := &placement.Placement{ID: "p", Position: vec(2, 0, 2)}
	c := &placement.Placement{ID: "c", Position: vec(3, 0.75, 2), Rotation: 45, ParentID: "p"}
	store := newStore(t, p, c)
	sel := selected("p")
	m := session.NewManager()
	require.NotNil(t, m.Begin(p, sel, store))
	m.SetState(session.Rotating{StartPointerX: 100, StartRotation: 0})

	_, captured := m.Initial("c")
	assert.False(t, captured, "children are captured lazily")

	p.Rotation = 90
	m.ApplyDelta(session.Delta{Rotation: ptr(90.0)}, m.Targets(store), sel, store)

	offset := c.Position.Sub(p.Position)
	assert.True(t, geom.ApproxEqual(vec(0, 0.75, 1), offset, 1e-9), "offset = %v", offset)
	assert.Equal(t, 45.0, c.Rotation)
}

func TestMissingSessionSkipsPropagation(t *testing.T) {
	b := &placement.Placement{ID: "b", Position: vec(1, 0, 0)}
	store := newStore(t, b)
	m := session.NewManager()

	changed := m.ApplyDelta(session.Delta{Translation: ptr(vec(1, 0, 0))}, []placement.ID{"b"}, selected("b"), store)

	assert.Nil(t, changed)
	assert.Equal(t, vec(1, 0, 0), b.Position)
	assert.Nil(t, m.Targets(store))
}

func TestEndClearsEverything(t *testing.T) {
	a := &placement.Placement{ID: "a"}
	store := newStore(t, a)
	m := session.NewManager()
	require.NotNil(t, m.Begin(a, selected("a"), store))
	m.SetState(session.Translating{PlaneY: 0})

	m.End()

	assert.False(t, m.Active())
	assert.Equal(t, session.Idle{}, m.State())
	assert.Empty(t, m.Affected())
	assert.Empty(t, m.Snapshot())
	assert.False(t, m.IsMember("a"))
	_, ok := m.Initial("a")
	assert.False(t, ok)
}

func TestSetStateIgnoredWhenIdle(t *testing.T) {
	m := session.NewManager()
	m.SetState(session.Translating{PlaneY: 1})
	assert.Equal(t, session.Idle{}, m.State())
}
