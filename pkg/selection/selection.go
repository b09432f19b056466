// Package selection holds the one authoritative selection set and the
// screen-space box tracker used for rubber-band selection.
package selection

import (
	"log/slog"
	"slices"

	"github.com/ErikKalkoken/go-set"
	"github.com/chazu/stagehand/pkg/geom"
	"github.com/chazu/stagehand/pkg/placement"
)

// Manager is the selection set. It is owned by the interaction loop and is
// passed explicitly to anything that needs to read it.
type Manager struct {
	ids set.Set[placement.ID]
}

// New returns an empty selection.
func New() *Manager {
	return &Manager{ids: set.Of[placement.ID]()}
}

// Click applies a click on id: replace the selection without the modifier,
// toggle membership with it.
func (m *Manager) Click(id placement.ID, multi bool) {
	if id.IsZero() {
		return
	}
	if !multi {
		m.ids = set.Of(id)
		return
	}
	if m.ids.Contains(id) {
		m.ids.Delete(id)
	} else {
		m.ids.Add(id)
	}
}

// Add unions ids into the selection.
func (m *Manager) Add(ids ...placement.ID) {
	for _, id := range ids {
		if !id.IsZero() {
			m.ids.Add(id)
		}
	}
}

// Remove drops ids from the selection, e.g. after they were deleted.
func (m *Manager) Remove(ids ...placement.ID) {
	for _, id := range ids {
		m.ids.Delete(id)
	}
}

// Clear empties the selection.
func (m *Manager) Clear() {
	m.ids = set.Of[placement.ID]()
}

// Contains reports whether id is selected.
func (m *Manager) Contains(id placement.ID) bool {
	return m.ids.Contains(id)
}

// Len returns the number of selected ids.
func (m *Manager) Len() int {
	return m.ids.Size()
}

// IsMulti reports whether more than one object is selected.
func (m *Manager) IsMulti() bool {
	return m.ids.Size() > 1
}

// IDs returns the selected ids in sorted order.
func (m *Manager) IDs() []placement.ID {
	return slices.Sorted(m.ids.All())
}

// Snapshot returns an independent copy of the selection.
func (m *Manager) Snapshot() set.Set[placement.ID] {
	return set.Collect(m.ids.All())
}

// Projector maps world points to screen points. geom.Camera implements it.
type Projector interface {
	Project(p geom.Vec3) (geom.Vec2, bool)
}

// SelectInRect adds every placement whose position projects inside rect and
// returns the ids that were newly added.
func (m *Manager) SelectInRect(rect geom.Rect, proj Projector, ps []*placement.Placement) []placement.ID {
	var added []placement.ID
	for _, p := range ps {
		s, ok := proj.Project(p.Position)
		if !ok || !rect.Contains(s) {
			continue
		}
		if !m.ids.Contains(p.ID) {
			m.ids.Add(p.ID)
			added = append(added, p.ID)
		}
	}
	if len(added) > 0 {
		slog.Debug("Box selection added placements", "added", added, "total", m.ids.Size())
	}
	return added
}

// BoxTracker follows a screen-space rectangle between pointer-down and
// pointer-up.
type BoxTracker struct {
	start, end geom.Vec2
	active     bool
}

// Begin starts tracking at p.
func (b *BoxTracker) Begin(p geom.Vec2) {
	b.start, b.end, b.active = p, p, true
}

// Update moves the free corner to p. It is a no-op when not tracking.
func (b *BoxTracker) Update(p geom.Vec2) {
	if b.active {
		b.end = p
	}
}

// Active reports whether a rectangle is being tracked.
func (b *BoxTracker) Active() bool {
	return b.active
}

// Rect returns the current rectangle.
func (b *BoxTracker) Rect() geom.Rect {
	return geom.Rect{A: b.start, B: b.end}
}

// End stops tracking and returns the final rectangle. ok is false when no
// rectangle was being tracked.
func (b *BoxTracker) End() (rect geom.Rect, ok bool) {
	if !b.active {
		return geom.Rect{}, false
	}
	b.active = false
	return geom.Rect{A: b.start, B: b.end}, true
}

// Cancel stops tracking without producing a rectangle.
func (b *BoxTracker) Cancel() {
	b.active = false
}
