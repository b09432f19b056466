// Package session owns the lifetime of one pointer gesture: the frozen
// selection, the per-object starting transforms, and the propagation of the
// dragged object's motion to co-selected objects and to children.
//
// Nothing outlives a gesture. End drops every map so no state leaks into the
// next one.
package session

import (
	"log/slog"
	"maps"

	"github.com/ErikKalkoken/go-set"
	"github.com/chazu/stagehand/pkg/geom"
	"github.com/chazu/stagehand/pkg/placement"
)

// Lookup is the read access the manager needs to the placements.
type Lookup interface {
	Get(id placement.ID) *placement.Placement
	Children(id placement.ID) []*placement.Placement
}

// Selection is the live selection consulted while a gesture runs.
type Selection interface {
	Contains(id placement.ID) bool
	IsMulti() bool
	IDs() []placement.ID
}

// Initial is a placement's transform and parent when the gesture first
// touched it.
type Initial struct {
	Position geom.Vec3
	Rotation float64
	ParentID placement.ID
}

// Delta is the dragged object's total motion since the gesture began.
// A nil field means that kind of motion is not part of this update.
type Delta struct {
	Translation *geom.Vec3
	Rotation    *float64
}

// Manager tracks the active gesture.
type Manager struct {
	state   State
	dragged placement.ID
	members set.Set[placement.ID]
	arena   map[placement.ID]Initial
	order   []placement.ID // capture order
}

// NewManager returns an idle manager.
func NewManager() *Manager {
	return &Manager{state: Idle{}}
}

// Begin starts a gesture on dragged. It returns nil when the gesture must not
// start: the object is locked, or several objects are selected and dragged is
// not one of them. Otherwise it freezes the selection and captures every
// member's transform before any movement is processed, and returns a copy of
// the captured positions. An unselected object is dragged alone.
func (m *Manager) Begin(dragged *placement.Placement, sel Selection, lookup Lookup) map[placement.ID]geom.Vec3 {
	if dragged == nil || dragged.Locked {
		return nil
	}
	if sel.IsMulti() && !sel.Contains(dragged.ID) {
		return nil
	}
	m.reset()
	m.dragged = dragged.ID
	m.members = set.Of(dragged.ID)
	m.capture(dragged)
	var members []placement.ID
	if sel.Contains(dragged.ID) {
		members = sel.IDs()
	}
	for _, id := range members {
		p := lookup.Get(id)
		if p == nil || m.members.Contains(id) {
			continue
		}
		m.members.Add(id)
		m.capture(p)
	}

	out := make(map[placement.ID]geom.Vec3, len(m.arena))
	for id, in := range m.arena {
		out[id] = in.Position
	}
	slog.Debug("Drag session started", "dragged", dragged.ID, "members", m.members.Size())
	return out
}

// Active reports whether a gesture is in progress.
func (m *Manager) Active() bool {
	return !m.dragged.IsZero()
}

// Dragged returns the id under direct manipulation.
func (m *Manager) Dragged() placement.ID {
	return m.dragged
}

// State returns the current gesture phase.
func (m *Manager) State() State {
	return m.state
}

// SetState moves an active gesture into a phase. It is ignored when idle.
func (m *Manager) SetState(s State) {
	if !m.Active() {
		slog.Warn("Ignoring state change without a drag session", "state", s)
		return
	}
	m.state = s
}

// IsMember reports whether id was part of the selection frozen at Begin.
func (m *Manager) IsMember(id placement.ID) bool {
	return m.Active() && m.members.Contains(id)
}

// Initial returns the captured starting transform of id.
func (m *Manager) Initial(id placement.ID) (Initial, bool) {
	in, ok := m.arena[id]
	return in, ok
}

// Affected returns every id the gesture captured, dragged first.
func (m *Manager) Affected() []placement.ID {
	return append([]placement.ID(nil), m.order...)
}

// Targets returns the ids that follow the dragged object: the other frozen
// members, then the children of every moving object that is not itself
// stacked.
func (m *Manager) Targets(lookup Lookup) []placement.ID {
	if !m.Active() {
		return nil
	}
	var out []placement.ID
	seen := set.Of(m.dragged)
	movers := []placement.ID{m.dragged}
	for _, id := range m.order {
		if id != m.dragged && m.members.Contains(id) {
			out = append(out, id)
			seen.Add(id)
			movers = append(movers, id)
		}
	}
	for _, id := range movers {
		p := lookup.Get(id)
		if p == nil || p.HasParent() {
			continue
		}
		for _, c := range lookup.Children(id) {
			if !seen.Contains(c.ID) {
				out = append(out, c.ID)
				seen.Add(c.ID)
			}
		}
	}
	return out
}

// Follows reports whether id is a co-selected member that moves with the
// dragged object right now: frozen at Begin, still in the live selection,
// not locked and not resting on another member.
func (m *Manager) Follows(id placement.ID, live Selection, lookup Lookup) bool {
	if !m.IsMember(id) || id == m.dragged || !live.Contains(id) {
		return false
	}
	p := lookup.Get(id)
	return p != nil && !p.Locked && !m.isChildOfMover(p)
}

// Followers returns the co-selected members that move with the dragged
// object right now, in capture order.
func (m *Manager) Followers(live Selection, lookup Lookup) []*placement.Placement {
	var out []*placement.Placement
	for _, id := range m.order {
		if m.Follows(id, live, lookup) {
			out = append(out, lookup.Get(id))
		}
	}
	return out
}

// ApplyDelta propagates the dragged object's total motion to targets and
// returns the ids it changed.
//
// A target whose parent is moving in this gesture is a child: it keeps its
// original offset from the parent under translation, and orbits the parent
// by the parent's accumulated rotation without turning itself. Children
// always follow, locked or not, so they never hover where the parent was.
// Any other target is a co-selected member and is skipped if it has since
// left the live selection or is locked; it moves by the same displacement
// and turns in place by the same rotation.
func (m *Manager) ApplyDelta(d Delta, targets []placement.ID, live Selection, lookup Lookup) []placement.ID {
	if !m.Active() {
		slog.Warn("Skipping propagation without a drag session", "targets", targets)
		return nil
	}
	var members, children []*placement.Placement
	for _, id := range targets {
		p := lookup.Get(id)
		if p == nil {
			continue
		}
		if m.isChildOfMover(p) {
			children = append(children, p)
		} else {
			members = append(members, p)
		}
	}

	var changed []placement.ID
	for _, p := range members {
		if !live.Contains(p.ID) {
			slog.Debug("Skipping deselected member", "id", p.ID)
			continue
		}
		if p.Locked {
			slog.Debug("Skipping locked member", "id", p.ID)
			continue
		}
		in, ok := m.arena[p.ID]
		if !ok {
			slog.Warn("Skipping member with no captured transform", "id", p.ID)
			continue
		}
		if d.Translation != nil {
			p.Position = in.Position.Add(*d.Translation)
		}
		if d.Rotation != nil {
			p.Rotation = geom.NormalizeDegrees(in.Rotation + *d.Rotation)
		}
		changed = append(changed, p.ID)
	}
	// Children read their parent's applied transform, so they go last.
	for _, c := range children {
		parent := lookup.Get(c.ParentID)
		pin, ok := m.arena[c.ParentID]
		if !ok {
			slog.Warn("Skipping child of uncaptured parent", "id", c.ID, "parent", c.ParentID)
			continue
		}
		in := m.capture(c)
		offset := in.Position.Sub(pin.Position)
		if d.Rotation != nil {
			offset = geom.RotateXZ(offset, parent.Rotation-pin.Rotation)
		}
		c.Position = parent.Position.Add(offset)
		changed = append(changed, c.ID)
	}
	return changed
}

// End finishes the gesture and forgets everything about it.
func (m *Manager) End() {
	if m.Active() {
		slog.Debug("Drag session ended", "dragged", m.dragged, "affected", len(m.order))
	}
	m.reset()
}

func (m *Manager) reset() {
	m.state = Idle{}
	m.dragged = placement.ZeroID
	m.members = set.Set[placement.ID]{}
	m.arena = nil
	m.order = nil
}

// capture records p's transform the first time the gesture touches it and
// returns the recorded value.
func (m *Manager) capture(p *placement.Placement) Initial {
	if in, ok := m.arena[p.ID]; ok {
		return in
	}
	if m.arena == nil {
		m.arena = make(map[placement.ID]Initial)
	}
	in := Initial{Position: p.Position, Rotation: p.Rotation, ParentID: p.ParentID}
	m.arena[p.ID] = in
	m.order = append(m.order, p.ID)
	return in
}

func (m *Manager) isChildOfMover(p *placement.Placement) bool {
	if !p.HasParent() {
		return false
	}
	return p.ParentID == m.dragged || m.members.Contains(p.ParentID)
}

// Snapshot returns a copy of the captured starting transforms.
func (m *Manager) Snapshot() map[placement.ID]Initial {
	return maps.Clone(m.arena)
}
