package editor

import (
	"log/slog"

	"github.com/samber/lo"

	"github.com/chazu/stagehand/pkg/commit"
	"github.com/chazu/stagehand/pkg/geom"
	"github.com/chazu/stagehand/pkg/placement"
	"github.com/chazu/stagehand/pkg/session"
)

// PointerDown handles a press at a screen point.
//
// Over empty space it clears the selection, or starts a box selection when
// Multi is held. Over an object with Multi held it toggles the object's
// membership. Otherwise the object is selected (if it was not already) and
// a gesture starts on it, translating or rotating per mods. It reports
// whether a gesture started.
func (e *Editor) PointerDown(screen geom.Vec2, mods Modifiers) bool {
	if e.session.Active() {
		slog.Warn("Pointer down during a gesture; ending it first", "dragged", e.session.Dragged())
		e.finish()
	}

	id, ok := e.Pick(screen)
	if !ok {
		if mods.Multi {
			e.box.Begin(screen)
			return false
		}
		e.selection.Clear()
		return false
	}
	if mods.Multi {
		e.selection.Click(id, true)
		return false
	}
	if !e.selection.Contains(id) {
		e.selection.Click(id, false)
	}
	return e.begin(id, screen, mods.Rotate)
}

// Begin starts a gesture on id directly, without picking. screen is the
// pointer position the gesture starts from.
func (e *Editor) Begin(id placement.ID, screen geom.Vec2, rotate bool) bool {
	if e.session.Active() {
		e.finish()
	}
	return e.begin(id, screen, rotate)
}

func (e *Editor) begin(id placement.ID, screen geom.Vec2, rotate bool) bool {
	p := e.store.Get(id)
	if p == nil {
		return false
	}
	if e.session.Begin(p, e.selection, e.store) == nil {
		slog.Debug("Gesture refused", "id", id, "locked", p.Locked)
		return false
	}

	if rotate {
		e.session.SetState(session.Rotating{StartPointerX: screen.X, StartRotation: p.Rotation})
		return true
	}
	ray := e.camera.ScreenToRay(screen)
	hit, _, ok := ray.IntersectPlaneY(p.Position.Y)
	if !ok {
		// Pointer ray never meets the drag plane; the object stays put
		// until the pointer comes back over it.
		hit = p.Position
	}
	offset := p.Position.Sub(hit)
	offset.Y = 0
	e.session.SetState(session.Translating{Offset: offset, PlaneY: p.Position.Y})
	return true
}

// PointerMove handles pointer motion. It reports whether anything moved.
func (e *Editor) PointerMove(screen geom.Vec2) bool {
	if e.box.Active() {
		e.box.Update(screen)
		return false
	}
	if !e.session.Active() {
		return false
	}
	p := e.store.Get(e.session.Dragged())
	if p == nil {
		slog.Warn("Dragged placement disappeared", "id", e.session.Dragged())
		e.session.End()
		return false
	}

	switch st := e.session.State().(type) {
	case session.Translating:
		return e.translate(p, screen, st)
	case session.Rotating:
		return e.rotate(p, screen, st)
	}
	return false
}

// translate moves p to follow the pointer across the drag plane. The
// candidate passes through snap, surface attachment, collision and bounds in
// that order; a blocked candidate leaves everything where it was.
func (e *Editor) translate(p *placement.Placement, screen geom.Vec2, st session.Translating) bool {
	ray := e.camera.ScreenToRay(screen)
	hit, _, ok := ray.IntersectPlaneY(st.PlaneY)
	if !ok {
		return false
	}
	candidate := e.snap.Apply(hit.Add(st.Offset))

	res := e.surface.Resolve(e.ctx, ray, p, e.index, e.store, e.follows)
	candidate.Y = res.Elevation

	radius := e.footprint.Radius(p)
	elevated := e.collision.IsElevated(candidate.Y)
	if e.collision.Test(candidate, radius, p.ID, e.neighbours(candidate, radius), elevated) {
		return false
	}
	if e.bounds != nil {
		clamped := e.bounds.Clamp(candidate, radius)
		if clamped != candidate {
			if e.collision.Test(clamped, radius, p.ID, e.neighbours(clamped, radius), e.collision.IsElevated(clamped.Y)) {
				return false
			}
			candidate = clamped
		}
	}

	in, ok := e.session.Initial(p.ID)
	if !ok {
		slog.Warn("Dragged placement has no captured transform", "id", p.ID)
		return false
	}
	delta := candidate.Sub(in.Position)
	if e.followersBlocked(delta) {
		return false
	}
	p.Position = candidate
	p.ParentID = res.ParentID

	e.propagate(p, session.Delta{Translation: &delta})
	return true
}

// followersBlocked reports whether moving every co-selected member by delta
// from where it started would collide or leave the venue. One blocked
// member holds the whole group.
func (e *Editor) followersBlocked(delta geom.Vec3) bool {
	dragged := e.session.Dragged()
	for _, m := range e.session.Followers(e.selection, e.store) {
		in, ok := e.session.Initial(m.ID)
		if !ok {
			continue
		}
		c := in.Position.Add(delta)
		radius := e.footprint.Radius(m)
		if e.bounds != nil && e.bounds.Clamp(c, radius) != c {
			slog.Debug("Group move leaves the venue", "member", m.ID)
			return true
		}
		// The dragged object has already left its captured spot.
		others := lo.Reject(e.neighbours(c, radius), func(n *placement.Placement, _ int) bool {
			return n.ID == dragged
		})
		if e.collision.Test(c, radius, m.ID, others, e.collision.IsElevated(c.Y)) {
			return true
		}
	}
	return false
}

// rotate turns p by horizontal pointer travel since the gesture began.
func (e *Editor) rotate(p *placement.Placement, screen geom.Vec2, st session.Rotating) bool {
	total := (screen.X - st.StartPointerX) * e.degPerPx
	p.Rotation = geom.NormalizeDegrees(st.StartRotation + total)
	e.propagate(p, session.Delta{Rotation: &total})
	return true
}

// propagate fans the dragged object's total motion out to the rest of the
// gesture and re-indexes everything that moved.
func (e *Editor) propagate(p *placement.Placement, d session.Delta) {
	changed := e.session.ApplyDelta(d, e.session.Targets(e.store), e.selection, e.store)
	moved := []*placement.Placement{p}
	for _, id := range changed {
		if c := e.store.Get(id); c != nil {
			moved = append(moved, c)
		}
	}
	e.index.Refresh(moved...)
}

// PointerUp ends the current gesture or box selection. A gesture commits
// whatever was last accepted.
func (e *Editor) PointerUp(screen geom.Vec2) {
	if e.box.Active() {
		e.box.Update(screen)
		if rect, ok := e.box.End(); ok {
			e.selection.SelectInRect(rect, e.camera, e.store.All())
		}
		return
	}
	e.finish()
}

// PointerCancel handles a cancelled or lost pointer. A gesture still commits
// its last accepted state; a box selection is dropped.
func (e *Editor) PointerCancel() {
	e.box.Cancel()
	e.finish()
}

// finish commits and ends the active gesture, if any.
func (e *Editor) finish() {
	if !e.session.Active() {
		return
	}
	dragged := e.session.Dragged()
	var moved []*placement.Placement
	for _, id := range e.session.Affected() {
		p := e.store.Get(id)
		if p == nil {
			continue
		}
		in, _ := e.session.Initial(id)
		if id != dragged && unchanged(p, in) {
			continue
		}
		e.commit(p, in.ParentID)
		moved = append(moved, p)
	}
	e.index.Refresh(moved...)
	e.session.End()
}

// commit canonicalises p, writes the result back locally, hands it to
// persistence and announces it.
func (e *Editor) commit(p *placement.Placement, startParent placement.ID) {
	patch := e.pipeline.Finalize(p, startParent)
	// The local resolved parent is undone so the store can apply the change
	// under its own nesting rules. Only what the store accepted is sent on.
	p.ParentID = startParent
	patch = commit.Apply(e.store, p.ID, patch)
	e.persist.Update(p.ID, patch)
	e.TransformCommitted.Emit(e.ctx, Committed{ID: p.ID, Patch: patch})
	slog.Debug("Transform committed", "id", p.ID, "position", *patch.Position, "rotation", *patch.Rotation)
}

func unchanged(p *placement.Placement, in session.Initial) bool {
	return p.Position == in.Position && p.Rotation == in.Rotation && p.ParentID == in.ParentID
}
