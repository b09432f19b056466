package editor

import (
	"log/slog"
	"slices"

	"github.com/chazu/stagehand/pkg/commit"
	"github.com/chazu/stagehand/pkg/persist"
	"github.com/chazu/stagehand/pkg/placement"
)

// Remove asks persistence to delete id with the given scope. The scene
// changes when the result arrives in Tick.
func (e *Editor) Remove(id placement.ID, scope persist.Scope) {
	e.persist.Remove(id, scope)
}

// Duplicate asks persistence to copy id and its children.
func (e *Editor) Duplicate(id placement.ID) {
	e.persist.Duplicate(id)
}

// SetLocked asks persistence to lock or unlock id. The local flag follows
// immediately so a locked object cannot be dragged while the call is in
// flight.
func (e *Editor) SetLocked(id placement.ID, locked bool) {
	if p := e.store.Get(id); p != nil {
		p.Locked = locked
	}
	e.persist.SetLocked(id, locked)
}

// Tick folds finished persistence calls into the scene and returns the ones
// that failed. Local state is never rolled back for a failure.
func (e *Editor) Tick() []commit.Failure {
	var failures []commit.Failure
	for _, r := range e.persist.Drain() {
		if r.Err != nil {
			failures = append(failures, commit.Failure{Op: r.Op, ID: r.ID, Err: r.Err})
			continue
		}
		switch r.Op {
		case commit.OpRemove:
			e.removeLocal(r.Removed)
		case commit.OpDuplicate:
			e.addLocal(r.Created)
		case commit.OpLock:
			if p := e.store.Get(r.ID); p != nil && r.Updated != nil {
				p.Locked = r.Updated.Locked
			}
		}
	}
	return failures
}

// Flush waits for every queued persistence call and applies the results.
func (e *Editor) Flush() []commit.Failure {
	e.persist.Wait()
	return e.Tick()
}

func (e *Editor) removeLocal(ids []placement.ID) {
	for _, id := range ids {
		if e.session.IsMember(id) || e.session.Dragged() == id {
			slog.Warn("Removing a placement mid-gesture; ending the gesture", "id", id)
			e.session.End()
		}
		if e.store.Get(id) == nil {
			continue
		}
		if _, err := e.store.Remove(id); err != nil {
			slog.Warn("Local remove failed", "id", id, "error", err)
			continue
		}
		e.selection.Remove(id)
		e.index.Remove(id)
	}
}

func (e *Editor) addLocal(created []placement.Placement) {
	// Parents before children.
	ordered := slices.Clone(created)
	slices.SortStableFunc(ordered, func(a, b placement.Placement) int {
		switch {
		case a.HasParent() == b.HasParent():
			return 0
		case a.HasParent():
			return 1
		}
		return -1
	})
	var added []*placement.Placement
	for i := range ordered {
		p := ordered[i]
		if err := e.store.Add(&p); err != nil {
			slog.Warn("Local add failed", "id", p.ID, "error", err)
			continue
		}
		added = append(added, &p)
	}
	e.index.Refresh(added...)
}
