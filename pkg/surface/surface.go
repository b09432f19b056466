// Package surface decides what a moving object rests on: the floor, or the
// top of another placement under the pointer.
package surface

import (
	"context"
	"log/slog"

	"github.com/chazu/stagehand/pkg/geom"
	"github.com/chazu/stagehand/pkg/placement"
	"github.com/chazu/stagehand/pkg/spatial"
	"github.com/maniartech/signals"
)

// Result is where a moving object should rest.
type Result struct {
	Elevation float64
	ParentID  placement.ID // ZeroID means the floor
}

// Floor is the result for an object resting on the floor.
var Floor = Result{}

// Outcome classifies one resolution step for diagnostics.
type Outcome int

const (
	OutcomeFloor        Outcome = iota // no supporting surface under the pointer
	OutcomeAttached                    // resting on another placement
	OutcomeNotStackable                // object never looks for a surface
	OutcomeIsParent                    // object carries children and stays on the floor
	OutcomeSkipped                     // a hit was passed over
	OutcomeInvalid                     // a hit carried an unusable id
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFloor:
		return "floor"
	case OutcomeAttached:
		return "attached"
	case OutcomeNotStackable:
		return "not-stackable"
	case OutcomeIsParent:
		return "is-parent"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeInvalid:
		return "invalid"
	}
	return "unknown"
}

// Diagnostic describes one step of a resolution. It is emitted on
// Resolver.Diagnostics for tests and observers; nothing depends on it.
type Diagnostic struct {
	MovingID    placement.ID
	CandidateID placement.ID
	Outcome     Outcome
	Reason      string
	Elevation   float64
}

// Lookup is the read access the resolver needs to the placements.
type Lookup interface {
	Get(id placement.ID) *placement.Placement
	Children(id placement.ID) []*placement.Placement
}

// Resolver resolves surface attachment for moving objects.
type Resolver struct {
	Footprint   *placement.FootprintResolver
	Diagnostics signals.Signal[Diagnostic]
}

// New returns a resolver using fr for stackability.
func New(fr *placement.FootprintResolver) *Resolver {
	return &Resolver{
		Footprint:   fr,
		Diagnostics: signals.NewSync[Diagnostic](),
	}
}

// Resolve casts ray into q and returns where moving should rest.
//
// Only stackable objects look for a surface. The first hit that belongs to
// another placement, outside moving's own subtree, supplies the elevation
// (the top of its bounding box) and becomes the parent. Placements that
// already rest on something cannot carry another object, and an object that
// carries children never rests on another. Hits for which skip reports true
// (objects moving along with the gesture) are passed over; skip may be nil.
func (r *Resolver) Resolve(ctx context.Context, ray geom.Ray, moving *placement.Placement, q spatial.Query, lookup Lookup, skip func(placement.ID) bool) Result {
	if !r.Footprint.Stackable(moving) {
		r.emit(ctx, Diagnostic{MovingID: moving.ID, Outcome: OutcomeNotStackable})
		return Floor
	}
	// The subtree is empty past this point, so only self needs excluding.
	if len(lookup.Children(moving.ID)) > 0 {
		r.emit(ctx, Diagnostic{MovingID: moving.ID, Outcome: OutcomeIsParent})
		return Floor
	}

	for _, h := range q.CastRay(ray.Origin, ray.Direction) {
		if h.Kind != spatial.KindPlacement || h.ID == moving.ID {
			continue
		}
		if skip != nil && skip(h.ID) {
			r.emit(ctx, Diagnostic{MovingID: moving.ID, CandidateID: h.ID, Outcome: OutcomeSkipped, Reason: "candidate moves with the gesture"})
			continue
		}
		if reason := invalidParent(moving.ID, h.ID, lookup); reason != "" {
			slog.Warn("Ignoring invalid surface candidate", "moving", moving.ID, "candidate", h.ID, "reason", reason)
			r.emit(ctx, Diagnostic{MovingID: moving.ID, CandidateID: h.ID, Outcome: OutcomeInvalid, Reason: reason})
			continue
		}
		if lookup.Get(h.ID).HasParent() {
			r.emit(ctx, Diagnostic{MovingID: moving.ID, CandidateID: h.ID, Outcome: OutcomeSkipped, Reason: "candidate is stacked"})
			continue
		}
		res := Result{Elevation: h.Top(), ParentID: h.ID}
		r.emit(ctx, Diagnostic{MovingID: moving.ID, CandidateID: h.ID, Outcome: OutcomeAttached, Elevation: res.Elevation})
		return res
	}
	r.emit(ctx, Diagnostic{MovingID: moving.ID, Outcome: OutcomeFloor})
	return Floor
}

// invalidParent returns why candidate cannot be a parent of id, or "".
func invalidParent(id, candidate placement.ID, lookup Lookup) string {
	switch {
	case candidate.IsZero():
		return "empty id"
	case candidate == id:
		return "self reference"
	case lookup.Get(candidate) == nil:
		return "unknown id"
	}
	return ""
}

func (r *Resolver) emit(ctx context.Context, d Diagnostic) {
	if r.Diagnostics != nil {
		r.Diagnostics.Emit(ctx, d)
	}
}
