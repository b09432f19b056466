// Package commit turns the end state of a gesture into canonical patches and
// hands them to the persistence collaborator off the interaction loop.
package commit

import (
	"log/slog"

	"github.com/chazu/stagehand/pkg/geom"
	"github.com/chazu/stagehand/pkg/persist"
	"github.com/chazu/stagehand/pkg/placement"
)

// DefaultPrecision is the number of decimal places positions are rounded to
// (millimetres).
const DefaultPrecision = 3

// Pipeline canonicalises transforms.
type Pipeline struct {
	Precision int
}

// NewPipeline returns a pipeline with millimetre precision.
func NewPipeline() Pipeline {
	return Pipeline{Precision: DefaultPrecision}
}

// Finalize builds the patch for p at the end of a gesture. startParent is
// the parent p had when the gesture began; p.ParentID holds the value
// resolved during the gesture.
//
// The parent key is only present when the parent changed: to another
// non-empty id that is not p itself, or from a set parent to none. A self
// reference is dropped with a warning.
func (pl Pipeline) Finalize(p *placement.Placement, startParent placement.ID) persist.Patch {
	pos := pl.Position(p.Position)
	rot := pl.Rotation(p.Rotation)
	patch := persist.Patch{Position: &pos, Rotation: &rot}

	resolved := p.ParentID
	switch {
	case resolved == startParent:
	case resolved == p.ID:
		slog.Warn("Dropping self parent from commit", "id", p.ID)
	case resolved.IsZero():
		patch.Parent = &persist.ParentChange{}
	default:
		patch.Parent = &persist.ParentChange{ID: resolved}
	}
	return patch
}

// Position rounds every component to the pipeline precision.
func (pl Pipeline) Position(v geom.Vec3) geom.Vec3 {
	return geom.RoundVec(v, pl.precision())
}

// Rotation rounds to the pipeline precision and normalises into [0, 360).
func (pl Pipeline) Rotation(deg float64) float64 {
	return geom.NormalizeDegrees(geom.Round(geom.NormalizeDegrees(deg), pl.precision()))
}

func (pl Pipeline) precision() int {
	if pl.Precision > 0 {
		return pl.Precision
	}
	return DefaultPrecision
}

// Apply writes a finalized patch back onto the local placement so local
// state matches what is sent, and returns the patch that was applied. The
// parent goes through the store so the nesting rules hold; a rejected parent
// leaves the old one in place and is dropped from the returned patch.
func Apply(store *placement.Store, id placement.ID, patch persist.Patch) persist.Patch {
	p := store.Get(id)
	if p == nil {
		slog.Warn("Commit for unknown placement", "id", id)
		return patch
	}
	local := patch
	local.Parent = nil
	local.Apply(p)
	if patch.Parent == nil {
		return patch
	}
	if err := store.SetParent(id, patch.Parent.ID); err != nil {
		slog.Warn("Rejected parent change", "id", id, "parent", patch.Parent.ID, "error", err)
		return local
	}
	return patch
}
