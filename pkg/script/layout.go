package script

import (
	"fmt"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/stagehand/pkg/placement"
)

// Venue is the room a scene is laid out in. It is centred on the origin
// with its floor at y=0.
type Venue struct {
	Width  float64 `json:"width"`
	Depth  float64 `json:"depth"`
	Height float64 `json:"height"`
	Margin float64 `json:"margin"`
}

// Box returns the venue's world extent.
func (v Venue) Box() sdf.Box3 {
	return sdf.Box3{
		Min: v3.Vec{X: -v.Width / 2, Y: 0, Z: -v.Depth / 2},
		Max: v3.Vec{X: v.Width / 2, Y: v.Height, Z: v.Depth / 2},
	}
}

// Layout is what a scene script declares.
type Layout struct {
	Venue      *Venue                `json:"venue,omitempty"`
	Placements []placement.Placement `json:"placements"`

	autoID int
}

// Find returns the declared placement with the given id, or nil.
func (l *Layout) Find(id placement.ID) *placement.Placement {
	for i := range l.Placements {
		if l.Placements[i].ID == id {
			return &l.Placements[i]
		}
	}
	return nil
}

// Validate checks the declared placements for structural problems.
func (l *Layout) Validate(fr *placement.FootprintResolver) placement.ValidationResult {
	return placement.ValidateLayout(l.Placements, fr)
}

// Store loads the placements into a fresh store. Unparented placements go in
// first so that every parent exists before its children are added.
func (l *Layout) Store() (*placement.Store, error) {
	s := placement.NewStore()
	for _, pass := range []bool{false, true} {
		for i := range l.Placements {
			p := l.Placements[i]
			if p.HasParent() != pass {
				continue
			}
			if err := s.Add(&p); err != nil {
				return nil, fmt.Errorf("load layout: %w", err)
			}
		}
	}
	return s, nil
}

func (l *Layout) nextID() placement.ID {
	l.autoID++
	return placement.ID(fmt.Sprintf("placement-%d", l.autoID))
}
