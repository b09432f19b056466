package placement

import (
	"errors"

	"github.com/chazu/stagehand/pkg/geom"
)

// ID identifies a placement. IDs are stable and never reused.
type ID string

// ZeroID is the empty id, used for "no parent".
const ZeroID ID = ""

// IsZero reports whether the id is empty.
func (id ID) IsZero() bool {
	return id == ZeroID
}

func (id ID) String() string {
	return string(id)
}

var (
	ErrNotFound       = errors.New("placement not found")
	ErrDuplicateID    = errors.New("placement id already exists")
	ErrSelfParent     = errors.New("placement cannot rest on itself")
	ErrDanglingParent = errors.New("parent placement does not exist")
	ErrNestedParent   = errors.New("parent placement already rests on another placement")
)

// Dimensions are the declared outer dimensions of an object, in metres.
type Dimensions struct {
	Width  float64 `json:"width"`  // along X
	Depth  float64 `json:"depth"`  // along Z
	Height float64 `json:"height"` // along Y
}

// Metadata carries declared properties and provenance tags. Only Radius,
// Stackable, Dimensions and Name feed into footprint resolution; the rest is
// carried through untouched.
type Metadata struct {
	Name       string            `json:"name,omitempty"`
	Radius     float64           `json:"radius,omitempty"`    // explicit footprint radius; 0 = derive
	Stackable  *bool             `json:"stackable,omitempty"` // nil = derive from name
	Dimensions *Dimensions       `json:"dimensions,omitempty"`
	CatalogID  string            `json:"catalogId,omitempty"`
	GroupID    string            `json:"groupId,omitempty"`
	Tags       map[string]string `json:"tags,omitempty"`
}

// Placement is one placed object instance.
type Placement struct {
	ID       ID        `json:"id"`
	Position geom.Vec3 `json:"position"`
	Rotation float64   `json:"rotation"` // degrees about +Y, [0,360)
	Locked   bool      `json:"locked"`
	ParentID ID        `json:"parentElementId,omitempty"`
	Meta     Metadata  `json:"meta"`
}

// HasParent reports whether the placement rests on another placement.
func (p *Placement) HasParent() bool {
	return !p.ParentID.IsZero()
}

// Height returns the declared height, or fallback when none is declared.
func (p *Placement) Height(fallback float64) float64 {
	if d := p.Meta.Dimensions; d != nil && d.Height > 0 {
		return d.Height
	}
	return fallback
}

// Bool returns a pointer to b, for filling Metadata.Stackable.
func Bool(b bool) *bool {
	return &b
}
