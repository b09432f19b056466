// Package spatial answers ray and region queries against the placed objects.
//
// Query is the only view the interaction core has of the scene: a ray goes
// in, ordered hits come out, and each hit names what it struck and can report
// that object's current world bounding box. Index is the in-process
// implementation, backed by kernel solids and an R-tree.
package spatial

import (
	"github.com/chazu/stagehand/pkg/geom"
	"github.com/chazu/stagehand/pkg/placement"
	"github.com/deadsy/sdfx/sdf"
)

// Kind says what a ray hit struck.
type Kind int

const (
	KindNone Kind = iota
	KindGround
	KindPlacement
)

func (k Kind) String() string {
	switch k {
	case KindGround:
		return "ground"
	case KindPlacement:
		return "placement"
	default:
		return "none"
	}
}

// Hit is one intersection along a ray.
type Hit struct {
	Kind     Kind
	ID       placement.ID // set when Kind == KindPlacement
	Distance float64
	Point    geom.Vec3

	// Bounds computes the struck object's world bounding box at call time.
	Bounds func() sdf.Box3
}

// Top returns the height of the top face of the struck object.
func (h Hit) Top() float64 {
	if h.Bounds == nil {
		return 0
	}
	return h.Bounds().Max.Y
}

// Query casts rays into the scene.
type Query interface {
	// CastRay returns every hit along the ray, nearest first.
	CastRay(origin, dir geom.Vec3) []Hit
}
