package spatial

import (
	"cmp"
	"math"
	"slices"

	"github.com/chazu/stagehand/pkg/geom"
	"github.com/chazu/stagehand/pkg/placement"
	"github.com/deadsy/sdfx/sdf"
	"github.com/dhconnelly/rtreego"
	"github.com/samber/lo"
)

// R-tree branching factors.
const (
	treeMinChildren = 4
	treeMaxChildren = 16
)

// DefaultMaxDistance bounds how far CastRay looks.
const DefaultMaxDistance = 1000.0

// searchPad widens query rectangles so axis-aligned rays still intersect.
const searchPad = 1e-6

// entry is one indexed placement.
type entry struct {
	id     placement.ID
	box    sdf.Box3
	rect   rtreego.Rect
	radius float64
}

// Bounds implements rtreego.Spatial.
func (e *entry) Bounds() rtreego.Rect {
	return e.rect
}

// Index is a Query over placements. Boxes are computed once per Refresh, so
// callers must refresh any placement whose transform changed before casting
// rays that should see the new position.
//
// Index is owned by the interaction loop and is not safe for concurrent use.
type Index struct {
	shaper      Shaper
	tree        *rtreego.Rtree
	entries     map[placement.ID]*entry
	maxRadius   float64
	ground      sdf.Box3
	groundSet   bool
	MaxDistance float64
}

var _ Query = (*Index)(nil)

// NewIndex returns an empty index that derives shapes with shaper.
func NewIndex(shaper Shaper) *Index {
	return &Index{
		shaper:      shaper,
		tree:        rtreego.NewTree(3, treeMinChildren, treeMaxChildren),
		entries:     make(map[placement.ID]*entry),
		MaxDistance: DefaultMaxDistance,
	}
}

// SetGround limits ground hits to the floor of box. Without it the ground
// plane is unbounded.
func (ix *Index) SetGround(box sdf.Box3) {
	ix.ground = box
	ix.groundSet = true
}

// Rebuild replaces the index contents with ps.
func (ix *Index) Rebuild(ps []*placement.Placement) {
	ix.tree = rtreego.NewTree(3, treeMinChildren, treeMaxChildren)
	ix.entries = make(map[placement.ID]*entry, len(ps))
	ix.maxRadius = 0
	ix.Refresh(ps...)
}

// Refresh re-indexes the given placements, inserting new ones.
func (ix *Index) Refresh(ps ...*placement.Placement) {
	for _, p := range ps {
		if old, ok := ix.entries[p.ID]; ok {
			ix.tree.Delete(old)
		}
		box := ix.shaper.Bounds(p)
		e := &entry{
			id:     p.ID,
			box:    box,
			rect:   rectOf(box, 0),
			radius: ix.shaper.Footprint.Radius(p),
		}
		ix.entries[p.ID] = e
		ix.tree.Insert(e)
		ix.maxRadius = math.Max(ix.maxRadius, e.radius)
	}
}

// Remove drops the given ids from the index.
func (ix *Index) Remove(ids ...placement.ID) {
	for _, id := range ids {
		if e, ok := ix.entries[id]; ok {
			ix.tree.Delete(e)
			delete(ix.entries, id)
		}
	}
}

// Len returns the number of indexed placements.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// IDs returns the indexed ids in sorted order.
func (ix *Index) IDs() []placement.ID {
	ids := lo.Keys(ix.entries)
	slices.Sort(ids)
	return ids
}

// Bounds returns the indexed world bounding box of id.
func (ix *Index) Bounds(id placement.ID) (sdf.Box3, bool) {
	e, ok := ix.entries[id]
	if !ok {
		return sdf.Box3{}, false
	}
	return e.box, true
}

// Nearby returns the ids whose footprint could come within reach of center on
// the XZ plane, in sorted order. It is a broad phase: callers still measure
// the exact distance.
func (ix *Index) Nearby(center geom.Vec3, reach float64) []placement.ID {
	r := reach + ix.maxRadius
	q := sdf.Box3{
		Min: geom.Vec3{X: center.X - r, Y: math.Inf(-1), Z: center.Z - r}.V3(),
		Max: geom.Vec3{X: center.X + r, Y: math.Inf(1), Z: center.Z + r}.V3(),
	}
	ids := lo.Map(ix.tree.SearchIntersect(rectOf(clampInf(q), searchPad)), func(s rtreego.Spatial, _ int) placement.ID {
		return s.(*entry).id
	})
	slices.Sort(ids)
	return ids
}

// CastRay returns the placements and ground struck by the ray, nearest first.
func (ix *Index) CastRay(origin, dir geom.Vec3) []Hit {
	ray := geom.NewRay(origin, dir)
	if ray.Direction.Length() == 0 {
		return nil
	}
	end := ray.At(ix.maxDistance())
	seg := sdf.Box3{
		Min: geom.Vec3{X: math.Min(origin.X, end.X), Y: math.Min(origin.Y, end.Y), Z: math.Min(origin.Z, end.Z)}.V3(),
		Max: geom.Vec3{X: math.Max(origin.X, end.X), Y: math.Max(origin.Y, end.Y), Z: math.Max(origin.Z, end.Z)}.V3(),
	}

	var hits []Hit
	for _, s := range ix.tree.SearchIntersect(rectOf(seg, searchPad)) {
		e := s.(*entry)
		t, ok := ray.IntersectBox(e.box)
		if !ok {
			continue
		}
		id := e.id
		hits = append(hits, Hit{
			Kind:     KindPlacement,
			ID:       id,
			Distance: t,
			Point:    ray.At(t),
			Bounds:   func() sdf.Box3 { return ix.currentBounds(id) },
		})
	}
	if p, t, ok := ray.IntersectPlaneY(0); ok && ix.onGround(p) {
		ground := ix.groundBox(p)
		hits = append(hits, Hit{
			Kind:     KindGround,
			Distance: t,
			Point:    p,
			Bounds:   func() sdf.Box3 { return ground },
		})
	}
	slices.SortStableFunc(hits, func(a, b Hit) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(b.Kind, a.Kind) // placements before ground at equal range
	})
	return hits
}

func (ix *Index) currentBounds(id placement.ID) sdf.Box3 {
	if e, ok := ix.entries[id]; ok {
		return e.box
	}
	return sdf.Box3{}
}

func (ix *Index) maxDistance() float64 {
	if ix.MaxDistance > 0 {
		return ix.MaxDistance
	}
	return DefaultMaxDistance
}

func (ix *Index) onGround(p geom.Vec3) bool {
	if !ix.groundSet {
		return true
	}
	return p.X >= ix.ground.Min.X && p.X <= ix.ground.Max.X &&
		p.Z >= ix.ground.Min.Z && p.Z <= ix.ground.Max.Z
}

func (ix *Index) groundBox(p geom.Vec3) sdf.Box3 {
	if ix.groundSet {
		b := ix.ground
		b.Min.Y, b.Max.Y = 0, 0
		return b
	}
	return sdf.Box3{Min: geom.Vec3{X: p.X, Z: p.Z}.V3(), Max: geom.Vec3{X: p.X, Z: p.Z}.V3()}
}

// rectOf converts a box to an R-tree rectangle, padded by pad on every side.
func rectOf(b sdf.Box3, pad float64) rtreego.Rect {
	minP := rtreego.Point{b.Min.X - pad, b.Min.Y - pad, b.Min.Z - pad}
	maxP := rtreego.Point{b.Max.X + pad, b.Max.Y + pad, b.Max.Z + pad}
	r, err := rtreego.NewRectFromPoints(minP, maxP)
	if err != nil {
		// Only a dimension mismatch errors, and both points are 3D.
		panic(err)
	}
	return r
}

// clampInf replaces infinite extents with large finite ones so the R-tree's
// area arithmetic stays finite.
func clampInf(b sdf.Box3) sdf.Box3 {
	const big = 1e12
	c := func(v float64) float64 { return math.Max(-big, math.Min(big, v)) }
	b.Min.X, b.Min.Y, b.Min.Z = c(b.Min.X), c(b.Min.Y), c(b.Min.Z)
	b.Max.X, b.Max.Y, b.Max.Z = c(b.Max.X), c(b.Max.Y), c(b.Max.Z)
	return b
}
