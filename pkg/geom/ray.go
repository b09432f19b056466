package geom

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
)

// parallelEpsilon is the smallest |dir.Y| for which a ray is treated as
// crossing a horizontal plane.
const parallelEpsilon = 1e-9

// Ray is a half-line with a unit direction.
type Ray struct {
	Origin    Vec3 `json:"origin"`
	Direction Vec3 `json:"direction"`
}

// NewRay returns a ray with a normalized direction.
func NewRay(origin, dir Vec3) Ray {
	return Ray{Origin: origin, Direction: dir.Normalize()}
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float64) Vec3 {
	return r.Origin.Add(r.Direction.Scale(t))
}

// IntersectPlaneY intersects the ray with the horizontal plane y = planeY.
// ok is false when the ray is parallel to the plane or the plane lies behind
// the ray origin.
func (r Ray) IntersectPlaneY(planeY float64) (p Vec3, t float64, ok bool) {
	if math.Abs(r.Direction.Y) < parallelEpsilon {
		return Vec3{}, 0, false
	}
	t = (planeY - r.Origin.Y) / r.Direction.Y
	if t < 0 {
		return Vec3{}, 0, false
	}
	p = r.At(t)
	p.Y = planeY
	return p, t, true
}

// IntersectBox runs a slab test against an axis-aligned box. It returns the
// entry distance, or the exit distance when the origin is inside the box.
func (r Ray) IntersectBox(box sdf.Box3) (t float64, hit bool) {
	tmin := math.Inf(-1)
	tmax := math.Inf(1)

	o := [3]float64{r.Origin.X, r.Origin.Y, r.Origin.Z}
	d := [3]float64{r.Direction.X, r.Direction.Y, r.Direction.Z}
	lo := [3]float64{box.Min.X, box.Min.Y, box.Min.Z}
	hi := [3]float64{box.Max.X, box.Max.Y, box.Max.Z}

	for i := 0; i < 3; i++ {
		if d[i] == 0 {
			if o[i] < lo[i] || o[i] > hi[i] {
				return 0, false
			}
			continue
		}
		t1 := (lo[i] - o[i]) / d[i]
		t2 := (hi[i] - o[i]) / d[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	if tmax < 0 {
		return 0, false
	}
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}
