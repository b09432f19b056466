package geom_test

import (
	"math"
	"testing"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"

	"github.com/chazu/stagehand/pkg/geom"
)

func TestNormalizeDegrees(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0, 0},
		{90, 90},
		{360, 0},
		{450, 90},
		{-90, 270},
		{-720, 0},
		{359.9, 359.9},
		{math.NaN(), 0},
	}
	for _, tc := range cases {
		got := geom.NormalizeDegrees(tc.in)
		assert.InDelta(t, tc.want, got, 1e-9, "NormalizeDegrees(%v)", tc.in)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.Less(t, got, 360.0)
	}
}

func TestRotateXZ(t *testing.T) {
	t.Run("quarter turn moves +X onto +Z", func(t *testing.T) {
		got := geom.RotateXZ(geom.Vec3{X: 1}, 90)
		assert.True(t, geom.ApproxEqual(geom.Vec3{Z: 1}, got, 1e-9), "got %+v", got)
	})
	t.Run("keeps height", func(t *testing.T) {
		got := geom.RotateXZ(geom.Vec3{X: 1, Y: 0.4}, 180)
		assert.True(t, geom.ApproxEqual(geom.Vec3{X: -1, Y: 0.4}, got, 1e-9), "got %+v", got)
	})
}

func TestRound(t *testing.T) {
	assert.Equal(t, 1.235, geom.Round(1.23456, 3))
	assert.Equal(t, 0.0, geom.Round(-0.0001, 3))
	assert.Equal(t, geom.Vec3{X: 1, Y: 2.001, Z: -3}, geom.RoundVec(geom.Vec3{X: 1.0001, Y: 2.0009, Z: -2.9999}, 3))
}

func TestIntersectPlaneY(t *testing.T) {
	r := geom.NewRay(geom.Vec3{Y: 10}, geom.Vec3{X: 1, Y: -1})
	p, _, ok := r.IntersectPlaneY(0)
	assert.True(t, ok)
	assert.True(t, geom.ApproxEqual(geom.Vec3{X: 10}, p, 1e-9), "got %+v", p)

	_, _, ok = geom.NewRay(geom.Vec3{Y: 1}, geom.Vec3{X: 1}).IntersectPlaneY(0)
	assert.False(t, ok, "parallel ray")

	_, _, ok = geom.NewRay(geom.Vec3{Y: 1}, geom.Vec3{Y: 1}).IntersectPlaneY(0)
	assert.False(t, ok, "plane behind origin")
}

func TestIntersectBox(t *testing.T) {
	box := sdf.Box3{Min: v3.Vec{X: -1, Y: 0, Z: -1}, Max: v3.Vec{X: 1, Y: 1, Z: 1}}

	tHit, ok := geom.NewRay(geom.Vec3{Y: 5}, geom.Vec3{Y: -1}).IntersectBox(box)
	assert.True(t, ok)
	assert.InDelta(t, 4, tHit, 1e-9)

	_, ok = geom.NewRay(geom.Vec3{X: 3, Y: 5}, geom.Vec3{Y: -1}).IntersectBox(box)
	assert.False(t, ok)

	tHit, ok = geom.NewRay(geom.Vec3{Y: 0.5}, geom.Vec3{X: 1}).IntersectBox(box)
	assert.True(t, ok, "origin inside")
	assert.InDelta(t, 1, tHit, 1e-9)
}

func TestCameraRoundTrip(t *testing.T) {
	cam := geom.NewCamera(geom.Vec3{X: 0, Y: 10, Z: 10}, geom.Vec3{}, 60, 800, 600)

	screen, ok := cam.Project(geom.Vec3{})
	assert.True(t, ok)
	assert.InDelta(t, 400, screen.X, 1e-6)
	assert.InDelta(t, 300, screen.Y, 1e-6)

	world := geom.Vec3{X: 2, Z: -1}
	screen, ok = cam.Project(world)
	assert.True(t, ok)
	p, _, ok := cam.ScreenToRay(screen).IntersectPlaneY(0)
	assert.True(t, ok)
	assert.True(t, geom.ApproxEqual(world, p, 1e-6), "got %+v", p)

	_, ok = cam.Project(geom.Vec3{Y: 20, Z: 20})
	assert.False(t, ok, "point behind the camera")
}

func TestRectContains(t *testing.T) {
	r := geom.Rect{A: geom.Vec2{X: 100, Y: 80}, B: geom.Vec2{X: 10, Y: 20}}
	assert.True(t, r.Contains(geom.Vec2{X: 50, Y: 50}))
	assert.False(t, r.Contains(geom.Vec2{X: 5, Y: 50}))
}
