package geom

import "math"

// NormalizeDegrees maps any angle into [0, 360).
func NormalizeDegrees(deg float64) float64 {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0
	}
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	// math.Mod of a tiny negative value can round back up to 360.
	if d >= 360 {
		d = 0
	}
	return d
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// RotateXZ rotates v about the +Y axis by deg degrees. The Y component is
// kept. Positive angles turn +X towards +Z, so (1,0,0) by 90 gives (0,0,1).
func RotateXZ(v Vec3, deg float64) Vec3 {
	s, c := math.Sincos(Radians(deg))
	return Vec3{
		X: v.X*c - v.Z*s,
		Y: v.Y,
		Z: v.X*s + v.Z*c,
	}
}

// Round rounds x to the given number of decimal places.
func Round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	r := math.Round(x*p) / p
	if r == 0 {
		return 0 // drop negative zero
	}
	return r
}

// RoundVec rounds every component of v to the given number of decimal places.
func RoundVec(v Vec3, places int) Vec3 {
	return Vec3{X: Round(v.X, places), Y: Round(v.Y, places), Z: Round(v.Z, places)}
}
