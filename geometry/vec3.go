// Package geometry implements the view-aligned slice geometry generator
// (C3): per-brick textured quads sampling a volume back-to-front along
// whichever world axis is most parallel to the current view.
package geometry

import "github.com/chewxy/math32"

// Vec3 is a 3D point or direction in object/world/texture space depending
// on context, mirroring the teacher's Vec2/Point split without carrying
// the separate position/displacement distinction into three dimensions:
// callers track that distinction themselves via which Mat4 method they use.
type Vec3 struct {
	X, Y, Z float32
}

// V3 constructs a Vec3.
func V3(x, y, z float32) Vec3 { return Vec3{X: x, Y: y, Z: z} }

func (v Vec3) Add(w Vec3) Vec3 { return Vec3{v.X + w.X, v.Y + w.Y, v.Z + w.Z} }
func (v Vec3) Sub(w Vec3) Vec3 { return Vec3{v.X - w.X, v.Y - w.Y, v.Z - w.Z} }
func (v Vec3) Scale(s float32) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) Neg() Vec3 { return Vec3{-v.X, -v.Y, -v.Z} }

func (v Vec3) Dot(w Vec3) float32 { return v.X*w.X + v.Y*w.Y + v.Z*w.Z }

func (v Vec3) Cross(w Vec3) Vec3 {
	return Vec3{
		X: v.Y*w.Z - v.Z*w.Y,
		Y: v.Z*w.X - v.X*w.Z,
		Z: v.X*w.Y - v.Y*w.X,
	}
}

func (v Vec3) Length() float32   { return math32.Sqrt(v.Dot(v)) }
func (v Vec3) LengthSq() float32 { return v.Dot(v) }

func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

func (v Vec3) Lerp(w Vec3, t float32) Vec3 {
	return Vec3{
		X: v.X + (w.X-v.X)*t,
		Y: v.Y + (w.Y-v.Y)*t,
		Z: v.Z + (w.Z-v.Z)*t,
	}
}

// Component returns the value along the given axis (0=X, 1=Y, 2=Z).
func (v Vec3) Component(axis int) float32 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// dominantAxis returns the index of the largest-magnitude component.
func (v Vec3) dominantAxis() int {
	ax, ay, az := math32.Abs(v.X), math32.Abs(v.Y), math32.Abs(v.Z)
	if ax >= ay && ax >= az {
		return 0
	}
	if ay >= az {
		return 1
	}
	return 2
}
