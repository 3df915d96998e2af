package vector_math

import "math"

// Vec4 matches the layout of a GLSL vec4, four tightly packed float32 values.
type Vec4 struct {
	X, Y, Z, W float32
}

// Point is a position in homogeneous coordinates, W is 1.
func Point(x, y, z float32) Vec4 {
	return Vec4{X: x, Y: y, Z: z, W: 1}
}

// RGBA is a color with components in [0, 1].
func RGBA(r, g, b, a float32) Vec4 {
	return Vec4{X: r, Y: g, Z: b, W: a}
}

func (v Vec4) Dot(w Vec4) float32 {
	return (v.X * w.X) + (v.Y * w.Y) + (v.Z * w.Z) + (v.W * w.W)
}

func (v Vec4) Sub(w Vec4) Vec4 {
	return Vec4{
		X: v.X - w.X,
		Y: v.Y - w.Y,
		Z: v.Z - w.Z,
		W: v.W - w.W,
	}
}

func (v Vec4) Add(w Vec4) Vec4 {
	return Vec4{
		X: v.X + w.X,
		Y: v.Y + w.Y,
		Z: v.Z + w.Z,
		W: v.W + w.W,
	}
}

func (v Vec4) ScalarMul(factor float32) Vec4 {
	return Vec4{
		X: v.X * factor,
		Y: v.Y * factor,
		Z: v.Z * factor,
		W: v.W * factor,
	}
}

// Lerp interpolates linearly between v (t = 0) and w (t = 1).
func (v Vec4) Lerp(w Vec4, t float32) Vec4 {
	return v.Add(w.Sub(v).ScalarMul(t))
}

func (v Vec4) Len() float32 {
	return float32(math.Sqrt(float64(v.Dot(v))))
}

// Array returns the components in memory order, as passed to e.g. vk.NewClearValue.
func (v Vec4) Array() [4]float32 {
	return [4]float32{v.X, v.Y, v.Z, v.W}
}

// Vec4FromSlice reads up to four components from s, missing ones stay 0.
func Vec4FromSlice(s []float32) Vec4 {
	var a [4]float32
	copy(a[:], s)
	return Vec4{X: a[0], Y: a[1], Z: a[2], W: a[3]}
}
