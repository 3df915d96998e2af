package vector_math

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestVec4Layout(t *testing.T) {
	assert.Equal(t, uintptr(16), unsafe.Sizeof(Vec4{}), "must match a GLSL vec4")
	assert.Equal(t, uintptr(4), unsafe.Alignof(Vec4{}))
}

func TestVec4Arithmetic(t *testing.T) {
	a := Vec4{1, 2, 3, 4}
	b := Vec4{4, 3, 2, 1}

	assert.Equal(t, Vec4{5, 5, 5, 5}, a.Add(b))
	assert.Equal(t, Vec4{-3, -1, 1, 3}, a.Sub(b))
	assert.Equal(t, Vec4{2, 4, 6, 8}, a.ScalarMul(2))
	assert.Equal(t, float32(20), a.Dot(b))
	assert.InDelta(t, 5.4772, a.Len(), 1e-4)
}

func TestVec4Lerp(t *testing.T) {
	red := RGBA(1, 0, 0, 1)
	blue := RGBA(0, 0, 1, 1)
	assert.Equal(t, red, red.Lerp(blue, 0))
	assert.Equal(t, blue, red.Lerp(blue, 1))
	assert.Equal(t, RGBA(0.5, 0, 0.5, 1), red.Lerp(blue, 0.5))
}

func TestVec4Constructors(t *testing.T) {
	assert.Equal(t, Vec4{0.5, -0.5, 0, 1}, Point(0.5, -0.5, 0))
	assert.Equal(t, [4]float32{1, 2, 3, 4}, Vec4{1, 2, 3, 4}.Array())
	assert.Equal(t, Vec4{1, 2, 0, 0}, Vec4FromSlice([]float32{1, 2}))
	assert.Equal(t, Vec4{1, 2, 3, 4}, Vec4FromSlice([]float32{1, 2, 3, 4, 5}))
}
