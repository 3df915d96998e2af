package model

import (
	"unsafe"

	vm "GPU_render_layer/vector_math"
)

// Vertex is the per vertex record uploaded to the GPU. Expected size in memory is 32 Byte, two vec4 without padding.
type Vertex struct {
	Pos   vm.Vec4
	Color vm.Vec4
}

var vertexProbe Vertex

// Byte offsets of the Vertex fields, as referenced by the vertex input attributes.
var (
	VertexPosOffset   = uint32(unsafe.Offsetof(vertexProbe.Pos))
	VertexColorOffset = uint32(unsafe.Offsetof(vertexProbe.Color))
)
