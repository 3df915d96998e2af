package model

import (
	vm "GPU_render_layer/vector_math"
)

// Model is a named mesh as it is placed into the scene. GPU resources are owned by the renderer.
type Model struct {
	Name string
	Mesh *Mesh
}

func NewModel(m *Mesh, n string) *Model {
	return &Model{
		Name: n,
		Mesh: m,
	}
}

// NewTriangleModel is a single triangle with a red, green and blue corner in clip space.
func NewTriangleModel(name string) *Model {
	v := []Vertex{
		{Pos: vm.Point(0.0, -0.5, 0), Color: vm.RGBA(1, 0, 0, 1)},
		{Pos: vm.Point(0.5, 0.5, 0), Color: vm.RGBA(0, 1, 0, 1)},
		{Pos: vm.Point(-0.5, 0.5, 0), Color: vm.RGBA(0, 0, 1, 1)},
	}
	return NewModel(NewMesh(v, []uint32{0, 1, 2}), name)
}

// NewQuadModel is an axis aligned square made of two triangles, centered at (x, y) with the given half size.
func NewQuadModel(name string, x, y, half float32, color vm.Vec4) *Model {
	v := []Vertex{
		{Pos: vm.Point(x-half, y-half, 0), Color: color},
		{Pos: vm.Point(x+half, y-half, 0), Color: color},
		{Pos: vm.Point(x+half, y+half, 0), Color: color},
		{Pos: vm.Point(x-half, y+half, 0), Color: color},
	}
	return NewModel(NewMesh(v, []uint32{0, 1, 2, 2, 3, 0}), name)
}
