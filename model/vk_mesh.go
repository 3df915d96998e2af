package model

import (
	"fmt"
)

// Mesh is an indexed triangle list.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
}

func NewMesh(v []Vertex, idx []uint32) *Mesh {
	return &Mesh{
		Vertices: v,
		Indices:  idx,
	}
}

// Validate checks that the mesh can be drawn as a triangle list: there is at least one triangle, the index count is
// a multiple of 3 and all indices address an existing vertex.
func (m *Mesh) Validate() error {
	if len(m.Vertices) == 0 || len(m.Indices) == 0 {
		return fmt.Errorf("mesh without vertices or indices")
	}
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("%d indices do not form whole triangles", len(m.Indices))
	}
	for i, idx := range m.Indices {
		if int(idx) >= len(m.Vertices) {
			return fmt.Errorf("index [%d] = %d out of range for %d vertices", i, idx, len(m.Vertices))
		}
	}
	return nil
}

// TriangleCount is the number of triangles drawn for this mesh.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}
