package renderer

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"GPU_render_layer/logging"
	"GPU_render_layer/model"
)

const (
	vertexUsage = vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)
	indexUsage  = vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit)
)

// SceneEntry is a model that has been uploaded to the device.
type SceneEntry struct {
	Model    *model.Model
	Vertices *Buffer[model.Vertex]
	Indices  *Buffer[uint32]
}

func (e *SceneEntry) release(drv Driver) {
	e.Vertices.Release(drv)
	e.Indices.Release(drv)
}

// Scene keeps the models shown by the renderer together with their vertex and index buffers. Models are identified
// by name.
type Scene struct {
	drv     Driver
	entries []*SceneEntry
}

func NewScene(drv Driver) *Scene {
	return &Scene{drv: drv}
}

// Add validates the model's mesh and uploads vertices and indices into host visible buffers.
func (s *Scene) Add(m *model.Model) error {
	if _, err := s.Find(m.Name); err == nil {
		return fmt.Errorf("%w: model %q is already part of the scene", ErrContract, m.Name)
	}
	if err := m.Mesh.Validate(); err != nil {
		return fmt.Errorf("%w: model %q: %w", ErrContract, m.Name, err)
	}

	vertices, err := NewBufferBuilder[model.Vertex](s.drv).Exclusive().Usage(vertexUsage).Build(m.Mesh.Vertices)
	if err != nil {
		return fmt.Errorf("vertex buffer of %q: %w", m.Name, err)
	}
	indices, err := NewBufferBuilder[uint32](s.drv).Exclusive().Usage(indexUsage).Build(m.Mesh.Indices)
	if err != nil {
		vertices.Release(s.drv)
		return fmt.Errorf("index buffer of %q: %w", m.Name, err)
	}
	s.entries = append(s.entries, &SceneEntry{Model: m, Vertices: vertices, Indices: indices})
	logging.Debugf("Added model %q with %d triangles to the scene", m.Name, m.Mesh.TriangleCount())
	return nil
}

func (s *Scene) Find(name string) (*SceneEntry, error) {
	for i := range s.entries {
		if s.entries[i].Model.Name == name {
			return s.entries[i], nil
		}
	}
	return nil, fmt.Errorf("model '%s' not found", name)
}

// Remove drops a model and releases its buffers once the device is idle.
func (s *Scene) Remove(name string) error {
	for i, e := range s.entries {
		if e.Model.Name != name {
			continue
		}
		if err := s.drv.WaitIdle(); err != nil {
			return apiError("vkDeviceWaitIdle", err)
		}
		e.release(s.drv)
		s.entries = append(s.entries[:i], s.entries[i+1:]...)
		return nil
	}
	return fmt.Errorf("model '%s' not found", name)
}

// Clear removes all models after waiting for the device to become idle once.
func (s *Scene) Clear() error {
	if len(s.entries) == 0 {
		return nil
	}
	if err := s.drv.WaitIdle(); err != nil {
		return apiError("vkDeviceWaitIdle", err)
	}
	s.Release(s.drv)
	return nil
}

func (s *Scene) Entries() []*SceneEntry {
	return append([]*SceneEntry(nil), s.entries...)
}

func (s *Scene) Len() int {
	return len(s.entries)
}

// Release lets an Arena own the scene, the device has to be idle.
func (s *Scene) Release(drv Driver) {
	if len(s.entries) > 0 {
		logging.Debugf("Releasing %d models left in the scene", len(s.entries))
	}
	for _, e := range s.entries {
		e.release(drv)
	}
	s.entries = nil
}
