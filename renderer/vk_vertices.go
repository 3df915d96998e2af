package renderer

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// VertexLayout describes how records of type V are fed from binding 0 into the vertex shader. Attributes are
// assigned shader locations 0, 1, 2, ... in the order they are added.
type VertexLayout[V any] struct {
	binding     vk.VertexInputBindingDescription
	attributes  []vk.VertexInputAttributeDescription
	topology    vk.PrimitiveTopology
	topologySet bool
}

// NewVertexData advances binding 0 once per vertex.
func NewVertexData[V any]() *VertexLayout[V] {
	return newVertexLayout[V](vk.VertexInputRateVertex)
}

// NewInstancedData advances binding 0 once per instance.
func NewInstancedData[V any]() *VertexLayout[V] {
	return newVertexLayout[V](vk.VertexInputRateInstance)
}

func newVertexLayout[V any](rate vk.VertexInputRate) *VertexLayout[V] {
	var v V
	return &VertexLayout[V]{
		binding: vk.VertexInputBindingDescription{
			Binding:   0,
			Stride:    uint32(unsafe.Sizeof(v)),
			InputRate: rate,
		},
	}
}

func (l *VertexLayout[V]) WithTopology(topology vk.PrimitiveTopology) *VertexLayout[V] {
	l.topology = topology
	l.topologySet = true
	return l
}

func (l *VertexLayout[V]) AddVec4Attribute(offset uint32) *VertexLayout[V] {
	return l.AddAttribute(vk.FormatR32g32b32a32Sfloat, offset)
}

func (l *VertexLayout[V]) AddVec3Attribute(offset uint32) *VertexLayout[V] {
	return l.AddAttribute(vk.FormatR32g32b32Sfloat, offset)
}

func (l *VertexLayout[V]) AddVec2Attribute(offset uint32) *VertexLayout[V] {
	return l.AddAttribute(vk.FormatR32g32Sfloat, offset)
}

func (l *VertexLayout[V]) AddFloatAttribute(offset uint32) *VertexLayout[V] {
	return l.AddAttribute(vk.FormatR32Sfloat, offset)
}

func (l *VertexLayout[V]) AddIntAttribute(offset uint32) *VertexLayout[V] {
	return l.AddAttribute(vk.FormatR32Uint, offset)
}

func (l *VertexLayout[V]) AddIvec2Attribute(offset uint32) *VertexLayout[V] {
	return l.AddAttribute(vk.FormatR32g32Uint, offset)
}

func (l *VertexLayout[V]) AddIvec3Attribute(offset uint32) *VertexLayout[V] {
	return l.AddAttribute(vk.FormatR32g32b32Uint, offset)
}

func (l *VertexLayout[V]) AddIvec4Attribute(offset uint32) *VertexLayout[V] {
	return l.AddAttribute(vk.FormatR32g32b32a32Uint, offset)
}

// AddAttribute appends an attribute of any format at the next free location.
func (l *VertexLayout[V]) AddAttribute(format vk.Format, offset uint32) *VertexLayout[V] {
	l.attributes = append(l.attributes, vk.VertexInputAttributeDescription{
		Location: uint32(len(l.attributes)),
		Binding:  0,
		Format:   format,
		Offset:   offset,
	})
	return l
}

func (l *VertexLayout[V]) Binding() vk.VertexInputBindingDescription {
	return l.binding
}

// Attributes returns a copy of the attribute descriptions in location order.
func (l *VertexLayout[V]) Attributes() []vk.VertexInputAttributeDescription {
	attrs := make([]vk.VertexInputAttributeDescription, len(l.attributes))
	copy(attrs, l.attributes)
	return attrs
}

func (l *VertexLayout[V]) Stride() uint32 {
	return l.binding.Stride
}

func (l *VertexLayout[V]) InputRate() vk.VertexInputRate {
	return l.binding.InputRate
}

// VertexInputState reflects every attribute added so far. The returned struct references fresh copies, later
// additions do not alter it.
func (l *VertexLayout[V]) VertexInputState() vk.PipelineVertexInputStateCreateInfo {
	attrs := l.Attributes()
	return vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		PNext:                           nil,
		Flags:                           0,
		VertexBindingDescriptionCount:   1,
		PVertexBindingDescriptions:      []vk.VertexInputBindingDescription{l.binding},
		VertexAttributeDescriptionCount: uint32(len(attrs)),
		PVertexAttributeDescriptions:    attrs,
	}
}

// InputAssemblyState fails if no topology was chosen, pipelines built from this layout need an explicit one.
func (l *VertexLayout[V]) InputAssemblyState() (vk.PipelineInputAssemblyStateCreateInfo, error) {
	if !l.topologySet {
		return vk.PipelineInputAssemblyStateCreateInfo{}, fmt.Errorf("%w: vertex layout topology not set", ErrMissingConfig)
	}
	return vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		PNext:                  nil,
		Flags:                  0,
		Topology:               l.topology,
		PrimitiveRestartEnable: vk.False,
	}, nil
}
