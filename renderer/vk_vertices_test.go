package renderer

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type coloredVertex struct {
	Pos   [4]float32
	Color [4]float32
}

func TestVertexLayoutLocations(t *testing.T) {
	layout := NewVertexData[coloredVertex]().
		WithTopology(vk.PrimitiveTopologyTriangleList).
		AddVec4Attribute(16).
		AddVec4Attribute(0)

	attrs := layout.Attributes()
	require.Len(t, attrs, 2)
	assert.Equal(t, uint32(0), attrs[0].Location)
	assert.Equal(t, uint32(16), attrs[0].Offset)
	assert.Equal(t, uint32(1), attrs[1].Location)
	assert.Equal(t, uint32(0), attrs[1].Offset)
	for _, a := range attrs {
		assert.Equal(t, uint32(0), a.Binding)
		assert.Equal(t, vk.FormatR32g32b32a32Sfloat, a.Format)
	}

	binding := layout.Binding()
	assert.Equal(t, uint32(0), binding.Binding)
	assert.Equal(t, uint32(32), binding.Stride)
	assert.Equal(t, vk.VertexInputRateVertex, binding.InputRate)
	assert.Equal(t, uint32(32), layout.Stride())
}

func TestVertexLayoutFormats(t *testing.T) {
	layout := NewInstancedData[coloredVertex]().
		AddVec4Attribute(0).
		AddVec3Attribute(0).
		AddVec2Attribute(0).
		AddFloatAttribute(0).
		AddIntAttribute(0).
		AddIvec2Attribute(0).
		AddIvec3Attribute(0).
		AddIvec4Attribute(0).
		AddAttribute(vk.FormatR8g8b8a8Unorm, 0)

	want := []vk.Format{
		vk.FormatR32g32b32a32Sfloat,
		vk.FormatR32g32b32Sfloat,
		vk.FormatR32g32Sfloat,
		vk.FormatR32Sfloat,
		vk.FormatR32Uint,
		vk.FormatR32g32Uint,
		vk.FormatR32g32b32Uint,
		vk.FormatR32g32b32a32Uint,
		vk.FormatR8g8b8a8Unorm,
	}
	attrs := layout.Attributes()
	require.Len(t, attrs, len(want))
	for i := range want {
		assert.Equal(t, want[i], attrs[i].Format, "attribute %d", i)
		assert.Equal(t, uint32(i), attrs[i].Location)
	}
	assert.Equal(t, vk.VertexInputRateInstance, layout.InputRate())
}

func TestVertexInputStateReflectsAdditions(t *testing.T) {
	layout := NewVertexData[coloredVertex]().AddVec4Attribute(0)
	before := layout.VertexInputState()
	layout.AddVec4Attribute(16)
	after := layout.VertexInputState()

	assert.Equal(t, uint32(1), before.VertexAttributeDescriptionCount)
	assert.Len(t, before.PVertexAttributeDescriptions, 1, "earlier views are not altered")
	assert.Equal(t, uint32(2), after.VertexAttributeDescriptionCount)
	assert.Len(t, after.PVertexAttributeDescriptions, 2)
	assert.Equal(t, uint32(1), after.VertexBindingDescriptionCount)
	assert.Equal(t, []vk.VertexInputBindingDescription{layout.Binding()}, after.PVertexBindingDescriptions)
	assert.Equal(t, vk.StructureTypePipelineVertexInputStateCreateInfo, after.SType)

	attrs := layout.Attributes()
	attrs[0].Offset = 99
	assert.Equal(t, uint32(0), layout.Attributes()[0].Offset, "Attributes returns a copy")
}

func TestInputAssemblyNeedsTopology(t *testing.T) {
	layout := NewVertexData[coloredVertex]()
	_, err := layout.InputAssemblyState()
	require.ErrorIs(t, err, ErrMissingConfig)

	state, err := layout.WithTopology(vk.PrimitiveTopologyLineStrip).InputAssemblyState()
	require.NoError(t, err)
	assert.Equal(t, vk.PrimitiveTopologyLineStrip, state.Topology)
	assert.Equal(t, vk.Bool32(vk.False), state.PrimitiveRestartEnable)
}
