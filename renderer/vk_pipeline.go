package renderer

import (
	"fmt"

	vk "github.com/goki/vulkan"

	com "GPU_render_layer/common"
)

// Pipeline is a graphics pipeline together with its layout.
type Pipeline struct {
	layout vk.PipelineLayout
	handle vk.Pipeline
}

func (p *Pipeline) Handle() vk.Pipeline       { return p.handle }
func (p *Pipeline) Layout() vk.PipelineLayout { return p.layout }

// Release destroys pipeline and layout, the device has to be idle.
func (p *Pipeline) Release(drv Driver) {
	if p.handle != nil {
		vk.DestroyPipeline(drv.Handle(), p.handle, nil)
		p.handle = nil
	}
	if p.layout != nil {
		vk.DestroyPipelineLayout(drv.Handle(), p.layout, nil)
		p.layout = nil
	}
}

// NewGraphicsPipeline creates a pipeline for subpass 0 of renderPass from the shader stages and the vertex layout.
// Viewport and scissor are dynamic, everything else is fixed: filled polygons without culling, no blending, no depth
// test. No descriptor sets or push constants are used.
func NewGraphicsPipeline[V any](drv Driver, stages *ShaderStages, vertices *VertexLayout[V], renderPass vk.RenderPass) (*Pipeline, error) {
	layoutInfo := vk.PipelineLayoutCreateInfo{
		SType: vk.StructureTypePipelineLayoutCreateInfo,
	}
	layout, err := com.VkCreatePipelineLayout(drv.Handle(), &layoutInfo, nil)
	if err != nil {
		return nil, apiError("vkCreatePipelineLayout", err)
	}
	p := &Pipeline{layout: layout}

	info, err := graphicsPipelineInfo(stages, vertices, layout, renderPass)
	if err != nil {
		p.Release(drv)
		return nil, err
	}
	pipelines, err := com.VkCreateGraphicsPipelines(drv.Handle(), nil, []vk.GraphicsPipelineCreateInfo{info}, nil)
	if err != nil {
		p.Release(drv)
		return nil, apiError("vkCreateGraphicsPipelines", err)
	}
	p.handle = pipelines[0]
	return p, nil
}

var dynamicStates = []vk.DynamicState{
	vk.DynamicStateViewport,
	vk.DynamicStateScissor,
}

func graphicsPipelineInfo[V any](stages *ShaderStages, vertices *VertexLayout[V], layout vk.PipelineLayout, renderPass vk.RenderPass) (vk.GraphicsPipelineCreateInfo, error) {
	if stages.Len() == 0 {
		return vk.GraphicsPipelineCreateInfo{}, fmt.Errorf("%w: pipeline without shader stages", ErrMissingConfig)
	}
	inputAssemblyInfo, err := vertices.InputAssemblyState()
	if err != nil {
		return vk.GraphicsPipelineCreateInfo{}, err
	}
	vertexInputInfo := vertices.VertexInputState()
	shaderStages := stages.CreateInfos()

	dynamicStateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}
	// Viewport and scissor themselves are set while recording
	viewportStateInfo := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}
	rasterizerInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		CullMode:                vk.CullModeFlags(vk.CullModeNone),
		FrontFace:               vk.FrontFaceClockwise,
		DepthBiasEnable:         vk.False,
		LineWidth:               1.0,
	}
	multisamplingInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples:  vk.SampleCount1Bit,
		SampleShadingEnable:   vk.False,
		MinSampleShading:      1.0,
		AlphaToCoverageEnable: vk.False,
		AlphaToOneEnable:      vk.False,
	}
	colorBlendAttachmentInfo := vk.PipelineColorBlendAttachmentState{
		BlendEnable:         vk.False,
		SrcColorBlendFactor: vk.BlendFactorOne,
		DstColorBlendFactor: vk.BlendFactorZero,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorOne,
		DstAlphaBlendFactor: vk.BlendFactorZero,
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask:      vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
	}
	colorBlendingInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachmentInfo},
	}

	return vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(shaderStages)),
		PStages:             shaderStages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssemblyInfo,
		PViewportState:      &viewportStateInfo,
		PRasterizationState: &rasterizerInfo,
		PMultisampleState:   &multisamplingInfo,
		PDepthStencilState:  nil,
		PColorBlendState:    &colorBlendingInfo,
		PDynamicState:       &dynamicStateInfo,
		Layout:              layout,
		RenderPass:          renderPass,
		Subpass:             0,
		BasePipelineIndex:   -1,
	}, nil
}
