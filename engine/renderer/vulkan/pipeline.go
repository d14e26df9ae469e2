package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/wreck/engine/assets/loaders"
	"github.com/spaghettifunk/wreck/engine/core"
)

type PipelineType int

const (
	PipelineTypeNone PipelineType = iota
	PipelineTypeGraphics
	PipelineTypeCompute
)

func (t PipelineType) String() string {
	switch t {
	case PipelineTypeGraphics:
		return "graphics"
	case PipelineTypeCompute:
		return "compute"
	default:
		return "none"
	}
}

func (t PipelineType) bindPoint() vk.PipelineBindPoint {
	if t == PipelineTypeCompute {
		return vk.PipelineBindPointCompute
	}
	return vk.PipelineBindPointGraphics
}

// ShaderPaths point at compiled SPIR-V files, relative to the shader directory.
type ShaderPaths struct {
	Vertex   string
	Fragment string
	Compute  string
}

// PipelineNode declares one pipeline. Graphics nodes need Vertex, Fragment and
// Draw, compute nodes need Compute and Dispatch.
type PipelineNode struct {
	Name     string
	Type     PipelineType
	Shaders  ShaderPaths
	Draw     DrawCallback
	Dispatch DispatchCallback
}

/**
 * @brief Holds a Vulkan pipeline, its shader stages and the layout it was built against.
 */
type VulkanPipeline struct {
	PipelineNode
	ID core.Identifier
	/** @brief The internal pipeline handle. */
	Handle vk.Pipeline
	/** @brief The pipeline layout. Owned by the binding context. */
	PipelineLayout vk.PipelineLayout
	Stages         []*VulkanShaderStage
}

// PipelineConfig is everything pipeline creation needs from the other contexts.
type PipelineConfig struct {
	Layout      vk.PipelineLayout
	ColorFormat vk.Format
	DepthFormat vk.Format
	ShaderDir   string
}

type PipelineContext struct {
	context   *VulkanContext
	messenger *core.Messenger
	reader    *loaders.ShaderReader
	config    PipelineConfig

	Pipelines []*VulkanPipeline
}

func validatePipelineNodes(nodes []PipelineNode, messenger *core.Messenger) ([]PipelineNode, error) {
	valid := make([]PipelineNode, 0, len(nodes))
	for i, node := range nodes {
		var err error
		switch node.Type {
		case PipelineTypeGraphics:
			switch {
			case node.Shaders.Vertex == "" || node.Shaders.Fragment == "" || node.Shaders.Compute != "":
				err = messenger.Error(core.CodeInvalidGraphicsShaders, "graphics node %d `%s` needs vertex and fragment shaders and no compute shader", i, node.Name)
			case node.Draw == nil:
				err = messenger.Error(core.CodeMissingDrawCallback, "graphics node %d `%s` has no draw callback", i, node.Name)
			default:
				valid = append(valid, node)
				continue
			}
		case PipelineTypeCompute:
			switch {
			case node.Shaders.Compute == "" || node.Shaders.Vertex != "" || node.Shaders.Fragment != "":
				err = messenger.Error(core.CodeInvalidComputeShaders, "compute node %d `%s` needs a compute shader and nothing else", i, node.Name)
			case node.Dispatch == nil:
				err = messenger.Error(core.CodeMissingDrawCallback, "compute node %d `%s` has no dispatch callback", i, node.Name)
			default:
				valid = append(valid, node)
				continue
			}
		default:
			err = messenger.Error(core.CodeInvalidPipelineType, "node %d `%s` has invalid type %d", i, node.Name, int(node.Type))
		}
		if err != nil {
			return nil, err
		}
	}
	return valid, nil
}

func NewPipelineContext(context *VulkanContext, config PipelineConfig, nodes []PipelineNode, messenger *core.Messenger) (*PipelineContext, error) {
	if messenger == nil {
		messenger = core.NewMessenger(nil)
	}
	valid, err := validatePipelineNodes(nodes, messenger)
	if err != nil {
		return nil, err
	}

	pc := &PipelineContext{
		context:   context,
		messenger: messenger,
		reader:    loaders.NewShaderReader(),
		config:    config,
	}

	var cleanup cleanupStack
	defer cleanup.run()
	cleanup.push(pc.Destroy)

	for _, node := range valid {
		pipeline := &VulkanPipeline{
			PipelineNode:   node,
			ID:             core.NewIdentifier(node.Name),
			PipelineLayout: config.Layout,
		}
		pc.Pipelines = append(pc.Pipelines, pipeline)

		if node.Type == PipelineTypeGraphics {
			err = pc.createGraphicsPipeline(pipeline)
		} else {
			err = pc.createComputePipeline(pipeline)
		}
		if err != nil {
			return nil, err
		}
		core.LogDebug("%s pipeline %s created", node.Type, pipeline.ID)
	}

	cleanup.release()
	return pc, nil
}

func (pc *PipelineContext) createStage(pipeline *VulkanPipeline, path string, stage vk.ShaderStageFlagBits, entryPoint string) error {
	shaderStage, err := NewShaderStage(pc.context, pc.reader, pc.messenger, resolveShaderPath(pc.config.ShaderDir, path), stage, entryPoint)
	if err != nil {
		return err
	}
	pipeline.Stages = append(pipeline.Stages, shaderStage)
	return nil
}

func (pc *PipelineContext) createGraphicsPipeline(pipeline *VulkanPipeline) error {
	if err := pc.createStage(pipeline, pipeline.Shaders.Vertex, vk.ShaderStageVertexBit, VertexEntryPoint); err != nil {
		return err
	}
	if err := pc.createStage(pipeline, pipeline.Shaders.Fragment, vk.ShaderStageFragmentBit, FragmentEntryPoint); err != nil {
		return err
	}
	stages := make([]vk.PipelineShaderStageCreateInfo, len(pipeline.Stages))
	for i, s := range pipeline.Stages {
		stages[i] = s.ShaderStageCreateInfo
	}

	// Vertex data is pulled from storage buffers, there are no vertex attributes.
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}

	// Viewport and scissor are dynamic.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                vk.CullModeFlags(vk.CullModeNone),
		FrontFace:               vk.FrontFaceClockwise,
		DepthBiasEnable:         vk.False,
	}

	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:  vk.False,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1.0,
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:       vk.True,
		DepthWriteEnable:      vk.True,
		DepthCompareOp:        vk.CompareOpLessOrEqual,
		DepthBoundsTestEnable: vk.False,
		StencilTestEnable:     vk.False,
	}

	colorBlendAttachmentState := vk.PipelineColorBlendAttachmentState{
		BlendEnable: vk.False,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}

	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachmentState},
	}

	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		Layout:              pipeline.PipelineLayout,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	renderingCreateInfo := pipelineRendering(pc.config)
	chainPipelineRendering(&pipelineCreateInfo, &renderingCreateInfo)
	defer renderingCreateInfo.Free()

	pPipelines := make([]vk.Pipeline, 1)
	return pc.context.Locks.SafeCall(PipelineManagement, func() error {
		if res := vk.CreateGraphicsPipelines(pc.context.Device.LogicalDevice, vk.NullPipelineCache, 1,
			[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo}, pc.context.Allocator, pPipelines); res != vk.Success {
			return pc.messenger.Fail(core.CodeCreateGraphicsPipeline, "failed to create graphics pipeline `%s`: %s", pipeline.Name, VulkanResultString(res, false))
		}
		pipeline.Handle = pPipelines[0]
		return nil
	})
}

// pipelineRendering lists the attachment formats that replace a render pass.
func pipelineRendering(config PipelineConfig) vk.PipelineRenderingCreateInfo {
	return vk.PipelineRenderingCreateInfo{
		SType:                   vk.StructureTypePipelineRenderingCreateInfo,
		ColorAttachmentCount:    1,
		PColorAttachmentFormats: []vk.Format{config.ColorFormat},
		DepthAttachmentFormat:   config.DepthFormat,
	}
}

// chainPipelineRendering allocates the C copy of rendering and links it as
// the pNext of createInfo. The caller frees rendering after pipeline creation.
func chainPipelineRendering(createInfo *vk.GraphicsPipelineCreateInfo, rendering *vk.PipelineRenderingCreateInfo) {
	ref, _ := rendering.PassRef()
	createInfo.PNext = unsafe.Pointer(ref)
}

func (pc *PipelineContext) createComputePipeline(pipeline *VulkanPipeline) error {
	if err := pc.createStage(pipeline, pipeline.Shaders.Compute, vk.ShaderStageComputeBit, ComputeEntryPoint); err != nil {
		return err
	}

	pipelineCreateInfo := vk.ComputePipelineCreateInfo{
		SType:              vk.StructureTypeComputePipelineCreateInfo,
		Stage:              pipeline.Stages[0].ShaderStageCreateInfo,
		Layout:             pipeline.PipelineLayout,
		BasePipelineHandle: vk.NullPipeline,
		BasePipelineIndex:  -1,
	}

	pPipelines := make([]vk.Pipeline, 1)
	return pc.context.Locks.SafeCall(PipelineManagement, func() error {
		if res := vk.CreateComputePipelines(pc.context.Device.LogicalDevice, vk.NullPipelineCache, 1,
			[]vk.ComputePipelineCreateInfo{pipelineCreateInfo}, pc.context.Allocator, pPipelines); res != vk.Success {
			return pc.messenger.Fail(core.CodeCreateComputePipeline, "failed to create compute pipeline `%s`: %s", pipeline.Name, VulkanResultString(res, false))
		}
		pipeline.Handle = pPipelines[0]
		return nil
	})
}

// Destroy releases every pipeline and shader module created so far.
func (pc *PipelineContext) Destroy() {
	for _, pipeline := range pc.Pipelines {
		pipeline.Destroy(pc.context)
	}
	pc.Pipelines = nil
}

func (pipeline *VulkanPipeline) Destroy(context *VulkanContext) {
	if pipeline.Handle != nil {
		context.Locks.SafeCall(PipelineManagement, func() error {
			vk.DestroyPipeline(context.Device.LogicalDevice, pipeline.Handle, context.Allocator)
			return nil
		})
		pipeline.Handle = nil
	}
	for _, stage := range pipeline.Stages {
		stage.Destroy(context)
	}
	pipeline.Stages = nil
}
