package vulkan

import (
	vk "github.com/goki/vulkan"
)

// FrameContext records the pipeline nodes of one frame. It tracks the bound
// pipeline so graphics and compute nodes can interleave in one command buffer,
// beginning and ending dynamic rendering only at the type transitions.
type FrameContext struct {
	recorder CommandRecorder
	target   RenderTarget
	layout   vk.PipelineLayout
	sets     []vk.DescriptorSet

	bound     uint32
	rendering bool
	// number of rendering passes begun, the first one clears
	passes      int
	computeSets bool
}

func NewFrameContext(recorder CommandRecorder, target RenderTarget, layout vk.PipelineLayout, sets []vk.DescriptorSet) *FrameContext {
	return &FrameContext{
		recorder: recorder,
		target:   target,
		layout:   layout,
		sets:     sets,
		bound:    noPipelineBound,
	}
}

// Begin transitions the image for rendering and binds the descriptor sets for graphics.
func (fc *FrameContext) Begin() {
	fc.recorder.TransitionToAttachment(fc.target)
	fc.recorder.BindDescriptorSets(vk.PipelineBindPointGraphics, fc.layout, fc.sets)
}

func (fc *FrameContext) beginPass() {
	fc.recorder.BeginRendering(fc.target, fc.passes == 0)
	fc.recorder.SetViewportScissor(fc.target.Extent)
	fc.rendering = true
	fc.passes++
}

func (fc *FrameContext) endPass() {
	fc.recorder.EndRendering()
	fc.rendering = false
}

// bind makes pipeline index current, opening or closing the rendering pass
// when the pipeline type changes.
func (fc *FrameContext) bind(index uint32, pipeline *VulkanPipeline) {
	if fc.bound == index {
		return
	}
	switch pipeline.Type {
	case PipelineTypeGraphics:
		if !fc.rendering {
			fc.beginPass()
		}
	case PipelineTypeCompute:
		if fc.rendering {
			fc.endPass()
		}
		if !fc.computeSets {
			fc.recorder.BindDescriptorSets(vk.PipelineBindPointCompute, fc.layout, fc.sets)
			fc.computeSets = true
		}
	}
	fc.recorder.BindPipeline(pipeline.Type.bindPoint(), pipeline.Handle)
	fc.bound = index
}

// Record runs the callback of one node and records its work.
func (fc *FrameContext) Record(index uint32, pipeline *VulkanPipeline, state *FrameState) {
	switch pipeline.Type {
	case PipelineTypeGraphics:
		draws := pipeline.Draw.Draws(state)
		fc.bind(index, pipeline)
		for _, draw := range draws {
			fc.recorder.Draw(draw.VertexCount, draw.InstanceCount)
		}
	case PipelineTypeCompute:
		dispatches := pipeline.Dispatch.Dispatches(state)
		fc.bind(index, pipeline)
		for _, dispatch := range dispatches {
			fc.recorder.Dispatch(dispatch.X, dispatch.Y, dispatch.Z)
			fc.recorder.ComputeBarrier()
		}
	}
}

// End closes any open pass and transitions the image for presentation. A frame
// without graphics nodes still gets one pass so the image is cleared.
func (fc *FrameContext) End() {
	if fc.passes == 0 {
		fc.beginPass()
	}
	if fc.rendering {
		fc.endPass()
	}
	fc.recorder.TransitionToPresent(fc.target.ColorImage)
}

// RecordFrame records every pipeline in declaration order.
func RecordFrame(fc *FrameContext, pipelines []*VulkanPipeline, state *FrameState) {
	fc.Begin()
	for i, pipeline := range pipelines {
		fc.Record(uint32(i), pipeline, state)
	}
	fc.End()
}
