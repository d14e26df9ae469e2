package vulkan

import (
	vk "github.com/goki/vulkan"
)

// RenderTarget is the set of attachments one frame renders into.
type RenderTarget struct {
	ColorImage  vk.Image
	ColorView   vk.ImageView
	DepthImage  vk.Image
	DepthView   vk.ImageView
	DepthFormat vk.Format
	Extent      vk.Extent2D
	ClearColor  [4]float32
}

// CommandRecorder is the subset of command buffer recording the frame logic
// needs. vkRecorder records into a real command buffer.
type CommandRecorder interface {
	// TransitionToAttachment moves the color and depth images from undefined
	// to their attachment optimal layouts.
	TransitionToAttachment(target RenderTarget)
	// TransitionToPresent moves the swapchain image from color attachment optimal to present.
	TransitionToPresent(image vk.Image)
	BindDescriptorSets(bindPoint vk.PipelineBindPoint, layout vk.PipelineLayout, sets []vk.DescriptorSet)
	// BeginRendering clears the attachments when clear is set and loads them otherwise.
	BeginRendering(target RenderTarget, clear bool)
	EndRendering()
	SetViewportScissor(extent vk.Extent2D)
	BindPipeline(bindPoint vk.PipelineBindPoint, pipeline vk.Pipeline)
	Draw(vertexCount, instanceCount uint32)
	Dispatch(x, y, z uint32)
	// ComputeBarrier makes compute shader writes visible to later compute and vertex work.
	ComputeBarrier()
	CopyBuffer(src, dst vk.Buffer, size vk.DeviceSize)
}

type vkRecorder struct {
	cmd       vk.CommandBuffer
	rendering DynamicRendering
}

func hasStencil(format vk.Format) bool {
	return format == vk.FormatD32SfloatS8Uint || format == vk.FormatD24UnormS8Uint
}

func subresource(aspect vk.ImageAspectFlags) vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{
		AspectMask:     aspect,
		BaseMipLevel:   0,
		LevelCount:     1,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
}

func (r *vkRecorder) imageBarrier(image vk.Image, aspect vk.ImageAspectFlags, oldLayout, newLayout vk.ImageLayout, srcAccess, dstAccess vk.AccessFlags, srcStage, dstStage vk.PipelineStageFlags) {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       srcAccess,
		DstAccessMask:       dstAccess,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange:    subresource(aspect),
	}
	vk.CmdPipelineBarrier(r.cmd, srcStage, dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}

func (r *vkRecorder) TransitionToAttachment(target RenderTarget) {
	r.imageBarrier(target.ColorImage, vk.ImageAspectFlags(vk.ImageAspectColorBit),
		vk.ImageLayoutUndefined, vk.ImageLayoutColorAttachmentOptimal,
		0, vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
		vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit), vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit))

	aspect := vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	if hasStencil(target.DepthFormat) {
		aspect |= vk.ImageAspectFlags(vk.ImageAspectStencilBit)
	}
	r.imageBarrier(target.DepthImage, aspect,
		vk.ImageLayoutUndefined, vk.ImageLayoutDepthStencilAttachmentOptimal,
		0, vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit)|vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit),
		vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit)|vk.PipelineStageFlags(vk.PipelineStageLateFragmentTestsBit))
}

func (r *vkRecorder) TransitionToPresent(image vk.Image) {
	r.imageBarrier(image, vk.ImageAspectFlags(vk.ImageAspectColorBit),
		vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutPresentSrc,
		vk.AccessFlags(vk.AccessColorAttachmentWriteBit), 0,
		vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit), vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit))
}

func (r *vkRecorder) BindDescriptorSets(bindPoint vk.PipelineBindPoint, layout vk.PipelineLayout, sets []vk.DescriptorSet) {
	if len(sets) == 0 {
		return
	}
	vk.CmdBindDescriptorSets(r.cmd, bindPoint, layout, 0, uint32(len(sets)), sets, 0, nil)
}

// renderingInfo describes one color and one depth attachment covering target.
func renderingInfo(target RenderTarget, clear bool) vk.RenderingInfo {
	loadOp := vk.AttachmentLoadOpLoad
	if clear {
		loadOp = vk.AttachmentLoadOpClear
	}
	colorAttachment := vk.RenderingAttachmentInfo{
		SType:       vk.StructureTypeRenderingAttachmentInfo,
		ImageView:   target.ColorView,
		ImageLayout: vk.ImageLayoutColorAttachmentOptimal,
		LoadOp:      loadOp,
		StoreOp:     vk.AttachmentStoreOpStore,
		ClearValue:  vk.NewClearValue(target.ClearColor[:]),
	}
	depthAttachment := vk.RenderingAttachmentInfo{
		SType:       vk.StructureTypeRenderingAttachmentInfo,
		ImageView:   target.DepthView,
		ImageLayout: vk.ImageLayoutDepthStencilAttachmentOptimal,
		LoadOp:      loadOp,
		StoreOp:     vk.AttachmentStoreOpStore,
		ClearValue:  vk.NewClearDepthStencil(1.0, 0),
	}
	return vk.RenderingInfo{
		SType: vk.StructureTypeRenderingInfo,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: target.Extent,
		},
		LayerCount:           1,
		ColorAttachmentCount: 1,
		PColorAttachments:    []vk.RenderingAttachmentInfo{colorAttachment},
		// pDepthAttachment points at a single struct
		PDepthAttachment: []vk.RenderingAttachmentInfo{depthAttachment},
	}
}

func (r *vkRecorder) BeginRendering(target RenderTarget, clear bool) {
	info := renderingInfo(target, clear)
	r.rendering.CmdBeginRendering(r.cmd, &info)
}

func (r *vkRecorder) EndRendering() {
	r.rendering.CmdEndRendering(r.cmd)
}

func (r *vkRecorder) SetViewportScissor(extent vk.Extent2D) {
	viewport := vk.Viewport{
		X:        0.0,
		Y:        0.0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: extent,
	}
	vk.CmdSetViewport(r.cmd, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(r.cmd, 0, 1, []vk.Rect2D{scissor})
}

func (r *vkRecorder) BindPipeline(bindPoint vk.PipelineBindPoint, pipeline vk.Pipeline) {
	vk.CmdBindPipeline(r.cmd, bindPoint, pipeline)
}

func (r *vkRecorder) Draw(vertexCount, instanceCount uint32) {
	vk.CmdDraw(r.cmd, vertexCount, instanceCount, 0, 0)
}

func (r *vkRecorder) Dispatch(x, y, z uint32) {
	vk.CmdDispatch(r.cmd, x, y, z)
}

func (r *vkRecorder) ComputeBarrier() {
	barrier := vk.MemoryBarrier{
		SType:         vk.StructureTypeMemoryBarrier,
		SrcAccessMask: vk.AccessFlags(vk.AccessShaderWriteBit),
		DstAccessMask: vk.AccessFlags(vk.AccessShaderReadBit),
	}
	vk.CmdPipelineBarrier(r.cmd,
		vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
		vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit)|vk.PipelineStageFlags(vk.PipelineStageVertexShaderBit)|vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		0, 1, []vk.MemoryBarrier{barrier}, 0, nil, 0, nil)
}

func (r *vkRecorder) CopyBuffer(src, dst vk.Buffer, size vk.DeviceSize) {
	region := vk.BufferCopy{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      size,
	}
	vk.CmdCopyBuffer(r.cmd, src, dst, 1, []vk.BufferCopy{region})
}
