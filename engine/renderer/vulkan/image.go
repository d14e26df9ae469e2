package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/wreck/engine/core"
)

type VulkanImage struct {
	Handle vk.Image
	View   vk.ImageView
	Format vk.Format
	Width  uint32
	Height uint32
}

func depthImageInfo(format vk.Format, width, height uint32) vk.ImageCreateInfo {
	return vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    format,
		Extent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
}

func NewImage(context *VulkanContext, messenger *core.Messenger, info vk.ImageCreateInfo) (*VulkanImage, error) {
	image := &VulkanImage{
		Format: info.Format,
		Width:  info.Extent.Width,
		Height: info.Extent.Height,
	}
	if res := vk.CreateImage(context.Device.LogicalDevice, &info, context.Allocator, &image.Handle); res != vk.Success {
		return nil, messenger.Fail(core.CodeCreateImage, "failed to create %dx%d image: %s", image.Width, image.Height, VulkanResultString(res, false))
	}
	return image, nil
}

func (vi *VulkanImage) MemoryRequirement(context *VulkanContext) MemoryRequirement {
	var reqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(context.Device.LogicalDevice, vi.Handle, &reqs)
	return memoryRequirementOf(reqs)
}

func (vi *VulkanImage) Bind(context *VulkanContext, messenger *core.Messenger, memory vk.DeviceMemory, offset vk.DeviceSize) error {
	if res := vk.BindImageMemory(context.Device.LogicalDevice, vi.Handle, memory, offset); res != vk.Success {
		return messenger.Fail(core.CodeBindImageMemory, "failed to bind image memory: %s", VulkanResultString(res, false))
	}
	return nil
}

func newImageView(context *VulkanContext, messenger *core.Messenger, image vk.Image, format vk.Format, aspect vk.ImageAspectFlagBits) (vk.ImageView, error) {
	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(aspect),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	var view vk.ImageView
	if res := vk.CreateImageView(context.Device.LogicalDevice, &viewInfo, context.Allocator, &view); res != vk.Success {
		return nil, messenger.Fail(core.CodeCreateImageView, "failed to create image view: %s", VulkanResultString(res, false))
	}
	return view, nil
}

func (vi *VulkanImage) CreateView(context *VulkanContext, messenger *core.Messenger, aspect vk.ImageAspectFlagBits) error {
	view, err := newImageView(context, messenger, vi.Handle, vi.Format, aspect)
	if err != nil {
		return err
	}
	vi.View = view
	return nil
}

func (vi *VulkanImage) Destroy(context *VulkanContext) {
	if vi.View != nil {
		vk.DestroyImageView(context.Device.LogicalDevice, vi.View, context.Allocator)
		vi.View = nil
	}
	if vi.Handle != nil {
		vk.DestroyImage(context.Device.LogicalDevice, vi.Handle, context.Allocator)
		vi.Handle = nil
	}
}
