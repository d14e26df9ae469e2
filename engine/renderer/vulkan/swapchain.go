package vulkan

import (
	"math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/wreck/engine/core"
	wmath "github.com/spaghettifunk/wreck/engine/math"
)

// WindowHost is the part of the platform layer the screen needs.
type WindowHost interface {
	PollEvents()
	FramebufferSize() (uint32, uint32)
	LargestVideoMode() (uint32, uint32, error)
}

// Depth formats in order of preference.
var depthFormatCandidates = []vk.Format{
	vk.FormatD32Sfloat,
	vk.FormatD32SfloatS8Uint,
	vk.FormatD24UnormS8Uint,
}

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

type swapchainPlan struct {
	Format      vk.SurfaceFormat
	PresentMode vk.PresentMode
	Extent      vk.Extent2D
	ImageCount  uint32
}

func chooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, format := range formats {
		if format.Format == vk.FormatB8g8r8a8Srgb && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}
	return formats[0]
}

func choosePresentMode(modes []vk.PresentMode) vk.PresentMode {
	for _, mode := range modes {
		if mode == vk.PresentModeMailbox {
			return mode
		}
	}
	return vk.PresentModeFifo
}

// chooseDepthFormat returns the first candidate usable as an optimally tiled depth attachment.
func chooseDepthFormat(query func(vk.Format) vk.FormatProperties, messenger *core.Messenger) (vk.Format, error) {
	required := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)
	for _, format := range depthFormatCandidates {
		if query(format).OptimalTilingFeatures&required == required {
			return format, nil
		}
	}
	return vk.FormatUndefined, messenger.Fail(core.CodeNoDepthFormat, "no depth formats available")
}

// chooseExtent keeps the framebuffer size unless the surface reports a smaller one,
// then clamps to what the surface allows.
func chooseExtent(caps vk.SurfaceCapabilities, width, height uint32) vk.Extent2D {
	extent := vk.Extent2D{Width: width, Height: height}
	if caps.CurrentExtent.Width != math.MaxUint32 {
		extent.Width = wmath.Min(extent.Width, caps.CurrentExtent.Width)
		extent.Height = wmath.Min(extent.Height, caps.CurrentExtent.Height)
	}
	extent.Width = wmath.Clamp(extent.Width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width)
	extent.Height = wmath.Clamp(extent.Height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height)
	return extent
}

func chooseImageCount(caps vk.SurfaceCapabilities, messenger *core.Messenger) (uint32, error) {
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	if count > MAX_SWAPCHAIN_IMAGE_COUNT {
		return 0, messenger.Fail(core.CodeTooManySwapchainImages, "surface needs %d swapchain images, at most %d are supported", count, MAX_SWAPCHAIN_IMAGE_COUNT)
	}
	return count, nil
}

// planSwapchain takes an extent already clamped by chooseExtent.
func planSwapchain(support VulkanSwapchainSupportInfo, extent vk.Extent2D, messenger *core.Messenger) (swapchainPlan, error) {
	if len(support.Formats) == 0 {
		return swapchainPlan{}, messenger.Fail(core.CodeSurfaceFormats, "surface reports no formats")
	}
	count, err := chooseImageCount(support.Capabilities, messenger)
	if err != nil {
		return swapchainPlan{}, err
	}
	return swapchainPlan{
		Format:      chooseSurfaceFormat(support.Formats),
		PresentMode: choosePresentMode(support.PresentModes),
		Extent:      extent,
		ImageCount:  count,
	}, nil
}

// Screen is the swapchain with its views and the shared depth buffer. It is
// destroyed and recreated as a whole on resize.
type Screen struct {
	context   *VulkanContext
	messenger *core.Messenger
	arena     Arena
	host      WindowHost

	support VulkanSwapchainSupportInfo

	Handle      vk.Swapchain
	Format      vk.SurfaceFormat
	PresentMode vk.PresentMode
	Extent      vk.Extent2D
	Images      []vk.Image
	Views       []vk.ImageView

	DepthFormat vk.Format
	Depth       *VulkanImage
	// Sized for the largest monitor so resizes never reallocate it.
	DepthMemory *VramAllocation
}

func NewScreen(context *VulkanContext, arena Arena, host WindowHost, messenger *core.Messenger) (*Screen, error) {
	if messenger == nil {
		messenger = core.NewMessenger(nil)
	}
	s := &Screen{
		context:   context,
		messenger: messenger,
		arena:     arena,
		host:      host,
	}

	var cleanup cleanupStack
	defer cleanup.run()
	cleanup.push(s.Destroy)

	if err := s.querySupport(); err != nil {
		return nil, err
	}
	depthFormat, err := chooseDepthFormat(s.formatProperties, messenger)
	if err != nil {
		return nil, err
	}
	s.DepthFormat = depthFormat

	if err := s.allocateDepthMemory(); err != nil {
		return nil, err
	}
	if err := s.create(); err != nil {
		return nil, err
	}

	cleanup.release()
	return s, nil
}

func (s *Screen) formatProperties(format vk.Format) vk.FormatProperties {
	var props vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(s.context.Device.PhysicalDevice, format, &props)
	props.Deref()
	return props
}

func (s *Screen) querySupport() error {
	physicalDevice := s.context.Device.PhysicalDevice
	surface := s.context.Surface

	if res := vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &s.support.Capabilities); res != vk.Success {
		return s.messenger.Fail(core.CodeSurfaceCapabilities, "failed to query surface capabilities: %s", VulkanResultString(res, false))
	}
	s.support.Capabilities.Deref()
	s.support.Capabilities.CurrentExtent.Deref()
	s.support.Capabilities.MinImageExtent.Deref()
	s.support.Capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil); res != vk.Success {
		return s.messenger.Fail(core.CodeSurfaceFormats, "failed to query surface formats: %s", VulkanResultString(res, false))
	}
	s.support.Formats = make([]vk.SurfaceFormat, formatCount)
	if formatCount > 0 {
		if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, s.support.Formats); res != vk.Success {
			return s.messenger.Fail(core.CodeSurfaceFormats, "failed to query surface formats: %s", VulkanResultString(res, false))
		}
	}
	for i := range s.support.Formats {
		s.support.Formats[i].Deref()
	}

	var modeCount uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &modeCount, nil); res != vk.Success {
		return s.messenger.Fail(core.CodeSurfacePresentModes, "failed to query present modes: %s", VulkanResultString(res, false))
	}
	s.support.PresentModes = make([]vk.PresentMode, modeCount)
	if modeCount > 0 {
		if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &modeCount, s.support.PresentModes); res != vk.Success {
			return s.messenger.Fail(core.CodeSurfacePresentModes, "failed to query present modes: %s", VulkanResultString(res, false))
		}
	}
	return nil
}

func (s *Screen) depthMemoryFlags() (positive, negative vk.MemoryPropertyFlags) {
	positive = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	if s.context.Device.Type == DeviceTypeDiscrete {
		negative = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)
	}
	return positive, negative
}

// allocateDepthMemory sizes the depth allocation from a prototype image at the
// largest video mode of any connected monitor.
func (s *Screen) allocateDepthMemory() error {
	width, height, err := s.host.LargestVideoMode()
	if err != nil {
		return s.messenger.Fail(core.CodeOf(err), "%s", err)
	}
	prototype, err := NewImage(s.context, s.messenger, depthImageInfo(s.DepthFormat, width, height))
	if err != nil {
		return err
	}
	req := prototype.MemoryRequirement(s.context)
	prototype.Destroy(s.context)

	positive, negative := s.depthMemoryFlags()
	s.DepthMemory, err = s.arena.Allocate(AllocationRequest{
		Size:     req.Size,
		TypeBits: req.TypeBits,
		Positive: positive,
		Negative: negative,
	})
	if err != nil {
		return err
	}
	core.LogDebug("depth memory reserved for %dx%d (%d bytes)", width, height, req.Size)
	return nil
}

// waitForExtent spins on window events while the surface is zero sized.
// capabilities is queried again on every turn since a resize changes it.
func waitForExtent(host WindowHost, capabilities func() (vk.SurfaceCapabilities, error)) (vk.Extent2D, error) {
	for {
		caps, err := capabilities()
		if err != nil {
			return vk.Extent2D{}, err
		}
		width, height := host.FramebufferSize()
		extent := chooseExtent(caps, width, height)
		if extent.Width != 0 && extent.Height != 0 {
			return extent, nil
		}
		host.PollEvents()
	}
}

func (s *Screen) capabilities() (vk.SurfaceCapabilities, error) {
	if err := s.querySupport(); err != nil {
		return vk.SurfaceCapabilities{}, err
	}
	return s.support.Capabilities, nil
}

func (s *Screen) create() error {
	extent, err := waitForExtent(s.host, s.capabilities)
	if err != nil {
		return err
	}
	plan, err := planSwapchain(s.support, extent, s.messenger)
	if err != nil {
		return err
	}
	s.Format = plan.Format
	s.PresentMode = plan.PresentMode
	s.Extent = plan.Extent

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          s.context.Surface,
		MinImageCount:    plan.ImageCount,
		ImageFormat:      plan.Format.Format,
		ImageColorSpace:  plan.Format.ColorSpace,
		ImageExtent:      plan.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     s.support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      plan.PresentMode,
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}

	device := s.context.Device.LogicalDevice
	if err := s.context.Locks.SafeCall(SwapchainManagement, func() error {
		if res := vk.CreateSwapchain(device, &swapchainCreateInfo, s.context.Allocator, &s.Handle); res != vk.Success {
			return s.messenger.Fail(core.CodeCreateSwapchain, "failed to create swapchain: %s", VulkanResultString(res, false))
		}
		return nil
	}); err != nil {
		return err
	}

	var imageCount uint32
	if res := vk.GetSwapchainImages(device, s.Handle, &imageCount, nil); res != vk.Success {
		return s.messenger.Fail(core.CodeSwapchainImages, "failed to get swapchain images: %s", VulkanResultString(res, false))
	}
	if imageCount > MAX_SWAPCHAIN_IMAGE_COUNT {
		return s.messenger.Fail(core.CodeTooManySwapchainImages, "swapchain created %d images, at most %d are supported", imageCount, MAX_SWAPCHAIN_IMAGE_COUNT)
	}
	s.Images = make([]vk.Image, imageCount)
	if res := vk.GetSwapchainImages(device, s.Handle, &imageCount, s.Images); res != vk.Success {
		return s.messenger.Fail(core.CodeSwapchainImages, "failed to get swapchain images: %s", VulkanResultString(res, false))
	}

	s.Views = make([]vk.ImageView, 0, imageCount)
	for _, image := range s.Images {
		view, err := newImageView(s.context, s.messenger, image, s.Format.Format, vk.ImageAspectColorBit)
		if err != nil {
			return err
		}
		s.Views = append(s.Views, view)
	}

	depth, err := NewImage(s.context, s.messenger, depthImageInfo(s.DepthFormat, s.Extent.Width, s.Extent.Height))
	if err != nil {
		return err
	}
	s.Depth = depth
	if req := depth.MemoryRequirement(s.context); req.Size > s.DepthMemory.Size {
		return s.messenger.Fail(core.CodeBindImageMemory, "depth image %dx%d needs %d bytes, %d reserved", s.Extent.Width, s.Extent.Height, req.Size, s.DepthMemory.Size)
	}
	if err := depth.Bind(s.context, s.messenger, s.DepthMemory.Memory, 0); err != nil {
		return err
	}
	if err := depth.CreateView(s.context, s.messenger, vk.ImageAspectDepthBit); err != nil {
		return err
	}

	core.LogInfo("swapchain created: %dx%d, %d images, present mode %d", s.Extent.Width, s.Extent.Height, imageCount, s.PresentMode)
	return nil
}

// destroySwapchain releases everything tied to the current extent. The depth
// memory stays reserved.
func (s *Screen) destroySwapchain() {
	device := s.context.Device.LogicalDevice
	if s.Depth != nil {
		s.Depth.Destroy(s.context)
		s.Depth = nil
	}
	for _, view := range s.Views {
		vk.DestroyImageView(device, view, s.context.Allocator)
	}
	s.Views = nil
	// images belong to the swapchain
	s.Images = nil
	if s.Handle != vk.NullSwapchain {
		s.context.Locks.SafeCall(SwapchainManagement, func() error {
			vk.DestroySwapchain(device, s.Handle, s.context.Allocator)
			return nil
		})
		s.Handle = vk.NullSwapchain
	}
}

// Resize waits for the device, then rebuilds the swapchain from fresh surface capabilities.
func (s *Screen) Resize() error {
	if res := vk.DeviceWaitIdle(s.context.Device.LogicalDevice); res != vk.Success {
		return s.messenger.Fail(core.CodeDeviceWaitIdle, "failed to wait for device idle: %s", VulkanResultString(res, false))
	}
	s.destroySwapchain()
	return s.create()
}

func (s *Screen) Destroy() {
	s.destroySwapchain()
	s.arena.Free(s.DepthMemory)
	s.DepthMemory = nil
}
