package vulkan

import (
	"math"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/wreck/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func surfaceCaps(current vk.Extent2D) vk.SurfaceCapabilities {
	return vk.SurfaceCapabilities{
		MinImageCount:  2,
		MaxImageCount:  0,
		CurrentExtent:  current,
		MinImageExtent: vk.Extent2D{Width: 1, Height: 1},
		MaxImageExtent: vk.Extent2D{Width: 4096, Height: 4096},
	}
}

func TestChooseSurfaceFormat(t *testing.T) {
	preferred := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	other := vk.SurfaceFormat{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}

	assert.Equal(t, preferred, chooseSurfaceFormat([]vk.SurfaceFormat{other, preferred}))
	assert.Equal(t, other, chooseSurfaceFormat([]vk.SurfaceFormat{other}), "falls back to the first format")
}

func TestChoosePresentMode(t *testing.T) {
	assert.Equal(t, vk.PresentModeMailbox, choosePresentMode([]vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox}))
	assert.Equal(t, vk.PresentModeFifo, choosePresentMode([]vk.PresentMode{vk.PresentModeImmediate}))
	assert.Equal(t, vk.PresentModeFifo, choosePresentMode(nil))
}

func TestChooseDepthFormat(t *testing.T) {
	supported := func(formats ...vk.Format) func(vk.Format) vk.FormatProperties {
		return func(f vk.Format) vk.FormatProperties {
			for _, s := range formats {
				if s == f {
					return vk.FormatProperties{OptimalTilingFeatures: vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)}
				}
			}
			return vk.FormatProperties{}
		}
	}

	format, err := chooseDepthFormat(supported(vk.FormatD24UnormS8Uint, vk.FormatD32Sfloat), silentMessenger(nil))
	require.NoError(t, err)
	assert.Equal(t, vk.FormatD32Sfloat, format)

	format, err = chooseDepthFormat(supported(vk.FormatD24UnormS8Uint), silentMessenger(nil))
	require.NoError(t, err)
	assert.Equal(t, vk.FormatD24UnormS8Uint, format)
}

func TestChooseDepthFormatNoneSupported(t *testing.T) {
	var codes []core.Code
	// linear tiling support alone is not enough
	query := func(vk.Format) vk.FormatProperties {
		return vk.FormatProperties{LinearTilingFeatures: vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)}
	}

	_, err := chooseDepthFormat(query, silentMessenger(&codes))
	require.Error(t, err)
	assert.Equal(t, core.CodeNoDepthFormat, core.CodeOf(err))
	assert.Equal(t, []core.Code{core.CodeNoDepthFormat}, codes)
}

func TestChooseExtent(t *testing.T) {
	undefined := vk.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32}

	assert.Equal(t, vk.Extent2D{Width: 800, Height: 600}, chooseExtent(surfaceCaps(undefined), 800, 600))
	assert.Equal(t, vk.Extent2D{Width: 640, Height: 480}, chooseExtent(surfaceCaps(vk.Extent2D{Width: 640, Height: 480}), 800, 600),
		"the smaller current extent wins")
	assert.Equal(t, vk.Extent2D{Width: 4096, Height: 1}, chooseExtent(surfaceCaps(undefined), 10000, 0), "clamped to the surface limits")

	caps := surfaceCaps(vk.Extent2D{})
	caps.MinImageExtent = vk.Extent2D{}
	assert.Equal(t, vk.Extent2D{}, chooseExtent(caps, 800, 600), "a minimized window has no extent")
}

func TestChooseImageCount(t *testing.T) {
	caps := surfaceCaps(vk.Extent2D{Width: 1, Height: 1})
	count, err := chooseImageCount(caps, silentMessenger(nil))
	require.NoError(t, err)
	assert.Equal(t, uint32(3), count)

	caps.MaxImageCount = 2
	count, err = chooseImageCount(caps, silentMessenger(nil))
	require.NoError(t, err)
	assert.Equal(t, uint32(2), count)

	caps.MinImageCount = MAX_SWAPCHAIN_IMAGE_COUNT
	caps.MaxImageCount = 0
	_, err = chooseImageCount(caps, silentMessenger(nil))
	assert.Equal(t, core.CodeTooManySwapchainImages, core.CodeOf(err))
}

func TestPlanSwapchainIsStableAcrossResizes(t *testing.T) {
	support := VulkanSwapchainSupportInfo{
		Capabilities: surfaceCaps(vk.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32}),
		Formats:      []vk.SurfaceFormat{{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}},
		PresentModes: []vk.PresentMode{vk.PresentModeFifo},
	}

	first, err := planSwapchain(support, vk.Extent2D{Width: 1280, Height: 720}, silentMessenger(nil))
	require.NoError(t, err)
	second, err := planSwapchain(support, vk.Extent2D{Width: 1280, Height: 720}, silentMessenger(nil))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	resized, err := planSwapchain(support, vk.Extent2D{Width: 640, Height: 360}, silentMessenger(nil))
	require.NoError(t, err)
	assert.Equal(t, vk.Extent2D{Width: 640, Height: 360}, resized.Extent)
	assert.Equal(t, first.Format, resized.Format)
	assert.Equal(t, first.ImageCount, resized.ImageCount)
}

func TestPlanSwapchainWithoutFormats(t *testing.T) {
	_, err := planSwapchain(VulkanSwapchainSupportInfo{Capabilities: surfaceCaps(vk.Extent2D{})}, vk.Extent2D{Width: 1, Height: 1}, silentMessenger(nil))
	assert.Equal(t, core.CodeSurfaceFormats, core.CodeOf(err))
}

type pollingHost struct {
	polls  int
	width  uint32
	height uint32
}

func (h *pollingHost) PollEvents()                               { h.polls++ }
func (h *pollingHost) FramebufferSize() (uint32, uint32)         { return h.width, h.height }
func (h *pollingHost) LargestVideoMode() (uint32, uint32, error) { return 1920, 1080, nil }

func TestWaitForExtentPollsWhileMinimized(t *testing.T) {
	minimized := surfaceCaps(vk.Extent2D{})
	minimized.MinImageExtent = vk.Extent2D{}
	restored := surfaceCaps(vk.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32})

	host := &pollingHost{width: 800, height: 600}
	queries := 0
	extent, err := waitForExtent(host, func() (vk.SurfaceCapabilities, error) {
		queries++
		if queries < 3 {
			return minimized, nil
		}
		return restored, nil
	})
	require.NoError(t, err)
	assert.Equal(t, vk.Extent2D{Width: 800, Height: 600}, extent)
	assert.Equal(t, 3, queries)
	assert.Equal(t, 2, host.polls)
}

func TestWaitForExtentStopsOnQueryError(t *testing.T) {
	host := &pollingHost{}
	_, err := waitForExtent(host, func() (vk.SurfaceCapabilities, error) {
		return vk.SurfaceCapabilities{}, core.NewError(core.CodeSurfaceCapabilities, "lost")
	})
	assert.ErrorIs(t, err, core.CodeSurfaceCapabilities)
	assert.Zero(t, host.polls)
}
