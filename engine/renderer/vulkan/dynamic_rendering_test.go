package vulkan

import (
	"testing"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func procTable(names map[string]unsafe.Pointer, asked *[]string) func(string) unsafe.Pointer {
	return func(name string) unsafe.Pointer {
		*asked = append(*asked, name)
		return names[name]
	}
}

func TestResolveDynamicRenderingPrefersCoreNames(t *testing.T) {
	var begin, end, beginKHR, endKHR byte
	var asked []string
	rendering := resolveDynamicRendering(procTable(map[string]unsafe.Pointer{
		"vkCmdBeginRendering":    unsafe.Pointer(&begin),
		"vkCmdEndRendering":      unsafe.Pointer(&end),
		"vkCmdBeginRenderingKHR": unsafe.Pointer(&beginKHR),
		"vkCmdEndRenderingKHR":   unsafe.Pointer(&endKHR),
	}, &asked))

	require.True(t, rendering.Loaded())
	assert.Equal(t, unsafe.Pointer(&begin), rendering.begin)
	assert.Equal(t, unsafe.Pointer(&end), rendering.end)
	assert.Equal(t, []string{"vkCmdBeginRendering", "vkCmdEndRendering"}, asked)
}

func TestResolveDynamicRenderingFallsBackToKHR(t *testing.T) {
	var beginKHR, endKHR byte
	var asked []string
	rendering := resolveDynamicRendering(procTable(map[string]unsafe.Pointer{
		"vkCmdBeginRenderingKHR": unsafe.Pointer(&beginKHR),
		"vkCmdEndRenderingKHR":   unsafe.Pointer(&endKHR),
	}, &asked))

	require.True(t, rendering.Loaded())
	assert.Equal(t, unsafe.Pointer(&beginKHR), rendering.begin)
	assert.Equal(t, unsafe.Pointer(&endKHR), rendering.end)
}

func TestResolveDynamicRenderingMissingCommands(t *testing.T) {
	var begin byte
	var asked []string
	rendering := resolveDynamicRendering(procTable(map[string]unsafe.Pointer{
		"vkCmdBeginRendering": unsafe.Pointer(&begin),
	}, &asked))
	assert.False(t, rendering.Loaded())
	assert.False(t, DynamicRendering{}.Loaded())
}

func TestLoadDynamicRenderingWithoutLoader(t *testing.T) {
	rendering := LoadDynamicRendering(nil, nil, nil)
	assert.False(t, rendering.Loaded())
}

func TestRenderingInfoHasSingleDepthAttachment(t *testing.T) {
	target := RenderTarget{
		Extent:     vk.Extent2D{Width: 800, Height: 600},
		ClearColor: [4]float32{0.1, 0.2, 0.3, 1},
	}

	info := renderingInfo(target, true)
	require.Len(t, info.PColorAttachments, 1)
	require.Len(t, info.PDepthAttachment, 1)
	assert.Equal(t, uint32(1), info.ColorAttachmentCount)
	assert.Equal(t, uint32(1), info.LayerCount)
	assert.Equal(t, target.Extent, info.RenderArea.Extent)
	assert.Equal(t, vk.AttachmentLoadOpClear, info.PColorAttachments[0].LoadOp)
	assert.Equal(t, vk.AttachmentLoadOpClear, info.PDepthAttachment[0].LoadOp)
	assert.Equal(t, vk.ImageLayoutDepthStencilAttachmentOptimal, info.PDepthAttachment[0].ImageLayout)
	assert.Empty(t, info.PStencilAttachment)

	info = renderingInfo(target, false)
	assert.Equal(t, vk.AttachmentLoadOpLoad, info.PColorAttachments[0].LoadOp)
	assert.Equal(t, vk.AttachmentLoadOpLoad, info.PDepthAttachment[0].LoadOp)
}
