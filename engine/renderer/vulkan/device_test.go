package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func family(flags ...vk.QueueFlagBits) vk.QueueFamilyProperties {
	var f vk.QueueFlags
	for _, flag := range flags {
		f |= vk.QueueFlags(flag)
	}
	return vk.QueueFamilyProperties{QueueFlags: f, QueueCount: 1}
}

func TestPickQueueFamilies(t *testing.T) {
	families := []vk.QueueFamilyProperties{
		family(vk.QueueGraphicsBit, vk.QueueComputeBit, vk.QueueTransferBit),
		family(vk.QueueComputeBit, vk.QueueTransferBit),
		family(vk.QueueTransferBit),
	}
	info := pickQueueFamilies(families, func(uint32) bool { return true })

	assert.Equal(t, int32(0), info.RenderFamilyIndex)
	assert.Equal(t, int32(1), info.ComputeFamilyIndex)
	assert.Equal(t, int32(2), info.TransferFamilyIndex)
}

func TestPickQueueFamiliesNeedsPresentOnTheRenderFamily(t *testing.T) {
	families := []vk.QueueFamilyProperties{
		family(vk.QueueGraphicsBit),
		family(vk.QueueGraphicsBit, vk.QueueComputeBit),
	}
	info := pickQueueFamilies(families, func(index uint32) bool { return index == 1 })
	assert.Equal(t, int32(1), info.RenderFamilyIndex)
	assert.Equal(t, int32(-1), info.ComputeFamilyIndex, "compute on the render family is not dedicated")
	assert.Equal(t, int32(-1), info.TransferFamilyIndex)

	info = pickQueueFamilies(families, func(uint32) bool { return false })
	assert.Equal(t, int32(-1), info.RenderFamilyIndex)
}

func TestSelectCandidatePrefersDiscrete(t *testing.T) {
	i, ok := selectCandidate([]deviceCandidate{
		{Type: DeviceTypeIntegrated, Suitable: true},
		{Type: DeviceTypeDiscrete, Suitable: false},
		{Type: DeviceTypeDiscrete, Suitable: true},
	})
	require.True(t, ok)
	assert.Equal(t, 2, i)

	i, ok = selectCandidate([]deviceCandidate{
		{Type: DeviceTypeNone, Suitable: true},
		{Type: DeviceTypeIntegrated, Suitable: true},
	})
	require.True(t, ok)
	assert.Equal(t, 1, i)

	_, ok = selectCandidate([]deviceCandidate{{Type: DeviceTypeNone, Suitable: true}})
	assert.False(t, ok)
}

func TestMissingExtensions(t *testing.T) {
	available := []string{vk.KhrSwapchainExtensionName, "VK_KHR_maintenance1"}
	assert.Empty(t, missingExtensions(available, []string{vk.KhrSwapchainExtensionName}))
	assert.Equal(t, []string{"VK_KHR_portability_subset"}, missingExtensions(available, []string{"VK_KHR_portability_subset"}))
}

func TestQueueCreateInfosSkipMissingFamilies(t *testing.T) {
	infos := queueCreateInfos(VulkanPhysicalDeviceQueueFamilyInfo{RenderFamilyIndex: 0, ComputeFamilyIndex: -1, TransferFamilyIndex: 2})
	require.Len(t, infos, 2)
	assert.Equal(t, uint32(0), infos[0].QueueFamilyIndex)
	assert.Equal(t, uint32(2), infos[1].QueueFamilyIndex)
}
