package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/wreck/engine/core"
)

type VulkanFence struct {
	Handle     vk.Fence
	IsSignaled bool
}

func NewFence(context *VulkanContext, messenger *core.Messenger, createSignaled bool) (*VulkanFence, error) {
	fence := &VulkanFence{
		// Make sure to signal the fence if required.
		IsSignaled: createSignaled,
	}

	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if fence.IsSignaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	if res := vk.CreateFence(context.Device.LogicalDevice, &fenceCreateInfo, context.Allocator, &fence.Handle); res != vk.Success {
		return nil, messenger.Fail(core.CodeCreateFence, "failed to create fence: %s", VulkanResultString(res, false))
	}
	return fence, nil
}

func (vf *VulkanFence) Destroy(context *VulkanContext) {
	if vf == nil {
		return
	}
	if vf.Handle != nil {
		vk.DestroyFence(context.Device.LogicalDevice, vf.Handle, context.Allocator)
		vf.Handle = nil
	}
	vf.IsSignaled = false
}

// Ready reports whether the fence has signaled without blocking.
func (vf *VulkanFence) Ready(context *VulkanContext, messenger *core.Messenger) (bool, error) {
	if vf.IsSignaled {
		return true, nil
	}
	switch res := vk.GetFenceStatus(context.Device.LogicalDevice, vf.Handle); res {
	case vk.Success:
		vf.IsSignaled = true
		return true, nil
	case vk.NotReady:
		return false, nil
	default:
		return false, messenger.Fail(core.CodeWaitFence, "failed to query fence: %s", VulkanResultString(res, false))
	}
}

// Wait blocks until the fence signals or timeoutNs elapses.
func (vf *VulkanFence) Wait(context *VulkanContext, messenger *core.Messenger, timeoutNs uint64) error {
	if vf.IsSignaled {
		// If already signaled, do not wait.
		return nil
	}
	result := vk.WaitForFences(context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}, vk.True, timeoutNs)
	switch result {
	case vk.Success:
		vf.IsSignaled = true
		return nil
	case vk.Timeout:
		return messenger.Fail(core.CodeWaitFence, "fence wait timed out after %dns", timeoutNs)
	default:
		return messenger.Fail(core.CodeWaitFence, "fence wait failed: %s", VulkanResultString(result, true))
	}
}

func (vf *VulkanFence) Reset(context *VulkanContext, messenger *core.Messenger) error {
	if vf.IsSignaled {
		if res := vk.ResetFences(context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}); res != vk.Success {
			return messenger.Fail(core.CodeResetFence, "failed to reset fence: %s", VulkanResultString(res, false))
		}
		vf.IsSignaled = false
	}
	return nil
}

// MarkSubmitted records that the fence was handed to a queue submission.
func (vf *VulkanFence) MarkSubmitted() {
	vf.IsSignaled = false
}

func newSemaphore(context *VulkanContext, messenger *core.Messenger) (vk.Semaphore, error) {
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var semaphore vk.Semaphore
	if res := vk.CreateSemaphore(context.Device.LogicalDevice, &semaphoreCreateInfo, context.Allocator, &semaphore); res != vk.Success {
		return nil, messenger.Fail(core.CodeCreateSemaphore, "failed to create semaphore: %s", VulkanResultString(res, false))
	}
	return semaphore, nil
}
