package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/wreck/engine/core"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_NOT_ALLOCATED VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_READY
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
)

type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	// Command buffer state.
	State VulkanCommandBufferState
}

// NewCommandPool creates a resettable pool on the given queue family.
func NewCommandPool(context *VulkanContext, messenger *core.Messenger, queueFamilyIndex uint32) (vk.CommandPool, error) {
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: queueFamilyIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	err := context.Locks.SafeCall(CommandPoolManagement, func() error {
		if res := vk.CreateCommandPool(context.Device.LogicalDevice, &poolCreateInfo, context.Allocator, &pool); res != vk.Success {
			return messenger.Fail(core.CodeCreateCommandPool, "failed to create command pool on family %d: %s", queueFamilyIndex, VulkanResultString(res, false))
		}
		return nil
	})
	return pool, err
}

func NewVulkanCommandBuffer(context *VulkanContext, messenger *core.Messenger, pool vk.CommandPool, isPrimary bool) (*VulkanCommandBuffer, error) {
	vCommandBuffer := &VulkanCommandBuffer{
		State: COMMAND_BUFFER_STATE_NOT_ALLOCATED,
	}

	level := vk.CommandBufferLevelSecondary
	if isPrimary {
		level = vk.CommandBufferLevelPrimary
	}

	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		CommandBufferCount: 1,
		Level:              level,
	}

	handles := make([]vk.CommandBuffer, 1)
	if err := context.Locks.SafeCall(CommandPoolManagement, func() error {
		if res := vk.AllocateCommandBuffers(context.Device.LogicalDevice, &allocateInfo, handles); res != vk.Success {
			return messenger.Fail(core.CodeAllocateCommandBuffers, "failed to allocate command buffer: %s", VulkanResultString(res, false))
		}
		return nil
	}); err != nil {
		return nil, err
	}
	vCommandBuffer.Handle = handles[0]
	vCommandBuffer.State = COMMAND_BUFFER_STATE_READY

	return vCommandBuffer, nil
}

func (v *VulkanCommandBuffer) Free(context *VulkanContext, pool vk.CommandPool) {
	if v == nil || v.Handle == nil {
		return
	}
	context.Locks.SafeCall(CommandPoolManagement, func() error {
		vk.FreeCommandBuffers(context.Device.LogicalDevice, pool, 1, []vk.CommandBuffer{v.Handle})
		return nil
	})
	v.Handle = nil
	v.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
}

// Begin starts recording. The buffer must be allocated and not already recording.
func (v *VulkanCommandBuffer) Begin(messenger *core.Messenger, isSingleUse, isRenderpassContinue, isSimultaneousUse bool) error {
	if v.State == COMMAND_BUFFER_STATE_NOT_ALLOCATED || v.State == COMMAND_BUFFER_STATE_RECORDING {
		return messenger.Fail(core.CodeBeginCommandBuffer, "cannot begin a command buffer in state %d", v.State)
	}
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: 0,
	}

	if isSingleUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if isRenderpassContinue {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageRenderPassContinueBit)
	}
	if isSimultaneousUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)
	}

	if res := vk.BeginCommandBuffer(v.Handle, &beginInfo); res != vk.Success {
		return messenger.Fail(core.CodeBeginCommandBuffer, "failed to begin command buffer: %s", VulkanResultString(res, false))
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING

	return nil
}

func (v *VulkanCommandBuffer) End(messenger *core.Messenger) error {
	if v.State != COMMAND_BUFFER_STATE_RECORDING {
		return messenger.Fail(core.CodeEndCommandBuffer, "cannot end a command buffer that is not recording")
	}
	if res := vk.EndCommandBuffer(v.Handle); res != vk.Success {
		return messenger.Fail(core.CodeEndCommandBuffer, "failed to end command buffer: %s", VulkanResultString(res, false))
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

// Reset returns the buffer to the initial state so it can be recorded again.
func (v *VulkanCommandBuffer) Reset() {
	vk.ResetCommandBuffer(v.Handle, 0)
	v.State = COMMAND_BUFFER_STATE_READY
}

// Submit hands the recorded buffer to queue under the queue family lock.
func (v *VulkanCommandBuffer) Submit(context *VulkanContext, messenger *core.Messenger, queue vk.Queue, familyIndex uint32, info vk.SubmitInfo, fence vk.Fence) error {
	if v.State != COMMAND_BUFFER_STATE_RECORDING_ENDED {
		return messenger.Fail(core.CodeQueueSubmit, "command buffer submitted before its recording ended")
	}
	info.SType = vk.StructureTypeSubmitInfo
	info.CommandBufferCount = 1
	info.PCommandBuffers = []vk.CommandBuffer{v.Handle}

	if err := context.Locks.SafeQueueCall(familyIndex, func() error {
		if res := vk.QueueSubmit(queue, 1, []vk.SubmitInfo{info}, fence); res != vk.Success {
			return messenger.Fail(core.CodeQueueSubmit, "failed to submit to queue family %d: %s", familyIndex, VulkanResultString(res, false))
		}
		return nil
	}); err != nil {
		return err
	}
	v.State = COMMAND_BUFFER_STATE_SUBMITTED
	return nil
}
