package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/wreck/engine/core"
	"github.com/stretchr/testify/assert"
)

func TestCommandBufferRejectsOutOfOrderCalls(t *testing.T) {
	var codes []core.Code
	messenger := silentMessenger(&codes)

	unallocated := &VulkanCommandBuffer{}
	assert.Equal(t, COMMAND_BUFFER_STATE_NOT_ALLOCATED, unallocated.State)
	assert.ErrorIs(t, unallocated.Begin(messenger, true, false, false), core.CodeBeginCommandBuffer)

	recording := &VulkanCommandBuffer{State: COMMAND_BUFFER_STATE_RECORDING}
	assert.ErrorIs(t, recording.Begin(messenger, true, false, false), core.CodeBeginCommandBuffer)

	ready := &VulkanCommandBuffer{State: COMMAND_BUFFER_STATE_READY}
	assert.ErrorIs(t, ready.End(messenger), core.CodeEndCommandBuffer)
	assert.ErrorIs(t, ready.Submit(nil, messenger, nil, 0, vk.SubmitInfo{}, nil), core.CodeQueueSubmit)
	assert.Equal(t, COMMAND_BUFFER_STATE_READY, ready.State, "a rejected call leaves the state alone")

	assert.Equal(t, []core.Code{core.CodeBeginCommandBuffer, core.CodeBeginCommandBuffer, core.CodeEndCommandBuffer, core.CodeQueueSubmit}, codes)
}
