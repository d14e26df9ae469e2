package core

import (
	"fmt"
	"math"
)

// Code is a status in a single namespace shared by every subsystem.
// Negative codes are errors, positive codes are warnings and zero is success.
type Code int32

const CodeSuccess Code = 0

// Errors. Values are allocated upward from math.MinInt32 and never reused.
const (
	CodeUnknown Code = math.MinInt32 + iota
	CodeGlfwInit
	CodeCreateWindow
	CodeVulkanInit
	CodeCreateInstance
	CodeMissingLayer
	CodeMissingExtension
	CodeCreateDebugCallback
	CodeCreateSurface
	CodeNoPhysicalDevice
	CodeNoSuitableDevice
	CodeCreateDevice
	CodeVramNoMemoryType
	CodeVramTableFull
	CodeAllocateVram
	CodeBindBufferMemory
	CodeBindImageMemory
	CodeMapMemory
	CodeDuplicateBinding
	CodeInvalidBindingType
	CodeNonContiguousSets
	CodeMutableWithoutBatch
	CodeImmutableWithBatch
	CodeInvalidBindingSize
	CodeTooManySets
	CodeTooManyBindings
	CodeCreateBuffer
	CodeCreateDescriptorSetLayout
	CodeCreateDescriptorPool
	CodeAllocateDescriptorSets
	CodeCreatePipelineLayout
	CodeInvalidPipelineType
	CodeInvalidGraphicsShaders
	CodeInvalidComputeShaders
	CodeMissingDrawCallback
	CodeShaderOpen
	CodeShaderRead
	CodeCreateShaderModule
	CodeCreateGraphicsPipeline
	CodeCreateComputePipeline
	CodeSurfaceCapabilities
	CodeSurfaceFormats
	CodeSurfacePresentModes
	CodeNoDepthFormat
	CodeTooManySwapchainImages
	CodeCreateSwapchain
	CodeSwapchainImages
	CodeCreateImage
	CodeCreateImageView
	CodeNoMonitor
	CodeCreateCommandPool
	CodeAllocateCommandBuffers
	CodeCreateSemaphore
	CodeCreateFence
	CodeWaitFence
	CodeResetFence
	CodeAcquireImage
	CodeBeginCommandBuffer
	CodeEndCommandBuffer
	CodeQueueSubmit
	CodeQueuePresent
	CodeDeviceWaitIdle
	CodeInvalidConfig
	CodeInvalidMutability
	CodeInvalidVramRequest
	CodeWatchShaders
	CodeMissingRenderingCommands
)

// Warnings.
const (
	CodeTransferSkipped Code = iota + 1
	CodeSwapchainOutOfDate
	CodeShaderChanged
	CodeValidationMessage
	CodeUnusedBinding
	CodeShaderReloadFailed
)

var codeNames = map[Code]string{
	CodeSuccess:                   "SUCCESS",
	CodeUnknown:                   "UNKNOWN",
	CodeGlfwInit:                  "GLFW_INIT",
	CodeCreateWindow:              "CREATE_WINDOW",
	CodeVulkanInit:                "VULKAN_INIT",
	CodeCreateInstance:            "CREATE_INSTANCE",
	CodeMissingLayer:              "MISSING_LAYER",
	CodeMissingExtension:          "MISSING_EXTENSION",
	CodeCreateDebugCallback:       "CREATE_DEBUG_CALLBACK",
	CodeCreateSurface:             "CREATE_SURFACE",
	CodeNoPhysicalDevice:          "NO_PHYSICAL_DEVICE",
	CodeNoSuitableDevice:          "NO_SUITABLE_DEVICE",
	CodeCreateDevice:              "CREATE_DEVICE",
	CodeVramNoMemoryType:          "VRAM_NO_MEMORY_TYPE",
	CodeVramTableFull:             "VRAM_TABLE_FULL",
	CodeAllocateVram:              "ALLOCATE_VRAM",
	CodeBindBufferMemory:          "BIND_BUFFER_MEMORY",
	CodeBindImageMemory:           "BIND_IMAGE_MEMORY",
	CodeMapMemory:                 "MAP_MEMORY",
	CodeDuplicateBinding:          "DUPLICATE_BINDING",
	CodeInvalidBindingType:        "INVALID_BINDING_TYPE",
	CodeNonContiguousSets:         "NON_CONTIGUOUS_SETS",
	CodeMutableWithoutBatch:       "MUTABLE_WITHOUT_BATCH",
	CodeImmutableWithBatch:        "IMMUTABLE_WITH_BATCH",
	CodeInvalidBindingSize:        "INVALID_BINDING_SIZE",
	CodeTooManySets:               "TOO_MANY_SETS",
	CodeTooManyBindings:           "TOO_MANY_BINDINGS",
	CodeCreateBuffer:              "CREATE_BUFFER",
	CodeCreateDescriptorSetLayout: "CREATE_DESCRIPTOR_SET_LAYOUT",
	CodeCreateDescriptorPool:      "CREATE_DESCRIPTOR_POOL",
	CodeAllocateDescriptorSets:    "ALLOCATE_DESCRIPTOR_SETS",
	CodeCreatePipelineLayout:      "CREATE_PIPELINE_LAYOUT",
	CodeInvalidPipelineType:       "INVALID_PIPELINE_TYPE",
	CodeInvalidGraphicsShaders:    "INVALID_GRAPHICS_SHADERS",
	CodeInvalidComputeShaders:     "INVALID_COMPUTE_SHADERS",
	CodeMissingDrawCallback:       "MISSING_DRAW_CALLBACK",
	CodeShaderOpen:                "SHADER_OPEN",
	CodeShaderRead:                "SHADER_READ",
	CodeCreateShaderModule:        "CREATE_SHADER_MODULE",
	CodeCreateGraphicsPipeline:    "CREATE_GRAPHICS_PIPELINE",
	CodeCreateComputePipeline:     "CREATE_COMPUTE_PIPELINE",
	CodeSurfaceCapabilities:       "SURFACE_CAPABILITIES",
	CodeSurfaceFormats:            "SURFACE_FORMATS",
	CodeSurfacePresentModes:       "SURFACE_PRESENT_MODES",
	CodeNoDepthFormat:             "NO_DEPTH_FORMAT",
	CodeTooManySwapchainImages:    "TOO_MANY_SWAPCHAIN_IMAGES",
	CodeCreateSwapchain:           "CREATE_SWAPCHAIN",
	CodeSwapchainImages:           "SWAPCHAIN_IMAGES",
	CodeCreateImage:               "CREATE_IMAGE",
	CodeCreateImageView:           "CREATE_IMAGE_VIEW",
	CodeNoMonitor:                 "NO_MONITOR",
	CodeCreateCommandPool:         "CREATE_COMMAND_POOL",
	CodeAllocateCommandBuffers:    "ALLOCATE_COMMAND_BUFFERS",
	CodeCreateSemaphore:           "CREATE_SEMAPHORE",
	CodeCreateFence:               "CREATE_FENCE",
	CodeWaitFence:                 "WAIT_FENCE",
	CodeResetFence:                "RESET_FENCE",
	CodeAcquireImage:              "ACQUIRE_IMAGE",
	CodeBeginCommandBuffer:        "BEGIN_COMMAND_BUFFER",
	CodeEndCommandBuffer:          "END_COMMAND_BUFFER",
	CodeQueueSubmit:               "QUEUE_SUBMIT",
	CodeQueuePresent:              "QUEUE_PRESENT",
	CodeDeviceWaitIdle:            "DEVICE_WAIT_IDLE",
	CodeInvalidConfig:             "INVALID_CONFIG",
	CodeInvalidMutability:         "INVALID_MUTABILITY",
	CodeInvalidVramRequest:        "INVALID_VRAM_REQUEST",
	CodeWatchShaders:              "WATCH_SHADERS",
	CodeMissingRenderingCommands:  "MISSING_RENDERING_COMMANDS",
	CodeTransferSkipped:           "TRANSFER_SKIPPED",
	CodeSwapchainOutOfDate:        "SWAPCHAIN_OUT_OF_DATE",
	CodeShaderChanged:             "SHADER_CHANGED",
	CodeValidationMessage:         "VALIDATION_MESSAGE",
	CodeUnusedBinding:             "UNUSED_BINDING",
	CodeShaderReloadFailed:        "SHADER_RELOAD_FAILED",
}

func (c Code) IsError() bool   { return c < 0 }
func (c Code) IsWarning() bool { return c > 0 }
func (c Code) IsSuccess() bool { return c == 0 }

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("CODE(%d)", int32(c))
}

// Error lets a bare Code be used as a sentinel with errors.Is.
func (c Code) Error() string {
	return c.String()
}
