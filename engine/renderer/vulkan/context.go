package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
)

// DeviceType selects between the two memory strategies of the renderer.
// Discrete devices stage host writes and copy them, integrated devices write
// straight into mapped device memory.
type DeviceType int

const (
	DeviceTypeNone DeviceType = iota
	DeviceTypeDiscrete
	DeviceTypeIntegrated
)

func (t DeviceType) String() string {
	switch t {
	case DeviceTypeDiscrete:
		return "discrete"
	case DeviceTypeIntegrated:
		return "integrated"
	default:
		return "none"
	}
}

func deviceTypeOf(t vk.PhysicalDeviceType) DeviceType {
	switch t {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return DeviceTypeDiscrete
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return DeviceTypeIntegrated
	default:
		return DeviceTypeNone
	}
}

// VulkanContext is what the bootstrap hands to everything above it.
type VulkanContext struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	debugMessenger      vk.DebugReportCallback
	getInstanceProcAddr unsafe.Pointer

	Device *VulkanDevice
	Locks  *VulkanLockPool
}
