package vulkan

import (
	"runtime"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/wreck/engine/core"
)

// VulkanDevice is the selected GPU with its queues. Only the render queue is
// required, the compute and transfer queues are set when the GPU has
// dedicated families for them.
type VulkanDevice struct {
	PhysicalDevice vk.PhysicalDevice
	LogicalDevice  vk.Device
	Type           DeviceType
	Name           string

	RenderQueue       vk.Queue
	RenderFamilyIndex uint32
	// -1 when there is no dedicated family
	ComputeFamilyIndex  int32
	ComputeQueue        vk.Queue
	TransferFamilyIndex int32
	TransferQueue       vk.Queue

	RenderCommandPool vk.CommandPool
	Rendering         DynamicRendering

	Properties       vk.PhysicalDeviceProperties
	MemoryProperties MemoryProperties
}

type VulkanPhysicalDeviceRequirements struct {
	DeviceExtensionNames []string
	// Dynamic rendering is core in 1.3.
	MinAPIVersion vk.Version
}

func defaultDeviceRequirements() VulkanPhysicalDeviceRequirements {
	requirements := VulkanPhysicalDeviceRequirements{
		DeviceExtensionNames: []string{vk.KhrSwapchainExtensionName},
		MinAPIVersion:        vk.Version(vk.MakeVersion(1, 3, 0)),
	}
	if runtime.GOOS == "darwin" {
		requirements.DeviceExtensionNames = append(requirements.DeviceExtensionNames, "VK_KHR_portability_subset")
	}
	return requirements
}

type VulkanPhysicalDeviceQueueFamilyInfo struct {
	RenderFamilyIndex   int32
	ComputeFamilyIndex  int32
	TransferFamilyIndex int32
}

// pickQueueFamilies finds a family that can both render and present, plus
// compute and transfer families that share nothing with graphics.
func pickQueueFamilies(families []vk.QueueFamilyProperties, supportsPresent func(index uint32) bool) VulkanPhysicalDeviceQueueFamilyInfo {
	info := VulkanPhysicalDeviceQueueFamilyInfo{
		RenderFamilyIndex:   -1,
		ComputeFamilyIndex:  -1,
		TransferFamilyIndex: -1,
	}
	graphics := vk.QueueFlags(vk.QueueGraphicsBit)
	compute := vk.QueueFlags(vk.QueueComputeBit)
	transfer := vk.QueueFlags(vk.QueueTransferBit)

	for i, family := range families {
		index := uint32(i)
		if family.QueueCount == 0 {
			continue
		}
		flags := family.QueueFlags
		switch {
		case flags&graphics != 0:
			if info.RenderFamilyIndex < 0 && supportsPresent(index) {
				info.RenderFamilyIndex = int32(index)
			}
		case flags&compute != 0:
			if info.ComputeFamilyIndex < 0 {
				info.ComputeFamilyIndex = int32(index)
			}
		case flags&transfer != 0:
			if info.TransferFamilyIndex < 0 {
				info.TransferFamilyIndex = int32(index)
			}
		}
	}
	return info
}

type deviceCandidate struct {
	Type     DeviceType
	Suitable bool
}

// selectCandidate returns the first suitable discrete GPU, else the first
// suitable integrated one.
func selectCandidate(candidates []deviceCandidate) (int, bool) {
	for _, wanted := range []DeviceType{DeviceTypeDiscrete, DeviceTypeIntegrated} {
		for i, c := range candidates {
			if c.Suitable && c.Type == wanted {
				return i, true
			}
		}
	}
	return -1, false
}

func missingExtensions(available, required []string) []string {
	have := make(map[string]struct{}, len(available))
	for _, name := range available {
		have[name] = struct{}{}
	}
	var missing []string
	for _, name := range required {
		if _, ok := have[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

func deviceExtensionNames(device vk.PhysicalDevice) ([]string, error) {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, nil); res != vk.Success {
		return nil, vk.Error(res)
	}
	properties := make([]vk.ExtensionProperties, count)
	if count > 0 {
		if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, properties); res != vk.Success {
			return nil, vk.Error(res)
		}
	}
	names := make([]string, 0, count)
	for i := range properties {
		properties[i].Deref()
		end := FindFirstZeroInByteArray(properties[i].ExtensionName[:])
		names = append(names, string(properties[i].ExtensionName[:end]))
	}
	return names, nil
}

type physicalDeviceInfo struct {
	handle     vk.PhysicalDevice
	name       string
	properties vk.PhysicalDeviceProperties
	queues     VulkanPhysicalDeviceQueueFamilyInfo
}

func inspectPhysicalDevice(device vk.PhysicalDevice, surface vk.Surface, requirements VulkanPhysicalDeviceRequirements) (physicalDeviceInfo, bool) {
	info := physicalDeviceInfo{handle: device}
	vk.GetPhysicalDeviceProperties(device, &info.properties)
	info.properties.Deref()
	info.name = vk.ToString(info.properties.DeviceName[:])

	version := vk.Version(info.properties.ApiVersion)
	if version < requirements.MinAPIVersion {
		core.LogInfo("device `%s` supports Vulkan %d.%d, skipping", info.name, version.Major(), version.Minor())
		return info, false
	}

	var familyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &familyCount, nil)
	families := make([]vk.QueueFamilyProperties, familyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &familyCount, families)
	for i := range families {
		families[i].Deref()
	}
	info.queues = pickQueueFamilies(families, func(index uint32) bool {
		var supported vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(device, index, surface, &supported)
		return supported == vk.True
	})
	if info.queues.RenderFamilyIndex < 0 {
		core.LogInfo("device `%s` has no queue family for graphics and present, skipping", info.name)
		return info, false
	}

	available, err := deviceExtensionNames(device)
	if err != nil {
		core.LogWarn("device `%s`: failed to enumerate extensions: %s", info.name, err)
		return info, false
	}
	if missing := missingExtensions(available, requirements.DeviceExtensionNames); len(missing) > 0 {
		core.LogInfo("device `%s` is missing extensions %v, skipping", info.name, missing)
		return info, false
	}
	return info, true
}

// SelectPhysicalDevice picks the GPU to render with. The choice is made once.
func SelectPhysicalDevice(context *VulkanContext, messenger *core.Messenger) (physicalDeviceInfo, error) {
	var count uint32
	if res := vk.EnumeratePhysicalDevices(context.Instance, &count, nil); res != vk.Success || count == 0 {
		return physicalDeviceInfo{}, messenger.Fail(core.CodeNoPhysicalDevice, "no devices which support Vulkan were found")
	}
	devices := make([]vk.PhysicalDevice, count)
	if res := vk.EnumeratePhysicalDevices(context.Instance, &count, devices); res != vk.Success {
		return physicalDeviceInfo{}, messenger.Fail(core.CodeNoPhysicalDevice, "failed to enumerate physical devices: %s", VulkanResultString(res, false))
	}

	infos := make([]physicalDeviceInfo, len(devices))
	candidates := make([]deviceCandidate, len(devices))
	requirements := defaultDeviceRequirements()
	for i, device := range devices {
		info, ok := inspectPhysicalDevice(device, context.Surface, requirements)
		infos[i] = info
		candidates[i] = deviceCandidate{Type: deviceTypeOf(info.properties.DeviceType), Suitable: ok}
	}

	selected, ok := selectCandidate(candidates)
	if !ok {
		return physicalDeviceInfo{}, messenger.Fail(core.CodeNoSuitableDevice, "no physical devices were found which meet the requirements")
	}
	info := infos[selected]
	version := vk.Version(info.properties.ApiVersion)
	driver := vk.Version(info.properties.DriverVersion)
	core.LogInfo("selected device `%s` (%s)", info.name, candidates[selected].Type)
	core.LogInfo("GPU driver version: %d.%d.%d", driver.Major(), driver.Minor(), driver.Patch())
	core.LogInfo("Vulkan API version: %d.%d.%d", version.Major(), version.Minor(), version.Patch())
	return info, nil
}

func queueCreateInfos(queues VulkanPhysicalDeviceQueueFamilyInfo) []vk.DeviceQueueCreateInfo {
	indices := []int32{queues.RenderFamilyIndex, queues.ComputeFamilyIndex, queues.TransferFamilyIndex}
	infos := make([]vk.DeviceQueueCreateInfo, 0, len(indices))
	for _, index := range indices {
		if index < 0 {
			continue
		}
		infos = append(infos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: uint32(index),
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		})
	}
	return infos
}

// DeviceCreate selects a GPU and creates the logical device with dynamic
// rendering enabled, its queues and the render command pool.
func DeviceCreate(context *VulkanContext, messenger *core.Messenger) error {
	info, err := SelectPhysicalDevice(context, messenger)
	if err != nil {
		return err
	}

	device := &VulkanDevice{
		PhysicalDevice:      info.handle,
		Type:                deviceTypeOf(info.properties.DeviceType),
		Name:                info.name,
		RenderFamilyIndex:   uint32(info.queues.RenderFamilyIndex),
		ComputeFamilyIndex:  info.queues.ComputeFamilyIndex,
		TransferFamilyIndex: info.queues.TransferFamilyIndex,
		Properties:          info.properties,
	}
	context.Device = device

	var memory vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(device.PhysicalDevice, &memory)
	device.MemoryProperties = NewMemoryProperties(memory)
	for i, size := range device.MemoryProperties.HeapSizes {
		core.LogInfo("memory heap %d: %d MiB", i, size/1024/1024)
	}

	requirements := defaultDeviceRequirements()
	queueInfos := queueCreateInfos(info.queues)
	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(requirements.DeviceExtensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(requirements.DeviceExtensionNames),
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
		PNext: unsafe.Pointer(&vk.PhysicalDeviceVulkan13Features{
			SType:            vk.StructureTypePhysicalDeviceVulkan13Features,
			DynamicRendering: vk.True,
		}),
	}
	if res := vk.CreateDevice(device.PhysicalDevice, &deviceCreateInfo, context.Allocator, &device.LogicalDevice); res != vk.Success {
		return messenger.Fail(core.CodeCreateDevice, "failed to create logical device: %s", VulkanResultString(res, true))
	}
	core.LogInfo("logical device created")

	device.Rendering = LoadDynamicRendering(context.getInstanceProcAddr, context.Instance, device.LogicalDevice)
	if !device.Rendering.Loaded() {
		return messenger.Fail(core.CodeMissingRenderingCommands, "device `%s` exposes no vkCmdBeginRendering/vkCmdEndRendering", device.Name)
	}

	vk.GetDeviceQueue(device.LogicalDevice, device.RenderFamilyIndex, 0, &device.RenderQueue)
	context.Locks.SetQueueFamily(device.RenderFamilyIndex)
	if device.ComputeFamilyIndex >= 0 {
		vk.GetDeviceQueue(device.LogicalDevice, uint32(device.ComputeFamilyIndex), 0, &device.ComputeQueue)
		context.Locks.SetQueueFamily(uint32(device.ComputeFamilyIndex))
	}
	if device.TransferFamilyIndex >= 0 {
		vk.GetDeviceQueue(device.LogicalDevice, uint32(device.TransferFamilyIndex), 0, &device.TransferQueue)
		context.Locks.SetQueueFamily(uint32(device.TransferFamilyIndex))
	}
	core.LogDebug("queue families: render %d, compute %d, transfer %d", device.RenderFamilyIndex, device.ComputeFamilyIndex, device.TransferFamilyIndex)

	device.RenderCommandPool, err = NewCommandPool(context, messenger, device.RenderFamilyIndex)
	return err
}

func DeviceDestroy(context *VulkanContext) {
	device := context.Device
	if device == nil {
		return
	}
	if device.RenderCommandPool != nil {
		vk.DestroyCommandPool(device.LogicalDevice, device.RenderCommandPool, context.Allocator)
		device.RenderCommandPool = nil
	}
	device.Rendering = DynamicRendering{}
	device.RenderQueue = nil
	device.ComputeQueue = nil
	device.TransferQueue = nil
	if device.LogicalDevice != nil {
		core.LogInfo("destroying logical device")
		vk.DestroyDevice(device.LogicalDevice, context.Allocator)
		device.LogicalDevice = nil
	}
	// Physical devices are not destroyed.
	device.PhysicalDevice = nil
}
