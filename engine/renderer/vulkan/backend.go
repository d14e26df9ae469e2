package vulkan

import (
	"runtime"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/wreck/engine/core"
)

const validationLayerName = "VK_LAYER_KHRONOS_validation"

// SurfaceHost is the window system the bootstrap creates its instance and surface for.
type SurfaceHost interface {
	WindowHost
	GetInstanceProcAddress() unsafe.Pointer
	GetRequiredExtensionNames() []string
	CreateSurface(instance interface{}) (uintptr, error)
}

type BootstrapConfig struct {
	ApplicationName string
	Validation      bool
}

// NewVulkanContext creates the instance, debug callback, surface and device.
// Everything created so far is released when a step fails.
func NewVulkanContext(host SurfaceHost, config BootstrapConfig, messenger *core.Messenger) (*VulkanContext, error) {
	if messenger == nil {
		messenger = core.NewMessenger(nil)
	}

	procAddr := host.GetInstanceProcAddress()
	if procAddr == nil {
		return nil, messenger.Fail(core.CodeVulkanInit, "GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		return nil, messenger.Fail(core.CodeVulkanInit, "failed to initialize vk: %s", err)
	}

	context := &VulkanContext{
		// TODO: custom allocator.
		Allocator:           nil,
		Locks:               NewVulkanLockPool(),
		getInstanceProcAddr: procAddr,
	}

	var cleanup cleanupStack
	defer cleanup.run()
	cleanup.push(context.Destroy)

	if err := context.createInstance(host, config, messenger); err != nil {
		return nil, err
	}
	if config.Validation {
		if err := context.createDebugCallback(messenger); err != nil {
			return nil, err
		}
	}

	core.LogDebug("creating Vulkan surface...")
	surface, err := host.CreateSurface(context.Instance)
	if err != nil {
		return nil, messenger.Fail(core.CodeOf(err), "%s", err)
	}
	context.Surface = vk.SurfaceFromPointer(surface)

	if err := DeviceCreate(context, messenger); err != nil {
		return nil, err
	}

	cleanup.release()
	core.LogInfo("Vulkan context initialized on `%s` (%s)", context.Device.Name, context.Device.Type)
	return context, nil
}

func instanceExtensions(platformExtensions []string, validation bool) []string {
	extensions := []string{"VK_KHR_surface"}
	for _, name := range platformExtensions {
		if name != "VK_KHR_surface" {
			extensions = append(extensions, name)
		}
	}
	if runtime.GOOS == "darwin" {
		extensions = append(extensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
	}
	if validation {
		extensions = append(extensions, vk.ExtDebugReportExtensionName)
	}
	return extensions
}

func availableLayerNames() ([]string, error) {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return nil, vk.Error(res)
	}
	layers := make([]vk.LayerProperties, count)
	if count > 0 {
		if res := vk.EnumerateInstanceLayerProperties(&count, layers); res != vk.Success {
			return nil, vk.Error(res)
		}
	}
	names := make([]string, 0, count)
	for i := range layers {
		layers[i].Deref()
		end := FindFirstZeroInByteArray(layers[i].LayerName[:])
		names = append(names, string(layers[i].LayerName[:end]))
	}
	return names, nil
}

func (vc *VulkanContext) createInstance(host SurfaceHost, config BootstrapConfig, messenger *core.Messenger) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         vk.MakeVersion(1, 3, 0),
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		PApplicationName:   VulkanSafeString(config.ApplicationName),
		PEngineName:        VulkanSafeString("Wreck Engine"),
	}

	extensions := instanceExtensions(host.GetRequiredExtensionNames(), config.Validation)
	core.LogDebug("required instance extensions: %v", extensions)

	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensions),
	}
	if runtime.GOOS == "darwin" {
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	var layers []string
	if config.Validation {
		core.LogInfo("validation layers enabled, enumerating...")
		available, err := availableLayerNames()
		if err != nil {
			return messenger.Fail(core.CodeMissingLayer, "failed to enumerate instance layers: %s", err)
		}
		layers = []string{validationLayerName}
		if missing := missingExtensions(available, layers); len(missing) > 0 {
			return messenger.Fail(core.CodeMissingLayer, "required validation layer is missing: %v", missing)
		}
	}
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	if res := vk.CreateInstance(&createInfo, vc.Allocator, &vc.Instance); res != vk.Success {
		code := core.CodeCreateInstance
		if res == vk.ErrorExtensionNotPresent {
			code = core.CodeMissingExtension
		}
		return messenger.Fail(code, "failed in creating the Vulkan instance: %s", VulkanResultString(res, true))
	}
	if err := vk.InitInstance(vc.Instance); err != nil {
		return messenger.Fail(core.CodeCreateInstance, "failed to load instance functions: %s", err)
	}
	core.LogInfo("Vulkan instance created")
	return nil
}

func (vc *VulkanContext) createDebugCallback(messenger *core.Messenger) error {
	core.LogDebug("creating Vulkan debugger...")
	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: validationReporter(messenger),
	}
	var dbg vk.DebugReportCallback
	if res := vk.CreateDebugReportCallback(vc.Instance, &debugCreateInfo, nil, &dbg); res != vk.Success {
		return messenger.Fail(core.CodeCreateDebugCallback, "vk.CreateDebugReportCallback failed: %s", VulkanResultString(res, false))
	}
	vc.debugMessenger = dbg
	core.LogDebug("Vulkan debugger created")
	return nil
}

// Destroy tears the context down in reverse creation order. It is safe on a
// partially created context.
func (vc *VulkanContext) Destroy() {
	if vc.Device != nil && vc.Device.LogicalDevice != nil {
		vk.DeviceWaitIdle(vc.Device.LogicalDevice)
	}
	DeviceDestroy(vc)
	vc.Device = nil

	if vc.Surface != vk.NullSurface {
		vk.DestroySurface(vc.Instance, vc.Surface, vc.Allocator)
		vc.Surface = vk.NullSurface
	}
	if vc.debugMessenger != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(vc.Instance, vc.debugMessenger, vc.Allocator)
		vc.debugMessenger = vk.NullDebugReportCallback
	}
	if vc.Instance != nil {
		vk.DestroyInstance(vc.Instance, vc.Allocator)
		vc.Instance = nil
	}
}

// validationReporter raises layer errors and warnings as CodeValidationMessage.
// The layer call itself is never aborted.
func validationReporter(messenger *core.Messenger) vk.DebugReportCallbackFunc {
	return func(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
		switch {
		case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
			messenger.Warn(core.CodeValidationMessage, "ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
		case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
			messenger.Warn(core.CodeValidationMessage, "WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
		case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
			messenger.Warn(core.CodeValidationMessage, "PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
		case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
			core.LogDebug("DEBUG: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
		default:
			core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
		}
		return vk.Bool32(vk.False)
	}
}
