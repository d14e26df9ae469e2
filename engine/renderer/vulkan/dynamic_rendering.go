package vulkan

/*
#include <stdlib.h>

typedef void* (*wreckProcLoader)(void* handle, const char* name);
typedef void (*wreckBeginRendering)(void* commandBuffer, const void* renderingInfo);
typedef void (*wreckEndRendering)(void* commandBuffer);

static void* wreckLoadProc(void* loader, void* handle, const char* name) {
	return ((wreckProcLoader)loader)(handle, name);
}

static void wreckCallBeginRendering(void* fn, void* commandBuffer, const void* renderingInfo) {
	((wreckBeginRendering)fn)(commandBuffer, renderingInfo);
}

static void wreckCallEndRendering(void* fn, void* commandBuffer) {
	((wreckEndRendering)fn)(commandBuffer);
}
*/
import "C"

import (
	"unsafe"

	vk "github.com/goki/vulkan"
)

// The bindings carry the dynamic rendering structs but not its commands, so the
// entry points are resolved per device and called through the trampolines above.
var (
	beginRenderingNames = []string{"vkCmdBeginRendering", "vkCmdBeginRenderingKHR"}
	endRenderingNames   = []string{"vkCmdEndRendering", "vkCmdEndRenderingKHR"}
)

// DynamicRendering holds the device level vkCmdBeginRendering and
// vkCmdEndRendering pointers.
type DynamicRendering struct {
	begin unsafe.Pointer
	end   unsafe.Pointer
}

func (d DynamicRendering) Loaded() bool {
	return d.begin != nil && d.end != nil
}

// resolveDynamicRendering looks up the core names first and the KHR aliases second.
func resolveDynamicRendering(lookup func(name string) unsafe.Pointer) DynamicRendering {
	first := func(names []string) unsafe.Pointer {
		for _, name := range names {
			if fn := lookup(name); fn != nil {
				return fn
			}
		}
		return nil
	}
	return DynamicRendering{
		begin: first(beginRenderingNames),
		end:   first(endRenderingNames),
	}
}

func loadProc(loader, handle unsafe.Pointer, name string) unsafe.Pointer {
	if loader == nil {
		return nil
	}
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	return C.wreckLoadProc(loader, handle, cname)
}

// LoadDynamicRendering resolves the rendering commands of device through
// vkGetDeviceProcAddr, itself fetched with the instance loader.
func LoadDynamicRendering(getInstanceProcAddr unsafe.Pointer, instance vk.Instance, device vk.Device) DynamicRendering {
	getDeviceProcAddr := loadProc(getInstanceProcAddr, unsafe.Pointer(instance), "vkGetDeviceProcAddr")
	return resolveDynamicRendering(func(name string) unsafe.Pointer {
		return loadProc(getDeviceProcAddr, unsafe.Pointer(device), name)
	})
}

// CmdBeginRendering records vkCmdBeginRendering. The C copy of info is freed once recorded.
func (d DynamicRendering) CmdBeginRendering(cmd vk.CommandBuffer, info *vk.RenderingInfo) {
	ref, _ := info.PassRef()
	C.wreckCallBeginRendering(d.begin, unsafe.Pointer(cmd), unsafe.Pointer(ref))
	info.Free()
}

func (d DynamicRendering) CmdEndRendering(cmd vk.CommandBuffer) {
	C.wreckCallEndRendering(d.end, unsafe.Pointer(cmd))
}
