package platform

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/wreck/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

type Platform struct {
	Window *glfw.Window
	events *core.EventBus
}

func New(events *core.EventBus) *Platform {
	return &Platform{
		Window: nil,
		events: events,
	}
}

func (p *Platform) Startup(applicationName string, x uint32, y uint32, width uint32, height uint32) error {
	if err := glfw.Init(); err != nil {
		return core.NewError(core.CodeGlfwInit, "failed to initialize glfw: %s", err)
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return core.NewError(core.CodeGlfwInit, "glfw reports no Vulkan loader")
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		glfw.Terminate()
		return core.NewError(core.CodeCreateWindow, "failed to create window: %s", err)
	}
	p.Window = window

	p.Window.SetKeyCallback(p.keyCallback)
	p.Window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	p.Window.SetCloseCallback(p.closeCallback)
	p.Window.SetPos(int(x), int(y))
	p.Window.Show()

	return nil
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

func (p *Platform) PollEvents() {
	glfw.PollEvents()
}

func (p *Platform) ShouldClose() bool {
	return p.Window == nil || p.Window.ShouldClose()
}

func (p *Platform) FramebufferSize() (uint32, uint32) {
	w, h := p.Window.GetFramebufferSize()
	return uint32(w), uint32(h)
}

// GetInstanceProcAddress feeds the Vulkan loader entry point to the bindings.
func (p *Platform) GetInstanceProcAddress() unsafe.Pointer {
	return glfw.GetVulkanGetInstanceProcAddress()
}

func (p *Platform) GetRequiredExtensionNames() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

// CreateSurface returns the raw VkSurfaceKHR handle for instance.
func (p *Platform) CreateSurface(instance interface{}) (uintptr, error) {
	surface, err := p.Window.CreateWindowSurface(instance, nil)
	if err != nil {
		return 0, core.NewError(core.CodeCreateSurface, "vulkan surface creation failed: %s", err)
	}
	return surface, nil
}

// LargestVideoMode returns the biggest resolution offered by any connected monitor.
func (p *Platform) LargestVideoMode() (uint32, uint32, error) {
	var width, height uint32
	for _, monitor := range glfw.GetMonitors() {
		for _, mode := range monitor.GetVideoModes() {
			if uint64(mode.Width)*uint64(mode.Height) > uint64(width)*uint64(height) {
				width, height = uint32(mode.Width), uint32(mode.Height)
			}
		}
	}
	if width == 0 || height == 0 {
		return 0, 0, core.NewError(core.CodeNoMonitor, "no monitor reports a video mode")
	}
	return width, height, nil
}

func (p *Platform) String() string {
	if p.Window == nil {
		return "platform(no window)"
	}
	w, h := p.Window.GetSize()
	return fmt.Sprintf("platform(window %dx%d)", w, h)
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action != glfw.Press {
		return
	}
	if key == glfw.KeyEscape {
		p.events.Fire(core.EVENT_CODE_APPLICATION_QUIT, p, core.EventContext{})
		return
	}
	p.events.Fire(core.EVENT_CODE_KEY_PRESSED, p, core.EventContext{Key: int32(key)})
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	p.events.Fire(core.EVENT_CODE_RESIZED, p, core.EventContext{Width: uint32(width), Height: uint32(height)})
}

func (p *Platform) closeCallback(w *glfw.Window) {
	p.events.Fire(core.EVENT_CODE_APPLICATION_QUIT, p, core.EventContext{})
}
