package engine

import "github.com/spaghettifunk/wreck/engine/renderer/vulkan"

// Game is what an application hands to the engine: the buffers its shaders
// read, the pipelines it records each frame and the callbacks driving them.
type Game struct {
	ApplicationConfig *ApplicationConfig
	Bindings          []vulkan.BindingDecl
	Pipelines         []vulkan.PipelineNode
	// Handed to every render callback through FrameState.User.
	State interface{}

	FnStart    vulkan.StartCallback
	FnUpdate   vulkan.UpdateCallback
	FnOnResize OnResize
	FnOnKey    OnKey
}

type OnResize func(width uint32, height uint32) error
type OnKey func(key int32)
