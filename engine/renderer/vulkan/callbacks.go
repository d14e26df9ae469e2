package vulkan

import (
	vk "github.com/goki/vulkan"
)

// FrameState is the simulation context threaded through every user callback
// of one loop iteration.
type FrameState struct {
	// Extent of the swapchain images being rendered.
	Extent vk.Extent2D
	// Seconds since the loop started.
	Time float64
	// Seconds since the previous frame.
	Delta float64
	// Number of frames presented so far.
	Frame uint64
	// Application owned data.
	User interface{}
}

// BatchWriter fills the host visible bytes of one binding. dst is only valid
// for the duration of the call.
type BatchWriter interface {
	Write(state *FrameState, dst []byte)
}

type BatchWriterFunc func(state *FrameState, dst []byte)

func (f BatchWriterFunc) Write(state *FrameState, dst []byte) {
	f(state, dst)
}

/**
 * @brief A single non-indexed draw. First vertex and first instance are always zero.
 */
type DrawCall struct {
	VertexCount   uint32
	InstanceCount uint32
}

// DrawCallback produces the draws of a graphics node for the current frame.
type DrawCallback interface {
	Draws(state *FrameState) []DrawCall
}

type DrawFunc func(state *FrameState) []DrawCall

func (f DrawFunc) Draws(state *FrameState) []DrawCall {
	return f(state)
}

// DispatchCall holds the work group counts of one compute dispatch.
type DispatchCall struct {
	X, Y, Z uint32
}

type DispatchCallback interface {
	Dispatches(state *FrameState) []DispatchCall
}

type DispatchFunc func(state *FrameState) []DispatchCall

func (f DispatchFunc) Dispatches(state *FrameState) []DispatchCall {
	return f(state)
}

// StartCallback runs once before the first frame.
type StartCallback func(state *FrameState) error

// UpdateCallback runs at the top of every frame, before the frame batch.
type UpdateCallback func(state *FrameState) error
