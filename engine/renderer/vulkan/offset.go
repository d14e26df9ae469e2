package vulkan

import (
	"math"

	vk "github.com/goki/vulkan"
	wmath "github.com/spaghettifunk/wreck/engine/math"
)

// MemoryRequirement is the part of vk.MemoryRequirements the offset builder needs.
type MemoryRequirement struct {
	Size      vk.DeviceSize
	Alignment vk.DeviceSize
	TypeBits  uint32
}

func memoryRequirementOf(req vk.MemoryRequirements) MemoryRequirement {
	req.Deref()
	return MemoryRequirement{
		Size:      req.Size,
		Alignment: req.Alignment,
		TypeBits:  req.MemoryTypeBits,
	}
}

// OffsetBuilder lays a stream of buffers out in one shared allocation.
type OffsetBuilder struct {
	size      vk.DeviceSize
	alignment vk.DeviceSize
	typeBits  uint32
	count     int
}

func NewOffsetBuilder() *OffsetBuilder {
	return &OffsetBuilder{typeBits: math.MaxUint32}
}

// Push places req after everything pushed so far and returns its offset.
func (ob *OffsetBuilder) Push(req MemoryRequirement) vk.DeviceSize {
	offset := wmath.Align(ob.size, req.Alignment)
	ob.size = offset + req.Size
	ob.alignment = wmath.Max(ob.alignment, req.Alignment)
	ob.typeBits &= req.TypeBits
	ob.count++
	return offset
}

func (ob *OffsetBuilder) Count() int {
	return ob.count
}

// Request turns the accumulated layout into an arena request.
func (ob *OffsetBuilder) Request(positive, negative vk.MemoryPropertyFlags) AllocationRequest {
	return AllocationRequest{
		Size:     ob.size,
		TypeBits: ob.typeBits,
		Positive: positive,
		Negative: negative,
	}
}

func (ob *OffsetBuilder) Size() vk.DeviceSize      { return ob.size }
func (ob *OffsetBuilder) Alignment() vk.DeviceSize { return ob.alignment }
func (ob *OffsetBuilder) TypeBits() uint32         { return ob.typeBits }
