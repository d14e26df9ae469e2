package vulkan

import (
	"fmt"
	"sync"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/wreck/engine/core"
)

type MemoryType struct {
	PropertyFlags vk.MemoryPropertyFlags
	HeapIndex     uint32
}

// MemoryProperties is a dereferenced copy of vk.PhysicalDeviceMemoryProperties.
type MemoryProperties struct {
	Types     []MemoryType
	HeapSizes []vk.DeviceSize
}

func NewMemoryProperties(props vk.PhysicalDeviceMemoryProperties) MemoryProperties {
	props.Deref()

	mp := MemoryProperties{
		Types:     make([]MemoryType, props.MemoryTypeCount),
		HeapSizes: make([]vk.DeviceSize, props.MemoryHeapCount),
	}
	for i := uint32(0); i < props.MemoryTypeCount; i++ {
		props.MemoryTypes[i].Deref()
		mp.Types[i] = MemoryType{
			PropertyFlags: props.MemoryTypes[i].PropertyFlags,
			HeapIndex:     props.MemoryTypes[i].HeapIndex,
		}
	}
	for i := uint32(0); i < props.MemoryHeapCount; i++ {
		props.MemoryHeaps[i].Deref()
		mp.HeapSizes[i] = props.MemoryHeaps[i].Size
	}
	return mp
}

// VramAllocation is one slot of the arena table. A slot is occupied while Size > 0.
type VramAllocation struct {
	Memory    vk.DeviceMemory
	Size      vk.DeviceSize
	HeapIndex uint32
	TypeIndex uint32
}

// AllocationRequest asks for Size bytes from a memory type that is allowed by
// TypeBits, carries every Positive flag and none of the Negative flags.
type AllocationRequest struct {
	Size     vk.DeviceSize
	TypeBits uint32
	Positive vk.MemoryPropertyFlags
	Negative vk.MemoryPropertyFlags
}

// MemoryBackend performs the real device memory calls for an arena.
type MemoryBackend interface {
	Allocate(size vk.DeviceSize, typeIndex uint32) (vk.DeviceMemory, error)
	Free(memory vk.DeviceMemory)
}

type Arena interface {
	Allocate(req AllocationRequest) (*VramAllocation, error)
	Free(allocation *VramAllocation)
	HeapRemaining(heap uint32) vk.DeviceSize
	Terminate()
}

// FirstFitArena grants the first memory type that satisfies a request. Heap
// capacity is a running subtraction: a free adds the size back and nothing
// else is reclaimed until Terminate.
type FirstFitArena struct {
	mu            sync.Mutex
	backend       MemoryBackend
	messenger     *core.Messenger
	types         []MemoryType
	heapRemaining []vk.DeviceSize
	table         [MAX_VRAM_ALLOCATIONS]VramAllocation
	count         uint32
}

func NewFirstFitArena(backend MemoryBackend, props MemoryProperties, messenger *core.Messenger) *FirstFitArena {
	if messenger == nil {
		messenger = core.NewMessenger(nil)
	}
	fa := &FirstFitArena{
		backend:       backend,
		messenger:     messenger,
		types:         append([]MemoryType(nil), props.Types...),
		heapRemaining: append([]vk.DeviceSize(nil), props.HeapSizes...),
	}
	return fa
}

func (fa *FirstFitArena) Allocate(req AllocationRequest) (*VramAllocation, error) {
	fa.mu.Lock()
	defer fa.mu.Unlock()

	if fa.count >= MAX_VRAM_ALLOCATIONS {
		return nil, fa.messenger.Fail(core.CodeVramTableFull, "vram allocation table is full (%d entries)", MAX_VRAM_ALLOCATIONS)
	}
	if req.Size == 0 || req.TypeBits == 0 {
		return nil, fa.messenger.Fail(core.CodeInvalidVramRequest, "invalid vram request {size: %d type bits: %#x}", req.Size, req.TypeBits)
	}

	typeIndex, ok := fa.findType(req)
	if !ok {
		return nil, fa.messenger.Fail(core.CodeVramNoMemoryType,
			"no memory type for {size: %d type bits: %#x positive: %#x negative: %#x}",
			req.Size, req.TypeBits, uint32(req.Positive), uint32(req.Negative))
	}

	memory, err := fa.backend.Allocate(req.Size, typeIndex)
	if err != nil {
		return nil, fa.messenger.Fail(core.CodeAllocateVram, "failed to allocate %d bytes from memory type %d: %s", req.Size, typeIndex, err)
	}

	slot := fa.freeSlot()
	heap := fa.types[typeIndex].HeapIndex
	fa.table[slot] = VramAllocation{
		Memory:    memory,
		Size:      req.Size,
		HeapIndex: heap,
		TypeIndex: typeIndex,
	}
	fa.heapRemaining[heap] -= req.Size
	fa.count++
	return &fa.table[slot], nil
}

func (fa *FirstFitArena) findType(req AllocationRequest) (uint32, bool) {
	for i, t := range fa.types {
		if req.TypeBits&(1<<uint32(i)) == 0 {
			continue
		}
		if t.PropertyFlags&req.Positive != req.Positive || t.PropertyFlags&req.Negative != 0 {
			continue
		}
		if fa.heapRemaining[t.HeapIndex] <= req.Size {
			continue
		}
		return uint32(i), true
	}
	return 0, false
}

func (fa *FirstFitArena) freeSlot() int {
	for i := range fa.table {
		if fa.table[i].Size == 0 {
			return i
		}
	}
	// count < MAX_VRAM_ALLOCATIONS guarantees a free slot
	panic(fmt.Sprintf("vram table inconsistent: %d allocations but no free slot", fa.count))
}

// Free returns the allocation to its heap and clears the slot. Freeing nil or
// an already freed slot does nothing.
func (fa *FirstFitArena) Free(allocation *VramAllocation) {
	if allocation == nil {
		return
	}
	fa.mu.Lock()
	defer fa.mu.Unlock()

	for i := range fa.table {
		if &fa.table[i] != allocation || fa.table[i].Size == 0 {
			continue
		}
		fa.backend.Free(fa.table[i].Memory)
		fa.heapRemaining[fa.table[i].HeapIndex] += fa.table[i].Size
		fa.table[i] = VramAllocation{}
		fa.count--
		return
	}
}

func (fa *FirstFitArena) HeapRemaining(heap uint32) vk.DeviceSize {
	fa.mu.Lock()
	defer fa.mu.Unlock()

	if int(heap) >= len(fa.heapRemaining) {
		return 0
	}
	return fa.heapRemaining[heap]
}

func (fa *FirstFitArena) Count() uint32 {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	return fa.count
}

// Terminate frees every allocation still outstanding.
func (fa *FirstFitArena) Terminate() {
	fa.mu.Lock()
	defer fa.mu.Unlock()

	for i := range fa.table {
		if fa.table[i].Size == 0 {
			continue
		}
		fa.backend.Free(fa.table[i].Memory)
		fa.heapRemaining[fa.table[i].HeapIndex] += fa.table[i].Size
		fa.table[i] = VramAllocation{}
	}
	fa.count = 0
}

type vkMemoryBackend struct {
	context *VulkanContext
}

func newVkMemoryBackend(context *VulkanContext) *vkMemoryBackend {
	return &vkMemoryBackend{context: context}
}

func (b *vkMemoryBackend) Allocate(size vk.DeviceSize, typeIndex uint32) (vk.DeviceMemory, error) {
	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  size,
		MemoryTypeIndex: typeIndex,
	}
	var memory vk.DeviceMemory
	var res vk.Result
	b.context.Locks.SafeCall(MemoryManagement, func() error {
		res = vk.AllocateMemory(b.context.Device.LogicalDevice, &allocateInfo, b.context.Allocator, &memory)
		return nil
	})
	if res != vk.Success {
		return nil, fmt.Errorf("vkAllocateMemory returned %s", VulkanResultString(res, false))
	}
	return memory, nil
}

func (b *vkMemoryBackend) Free(memory vk.DeviceMemory) {
	if memory == nil {
		return
	}
	b.context.Locks.SafeCall(MemoryManagement, func() error {
		vk.FreeMemory(b.context.Device.LogicalDevice, memory, b.context.Allocator)
		return nil
	})
}
