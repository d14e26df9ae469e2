package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/wreck/engine/core"
	"golang.org/x/exp/slices"
)

type BindingType int

const (
	BindingTypeNone BindingType = iota
	BindingTypeUniform
	BindingTypeStorage
)

func (t BindingType) String() string {
	switch t {
	case BindingTypeUniform:
		return "uniform"
	case BindingTypeStorage:
		return "storage"
	default:
		return "none"
	}
}

func (t BindingType) descriptorType() vk.DescriptorType {
	if t == BindingTypeStorage {
		return vk.DescriptorTypeStorageBuffer
	}
	return vk.DescriptorTypeUniformBuffer
}

func (t BindingType) bufferUsage() vk.BufferUsageFlags {
	if t == BindingTypeStorage {
		return vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)
	}
	return vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)
}

type Mutability int

const (
	// Never written by the host. Contents come from the GPU.
	HostImmutable Mutability = iota
	// Written by the host through an initial and/or frame batch.
	HostMutable
)

type BindingLocation struct {
	Set     uint32
	Binding uint32
}

func (l BindingLocation) String() string {
	return fmt.Sprintf("{set: %d binding: %d}", l.Set, l.Binding)
}

func compareLocations(a, b BindingLocation) int {
	switch {
	case a.Set != b.Set:
		return int(a.Set) - int(b.Set)
	default:
		return int(a.Binding) - int(b.Binding)
	}
}

// BindingDecl is what an application declares for one shader visible buffer.
type BindingDecl struct {
	Name         string
	Set          uint32
	Binding      uint32
	Type         BindingType
	Mutability   Mutability
	Size         vk.DeviceSize
	InitialBatch BatchWriter
	FrameBatch   BatchWriter
}

func (d BindingDecl) Location() BindingLocation {
	return BindingLocation{Set: d.Set, Binding: d.Binding}
}

// Binding is a declaration resolved to GPU buffers. HostBuffer is only set for
// host mutable bindings on a discrete device, where it stages writes for DeviceBuffer.
type Binding struct {
	BindingDecl

	DeviceBuffer vk.Buffer
	HostBuffer   vk.Buffer
	DeviceOffset vk.DeviceSize
	HostOffset   vk.DeviceSize

	plan bufferPlan
}

func (b *Binding) Staged() bool {
	return b.plan.staged
}

// writeOffset is where host writes for this binding land inside the mapped block.
func (b *Binding) writeOffset() vk.DeviceSize {
	if b.plan.staged {
		return b.HostOffset
	}
	return b.DeviceOffset
}

type bindingTable struct {
	byLocation map[BindingLocation]*Binding
	// sorted by set, then binding
	order    []BindingLocation
	setCount uint32
}

func (bt *bindingTable) bindingsInSet(set uint32) []*Binding {
	var out []*Binding
	for _, loc := range bt.order {
		if loc.Set == set {
			out = append(out, bt.byLocation[loc])
		}
	}
	return out
}

// validateBindings checks every declaration and builds the binding table.
// Declarations rejected by a continuing message callback are left out.
func validateBindings(decls []BindingDecl, messenger *core.Messenger) (*bindingTable, error) {
	table := &bindingTable{
		byLocation: make(map[BindingLocation]*Binding, len(decls)),
	}

	for i := range decls {
		decl := decls[i]
		loc := decl.Location()

		if decl.Set >= MAX_DESCRIPTOR_SETS {
			if err := messenger.Error(core.CodeTooManySets, "binding %s: set index exceeds %d", loc, MAX_DESCRIPTOR_SETS-1); err != nil {
				return nil, err
			}
			continue
		}
		if decl.Binding >= MAX_BINDINGS_PER_SET {
			if err := messenger.Error(core.CodeTooManyBindings, "binding %s: binding index exceeds %d", loc, MAX_BINDINGS_PER_SET-1); err != nil {
				return nil, err
			}
			continue
		}
		if decl.Type != BindingTypeUniform && decl.Type != BindingTypeStorage {
			if err := messenger.Error(core.CodeInvalidBindingType, "binding %s: invalid type %d", loc, int(decl.Type)); err != nil {
				return nil, err
			}
			continue
		}
		if decl.Size == 0 {
			if err := messenger.Error(core.CodeInvalidBindingSize, "binding %s: size is zero", loc); err != nil {
				return nil, err
			}
			continue
		}
		switch decl.Mutability {
		case HostImmutable:
			if decl.InitialBatch != nil || decl.FrameBatch != nil {
				if err := messenger.Error(core.CodeImmutableWithBatch, "binding %s: host immutable binding has a write callback", loc); err != nil {
					return nil, err
				}
				continue
			}
		case HostMutable:
			if decl.InitialBatch == nil && decl.FrameBatch == nil {
				if err := messenger.Error(core.CodeMutableWithoutBatch, "binding %s: host mutable binding has no write callback", loc); err != nil {
					return nil, err
				}
				continue
			}
		default:
			if err := messenger.Error(core.CodeInvalidMutability, "binding %s: invalid mutability %d", loc, int(decl.Mutability)); err != nil {
				return nil, err
			}
			continue
		}
		if _, exists := table.byLocation[loc]; exists {
			if err := messenger.Error(core.CodeDuplicateBinding, "binding %s declared more than once", loc); err != nil {
				return nil, err
			}
			continue
		}

		if decl.Type == BindingTypeUniform && decl.Mutability == HostImmutable {
			// shaders cannot write uniform buffers, so nothing ever fills it
			messenger.Warn(core.CodeUnusedBinding, "binding %s: host immutable uniform buffer is never written", loc)
		}

		table.byLocation[loc] = &Binding{BindingDecl: decl}
		table.order = append(table.order, loc)
	}

	slices.SortFunc(table.order, compareLocations)

	used := make([]bool, MAX_DESCRIPTOR_SETS)
	for _, loc := range table.order {
		used[loc.Set] = true
		if loc.Set+1 > table.setCount {
			table.setCount = loc.Set + 1
		}
	}
	for set := uint32(0); set < table.setCount; set++ {
		if used[set] {
			continue
		}
		// a continuing callback gets an empty layout in the gap
		if err := messenger.Error(core.CodeNonContiguousSets, "descriptor set %d is unused but set %d is declared", set, table.setCount-1); err != nil {
			return nil, err
		}
	}

	return table, nil
}

type bufferPlan struct {
	deviceUsage vk.BufferUsageFlags
	hostUsage   vk.BufferUsageFlags
	// discrete and host mutable: writes go to a host buffer and are copied
	staged bool
	// integrated and host mutable: writes go straight to the device buffer
	mapped bool
}

func planBuffers(decl BindingDecl, deviceType DeviceType) bufferPlan {
	plan := bufferPlan{deviceUsage: decl.Type.bufferUsage()}
	if decl.Mutability != HostMutable {
		return plan
	}
	if deviceType == DeviceTypeDiscrete {
		plan.staged = true
		plan.deviceUsage |= vk.BufferUsageFlags(vk.BufferUsageTransferDstBit)
		plan.hostUsage = vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit)
	} else {
		plan.mapped = true
	}
	return plan
}

// deviceBlockFlags returns the property flags for the shared device block.
// An integrated device maps that block when any binding writes into it.
func deviceBlockFlags(deviceType DeviceType, mapped bool) (positive, negative vk.MemoryPropertyFlags) {
	positive = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	if deviceType != DeviceTypeDiscrete && mapped {
		positive |= vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) | vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit)
	}
	return positive, 0
}

func hostBlockFlags() (positive, negative vk.MemoryPropertyFlags) {
	return vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) | vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit), 0
}
