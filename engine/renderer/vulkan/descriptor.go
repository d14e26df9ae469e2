package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/wreck/engine/core"
)

// BindingContext owns every declared buffer, the memory behind them and the
// descriptor objects that expose them to shaders.
type BindingContext struct {
	device      bindingDevice
	arena       Arena
	messenger   *core.Messenger
	deviceType  DeviceType
	queueFamily uint32
	table       *bindingTable

	DeviceMemory *VramAllocation
	HostMemory   *VramAllocation
	mapped       []byte

	DescriptorPool vk.DescriptorPool
	// One per set index, gaps hold EmptySetLayout.
	SetLayouts     []vk.DescriptorSetLayout
	DescriptorSets []vk.DescriptorSet

	EmptySetLayout vk.DescriptorSetLayout
	EmptyLayout    vk.PipelineLayout
	// Nil when nothing is declared.
	FullLayout vk.PipelineLayout
}

func NewBindingContext(context *VulkanContext, arena Arena, decls []BindingDecl, messenger *core.Messenger) (*BindingContext, error) {
	return newBindingContext(&vkBindingDevice{context: context}, context.Device.Type, context.Device.RenderFamilyIndex, arena, decls, messenger)
}

func newBindingContext(device bindingDevice, deviceType DeviceType, queueFamily uint32, arena Arena, decls []BindingDecl, messenger *core.Messenger) (*BindingContext, error) {
	if messenger == nil {
		messenger = core.NewMessenger(nil)
	}
	table, err := validateBindings(decls, messenger)
	if err != nil {
		return nil, err
	}

	bc := &BindingContext{
		device:      device,
		arena:       arena,
		messenger:   messenger,
		deviceType:  deviceType,
		queueFamily: queueFamily,
		table:       table,
	}

	var cleanup cleanupStack
	defer cleanup.run()
	cleanup.push(bc.Destroy)

	if err := bc.createBuffers(); err != nil {
		return nil, err
	}
	if err := bc.createDescriptors(); err != nil {
		return nil, err
	}

	cleanup.release()
	messenger.Info("created %d bindings in %d descriptor sets", len(table.order), table.setCount)
	return bc, nil
}

func (bc *BindingContext) Binding(set, binding uint32) (*Binding, bool) {
	b, ok := bc.table.byLocation[BindingLocation{Set: set, Binding: binding}]
	return b, ok
}

// Bindings returns every binding ordered by set, then binding.
func (bc *BindingContext) Bindings() []*Binding {
	out := make([]*Binding, 0, len(bc.table.order))
	for _, loc := range bc.table.order {
		out = append(out, bc.table.byLocation[loc])
	}
	return out
}

func (bc *BindingContext) SetCount() uint32 {
	return bc.table.setCount
}

// Layout is the pipeline layout every pipeline is created against.
func (bc *BindingContext) Layout() vk.PipelineLayout {
	if bc.FullLayout != nil {
		return bc.FullLayout
	}
	return bc.EmptyLayout
}

func (bc *BindingContext) createBuffer(b *Binding, usage vk.BufferUsageFlags, side string) (vk.Buffer, error) {
	bufferInfo := vk.BufferCreateInfo{
		SType:                 vk.StructureTypeBufferCreateInfo,
		Size:                  b.Size,
		Usage:                 usage,
		SharingMode:           vk.SharingModeExclusive,
		QueueFamilyIndexCount: 1,
		PQueueFamilyIndices:   []uint32{bc.queueFamily},
	}
	buffer, res := bc.device.CreateBuffer(&bufferInfo)
	if res != vk.Success {
		return nil, bc.messenger.Fail(core.CodeCreateBuffer, "failed to create %s %s buffer for binding %s: %s",
			side, b.Type, b.Location(), VulkanResultString(res, false))
	}
	return buffer, nil
}

func (bc *BindingContext) createBuffers() error {
	deviceLayout := NewOffsetBuilder()
	hostLayout := NewOffsetBuilder()
	mapped := false

	for _, loc := range bc.table.order {
		b := bc.table.byLocation[loc]
		b.plan = planBuffers(b.BindingDecl, bc.deviceType)
		mapped = mapped || b.plan.mapped

		buffer, err := bc.createBuffer(b, b.plan.deviceUsage, "device")
		if err != nil {
			return err
		}
		b.DeviceBuffer = buffer
		b.DeviceOffset = deviceLayout.Push(bc.device.BufferRequirement(buffer))

		if !b.plan.staged {
			continue
		}
		buffer, err = bc.createBuffer(b, b.plan.hostUsage, "host")
		if err != nil {
			return err
		}
		b.HostBuffer = buffer
		b.HostOffset = hostLayout.Push(bc.device.BufferRequirement(buffer))
	}

	var err error
	if deviceLayout.Count() > 0 {
		positive, negative := deviceBlockFlags(bc.deviceType, mapped)
		if bc.DeviceMemory, err = bc.arena.Allocate(deviceLayout.Request(positive, negative)); err != nil {
			return err
		}
	}
	if hostLayout.Count() > 0 {
		positive, negative := hostBlockFlags()
		if bc.HostMemory, err = bc.arena.Allocate(hostLayout.Request(positive, negative)); err != nil {
			return err
		}
	}

	for _, loc := range bc.table.order {
		b := bc.table.byLocation[loc]
		if res := bc.device.BindBufferMemory(b.DeviceBuffer, bc.DeviceMemory.Memory, b.DeviceOffset); res != vk.Success {
			return bc.messenger.Fail(core.CodeBindBufferMemory, "failed to bind device memory of binding %s: %s", loc, VulkanResultString(res, false))
		}
		if b.HostBuffer == nil {
			continue
		}
		if res := bc.device.BindBufferMemory(b.HostBuffer, bc.HostMemory.Memory, b.HostOffset); res != vk.Success {
			return bc.messenger.Fail(core.CodeBindBufferMemory, "failed to bind host memory of binding %s: %s", loc, VulkanResultString(res, false))
		}
	}
	return nil
}

func (bc *BindingContext) createSetLayout(bindings []vk.DescriptorSetLayoutBinding) (vk.DescriptorSetLayout, error) {
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	layout, res := bc.device.CreateDescriptorSetLayout(&layoutInfo)
	if res != vk.Success {
		return nil, bc.messenger.Fail(core.CodeCreateDescriptorSetLayout, "failed to create descriptor set layout: %s", VulkanResultString(res, false))
	}
	return layout, nil
}

func (bc *BindingContext) createPipelineLayout(setLayouts []vk.DescriptorSetLayout) (vk.PipelineLayout, error) {
	layoutInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(setLayouts)),
		PSetLayouts:    setLayouts,
	}
	layout, res := bc.device.CreatePipelineLayout(&layoutInfo)
	if res != vk.Success {
		return nil, bc.messenger.Fail(core.CodeCreatePipelineLayout, "failed to create pipeline layout: %s", VulkanResultString(res, false))
	}
	return layout, nil
}

func (bc *BindingContext) createDescriptors() error {
	var err error

	if bc.EmptySetLayout, err = bc.createSetLayout(nil); err != nil {
		return err
	}
	if bc.EmptyLayout, err = bc.createPipelineLayout([]vk.DescriptorSetLayout{bc.EmptySetLayout}); err != nil {
		return err
	}
	if bc.table.setCount == 0 {
		return nil
	}

	bc.SetLayouts = make([]vk.DescriptorSetLayout, bc.table.setCount)
	for set := uint32(0); set < bc.table.setCount; set++ {
		bindings := bc.table.bindingsInSet(set)
		if len(bindings) == 0 {
			bc.SetLayouts[set] = bc.EmptySetLayout
			continue
		}
		layoutBindings := make([]vk.DescriptorSetLayoutBinding, len(bindings))
		for i, b := range bindings {
			layoutBindings[i] = vk.DescriptorSetLayoutBinding{
				Binding:         b.Binding,
				DescriptorType:  b.Type.descriptorType(),
				DescriptorCount: 1,
				StageFlags:      vk.ShaderStageFlags(vk.ShaderStageAll),
			}
		}
		if bc.SetLayouts[set], err = bc.createSetLayout(layoutBindings); err != nil {
			return err
		}
	}

	descriptorCount := MAX_DESCRIPTOR_SETS * MAX_BINDINGS_PER_SET
	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: descriptorCount},
		{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: descriptorCount},
		{Type: vk.DescriptorTypeSampledImage, DescriptorCount: descriptorCount},
		{Type: vk.DescriptorTypeStorageImage, DescriptorCount: descriptorCount},
	}
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       MAX_DESCRIPTOR_SETS,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	pool, res := bc.device.CreateDescriptorPool(&poolInfo)
	if res != vk.Success {
		return bc.messenger.Fail(core.CodeCreateDescriptorPool, "failed to create descriptor pool: %s", VulkanResultString(res, false))
	}
	bc.DescriptorPool = pool

	bc.DescriptorSets = make([]vk.DescriptorSet, bc.table.setCount)
	for set := range bc.DescriptorSets {
		allocateInfo := vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     bc.DescriptorPool,
			DescriptorSetCount: 1,
			PSetLayouts:        []vk.DescriptorSetLayout{bc.SetLayouts[set]},
		}
		if bc.DescriptorSets[set], res = bc.device.AllocateDescriptorSet(&allocateInfo); res != vk.Success {
			return bc.messenger.Fail(core.CodeAllocateDescriptorSets, "failed to allocate descriptor set %d: %s", set, VulkanResultString(res, false))
		}
	}

	writes := make([]vk.WriteDescriptorSet, 0, len(bc.table.order))
	for _, loc := range bc.table.order {
		b := bc.table.byLocation[loc]
		writes = append(writes, vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          bc.DescriptorSets[loc.Set],
			DstBinding:      loc.Binding,
			DescriptorCount: 1,
			DescriptorType:  b.Type.descriptorType(),
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: b.DeviceBuffer,
				Offset: 0,
				Range:  b.Size,
			}},
		})
	}
	bc.device.UpdateDescriptorSets(writes)

	bc.FullLayout, err = bc.createPipelineLayout(bc.SetLayouts)
	return err
}

// writableBlock is the allocation host writes land in, nil when nothing is host mutable.
func (bc *BindingContext) writableBlock() *VramAllocation {
	if bc.HostMemory != nil {
		return bc.HostMemory
	}
	for _, b := range bc.table.byLocation {
		if b.plan.mapped {
			return bc.DeviceMemory
		}
	}
	return nil
}

// Map maps the writable block for the lifetime of the render loop. It returns
// nil when no binding is host mutable.
func (bc *BindingContext) Map() ([]byte, error) {
	if bc.mapped != nil {
		return bc.mapped, nil
	}
	block := bc.writableBlock()
	if block == nil {
		return nil, nil
	}
	data, res := bc.device.MapMemory(block.Memory, block.Size)
	if res != vk.Success {
		return nil, bc.messenger.Fail(core.CodeMapMemory, "failed to map %d bytes of binding memory: %s", block.Size, VulkanResultString(res, false))
	}
	bc.mapped = unsafe.Slice((*byte)(data), int(block.Size))
	return bc.mapped, nil
}

func (bc *BindingContext) Unmap() {
	if bc.mapped == nil {
		return
	}
	bc.device.UnmapMemory(bc.writableBlock().Memory)
	bc.mapped = nil
}

// Destroy releases whatever was created so far, so it is safe on a partially
// built context.
func (bc *BindingContext) Destroy() {
	bc.Unmap()

	if bc.FullLayout != nil {
		bc.device.DestroyPipelineLayout(bc.FullLayout)
		bc.FullLayout = nil
	}
	if bc.DescriptorPool != nil {
		// frees the sets as well
		bc.device.DestroyDescriptorPool(bc.DescriptorPool)
		bc.DescriptorPool = nil
		bc.DescriptorSets = nil
	}
	for i, layout := range bc.SetLayouts {
		if layout != nil && layout != bc.EmptySetLayout {
			bc.device.DestroyDescriptorSetLayout(layout)
		}
		bc.SetLayouts[i] = nil
	}
	bc.SetLayouts = nil
	if bc.EmptyLayout != nil {
		bc.device.DestroyPipelineLayout(bc.EmptyLayout)
		bc.EmptyLayout = nil
	}
	if bc.EmptySetLayout != nil {
		bc.device.DestroyDescriptorSetLayout(bc.EmptySetLayout)
		bc.EmptySetLayout = nil
	}

	for _, loc := range bc.table.order {
		b := bc.table.byLocation[loc]
		if b.DeviceBuffer != nil {
			bc.device.DestroyBuffer(b.DeviceBuffer)
			b.DeviceBuffer = nil
		}
		if b.HostBuffer != nil {
			bc.device.DestroyBuffer(b.HostBuffer)
			b.HostBuffer = nil
		}
	}

	bc.arena.Free(bc.HostMemory)
	bc.HostMemory = nil
	bc.arena.Free(bc.DeviceMemory)
	bc.DeviceMemory = nil
}

// bindingDevice is the part of the logical device a BindingContext drives.
type bindingDevice interface {
	CreateBuffer(info *vk.BufferCreateInfo) (vk.Buffer, vk.Result)
	BufferRequirement(buffer vk.Buffer) MemoryRequirement
	BindBufferMemory(buffer vk.Buffer, memory vk.DeviceMemory, offset vk.DeviceSize) vk.Result
	CreateDescriptorSetLayout(info *vk.DescriptorSetLayoutCreateInfo) (vk.DescriptorSetLayout, vk.Result)
	CreatePipelineLayout(info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, vk.Result)
	CreateDescriptorPool(info *vk.DescriptorPoolCreateInfo) (vk.DescriptorPool, vk.Result)
	AllocateDescriptorSet(info *vk.DescriptorSetAllocateInfo) (vk.DescriptorSet, vk.Result)
	UpdateDescriptorSets(writes []vk.WriteDescriptorSet)
	MapMemory(memory vk.DeviceMemory, size vk.DeviceSize) (unsafe.Pointer, vk.Result)
	UnmapMemory(memory vk.DeviceMemory)
	DestroyBuffer(buffer vk.Buffer)
	DestroyDescriptorSetLayout(layout vk.DescriptorSetLayout)
	DestroyPipelineLayout(layout vk.PipelineLayout)
	DestroyDescriptorPool(pool vk.DescriptorPool)
}

type vkBindingDevice struct {
	context *VulkanContext
}

func (d *vkBindingDevice) CreateBuffer(info *vk.BufferCreateInfo) (vk.Buffer, vk.Result) {
	var buffer vk.Buffer
	res := vk.CreateBuffer(d.context.Device.LogicalDevice, info, d.context.Allocator, &buffer)
	return buffer, res
}

func (d *vkBindingDevice) BufferRequirement(buffer vk.Buffer) MemoryRequirement {
	var reqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.context.Device.LogicalDevice, buffer, &reqs)
	return memoryRequirementOf(reqs)
}

func (d *vkBindingDevice) BindBufferMemory(buffer vk.Buffer, memory vk.DeviceMemory, offset vk.DeviceSize) vk.Result {
	return vk.BindBufferMemory(d.context.Device.LogicalDevice, buffer, memory, offset)
}

func (d *vkBindingDevice) CreateDescriptorSetLayout(info *vk.DescriptorSetLayoutCreateInfo) (vk.DescriptorSetLayout, vk.Result) {
	var layout vk.DescriptorSetLayout
	res := vk.CreateDescriptorSetLayout(d.context.Device.LogicalDevice, info, d.context.Allocator, &layout)
	return layout, res
}

func (d *vkBindingDevice) CreatePipelineLayout(info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, vk.Result) {
	var layout vk.PipelineLayout
	res := vk.CreatePipelineLayout(d.context.Device.LogicalDevice, info, d.context.Allocator, &layout)
	return layout, res
}

func (d *vkBindingDevice) CreateDescriptorPool(info *vk.DescriptorPoolCreateInfo) (vk.DescriptorPool, vk.Result) {
	l := d.context.Locks.lock(DescriptorManagement)
	defer l.Unlock()

	var pool vk.DescriptorPool
	res := vk.CreateDescriptorPool(d.context.Device.LogicalDevice, info, d.context.Allocator, &pool)
	return pool, res
}

func (d *vkBindingDevice) AllocateDescriptorSet(info *vk.DescriptorSetAllocateInfo) (vk.DescriptorSet, vk.Result) {
	var set vk.DescriptorSet
	res := vk.AllocateDescriptorSets(d.context.Device.LogicalDevice, info, &set)
	return set, res
}

func (d *vkBindingDevice) UpdateDescriptorSets(writes []vk.WriteDescriptorSet) {
	vk.UpdateDescriptorSets(d.context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
}

func (d *vkBindingDevice) MapMemory(memory vk.DeviceMemory, size vk.DeviceSize) (unsafe.Pointer, vk.Result) {
	var data unsafe.Pointer
	res := vk.MapMemory(d.context.Device.LogicalDevice, memory, 0, size, 0, &data)
	return data, res
}

func (d *vkBindingDevice) UnmapMemory(memory vk.DeviceMemory) {
	vk.UnmapMemory(d.context.Device.LogicalDevice, memory)
}

func (d *vkBindingDevice) DestroyBuffer(buffer vk.Buffer) {
	vk.DestroyBuffer(d.context.Device.LogicalDevice, buffer, d.context.Allocator)
}

func (d *vkBindingDevice) DestroyDescriptorSetLayout(layout vk.DescriptorSetLayout) {
	vk.DestroyDescriptorSetLayout(d.context.Device.LogicalDevice, layout, d.context.Allocator)
}

func (d *vkBindingDevice) DestroyPipelineLayout(layout vk.PipelineLayout) {
	vk.DestroyPipelineLayout(d.context.Device.LogicalDevice, layout, d.context.Allocator)
}

func (d *vkBindingDevice) DestroyDescriptorPool(pool vk.DescriptorPool) {
	vk.DestroyDescriptorPool(d.context.Device.LogicalDevice, pool, d.context.Allocator)
}
