package vulkan

import (
	"fmt"
	"strings"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/wreck/engine/core"
)

const (
	deviceLocal  = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	hostVisible  = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)
	hostCoherent = vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit)
)

// silentMessenger halts on errors like the default callback but keeps test output clean.
func silentMessenger(codes *[]core.Code) *core.Messenger {
	return core.NewMessenger(func(code core.Code, msg string) bool {
		if codes != nil {
			*codes = append(*codes, code)
		}
		return code.IsError()
	})
}

// continuingMessenger never halts, so validation reports every problem it finds.
func continuingMessenger(codes *[]core.Code) *core.Messenger {
	return core.NewMessenger(func(code core.Code, msg string) bool {
		if codes != nil {
			*codes = append(*codes, code)
		}
		return false
	})
}

type fakeMemoryBackend struct {
	allocations []vk.DeviceSize
	frees       int
	fail        error
}

func (b *fakeMemoryBackend) Allocate(size vk.DeviceSize, typeIndex uint32) (vk.DeviceMemory, error) {
	if b.fail != nil {
		return nil, b.fail
	}
	b.allocations = append(b.allocations, size)
	return nil, nil
}

func (b *fakeMemoryBackend) Free(memory vk.DeviceMemory) {
	b.frees++
}

// discreteMemory mirrors a typical discrete GPU: a device local heap and a host heap.
func discreteMemory() MemoryProperties {
	return MemoryProperties{
		Types: []MemoryType{
			{PropertyFlags: deviceLocal, HeapIndex: 0},
			{PropertyFlags: hostVisible | hostCoherent, HeapIndex: 1},
			{PropertyFlags: deviceLocal | hostVisible | hostCoherent, HeapIndex: 0},
		},
		HeapSizes: []vk.DeviceSize{1 << 20, 1 << 16},
	}
}

// fakeRecorder logs recorded commands as short strings.
type fakeRecorder struct {
	ops    []string
	copies []bufferCopy
}

func (r *fakeRecorder) log(format string, args ...interface{}) {
	r.ops = append(r.ops, fmt.Sprintf(format, args...))
}

func (r *fakeRecorder) TransitionToAttachment(target RenderTarget) { r.log("to-attachment") }
func (r *fakeRecorder) TransitionToPresent(image vk.Image)         { r.log("to-present") }

func (r *fakeRecorder) BindDescriptorSets(bindPoint vk.PipelineBindPoint, layout vk.PipelineLayout, sets []vk.DescriptorSet) {
	if len(sets) == 0 {
		return
	}
	r.log("bind-sets %d %d", bindPoint, len(sets))
}

func (r *fakeRecorder) BeginRendering(target RenderTarget, clear bool) {
	if clear {
		r.log("begin-rendering clear")
		return
	}
	r.log("begin-rendering load")
}

func (r *fakeRecorder) EndRendering() { r.log("end-rendering") }
func (r *fakeRecorder) SetViewportScissor(extent vk.Extent2D) {
	r.log("viewport %dx%d", extent.Width, extent.Height)
}

func (r *fakeRecorder) BindPipeline(bindPoint vk.PipelineBindPoint, pipeline vk.Pipeline) {
	r.log("bind-pipeline %d", bindPoint)
}

func (r *fakeRecorder) Draw(vertexCount, instanceCount uint32) {
	r.log("draw %d %d", vertexCount, instanceCount)
}
func (r *fakeRecorder) Dispatch(x, y, z uint32) { r.log("dispatch %d %d %d", x, y, z) }
func (r *fakeRecorder) ComputeBarrier()         { r.log("compute-barrier") }

func (r *fakeRecorder) CopyBuffer(src, dst vk.Buffer, size vk.DeviceSize) {
	r.copies = append(r.copies, bufferCopy{Src: src, Dst: dst, Size: size})
	r.log("copy %d", size)
}

func (r *fakeRecorder) count(prefix string) int {
	n := 0
	for _, op := range r.ops {
		if strings.HasPrefix(op, prefix) {
			n++
		}
	}
	return n
}

func graphicsPipeline(name string, draws ...DrawCall) *VulkanPipeline {
	return &VulkanPipeline{PipelineNode: PipelineNode{
		Name: name,
		Type: PipelineTypeGraphics,
		Draw: DrawFunc(func(*FrameState) []DrawCall { return draws }),
	}}
}

func computePipeline(name string, dispatches ...DispatchCall) *VulkanPipeline {
	return &VulkanPipeline{PipelineNode: PipelineNode{
		Name:     name,
		Type:     PipelineTypeCompute,
		Dispatch: DispatchFunc(func(*FrameState) []DispatchCall { return dispatches }),
	}}
}
