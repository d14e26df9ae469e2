package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
)

func testTarget() RenderTarget {
	return RenderTarget{Extent: vk.Extent2D{Width: 800, Height: 600}}
}

func TestRecordFrameSingleGraphicsNode(t *testing.T) {
	rec := &fakeRecorder{}
	pipelines := []*VulkanPipeline{graphicsPipeline("triangle", DrawCall{VertexCount: 3, InstanceCount: 1})}

	RecordFrame(NewFrameContext(rec, testTarget(), nil, nil), pipelines, &FrameState{})

	assert.Equal(t, []string{
		"to-attachment",
		"begin-rendering clear",
		"viewport 800x600",
		"bind-pipeline 0",
		"draw 3 1",
		"end-rendering",
		"to-present",
	}, rec.ops)
}

func TestRecordFrameBindsEachPipelineOnce(t *testing.T) {
	rec := &fakeRecorder{}
	pipelines := []*VulkanPipeline{
		graphicsPipeline("a", DrawCall{VertexCount: 3, InstanceCount: 1}, DrawCall{VertexCount: 6, InstanceCount: 2}),
		graphicsPipeline("b", DrawCall{VertexCount: 4, InstanceCount: 1}),
	}
	sets := []vk.DescriptorSet{nil, nil}

	RecordFrame(NewFrameContext(rec, testTarget(), nil, sets), pipelines, &FrameState{})

	assert.Equal(t, 1, rec.count("begin-rendering"), "consecutive graphics nodes share one pass")
	assert.Equal(t, 2, rec.count("bind-pipeline"))
	assert.Equal(t, 3, rec.count("draw"))
	assert.Equal(t, "bind-sets 0 2", rec.ops[1], "graphics sets are bound before rendering begins")
}

func TestRecordFrameInterleavesComputeAndGraphics(t *testing.T) {
	rec := &fakeRecorder{}
	pipelines := []*VulkanPipeline{
		computePipeline("simulate", DispatchCall{X: 8, Y: 1, Z: 1}),
		graphicsPipeline("draw", DrawCall{VertexCount: 3, InstanceCount: 1}),
		computePipeline("post", DispatchCall{X: 1, Y: 1, Z: 1}),
		graphicsPipeline("overlay", DrawCall{VertexCount: 6, InstanceCount: 1}),
	}

	RecordFrame(NewFrameContext(rec, testTarget(), nil, []vk.DescriptorSet{nil}), pipelines, &FrameState{})

	assert.Equal(t, []string{
		"to-attachment",
		"bind-sets 0 1",
		"bind-sets 1 1",
		"bind-pipeline 1",
		"dispatch 8 1 1",
		"compute-barrier",
		"begin-rendering clear",
		"viewport 800x600",
		"bind-pipeline 0",
		"draw 3 1",
		"end-rendering",
		"bind-pipeline 1",
		"dispatch 1 1 1",
		"compute-barrier",
		"begin-rendering load",
		"viewport 800x600",
		"bind-pipeline 0",
		"draw 6 1",
		"end-rendering",
		"to-present",
	}, rec.ops)
}

func TestRecordFrameWithoutGraphicsStillClears(t *testing.T) {
	rec := &fakeRecorder{}

	RecordFrame(NewFrameContext(rec, testTarget(), nil, nil), nil, &FrameState{})
	assert.Equal(t, []string{"to-attachment", "begin-rendering clear", "viewport 800x600", "end-rendering", "to-present"}, rec.ops)

	rec = &fakeRecorder{}
	RecordFrame(NewFrameContext(rec, testTarget(), nil, nil), []*VulkanPipeline{computePipeline("only")}, &FrameState{})
	assert.Equal(t, 1, rec.count("begin-rendering clear"))
	assert.Equal(t, 0, rec.count("dispatch"), "an empty dispatch list records no work")
}

func TestDrawCallbackSeesFrameState(t *testing.T) {
	rec := &fakeRecorder{}
	var seen uint64
	pipeline := &VulkanPipeline{PipelineNode: PipelineNode{
		Type: PipelineTypeGraphics,
		Draw: DrawFunc(func(state *FrameState) []DrawCall {
			seen = state.Frame
			return []DrawCall{{VertexCount: uint32(state.Frame), InstanceCount: 1}}
		}),
	}}

	RecordFrame(NewFrameContext(rec, testTarget(), nil, nil), []*VulkanPipeline{pipeline}, &FrameState{Frame: 42})
	assert.Equal(t, uint64(42), seen)
	assert.Contains(t, rec.ops, "draw 42 1")
}
