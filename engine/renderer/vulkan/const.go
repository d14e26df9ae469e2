package vulkan

import "math"

// Fixed capacities of the renderer tables.
const (
	MAX_VRAM_ALLOCATIONS      uint32 = 512
	MAX_DESCRIPTOR_SETS       uint32 = 16
	MAX_BINDINGS_PER_SET      uint32 = 16
	MAX_SWAPCHAIN_IMAGE_COUNT uint32 = 8
)

// Shader entry points. Every SPIR-V module is compiled with these names.
const (
	VertexEntryPoint   = "vertexMain"
	FragmentEntryPoint = "fragmentMain"
	ComputeEntryPoint  = "computeMain"
)

// Marks a frame in which no pipeline has been bound and no rendering pass begun.
const noPipelineBound uint32 = math.MaxUint32

const fenceTimeoutInfinite uint64 = math.MaxUint64
