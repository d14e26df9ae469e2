package testbed

import (
	"encoding/binary"
	"math"

	"github.com/spaghettifunk/wreck/engine"
	"github.com/spaghettifunk/wreck/engine/core"
	"github.com/spaghettifunk/wreck/engine/renderer/vulkan"
)

const (
	frameUniformSize = 16
	// three vec4 corners
	triangleSize = 3 * 16
	// three vec4 colors written by the compute pass
	paletteSize = 3 * 16
)

// A triangle whose corner colors are cycled by a compute shader.
var triangle = [3][4]float32{
	{0.0, -0.5, 0.0, 1.0},
	{0.5, 0.5, 0.0, 1.0},
	{-0.5, 0.5, 0.0, 1.0},
}

type TestGame struct {
	*engine.Game
}

type gameState struct {
	paused    bool
	pauseTime float64
	elapsed   float64
}

func NewTestGame() *TestGame {
	state := &gameState{}
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: &engine.ApplicationConfig{
				Name:       "Wreck Testbed",
				ConfigPath: "config.toml",
			},
			State: state,
		},
	}

	tg.Bindings = []vulkan.BindingDecl{
		{
			Name:       "frame",
			Set:        0,
			Binding:    0,
			Type:       vulkan.BindingTypeUniform,
			Mutability: vulkan.HostMutable,
			Size:       frameUniformSize,
			FrameBatch: vulkan.BatchWriterFunc(writeFrameUniform),
		},
		{
			Name:         "triangle",
			Set:          0,
			Binding:      1,
			Type:         vulkan.BindingTypeStorage,
			Mutability:   vulkan.HostMutable,
			Size:         triangleSize,
			InitialBatch: vulkan.BatchWriterFunc(writeTriangle),
		},
		{
			Name:       "palette",
			Set:        0,
			Binding:    2,
			Type:       vulkan.BindingTypeStorage,
			Mutability: vulkan.HostImmutable,
			Size:       paletteSize,
		},
	}

	tg.Pipelines = []vulkan.PipelineNode{
		{
			Name:    "palette",
			Type:    vulkan.PipelineTypeCompute,
			Shaders: vulkan.ShaderPaths{Compute: "palette.comp.spv"},
			Dispatch: vulkan.DispatchFunc(func(state *vulkan.FrameState) []vulkan.DispatchCall {
				return []vulkan.DispatchCall{{X: 1, Y: 1, Z: 1}}
			}),
		},
		{
			Name: "triangle",
			Type: vulkan.PipelineTypeGraphics,
			Shaders: vulkan.ShaderPaths{
				Vertex:   "triangle.vert.spv",
				Fragment: "triangle.frag.spv",
			},
			Draw: vulkan.DrawFunc(func(state *vulkan.FrameState) []vulkan.DrawCall {
				return []vulkan.DrawCall{{VertexCount: 3, InstanceCount: 1}}
			}),
		},
	}

	tg.FnStart = tg.Start
	tg.FnUpdate = tg.Update
	tg.FnOnResize = tg.OnResize
	tg.FnOnKey = tg.OnKey

	return tg
}

func (g *TestGame) Start(state *vulkan.FrameState) error {
	core.LogInfo("testbed started at %dx%d", state.Extent.Width, state.Extent.Height)
	return nil
}

// Update freezes the animation clock while paused.
func (g *TestGame) Update(state *vulkan.FrameState) error {
	gs := state.User.(*gameState)
	if !gs.paused {
		gs.elapsed += state.Delta
	}
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	core.LogDebug("testbed resized to %dx%d", width, height)
	return nil
}

func (g *TestGame) OnKey(key int32) {
	// space
	if key == 32 {
		gs := g.State.(*gameState)
		gs.paused = !gs.paused
		core.LogInfo("animation paused: %t", gs.paused)
	}
}

// writeFrameUniform fills {time, aspect, frame, 0} as four float32.
func writeFrameUniform(state *vulkan.FrameState, dst []byte) {
	gs := state.User.(*gameState)
	aspect := float32(1)
	if state.Extent.Height != 0 {
		aspect = float32(state.Extent.Width) / float32(state.Extent.Height)
	}
	putFloats(dst, float32(gs.elapsed), aspect, float32(state.Frame), 0)
}

func writeTriangle(state *vulkan.FrameState, dst []byte) {
	for i, corner := range triangle {
		putFloats(dst[i*16:], corner[:]...)
	}
}

func putFloats(dst []byte, values ...float32) {
	for i, v := range values {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}
}
