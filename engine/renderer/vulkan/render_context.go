package vulkan

import (
	"path/filepath"

	"github.com/spaghettifunk/wreck/engine/assets"
	"github.com/spaghettifunk/wreck/engine/core"
)

// RenderConfig is everything an application declares up front.
type RenderConfig struct {
	Bindings  []BindingDecl
	Pipelines []PipelineNode
	Start     StartCallback
	Update    UpdateCallback
	// Handed to every callback through FrameState.User.
	User interface{}

	ClearColor     [4]float32
	TransferPolicy TransferPolicy
	// Nanoseconds, 0 waits forever.
	FenceTimeout uint64
	ShaderDir    string
	WatchShaders bool
}

func (c RenderConfig) fenceTimeout() uint64 {
	if c.FenceTimeout == 0 {
		return fenceTimeoutInfinite
	}
	return c.FenceTimeout
}

/**
 * @brief Ties the arena, screen, binding, pipeline and loop resources of one
 * window together and destroys them in reverse order.
 */
type RenderContext struct {
	ID        core.Identifier
	context   *VulkanContext
	messenger *core.Messenger
	config    RenderConfig

	Arena     *FirstFitArena
	Screen    *Screen
	Bindings  *BindingContext
	Pipelines *PipelineContext
	Loop      *RenderLoop

	transfer *vkTransferDriver
	driver   *vkFrameDriver
	watcher  *assets.ShaderWatcher
}

func NewRenderContext(context *VulkanContext, host WindowHost, config RenderConfig, messenger *core.Messenger) (*RenderContext, error) {
	if messenger == nil {
		messenger = core.NewMessenger(nil)
	}
	rc := &RenderContext{
		ID:        core.NewIdentifier("render-context"),
		context:   context,
		messenger: messenger,
		config:    config,
	}

	var cleanup cleanupStack
	defer cleanup.run()
	cleanup.push(rc.Destroy)

	rc.Arena = NewFirstFitArena(newVkMemoryBackend(context), context.Device.MemoryProperties, messenger)

	var err error
	if rc.Screen, err = NewScreen(context, rc.Arena, host, messenger); err != nil {
		return nil, err
	}
	if rc.Bindings, err = NewBindingContext(context, rc.Arena, config.Bindings, messenger); err != nil {
		return nil, err
	}
	if rc.Pipelines, err = NewPipelineContext(context, rc.pipelineConfig(), config.Pipelines, messenger); err != nil {
		return nil, err
	}

	mapped, err := rc.Bindings.Map()
	if err != nil {
		return nil, err
	}
	if rc.transfer, err = newVkTransferDriver(context, messenger, config.fenceTimeout()); err != nil {
		return nil, err
	}
	if rc.driver, err = newVkFrameDriver(context, rc.Screen, config.ClearColor, config.fenceTimeout(), messenger); err != nil {
		return nil, err
	}

	uploader := newBatchUploader(rc.Bindings.Bindings(), mapped, rc.transfer, config.TransferPolicy, messenger)
	rc.Loop = NewRenderLoop(rc.driver, uploader, RenderLoopConfig{
		Poll:      host.PollEvents,
		Start:     config.Start,
		Update:    config.Update,
		Layout:    rc.Bindings.Layout(),
		Sets:      rc.Bindings.DescriptorSets,
		Pipelines: rc.Pipelines.Pipelines,
		Unmap:     rc.Bindings.Unmap,
		User:      config.User,
	}, messenger)

	if config.WatchShaders {
		if rc.watcher, err = assets.NewShaderWatcher(config.ShaderDir); err != nil {
			return nil, messenger.Fail(core.CodeWatchShaders, "failed to watch `%s`: %s", config.ShaderDir, err)
		}
		core.LogInfo("watching `%s` for shader changes", config.ShaderDir)
	}

	cleanup.release()
	core.LogInfo("%s ready: %d bindings, %d pipelines, transfer policy %s", rc.ID, len(rc.Bindings.Bindings()), len(rc.Pipelines.Pipelines), config.TransferPolicy)
	return rc, nil
}

func (rc *RenderContext) pipelineConfig() PipelineConfig {
	return PipelineConfig{
		Layout:      rc.Bindings.Layout(),
		ColorFormat: rc.Screen.Format.Format,
		DepthFormat: rc.Screen.DepthFormat,
		ShaderDir:   rc.config.ShaderDir,
	}
}

// RequestResize rebuilds the swapchain before the next frame.
func (rc *RenderContext) RequestResize() {
	rc.Loop.RequestResize()
}

// ReloadPipelines rebuilds every pipeline from the shaders on disk. A failed
// rebuild keeps the current pipelines.
func (rc *RenderContext) ReloadPipelines() error {
	if err := rc.driver.WaitIdle(); err != nil {
		return err
	}
	rc.installPipelines(NewPipelineContext(rc.context, rc.pipelineConfig(), rc.config.Pipelines, rc.messenger))
	return nil
}

// installPipelines swaps in a rebuilt pipeline context. When the rebuild
// failed the current pipelines stay and CodeShaderReloadFailed is raised.
func (rc *RenderContext) installPipelines(pipelines *PipelineContext, err error) bool {
	if err != nil {
		rc.messenger.Warn(core.CodeShaderReloadFailed, "%s: shader reload failed, keeping the current pipelines: %s", rc.ID, err)
		return false
	}
	rc.Pipelines.Destroy()
	rc.Pipelines = pipelines
	rc.Loop.SetPipelines(pipelines.Pipelines)
	return true
}

func (rc *RenderContext) reloadChangedShaders() error {
	if rc.watcher == nil {
		return nil
	}
	changed := rc.watcher.Drain()
	if len(changed) == 0 {
		return nil
	}
	for _, path := range changed {
		rc.messenger.Warn(core.CodeShaderChanged, "shader `%s` changed", filepath.Base(path))
	}
	return rc.ReloadPipelines()
}

// Frame reloads changed shaders and renders one frame.
func (rc *RenderContext) Frame() error {
	if err := rc.reloadChangedShaders(); err != nil {
		return err
	}
	return rc.Loop.Frame()
}

// Run renders until running reports false. The loop is torn down on return.
func (rc *RenderContext) Run(running func() bool) error {
	err := rc.run(running)
	if terr := rc.Loop.Teardown(); err == nil {
		err = terr
	}
	return err
}

func (rc *RenderContext) run(running func() bool) error {
	if err := rc.Loop.Start(); err != nil {
		return err
	}
	for running() {
		if err := rc.Frame(); err != nil {
			return err
		}
	}
	return nil
}

// Destroy releases everything in reverse creation order. It is safe on a
// partially created context.
func (rc *RenderContext) Destroy() {
	if rc.watcher != nil {
		if err := rc.watcher.Close(); err != nil {
			core.LogWarn("%s", err)
		}
		rc.watcher = nil
	}
	if rc.Loop != nil {
		if err := rc.Loop.Teardown(); err != nil {
			core.LogWarn("%s: teardown: %s", rc.ID, err)
		}
		rc.Loop = nil
	} else if rc.driver != nil {
		rc.driver.Destroy()
	}
	rc.driver = nil
	if rc.transfer != nil {
		rc.transfer.Destroy()
		rc.transfer = nil
	}
	if rc.Pipelines != nil {
		rc.Pipelines.Destroy()
		rc.Pipelines = nil
	}
	if rc.Bindings != nil {
		rc.Bindings.Destroy()
		rc.Bindings = nil
	}
	if rc.Screen != nil {
		rc.Screen.Destroy()
		rc.Screen = nil
	}
	if rc.Arena != nil {
		rc.Arena.Terminate()
		rc.Arena = nil
	}
}
