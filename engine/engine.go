package engine

import (
	"sync/atomic"

	"github.com/spaghettifunk/wreck/engine/core"
	"github.com/spaghettifunk/wreck/engine/platform"
	"github.com/spaghettifunk/wreck/engine/renderer/vulkan"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

type Engine struct {
	currentStage Stage
	gameInstance *Game
	config       *core.Config
	messenger    *core.Messenger
	isRunning    atomic.Bool
	events       *core.EventBus
	platform     *platform.Platform
	context      *vulkan.VulkanContext
	renderer     *vulkan.RenderContext
	width        uint32
	height       uint32
}

// New loads the configuration and applies the log level. Nothing touches the
// window system until Initialize.
func New(g *Game) (*Engine, error) {
	app := g.ApplicationConfig
	if app == nil {
		app = &ApplicationConfig{}
	}

	config := core.DefaultConfig()
	if app.ConfigPath != "" {
		var err error
		if config, err = core.LoadConfig(app.ConfigPath); err != nil {
			core.LogError("%s", err)
			return nil, err
		}
	}
	if app.Name != "" {
		config.Window.Name = app.Name
	}

	level, err := core.ParseLogLevel(config.Log.Level)
	if err != nil {
		return nil, core.NewError(core.CodeInvalidConfig, "%s", err)
	}
	if app.LogLevel != "" {
		level = app.LogLevel
	}
	core.SetLogLevel(level)

	events := core.NewEventBus()
	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		config:       config,
		messenger:    core.NewMessenger(nil),
		events:       events,
		platform:     platform.New(events),
		width:        config.Window.Width,
		height:       config.Window.Height,
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	core.LogDebug("engine configuration:\n%s", e.config)

	policy, err := vulkan.ParseTransferPolicy(e.config.Renderer.TransferPolicy)
	if err != nil {
		return err
	}

	// register some events
	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.events.Register(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	e.events.Register(core.EVENT_CODE_RESIZED, e, e.onResized)

	window := e.config.Window
	if err := e.platform.Startup(window.Name, window.X, window.Y, window.Width, window.Height); err != nil {
		return err
	}

	e.context, err = vulkan.NewVulkanContext(e.platform, vulkan.BootstrapConfig{
		ApplicationName: window.Name,
		Validation:      e.config.Renderer.Validation,
	}, e.messenger)
	if err != nil {
		return err
	}

	g := e.gameInstance
	e.renderer, err = vulkan.NewRenderContext(e.context, e.platform, vulkan.RenderConfig{
		Bindings:       g.Bindings,
		Pipelines:      g.Pipelines,
		Start:          g.FnStart,
		Update:         g.FnUpdate,
		User:           g.State,
		ClearColor:     e.config.Renderer.ClearColor,
		TransferPolicy: policy,
		FenceTimeout:   e.config.Renderer.FenceTimeout,
		ShaderDir:      e.config.Renderer.ShaderDir,
		WatchShaders:   e.config.Renderer.WatchShaders,
	}, e.messenger)
	if err != nil {
		return err
	}

	e.currentStage = EngineStageInitialized
	return nil
}

// Run renders until the window closes or Stop is called.
func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)
	return e.renderer.Run(e.running)
}

func (e *Engine) running() bool {
	return e.isRunning.Load() && !e.platform.ShouldClose()
}

// Stop makes Run return after the current frame. Safe from any goroutine.
func (e *Engine) Stop() {
	e.isRunning.Store(false)
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	if e.renderer != nil {
		e.renderer.Destroy()
		e.renderer = nil
	}
	if e.context != nil {
		e.context.Destroy()
		e.context = nil
	}
	e.events.Unregister(core.EVENT_CODE_APPLICATION_QUIT, e)
	e.events.Unregister(core.EVENT_CODE_KEY_PRESSED, e)
	e.events.Unregister(core.EVENT_CODE_RESIZED, e)
	if err := e.platform.Shutdown(); err != nil {
		return err
	}
	e.currentStage = EngineStageUninitialized
	return nil
}

// GetFramebufferSize returns the width and height (in this order)
// of the application Framebuffer
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, listener interface{}, context core.EventContext) bool {
	if code == core.EVENT_CODE_APPLICATION_QUIT {
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.Stop()
		return true
	}
	return false
}

func (e *Engine) onKey(code core.SystemEventCode, sender interface{}, listener interface{}, context core.EventContext) bool {
	core.LogDebug("key %d pressed in window", context.Key)
	if e.gameInstance.FnOnKey != nil {
		e.gameInstance.FnOnKey(context.Key)
	}
	return false
}

func (e *Engine) onResized(code core.SystemEventCode, sender interface{}, listener interface{}, context core.EventContext) bool {
	width, height := context.Width, context.Height
	if width == e.width && height == e.height {
		return false
	}
	e.width, e.height = width, height
	core.LogDebug("Window resize: %d, %d", width, height)

	// Handle minimization. The swapchain rebuild waits for a non zero framebuffer.
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, rendering paused.")
	}
	if e.renderer != nil {
		e.renderer.RequestResize()
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(width, height); err != nil {
			core.LogError("%s", err)
		}
	}
	return true
}
