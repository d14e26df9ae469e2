package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/wreck/engine/core"
)

// FrameDriver owns the per frame synchronization and presentation of one screen.
type FrameDriver interface {
	Extent() vk.Extent2D
	// WaitFrame blocks until the GPU is done with the previous frame.
	WaitFrame() error
	// Acquire returns the next swapchain image, or resize when the swapchain
	// no longer matches the surface.
	Acquire() (image uint32, resize bool, err error)
	// Begin resets the frame fence and starts recording for image.
	Begin(image uint32) (CommandRecorder, RenderTarget, error)
	Submit(image uint32) error
	Present(image uint32) (resize bool, err error)
	Resize() error
	WaitIdle() error
	Destroy()
}

// RenderLoopConfig carries the callbacks and resources a loop drives.
type RenderLoopConfig struct {
	Poll      func()
	Start     StartCallback
	Update    UpdateCallback
	Layout    vk.PipelineLayout
	Sets      []vk.DescriptorSet
	Pipelines []*VulkanPipeline
	// Called during teardown once the device is idle.
	Unmap func()
	User  interface{}
}

// RenderLoop drives the frame state machine: update, frame batch, acquire,
// record, submit and present, with in-loop recovery from stale swapchains.
type RenderLoop struct {
	messenger *core.Messenger
	driver    FrameDriver
	uploader  *batchUploader
	config    RenderLoopConfig

	clock    *core.Clock
	metrics  *core.Metrics
	state    FrameState
	resize   bool
	started  bool
	tornDown bool
}

func NewRenderLoop(driver FrameDriver, uploader *batchUploader, config RenderLoopConfig, messenger *core.Messenger) *RenderLoop {
	if messenger == nil {
		messenger = core.NewMessenger(nil)
	}
	return &RenderLoop{
		messenger: messenger,
		driver:    driver,
		uploader:  uploader,
		config:    config,
		clock:     core.NewClock(),
		metrics:   core.NewMetrics(),
		state:     FrameState{User: config.User},
	}
}

// RequestResize rebuilds the swapchain at the top of the next frame.
func (rl *RenderLoop) RequestResize() {
	rl.resize = true
}

// SetPipelines replaces the recorded nodes. The device must be idle.
func (rl *RenderLoop) SetPipelines(pipelines []*VulkanPipeline) {
	rl.config.Pipelines = pipelines
}

func (rl *RenderLoop) State() *FrameState {
	return &rl.state
}

// Start runs the start callback and the initial batch once.
func (rl *RenderLoop) Start() error {
	if rl.started {
		return nil
	}
	rl.clock.Start()
	rl.state.Extent = rl.driver.Extent()
	if rl.config.Start != nil {
		if err := rl.config.Start(&rl.state); err != nil {
			return err
		}
	}
	if err := rl.uploader.Initial(&rl.state); err != nil {
		return err
	}
	rl.started = true
	return nil
}

func (rl *RenderLoop) tick() {
	rl.clock.Update()
	rl.state.Extent = rl.driver.Extent()
	rl.state.Time = rl.clock.Elapsed()
	rl.state.Delta = rl.clock.Delta()
}

// Frame renders and presents one frame. An out of date swapchain at acquire
// restarts the frame after a resize, so a stale image is never rendered.
func (rl *RenderLoop) Frame() error {
	if err := rl.Start(); err != nil {
		return err
	}
	for {
		if rl.config.Poll != nil {
			rl.config.Poll()
		}
		if rl.resize {
			if err := rl.driver.Resize(); err != nil {
				return err
			}
			rl.resize = false
		}

		rl.tick()
		if rl.config.Update != nil {
			if err := rl.config.Update(&rl.state); err != nil {
				return err
			}
		}
		if err := rl.uploader.Frame(&rl.state); err != nil {
			return err
		}

		if err := rl.driver.WaitFrame(); err != nil {
			return err
		}
		image, resize, err := rl.driver.Acquire()
		if err != nil {
			return err
		}
		if resize {
			rl.messenger.Warn(core.CodeSwapchainOutOfDate, "swapchain out of date at acquire, recreating")
			rl.resize = true
			continue
		}

		recorder, target, err := rl.driver.Begin(image)
		if err != nil {
			return err
		}
		RecordFrame(NewFrameContext(recorder, target, rl.config.Layout, rl.config.Sets), rl.config.Pipelines, &rl.state)
		if err := rl.driver.Submit(image); err != nil {
			return err
		}

		resize, err = rl.driver.Present(image)
		if err != nil {
			return err
		}
		if resize {
			rl.messenger.Warn(core.CodeSwapchainOutOfDate, "swapchain out of date at present, recreating next frame")
			rl.resize = true
		}

		rl.state.Frame++
		if rl.metrics.Update(rl.state.Delta) {
			core.LogDebug("fps: %.0f, frame time: %.3fms", rl.metrics.FPS(), rl.metrics.FrameTime())
		}
		return nil
	}
}

// Run renders frames until running reports false, then tears the loop down.
func (rl *RenderLoop) Run(running func() bool) error {
	err := rl.run(running)
	if terr := rl.Teardown(); err == nil {
		err = terr
	}
	return err
}

func (rl *RenderLoop) run(running func() bool) error {
	if err := rl.Start(); err != nil {
		return err
	}
	for running() {
		if err := rl.Frame(); err != nil {
			return err
		}
	}
	return nil
}

// Teardown waits for the device, unmaps the binding memory and destroys the
// synchronization objects.
func (rl *RenderLoop) Teardown() error {
	if rl.tornDown {
		return nil
	}
	rl.tornDown = true
	err := rl.driver.WaitIdle()
	if rl.config.Unmap != nil {
		rl.config.Unmap()
	}
	rl.driver.Destroy()
	rl.clock.Stop()
	return err
}

// vkFrameDriver renders into a Screen with one frame in flight.
type vkFrameDriver struct {
	context   *VulkanContext
	messenger *core.Messenger
	screen    *Screen

	pool   vk.CommandPool
	buffer *VulkanCommandBuffer
	fence  *VulkanFence

	imageAvailable vk.Semaphore
	// one per swapchain image, signaled by the submit and waited on by present
	submitted []vk.Semaphore

	clearColor [4]float32
	timeout    uint64
}

func newVkFrameDriver(context *VulkanContext, screen *Screen, clearColor [4]float32, timeout uint64, messenger *core.Messenger) (*vkFrameDriver, error) {
	d := &vkFrameDriver{
		context:    context,
		messenger:  messenger,
		screen:     screen,
		pool:       context.Device.RenderCommandPool,
		clearColor: clearColor,
		timeout:    timeout,
	}

	var cleanup cleanupStack
	defer cleanup.run()
	cleanup.push(d.Destroy)

	var err error
	if d.buffer, err = NewVulkanCommandBuffer(context, messenger, d.pool, true); err != nil {
		return nil, err
	}
	// Created signaled so the first frame does not block.
	if d.fence, err = NewFence(context, messenger, true); err != nil {
		return nil, err
	}
	if err := d.createSemaphores(); err != nil {
		return nil, err
	}

	cleanup.release()
	return d, nil
}

func (d *vkFrameDriver) createSemaphores() error {
	var err error
	if d.imageAvailable, err = newSemaphore(d.context, d.messenger); err != nil {
		return err
	}
	d.submitted = make([]vk.Semaphore, 0, len(d.screen.Images))
	for range d.screen.Images {
		semaphore, err := newSemaphore(d.context, d.messenger)
		if err != nil {
			return err
		}
		d.submitted = append(d.submitted, semaphore)
	}
	return nil
}

func (d *vkFrameDriver) destroySemaphores() {
	device := d.context.Device.LogicalDevice
	if d.imageAvailable != nil {
		vk.DestroySemaphore(device, d.imageAvailable, d.context.Allocator)
		d.imageAvailable = nil
	}
	for _, semaphore := range d.submitted {
		vk.DestroySemaphore(device, semaphore, d.context.Allocator)
	}
	d.submitted = nil
}

func (d *vkFrameDriver) Extent() vk.Extent2D {
	return d.screen.Extent
}

func (d *vkFrameDriver) WaitFrame() error {
	return d.fence.Wait(d.context, d.messenger, d.timeout)
}

func (d *vkFrameDriver) Acquire() (uint32, bool, error) {
	var image uint32
	res := vk.AcquireNextImage(d.context.Device.LogicalDevice, d.screen.Handle, d.timeout, d.imageAvailable, vk.NullFence, &image)
	switch res {
	case vk.Success:
		return image, false, nil
	case vk.ErrorOutOfDate, vk.Suboptimal:
		return 0, true, nil
	default:
		return 0, false, d.messenger.Fail(core.CodeAcquireImage, "failed to acquire swapchain image: %s", VulkanResultString(res, true))
	}
}

func (d *vkFrameDriver) Begin(image uint32) (CommandRecorder, RenderTarget, error) {
	if err := d.fence.Reset(d.context, d.messenger); err != nil {
		return nil, RenderTarget{}, err
	}
	d.buffer.Reset()
	if err := d.buffer.Begin(d.messenger, true, false, false); err != nil {
		return nil, RenderTarget{}, err
	}
	target := RenderTarget{
		ColorImage:  d.screen.Images[image],
		ColorView:   d.screen.Views[image],
		DepthImage:  d.screen.Depth.Handle,
		DepthView:   d.screen.Depth.View,
		DepthFormat: d.screen.DepthFormat,
		Extent:      d.screen.Extent,
		ClearColor:  d.clearColor,
	}
	return &vkRecorder{cmd: d.buffer.Handle, rendering: d.context.Device.Rendering}, target, nil
}

func (d *vkFrameDriver) Submit(image uint32) error {
	if err := d.buffer.End(d.messenger); err != nil {
		return err
	}
	info := vk.SubmitInfo{
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{d.imageAvailable},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{d.submitted[image]},
	}
	device := d.context.Device
	if err := d.buffer.Submit(d.context, d.messenger, device.RenderQueue, device.RenderFamilyIndex, info, d.fence.Handle); err != nil {
		return err
	}
	d.fence.MarkSubmitted()
	return nil
}

func (d *vkFrameDriver) Present(image uint32) (bool, error) {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{d.submitted[image]},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{d.screen.Handle},
		PImageIndices:      []uint32{image},
	}
	var res vk.Result
	device := d.context.Device
	d.context.Locks.SafeQueueCall(device.RenderFamilyIndex, func() error {
		res = vk.QueuePresent(device.RenderQueue, &presentInfo)
		return nil
	})
	switch res {
	case vk.Success:
		return false, nil
	case vk.ErrorOutOfDate, vk.Suboptimal:
		return true, nil
	default:
		return false, d.messenger.Fail(core.CodeQueuePresent, "failed to present swapchain image: %s", VulkanResultString(res, true))
	}
}

// Resize recreates the screen. The semaphores are recreated as well, since
// the image count may change and a suboptimal acquire leaves imageAvailable signaled.
func (d *vkFrameDriver) Resize() error {
	if err := d.screen.Resize(); err != nil {
		return err
	}
	d.destroySemaphores()
	return d.createSemaphores()
}

func (d *vkFrameDriver) WaitIdle() error {
	if res := vk.DeviceWaitIdle(d.context.Device.LogicalDevice); res != vk.Success {
		return d.messenger.Fail(core.CodeDeviceWaitIdle, "failed to wait for device idle: %s", VulkanResultString(res, false))
	}
	return nil
}

func (d *vkFrameDriver) Destroy() {
	d.destroySemaphores()
	d.fence.Destroy(d.context)
	d.fence = nil
	d.buffer.Free(d.context, d.pool)
	d.buffer = nil
}
