package vulkan

import (
	"strings"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/wreck/engine/core"
)

// TransferPolicy decides what a frame batch does while the previous transfer
// is still running on a discrete device.
type TransferPolicy int

const (
	// TransferPolicySkip drops this frame's batch and keeps the previous data.
	TransferPolicySkip TransferPolicy = iota
	// TransferPolicyWait blocks on the previous transfer.
	TransferPolicyWait
)

func ParseTransferPolicy(s string) (TransferPolicy, error) {
	switch strings.ToLower(s) {
	case "", "skip":
		return TransferPolicySkip, nil
	case "wait":
		return TransferPolicyWait, nil
	default:
		return TransferPolicySkip, core.NewError(core.CodeInvalidConfig, "unknown transfer policy `%s`", s)
	}
}

func (p TransferPolicy) String() string {
	if p == TransferPolicyWait {
		return "wait"
	}
	return "skip"
}

// bufferCopy copies a staged binding from its host buffer into its device buffer.
type bufferCopy struct {
	Src  vk.Buffer
	Dst  vk.Buffer
	Size vk.DeviceSize
}

// TransferDriver runs staging copies on the device, gated by one fence.
type TransferDriver interface {
	// Ready reports whether the previous transfer has finished.
	Ready() (bool, error)
	Wait() error
	// Submit records the copies and submits them, arming the fence.
	Submit(copies []bufferCopy) error
}

// batchUploader runs the initial and frame batch writers of the bindings.
// Writes land in mapped; staged bindings are then copied by the transfer driver.
type batchUploader struct {
	messenger *core.Messenger
	bindings  []*Binding
	mapped    []byte
	transfer  TransferDriver
	policy    TransferPolicy
}

func newBatchUploader(bindings []*Binding, mapped []byte, transfer TransferDriver, policy TransferPolicy, messenger *core.Messenger) *batchUploader {
	return &batchUploader{
		messenger: messenger,
		bindings:  bindings,
		mapped:    mapped,
		transfer:  transfer,
		policy:    policy,
	}
}

func (u *batchUploader) region(b *Binding) []byte {
	offset := b.writeOffset()
	return u.mapped[offset : offset+b.Size]
}

// write invokes the selected writer of every binding and returns the copies
// the staged ones need.
func (u *batchUploader) write(state *FrameState, writer func(*Binding) BatchWriter) []bufferCopy {
	var copies []bufferCopy
	for _, b := range u.bindings {
		w := writer(b)
		if w == nil {
			continue
		}
		w.Write(state, u.region(b))
		if b.Staged() {
			copies = append(copies, bufferCopy{Src: b.HostBuffer, Dst: b.DeviceBuffer, Size: b.Size})
		}
	}
	return copies
}

// Initial writes every initial batch and waits for the copies to land.
func (u *batchUploader) Initial(state *FrameState) error {
	copies := u.write(state, func(b *Binding) BatchWriter { return b.InitialBatch })
	if len(copies) == 0 {
		return nil
	}
	if err := u.transfer.Submit(copies); err != nil {
		return err
	}
	return u.transfer.Wait()
}

// Frame writes every frame batch. With staged bindings the whole step is
// skipped while the previous transfer is in flight, unless the policy waits.
func (u *batchUploader) Frame(state *FrameState) error {
	if u.hasStagedFrameBatch() {
		ready, err := u.transfer.Ready()
		if err != nil {
			return err
		}
		if !ready {
			if u.policy == TransferPolicySkip {
				u.messenger.Warn(core.CodeTransferSkipped, "frame %d: previous transfer still running, frame batch skipped", state.Frame)
				return nil
			}
			if err := u.transfer.Wait(); err != nil {
				return err
			}
		}
	}
	copies := u.write(state, func(b *Binding) BatchWriter { return b.FrameBatch })
	if len(copies) == 0 {
		return nil
	}
	return u.transfer.Submit(copies)
}

func (u *batchUploader) hasStagedFrameBatch() bool {
	for _, b := range u.bindings {
		if b.FrameBatch != nil && b.Staged() {
			return true
		}
	}
	return false
}

// vkTransferDriver records copies into its own command buffer and submits
// them on the render queue, so queue order puts them before the frame.
type vkTransferDriver struct {
	context   *VulkanContext
	messenger *core.Messenger
	pool      vk.CommandPool
	buffer    *VulkanCommandBuffer
	fence     *VulkanFence
	timeout   uint64
}

func newVkTransferDriver(context *VulkanContext, messenger *core.Messenger, timeout uint64) (*vkTransferDriver, error) {
	d := &vkTransferDriver{
		context:   context,
		messenger: messenger,
		pool:      context.Device.RenderCommandPool,
		timeout:   timeout,
	}

	var cleanup cleanupStack
	defer cleanup.run()
	cleanup.push(d.Destroy)

	var err error
	if d.buffer, err = NewVulkanCommandBuffer(context, messenger, d.pool, true); err != nil {
		return nil, err
	}
	if d.fence, err = NewFence(context, messenger, true); err != nil {
		return nil, err
	}

	cleanup.release()
	return d, nil
}

func (d *vkTransferDriver) Ready() (bool, error) {
	return d.fence.Ready(d.context, d.messenger)
}

func (d *vkTransferDriver) Wait() error {
	return d.fence.Wait(d.context, d.messenger, d.timeout)
}

func (d *vkTransferDriver) Submit(copies []bufferCopy) error {
	if err := d.fence.Wait(d.context, d.messenger, d.timeout); err != nil {
		return err
	}
	if err := d.fence.Reset(d.context, d.messenger); err != nil {
		return err
	}

	d.buffer.Reset()
	if err := d.buffer.Begin(d.messenger, true, false, false); err != nil {
		return err
	}
	recorder := &vkRecorder{cmd: d.buffer.Handle}
	for _, c := range copies {
		recorder.CopyBuffer(c.Src, c.Dst, c.Size)
	}
	if err := d.buffer.End(d.messenger); err != nil {
		return err
	}

	device := d.context.Device
	if err := d.buffer.Submit(d.context, d.messenger, device.RenderQueue, device.RenderFamilyIndex, vk.SubmitInfo{}, d.fence.Handle); err != nil {
		return err
	}
	d.fence.MarkSubmitted()
	return nil
}

func (d *vkTransferDriver) Destroy() {
	d.buffer.Free(d.context, d.pool)
	d.buffer = nil
	d.fence.Destroy(d.context)
	d.fence = nil
}
