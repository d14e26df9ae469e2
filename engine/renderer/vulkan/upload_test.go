package vulkan

import (
	"encoding/binary"
	"errors"
	"testing"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/wreck/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransfer stands in for the device: a submit queues the copies and they
// land in device memory once the transfer completes.
type fakeTransfer struct {
	uploader *batchUploader
	device   map[vk.Buffer][]byte
	pending  []bufferCopy
	submits  int
	waits    int
	fail     error
}

func newFakeTransfer() *fakeTransfer {
	return &fakeTransfer{device: map[vk.Buffer][]byte{}}
}

func (f *fakeTransfer) Ready() (bool, error) {
	return len(f.pending) == 0, f.fail
}

func (f *fakeTransfer) Wait() error {
	f.waits++
	f.complete()
	return f.fail
}

func (f *fakeTransfer) Submit(copies []bufferCopy) error {
	if f.fail != nil {
		return f.fail
	}
	f.submits++
	f.pending = append([]bufferCopy(nil), copies...)
	return nil
}

// complete runs the queued copies, reading the staging bytes from the mapped block.
func (f *fakeTransfer) complete() {
	for _, c := range f.pending {
		for _, b := range f.uploader.bindings {
			if b.HostBuffer == c.Src {
				f.device[c.Dst] = append([]byte(nil), f.uploader.region(b)[:c.Size]...)
			}
		}
	}
	f.pending = nil
}

var bufferIDs [8]byte

func fakeBuffer(id int) vk.Buffer {
	return vk.Buffer(unsafe.Pointer(&bufferIDs[id]))
}

func stagedBinding(decl BindingDecl, hostOffset vk.DeviceSize, host, device int) *Binding {
	return &Binding{
		BindingDecl:  decl,
		HostBuffer:   fakeBuffer(host),
		DeviceBuffer: fakeBuffer(device),
		HostOffset:   hostOffset,
		plan:         planBuffers(decl, DeviceTypeDiscrete),
	}
}

func framePayload(state *FrameState, dst []byte) {
	binary.LittleEndian.PutUint64(dst[0:8], state.Frame)
	binary.LittleEndian.PutUint64(dst[8:16], ^state.Frame)
}

func expectedPayload(frame uint64) []byte {
	out := make([]byte, 16)
	framePayload(&FrameState{Frame: frame}, out)
	return out
}

func TestFrameBatchRoundTripOnDiscrete(t *testing.T) {
	decl := BindingDecl{Set: 0, Binding: 0, Type: BindingTypeUniform, Mutability: HostMutable, Size: 16, FrameBatch: BatchWriterFunc(framePayload)}
	binding := stagedBinding(decl, 32, 0, 1)
	transfer := newFakeTransfer()
	var codes []core.Code
	uploader := newBatchUploader([]*Binding{binding}, make([]byte, 64), transfer, TransferPolicySkip, silentMessenger(&codes))
	transfer.uploader = uploader

	state := &FrameState{Frame: 1}
	require.NoError(t, uploader.Frame(state))
	assert.Equal(t, 1, transfer.submits)
	assert.Equal(t, expectedPayload(1), uploader.mapped[32:48], "written at the staging offset")

	require.NoError(t, transfer.Wait())
	assert.Equal(t, expectedPayload(1), transfer.device[binding.DeviceBuffer])

	// The next transfer is still in flight, so frame 3 is skipped and the
	// device keeps frame 2's data.
	state.Frame = 2
	require.NoError(t, uploader.Frame(state))
	state.Frame = 3
	require.NoError(t, uploader.Frame(state))
	assert.Equal(t, 2, transfer.submits)
	assert.Equal(t, []core.Code{core.CodeTransferSkipped}, codes)

	transfer.complete()
	assert.Equal(t, expectedPayload(2), transfer.device[binding.DeviceBuffer])
}

func TestFrameBatchWaitPolicy(t *testing.T) {
	decl := BindingDecl{Type: BindingTypeStorage, Mutability: HostMutable, Size: 16, FrameBatch: BatchWriterFunc(framePayload)}
	binding := stagedBinding(decl, 0, 2, 3)
	transfer := newFakeTransfer()
	var codes []core.Code
	uploader := newBatchUploader([]*Binding{binding}, make([]byte, 16), transfer, TransferPolicyWait, silentMessenger(&codes))
	transfer.uploader = uploader

	require.NoError(t, uploader.Frame(&FrameState{Frame: 1}))
	require.NoError(t, uploader.Frame(&FrameState{Frame: 2}))

	assert.Equal(t, 1, transfer.waits, "the second frame waits for the first transfer")
	assert.Equal(t, 2, transfer.submits)
	assert.Empty(t, codes)
	assert.Equal(t, expectedPayload(1), transfer.device[binding.DeviceBuffer])
}

func TestInitialBatchUploadsSynchronously(t *testing.T) {
	initial := BatchWriterFunc(func(state *FrameState, dst []byte) { copy(dst, "initial contents") })
	decl := BindingDecl{Type: BindingTypeStorage, Mutability: HostMutable, Size: 16, InitialBatch: initial}
	binding := stagedBinding(decl, 0, 4, 5)
	transfer := newFakeTransfer()
	uploader := newBatchUploader([]*Binding{binding}, make([]byte, 16), transfer, TransferPolicySkip, silentMessenger(nil))
	transfer.uploader = uploader

	require.NoError(t, uploader.Initial(&FrameState{}))
	assert.Equal(t, 1, transfer.waits)
	assert.Equal(t, []byte("initial contents"), transfer.device[binding.DeviceBuffer])

	// no frame batch, so frames never touch the transfer
	require.NoError(t, uploader.Frame(&FrameState{Frame: 1}))
	assert.Equal(t, 1, transfer.submits)
}

func TestFrameBatchOnIntegratedWritesInPlace(t *testing.T) {
	decl := BindingDecl{Type: BindingTypeUniform, Mutability: HostMutable, Size: 16, FrameBatch: BatchWriterFunc(framePayload)}
	binding := &Binding{BindingDecl: decl, DeviceOffset: 16, plan: planBuffers(decl, DeviceTypeIntegrated)}
	// a nil transfer driver panics if it is ever used
	uploader := newBatchUploader([]*Binding{binding}, make([]byte, 32), nil, TransferPolicySkip, silentMessenger(nil))

	require.NoError(t, uploader.Frame(&FrameState{Frame: 7}))
	assert.Equal(t, expectedPayload(7), uploader.mapped[16:32])
}

func TestFrameBatchTransferError(t *testing.T) {
	decl := BindingDecl{Type: BindingTypeUniform, Mutability: HostMutable, Size: 16, FrameBatch: BatchWriterFunc(framePayload)}
	transfer := newFakeTransfer()
	transfer.fail = errors.New("device lost")
	uploader := newBatchUploader([]*Binding{stagedBinding(decl, 0, 6, 7)}, make([]byte, 16), transfer, TransferPolicySkip, silentMessenger(nil))
	transfer.uploader = uploader

	assert.Error(t, uploader.Frame(&FrameState{}))
}

func TestParseTransferPolicy(t *testing.T) {
	policy, err := ParseTransferPolicy("Wait")
	require.NoError(t, err)
	assert.Equal(t, TransferPolicyWait, policy)

	policy, err = ParseTransferPolicy("")
	require.NoError(t, err)
	assert.Equal(t, TransferPolicySkip, policy)

	_, err = ParseTransferPolicy("sometimes")
	assert.Equal(t, core.CodeInvalidConfig, core.CodeOf(err))
}
