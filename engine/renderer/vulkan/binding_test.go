package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/wreck/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var noopWriter = BatchWriterFunc(func(state *FrameState, dst []byte) {})

func uniform(set, binding uint32) BindingDecl {
	return BindingDecl{Set: set, Binding: binding, Type: BindingTypeUniform, Mutability: HostMutable, Size: 16, FrameBatch: noopWriter}
}

func storage(set, binding uint32) BindingDecl {
	return BindingDecl{Set: set, Binding: binding, Type: BindingTypeStorage, Mutability: HostImmutable, Size: 1024}
}

func TestValidateBindingsOrdersBySetThenBinding(t *testing.T) {
	table, err := validateBindings([]BindingDecl{uniform(1, 0), storage(0, 3), uniform(0, 1)}, silentMessenger(nil))
	require.NoError(t, err)

	assert.Equal(t, []BindingLocation{{0, 1}, {0, 3}, {1, 0}}, table.order)
	assert.Equal(t, uint32(2), table.setCount)
	assert.Len(t, table.bindingsInSet(0), 2)
	assert.Len(t, table.bindingsInSet(1), 1)
}

func TestValidateBindingsRejectsDuplicatesInAnyOrder(t *testing.T) {
	orders := [][]BindingDecl{
		{uniform(0, 0), storage(0, 0)},
		{storage(0, 0), uniform(0, 0)},
		{uniform(0, 1), storage(0, 0), uniform(0, 0)},
	}
	for _, decls := range orders {
		var codes []core.Code
		_, err := validateBindings(decls, silentMessenger(&codes))
		require.Error(t, err)
		assert.ErrorIs(t, err, core.CodeDuplicateBinding)
		assert.Equal(t, []core.Code{core.CodeDuplicateBinding}, codes)
	}
}

func TestValidateBindingsMutability(t *testing.T) {
	immutableWithInitial := storage(0, 0)
	immutableWithInitial.InitialBatch = noopWriter

	immutableWithFrame := storage(0, 0)
	immutableWithFrame.FrameBatch = noopWriter

	mutableWithout := uniform(0, 0)
	mutableWithout.FrameBatch = nil

	mutableInitialOnly := uniform(0, 0)
	mutableInitialOnly.FrameBatch = nil
	mutableInitialOnly.InitialBatch = noopWriter

	unknown := storage(0, 0)
	unknown.Mutability = Mutability(7)

	cases := []struct {
		name string
		decl BindingDecl
		code core.Code
	}{
		{"immutable with initial batch", immutableWithInitial, core.CodeImmutableWithBatch},
		{"immutable with frame batch", immutableWithFrame, core.CodeImmutableWithBatch},
		{"mutable without batch", mutableWithout, core.CodeMutableWithoutBatch},
		{"unknown mutability", unknown, core.CodeInvalidMutability},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := validateBindings([]BindingDecl{tc.decl}, silentMessenger(nil))
			assert.ErrorIs(t, err, tc.code)
		})
	}

	_, err := validateBindings([]BindingDecl{mutableInitialOnly}, silentMessenger(nil))
	assert.NoError(t, err)
}

func TestValidateBindingsRejectsInvalidDeclarations(t *testing.T) {
	badType := uniform(0, 0)
	badType.Type = BindingTypeNone

	zeroSize := uniform(0, 0)
	zeroSize.Size = 0

	cases := []struct {
		name string
		decl BindingDecl
		code core.Code
	}{
		{"none type", badType, core.CodeInvalidBindingType},
		{"zero size", zeroSize, core.CodeInvalidBindingSize},
		{"set out of range", uniform(MAX_DESCRIPTOR_SETS, 0), core.CodeTooManySets},
		{"binding out of range", uniform(0, MAX_BINDINGS_PER_SET), core.CodeTooManyBindings},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := validateBindings([]BindingDecl{tc.decl}, silentMessenger(nil))
			assert.ErrorIs(t, err, tc.code)
		})
	}
}

func TestValidateBindingsRejectsSetGaps(t *testing.T) {
	_, err := validateBindings([]BindingDecl{uniform(0, 0), uniform(2, 0)}, silentMessenger(nil))
	assert.ErrorIs(t, err, core.CodeNonContiguousSets)

	_, err = validateBindings([]BindingDecl{uniform(1, 0)}, silentMessenger(nil))
	assert.ErrorIs(t, err, core.CodeNonContiguousSets)
}

func TestValidateBindingsContinuingCallbackSkipsRejected(t *testing.T) {
	var codes []core.Code
	table, err := validateBindings([]BindingDecl{uniform(0, 0), storage(0, 0), uniform(2, 1)}, continuingMessenger(&codes))
	require.NoError(t, err)

	assert.Equal(t, []core.Code{core.CodeDuplicateBinding, core.CodeNonContiguousSets}, codes)
	assert.Equal(t, []BindingLocation{{0, 0}, {2, 1}}, table.order)
	assert.Equal(t, uint32(3), table.setCount)
	assert.Equal(t, BindingTypeUniform, table.byLocation[BindingLocation{0, 0}].Type, "first declaration wins")
}

func TestValidateBindingsEmpty(t *testing.T) {
	table, err := validateBindings(nil, silentMessenger(nil))
	require.NoError(t, err)
	assert.Zero(t, table.setCount)
	assert.Empty(t, table.order)
}

func TestPlanBuffers(t *testing.T) {
	transferDst := vk.BufferUsageFlags(vk.BufferUsageTransferDstBit)
	uniformUsage := vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)
	storageUsage := vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)

	plan := planBuffers(uniform(0, 0), DeviceTypeDiscrete)
	assert.True(t, plan.staged)
	assert.False(t, plan.mapped)
	assert.Equal(t, uniformUsage|transferDst, plan.deviceUsage)
	assert.Equal(t, vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), plan.hostUsage)

	plan = planBuffers(uniform(0, 0), DeviceTypeIntegrated)
	assert.False(t, plan.staged)
	assert.True(t, plan.mapped)
	assert.Equal(t, uniformUsage, plan.deviceUsage)

	for _, deviceType := range []DeviceType{DeviceTypeDiscrete, DeviceTypeIntegrated} {
		plan = planBuffers(storage(0, 0), deviceType)
		assert.False(t, plan.staged)
		assert.False(t, plan.mapped)
		assert.Equal(t, storageUsage, plan.deviceUsage)
		assert.Zero(t, plan.hostUsage)
	}
}

func TestBlockFlags(t *testing.T) {
	positive, negative := deviceBlockFlags(DeviceTypeDiscrete, true)
	assert.Equal(t, deviceLocal, positive)
	assert.Zero(t, negative)

	positive, _ = deviceBlockFlags(DeviceTypeIntegrated, true)
	assert.Equal(t, deviceLocal|hostVisible|hostCoherent, positive)

	positive, _ = deviceBlockFlags(DeviceTypeIntegrated, false)
	assert.Equal(t, deviceLocal, positive)

	positive, _ = hostBlockFlags()
	assert.Equal(t, hostVisible|hostCoherent, positive)
}

func TestValidateBindingsWarnsOnUnwritableUniform(t *testing.T) {
	decl := BindingDecl{Set: 0, Binding: 0, Type: BindingTypeUniform, Mutability: HostImmutable, Size: 64}
	var codes []core.Code
	table, err := validateBindings([]BindingDecl{decl, storage(0, 1)}, silentMessenger(&codes))
	require.NoError(t, err)

	assert.Equal(t, []core.Code{core.CodeUnusedBinding}, codes)
	assert.Len(t, table.order, 2, "the binding is kept")
}
