package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedMessage struct {
	code Code
	msg  string
}

func recordingCallback(halt bool, out *[]recordedMessage) MessageCallback {
	return func(code Code, msg string) bool {
		*out = append(*out, recordedMessage{code: code, msg: msg})
		return halt && code.IsError()
	}
}

func TestMessengerErrorHaltsWhenCallbackAsks(t *testing.T) {
	var got []recordedMessage
	m := NewMessenger(recordingCallback(true, &got))

	err := m.Error(CodeDuplicateBinding, "binding %d in set %d declared twice", 2, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, CodeDuplicateBinding)

	require.Len(t, got, 1)
	assert.Equal(t, CodeDuplicateBinding, got[0].code)
	assert.Contains(t, got[0].msg, "declared twice")
	assert.Contains(t, got[0].msg, " *** messages_test.go:")
}

func TestMessengerErrorContinuesWhenCallbackDeclines(t *testing.T) {
	var got []recordedMessage
	m := NewMessenger(recordingCallback(false, &got))

	assert.NoError(t, m.Error(CodeImmutableWithBatch, "ignored"))
	assert.Error(t, m.Fail(CodeCreateBuffer, "always fatal"))
	assert.Len(t, got, 2)
}

func TestMessengerWarningsAndInfoNeverHalt(t *testing.T) {
	var got []recordedMessage
	m := NewMessenger(recordingCallback(true, &got))

	m.Warn(CodeTransferSkipped, "transfer still in flight")
	m.Info("frame %d", 3)

	require.Len(t, got, 2)
	assert.Equal(t, CodeTransferSkipped, got[0].code)
	assert.Equal(t, CodeSuccess, got[1].code)
	assert.Equal(t, "frame 3", got[1].msg)
}

func TestDefaultMessageCallback(t *testing.T) {
	assert.True(t, DefaultMessageCallback(CodeCreateInstance, "boom"))
	assert.False(t, DefaultMessageCallback(CodeShaderChanged, "changed"))
	assert.False(t, DefaultMessageCallback(CodeSuccess, "hello"))
	assert.NotNil(t, NewMessenger(nil).callback)
}
