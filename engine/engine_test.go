package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/wreck/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestNewLoadsConfig(t *testing.T) {
	path := writeConfig(t, `
[window]
name = "from file"
width = 640
height = 480

[renderer]
transfer_policy = "wait"
`)
	e, err := New(&Game{ApplicationConfig: &ApplicationConfig{ConfigPath: path}})
	require.NoError(t, err)
	assert.Equal(t, "from file", e.config.Window.Name)
	assert.Equal(t, "wait", e.config.Renderer.TransferPolicy)

	w, h := e.GetFramebufferSize()
	assert.Equal(t, uint32(640), w)
	assert.Equal(t, uint32(480), h)
	assert.Equal(t, EngineStageUninitialized, e.currentStage)
}

func TestNewNameOverride(t *testing.T) {
	e, err := New(&Game{ApplicationConfig: &ApplicationConfig{Name: "override"}})
	require.NoError(t, err)
	assert.Equal(t, "override", e.config.Window.Name)
}

func TestNewRejectsBadConfig(t *testing.T) {
	path := writeConfig(t, "[renderer]\ntransfer_policy = \"sometimes\"\n")
	_, err := New(&Game{ApplicationConfig: &ApplicationConfig{ConfigPath: path}})
	require.Error(t, err)
	assert.Equal(t, core.CodeInvalidConfig, core.CodeOf(err))
}

func TestEvents(t *testing.T) {
	var resized [][2]uint32
	var keys []int32
	g := &Game{
		FnOnResize: func(width, height uint32) error {
			resized = append(resized, [2]uint32{width, height})
			return nil
		},
		FnOnKey: func(key int32) { keys = append(keys, key) },
	}
	e, err := New(g)
	require.NoError(t, err)
	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.events.Register(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	e.events.Register(core.EVENT_CODE_RESIZED, e, e.onResized)
	e.isRunning.Store(true)

	// same size is ignored
	assert.False(t, e.events.Fire(core.EVENT_CODE_RESIZED, nil, core.EventContext{Width: 1280, Height: 720}))
	assert.True(t, e.events.Fire(core.EVENT_CODE_RESIZED, nil, core.EventContext{Width: 800, Height: 600}))
	assert.Equal(t, [][2]uint32{{800, 600}}, resized)

	e.events.Fire(core.EVENT_CODE_KEY_PRESSED, nil, core.EventContext{Key: 65})
	assert.Equal(t, []int32{65}, keys)

	assert.True(t, e.events.Fire(core.EVENT_CODE_APPLICATION_QUIT, nil, core.EventContext{}))
	assert.False(t, e.isRunning.Load())
}
