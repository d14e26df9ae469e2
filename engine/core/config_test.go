package core

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeConfigOverridesDefaults(t *testing.T) {
	cfg, err := DecodeConfig(strings.NewReader(`
[window]
name = "demo"
width = 800
height = 600

[renderer]
transfer_policy = "wait"
clear_color = [0.1, 0.2, 0.3, 1.0]
watch_shaders = true

[log]
level = "debug"
`))
	require.NoError(t, err)
	assert.Equal(t, "demo", cfg.Window.Name)
	assert.Equal(t, uint32(800), cfg.Window.Width)
	assert.Equal(t, uint32(100), cfg.Window.X)
	assert.Equal(t, "wait", cfg.Renderer.TransferPolicy)
	assert.Equal(t, [4]float32{0.1, 0.2, 0.3, 1.0}, cfg.Renderer.ClearColor)
	assert.True(t, cfg.Renderer.WatchShaders)
	assert.Equal(t, "shaders", cfg.Renderer.ShaderDir)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestDecodeConfigRejectsUnknownKeys(t *testing.T) {
	_, err := DecodeConfig(strings.NewReader("[window]\ntitle = \"x\"\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, CodeInvalidConfig)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Window.Height = 0
	assert.ErrorIs(t, cfg.Validate(), CodeInvalidConfig)

	cfg = DefaultConfig()
	cfg.Renderer.TransferPolicy = "sometimes"
	assert.ErrorIs(t, cfg.Validate(), CodeInvalidConfig)

	cfg = DefaultConfig()
	cfg.Log.Level = "chatty"
	assert.ErrorIs(t, cfg.Validate(), CodeInvalidConfig)
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}
