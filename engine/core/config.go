package core

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config is the engine configuration loaded from a TOML file.
type Config struct {
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Log      LogConfig      `toml:"log"`
}

type WindowConfig struct {
	Name   string `toml:"name"`
	X      uint32 `toml:"x"`
	Y      uint32 `toml:"y"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type RendererConfig struct {
	// Enables VK_LAYER_KHRONOS_validation and the debug report callback.
	Validation bool `toml:"validation"`
	// "skip" drops a frame batch while the previous transfer is in flight,
	// "wait" blocks on it instead.
	TransferPolicy string     `toml:"transfer_policy"`
	ClearColor     [4]float32 `toml:"clear_color"`
	// Nanoseconds, 0 means no timeout.
	FenceTimeout uint64 `toml:"fence_timeout"`
	ShaderDir    string `toml:"shader_dir"`
	WatchShaders bool   `toml:"watch_shaders"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

func DefaultConfig() *Config {
	return &Config{
		Window: WindowConfig{
			Name:   "Wreck",
			X:      100,
			Y:      100,
			Width:  1280,
			Height: 720,
		},
		Renderer: RendererConfig{
			Validation:     false,
			TransferPolicy: "skip",
			ClearColor:     [4]float32{0.0, 0.0, 0.2, 1.0},
			FenceTimeout:   0,
			ShaderDir:      "shaders",
			WatchShaders:   false,
		},
		Log: LogConfig{
			Level: string(LogLevelInfo),
		},
	}
}

// LoadConfig reads path on top of the defaults. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			LogInfo("config file `%s` not found, using defaults", path)
			return DefaultConfig(), nil
		}
		return nil, err
	}
	defer f.Close()
	return DecodeConfig(f)
}

func DecodeConfig(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, NewError(CodeInvalidConfig, "unknown configuration keys:\n%s", strict.String())
		}
		return nil, NewError(CodeInvalidConfig, "failed to decode configuration: %s", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return NewError(CodeInvalidConfig, "window size must be non zero, got %dx%d", c.Window.Width, c.Window.Height)
	}
	switch strings.ToLower(c.Renderer.TransferPolicy) {
	case "skip", "wait":
	default:
		return NewError(CodeInvalidConfig, "unknown transfer policy `%s`", c.Renderer.TransferPolicy)
	}
	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return NewError(CodeInvalidConfig, "%s", err)
	}
	return nil
}

func (c *Config) String() string {
	b, err := toml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("%+v", *c)
	}
	return string(b)
}
