package engine

import "github.com/spaghettifunk/wreck/engine/core"

type ApplicationConfig struct {
	// The application name used in windowing and as the Vulkan application name.
	// Overrides the window name from the config file when set.
	Name string
	// Path of the TOML config file. A missing file means defaults.
	ConfigPath string
	// Overrides the config file log level when set.
	LogLevel core.LogLevel
}
