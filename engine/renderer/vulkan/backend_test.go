package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/wreck/engine/core"
	"github.com/stretchr/testify/assert"
)

func TestValidationReporterRaisesLayerMessages(t *testing.T) {
	var codes []core.Code
	var messages []string
	messenger := core.NewMessenger(func(code core.Code, msg string) bool {
		codes = append(codes, code)
		messages = append(messages, msg)
		return code.IsError()
	})
	report := validationReporter(messenger)

	for _, bit := range []vk.DebugReportFlagBits{vk.DebugReportErrorBit, vk.DebugReportWarningBit, vk.DebugReportPerformanceWarningBit} {
		ret := report(vk.DebugReportFlags(bit), 0, 0, 0, 42, "Validation", "bad barrier", nil)
		assert.Equal(t, vk.Bool32(vk.False), ret)
	}
	report(vk.DebugReportFlags(vk.DebugReportDebugBit), 0, 0, 0, 7, "Loader", "layer loaded", nil)

	assert.Equal(t, []core.Code{core.CodeValidationMessage, core.CodeValidationMessage, core.CodeValidationMessage}, codes)
	assert.Contains(t, messages[0], "ERROR: [Validation] Code 42 : bad barrier")
	assert.Contains(t, messages[2], "PERFORMANCE WARNING")
}

func TestInstanceExtensionsDeduplicatesSurface(t *testing.T) {
	extensions := instanceExtensions([]string{"VK_KHR_surface", "VK_KHR_xcb_surface"}, true)
	count := 0
	for _, name := range extensions {
		if name == "VK_KHR_surface" {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Contains(t, extensions, "VK_KHR_xcb_surface")
}
