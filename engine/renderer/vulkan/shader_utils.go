package vulkan

import (
	"path/filepath"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/wreck/engine/assets/loaders"
	"github.com/spaghettifunk/wreck/engine/core"
)

/**
 * @brief Represents a single shader stage.
 */
type VulkanShaderStage struct {
	/** @brief The path the SPIR-V was read from. */
	Path string
	/** @brief The internal shader module Handle. */
	Handle vk.ShaderModule
	/** @brief The pipeline shader stage creation info. */
	ShaderStageCreateInfo vk.PipelineShaderStageCreateInfo
}

func resolveShaderPath(dir, path string) string {
	if dir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// shaderModuleCreateInfo takes CodeSize in bytes and PCode in words.
func shaderModuleCreateInfo(code []byte) vk.ShaderModuleCreateInfo {
	return vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code)),
		PCode:    loaders.Bytecode(code),
	}
}

// NewShaderStage reads a SPIR-V file through reader and creates its module.
func NewShaderStage(context *VulkanContext, reader *loaders.ShaderReader, messenger *core.Messenger, path string, stage vk.ShaderStageFlagBits, entryPoint string) (*VulkanShaderStage, error) {
	code, err := reader.Read(path)
	if err != nil {
		return nil, messenger.Fail(core.CodeOf(err), "%s", err)
	}

	createInfo := shaderModuleCreateInfo(code)
	shaderStage := &VulkanShaderStage{Path: path}
	if res := vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &shaderStage.Handle); res != vk.Success {
		return nil, messenger.Fail(core.CodeCreateShaderModule, "failed to create shader module from `%s`: %s", path, VulkanResultString(res, false))
	}

	shaderStage.ShaderStageCreateInfo = vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  stage,
		Module: shaderStage.Handle,
		PName:  VulkanSafeString(entryPoint),
	}
	return shaderStage, nil
}

func (s *VulkanShaderStage) Destroy(context *VulkanContext) {
	if s.Handle != nil {
		vk.DestroyShaderModule(context.Device.LogicalDevice, s.Handle, context.Allocator)
		s.Handle = nil
	}
}
