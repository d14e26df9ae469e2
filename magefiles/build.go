//go:build mage

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

var shaderEntryPoints = map[string]string{
	".vert": "vertexMain",
	".frag": "fragmentMain",
	".comp": "computeMain",
}

// Compiles every GLSL shader under shaders/ into SPIR-V next to its source.
func (Build) Shaders() error {
	return buildShaders()
}

// Runs go vet and the test suite.
func (Build) Test() error {
	if _, err := goTool().streaming().run("vet", "./..."); err != nil {
		return err
	}
	_, err := goTool().streaming().run("test", "./...")
	return err
}

func buildShaders() error {
	for ext, entry := range shaderEntryPoints {
		sources, err := filepath.Glob(filepath.Join("shaders", "*"+ext))
		if err != nil {
			return err
		}
		for _, src := range sources {
			name := filepath.Base(src)
			if _, err := glslang().in("shaders").run("-V", "--source-entrypoint", "main", "-e", entry, name, "-o", name+".spv"); err != nil {
				return err
			}
		}
	}
	return nil
}
