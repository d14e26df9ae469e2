//go:build mage

package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/magefile/mage/mg"
)

// tool is an external program a target shells out to.
type tool struct {
	name   string
	hint   string
	dir    string
	env    []string
	stream bool
}

func goTool() tool {
	return tool{name: "go", env: []string{"CGO_ENABLED=1"}}
}

// glslang compiles GLSL to SPIR-V. It ships with the Vulkan SDK.
func glslang() tool {
	return tool{name: "glslangValidator", hint: "install the Vulkan SDK or the glslang package"}
}

func (t tool) in(dir string) tool {
	t.dir = dir
	return t
}

func (t tool) streaming() tool {
	t.stream = true
	return t
}

func (t tool) lookPath() error {
	if _, err := exec.LookPath(t.name); err != nil {
		if t.hint != "" {
			return fmt.Errorf("%s not found in PATH: %s", t.name, t.hint)
		}
		return fmt.Errorf("%s not found in PATH: %w", t.name, err)
	}
	return nil
}

// run executes the tool and returns its combined output. Output is echoed
// when the tool streams or mage runs verbose, and dumped on failure otherwise.
func (t tool) run(args ...string) (string, error) {
	if err := t.lookPath(); err != nil {
		return "", err
	}

	where := ""
	if t.dir != "" {
		where = " (in " + t.dir + ")"
	}
	fmt.Printf("-> %s %s%s\n", t.name, strings.Join(args, " "), where)

	cmd := exec.Command(t.name, args...)
	cmd.Dir = t.dir
	if len(t.env) > 0 {
		cmd.Env = append(os.Environ(), t.env...)
	}

	echo := mg.Verbose() || t.stream
	var out bytes.Buffer
	if echo {
		cmd.Stdout = io.MultiWriter(&out, os.Stdout)
		cmd.Stderr = io.MultiWriter(&out, os.Stderr)
	} else {
		cmd.Stdout = &out
		cmd.Stderr = &out
	}
	if err := cmd.Run(); err != nil {
		if !echo {
			fmt.Print(out.String())
		}
		return "", fmt.Errorf("%s %s: %w", t.name, strings.Join(args, " "), err)
	}
	return out.String(), nil
}
