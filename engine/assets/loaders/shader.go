package loaders

import (
	"io"
	"os"

	"github.com/spaghettifunk/wreck/engine/core"
)

const shaderReadBufferInitialSize = 4096 * 4

// ShaderReader loads SPIR-V files into one reusable buffer. The buffer doubles
// until a file fits and is never shrunk.
type ShaderReader struct {
	buffer []byte
}

func NewShaderReader() *ShaderReader {
	return &ShaderReader{
		buffer: make([]byte, shaderReadBufferInitialSize),
	}
}

// Read returns the contents of path. The slice aliases the reader's buffer and
// is only valid until the next call.
func (sr *ShaderReader) Read(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, core.NewError(core.CodeShaderOpen, "failed to open shader `%s`: %s", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, core.NewError(core.CodeShaderRead, "failed to stat shader `%s`: %s", path, err)
	}
	size := int(info.Size())
	sr.grow(size)

	n, err := io.ReadFull(f, sr.buffer[:size])
	if err != nil || n != size {
		return nil, core.NewError(core.CodeShaderRead, "read %d of %d bytes from shader `%s`", n, size, path)
	}
	if size == 0 || size%4 != 0 {
		return nil, core.NewError(core.CodeShaderRead, "shader `%s` is %d bytes, not a SPIR-V word stream", path, size)
	}
	return sr.buffer[:size], nil
}

func (sr *ShaderReader) Capacity() int {
	return len(sr.buffer)
}

func (sr *ShaderReader) grow(size int) {
	capacity := len(sr.buffer)
	if capacity == 0 {
		capacity = shaderReadBufferInitialSize
	}
	for capacity < size {
		capacity *= 2
	}
	if capacity != len(sr.buffer) {
		sr.buffer = make([]byte, capacity)
	}
}

// Bytecode packs little endian SPIR-V bytes into words.
func Bytecode(b []byte) []uint32 {
	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = 0
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}
	return byteCode
}
