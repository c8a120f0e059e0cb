package shader

import (
	"errors"
	"fmt"

	"github.com/gogpu/naga"
)

// SPIRVMagic is the first word of every SPIR-V module.
const SPIRVMagic = 0x07230203

// ErrInvalidSPIRV is returned for byte code whose length is not a multiple
// of four or that lacks the SPIR-V magic number.
var ErrInvalidSPIRV = errors.New("shader: invalid SPIR-V")

// Compiler translates preprocessed WGSL into SPIR-V words.
type Compiler interface {
	Compile(source string) ([]uint32, error)
}

// NagaCompiler compiles with the pure Go naga toolchain.
type NagaCompiler struct {
	Options naga.CompileOptions
}

// NewNagaCompiler returns a compiler using naga's default options
// (SPIR-V 1.3 with validation).
func NewNagaCompiler() *NagaCompiler {
	return &NagaCompiler{Options: naga.DefaultOptions()}
}

// Compile compiles WGSL source to SPIR-V.
func (c *NagaCompiler) Compile(source string) ([]uint32, error) {
	spirvBytes, err := naga.CompileWithOptions(source, c.Options)
	if err != nil {
		return nil, fmt.Errorf("failed to compile shader: %w", err)
	}
	return Words(spirvBytes)
}

// Check parses source without lowering it. It reports syntax errors only.
func Check(source string) error {
	if _, err := naga.Parse(source); err != nil {
		return fmt.Errorf("shader: %w", err)
	}
	return nil
}

// Words converts little-endian SPIR-V bytes into 32-bit words.
func Words(spirvBytes []byte) ([]uint32, error) {
	if len(spirvBytes) < 4 || len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidSPIRV, len(spirvBytes))
	}
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	if words[0] != SPIRVMagic {
		return nil, fmt.Errorf("%w: magic 0x%08X", ErrInvalidSPIRV, words[0])
	}
	return words, nil
}
