// Package shader translates and validates WGSL.
package shader

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gogpu/naga"
)

// SPIRVMagic is the first word of every SPIR-V module.
const SPIRVMagic uint32 = 0x07230203

// Compiler turns WGSL source into a SPIR-V binary.
type Compiler interface {
	Compile(wgsl string) ([]byte, error)
}

// Naga compiles with the pure-Go naga translator.
type Naga struct{}

// Compile translates wgsl and checks the output looks like SPIR-V.
func (Naga) Compile(wgsl string) ([]byte, error) {
	if wgsl == "" {
		return nil, errors.New("empty shader source")
	}
	spirv, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("failed to compile shader: %w", err)
	}
	if err := Validate(spirv); err != nil {
		return nil, err
	}
	return spirv, nil
}

// Validate checks that b is a whole number of little-endian words starting
// with the SPIR-V magic number.
func Validate(b []byte) error {
	if len(b) < 4 || len(b)%4 != 0 {
		return fmt.Errorf("spirv: length %d is not a positive multiple of 4", len(b))
	}
	if magic := binary.LittleEndian.Uint32(b); magic != SPIRVMagic {
		return fmt.Errorf("spirv: bad magic %#08x", magic)
	}
	return nil
}

// Check reports whether wgsl is accepted by c. The translation runs in full
// (parse, lowering, IR validation, SPIR-V generation) and its output is
// dropped.
func Check(c Compiler, wgsl string) error {
	_, err := c.Compile(wgsl)
	return err
}

// Func adapts a function to Compiler.
type Func func(wgsl string) ([]byte, error)

func (f Func) Compile(wgsl string) ([]byte, error) { return f(wgsl) }
