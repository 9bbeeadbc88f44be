// Package result defines the numeric result codes returned across the
// engine's C ABI.
//
// Codes are grouped into bands per failure domain:
//
//	0        success
//	1        unknown / internal error
//	200-299  lifecycle and parameter errors
//	1000+    windowing subsystem errors
//	2000+    graphics subsystem errors
//	3000+    command decode errors
//
// Host integrations hard-code these numbers. A code's numeric value and
// meaning NEVER change once shipped; new codes are appended to their band.
package result

import "fmt"

// Code is a stable numeric outcome of a boundary call.
type Code uint32

const (
	// Success indicates the call completed.
	Success Code = 0

	// UnknownError covers internal failures, recovered panics and lookups
	// of absent buffer ids.
	UnknownError Code = 1
)

// Lifecycle band.
const (
	// NotInitialized indicates no engine instance exists.
	NotInitialized Code = 200
	// AlreadyInitialized indicates init was called while an instance exists.
	AlreadyInitialized Code = 201
	// WrongThread indicates the caller is not the pinned owner thread.
	WrongThread Code = 202
	// InvalidParameter indicates a mandatory pointer or argument was invalid.
	InvalidParameter Code = 203
	// BufferOverflow indicates the caller's buffer was smaller than required.
	BufferOverflow Code = 204
)

// Windowing band.
const (
	WindowingInitError Code = 1000
	WindowCreateError  Code = 1001
	WindowNotFound     Code = 1002
	WindowingPumpError Code = 1003
)

// Graphics band.
const (
	GraphicsInstanceError Code = 2000
	SurfaceCreateError    Code = 2001
	ShaderCompileError    Code = 2002
)

// Command decode band.
const (
	CmdInvalidCborError Code = 3000
	CmdUnknownType      Code = 3001
	CmdBatchTooLarge    Code = 3002
)

var names = map[Code]string{
	Success:               "Success",
	UnknownError:          "UnknownError",
	NotInitialized:        "NotInitialized",
	AlreadyInitialized:    "AlreadyInitialized",
	WrongThread:           "WrongThread",
	InvalidParameter:      "InvalidParameter",
	BufferOverflow:        "BufferOverflow",
	WindowingInitError:    "WindowingInitError",
	WindowCreateError:     "WindowCreateError",
	WindowNotFound:        "WindowNotFound",
	WindowingPumpError:    "WindowingPumpError",
	GraphicsInstanceError: "GraphicsInstanceError",
	SurfaceCreateError:    "SurfaceCreateError",
	ShaderCompileError:    "ShaderCompileError",
	CmdInvalidCborError:   "CmdInvalidCborError",
	CmdUnknownType:        "CmdUnknownType",
	CmdBatchTooLarge:      "CmdBatchTooLarge",
}

// String returns the stable name of the code.
func (c Code) String() string {
	if name, ok := names[c]; ok {
		return name
	}
	return fmt.Sprintf("Code(%d)", uint32(c))
}

// Known reports whether c is a defined code.
func (c Code) Known() bool {
	_, ok := names[c]
	return ok
}

// Band names the failure domain a code belongs to.
func (c Code) Band() string {
	switch {
	case c == Success:
		return "success"
	case c == UnknownError:
		return "internal"
	case c >= 200 && c < 300:
		return "lifecycle"
	case c >= 1000 && c < 2000:
		return "windowing"
	case c >= 2000 && c < 3000:
		return "graphics"
	case c >= 3000 && c < 4000:
		return "decode"
	default:
		return "unassigned"
	}
}

// All returns every defined code in ascending numeric order.
func All() []Code {
	return []Code{
		Success,
		UnknownError,
		NotInitialized,
		AlreadyInitialized,
		WrongThread,
		InvalidParameter,
		BufferOverflow,
		WindowingInitError,
		WindowCreateError,
		WindowNotFound,
		WindowingPumpError,
		GraphicsInstanceError,
		SurfaceCreateError,
		ShaderCompileError,
		CmdInvalidCborError,
		CmdUnknownType,
		CmdBatchTooLarge,
	}
}

// Parse returns the code with the given name.
func Parse(name string) (Code, bool) {
	for c, n := range names {
		if n == name {
			return c, true
		}
	}
	return 0, false
}
