//go:build nogpu

package platform

import "errors"

// BackendWGPU is the name of the wgpu graphics backend.
const BackendWGPU = "wgpu"

// NewWGPU always fails in builds without GPU support.
func NewWGPU() (Graphics, error) {
	return nil, errors.New("built with nogpu")
}
