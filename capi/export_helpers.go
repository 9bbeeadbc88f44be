package main

/*
#include <stddef.h>
#include <stdint.h>
*/
import "C"

import (
	"unsafe"

	"github.com/vulfram/vulfram-core/internal/result"
)

// Go-typed views of the exports. Each one converts its arguments exactly as
// a C host would pass them and calls the export itself, so the boundary
// rules (null pointers, length cells, panics) can be driven from Go.

// hostBytes returns the address of b's first byte, or NULL for an empty b.
func hostBytes(b []byte) *C.uint8_t {
	if len(b) == 0 {
		return nil
	}
	return (*C.uint8_t)(unsafe.Pointer(&b[0]))
}

func initEngine() result.Code    { return result.Code(engine_init()) }
func disposeEngine() result.Code { return result.Code(engine_dispose()) }

// sendPool passes data with an explicit length, which may disagree with
// len(data) the way a careless host's would.
func sendPool(data []byte, length uint64) result.Code {
	return result.Code(engine_send_pool(hostBytes(data), C.size_t(length)))
}

func uploadBuffer(id uint64, data []byte, length uint64) result.Code {
	return result.Code(engine_upload_buffer(C.uint64_t(id), hostBytes(data), C.size_t(length)))
}

// receivePool passes out with *cell as its capacity. A nil cell is a NULL
// length pointer. The cell receives whatever the export leaves behind.
func receivePool(out []byte, cell *uint64) result.Code {
	if cell == nil {
		return result.Code(engine_receive_pool(hostBytes(out), nil))
	}
	n := C.size_t(*cell)
	rc := engine_receive_pool(hostBytes(out), &n)
	*cell = uint64(n)
	return result.Code(rc)
}

func downloadBuffer(id uint64, out []byte, cell *uint64) result.Code {
	if cell == nil {
		return result.Code(engine_download_buffer(C.uint64_t(id), hostBytes(out), nil))
	}
	n := C.size_t(*cell)
	rc := engine_download_buffer(C.uint64_t(id), hostBytes(out), &n)
	*cell = uint64(n)
	return result.Code(rc)
}

func clearBuffer(id uint64) result.Code {
	return result.Code(engine_clear_buffer(C.uint64_t(id)))
}

func tick(time uint64, delta uint32) result.Code {
	return result.Code(engine_tick(C.uint64_t(time), C.uint32_t(delta)))
}
