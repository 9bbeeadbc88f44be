// Command capi builds the engine core as a C shared library:
//
//	go build -buildmode=c-shared -o libvulfram.so ./capi
//
// Every export returns a result code as uint32_t. Configuration is read from
// the environment (and VULFRAM_CONFIG) when the library loads.
package main

/*
#include <stddef.h>
#include <stdint.h>
*/
import "C"

import (
	"context"
	"log/slog"
	"os"
	"unsafe"

	"github.com/vulfram/vulfram-core/internal/config"
	"github.com/vulfram/vulfram-core/internal/core"
	"github.com/vulfram/vulfram-core/internal/journal"
	"github.com/vulfram/vulfram-core/internal/result"
)

var (
	logger   *slog.Logger
	instance *core.Core
)

func init() {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.Default()
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
		logger.Warn("invalid configuration, using defaults", "error", err)
	} else if logger, err = cfg.NewLogger(os.Stderr); err != nil {
		logger = config.NopLogger()
	}

	opts := []core.Option{
		core.WithConfig(cfg),
		core.WithLogger(logger),
		core.WithThreadID(threadID()),
	}
	if rec := openRecorder(cfg); rec != nil {
		opts = append(opts, core.WithRecorder(rec))
	}
	instance = core.New(opts...)
}

// openRecorder starts a journal session when a journal path is configured.
// The store stays open for the life of the process.
func openRecorder(cfg config.Config) *journal.Recorder {
	if cfg.JournalPath == "" {
		return nil
	}
	st, err := journal.Open(cfg.JournalPath)
	if err != nil {
		logger.Warn("journal disabled", "path", cfg.JournalPath, "error", err)
		return nil
	}
	rec, err := journal.NewRecorder(context.Background(), st, journal.UUIDv7Generator{},
		core.Version, cfg.Graphics, logger)
	if err != nil {
		logger.Warn("journal disabled", "path", cfg.JournalPath, "error", err)
		_ = st.Close()
		return nil
	}
	logger.Info("journal session started", "path", cfg.JournalPath, "session", rec.Session().ID)
	return rec
}

// recoverCode turns a panic that escaped the core into UnknownError.
// Unwinding across the C boundary is never allowed.
func recoverCode(op string, code *C.uint32_t) {
	if r := recover(); r != nil {
		logger.Error("panic at boundary", "op", op, "panic", r)
		*code = C.uint32_t(result.UnknownError)
	}
}

// boundary runs one export body under recoverCode.
func boundary(op string, fn func() result.Code) result.Code {
	var rc C.uint32_t
	func() {
		defer recoverCode(op, &rc)
		rc = code(fn())
	}()
	return result.Code(rc)
}

// input views host memory. A nil pointer is only valid with zero length.
func input(ptr *C.uint8_t, length C.size_t) ([]byte, bool) {
	if ptr == nil {
		return nil, length == 0
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(ptr)), int(length)), true
}

// output views a host destination. A nil pointer asks for the size only.
func output(ptr *C.uint8_t, length *C.size_t) []byte {
	if ptr == nil || length == nil {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(ptr)), int(*length))
}

// writeBack stores n in the host's length cell. Only Success and
// BufferOverflow produce a length; any other code leaves the cell as the
// host wrote it.
func writeBack(cell *C.size_t, n uint64, c result.Code) {
	if c == result.Success || c == result.BufferOverflow {
		*cell = C.size_t(n)
	}
}

func code(c result.Code) C.uint32_t { return C.uint32_t(c) }

//export engine_init
func engine_init() C.uint32_t {
	return code(boundary("init", instance.Init))
}

//export engine_dispose
func engine_dispose() C.uint32_t {
	return code(boundary("dispose", instance.Dispose))
}

//export engine_send_pool
func engine_send_pool(ptr *C.uint8_t, length C.size_t) C.uint32_t {
	return code(boundary("send", func() result.Code {
		batch, ok := input(ptr, length)
		if !ok {
			return result.InvalidParameter
		}
		return instance.Send(batch)
	}))
}

//export engine_receive_pool
func engine_receive_pool(out *C.uint8_t, outLength *C.size_t) C.uint32_t {
	return code(boundary("receive", func() result.Code {
		if outLength == nil {
			return instance.Receive(nil, nil)
		}
		var n uint64
		c := instance.Receive(output(out, outLength), &n)
		writeBack(outLength, n, c)
		return c
	}))
}

//export engine_upload_buffer
func engine_upload_buffer(id C.uint64_t, ptr *C.uint8_t, length C.size_t) C.uint32_t {
	return code(boundary("upload", func() result.Code {
		data, ok := input(ptr, length)
		if !ok {
			return result.InvalidParameter
		}
		return instance.Upload(uint64(id), data)
	}))
}

//export engine_download_buffer
func engine_download_buffer(id C.uint64_t, out *C.uint8_t, outLength *C.size_t) C.uint32_t {
	return code(boundary("download", func() result.Code {
		if outLength == nil {
			return instance.Download(uint64(id), nil, nil)
		}
		var n uint64
		c := instance.Download(uint64(id), output(out, outLength), &n)
		writeBack(outLength, n, c)
		return c
	}))
}

//export engine_clear_buffer
func engine_clear_buffer(id C.uint64_t) C.uint32_t {
	return code(boundary("clear", func() result.Code {
		return instance.Clear(uint64(id))
	}))
}

//export engine_tick
func engine_tick(time C.uint64_t, delta C.uint32_t) C.uint32_t {
	return code(boundary("tick", func() result.Code {
		return instance.Tick(uint64(time), uint32(delta))
	}))
}

func main() {}
