//go:build !linux && !windows

package main

/*
#include <pthread.h>
#include <stdint.h>

static uint64_t vulfram_thread_id(void) {
	return (uint64_t)(uintptr_t)pthread_self();
}
*/
import "C"

import "github.com/vulfram/vulfram-core/internal/guard"

func threadID() guard.ThreadID {
	return func() uint64 { return uint64(C.vulfram_thread_id()) }
}
