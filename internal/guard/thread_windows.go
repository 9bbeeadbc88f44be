//go:build windows

package guard

import "golang.org/x/sys/windows"

// CurrentThread returns the Win32 thread id of the caller.
func CurrentThread() uint64 {
	return uint64(windows.GetCurrentThreadId())
}
