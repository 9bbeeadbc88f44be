//go:build !linux && !windows

package guard

// CurrentThread is nil on platforms without a pure-Go thread id source.
// Callers must supply one with WithThreadID (the C ABI uses pthread_self).
var CurrentThread ThreadID
