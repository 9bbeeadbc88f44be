//go:build linux || windows

package main

import "github.com/vulfram/vulfram-core/internal/guard"

func threadID() guard.ThreadID { return guard.CurrentThread }
