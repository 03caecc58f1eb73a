package common

import "time"

var (
	// Version is stamped at build time via -ldflags.
	Version = "v0.1.0"
	// StartTime is the process start, in unix seconds.
	StartTime = time.Now().Unix()
)
