package ir

// Version constants for the commit log format and kernel.
const (
	// LogVersion is the commit log schema version.
	LogVersion = "1"

	// KernelVersion is the thisme kernel version.
	KernelVersion = "0.1.0"
)
