//go:build !windows

package cmd

import (
	"os"
	"syscall"
)

// interruptSignals returns the OS signals that cancel a running command.
func interruptSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM}
}
