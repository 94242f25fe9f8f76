//go:build windows

package cmd

import "os"

// interruptSignals returns the OS signals that cancel a running command.
// Windows only delivers os.Interrupt to console processes.
func interruptSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}
