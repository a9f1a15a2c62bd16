package native

import (
	"fmt"
	"syscall"
)

// stop describes why the traced process stopped.
type stop struct {
	exited bool
	// exit status, or the signal that stopped or killed the process
	status int
	signal syscall.Signal
}

func (s stop) String() string {
	if s.exited {
		if s.signal != 0 {
			return fmt.Sprintf("killed by %v", s.signal)
		}
		return fmt.Sprintf("exited with status %d", s.status)
	}
	return fmt.Sprintf("stopped by %v", s.signal)
}

func (s stop) trapped() bool {
	return !s.exited && s.signal == syscall.SIGTRAP
}
