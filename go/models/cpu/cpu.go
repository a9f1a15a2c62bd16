// Package cpu defines the Cpu interface the emulation tracer drives, plus
// Mem, Regs and Hooks: the building blocks of a pure-Go engine that needs no
// cgo. The tracer's own tests run on an engine assembled from them.
package cpu

import (
	"time"
)

type Hook interface{}

// Region is one mapping as reported by the engine.
type Region struct {
	Addr, Size uint64
	Prot       int
}

// Cpu abstracts the minimum functionality the tracer needs from a CPU emulator.
type Cpu interface {
	// memory mapping
	MemMapProt(addr, size uint64, prot int) error
	MemProt(addr, size uint64, prot int) error
	MemUnmap(addr, size uint64) error
	// MemRegions lists mappings in address order.
	MemRegions() ([]Region, error)

	// memory IO
	MemRead(addr, size uint64) ([]byte, error)
	MemReadInto(p []byte, addr uint64) error
	MemWrite(addr uint64, p []byte) error

	// register IO
	RegRead(reg int) (uint64, error)
	RegWrite(reg int, val uint64) error

	// execution
	Start(begin, until uint64) error
	// StartWithTimeout is Start bounded by wall clock time.
	StartWithTimeout(begin, until uint64, timeout time.Duration) error
	// TimedOut reports whether the last start ended because of its timeout.
	TimedOut() (bool, error)
	Stop() error

	// hooks
	HookAdd(htype int, cb interface{}, begin, end uint64, extra ...int) (Hook, error)
	HookDel(hook Hook) error

	// cleanup
	Close() error
}

// Exception is returned from Start when guest code raised a CPU exception
// the engine could not continue past.
type Exception struct {
	Addr   uint64
	Reason string
}

func (e *Exception) Error() string {
	return e.Reason
}
