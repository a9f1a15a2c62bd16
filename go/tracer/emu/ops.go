package emu

import (
	"github.com/snaptrace/snaptrace/go/models"
	"github.com/snaptrace/snaptrace/go/models/cpu"
)

// Ops is everything the tracer needs to know about one architecture on one engine.
type Ops[U, E any] interface {
	Arch() *models.Arch

	// NewCpu returns an engine ready to run user code: FP and SIMD enabled,
	// lowest privilege level.
	NewCpu(cfg models.TracerConfig) (cpu.Cpu, error)

	UnpackRegisters(regs models.SnapshotRegisters) (*U, error)
	SetRegisters(c cpu.Cpu, u *U) error
	// GetRegisters zeroes whatever the engine cannot read.
	GetRegisters(c cpu.Cpu, u *U, eregs *E) error

	PCReg() int
	SPReg() int

	// ValidateEndState rejects states the engine accepts but hardware would
	// not leave a snippet in.
	ValidateEndState(c cpu.Cpu) error
}
