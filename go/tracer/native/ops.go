package native

import (
	"github.com/snaptrace/snaptrace/go/models"
)

// ELF note types naming ptrace register sets.
const (
	ntPrstatus  = 1
	ntPrfpreg   = 2
	ntX86Xstate = 0x202
	ntArmTLS    = 0x401
	ntArmSVE    = 0x405
)

// Regsets reads and writes kernel register sets by note type.
type Regsets interface {
	// GetRegset returns how many bytes of p the kernel filled.
	GetRegset(note int, p []byte) (int, error)
	SetRegset(note int, p []byte) error
}

// Ops converts between one architecture's UContext and its kernel register sets.
type Ops[U, E any] interface {
	Arch() *models.Arch
	SyscallInsn() []byte

	UnpackRegisters(regs models.SnapshotRegisters) (*U, error)
	GetRegisters(rs Regsets, u *U) error
	SetRegisters(rs Regsets, u *U) error
	// GetExtRegisters fills the groups requested in eregs and zeroes the rest.
	GetExtRegisters(rs Regsets, eregs *E) error

	PC(u *U) uint64
	SetPC(u *U, pc uint64)
	SP(u *U) uint64

	SetSyscall(u *U, nr uint64, args [6]uint64)
	SyscallResult(u *U) uint64

	ValidateEndState(u *U) error
}
