package x86_64

import (
	"github.com/snaptrace/snaptrace/go/models"
)

var Arch = &models.Arch{
	ID:       models.ArchX86_64,
	Bits:     64,
	PageSize: 0x1000,
	// highest canonical user page is 0x7fff_ffff_e000
	MaxUserAddress: 0x7fff_ffff_f000,
	// int3
	Trap: []byte{0xcc},
	Regs: []string{
		"rax", "rbx", "rcx", "rdx", "rsi", "rdi", "rbp", "rsp",
		"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15",
		"rip", "eflags", "fs_base", "gs_base",
	},
}

// syscall
var SyscallInsn = []byte{0x0f, 0x05}

// Syscall argument registers, in order. The number goes in rax.
var SyscallArgs = []string{"rdi", "rsi", "rdx", "r10", "r8", "r9"}

var defaultConfig = models.FuzzingConfig{
	Code:  models.MemoryRange{Start: 0x3000_0000, NumBytes: 0x8000_0000},
	Data1: models.MemoryRange{Start: 0x1_0000, NumBytes: 0x2000_0000},
	Data2: models.MemoryRange{Start: 0x10_0001_0000, NumBytes: 0x2000_0000},
}

var limitedConfig = models.FuzzingConfig{
	Code:  models.MemoryRange{Start: 0x3000_0000, NumBytes: 0x8000_0000},
	Data1: models.MemoryRange{Start: 0x1_0000, NumBytes: 0x4000},
	Data2: models.MemoryRange{Start: 0x10_0001_0000, NumBytes: 0x4000},
}

// DefaultFuzzingConfig is the config most callers want.
func DefaultFuzzingConfig() models.FuzzingConfig { return defaultConfig }

// LimitedMemoryFuzzingConfig shrinks the data regions for hosts with little memory.
func LimitedMemoryFuzzingConfig() models.FuzzingConfig { return limitedConfig }
