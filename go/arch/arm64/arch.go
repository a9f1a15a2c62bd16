package arm64

import (
	"github.com/snaptrace/snaptrace/go/models"
)

var Arch = &models.Arch{
	ID:       models.ArchArm64,
	Bits:     64,
	PageSize: 0x1000,
	// 48-bit user address space
	MaxUserAddress: 1 << 48,
	// brk #0
	Trap: []byte{0x00, 0x00, 0x20, 0xd4},
	Regs: []string{
		"x0", "x1", "x2", "x3", "x4", "x5", "x6", "x7",
		"x8", "x9", "x10", "x11", "x12", "x13", "x14", "x15",
		"x16", "x17", "x18", "x19", "x20", "x21", "x22", "x23",
		"x24", "x25", "x26", "x27", "x28", "x29", "x30",
		"sp", "pc", "pstate", "tpidr", "tpidrro",
	},
}

// svc #0
var SyscallInsn = []byte{0x01, 0x00, 0x00, 0xd4}

// Syscall argument registers, in order. The number goes in x8 and the result comes back in x0.
var SyscallArgs = []string{"x0", "x1", "x2", "x3", "x4", "x5"}

var defaultConfig = models.FuzzingConfig{
	Code:  models.MemoryRange{Start: 0x3000_0000, NumBytes: 0x8000_0000},
	Stack: models.MemoryRange{Start: 0x200_0000, NumBytes: 0x1000},
	Data1: models.MemoryRange{Start: 0x7_0000_0000, NumBytes: 0x40_0000},
	Data2: models.MemoryRange{Start: 0x1007_0000_0000, NumBytes: 0x40_0000},
}

var limitedConfig = models.FuzzingConfig{
	Code:  models.MemoryRange{Start: 0x3000_0000, NumBytes: 0x8000_0000},
	Stack: models.MemoryRange{Start: 0x200_0000, NumBytes: 0x1000},
	Data1: models.MemoryRange{Start: 0x7_0000_0000, NumBytes: 0x4000},
	Data2: models.MemoryRange{Start: 0x1007_0000_0000, NumBytes: 0x4000},
}

// DefaultFuzzingConfig is the config most callers want.
func DefaultFuzzingConfig() models.FuzzingConfig { return defaultConfig }

// LimitedMemoryFuzzingConfig is for proxies with limited physical memory.
func LimitedMemoryFuzzingConfig() models.FuzzingConfig { return limitedConfig }
