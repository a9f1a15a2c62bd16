package unicorn

import (
	"github.com/pkg/errors"
	uc "github.com/unicorn-engine/unicorn/bindings/go/unicorn"

	"github.com/snaptrace/snaptrace/go/arch/x86_64"
	"github.com/snaptrace/snaptrace/go/models"
	"github.com/snaptrace/snaptrace/go/models/cpu"
)

var x86Regs = map[string]int{
	"rax":     uc.X86_REG_RAX,
	"rbx":     uc.X86_REG_RBX,
	"rcx":     uc.X86_REG_RCX,
	"rdx":     uc.X86_REG_RDX,
	"rsi":     uc.X86_REG_RSI,
	"rdi":     uc.X86_REG_RDI,
	"rbp":     uc.X86_REG_RBP,
	"rsp":     uc.X86_REG_RSP,
	"r8":      uc.X86_REG_R8,
	"r9":      uc.X86_REG_R9,
	"r10":     uc.X86_REG_R10,
	"r11":     uc.X86_REG_R11,
	"r12":     uc.X86_REG_R12,
	"r13":     uc.X86_REG_R13,
	"r14":     uc.X86_REG_R14,
	"r15":     uc.X86_REG_R15,
	"rip":     uc.X86_REG_RIP,
	"eflags":  uc.X86_REG_EFLAGS,
	"fs_base": uc.X86_REG_FS_BASE,
	"gs_base": uc.X86_REG_GS_BASE,
}

// read back but never written, the engine owns segment setup
var x86Segments = map[string]int{
	"cs": uc.X86_REG_CS,
	"ss": uc.X86_REG_SS,
	"ds": uc.X86_REG_DS,
	"es": uc.X86_REG_ES,
	"fs": uc.X86_REG_FS,
	"gs": uc.X86_REG_GS,
}

const (
	cr0MP         = 1 << 1
	cr0EM         = 1 << 2
	cr4OSFXSR     = 1 << 9
	cr4OSXMMEXCPT = 1 << 10
)

// X86_64 runs x86_64 snippets on unicorn.
type X86_64 struct{}

func (X86_64) Arch() *models.Arch { return x86_64.Arch }

func (X86_64) NewCpu(cfg models.TracerConfig) (cpu.Cpu, error) {
	u, err := New(uc.ARCH_X86, uc.MODE_64)
	if err != nil {
		return nil, err
	}
	// enable SSE
	cr0, err := u.RegRead(uc.X86_REG_CR0)
	if err == nil {
		err = u.RegWrite(uc.X86_REG_CR0, cr0&^cr0EM|cr0MP)
	}
	if err == nil {
		var cr4 uint64
		if cr4, err = u.RegRead(uc.X86_REG_CR4); err == nil {
			err = u.RegWrite(uc.X86_REG_CR4, cr4|cr4OSFXSR|cr4OSXMMEXCPT)
		}
	}
	if err != nil {
		u.Close()
		return nil, errors.Wrap(err, "failed to enable SSE")
	}
	return u, nil
}

func (X86_64) UnpackRegisters(regs models.SnapshotRegisters) (*x86_64.UContext, error) {
	return x86_64.UnpackRegisters(regs)
}

func (X86_64) SetRegisters(c cpu.Cpu, u *x86_64.UContext) error {
	for name, enum := range x86Regs {
		if err := c.RegWrite(enum, *u.GRegs.Reg(name)); err != nil {
			return errors.Wrapf(err, "failed to write %s", name)
		}
	}
	fp := &u.FPRegs
	for _, r := range []struct {
		enum int
		val  uint64
	}{
		{uc.X86_REG_FPCW, uint64(fp.Fcw)},
		{uc.X86_REG_FPSW, uint64(fp.Fsw)},
		{uc.X86_REG_MXCSR, uint64(fp.Mxcsr)},
	} {
		if err := c.RegWrite(r.enum, r.val); err != nil {
			return errors.Wrap(err, "failed to write fp control registers")
		}
	}
	return nil
}

// GetRegisters fills general registers and the x87/SSE control words.
// Vector and x87 data registers are wider than the register interface and
// stay zero, as do the extension groups.
func (X86_64) GetRegisters(c cpu.Cpu, u *x86_64.UContext, eregs *x86_64.RegisterGroupIOBuffer) error {
	*u = x86_64.UContext{}
	for _, regs := range []map[string]int{x86Regs, x86Segments} {
		for name, enum := range regs {
			val, err := c.RegRead(enum)
			if err != nil {
				return errors.Wrapf(err, "failed to read %s", name)
			}
			*u.GRegs.Reg(name) = val
		}
	}
	fcw, err := c.RegRead(uc.X86_REG_FPCW)
	if err != nil {
		return err
	}
	fsw, err := c.RegRead(uc.X86_REG_FPSW)
	if err != nil {
		return err
	}
	mxcsr, err := c.RegRead(uc.X86_REG_MXCSR)
	if err != nil {
		return err
	}
	u.FPRegs.Fcw, u.FPRegs.Fsw = uint16(fcw), uint16(fsw)
	u.FPRegs.Mxcsr, u.FPRegs.MxcsrMask = uint32(mxcsr), 0xffff
	if eregs != nil {
		*eregs = x86_64.RegisterGroupIOBuffer{Groups: eregs.Groups}
	}
	return nil
}

func (X86_64) PCReg() int { return uc.X86_REG_RIP }
func (X86_64) SPReg() int { return uc.X86_REG_RSP }

// ValidateEndState rejects a set trap flag, which would turn the next
// instruction on hardware into a debug exception.
func (X86_64) ValidateEndState(c cpu.Cpu) error {
	eflags, err := c.RegRead(uc.X86_REG_EFLAGS)
	if err != nil {
		return err
	}
	if eflags&x86_64.EflagsTF != 0 {
		return errors.New("trap flag is set")
	}
	return nil
}
