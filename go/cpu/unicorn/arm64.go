package unicorn

import (
	"fmt"

	"github.com/pkg/errors"
	uc "github.com/unicorn-engine/unicorn/bindings/go/unicorn"

	"github.com/snaptrace/snaptrace/go/arch/arm64"
	"github.com/snaptrace/snaptrace/go/models"
	"github.com/snaptrace/snaptrace/go/models/cpu"
)

var arm64Regs = map[string]int{
	"x29":     uc.ARM64_REG_X29,
	"x30":     uc.ARM64_REG_X30,
	"sp":      uc.ARM64_REG_SP,
	"pc":      uc.ARM64_REG_PC,
	"pstate":  uc.ARM64_REG_PSTATE,
	"tpidr":   uc.ARM64_REG_TPIDR_EL0,
	"tpidrro": uc.ARM64_REG_TPIDRRO_EL0,
}

func init() {
	// x0-x28 are contiguous, x29 and x30 are not
	for i := 0; i <= 28; i++ {
		arm64Regs[fmt.Sprintf("x%d", i)] = uc.ARM64_REG_X0 + i
	}
}

const (
	// CPACR_EL1.FPEN: no FP/SIMD traps at EL0 or EL1
	cpacrFPEN = 3 << 20

	cpuModelA72 = 2
)

// Arm64 runs arm64 snippets on unicorn.
type Arm64 struct{}

func (Arm64) Arch() *models.Arch { return arm64.Arch }

func (Arm64) NewCpu(cfg models.TracerConfig) (cpu.Cpu, error) {
	u, err := New(uc.ARCH_ARM64, uc.MODE_ARM)
	if err != nil {
		return nil, err
	}
	if cfg.ForceA72 {
		if err := u.SetCPUModel(cpuModelA72); err != nil {
			u.Close()
			return nil, err
		}
	}
	cpacr, err := u.RegRead(uc.ARM64_REG_CPACR_EL1)
	if err == nil {
		err = u.RegWrite(uc.ARM64_REG_CPACR_EL1, cpacr|cpacrFPEN)
	}
	if err == nil {
		// drop to EL0 with all interrupts unmasked
		err = u.RegWrite(uc.ARM64_REG_PSTATE, 0)
	}
	if err != nil {
		u.Close()
		return nil, errors.Wrap(err, "failed to initialize arm64 cpu")
	}
	return u, nil
}

func (Arm64) UnpackRegisters(regs models.SnapshotRegisters) (*arm64.UContext, error) {
	return arm64.UnpackRegisters(regs)
}

func (Arm64) SetRegisters(c cpu.Cpu, u *arm64.UContext) error {
	for name, enum := range arm64Regs {
		if err := c.RegWrite(enum, *u.GRegs.Reg(name)); err != nil {
			return errors.Wrapf(err, "failed to write %s", name)
		}
	}
	if err := c.RegWrite(uc.ARM64_REG_FPSR, uint64(u.FPRegs.Fpsr)); err != nil {
		return errors.Wrap(err, "failed to write fpsr")
	}
	return errors.Wrap(c.RegWrite(uc.ARM64_REG_FPCR, uint64(u.FPRegs.Fpcr)), "failed to write fpcr")
}

// GetRegisters fills general registers, fpsr and fpcr. The vector registers
// are wider than the register interface and stay zero, as does SVE state.
func (Arm64) GetRegisters(c cpu.Cpu, u *arm64.UContext, eregs *arm64.RegisterGroupIOBuffer) error {
	*u = arm64.UContext{}
	for name, enum := range arm64Regs {
		val, err := c.RegRead(enum)
		if err != nil {
			return errors.Wrapf(err, "failed to read %s", name)
		}
		*u.GRegs.Reg(name) = val
	}
	fpsr, err := c.RegRead(uc.ARM64_REG_FPSR)
	if err != nil {
		return err
	}
	fpcr, err := c.RegRead(uc.ARM64_REG_FPCR)
	if err != nil {
		return err
	}
	u.FPRegs.Fpsr, u.FPRegs.Fpcr = uint32(fpsr), uint32(fpcr)
	if eregs != nil {
		*eregs = arm64.RegisterGroupIOBuffer{Groups: eregs.Groups}
	}
	return nil
}

func (Arm64) PCReg() int { return uc.ARM64_REG_PC }
func (Arm64) SPReg() int { return uc.ARM64_REG_SP }

// ValidateEndState requires EL0 without a pending software step.
func (Arm64) ValidateEndState(c cpu.Cpu) error {
	pstate, err := c.RegRead(uc.ARM64_REG_PSTATE)
	if err != nil {
		return err
	}
	if pstate&arm64.PstateELMask != 0 {
		return errors.Errorf("snippet left EL0, pstate %#x", pstate)
	}
	if pstate&arm64.PstateSS != 0 {
		return errors.New("software step bit is set")
	}
	return nil
}
