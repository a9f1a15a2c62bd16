package arm64

import (
	"strconv"
	"strings"

	"github.com/snaptrace/snaptrace/go/models"
)

type GRegs struct {
	X       [31]uint64
	Sp      uint64
	Pc      uint64
	Pstate  uint64
	Tpidr   uint64
	Tpidrro uint64
}

type FPRegs struct {
	// v0-v31, 16 bytes each
	V    [512]byte
	Fpsr uint32
	Fpcr uint32
}

func (f *FPRegs) Q(i int) []byte { return f.V[i*16 : i*16+16] }

type UContext struct {
	GRegs  GRegs
	FPRegs FPRegs
}

func (u *UContext) PC() uint64 { return u.GRegs.Pc }
func (u *UContext) SP() uint64 { return u.GRegs.Sp }

// Reg returns a pointer to the named general purpose register, or nil.
func (g *GRegs) Reg(name string) *uint64 {
	switch name {
	case "sp":
		return &g.Sp
	case "pc":
		return &g.Pc
	case "pstate":
		return &g.Pstate
	case "tpidr":
		return &g.Tpidr
	case "tpidrro":
		return &g.Tpidrro
	case "fp":
		return &g.X[29]
	case "lr":
		return &g.X[30]
	}
	if strings.HasPrefix(name, "x") {
		if n, err := strconv.Atoi(name[1:]); err == nil && n >= 0 && n < len(g.X) {
			return &g.X[n]
		}
	}
	return nil
}

func (u *UContext) RegVals() []models.RegVal {
	ret := make([]models.RegVal, 0, len(Arch.Regs))
	for _, name := range Arch.Regs {
		ret = append(ret, models.RegVal{Reg: models.Reg{Name: name}, Val: *u.GRegs.Reg(name)})
	}
	return ret
}

const (
	// exception level bits of PSTATE
	PstateELMask = 0xc
	// software step
	PstateSS = 1 << 21
)

// InitialUContext zeroes everything except pc and sp. EL0, all interrupts unmasked.
func InitialUContext(fc models.FuzzingConfig, pc uint64) *UContext {
	u := &UContext{}
	u.GRegs.Pc = pc
	u.GRegs.Sp = fc.StackTop()
	return u
}

func PackRegisters(u *UContext) (models.SnapshotRegisters, error) {
	gregs, err := models.PackLE(&u.GRegs)
	if err != nil {
		return models.SnapshotRegisters{}, err
	}
	fpregs, err := models.PackLE(&u.FPRegs)
	if err != nil {
		return models.SnapshotRegisters{}, err
	}
	return models.SnapshotRegisters{GRegs: gregs, FPRegs: fpregs}, nil
}

func UnpackRegisters(regs models.SnapshotRegisters) (*UContext, error) {
	u := &UContext{}
	if err := models.UnpackLE(regs.GRegs, &u.GRegs); err != nil {
		return nil, err
	}
	if err := models.UnpackLE(regs.FPRegs, &u.FPRegs); err != nil {
		return nil, err
	}
	return u, nil
}
