package x86_64

import (
	"github.com/snaptrace/snaptrace/go/models"
)

type GRegs struct {
	R8, R9, R10, R11, R12, R13, R14, R15   uint64
	Rdi, Rsi, Rbp, Rbx, Rdx, Rax, Rcx, Rsp uint64
	Rip, Eflags                            uint64
	Cs, Gs, Fs, Ss, Ds, Es                 uint64
	FsBase, GsBase                         uint64
}

// FPRegs uses the 512 byte fxsave layout.
type FPRegs struct {
	Fcw       uint16
	Fsw       uint16
	Ftw       uint8
	Reserved1 uint8
	Fop       uint16
	Rip       uint64
	Rdp       uint64
	Mxcsr     uint32
	MxcsrMask uint32
	// st0-st7, 16 bytes each
	St [128]byte
	// xmm0-xmm15
	Xmm      [256]byte
	Reserved [96]byte
}

const FPRegsSize = 512

func (f *FPRegs) XMM(i int) []byte { return f.Xmm[i*16 : i*16+16] }
func (f *FPRegs) ST(i int) []byte  { return f.St[i*16 : i*16+10] }

type UContext struct {
	GRegs  GRegs
	FPRegs FPRegs
}

func (u *UContext) PC() uint64 { return u.GRegs.Rip }
func (u *UContext) SP() uint64 { return u.GRegs.Rsp }

// Reg returns a pointer to the named general purpose register, or nil.
func (g *GRegs) Reg(name string) *uint64 {
	switch name {
	case "rax":
		return &g.Rax
	case "rbx":
		return &g.Rbx
	case "rcx":
		return &g.Rcx
	case "rdx":
		return &g.Rdx
	case "rsi":
		return &g.Rsi
	case "rdi":
		return &g.Rdi
	case "rbp":
		return &g.Rbp
	case "rsp":
		return &g.Rsp
	case "r8":
		return &g.R8
	case "r9":
		return &g.R9
	case "r10":
		return &g.R10
	case "r11":
		return &g.R11
	case "r12":
		return &g.R12
	case "r13":
		return &g.R13
	case "r14":
		return &g.R14
	case "r15":
		return &g.R15
	case "rip":
		return &g.Rip
	case "eflags":
		return &g.Eflags
	case "cs":
		return &g.Cs
	case "ss":
		return &g.Ss
	case "ds":
		return &g.Ds
	case "es":
		return &g.Es
	case "fs":
		return &g.Fs
	case "gs":
		return &g.Gs
	case "fs_base":
		return &g.FsBase
	case "gs_base":
		return &g.GsBase
	}
	return nil
}

// RegVals lists Arch.Regs with their values.
func (u *UContext) RegVals() []models.RegVal {
	ret := make([]models.RegVal, 0, len(Arch.Regs))
	for _, name := range Arch.Regs {
		ret = append(ret, models.RegVal{Reg: models.Reg{Name: name}, Val: *u.GRegs.Reg(name)})
	}
	return ret
}

// user mode selectors of the x86_64 Linux ABI
const (
	UserCS = 0x33
	UserSS = 0x2b
)

const (
	EflagsTF       = 1 << 8
	eflagsIF       = 1 << 9
	eflagsReserved = 1 << 1
)

// InitialUContext is the state every snippet starts from: zeroed registers,
// the stack at the top of data1 and default x87/SSE control words.
func InitialUContext(fc models.FuzzingConfig, pc uint64) *UContext {
	u := &UContext{}
	u.GRegs.Rip = pc
	u.GRegs.Rsp = fc.StackTop()
	u.GRegs.Eflags = eflagsIF | eflagsReserved
	u.GRegs.Cs = UserCS
	u.GRegs.Ss = UserSS
	u.FPRegs.Fcw = 0x37f
	u.FPRegs.Mxcsr = 0x1f80
	u.FPRegs.MxcsrMask = 0xffff
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
