package native

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/snaptrace/snaptrace/go/arch/x86_64"
	"github.com/snaptrace/snaptrace/go/models"
)

// user_regs_struct
type x86UserRegs struct {
	R15, R14, R13, R12, Rbp, Rbx, R11, R10 uint64
	R9, R8, Rax, Rcx, Rdx, Rsi, Rdi        uint64
	OrigRax                                uint64
	Rip, Cs, Eflags, Rsp, Ss               uint64
	FsBase, GsBase                         uint64
	Ds, Es, Fs, Gs                         uint64
}

// XSAVE area component offsets, standard format
const (
	xsaveLegacyXmm = 160
	xsaveHeader    = 512
	xsaveYmmHi128  = 576
	xsaveOpmask    = 1088
	xsaveZmmHi256  = 1152
	xsaveHi16Zmm   = 1664
	xsaveAreaSize  = 2688
)

// XSTATE_BV bits
const (
	xfeatureYmm     = 1 << 2
	xfeatureOpmask  = 1 << 5
	xfeatureZmmHi   = 1 << 6
	xfeatureHi16Zmm = 1 << 7
)

// X86_64 traces x86_64 snippets on an x86_64 host.
type X86_64 struct{}

func (X86_64) Arch() *models.Arch  { return x86_64.Arch }
func (X86_64) SyscallInsn() []byte { return x86_64.SyscallInsn }

func (X86_64) UnpackRegisters(regs models.SnapshotRegisters) (*x86_64.UContext, error) {
	return x86_64.UnpackRegisters(regs)
}

func (X86_64) GetRegisters(rs Regsets, u *x86_64.UContext) error {
	buf := make([]byte, 27*8)
	if _, err := rs.GetRegset(ntPrstatus, buf); err != nil {
		return errors.Wrap(err, "failed to read general registers")
	}
	var k x86UserRegs
	if err := models.UnpackLE(buf, &k); err != nil {
		return err
	}
	u.GRegs = x86_64.GRegs{
		R8: k.R8, R9: k.R9, R10: k.R10, R11: k.R11,
		R12: k.R12, R13: k.R13, R14: k.R14, R15: k.R15,
		Rdi: k.Rdi, Rsi: k.Rsi, Rbp: k.Rbp, Rbx: k.Rbx,
		Rdx: k.Rdx, Rax: k.Rax, Rcx: k.Rcx, Rsp: k.Rsp,
		Rip: k.Rip, Eflags: k.Eflags,
		Cs: k.Cs, Gs: k.Gs, Fs: k.Fs, Ss: k.Ss, Ds: k.Ds, Es: k.Es,
		FsBase: k.FsBase, GsBase: k.GsBase,
	}
	fp := make([]byte, x86_64.FPRegsSize)
	if _, err := rs.GetRegset(ntPrfpreg, fp); err != nil {
		return errors.Wrap(err, "failed to read fp registers")
	}
	return models.UnpackLE(fp, &u.FPRegs)
}

func (X86_64) SetRegisters(rs Regsets, u *x86_64.UContext) error {
	g := &u.GRegs
	k := x86UserRegs{
		R15: g.R15, R14: g.R14, R13: g.R13, R12: g.R12,
		Rbp: g.Rbp, Rbx: g.Rbx, R11: g.R11, R10: g.R10,
		R9: g.R9, R8: g.R8, Rax: g.Rax, Rcx: g.Rcx,
		Rdx: g.Rdx, Rsi: g.Rsi, Rdi: g.Rdi,
		Rip: g.Rip, Cs: g.Cs, Eflags: g.Eflags, Rsp: g.Rsp, Ss: g.Ss,
		FsBase: g.FsBase, GsBase: g.GsBase,
		Ds: g.Ds, Es: g.Es, Fs: g.Fs, Gs: g.Gs,
	}
	// no syscall restart
	k.OrigRax = ^uint64(0)
	buf, err := models.PackLE(&k)
	if err != nil {
		return err
	}
	if err := rs.SetRegset(ntPrstatus, buf); err != nil {
		return errors.Wrap(err, "failed to write general registers")
	}
	fp, err := models.PackLE(&u.FPRegs)
	if err != nil {
		return err
	}
	return errors.Wrap(rs.SetRegset(ntPrfpreg, fp), "failed to write fp registers")
}

func (X86_64) GetExtRegisters(rs Regsets, eregs *x86_64.RegisterGroupIOBuffer) error {
	*eregs = x86_64.RegisterGroupIOBuffer{Groups: eregs.Groups}
	if eregs.Groups.Empty() {
		return nil
	}
	xsave := make([]byte, xsaveAreaSize)
	n, err := rs.GetRegset(ntX86Xstate, xsave)
	if err != nil {
		// no XSAVE support, leave everything zero
		return nil
	}
	fillX86ERegs(xsave[:n], eregs)
	return nil
}

func fillX86ERegs(xsave []byte, eregs *x86_64.RegisterGroupIOBuffer) {
	if len(xsave) < xsaveHeader+8 {
		return
	}
	bv := binary.LittleEndian.Uint64(xsave[xsaveHeader:])
	has := func(feature uint64, end int) bool {
		return bv&feature != 0 && len(xsave) >= end
	}
	// the low halves live in the legacy fxsave area
	var ymm [x86_64.NumYmm * x86_64.YmmSize]byte
	for i := 0; i < x86_64.NumYmm; i++ {
		copy(ymm[i*32:], xsave[xsaveLegacyXmm+i*16:xsaveLegacyXmm+i*16+16])
		if has(xfeatureYmm, xsaveYmmHi128+256) {
			copy(ymm[i*32+16:], xsave[xsaveYmmHi128+i*16:xsaveYmmHi128+i*16+16])
		}
	}
	if eregs.Groups.AVX {
		eregs.Ymm = ymm
	}
	if !eregs.Groups.AVX512 {
		return
	}
	for i := 0; i < x86_64.NumYmm; i++ {
		zmm := eregs.ZMM(i)
		copy(zmm, ymm[i*32:i*32+32])
		if has(xfeatureZmmHi, xsaveHi16Zmm) {
			copy(zmm[32:], xsave[xsaveZmmHi256+i*32:xsaveZmmHi256+i*32+32])
		}
	}
	if has(xfeatureHi16Zmm, xsaveAreaSize) {
		for i := x86_64.NumYmm; i < x86_64.NumZmm; i++ {
			off := xsaveHi16Zmm + (i-x86_64.NumYmm)*64
			copy(eregs.ZMM(i), xsave[off:off+64])
		}
	}
	if has(xfeatureOpmask, xsaveOpmask+64) {
		for i := range eregs.Opmask {
			eregs.Opmask[i] = binary.LittleEndian.Uint64(xsave[xsaveOpmask+i*8:])
		}
	}
}

func (X86_64) PC(u *x86_64.UContext) uint64        { return u.GRegs.Rip }
func (X86_64) SetPC(u *x86_64.UContext, pc uint64) { u.GRegs.Rip = pc }
func (X86_64) SP(u *x86_64.UContext) uint64        { return u.GRegs.Rsp }

func (X86_64) SetSyscall(u *x86_64.UContext, nr uint64, args [6]uint64) {
	u.GRegs.Rax = nr
	for i, name := range x86_64.SyscallArgs {
		*u.GRegs.Reg(name) = args[i]
	}
}

func (X86_64) SyscallResult(u *x86_64.UContext) uint64 { return u.GRegs.Rax }

func (X86_64) ValidateEndState(u *x86_64.UContext) error {
	if u.GRegs.Eflags&x86_64.EflagsTF != 0 {
		return errors.New("trap flag is set")
	}
	return nil
}
