package native

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/snaptrace/snaptrace/go/arch/arm64"
	"github.com/snaptrace/snaptrace/go/models"
)

// user_pt_regs
type arm64UserRegs struct {
	Regs   [31]uint64
	Sp     uint64
	Pc     uint64
	Pstate uint64
}

// user_fpsimd_state
type arm64UserFPSIMD struct {
	V        [512]byte
	Fpsr     uint32
	Fpcr     uint32
	Reserved [2]uint32
}

// user_sve_header, followed by the register payload
const (
	sveHeaderSize = 16
	sveFlagSVE    = 1
	sveMaxSize    = sveHeaderSize + arm64.SveNumZReg*arm64.SveZRegMaxSize +
		arm64.SveNumPReg*arm64.SvePRegMaxSize + arm64.SveFfrMaxSize
)

// Arm64 traces arm64 snippets on an arm64 host.
type Arm64 struct{}

func (Arm64) Arch() *models.Arch  { return arm64.Arch }
func (Arm64) SyscallInsn() []byte { return arm64.SyscallInsn }

func (Arm64) UnpackRegisters(regs models.SnapshotRegisters) (*arm64.UContext, error) {
	return arm64.UnpackRegisters(regs)
}

func (Arm64) GetRegisters(rs Regsets, u *arm64.UContext) error {
	buf := make([]byte, 34*8)
	if _, err := rs.GetRegset(ntPrstatus, buf); err != nil {
		return errors.Wrap(err, "failed to read general registers")
	}
	var k arm64UserRegs
	if err := models.UnpackLE(buf, &k); err != nil {
		return err
	}
	u.GRegs = arm64.GRegs{X: k.Regs, Sp: k.Sp, Pc: k.Pc, Pstate: k.Pstate}
	tls := make([]byte, 16)
	if n, err := rs.GetRegset(ntArmTLS, tls); err == nil && n >= 8 {
		u.GRegs.Tpidr = binary.LittleEndian.Uint64(tls)
	}

	fp := make([]byte, 528)
	if _, err := rs.GetRegset(ntPrfpreg, fp); err != nil {
		return errors.Wrap(err, "failed to read fp registers")
	}
	var kfp arm64UserFPSIMD
	if err := models.UnpackLE(fp, &kfp); err != nil {
		return err
	}
	u.FPRegs = arm64.FPRegs{V: kfp.V, Fpsr: kfp.Fpsr, Fpcr: kfp.Fpcr}
	return nil
}

// SetRegisters cannot write tpidrro, which is read only at EL0.
func (Arm64) SetRegisters(rs Regsets, u *arm64.UContext) error {
	k := arm64UserRegs{Regs: u.GRegs.X, Sp: u.GRegs.Sp, Pc: u.GRegs.Pc, Pstate: u.GRegs.Pstate}
	buf, err := models.PackLE(&k)
	if err != nil {
		return err
	}
	if err := rs.SetRegset(ntPrstatus, buf); err != nil {
		return errors.Wrap(err, "failed to write general registers")
	}
	tls := make([]byte, 8)
	binary.LittleEndian.PutUint64(tls, u.GRegs.Tpidr)
	if err := rs.SetRegset(ntArmTLS, tls); err != nil {
		return errors.Wrap(err, "failed to write tpidr")
	}
	fp, err := models.PackLE(&arm64UserFPSIMD{V: u.FPRegs.V, Fpsr: u.FPRegs.Fpsr, Fpcr: u.FPRegs.Fpcr})
	if err != nil {
		return err
	}
	return errors.Wrap(rs.SetRegset(ntPrfpreg, fp), "failed to write fp registers")
}

func (Arm64) GetExtRegisters(rs Regsets, eregs *arm64.RegisterGroupIOBuffer) error {
	*eregs = arm64.RegisterGroupIOBuffer{Groups: eregs.Groups}
	if eregs.Groups.Empty() {
		return nil
	}
	sve := make([]byte, sveMaxSize)
	n, err := rs.GetRegset(ntArmSVE, sve)
	if err != nil {
		// no SVE on this host
		return nil
	}
	fillSVE(sve[:n], eregs)
	return nil
}

func fillSVE(sve []byte, eregs *arm64.RegisterGroupIOBuffer) {
	if len(sve) < sveHeaderSize {
		return
	}
	vl := int(binary.LittleEndian.Uint16(sve[8:]))
	flags := binary.LittleEndian.Uint16(sve[12:])
	// only the requested width is meaningful, and an FPSIMD-format payload
	// means SVE state was never touched
	if vl != int(eregs.Groups.SVEVectorWidth) || flags&sveFlagSVE == 0 {
		return
	}
	zsize := arm64.ZActiveSize(vl)
	psize := arm64.PActiveSize(vl)
	ffrsize := arm64.FfrActiveSize(vl)
	payload := sve[sveHeaderSize:]
	if len(payload) < zsize+psize+ffrsize {
		return
	}
	copy(eregs.Z[:], payload[:zsize])
	copy(eregs.P[:], payload[zsize:zsize+psize])
	copy(eregs.Ffr[:], payload[zsize+psize:zsize+psize+ffrsize])
}

func (Arm64) PC(u *arm64.UContext) uint64        { return u.GRegs.Pc }
func (Arm64) SetPC(u *arm64.UContext, pc uint64) { u.GRegs.Pc = pc }
func (Arm64) SP(u *arm64.UContext) uint64        { return u.GRegs.Sp }

func (Arm64) SetSyscall(u *arm64.UContext, nr uint64, args [6]uint64) {
	u.GRegs.X[8] = nr
	copy(u.GRegs.X[:6], args[:])
}

func (Arm64) SyscallResult(u *arm64.UContext) uint64 { return u.GRegs.X[0] }

// ValidateEndState only checks the exception level. PSTATE.SS belongs to
// the kernel while single stepping.
func (Arm64) ValidateEndState(u *arm64.UContext) error {
	if u.GRegs.Pstate&arm64.PstateELMask != 0 {
		return errors.Errorf("snippet left EL0, pstate %#x", u.GRegs.Pstate)
	}
	return nil
}
