package arm64

import (
	"github.com/snaptrace/snaptrace/go/models"
)

// ExtUContext is a UContext plus the SVE registers.
type ExtUContext struct {
	UContext
	ERegs RegisterGroupIOBuffer
}

func (e *ExtUContext) HasERegs() bool {
	return !e.ERegs.Groups.Empty()
}

func uctxBytes(u *UContext) (gregs, fpregs []byte) {
	gregs, err := models.PackLE(&u.GRegs)
	if err != nil {
		panic(err)
	}
	fpregs, err = models.PackLE(&u.FPRegs)
	if err != nil {
		panic(err)
	}
	return gregs, fpregs
}

func setUctxBytes(u *UContext, gregs, fpregs []byte) {
	if err := models.UnpackLE(gregs, &u.GRegs); err != nil {
		panic(err)
	}
	if err := models.UnpackLE(fpregs, &u.FPRegs); err != nil {
		panic(err)
	}
}

func checkGroups(a, b *ExtUContext) int {
	if a.ERegs.Groups != b.ERegs.Groups {
		panic("extension register groups differ")
	}
	return int(a.ERegs.Groups.SVEVectorWidth)
}

// BitDiff stores a^b in diff. Inactive SVE bytes of diff are left alone.
func BitDiff(a, b, diff *ExtUContext) {
	vl := checkGroups(a, b)
	ga, fa := uctxBytes(&a.UContext)
	gb, fb := uctxBytes(&b.UContext)
	models.BitDiff(ga, gb, ga)
	models.BitDiff(fa, fb, fa)
	setUctxBytes(&diff.UContext, ga, fa)

	diff.ERegs.Groups = a.ERegs.Groups
	if vl == 0 {
		return
	}
	z, p, f := ZActiveSize(vl), PActiveSize(vl), FfrActiveSize(vl)
	models.BitDiff(a.ERegs.Z[:z], b.ERegs.Z[:z], diff.ERegs.Z[:z])
	models.BitDiff(a.ERegs.P[:p], b.ERegs.P[:p], diff.ERegs.P[:p])
	models.BitDiff(a.ERegs.Ffr[:f], b.ERegs.Ffr[:f], diff.ERegs.Ffr[:f])
}

// AccumulateToggle records bits that flipped 0->1 in zeroOne and 1->0 in oneZero.
func AccumulateToggle(from, to, zeroOne, oneZero *ExtUContext) {
	vl := checkGroups(from, to)
	gf, ff := uctxBytes(&from.UContext)
	gt, ft := uctxBytes(&to.UContext)
	g01, f01 := uctxBytes(&zeroOne.UContext)
	g10, f10 := uctxBytes(&oneZero.UContext)
	models.AccumulateToggle(gf, gt, g01, g10)
	models.AccumulateToggle(ff, ft, f01, f10)
	setUctxBytes(&zeroOne.UContext, g01, f01)
	setUctxBytes(&oneZero.UContext, g10, f10)

	zeroOne.ERegs.Groups, oneZero.ERegs.Groups = from.ERegs.Groups, from.ERegs.Groups
	if vl == 0 {
		return
	}
	z, p, f := ZActiveSize(vl), PActiveSize(vl), FfrActiveSize(vl)
	models.AccumulateToggle(from.ERegs.Z[:z], to.ERegs.Z[:z], zeroOne.ERegs.Z[:z], oneZero.ERegs.Z[:z])
	models.AccumulateToggle(from.ERegs.P[:p], to.ERegs.P[:p], zeroOne.ERegs.P[:p], oneZero.ERegs.P[:p])
	models.AccumulateToggle(from.ERegs.Ffr[:f], to.ERegs.Ffr[:f], zeroOne.ERegs.Ffr[:f], oneZero.ERegs.Ffr[:f])
}

// PopCount counts set bits. The v registers alias the low half of z, so
// they are skipped when SVE is active.
func PopCount(e *ExtUContext) int {
	gregs, _ := uctxBytes(&e.UContext)
	n := models.PopCount(gregs)

	fp := e.FPRegs
	vl := int(e.ERegs.Groups.SVEVectorWidth)
	if vl != 0 {
		fp.V = [512]byte{}
	}
	_, fpregs := uctxBytes(&UContext{FPRegs: fp})
	n += models.PopCount(fpregs)

	if vl != 0 {
		n += models.PopCount(e.ERegs.Z[:ZActiveSize(vl)])
		n += models.PopCount(e.ERegs.P[:PActiveSize(vl)])
		n += models.PopCount(e.ERegs.Ffr[:FfrActiveSize(vl)])
	}
	return n
}
