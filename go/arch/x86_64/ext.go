package x86_64

import (
	"github.com/snaptrace/snaptrace/go/models"
)

// ExtUContext is a UContext plus the extension registers.
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

func checkGroups(a, b *ExtUContext) RegisterGroupSet {
	if a.ERegs.Groups != b.ERegs.Groups {
		panic("extension register groups differ")
	}
	return a.ERegs.Groups
}

// BitDiff stores a^b in diff. Inactive extension registers of diff are left alone.
func BitDiff(a, b, diff *ExtUContext) {
	groups := checkGroups(a, b)
	ga, fa := uctxBytes(&a.UContext)
	gb, fb := uctxBytes(&b.UContext)
	models.BitDiff(ga, gb, ga)
	models.BitDiff(fa, fb, fa)
	setUctxBytes(&diff.UContext, ga, fa)

	diff.ERegs.Groups = groups
	if groups.AVX {
		models.BitDiff(a.ERegs.Ymm[:], b.ERegs.Ymm[:], diff.ERegs.Ymm[:])
	}
	if groups.AVX512 {
		models.BitDiff(a.ERegs.Zmm[:], b.ERegs.Zmm[:], diff.ERegs.Zmm[:])
		for i := range diff.ERegs.Opmask {
			diff.ERegs.Opmask[i] = a.ERegs.Opmask[i] ^ b.ERegs.Opmask[i]
		}
	}
}

// AccumulateToggle records bits that flipped 0->1 in zeroOne and 1->0 in oneZero.
func AccumulateToggle(from, to, zeroOne, oneZero *ExtUContext) {
	groups := checkGroups(from, to)
	gf, ff := uctxBytes(&from.UContext)
	gt, ft := uctxBytes(&to.UContext)
	g01, f01 := uctxBytes(&zeroOne.UContext)
	g10, f10 := uctxBytes(&oneZero.UContext)
	models.AccumulateToggle(gf, gt, g01, g10)
	models.AccumulateToggle(ff, ft, f01, f10)
	setUctxBytes(&zeroOne.UContext, g01, f01)
	setUctxBytes(&oneZero.UContext, g10, f10)

	zeroOne.ERegs.Groups, oneZero.ERegs.Groups = groups, groups
	if groups.AVX {
		models.AccumulateToggle(from.ERegs.Ymm[:], to.ERegs.Ymm[:], zeroOne.ERegs.Ymm[:], oneZero.ERegs.Ymm[:])
	}
	if groups.AVX512 {
		models.AccumulateToggle(from.ERegs.Zmm[:], to.ERegs.Zmm[:], zeroOne.ERegs.Zmm[:], oneZero.ERegs.Zmm[:])
		for i := range from.ERegs.Opmask {
			f, t := from.ERegs.Opmask[i], to.ERegs.Opmask[i]
			zeroOne.ERegs.Opmask[i] |= ^f & t
			oneZero.ERegs.Opmask[i] |= f &^ t
		}
	}
}

// PopCount counts set bits. Registers that alias a wider active register
// (xmm under ymm, ymm under zmm) are only counted through the widest one.
func PopCount(e *ExtUContext) int {
	gregs, _ := uctxBytes(&e.UContext)
	n := models.PopCount(gregs)

	fp := e.FPRegs
	if e.HasERegs() {
		fp.Xmm = [256]byte{}
	}
	_, fpregs := uctxBytes(&UContext{FPRegs: fp})
	n += models.PopCount(fpregs)

	switch {
	case e.ERegs.Groups.AVX512:
		n += models.PopCount(e.ERegs.Zmm[:])
		n += models.PopCount64(e.ERegs.Opmask[:])
	case e.ERegs.Groups.AVX:
		n += models.PopCount(e.ERegs.Ymm[:])
	}
	return n
}
