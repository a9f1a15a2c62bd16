// Package analysis records execution traces of snippets and measures how
// sensitive their end state is to skipped instructions.
package analysis

import (
	"github.com/snaptrace/snaptrace/go/arch/arm64"
	"github.com/snaptrace/snaptrace/go/arch/x86_64"
	"github.com/snaptrace/snaptrace/go/models"
)

// Arch adapts one architecture's register context types to the analyses.
// U is the UContext, E the extension register buffer and X the combined
// context the bit statistics operate on.
type Arch[U comparable, E, X any] struct {
	*models.Arch

	Context  func(u *U, e *E) X
	UContext func(x *X) *U
	ClearPC  func(x *X)
	RegVals  func(x *X) []models.RegVal

	BitDiff          func(a, b, diff *X)
	AccumulateToggle func(from, to, zeroOne, oneZero *X)
	PopCount         func(x *X) int
}

var X86_64 = &Arch[x86_64.UContext, x86_64.RegisterGroupIOBuffer, x86_64.ExtUContext]{
	Arch: x86_64.Arch,
	Context: func(u *x86_64.UContext, e *x86_64.RegisterGroupIOBuffer) x86_64.ExtUContext {
		return x86_64.ExtUContext{UContext: *u, ERegs: *e}
	},
	UContext:         func(x *x86_64.ExtUContext) *x86_64.UContext { return &x.UContext },
	ClearPC:          func(x *x86_64.ExtUContext) { x.GRegs.Rip = 0 },
	RegVals:          func(x *x86_64.ExtUContext) []models.RegVal { return x.RegVals() },
	BitDiff:          x86_64.BitDiff,
	AccumulateToggle: x86_64.AccumulateToggle,
	PopCount:         x86_64.PopCount,
}

var Arm64 = &Arch[arm64.UContext, arm64.RegisterGroupIOBuffer, arm64.ExtUContext]{
	Arch: arm64.Arch,
	Context: func(u *arm64.UContext, e *arm64.RegisterGroupIOBuffer) arm64.ExtUContext {
		return arm64.ExtUContext{UContext: *u, ERegs: *e}
	},
	UContext:         func(x *arm64.ExtUContext) *arm64.UContext { return &x.UContext },
	ClearPC:          func(x *arm64.ExtUContext) { x.GRegs.Pc = 0 },
	RegVals:          func(x *arm64.ExtUContext) []models.RegVal { return x.RegVals() },
	BitDiff:          arm64.BitDiff,
	AccumulateToggle: arm64.AccumulateToggle,
	PopCount:         arm64.PopCount,
}
