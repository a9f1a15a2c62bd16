package cmd

import (
	"fmt"
	"io"

	"github.com/mgutz/ansi"

	"github.com/snaptrace/snaptrace/go/analysis"
	"github.com/snaptrace/snaptrace/go/models"
)

var (
	colorBranch   = ansi.ColorCode("yellow")
	colorCritical = ansi.ColorCode("red+b")
)

func paint(s, code string, color bool) string {
	if !color {
		return s
	}
	return code + s + ansi.Reset
}

// Report formats traces for humans.
type Report struct {
	W     io.Writer
	Color bool

	// list changed registers under each instruction
	Regs bool

	// show the per-instruction fault injection verdict
	FaultInjection bool
}

func (r *Report) line(format string, args ...interface{}) {
	fmt.Fprintf(r.W, format+"\n", args...)
}

// PrintTrace writes one line per executed instruction. Code addresses are
// assumed to fit in 32 bits.
func PrintTrace[U comparable, E, X any](r *Report, a *analysis.Arch[U, E, X], t *analysis.Trace[U, X]) {
	expected := t.Entry
	lastValid := false
	t.ForEach(func(i int, info *analysis.InstructionInfo[X], after *X) {
		if lastValid && info.Address != expected {
			r.line("    %s", paint("branch", colorBranch, r.Color))
		}
		meta := fmt.Sprintf("%04d addr=%08x offset=%04d size=%02d diff=%03d",
			i, info.Address, info.Address-t.Entry, info.Size, analysis.StepDiff(a, info, after))
		if r.FaultInjection {
			crit := fmt.Sprintf("crit=%t", info.Critical)
			if info.Critical {
				crit = paint(crit, colorCritical, r.Color)
			}
			meta += " " + crit
		}
		r.line("%s    %s %s", meta, info.Mnemonic, info.OpStr)
		if r.Regs {
			printChanges(r, a, &info.Before, after)
		}
		lastValid = info.Valid()
		expected = info.Address + uint64(info.Size)
	})
}

// printChanges lists the general registers an instruction changed, other
// than the instruction pointer.
func printChanges[U comparable, E, X any](r *Report, a *analysis.Arch[U, E, X], before, after *X) {
	b, c := *before, *after
	a.ClearPC(&b)
	a.ClearPC(&c)
	cs := models.DiffRegs(a.RegVals(&b), a.RegVals(&c), a.Bits)
	changed := &models.Changes{Width: cs.Width, Changes: cs.Changed()}
	fmt.Fprint(r.W, changed.String(4, r.Color))
}

// PrintStats writes the per-op toggle summary.
func PrintStats[U comparable, E, X any](r *Report, a *analysis.Arch[U, E, X], t *analysis.Trace[U, X]) {
	stats := analysis.GatherStats(a, t)
	header := fmt.Sprintf("%-12s %-5s %-5s %-5s", "op", "exec", "0=>1", "1=>0")
	if r.FaultInjection {
		header += fmt.Sprintf(" %-5s", "crit%")
	}
	r.line("")
	r.line("%s", header)
	r.line("")
	printOp := func(op *analysis.OpStats[X]) {
		text := fmt.Sprintf("%-12s %5d %5d %5d", op.Name, op.Count, a.PopCount(&op.ZeroOne), a.PopCount(&op.OneZero))
		if r.FaultInjection {
			text += fmt.Sprintf(" %5d", op.CriticalPercent())
		}
		r.line("%s", text)
	}
	for _, op := range stats.Ops {
		printOp(op)
	}
	r.line("")
	printOp(&stats.Total)
}

// PrintDistance writes the hamming distance between the first and last
// register context.
func PrintDistance[U comparable, E, X any](r *Report, a *analysis.Arch[U, E, X], t *analysis.Trace[U, X]) {
	r.line("")
	r.line("Final register hamming distance: %d", analysis.Distance(a, t))
}

func PrintFaultInjection(r *Report, res analysis.FaultInjectionResult) {
	r.line("Detected %d/%d faults - %d%% sensitive", res.FaultDetectionCount, res.FaultInjectionCount, int(100*res.Sensitivity))
}

func PrintEndState(r *Report, checksum uint32, agree bool) {
	verdict := "matches the trace"
	if !agree {
		verdict = paint("differs from the trace", colorCritical, r.Color)
	}
	r.line("End state: memory checksum %08x, %s", checksum, verdict)
}
