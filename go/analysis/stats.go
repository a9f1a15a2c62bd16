package analysis

import (
	"sort"

	"github.com/lunixbochs/fvbommel-util/sortorder"
)

// OpStats summarizes the register bits one kind of instruction toggled.
type OpStats[X any] struct {
	Name     string
	ZeroOne  X
	OneZero  X
	Count    int
	Critical int
}

func addOp[U comparable, E, X any](a *Arch[U, E, X], o *OpStats[X], info *InstructionInfo[X], after *X) {
	a.AccumulateToggle(&info.Before, after, &o.ZeroOne, &o.OneZero)
	o.Count++
	if info.Critical {
		o.Critical++
	}
}

// CriticalPercent is the share of executions whose skip was detected.
func (o *OpStats[X]) CriticalPercent() int {
	if o.Count == 0 {
		return 0
	}
	return 100 * o.Critical / o.Count
}

// TraceStats groups a trace by mnemonic. Ops are in natural name order and
// Total covers every instruction, including undecodable ones.
type TraceStats[X any] struct {
	Ops   []*OpStats[X]
	Total OpStats[X]
}

func GatherStats[U comparable, E, X any](a *Arch[U, E, X], t *Trace[U, X]) *TraceStats[X] {
	stats := &TraceStats[X]{Total: OpStats[X]{Name: "total"}}
	byName := make(map[string]*OpStats[X])
	t.ForEach(func(i int, info *InstructionInfo[X], after *X) {
		if info.Valid() {
			op, ok := byName[info.Mnemonic]
			if !ok {
				op = &OpStats[X]{Name: info.Mnemonic}
				byName[info.Mnemonic] = op
				stats.Ops = append(stats.Ops, op)
			}
			addOp(a, op, info, after)
		}
		addOp(a, &stats.Total, info, after)
	})
	for _, op := range append(stats.Ops, &stats.Total) {
		a.ClearPC(&op.ZeroOne)
		a.ClearPC(&op.OneZero)
	}
	sort.Slice(stats.Ops, func(i, j int) bool { return sortorder.NaturalLess(stats.Ops[i].Name, stats.Ops[j].Name) })
	return stats
}

// StepDiff is the number of register bits instruction info changed, not
// counting the instruction pointer.
func StepDiff[U comparable, E, X any](a *Arch[U, E, X], info *InstructionInfo[X], after *X) int {
	var diff X
	a.BitDiff(&info.Before, after, &diff)
	a.ClearPC(&diff)
	return a.PopCount(&diff)
}

// Distance is the register hamming distance between the first and last
// context of a trace.
func Distance[U comparable, E, X any](a *Arch[U, E, X], t *Trace[U, X]) int {
	var diff X
	a.BitDiff(t.First(), &t.Final, &diff)
	return a.PopCount(&diff)
}
