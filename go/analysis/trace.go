package analysis

import (
	"github.com/pkg/errors"

	"github.com/snaptrace/snaptrace/go/models"
)

// maxInsnSize covers the longest x86 encoding.
const maxInsnSize = 16

// Disassembler decodes instructions starting at addr. It is satisfied by
// cpu.Capstr.
type Disassembler interface {
	Dis(mem []byte, addr uint64) ([]models.Ins, error)
}

type InstructionInfo[X any] struct {
	Address  uint64
	Size     int
	Bytes    []byte
	Mnemonic string
	OpStr    string

	// Before is the register context on entry to the instruction.
	Before X

	// Critical is set by fault injection when skipping the instruction
	// changed the outcome.
	Critical bool
}

// Valid reports whether the instruction could be decoded.
func (i *InstructionInfo[X]) Valid() bool {
	return i.Size > 0
}

// Trace is the dynamic instruction stream of one run.
type Trace[U comparable, X any] struct {
	Entry           uint64
	MaxInstructions uint64

	Insns []InstructionInfo[X]

	// end state as seen by the after execution callback
	Final          X
	FinalRegs      U
	MemoryChecksum uint32
}

func (t *Trace[U, X]) NumInstructions() int {
	return len(t.Insns)
}

// First is the context before the first instruction, or the final context
// of an empty trace.
func (t *Trace[U, X]) First() *X {
	if len(t.Insns) == 0 {
		return &t.Final
	}
	return &t.Insns[0].Before
}

// ForEach calls fn with every instruction and the context it left behind.
func (t *Trace[U, X]) ForEach(fn func(i int, info *InstructionInfo[X], after *X)) {
	for i := range t.Insns {
		after := &t.Final
		if i+1 < len(t.Insns) {
			after = &t.Insns[i+1].Before
		}
		fn(i, &t.Insns[i], after)
	}
}

// CaptureTrace runs an initialized tracer and records every instruction it
// executes. The partial trace is returned together with any run error.
func CaptureTrace[U comparable, E, X any](a *Arch[U, E, X], t models.Tracer[U, E], dis Disassembler, maxInsns uint64) (*Trace[U, X], error) {
	trace := &Trace[U, X]{MaxInstructions: maxInsns}
	var cbErr error
	t.SetBeforeExecutionCallback(func(c models.TracerControl[U, E]) {
		if pc, err := c.GetInstructionPointer(); err == nil {
			trace.Entry = pc
		} else {
			cbErr = err
		}
	})
	t.SetBeforeInstructionCallback(func(c models.TracerControl[U, E]) {
		if cbErr != nil {
			return
		}
		info, err := captureInstruction(a, c, dis)
		if err != nil {
			cbErr = err
			c.Stop()
			return
		}
		trace.Insns = append(trace.Insns, info)
	})
	t.SetAfterExecutionCallback(func(c models.TracerControl[U, E]) {
		var u U
		var e E
		if err := c.GetRegisters(&u, &e); err != nil {
			cbErr = err
			return
		}
		trace.Final, trace.FinalRegs = a.Context(&u, &e), u
		sum, err := c.PartialChecksumOfMutableMemory()
		if err != nil {
			cbErr = err
		}
		trace.MemoryChecksum = sum
	})
	err := t.Run(maxInsns)
	if cbErr != nil {
		return trace, errors.Wrap(cbErr, "trace capture failed")
	}
	return trace, err
}

func captureInstruction[U comparable, E, X any](a *Arch[U, E, X], c models.TracerControl[U, E], dis Disassembler) (InstructionInfo[X], error) {
	var info InstructionInfo[X]
	var u U
	var e E
	if err := c.GetRegisters(&u, &e); err != nil {
		return info, err
	}
	pc, err := c.GetInstructionPointer()
	if err != nil {
		return info, err
	}
	info.Address, info.Before = pc, a.Context(&u, &e)

	n := a.PageUp(pc+1) - pc
	if n > maxInsnSize {
		n = maxInsnSize
	}
	mem := make([]byte, n)
	if err := c.ReadMemory(pc, mem); err != nil {
		return info, err
	}
	insns, err := dis.Dis(mem, pc)
	if err != nil || len(insns) == 0 {
		info.Mnemonic = "(bad)"
		return info, nil
	}
	info.Size = models.InsSize(insns)
	info.Bytes = mem[:info.Size]
	info.Mnemonic, info.OpStr = insns[0].Mnemonic(), insns[0].OpStr()
	return info, nil
}
