// Package emu runs snippets on an emulated CPU.
package emu

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/snaptrace/snaptrace/go/models"
	"github.com/snaptrace/snaptrace/go/models/cpu"
	"github.com/snaptrace/snaptrace/go/snap"
)

// DefaultTimeout bounds a single Run in wall clock time. The engine can hang
// on some inputs, and this is far above what any legitimate snippet needs.
const DefaultTimeout = time.Second

// Tracer is a models.Tracer over any cpu.Cpu.
type Tracer[U, E any] struct {
	models.Callbacks[U, E]

	Timeout time.Duration

	ops Ops[U, E]
	cpu cpu.Cpu
	log *logrus.Entry

	code       models.MemoryRange
	start, end uint64
	hook       cpu.Hook

	numInsns, maxInsns uint64
	stopped            bool
}

var _ models.Tracer[struct{}, struct{}] = (*Tracer[struct{}, struct{}])(nil)

func New[U, E any](ops Ops[U, E]) *Tracer[U, E] {
	return &Tracer[U, E]{
		Timeout: DefaultTimeout,
		ops:     ops,
		log:     logrus.WithFields(logrus.Fields{"tracer": "emu", "arch": ops.Arch().ID}),
	}
}

func (t *Tracer[U, E]) InitSnippet(insns []byte, cfg models.TracerConfig, fc models.FuzzingConfig) error {
	if t.cpu != nil {
		panic("InitSnippet called twice")
	}
	s, err := snap.InstructionsToSnapshot(t.ops.Arch(), insns, fc)
	if err != nil {
		return err
	}
	u, err := t.ops.UnpackRegisters(s.Registers)
	if err != nil {
		panic("failed to unpack snapshot registers: " + err.Error())
	}

	c, err := t.ops.NewCpu(cfg)
	if err != nil {
		return models.WrapError(models.KindSetup, err, "failed to create cpu")
	}
	t.cpu = c
	for _, r := range s.Mapped.Regions() {
		if err := c.MemMapProt(r.Start, r.Limit-r.Start, r.Perms.Prot()); err != nil {
			return models.WrapError(models.KindSetup, err, "mapping "+r.String()+" failed")
		}
	}
	for _, m := range s.Memory {
		if err := c.MemWrite(m.Start, m.Data); err != nil {
			return models.WrapError(models.KindSetup, err, "failed to write snapshot memory")
		}
	}
	if err := t.ops.SetRegisters(c, u); err != nil {
		return models.WrapError(models.KindSetup, err, "failed to set initial registers")
	}

	t.code = fc.Code
	t.start = s.Memory[0].Start
	t.end = s.EndAddress
	// begin > end hooks every address
	t.hook, err = c.HookAdd(cpu.HOOK_CODE, t.onCode, 1, 0)
	if err != nil {
		return models.WrapError(models.KindSetup, err, "failed to add code hook")
	}
	t.log.Debugf("snippet of %d bytes at %#x", len(insns), t.start)
	return nil
}

func (t *Tracer[U, E]) onCode(_ cpu.Cpu, addr uint64, size uint32) {
	if t.numInsns >= t.maxInsns {
		// the engine may not honor the first stop, so keep asking and
		// keep callbacks quiet as if the limit were exact
		t.Stop()
	} else if !t.stopped {
		t.Fire(t.BeforeInstruction, t)
	}
	t.numInsns++
}

func (t *Tracer[U, E]) Run(maxInsns uint64) error {
	t.numInsns, t.maxInsns, t.stopped = 0, maxInsns, false

	t.Fire(t.BeforeExecution, t)
	err := t.cpu.StartWithTimeout(t.start, t.end, t.Timeout)
	t.Fire(t.AfterExecution, t)
	t.log.Debugf("executed %d instructions", t.numInsns)

	if err != nil {
		var exc *cpu.Exception
		if errors.As(err, &exc) {
			return models.WrapError(models.KindFault, err, "snippet faulted")
		}
		return models.WrapError(models.KindEngine, err, "cpu.Start() failed")
	}
	if t.numInsns > t.maxInsns {
		return models.NewError(models.KindExecutionLimit, models.ErrTooManyInstructions)
	}
	timedOut, err := t.cpu.TimedOut()
	if err != nil {
		return models.WrapError(models.KindEngine, err, "failed to query timeout")
	}
	if timedOut {
		return models.NewError(models.KindTimeout, models.ErrTimedOut)
	}
	pc, err := t.GetInstructionPointer()
	if err != nil {
		return models.WrapError(models.KindEngine, err, "failed to read pc")
	}
	if pc != t.end {
		return models.NewError(models.KindExecutionLimit, models.ErrDidNotReachEnd)
	}
	if err := t.ops.ValidateEndState(t.cpu); err != nil {
		return models.WrapError(models.KindIllegalEndState, err, "illegal end state")
	}
	return nil
}

func (t *Tracer[U, E]) Stop() {
	if t.cpu != nil {
		t.cpu.Stop()
	}
	t.stopped = true
}

func (t *Tracer[U, E]) GetInstructionPointer() (uint64, error) {
	return t.cpu.RegRead(t.ops.PCReg())
}

func (t *Tracer[U, E]) SetInstructionPointer(addr uint64) error {
	return t.cpu.RegWrite(t.ops.PCReg(), addr)
}

func (t *Tracer[U, E]) GetStackPointer() (uint64, error) {
	return t.cpu.RegRead(t.ops.SPReg())
}

func (t *Tracer[U, E]) SetRegisters(u *U) error {
	return t.ops.SetRegisters(t.cpu, u)
}

func (t *Tracer[U, E]) GetRegisters(u *U, eregs *E) error {
	return t.ops.GetRegisters(t.cpu, u, eregs)
}

func (t *Tracer[U, E]) ReadMemory(addr uint64, p []byte) error {
	return errors.Wrapf(t.cpu.MemReadInto(p, addr), "failed to read %d bytes at %#x", len(p), addr)
}

func (t *Tracer[U, E]) regions() ([]models.MappedRegion, error) {
	regions, err := t.cpu.MemRegions()
	if err != nil {
		return nil, errors.Wrap(err, "cpu.MemRegions() failed")
	}
	ret := make([]models.MappedRegion, len(regions))
	for i, r := range regions {
		ret[i] = models.MappedRegion{Start: r.Addr, Limit: r.Addr + r.Size, Perms: models.MemoryPerms(r.Prot)}
	}
	return ret, nil
}

func (t *Tracer[U, E]) PartialChecksumOfMutableMemory() (uint32, error) {
	regions, err := t.regions()
	if err != nil {
		return 0, err
	}
	return models.ChecksumMutableMemory(regions, t.ops.Arch().PageSize, func(addr uint64, p []byte) error {
		return t.cpu.MemReadInto(p, addr)
	})
}

func (t *Tracer[U, E]) IterateMappedMemory(fn func(start, limit uint64, perms models.MemoryPerms)) {
	regions, err := t.regions()
	if err != nil {
		t.log.WithError(err).Warn("cannot list mapped memory")
		return
	}
	for _, r := range regions {
		fn(r.Start, r.Limit, r.Perms)
	}
}

// InstructionIsInRange catches instructions that dangle past the end of the
// snippet into the trap padding.
func (t *Tracer[U, E]) InstructionIsInRange(addr, size uint64) bool {
	return addr >= t.start && addr <= t.end && size <= t.end-addr
}

func (t *Tracer[U, E]) IsInsideCode(addr uint64) bool {
	return t.code.Contains(addr)
}

// CodeStart is where the snippet was placed.
func (t *Tracer[U, E]) CodeStart() uint64 {
	return t.start
}

// Cpu exposes the engine for architecture specific callers.
func (t *Tracer[U, E]) Cpu() cpu.Cpu {
	return t.cpu
}

func (t *Tracer[U, E]) Close() error {
	if t.cpu == nil {
		return nil
	}
	if t.hook != nil {
		t.cpu.HookDel(t.hook)
	}
	err := t.cpu.Close()
	t.cpu = nil
	return err
}
