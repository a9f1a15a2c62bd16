// Package native runs snippets on the host CPU in a ptrace-controlled
// helper process, one instruction at a time.
package native

import (
	"runtime"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/snaptrace/snaptrace/go/models"
	"github.com/snaptrace/snaptrace/go/snap"
)

type state int

const (
	stateInit state = iota
	stateReady
	statePreTracing
	stateTracing
	stateFinished
)

var stateNames = []string{"init", "ready", "pre-tracing", "tracing", "finished"}

func (s state) String() string {
	return stateNames[s]
}

// Tracer is a models.Tracer backed by real hardware. It can only trace
// snippets for the host architecture. The goroutine that calls InitSnippet
// stays locked to its OS thread until Close, and every other method must be
// called from that goroutine.
type Tracer[U, E any] struct {
	models.Callbacks[U, E]

	ops  Ops[U, E]
	proc *process
	log  *logrus.Entry

	state      state
	code       models.MemoryRange
	mapped     models.MappedMemoryMap
	start, end uint64

	// register cache, dropped on every resume and register write
	regs  U
	valid bool

	stopped bool
	locked  bool
}

var _ models.Tracer[struct{}, struct{}] = (*Tracer[struct{}, struct{}])(nil)

func New[U, E any](ops Ops[U, E]) *Tracer[U, E] {
	return &Tracer[U, E]{
		ops: ops,
		log: logrus.WithFields(logrus.Fields{"tracer": "native", "arch": ops.Arch().ID}),
	}
}

func (t *Tracer[U, E]) InitSnippet(insns []byte, cfg models.TracerConfig, fc models.FuzzingConfig) error {
	if t.state != stateInit || t.proc != nil {
		panic("InitSnippet called twice")
	}
	a := t.ops.Arch()
	if !a.Native() {
		return models.Errorf(models.KindSetup, "cannot trace %s natively on this host", a)
	}
	if cfg.ForceA72 {
		return models.Errorf(models.KindSetup, "cannot force a cpu model on real hardware")
	}
	s, err := snap.InstructionsToSnapshot(a, insns, fc)
	if err != nil {
		return err
	}
	u, err := t.ops.UnpackRegisters(s.Registers)
	if err != nil {
		panic("failed to unpack snapshot registers: " + err.Error())
	}

	runtime.LockOSThread()
	t.locked = true
	t.proc, err = startProcess()
	if err != nil {
		return models.WrapError(models.KindSetup, err, "failed to start helper")
	}
	if err := t.mapSnapshot(s); err != nil {
		return models.WrapError(models.KindSetup, err, "failed to map snapshot")
	}
	if err := t.SetRegisters(u); err != nil {
		return models.WrapError(models.KindSetup, err, "failed to set initial registers")
	}
	t.mapped = s.Mapped
	t.code = fc.Code
	t.start = s.Memory[0].Start
	t.end = s.EndAddress
	t.state = stateReady
	t.log.Debugf("snippet of %d bytes at %#x in pid %d", len(insns), t.start, t.proc.pid)
	return nil
}

// syscall runs one system call in the child by placing the syscall
// instruction at addr. Memory at addr and all registers are restored.
func (t *Tracer[U, E]) syscall(addr, nr uint64, args [6]uint64) (uint64, error) {
	var saved U
	if err := t.ops.GetRegisters(t.proc, &saved); err != nil {
		return 0, err
	}
	insn := t.ops.SyscallInsn()
	orig := make([]byte, len(insn))
	if err := t.proc.peek(addr, orig); err != nil {
		return 0, err
	}
	if err := t.proc.poke(addr, insn); err != nil {
		return 0, err
	}
	u := saved
	t.ops.SetPC(&u, addr)
	t.ops.SetSyscall(&u, nr, args)
	if err := t.ops.SetRegisters(t.proc, &u); err != nil {
		return 0, err
	}
	s, err := t.proc.singleStep()
	if err != nil {
		return 0, err
	}
	if !s.trapped() {
		return 0, errors.Errorf("helper %s during syscall %d", s, nr)
	}
	if err := t.ops.GetRegisters(t.proc, &u); err != nil {
		return 0, err
	}
	ret := t.ops.SyscallResult(&u)
	if err := t.proc.poke(addr, orig); err != nil {
		return 0, err
	}
	return ret, t.ops.SetRegisters(t.proc, &saved)
}

func (t *Tracer[U, E]) mmap(at, start, limit uint64, perms models.MemoryPerms) error {
	flags := uint64(mmapFlags)
	ret, err := t.syscall(at, mmapSyscall, [6]uint64{start, limit - start, uint64(perms.Prot()), flags, ^uint64(0), 0})
	if err != nil {
		return err
	}
	if ret != start {
		return errors.Errorf("mmap(%#x, %#x, %s) returned %#x", start, limit-start, perms, ret)
	}
	return nil
}

// mapSnapshot maps the region holding the snippet first, using the child's
// current instruction, then everything else from inside that region. Regions
// below the code come first in address order, so the order matters.
func (t *Tracer[U, E]) mapSnapshot(s *models.Snapshot) error {
	var u U
	if err := t.ops.GetRegisters(t.proc, &u); err != nil {
		return err
	}
	code := s.Memory[0].Start
	regions := s.Mapped.Regions()
	first := -1
	for i, r := range regions {
		if r.Start <= code && code < r.Limit {
			first = i
			break
		}
	}
	if first < 0 {
		return errors.Errorf("no mapped region holds the snippet at %#x", code)
	}
	c := regions[first]
	if err := t.mmap(t.ops.PC(&u), c.Start, c.Limit, c.Perms); err != nil {
		return err
	}
	for i, r := range regions {
		if i == first {
			continue
		}
		if err := t.mmap(code, r.Start, r.Limit, r.Perms); err != nil {
			return err
		}
	}
	for _, m := range s.Memory {
		if err := t.proc.poke(m.Start, m.Data); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tracer[U, E]) cached() (*U, error) {
	if !t.valid {
		if err := t.ops.GetRegisters(t.proc, &t.regs); err != nil {
			return nil, err
		}
		t.valid = true
	}
	return &t.regs, nil
}

func (t *Tracer[U, E]) Run(maxInsns uint64) error {
	if t.state != stateReady {
		return models.Errorf(models.KindSetup, "cannot run in state %s", t.state)
	}
	t.state = statePreTracing
	t.stopped = false

	t.Fire(t.BeforeExecution, t)
	err := t.trace(maxInsns)
	t.Fire(t.AfterExecution, t)
	if err != nil {
		return err
	}
	u, err := t.cached()
	if err != nil {
		return models.WrapError(models.KindEngine, err, "failed to read registers")
	}
	if err := t.ops.ValidateEndState(u); err != nil {
		return models.WrapError(models.KindIllegalEndState, err, "illegal end state")
	}
	return nil
}

func (t *Tracer[U, E]) trace(maxInsns uint64) error {
	var count uint64
	for {
		u, err := t.cached()
		if err != nil {
			return models.WrapError(models.KindEngine, err, "failed to read registers")
		}
		pc := t.ops.PC(u)
		if t.state == statePreTracing && t.IsInsideCode(pc) {
			t.state = stateTracing
		}
		if pc == t.end {
			t.state = stateFinished
			t.log.Debugf("executed %d instructions", count)
			return nil
		}
		if t.state == stateTracing {
			if count >= maxInsns {
				t.state = stateFinished
				return models.NewError(models.KindExecutionLimit, models.ErrTooManyInstructions)
			}
			if !t.stopped {
				t.Fire(t.BeforeInstruction, t)
			}
			if t.stopped {
				t.state = stateFinished
				return models.NewError(models.KindExecutionLimit, models.ErrDidNotReachEnd)
			}
			count++
		}
		t.valid = false
		s, err := t.proc.singleStep()
		if err != nil {
			return models.WrapError(models.KindEngine, err, "single step failed")
		}
		if s.exited {
			return models.Errorf(models.KindEngine, "helper %s", s)
		}
		if !s.trapped() {
			return models.Errorf(models.KindFault, "snippet %s at %#x", s, pc)
		}
	}
}

func (t *Tracer[U, E]) Stop() {
	t.stopped = true
}

func (t *Tracer[U, E]) GetInstructionPointer() (uint64, error) {
	u, err := t.cached()
	if err != nil {
		return 0, err
	}
	return t.ops.PC(u), nil
}

func (t *Tracer[U, E]) SetInstructionPointer(addr uint64) error {
	u, err := t.cached()
	if err != nil {
		return err
	}
	regs := *u
	t.ops.SetPC(&regs, addr)
	return t.SetRegisters(&regs)
}

func (t *Tracer[U, E]) GetStackPointer() (uint64, error) {
	u, err := t.cached()
	if err != nil {
		return 0, err
	}
	return t.ops.SP(u), nil
}

func (t *Tracer[U, E]) SetRegisters(u *U) error {
	t.valid = false
	return t.ops.SetRegisters(t.proc, u)
}

func (t *Tracer[U, E]) GetRegisters(u *U, eregs *E) error {
	cached, err := t.cached()
	if err != nil {
		return err
	}
	*u = *cached
	if eregs != nil {
		return t.ops.GetExtRegisters(t.proc, eregs)
	}
	return nil
}

func (t *Tracer[U, E]) ReadMemory(addr uint64, p []byte) error {
	return t.proc.peek(addr, p)
}

func (t *Tracer[U, E]) PartialChecksumOfMutableMemory() (uint32, error) {
	return models.ChecksumMutableMemory(t.mapped.Regions(), t.ops.Arch().PageSize, t.proc.peek)
}

func (t *Tracer[U, E]) IterateMappedMemory(fn func(start, limit uint64, perms models.MemoryPerms)) {
	t.mapped.Iterate(fn)
}

func (t *Tracer[U, E]) InstructionIsInRange(addr, size uint64) bool {
	return addr >= t.start && addr <= t.end && size <= t.end-addr
}

func (t *Tracer[U, E]) IsInsideCode(addr uint64) bool {
	return t.code.Contains(addr)
}

func (t *Tracer[U, E]) CodeStart() uint64 {
	return t.start
}

func (t *Tracer[U, E]) Close() error {
	var err error
	if t.proc != nil {
		err = t.proc.kill()
		t.proc = nil
	}
	if t.locked {
		runtime.UnlockOSThread()
		t.locked = false
	}
	return err
}
