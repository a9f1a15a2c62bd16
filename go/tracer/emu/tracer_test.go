package emu

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"

	"github.com/snaptrace/snaptrace/go/arch/x86_64"
	"github.com/snaptrace/snaptrace/go/models"
)

type fakeTracer = Tracer[x86_64.UContext, x86_64.RegisterGroupIOBuffer]
type fakeControl = models.TracerControl[x86_64.UContext, x86_64.RegisterGroupIOBuffer]

func newTracer(t *testing.T, insns []byte, stopLag int) (*fakeTracer, *fakeOps) {
	t.Helper()
	ops := &fakeOps{stopLag: stopLag}
	tr := New[x86_64.UContext, x86_64.RegisterGroupIOBuffer](ops)
	if err := tr.InitSnippet(insns, models.TracerConfig{}, x86_64.LimitedMemoryFuzzingConfig()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { tr.Close() })
	return tr, ops
}

func TestSingleNop(t *testing.T) {
	tr, _ := newTracer(t, []byte{0x90}, 0)
	var count int
	tr.SetBeforeInstructionCallback(func(fakeControl) { count++ })
	if err := tr.Run(1); err != nil {
		t.Fatal(err)
	}
	pc, _ := tr.GetInstructionPointer()
	if pc != tr.CodeStart()+1 {
		t.Fatalf("pc %#x, want %#x", pc, tr.CodeStart()+1)
	}
	if count != 1 {
		t.Fatalf("callback ran %d times", count)
	}
}

func TestEmptySnippet(t *testing.T) {
	tr, _ := newTracer(t, nil, 0)
	if err := tr.Run(0); err != nil {
		t.Fatal(err)
	}
}

func TestZeroLimit(t *testing.T) {
	tr, _ := newTracer(t, []byte{0x90}, 0)
	err := tr.Run(0)
	if models.KindOf(err) != models.KindExecutionLimit || !errors.Is(err, models.ErrTooManyInstructions) {
		t.Fatalf("got %v", err)
	}
}

func TestSelfJump(t *testing.T) {
	for _, lag := range []int{0, 1, 7} {
		tr, _ := newTracer(t, []byte{0xeb, 0xfe}, lag)
		var count int
		tr.SetBeforeInstructionCallback(func(fakeControl) { count++ })
		err := tr.Run(10)
		if models.KindOf(err) != models.KindExecutionLimit || !errors.Is(err, models.ErrTooManyInstructions) {
			t.Fatalf("lag %d: got %v", lag, err)
		}
		if count != 10 {
			t.Fatalf("lag %d: callback ran %d times, want 10", lag, count)
		}
		if tr.numInsns != uint64(11+lag) {
			t.Fatalf("lag %d: counted %d instructions", lag, tr.numInsns)
		}
	}
}

func TestUserStop(t *testing.T) {
	tr, _ := newTracer(t, []byte{0x90, 0x90, 0x90}, 2)
	var count int
	tr.SetBeforeInstructionCallback(func(c fakeControl) {
		count++
		c.Stop()
	})
	err := tr.Run(100)
	if models.KindOf(err) != models.KindExecutionLimit || !errors.Is(err, models.ErrDidNotReachEnd) {
		t.Fatalf("got %v", err)
	}
	if count != 1 {
		t.Fatalf("callbacks kept firing after stop: %d", count)
	}
}

func TestFault(t *testing.T) {
	tr, _ := newTracer(t, []byte{0xcc}, 0)
	var after bool
	tr.SetAfterExecutionCallback(func(fakeControl) { after = true })
	if err := tr.Run(10); models.KindOf(err) != models.KindFault {
		t.Fatalf("got %v", err)
	}
	if !after {
		t.Fatal("after execution callback did not fire")
	}
}

func TestTimeout(t *testing.T) {
	tr, _ := newTracer(t, []byte{0xf4, 0x90}, 0)
	err := tr.Run(10)
	if models.KindOf(err) != models.KindTimeout || !errors.Is(err, models.ErrTimedOut) {
		t.Fatalf("got %v", err)
	}
}

func TestIllegalEndState(t *testing.T) {
	tr, _ := newTracer(t, []byte{0xf1}, 0)
	if err := tr.Run(10); models.KindOf(err) != models.KindIllegalEndState {
		t.Fatalf("got %v", err)
	}
}

func TestRegistersAndMemory(t *testing.T) {
	tr, _ := newTracer(t, []byte{0xfe, 0xc0, 0x50}, 0)
	before, err := tr.PartialChecksumOfMutableMemory()
	if err != nil {
		t.Fatal(err)
	}
	var start x86_64.UContext
	tr.SetBeforeExecutionCallback(func(c fakeControl) {
		c.GetRegisters(&start, nil)
	})
	if err := tr.Run(10); err != nil {
		t.Fatal(err)
	}
	var u x86_64.UContext
	if err := tr.GetRegisters(&u, nil); err != nil {
		t.Fatal(err)
	}
	if u.GRegs.Rax != 1 || u.GRegs.Rsp != start.GRegs.Rsp-8 {
		t.Fatalf("rax %d rsp %#x", u.GRegs.Rax, u.GRegs.Rsp)
	}
	buf := make([]byte, 8)
	if err := tr.ReadMemory(u.GRegs.Rsp, buf); err != nil {
		t.Fatal(err)
	}
	if buf[0] != 1 {
		t.Fatalf("pushed value % x", buf)
	}
	after, err := tr.PartialChecksumOfMutableMemory()
	if err != nil {
		t.Fatal(err)
	}
	if before == after {
		t.Fatal("memory checksum did not change")
	}
}

func TestSetInstructionPointer(t *testing.T) {
	tr, _ := newTracer(t, []byte{0x90, 0x90}, 0)
	if err := tr.SetInstructionPointer(tr.CodeStart() + 1); err != nil {
		t.Fatal(err)
	}
	if pc, _ := tr.GetInstructionPointer(); pc != tr.CodeStart()+1 {
		t.Fatalf("pc %#x", pc)
	}
	// Run always starts from the top of the snippet
	var first uint64
	tr.SetBeforeInstructionCallback(func(c fakeControl) {
		if first == 0 {
			first, _ = c.GetInstructionPointer()
		}
	})
	if err := tr.Run(10); err != nil {
		t.Fatal(err)
	}
	if first != tr.CodeStart() {
		t.Fatalf("first instruction at %#x", first)
	}
}

func TestRanges(t *testing.T) {
	tr, _ := newTracer(t, []byte{0x90, 0x90}, 0)
	s := tr.CodeStart()
	cases := []struct {
		addr, size uint64
		want       bool
	}{
		{s, 1, true},
		{s, 2, true},
		{s + 1, 1, true},
		{s + 1, 2, false},
		{s - 1, 1, false},
		{s + 2, 0, true},
		{s + 3, 0, false},
		{s, ^uint64(0), false},
		{^uint64(0) - 1, 4, false},
	}
	for _, c := range cases {
		if got := tr.InstructionIsInRange(c.addr, c.size); got != c.want {
			t.Errorf("InstructionIsInRange(%#x, %d) = %v", c.addr, c.size, got)
		}
	}
	if !tr.IsInsideCode(s) || tr.IsInsideCode(x86_64.LimitedMemoryFuzzingConfig().Data1.Start) {
		t.Error("IsInsideCode is wrong")
	}
	var regions []models.MappedRegion
	tr.IterateMappedMemory(func(start, limit uint64, perms models.MemoryPerms) {
		regions = append(regions, models.MappedRegion{Start: start, Limit: limit, Perms: perms})
	})
	if len(regions) != 3 || regions[0].Perms != models.PermRW || regions[1].Perms != models.PermRX {
		t.Fatalf("unexpected regions %v", regions)
	}
	sp, _ := tr.GetStackPointer()
	if sp != x86_64.LimitedMemoryFuzzingConfig().Data1.Limit() {
		t.Fatalf("sp %#x", sp)
	}
}

func TestCallbacksOnce(t *testing.T) {
	tr, _ := newTracer(t, []byte{0x90}, 0)
	tr.SetAfterExecutionCallback(func(fakeControl) {})
	defer func() {
		if recover() == nil {
			t.Fatal("second registration did not panic")
		}
	}()
	tr.SetAfterExecutionCallback(func(fakeControl) {})
}

func TestClose(t *testing.T) {
	tr, ops := newTracer(t, []byte{0x90}, 0)
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	if !ops.cpu.closed {
		t.Fatal("cpu was not closed")
	}
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestStopWithoutCpu(t *testing.T) {
	tr := New[x86_64.UContext, x86_64.RegisterGroupIOBuffer](&fakeOps{})
	tr.Stop()
	if err := tr.InitSnippet([]byte{0x90}, models.TracerConfig{}, x86_64.LimitedMemoryFuzzingConfig()); err != nil {
		t.Fatal(err)
	}
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	tr.Stop()
	tr.Stop()
}

type endState struct {
	Regs   x86_64.UContext
	Groups x86_64.RegisterChecksum
	Memory uint32
}

func runToEnd(t *testing.T, insns []byte) endState {
	t.Helper()
	tr, _ := newTracer(t, insns, 0)
	if err := tr.Run(10); err != nil {
		t.Fatal(err)
	}
	var s endState
	eregs := x86_64.RegisterGroupIOBuffer{Groups: x86_64.RegisterGroupSet{AVX: true, AVX512: true}}
	if err := tr.GetRegisters(&s.Regs, &eregs); err != nil {
		t.Fatal(err)
	}
	s.Groups = x86_64.GetRegisterGroupsChecksum(&eregs)
	var err error
	if s.Memory, err = tr.PartialChecksumOfMutableMemory(); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestDeterministic(t *testing.T) {
	// inc rax; push rax; nop
	insns := []byte{0xfe, 0xc0, 0x50, 0x90}
	first := runToEnd(t, insns)
	second := runToEnd(t, insns)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("two runs of the same snippet differ (-first +second):\n%s", diff)
	}
	if first.Regs.GRegs.Rax != 1 {
		t.Fatalf("rax %d", first.Regs.GRegs.Rax)
	}
}
