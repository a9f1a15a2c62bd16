package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/snaptrace/snaptrace/go/analysis"
	"github.com/snaptrace/snaptrace/go/arch/x86_64"
)

type info = analysis.InstructionInfo[x86_64.ExtUContext]

func ctx(rip, rax uint64) x86_64.ExtUContext {
	var x x86_64.ExtUContext
	x.GRegs.Rip, x.GRegs.Rax = rip, rax
	return x
}

// inc rax; jmp +1; nop
func fakeTrace() *analysis.Trace[x86_64.UContext, x86_64.ExtUContext] {
	t := &analysis.Trace[x86_64.UContext, x86_64.ExtUContext]{
		Entry: 0x1000,
		Insns: []info{
			{Address: 0x1000, Size: 3, Mnemonic: "inc", OpStr: "rax", Before: ctx(0x1000, 0), Critical: true},
			{Address: 0x1003, Size: 2, Mnemonic: "jmp", OpStr: "0x1006", Before: ctx(0x1003, 1)},
			{Address: 0x1006, Size: 1, Mnemonic: "nop", Before: ctx(0x1006, 1)},
		},
		Final: ctx(0x1007, 1),
	}
	t.FinalRegs = t.Final.UContext
	return t
}

func TestPrintTrace(t *testing.T) {
	var buf bytes.Buffer
	r := &Report{W: &buf, FaultInjection: true}
	PrintTrace(r, analysis.X86_64, fakeTrace())
	want := []string{
		"0000 addr=00001000 offset=0000 size=03 diff=001 crit=true    inc rax",
		"0001 addr=00001003 offset=0003 size=02 diff=000 crit=false    jmp 0x1006",
		"    branch",
		"0002 addr=00001006 offset=0006 size=01 diff=000 crit=false    nop ",
	}
	got := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("trace (-want +got):\n%s", diff)
	}
}

func TestPrintTraceRegs(t *testing.T) {
	var buf bytes.Buffer
	r := &Report{W: &buf, Regs: true}
	PrintTrace(r, analysis.X86_64, fakeTrace())
	out := buf.String()
	if strings.Count(out, "rax") != 2 {
		t.Errorf("want one rax change below the inc line, got:\n%s", out)
	}
	if strings.Contains(out, "rip") {
		t.Errorf("rip changes should be hidden:\n%s", out)
	}
}

func TestPrintStats(t *testing.T) {
	var buf bytes.Buffer
	r := &Report{W: &buf, FaultInjection: true}
	PrintStats(r, analysis.X86_64, fakeTrace())
	want := []string{
		"",
		"op           exec  0=>1  1=>0  crit%",
		"",
		"inc              1     1     0   100",
		"jmp              1     0     0     0",
		"nop              1     0     0     0",
		"",
		"total            3     1     0    33",
	}
	got := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("stats (-want +got):\n%s", diff)
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	r := &Report{W: &buf}
	PrintFaultInjection(r, analysis.FaultInjectionResult{FaultInjectionCount: 3, FaultDetectionCount: 1, Sensitivity: 1.0 / 3})
	PrintDistance(r, analysis.X86_64, fakeTrace())
	PrintEndState(r, 0xabcd, true)
	want := "Detected 1/3 faults - 33% sensitive\n\nFinal register hamming distance: 4\nEnd state: memory checksum 0000abcd, matches the trace\n"
	if got := buf.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
