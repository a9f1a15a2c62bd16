package cpu

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func makeHooks() (*Mem, *Hooks) {
	mem := NewMem(64, binary.LittleEndian)
	return mem, NewHooks(nil, mem)
}

func callAll(h *Hooks) {
	h.OnCode(0x1001, 2)
	h.OnMem(MEM_WRITE, 0x1002, 4, -1)
	h.OnMem(MEM_READ, 0x1004, 8, 0)
	h.OnFault(MEM_WRITE_UNMAPPED, 0x1003, 8, -2)
}

// dispatching with no hooks must be safe
func TestHooksEmpty(t *testing.T) {
	_, h := makeHooks()
	callAll(h)
}

func TestHooks(t *testing.T) {
	_, h := makeHooks()
	var results []string
	codeCb := func(_ Cpu, addr uint64, size uint32) {
		results = append(results, fmt.Sprintf("code(%#x, %#x)", addr, size))
	}
	writeCb := func(_ Cpu, access int, addr uint64, size int, val int64) {
		results = append(results, fmt.Sprintf("mem(%d, %#x, %d, %#x)", access, addr, size, val))
	}
	faultCb := func(_ Cpu, access int, addr uint64, size int, val int64) bool {
		results = append(results, fmt.Sprintf("fault(%d, %#x, %d, %#x)", access, addr, size, val))
		return val == 42
	}
	var hooks []Hook
	add := func(htype int, cb interface{}) {
		hh, err := h.HookAdd(htype, cb, 1, 0)
		if err != nil {
			t.Fatal(err)
		}
		hooks = append(hooks, hh)
	}
	add(HOOK_CODE, codeCb)
	add(HOOK_MEM_WRITE, writeCb)
	add(HOOK_MEM_ERR, faultCb)

	callAll(h)
	want := []string{"code(0x1001, 0x2)", "mem(16, 0x1002, 4, -0x1)", "fault(20, 0x1003, 8, -0x2)"}
	if diff := cmp.Diff(want, results); diff != "" {
		t.Fatalf("hook results mismatch (-want +got):\n%s", diff)
	}

	if !h.OnFault(MEM_WRITE_UNMAPPED, 0, 0, 42) {
		t.Fatal("OnFault positive return does not seem to work")
	}
	if h.OnFault(MEM_WRITE_UNMAPPED, 0, 0, 0) {
		t.Fatal("OnFault negative return does not seem to work")
	}

	results = nil
	for _, hh := range hooks {
		if err := h.HookDel(hh); err != nil {
			t.Fatal(err)
		}
	}
	callAll(h)
	if len(results) != 0 {
		t.Fatalf("removed hooks still fired: %v", results)
	}
}

func TestHookRange(t *testing.T) {
	_, h := makeHooks()
	var results []uint64
	codeCb := func(_ Cpu, addr uint64, size uint32) {
		results = append(results, addr)
	}
	if _, err := h.HookAdd(HOOK_CODE, codeCb, 0x1000, 0x1fff); err != nil {
		t.Fatal(err)
	}
	for _, addr := range []uint64{0, 0x1000, 0x1fff, 0x2000} {
		h.OnCode(addr, 1)
	}
	if diff := cmp.Diff([]uint64{0x1000, 0x1fff}, results); diff != "" {
		t.Fatalf("range mismatch (-want +got):\n%s", diff)
	}
}

func TestHookUnsupported(t *testing.T) {
	_, h := makeHooks()
	if _, err := h.HookAdd(HOOK_INTR, func(Cpu, uint32) {}, 1, 0); err == nil {
		t.Fatal("interrupt hooks should be rejected")
	}
}

func TestMemHooksFromMem(t *testing.T) {
	mem, h := makeHooks()
	if err := mem.MemMapProt(0x1000, 0x1000, PROT_READ); err != nil {
		t.Fatal(err)
	}
	var faults []int
	h.HookAdd(HOOK_MEM_ERR, func(_ Cpu, access int, addr uint64, size int, val int64) bool {
		faults = append(faults, access)
		return false
	}, 1, 0)
	if err := mem.WriteProt(0x1000, []byte{1}, PROT_WRITE); err == nil {
		t.Fatal("write to read-only page succeeded")
	}
	if _, err := mem.ReadProt(0x3000, 1, PROT_EXEC); err == nil {
		t.Fatal("fetch from unmapped page succeeded")
	}
	if diff := cmp.Diff([]int{MEM_WRITE_PROT, MEM_FETCH_UNMAPPED}, faults); diff != "" {
		t.Fatalf("fault mismatch (-want +got):\n%s", diff)
	}
}

func BenchmarkHook(b *testing.B) {
	_, h := makeHooks()
	codeCb := func(_ Cpu, addr uint64, size uint32) {}
	if _, err := h.HookAdd(HOOK_CODE, codeCb, 0x1000, 0x1fff); err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.OnCode(0x1000, 1)
	}
}
