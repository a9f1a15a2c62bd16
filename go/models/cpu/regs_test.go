package cpu

import (
	"testing"
)

func makeRegs(bits uint) ([]int, *Regs) {
	enums := make([]int, 100)
	for i := range enums {
		enums[i] = 100 - i
	}
	return enums, NewRegs(bits, enums)
}

func BenchmarkRegsRead(b *testing.B) {
	enums, regs := makeRegs(64)
	for i := 0; i < b.N; i++ {
		regs.RegRead(enums[i%len(enums)])
	}
}

func TestRegs(t *testing.T) {
	enums, regs := makeRegs(64)
	for i, e := range enums {
		if err := regs.RegWrite(e, uint64(i*2)); err != nil {
			t.Fatal(err, "RegWrite() failed")
		}
	}
	for i, e := range enums {
		if val, err := regs.RegRead(e); err != nil {
			t.Fatal(err, "RegRead() failed")
		} else if val != uint64(i*2) {
			t.Fatalf("RegRead() returned %d, expecting %d", val, i*2)
		}
	}
	if _, err := regs.RegRead(1000); err == nil {
		t.Fatal("read of unknown register succeeded")
	}
	if err := regs.RegWrite(1000, 1); err == nil {
		t.Fatal("write of unknown register succeeded")
	}
}

func TestRegsMask(t *testing.T) {
	enums, regs := makeRegs(32)
	if err := regs.RegWrite(enums[0], 0x1_0000_0001); err != nil {
		t.Fatal(err)
	}
	if val, _ := regs.RegRead(enums[0]); val != 1 {
		t.Fatalf("32-bit register kept high bits: %#x", val)
	}
}
