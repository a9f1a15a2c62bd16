package snap

import (
	"bytes"
	"testing"

	"github.com/snaptrace/snaptrace/go/arch/arm64"
	"github.com/snaptrace/snaptrace/go/arch/x86_64"
	"github.com/snaptrace/snaptrace/go/models"
)

func TestX86Snapshot(t *testing.T) {
	fc := x86_64.DefaultFuzzingConfig()
	insns := []byte{0x90, 0x90}
	s, err := InstructionsToSnapshot(x86_64.Arch, insns, fc)
	if err != nil {
		t.Fatal(err)
	}
	code := s.Memory[0]
	if !fc.Code.Contains(code.Start) || code.Start%0x1000 != 0 {
		t.Fatalf("code page %#x outside code range", code.Start)
	}
	if s.EndAddress != code.Start+2 {
		t.Fatalf("end %#x, want %#x", s.EndAddress, code.Start+2)
	}
	if !bytes.Equal(code.Data[:3], []byte{0x90, 0x90, 0xcc}) || len(code.Data) != 0x1000 {
		t.Fatalf("bad code page contents % x", code.Data[:4])
	}
	if s.Mapped.Len() != 3 {
		t.Fatalf("mapped %d regions", s.Mapped.Len())
	}
	if p, _ := s.Mapped.PermsAt(fc.Data2.Start); p != models.PermRW {
		t.Fatalf("data2 perms %s", p)
	}
	u, err := x86_64.UnpackRegisters(s.Registers)
	if err != nil {
		t.Fatal(err)
	}
	if u.PC() != code.Start || u.SP() != fc.Data1.Limit() {
		t.Fatalf("pc %#x sp %#x", u.PC(), u.SP())
	}
}

func TestArm64Snapshot(t *testing.T) {
	fc := arm64.DefaultFuzzingConfig()
	nop := []byte{0x1f, 0x20, 0x03, 0xd5}
	s, err := InstructionsToSnapshot(arm64.Arch, nop, fc)
	if err != nil {
		t.Fatal(err)
	}
	if s.Mapped.Len() != 4 {
		t.Fatalf("mapped %d regions", s.Mapped.Len())
	}
	u, err := arm64.UnpackRegisters(s.Registers)
	if err != nil {
		t.Fatal(err)
	}
	if u.SP() != fc.Stack.Limit() {
		t.Fatalf("sp %#x", u.SP())
	}
	if !bytes.Equal(s.Memory[0].Data[4:8], arm64.Arch.Trap) {
		t.Fatal("snippet not followed by brk")
	}
	if _, err := InstructionsToSnapshot(arm64.Arch, nop[:3], fc); models.KindOf(err) != models.KindSetup {
		t.Fatalf("misaligned snippet: %v", err)
	}
}

func TestDeterministicPlacement(t *testing.T) {
	fc := x86_64.DefaultFuzzingConfig()
	a := CodeAddress(x86_64.Arch, []byte{0x90}, fc)
	if a != CodeAddress(x86_64.Arch, []byte{0x90}, fc) {
		t.Fatal("placement is not deterministic")
	}
	small := fc
	small.Code.NumBytes = 0x1000
	if CodeAddress(x86_64.Arch, []byte{0x90}, small) != small.Code.Start {
		t.Fatal("single page code range must use its only page")
	}
}

func TestSetupErrors(t *testing.T) {
	fc := x86_64.DefaultFuzzingConfig()
	if _, err := InstructionsToSnapshot(x86_64.Arch, make([]byte, 0x1000), fc); models.KindOf(err) != models.KindSetup {
		t.Fatalf("oversized snippet: %v", err)
	}
	fc.Data2 = fc.Data1
	if _, err := InstructionsToSnapshot(x86_64.Arch, nil, fc); models.KindOf(err) != models.KindSetup {
		t.Fatalf("bad config: %v", err)
	}
}

func TestEmptySnippet(t *testing.T) {
	s, err := InstructionsToSnapshot(x86_64.Arch, nil, x86_64.DefaultFuzzingConfig())
	if err != nil {
		t.Fatal(err)
	}
	if s.EndAddress != s.Memory[0].Start {
		t.Fatal("empty snippet should end where it starts")
	}
}
