package arm64

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/snaptrace/snaptrace/go/models"
)

func TestFuzzingConfigs(t *testing.T) {
	for name, fc := range map[string]models.FuzzingConfig{
		"default": DefaultFuzzingConfig(),
		"limited": LimitedMemoryFuzzingConfig(),
	} {
		if err := fc.Validate(Arch); err != nil {
			t.Errorf("%s config invalid: %v", name, err)
		}
		if !fc.HasStack() || fc.StackTop() != 0x200_1000 {
			t.Errorf("%s config should use the dedicated stack", name)
		}
		m, err := fc.MappedMemoryMap()
		if err != nil {
			t.Fatal(err)
		}
		if m.Len() != 4 {
			t.Errorf("%s config maps %d regions, want 4", name, m.Len())
		}
		if perms, ok := m.PermsAt(fc.Code.Start); !ok || perms != models.PermRX {
			t.Errorf("%s code perms %v", name, perms)
		}
	}
	if LimitedMemoryFuzzingConfig().Data2.NumBytes != 0x4000 {
		t.Error("limited config should use 16KiB data regions")
	}
}

func TestStackOverlapRejected(t *testing.T) {
	fc := DefaultFuzzingConfig()
	fc.Stack.Start = fc.Data1.Start
	if err := fc.Validate(Arch); err == nil {
		t.Fatal("overlapping stack accepted")
	}
}

func TestPackRoundTrip(t *testing.T) {
	u := InitialUContext(DefaultFuzzingConfig(), 0x3000_2000)
	u.GRegs.X[30] = 0xdead
	u.FPRegs.Q(31)[15] = 0x5a
	u.FPRegs.Fpcr = 0x0200_0000
	regs, err := PackRegisters(u)
	if err != nil {
		t.Fatal(err)
	}
	if len(regs.GRegs) != 36*8 {
		t.Fatalf("gregs image is %d bytes", len(regs.GRegs))
	}
	got, err := UnpackRegisters(regs)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(u, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRegNames(t *testing.T) {
	var g GRegs
	for _, name := range Arch.Regs {
		if g.Reg(name) == nil {
			t.Errorf("no register named %q", name)
		}
	}
	if g.Reg("x31") != nil || g.Reg("q0") != nil {
		t.Error("unknown registers resolved")
	}
	*g.Reg("lr") = 7
	if g.X[30] != 7 {
		t.Error("lr is not x30")
	}
}
