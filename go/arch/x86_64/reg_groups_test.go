package x86_64

import (
	"testing"

	"github.com/snaptrace/snaptrace/go/models"
)

func zeroChecksum(t *testing.T, groups RegisterGroupSet) RegisterChecksum {
	buf := &RegisterGroupIOBuffer{Groups: groups}
	return GetRegisterGroupsChecksum(buf)
}

func TestChecksumEmpty(t *testing.T) {
	c := zeroChecksum(t, RegisterGroupSet{})
	if c.Checksum != 0 || !c.Groups.Empty() {
		t.Fatalf("empty group set should checksum to zero, got %v", c)
	}
}

func TestChecksumKnownValues(t *testing.T) {
	if c := zeroChecksum(t, RegisterGroupSet{AVX: true}); c.Checksum != 0x30fcedc0 {
		t.Errorf("zero ymm checksum %#x", c.Checksum)
	}
	if c := zeroChecksum(t, RegisterGroupSet{AVX512: true}); c.Checksum != 0xffa7dc74 {
		t.Errorf("zero zmm+opmask checksum %#x", c.Checksum)
	}
}

func TestChecksumGroupsCompare(t *testing.T) {
	avx := zeroChecksum(t, RegisterGroupSet{AVX: true})
	both := zeroChecksum(t, RegisterGroupSet{AVX: true, AVX512: true})
	if avx == both {
		t.Fatal("checksums over different group sets compared equal")
	}
	if avx != zeroChecksum(t, RegisterGroupSet{AVX: true}) {
		t.Fatal("checksum is not deterministic")
	}
}

func TestChecksumSensitivity(t *testing.T) {
	buf := &RegisterGroupIOBuffer{Groups: RegisterGroupSet{AVX: true, AVX512: true}}
	base := GetRegisterGroupsChecksum(buf)
	buf.Opmask[7] = 1 << 63
	withK := GetRegisterGroupsChecksum(buf)
	if base == withK {
		t.Fatal("opmask change not reflected")
	}
	buf.YMM(15)[31] = 1
	if GetRegisterGroupsChecksum(buf) == withK {
		t.Fatal("ymm change not reflected")
	}
	// inactive groups are ignored
	avxOnly := &RegisterGroupIOBuffer{Groups: RegisterGroupSet{AVX: true}}
	before := GetRegisterGroupsChecksum(avxOnly)
	avxOnly.ZMM(0)[0] = 0xff
	if GetRegisterGroupsChecksum(avxOnly) != before {
		t.Fatal("inactive zmm affected checksum")
	}
}

func TestChecksumSerialize(t *testing.T) {
	c := RegisterChecksum{Checksum: 0xdeadbeef, Groups: RegisterGroupSet{AVX512: true}}
	p, err := SerializeRegisterChecksum(c)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DeserializeRegisterChecksum(p)
	if err != nil {
		t.Fatal(err)
	}
	if got != c {
		t.Fatalf("got %v, want %v", got, c)
	}
	if empty, err := DeserializeRegisterChecksum(nil); err != nil || empty != (RegisterChecksum{}) {
		t.Fatalf("empty input should decode to zero checksum: %v %v", empty, err)
	}
	if IsValidRegisterChecksum([]byte{1, 2, 3}) {
		t.Fatal("truncated checksum accepted")
	}
	bad := append([]byte(nil), p...)
	bad[0] = 0x80
	if IsValidRegisterChecksum(bad) {
		t.Fatal("unknown group bits accepted")
	}
}

func TestExtBitDiffPopCount(t *testing.T) {
	groups := RegisterGroupSet{AVX: true}
	a := &ExtUContext{ERegs: RegisterGroupIOBuffer{Groups: groups}}
	b := &ExtUContext{ERegs: RegisterGroupIOBuffer{Groups: groups}}
	b.GRegs.Rax = 0xf
	b.ERegs.YMM(1)[0] = 0x3
	b.FPRegs.XMM(0)[0] = 0xff // hidden by ymm

	var diff ExtUContext
	BitDiff(a, b, &diff)
	if diff.GRegs.Rax != 0xf || diff.ERegs.YMM(1)[0] != 0x3 {
		t.Fatal("BitDiff lost bits")
	}
	if n := PopCount(&diff); n != 6 {
		t.Fatalf("PopCount = %d, want 6", n)
	}

	var zeroOne, oneZero ExtUContext
	AccumulateToggle(a, b, &zeroOne, &oneZero)
	AccumulateToggle(b, a, &zeroOne, &oneZero)
	if zeroOne.GRegs.Rax != 0xf || oneZero.GRegs.Rax != 0xf {
		t.Fatalf("toggle tracking failed: %#x %#x", zeroOne.GRegs.Rax, oneZero.GRegs.Rax)
	}
	if models.PopCount(zeroOne.ERegs.Ymm[:]) != 2 {
		t.Fatal("ymm toggles not recorded")
	}
}

func TestExtGroupMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	a := &ExtUContext{ERegs: RegisterGroupIOBuffer{Groups: RegisterGroupSet{AVX: true}}}
	BitDiff(a, &ExtUContext{}, &ExtUContext{})
}
