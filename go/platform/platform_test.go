package platform

import (
	"runtime"
	"testing"
)

func TestParseFeature(t *testing.T) {
	for _, name := range FeatureNames() {
		f, err := ParseFeature(name)
		if err != nil {
			t.Fatal(err)
		}
		if f.String() != name {
			t.Errorf("%q round tripped to %q", name, f)
		}
	}
	if _, err := ParseFeature("mmx2"); err == nil {
		t.Error("unknown feature accepted")
	}
}

func TestRegisterGroups(t *testing.T) {
	x86 := X86RegisterGroups()
	if x86.AVX512 && !HasFeature(FeatureAVX) {
		t.Error("avx512 without avx")
	}
	if runtime.GOARCH != "arm64" && !Arm64RegisterGroups().Empty() {
		t.Error("sve reported on a non-arm64 host")
	}
	if runtime.GOARCH != "amd64" && !x86.Empty() {
		t.Error("avx reported on a non-x86 host")
	}
}

func TestAffinity(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("linux only")
	}
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	cpus, err := AvailableCPUs()
	if err != nil {
		t.Fatal(err)
	}
	if len(cpus) == 0 {
		t.Fatal("no cpus available")
	}
	if err := SetCPUAffinity(cpus[len(cpus)-1]); err != nil {
		t.Fatal(err)
	}
	if LastCPUAffinity() != cpus[len(cpus)-1] {
		t.Fatalf("last affinity %d", LastCPUAffinity())
	}
}
