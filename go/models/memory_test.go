package models

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMemoryRange(t *testing.T) {
	r := MemoryRange{Start: 0x1000, NumBytes: 0x1000}
	if !r.Contains(0x1000) || !r.Contains(0x1fff) || r.Contains(0x2000) || r.Contains(0xfff) {
		t.Error("Contains() boundaries wrong")
	}
	if r.Overlaps(MemoryRange{Start: 0x2000, NumBytes: 0x1000}) {
		t.Error("adjacent ranges overlap")
	}
	if !r.Overlaps(MemoryRange{Start: 0x1fff, NumBytes: 1}) {
		t.Error("overlap missed")
	}
	if r.Overlaps(MemoryRange{Start: 0x1800}) {
		t.Error("empty range overlaps")
	}
}

func TestMappedMemoryMap(t *testing.T) {
	var m MappedMemoryMap
	if err := m.Add(0x3000, 0x4000, PermRW); err != nil {
		t.Fatal(err)
	}
	if err := m.Add(0x1000, 0x2000, PermRX); err != nil {
		t.Fatal(err)
	}
	if err := m.Add(0x2000, 0x3000, PermR); err != nil {
		t.Fatal(err)
	}
	if err := m.Add(0x1800, 0x1900, PermR); err == nil {
		t.Fatal("overlapping add succeeded")
	}
	if err := m.Add(0x5000, 0x5000, PermR); err == nil {
		t.Fatal("empty add succeeded")
	}
	var got []MappedRegion
	m.Iterate(func(start, limit uint64, perms MemoryPerms) {
		got = append(got, MappedRegion{start, limit, perms})
	})
	want := []MappedRegion{
		{0x1000, 0x2000, PermRX},
		{0x2000, 0x3000, PermR},
		{0x3000, 0x4000, PermRW},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Iterate mismatch (-want +got):\n%s", diff)
	}
	if !m.Contains(0x1800, 0x3800) {
		t.Error("contiguous span not contained")
	}
	if m.Contains(0x3800, 0x4800) || m.Contains(0x800, 0x1800) {
		t.Error("partially unmapped span contained")
	}
	if p, ok := m.PermsAt(0x2fff); !ok || p != PermR {
		t.Errorf("PermsAt(0x2fff) = %v %v", p, ok)
	}
	if _, ok := m.PermsAt(0x4000); ok {
		t.Error("PermsAt past the end found a region")
	}
}

func TestMemoryPerms(t *testing.T) {
	if PermRX.String() != "r-x" || PermNone.String() != "---" {
		t.Errorf("bad perms strings %s %s", PermRX, PermNone)
	}
	if !PermRWX.Has(PermRW) || PermRX.Has(PermW) {
		t.Error("Has() wrong")
	}
}
