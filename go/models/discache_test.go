package models

import (
	"testing"
)

type fakeIns struct {
	addr  uint64
	bytes []byte
}

func (f fakeIns) Addr() uint64     { return f.addr }
func (f fakeIns) Bytes() []byte    { return f.bytes }
func (f fakeIns) Mnemonic() string { return "nop" }
func (f fakeIns) OpStr() string    { return "" }

func TestDiscache(t *testing.T) {
	var d Discache
	mem := []byte{0x90}
	if _, ok := d.Get(0x1000, mem); ok {
		t.Fatal("empty cache hit")
	}
	d.Put(0x1000, mem, []Ins{fakeIns{0x1000, mem}})
	mem[0] = 0xcc
	if _, ok := d.Get(0x1000, mem); ok {
		t.Fatal("hit after the bytes changed")
	}
	dis, ok := d.Get(0x1000, []byte{0x90})
	if !ok || InsSize(dis) != 1 {
		t.Fatalf("got %v, %v", dis, ok)
	}
	if InsSize(nil) != 0 {
		t.Fatal("InsSize(nil) != 0")
	}
}
