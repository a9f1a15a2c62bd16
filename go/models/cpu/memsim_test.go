package cpu

import (
	"bytes"
	"testing"
)

func TestMemSimRemap(t *testing.T) {
	var m MemSim
	m.Map(0x1000, 0x2000, PROT_READ|PROT_WRITE, true)
	if err := m.Write(0x1ffe, []byte{1, 2, 3, 4}, 0); err != nil {
		t.Fatal(err)
	}
	// remap the second page, keeping its contents
	m.Map(0x2000, 0x1000, PROT_READ, false)
	if len(m.Mem) != 2 {
		t.Fatalf("want 2 pages, got:\n%s", m.Mem)
	}
	p := make([]byte, 4)
	if err := m.Read(0x1ffe, p, PROT_READ); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(p, []byte{1, 2, 3, 4}) {
		t.Errorf("read % x across the remapped boundary", p)
	}
	err := m.Write(0x2000, p, PROT_WRITE)
	if merr, ok := err.(*MemError); !ok || merr.Enum != MEM_WRITE_PROT {
		t.Errorf("got %v, want a protected write", err)
	}
}

func TestMemSimErrors(t *testing.T) {
	var m MemSim
	m.Map(0x1000, 0x1000, PROT_READ, true)
	cases := []struct {
		addr  uint64
		prot  int
		write bool
		enum  int
	}{
		{0x3000, 0, false, MEM_READ_UNMAPPED},
		{0x3000, PROT_EXEC, false, MEM_FETCH_UNMAPPED},
		{0x1000, PROT_EXEC, false, MEM_FETCH_PROT},
		{0x3000, 0, true, MEM_WRITE_UNMAPPED},
		{0x1ffc, 0, false, MEM_READ_UNMAPPED},
	}
	for _, c := range cases {
		p := make([]byte, 8)
		var err error
		if c.write {
			err = m.Write(c.addr, p, c.prot)
		} else {
			err = m.Read(c.addr, p, c.prot)
		}
		if merr, ok := err.(*MemError); !ok || merr.Enum != c.enum {
			t.Errorf("%#x prot=%d write=%t: got %v, want %s", c.addr, c.prot, c.write, err, memErrorReasons[c.enum])
		}
	}
}
