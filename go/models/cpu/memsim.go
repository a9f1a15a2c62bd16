package cpu

import (
	"fmt"
	"sort"
)

var memErrorReasons = map[int]string{
	MEM_WRITE_UNMAPPED: "unmapped write",
	MEM_READ_UNMAPPED:  "unmapped read",
	MEM_FETCH_UNMAPPED: "unmapped fetch",
	MEM_WRITE_PROT:     "protected write",
	MEM_READ_PROT:      "protected read",
	MEM_FETCH_PROT:     "protected exec",
}

type MemError struct {
	Addr uint64
	Size int
	Enum int
}

func (m *MemError) Error() string {
	reason, ok := memErrorReasons[m.Enum]
	if !ok {
		reason = "memory error"
	}
	return fmt.Sprintf("%s at %#x(%d)", reason, m.Addr, m.Size)
}

// MemSim is a sparse address space of non-overlapping pages kept in address order.
type MemSim struct {
	Mem Pages
}

// span calls fn with each piece of [addr, addr+size) in address order and
// reports whether the range is mapped without holes.
func (m *MemSim) span(addr, size uint64, fn func(pg *Page, off, n uint64)) bool {
	i := m.Mem.bsearch(addr)
	if i < 0 {
		return false
	}
	end := addr + size
	for ; i < len(m.Mem) && addr < end; i++ {
		pg := m.Mem[i]
		if !pg.Contains(addr) {
			break
		}
		n := min(end, pg.Addr+pg.Size) - addr
		fn(pg, addr-pg.Addr, n)
		addr += n
	}
	return addr >= end
}

// RangeValid reports whether [addr, addr+size) is mapped and, when prot is
// not zero, whether every page in it allows all of prot.
func (m *MemSim) RangeValid(addr, size uint64, prot int) (mapGood bool, protGood bool) {
	protGood = true
	mapGood = m.span(addr, size, func(pg *Page, _, _ uint64) {
		if pg.Prot&prot != prot {
			protGood = false
		}
	})
	if m.Mem.bsearch(addr) < 0 {
		protGood = false
	}
	return mapGood, protGood
}

// Map replaces whatever was mapped at [addr, addr+size). Unless zero is set
// the old contents carry over into the new page.
func (m *MemSim) Map(addr, size uint64, prot int, zero bool) *Page {
	data := make([]byte, size)
	if !zero {
		for _, pg := range m.Mem {
			if start, n, ok := pg.Intersect(addr, size); ok {
				o := start - pg.Addr
				copy(data[start-addr:], pg.Data[o:o+n])
			}
		}
	}
	m.Unmap(addr, size)
	page := &Page{Addr: addr, Size: size, Prot: prot, Data: data}
	m.Mem = append(m.Mem, page)
	sort.Sort(m.Mem)
	return page
}

// carve splits every page overlapping [addr, addr+size) and replaces the
// overlapping piece with whatever mid returns.
func (m *MemSim) carve(addr, size uint64, mid func(pg *Page) *Page) {
	out := make(Pages, 0, len(m.Mem)+2)
	for _, pg := range m.Mem {
		start, n, ok := pg.Intersect(addr, size)
		if !ok {
			out = append(out, pg)
			continue
		}
		left, right := pg.Split(start, n)
		if left != nil {
			out = append(out, left)
		}
		if keep := mid(pg); keep != nil {
			out = append(out, keep)
		}
		if right != nil {
			out = append(out, right)
		}
	}
	m.Mem = out
}

func (m *MemSim) Prot(addr, size uint64, prot int) {
	m.carve(addr, size, func(pg *Page) *Page {
		pg.Prot = prot
		return pg
	})
}

func (m *MemSim) Unmap(addr, size uint64) {
	m.carve(addr, size, func(*Page) *Page { return nil })
}

func (m *MemSim) check(addr uint64, size int, prot int, write bool) error {
	mapped, allowed := m.RangeValid(addr, uint64(size), prot)
	if mapped && allowed {
		return nil
	}
	var enum int
	switch {
	case write && !mapped:
		enum = MEM_WRITE_UNMAPPED
	case write:
		enum = MEM_WRITE_PROT
	case prot&PROT_EXEC != 0 && !mapped:
		enum = MEM_FETCH_UNMAPPED
	case prot&PROT_EXEC != 0:
		enum = MEM_FETCH_PROT
	case !mapped:
		enum = MEM_READ_UNMAPPED
	default:
		enum = MEM_READ_PROT
	}
	return &MemError{Addr: addr, Size: size, Enum: enum}
}

// Read fills p from addr. A non-zero prot must be allowed by every page read.
func (m *MemSim) Read(addr uint64, p []byte, prot int) error {
	if err := m.check(addr, len(p), prot, false); err != nil {
		return err
	}
	m.span(addr, uint64(len(p)), func(pg *Page, off, n uint64) {
		p = p[copy(p, pg.Data[off:off+n]):]
	})
	return nil
}

func (m *MemSim) Write(addr uint64, p []byte, prot int) error {
	if err := m.check(addr, len(p), prot, true); err != nil {
		return err
	}
	m.span(addr, uint64(len(p)), func(pg *Page, off, n uint64) {
		p = p[copy(pg.Data[off:off+n], p):]
	})
	return nil
}
