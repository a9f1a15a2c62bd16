package cpu

import (
	"fmt"
	"strings"
)

type Page struct {
	Addr uint64
	Size uint64
	Prot int
	Data []byte
}

func protString(prot int) string {
	var b strings.Builder
	for i, c := range "rwx" {
		if prot&(1<<uint(i)) != 0 {
			b.WriteRune(c)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}

func (p *Page) String() string {
	return fmt.Sprintf("0x%x-0x%x %s", p.Addr, p.Addr+p.Size, protString(p.Prot))
}

func (p *Page) Contains(addr uint64) bool {
	return addr >= p.Addr && addr < p.Addr+p.Size
}

// Intersect returns the part of [addr, addr+size) inside p.
func (p *Page) Intersect(addr, size uint64) (start, n uint64, ok bool) {
	start = max(p.Addr, addr)
	end := min(p.Addr+p.Size, addr+size)
	if end <= start {
		return 0, 0, false
	}
	return start, end - start, true
}

func (p *Page) slice(addr, size uint64) *Page {
	o := addr - p.Addr
	return &Page{Addr: addr, Size: size, Prot: p.Prot, Data: p.Data[o : o+size]}
}

/*
Split trims p to [addr, addr+size) and returns what fell off either side.

	[-left-][---mid---][-right-]
	        |         |
	        addr      addr+size

If [addr, addr+size) extends past p, the middle is zero padded.
*/
func (p *Page) Split(addr, size uint64) (left, right *Page) {
	if addr+size < p.Addr+p.Size {
		ra := addr + size
		right = p.slice(ra, p.Addr+p.Size-ra)
		p.Data = p.Data[:ra-p.Addr]
	}
	if addr > p.Addr {
		ls := addr - p.Addr
		left = p.slice(p.Addr, ls)
		p.Data = p.Data[ls:]
	}
	if addr < p.Addr {
		p.Data = append(make([]byte, p.Addr-addr), p.Data...)
	}
	if end, newEnd := p.Addr+p.Size, addr+size; newEnd > end {
		p.Data = append(p.Data, make([]byte, newEnd-end)...)
	}
	p.Addr, p.Size = addr, size
	return left, right
}

type Pages []*Page

func (p Pages) Len() int           { return len(p) }
func (p Pages) Swap(i, j int)      { p[i], p[j] = p[j], p[i] }
func (p Pages) Less(i, j int) bool { return p[i].Addr < p[j].Addr }

func (p Pages) String() string {
	s := make([]string, len(p))
	for i, v := range p {
		s[i] = v.String()
	}
	return strings.Join(s, "\n")
}

// binary search to find index of first region containing addr, if any, else -1
func (p Pages) bsearch(addr uint64) int {
	l := 0
	r := len(p) - 1
	for l <= r {
		mid := (l + r) / 2
		e := p[mid]
		if addr >= e.Addr {
			if addr < e.Addr+e.Size {
				return mid
			}
			l = mid + 1
		} else {
			r = mid - 1
		}
	}
	return -1
}

func (p Pages) Find(addr uint64) *Page {
	i := p.bsearch(addr)
	if i >= 0 {
		return p[i]
	}
	return nil
}
