package models

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// MemoryRange spans [Start, Start+NumBytes).
type MemoryRange struct {
	Start    uint64
	NumBytes uint64
}

func (r MemoryRange) Limit() uint64 {
	return r.Start + r.NumBytes
}

func (r MemoryRange) Empty() bool {
	return r.NumBytes == 0
}

func (r MemoryRange) Contains(addr uint64) bool {
	return addr >= r.Start && addr < r.Limit()
}

func (r MemoryRange) ContainsRange(o MemoryRange) bool {
	return o.Start >= r.Start && o.Limit() <= r.Limit()
}

func (r MemoryRange) Overlaps(o MemoryRange) bool {
	if r.Empty() || o.Empty() {
		return false
	}
	return r.Start < o.Limit() && o.Start < r.Limit()
}

func (r MemoryRange) String() string {
	return fmt.Sprintf("[%#x, %#x)", r.Start, r.Limit())
}

// MemoryPerms uses the same bit values as cpu.PROT_*.
type MemoryPerms uint8

const (
	PermR MemoryPerms = 1 << iota
	PermW
	PermX

	PermNone MemoryPerms = 0
	PermRW               = PermR | PermW
	PermRX               = PermR | PermX
	PermRWX              = PermR | PermW | PermX
)

func (p MemoryPerms) Has(o MemoryPerms) bool {
	return p&o == o
}

func (p MemoryPerms) Prot() int {
	return int(p)
}

func (p MemoryPerms) String() string {
	var b strings.Builder
	for i, c := range "rwx" {
		if p&(1<<uint(i)) != 0 {
			b.WriteRune(c)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}

type MappedRegion struct {
	Start, Limit uint64
	Perms        MemoryPerms
}

func (m MappedRegion) String() string {
	return fmt.Sprintf("%#x-%#x %s", m.Start, m.Limit, m.Perms)
}

// MappedMemoryMap is an address-ordered list of non-overlapping regions.
type MappedMemoryMap struct {
	regions []MappedRegion
}

func (m *MappedMemoryMap) search(addr uint64) int {
	return sort.Search(len(m.regions), func(i int) bool {
		return m.regions[i].Limit > addr
	})
}

func (m *MappedMemoryMap) Add(start, limit uint64, perms MemoryPerms) error {
	if limit <= start {
		return errors.Errorf("empty mapping %#x-%#x", start, limit)
	}
	i := m.search(start)
	if i < len(m.regions) && m.regions[i].Start < limit {
		return errors.Errorf("mapping %#x-%#x overlaps %s", start, limit, m.regions[i])
	}
	m.regions = append(m.regions, MappedRegion{})
	copy(m.regions[i+1:], m.regions[i:])
	m.regions[i] = MappedRegion{start, limit, perms}
	return nil
}

func (m *MappedMemoryMap) AddRange(r MemoryRange, perms MemoryPerms) error {
	return m.Add(r.Start, r.Limit(), perms)
}

func (m *MappedMemoryMap) Iterate(fn func(start, limit uint64, perms MemoryPerms)) {
	for _, r := range m.regions {
		fn(r.Start, r.Limit, r.Perms)
	}
}

func (m *MappedMemoryMap) Regions() []MappedRegion {
	return append([]MappedRegion(nil), m.regions...)
}

func (m *MappedMemoryMap) Len() int {
	return len(m.regions)
}

// Contains reports whether every byte of [start, limit) is mapped.
func (m *MappedMemoryMap) Contains(start, limit uint64) bool {
	for i := m.search(start); start < limit; i++ {
		if i >= len(m.regions) || m.regions[i].Start > start {
			return false
		}
		start = m.regions[i].Limit
	}
	return true
}

func (m *MappedMemoryMap) PermsAt(addr uint64) (MemoryPerms, bool) {
	i := m.search(addr)
	if i < len(m.regions) && m.regions[i].Start <= addr {
		return m.regions[i].Perms, true
	}
	return PermNone, false
}

func (m *MappedMemoryMap) String() string {
	s := make([]string, len(m.regions))
	for i, r := range m.regions {
		s[i] = r.String()
	}
	return strings.Join(s, "\n")
}
