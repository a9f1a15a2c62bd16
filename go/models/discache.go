package models

import (
	"bytes"
	"sync"
)

type discacheEntry struct {
	mem []byte
	dis []Ins
}

// Discache memoizes disassembly by address. An entry is only returned while
// the bytes at that address are unchanged. The zero value is ready to use.
type Discache struct {
	mu      sync.RWMutex
	entries map[uint64]discacheEntry
}

func (d *Discache) Get(addr uint64, mem []byte) ([]Ins, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ent, ok := d.entries[addr]
	if !ok || !bytes.Equal(mem, ent.mem) {
		return nil, false
	}
	return ent.dis, true
}

func (d *Discache) Put(addr uint64, mem []byte, dis []Ins) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.entries == nil {
		d.entries = make(map[uint64]discacheEntry)
	}
	d.entries[addr] = discacheEntry{append([]byte(nil), mem...), dis}
}
