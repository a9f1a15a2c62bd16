package cpu

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Mem wraps MemSim to make a Cpu interface-compatible memory model.
type Mem struct {
	// addresses that do not fit inside mask are rejected
	mask uint64
	// set when passing *Mem to NewHooks()
	hooks *Hooks
	sim   *MemSim

	order binary.ByteOrder
}

func NewMem(bits uint, order binary.ByteOrder) *Mem {
	return &Mem{
		mask:  ^uint64(0) >> (64 - bits),
		sim:   &MemSim{},
		order: order,
	}
}

func (m *Mem) ByteOrder() binary.ByteOrder {
	return m.order
}

func (m *Mem) MemMapProt(addr, size uint64, prot int) error {
	end := addr + size
	if end < addr || end-1 != (end-1)&m.mask {
		return errors.New("region outside memory range")
	}
	if size == 0 {
		return errors.New("empty mapping")
	}
	m.sim.Map(addr, size, prot, false)
	return nil
}

func (m *Mem) MemProt(addr, size uint64, prot int) error {
	if mapped, _ := m.sim.RangeValid(addr, size, 0); !mapped {
		return errors.New("range not mapped")
	}
	m.sim.Prot(addr, size, prot)
	return nil
}

func (m *Mem) MemUnmap(addr, size uint64) error {
	if mapped, _ := m.sim.RangeValid(addr, size, 0); !mapped {
		return errors.New("range not mapped")
	}
	m.sim.Unmap(addr, size)
	return nil
}

func (m *Mem) MemRegions() ([]Region, error) {
	ret := make([]Region, len(m.sim.Mem))
	for i, p := range m.sim.Mem {
		ret[i] = Region{Addr: p.Addr, Size: p.Size, Prot: p.Prot}
	}
	return ret, nil
}

func (m *Mem) MemReadInto(p []byte, addr uint64) error {
	return m.sim.Read(addr, p, 0)
}

func (m *Mem) MemRead(addr, size uint64) ([]byte, error) {
	p := make([]byte, size)
	if err := m.MemReadInto(p, addr); err != nil {
		return nil, err
	}
	return p, nil
}

func (m *Mem) MemWrite(addr uint64, p []byte) error {
	return m.sim.Write(addr, p, 0)
}

// ReadProt reads while checking protections and dispatching hooks, for CPU interpreters.
// PROT_EXEC in prot marks an instruction fetch.
func (m *Mem) ReadProt(addr, size uint64, prot int) ([]byte, error) {
	p := make([]byte, size)
	if err := m.sim.Read(addr, p, prot); err != nil {
		if merr, ok := err.(*MemError); ok && m.hooks != nil {
			m.hooks.OnFault(merr.Enum, addr, int(size), 0)
		}
		return nil, err
	}
	if m.hooks != nil {
		access := MEM_READ
		if prot&PROT_EXEC != 0 {
			access = MEM_FETCH
		}
		m.hooks.OnMem(access, addr, int(size), 0)
	}
	return p, nil
}

// WriteProt writes while checking protections and dispatching hooks.
func (m *Mem) WriteProt(addr uint64, p []byte, prot int) error {
	err := m.sim.Write(addr, p, prot)
	if m.hooks == nil {
		return err
	}
	if merr, ok := err.(*MemError); ok {
		m.hooks.OnFault(merr.Enum, addr, len(p), 0)
	} else if err == nil {
		var val int64
		if len(p) <= 8 {
			var buf [8]byte
			copy(buf[:], p)
			val = int64(m.order.Uint64(buf[:]))
		}
		m.hooks.OnMem(MEM_WRITE, addr, len(p), val)
	}
	return err
}
