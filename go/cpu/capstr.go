// Package cpu wraps the disassembler and assembler engines.
package cpu

import (
	cs "github.com/lunixbochs/capstr"
	"github.com/pkg/errors"

	"github.com/snaptrace/snaptrace/go/models"
)

type Capstr struct {
	Arch, Mode int

	cs *cs.Engine
	dc models.Discache
}

// NewCapstr returns a lazily opened disassembler for arch.
func NewCapstr(arch models.ArchID) (*Capstr, error) {
	switch arch {
	case models.ArchX86_64:
		return &Capstr{Arch: cs.ARCH_X86, Mode: cs.MODE_64}, nil
	case models.ArchArm64:
		return &Capstr{Arch: cs.ARCH_ARM64, Mode: cs.MODE_ARM}, nil
	}
	return nil, errors.Errorf("no disassembler for %s", arch)
}

func (c *Capstr) Open() error {
	engine, err := cs.New(c.Arch, c.Mode)
	if err != nil {
		return errors.Wrap(err, "cs.New() failed")
	}
	c.cs = engine
	return nil
}

// Dis disassembles as much of mem as decodes cleanly.
func (c *Capstr) Dis(mem []byte, addr uint64) ([]models.Ins, error) {
	if c.cs == nil {
		if err := c.Open(); err != nil {
			return nil, err
		}
	}
	if dis, ok := c.dc.Get(addr, mem); ok {
		return dis, nil
	}
	dis, err := c.cs.Dis(mem, addr, 0)
	if err != nil {
		return nil, errors.Wrap(err, "capstone disassembly failed")
	}
	ret := make([]models.Ins, len(dis))
	for i, v := range dis {
		ret[i] = v
	}
	c.dc.Put(addr, mem, ret)
	return ret, nil
}

func (c *Capstr) Close() {
	if c.cs != nil {
		c.cs.Close()
		c.cs = nil
	}
}
