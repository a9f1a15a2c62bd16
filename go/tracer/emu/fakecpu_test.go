package emu

import (
	"encoding/binary"
	"time"

	"github.com/pkg/errors"

	"github.com/snaptrace/snaptrace/go/arch/x86_64"
	"github.com/snaptrace/snaptrace/go/models"
	"github.com/snaptrace/snaptrace/go/models/cpu"
)

// fakeCpu interprets a handful of one and two byte opcodes:
//
//	90     nop
//	eb fe  jump to self
//	50     push rax
//	fe c0  inc rax
//	f1     set the trap flag
//	f4     pretend the wall clock timeout fired
//	cc     raise an exception
type fakeCpu struct {
	*cpu.Mem
	*cpu.Regs
	*cpu.Hooks

	// instructions executed after a stop request before it takes effect
	stopLag int

	stopping bool
	timedOut bool
	closed   bool
}

const (
	regPC = iota
	regSP
	regRAX
	regFlags
)

func newFakeCpu(stopLag int) *fakeCpu {
	c := &fakeCpu{
		Mem:     cpu.NewMem(64, binary.LittleEndian),
		Regs:    cpu.NewRegs(64, []int{regPC, regSP, regRAX, regFlags}),
		stopLag: stopLag,
	}
	c.Hooks = cpu.NewHooks(c, c.Mem)
	return c
}

func (c *fakeCpu) Start(begin, until uint64) error {
	return c.StartWithTimeout(begin, until, 0)
}

func (c *fakeCpu) StartWithTimeout(begin, until uint64, timeout time.Duration) error {
	c.stopping, c.timedOut = false, false
	lag := c.stopLag
	c.RegWrite(regPC, begin)
	for {
		pc, _ := c.RegRead(regPC)
		if pc == until {
			return nil
		}
		op, err := c.ReadProt(pc, 1, cpu.PROT_EXEC)
		if err != nil {
			return &cpu.Exception{Addr: pc, Reason: err.Error()}
		}
		size := uint64(1)
		if op[0] == 0xeb || op[0] == 0xfe {
			size = 2
		}
		c.OnCode(pc, uint32(size))
		if c.stopping {
			if lag == 0 {
				return nil
			}
			lag--
		}
		next := pc + size
		switch op[0] {
		case 0x90:
		case 0xeb:
			next = pc
		case 0x50:
			sp, _ := c.RegRead(regSP)
			rax, _ := c.RegRead(regRAX)
			var buf [8]byte
			binary.LittleEndian.PutUint64(buf[:], rax)
			if err := c.WriteProt(sp-8, buf[:], cpu.PROT_WRITE); err != nil {
				return &cpu.Exception{Addr: pc, Reason: err.Error()}
			}
			c.RegWrite(regSP, sp-8)
		case 0xfe:
			rax, _ := c.RegRead(regRAX)
			c.RegWrite(regRAX, rax+1)
		case 0xf1:
			flags, _ := c.RegRead(regFlags)
			c.RegWrite(regFlags, flags|x86_64.EflagsTF)
		case 0xf4:
			c.timedOut = true
			return nil
		default:
			return &cpu.Exception{Addr: pc, Reason: "invalid instruction"}
		}
		c.RegWrite(regPC, next)
	}
}

func (c *fakeCpu) TimedOut() (bool, error) { return c.timedOut, nil }

func (c *fakeCpu) Stop() error {
	c.stopping = true
	return nil
}

func (c *fakeCpu) Close() error {
	c.closed = true
	return nil
}

type fakeOps struct {
	stopLag int
	cpu     *fakeCpu
}

func (o *fakeOps) Arch() *models.Arch { return x86_64.Arch }

func (o *fakeOps) NewCpu(cfg models.TracerConfig) (cpu.Cpu, error) {
	o.cpu = newFakeCpu(o.stopLag)
	return o.cpu, nil
}

func (o *fakeOps) UnpackRegisters(regs models.SnapshotRegisters) (*x86_64.UContext, error) {
	return x86_64.UnpackRegisters(regs)
}

func (o *fakeOps) SetRegisters(c cpu.Cpu, u *x86_64.UContext) error {
	for reg, val := range map[int]uint64{
		regPC:    u.GRegs.Rip,
		regSP:    u.GRegs.Rsp,
		regRAX:   u.GRegs.Rax,
		regFlags: u.GRegs.Eflags,
	} {
		if err := c.RegWrite(reg, val); err != nil {
			return err
		}
	}
	return nil
}

func (o *fakeOps) GetRegisters(c cpu.Cpu, u *x86_64.UContext, eregs *x86_64.RegisterGroupIOBuffer) error {
	*u = x86_64.UContext{}
	u.GRegs.Rip, _ = c.RegRead(regPC)
	u.GRegs.Rsp, _ = c.RegRead(regSP)
	u.GRegs.Rax, _ = c.RegRead(regRAX)
	u.GRegs.Eflags, _ = c.RegRead(regFlags)
	if eregs != nil {
		*eregs = x86_64.RegisterGroupIOBuffer{Groups: eregs.Groups}
	}
	return nil
}

func (o *fakeOps) PCReg() int { return regPC }
func (o *fakeOps) SPReg() int { return regSP }

func (o *fakeOps) ValidateEndState(c cpu.Cpu) error {
	flags, err := c.RegRead(regFlags)
	if err != nil {
		return err
	}
	if flags&x86_64.EflagsTF != 0 {
		return errors.New("trap flag set")
	}
	return nil
}
