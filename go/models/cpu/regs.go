package cpu

import (
	"github.com/pkg/errors"
)

// Regs is a register file for CPUs that are not backed by unicorn.
// Writes are masked to the register width.
type Regs struct {
	mask uint64
	vals map[int]uint64
}

func NewRegs(bits uint, enums []int) *Regs {
	r := &Regs{
		mask: ^uint64(0) >> (64 - bits),
		vals: make(map[int]uint64),
	}
	for _, e := range enums {
		r.vals[e] = 0
	}
	return r
}

func (r *Regs) RegRead(enum int) (uint64, error) {
	val, ok := r.vals[enum]
	if !ok {
		return 0, errors.Errorf("invalid register %d", enum)
	}
	return val, nil
}

func (r *Regs) RegWrite(enum int, val uint64) error {
	if _, ok := r.vals[enum]; !ok {
		return errors.Errorf("invalid register %d", enum)
	}
	r.vals[enum] = val & r.mask
	return nil
}
