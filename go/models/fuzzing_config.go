package models

import (
	"math/bits"

	"github.com/pkg/errors"
)

// FuzzingConfig describes where a snippet's code and data may live.
// Stack is only used on arm64; x86_64 keeps its stack at the top of Data1.
type FuzzingConfig struct {
	Code  MemoryRange
	Stack MemoryRange
	Data1 MemoryRange
	Data2 MemoryRange
}

func (c FuzzingConfig) HasStack() bool {
	return !c.Stack.Empty()
}

// Ranges returns every non-empty range, code first.
func (c FuzzingConfig) Ranges() []MemoryRange {
	ret := []MemoryRange{c.Code}
	if c.HasStack() {
		ret = append(ret, c.Stack)
	}
	return append(ret, c.Data1, c.Data2)
}

// StackTop is the initial stack pointer for a snippet.
func (c FuzzingConfig) StackTop() uint64 {
	if c.HasStack() {
		return c.Stack.Limit()
	}
	return c.Data1.Limit()
}

func (c FuzzingConfig) Validate(arch *Arch) error {
	if c.Code.NumBytes == 0 || bits.OnesCount64(c.Code.NumBytes) != 1 {
		return errors.Errorf("code range size %#x is not a power of two", c.Code.NumBytes)
	}
	if !arch.PageAligned(c.Code.Start) {
		return errors.Errorf("code range %s is not page aligned", c.Code)
	}
	if c.Code.NumBytes < arch.PageSize {
		return errors.Errorf("code range %s is smaller than a page", c.Code)
	}
	data := map[string]MemoryRange{"data1": c.Data1, "data2": c.Data2}
	if c.HasStack() {
		data["stack"] = c.Stack
	}
	for name, r := range data {
		if r.Empty() {
			return errors.Errorf("%s range is empty", name)
		}
		if !arch.PageAligned(r.Start) || !arch.PageAligned(r.NumBytes) {
			return errors.Errorf("%s range %s is not page aligned", name, r)
		}
	}
	ranges := c.Ranges()
	for i, r := range ranges {
		if r.Limit() < r.Start || r.Limit() > arch.MaxUserAddress {
			return errors.Errorf("range %s is outside the user address space", r)
		}
		for _, o := range ranges[i+1:] {
			if r.Overlaps(o) {
				return errors.Errorf("range %s overlaps %s", r, o)
			}
		}
	}
	return nil
}

// MappedMemoryMap lists every region a snippet may touch.
func (c FuzzingConfig) MappedMemoryMap() (*MappedMemoryMap, error) {
	m := &MappedMemoryMap{}
	if err := m.AddRange(c.Code, PermRX); err != nil {
		return nil, err
	}
	for _, r := range c.Ranges()[1:] {
		if err := m.AddRange(r, PermRW); err != nil {
			return nil, err
		}
	}
	return m, nil
}
