package cpu

import (
	"github.com/pkg/errors"
)

type hookInfo struct {
	htype int
	start uint64
	end   uint64
}

func (h *hookInfo) Type() int {
	return h.htype
}

// start > end hooks every address, matching unicorn
func (h *hookInfo) Contains(addr uint64) bool {
	return h.start > h.end || addr >= h.start && addr <= h.end
}

type hinfo interface {
	Type() int
}

type codeHook struct {
	hookInfo
	cb func(Cpu, uint64, uint32)
}

type memHook struct {
	hookInfo
	cb func(Cpu, int, uint64, int, int64)
}

func (h *memHook) wants(access int) bool {
	if access == MEM_WRITE {
		return h.htype&HOOK_MEM_WRITE != 0
	}
	return h.htype&HOOK_MEM_READ != 0
}

type memFaultHook struct {
	hookInfo
	cb func(Cpu, int, uint64, int, int64) bool
}

// Hooks dispatches hook callbacks for CPUs that are not backed by unicorn.
type Hooks struct {
	cpu Cpu

	code     []*codeHook
	mem      []*memHook
	memFault []*memFaultHook
}

// NewHooks optionally attaches to a *Mem so it can dispatch memory hooks.
func NewHooks(cpu Cpu, mem *Mem) *Hooks {
	h := &Hooks{cpu: cpu}
	if mem != nil {
		mem.hooks = h
	}
	return h
}

func (h *Hooks) HookAdd(htype int, cb interface{}, start uint64, end uint64, extra ...int) (Hook, error) {
	info := hookInfo{htype, start, end}
	switch htype {
	case HOOK_CODE:
		hh := &codeHook{info, cb.(func(Cpu, uint64, uint32))}
		h.code = append(h.code, hh)
		return hh, nil

	case HOOK_MEM_READ, HOOK_MEM_WRITE, HOOK_MEM_READ | HOOK_MEM_WRITE:
		hh := &memHook{info, cb.(func(Cpu, int, uint64, int, int64))}
		h.mem = append(h.mem, hh)
		return hh, nil

	case HOOK_MEM_ERR:
		hh := &memFaultHook{info, cb.(func(Cpu, int, uint64, int, int64) bool)}
		h.memFault = append(h.memFault, hh)
		return hh, nil
	}
	return nil, errors.Errorf("unsupported hook type %d", htype)
}

func without[T comparable](list []T, hh T) []T {
	var tmp []T
	for _, v := range list {
		if v != hh {
			tmp = append(tmp, v)
		}
	}
	return tmp
}

func (h *Hooks) HookDel(hh Hook) error {
	info, ok := hh.(hinfo)
	if !ok {
		return errors.Errorf("not a hook: %T", hh)
	}
	switch info.Type() {
	case HOOK_CODE:
		h.code = without(h.code, hh.(*codeHook))
	case HOOK_MEM_READ, HOOK_MEM_WRITE, HOOK_MEM_READ | HOOK_MEM_WRITE:
		h.mem = without(h.mem, hh.(*memHook))
	case HOOK_MEM_ERR:
		h.memFault = without(h.memFault, hh.(*memFaultHook))
	}
	return nil
}

func (h *Hooks) OnCode(addr uint64, size uint32) {
	for _, v := range h.code {
		if v.Contains(addr) {
			v.cb(h.cpu, addr, size)
		}
	}
}

func (h *Hooks) OnMem(access int, addr uint64, size int, val int64) {
	for _, v := range h.mem {
		if v.Contains(addr) && v.wants(access) {
			v.cb(h.cpu, access, addr, size, val)
		}
	}
}

// OnFault returns true if any hook handled the fault.
func (h *Hooks) OnFault(access int, addr uint64, size int, val int64) bool {
	for _, v := range h.memFault {
		if v.Contains(addr) && v.cb(h.cpu, access, addr, size, val) {
			return true
		}
	}
	return false
}
