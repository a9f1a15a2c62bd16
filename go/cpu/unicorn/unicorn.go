// Package unicorn adapts the unicorn engine to cpu.Cpu and provides the
// per-architecture emulation ops.
package unicorn

import (
	"time"

	"github.com/pkg/errors"
	uc "github.com/unicorn-engine/unicorn/bindings/go/unicorn"

	"github.com/snaptrace/snaptrace/go/models/cpu"
)

func New(arch, mode int) (*UnicornCpu, error) {
	u, err := uc.NewUnicorn(arch, mode)
	if err != nil {
		return nil, errors.Wrap(err, "uc.NewUnicorn() failed")
	}
	return &UnicornCpu{u}, nil
}

type UnicornCpu struct {
	uc.Unicorn
}

var _ cpu.Cpu = (*UnicornCpu)(nil)

// cpuModeler is implemented by bindings that expose uc_ctl's cpu model selection.
type cpuModeler interface {
	SetCPUModel(model int) error
}

// SetCPUModel must be called before anything is mapped.
func (u *UnicornCpu) SetCPUModel(model int) error {
	m, ok := u.Unicorn.(cpuModeler)
	if !ok {
		return errors.New("unicorn binding cannot select a cpu model")
	}
	return errors.Wrap(m.SetCPUModel(model), "SetCPUModel() failed")
}

func (u *UnicornCpu) HookAdd(htype int, cb interface{}, start uint64, end uint64, extra ...int) (cpu.Hook, error) {
	// wrap everything so callbacks see the cpu.Cpu, not the raw engine
	var wrap interface{}
	switch htype {
	case cpu.HOOK_BLOCK, cpu.HOOK_CODE:
		cbc := cb.(func(cpu.Cpu, uint64, uint32))
		wrap = func(_ uc.Unicorn, addr uint64, size uint32) { cbc(u, addr, size) }

	case cpu.HOOK_MEM_READ, cpu.HOOK_MEM_WRITE, cpu.HOOK_MEM_READ | cpu.HOOK_MEM_WRITE:
		cbc := cb.(func(cpu.Cpu, int, uint64, int, int64))
		wrap = func(_ uc.Unicorn, access int, addr uint64, size int, val int64) { cbc(u, access, addr, size, val) }

	case cpu.HOOK_INTR:
		cbc := cb.(func(cpu.Cpu, uint32))
		wrap = func(_ uc.Unicorn, intno uint32) { cbc(u, intno) }

	default:
		if htype&(uc.HOOK_MEM_READ_UNMAPPED|uc.HOOK_MEM_WRITE_UNMAPPED|uc.HOOK_MEM_FETCH_UNMAPPED|
			uc.HOOK_MEM_READ_PROT|uc.HOOK_MEM_WRITE_PROT|uc.HOOK_MEM_FETCH_PROT) == 0 {
			return nil, errors.Errorf("unsupported hook type %d", htype)
		}
		cbc := cb.(func(cpu.Cpu, int, uint64, int, int64) bool)
		wrap = func(_ uc.Unicorn, access int, addr uint64, size int, val int64) bool {
			return cbc(u, access, addr, size, val)
		}
	}
	h, err := u.Unicorn.HookAdd(htype, wrap, start, end, extra...)
	if err != nil {
		return nil, errors.Wrap(err, "uc.HookAdd() failed")
	}
	return h, nil
}

func (u *UnicornCpu) HookDel(hh cpu.Hook) error {
	return u.Unicorn.HookDel(hh.(uc.Hook))
}

func (u *UnicornCpu) MemProt(addr, size uint64, prot int) error {
	return u.Unicorn.MemProtect(addr, size, prot)
}

// MemRegions converts unicorn's inclusive region ends.
func (u *UnicornCpu) MemRegions() ([]cpu.Region, error) {
	regions, err := u.Unicorn.MemRegions()
	if err != nil {
		return nil, err
	}
	ret := make([]cpu.Region, len(regions))
	for i, r := range regions {
		ret[i] = cpu.Region{Addr: r.Begin, Size: r.End - r.Begin + 1, Prot: r.Prot}
	}
	return ret, nil
}

func (u *UnicornCpu) Start(begin, until uint64) error {
	return classify(u.Unicorn.Start(begin, until), u)
}

func (u *UnicornCpu) StartWithTimeout(begin, until uint64, timeout time.Duration) error {
	opts := &uc.UcOptions{Timeout: uint64(timeout / time.Microsecond)}
	return classify(u.Unicorn.StartWithOptions(begin, until, opts), u)
}

func (u *UnicornCpu) TimedOut() (bool, error) {
	v, err := u.Unicorn.Query(uc.QUERY_TIMEOUT)
	if err != nil {
		return false, errors.Wrap(err, "uc.Query() failed")
	}
	return v != 0, nil
}

// engine errors caused by the guest rather than by the engine itself
var guestErrors = map[uc.UcError]string{
	uc.ERR_READ_UNMAPPED:   "unmapped read",
	uc.ERR_WRITE_UNMAPPED:  "unmapped write",
	uc.ERR_FETCH_UNMAPPED:  "unmapped fetch",
	uc.ERR_READ_PROT:       "protected read",
	uc.ERR_WRITE_PROT:      "protected write",
	uc.ERR_FETCH_PROT:      "protected fetch",
	uc.ERR_READ_UNALIGNED:  "unaligned read",
	uc.ERR_WRITE_UNALIGNED: "unaligned write",
	uc.ERR_FETCH_UNALIGNED: "unaligned fetch",
	uc.ERR_INSN_INVALID:    "invalid instruction",
	uc.ERR_EXCEPTION:       "unhandled cpu exception",
}

func classify(err error, u *UnicornCpu) error {
	if err == nil {
		return nil
	}
	if code, ok := err.(uc.UcError); ok {
		if reason, ok := guestErrors[code]; ok {
			pc, _ := u.RegRead(u.pcReg())
			return &cpu.Exception{Addr: pc, Reason: reason}
		}
	}
	return errors.Wrap(err, "uc.Start() failed")
}

func (u *UnicornCpu) pcReg() int {
	arch, err := u.Unicorn.Query(uc.QUERY_ARCH)
	if err == nil && arch == uc.ARCH_ARM64 {
		return uc.ARM64_REG_PC
	}
	return uc.X86_REG_RIP
}
