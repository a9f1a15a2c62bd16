//go:build linux

package native

import (
	"os/exec"
	"syscall"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// process is a ptrace-stopped child. Every method must be called from the
// OS thread that started it.
type process struct {
	pid int
}

// startProcess re-executes the current binary under ptrace. The child stops
// at its first instruction after execve and never runs any of its own code.
func startProcess() (*process, error) {
	cmd := exec.Command("/proc/self/exe")
	cmd.Args = []string{"snaptrace-native-helper"}
	cmd.Env = []string{}
	cmd.SysProcAttr = &syscall.SysProcAttr{Ptrace: true, Pdeathsig: syscall.SIGKILL}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(err, "failed to start helper process")
	}
	p := &process{pid: cmd.Process.Pid}
	cmd.Process.Release()
	s, err := p.wait()
	if err != nil {
		p.kill()
		return nil, err
	}
	if !s.trapped() {
		p.kill()
		return nil, errors.Errorf("helper process %s before tracing", s)
	}
	return p, nil
}

func (p *process) wait() (stop, error) {
	var ws unix.WaitStatus
	for {
		_, err := unix.Wait4(p.pid, &ws, 0, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return stop{}, errors.Wrap(err, "wait4() failed")
		}
		break
	}
	switch {
	case ws.Exited():
		return stop{exited: true, status: ws.ExitStatus()}, nil
	case ws.Signaled():
		return stop{exited: true, signal: syscall.Signal(ws.Signal())}, nil
	}
	return stop{signal: syscall.Signal(ws.StopSignal())}, nil
}

func (p *process) singleStep() (stop, error) {
	if err := unix.PtraceSingleStep(p.pid); err != nil {
		return stop{}, errors.Wrap(err, "PTRACE_SINGLESTEP failed")
	}
	return p.wait()
}

func (p *process) peek(addr uint64, buf []byte) error {
	n, err := unix.PtracePeekData(p.pid, uintptr(addr), buf)
	if err != nil {
		return errors.Wrapf(err, "PTRACE_PEEKDATA at %#x failed", addr)
	}
	if n != len(buf) {
		return errors.Errorf("short read at %#x: %d of %d bytes", addr, n, len(buf))
	}
	return nil
}

func (p *process) poke(addr uint64, buf []byte) error {
	n, err := unix.PtracePokeData(p.pid, uintptr(addr), buf)
	if err != nil {
		return errors.Wrapf(err, "PTRACE_POKEDATA at %#x failed", addr)
	}
	if n != len(buf) {
		return errors.Errorf("short write at %#x: %d of %d bytes", addr, n, len(buf))
	}
	return nil
}

func (p *process) regset(req, note int, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	iov := unix.Iovec{Base: &buf[0]}
	iov.SetLen(len(buf))
	_, _, errno := unix.Syscall6(unix.SYS_PTRACE, uintptr(req), uintptr(p.pid),
		uintptr(note), uintptr(unsafe.Pointer(&iov)), 0, 0)
	if errno != 0 {
		return 0, errno
	}
	return int(iov.Len), nil
}

func (p *process) GetRegset(note int, buf []byte) (int, error) {
	n, err := p.regset(unix.PTRACE_GETREGSET, note, buf)
	return n, errors.Wrapf(err, "PTRACE_GETREGSET %#x failed", note)
}

func (p *process) SetRegset(note int, buf []byte) error {
	_, err := p.regset(unix.PTRACE_SETREGSET, note, buf)
	return errors.Wrapf(err, "PTRACE_SETREGSET %#x failed", note)
}

func (p *process) kill() error {
	if err := unix.Kill(p.pid, unix.SIGKILL); err != nil && err != unix.ESRCH {
		return errors.Wrap(err, "failed to kill helper process")
	}
	for {
		s, err := p.wait()
		if err != nil || s.exited {
			return nil
		}
	}
}

var mmapSyscall uint64 = unix.SYS_MMAP

const mmapFlags = unix.MAP_FIXED | unix.MAP_PRIVATE | unix.MAP_ANONYMOUS | unix.MAP_NORESERVE
