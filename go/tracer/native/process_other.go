//go:build !linux

package native

import (
	"github.com/pkg/errors"
)

var errUnsupported = errors.New("native tracing requires linux")

type process struct {
	pid int
}

func startProcess() (*process, error) { return nil, errUnsupported }

func (p *process) wait() (stop, error)                         { return stop{}, errUnsupported }
func (p *process) singleStep() (stop, error)                   { return stop{}, errUnsupported }
func (p *process) peek(addr uint64, buf []byte) error          { return errUnsupported }
func (p *process) poke(addr uint64, buf []byte) error          { return errUnsupported }
func (p *process) GetRegset(note int, buf []byte) (int, error) { return 0, errUnsupported }
func (p *process) SetRegset(note int, buf []byte) error        { return errUnsupported }
func (p *process) kill() error                                 { return nil }

var mmapSyscall uint64

const mmapFlags = 0
