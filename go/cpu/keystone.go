package cpu

import (
	ks "github.com/keystone-engine/keystone/bindings/go/keystone"
	"github.com/pkg/errors"

	"github.com/snaptrace/snaptrace/go/models"
)

type Keystone struct {
	Arch ks.Architecture
	Mode ks.Mode
	ks   *ks.Keystone
}

// NewKeystone returns a lazily opened assembler for arch.
func NewKeystone(arch models.ArchID) (*Keystone, error) {
	switch arch {
	case models.ArchX86_64:
		return &Keystone{Arch: ks.ARCH_X86, Mode: ks.MODE_64}, nil
	case models.ArchArm64:
		return &Keystone{Arch: ks.ARCH_ARM64, Mode: ks.MODE_LITTLE_ENDIAN}, nil
	}
	return nil, errors.Errorf("no assembler for %s", arch)
}

func (k *Keystone) Open() (err error) {
	k.ks, err = ks.New(k.Arch, k.Mode)
	return errors.Wrap(err, "ks.New() failed")
}

// Asm assembles a snippet as if it were loaded at addr.
func (k *Keystone) Asm(asm string, addr uint64) ([]byte, error) {
	if k.ks == nil {
		if err := k.Open(); err != nil {
			return nil, err
		}
	}
	out, _, ok := k.ks.Assemble(asm, addr)
	if !ok {
		return nil, errors.Wrapf(k.ks.LastError(), "failed to assemble %q", asm)
	}
	return out, nil
}

func (k *Keystone) Close() error {
	if k.ks == nil {
		return nil
	}
	err := k.ks.Close()
	k.ks = nil
	return err
}
