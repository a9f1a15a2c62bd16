// Package tracer picks a tracing backend by name.
package tracer

import (
	"github.com/pkg/errors"

	"github.com/snaptrace/snaptrace/go/arch/arm64"
	"github.com/snaptrace/snaptrace/go/arch/x86_64"
	"github.com/snaptrace/snaptrace/go/cpu/unicorn"
	"github.com/snaptrace/snaptrace/go/models"
	"github.com/snaptrace/snaptrace/go/tracer/emu"
	"github.com/snaptrace/snaptrace/go/tracer/native"
)

type Kind int

const (
	KindUnicorn Kind = iota
	KindNative
)

var kindNames = map[Kind]string{
	KindUnicorn: "unicorn",
	KindNative:  "native",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

func ParseKind(name string) (Kind, error) {
	for k, v := range kindNames {
		if v == name {
			return k, nil
		}
	}
	return 0, errors.Errorf("unknown tracer %q, want unicorn or native", name)
}

type (
	X86_64 = models.Tracer[x86_64.UContext, x86_64.RegisterGroupIOBuffer]
	Arm64  = models.Tracer[arm64.UContext, arm64.RegisterGroupIOBuffer]

	X86_64Control = models.TracerControl[x86_64.UContext, x86_64.RegisterGroupIOBuffer]
	Arm64Control  = models.TracerControl[arm64.UContext, arm64.RegisterGroupIOBuffer]
)

func NewX86_64(kind Kind) (X86_64, error) {
	switch kind {
	case KindUnicorn:
		return emu.New[x86_64.UContext, x86_64.RegisterGroupIOBuffer](unicorn.X86_64{}), nil
	case KindNative:
		if !x86_64.Arch.Native() {
			return nil, models.Errorf(models.KindSetup, "native tracer cannot run %s on this host", x86_64.Arch)
		}
		return native.New[x86_64.UContext, x86_64.RegisterGroupIOBuffer](native.X86_64{}), nil
	}
	return nil, errors.Errorf("unknown tracer kind %d", kind)
}

func NewArm64(kind Kind) (Arm64, error) {
	switch kind {
	case KindUnicorn:
		return emu.New[arm64.UContext, arm64.RegisterGroupIOBuffer](unicorn.Arm64{}), nil
	case KindNative:
		if !arm64.Arch.Native() {
			return nil, models.Errorf(models.KindSetup, "native tracer cannot run %s on this host", arm64.Arch)
		}
		return native.New[arm64.UContext, arm64.RegisterGroupIOBuffer](native.Arm64{}), nil
	}
	return nil, errors.Errorf("unknown tracer kind %d", kind)
}
