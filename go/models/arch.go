package models

import (
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/lunixbochs/fvbommel-util/sortorder"
	"github.com/pkg/errors"
)

type ArchID uint8

const (
	ArchUndefined ArchID = iota
	ArchX86_64
	ArchArm64
)

var archNames = map[ArchID]string{
	ArchUndefined: "undefined",
	ArchX86_64:    "x86_64",
	ArchArm64:     "arm64",
}

func (a ArchID) String() string {
	if name, ok := archNames[a]; ok {
		return name
	}
	return fmt.Sprintf("ArchID(%d)", uint8(a))
}

// ParseArchID accepts the canonical names plus the common aliases used by Go and the kernel.
func ParseArchID(name string) (ArchID, error) {
	switch strings.ToLower(name) {
	case "x86_64", "amd64", "x86-64":
		return ArchX86_64, nil
	case "arm64", "aarch64":
		return ArchArm64, nil
	}
	return ArchUndefined, errors.Errorf("unknown architecture %q", name)
}

// HostArchID returns the architecture this binary was built for.
func HostArchID() ArchID {
	switch runtime.GOARCH {
	case "amd64":
		return ArchX86_64
	case "arm64":
		return ArchArm64
	}
	return ArchUndefined
}

type Reg struct {
	Name string
}

type RegVal struct {
	Reg
	Val uint64
}

type regList []RegVal

func (r regList) Len() int           { return len(r) }
func (r regList) Swap(i, j int)      { r[i], r[j] = r[j], r[i] }
func (r regList) Less(i, j int) bool { return sortorder.NaturalLess(r[i].Name, r[j].Name) }

// SortRegs orders registers naturally by name (x2 before x10).
func SortRegs(regs []RegVal) {
	sort.Sort(regList(regs))
}

// Arch describes the fixed properties of a guest architecture.
type Arch struct {
	ID   ArchID
	Bits int

	PageSize uint64
	// first address past the user half of the virtual address space
	MaxUserAddress uint64

	// placed after every snippet so running past its end traps
	Trap []byte

	// general purpose registers, in display order
	Regs []string
}

func (a *Arch) String() string {
	return a.ID.String()
}

func (a *Arch) Native() bool {
	return a.ID == HostArchID()
}

func (a *Arch) PageAligned(addr uint64) bool {
	return addr%a.PageSize == 0
}

func (a *Arch) PageDown(addr uint64) uint64 {
	return addr &^ (a.PageSize - 1)
}

func (a *Arch) PageUp(addr uint64) uint64 {
	return (addr + a.PageSize - 1) &^ (a.PageSize - 1)
}
