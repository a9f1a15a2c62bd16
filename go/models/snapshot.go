package models

import (
	"fmt"
)

type MemoryBytes struct {
	Start uint64
	Data  []byte
}

func (m MemoryBytes) Limit() uint64 {
	return m.Start + uint64(len(m.Data))
}

// SnapshotRegisters holds packed little-endian register images.
type SnapshotRegisters struct {
	GRegs  []byte
	FPRegs []byte
}

// Snapshot is the initial machine state a tracer starts a snippet from.
// Tracers only read it.
type Snapshot struct {
	Arch       ArchID
	Mapped     MappedMemoryMap
	Memory     []MemoryBytes
	Registers  SnapshotRegisters
	EndAddress uint64
}

func (s *Snapshot) String() string {
	return fmt.Sprintf("<Snapshot %s %d regions, %d memory blocks, end %#x>",
		s.Arch, s.Mapped.Len(), len(s.Memory), s.EndAddress)
}
