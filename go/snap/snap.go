// Package snap turns a raw instruction snippet into the Snapshot every tracer starts from.
package snap

import (
	"bytes"

	"github.com/snaptrace/snaptrace/go/arch/arm64"
	"github.com/snaptrace/snaptrace/go/arch/x86_64"
	"github.com/snaptrace/snaptrace/go/models"
)

// CodeAddress picks the page inside the code range that holds insns.
// It only depends on the snippet bytes, so the same snippet always lands
// at the same address.
func CodeAddress(a *models.Arch, insns []byte, fc models.FuzzingConfig) uint64 {
	pages := fc.Code.NumBytes / a.PageSize
	hash := models.UpdateChecksum(0, insns)
	return fc.Code.Start + uint64(hash)%pages*a.PageSize
}

func initialRegisters(a *models.Arch, fc models.FuzzingConfig, pc uint64) (models.SnapshotRegisters, error) {
	switch a.ID {
	case models.ArchX86_64:
		return x86_64.PackRegisters(x86_64.InitialUContext(fc, pc))
	case models.ArchArm64:
		return arm64.PackRegisters(arm64.InitialUContext(fc, pc))
	}
	return models.SnapshotRegisters{}, models.Errorf(models.KindSetup, "arch %s not supported", a)
}

// InstructionsToSnapshot maps one code page holding insns followed by trap
// instructions, plus the config's stack and data regions. Execution is
// expected to end right after the last snippet byte.
func InstructionsToSnapshot(a *models.Arch, insns []byte, fc models.FuzzingConfig) (*models.Snapshot, error) {
	if err := fc.Validate(a); err != nil {
		return nil, models.WrapError(models.KindSetup, err, "invalid fuzzing config")
	}
	trap := a.Trap
	if uint64(len(insns)+len(trap)) > a.PageSize {
		return nil, models.Errorf(models.KindSetup, "snippet of %d bytes does not fit in a page", len(insns))
	}
	if len(insns)%len(trap) != 0 {
		return nil, models.Errorf(models.KindSetup, "snippet length %d is not a multiple of %d", len(insns), len(trap))
	}

	code := CodeAddress(a, insns, fc)
	page := make([]byte, 0, a.PageSize)
	page = append(page, insns...)
	page = append(page, bytes.Repeat(trap, int(a.PageSize)/len(trap)-len(insns)/len(trap))...)

	s := &models.Snapshot{
		Arch:       a.ID,
		Memory:     []models.MemoryBytes{{Start: code, Data: page}},
		EndAddress: code + uint64(len(insns)),
	}
	if err := s.Mapped.Add(code, code+a.PageSize, models.PermRX); err != nil {
		return nil, models.WrapError(models.KindSetup, err, "failed to map code")
	}
	for _, r := range fc.Ranges()[1:] {
		if err := s.Mapped.AddRange(r, models.PermRW); err != nil {
			return nil, models.WrapError(models.KindSetup, err, "failed to map data")
		}
	}
	regs, err := initialRegisters(a, fc, code)
	if err != nil {
		return nil, err
	}
	s.Registers = regs
	return s, nil
}
