package arch

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/snaptrace/snaptrace/go/arch/arm64"
	"github.com/snaptrace/snaptrace/go/arch/x86_64"
	"github.com/snaptrace/snaptrace/go/models"
)

var archMap = map[models.ArchID]*models.Arch{
	models.ArchX86_64: x86_64.Arch,
	models.ArchArm64:  arm64.Arch,
}

func GetArch(name string) (*models.Arch, error) {
	id, err := models.ParseArchID(name)
	if err != nil {
		return nil, err
	}
	return ByID(id)
}

func ByID(id models.ArchID) (*models.Arch, error) {
	a, ok := archMap[id]
	if !ok {
		return nil, errors.Errorf("arch %s not supported", id)
	}
	return a, nil
}

// FuzzingConfig returns the default or limited memory config for id.
func FuzzingConfig(id models.ArchID, limited bool) (models.FuzzingConfig, error) {
	switch id {
	case models.ArchX86_64:
		if limited {
			return x86_64.LimitedMemoryFuzzingConfig(), nil
		}
		return x86_64.DefaultFuzzingConfig(), nil
	case models.ArchArm64:
		if limited {
			return arm64.LimitedMemoryFuzzingConfig(), nil
		}
		return arm64.DefaultFuzzingConfig(), nil
	}
	return models.FuzzingConfig{}, errors.Errorf("arch %s not supported", id)
}

func Names() []string {
	var ret []string
	for id := range archMap {
		ret = append(ret, id.String())
	}
	sort.Strings(ret)
	return ret
}
