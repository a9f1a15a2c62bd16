// Package platform answers questions about the host CPU.
package platform

import (
	"sort"

	"github.com/klauspost/cpuid/v2"
	"github.com/pkg/errors"

	"github.com/snaptrace/snaptrace/go/arch/arm64"
	"github.com/snaptrace/snaptrace/go/arch/x86_64"
)

type Feature int

const (
	FeatureAVX Feature = iota
	FeatureAVX512F
	FeatureSVE
)

var features = map[Feature]struct {
	name string
	id   cpuid.FeatureID
}{
	FeatureAVX:     {"avx", cpuid.AVX},
	FeatureAVX512F: {"avx512f", cpuid.AVX512F},
	FeatureSVE:     {"sve", cpuid.SVE},
}

func (f Feature) String() string {
	if v, ok := features[f]; ok {
		return v.name
	}
	return "unknown"
}

func ParseFeature(name string) (Feature, error) {
	for f, v := range features {
		if v.name == name {
			return f, nil
		}
	}
	return 0, errors.Errorf("unknown cpu feature %q", name)
}

// FeatureNames lists every known feature, sorted.
func FeatureNames() []string {
	var names []string
	for _, v := range features {
		names = append(names, v.name)
	}
	sort.Strings(names)
	return names
}

// HasFeature reads the feature bits detected once at startup.
func HasFeature(f Feature) bool {
	v, ok := features[f]
	return ok && cpuid.CPU.Supports(v.id)
}

// CPUName is the brand string, or empty where the host does not report one.
func CPUName() string {
	return cpuid.CPU.BrandName
}

// X86RegisterGroups is every x86_64 register group the host can save.
func X86RegisterGroups() x86_64.RegisterGroupSet {
	return x86_64.RegisterGroupSet{
		AVX:    HasFeature(FeatureAVX),
		AVX512: HasFeature(FeatureAVX512F),
	}
}

// Arm64RegisterGroups is every arm64 register group the host can save.
func Arm64RegisterGroups() arm64.RegisterGroupSet {
	if !HasFeature(FeatureSVE) {
		return arm64.RegisterGroupSet{}
	}
	vl, err := SVEVectorWidth()
	if err != nil || !arm64.ValidSVEVectorWidth(vl) {
		return arm64.RegisterGroupSet{}
	}
	return arm64.RegisterGroupSet{SVEVectorWidth: uint16(vl)}
}
