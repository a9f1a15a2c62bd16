//go:build linux

package platform

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// SVEVectorWidth is the calling thread's SVE vector length in bytes.
func SVEVectorWidth() (int, error) {
	ret, err := unix.PrctlRetInt(unix.PR_SVE_GET_VL, 0, 0, 0, 0)
	if err != nil {
		return 0, errors.Wrap(err, "prctl(PR_SVE_GET_VL) failed")
	}
	return ret & unix.PR_SVE_VL_LEN_MASK, nil
}

// lastAffinity is the cpu most recently passed to SetCPUAffinity, or -1.
// It has a single writer in practice, so the last caller wins and nothing
// guards it.
var lastAffinity = -1

// SetCPUAffinity pins the calling thread to one cpu.
func SetCPUAffinity(cpu int) error {
	var set unix.CPUSet
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return errors.Wrapf(err, "failed to pin to cpu %d", cpu)
	}
	lastAffinity = cpu
	return nil
}

func LastCPUAffinity() int {
	return lastAffinity
}

// AvailableCPUs lists the cpus the calling thread may run on.
func AvailableCPUs() ([]int, error) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return nil, errors.Wrap(err, "sched_getaffinity() failed")
	}
	var cpus []int
	for i := 0; len(cpus) < set.Count(); i++ {
		if set.IsSet(i) {
			cpus = append(cpus, i)
		}
	}
	return cpus, nil
}
