//go:build !linux

package platform

import (
	"github.com/pkg/errors"
)

func SVEVectorWidth() (int, error) {
	return 0, errors.New("SVE vector width is only known on linux")
}

func SetCPUAffinity(cpu int) error {
	return errors.New("cpu affinity is only supported on linux")
}

func LastCPUAffinity() int {
	return -1
}

func AvailableCPUs() ([]int, error) {
	return nil, errors.New("cpu affinity is only supported on linux")
}
