package models

import (
	"math/bits"
)

// BitDiff stores a^b in diff. All three must have the same length.
func BitDiff(a, b, diff []byte) {
	for i := range a {
		diff[i] = a[i] ^ b[i]
	}
}

// AccumulateToggle ors bits that went 0->1 between from and to into zeroOne,
// and bits that went 1->0 into oneZero.
func AccumulateToggle(from, to, zeroOne, oneZero []byte) {
	for i := range from {
		zeroOne[i] |= ^from[i] & to[i]
		oneZero[i] |= from[i] &^ to[i]
	}
}

func PopCount(p []byte) int {
	n := 0
	for _, b := range p {
		n += bits.OnesCount8(b)
	}
	return n
}

func PopCount64(p []uint64) int {
	n := 0
	for _, v := range p {
		n += bits.OnesCount64(v)
	}
	return n
}
