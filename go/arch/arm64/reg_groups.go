package arm64

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/snaptrace/snaptrace/go/models"
)

const (
	SveNumZReg = 32
	SveNumPReg = 16
	// z registers are at most 2048 bits, in 128 bit steps
	SveZRegMaxSize   = 256
	SveZRegAlignment = 16
	// p registers are 1/8th of z
	SvePRegFactor  = 8
	SvePRegMaxSize = SveZRegMaxSize / SvePRegFactor
	SveFfrMaxSize  = SvePRegMaxSize
)

// RegisterGroupSet records the SVE vector width in bytes; zero means no SVE.
type RegisterGroupSet struct {
	SVEVectorWidth uint16
}

func (g RegisterGroupSet) Bits() uint64 {
	return uint64(g.SVEVectorWidth)
}

func (g RegisterGroupSet) Empty() bool {
	return g.SVEVectorWidth == 0
}

func (g RegisterGroupSet) String() string {
	return fmt.Sprintf("sve_vl=%d", g.SVEVectorWidth)
}

func ValidSVEVectorWidth(vl int) bool {
	return vl >= SveZRegAlignment && vl <= SveZRegMaxSize && vl%SveZRegAlignment == 0
}

func RegisterGroupSetFromBits(b uint64) (RegisterGroupSet, error) {
	if b != 0 && (b > SveZRegMaxSize || !ValidSVEVectorWidth(int(b))) {
		return RegisterGroupSet{}, errors.Errorf("invalid SVE vector width %d", b)
	}
	return RegisterGroupSet{SVEVectorWidth: uint16(b)}, nil
}

// RegisterGroupIOBuffer holds SVE state packed for the active vector
// width: z registers are vl bytes apart, p registers vl/8.
type RegisterGroupIOBuffer struct {
	Groups RegisterGroupSet
	Ffr    [SveFfrMaxSize]byte
	P      [SveNumPReg * SvePRegMaxSize]byte
	Z      [SveNumZReg * SveZRegMaxSize]byte
}

func (b *RegisterGroupIOBuffer) vl() int {
	return int(b.Groups.SVEVectorWidth)
}

func (b *RegisterGroupIOBuffer) ZReg(i int) []byte {
	vl := b.vl()
	return b.Z[i*vl : (i+1)*vl]
}

func (b *RegisterGroupIOBuffer) PReg(i int) []byte {
	pl := b.vl() / SvePRegFactor
	return b.P[i*pl : (i+1)*pl]
}

// active byte counts for vector width vl
func ZActiveSize(vl int) int   { return vl * SveNumZReg }
func PActiveSize(vl int) int   { return vl / SvePRegFactor * SveNumPReg }
func FfrActiveSize(vl int) int { return vl / SvePRegFactor }

type RegisterChecksum = models.RegisterChecksum[RegisterGroupSet]

// GetRegisterGroupsChecksum folds the whole ffr buffer, then the active p
// and z bytes. It panics on a vector width no CPU can have.
func GetRegisterGroupsChecksum(buf *RegisterGroupIOBuffer) RegisterChecksum {
	var ret RegisterChecksum
	vl := buf.vl()
	if vl == 0 {
		return ret
	}
	if !ValidSVEVectorWidth(vl) {
		panic(fmt.Sprintf("invalid SVE vector width %d", vl))
	}
	crc := models.UpdateChecksum(0, buf.Ffr[:])
	crc = models.UpdateChecksum(crc, buf.P[:PActiveSize(vl)])
	crc = models.UpdateChecksum(crc, buf.Z[:ZActiveSize(vl)])
	ret.Checksum = crc
	ret.Groups.SVEVectorWidth = uint16(vl)
	return ret
}

func SerializeRegisterChecksum(r RegisterChecksum) ([]byte, error) {
	return models.SerializeRegisterChecksum(r)
}

func DeserializeRegisterChecksum(p []byte) (RegisterChecksum, error) {
	return models.DeserializeRegisterChecksum(p, RegisterGroupSetFromBits)
}

func IsValidRegisterChecksum(p []byte) bool {
	_, err := DeserializeRegisterChecksum(p)
	return err == nil
}
