package x86_64

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"

	"github.com/snaptrace/snaptrace/go/models"
)

const (
	NumYmm    = 16
	YmmSize   = 32
	NumZmm    = 32
	ZmmSize   = 64
	NumOpmask = 8
)

const (
	groupAVX = 1 << iota
	groupAVX512
)

// RegisterGroupSet selects the extension register groups to save or checksum.
type RegisterGroupSet struct {
	AVX    bool
	AVX512 bool
}

func (g RegisterGroupSet) Bits() uint64 {
	var b uint64
	if g.AVX {
		b |= groupAVX
	}
	if g.AVX512 {
		b |= groupAVX512
	}
	return b
}

func (g RegisterGroupSet) Empty() bool {
	return !g.AVX && !g.AVX512
}

func (g RegisterGroupSet) String() string {
	return fmt.Sprintf("avx=%t avx512=%t", g.AVX, g.AVX512)
}

func RegisterGroupSetFromBits(b uint64) (RegisterGroupSet, error) {
	if b&^(groupAVX|groupAVX512) != 0 {
		return RegisterGroupSet{}, errors.Errorf("unknown x86_64 register groups %#x", b)
	}
	return RegisterGroupSet{AVX: b&groupAVX != 0, AVX512: b&groupAVX512 != 0}, nil
}

// RegisterGroupIOBuffer holds extension registers. Only the groups in
// Groups are meaningful.
type RegisterGroupIOBuffer struct {
	Groups RegisterGroupSet
	Ymm    [NumYmm * YmmSize]byte
	Zmm    [NumZmm * ZmmSize]byte
	Opmask [NumOpmask]uint64
}

func (b *RegisterGroupIOBuffer) YMM(i int) []byte { return b.Ymm[i*YmmSize : (i+1)*YmmSize] }
func (b *RegisterGroupIOBuffer) ZMM(i int) []byte { return b.Zmm[i*ZmmSize : (i+1)*ZmmSize] }

func (b *RegisterGroupIOBuffer) opmaskBytes() []byte {
	p := make([]byte, NumOpmask*8)
	for i, k := range b.Opmask {
		binary.LittleEndian.PutUint64(p[i*8:], k)
	}
	return p
}

type RegisterChecksum = models.RegisterChecksum[RegisterGroupSet]

// GetRegisterGroupsChecksum folds ymm when AVX is set, then zmm and the
// opmask registers when AVX512 is set.
func GetRegisterGroupsChecksum(buf *RegisterGroupIOBuffer) RegisterChecksum {
	var crc uint32
	if buf.Groups.AVX {
		crc = models.UpdateChecksum(crc, buf.Ymm[:])
	}
	if buf.Groups.AVX512 {
		crc = models.UpdateChecksum(crc, buf.Zmm[:])
		crc = models.UpdateChecksum(crc, buf.opmaskBytes())
	}
	return RegisterChecksum{Checksum: crc, Groups: buf.Groups}
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
