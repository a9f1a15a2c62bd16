package models

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash/crc32"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

// Castagnoli is the CRC32C table shared by every checksum in the module.
var Castagnoli = crc32.MakeTable(crc32.Castagnoli)

// RegisterChecksum is a CRC32C over the register groups in Groups.
// Checksums over different group sets never compare equal.
type RegisterChecksum[G comparable] struct {
	Checksum uint32
	Groups   G
}

func (r RegisterChecksum[G]) String() string {
	return fmt.Sprintf("%08x(%v)", r.Checksum, r.Groups)
}

// UpdateChecksum folds p into a running CRC32C.
func UpdateChecksum(crc uint32, p []byte) uint32 {
	return crc32.Update(crc, Castagnoli, p)
}

// GroupSet is a register group set that round-trips through a bit word.
type GroupSet interface {
	comparable
	Bits() uint64
}

type checksumWire struct {
	Groups   uint64
	Checksum uint32
}

const checksumWireSize = 12

// SerializeRegisterChecksum packs r as a little-endian group word and CRC.
func SerializeRegisterChecksum[G GroupSet](r RegisterChecksum[G]) ([]byte, error) {
	var buf bytes.Buffer
	wire := &checksumWire{Groups: r.Groups.Bits(), Checksum: r.Checksum}
	if err := struc.PackWithOrder(&buf, wire, binary.LittleEndian); err != nil {
		return nil, errors.Wrap(err, "struc.Pack() failed")
	}
	return buf.Bytes(), nil
}

// DeserializeRegisterChecksum reverses SerializeRegisterChecksum. Empty input
// decodes to the zero checksum.
func DeserializeRegisterChecksum[G GroupSet](p []byte, fromBits func(uint64) (G, error)) (RegisterChecksum[G], error) {
	var ret RegisterChecksum[G]
	if len(p) == 0 {
		return ret, nil
	}
	var wire checksumWire
	if len(p) != checksumWireSize {
		return ret, errors.Errorf("cannot deserialize register checksum bytes: %s", hexPrefix(p, 32))
	}
	if err := struc.UnpackWithOrder(bytes.NewReader(p), &wire, binary.LittleEndian); err != nil {
		return ret, errors.Wrap(err, "struc.Unpack() failed")
	}
	groups, err := fromBits(wire.Groups)
	if err != nil {
		return ret, errors.Wrapf(err, "cannot deserialize register checksum bytes: %s", hexPrefix(p, 32))
	}
	ret.Groups, ret.Checksum = groups, wire.Checksum
	return ret, nil
}

func hexPrefix(p []byte, max int) string {
	if len(p) > max {
		return hex.EncodeToString(p[:max]) + "..."
	}
	return hex.EncodeToString(p)
}
