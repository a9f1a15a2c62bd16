package models

import (
	"bytes"
	"encoding/binary"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

// PackLE serializes a fixed-layout struct the way the kernel lays it out on little-endian hosts.
func PackLE(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := struc.PackWithOrder(&buf, v, binary.LittleEndian); err != nil {
		return nil, errors.Wrap(err, "struc.Pack() failed")
	}
	return buf.Bytes(), nil
}

// UnpackLE is the inverse of PackLE. p must be exactly the size of v.
func UnpackLE(p []byte, v interface{}) error {
	size, err := struc.Sizeof(v)
	if err != nil {
		return errors.Wrap(err, "struc.Sizeof() failed")
	}
	if len(p) != size {
		return errors.Errorf("register image is %d bytes, want %d", len(p), size)
	}
	return errors.Wrap(struc.UnpackWithOrder(bytes.NewReader(p), v, binary.LittleEndian), "struc.Unpack() failed")
}
