// Package trace stores execution traces as a struc-packed header followed by
// a snappy-compressed stream of instruction records.
package trace

import (
	"encoding/binary"
	"io"
	"strings"

	"github.com/golang/snappy"
	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"

	"github.com/snaptrace/snaptrace/go/models"
)

const (
	Magic   = "SNTR"
	Version = 1
)

var order = binary.LittleEndian

type Header struct {
	Magic   string `struc:"[4]byte"`
	Version uint32

	// architecture name, right-null-padded
	Arch string `struc:"[16]byte"`

	Entry           uint64
	MaxInstructions uint64
	MemoryChecksum  uint32
}

type RecordKind uint8

const (
	// register context before an executed instruction
	RecordInsn RecordKind = 1
	// register context after the last instruction
	RecordFinal RecordKind = 2
)

type Record struct {
	Kind     RecordKind `struc:"uint8"`
	Critical bool
	Address  uint64
	Size     uint8 `struc:"uint8,sizeof=Bytes"`
	Bytes    []byte
	RegsLen  uint32 `struc:"uint32,sizeof=Regs"`
	Regs     []byte
}

type Writer struct {
	w  io.WriteCloser
	zw *snappy.Writer
}

func NewWriter(w io.WriteCloser, h Header) (*Writer, error) {
	h.Magic, h.Version = Magic, Version
	if err := struc.PackWithOrder(w, &h, order); err != nil {
		return nil, errors.Wrap(err, "failed to pack header")
	}
	return &Writer{w: w, zw: snappy.NewBufferedWriter(w)}, nil
}

func (t *Writer) Write(r *Record) error {
	return errors.Wrap(struc.PackWithOrder(t.zw, r, order), "failed to pack record")
}

func (t *Writer) Close() error {
	if err := t.zw.Close(); err != nil {
		t.w.Close()
		return err
	}
	return t.w.Close()
}

type Reader struct {
	r      io.ReadCloser
	zr     *snappy.Reader
	Header Header
}

func NewReader(r io.ReadCloser) (*Reader, error) {
	t := &Reader{r: r}
	if err := struc.UnpackWithOrder(r, &t.Header, order); err != nil {
		return nil, errors.Wrap(err, "failed to unpack header")
	}
	if t.Header.Magic != Magic {
		return nil, errors.New("invalid trace file magic")
	}
	if t.Header.Version != Version {
		return nil, errors.Errorf("unsupported trace file version %d", t.Header.Version)
	}
	t.Header.Arch = strings.TrimRight(t.Header.Arch, "\x00")
	t.zr = snappy.NewReader(r)
	return t, nil
}

// ArchID parses the header's architecture name.
func (t *Reader) ArchID() (models.ArchID, error) {
	return models.ParseArchID(t.Header.Arch)
}

// Next returns io.EOF after the last record.
func (t *Reader) Next() (*Record, error) {
	var rec Record
	if err := struc.UnpackWithOrder(t.zr, &rec, order); err != nil {
		if err == io.EOF || errors.Cause(err) == io.EOF {
			return nil, io.EOF
		}
		return nil, errors.Wrap(err, "failed to unpack record")
	}
	return &rec, nil
}

func (t *Reader) Close() error {
	t.zr.Reset(nil)
	return t.r.Close()
}
