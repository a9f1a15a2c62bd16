package analysis

import (
	"io"

	"github.com/pkg/errors"

	"github.com/snaptrace/snaptrace/go/models"
	"github.com/snaptrace/snaptrace/go/models/trace"
)

// Save writes t to w and closes it. Extension registers are not stored.
func Save[U comparable, E, X any](a *Arch[U, E, X], w io.WriteCloser, t *Trace[U, X]) error {
	tw, err := trace.NewWriter(w, trace.Header{
		Arch:            a.ID.String(),
		Entry:           t.Entry,
		MaxInstructions: t.MaxInstructions,
		MemoryChecksum:  t.MemoryChecksum,
	})
	if err != nil {
		w.Close()
		return err
	}
	for i := range t.Insns {
		info := &t.Insns[i]
		regs, err := models.PackLE(a.UContext(&info.Before))
		if err != nil {
			tw.Close()
			return err
		}
		rec := &trace.Record{
			Kind:     trace.RecordInsn,
			Critical: info.Critical,
			Address:  info.Address,
			Bytes:    info.Bytes,
			Regs:     regs,
		}
		if err := tw.Write(rec); err != nil {
			tw.Close()
			return err
		}
	}
	regs, err := models.PackLE(&t.FinalRegs)
	if err == nil {
		err = tw.Write(&trace.Record{Kind: trace.RecordFinal, Regs: regs})
	}
	if err != nil {
		tw.Close()
		return err
	}
	return tw.Close()
}

// Load reads a trace written by Save. When dis is not nil the instructions
// are disassembled again to recover their text.
func Load[U comparable, E, X any](a *Arch[U, E, X], r io.ReadCloser, dis Disassembler) (*Trace[U, X], error) {
	tr, err := trace.NewReader(r)
	if err != nil {
		r.Close()
		return nil, err
	}
	defer tr.Close()
	if id, err := tr.ArchID(); err != nil || id != a.ID {
		return nil, errors.Errorf("trace is for %q, not %s", tr.Header.Arch, a)
	}
	t := &Trace[U, X]{
		Entry:           tr.Header.Entry,
		MaxInstructions: tr.Header.MaxInstructions,
		MemoryChecksum:  tr.Header.MemoryChecksum,
	}
	for final := false; !final; {
		rec, err := tr.Next()
		if err == io.EOF {
			return nil, errors.New("trace ends without a final record")
		} else if err != nil {
			return nil, err
		}
		var u U
		var e E
		if err := models.UnpackLE(rec.Regs, &u); err != nil {
			return nil, err
		}
		switch rec.Kind {
		case trace.RecordInsn:
			info := InstructionInfo[X]{
				Address:  rec.Address,
				Size:     len(rec.Bytes),
				Bytes:    rec.Bytes,
				Mnemonic: "(bad)",
				Before:   a.Context(&u, &e),
				Critical: rec.Critical,
			}
			if dis != nil && info.Valid() {
				if insns, err := dis.Dis(info.Bytes, info.Address); err == nil && len(insns) > 0 {
					info.Mnemonic, info.OpStr = insns[0].Mnemonic(), insns[0].OpStr()
				}
			}
			t.Insns = append(t.Insns, info)
		case trace.RecordFinal:
			t.Final, t.FinalRegs = a.Context(&u, &e), u
			final = true
		default:
			return nil, errors.Errorf("unknown trace record kind %d", rec.Kind)
		}
	}
	return t, nil
}
