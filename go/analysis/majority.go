package analysis

import (
	"github.com/pkg/errors"

	"github.com/snaptrace/snaptrace/go/models"
)

// ErrNoMajority is returned when three redundant results all disagree.
var ErrNoMajority = errors.New("end state could not be computed")

// MajorityEndState returns the value at least two of a, b and c agree on.
func MajorityEndState[T comparable](a, b, c T) (T, error) {
	if a == b || a == c {
		return a, nil
	}
	if b == c {
		return b, nil
	}
	var zero T
	return zero, ErrNoMajority
}

// EndState is what a run leaves behind.
type EndState[U comparable] struct {
	Regs           U
	MemoryChecksum uint32
}

// ComputeEndState runs the snippet three times on fresh tracers and votes on
// the result. A failed run is an error, not a vote.
func ComputeEndState[U comparable, E any](newTracer Factory[U, E], s Snippet, maxInsns uint64) (EndState[U], error) {
	var states [3]EndState[U]
	for i := range states {
		st, err := runOnce(newTracer, s, maxInsns)
		if err != nil {
			return EndState[U]{}, err
		}
		states[i] = st
	}
	st, err := MajorityEndState(states[0], states[1], states[2])
	if err != nil {
		return st, models.NewError(models.KindEngine, err)
	}
	return st, nil
}

func runOnce[U comparable, E any](newTracer Factory[U, E], s Snippet, maxInsns uint64) (EndState[U], error) {
	var st EndState[U]
	t, err := newTracer()
	if err != nil {
		return st, err
	}
	defer t.Close()
	if err := t.InitSnippet(s.Insns, s.Config, s.Fuzz); err != nil {
		return st, err
	}
	var cbErr error
	t.SetAfterExecutionCallback(func(c models.TracerControl[U, E]) {
		if cbErr = c.GetRegisters(&st.Regs, nil); cbErr != nil {
			return
		}
		st.MemoryChecksum, cbErr = c.PartialChecksumOfMutableMemory()
	})
	if err := t.Run(maxInsns); err != nil {
		return st, err
	}
	return st, cbErr
}
