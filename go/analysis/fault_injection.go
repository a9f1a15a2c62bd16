package analysis

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/snaptrace/snaptrace/go/models"
)

// Factory returns a fresh tracer for each run.
type Factory[U, E any] func() (models.Tracer[U, E], error)

type FaultInjectionResult struct {
	InstructionCount    int
	FaultInjectionCount int
	FaultDetectionCount int
	Sensitivity         float64
}

// Snippet is everything needed to repeat a run.
type Snippet struct {
	Insns  []byte
	Config models.TracerConfig
	Fuzz   models.FuzzingConfig
}

// InjectFaults reruns the snippet once per traced instruction, skipping that
// instruction. A fault counts as detected if the run fails or its registers
// or sampled memory differ from the trace's end state. Critical is set on
// the trace's instructions accordingly. At most workers runs are in flight.
func InjectFaults[U comparable, E, X any](ctx context.Context, newTracer Factory[U, E], s Snippet, trace *Trace[U, X], workers int) (FaultInjectionResult, error) {
	n := trace.NumInstructions()
	detected := make([]bool, n)

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for skip := 0; skip < n; skip++ {
		if skip%100 == 0 {
			log.WithField("progress", 100*skip/n).Debug("fault injection")
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ok, err := runWithSkip(newTracer, s, trace, skip)
			if err != nil {
				return errors.Wrapf(err, "fault injection at instruction %d", skip)
			}
			detected[skip] = !ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return FaultInjectionResult{}, err
	}

	count := 0
	for i, d := range detected {
		trace.Insns[i].Critical = d
		if d {
			count++
		}
	}
	denom := n
	if denom < 1 {
		denom = 1
	}
	return FaultInjectionResult{
		InstructionCount:    n,
		FaultInjectionCount: n,
		FaultDetectionCount: count,
		Sensitivity:         float64(count) / float64(denom),
	}, nil
}

// runWithSkip reports whether the run matched the trace's end state. Only
// setup failures are returned as errors.
func runWithSkip[U comparable, E, X any](newTracer Factory[U, E], s Snippet, trace *Trace[U, X], skip int) (bool, error) {
	t, err := newTracer()
	if err != nil {
		return false, err
	}
	defer t.Close()
	if err := t.InitSnippet(s.Insns, s.Config, s.Fuzz); err != nil {
		return false, err
	}

	executed := 0
	t.SetBeforeInstructionCallback(func(c models.TracerControl[U, E]) {
		if executed == skip {
			if pc, err := c.GetInstructionPointer(); err == nil {
				c.SetInstructionPointer(pc + uint64(trace.Insns[skip].Size))
			}
		}
		executed++
	})
	var u U
	var sum uint32
	var endErr error
	t.SetAfterExecutionCallback(func(c models.TracerControl[U, E]) {
		if endErr = c.GetRegisters(&u, nil); endErr != nil {
			return
		}
		sum, endErr = c.PartialChecksumOfMutableMemory()
	})
	if err := t.Run(trace.MaxInstructions); err != nil || endErr != nil {
		return false, nil
	}
	return u == trace.FinalRegs && sum == trace.MemoryChecksum, nil
}
