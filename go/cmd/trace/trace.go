package trace

import (
	"os"

	"github.com/pkg/errors"

	"github.com/snaptrace/snaptrace/go/analysis"
	"github.com/snaptrace/snaptrace/go/cmd"
	"github.com/snaptrace/snaptrace/go/models"
	"github.com/snaptrace/snaptrace/go/tracer"
)

type options struct {
	regs     bool
	to       string
	endState bool
}

func run[U comparable, E, X any](s *cmd.Session[U, E, X], o *options) error {
	t, err := s.Capture()
	if t == nil {
		return err
	}
	r := &cmd.Report{W: s.Out, Color: s.Color, Regs: o.regs}
	cmd.PrintTrace(r, s.A, t)
	cmd.PrintStats(r, s.A, t)
	cmd.PrintDistance(r, s.A, t)
	if err != nil {
		return err
	}

	if o.to != "" {
		f, err := os.Create(o.to)
		if err != nil {
			return errors.Wrap(err, "failed to create trace file")
		}
		if err := analysis.Save(s.A, f, t); err != nil {
			return err
		}
	}
	if o.endState {
		st, err := analysis.ComputeEndState(s.NewTracer, s.Snippet, s.Config.MaxInstructions)
		if err != nil {
			return err
		}
		agree := st.Regs == t.FinalRegs && st.MemoryChecksum == t.MemoryChecksum
		cmd.PrintEndState(r, st.MemoryChecksum, agree)
	}
	return nil
}

func Main(args []string) {
	c := cmd.NewSnippetCmd()
	o := &options{}
	c.Flags.BoolVar(&o.regs, "regs", false, "list the registers each instruction changed")
	c.Flags.StringVar(&o.to, "to", "", "save the trace to this file")
	c.Flags.BoolVar(&o.endState, "endstate", false, "recompute the end state on three fresh tracers and compare")
	if err := c.Parse(args); err != nil {
		c.Exit(err)
	}
	var err error
	switch c.Arch.ID {
	case models.ArchX86_64:
		err = run(cmd.NewSession(c, analysis.X86_64, tracer.NewX86_64), o)
	case models.ArchArm64:
		err = run(cmd.NewSession(c, analysis.Arm64, tracer.NewArm64), o)
	}
	c.Exit(err)
}

func init() { cmd.Register("print", "trace a snippet and print every instruction", Main) }
