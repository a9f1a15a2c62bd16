package analyze

import (
	"context"
	"os"
	"os/signal"

	"github.com/snaptrace/snaptrace/go/analysis"
	"github.com/snaptrace/snaptrace/go/cmd"
	"github.com/snaptrace/snaptrace/go/models"
	"github.com/snaptrace/snaptrace/go/tracer"
)

func run[U comparable, E, X any](ctx context.Context, s *cmd.Session[U, E, X], workers int) error {
	t, err := s.Capture()
	if err != nil {
		return err
	}
	res, err := analysis.InjectFaults(ctx, s.NewTracer, s.Snippet, t, workers)
	if err != nil {
		return err
	}
	r := &cmd.Report{W: s.Out, Color: s.Color, FaultInjection: true}
	cmd.PrintFaultInjection(r, res)
	cmd.PrintTrace(r, s.A, t)
	cmd.PrintStats(r, s.A, t)
	return nil
}

func Main(args []string) {
	c := cmd.NewSnippetCmd()
	workers := c.Flags.Int("workers", 0, "parallel fault injection runs (default from config)")
	if err := c.Parse(args); err != nil {
		c.Exit(err)
	}
	if *workers <= 0 {
		*workers = c.Config.Workers
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch c.Arch.ID {
	case models.ArchX86_64:
		err = run(ctx, cmd.NewSession(c, analysis.X86_64, tracer.NewX86_64), *workers)
	case models.ArchArm64:
		err = run(ctx, cmd.NewSession(c, analysis.Arm64, tracer.NewArm64), *workers)
	}
	stop()
	c.Exit(err)
}

func init() {
	cmd.Register("analyze", "measure how many skipped instructions change a snippet's end state", Main)
}
