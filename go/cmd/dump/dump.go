package dump

import (
	"os"

	"github.com/pkg/errors"

	"github.com/snaptrace/snaptrace/go/analysis"
	"github.com/snaptrace/snaptrace/go/cmd"
	"github.com/snaptrace/snaptrace/go/models"
	"github.com/snaptrace/snaptrace/go/models/trace"
)

func show[U comparable, E, X any](c *cmd.SnippetCmd, a *analysis.Arch[U, E, X], path string, r *cmd.Report) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "failed to open trace file")
	}
	dis, err := c.Disassembler()
	if err != nil {
		f.Close()
		return err
	}
	defer dis.Close()
	t, err := analysis.Load(a, f, dis)
	if err != nil {
		return err
	}
	cmd.PrintTrace(r, a, t)
	cmd.PrintStats(r, a, t)
	cmd.PrintDistance(r, a, t)
	return nil
}

// archOf peeks at a trace file's header.
func archOf(path string) (models.ArchID, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.ArchUndefined, errors.Wrap(err, "failed to open trace file")
	}
	tr, err := trace.NewReader(f)
	if err != nil {
		f.Close()
		return models.ArchUndefined, err
	}
	defer tr.Close()
	return tr.ArchID()
}

func Main(args []string) {
	c := cmd.NewSnippetCmd()
	c.NoSnippet = true
	c.ArgsUsage = "<tracefile>"
	regs := c.Flags.Bool("regs", false, "list the registers each instruction changed")
	crit := c.Flags.Bool("crit", false, "show fault injection verdicts")
	if err := c.Parse(args); err != nil {
		c.Exit(err)
	}
	if c.Flags.NArg() != 1 {
		c.Flags.Usage()
		os.Exit(1)
	}
	path := c.Flags.Arg(0)
	id, err := archOf(path)
	if err != nil {
		c.Exit(err)
	}
	r := &cmd.Report{W: c.Out, Color: c.Color, Regs: *regs, FaultInjection: *crit}
	// the file decides the architecture, not -arch
	c.Arch = analysis.Arm64.Arch
	if id == models.ArchX86_64 {
		c.Arch = analysis.X86_64.Arch
		c.Exit(show(c, analysis.X86_64, path, r))
	}
	c.Exit(show(c, analysis.Arm64, path, r))
}

func init() { cmd.Register("dump", "print a saved trace file", Main) }
