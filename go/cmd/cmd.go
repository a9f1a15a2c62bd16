// Package cmd holds the plumbing shared by the snaptrace subcommands.
package cmd

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/snaptrace/snaptrace/go/arch"
	"github.com/snaptrace/snaptrace/go/cpu"
	"github.com/snaptrace/snaptrace/go/models"
	"github.com/snaptrace/snaptrace/go/platform"
	"github.com/snaptrace/snaptrace/go/tracer"
)

// SnippetCmd parses the flags every snippet subcommand shares and loads the
// snippet they name.
type SnippetCmd struct {
	Config *models.Config
	Flags  *flag.FlagSet

	// set to describe positional arguments in the usage line
	ArgsUsage string
	// when set, no snippet is loaded and positional arguments are left alone
	NoSnippet bool

	Arch  *models.Arch
	Kind  tracer.Kind
	Fuzz  models.FuzzingConfig
	Insns []byte
	Out   io.Writer
	Color bool

	outFile *os.File
}

func NewSnippetCmd() *SnippetCmd {
	return &SnippetCmd{
		Flags:     flag.NewFlagSet("cli", flag.ExitOnError),
		ArgsUsage: "<snippet.bin>",
	}
}

// Parse loads the config file, applies flags on top of it and reads the
// snippet from -asm, -hex, or the file named by the only positional
// argument ("-" for stdin).
func (c *SnippetCmd) Parse(args []string) error {
	config, err := models.LoadConfig()
	if err != nil {
		return err
	}
	c.Config = config

	fs := c.Flags
	archName := fs.String("arch", config.Arch, "target architecture ("+strings.Join(arch.Names(), ", ")+")")
	kindName := fs.String("tracer", config.Tracer, "tracer backend (unicorn, native)")
	fs.Uint64Var(&config.MaxInstructions, "max", config.MaxInstructions, "maximum number of instructions to execute")
	fs.BoolVar(&config.LimitedMemory, "limited", config.LimitedMemory, "use the small fuzzing memory layout")
	fs.BoolVar(&config.ForceA72, "a72", config.ForceA72, "emulate a Cortex-A72 (arm64, unicorn only)")
	fs.BoolVar(&config.Verbose, "v", config.Verbose, "verbose logging")
	color := fs.Bool("color", config.Color, "force colored output")
	asm := fs.String("asm", "", "assemble the snippet from this text instead of reading a file")
	hexArg := fs.String("hex", "", "hex encoded snippet")
	outfile := fs.String("o", "", "redirect output to file (default stdout)")
	cpuNum := fs.Int("cpu", -1, "pin the tracer to this CPU")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] %s\n\nOptions:\n", args[0], c.ArgsUsage)
		var flags []*flag.Flag
		fs.VisitAll(func(f *flag.Flag) { flags = append(flags, f) })
		models.PrintFlags(os.Stderr, flags)
	}
	fs.Parse(args[1:])

	log.SetOutput(colorable.NewColorableStderr())
	if config.Verbose {
		log.SetLevel(log.DebugLevel)
	}
	log.WithFields(log.Fields{"cpu": platform.CPUName(), "features": hostFeatures()}).Debug("host")

	c.Out = colorable.NewColorableStdout()
	c.Color = *color || isatty.IsTerminal(os.Stdout.Fd())
	if *outfile != "" {
		if c.outFile, err = os.Create(*outfile); err != nil {
			return errors.Wrap(err, "failed to open output file")
		}
		c.Out, c.Color = c.outFile, *color
	}
	config.Output, config.Color = c.Out, c.Color

	if *cpuNum >= 0 {
		if err := platform.SetCPUAffinity(*cpuNum); err != nil {
			return err
		}
	}
	if c.Kind, err = tracer.ParseKind(*kindName); err != nil {
		return err
	}
	if c.Arch, err = arch.GetArch(*archName); err != nil {
		return err
	}
	if c.Fuzz, err = arch.FuzzingConfig(c.Arch.ID, config.LimitedMemory); err != nil {
		return err
	}
	if c.NoSnippet {
		return nil
	}
	switch {
	case (*asm != "" || *hexArg != "") && fs.NArg() > 0, fs.NArg() > 1:
		return errors.New("too many positional arguments")
	case *asm != "":
		c.Insns, err = assemble(c.Arch.ID, *asm, c.Fuzz.Code.Start)
		return err
	case *hexArg != "":
		c.Insns, err = hex.DecodeString(*hexArg)
		return errors.Wrap(err, "failed to decode snippet")
	case fs.Arg(0) == "-":
		c.Insns, err = io.ReadAll(os.Stdin)
		return errors.Wrap(err, "failed to read snippet")
	case fs.NArg() == 1:
		c.Insns, err = os.ReadFile(fs.Arg(0))
		return errors.Wrap(err, "failed to read snippet")
	}
	fs.Usage()
	os.Exit(1)
	return nil
}

func hostFeatures() []string {
	var have []string
	for _, name := range platform.FeatureNames() {
		if f, err := platform.ParseFeature(name); err == nil && platform.HasFeature(f) {
			have = append(have, name)
		}
	}
	return have
}

// assemble accepts ';' or newline separated instructions.
func assemble(id models.ArchID, asm string, addr uint64) ([]byte, error) {
	k, err := cpu.NewKeystone(id)
	if err != nil {
		return nil, err
	}
	defer k.Close()
	return k.Asm(asm, addr)
}

// Disassembler opens a disassembler for the selected architecture.
func (c *SnippetCmd) Disassembler() (*cpu.Capstr, error) {
	return cpu.NewCapstr(c.Arch.ID)
}

func (c *SnippetCmd) Close() {
	if c.outFile != nil {
		c.outFile.Close()
	}
}

// Exit prints err, if any, and exits with a matching status.
func (c *SnippetCmd) Exit(err error) {
	c.Close()
	if err != nil {
		PrintError(err)
		os.Exit(1)
	}
	os.Exit(0)
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// PrintError prints an error, and a stacktrace if available.
func PrintError(err error) {
	fmt.Fprintf(os.Stderr, "%s\n", strings.Repeat("-", 40))
	fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	if kind := models.KindOf(err); kind != models.KindNone {
		fmt.Fprintf(os.Stderr, "Kind: %s\n", kind)
	}
	st, ok := err.(stackTracer)
	if !ok {
		return
	}
	// parse full path and method name for each stack frame
	var frames [][]string
	for _, f := range st.StackTrace() {
		fullpath := ""
		fileline := fmt.Sprintf("%s:%d", f, f)
		method := fmt.Sprintf("%n", f)

		frame := fmt.Sprintf("%+s", f)
		tmp := strings.SplitN(frame, "\n", 3)
		if len(tmp) == 2 {
			pathsplit := strings.Split(tmp[0], "/")
			method = pathsplit[len(pathsplit)-1]
			fullpath = strings.TrimSpace(tmp[1])
		}
		frames = append(frames, []string{fullpath, fileline, method})
		if method == "main.main" {
			break
		}
	}
	// calculate column widths
	widths := make([]int, 2)
	for _, f := range frames {
		for i, s := range f[:2] {
			if len(s) > widths[i] {
				widths[i] = len(s)
			}
		}
	}
	for _, f := range frames {
		for i := 0; i < 2; i++ {
			if widths[i] > 0 {
				pad := strings.Repeat(" ", widths[i]-len(f[i]))
				fmt.Fprintf(os.Stderr, "%s%s | ", f[i], pad)
			}
		}
		fmt.Fprintf(os.Stderr, "%s()\n", f[2])
	}
}
