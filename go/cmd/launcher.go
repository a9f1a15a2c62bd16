package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
)

type command struct {
	name, desc string
	main       func(args []string)
}

var commands = make(map[string]*command)

// registration order, used for usage output
var order []string

// Register adds a subcommand. main receives "<prog> <name>" as args[0].
func Register(name, desc string, main func(args []string)) {
	commands[name] = &command{name, desc, main}
	order = append(order, name)
}

func usage(w io.Writer) {
	pad := 0
	for _, name := range order {
		pad = max(pad, len(name))
	}
	fmt.Fprintln(w, "Commands:")
	for _, name := range order {
		fmt.Fprintf(w, "  %-*s | %s\n", pad, name, commands[name].desc)
	}
	fmt.Fprintf(w, "\nExample: %s print -arch x86_64 -asm 'inc rax; nop'\n\n", os.Args[0])
}

func Main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(1)
	}
	name := os.Args[1]
	if name == "help" || name == "-h" {
		usage(os.Stdout)
		return
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "Command '%s' not found.\n\n", name)
		usage(os.Stderr)
		os.Exit(1)
	}
	cmd.main(append([]string{strings.Join(os.Args[:2], " ")}, os.Args[2:]...))
}
