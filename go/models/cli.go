package models

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

// PrintFlags writes flag usage wrapped to 80 columns.
func PrintFlags(w io.Writer, flags []*flag.Flag) {
	wname := 0
	wdef := 0
	for _, f := range flags {
		if len(f.Name) > wname {
			wname = len(f.Name)
		}
		if len(f.DefValue) > wdef {
			wdef = len(f.DefValue)
		}
	}
	wdesc := 80 - wname - wdef - 7
	if wdesc < 20 {
		wdesc = 20
	}

	namefmt := fmt.Sprintf("%%-%ds", wname)
	deffmt := fmt.Sprintf("%%-%ds ", wdef+2)
	lpad := strings.Repeat(" ", wname+wdef+7)
	for _, f := range flags {
		fmt.Fprintf(w, "  -"+namefmt, f.Name)
		def := "  "
		if f.DefValue != "" && f.DefValue != "[]" {
			def = "(" + f.DefValue + ")"
		}
		fmt.Fprintf(w, " "+deffmt, def)
		for i, line := range wrap(f.Usage, wdesc) {
			if i > 0 {
				fmt.Fprint(w, lpad)
			}
			fmt.Fprintln(w, line)
		}
	}
}

// wrap splits s on spaces and newlines so no line exceeds width, unless a single word does.
func wrap(s string, width int) []string {
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		for len(para) > width {
			cut := strings.LastIndexByte(para[:width+1], ' ')
			if cut <= 0 {
				cut = strings.IndexByte(para, ' ')
			}
			if cut < 0 {
				break
			}
			lines = append(lines, para[:cut])
			para = para[cut+1:]
		}
		lines = append(lines, para)
	}
	return lines
}
