package models

import (
	"fmt"
	"strings"

	"github.com/mgutz/ansi"
)

var chSame = ansi.ColorCode("default:default")
var chNew = ansi.ColorCode("default+bu:default")

func colorPad(s, color string, pad int) string {
	length := len(s)
	s = color + s + ansi.Reset
	if length < pad {
		s = strings.Repeat(" ", pad-length) + s
	}
	return s
}

// a run of hex digits that either all changed or all stayed the same
type digitRun struct {
	Digits  string
	Changed bool
}

type Change struct {
	Name     string
	Old, New uint64
}

func (c *Change) Changed() bool {
	return c.Old != c.New
}

func (c *Change) runs(width int) []digitRun {
	hexFmt := fmt.Sprintf("%%0%dx", width)
	now, was := fmt.Sprintf(hexFmt, c.New), fmt.Sprintf(hexFmt, c.Old)
	var runs []digitRun
	start := 0
	for i := 1; i <= len(now); i++ {
		if i == len(now) || (now[i] != was[i]) != (now[start] != was[start]) {
			runs = append(runs, digitRun{now[start:i], now[start] != was[start]})
			start = i
		}
	}
	return runs
}

func (c *Change) String(width int, color bool) string {
	hexFmt := fmt.Sprintf("%%0%dx", width)
	name := fmt.Sprintf("%6s", c.Name)
	switch {
	case !c.Changed():
		return fmt.Sprintf("  %s 0x"+hexFmt, name, c.New)
	case !color:
		return fmt.Sprintf("+ %s 0x"+hexFmt, name, c.New)
	}
	var out strings.Builder
	out.WriteString("  " + colorPad(c.Name, chNew, 6) + " 0x")
	for _, r := range c.runs(width) {
		if r.Changed {
			out.WriteString(chNew + r.Digits)
		} else {
			out.WriteString(chSame + r.Digits)
		}
	}
	out.WriteString(ansi.Reset)
	return out.String()
}

// Changes is a register dump annotated against an earlier dump.
type Changes struct {
	Width   int
	Changes []*Change
}

// DiffRegs pairs registers by name. Registers missing from old compare against zero.
func DiffRegs(old, regs []RegVal, bits int) *Changes {
	prev := make(map[string]uint64, len(old))
	for _, r := range old {
		prev[r.Name] = r.Val
	}
	cs := &Changes{Width: bits / 4}
	for _, r := range regs {
		cs.Changes = append(cs.Changes, &Change{Name: r.Name, Old: prev[r.Name], New: r.Val})
	}
	return cs
}

func (cs *Changes) Changed() []*Change {
	var ret []*Change
	for _, c := range cs.Changes {
		if c.Changed() {
			ret = append(ret, c)
		}
	}
	return ret
}

func (cs *Changes) Count() int {
	return len(cs.Changed())
}

func (cs *Changes) Find(name string) *Change {
	for _, c := range cs.Changes {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// String lays the registers out column-major, cols per row.
func (cs *Changes) String(cols int, color bool) string {
	if len(cs.Changes) == 0 {
		return ""
	}
	rows := (len(cs.Changes) + cols - 1) / cols
	var out strings.Builder
	for i := 0; i < rows; i++ {
		var row []string
		for j := i; j < len(cs.Changes); j += rows {
			row = append(row, cs.Changes[j].String(cs.Width, color))
		}
		out.WriteString(strings.Join(row, " "))
		out.WriteString("\n")
	}
	return out.String()
}
