package models

import (
	"bytes"
	"flag"
	"strings"
	"testing"
)

func TestWrap(t *testing.T) {
	cases := []struct {
		in    string
		width int
		want  []string
	}{
		{"aaa bbb ccc\nddd", 7, []string{"aaa bbb", "ccc", "ddd"}},
		{"aaa bbb ccc", 6, []string{"aaa", "bbb", "ccc"}},
		{"abcdefghij kl", 5, []string{"abcdefghij", "kl"}},
		{"abcdefghij", 4, []string{"abcdefghij"}},
		{"", 4, []string{""}},
	}
	for _, c := range cases {
		lines := wrap(c.in, c.width)
		if strings.Join(lines, "|") != strings.Join(c.want, "|") {
			t.Errorf("wrap(%q, %d) = %q, want %q", c.in, c.width, lines, c.want)
		}
	}
}

func TestPrintFlags(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Uint64("max_instructions", 10000, "stop after this many instructions")
	fs.Bool("v", false, "verbose")
	var flags []*flag.Flag
	fs.VisitAll(func(f *flag.Flag) { flags = append(flags, f) })
	var buf bytes.Buffer
	PrintFlags(&buf, flags)
	out := buf.String()
	if !strings.Contains(out, "-max_instructions (10000)") || !strings.Contains(out, "verbose") {
		t.Fatalf("unexpected usage:\n%s", out)
	}
}
