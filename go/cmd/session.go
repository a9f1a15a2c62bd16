package cmd

import (
	"github.com/snaptrace/snaptrace/go/analysis"
	"github.com/snaptrace/snaptrace/go/models"
	"github.com/snaptrace/snaptrace/go/tracer"
)

// Session binds a parsed command line to one architecture's types.
type Session[U comparable, E, X any] struct {
	*SnippetCmd
	A         *analysis.Arch[U, E, X]
	NewTracer analysis.Factory[U, E]
	Snippet   analysis.Snippet
}

func NewSession[U comparable, E, X any](c *SnippetCmd, a *analysis.Arch[U, E, X], newTracer func(tracer.Kind) (models.Tracer[U, E], error)) *Session[U, E, X] {
	return &Session[U, E, X]{
		SnippetCmd: c,
		A:          a,
		NewTracer:  func() (models.Tracer[U, E], error) { return newTracer(c.Kind) },
		Snippet: analysis.Snippet{
			Insns:  c.Insns,
			Config: c.Config.TracerConfig(),
			Fuzz:   c.Fuzz,
		},
	}
}

// Capture traces the snippet once. The trace is returned even if the run
// failed part way.
func (s *Session[U, E, X]) Capture() (*analysis.Trace[U, X], error) {
	t, err := s.NewTracer()
	if err != nil {
		return nil, err
	}
	defer t.Close()
	if err := t.InitSnippet(s.Snippet.Insns, s.Snippet.Config, s.Snippet.Fuzz); err != nil {
		return nil, err
	}
	dis, err := s.Disassembler()
	if err != nil {
		return nil, err
	}
	defer dis.Close()
	return analysis.CaptureTrace(s.A, t, dis, s.Config.MaxInstructions)
}
