package main

import (
	"github.com/snaptrace/snaptrace/go/cmd"

	_ "github.com/snaptrace/snaptrace/go/cmd/trace"

	_ "github.com/snaptrace/snaptrace/go/cmd/analyze"
	_ "github.com/snaptrace/snaptrace/go/cmd/dump"
)

func main() { cmd.Main() }
