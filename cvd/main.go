// Command cvd follows crypto markets, a watchlist and a portfolio.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/etnz/cryptovault/cmd"
	"github.com/google/subcommands"
)

func main() {
	// completes and exits when invoked by the shell completion, see COMP_INSTALL=1 cvd.
	cmd.Completion(flag.CommandLine).Complete("cvd")

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	cmd.Register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
