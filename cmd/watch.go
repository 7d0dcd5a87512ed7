package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/cryptovault/renderer"
	"github.com/google/subcommands"
)

type watchCmd struct{}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "add coins to the watchlist" }
func (*watchCmd) Usage() string {
	return `cvd watch <id>...

  Adds coins to the watchlist. Coins must be among the 100 largest by market cap.
`
}

func (c *watchCmd) SetFlags(f *flag.FlagSet) {}

func (c *watchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: expecting at least one coin id")
		return subcommands.ExitUsageError
	}
	a, err := openApp(ctx, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if err := a.refresh(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	status := subcommands.ExitSuccess
	for _, id := range f.Args() {
		e, added, err := a.dash.Watch(ctx, id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error watching %q: %v\n", id, err)
			status = subcommands.ExitFailure
			continue
		}
		if !added {
			fmt.Fprintf(stdout, "%s is already watched\n", e.ID)
			continue
		}
		fmt.Fprintf(stdout, "Watching %s (%s)\n", e.Name, e.ID)
	}
	return status
}

type unwatchCmd struct{}

func (*unwatchCmd) Name() string     { return "unwatch" }
func (*unwatchCmd) Synopsis() string { return "remove coins from the watchlist" }
func (*unwatchCmd) Usage() string {
	return `cvd unwatch <id>...

  Removes coins from the watchlist.
`
}

func (c *unwatchCmd) SetFlags(f *flag.FlagSet) {}

func (c *unwatchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: expecting at least one coin id")
		return subcommands.ExitUsageError
	}
	a, err := openApp(ctx, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	for _, id := range f.Args() {
		if !a.dash.RemoveFromWatchlist(ctx, id) {
			fmt.Fprintf(stdout, "%s was not watched\n", id)
			continue
		}
		fmt.Fprintf(stdout, "Unwatched %s\n", id)
	}
	return subcommands.ExitSuccess
}

type watchlistCmd struct{}

func (*watchlistCmd) Name() string     { return "watchlist" }
func (*watchlistCmd) Synopsis() string { return "display the watchlist" }
func (*watchlistCmd) Usage() string {
	return `cvd watchlist

  Displays the watched coins with their current market data.
`
}

func (c *watchlistCmd) SetFlags(f *flag.FlagSet) {}

func (c *watchlistCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	a.tryRefresh(ctx)
	printMarkdown(renderer.WatchlistMarkdown(renderer.NewWatchlist(a.dash.Watchlist(), a.dash.Feed().Snapshot())))
	return subcommands.ExitSuccess
}
