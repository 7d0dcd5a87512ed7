package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/cryptovault"
	"github.com/etnz/cryptovault/renderer"
	"github.com/google/subcommands"
)

// marketsCmd holds the flags for the 'markets' subcommand.
type marketsCmd struct {
	query string
	page  int
}

func (*marketsCmd) Name() string     { return "markets" }
func (*marketsCmd) Synopsis() string { return "display the largest coins by market cap" }
func (*marketsCmd) Usage() string {
	return `cvd markets [-q <query>] [-p <page>]

  Displays the 100 largest coins by market cap, 10 per page, in the display currency.
  Watched coins are starred.
`
}

func (c *marketsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.query, "q", "", "only show coins whose name or symbol contains the query")
	f.IntVar(&c.page, "p", 1, "page to display")
}

func (c *marketsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	quotes := cryptovault.FilterQuotes(a.dash.Feed().Snapshot().Quotes(), c.query)
	printMarkdown(renderer.MarketsMarkdown(renderer.Markets{
		Title:   "Markets",
		Query:   c.query,
		Page:    cryptovault.Paginate(quotes, c.page),
		Watched: watched(a.dash),
	}))
	return subcommands.ExitSuccess
}

// trendingCmd holds the flags for the 'trending' subcommand.
type trendingCmd struct{}

func (*trendingCmd) Name() string     { return "trending" }
func (*trendingCmd) Synopsis() string { return "display the trending coins" }
func (*trendingCmd) Usage() string {
	return `cvd trending

  Displays the 10 coins currently trending, in the display currency.
`
}

func (c *trendingCmd) SetFlags(f *flag.FlagSet) {}

func (c *trendingCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	quotes, err := a.source.Trending(ctx, a.dash.Display().Code)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching trending coins: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.MarketsMarkdown(renderer.Markets{
		Title:   "Trending",
		Page:    cryptovault.Paginate(quotes, 1),
		Watched: watched(a.dash),
	}))
	return subcommands.ExitSuccess
}

// coinCmd holds the flags for the 'coin' subcommand.
type coinCmd struct{}

func (*coinCmd) Name() string     { return "coin" }
func (*coinCmd) Synopsis() string { return "display the details of a coin" }
func (*coinCmd) Usage() string {
	return `cvd coin <id>

  Displays the description and market data of a coin, e.g. 'cvd coin bitcoin'.
`
}

func (c *coinCmd) SetFlags(f *flag.FlagSet) {}

func (c *coinCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: expecting exactly one coin id")
		return subcommands.ExitUsageError
	}
	a, err := openApp(ctx, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	id := f.Arg(0)
	d, err := a.source.Coin(ctx, id, a.dash.Display().Code)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching coin %q: %v\n", id, err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.CoinMarkdown(renderer.Coin{CoinDetail: d, Watched: a.dash.IsWatched(d.ID)}))
	return subcommands.ExitSuccess
}

func watched(d *cryptovault.Dashboard) map[string]bool {
	m := make(map[string]bool)
	for _, e := range d.Watchlist() {
		m[e.ID] = true
	}
	return m
}
