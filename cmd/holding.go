package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/etnz/cryptovault/renderer"
	"github.com/google/subcommands"
)

// addCmd holds the flags for the 'add' subcommand.
type addCmd struct {
	coin   string
	amount string
	price  string
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "record a purchase in the portfolio" }
func (*addCmd) Usage() string {
	return `cvd add -coin <id> -amount <quantity> -price <unit price>

  Records a holding: a quantity of a coin bought at a unit price in the display currency.
  The coin must be among the 100 largest by market cap.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.coin, "coin", "", "coin id, e.g. bitcoin")
	f.StringVar(&c.amount, "amount", "", "quantity bought, must be positive")
	f.StringVar(&c.price, "price", "", "unit purchase price, must not be negative")
}

func (c *addCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	h, err := a.dash.AddHolding(ctx, c.coin, c.amount, c.price)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error adding holding: %v\n", err)
		return subcommands.ExitUsageError
	}
	fmt.Fprintf(stdout, "Added holding %d: %v %s at %v\n", h.ID, h.Amount, h.Name, h.PurchasePrice.In(a.dash.Display().Code))
	return subcommands.ExitSuccess
}

type removeCmd struct{}

func (*removeCmd) Name() string     { return "remove" }
func (*removeCmd) Synopsis() string { return "remove holdings from the portfolio" }
func (*removeCmd) Usage() string {
	return `cvd remove <holding id>...

  Removes holdings by id, as displayed by 'cvd portfolio'.
`
}

func (c *removeCmd) SetFlags(f *flag.FlagSet) {}

func (c *removeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: expecting at least one holding id")
		return subcommands.ExitUsageError
	}
	ids := make([]int64, 0, f.NArg())
	for _, arg := range f.Args() {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid holding id %q\n", arg)
			return subcommands.ExitUsageError
		}
		ids = append(ids, id)
	}

	a, err := openApp(ctx, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	for _, id := range ids {
		if !a.dash.RemoveHolding(ctx, id) {
			fmt.Fprintf(stdout, "No holding %d\n", id)
			continue
		}
		fmt.Fprintf(stdout, "Removed holding %d\n", id)
	}
	return subcommands.ExitSuccess
}

// portfolioCmd holds the flags for the 'portfolio' subcommand.
type portfolioCmd struct{}

func (*portfolioCmd) Name() string     { return "portfolio" }
func (*portfolioCmd) Synopsis() string { return "display the portfolio valuation" }
func (*portfolioCmd) Usage() string {
	return `cvd portfolio

  Displays the holdings valued at current market prices, and the portfolio totals.
`
}

func (c *portfolioCmd) SetFlags(f *flag.FlagSet) {}

func (c *portfolioCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	a.tryRefresh(ctx)
	printMarkdown(renderer.PortfolioMarkdown(a.dash.Valuation()))
	return subcommands.ExitSuccess
}
