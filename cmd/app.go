// Package cmd implements the CLI application to follow crypto markets, a watchlist and a portfolio.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/cryptovault"
	"github.com/etnz/cryptovault/coingecko"
	"github.com/etnz/cryptovault/config"
	"github.com/etnz/cryptovault/store"
	"github.com/google/subcommands"
	"go.uber.org/zap"
)

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var configFile = flag.String("config", "", "YAML configuration file, "+config.DefaultFile+" when present")
var storageSpec = flag.String("storage", "", "collection store: memory, file:<dir>, sqlite:<path>, redis://... or postgres://...")
var currency = flag.String("currency", "", "display currency, e.g. USD, EUR or INR")
var rawMarkdown = flag.Bool("md", false, "print raw markdown instead of rendering it")

// Verbose enables debug logs.
var Verbose = flag.Bool("v", false, "verbose logging")

// stdout receives the command outputs.
var stdout io.Writer = os.Stdout

// commands in registration order, with their group.
var commands = []struct {
	group string
	cmd   subcommands.Command
}{
	{"market", &marketsCmd{}},
	{"market", &trendingCmd{}},
	{"market", &coinCmd{}},
	{"watchlist", &watchCmd{}},
	{"watchlist", &unwatchCmd{}},
	{"watchlist", &watchlistCmd{}},
	{"portfolio", &addCmd{}},
	{"portfolio", &removeCmd{}},
	{"portfolio", &portfolioCmd{}},
	{"portfolio", &publishCmd{}},
	{"server", &serveCmd{}},
	{"help", &topicCmd{}},
}

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(c.HelpCommand(), "help")
	c.Register(c.FlagsCommand(), "help")
	c.Register(c.CommandsCommand(), "help")
	for _, x := range commands {
		c.Register(x.cmd, x.group)
	}
}

// Source is the market data provider of the commands.
type Source interface {
	cryptovault.MarketSource
	Trending(ctx context.Context, currency string) ([]cryptovault.CoinQuote, error)
	Coin(ctx context.Context, id, currency string) (cryptovault.CoinDetail, error)
	Close()
}

// newSource creates the market data provider, tests replace it.
var newSource = func(cfg config.Config, log *zap.Logger) (Source, error) {
	return coingecko.New(coingecko.Options{
		BaseURL:  cfg.CoinGecko.URL,
		APIKey:   cfg.CoinGecko.APIKey,
		CacheTTL: cfg.CoinGecko.CacheTTL,
		Logger:   log.Named("coingecko"),
	})
}

// app gathers what commands need.
type app struct {
	cfg    config.Config
	log    *zap.Logger
	store  store.Store
	source Source
	dash   *cryptovault.Dashboard
}

// loadConfig reads the configuration and applies the global flags on top.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return cfg, err
	}
	if *storageSpec != "" {
		cfg.Storage = *storageSpec
	}
	if *currency != "" {
		cfg.Currency = *currency
	}
	if *Verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, cfg.Validate()
}

// openApp opens the store and the market source, and loads the dashboard.
func openApp(ctx context.Context, interactive bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := config.Logger(cfg.LogLevel, interactive)
	if err != nil {
		return nil, err
	}
	s, err := store.Open(ctx, cfg.Storage, log.Named("store"))
	if err != nil {
		return nil, err
	}
	src, err := newSource(cfg, log)
	if err != nil {
		s.Close()
		return nil, err
	}
	dash, err := cryptovault.New(ctx, cryptovault.Options{Store: s, Currency: cfg.Currency, Logger: log})
	if err != nil {
		src.Close()
		s.Close()
		return nil, err
	}
	return &app{cfg: cfg, log: log, store: s, source: src, dash: dash}, nil
}

func (a *app) Close() {
	a.source.Close()
	if err := a.store.Close(); err != nil {
		a.log.Warn("cannot close store", zap.Error(err))
	}
	a.log.Sync()
}

// refresh fetches the markets in the display currency.
func (a *app) refresh(ctx context.Context) error {
	if err := a.dash.Refresh(ctx, a.source); err != nil {
		return fmt.Errorf("cannot fetch market data: %w", err)
	}
	return nil
}

// tryRefresh refreshes the markets, views stay usable without them.
func (a *app) tryRefresh(ctx context.Context) {
	if err := a.refresh(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

// printMarkdown renders md for the terminal.
func printMarkdown(md string) {
	if *rawMarkdown {
		fmt.Fprint(stdout, md)
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err != nil {
		fmt.Fprint(stdout, md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Fprint(stdout, md)
		return
	}
	fmt.Fprint(stdout, out)
}
