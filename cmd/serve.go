package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/etnz/cryptovault/server"
	"github.com/google/subcommands"
	"go.uber.org/zap"
)

// serveCmd holds the flags for the 'serve' subcommand.
type serveCmd struct {
	addr string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the dashboard over HTTP" }
func (*serveCmd) Usage() string {
	return `cvd serve [-addr <host:port>]

  Serves the JSON API and the live valuation stream. Markets are refreshed every
  refresh interval (CV_REFRESH_INTERVAL). Stops on SIGINT or SIGTERM.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "", "listen address, overrides CV_LISTEN_ADDR")
}

func (c *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	addr := a.cfg.Server.Addr
	if c.addr != "" {
		addr = c.addr
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cancel := a.dash.Feed().Start(ctx, a.source, a.cfg.RefreshInterval)
	defer cancel()

	s := server.New(a.dash, a.source, a.log.Named("http"), a.cfg.Server.CORSOrigin)
	if err := s.ListenAndServe(ctx, addr); err != nil {
		a.log.Error("http", zap.Error(err))
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
