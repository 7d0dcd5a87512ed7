package cmd

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"html/template"
	"io"
	"log"
	"os"
	"time"

	"github.com/etnz/cryptovault/renderer"
	"github.com/google/subcommands"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var pageTpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<p><small>Generated {{.Generated.Format "2006-01-02 15:04 MST"}}</small></p>
{{.Body}}
</body>
</html>
`))

type publishCmd struct {
	output string
	title  string
}

func (*publishCmd) Name() string { return "publish" }

func (*publishCmd) Synopsis() string { return "export the portfolio and watchlist as an HTML page" }

func (*publishCmd) Usage() string {
	return `cvd publish [-o <file.html>] [-title <title>]

  Renders the portfolio valuation and the watchlist into a standalone HTML page.
  Use '-o -' to write the page to the standard output.
`
}

func (c *publishCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "cryptovault.html", "output file")
	f.StringVar(&c.title, "title", "Crypto portfolio", "page title")
}

func (c *publishCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	a.tryRefresh(ctx)
	md := renderer.PortfolioMarkdown(a.dash.Valuation()) + "\n" +
		renderer.WatchlistMarkdown(renderer.NewWatchlist(a.dash.Watchlist(), a.dash.Feed().Snapshot()))

	var w io.Writer = stdout
	if c.output != "-" {
		file, err := os.Create(c.output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create %s: %v\n", c.output, err)
			return subcommands.ExitFailure
		}
		defer file.Close()
		w = file
	}
	if err := publishHTML(w, c.title, md); err != nil {
		fmt.Fprintf(os.Stderr, "failed to publish: %v\n", err)
		return subcommands.ExitFailure
	}
	if c.output != "-" {
		log.Printf("Published %s", c.output)
	}
	return subcommands.ExitSuccess
}

// publishHTML converts md to HTML and writes it as a standalone page.
func publishHTML(w io.Writer, title, md string) error {
	var body bytes.Buffer
	gm := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := gm.Convert([]byte(md), &body); err != nil {
		return fmt.Errorf("cannot convert markdown: %w", err)
	}
	return pageTpl.Execute(w, struct {
		Title     string
		Generated time.Time
		Body      template.HTML
	}{title, time.Now(), template.HTML(body.String())})
}
