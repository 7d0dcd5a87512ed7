// Package renderer renders the dashboard views as markdown.
package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	"github.com/etnz/cryptovault"
)

//go:embed templates/*.md
var templatesFS embed.FS

var templates, _ = fs.Sub(templatesFS, "templates")

var funcs = template.FuncMap{
	// pct renders an optional percentage.
	"pct": func(p *cryptovault.Percent) string {
		if p == nil {
			return "n/a"
		}
		return p.SignedString()
	},
	"upper": strings.ToUpper,
	"inc":   func(i int) int { return i + 1 },
}

// Markets is the view of one page of the market table.
type Markets struct {
	Title   string
	Query   string
	Page    cryptovault.Page
	Watched map[string]bool
}

// MarketsMarkdown renders a page of the market table.
func MarketsMarkdown(m Markets) string {
	return renderTemplate("markets", "markets.md", nil, m)
}

// Watchlist is the view of the watchlist, with the live quotes of the watched coins.
type Watchlist struct {
	Entries []cryptovault.WatchlistEntry
	Quotes  map[string]*cryptovault.CoinQuote // nil when the coin is not quoted
}

// NewWatchlist builds the watchlist view from the entries and the current snapshot.
func NewWatchlist(entries []cryptovault.WatchlistEntry, snap *cryptovault.Snapshot) Watchlist {
	w := Watchlist{Entries: entries, Quotes: make(map[string]*cryptovault.CoinQuote)}
	for _, e := range entries {
		if q, ok := snap.Lookup(e.ID); ok {
			w.Quotes[e.ID] = &q
		}
	}
	return w
}

// WatchlistMarkdown renders the watchlist.
func WatchlistMarkdown(w Watchlist) string {
	return renderTemplate("watchlist", "watchlist.md", nil, w)
}

// PortfolioMarkdown renders the holdings and the aggregate stats of a valuation.
func PortfolioMarkdown(v cryptovault.Valuation) string {
	partials := map[string]string{
		"portfolio_stats": "portfolio_stats.md",
	}
	return renderTemplate("portfolio", "portfolio.md", partials, v)
}

// Coin is the view of the coin detail page.
type Coin struct {
	cryptovault.CoinDetail
	Watched bool
}

// CoinMarkdown renders the detail of a coin.
func CoinMarkdown(c Coin) string {
	return renderTemplate("coin", "coin.md", nil, c)
}

// renderTemplate is a generic utility to render a main template that depends on several partials.
func renderTemplate(templateName, mainFile string, partials map[string]string, data any) string {
	mainContent, err := fs.ReadFile(templates, mainFile)
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}

	tmpl, err := template.New(templateName).Funcs(funcs).Parse(string(mainContent))
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", mainFile, err)
	}

	for name, file := range partials {
		content, err := fs.ReadFile(templates, file)
		if err != nil {
			return fmt.Sprintf("error reading partial template %q: %v", file, err)
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}
