package cryptovault

import "strings"

// PageSize is the number of rows of a market table page.
const PageSize = 10

// FilterQuotes returns the quotes whose name or symbol contains query, case-insensitively.
// An empty query matches everything.
func FilterQuotes(quotes []CoinQuote, query string) []CoinQuote {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return quotes
	}
	var res []CoinQuote
	for _, q := range quotes {
		if strings.Contains(strings.ToLower(q.Name), query) || strings.Contains(strings.ToLower(q.Symbol), query) {
			res = append(res, q)
		}
	}
	return res
}

// Page is one page of a market table.
type Page struct {
	Number int         `json:"page"` // 1-based
	Pages  int         `json:"pages"`
	Total  int         `json:"total"`
	Quotes []CoinQuote `json:"quotes"`
}

// Paginate returns the page-th page (1-based) of quotes. Out of range pages are clamped.
// There is always at least one page, possibly empty.
func Paginate(quotes []CoinQuote, page int) Page {
	pages := max(1, (len(quotes)+PageSize-1)/PageSize)
	page = max(1, min(page, pages))
	from := min((page-1)*PageSize, len(quotes))
	to := min(from+PageSize, len(quotes))
	return Page{
		Number: page,
		Pages:  pages,
		Total:  len(quotes),
		Quotes: quotes[from:to],
	}
}
