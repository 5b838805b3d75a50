package reports

import (
	"strings"

	"github.com/samber/lo"
	"golang.org/x/text/cases"

	"github.com/odyssey-erp/opsdash/internal/shared"
)

// QueryParams selects a page of rows. Callers reset Page to 1 whenever Search
// or Tab changes.
type QueryParams struct {
	Search   string
	Tab      string
	Page     int
	PageSize int
}

// QueryResult is one page of filtered rows.
type QueryResult struct {
	Rows       []Row             `json:"rows"`
	Pagination shared.Pagination `json:"pagination"`
	// Matched holds every row that passed search and tab filtering.
	Matched []Row `json:"-"`
}

// TotalPages is the number of pages after filtering, never less than 1.
func (r QueryResult) TotalPages() int {
	return r.Pagination.TotalPages
}

// Query searches, filters by status tab and slices out one page.
func Query(rows []Row, params QueryParams) QueryResult {
	matched := Filter(rows, params.Search, params.Tab)
	page := shared.NewPagination(params.Page, params.PageSize, len(matched))
	start, end := page.Bounds()
	return QueryResult{
		Rows:       matched[start:end],
		Pagination: page,
		Matched:    matched,
	}
}

// Filter keeps rows matching the search term on any searchable field and
// whose status bucket equals tab. An empty term and the "all" tab match
// everything.
func Filter(rows []Row, search, tab string) []Row {
	folder := cases.Fold()
	term := folder.String(strings.TrimSpace(search))
	tab = strings.ToLower(strings.TrimSpace(tab))

	return lo.Filter(rows, func(row Row, _ int) bool {
		if tab != "" && tab != TabAll && string(BucketOf(row.Kind, row.Status)) != tab {
			return false
		}
		if term == "" {
			return true
		}
		return lo.SomeBy(searchTargets(row), func(value string) bool {
			return strings.Contains(folder.String(value), term)
		})
	})
}

func searchTargets(row Row) []string {
	fields := SearchFields(row.Kind)
	out := make([]string, 0, len(fields)+1)
	out = append(out, row.ID)
	for _, name := range fields {
		if v := row.String(name); v != NotAvailable {
			out = append(out, v)
		}
	}
	return out
}
