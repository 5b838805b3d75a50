package categorytree

import "github.com/shopspring/decimal"

// CategorySummary totals the rows of one category.
type CategorySummary struct {
	Category Category `json:"category"`
	Accounts int      `json:"accounts"`
	Total    float64  `json:"total"`
}

// Summary is the balance-sheet roll-up of a flattened tree.
type Summary struct {
	Categories                 []CategorySummary `json:"categories"`
	TotalAssets                float64           `json:"totalAssets"`
	TotalLiabilitiesAndCapital float64           `json:"totalLiabilitiesAndCapital"`
	Balanced                   bool              `json:"balanced"`
}

// Summarize totals rows per category. Rows without a category are ignored.
func Summarize(rows []AccountRow) Summary {
	totals := make(map[Category]decimal.Decimal, len(Categories))
	counts := make(map[Category]int, len(Categories))
	for _, row := range rows {
		if row.Category == "" {
			continue
		}
		totals[row.Category] = totals[row.Category].Add(decimal.NewFromFloat(row.Balance))
		counts[row.Category]++
	}

	summary := Summary{Categories: make([]CategorySummary, 0, len(Categories))}
	for _, cat := range Categories {
		total := totals[cat].Round(2)
		summary.Categories = append(summary.Categories, CategorySummary{
			Category: cat,
			Accounts: counts[cat],
			Total:    total.InexactFloat64(),
		})
	}
	assets := totals[CategoryAssets].Round(2)
	liabCap := totals[CategoryLiabilities].Add(totals[CategoryCapital]).Round(2)
	summary.TotalAssets = assets.InexactFloat64()
	summary.TotalLiabilitiesAndCapital = liabCap.InexactFloat64()
	summary.Balanced = assets.Equal(liabCap)
	return summary
}
