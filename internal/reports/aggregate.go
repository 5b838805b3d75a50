package reports

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/opsdash/internal/reports/duedate"
)

// Aggregate computes the statistics for rows of kind in one pass. Rows of
// other kinds are ignored.
func Aggregate(kind Kind, rows []Row) Statistics {
	schema := schemaFor(kind)
	stats := Statistics{Kind: kind}

	var (
		value     decimal.Decimal
		target    decimal.Decimal
		billing   decimal.Decimal
		overdue   int
		dueToday  int
		dueSoon   int
		valueRows int
	)
	for _, row := range rows {
		if row.Kind != kind {
			continue
		}
		stats.Total++
		switch BucketOf(kind, row.Status) {
		case BucketApproved:
			stats.Approved++
		case BucketRejected:
			stats.Rejected++
		case BucketPending:
			stats.Pending++
		}
		if schema.ValueField != "" {
			value = value.Add(decimal.NewFromFloat(row.Number(schema.ValueField)))
			valueRows++
		}
		switch kind {
		case KindTargetCompletion:
			target = target.Add(decimal.NewFromFloat(row.Number("targetTime")))
		case KindDeliveryOrder:
			billing = billing.Add(decimal.NewFromFloat(row.Number("billingAmount")))
		case KindFollowUp:
			switch {
			case row.Bool("isOverdue"):
				overdue++
			case row.Bool("isDueToday"):
				dueToday++
			}
			if row.String("dueStatus") == string(duedate.StatusDueSoon) {
				dueSoon++
			}
		}
	}

	stats.TotalValue = value.Round(2).InexactFloat64()
	switch kind {
	case KindLoad:
		stats.Metrics = map[string]float64{"averageRate": average(value, valueRows)}
	case KindCall:
		stats.Metrics = map[string]float64{"averageTalkHours": average(value, valueRows)}
	case KindTargetCompletion:
		stats.Metrics = map[string]float64{"targetHours": target.Round(2).InexactFloat64()}
	case KindDeliveryOrder:
		stats.Metrics = map[string]float64{"billingTotal": billing.Round(2).InexactFloat64()}
	case KindFollowUp:
		stats.Metrics = map[string]float64{
			"overdue":  float64(overdue),
			"dueToday": float64(dueToday),
			"dueSoon":  float64(dueSoon),
		}
	}
	return stats
}

func average(sum decimal.Decimal, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum.Div(decimal.NewFromInt(int64(n))).Round(2).InexactFloat64()
}
