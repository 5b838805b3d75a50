package export

import (
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/odyssey-erp/opsdash/internal/reports"
	"github.com/odyssey-erp/opsdash/internal/reports/categorytree"
	"github.com/odyssey-erp/opsdash/internal/reports/duration"
	"github.com/odyssey-erp/opsdash/internal/shared"
)

// Column renders one CSV column from a row.
type Column struct {
	Header string
	Value  func(reports.Row) any
}

func field(header, name string) Column {
	return Column{Header: header, Value: func(r reports.Row) any { return r.String(name) }}
}

func number(header, name string) Column {
	return Column{Header: header, Value: func(r reports.Row) any { return r.Number(name) }}
}

func hours(header, name string) Column {
	return Column{Header: header, Value: func(r reports.Row) any { return duration.Format(r.Number(name)) }}
}

var (
	idColumn     = Column{Header: "ID", Value: func(r reports.Row) any { return r.ID }}
	statusColumn = Column{Header: "Status", Value: func(r reports.Row) any { return r.Status }}
	dateColumn   = Column{Header: "Date", Value: func(r reports.Row) any { return r.Date.Format(shared.DateLayout) }}
)

var kindColumns = map[reports.Kind][]Column{
	reports.KindLoad: {
		idColumn, field("Shipment No", "shipmentNumber"), field("Shipper", "shipperName"),
		field("Carrier", "carrierName"), field("Origin", "origin"), field("Destination", "destination"),
		number("Rate", "rate"), field("Vehicle Type", "vehicleType"), statusColumn, dateColumn,
	},
	reports.KindDeliveryOrder: {
		idColumn, field("DO Number", "doNumber"), field("Customer", "customerName"),
		field("Carrier", "carrierName"), field("Shipper", "shipperName"), field("Load Ref", "loadReference"),
		number("Billing Amount", "billingAmount"), number("Carrier Fees", "carrierFees"), statusColumn, dateColumn,
	},
	reports.KindCall: {
		idColumn, field("Caller", "callerName"), field("Employee", "employeeName"), field("Phone", "phoneNumber"),
		field("Direction", "direction"), hours("Talk Time", "talkTime"), number("Talk Hours", "talkTime"), statusColumn, dateColumn,
	},
	reports.KindTargetCompletion: {
		idColumn, field("Employee", "employeeName"), field("Department", "department"),
		hours("Target Time", "targetTime"), hours("Actual Time", "actualTime"), number("Completion %", "completionRate"),
		statusColumn, dateColumn,
	},
	reports.KindFollowUp: {
		idColumn, field("Customer", "customerName"), field("Contact", "contactPerson"), field("Type", "followUpType"),
		field("Employee", "employeeName"), field("Next Follow-up", "nextFollowUpDate"), field("Due Status", "dueStatus"),
		number("Days Overdue", "daysOverdue"), statusColumn, dateColumn,
	},
	reports.KindCustomerAdded: {
		idColumn, field("Company", "companyName"), field("Contact", "contactName"), field("Email", "email"),
		field("Phone", "phone"), field("City", "city"), field("Added By", "addedBy"), statusColumn, dateColumn,
	},
}

// Columns returns the export columns for kind.
func Columns(kind reports.Kind) []Column {
	return kindColumns[kind]
}

// Rows converts report rows into CSV headers and records.
func Rows(kind reports.Kind, rows []reports.Row) ([]string, [][]any) {
	cols := Columns(kind)
	headers := lo.Map(cols, func(c Column, _ int) string { return c.Header })
	records := lo.Map(rows, func(row reports.Row, _ int) []any {
		return lo.Map(cols, func(c Column, _ int) any { return c.Value(row) })
	})
	return headers, records
}

// Report serializes rows of kind into CSV text.
func Report(kind reports.Kind, rows []reports.Row) string {
	headers, records := Rows(kind, rows)
	return Serialize(headers, records)
}

// BalanceSheetRows converts flattened account rows into CSV headers and
// records. Rows without a sub category are listed as "Uncategorized".
func BalanceSheetRows(rows []categorytree.AccountRow) ([]string, [][]any) {
	headers := []string{"Category", "Sub Category", "Account", "Balance"}
	records := lo.Map(rows, func(row categorytree.AccountRow, _ int) []any {
		path := row.SubCategoryPath
		if path == "" {
			path = "Uncategorized"
		}
		return []any{string(row.Category), path, row.AccountName, row.Balance}
	})
	return headers, records
}

// BalanceSheet serializes flattened account rows.
func BalanceSheet(rows []categorytree.AccountRow) string {
	return Serialize(BalanceSheetRows(rows))
}

// Filename names a download after its report prefix and date filter.
func Filename(prefix string, rng shared.DateRange, now time.Time) string {
	prefix = strings.Trim(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(prefix)), " ", "-"), "-")
	if prefix == "" {
		prefix = "report"
	}
	switch {
	case rng.Single():
		return prefix + "_" + rng.FromString() + ".csv"
	case !rng.From.IsZero() && !rng.To.IsZero():
		return prefix + "_" + rng.FromString() + "_to_" + rng.ToString() + ".csv"
	case !rng.From.IsZero():
		return prefix + "_from_" + rng.FromString() + ".csv"
	case !rng.To.IsZero():
		return prefix + "_to_" + rng.ToString() + ".csv"
	default:
		return prefix + "_" + now.Format(shared.DateLayout) + ".csv"
	}
}

// Prefix is the file-name prefix for kind.
func Prefix(kind reports.Kind) string {
	return kind.Slug() + "-report"
}
