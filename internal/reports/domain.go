// Package reports normalizes heterogeneous report payloads into canonical rows
// and derives the statistics, filtered pages and exports built on them.
package reports

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Kind identifies a report shape.
type Kind string

const (
	KindLoad             Kind = "load"
	KindDeliveryOrder    Kind = "delivery_order"
	KindCall             Kind = "call"
	KindTargetCompletion Kind = "target_completion"
	KindFollowUp         Kind = "follow_up"
	KindCustomerAdded    Kind = "customer_added"
)

// Kinds lists every report kind in display order.
var Kinds = []Kind{KindLoad, KindDeliveryOrder, KindCall, KindTargetCompletion, KindFollowUp, KindCustomerAdded}

var kindSlugs = map[Kind]string{
	KindLoad:             "loads",
	KindDeliveryOrder:    "delivery-orders",
	KindCall:             "calls",
	KindTargetCompletion: "target-completion",
	KindFollowUp:         "follow-ups",
	KindCustomerAdded:    "customers",
}

func (k Kind) String() string {
	return string(k)
}

// Slug is the URL and file-name form of the kind.
func (k Kind) Slug() string {
	return kindSlugs[k]
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := kindSlugs[k]
	return ok
}

// ParseKind accepts either the kind value or its slug.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for kind, slug := range kindSlugs {
		if s == string(kind) || s == slug {
			return kind, nil
		}
	}
	return "", ErrUnknownKind
}

var (
	// ErrUnknownKind is returned for report kinds outside Kinds.
	ErrUnknownKind = errors.New("reports: unknown report kind")
	// ErrMissingID marks a raw record without its mandatory identifier.
	ErrMissingID = errors.New("reports: record missing identifier")
	// ErrSuperseded reports that a newer request for the same screen started
	// before this one resolved.
	ErrSuperseded = errors.New("reports: response superseded by newer request")
)

// NotAvailable is the placeholder for absent string fields.
const NotAvailable = "N/A"

// Row is the canonical shape of one report record.
type Row struct {
	Kind   Kind           `json:"kind"`
	ID     string         `json:"id"`
	Status string         `json:"status"`
	Date   time.Time      `json:"date"`
	Fields map[string]any `json:"fields"`
}

// String returns a string field, or N/A when absent.
func (r Row) String(name string) string {
	v, ok := r.Fields[name]
	if !ok || v == nil {
		return NotAvailable
	}
	return cast.ToString(v)
}

// Number returns a numeric field, or 0 when absent.
func (r Row) Number(name string) float64 {
	v, ok := r.Fields[name]
	if !ok {
		return 0
	}
	return cast.ToFloat64(v)
}

// Bool returns a boolean field.
func (r Row) Bool(name string) bool {
	return cast.ToBool(r.Fields[name])
}

// Statistics are the summary metrics for one kind.
type Statistics struct {
	Kind       Kind               `json:"kind"`
	Total      int                `json:"total"`
	Approved   int                `json:"approved"`
	Rejected   int                `json:"rejected"`
	Pending    int                `json:"pending"`
	TotalValue float64            `json:"totalValue"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
}

// Map flattens the statistics into named metrics.
func (s Statistics) Map() map[string]float64 {
	out := map[string]float64{
		"total":    float64(s.Total),
		"approved": float64(s.Approved),
		"rejected": float64(s.Rejected),
		"pending":  float64(s.Pending),
	}
	if schemaFor(s.Kind).ValueField != "" {
		out["totalValue"] = s.TotalValue
	}
	for k, v := range s.Metrics {
		out[k] = v
	}
	return out
}
