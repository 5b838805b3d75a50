package reports

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/odyssey-erp/opsdash/internal/reports/duedate"
	"github.com/odyssey-erp/opsdash/internal/reports/duration"
)

// DateLayout is the ISO date form used for date fields.
const DateLayout = "2006-01-02"

// DropRecorder observes normalization outcomes.
type DropRecorder interface {
	RecordNormalized(kind string, kept, dropped int)
}

// Normalizer maps raw records onto Row using the kind schemas.
type Normalizer struct {
	now      func() time.Time
	due      duedate.Classifier
	logger   *slog.Logger
	recorder DropRecorder
}

// NormalizerOption customises a Normalizer.
type NormalizerOption func(*Normalizer)

// WithClock sets the clock used for due-date fields and missing row dates.
func WithClock(now func() time.Time) NormalizerOption {
	return func(n *Normalizer) {
		if now != nil {
			n.now = now
		}
	}
}

// WithDueSoonWindow sets the due-soon window in days.
func WithDueSoonWindow(days int) NormalizerOption {
	return func(n *Normalizer) { n.due = duedate.NewClassifier(days) }
}

// WithLogger sets the logger used for dropped records.
func WithLogger(logger *slog.Logger) NormalizerOption {
	return func(n *Normalizer) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithRecorder sets the metrics sink for normalization passes.
func WithRecorder(r DropRecorder) NormalizerOption {
	return func(n *Normalizer) { n.recorder = r }
}

// NewNormalizer builds a Normalizer.
func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{
		now:    time.Now,
		due:    duedate.NewClassifier(duedate.DefaultWindowDays),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize maps one raw record. Records without an identifier return
// ErrMissingID.
func (n *Normalizer) Normalize(kind Kind, raw map[string]any) (Row, error) {
	schema, err := SchemaFor(kind)
	if err != nil {
		return Row{}, err
	}
	id := firstString(raw, schema.IDPaths)
	if id == "" {
		return Row{}, ErrMissingID
	}
	now := n.now()

	row := Row{
		Kind:   kind,
		ID:     id,
		Status: firstString(raw, schema.StatusPaths),
		Fields: make(map[string]any, len(schema.Fields)+5),
	}
	if row.Status == "" {
		row.Status = NotAvailable
	}
	if t := duedate.ParseDueIn(firstValue(raw, schema.DatePaths), now.Location()); t != nil {
		row.Date = *t
	} else {
		row.Date = now
	}

	for _, spec := range schema.Fields {
		row.Fields[spec.Name] = resolveField(raw, spec, now.Location())
	}
	if schema.DueField != "" {
		info := n.due.Classify(duedate.ParseDueIn(row.Fields[schema.DueField], now.Location()), now)
		row.Fields["dueStatus"] = string(info.Status)
		row.Fields["isDueToday"] = info.IsDueToday
		row.Fields["isOverdue"] = info.IsOverdue
		row.Fields["daysRemaining"] = info.DaysRemaining
		row.Fields["daysOverdue"] = info.DaysOverdue
	}
	return row, nil
}

// NormalizeAll maps every record of kind, dropping those without an id.
func (n *Normalizer) NormalizeAll(kind Kind, records []map[string]any) []Row {
	rows := make([]Row, 0, len(records))
	dropped := 0
	for i, raw := range records {
		row, err := n.Normalize(kind, raw)
		if err != nil {
			dropped++
			n.logger.Debug("drop report record", slog.String("kind", string(kind)), slog.Int("index", i), slog.Any("error", err))
			continue
		}
		rows = append(rows, row)
	}
	if dropped > 0 {
		n.logger.Info("normalized report records", slog.String("kind", string(kind)), slog.Int("kept", len(rows)), slog.Int("dropped", dropped))
	}
	if n.recorder != nil {
		n.recorder.RecordNormalized(string(kind), len(rows), dropped)
	}
	return rows
}

func resolveField(raw map[string]any, spec FieldSpec, loc *time.Location) any {
	switch spec.Type {
	case FieldNumber:
		return toNumber(firstValue(raw, spec.Paths))
	case FieldDuration:
		return duration.ParseHours(firstValue(raw, spec.Paths))
	case FieldDate:
		if t := duedate.ParseDueIn(firstValue(raw, spec.Paths), loc); t != nil {
			return t.In(loc).Format(DateLayout)
		}
		return NotAvailable
	default:
		if s := firstString(raw, spec.Paths); s != "" {
			return s
		}
		return NotAvailable
	}
}

// firstValue returns the first non-empty scalar found along paths.
func firstValue(raw map[string]any, paths []string) any {
	for _, path := range paths {
		v, ok := lookup(raw, path)
		if !ok || isEmpty(v) || !isScalar(v) {
			continue
		}
		return v
	}
	return nil
}

func firstString(raw map[string]any, paths []string) string {
	v := firstValue(raw, paths)
	if v == nil {
		return ""
	}
	return strings.TrimSpace(cast.ToString(v))
}

func toNumber(v any) float64 {
	if s, ok := v.(string); ok {
		v = strings.NewReplacer(",", "", "$", "", " ", "").Replace(s)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0
	}
	return f
}

// lookup walks a dotted path; numeric segments index into arrays.
func lookup(raw map[string]any, path string) (any, bool) {
	var cur any = raw
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case map[string]any:
		return len(val) == 0
	case []any:
		return len(val) == 0
	}
	return false
}

func isScalar(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return false
	}
	return true
}
