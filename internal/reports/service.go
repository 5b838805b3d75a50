package reports

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/opsdash/internal/reports/categorytree"
	"github.com/odyssey-erp/opsdash/internal/shared"
)

// Fetcher loads raw payloads from the backend.
type Fetcher interface {
	FetchRecords(ctx context.Context, kind Kind, rng shared.DateRange) ([]map[string]any, error)
	FetchBalanceSheet(ctx context.Context, asOf time.Time) (*categorytree.Node, error)
}

// SupersededRecorder observes discarded stale responses.
type SupersededRecorder interface {
	RecordSuperseded(kind string)
}

// Request describes one fetch-normalize-query cycle for a screen.
type Request struct {
	Screen Screen
	Range  shared.DateRange
	Query  QueryParams
}

// Report is the result of one cycle.
type Report struct {
	Kind       Kind             `json:"kind"`
	From       string           `json:"from,omitempty"`
	To         string           `json:"to,omitempty"`
	Statistics Statistics       `json:"statistics"`
	Page       QueryResult      `json:"page"`
	Range      shared.DateRange `json:"-"`
}

// BalanceSheetReport is the flattened balance sheet with its roll-up.
type BalanceSheetReport struct {
	AsOf    string                    `json:"asOf,omitempty"`
	Rows    []categorytree.AccountRow `json:"rows"`
	Summary categorytree.Summary      `json:"summary"`
}

// Service runs report cycles against a Fetcher.
type Service struct {
	fetcher    Fetcher
	normalizer *Normalizer
	guard      *Guard
	logger     *slog.Logger
	recorder   SupersededRecorder
}

// NewService wires a Service. A nil normalizer uses the defaults.
func NewService(fetcher Fetcher, normalizer *Normalizer, logger *slog.Logger, recorder SupersededRecorder) *Service {
	if normalizer == nil {
		normalizer = NewNormalizer()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		fetcher:    fetcher,
		normalizer: normalizer,
		guard:      NewGuard(),
		logger:     logger,
		recorder:   recorder,
	}
}

// Guard exposes the stale-response guard.
func (s *Service) Guard() *Guard {
	return s.guard
}

// Load fetches, normalizes, aggregates and pages one report. When a newer
// Load for the same screen starts before this one's fetch resolves, the
// result is discarded and ErrSuperseded returned.
func (s *Service) Load(ctx context.Context, kind Kind, req Request) (Report, error) {
	if !kind.Valid() {
		return Report{}, ErrUnknownKind
	}
	token := s.guard.Begin(req.Screen)

	records, err := s.fetcher.FetchRecords(ctx, kind, req.Range)
	if err != nil {
		return Report{}, fmt.Errorf("reports: fetch %s: %w", kind, err)
	}
	if !s.guard.Current(token) {
		s.superseded(string(kind), req.Screen)
		return Report{}, ErrSuperseded
	}

	rows := s.normalizer.NormalizeAll(kind, records)
	return Report{
		Kind:       kind,
		From:       req.Range.FromString(),
		To:         req.Range.ToString(),
		Statistics: Aggregate(kind, rows),
		Page:       Query(rows, req.Query),
		Range:      req.Range,
	}, nil
}

// Overview aggregates every kind over rng, fetching them in parallel.
func (s *Service) Overview(ctx context.Context, rng shared.DateRange) (map[Kind]Statistics, error) {
	var mu sync.Mutex
	out := make(map[Kind]Statistics, len(Kinds))

	g, ctx := errgroup.WithContext(ctx)
	for _, kind := range Kinds {
		g.Go(func() error {
			records, err := s.fetcher.FetchRecords(ctx, kind, rng)
			if err != nil {
				return fmt.Errorf("reports: fetch %s: %w", kind, err)
			}
			stats := Aggregate(kind, s.normalizer.NormalizeAll(kind, records))
			mu.Lock()
			out[kind] = stats
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// BalanceSheet fetches and flattens the category tree.
func (s *Service) BalanceSheet(ctx context.Context, screen Screen, asOf time.Time) (BalanceSheetReport, error) {
	token := s.guard.Begin(screen)
	tree, err := s.fetcher.FetchBalanceSheet(ctx, asOf)
	if err != nil {
		return BalanceSheetReport{}, fmt.Errorf("reports: fetch balance sheet: %w", err)
	}
	if !s.guard.Current(token) {
		s.superseded("balance_sheet", screen)
		return BalanceSheetReport{}, ErrSuperseded
	}
	rows := categorytree.Flatten(tree)
	if rows == nil {
		rows = []categorytree.AccountRow{}
	}
	report := BalanceSheetReport{Rows: rows, Summary: categorytree.Summarize(rows)}
	if !asOf.IsZero() {
		report.AsOf = asOf.Format(shared.DateLayout)
	}
	return report, nil
}

func (s *Service) superseded(kind string, screen Screen) {
	s.logger.Info("discard superseded response", slog.String("kind", kind), slog.String("screen", string(screen)))
	if s.recorder != nil {
		s.recorder.RecordSuperseded(kind)
	}
}
