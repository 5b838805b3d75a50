// Package reportshttp exposes the report layer over JSON and CSV endpoints.
package reportshttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/opsdash/internal/platform/httpx"
	"github.com/odyssey-erp/opsdash/internal/reports"
	"github.com/odyssey-erp/opsdash/internal/reports/export"
	"github.com/odyssey-erp/opsdash/internal/shared"
	"github.com/odyssey-erp/opsdash/internal/upstream"
)

// ScreenHeader names the dashboard screen a request belongs to. Requests
// without it are never discarded as stale.
const ScreenHeader = "X-Dashboard-Screen"

const (
	scopePage = "page"
	scopeAll  = "all"
)

// ReportService is the report contract used by the handler.
type ReportService interface {
	Load(ctx context.Context, kind reports.Kind, req reports.Request) (reports.Report, error)
	Overview(ctx context.Context, rng shared.DateRange) (map[reports.Kind]reports.Statistics, error)
	BalanceSheet(ctx context.Context, screen reports.Screen, asOf time.Time) (reports.BalanceSheetReport, error)
}

// Handler serves report endpoints.
type Handler struct {
	logger    *slog.Logger
	service   ReportService
	validator *validator.Validate
	pageSize  int
	timeout   time.Duration
	csvPool   sync.Pool
	now       func() time.Time
}

// Option customises a Handler.
type Option func(*Handler)

// WithPageSize sets the page size used when the request omits one.
func WithPageSize(size int) Option {
	return func(h *Handler) {
		if size > 0 {
			h.pageSize = size
		}
	}
}

// WithTimeout bounds every upstream round trip made on behalf of a request.
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithNow overrides the handler clock for testing.
func WithNow(fn func() time.Time) Option {
	return func(h *Handler) {
		if fn != nil {
			h.now = fn
		}
	}
}

// NewHandler constructs the report HTTP handler.
func NewHandler(logger *slog.Logger, service ReportService, opts ...Option) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
		pageSize:  shared.PageSizeTable,
		timeout:   15 * time.Second,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.csvPool.New = func() any { return new(bytes.Buffer) }
	return h
}

type listQuery struct {
	Search   string `validate:"max=200"`
	Tab      string `validate:"max=32"`
	Page     int    `validate:"gte=0"`
	PageSize int    `validate:"gte=0,lte=500"`
	Scope    string `validate:"omitempty,oneof=page all"`
	From     string `validate:"omitempty,datetime=2006-01-02"`
	To       string `validate:"omitempty,datetime=2006-01-02"`
}

type overviewResponse struct {
	From  string                        `json:"from,omitempty"`
	To    string                        `json:"to,omitempty"`
	Kinds map[string]map[string]float64 `json:"kinds"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	kind, req, _, err := h.parseRequest(r)
	if err != nil {
		h.respondError(w, "parse report query", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	report, err := h.service.Load(ctx, kind, req)
	if err != nil {
		h.respondError(w, "load report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	kind, req, scope, err := h.parseRequest(r)
	if err != nil {
		h.respondError(w, "parse export query", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	report, err := h.service.Load(ctx, kind, req)
	if err != nil {
		h.respondError(w, "load report export", err)
		return
	}
	rows := report.Page.Rows
	if scope == scopeAll {
		rows = report.Page.Matched
	}
	headers, records := export.Rows(kind, rows)
	h.writeCSV(w, export.Filename(export.Prefix(kind), req.Range, h.now()), headers, records)
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseQuery(r)
	if err != nil {
		h.respondError(w, "parse overview query", err)
		return
	}
	rng, err := shared.ParseDateRange(q.From, q.To)
	if err != nil {
		h.respondError(w, "parse overview range", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	stats, err := h.service.Overview(ctx, rng)
	if err != nil {
		h.respondError(w, "load overview", err)
		return
	}
	resp := overviewResponse{From: rng.FromString(), To: rng.ToString(), Kinds: make(map[string]map[string]float64, len(stats))}
	for kind, s := range stats {
		resp.Kinds[kind.Slug()] = s.Map()
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) handleBalanceSheet(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	asOf, err := shared.ParseDate(values.Get("asOf"))
	if err != nil {
		h.respondError(w, "parse balance sheet date", err)
		return
	}
	format := strings.ToLower(strings.TrimSpace(values.Get("format")))
	if format != "" && format != "json" && format != "csv" {
		h.respondError(w, "parse balance sheet format", fmt.Errorf("%w: format must be json or csv", httpx.ErrValidation))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	report, err := h.service.BalanceSheet(ctx, screenOf(r), asOf)
	if err != nil {
		h.respondError(w, "load balance sheet", err)
		return
	}
	if format != "csv" {
		httpx.JSON(w, http.StatusOK, report)
		return
	}
	headers, records := export.BalanceSheetRows(report.Rows)
	h.writeCSV(w, export.Filename("balance-sheet", shared.DateRange{From: asOf, To: asOf}, h.now()), headers, records)
}

func (h *Handler) parseRequest(r *http.Request) (reports.Kind, reports.Request, string, error) {
	kind, err := reports.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		return "", reports.Request{}, "", err
	}
	q, err := h.parseQuery(r)
	if err != nil {
		return "", reports.Request{}, "", err
	}
	rng, err := shared.ParseDateRange(q.From, q.To)
	if err != nil {
		return "", reports.Request{}, "", err
	}
	if q.PageSize == 0 {
		q.PageSize = h.pageSize
	}
	if q.Scope == "" {
		q.Scope = scopePage
	}
	return kind, reports.Request{
		Screen: screenOf(r),
		Range:  rng,
		Query:  reports.QueryParams{Search: q.Search, Tab: q.Tab, Page: q.Page, PageSize: q.PageSize},
	}, q.Scope, nil
}

func (h *Handler) parseQuery(r *http.Request) (listQuery, error) {
	values := r.URL.Query()
	q := listQuery{
		Search: strings.TrimSpace(values.Get("search")),
		Tab:    strings.TrimSpace(values.Get("tab")),
		Scope:  strings.ToLower(strings.TrimSpace(values.Get("scope"))),
		From:   strings.TrimSpace(values.Get("from")),
		To:     strings.TrimSpace(values.Get("to")),
	}
	var err error
	if q.Page, err = intParam(values.Get("page"), "page"); err != nil {
		return listQuery{}, err
	}
	if q.PageSize, err = intParam(values.Get("pageSize"), "pageSize"); err != nil {
		return listQuery{}, err
	}
	if !reports.ValidTab(q.Tab) {
		return listQuery{}, fmt.Errorf("%w: tab must be all, approved, rejected or pending", httpx.ErrValidation)
	}
	if err := h.validator.Struct(q); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return listQuery{}, fmt.Errorf("%w: %s failed %s", httpx.ErrValidation, strings.ToLower(fieldErrs[0].Field()), fieldErrs[0].Tag())
		}
		return listQuery{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	return q, nil
}

func intParam(raw, name string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", httpx.ErrValidation, name)
	}
	return v, nil
}

func screenOf(r *http.Request) reports.Screen {
	return reports.Screen(strings.TrimSpace(r.Header.Get(ScreenHeader)))
}

func (h *Handler) writeCSV(w http.ResponseWriter, filename string, headers []string, records [][]any) {
	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()

	if err := export.Write(buf, headers, records); err != nil {
		h.respondError(w, "write csv", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Error("stream csv", slog.Any("error", err))
	}
}

// respondError translates report and upstream failures into problem
// responses.
func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	var mapped error
	switch {
	case errors.Is(err, reports.ErrUnknownKind):
		mapped = fmt.Errorf("%w: %v", httpx.ErrNotFound, err)
	case errors.Is(err, reports.ErrSuperseded):
		mapped = fmt.Errorf("%w: %v", httpx.ErrConflict, err)
	case errors.Is(err, shared.ErrInvalidDateRange):
		mapped = fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	case errors.Is(err, upstream.ErrUnauthorized), errors.Is(err, upstream.ErrNoCredentials):
		mapped = fmt.Errorf("%w: %v", httpx.ErrUnauthorized, err)
	case errors.Is(err, upstream.ErrTransient), errors.Is(err, upstream.ErrRejected), errors.Is(err, context.DeadlineExceeded):
		h.logger.Warn(op, slog.Any("error", err))
		mapped = fmt.Errorf("%w: %v", httpx.ErrUpstream, err)
	case errors.Is(err, httpx.ErrValidation):
		mapped = err
	default:
		h.logger.Error(op, slog.Any("error", err))
		mapped = err
	}
	httpx.RespondError(w, mapped)
}
