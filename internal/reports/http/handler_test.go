package reportshttp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/opsdash/internal/reports"
	"github.com/odyssey-erp/opsdash/internal/reports/categorytree"
	"github.com/odyssey-erp/opsdash/internal/shared"
	"github.com/odyssey-erp/opsdash/internal/upstream"
)

var fixedNow = time.Date(2024, time.June, 10, 9, 0, 0, 0, time.UTC)

type stubFetcher struct {
	records map[reports.Kind][]map[string]any
	tree    *categorytree.Node
}

func (s stubFetcher) FetchRecords(ctx context.Context, kind reports.Kind, rng shared.DateRange) ([]map[string]any, error) {
	return s.records[kind], nil
}

func (s stubFetcher) FetchBalanceSheet(ctx context.Context, asOf time.Time) (*categorytree.Node, error) {
	return s.tree, nil
}

type stubService struct {
	err    error
	token  string
	screen reports.Screen
}

func (s *stubService) Load(ctx context.Context, kind reports.Kind, req reports.Request) (reports.Report, error) {
	s.token = upstream.TokenFromContext(ctx)
	s.screen = req.Screen
	return reports.Report{Kind: kind}, s.err
}

func (s *stubService) Overview(ctx context.Context, rng shared.DateRange) (map[reports.Kind]reports.Statistics, error) {
	return nil, s.err
}

func (s *stubService) BalanceSheet(ctx context.Context, screen reports.Screen, asOf time.Time) (reports.BalanceSheetReport, error) {
	s.screen = screen
	return reports.BalanceSheetReport{}, s.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(t *testing.T, service ReportService) http.Handler {
	t.Helper()
	h := NewHandler(quietLogger(), service, WithPageSize(15), WithNow(func() time.Time { return fixedNow }))
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func newServiceRouter(t *testing.T) http.Handler {
	t.Helper()
	tree, err := categorytree.Decode([]byte(`{
	  "assets": {"currentAssets": {"accounts": [{"accountName": "Cash", "balance": 500}]}},
	  "liabilities": {"accounts": [{"accountName": "Loan", "balance": "300"}]},
	  "capital": {"accounts": [{"accountName": "Owner", "balance": 200}]}
	}`))
	require.NoError(t, err)
	fetcher := stubFetcher{
		tree: tree,
		records: map[reports.Kind][]map[string]any{
			reports.KindLoad: {
				{"_id": "L1", "status": "approved", "shipperName": "Acme", "rate": 100},
				{"_id": "L2", "status": "pending", "shipperName": "Beta", "rate": 50},
				{"_id": "L3", "status": "rejected", "shipperName": "Acme West", "rate": 25},
			},
		},
	}
	normalizer := reports.NewNormalizer(reports.WithClock(func() time.Time { return fixedNow }))
	return newTestRouter(t, reports.NewService(fetcher, normalizer, quietLogger(), nil))
}

func get(t *testing.T, router http.Handler, target string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestListReport(t *testing.T) {
	router := newServiceRouter(t)
	rec := get(t, router, "/api/reports/loads?search=acme&pageSize=1&page=2")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Kind       string             `json:"kind"`
		Statistics reports.Statistics `json:"statistics"`
		Page       struct {
			Rows       []reports.Row     `json:"rows"`
			Pagination shared.Pagination `json:"pagination"`
		} `json:"page"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "load", body.Kind)
	assert.Equal(t, 3, body.Statistics.Total)
	assert.Equal(t, 175.0, body.Statistics.TotalValue)
	assert.Equal(t, shared.Pagination{Page: 2, PerPage: 1, Total: 2, TotalPages: 2}, body.Page.Pagination)
	require.Len(t, body.Page.Rows, 1)
	assert.Equal(t, "L3", body.Page.Rows[0].ID)
}

func TestListReportTab(t *testing.T) {
	router := newServiceRouter(t)
	rec := get(t, router, "/api/reports/loads?tab=pending")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"L2"`)
	assert.NotContains(t, rec.Body.String(), `"id":"L1"`)
}

func TestListReportRejectsBadInput(t *testing.T) {
	router := newServiceRouter(t)
	cases := map[string]int{
		"/api/reports/widgets":                                  http.StatusNotFound,
		"/api/reports/loads?page=two":                           http.StatusBadRequest,
		"/api/reports/loads?pageSize=-1":                        http.StatusBadRequest,
		"/api/reports/loads?tab=archived":                       http.StatusBadRequest,
		"/api/reports/overview?tab=shipped":                     http.StatusBadRequest,
		"/api/reports/loads?from=06/01/2024":                    http.StatusBadRequest,
		"/api/reports/loads?from=2024-06-30&to=2024-06-01":      http.StatusBadRequest,
		"/api/reports/loads/export?scope=everything":            http.StatusBadRequest,
		"/api/finance/balance-sheet?asOf=2024-06-31":            http.StatusBadRequest,
		"/api/finance/balance-sheet?asOf=2024-06-30&format=pdf": http.StatusBadRequest,
	}
	for target, status := range cases {
		rec := get(t, router, target)
		assert.Equal(t, status, rec.Code, target)
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"), target)
	}
}

func TestExportReport(t *testing.T) {
	router := newServiceRouter(t)

	rec := get(t, router, "/api/reports/loads/export?from=2024-06-01&to=2024-06-30&pageSize=1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="loads-report_2024-06-01_to_2024-06-30.csv"`, rec.Header().Get("Content-Disposition"))
	lines := strings.Split(rec.Body.String(), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "ID,Shipment No,Shipper,Carrier,Origin,Destination,Rate,Vehicle Type,Status,Date", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], `"L1","N/A","Acme"`), lines[1])

	rec = get(t, router, "/api/reports/loads/export?scope=all&pageSize=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="loads-report_2024-06-10.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Len(t, strings.Split(rec.Body.String(), "\n"), 4)
}

func TestOverview(t *testing.T) {
	router := newServiceRouter(t)
	rec := get(t, router, "/api/reports/overview?from=2024-06-01&to=2024-06-30")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body overviewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "2024-06-01", body.From)
	require.Len(t, body.Kinds, len(reports.Kinds))
	assert.Equal(t, 3.0, body.Kinds["loads"]["total"])
	assert.Equal(t, 175.0, body.Kinds["loads"]["totalValue"])
	assert.Equal(t, 0.0, body.Kinds["customers"]["total"])
}

func TestBalanceSheet(t *testing.T) {
	router := newServiceRouter(t)

	rec := get(t, router, "/api/finance/balance-sheet?asOf=2024-06-30")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body reports.BalanceSheetReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "2024-06-30", body.AsOf)
	assert.Len(t, body.Rows, 3)
	assert.True(t, body.Summary.Balanced)

	rec = get(t, router, "/api/finance/balance-sheet?asOf=2024-06-30&format=csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="balance-sheet_2024-06-30.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Body.String(), `"Assets","Current Assets","Cash",500`)
	assert.Contains(t, rec.Body.String(), `"Liabilities","Uncategorized","Loan",300`)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{reports.ErrSuperseded, http.StatusConflict},
		{fmt.Errorf("reports: fetch load: %w", upstream.ErrTransient), http.StatusBadGateway},
		{fmt.Errorf("reports: fetch load: %w", upstream.ErrRejected), http.StatusBadGateway},
		{fmt.Errorf("reports: fetch load: %w", upstream.ErrUnauthorized), http.StatusUnauthorized},
		{upstream.ErrNoCredentials, http.StatusUnauthorized},
		{context.DeadlineExceeded, http.StatusBadGateway},
		{fmt.Errorf("unexpected"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		router := newTestRouter(t, &stubService{err: tc.err})
		for _, target := range []string{"/api/reports/calls", "/api/reports/overview", "/api/finance/balance-sheet"} {
			rec := get(t, router, target)
			assert.Equal(t, tc.status, rec.Code, "%s: %v", target, tc.err)
		}
	}
}

func TestRequestCarriesTokenAndScreen(t *testing.T) {
	svc := &stubService{}
	router := newTestRouter(t, svc)

	rec := get(t, router, "/api/reports/follow-ups", "Authorization", "Bearer abc123", ScreenHeader, "follow-ups")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc123", svc.token)
	assert.Equal(t, reports.Screen("follow-ups"), svc.screen)

	rec = get(t, router, "/api/finance/balance-sheet", ScreenHeader, " balance ")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, reports.Screen("balance"), svc.screen)
}

func TestExportRateLimited(t *testing.T) {
	router := newServiceRouter(t)
	var last int
	for i := 0; i <= ExportLimit; i++ {
		last = get(t, router, "/api/reports/loads/export", "Authorization", "Bearer limited").Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
	assert.Equal(t, http.StatusOK, get(t, router, "/api/reports/loads").Code)
}
