package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/opsdash/internal/platform/cache"
	"github.com/odyssey-erp/opsdash/internal/reports"
	"github.com/odyssey-erp/opsdash/internal/reports/categorytree"
	"github.com/odyssey-erp/opsdash/internal/shared"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(Config{BaseURL: srv.URL, Timeout: time.Second}, StaticToken("secret"), opts...)
	require.NoError(t, err)
	return client
}

func TestFetchRecordsSendsFiltersAndCredentials(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/reports/loads", r.URL.Path)
		assert.Equal(t, "2024-01-01", r.URL.Query().Get("startDate"))
		assert.Equal(t, "2024-01-31", r.URL.Query().Get("endDate"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Correlation-ID"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":[{"_id":"a"},{"_id":"b"},"junk"]}`))
	})

	rng, err := shared.ParseDateRange("2024-01-01", "2024-01-31")
	require.NoError(t, err)
	records, err := client.FetchRecords(context.Background(), reports.KindLoad, rng)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0]["_id"])
}

func TestFetchRecordsPrefersContextToken(t *testing.T) {
	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)
	client, err := NewClient(Config{BaseURL: srv.URL}, ContextToken{Fallback: StaticToken("service")})
	require.NoError(t, err)

	ctx := ContextWithToken(context.Background(), "user-token")
	_, err = client.FetchRecords(ctx, reports.KindCall, shared.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, "Bearer user-token", seen)

	_, err = client.FetchRecords(context.Background(), reports.KindCall, shared.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, "Bearer service", seen)
}

func TestFetchRecordsMapsStatusErrors(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{status: http.StatusUnauthorized, want: ErrUnauthorized},
		{status: http.StatusForbidden, want: ErrUnauthorized},
		{status: http.StatusBadRequest, want: ErrRejected},
		{status: http.StatusBadGateway, want: ErrTransient},
	}
	for _, tc := range cases {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		})
		_, err := client.FetchRecords(context.Background(), reports.KindLoad, shared.DateRange{})
		require.ErrorIs(t, err, tc.want, "status %d", tc.status)
	}
}

func TestFetchRecordsInvalidJSONIsTransient(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	})
	_, err := client.FetchRecords(context.Background(), reports.KindLoad, shared.DateRange{})
	require.ErrorIs(t, err, ErrTransient)
}

func TestFetchRecordsUsesPayloadCache(t *testing.T) {
	var hits atomic.Int32
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"data":{"records":[{"_id":"x"}]}}`))
	}, WithCache(cache.NewPayloads(rdb, time.Minute, nil)))

	for i := 0; i < 3; i++ {
		records, err := client.FetchRecords(context.Background(), reports.KindFollowUp, shared.DateRange{})
		require.NoError(t, err)
		require.Len(t, records, 1)
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestSharedFetchSurvivesFirstCallerCancel(t *testing.T) {
	var hits atomic.Int32
	started := make(chan struct{}, 1)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		select {
		case started <- struct{}{}:
		default:
		}
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"data":[{"_id":"l1"}]}`))
	})

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	defer cancelFirst()
	firstErr := make(chan error, 1)
	go func() {
		_, err := client.FetchRecords(firstCtx, reports.KindLoad, shared.DateRange{})
		firstErr <- err
	}()
	<-started

	type result struct {
		records []map[string]any
		err     error
	}
	second := make(chan result, 1)
	go func() {
		records, err := client.FetchRecords(context.Background(), reports.KindLoad, shared.DateRange{})
		second <- result{records, err}
	}()

	time.Sleep(20 * time.Millisecond)
	cancelFirst()
	require.ErrorIs(t, <-firstErr, ErrTransient)

	got := <-second
	require.NoError(t, got.err)
	require.Len(t, got.records, 1)
	assert.Equal(t, "l1", got.records[0]["_id"])
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetchBalanceSheetUnwrapsData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/finance/balance-sheet", r.URL.Path)
		assert.Equal(t, "2024-03-31", r.URL.Query().Get("asOfDate"))
		_, _ = w.Write([]byte(`{"data":{"liabilities":{"accounts":[{"accountName":"Loan","balance":5}]},"assets":{"accounts":[{"accountName":"Cash","balance":5}]}}}`))
	})
	tree, err := client.FetchBalanceSheet(context.Background(), time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	rows := categorytree.Flatten(tree)
	require.Len(t, rows, 2)
	assert.Equal(t, "Loan", rows[0].AccountName)
	assert.Equal(t, "Cash", rows[1].AccountName)
}

func TestNewClientValidates(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "not a url"}, StaticToken("x"))
	require.Error(t, err)
	_, err = NewClient(Config{BaseURL: "http://example.test"}, nil)
	require.ErrorIs(t, err, ErrNoCredentials)
}

func TestStaticTokenEmpty(t *testing.T) {
	_, err := StaticToken("  ").Token(context.Background())
	require.ErrorIs(t, err, ErrNoCredentials)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer  abc "))
	assert.Equal(t, "", BearerToken("Basic abc"))
	assert.Equal(t, "", BearerToken(""))
}

func TestUnwrapRecordsShapes(t *testing.T) {
	for _, body := range []string{
		`[{"_id":"1"}]`,
		`{"data":[{"_id":"1"}]}`,
		`{"data":{"items":[{"_id":"1"}]}}`,
		`{"results":[{"_id":"1"}]}`,
	} {
		records, err := UnwrapRecords([]byte(body))
		require.NoError(t, err, body)
		require.Len(t, records, 1, body)
	}
	records, err := UnwrapRecords([]byte(`{"message":"no data"}`))
	require.NoError(t, err)
	assert.Empty(t, records)
}
