package reports

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadRows(n int) []Row {
	rows := make([]Row, n)
	statuses := []string{"approved", "rejected", "pending", "draft"}
	for i := range rows {
		rows[i] = Row{
			Kind:   KindLoad,
			ID:     fmt.Sprintf("L%03d", i),
			Status: statuses[i%len(statuses)],
			Fields: map[string]any{
				"shipperName": fmt.Sprintf("Shipper %d", i%3),
				"carrierName": "Carrier",
				"vehicleType": "Reefer",
			},
		}
	}
	return rows
}

func TestQueryFirstPageSize(t *testing.T) {
	for _, n := range []int{0, 1, 8, 9, 10, 15, 31} {
		for _, size := range []int{9, 15} {
			res := Query(loadRows(n), QueryParams{Tab: TabAll, Page: 1, PageSize: size})
			assert.Len(t, res.Rows, min(n, size), "n=%d size=%d", n, size)
		}
	}
}

func TestQueryTotalPagesAndClamp(t *testing.T) {
	rows := loadRows(31)
	res := Query(rows, QueryParams{Tab: "all", Page: 99, PageSize: 15})
	assert.Equal(t, 3, res.TotalPages())
	assert.Equal(t, 3, res.Pagination.Page)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "L030", res.Rows[0].ID)

	res = Query(rows, QueryParams{Page: -4, PageSize: 15})
	assert.Equal(t, 1, res.Pagination.Page)

	res = Query(nil, QueryParams{Page: 3, PageSize: 9})
	assert.Equal(t, 1, res.TotalPages())
	assert.Empty(t, res.Rows)
}

func TestQuerySearchIsCaseInsensitiveAcrossFields(t *testing.T) {
	rows := loadRows(12)
	res := Query(rows, QueryParams{Search: "SHIPPER 1", PageSize: 15})
	assert.Equal(t, 4, res.Pagination.Total)
	for _, row := range res.Rows {
		assert.Equal(t, "Shipper 1", row.String("shipperName"))
	}

	res = Query(rows, QueryParams{Search: "l011", PageSize: 15})
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "L011", res.Rows[0].ID)

	res = Query(rows, QueryParams{Search: "reefer", PageSize: 15})
	assert.Empty(t, res.Rows, "vehicle type is not searchable")
}

func TestQueryStatusTab(t *testing.T) {
	rows := loadRows(12)
	res := Query(rows, QueryParams{Tab: "approved", PageSize: 15})
	assert.Equal(t, 3, res.Pagination.Total)
	for _, row := range res.Rows {
		assert.Equal(t, "approved", row.Status)
	}

	res = Query(rows, QueryParams{Tab: "Pending", Search: "shipper 2", PageSize: 15})
	for _, row := range res.Rows {
		assert.Equal(t, BucketPending, BucketOf(row.Kind, row.Status))
		assert.Equal(t, "Shipper 2", row.String("shipperName"))
	}

	res = Query(rows, QueryParams{Tab: "archived", PageSize: 15})
	assert.Empty(t, res.Rows)
}

func TestQueryMatchedHoldsAllPages(t *testing.T) {
	res := Query(loadRows(20), QueryParams{Page: 2, PageSize: 9})
	assert.Len(t, res.Matched, 20)
	assert.Len(t, res.Rows, 9)
	assert.Equal(t, "L009", res.Rows[0].ID)
}

func TestValidTab(t *testing.T) {
	for _, tab := range []string{"", "all", "approved", "Rejected", "pending"} {
		assert.True(t, ValidTab(tab), tab)
	}
	assert.False(t, ValidTab("archived"))
}
