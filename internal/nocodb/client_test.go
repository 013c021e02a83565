package nocodb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTableServer serves a fixed set of rows with NocoDB-style pagination.
func newTableServer(t *testing.T, tableID string, rows []Record) (*httptest.Server, *[]*http.Request) {
	t.Helper()
	var seen []*http.Request

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/tables/"+tableID+"/records", func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r)
		if r.Header.Get("xc-token") != "test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		if limit <= 0 {
			limit = len(rows)
		}
		end := offset + limit
		if end > len(rows) {
			end = len(rows)
		}
		page := rows[offset:end]

		resp := map[string]any{
			"list":     page,
			"PageInfo": map[string]any{"isLastPage": end >= len(rows)},
		}
		json.NewEncoder(w).Encode(resp)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &seen
}

func testRows(n int) []Record {
	rows := make([]Record, n)
	for i := range rows {
		rows[i] = Record{"Id": float64(i + 1), "Item": fmt.Sprintf("item-%d", i+1)}
	}
	return rows
}

func TestList_PaginationIsTransparent(t *testing.T) {
	rows := testRows(7)

	// Paginated: page size smaller than the matching set.
	srv, seen := newTableServer(t, "texp", rows)
	paged := New(srv.URL, "test-token", "texp", Options{PageSize: 3, Exhaustive: true})

	got, err := paged.List(context.Background(), "", "")
	require.NoError(t, err)

	// Unpaginated: everything in one page.
	srvAll, _ := newTableServer(t, "texp", rows)
	whole := New(srvAll.URL, "test-token", "texp", Options{PageSize: 100, Exhaustive: true})

	want, err := whole.List(context.Background(), "", "")
	require.NoError(t, err)

	assert.Equal(t, want, got, "paginated result must equal the single-page result")
	assert.Len(t, got, 7)
	assert.Equal(t, 3, len(*seen), "7 rows at page size 3 needs three requests")
}

func TestList_SinglePageClientDoesNotPaginate(t *testing.T) {
	rows := testRows(30)

	srv, seen := newTableServer(t, "tmag", rows)
	c := New(srv.URL, "test-token", "tmag", Options{PageSize: 25})

	got, err := c.List(context.Background(), "", "")
	require.NoError(t, err)

	assert.Len(t, got, 25, "bounded client returns one capped page")
	assert.Equal(t, 1, len(*seen), "bounded client must issue exactly one request")
	assert.Equal(t, "25", (*seen)[0].URL.Query().Get("limit"))
}

func TestList_FencedFilterForwardedVerbatim(t *testing.T) {
	srv, seen := newTableServer(t, "texp", testRows(1))
	c := New(srv.URL, "test-token", "texp", Options{PageSize: 10, Exhaustive: true})

	raw := "```json\n{\"filters\": [\"(Date,ge,exactDate,2025-03-01)\", \"(Date,lt,exactDate,2025-04-01)\"]}\n```"
	_, err := c.List(context.Background(), raw, "")
	require.NoError(t, err)

	where := (*seen)[0].URL.Query().Get("where")
	assert.Equal(t, "(Date,ge,exactDate,2025-03-01)~and(Date,lt,exactDate,2025-04-01)", where)
}

func TestList_SortPassedThrough(t *testing.T) {
	srv, seen := newTableServer(t, "texp", testRows(1))
	c := New(srv.URL, "test-token", "texp", Options{PageSize: 10})

	_, err := c.List(context.Background(), "", "-Date")
	require.NoError(t, err)
	assert.Equal(t, "-Date", (*seen)[0].URL.Query().Get("sort"))
}

func TestCreate_ReturnsAssignedID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v2/tables/texp/records", r.URL.Path)

		var fields Record
		require.NoError(t, json.NewDecoder(r.Body).Decode(&fields))
		fields["Id"] = 42
		json.NewEncoder(w).Encode(fields)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-token", "texp", Options{})
	created, err := c.Create(context.Background(), Record{"Item": "mangoes", "Amount": 40})
	require.NoError(t, err)
	assert.Equal(t, "42", created.ID())
	assert.Equal(t, "mangoes", created.String("Item"))
}

func TestCreate_StoreRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad field", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-token", "texp", Options{})
	_, err := c.Create(context.Background(), Record{"Item": "x"})

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Status)
	assert.Equal(t, "create", se.Op)
}

func TestRead_MissingRecordIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-token", "texp", Options{})
	rec, err := c.Read(context.Background(), "999")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestUpdate_PatchesOnlyGivenFields(t *testing.T) {
	var gotBody Record
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/v2/tables/tmag/records/7", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(gotBody)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-token", "tmag", Options{})
	_, err := c.Update(context.Background(), "7", Record{"Note": "updated"})
	require.NoError(t, err)
	assert.Equal(t, Record{"Note": "updated"}, gotBody)
}

func TestDelete_FailureIsFlagNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-token", "texp", Options{})
	assert.False(t, c.Delete(context.Background(), "1"))
}

func TestDelete_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-token", "texp", Options{})
	assert.True(t, c.Delete(context.Background(), "1"))
}

func TestLinkRecords(t *testing.T) {
	var gotPath string
	var gotBody []map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-token", "texp", Options{})
	err := c.LinkRecords(context.Background(), "lnk1", "42", []string{"7"})
	require.NoError(t, err)

	assert.Equal(t, "/api/v2/tables/texp/links/lnk1/records/42", gotPath)
	assert.Equal(t, []map[string]string{{"Id": "7"}}, gotBody)
}
