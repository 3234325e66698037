package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const page = `<!DOCTYPE html>
<html><body>
<table id="other"><tr><td>ignore</td></tr></table>
<table id="members">
  <thead><tr><th>Name</th><th>ID</th><th>Joined</th><th>Expires</th></tr></thead>
  <tbody>
    <tr><td>Doe, Jane</td><td>42</td><td>15/01/2024 10:00</td><td>15/01/2025 10:00</td></tr>
    <tr><td><a href="#">Roe,  Richard</a></td><td> 7 </td><td>01/09/2023 09:30</td><td>01/09/2024 09:30</td></tr>
    <tr><td>Bad, Id</td><td>abc</td><td>01/09/2023 09:30</td><td>01/09/2024 09:30</td></tr>
    <tr><td>Bad, Date</td><td>9</td><td>2023-09-01</td><td>01/09/2024 09:30</td></tr>
    <tr><td>Short, Row</td><td>10</td></tr>
  </tbody>
</table>
</body></html>`

func TestParseTable(t *testing.T) {
	res, err := ParseTable(strings.NewReader(page), "members")
	require.NoError(t, err)

	require.Len(t, res.Members, 2)
	jane := res.Members[0]
	require.Equal(t, "Doe, Jane", jane.Name)
	require.Equal(t, 42, jane.ID)
	require.True(t, jane.JoinDate.Equal(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)))
	require.True(t, jane.ExpireDate.Equal(time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)))

	richard := res.Members[1]
	require.Equal(t, "Roe, Richard", richard.Name)
	require.Equal(t, 7, richard.ID)

	require.Len(t, res.Skipped, 3)
	require.Equal(t, 4, res.Skipped[0].Row)
	require.Contains(t, res.Skipped[0].Reason, "member id")
	require.Contains(t, res.Skipped[1].Reason, "join date")
	require.Contains(t, res.Skipped[2].Error(), "row 6")
}

func TestParseTableMissing(t *testing.T) {
	_, err := ParseTable(strings.NewReader(page), "nope")
	require.ErrorIs(t, err, ErrTableNotFound)
}

func TestClientScrape(t *testing.T) {
	var gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		w.Write([]byte(page)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "session=abc", "members", time.Second)
	res, err := c.Scrape(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Members, 2)
	require.Equal(t, "session=abc", gotCookie)
}

func TestClientScrapeHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", "members", 0).Scrape(context.Background())
	require.ErrorContains(t, err, "HTTP 403")

	_, err = NewClient("", "", "members", 0).Scrape(context.Background())
	require.Error(t, err)
}
