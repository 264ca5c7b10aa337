package scraper

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const issuerListingPage = `<html><body>
<table id="otherlisting-table"><tbody>
<tr><td>ALK</td><td>Alkaloid AD Skopje</td></tr>
<tr><td>GRNT</td><td>Granit AD Skopje</td></tr>
</tbody></table>
</body></html>`

const historyPageWithCodes = `<html><body>
<select id="Code">
<option>ALK</option>
<option>GRNT</option>
<option>KMB</option>
<option>TTK130926</option>
<option>RZUS</option>
<option>ALK</option>
</select>
<table id="resultsTable"><tbody></tbody></table>
</body></html>`

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/issuers", srv.URL+"/history/", 5*time.Second), srv
}

func TestFetchIssuerCodes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/issuers", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, issuerListingPage)
	})
	mux.HandleFunc("/history/ALK", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, historyPageWithCodes)
	})
	client, _ := newTestClient(t, mux)

	codes, err := client.FetchIssuerCodes()
	require.NoError(t, err)

	// Digit-bearing entries are excluded, duplicates collapsed, order kept.
	assert.Equal(t, []string{"ALK", "GRNT", "KMB", "RZUS"}, codes)
}

func TestFetchIssuerCodesMissingListing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/issuers", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>maintenance</p></body></html>`)
	})
	client, _ := newTestClient(t, mux)

	_, err := client.FetchIssuerCodes()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMarkup)
}

func TestFetchIssuerCodesMissingDropdown(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/issuers", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, issuerListingPage)
	})
	mux.HandleFunc("/history/ALK", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>no dropdown here</p></body></html>`)
	})
	client, _ := newTestClient(t, mux)

	_, err := client.FetchIssuerCodes()
	assert.ErrorIs(t, err, ErrMarkup)
}

const historyTablePage = `<html><body>
<table id="resultsTable"><tbody>
<tr>
<td>03.01.2025</td><td>21.510,00</td><td>21.510,00</td><td>21.400,00</td>
<td>21.480,00</td><td>0,52</td><td>35</td><td>751.800</td><td>751.800</td>
</tr>
<tr>
<td>02.01.2025</td><td>21.400,00</td><td></td><td></td>
<td>21.400,00</td><td>0,00</td><td>0</td><td></td><td>0</td>
</tr>
</tbody></table>
</body></html>`

func TestFetchHistory(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/history/ALK", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "01.01.2024", r.URL.Query().Get("FromDate"))
		assert.Equal(t, "31.12.2024", r.URL.Query().Get("ToDate"))
		fmt.Fprint(w, historyTablePage)
	})
	client, _ := newTestClient(t, mux)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	records, err := client.FetchHistory("ALK", from, to)
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "ALK", first.Code)
	assert.Equal(t, time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Equal(t, "21.510,00", first.LastPrice)
	assert.Equal(t, "751.800", first.TurnoverBest)

	// Empty cells survive as the null marker.
	second := records[1]
	assert.Equal(t, "", second.Max)
	assert.Equal(t, "", second.TurnoverBest)
}

func TestFetchHistoryEmptyWindow(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/history/ALK", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><table id="resultsTable"><tbody></tbody></table></body></html>`)
	})
	client, _ := newTestClient(t, mux)

	records, err := client.FetchHistory("ALK", time.Now().AddDate(-1, 0, 0), time.Now())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFetchHistoryMissingTable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/history/ALK", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>unexpected</p></body></html>`)
	})
	client, _ := newTestClient(t, mux)

	_, err := client.FetchHistory("ALK", time.Now().AddDate(-1, 0, 0), time.Now())
	assert.ErrorIs(t, err, ErrMarkup)
}

func TestFetchHistoryServerError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/history/ALK", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	client, _ := newTestClient(t, mux)

	_, err := client.FetchHistory("ALK", time.Now().AddDate(-1, 0, 0), time.Now())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMarkup)
}
