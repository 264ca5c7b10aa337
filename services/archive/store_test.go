package archive

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mse_backend_project/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "data"), filepath.Join(t.TempDir(), "combined"))
	require.NoError(t, err)
	return store
}

func record(code string, date time.Time, lastPrice string) models.TradeRecord {
	return models.TradeRecord{
		Code:          code,
		Date:          date,
		LastPrice:     lastPrice,
		Max:           "21.510,00",
		Min:           "21.400,00",
		AvgPrice:      "21.480,00",
		PercentChange: "0,52",
		Quantity:      "35",
		TurnoverBest:  "751.800",
		TotalTurnover: "751.800",
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	store := newTestStore(t)

	records := []models.TradeRecord{
		record("ALK", time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), "21.400,00"),
		record("ALK", time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC), "21.510,00"),
	}
	require.NoError(t, store.WriteArchive("ALK", records))

	got, err := store.ReadArchive("ALK")
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestReadArchiveNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.ReadArchive("NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReadArchiveISODates(t *testing.T) {
	store := newTestStore(t)

	// Files written by earlier tooling carry ISO dates; reads accept both.
	f, err := os.Create(store.ArchivePath("ALK"))
	require.NoError(t, err)
	w := csv.NewWriter(f)
	require.NoError(t, w.Write(models.ArchiveColumns))
	require.NoError(t, w.Write([]string{"ALK", "2025-01-03", "21.510,00", "", "", "", "", "", "", ""}))
	w.Flush()
	require.NoError(t, f.Close())

	got, err := store.ReadArchive("ALK")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC), got[0].Date)
}

func TestWriteArchiveAtomicOverwrite(t *testing.T) {
	store := newTestStore(t)

	old := []models.TradeRecord{record("ALK", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), "100")}
	require.NoError(t, store.WriteArchive("ALK", old))
	replacement := []models.TradeRecord{
		record("ALK", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), "100"),
		record("ALK", time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), "101"),
	}
	require.NoError(t, store.WriteArchive("ALK", replacement))

	got, err := store.ReadArchive("ALK")
	require.NoError(t, err)
	assert.Equal(t, replacement, got)

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(store.ArchivePath("ALK")))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-")
	}
}

func TestLastDate(t *testing.T) {
	store := newTestStore(t)

	_, ok, err := store.LastDate("ALK")
	require.NoError(t, err)
	assert.False(t, ok)

	records := []models.TradeRecord{
		record("ALK", time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC), "1"),
		record("ALK", time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), "2"),
	}
	require.NoError(t, store.WriteArchive("ALK", records))

	last, ok, err := store.LastDate("ALK")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC), last)
}

func TestMergeArchives(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.WriteArchive("GRNT", []models.TradeRecord{
		record("GRNT", time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), "1"),
	}))
	require.NoError(t, store.WriteArchive("ALK", []models.TradeRecord{
		record("ALK", time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), "2"),
	}))

	// "MISSING" has no archive; the merge skips it.
	require.NoError(t, store.MergeArchives([]string{"ALK", "MISSING", "GRNT"}))

	f, err := os.Open(filepath.Join(filepath.Dir(store.ArchivePath("ALK")), "companies_data.csv"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 3) // header + 2 rows
	assert.Equal(t, models.ArchiveColumns, rows[0])
	// Directory order, not completion order.
	assert.Equal(t, "ALK", rows[1][0])
	assert.Equal(t, "GRNT", rows[2][0])
}

func TestCombinedRoundTrip(t *testing.T) {
	store := newTestStore(t)

	rows := []models.ConsolidatedRow{
		{
			Code: "ALK", Date: "03.01.2025",
			LastPrice: 21510, Max: 21510, Min: 21400,
			AvgPrice: "21.480,00", PercentChange: "0,52", Quantity: "35",
			TurnoverBest: 751800, TotalTurnover: "751.800",
			SMA20: 21000, SMA50: 20500, EMA20: 21100, EMA50: 20600,
			BBMid: 21000, RSI: 55.5, OBV: 1000000, Momentum: 110,
			Buy: false, Sell: false,
		},
	}
	require.NoError(t, store.WriteCombined("ALK", rows))

	got, err := store.ReadCombined("ALK")
	require.NoError(t, err)
	assert.Equal(t, rows, got)

	_, err = store.ReadCombined("NOPE")
	assert.True(t, errors.Is(err, ErrNotFound))
}
