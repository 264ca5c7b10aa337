package scraper

import (
	"fmt"
	"strings"
	"time"

	"mse_backend_project/models"

	"github.com/PuerkitoBio/goquery"
)

// historyTableCells is the number of <td> cells in one results-table row:
// date plus the eight numeric columns.
const historyTableCells = 9

// FetchHistory retrieves one instrument's trade history within the inclusive
// date range. Each record's first field is the instrument code. Row order
// mirrors the page, which is not guaranteed chronological; callers sort.
// A window with no trades yields an empty slice, not an error.
func (c *Client) FetchHistory(code string, from, to time.Time) ([]models.TradeRecord, error) {
	url := fmt.Sprintf("%s%s?FromDate=%s&ToDate=%s",
		c.historyURL, code,
		from.Format(models.DateLayout),
		to.Format(models.DateLayout),
	)

	doc, err := c.getDocument(url)
	if err != nil {
		return nil, err
	}

	if doc.Find("#resultsTable").Length() == 0 {
		return nil, fmt.Errorf("%w: results table missing for %s", ErrMarkup, code)
	}

	var records []models.TradeRecord
	var rowErr error
	doc.Find("#resultsTable tbody tr").Each(func(_ int, row *goquery.Selection) {
		if rowErr != nil {
			return
		}
		cells := row.Find("td")
		if cells.Length() != historyTableCells {
			rowErr = fmt.Errorf("%w: expected %d cells, got %d for %s", ErrMarkup, historyTableCells, cells.Length(), code)
			return
		}
		values := make([]string, 0, historyTableCells)
		cells.Each(func(_ int, cell *goquery.Selection) {
			values = append(values, strings.TrimSpace(cell.Text()))
		})
		date, err := time.Parse(models.DateLayout, values[0])
		if err != nil {
			rowErr = fmt.Errorf("%w: bad date cell %q for %s", ErrMarkup, values[0], code)
			return
		}
		records = append(records, models.TradeRecord{
			Code:          code,
			Date:          date,
			LastPrice:     values[1],
			Max:           values[2],
			Min:           values[3],
			AvgPrice:      values[4],
			PercentChange: values[5],
			Quantity:      values[6],
			TurnoverBest:  values[7],
			TotalTurnover: values[8],
		})
	})
	if rowErr != nil {
		return nil, rowErr
	}

	return records, nil
}
