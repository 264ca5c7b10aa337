package services

import (
	"errors"
	"fmt"
	"log"

	"mse_backend_project/models"
	"mse_backend_project/services/archive"
)

// ErrMissingInput is returned by Combine when the instrument's archive or
// indicator file does not exist. The pipeline skips such instruments; the
// API later answers Not Found for them.
var ErrMissingInput = errors.New("missing input file")

// ConsolidatorService joins an instrument's raw archive with its indicator
// output into the consolidated file served by the API. Both sides are
// re-read from disk so the indicator run and the consolidation run stay
// decoupled stages.
type ConsolidatorService struct {
	store *archive.Store
}

// NewConsolidatorService creates a consolidator over the given store.
func NewConsolidatorService(store *archive.Store) *ConsolidatorService {
	return &ConsolidatorService{store: store}
}

// Combine builds and persists the consolidated file for one instrument:
// re-normalized archive numerals inner-joined with indicator rows on date,
// under the fixed 20-column schema.
func (s *ConsolidatorService) Combine(code string) error {
	records, err := s.store.ReadArchive(code)
	if err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			log.Printf("Data file for %s not found", code)
			return fmt.Errorf("archive for %s: %w", code, ErrMissingInput)
		}
		return fmt.Errorf("combine %s: %w", code, err)
	}

	indicators, err := s.store.ReadAnalysis(code)
	if err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			log.Printf("Analysis file for %s not found", code)
			return fmt.Errorf("analysis for %s: %w", code, ErrMissingInput)
		}
		return fmt.Errorf("combine %s: %w", code, err)
	}

	byDate := make(map[string]models.IndicatorRow, len(indicators))
	for _, ind := range indicators {
		byDate[ind.Date.Format(models.DateLayout)] = ind
	}

	rows := make([]models.ConsolidatedRow, 0, len(indicators))
	joined := make(map[string]bool, len(indicators))
	for _, rec := range records {
		key := rec.Date.Format(models.DateLayout)
		ind, ok := byDate[key]
		if !ok || joined[key] {
			continue
		}
		joined[key] = true

		lastPrice, err := models.ParseLocaleFloat(rec.LastPrice)
		if err != nil {
			return fmt.Errorf("combine %s %s: last price: %w", code, key, err)
		}
		turnover, err := models.ParseLocaleFloat(rec.TurnoverBest)
		if err != nil {
			return fmt.Errorf("combine %s %s: turnover: %w", code, key, err)
		}
		// Days without a reported high/low fall back to the last price,
		// mirroring the indicator-side fill.
		max, err := models.ParseLocaleFloat(rec.Max)
		if err != nil {
			max = lastPrice
		}
		min, err := models.ParseLocaleFloat(rec.Min)
		if err != nil {
			min = lastPrice
		}

		rows = append(rows, models.ConsolidatedRow{
			Code:          code,
			Date:          key,
			LastPrice:     lastPrice,
			Max:           max,
			Min:           min,
			AvgPrice:      rec.AvgPrice,
			PercentChange: rec.PercentChange,
			Quantity:      rec.Quantity,
			TurnoverBest:  turnover,
			TotalTurnover: rec.TotalTurnover,
			SMA20:         ind.SMA20,
			SMA50:         ind.SMA50,
			EMA20:         ind.EMA20,
			EMA50:         ind.EMA50,
			BBMid:         ind.BBMid,
			RSI:           ind.RSI,
			OBV:           ind.OBV,
			Momentum:      ind.Momentum,
			Buy:           ind.Buy,
			Sell:          ind.Sell,
		})
	}

	if err := s.store.WriteCombined(code, rows); err != nil {
		return fmt.Errorf("combine %s: %w", code, err)
	}
	return nil
}
