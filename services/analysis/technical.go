package analysis

import (
	"fmt"
	"math"
	"sort"
	"time"

	"mse_backend_project/models"
	"mse_backend_project/services/archive"
)

// Fixed indicator parameterization.
const (
	smaShortWindow = 20
	smaLongWindow  = 50
	emaShortWindow = 20
	emaLongWindow  = 50
	bbWindow       = 20
	rsiWindow      = 14
	momentumLag    = 10
)

// Engine computes technical indicators and trade signals from a cleaned
// per-instrument series and persists them next to the archive.
type Engine struct {
	store *archive.Store
}

// NewEngine creates an indicator engine over the given store.
func NewEngine(store *archive.Store) *Engine {
	return &Engine{store: store}
}

// bar is one cleaned observation: canonical Close/High/Low/Volume.
type bar struct {
	date   time.Time
	close  float64
	high   float64
	low    float64
	volume float64
}

// cleanSeries normalizes raw archive records into a cleaned series: locale
// numerals parsed to floats, duplicate dates dropped keeping the first,
// missing High/Low filled from Close, rows lacking Close or Volume dropped.
func cleanSeries(records []models.TradeRecord) []bar {
	sorted := make([]models.TradeRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	parse := func(s string) float64 {
		v, err := models.ParseLocaleFloat(s)
		if err != nil {
			return math.NaN()
		}
		return v
	}

	seen := make(map[string]bool)
	bars := make([]bar, 0, len(sorted))
	for _, rec := range sorted {
		key := rec.Date.Format(models.DateLayout)
		if seen[key] {
			continue
		}
		seen[key] = true

		b := bar{
			date:   rec.Date,
			close:  parse(rec.LastPrice),
			high:   parse(rec.Max),
			low:    parse(rec.Min),
			volume: parse(rec.TurnoverBest),
		}
		// Low-liquidity days report no separate high/low.
		if math.IsNaN(b.high) {
			b.high = b.close
		}
		if math.IsNaN(b.low) {
			b.low = b.close
		}
		if math.IsNaN(b.close) || math.IsNaN(b.volume) {
			continue
		}
		bars = append(bars, b)
	}
	return bars
}

// SMA returns the simple moving average series. Positions without a full
// window are NaN.
func SMA(period int, values []float64) []float64 {
	result := nanSlice(len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			result[i] = sum / float64(period)
		}
	}
	return result
}

// EMA returns the exponential moving average series, seeded from the first
// value. Positions without a full window are NaN.
func EMA(period int, values []float64) []float64 {
	result := nanSlice(len(values))
	if len(values) == 0 {
		return result
	}
	multiplier := 2.0 / float64(period+1)
	ema := values[0]
	if period == 1 {
		result[0] = values[0]
	}
	for i := 1; i < len(values); i++ {
		ema = (values[i]-ema)*multiplier + ema
		if i >= period-1 {
			result[i] = ema
		}
	}
	return result
}

// RSI returns the relative strength index series using Wilder smoothing.
// The first period positions are NaN. A series with no movement at all is
// neutral (50); gains with no losses saturate at 100.
func RSI(period int, values []float64) []float64 {
	result := nanSlice(len(values))
	if len(values) <= period {
		return result
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	result[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		result[i] = rsiValue(avgGain, avgLoss)
	}
	return result
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// OBV returns the cumulative on-balance volume series: a day whose close is
// not lower than the previous close adds its volume, a down day subtracts
// it. The first day adds its volume.
func OBV(closes, volumes []float64) []float64 {
	result := make([]float64, len(closes))
	obv := 0.0
	for i := range closes {
		if i > 0 && closes[i] < closes[i-1] {
			obv -= volumes[i]
		} else {
			obv += volumes[i]
		}
		result[i] = obv
	}
	return result
}

// Momentum returns the fixed-lag difference series. The first period
// positions are NaN.
func Momentum(period int, values []float64) []float64 {
	result := nanSlice(len(values))
	for i := period; i < len(values); i++ {
		result[i] = values[i] - values[i-period]
	}
	return result
}

func nanSlice(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

// AnalyzeStock reads an instrument's archive, computes the indicator and
// signal columns over the cleaned series, drops every row that lacks any
// computed value (the warm-up period) and persists the result.
func (e *Engine) AnalyzeStock(code string) error {
	records, err := e.store.ReadArchive(code)
	if err != nil {
		return fmt.Errorf("analyze %s: %w", code, err)
	}

	bars := cleanSeries(records)
	closes := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.close
		volumes[i] = b.volume
	}

	sma20 := SMA(smaShortWindow, closes)
	sma50 := SMA(smaLongWindow, closes)
	ema20 := EMA(emaShortWindow, closes)
	ema50 := EMA(emaLongWindow, closes)
	bbMid := SMA(bbWindow, closes)
	rsi := RSI(rsiWindow, closes)
	obv := OBV(closes, volumes)
	momentum := Momentum(momentumLag, closes)

	rows := make([]models.IndicatorRow, 0, len(bars))
	for i, b := range bars {
		computed := []float64{sma20[i], sma50[i], ema20[i], ema50[i], bbMid[i], rsi[i], obv[i], momentum[i]}
		complete := true
		for _, v := range computed {
			if math.IsNaN(v) {
				complete = false
				break
			}
		}
		if !complete {
			continue
		}
		rows = append(rows, models.IndicatorRow{
			Date:     b.date,
			Close:    b.close,
			High:     b.high,
			Low:      b.low,
			Volume:   b.volume,
			SMA20:    sma20[i],
			SMA50:    sma50[i],
			EMA20:    ema20[i],
			EMA50:    ema50[i],
			BBMid:    bbMid[i],
			RSI:      rsi[i],
			OBV:      obv[i],
			Momentum: momentum[i],
			Buy:      sma20[i] > sma50[i] && rsi[i] < 30,
			Sell:     sma20[i] < sma50[i] && rsi[i] > 70,
		})
	}

	if err := e.store.WriteAnalysis(code, rows); err != nil {
		return fmt.Errorf("analyze %s: %w", code, err)
	}
	return nil
}
