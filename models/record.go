package models

import (
	"fmt"
	"strconv"
	"time"
)

// DateLayout is the on-disk date format for all CSV files.
const DateLayout = "02.01.2006"

// archiveDateLayouts are the formats accepted when reading persisted files.
// Older files carry ISO dates, freshly written ones carry DateLayout.
var archiveDateLayouts = []string{DateLayout, "2006-01-02", "2006-01-02 15:04:05"}

// ParseArchiveDate parses a date cell from a persisted CSV file.
func ParseArchiveDate(s string) (time.Time, error) {
	for _, layout := range archiveDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// ArchiveColumns is the archive CSV header, in order.
var ArchiveColumns = []string{
	"Company Code",
	"Date",
	"Price of last transaction",
	"Max",
	"Min",
	"Average Price",
	"%change.",
	"Quantity",
	"Turnover in BEST in denars",
	"Total turnover in denars",
}

// ConsolidatedColumns is the fixed consolidated CSV header, in order.
var ConsolidatedColumns = []string{
	"Company Code",
	"Date",
	"Price of last transaction",
	"Max",
	"Min",
	"Average Price",
	"%change.",
	"Quantity",
	"Turnover in BEST in denars",
	"Total turnover in denars",
	"SMA_20",
	"SMA_50",
	"EMA_20",
	"EMA_50",
	"BB_Mid",
	"RSI",
	"OBV",
	"Momentum",
	"Buy_Signal",
	"Sell_Signal",
}

// TradeRecord is one trading-day observation for an instrument, as scraped.
// Numeric cells keep the source-locale string form ("1.234,56"); an empty
// string is the null marker for days the exchange reported no value.
type TradeRecord struct {
	Code          string
	Date          time.Time
	LastPrice     string
	Max           string
	Min           string
	AvgPrice      string
	PercentChange string
	Quantity      string
	TurnoverBest  string
	TotalTurnover string
}

// Row returns the record as an archive CSV row.
func (r TradeRecord) Row() []string {
	return []string{
		r.Code,
		r.Date.Format(DateLayout),
		r.LastPrice,
		r.Max,
		r.Min,
		r.AvgPrice,
		r.PercentChange,
		r.Quantity,
		r.TurnoverBest,
		r.TotalTurnover,
	}
}

// TradeRecordFromRow parses an archive CSV row.
func TradeRecordFromRow(row []string) (TradeRecord, error) {
	if len(row) != len(ArchiveColumns) {
		return TradeRecord{}, fmt.Errorf("expected %d columns, got %d", len(ArchiveColumns), len(row))
	}
	date, err := ParseArchiveDate(row[1])
	if err != nil {
		return TradeRecord{}, err
	}
	return TradeRecord{
		Code:          row[0],
		Date:          date,
		LastPrice:     row[2],
		Max:           row[3],
		Min:           row[4],
		AvgPrice:      row[5],
		PercentChange: row[6],
		Quantity:      row[7],
		TurnoverBest:  row[8],
		TotalTurnover: row[9],
	}, nil
}

// AnalysisColumns is the per-instrument analysis CSV header, in order.
var AnalysisColumns = []string{
	"Date",
	"Close",
	"High",
	"Low",
	"Volume",
	"SMA_20",
	"SMA_50",
	"EMA_20",
	"EMA_50",
	"BB_Mid",
	"RSI",
	"OBV",
	"Momentum",
	"Buy_Signal",
	"Sell_Signal",
}

// IndicatorRow is one fully-warmed row of the per-instrument analysis file.
type IndicatorRow struct {
	Date     time.Time `json:"date"`
	Close    float64   `json:"close"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Volume   float64   `json:"volume"`
	SMA20    float64   `json:"sma_20"`
	SMA50    float64   `json:"sma_50"`
	EMA20    float64   `json:"ema_20"`
	EMA50    float64   `json:"ema_50"`
	BBMid    float64   `json:"bb_mid"`
	RSI      float64   `json:"rsi"`
	OBV      float64   `json:"obv"`
	Momentum float64   `json:"momentum"`
	Buy      bool      `json:"buy_signal"`
	Sell     bool      `json:"sell_signal"`
}

// Row returns the row as an analysis CSV row.
func (r IndicatorRow) Row() []string {
	return []string{
		r.Date.Format(DateLayout),
		formatFloat(r.Close),
		formatFloat(r.High),
		formatFloat(r.Low),
		formatFloat(r.Volume),
		formatFloat(r.SMA20),
		formatFloat(r.SMA50),
		formatFloat(r.EMA20),
		formatFloat(r.EMA50),
		formatFloat(r.BBMid),
		formatFloat(r.RSI),
		formatFloat(r.OBV),
		formatFloat(r.Momentum),
		strconv.FormatBool(r.Buy),
		strconv.FormatBool(r.Sell),
	}
}

// IndicatorRowFromRow parses an analysis CSV row.
func IndicatorRowFromRow(row []string) (IndicatorRow, error) {
	if len(row) != len(AnalysisColumns) {
		return IndicatorRow{}, fmt.Errorf("expected %d columns, got %d", len(AnalysisColumns), len(row))
	}
	date, err := ParseArchiveDate(row[0])
	if err != nil {
		return IndicatorRow{}, err
	}
	floats := make([]float64, 13)
	for i := 1; i <= 12; i++ {
		v, err := strconv.ParseFloat(row[i], 64)
		if err != nil {
			return IndicatorRow{}, fmt.Errorf("column %q: %w", AnalysisColumns[i], err)
		}
		floats[i] = v
	}
	buy, err := strconv.ParseBool(row[13])
	if err != nil {
		return IndicatorRow{}, fmt.Errorf("column Buy_Signal: %w", err)
	}
	sell, err := strconv.ParseBool(row[14])
	if err != nil {
		return IndicatorRow{}, fmt.Errorf("column Sell_Signal: %w", err)
	}
	return IndicatorRow{
		Date:     date,
		Close:    floats[1],
		High:     floats[2],
		Low:      floats[3],
		Volume:   floats[4],
		SMA20:    floats[5],
		SMA50:    floats[6],
		EMA20:    floats[7],
		EMA50:    floats[8],
		BBMid:    floats[9],
		RSI:      floats[10],
		OBV:      floats[11],
		Momentum: floats[12],
		Buy:      buy,
		Sell:     sell,
	}, nil
}

// ConsolidatedRow is the inner join of a TradeRecord and its IndicatorRow,
// the unit returned by the data API. JSON keys mirror the CSV header so the
// record-oriented response matches the persisted file column for column.
type ConsolidatedRow struct {
	Code          string  `json:"Company Code"`
	Date          string  `json:"Date"`
	LastPrice     float64 `json:"Price of last transaction"`
	Max           float64 `json:"Max"`
	Min           float64 `json:"Min"`
	AvgPrice      string  `json:"Average Price"`
	PercentChange string  `json:"%change."`
	Quantity      string  `json:"Quantity"`
	TurnoverBest  float64 `json:"Turnover in BEST in denars"`
	TotalTurnover string  `json:"Total turnover in denars"`
	SMA20         float64 `json:"SMA_20"`
	SMA50         float64 `json:"SMA_50"`
	EMA20         float64 `json:"EMA_20"`
	EMA50         float64 `json:"EMA_50"`
	BBMid         float64 `json:"BB_Mid"`
	RSI           float64 `json:"RSI"`
	OBV           float64 `json:"OBV"`
	Momentum      float64 `json:"Momentum"`
	Buy           bool    `json:"Buy_Signal"`
	Sell          bool    `json:"Sell_Signal"`
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Row returns the row as a consolidated CSV row in the fixed column order.
func (r ConsolidatedRow) Row() []string {
	return []string{
		r.Code,
		r.Date,
		formatFloat(r.LastPrice),
		formatFloat(r.Max),
		formatFloat(r.Min),
		r.AvgPrice,
		r.PercentChange,
		r.Quantity,
		formatFloat(r.TurnoverBest),
		r.TotalTurnover,
		formatFloat(r.SMA20),
		formatFloat(r.SMA50),
		formatFloat(r.EMA20),
		formatFloat(r.EMA50),
		formatFloat(r.BBMid),
		formatFloat(r.RSI),
		formatFloat(r.OBV),
		formatFloat(r.Momentum),
		strconv.FormatBool(r.Buy),
		strconv.FormatBool(r.Sell),
	}
}

// ConsolidatedRowFromRow parses a consolidated CSV row.
func ConsolidatedRowFromRow(row []string) (ConsolidatedRow, error) {
	if len(row) != len(ConsolidatedColumns) {
		return ConsolidatedRow{}, fmt.Errorf("expected %d columns, got %d", len(ConsolidatedColumns), len(row))
	}
	floats := make([]float64, len(row))
	for _, i := range []int{2, 3, 4, 8, 10, 11, 12, 13, 14, 15, 16, 17} {
		v, err := strconv.ParseFloat(row[i], 64)
		if err != nil {
			return ConsolidatedRow{}, fmt.Errorf("column %q: %w", ConsolidatedColumns[i], err)
		}
		floats[i] = v
	}
	buy, err := strconv.ParseBool(row[18])
	if err != nil {
		return ConsolidatedRow{}, fmt.Errorf("column Buy_Signal: %w", err)
	}
	sell, err := strconv.ParseBool(row[19])
	if err != nil {
		return ConsolidatedRow{}, fmt.Errorf("column Sell_Signal: %w", err)
	}
	return ConsolidatedRow{
		Code:          row[0],
		Date:          row[1],
		LastPrice:     floats[2],
		Max:           floats[3],
		Min:           floats[4],
		AvgPrice:      row[5],
		PercentChange: row[6],
		Quantity:      row[7],
		TurnoverBest:  floats[8],
		TotalTurnover: row[9],
		SMA20:         floats[10],
		SMA50:         floats[11],
		EMA20:         floats[12],
		EMA50:         floats[13],
		BBMid:         floats[14],
		RSI:           floats[15],
		OBV:           floats[16],
		Momentum:      floats[17],
		Buy:           buy,
		Sell:          sell,
	}, nil
}
