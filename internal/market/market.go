// Package market reshapes per-instrument price bars into a single long
// Table with one row per (date, instrument).
package market

import (
	"fmt"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/tablekit/internal/errors"
	"github.com/paveg/tablekit/internal/series"
	"github.com/paveg/tablekit/internal/table"
	"github.com/paveg/tablekit/internal/validation"
)

// Column names of a stacked market table
const (
	ColDate   = "date"
	ColTicker = "ticker"
	ColOpen   = "open"
	ColHigh   = "high"
	ColLow    = "low"
	ColClose  = "close"
	ColVolume = "volume"
)

// Columns lists the stacked table's columns in order
var Columns = []string{ColDate, ColTicker, ColOpen, ColHigh, ColLow, ColClose, ColVolume}

// Bar is one OHLCV observation
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// InstrumentSeries is the bar history of one instrument
type InstrumentSeries struct {
	Ticker string
	Bars   []Bar
}

// Stack concatenates the bars of every instrument into one Table with the
// columns date, ticker, open, high, low, close, volume. Instruments keep the
// given order and bars keep their order within an instrument.
func Stack(instruments []InstrumentSeries) (*table.Table, error) {
	const op = "Stack"
	if len(instruments) == 0 {
		return nil, errors.NewEmptyInputError(op, "at least one instrument is required")
	}

	tickers := make([]string, len(instruments))
	rows := 0
	for i, inst := range instruments {
		if strings.TrimSpace(inst.Ticker) == "" {
			return nil, errors.NewInvalidInputError(op, fmt.Sprintf("instrument %d has no ticker", i))
		}
		tickers[i] = inst.Ticker
		rows += len(inst.Bars)
	}
	if err := validation.ValidateUniqueNames(tickers, op, "ticker"); err != nil {
		return nil, err
	}

	mem := memory.NewGoAllocator()
	var (
		dates   = make([]time.Time, 0, rows)
		names   = make([]string, 0, rows)
		opens   = make([]float64, 0, rows)
		highs   = make([]float64, 0, rows)
		lows    = make([]float64, 0, rows)
		closes  = make([]float64, 0, rows)
		volumes = make([]int64, 0, rows)
	)
	for _, inst := range instruments {
		for _, bar := range inst.Bars {
			dates = append(dates, bar.Date.UTC())
			names = append(names, inst.Ticker)
			opens = append(opens, bar.Open)
			highs = append(highs, bar.High)
			lows = append(lows, bar.Low)
			closes = append(closes, bar.Close)
			volumes = append(volumes, bar.Volume)
		}
	}

	return table.New(
		series.New(ColDate, dates, mem),
		series.New(ColTicker, names, mem),
		series.New(ColOpen, opens, mem),
		series.New(ColHigh, highs, mem),
		series.New(ColLow, lows, mem),
		series.New(ColClose, closes, mem),
		series.New(ColVolume, volumes, mem),
	)
}

// BarsFromTable reads bars from a per-instrument Table holding date, open,
// high, low, close and volume columns. Column names match case-insensitively
// and rows with a null date or price are skipped.
func BarsFromTable(t *table.Table) ([]Bar, error) {
	const op = "BarsFromTable"
	if t == nil {
		return nil, errors.NewInputTypeError(op, "expected a table, got nil")
	}

	byName := make(map[string]string, t.Width())
	for _, name := range t.Columns() {
		byName[strings.ToLower(strings.TrimSpace(name))] = name
	}

	wanted := []string{ColDate, ColOpen, ColHigh, ColLow, ColClose, ColVolume}
	cols := make(map[string]series.Column, len(wanted))
	var missing []string
	for _, name := range wanted {
		actual, ok := byName[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		cols[name], _ = t.Column(actual)
	}
	if len(missing) > 0 {
		return nil, errors.NewMissingColumnsError(op, missing)
	}

	if k := cols[ColDate].Kind(); k != series.KindDatetime {
		return nil, errors.NewValidationError(op, cols[ColDate].Name(), fmt.Sprintf("requires a datetime column, got %s", k))
	}
	for _, name := range wanted[1:] {
		if k := cols[name].Kind(); !k.IsNumeric() {
			return nil, errors.NewValidationError(op, cols[name].Name(), fmt.Sprintf("requires a numeric column, got %s", k))
		}
	}

	bars := make([]Bar, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		date, ok := cols[ColDate].Value(i).(time.Time)
		if !ok {
			continue
		}
		bar := Bar{Date: date}
		prices := []*float64{&bar.Open, &bar.High, &bar.Low, &bar.Close}
		complete := true
		for j, name := range []string{ColOpen, ColHigh, ColLow, ColClose} {
			f, ok := series.ToFloat(cols[name].Value(i))
			if !ok {
				complete = false
				break
			}
			*prices[j] = f
		}
		if !complete {
			continue
		}
		if v, ok := series.ToFloat(cols[ColVolume].Value(i)); ok {
			bar.Volume = int64(v)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}
