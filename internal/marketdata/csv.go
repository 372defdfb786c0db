package marketdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/newyorkwoo/buyStock/internal/contracts"
)

var dateLayouts = []string{"2006-01-02", "2006/01/02", "20060102", time.RFC3339}

// ReadPrices reads daily bars from CSV with a header row.
// Date and Close columns are required (case-insensitive); Open, High, Low and Volume are optional.
// Rows whose date does not parse are skipped, which also drops the extra ticker header rows
// some exporters write. Empty closes are skipped.
func ReadPrices(r io.Reader) ([]contracts.PricePoint, error) {
	reader := newReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := indexColumns(header)

	dateCol, ok := cols["date"]
	if !ok {
		return nil, fmt.Errorf("csv header %v: missing date column", header)
	}
	closeCol, ok := cols["close"]
	if !ok {
		return nil, fmt.Errorf("csv header %v: missing close column", header)
	}

	prices := make([]contracts.PricePoint, 0)
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		date, ok := parseDate(field(record, dateCol))
		if !ok {
			continue
		}
		closeStr := field(record, closeCol)
		if closeStr == "" {
			continue
		}
		closePrice, err := strconv.ParseFloat(closeStr, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: close %q: %w", line, closeStr, err)
		}

		p := contracts.PricePoint{Date: date, Close: closePrice}
		p.Open = optionalFloat(record, cols, "open")
		p.High = optionalFloat(record, cols, "high")
		p.Low = optionalFloat(record, cols, "low")
		p.Volume = int64(optionalFloat(record, cols, "volume"))

		prices = append(prices, p)
	}

	return prices, nil
}

// ReadSignals reads Date,Signal rows. Unknown signal names are an error.
func ReadSignals(r io.Reader) ([]contracts.DatedSignal, error) {
	reader := newReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := indexColumns(header)

	dateCol, ok := cols["date"]
	if !ok {
		return nil, fmt.Errorf("csv header %v: missing date column", header)
	}
	signalCol, ok := cols["signal"]
	if !ok {
		return nil, fmt.Errorf("csv header %v: missing signal column", header)
	}

	signals := make([]contracts.DatedSignal, 0)
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		date, ok := parseDate(field(record, dateCol))
		if !ok {
			continue
		}
		sig, err := contracts.ParseSignal(field(record, signalCol))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		signals = append(signals, contracts.DatedSignal{Date: date, Signal: sig})
	}

	return signals, nil
}

// WritePrices writes bars in the same layout ReadPrices accepts
func WritePrices(w io.Writer, prices []contracts.PricePoint) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Date", "Open", "High", "Low", "Close", "Volume"}); err != nil {
		return err
	}
	for _, p := range prices {
		if err := writer.Write([]string{
			p.Date.Format("2006-01-02"),
			strconv.FormatFloat(p.Open, 'f', -1, 64),
			strconv.FormatFloat(p.High, 'f', -1, 64),
			strconv.FormatFloat(p.Low, 'f', -1, 64),
			strconv.FormatFloat(p.Close, 'f', -1, 64),
			strconv.FormatInt(p.Volume, 10),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func newReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	return reader
}

func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
		// yfinance 멀티 헤더: 첫 칸이 "Price"
		if i == 0 && name == "price" {
			name = "date"
		}
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	return cols
}

func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func optionalFloat(record []string, cols map[string]int, name string) float64 {
	i, ok := cols[name]
	if !ok {
		return 0
	}
	v, err := strconv.ParseFloat(field(record, i), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return contracts.DateOnly(t), true
		}
	}
	// "2020-01-02 00:00:00-05:00"
	if len(s) > 10 {
		if t, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
