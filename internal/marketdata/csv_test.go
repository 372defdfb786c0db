package marketdata

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newyorkwoo/buyStock/internal/contracts"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestReadPrices(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   []float64
		wantOK bool
	}{
		{
			name: "plain ohlcv",
			input: "Date,Open,High,Low,Close,Adj Close,Volume\n" +
				"2024-01-02,100,101,99,100.5,100.5,1000\n" +
				"2024-01-03,100.5,102,100,101.5,101.5,2000\n",
			want:   []float64{100.5, 101.5},
			wantOK: true,
		},
		{
			name: "multi header export",
			input: "Price,Close,High,Low,Open,Volume\n" +
				"Ticker,^IXIC,^IXIC,^IXIC,^IXIC,^IXIC\n" +
				"Date,,,,,\n" +
				"2024-01-02,14765.9,14887.8,14700.1,14873.7,7040000000\n",
			want:   []float64{14765.9},
			wantOK: true,
		},
		{
			name:   "close only, empty close skipped",
			input:  "date,close\n2024-01-02,10\n2024-01-03,\n2024-01-04 00:00:00-05:00,11\n",
			want:   []float64{10, 11},
			wantOK: true,
		},
		{
			name:   "missing close column",
			input:  "Date,Open\n2024-01-02,1\n",
			wantOK: false,
		},
		{
			name:   "bad close value",
			input:  "Date,Close\n2024-01-02,abc\n",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prices, err := ReadPrices(strings.NewReader(tt.input))
			if !tt.wantOK {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, contracts.Closes(prices))
		})
	}
}

func TestReadPrices_Fields(t *testing.T) {
	prices, err := ReadPrices(strings.NewReader("Date,Open,High,Low,Close,Volume\n2024-01-02,1,2,0.5,1.5,42\n"))
	require.NoError(t, err)
	require.Len(t, prices, 1)

	assert.Equal(t, contracts.PricePoint{Date: day(2024, 1, 2), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 42}, prices[0])
}

func TestReadSignals(t *testing.T) {
	signals, err := ReadSignals(strings.NewReader("Date,Signal\n2024-01-02,STRONG_BUY\n2024-01-03,hold\n2024-01-04, SELL\n"))
	require.NoError(t, err)

	assert.Equal(t, []contracts.DatedSignal{
		{Date: day(2024, 1, 2), Signal: contracts.SignalStrongBuy},
		{Date: day(2024, 1, 3), Signal: contracts.SignalHold},
		{Date: day(2024, 1, 4), Signal: contracts.SignalSell},
	}, signals)

	_, err = ReadSignals(strings.NewReader("Date,Signal\n2024-01-02,MOON\n"))
	assert.ErrorIs(t, err, contracts.ErrUnknownSignal)

	_, err = ReadSignals(strings.NewReader("Date,Action\n"))
	assert.Error(t, err)
}

func TestWritePricesRoundTrip(t *testing.T) {
	in := []contracts.PricePoint{
		{Date: day(2024, 1, 2), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 42},
		{Date: day(2024, 1, 3), Open: 1.5, High: 1.75, Low: 1.25, Close: 1.6, Volume: 7},
	}

	var buf bytes.Buffer
	require.NoError(t, WritePrices(&buf, in))

	out, err := ReadPrices(&buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
