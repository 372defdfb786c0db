package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newyorkwoo/buyStock/pkg/httputil"
	"github.com/newyorkwoo/buyStock/pkg/logger"
)

// 14:30 UTC is the US open, same calendar day in UTC and New York
func openAt(y int, m time.Month, d int) int64 {
	return time.Date(y, m, d, 14, 30, 0, 0, time.UTC).Unix()
}

func chartBody(t *testing.T) string {
	t.Helper()
	return `{"chart":{"result":[{
		"meta":{"symbol":"^IXIC","exchangeTimezoneName":"America/New_York"},
		"timestamp":[` + strings.Join([]string{
		itoa(openAt(2024, 1, 3)),
		itoa(openAt(2024, 1, 2)),
		itoa(openAt(2024, 1, 4)),
		itoa(openAt(2024, 1, 4)),
	}, ",") + `],
		"indicators":{"quote":[{
			"open":[101.0, 100.0, null, 103.0],
			"high":[102.0, 101.0, null, 104.0],
			"low":[99.0, 98.0, null, 102.0],
			"close":[101.5, 100.5, null, 103.5],
			"volume":[2000, 1000, null, 3000]
		}]}
	}],"error":null}}`
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*YahooClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	hc := httputil.New(nil, logger.NewNop()).DisableRetry()
	return NewYahooClient(hc, server.URL, nil), server
}

func TestYahooClient_FetchDaily(t *testing.T) {
	var gotPath, gotInterval string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotInterval = r.URL.Query().Get("interval")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chartBody(t)))
	})

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	prices, err := client.FetchDaily(context.Background(), "^IXIC", from, to)
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/%5EIXIC", gotPath)
	assert.Equal(t, "1d", gotInterval)

	// sorted, null close dropped, duplicate date collapsed
	require.Len(t, prices, 3)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), prices[0].Date)
	assert.Equal(t, 100.5, prices[0].Close)
	assert.Equal(t, int64(1000), prices[0].Volume)
	assert.Equal(t, 101.5, prices[1].Close)
	assert.Equal(t, 103.5, prices[2].Close)
	assert.Equal(t, 104.0, prices[2].High)
}

func TestYahooClient_ChartError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	})

	_, err := client.FetchDaily(context.Background(), "NOPE", time.Now().AddDate(0, 0, -5), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "symbol may be delisted")
}

func TestYahooClient_HTTPError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.FetchDaily(context.Background(), "^IXIC", time.Now().AddDate(0, 0, -5), time.Now())
	require.Error(t, err)

	var statusErr *httputil.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestParseChart_Empty(t *testing.T) {
	prices, err := parseChart(&chartResponse{})
	require.NoError(t, err)
	assert.NotNil(t, prices)
	assert.Empty(t, prices)
}
