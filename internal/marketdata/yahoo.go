package marketdata

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/newyorkwoo/buyStock/internal/contracts"
	"github.com/newyorkwoo/buyStock/pkg/httputil"
	"github.com/newyorkwoo/buyStock/pkg/logger"
)

// DefaultYahooBaseURL is the public chart API host
const DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

// YahooClient fetches daily bars from the Yahoo Finance chart API
// ⭐ SSOT: 외부 시세 API 호출은 이 클라이언트에서만
type YahooClient struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewYahooClient creates a new Yahoo chart client. Empty baseURL uses the public host.
func NewYahooClient(httpClient *httputil.Client, baseURL string, log *logger.Logger) *YahooClient {
	if baseURL == "" {
		baseURL = DefaultYahooBaseURL
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &YahooClient{
		httpClient: httpClient.WithHeader("User-Agent", "Mozilla/5.0 (compatible; buyStock/1.0)"),
		logger:     log.WithComponent("yahoo"),
		baseURL:    baseURL,
	}
}

// chartResponse mirrors the subset of /v8/finance/chart we read
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol   string `json:"symbol"`
				Timezone string `json:"exchangeTimezoneName"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchDaily fetches daily bars for symbol in [from, to].
// Bars without a close are dropped; the result is sorted with one bar per date.
func (c *YahooClient) FetchDaily(ctx context.Context, symbol string, from, to time.Time) ([]contracts.PricePoint, error) {
	params := url.Values{}
	params.Set("period1", fmt.Sprintf("%d", from.Unix()))
	// period2 is exclusive
	params.Set("period2", fmt.Sprintf("%d", to.AddDate(0, 0, 1).Unix()))
	params.Set("interval", "1d")
	params.Set("events", "history")

	fullURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())

	var resp chartResponse
	if err := c.httpClient.GetJSON(ctx, fullURL, &resp); err != nil {
		return nil, fmt.Errorf("fetch chart %s: %w", symbol, err)
	}

	prices, err := parseChart(&resp)
	if err != nil {
		return nil, fmt.Errorf("parse chart %s: %w", symbol, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"from":   from.Format("2006-01-02"),
		"to":     to.Format("2006-01-02"),
		"count":  len(prices),
	}).Debug("Fetched daily bars")

	return prices, nil
}

// parseChart converts the columnar chart payload into bars
func parseChart(resp *chartResponse) ([]contracts.PricePoint, error) {
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("chart api error %s: %s", resp.Chart.Error.Code, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return []contracts.PricePoint{}, nil
	}

	result := resp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return []contracts.PricePoint{}, nil
	}
	quote := result.Indicators.Quote[0]

	loc := time.UTC
	if result.Meta.Timezone != "" {
		if l, err := time.LoadLocation(result.Meta.Timezone); err == nil {
			loc = l
		}
	}

	byDate := make(map[time.Time]contracts.PricePoint, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		closePrice := at(quote.Close, i)
		if closePrice == nil {
			continue
		}

		// 거래소 현지 날짜 기준
		local := time.Unix(ts, 0).In(loc)
		date := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)

		p := contracts.PricePoint{Date: date, Close: *closePrice}
		if v := at(quote.Open, i); v != nil {
			p.Open = *v
		}
		if v := at(quote.High, i); v != nil {
			p.High = *v
		}
		if v := at(quote.Low, i); v != nil {
			p.Low = *v
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			p.Volume = *quote.Volume[i]
		}

		// 같은 날짜가 중복되면 마지막 값 사용
		byDate[date] = p
	}

	prices := make([]contracts.PricePoint, 0, len(byDate))
	for _, p := range byDate {
		prices = append(prices, p)
	}
	sort.Slice(prices, func(a, b int) bool {
		return prices[a].Date.Before(prices[b].Date)
	})

	return prices, nil
}

func at(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}
