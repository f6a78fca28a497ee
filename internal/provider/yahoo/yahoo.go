package yahoo

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/jeovahfialho/stock-etl/internal/provider"
	"github.com/jeovahfialho/stock-etl/pkg/errors"
)

const (
	DefaultBaseURL = "https://query1.finance.yahoo.com"

	FieldAdjClose    = "Adj Close"
	FieldDividends   = "Dividends"
	FieldStockSplits = "Stock Splits"
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=yahoo_test -destination=mock_http_client_test.go -source=yahoo.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client fetches daily bars from the Yahoo Finance chart API.
type Client struct {
	// baseURL is the base URL for the API.
	baseURL string
	// httpClient is the HTTP client.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
}

// Option is a configuration option for the Yahoo client.
type Option func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) Option {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

func New(options ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *Client) Name() string { return "yahoo" }

// chartResponse is the subset of the v8 chart payload the client reads.
// Price arrays hold pointers because Yahoo sends null for missing bars.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol               string `json:"symbol"`
				ExchangeTimezoneName string `json:"exchangeTimezoneName"`
			} `json:"meta"`
			Timestamp []int64 `json:"timestamp"`
			Events    struct {
				Dividends map[string]struct {
					Amount float64 `json:"amount"`
					Date   int64   `json:"date"`
				} `json:"dividends"`
				Splits map[string]struct {
					Date        int64   `json:"date"`
					Numerator   float64 `json:"numerator"`
					Denominator float64 `json:"denominator"`
				} `json:"splits"`
			} `json:"events"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// History returns one record per trading day between start and end.
// Records carry Date, Open, High, Low, Close, Adj Close, Volume, Dividends
// and Stock Splits. An empty window yields no records and no error.
func (c *Client) History(ctx context.Context, symbol string, start, end time.Time, interval string) ([]provider.Record, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid yahoo base url", err)
	}
	u = u.JoinPath("v8", "finance", "chart", symbol)

	query := url.Values{}
	query.Set("period1", strconv.FormatInt(start.Unix(), 10))
	query.Set("period2", strconv.FormatInt(end.Unix(), 10))
	query.Set("interval", interval)
	query.Set("events", "div,splits")
	query.Set("includeAdjustedClose", "true")
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeProviderFetchFailed, "failed to build yahoo request", err)
	}
	for key, values := range c.header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", "Mozilla/5.0")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeProviderFetchFailed, "yahoo request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeProviderFetchFailed, "failed to read yahoo response", err)
	}

	var chart chartResponse
	decodeErr := json.Unmarshal(body, &chart)

	// Yahoo reports unknown symbols as 404 with a chart.error body.
	if decodeErr == nil && chart.Chart.Error != nil {
		return nil, errors.Newf(errors.ErrCodeProviderFetchFailed, "yahoo api error for %s: %s (%s)",
			symbol, chart.Chart.Error.Description, chart.Chart.Error.Code)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.ErrCodeProviderFetchFailed, "yahoo: status %d for %s", resp.StatusCode, symbol)
	}
	if decodeErr != nil {
		return nil, errors.Wrap(errors.ErrCodeProviderMalformedResponse, "failed to decode yahoo response", decodeErr)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, errors.Newf(errors.ErrCodeProviderNoData, "yahoo returned no result for %s", symbol)
	}

	result := chart.Chart.Result[0]
	if len(result.Timestamp) == 0 {
		return []provider.Record{}, nil
	}
	if len(result.Indicators.Quote) == 0 {
		return nil, errors.Newf(errors.ErrCodeProviderMalformedResponse, "yahoo response for %s has no quote block", symbol)
	}

	loc := time.UTC
	if tz := result.Meta.ExchangeTimezoneName; tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}

	dividends := make(map[string]float64, len(result.Events.Dividends))
	for _, d := range result.Events.Dividends {
		dividends[dayKey(d.Date, loc)] = d.Amount
	}
	splits := make(map[string]float64, len(result.Events.Splits))
	for _, s := range result.Events.Splits {
		if s.Denominator != 0 {
			splits[dayKey(s.Date, loc)] = s.Numerator / s.Denominator
		}
	}

	quote := result.Indicators.Quote[0]
	var adjClose []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adjClose = result.Indicators.AdjClose[0].AdjClose
	}

	records := make([]provider.Record, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		t := time.Unix(ts, 0).In(loc)
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
		key := dayKey(ts, loc)

		records = append(records, provider.Record{
			provider.FieldDate:   day,
			provider.FieldOpen:   floatAt(quote.Open, i),
			provider.FieldHigh:   floatAt(quote.High, i),
			provider.FieldLow:    floatAt(quote.Low, i),
			provider.FieldClose:  floatAt(quote.Close, i),
			FieldAdjClose:        floatAt(adjClose, i),
			provider.FieldVolume: intAt(quote.Volume, i),
			FieldDividends:       dividends[key],
			FieldStockSplits:     splits[key],
		})
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i][provider.FieldDate].(time.Time).Before(records[j][provider.FieldDate].(time.Time))
	})

	return records, nil
}

func dayKey(ts int64, loc *time.Location) string {
	return time.Unix(ts, 0).In(loc).Format("2006-01-02")
}

// floatAt returns nil when the series is short or the cell is null.
func floatAt(series []*float64, i int) any {
	if i >= len(series) || series[i] == nil {
		return nil
	}
	return *series[i]
}

func intAt(series []*int64, i int) any {
	if i >= len(series) || series[i] == nil {
		return nil
	}
	return *series[i]
}

var _ provider.Provider = (*Client)(nil)
