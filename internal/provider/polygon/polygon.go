package polygon

import (
	"context"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"

	"github.com/jeovahfialho/stock-etl/internal/provider"
	"github.com/jeovahfialho/stock-etl/pkg/errors"
)

const (
	FieldVWAP         = "VWAP"
	FieldTransactions = "Transactions"
)

// Client reads daily aggregates from Polygon.
type Client struct {
	client *polygon.Client
	loc    *time.Location
}

func New(apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeMissingParameter, "polygon api key is required")
	}

	// Daily aggregates are stamped at midnight US/Eastern.
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}

	return &Client{
		client: polygon.New(apiKey),
		loc:    loc,
	}, nil
}

func (c *Client) Name() string { return "polygon" }

func (c *Client) History(ctx context.Context, symbol string, start, end time.Time, interval string) ([]provider.Record, error) {
	if interval != provider.IntervalDaily {
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "polygon client only serves %s bars, got %s", provider.IntervalDaily, interval)
	}

	params := models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: 1,
		Timespan:   models.Day,
		From:       models.Millis(start),
		To:         models.Millis(end),
	}.WithLimit(50000)

	iter := c.client.ListAggs(ctx, params)

	var records []provider.Record
	for iter.Next() {
		records = append(records, recordFromAgg(iter.Item(), c.loc))
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeProviderFetchFailed, err, "polygon aggregates for %s", symbol)
	}

	return records, nil
}

func recordFromAgg(agg models.Agg, loc *time.Location) provider.Record {
	t := time.Time(agg.Timestamp).In(loc)
	return provider.Record{
		provider.FieldDate:   time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc),
		provider.FieldOpen:   agg.Open,
		provider.FieldHigh:   agg.High,
		provider.FieldLow:    agg.Low,
		provider.FieldClose:  agg.Close,
		provider.FieldVolume: agg.Volume,
		FieldVWAP:            agg.VWAP,
		FieldTransactions:    agg.Transactions,
	}
}
