package provider

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"galileo/internal/domain"
)

// Compile-time interface check.
var _ PriceProvider = (*Alpaca)(nil)

// Alpaca fetches daily bars from the Alpaca market-data API.
type Alpaca struct {
	client *marketdata.Client
	feed   marketdata.Feed
}

// NewAlpaca creates an Alpaca provider with the given credentials. dataURL
// overrides the default market-data endpoint when non-empty.
func NewAlpaca(apiKey, apiSecret, dataURL string) *Alpaca {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	return &Alpaca{
		client: marketdata.NewClient(opts),
		feed:   marketdata.IEX,
	}
}

// GetHistory fetches daily bars for ticker within [start, end].
func (p *Alpaca) GetHistory(ctx context.Context, ticker string, start, end time.Time) (*domain.PriceSeries, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	symbol := strings.ToUpper(ticker)
	alpacaBars, err := p.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		End:       end,
		Feed:      p.feed,
	})
	if err != nil {
		return nil, fmt.Errorf("GetBars %s: %w", symbol, err)
	}
	if len(alpacaBars) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, domain.ErrNoData)
	}

	bars := make([]domain.Bar, 0, len(alpacaBars))
	for _, ab := range alpacaBars {
		// Normalize to midnight UTC so dates compare cleanly across sources.
		d := ab.Timestamp.UTC()
		bars = append(bars, domain.Bar{
			Symbol: symbol,
			Date:   time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC),
			Open:   ab.Open,
			High:   ab.High,
			Low:    ab.Low,
			Close:  ab.Close,
			Volume: int64(ab.Volume),
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	series := &domain.PriceSeries{Ticker: symbol, Bars: bars}
	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}
	return series, nil
}
