package backtest

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"galileo/internal/domain"
)

// LoadUniverseCSV reads a screener snapshot CSV and returns its instruments.
// The file must have a header row; the "Ticker" column is required and
// "Market Cap" is optional (values like "1.5B" or "820M"). Rows with an
// empty ticker are skipped and duplicate tickers keep their first row.
func LoadUniverseCSV(path string) ([]domain.Instrument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrNoData)
	}

	tickerCol, capCol := -1, -1
	for i, name := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "ticker", "symbol":
			tickerCol = i
		case "market cap", "market_cap":
			capCol = i
		}
	}
	if tickerCol < 0 {
		return nil, fmt.Errorf("%s: no ticker column in header %v", path, rows[0])
	}

	seen := make(map[string]struct{})
	var universe []domain.Instrument
	for _, row := range rows[1:] {
		if tickerCol >= len(row) {
			continue
		}
		ticker := strings.ToUpper(strings.TrimSpace(row[tickerCol]))
		if ticker == "" {
			continue
		}
		if _, dup := seen[ticker]; dup {
			continue
		}
		seen[ticker] = struct{}{}

		var marketCap float64
		if capCol >= 0 && capCol < len(row) {
			// Unparseable caps degrade to unknown rather than dropping the row.
			marketCap, _ = domain.ParseMarketCap(row[capCol])
		}
		universe = append(universe, domain.Instrument{
			Ticker:    ticker,
			MarketCap: marketCap,
		})
	}

	if len(universe) == 0 {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrNoData)
	}
	return universe, nil
}
