package backtest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"galileo/internal/domain"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "screener.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestLoadUniverseCSV(t *testing.T) {
	path := writeCSV(t, `Ticker,Company,Sector,Market Cap,Price
AAPL,Apple Inc,Technology,2.95T,185.60
msft,Microsoft,Technology,3.1T,400.10
NOCAP,NoCap Corp,Energy,-,12.00
`)

	universe, err := LoadUniverseCSV(path)
	if err != nil {
		t.Fatalf("LoadUniverseCSV: %v", err)
	}
	if len(universe) != 3 {
		t.Fatalf("got %d instruments, want 3", len(universe))
	}
	if universe[0].Ticker != "AAPL" || universe[0].MarketCap != 2.95e12 {
		t.Errorf("first = %+v, want AAPL with 2.95T cap", universe[0])
	}
	if universe[1].Ticker != "MSFT" {
		t.Errorf("ticker not upper-cased: %q", universe[1].Ticker)
	}
	if universe[2].MarketCap != 0 {
		t.Errorf("unknown cap = %v, want 0", universe[2].MarketCap)
	}
}

func TestLoadUniverseCSVSkipsDuplicatesAndBlanks(t *testing.T) {
	path := writeCSV(t, `Symbol,Market Cap
AAPL,2.9T
,1B
AAPL,3.0T
NVDA,2.2T
`)

	universe, err := LoadUniverseCSV(path)
	if err != nil {
		t.Fatalf("LoadUniverseCSV: %v", err)
	}
	if len(universe) != 2 {
		t.Fatalf("got %d instruments, want 2", len(universe))
	}
	// First occurrence wins.
	if universe[0].MarketCap != 2.9e12 {
		t.Errorf("AAPL cap = %v, want first-row 2.9T", universe[0].MarketCap)
	}
}

func TestLoadUniverseCSVNoTickerColumn(t *testing.T) {
	path := writeCSV(t, `Company,Market Cap
Apple,2.9T
`)

	if _, err := LoadUniverseCSV(path); err == nil {
		t.Fatal("expected error for missing ticker column")
	}
}

func TestLoadUniverseCSVEmpty(t *testing.T) {
	path := writeCSV(t, "Ticker,Market Cap\n")

	_, err := LoadUniverseCSV(path)
	if !errors.Is(err, domain.ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
}
