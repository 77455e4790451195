package signal

import (
	"errors"
	"math"
	"testing"
	"time"

	"galileo/internal/domain"
)

func TestSMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}

	got, err := SMA(values, 3)
	if err != nil {
		t.Fatalf("SMA returned error: %v", err)
	}
	if got != 4 {
		t.Errorf("SMA(last 3 of 1..5) = %v, want 4", got)
	}

	if _, err := SMA(values, 6); !errors.Is(err, ErrNotEnoughData) {
		t.Errorf("SMA with short window returned %v, want ErrNotEnoughData", err)
	}
	if _, err := SMA(values, 0); err == nil {
		t.Error("SMA with zero period should fail")
	}
}

func TestTrueRange(t *testing.T) {
	prev := domain.Bar{Close: 100}

	// Plain high-low range.
	cur := domain.Bar{High: 105, Low: 101, Close: 103}
	if got := TrueRange(cur, prev); got != 5 {
		t.Errorf("TrueRange gap-up = %v, want 5 (|high−prior close|)", got)
	}

	// Gap down: |low − prior close| dominates.
	cur = domain.Bar{High: 96, Low: 92, Close: 93}
	if got := TrueRange(cur, prev); got != 8 {
		t.Errorf("TrueRange gap-down = %v, want 8", got)
	}
}

func TestATR(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.Bar, 15)
	for i := range bars {
		// Constant 2-point daily range, no gaps.
		bars[i] = domain.Bar{
			Date:  base.AddDate(0, 0, i),
			High:  101,
			Low:   99,
			Close: 100,
		}
	}

	got, err := ATR(bars, 14)
	if err != nil {
		t.Fatalf("ATR returned error: %v", err)
	}
	if math.Abs(got-2) > 1e-9 {
		t.Errorf("ATR of constant-range bars = %v, want 2", got)
	}

	if _, err := ATR(bars[:14], 14); !errors.Is(err, ErrNotEnoughData) {
		t.Errorf("ATR with 14 bars returned %v, want ErrNotEnoughData (needs 15)", err)
	}
}

func TestMaxHigh(t *testing.T) {
	bars := []domain.Bar{{High: 10}, {High: 30}, {High: 20}}
	if got := MaxHigh(bars); got != 30 {
		t.Errorf("MaxHigh = %v, want 30", got)
	}
}
