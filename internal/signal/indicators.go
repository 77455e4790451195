// Package signal implements the per-instrument exit/entry signal detector
// and the moving-average / ATR indicators it is built on.
package signal

import (
	"errors"
	"math"

	"galileo/internal/domain"
)

// ErrNotEnoughData is returned when a window is shorter than the indicator
// period.
var ErrNotEnoughData = errors.New("not enough data")

// SMA computes the simple moving average of the trailing period values at
// the end of the slice.
func SMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(values) < period {
		return 0, ErrNotEnoughData
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period), nil
}

// TrueRange computes max(high−low, |high−prior close|, |low−prior close|).
func TrueRange(cur, prev domain.Bar) float64 {
	tr := cur.High - cur.Low
	if hc := math.Abs(cur.High - prev.Close); hc > tr {
		tr = hc
	}
	if lc := math.Abs(cur.Low - prev.Close); lc > tr {
		tr = lc
	}
	return tr
}

// ATR computes the average true range of the trailing period bars at the end
// of the slice. It needs period+1 bars (one extra for the prior close).
func ATR(bars []domain.Bar, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(bars) < period+1 {
		return 0, ErrNotEnoughData
	}
	sum := 0.0
	for i := len(bars) - period; i < len(bars); i++ {
		sum += TrueRange(bars[i], bars[i-1])
	}
	return sum / float64(period), nil
}

// MaxHigh returns the maximum High across the bars.
func MaxHigh(bars []domain.Bar) float64 {
	high := math.Inf(-1)
	for _, b := range bars {
		if b.High > high {
			high = b.High
		}
	}
	return high
}

func closes(bars []domain.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
