package notifier

import (
	"fmt"
	"strings"

	"galileo/internal/domain"
)

// FormatDailyReport formats the daily pipeline outcome: regime, cohort, and
// any signal events.
func FormatDailyReport(state domain.RegimeState, cohort domain.Cohort, events []domain.SignalEvent) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>galileo daily</b> | %s\n\n", state.AsOf.Format("2006-01-02")))

	if state.HoldCash {
		b.WriteString("🛑 <b>Regime: hold cash</b>\n")
	} else {
		b.WriteString("✅ <b>Regime: invested</b>\n")
	}
	b.WriteString(fmt.Sprintf("  %s\n", state.Reason))
	b.WriteString(fmt.Sprintf("  benchmark %.2f | long MA %.2f | short MA %.2f\n\n",
		state.BenchmarkPrice, state.MALong, state.MAShort))

	if len(cohort.Entries) > 0 {
		b.WriteString("🏆 <b>Cohort:</b>\n")
		for _, e := range cohort.Entries {
			b.WriteString(fmt.Sprintf("  %d. %s %+.1f%%\n", e.Rank, e.Ticker, e.TrailingReturn*100))
		}
		b.WriteString("\n")
	}

	if len(events) > 0 {
		b.WriteString("⚡ <b>Signals:</b>\n")
		for _, ev := range events {
			b.WriteString(fmt.Sprintf("  %s %s @ %.2f (%+.1f%%)\n",
				signalLabel(ev.Kind), ev.Ticker, ev.Price, ev.Magnitude*100))
		}
	} else {
		b.WriteString("No signals today.\n")
	}

	return b.String()
}

// FormatBacktestReport formats a finished simulation for delivery.
func FormatBacktestReport(r *domain.PerformanceReport) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📈 <b>galileo backtest</b> | %s → %s\n\n",
		r.StartDate.Format("2006-01-02"), r.EndDate.Format("2006-01-02")))

	b.WriteString(fmt.Sprintf("Capital: $%.0f → $%.2f\n", r.InitialCapital, r.FinalValue))
	b.WriteString(fmt.Sprintf("Total return: %+.2f%%\n", r.TotalReturn*100))
	b.WriteString(fmt.Sprintf("CAGR: %+.2f%%\n", r.AnnualizedReturn*100))
	b.WriteString(fmt.Sprintf("Max drawdown: %.2f%%\n", r.MaxDrawdown*100))
	b.WriteString(fmt.Sprintf("Sharpe: %.2f | Win rate: %.1f%%\n", r.SharpeRatio, r.WinRate*100))
	b.WriteString(fmt.Sprintf("Trades: %d | Costs: $%.2f\n", len(r.TradeLog), r.TotalCosts))
	if r.CashHoldingDays > 0 {
		b.WriteString(fmt.Sprintf("Defensive cash days: %d\n", r.CashHoldingDays))
	}

	if len(r.Excluded) > 0 {
		b.WriteString("\n⚠️ <b>Excluded tickers:</b>\n")
		for _, ex := range r.Excluded {
			b.WriteString(fmt.Sprintf("  %s: %s\n", ex.Ticker, ex.Reason))
		}
	}

	return b.String()
}

func signalLabel(kind domain.SignalKind) string {
	switch kind {
	case domain.SignalTrailingStop:
		return "🔻 trailing stop"
	case domain.SignalHardStop:
		return "🛑 hard stop"
	case domain.SignalBreakout:
		return "🚀 breakout"
	default:
		return string(kind)
	}
}
