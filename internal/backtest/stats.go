package backtest

import (
	"math"
)

const tradingDaysPerYear = 252

// computeMetrics derives run performance from the equity curve and trades
func computeMetrics(initial float64, curve []EquityPoint, trades []Trade, commission float64) Metrics {
	m := Metrics{
		TotalTrades:     len(trades),
		FinalEquity:     initial,
		TotalCommission: commission,
	}
	if len(curve) > 0 {
		m.FinalEquity = curve[len(curve)-1].Equity
	}
	if initial > 0 {
		m.TotalReturn = (m.FinalEquity/initial - 1) * 100
		m.AnnualizedReturn = cagr(initial, m.FinalEquity, len(curve))
	}

	returns := dailyReturns(curve)
	m.SharpeRatio = sharpe(returns)
	m.SortinoRatio = sortino(returns)
	for _, p := range curve {
		m.MaxDrawdown = math.Max(m.MaxDrawdown, p.DrawdownPercent)
	}

	var grossProfit, grossLoss, winPct, lossPct float64
	var holding int
	for _, t := range trades {
		holding += t.HoldingDays
		switch {
		case t.IsWin():
			m.WinningTrades++
			grossProfit += t.PnL
			winPct += t.PnLPercent
		case t.IsLoss():
			m.LosingTrades++
			grossLoss -= t.PnL
			lossPct += t.PnLPercent
		}
	}
	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades) * 100
		m.AvgHoldingDays = float64(holding) / float64(m.TotalTrades)
	}
	if m.WinningTrades > 0 {
		m.AvgWin = winPct / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AvgLoss = lossPct / float64(m.LosingTrades)
	}
	m.ProfitFactor = profitFactor(grossProfit, grossLoss)
	return m
}

// cagr annualizes the return using bars/252 as the year fraction
func cagr(initial, final float64, bars int) float64 {
	years := float64(bars) / tradingDaysPerYear
	if years <= 0 || final <= 0 {
		return 0
	}
	return (math.Pow(final/initial, 1/years) - 1) * 100
}

func dailyReturns(curve []EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	out := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			continue
		}
		out = append(out, curve[i].Equity/prev-1)
	}
	return out
}

// sharpe is the annualized mean/stddev of daily returns at a zero
// risk-free rate; 0 when the deviation is zero or undefined
func sharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean, sd := meanStdDev(returns)
	if sd == 0 {
		return 0
	}
	return mean / sd * math.Sqrt(tradingDaysPerYear)
}

// sortino divides the mean daily return by the deviation of the negative
// returns only; 0 when there are fewer than two losing days or they do not
// vary
func sortino(returns []float64) float64 {
	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) < 2 {
		return 0
	}
	_, sd := meanStdDev(downside)
	if sd == 0 {
		return 0
	}
	mean, _ := meanStdDev(returns)
	return mean / sd * math.Sqrt(tradingDaysPerYear)
}

// meanStdDev returns the mean and sample standard deviation
func meanStdDev(values []float64) (mean, sd float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	if len(values) < 2 {
		return mean, 0
	}
	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(variance / float64(len(values)-1))
}

// profitFactor is gross profit over gross loss. No losses gives +Inf when
// there is profit and 0 otherwise.
func profitFactor(grossProfit, grossLoss float64) float64 {
	if grossLoss == 0 {
		if grossProfit > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return grossProfit / grossLoss
}

// monthlyReturns keys each calendar month "YYYY-MM" to the percent change
// from the equity before its first bar to the equity at its last bar
func monthlyReturns(initial float64, curve []EquityPoint) map[string]float64 {
	out := make(map[string]float64)
	start := initial
	for i, p := range curve {
		month := p.Date.Format("2006-01")
		last := i == len(curve)-1 || curve[i+1].Date.Format("2006-01") != month
		if !last {
			continue
		}
		if start > 0 {
			out[month] = (p.Equity/start - 1) * 100
		}
		start = p.Equity
	}
	return out
}
