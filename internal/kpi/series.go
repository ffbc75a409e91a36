// Package kpi computes daily financial metric series and derived
// indicators (burn rate, runway, growth) from stored transactions.
package kpi

import (
	"sort"

	"github.com/shopspring/decimal"

	"aurix/internal/domain"
)

// RunwayCap is returned when there is no burn to run out of cash on.
const RunwayCap = 999

// DailySeries maps day keys (YYYY-MM-DD) to metric values.
type DailySeries map[string]decimal.Decimal

// Days returns the series keys in ascending order.
func (s DailySeries) Days() []string {
	days := make([]string, 0, len(s))
	for day := range s {
		days = append(days, day)
	}
	sort.Strings(days)
	return days
}

// Total returns the sum of all values in the series.
func (s DailySeries) Total() decimal.Decimal {
	total := decimal.Zero
	for _, v := range s {
		total = total.Add(v)
	}
	return total
}

// DailyRevenue aggregates Revenue transactions into a per-day series.
func DailyRevenue(txns []*domain.Transaction) DailySeries {
	series := DailySeries{}
	for _, txn := range txns {
		if txn.Category != domain.CategoryRevenue {
			continue
		}
		day := txn.Day()
		series[day] = series[day].Add(txn.Amount)
	}
	return series
}

// DailyExpenses aggregates expense transactions into a per-day series of
// absolute values. A transaction counts as an expense when its category is
// in the expense taxonomy or its amount is negative.
func DailyExpenses(txns []*domain.Transaction) DailySeries {
	sums := DailySeries{}
	for _, txn := range txns {
		if !domain.IsExpenseCategory(txn.Category) && !txn.Amount.IsNegative() {
			continue
		}
		day := txn.Day()
		sums[day] = sums[day].Add(txn.Amount)
	}

	series := DailySeries{}
	for day, sum := range sums {
		series[day] = sum.Abs()
	}
	return series
}

// NetCash computes revenue minus expenses across the union of days.
func NetCash(revenue, expenses DailySeries) DailySeries {
	series := DailySeries{}
	for day, v := range revenue {
		series[day] = v.Sub(expenses[day])
	}
	for day, v := range expenses {
		if _, ok := revenue[day]; !ok {
			series[day] = v.Neg()
		}
	}
	return series
}

// BurnRate returns the average daily spend over the window: total expenses
// divided by the number of days.
func BurnRate(expenses DailySeries, days int) decimal.Decimal {
	if len(expenses) == 0 || days <= 0 {
		return decimal.Zero
	}
	return expenses.Total().Div(decimal.NewFromInt(int64(days)))
}

// Runway returns the number of days until cash runs out at the given burn
// rate. Zero burn means no runway pressure and returns RunwayCap.
func Runway(cash, burn decimal.Decimal) int {
	if burn.IsZero() {
		return RunwayCap
	}
	if cash.LessThanOrEqual(decimal.Zero) {
		return 0
	}
	return int(cash.Div(burn).IntPart())
}

// Growth summarizes revenue growth between two adjacent periods.
type Growth struct {
	RatePct        decimal.Decimal `json:"growth_rate_pct"`
	CurrentPeriod  decimal.Decimal `json:"current_period"`
	PreviousPeriod decimal.Decimal `json:"previous_period"`
}

// GrowthRate splits a revenue series at midDay (day key, exclusive for the
// current period) and returns the period-over-period growth percentage.
// A zero previous period yields a zero rate.
func GrowthRate(revenue DailySeries, midDay string) Growth {
	g := Growth{RatePct: decimal.Zero, CurrentPeriod: decimal.Zero, PreviousPeriod: decimal.Zero}

	for day, v := range revenue {
		if day > midDay {
			g.CurrentPeriod = g.CurrentPeriod.Add(v)
		} else {
			g.PreviousPeriod = g.PreviousPeriod.Add(v)
		}
	}

	if !g.PreviousPeriod.IsZero() {
		g.RatePct = g.CurrentPeriod.Sub(g.PreviousPeriod).
			Div(g.PreviousPeriod).
			Mul(decimal.NewFromInt(100))
	}
	return g
}
