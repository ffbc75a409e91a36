package kpi

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"aurix/internal/domain"
)

func day(s string) time.Time {
	t, err := time.Parse(domain.DayFormat, s)
	if err != nil {
		panic(err)
	}
	return t
}

func txn(date string, amount int64, category string) *domain.Transaction {
	return &domain.Transaction{
		Date:     day(date),
		Amount:   decimal.NewFromInt(amount),
		Category: category,
	}
}

func TestDailyRevenue(t *testing.T) {
	txns := []*domain.Transaction{
		txn("2026-01-01", 1000, domain.CategoryRevenue),
		txn("2026-01-01", 500, domain.CategoryRevenue),
		txn("2026-01-02", 300, domain.CategoryRevenue),
		txn("2026-01-01", -200, domain.CategorySaaS), // not revenue
	}

	series := DailyRevenue(txns)
	if len(series) != 2 {
		t.Fatalf("Expected 2 days, got %d", len(series))
	}
	if !series["2026-01-01"].Equal(decimal.NewFromInt(1500)) {
		t.Errorf("Expected 1500 on day 1, got %s", series["2026-01-01"])
	}
	if !series["2026-01-02"].Equal(decimal.NewFromInt(300)) {
		t.Errorf("Expected 300 on day 2, got %s", series["2026-01-02"])
	}
}

func TestDailyExpenses(t *testing.T) {
	txns := []*domain.Transaction{
		txn("2026-01-01", -200, domain.CategorySaaS),
		txn("2026-01-01", -300, domain.CategoryMarketing),
		// Positive amount but expense category still counts
		txn("2026-01-02", 150, domain.CategoryPayroll),
		// Negative amount outside the expense taxonomy still counts
		txn("2026-01-03", -50, domain.CategoryOther),
		// Positive non-expense category does not
		txn("2026-01-03", 1000, domain.CategoryRevenue),
	}

	series := DailyExpenses(txns)
	if len(series) != 3 {
		t.Fatalf("Expected 3 days, got %d", len(series))
	}
	if !series["2026-01-01"].Equal(decimal.NewFromInt(500)) {
		t.Errorf("Expected abs(sum) 500 on day 1, got %s", series["2026-01-01"])
	}
	if !series["2026-01-02"].Equal(decimal.NewFromInt(150)) {
		t.Errorf("Expected 150 on day 2, got %s", series["2026-01-02"])
	}
	if !series["2026-01-03"].Equal(decimal.NewFromInt(50)) {
		t.Errorf("Expected 50 on day 3, got %s", series["2026-01-03"])
	}
}

func TestNetCash(t *testing.T) {
	revenue := DailySeries{
		"2026-01-01": decimal.NewFromInt(1000),
		"2026-01-02": decimal.NewFromInt(500),
	}
	expenses := DailySeries{
		"2026-01-01": decimal.NewFromInt(300),
		"2026-01-03": decimal.NewFromInt(200),
	}

	net := NetCash(revenue, expenses)
	if len(net) != 3 {
		t.Fatalf("Expected union of 3 days, got %d", len(net))
	}
	if !net["2026-01-01"].Equal(decimal.NewFromInt(700)) {
		t.Errorf("Expected 700, got %s", net["2026-01-01"])
	}
	if !net["2026-01-02"].Equal(decimal.NewFromInt(500)) {
		t.Errorf("Expected 500 on revenue-only day, got %s", net["2026-01-02"])
	}
	if !net["2026-01-03"].Equal(decimal.NewFromInt(-200)) {
		t.Errorf("Expected -200 on expense-only day, got %s", net["2026-01-03"])
	}
}

func TestBurnRate(t *testing.T) {
	expenses := DailySeries{
		"2026-01-01": decimal.NewFromInt(600),
		"2026-01-05": decimal.NewFromInt(300),
	}

	burn := BurnRate(expenses, 30)
	if !burn.Equal(decimal.NewFromInt(30)) {
		t.Errorf("Expected 900/30=30, got %s", burn)
	}

	if !BurnRate(DailySeries{}, 30).IsZero() {
		t.Error("Expected zero burn for empty series")
	}
}

func TestRunway(t *testing.T) {
	tests := []struct {
		name string
		cash int64
		burn int64
		want int
	}{
		{"zero burn is capped", 5000, 0, RunwayCap},
		{"no cash", 0, 100, 0},
		{"negative cash", -500, 100, 0},
		{"normal", 4500, 100, 45},
		{"floors fractional days", 4550, 100, 45},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Runway(decimal.NewFromInt(tt.cash), decimal.NewFromInt(tt.burn))
			if got != tt.want {
				t.Errorf("Runway(%d, %d) = %d, want %d", tt.cash, tt.burn, got, tt.want)
			}
		})
	}
}

func TestGrowthRate(t *testing.T) {
	revenue := DailySeries{
		"2026-01-10": decimal.NewFromInt(1000), // previous
		"2026-01-31": decimal.NewFromInt(500),  // previous (mid day inclusive)
		"2026-02-10": decimal.NewFromInt(3000), // current
	}

	g := GrowthRate(revenue, "2026-01-31")
	if !g.PreviousPeriod.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("Expected previous 1500, got %s", g.PreviousPeriod)
	}
	if !g.CurrentPeriod.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("Expected current 3000, got %s", g.CurrentPeriod)
	}
	if !g.RatePct.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected 100%% growth, got %s", g.RatePct)
	}
}

func TestGrowthRate_ZeroPrevious(t *testing.T) {
	revenue := DailySeries{
		"2026-02-10": decimal.NewFromInt(3000),
	}

	g := GrowthRate(revenue, "2026-01-31")
	if !g.RatePct.IsZero() {
		t.Errorf("Expected zero rate with no previous revenue, got %s", g.RatePct)
	}
}
