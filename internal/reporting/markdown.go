package reporting

import (
	"fmt"
	"strings"
	"time"

	"aurix/internal/domain"
)

// RenderMarkdown renders the report as a Markdown string.
func RenderMarkdown(d *ReportData) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# %s\n\n", d.TenantName))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", d.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Period: %s to %s (%s) | Transactions: %d\n\n",
		d.PeriodStart.Format(domain.DayFormat), d.PeriodEnd.Format(domain.DayFormat),
		d.ReportType, d.TransactionCount))

	// KPIs
	sb.WriteString("## Key Performance Indicators\n\n")
	if s := d.Snapshot; s != nil {
		sb.WriteString("| Indicator | Value |\n")
		sb.WriteString("|-----------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Total Revenue | %s |\n", s.TotalRevenue.StringFixed(2)))
		sb.WriteString(fmt.Sprintf("| Total Expenses | %s |\n", s.TotalExpenses.StringFixed(2)))
		sb.WriteString(fmt.Sprintf("| Net Cash Flow | %s |\n", s.TotalNetCash.StringFixed(2)))
		sb.WriteString(fmt.Sprintf("| Avg Daily Revenue | %s |\n", s.AvgDailyRevenue.StringFixed(2)))
		sb.WriteString(fmt.Sprintf("| Avg Daily Expenses | %s |\n", s.AvgDailyExpenses.StringFixed(2)))
		sb.WriteString(fmt.Sprintf("| Burn Rate (daily) | %s |\n", s.BurnRate.StringFixed(2)))
		sb.WriteString(fmt.Sprintf("| Runway (days) | %d |\n", s.RunwayDays))
		sb.WriteString(fmt.Sprintf("| Revenue Growth | %s%% |\n", s.Growth.RatePct.StringFixed(1)))
	} else {
		sb.WriteString("No KPI data available.\n")
	}
	sb.WriteString("\n")

	// Expense breakdown
	sb.WriteString("## Expenses by Category\n\n")
	if len(d.Expenses) > 0 {
		sb.WriteString("| Category | Total | Transactions |\n")
		sb.WriteString("|----------|-------|--------------|\n")
		for _, e := range d.Expenses {
			sb.WriteString(fmt.Sprintf("| %s | %.2f | %d |\n", e.Category, e.Total, e.Count))
		}
	} else {
		sb.WriteString("No expenses recorded in this period.\n")
	}
	sb.WriteString("\n")

	// Forecasts
	sb.WriteString("## Forecasts\n\n")
	if len(d.Forecasts) > 0 {
		sb.WriteString("| Metric | Horizon | Through | Projected | Accuracy |\n")
		sb.WriteString("|--------|---------|---------|-----------|----------|\n")
		for _, f := range d.Forecasts {
			accuracy := "n/a"
			if f.AccuracyScore != nil {
				accuracy = fmt.Sprintf("%.2f", *f.AccuracyScore)
			}
			sb.WriteString(fmt.Sprintf("| %s | %dd | %s | %.2f | %s |\n",
				f.Metric, f.HorizonDays, f.ForecastEnd, f.EndValue, accuracy))
		}
	} else {
		sb.WriteString("No forecasts available.\n")
	}
	sb.WriteString("\n")

	// AI commentary
	if s := d.AISummary; s != nil {
		sb.WriteString("## AI Summary\n\n")
		sb.WriteString(s.Summary + "\n\n")
		writeBullets(&sb, "Insights", s.Insights)
		writeBullets(&sb, "Risks", s.Risks)
		writeBullets(&sb, "Recommended Actions", s.Actions)
	}

	return sb.String()
}

func writeBullets(sb *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("### %s\n\n", heading))
	for _, item := range items {
		sb.WriteString(fmt.Sprintf("- %s\n", item))
	}
	sb.WriteString("\n")
}
