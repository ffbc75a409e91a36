package narrative

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"aurix/internal/domain"
	"aurix/internal/kpi"
	"aurix/internal/observability"
)

// forecastHeadDays is how many projected days are shown to the model.
const forecastHeadDays = 7

// Prompt names used as metric labels.
const (
	promptFinancialSummary = "financial_summary"
	promptForecastAnalysis = "forecast_analysis"
	promptExpenseAnalysis  = "expense_analysis"
	promptAlertExplanation = "alert_explanation"
)

// Analyzer generates structured commentary from analytics data. Every
// call is gated by the tenant's monthly quota.
type Analyzer struct {
	llm    LLM
	quota  *Quota
	logger *log.Logger
	now    func() time.Time
}

// NewAnalyzer creates an analyzer over an LLM and a quota gate.
func NewAnalyzer(llm LLM, quota *Quota, logger *log.Logger) *Analyzer {
	if logger == nil {
		logger = log.Default()
	}
	return &Analyzer{llm: llm, quota: quota, logger: logger, now: time.Now}
}

// Summary is the structured financial health commentary.
type Summary struct {
	Summary  string   `json:"summary"`
	Insights []string `json:"insights"`
	Risks    []string `json:"risks"`
	Actions  []string `json:"actions"`
}

// ForecastAnalysis is the structured forecast commentary.
type ForecastAnalysis struct {
	Summary       string            `json:"summary"`
	TrendAnalysis string            `json:"trend_analysis"`
	Scenarios     map[string]string `json:"scenarios"`
	Risks         []string          `json:"risks"`
	Actions       []string          `json:"actions"`
}

// ExpenseAnalysis is the structured expense optimization commentary.
type ExpenseAnalysis struct {
	Summary       string   `json:"summary"`
	TopExpenses   []string `json:"top_expenses"`
	Concerns      []string `json:"concerns"`
	Opportunities []string `json:"opportunities"`
	Actions       []string `json:"actions"`
}

// FinancialSummary asks for an overall health summary built from a KPI
// snapshot.
func (a *Analyzer) FinancialSummary(ctx context.Context, tenantID string, snapshot *kpi.Snapshot) (*Summary, error) {
	user, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal context: %w", err)
	}

	var result Summary
	if err := a.completeJSON(ctx, tenantID, promptFinancialSummary, financialSummaryPrompt, string(user), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// forecastContext is the user message for forecast analysis: the horizon
// head plus accuracy, with the KPI snapshot for historical grounding.
type forecastContext struct {
	Metric         string               `json:"metric"`
	HorizonDays    int                  `json:"horizon_days"`
	HistoricalKPIs *kpi.Snapshot        `json:"historical_kpis,omitempty"`
	Forecast       forecastContextInner `json:"forecast"`
}

type forecastContextInner struct {
	PredictedValues []float64 `json:"predicted_values"`
	AccuracyScore   *float64  `json:"accuracy_score"`
}

// ForecastAnalysis asks for commentary on a generated forecast.
func (a *Analyzer) ForecastAnalysis(ctx context.Context, tenantID string, forecast *domain.Forecast, snapshot *kpi.Snapshot) (*ForecastAnalysis, error) {
	fc := forecastContext{
		Metric:         forecast.Metric,
		HorizonDays:    forecast.HorizonDays,
		HistoricalKPIs: snapshot,
		Forecast: forecastContextInner{
			PredictedValues: forecastHead(forecast.Series, forecastHeadDays),
			AccuracyScore:   forecast.AccuracyScore,
		},
	}

	user, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal context: %w", err)
	}

	var result ForecastAnalysis
	if err := a.completeJSON(ctx, tenantID, promptForecastAnalysis, forecastAnalysisPrompt(forecast.HorizonDays), string(user), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CategoryExpense is one row of the expense breakdown context.
type CategoryExpense struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
	Count    int     `json:"count"`
}

// ExpenseBreakdown groups negative transactions by category, largest
// spend first.
func ExpenseBreakdown(txns []*domain.Transaction) []CategoryExpense {
	totals := map[string]decimal.Decimal{}
	counts := map[string]int{}
	for _, txn := range txns {
		if !txn.Amount.IsNegative() {
			continue
		}
		totals[txn.Category] = totals[txn.Category].Add(txn.Amount.Abs())
		counts[txn.Category]++
	}

	breakdown := make([]CategoryExpense, 0, len(totals))
	for category, total := range totals {
		v, _ := total.Float64()
		breakdown = append(breakdown, CategoryExpense{Category: category, Total: v, Count: counts[category]})
	}
	sort.Slice(breakdown, func(i, j int) bool {
		if breakdown[i].Total != breakdown[j].Total {
			return breakdown[i].Total > breakdown[j].Total
		}
		return breakdown[i].Category < breakdown[j].Category
	})
	return breakdown
}

type expenseContext struct {
	PeriodStart string            `json:"period_start"`
	PeriodEnd   string            `json:"period_end"`
	Expenses    []CategoryExpense `json:"expenses_by_category"`
	Revenue     float64           `json:"total_revenue"`
}

// ExpenseAnalysis asks for optimization suggestions over a period's
// transactions.
func (a *Analyzer) ExpenseAnalysis(ctx context.Context, tenantID string, txns []*domain.Transaction, start, end time.Time) (*ExpenseAnalysis, error) {
	revenue, _ := kpi.DailyRevenue(txns).Total().Float64()
	ec := expenseContext{
		PeriodStart: start.Format(domain.DayFormat),
		PeriodEnd:   end.Format(domain.DayFormat),
		Expenses:    ExpenseBreakdown(txns),
		Revenue:     revenue,
	}

	user, err := json.MarshalIndent(ec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal context: %w", err)
	}

	var result ExpenseAnalysis
	if err := a.completeJSON(ctx, tenantID, promptExpenseAnalysis, expenseOptimizationPrompt, string(user), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// AlertExplanation asks for a short plain-text explanation of a
// triggered rule.
func (a *Analyzer) AlertExplanation(ctx context.Context, tenantID string, rule *domain.AlertRule, currentValue decimal.Decimal) (string, error) {
	user := fmt.Sprintf(
		"Alert: %s\nMetric: %s\nCurrent Value: %s\nThreshold: %s\nCondition: %s %s %s\n",
		rule.Name, rule.Metric, currentValue, rule.Threshold,
		rule.Metric, rule.Operator, rule.Threshold,
	)

	text, err := a.complete(ctx, tenantID, promptAlertExplanation, alertSummaryPrompt, user)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// complete runs the quota gate and the LLM call, recording call metrics.
func (a *Analyzer) complete(ctx context.Context, tenantID, promptName, system, user string) (string, error) {
	if err := a.quota.Consume(ctx, tenantID); err != nil {
		return "", err
	}

	started := a.now()
	text, err := a.llm.Complete(ctx, system, user)
	observability.DefaultMetrics.AICallLatency.Observe(a.now().Sub(started).Seconds())
	if err != nil {
		observability.RecordAICall(promptName, "error")
		return "", fmt.Errorf("%s: %w", promptName, err)
	}
	observability.RecordAICall(promptName, "success")
	return text, nil
}

// completeJSON is complete plus brace extraction and decoding.
func (a *Analyzer) completeJSON(ctx context.Context, tenantID, promptName, system, user string, result interface{}) error {
	text, err := a.complete(ctx, tenantID, promptName, system, user)
	if err != nil {
		return err
	}

	raw, err := extractJSON(text)
	if err != nil {
		return fmt.Errorf("%s: %w", promptName, err)
	}
	if err := json.Unmarshal([]byte(raw), result); err != nil {
		a.logger.Printf("[narrative] %s returned invalid JSON: %s", promptName, raw)
		return fmt.Errorf("%s: decode response: %w", promptName, err)
	}
	return nil
}

// forecastHead returns the first n projected values in day order.
func forecastHead(series map[string]float64, n int) []float64 {
	days := make([]string, 0, len(series))
	for day := range series {
		days = append(days, day)
	}
	sort.Strings(days)
	if len(days) > n {
		days = days[:n]
	}

	head := make([]float64, len(days))
	for i, day := range days {
		head[i] = series[day]
	}
	return head
}
