package forecast

import (
	"context"
	"errors"
	"log"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"aurix/internal/domain"
	"aurix/internal/storage/memory"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testEngine(t *testing.T) (*Engine, *memory.MetricStore, *memory.ForecastStore) {
	t.Helper()

	metricStore := memory.NewMetricStore()
	forecastStore := memory.NewForecastStore()
	counter := 0
	engine := NewEngine(EngineOptions{
		MetricStore:   metricStore,
		ForecastStore: forecastStore,
		HorizonDays:   30,
		Logger:        log.New(os.Stderr, "[test] ", log.LstdFlags),
		Now:           func() time.Time { return fixedNow },
		NewID: func() string {
			counter++
			return "fc" + string(rune('0'+counter))
		},
	})
	return engine, metricStore, forecastStore
}

func seedHistory(t *testing.T, store *memory.MetricStore, metric string, days int) {
	t.Helper()

	start := day("2026-01-01")
	points := make([]*domain.MetricPoint, 0, days)
	for i := 0; i < days; i++ {
		points = append(points, &domain.MetricPoint{
			TenantID: "t1",
			Date:     start.AddDate(0, 0, i),
			Metric:   metric,
			Value:    decimal.NewFromInt(int64(1000 + 10*i)),
		})
	}
	if err := store.InsertBulk(context.Background(), points); err != nil {
		t.Fatalf("Seed history failed: %v", err)
	}
}

func TestEngine_Generate(t *testing.T) {
	engine, metricStore, forecastStore := testEngine(t)
	seedHistory(t, metricStore, domain.MetricRevenue, 45)

	forecast, err := engine.Generate(context.Background(), "t1", domain.MetricRevenue)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if forecast.HorizonDays != 30 || len(forecast.Series) != 30 {
		t.Errorf("Expected 30-day series, got horizon=%d len=%d", forecast.HorizonDays, len(forecast.Series))
	}
	if forecast.ModelType != domain.ModelTypeAdditive {
		t.Errorf("Unexpected model type %q", forecast.ModelType)
	}

	// History ends 2026-02-14; projection starts the next day.
	if forecast.ModelParams["forecast_start"] != "2026-02-15" {
		t.Errorf("Unexpected forecast_start %q", forecast.ModelParams["forecast_start"])
	}
	if forecast.ModelParams["forecast_end"] != "2026-03-16" {
		t.Errorf("Unexpected forecast_end %q", forecast.ModelParams["forecast_end"])
	}
	if forecast.ModelParams["data_points"] != "45" {
		t.Errorf("Unexpected data_points %q", forecast.ModelParams["data_points"])
	}

	if forecast.AccuracyScore == nil || *forecast.AccuracyScore < 0.95 {
		t.Errorf("Expected high accuracy on clean trend, got %v", forecast.AccuracyScore)
	}

	// Each projected day has a matching interval containing the prediction.
	for key, yhat := range forecast.Series {
		interval, ok := forecast.Intervals[key]
		if !ok {
			t.Fatalf("Missing interval for %s", key)
		}
		if yhat < interval.Lower || yhat > interval.Upper {
			t.Errorf("Prediction outside its band on %s: %f not in [%f, %f]", key, yhat, interval.Lower, interval.Upper)
		}
	}

	// Persisted and retrievable as the latest forecast.
	saved, err := forecastStore.GetLatestByMetric(context.Background(), "t1", domain.MetricRevenue)
	if err != nil {
		t.Fatalf("GetLatestByMetric failed: %v", err)
	}
	if saved.ID != forecast.ID {
		t.Errorf("Expected persisted forecast %s, got %s", forecast.ID, saved.ID)
	}
}

func TestEngine_GenerateInsufficientData(t *testing.T) {
	engine, metricStore, _ := testEngine(t)
	seedHistory(t, metricStore, domain.MetricRevenue, 10)

	_, err := engine.Generate(context.Background(), "t1", domain.MetricRevenue)
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("Expected ErrInsufficientData, got %v", err)
	}
}

func TestEngine_ForecastAll(t *testing.T) {
	engine, metricStore, _ := testEngine(t)
	seedHistory(t, metricStore, domain.MetricRevenue, 45)
	seedHistory(t, metricStore, domain.MetricExpenses, 45)
	// net_cash history too short on purpose

	results, failures := engine.ForecastAll(context.Background(), "t1")

	if len(results) != 2 {
		t.Errorf("Expected 2 forecasts, got %d", len(results))
	}
	if !errors.Is(failures[domain.MetricNetCash], ErrInsufficientData) {
		t.Errorf("Expected net_cash failure, got %v", failures[domain.MetricNetCash])
	}
}
